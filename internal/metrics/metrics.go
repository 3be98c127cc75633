// Package metrics defines the prometheus collectors shared across the
// application. Collectors are package-level and registered via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics
var (
	// HubConnectedClients tracks the current number of registered connections.
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Current number of registered WebSocket clients",
		},
	)

	// HubBroadcastsTotal counts broadcast calls by event kind.
	HubBroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_broadcasts_total",
			Help: "Total broadcast events by kind",
		},
		[]string{"kind"},
	)

	// HubSlowClientsEvicted counts clients dropped because their send
	// buffer was full.
	HubSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_slow_clients_evicted_total",
			Help: "Total clients evicted for not keeping up with broadcasts",
		},
	)
)

// Shop metrics
var (
	// PurchasesTotal counts purchase attempts by outcome
	// (accepted, rejected_stock, rejected_not_found, failed).
	PurchasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_purchases_total",
			Help: "Total purchase attempts by outcome",
		},
		[]string{"outcome"},
	)

	// AlertsRecordedTotal counts recorded alerts by severity level.
	AlertsRecordedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "shop_alerts_recorded_total",
			Help: "Total alerts recorded by severity level",
		},
		[]string{"level"},
	)
)

// Simulator metrics
var (
	// SimulatorTicksTotal counts simulator ticks by result
	// (purchased, skipped, failed).
	SimulatorTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "simulator_ticks_total",
			Help: "Total simulator ticks by result",
		},
		[]string{"result"},
	)

	// SimulatorRunning reports whether the simulator is currently running.
	SimulatorRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "simulator_running",
			Help: "Whether the purchase simulator is running (0 or 1)",
		},
	)
)

// Connection limit metrics
var (
	// ConnectionsRejectedTotal counts WebSocket connections rejected by limit type.
	ConnectionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ws_connections_rejected_total",
			Help: "Total WebSocket connections rejected by limit reason",
		},
		[]string{"reason"},
	)
)
