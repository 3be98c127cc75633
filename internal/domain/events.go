package domain

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EventKind discriminates the outbound wire messages. The dashboard
// filters on these strings, so they are a compatibility contract.
type EventKind string

const (
	EventConnected            EventKind = "connected"
	EventProducts             EventKind = "products"
	EventHistory              EventKind = "history"
	EventStats                EventKind = "stats"
	EventDashboard            EventKind = "dashboard"
	EventPurchaseSuccess      EventKind = "purchase_success"
	EventPurchaseNotification EventKind = "purchase_notification"
	EventStockUpdate          EventKind = "stock_update"
	EventHistoryCleared       EventKind = "history_cleared"
	EventAlert                EventKind = "alert"
	EventSimulatorStatus      EventKind = "simulator_status"
	EventUserRegistered       EventKind = "user_registered"
	EventError                EventKind = "error"
)

// Event is an immutable notification describing a completed state change.
// Events are serialized once per broadcast and delivered by value to every
// registered connection.
type Event struct {
	Kind      EventKind `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	ClientID  string    `json:"clientId,omitempty"`
	Running   *bool     `json:"isRunning,omitempty"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
}

// Encode serializes the event for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func NewConnectedEvent(clientID string, now time.Time) Event {
	return Event{Kind: EventConnected, Timestamp: now, ClientID: clientID, Message: "connected to shoppulse"}
}

func NewProductsEvent(products []Product, now time.Time) Event {
	return Event{Kind: EventProducts, Timestamp: now, Data: products}
}

func NewHistoryEvent(records []PurchaseRecord, now time.Time) Event {
	return Event{Kind: EventHistory, Timestamp: now, Data: records}
}

func NewStatsEvent(stats *ShopStats, now time.Time) Event {
	return Event{Kind: EventStats, Timestamp: now, Data: stats}
}

func NewDashboardEvent(dashboard *Dashboard, now time.Time) Event {
	return Event{Kind: EventDashboard, Timestamp: now, Data: dashboard}
}

// PurchasePayload is the data block of purchase_success and
// purchase_notification events.
type PurchasePayload struct {
	Username string  `json:"username"`
	Product  string  `json:"product"`
	Icon     string  `json:"icon"`
	Quantity int     `json:"quantity"`
	Total    float64 `json:"total"`
}

func NewPurchaseSuccessEvent(r *Receipt, now time.Time) Event {
	return Event{Kind: EventPurchaseSuccess, Timestamp: now, Message: "purchase completed", Data: purchasePayload(r)}
}

func NewPurchaseNotificationEvent(r *Receipt, now time.Time) Event {
	return Event{Kind: EventPurchaseNotification, Timestamp: now, Data: purchasePayload(r)}
}

func purchasePayload(r *Receipt) PurchasePayload {
	return PurchasePayload{
		Username: r.Username,
		Product:  r.Product.Name,
		Icon:     r.Product.Icon,
		Quantity: r.Purchase.Quantity,
		Total:    r.Purchase.TotalPrice,
	}
}

func NewStockUpdateEvent(product Product, now time.Time) Event {
	return Event{Kind: EventStockUpdate, Timestamp: now, Data: product}
}

func NewHistoryClearedEvent(now time.Time) Event {
	return Event{Kind: EventHistoryCleared, Timestamp: now, Message: "purchase history cleared"}
}

func NewAlertEvent(alert *Alert, now time.Time) Event {
	return Event{Kind: EventAlert, Timestamp: now, Data: alert}
}

func NewSimulatorStatusEvent(running bool, now time.Time) Event {
	msg := "simulator stopped"
	if running {
		msg = "simulator started"
	}
	return Event{Kind: EventSimulatorStatus, Timestamp: now, Running: &running, Message: msg}
}

func NewUserRegisteredEvent(user *User, now time.Time) Event {
	return Event{Kind: EventUserRegistered, Timestamp: now, Data: user}
}

func NewErrorEvent(message string, now time.Time) Event {
	return Event{Kind: EventError, Timestamp: now, Message: message}
}
