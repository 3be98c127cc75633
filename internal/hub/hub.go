package hub

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/tkempf/shoppulse/internal/domain"
	"github.com/tkempf/shoppulse/internal/metrics"
)

// --- Command types ---

type hubCmd interface{ isHubCmd() }

type baseHubCmd struct{}

func (baseHubCmd) isHubCmd() {}

type registerCmd struct {
	baseHubCmd
	clientID   uuid.UUID
	connection *websocket.Conn
}

type unregisterCmd struct {
	baseHubCmd
	clientID uuid.UUID
}

type broadcastCmd struct {
	baseHubCmd
	kind domain.EventKind
	data []byte
}

type sendCmd struct {
	baseHubCmd
	clientID uuid.UUID
	data     []byte
}

type clientCountCmd struct {
	baseHubCmd
	replyChannel chan int
}

type stopCmd struct {
	baseHubCmd
}

// Hub owns the set of live subscriber connections and delivers serialized
// events to them. All state is confined to the run goroutine.
type Hub struct {
	cmdCh   chan hubCmd
	clock   clockwork.Clock
	clients map[uuid.UUID]*clientWriter
	done    chan struct{}
}

func New(clock clockwork.Clock) *Hub {
	h := &Hub{
		cmdCh:   make(chan hubCmd, 256),
		clock:   clock,
		clients: make(map[uuid.UUID]*clientWriter),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

// Register adds a connection and returns its identifier. It never fails:
// the id is assigned before the command is queued and the actor always
// accepts registrations.
func (h *Hub) Register(conn *websocket.Conn) uuid.UUID {
	clientID := uuid.New()
	h.cmdCh <- registerCmd{clientID: clientID, connection: conn}
	return clientID
}

// Unregister removes a connection. Unknown or already-removed ids are a
// no-op.
func (h *Hub) Unregister(clientID uuid.UUID) {
	h.cmdCh <- unregisterCmd{clientID: clientID}
}

// Broadcast serializes the event once and delivers the same bytes to every
// registered connection. Per-connection failures evict that connection and
// are otherwise swallowed.
func (h *Hub) Broadcast(event domain.Event) {
	data, err := event.Encode()
	if err != nil {
		slog.Error("Failed to encode broadcast event", "kind", event.Kind, "error", err)
		return
	}
	h.cmdCh <- broadcastCmd{kind: event.Kind, data: data}
}

// Send delivers the event to a single connection, used for replies that
// must only reach the originating client.
func (h *Hub) Send(clientID uuid.UUID, event domain.Event) {
	data, err := event.Encode()
	if err != nil {
		slog.Error("Failed to encode event", "kind", event.Kind, "error", err)
		return
	}
	h.cmdCh <- sendCmd{clientID: clientID, data: data}
}

// ClientCount returns the current number of registered connections.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- clientCountCmd{replyChannel: replyCh}
	select {
	case count := <-replyCh:
		return count
	case <-h.done:
		return 0
	}
}

// Stop closes every client connection and shuts the actor down.
func (h *Hub) Stop() {
	h.cmdCh <- stopCmd{}
	<-h.done
}

func (h *Hub) run() {
	defer close(h.done)

	for cmd := range h.cmdCh {
		switch c := cmd.(type) {
		case registerCmd:
			h.handleRegister(c)
		case unregisterCmd:
			h.handleUnregister(c.clientID)
		case broadcastCmd:
			h.handleBroadcast(c)
		case sendCmd:
			h.handleSend(c)
		case clientCountCmd:
			c.replyChannel <- len(h.clients)
		case stopCmd:
			h.handleStop()
			return
		default:
			slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (h *Hub) handleRegister(c registerCmd) {
	h.clients[c.clientID] = newClientWriter(c.connection, h.clock)
	metrics.HubConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("Client registered", "client_id", c.clientID.String(), "total_clients", len(h.clients))
}

func (h *Hub) handleUnregister(clientID uuid.UUID) {
	cw, exists := h.clients[clientID]
	if !exists {
		return
	}

	cw.stop()
	delete(h.clients, clientID)
	metrics.HubConnectedClients.Set(float64(len(h.clients)))
	slog.Debug("Client unregistered", "client_id", clientID.String(), "remaining_clients", len(h.clients))
}

func (h *Hub) handleBroadcast(c broadcastCmd) {
	metrics.HubBroadcastsTotal.WithLabelValues(string(c.kind)).Inc()

	var slow []uuid.UUID
	for clientID, cw := range h.clients {
		select {
		case cw.sendChannel <- c.data:
		default:
			slow = append(slow, clientID)
		}
	}

	for _, clientID := range slow {
		slog.Warn("Disconnecting slow client", "client_id", clientID.String())
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(clientID)
	}
}

func (h *Hub) handleSend(c sendCmd) {
	cw, exists := h.clients[c.clientID]
	if !exists {
		return
	}

	select {
	case cw.sendChannel <- c.data:
	default:
		slog.Warn("Disconnecting slow client", "client_id", c.clientID.String())
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(c.clientID)
	}
}

func (h *Hub) handleStop() {
	slog.Info("Hub shutting down", "clients", len(h.clients))
	for clientID, cw := range h.clients {
		cw.stopGraceful("server shutting down")
		delete(h.clients, clientID)
	}
	metrics.HubConnectedClients.Set(0)
}
