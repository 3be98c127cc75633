package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/tkempf/shoppulse/internal/domain"
	"github.com/tkempf/shoppulse/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards are served from arbitrary origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWebSocket(c echo.Context) error {
	ip := c.RealIP()

	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.ConnectionsRejectedTotal.WithLabelValues(string(reason)).Inc()
		slog.Warn("WebSocket connection rejected", "ip", ip, "reason", reason)
		if reason == LimitReasonGlobal {
			return c.String(http.StatusServiceUnavailable, "server at capacity")
		}
		return c.String(http.StatusTooManyRequests, "too many connections")
	}
	defer s.limits.Release(ip)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	clientID := s.hub.Register(conn)
	slog.Info("Client connected", "client_id", clientID.String(), "ip", ip)

	// Welcome the client and sync it with the simulator state.
	now := s.clock.Now()
	s.hub.Send(clientID, domain.NewConnectedEvent(clientID.String(), now))
	s.hub.Send(clientID, domain.NewSimulatorStatusEvent(s.simulator.Running(), now))

	// Read pump, blocks until disconnect
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		s.dispatch(c.Request().Context(), clientID, message)
	}

	s.hub.Unregister(clientID)
	slog.Info("Client disconnected", "client_id", clientID.String())

	return nil //nolint:nilerr // ReadMessage err is block-scoped; outer err is nil
}
