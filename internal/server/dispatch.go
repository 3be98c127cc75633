package server

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/tkempf/shoppulse/internal/domain"
	apperrors "github.com/tkempf/shoppulse/internal/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Inbound message types.
const (
	msgGetProducts    = "get_products"
	msgGetHistory     = "get_history"
	msgGetStats       = "get_stats"
	msgGetDashboard   = "get_dashboard"
	msgStartSimulator = "start_simulator"
	msgStopSimulator  = "stop_simulator"
	msgClearHistory   = "clear_history"
	msgPurchase       = "purchase"
	msgRegisterUser   = "register_user"
	msgRecordEvent    = "record_event"
)

type inboundMessage struct {
	Type string `json:"type"`

	// purchase
	UserID    int64 `json:"user_id"`
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`

	// register_user
	Username string `json:"username"`

	// record_event
	SensorID string  `json:"sensor_id"`
	Level    string  `json:"level"`
	Message  string  `json:"message"`
	Value    float64 `json:"value"`
}

// dispatch routes one inbound client message. Shared state changes are
// broadcast by the service; everything here goes only to the sender.
func (s *Server) dispatch(ctx context.Context, clientID uuid.UUID, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendError(clientID, "malformed message")
		return
	}

	slog.Debug("Message received", "client_id", clientID.String(), "type", msg.Type)

	switch msg.Type {
	case msgGetProducts:
		products, err := s.service.Products(ctx)
		if err != nil {
			s.replyError(clientID, err)
			return
		}
		s.hub.Send(clientID, domain.NewProductsEvent(products, s.clock.Now()))

	case msgGetHistory:
		records, err := s.service.History(ctx)
		if err != nil {
			s.replyError(clientID, err)
			return
		}
		s.hub.Send(clientID, domain.NewHistoryEvent(records, s.clock.Now()))

	case msgGetStats:
		stats, err := s.service.Stats(ctx)
		if err != nil {
			s.replyError(clientID, err)
			return
		}
		s.hub.Send(clientID, domain.NewStatsEvent(stats, s.clock.Now()))

	case msgGetDashboard:
		dashboard, err := s.service.Dashboard(ctx)
		if err != nil {
			s.replyError(clientID, err)
			return
		}
		s.hub.Send(clientID, domain.NewDashboardEvent(dashboard, s.clock.Now()))

	case msgStartSimulator:
		if !s.simulator.Start() {
			// Already running: sync the sender anyway.
			s.hub.Send(clientID, domain.NewSimulatorStatusEvent(true, s.clock.Now()))
		}

	case msgStopSimulator:
		if !s.simulator.Stop() {
			s.hub.Send(clientID, domain.NewSimulatorStatusEvent(false, s.clock.Now()))
		}

	case msgClearHistory:
		if err := s.service.ClearHistory(ctx); err != nil {
			s.replyError(clientID, err)
		}

	case msgPurchase:
		receipt, err := s.service.ExecutePurchase(ctx, msg.UserID, msg.ProductID, msg.Quantity)
		if err != nil {
			s.replyError(clientID, err)
			return
		}
		s.hub.Send(clientID, domain.NewPurchaseSuccessEvent(receipt, s.clock.Now()))

	case msgRegisterUser:
		user, err := s.service.RegisterUser(ctx, msg.Username)
		if err != nil {
			s.replyError(clientID, err)
			return
		}
		s.hub.Send(clientID, domain.NewUserRegisteredEvent(user, s.clock.Now()))

	case msgRecordEvent:
		// The alert broadcast happens in the service on success.
		_, err := s.service.RecordAlert(ctx, domain.Alert{
			SensorID: msg.SensorID,
			Level:    msg.Level,
			Message:  msg.Message,
			Value:    msg.Value,
		})
		if err != nil {
			s.replyError(clientID, err)
		}

	default:
		s.sendError(clientID, "unknown message type")
	}
}

// replyError converts a service error into an error event for the sender,
// with the client-safe message from the structured error taxonomy.
func (s *Server) replyError(clientID uuid.UUID, err error) {
	s.sendError(clientID, apperrors.AsStructuredError(err).Message)
}

func (s *Server) sendError(clientID uuid.UUID, message string) {
	s.hub.Send(clientID, domain.NewErrorEvent(message, s.clock.Now()))
}
