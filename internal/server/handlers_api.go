package server

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tkempf/shoppulse/internal/domain"
	"github.com/tkempf/shoppulse/internal/version"
)

// The read endpoints always answer with the expected JSON shape; on a
// store failure they return 500 with the empty shape so dashboard
// clients never have to special-case the body.

func (s *Server) handleGetProducts(c echo.Context) error {
	products, err := s.service.Products(c.Request().Context())
	if err != nil {
		slog.Error("failed to load products", "error", err)
		return c.JSON(http.StatusInternalServerError, []domain.Product{})
	}
	if products == nil {
		products = []domain.Product{}
	}
	return c.JSON(http.StatusOK, products)
}

func (s *Server) handleGetHistory(c echo.Context) error {
	records, err := s.service.History(c.Request().Context())
	if err != nil {
		slog.Error("failed to load history", "error", err)
		return c.JSON(http.StatusInternalServerError, []domain.PurchaseRecord{})
	}
	if records == nil {
		records = []domain.PurchaseRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) handleGetStats(c echo.Context) error {
	stats, err := s.service.SensorStats(c.Request().Context())
	if err != nil {
		slog.Error("failed to load sensor stats", "error", err)
		return c.JSON(http.StatusInternalServerError, []domain.SensorStats{})
	}
	if stats == nil {
		stats = []domain.SensorStats{}
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) handleGetDashboard(c echo.Context) error {
	dashboard, err := s.service.Dashboard(c.Request().Context())
	if err != nil {
		slog.Error("failed to load dashboard", "error", err)
		return c.JSON(http.StatusInternalServerError, &domain.Dashboard{})
	}
	return c.JSON(http.StatusOK, dashboard)
}

func (s *Server) handleGetAlerts(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	alerts, err := s.service.Alerts(c.Request().Context(), limit)
	if err != nil {
		slog.Error("failed to load alerts", "error", err)
		return c.JSON(http.StatusInternalServerError, []domain.Alert{})
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	return c.JSON(http.StatusOK, alerts)
}

type postEventRequest struct {
	SensorID string  `json:"sensor_id"`
	Level    string  `json:"level"`
	Message  string  `json:"message"`
	Value    float64 `json:"value"`
}

type postEventResponse struct {
	Success bool          `json:"success"`
	Alert   *domain.Alert `json:"alert"`
}

func (s *Server) handlePostEvent(c echo.Context) error {
	var req postEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	alert, err := s.service.RecordAlert(c.Request().Context(), domain.Alert{
		SensorID: req.SensorID,
		Level:    req.Level,
		Message:  req.Message,
		Value:    req.Value,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, postEventResponse{Success: true, Alert: alert})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, version.Get())
}
