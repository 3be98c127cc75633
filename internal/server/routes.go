package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.GET("/version", s.handleVersion)

	// Read-only REST surface
	s.echo.GET("/api/products", s.handleGetProducts)
	s.echo.GET("/api/history", s.handleGetHistory)
	s.echo.GET("/api/stats", s.handleGetStats)
	s.echo.GET("/api/dashboard", s.handleGetDashboard)
	s.echo.GET("/api/alerts", s.handleGetAlerts)

	// Alert ingestion
	s.echo.POST("/api/events", s.handlePostEvent)

	// Real-time surface
	s.echo.GET("/ws", s.handleWebSocket)
}
