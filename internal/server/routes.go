package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Popup-facing session API
	api := s.echo.Group("/api")
	api.GET("/sessions", s.handleListSessions)
	api.POST("/sessions", s.handleSaveSession)
	api.POST("/sessions/blank", s.handleBlankSession)
	api.PUT("/sessions/order", s.handleReorderSessions)
	api.POST("/sessions/:id/switch", s.handleSwitchSession)
	api.PUT("/sessions/:id/name", s.handleRenameSession)
	api.PUT("/sessions/:id", s.handleOverwriteSession)
	api.DELETE("/sessions/:id", s.handleDeleteSession)

	api.GET("/export", s.handleExport)
	api.POST("/import", s.handleImport)

	transferLimit := transferRateLimiter()
	api.POST("/transfer/send", s.handleTransferSend, transferLimit)
	api.POST("/transfer/receive", s.handleTransferReceive, transferLimit)

	// Background agent websocket
	s.echo.GET("/ws/agent", s.handleAgentSocket)
}
