package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// handleAgentSocket upgrades the background agent's websocket and hands it
// to the hub. The browser WebSocket API cannot set headers, so the shared
// token travels as a query parameter.
func (s *Server) handleAgentSocket(c echo.Context) error {
	if s.config.AgentToken != "" {
		token := c.QueryParam("token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.config.AgentToken)) != 1 {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid agent token")
		}
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade agent websocket: %w", err)
	}

	// Blocks until the agent disconnects.
	s.hub.HandleConn(conn)
	return nil
}
