package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
	apperrors "github.com/AnotherRiz/BitX-Sessions/internal/errors"
)

type tabPayload struct {
	ID  int    `json:"id"`
	URL string `json:"url"`
}

func (t tabPayload) ref() domain.TabRef {
	return domain.TabRef{ID: t.ID, URL: t.URL}
}

// mapServiceError translates domain sentinels into structured errors so the
// middleware can pick the right status code. Errors that already carry a
// structured error pass through untouched.
func mapServiceError(err error) error {
	if err == nil {
		return nil
	}
	var structured *apperrors.Error
	if errors.As(err, &structured) {
		return err
	}

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return apperrors.NotFoundError("session not found")
	case errors.Is(err, domain.ErrNameConflict):
		return apperrors.ConflictError("session name already in use")
	case errors.Is(err, domain.ErrCrossDomain):
		return apperrors.ValidationError("session belongs to a different domain")
	case errors.Is(err, domain.ErrCountMismatch):
		return apperrors.ValidationError("reorder list length differs from session count")
	case errors.Is(err, domain.ErrInvalidIDs):
		return apperrors.ValidationError("reorder list does not match session ids")
	case errors.Is(err, domain.ErrNoTabURL):
		return apperrors.ValidationError("tab has no resolvable URL")
	case errors.Is(err, domain.ErrAgentUnavailable):
		return apperrors.BridgeError("background agent not connected", err)
	default:
		return apperrors.InternalError("operation failed", err)
	}
}

func (s *Server) handleListSessions(c echo.Context) error {
	tabID, err := strconv.Atoi(c.QueryParam("tab_id"))
	if err != nil {
		return apperrors.ValidationError("tab_id must be an integer").WithField("tab_id", c.QueryParam("tab_id"))
	}
	tab := domain.TabRef{ID: tabID, URL: c.QueryParam("url")}

	out, err := s.app.ListForTab(tab)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleSaveSession(c echo.Context) error {
	var req struct {
		Tab  tabPayload `json:"tab"`
		Name string     `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	sess, err := s.app.SaveCurrent(c.Request().Context(), req.Tab.ref(), req.Name)
	if err != nil {
		return mapServiceError(err)
	}
	if err := c.JSON(http.StatusCreated, sess); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSwitchSession(c echo.Context) error {
	var req struct {
		Tab tabPayload `json:"tab"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.app.Switch(c.Request().Context(), req.Tab.ref(), c.Param("id")); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleBlankSession(c echo.Context) error {
	var req struct {
		Tab tabPayload `json:"tab"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.app.NewBlank(c.Request().Context(), req.Tab.ref()); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRenameSession(c echo.Context) error {
	var req struct {
		Name      string `json:"name"`
		Overwrite bool   `json:"overwrite"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.app.Rename(c.Request().Context(), c.Param("id"), req.Name, req.Overwrite); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleOverwriteSession(c echo.Context) error {
	var req struct {
		Tab  tabPayload `json:"tab"`
		Name string     `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	sess, err := s.app.OverwriteWithCurrent(c.Request().Context(), req.Tab.ref(), c.Param("id"), req.Name)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(c echo.Context) error {
	if err := s.app.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return mapServiceError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleReorderSessions(c echo.Context) error {
	var req struct {
		Tab tabPayload `json:"tab"`
		IDs []string   `json:"ids"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	if err := s.app.Reorder(c.Request().Context(), req.Tab.ref(), req.IDs); err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
