package server

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/AnotherRiz/BitX-Sessions/internal/errors"
)

// Import files come from the popup, not the network at large, but a broken
// client should not be able to feed us something huge either.
const maxImportBytes = 8 << 20

func (s *Server) handleExport(c echo.Context) error {
	data, err := s.app.Export()
	if err != nil {
		return mapServiceError(err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="sessions-export.json"`)
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
}

func (s *Server) handleImport(c echo.Context) error {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImportBytes+1))
	if err != nil {
		return apperrors.ValidationError("failed to read import body")
	}
	if len(data) > maxImportBytes {
		return apperrors.ValidationError("import file too large")
	}

	n, err := s.app.Import(c.Request().Context(), data)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"imported": n})
}
