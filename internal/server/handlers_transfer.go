package server

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/AnotherRiz/BitX-Sessions/internal/errors"
	"github.com/AnotherRiz/BitX-Sessions/internal/transfer"
)

func (s *Server) handleTransferSend(c echo.Context) error {
	if s.transfer == nil {
		return apperrors.ValidationError("transfer relay is not configured")
	}

	data, err := s.app.Export()
	if err != nil {
		return mapServiceError(err)
	}

	code, err := s.transfer.Send(c.Request().Context(), data)
	if err != nil {
		return mapTransferError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"code": code})
}

func (s *Server) handleTransferReceive(c echo.Context) error {
	if s.transfer == nil {
		return apperrors.ValidationError("transfer relay is not configured")
	}

	var req struct {
		Code string `json:"code"`
	}
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}
	if req.Code == "" {
		return apperrors.ValidationError("transfer code must not be empty")
	}

	payload, err := s.transfer.Receive(c.Request().Context(), req.Code)
	if err != nil {
		return mapTransferError(err)
	}

	n, err := s.app.Import(c.Request().Context(), payload)
	if err != nil {
		return mapServiceError(err)
	}
	return c.JSON(http.StatusOK, map[string]int{"imported": n})
}

// mapTransferError keeps relay failures non-fatal and user-visible.
func mapTransferError(err error) error {
	switch {
	case errors.Is(err, transfer.ErrInvalidCode):
		return apperrors.NotFoundError("transfer code not found or expired")
	case errors.Is(err, transfer.ErrRateLimited):
		return apperrors.RateLimitedError("transfer service rate limit exceeded")
	case errors.Is(err, transfer.ErrLockedOut):
		return apperrors.RateLimitedError("too many invalid transfer codes, try again later")
	default:
		return apperrors.InternalError("transfer failed", err)
	}
}
