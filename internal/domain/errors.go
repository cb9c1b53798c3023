package domain

import "errors"

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNameConflict     = errors.New("session name already in use")
	ErrCrossDomain      = errors.New("session belongs to a different domain")
	ErrCountMismatch    = errors.New("reorder list length differs from session count")
	ErrInvalidIDs       = errors.New("reorder list does not match session ids")
	ErrNoTabURL         = errors.New("tab has no resolvable URL")
	ErrAgentUnavailable = errors.New("background agent not connected")
)
