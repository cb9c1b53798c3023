package domain

import (
	"context"
	"encoding/json"
)

// AgentAction tags a request to the background agent.
type AgentAction string

const (
	ActionGetCurrentSession AgentAction = "GET_CURRENT_SESSION"
	ActionSwitchSession     AgentAction = "SWITCH_SESSION"
	ActionClearSession      AgentAction = "CLEAR_SESSION"
)

// AgentRequest is the wire envelope sent to the background agent.
type AgentRequest struct {
	RequestID   string          `json:"request_id"`
	Action      AgentAction     `json:"action"`
	Domain      string          `json:"domain,omitempty"`
	TabID       int             `json:"tab_id"`
	SessionData json.RawMessage `json:"session_data,omitempty"`
}

// AgentResponse is the wire envelope returned by the background agent.
type AgentResponse struct {
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Bridge reaches the background agent that owns live browser state.
// Failures are surfaced verbatim; no call is retried, since reapplying a
// capture could have side effects on the live page.
type Bridge interface {
	// CaptureCurrent asks the agent for the live session of a tab.
	CaptureCurrent(ctx context.Context, domain string, tabID int) (json.RawMessage, error)
	// ApplyToTab asks the agent to load a stored payload into a tab.
	ApplyToTab(ctx context.Context, payload json.RawMessage, tabID int) error
	// ClearTab asks the agent to wipe the live session state of a tab.
	ClearTab(ctx context.Context, domain string, tabID int) error
}

// SnapshotRepository is the persistence bridge: load and store the full
// state snapshot in a durable key-value namespace.
type SnapshotRepository interface {
	Load(ctx context.Context) (*Snapshot, error)
	Save(ctx context.Context, snap *Snapshot) error
}
