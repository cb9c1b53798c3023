package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
)

var _ domain.Bridge = (*Hub)(nil)

// CaptureCurrent asks the agent for the live session of a tab.
func (h *Hub) CaptureCurrent(ctx context.Context, d string, tabID int) (json.RawMessage, error) {
	resp, err := h.request(ctx, domain.AgentRequest{
		Action: domain.ActionGetCurrentSession,
		Domain: d,
		TabID:  tabID,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("agent rejected capture: %s", resp.Error)
	}
	return resp.Data, nil
}

// ApplyToTab asks the agent to load a stored payload into a tab.
func (h *Hub) ApplyToTab(ctx context.Context, payload json.RawMessage, tabID int) error {
	resp, err := h.request(ctx, domain.AgentRequest{
		Action:      domain.ActionSwitchSession,
		TabID:       tabID,
		SessionData: payload,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("agent rejected apply: %s", resp.Error)
	}
	return nil
}

// ClearTab asks the agent to wipe the live session state of a tab.
func (h *Hub) ClearTab(ctx context.Context, d string, tabID int) error {
	resp, err := h.request(ctx, domain.AgentRequest{
		Action: domain.ActionClearSession,
		Domain: d,
		TabID:  tabID,
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("agent rejected clear: %s", resp.Error)
	}
	return nil
}
