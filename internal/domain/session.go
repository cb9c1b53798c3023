package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// MaxSessionNameLength bounds user-supplied session names (in runes).
const MaxSessionNameLength = 64

// Session is a named, captured snapshot of a website's logged-in state,
// scoped to one domain. Payload is owned by the background agent; the core
// copies and moves it but never inspects it.
type Session struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Domain    string          `json:"domain"`
	CreatedAt time.Time       `json:"created_at"`
	LastUsed  time.Time       `json:"last_used"`
	Order     int             `json:"order"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ActiveSessions maps a domain to the session id currently active for it.
// Absence of a key means no session is active for that domain.
type ActiveSessions map[string]string

// Snapshot is the full persisted state: all sessions plus the per-domain
// active pointers. This mirrors the two keys of the durable KV namespace.
type Snapshot struct {
	Sessions []Session      `json:"sessions"`
	Active   ActiveSessions `json:"active_sessions"`
}

// TabRef identifies the browser tab an operation acts on. The popup resolves
// the active tab and sends both pieces with every request.
type TabRef struct {
	ID  int    `json:"tab_id"`
	URL string `json:"url"`
}

// NormalizeName trims surrounding whitespace from a candidate session name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}

// SameName reports whether two session names collide under the conflict
// policy: trimmed, case-insensitive equality.
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
