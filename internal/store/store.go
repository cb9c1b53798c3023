// Package store holds the authoritative in-memory state snapshot.
//
// The store mirrors the persisted KV namespace and performs no validation;
// all invariants are enforced by the operations in the app package.
package store

import (
	"sort"
	"sync"

	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
)

// Store is the in-memory state container. Reads return deep copies so
// callers can never mutate shared state through a snapshot.
type Store struct {
	mu       sync.RWMutex
	sessions []domain.Session
	active   domain.ActiveSessions
}

func New() *Store {
	return &Store{
		active: make(domain.ActiveSessions),
	}
}

// Snapshot returns a deep copy of the full state.
func (s *Store) Snapshot() *domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return &domain.Snapshot{
		Sessions: copySessions(s.sessions),
		Active:   copyActive(s.active),
	}
}

// Replace swaps in a new full state, taking ownership of the arguments.
// A nil active map is normalized to an empty one.
func (s *Store) Replace(sessions []domain.Session, active domain.ActiveSessions) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if active == nil {
		active = make(domain.ActiveSessions)
	}
	s.sessions = sessions
	s.active = active
}

// Get looks up a session by id.
func (s *Store) Get(id string) (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sess := range s.sessions {
		if sess.ID == id {
			return copySession(sess), true
		}
	}
	return domain.Session{}, false
}

// ByDomain returns the domain's sessions sorted by their order field.
func (s *Store) ByDomain(d string) []domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Session
	for _, sess := range s.sessions {
		if sess.Domain == d {
			out = append(out, copySession(sess))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// ActiveFor returns the active session id for a domain, if any.
func (s *Store) ActiveFor(d string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.active[d]
	return id, ok
}

// Len returns the total number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func copySession(sess domain.Session) domain.Session {
	out := sess
	if sess.Payload != nil {
		out.Payload = append([]byte(nil), sess.Payload...)
	}
	return out
}

func copySessions(sessions []domain.Session) []domain.Session {
	out := make([]domain.Session, len(sessions))
	for i, sess := range sessions {
		out[i] = copySession(sess)
	}
	return out
}

func copyActive(active domain.ActiveSessions) domain.ActiveSessions {
	out := make(domain.ActiveSessions, len(active))
	for k, v := range active {
		out[k] = v
	}
	return out
}
