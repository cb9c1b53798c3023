package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
	"github.com/AnotherRiz/BitX-Sessions/internal/store"
)

const (
	keySessions = "sessions"
	keyActive   = "active_sessions"
)

// SnapshotRepo persists the full state snapshot under two keys.
type SnapshotRepo struct {
	rdb *goredis.Client
}

func NewSnapshotRepo(rdb *goredis.Client) *SnapshotRepo {
	return &SnapshotRepo{rdb: rdb}
}

var _ domain.SnapshotRepository = (*SnapshotRepo)(nil)

// Load reads both keys and decodes them. Missing keys yield an empty
// snapshot, so a fresh install needs no seeding.
func (r *SnapshotRepo) Load(ctx context.Context) (*domain.Snapshot, error) {
	snap := &domain.Snapshot{
		Active: make(domain.ActiveSessions),
	}

	rawSessions, err := r.rdb.Get(ctx, keySessions).Bytes()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("failed to read %s: %w", keySessions, err)
	}
	if len(rawSessions) > 0 {
		snap.Sessions, err = decodeSessions(rawSessions)
		if err != nil {
			return nil, err
		}
	}

	rawActive, err := r.rdb.Get(ctx, keyActive).Bytes()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("failed to read %s: %w", keyActive, err)
	}
	if len(rawActive) > 0 {
		if err := json.Unmarshal(rawActive, &snap.Active); err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", keyActive, err)
		}
	}

	return snap, nil
}

// Save writes both keys in one pipeline. Last writer wins; no
// optimistic-concurrency check is performed.
func (r *SnapshotRepo) Save(ctx context.Context, snap *domain.Snapshot) error {
	sessions := snap.Sessions
	if sessions == nil {
		sessions = []domain.Session{}
	}
	sessionsJSON, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}

	active := snap.Active
	if active == nil {
		active = make(domain.ActiveSessions)
	}
	activeJSON, err := json.Marshal(active)
	if err != nil {
		return fmt.Errorf("failed to marshal active sessions: %w", err)
	}

	pipe := r.rdb.Pipeline()
	pipe.Set(ctx, keySessions, sessionsJSON, 0)
	pipe.Set(ctx, keyActive, activeJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return nil
}

// decodeSessions decodes the persisted array element by element, seeding
// each record with an unassigned order so legacy records that predate the
// order field stay distinguishable from order 0.
func decodeSessions(raw []byte) ([]domain.Session, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", keySessions, err)
	}

	sessions := make([]domain.Session, 0, len(elems))
	for i, elem := range elems {
		sess := domain.Session{Order: store.UnassignedOrder}
		if err := json.Unmarshal(elem, &sess); err != nil {
			return nil, fmt.Errorf("failed to decode session %d: %w", i, err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}
