package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
	apperrors "github.com/AnotherRiz/BitX-Sessions/internal/errors"
	"github.com/AnotherRiz/BitX-Sessions/internal/export"
	"github.com/AnotherRiz/BitX-Sessions/internal/metrics"
	"github.com/AnotherRiz/BitX-Sessions/internal/store"
	"github.com/AnotherRiz/BitX-Sessions/internal/tabs"
)

// Operation tags used to wrap every surfaced error.
const (
	opInitialize = "initialize"
	opList       = "list sessions"
	opSave       = "save session"
	opSwitch     = "switch session"
	opBlank      = "create blank session"
	opRename     = "rename session"
	opOverwrite  = "overwrite session"
	opDelete     = "delete session"
	opReorder    = "reorder sessions"
	opExport     = "export sessions"
	opImport     = "import sessions"
)

// Service is the application layer. All state-mutating operations serialize
// on one mutex: the popup model is single-threaded, and making that explicit
// here means every operation sees a consistent snapshot and flushes it
// before the next one starts.
type Service struct {
	mu           sync.Mutex
	store        *store.Store
	repo         domain.SnapshotRepository
	bridge       domain.Bridge
	clock        clockwork.Clock
	newID        func() string
	captureGroup singleflight.Group
}

// NewService creates the application layer service.
func NewService(st *store.Store, repo domain.SnapshotRepository, bridge domain.Bridge, clock clockwork.Clock) *Service {
	return &Service{
		store:  st,
		repo:   repo,
		bridge: bridge,
		clock:  clock,
		newID:  uuid.NewString,
	}
}

// Initialize loads the persisted snapshot into the store, assigning orders
// to legacy records and dropping active pointers that no longer reference a
// session of their domain. Migration results are persisted before returning.
func (s *Service) Initialize(ctx context.Context) (*domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.repo.Load(ctx)
	if err != nil {
		return nil, s.fail(opInitialize, err)
	}

	changed := store.MigrateOrders(snap.Sessions)

	byID := make(map[string]string, len(snap.Sessions))
	for _, sess := range snap.Sessions {
		byID[sess.ID] = sess.Domain
	}
	for d, id := range snap.Active {
		if byID[id] != d {
			delete(snap.Active, d)
			changed = true
		}
	}

	if changed {
		slog.Info("Migrated persisted sessions", "sessions", len(snap.Sessions))
		if err := s.repo.Save(ctx, snap); err != nil {
			return nil, s.fail(opInitialize, err)
		}
	}

	s.store.Replace(snap.Sessions, snap.Active)
	metrics.SessionsStored.Set(float64(len(snap.Sessions)))
	s.ok(opInitialize)
	return s.store.Snapshot(), nil
}

// DomainSessions bundles the per-domain view the popup renders.
type DomainSessions struct {
	Domain   string           `json:"domain"`
	Sessions []domain.Session `json:"sessions"`
	ActiveID string           `json:"active_id,omitempty"`
}

// ListForTab returns the tab's domain, its sessions in display order, and
// the active session id, if any.
func (s *Service) ListForTab(tab domain.TabRef) (*DomainSessions, error) {
	d, err := tabs.ResolveDomain(tab.URL)
	if err != nil {
		return nil, s.fail(opList, err)
	}

	out := &DomainSessions{
		Domain:   d,
		Sessions: s.store.ByDomain(d),
	}
	if id, ok := s.store.ActiveFor(d); ok {
		out.ActiveID = id
	}
	s.ok(opList)
	return out, nil
}

// SaveCurrent captures the live session of the tab and stores it under the
// given name, appending it to the domain's list and marking it active.
func (s *Service) SaveCurrent(ctx context.Context, tab domain.TabRef, name string) (domain.Session, error) {
	d, err := tabs.ResolveDomain(tab.URL)
	if err != nil {
		return domain.Session{}, s.fail(opSave, err)
	}

	name = domain.NormalizeName(name)
	if err := validateName(name); err != nil {
		return domain.Session{}, s.fail(opSave, err)
	}

	payload, err := s.capture(ctx, d, tab.ID)
	if err != nil {
		return domain.Session{}, s.fail(opSave, apperrors.BridgeError("capture failed", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	if conflictsWith(snap.Sessions, d, name, "") {
		return domain.Session{}, s.fail(opSave, domain.ErrNameConflict)
	}

	now := s.clock.Now()
	sess := domain.Session{
		ID:        s.newID(),
		Name:      name,
		Domain:    d,
		CreatedAt: now,
		LastUsed:  now,
		Order:     nextOrder(snap.Sessions, d),
		Payload:   payload,
	}
	snap.Sessions = append(snap.Sessions, sess)
	snap.Active[d] = sess.ID

	if err := s.commit(ctx, snap); err != nil {
		return domain.Session{}, s.fail(opSave, err)
	}
	s.ok(opSave)
	return sess, nil
}

// Switch applies a stored session to the tab and marks it active for its
// domain. Apply failures are surfaced, not retried: they imply a tab-level
// failure the user must act on. The apply runs outside the lock, so the
// target is looked up again before activation; a session deleted while the
// apply was in flight must not leave a dangling active pointer.
func (s *Service) Switch(ctx context.Context, tab domain.TabRef, id string) error {
	sess, ok := s.store.Get(id)
	if !ok {
		return s.fail(opSwitch, domain.ErrSessionNotFound)
	}

	if err := s.bridge.ApplyToTab(ctx, sess.Payload, tab.ID); err != nil {
		return s.fail(opSwitch, apperrors.BridgeError("apply failed", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	target := findSession(snap.Sessions, id)
	if target == nil {
		return s.fail(opSwitch, domain.ErrSessionNotFound)
	}
	target.LastUsed = s.clock.Now()
	snap.Active[target.Domain] = id

	if err := s.commit(ctx, snap); err != nil {
		return s.fail(opSwitch, err)
	}
	s.ok(opSwitch)
	return nil
}

// NewBlank clears the tab's live session state and deselects the domain's
// active session. No stored session is deleted.
func (s *Service) NewBlank(ctx context.Context, tab domain.TabRef) error {
	d, err := tabs.ResolveDomain(tab.URL)
	if err != nil {
		return s.fail(opBlank, err)
	}

	if err := s.bridge.ClearTab(ctx, d, tab.ID); err != nil {
		return s.fail(opBlank, apperrors.BridgeError("clear failed", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	delete(snap.Active, d)

	if err := s.commit(ctx, snap); err != nil {
		return s.fail(opBlank, err)
	}
	s.ok(opBlank)
	return nil
}

// Rename changes a session's name. With overwrite=false a name collision in
// the domain fails without mutating anything; with overwrite=true the
// conflicting sibling is removed, and if the sibling was active the pointer
// is redirected to the renamed session.
func (s *Service) Rename(ctx context.Context, id, newName string, overwrite bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	target := findSession(snap.Sessions, id)
	if target == nil {
		return s.fail(opRename, domain.ErrSessionNotFound)
	}

	newName = domain.NormalizeName(newName)
	if err := validateName(newName); err != nil {
		return s.fail(opRename, err)
	}

	sibling := findConflict(snap.Sessions, target.Domain, newName, id)
	if sibling != nil {
		if !overwrite {
			return s.fail(opRename, domain.ErrNameConflict)
		}
		siblingWasActive := snap.Active[target.Domain] == sibling.ID
		snap.Sessions = removeSession(snap.Sessions, sibling.ID)
		if siblingWasActive {
			snap.Active[target.Domain] = id
		}
		// removeSession invalidated the pointer; look the target up again.
		target = findSession(snap.Sessions, id)
	}

	target.Name = newName

	if err := s.commit(ctx, snap); err != nil {
		return s.fail(opRename, err)
	}
	s.ok(opRename)
	return nil
}

// OverwriteWithCurrent recaptures the tab's live session into an existing
// record, preserving its id, order, domain and creation time so the session
// keeps its place in the list. An optional new name is applied in the same
// step. The target must belong to the tab's domain: overwrite always
// captures from the current tab, so a cross-domain overwrite is rejected.
func (s *Service) OverwriteWithCurrent(ctx context.Context, tab domain.TabRef, id, newName string) (domain.Session, error) {
	d, err := tabs.ResolveDomain(tab.URL)
	if err != nil {
		return domain.Session{}, s.fail(opOverwrite, err)
	}

	target, ok := s.store.Get(id)
	if !ok {
		return domain.Session{}, s.fail(opOverwrite, domain.ErrSessionNotFound)
	}
	if target.Domain != d {
		return domain.Session{}, s.fail(opOverwrite, domain.ErrCrossDomain)
	}

	newName = domain.NormalizeName(newName)
	if newName != "" {
		if err := validateName(newName); err != nil {
			return domain.Session{}, s.fail(opOverwrite, err)
		}
	}

	payload, err := s.capture(ctx, d, tab.ID)
	if err != nil {
		return domain.Session{}, s.fail(opOverwrite, apperrors.BridgeError("capture failed", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	sess := findSession(snap.Sessions, id)
	if sess == nil {
		return domain.Session{}, s.fail(opOverwrite, domain.ErrSessionNotFound)
	}

	sess.Payload = payload
	sess.LastUsed = s.clock.Now()
	if newName != "" {
		sess.Name = newName
	}
	snap.Active[d] = id

	if err := s.commit(ctx, snap); err != nil {
		return domain.Session{}, s.fail(opOverwrite, err)
	}
	s.ok(opOverwrite)
	return *sess, nil
}

// Delete removes a session. Deleting an id that is already gone is a no-op,
// not an error: it is a benign race with concurrent popup actions. If the
// session was its domain's active one, the pointer is cleared.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	target := findSession(snap.Sessions, id)
	if target == nil {
		s.ok(opDelete)
		return nil
	}

	if snap.Active[target.Domain] == id {
		delete(snap.Active, target.Domain)
	}
	snap.Sessions = removeSession(snap.Sessions, id)

	if err := s.commit(ctx, snap); err != nil {
		return s.fail(opDelete, err)
	}
	s.ok(opDelete)
	return nil
}

// Reorder overwrites the display order of the tab domain's sessions with
// the given id sequence. The sequence must contain exactly the domain's
// current ids; anything else means the popup rendered stale state.
func (s *Service) Reorder(ctx context.Context, tab domain.TabRef, ids []string) error {
	d, err := tabs.ResolveDomain(tab.URL)
	if err != nil {
		return s.fail(opReorder, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	current := make(map[string]struct{})
	for _, sess := range snap.Sessions {
		if sess.Domain == d {
			current[sess.ID] = struct{}{}
		}
	}

	if len(ids) != len(current) {
		return s.fail(opReorder, domain.ErrCountMismatch)
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := current[id]; !ok {
			return s.fail(opReorder, domain.ErrInvalidIDs)
		}
		if _, dup := seen[id]; dup {
			return s.fail(opReorder, domain.ErrInvalidIDs)
		}
		seen[id] = struct{}{}
	}

	position := make(map[string]int, len(ids))
	for i, id := range ids {
		position[id] = i
	}
	for i := range snap.Sessions {
		if snap.Sessions[i].Domain == d {
			snap.Sessions[i].Order = position[snap.Sessions[i].ID]
		}
	}

	if err := s.commit(ctx, snap); err != nil {
		return s.fail(opReorder, err)
	}
	s.ok(opReorder)
	return nil
}

// Export encodes every stored session as a JSON array.
func (s *Service) Export() ([]byte, error) {
	data, err := export.Marshal(s.store.Snapshot().Sessions)
	if err != nil {
		return nil, s.fail(opExport, err)
	}
	s.ok(opExport)
	return data, nil
}

// Import merges an export file into the store: sessions of every domain
// present in the file replace that domain's existing sessions wholesale,
// other domains are untouched. Active pointers that no longer resolve are
// dropped, and imported records missing an order get one assigned.
func (s *Service) Import(ctx context.Context, data []byte) (int, error) {
	imported, err := export.Unmarshal(data)
	if err != nil {
		return 0, s.fail(opImport, apperrors.ValidationError(err.Error()))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.store.Snapshot()
	snap.Sessions = export.Merge(snap.Sessions, imported)
	store.MigrateOrders(snap.Sessions)

	byID := make(map[string]string, len(snap.Sessions))
	for _, sess := range snap.Sessions {
		byID[sess.ID] = sess.Domain
	}
	for d, id := range snap.Active {
		if byID[id] != d {
			delete(snap.Active, d)
		}
	}

	if err := s.commit(ctx, snap); err != nil {
		return 0, s.fail(opImport, err)
	}
	s.ok(opImport)
	return len(imported), nil
}

// --- Helpers ---

// capture collapses concurrent captures of the same tab into one agent call.
func (s *Service) capture(ctx context.Context, d string, tabID int) (json.RawMessage, error) {
	v, err, _ := s.captureGroup.Do(strconv.Itoa(tabID), func() (any, error) {
		return s.bridge.CaptureCurrent(ctx, d, tabID)
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// commit persists the mutated snapshot, then swaps it into the store. The
// store only ever reflects persisted state, so a failed flush leaves both
// sides on the previous snapshot.
func (s *Service) commit(ctx context.Context, snap *domain.Snapshot) error {
	if err := s.repo.Save(ctx, snap); err != nil {
		return err
	}
	s.store.Replace(snap.Sessions, snap.Active)
	metrics.SessionsStored.Set(float64(len(snap.Sessions)))
	return nil
}

func (s *Service) ok(op string) {
	metrics.SessionOpsTotal.WithLabelValues(op, "success").Inc()
}

func (s *Service) fail(op string, err error) error {
	metrics.SessionOpsTotal.WithLabelValues(op, "error").Inc()
	return fmt.Errorf("%s: %w", op, err)
}

func validateName(name string) error {
	if name == "" {
		return apperrors.ValidationError("session name must not be empty")
	}
	if utf8.RuneCountInString(name) > domain.MaxSessionNameLength {
		return apperrors.ValidationError(fmt.Sprintf("session name must be at most %d characters", domain.MaxSessionNameLength))
	}
	return nil
}

func nextOrder(sessions []domain.Session, d string) int {
	next := 0
	for _, sess := range sessions {
		if sess.Domain == d && sess.Order >= next {
			next = sess.Order + 1
		}
	}
	return next
}

func findSession(sessions []domain.Session, id string) *domain.Session {
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i]
		}
	}
	return nil
}

func findConflict(sessions []domain.Session, d, name, excludeID string) *domain.Session {
	for i := range sessions {
		if sessions[i].Domain == d && sessions[i].ID != excludeID && domain.SameName(sessions[i].Name, name) {
			return &sessions[i]
		}
	}
	return nil
}

func conflictsWith(sessions []domain.Session, d, name, excludeID string) bool {
	return findConflict(sessions, d, name, excludeID) != nil
}

func removeSession(sessions []domain.Session, id string) []domain.Session {
	out := sessions[:0]
	for _, sess := range sessions {
		if sess.ID != id {
			out = append(out, sess)
		}
	}
	return out
}
