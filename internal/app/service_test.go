package app

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnotherRiz/BitX-Sessions/internal/domain"
	apperrors "github.com/AnotherRiz/BitX-Sessions/internal/errors"
	"github.com/AnotherRiz/BitX-Sessions/internal/store"
)

// --- Mock implementations ---

type fakeRepo struct {
	snap    *domain.Snapshot
	loadErr error
	saveErr error
	saves   int
}

func newFakeRepo(snap *domain.Snapshot) *fakeRepo {
	if snap == nil {
		snap = &domain.Snapshot{Active: make(domain.ActiveSessions)}
	}
	if snap.Active == nil {
		snap.Active = make(domain.ActiveSessions)
	}
	return &fakeRepo{snap: snap}
}

func (r *fakeRepo) Load(context.Context) (*domain.Snapshot, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.snap, nil
}

func (r *fakeRepo) Save(_ context.Context, snap *domain.Snapshot) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.snap = snap
	return nil
}

type fakeBridge struct {
	captureFn func(ctx context.Context, d string, tabID int) (json.RawMessage, error)
	applyFn   func(ctx context.Context, payload json.RawMessage, tabID int) error
	clearFn   func(ctx context.Context, d string, tabID int) error
}

func (b *fakeBridge) CaptureCurrent(ctx context.Context, d string, tabID int) (json.RawMessage, error) {
	if b.captureFn != nil {
		return b.captureFn(ctx, d, tabID)
	}
	return json.RawMessage(`{"cookies":[]}`), nil
}

func (b *fakeBridge) ApplyToTab(ctx context.Context, payload json.RawMessage, tabID int) error {
	if b.applyFn != nil {
		return b.applyFn(ctx, payload, tabID)
	}
	return nil
}

func (b *fakeBridge) ClearTab(ctx context.Context, d string, tabID int) error {
	if b.clearFn != nil {
		return b.clearFn(ctx, d, tabID)
	}
	return nil
}

// --- Test fixtures ---

var exampleTab = domain.TabRef{ID: 1, URL: "https://example.com/login"}

func seedSnapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Sessions: []domain.Session{
			{ID: "A", Name: "work", Domain: "example.com", Order: 0, Payload: json.RawMessage(`{"a":1}`)},
			{ID: "B", Name: "home", Domain: "example.com", Order: 1, Payload: json.RawMessage(`{"b":2}`)},
			{ID: "C", Name: "admin", Domain: "other.org", Order: 0},
		},
		Active: domain.ActiveSessions{"example.com": "A", "other.org": "C"},
	}
}

func newTestService(t *testing.T, snap *domain.Snapshot, bridge *fakeBridge) (*Service, *fakeRepo, *clockwork.FakeClock) {
	t.Helper()
	if bridge == nil {
		bridge = &fakeBridge{}
	}
	repo := newFakeRepo(snap)
	clock := clockwork.NewFakeClockAt(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	svc := NewService(store.New(), repo, bridge, clock)

	counter := 0
	svc.newID = func() string {
		counter++
		return fmt.Sprintf("id-%d", counter)
	}

	_, err := svc.Initialize(context.Background())
	require.NoError(t, err)
	return svc, repo, clock
}

// --- Initialize ---

func TestInitializeMigratesLegacyOrders(t *testing.T) {
	snap := &domain.Snapshot{
		Sessions: []domain.Session{
			{ID: "A", Name: "work", Domain: "example.com", Order: 0},
			{ID: "B", Name: "home", Domain: "example.com", Order: store.UnassignedOrder},
		},
	}
	svc, repo, _ := newTestService(t, snap, nil)

	out, err := svc.ListForTab(exampleTab)
	require.NoError(t, err)
	require.Len(t, out.Sessions, 2)
	assert.Equal(t, 1, out.Sessions[1].Order)
	assert.Equal(t, 1, repo.saves, "migration must be persisted")
}

func TestInitializeDropsDanglingActivePointers(t *testing.T) {
	snap := &domain.Snapshot{
		Sessions: []domain.Session{{ID: "A", Name: "work", Domain: "example.com", Order: 0}},
		Active: domain.ActiveSessions{
			"example.com": "A",
			"other.org":   "A",       // wrong domain
			"ghost.net":   "missing", // deleted session
		},
	}
	svc, _, _ := newTestService(t, snap, nil)

	out, err := svc.ListForTab(exampleTab)
	require.NoError(t, err)
	assert.Equal(t, "A", out.ActiveID)

	other, err := svc.ListForTab(domain.TabRef{ID: 2, URL: "https://other.org"})
	require.NoError(t, err)
	assert.Empty(t, other.ActiveID)
}

// --- SaveCurrent ---

func TestSaveCurrentAppendsWithNextOrder(t *testing.T) {
	svc, repo, clock := newTestService(t, seedSnapshot(), nil)

	sess, err := svc.SaveCurrent(context.Background(), exampleTab, "  staging  ")
	require.NoError(t, err)

	assert.Equal(t, "staging", sess.Name, "name is trimmed")
	assert.Equal(t, "example.com", sess.Domain)
	assert.Equal(t, 2, sess.Order, "order appends after domain max")
	assert.Equal(t, clock.Now(), sess.CreatedAt)
	assert.JSONEq(t, `{"cookies":[]}`, string(sess.Payload))

	active := repo.snap.Active["example.com"]
	assert.Equal(t, sess.ID, active, "new session becomes active")
}

func TestSaveCurrentRejectsInvalidNames(t *testing.T) {
	svc, repo, _ := newTestService(t, seedSnapshot(), nil)
	saves := repo.saves

	_, err := svc.SaveCurrent(context.Background(), exampleTab, "   ")
	require.Error(t, err)
	var structured *apperrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, apperrors.TypeValidation, structured.Type)

	long := make([]rune, domain.MaxSessionNameLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = svc.SaveCurrent(context.Background(), exampleTab, string(long))
	require.Error(t, err)

	assert.Equal(t, saves, repo.saves, "failed saves must not persist")
}

func TestSaveCurrentRejectsDuplicateName(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)

	_, err := svc.SaveCurrent(context.Background(), exampleTab, " WORK ")
	assert.ErrorIs(t, err, domain.ErrNameConflict)
}

func TestSaveCurrentSurfacesCaptureFailure(t *testing.T) {
	bridge := &fakeBridge{
		captureFn: func(context.Context, string, int) (json.RawMessage, error) {
			return nil, fmt.Errorf("agent rejected capture: tab gone")
		},
	}
	svc, _, _ := newTestService(t, seedSnapshot(), bridge)

	_, err := svc.SaveCurrent(context.Background(), exampleTab, "staging")
	require.Error(t, err)
	var structured *apperrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, apperrors.TypeBridge, structured.Type)
}

func TestSaveCurrentRequiresResolvableDomain(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)

	_, err := svc.SaveCurrent(context.Background(), domain.TabRef{ID: 1, URL: "about:blank"}, "x")
	assert.ErrorIs(t, err, domain.ErrNoTabURL)
}

// --- Switch ---

func TestSwitchAppliesAndActivates(t *testing.T) {
	var applied json.RawMessage
	bridge := &fakeBridge{
		applyFn: func(_ context.Context, payload json.RawMessage, tabID int) error {
			applied = payload
			return nil
		},
	}
	svc, repo, clock := newTestService(t, seedSnapshot(), bridge)

	require.NoError(t, svc.Switch(context.Background(), exampleTab, "B"))

	assert.JSONEq(t, `{"b":2}`, string(applied))
	assert.Equal(t, "B", repo.snap.Active["example.com"])

	out, err := svc.ListForTab(exampleTab)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), out.Sessions[1].LastUsed)
}

func TestSwitchUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)
	err := svc.Switch(context.Background(), exampleTab, "nope")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSwitchSessionDeletedWhileApplying(t *testing.T) {
	// The bridge apply runs outside the service lock, so a delete can land
	// mid-flight. The switch must not resurrect the session as an active
	// pointer.
	bridge := &fakeBridge{}
	svc, repo, _ := newTestService(t, seedSnapshot(), bridge)
	ctx := context.Background()

	bridge.applyFn = func(ctx context.Context, _ json.RawMessage, _ int) error {
		return svc.Delete(ctx, "B")
	}

	err := svc.Switch(ctx, exampleTab, "B")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.Equal(t, "A", repo.snap.Active["example.com"], "active pointer unchanged")
	for d, id := range repo.snap.Active {
		sess, ok := svc.store.Get(id)
		require.True(t, ok, "active id %s must reference an existing session", id)
		assert.Equal(t, d, sess.Domain)
	}
}

func TestSwitchSurfacesApplyFailure(t *testing.T) {
	bridge := &fakeBridge{
		applyFn: func(context.Context, json.RawMessage, int) error {
			return fmt.Errorf("agent rejected apply: tab closed")
		},
	}
	svc, repo, _ := newTestService(t, seedSnapshot(), bridge)
	saves := repo.saves

	err := svc.Switch(context.Background(), exampleTab, "B")
	require.Error(t, err)
	assert.Equal(t, "A", repo.snap.Active["example.com"], "active pointer unchanged on failure")
	assert.Equal(t, saves, repo.saves)
}

// --- NewBlank ---

func TestNewBlankDeselectsWithoutDeleting(t *testing.T) {
	svc, repo, _ := newTestService(t, seedSnapshot(), nil)

	require.NoError(t, svc.NewBlank(context.Background(), exampleTab))

	_, ok := repo.snap.Active["example.com"]
	assert.False(t, ok, "active pointer cleared")
	assert.Equal(t, "C", repo.snap.Active["other.org"], "other domains untouched")
	assert.Len(t, repo.snap.Sessions, 3, "no session deleted")
}

func TestNewBlankSurfacesClearFailure(t *testing.T) {
	bridge := &fakeBridge{
		clearFn: func(context.Context, string, int) error {
			return fmt.Errorf("agent rejected clear: no permission")
		},
	}
	svc, repo, _ := newTestService(t, seedSnapshot(), bridge)

	err := svc.NewBlank(context.Background(), exampleTab)
	require.Error(t, err)
	assert.Equal(t, "A", repo.snap.Active["example.com"])
}

// --- Rename ---

func TestRenameSimple(t *testing.T) {
	svc, repo, _ := newTestService(t, seedSnapshot(), nil)

	require.NoError(t, svc.Rename(context.Background(), "B", "weekend", false))

	sess, ok := svc.store.Get("B")
	require.True(t, ok)
	assert.Equal(t, "weekend", sess.Name)
	assert.Len(t, repo.snap.Sessions, 3)
}

func TestRenameConflictWithoutOverwriteLeavesStateUntouched(t *testing.T) {
	svc, repo, _ := newTestService(t, seedSnapshot(), nil)
	saves := repo.saves
	before := svc.store.Snapshot()

	err := svc.Rename(context.Background(), "B", " Work ", false)
	assert.ErrorIs(t, err, domain.ErrNameConflict)

	assert.Equal(t, before, svc.store.Snapshot(), "state unchanged")
	assert.Equal(t, saves, repo.saves, "nothing persisted")
}

func TestRenameWithOverwriteRemovesSiblingAndRedirectsActive(t *testing.T) {
	// A is active and holds the name "work"; renaming B to "work" with
	// overwrite deletes A and must keep "something active" by pointing
	// the domain at B.
	svc, repo, _ := newTestService(t, seedSnapshot(), nil)

	require.NoError(t, svc.Rename(context.Background(), "B", "work", true))

	_, ok := svc.store.Get("A")
	assert.False(t, ok, "conflicting sibling removed")

	sess, ok := svc.store.Get("B")
	require.True(t, ok)
	assert.Equal(t, "work", sess.Name)
	assert.Equal(t, 1, sess.Order, "renamed session keeps its position")

	assert.Equal(t, "B", repo.snap.Active["example.com"])
}

func TestRenameOverwriteKeepsActiveWhenSiblingWasNotActive(t *testing.T) {
	snap := seedSnapshot()
	snap.Active["example.com"] = "B"
	svc, repo, _ := newTestService(t, snap, nil)

	require.NoError(t, svc.Rename(context.Background(), "B", "work", true))
	assert.Equal(t, "B", repo.snap.Active["example.com"])
}

func TestRenameUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)
	err := svc.Rename(context.Background(), "nope", "x", false)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// An unknown id wins over an invalid name.
	err = svc.Rename(context.Background(), "nope", "   ", false)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

// --- OverwriteWithCurrent ---

func TestOverwritePreservesIdentityFields(t *testing.T) {
	snap := seedSnapshot()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	snap.Sessions[1].CreatedAt = created

	bridge := &fakeBridge{
		captureFn: func(context.Context, string, int) (json.RawMessage, error) {
			return json.RawMessage(`{"fresh":true}`), nil
		},
	}
	svc, repo, clock := newTestService(t, snap, bridge)

	got, err := svc.OverwriteWithCurrent(context.Background(), exampleTab, "B", "homebase")
	require.NoError(t, err)

	assert.Equal(t, "B", got.ID)
	assert.Equal(t, 1, got.Order)
	assert.Equal(t, "example.com", got.Domain)
	assert.Equal(t, created, got.CreatedAt)

	assert.Equal(t, "homebase", got.Name)
	assert.JSONEq(t, `{"fresh":true}`, string(got.Payload))
	assert.Equal(t, clock.Now(), got.LastUsed)

	assert.Equal(t, "B", repo.snap.Active["example.com"])
}

func TestOverwriteWithoutNameKeepsName(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)

	got, err := svc.OverwriteWithCurrent(context.Background(), exampleTab, "B", "")
	require.NoError(t, err)
	assert.Equal(t, "home", got.Name)
}

func TestOverwriteRejectsCrossDomain(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)

	_, err := svc.OverwriteWithCurrent(context.Background(), exampleTab, "C", "")
	assert.ErrorIs(t, err, domain.ErrCrossDomain)
}

func TestOverwriteUnknownID(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)
	_, err := svc.OverwriteWithCurrent(context.Background(), exampleTab, "nope", "")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

// --- Delete ---

func TestDeleteClearsActivePointerForItsDomainOnly(t *testing.T) {
	svc, repo, _ := newTestService(t, seedSnapshot(), nil)

	require.NoError(t, svc.Delete(context.Background(), "A"))

	_, ok := repo.snap.Active["example.com"]
	assert.False(t, ok)
	assert.Equal(t, "C", repo.snap.Active["other.org"], "other domains untouched")

	_, found := svc.store.Get("A")
	assert.False(t, found)
}

func TestDeleteInactiveSessionKeepsPointer(t *testing.T) {
	svc, repo, _ := newTestService(t, seedSnapshot(), nil)

	require.NoError(t, svc.Delete(context.Background(), "B"))
	assert.Equal(t, "A", repo.snap.Active["example.com"])
}

func TestDeleteAbsentIDIsNoop(t *testing.T) {
	svc, repo, _ := newTestService(t, seedSnapshot(), nil)
	saves := repo.saves

	require.NoError(t, svc.Delete(context.Background(), "already-gone"))
	assert.Equal(t, saves, repo.saves, "no-op must not persist")
}

// --- Reorder ---

func TestReorderAssignsSequentialOrders(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)

	require.NoError(t, svc.Reorder(context.Background(), exampleTab, []string{"B", "A"}))

	a, _ := svc.store.Get("A")
	b, _ := svc.store.Get("B")
	c, _ := svc.store.Get("C")
	assert.Equal(t, 1, a.Order)
	assert.Equal(t, 0, b.Order)
	assert.Equal(t, 0, c.Order, "other domains untouched")
}

func TestReorderRejectsCountMismatch(t *testing.T) {
	svc, repo, _ := newTestService(t, seedSnapshot(), nil)
	saves := repo.saves

	err := svc.Reorder(context.Background(), exampleTab, []string{"A"})
	assert.ErrorIs(t, err, domain.ErrCountMismatch)
	assert.Equal(t, saves, repo.saves)
}

func TestReorderRejectsForeignOrDuplicateIDs(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)

	err := svc.Reorder(context.Background(), exampleTab, []string{"A", "C"})
	assert.ErrorIs(t, err, domain.ErrInvalidIDs, "id from another domain")

	err = svc.Reorder(context.Background(), exampleTab, []string{"A", "A"})
	assert.ErrorIs(t, err, domain.ErrInvalidIDs, "duplicate id hides a missing one")

	b, _ := svc.store.Get("B")
	assert.Equal(t, 1, b.Order, "state unchanged after rejections")
}

// --- Export / Import ---

func TestExportImportRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)

	data, err := svc.Export()
	require.NoError(t, err)

	empty, _, _ := newTestService(t, nil, nil)
	n, err := empty.Import(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// The encoder re-indents payloads, so compare field by field with a
	// semantic payload check instead of byte equality.
	want := svc.store.Snapshot().Sessions
	got := empty.store.Snapshot().Sessions
	require.Len(t, got, len(want))
	byID := make(map[string]domain.Session, len(got))
	for _, sess := range got {
		byID[sess.ID] = sess
	}
	for _, w := range want {
		g, ok := byID[w.ID]
		require.True(t, ok, "session %s missing after import", w.ID)
		assert.Equal(t, w.Name, g.Name)
		assert.Equal(t, w.Domain, g.Domain)
		assert.Equal(t, w.Order, g.Order)
		if w.Payload != nil {
			assert.JSONEq(t, string(w.Payload), string(g.Payload))
		}
	}
}

func TestImportReplacesOnlyImportedDomains(t *testing.T) {
	svc, repo, _ := newTestService(t, seedSnapshot(), nil)

	payload := `[{"id":"Z","name":"fresh","domain":"example.com","order":0}]`
	_, err := svc.Import(context.Background(), []byte(payload))
	require.NoError(t, err)

	var ids []string
	for _, sess := range repo.snap.Sessions {
		ids = append(ids, sess.ID)
	}
	assert.ElementsMatch(t, []string{"C", "Z"}, ids)

	_, ok := repo.snap.Active["example.com"]
	assert.False(t, ok, "active pointer to replaced session dropped")
	assert.Equal(t, "C", repo.snap.Active["other.org"])
}

func TestImportAssignsOrdersToLegacyRecords(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)

	payload := `[
		{"id":"X","name":"first","domain":"fresh.net"},
		{"id":"Y","name":"second","domain":"fresh.net"}
	]`
	n, err := svc.Import(context.Background(), []byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	x, ok := svc.store.Get("X")
	require.True(t, ok)
	y, ok := svc.store.Get("Y")
	require.True(t, ok)
	assert.Equal(t, 0, x.Order)
	assert.Equal(t, 1, y.Order, "order-less records must get distinct orders")
}

func TestImportRejectsObjectMapShape(t *testing.T) {
	svc, _, _ := newTestService(t, seedSnapshot(), nil)

	_, err := svc.Import(context.Background(), []byte(`{"example.com":[]}`))
	require.Error(t, err)
	var structured *apperrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, apperrors.TypeValidation, structured.Type)
}

// --- Invariants ---

func TestAtMostOneActiveSessionPerDomain(t *testing.T) {
	svc, repo, _ := newTestService(t, seedSnapshot(), nil)
	ctx := context.Background()

	_, err := svc.SaveCurrent(ctx, exampleTab, "one")
	require.NoError(t, err)
	_, err = svc.SaveCurrent(ctx, exampleTab, "two")
	require.NoError(t, err)
	require.NoError(t, svc.Switch(ctx, exampleTab, "A"))

	// Active is a map keyed by domain, so the property holds structurally;
	// verify the pointer always references a session of its own domain.
	for d, id := range repo.snap.Active {
		sess, ok := svc.store.Get(id)
		require.True(t, ok, "active id %s must exist", id)
		assert.Equal(t, d, sess.Domain)
	}
}
