package flow

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-411/tracker-onboarding/internal/mirror"
	"github.com/s-411/tracker-onboarding/internal/model"
)

func testProfile() model.ProfileDraft {
	return model.ProfileDraft{Name: "Alex", Age: 30, Rating: 7.5}
}

func testEntry() model.EntryDraft {
	return model.EntryDraft{
		Date:            time.Now().UTC().Format("2006-01-02"),
		Amount:          decimal.RequireFromString("150.00"),
		DurationMinutes: 60,
		Nuts:            1,
	}
}

func newTestMirror() (*mirror.Mirror, *mirror.MemoryStore) {
	store := mirror.NewMemoryStore()
	return mirror.New(store, "test"), store
}

func TestStartSessionSeedsMirror(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	m, _ := newTestMirror()

	d, err := c.StartSession(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, model.StepProfile, d.Step)
	assert.NotEmpty(t, d.Token)

	var token string
	var step int
	require.True(t, m.Get(mirror.KeyToken, &token))
	require.True(t, m.Get(mirror.KeyStep, &step))
	assert.Equal(t, d.Token, token)
	assert.Equal(t, model.StepProfile, step)
}

func TestSubmitProfileAdvancesStep(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	m, _ := newTestMirror()
	d, err := c.StartSession(context.Background(), m)
	require.NoError(t, err)

	res, err := c.SubmitProfile(context.Background(), m, d.Token, testProfile())
	require.NoError(t, err)
	assert.True(t, res.IsValid())

	got, err := drafts.Get(context.Background(), d.Token)
	require.NoError(t, err)
	assert.Equal(t, model.StepEntry, got.Step)
	require.NotNil(t, got.Profile)
	assert.Equal(t, "Alex", got.Profile.Name)

	var mirrored model.ProfileDraft
	require.True(t, m.Get(mirror.KeyProfile, &mirrored))
	assert.Equal(t, testProfile(), mirrored)
}

func TestSubmitProfileInvalidTouchesNothing(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	m, _ := newTestMirror()
	d, err := c.StartSession(context.Background(), m)
	require.NoError(t, err)

	bad := testProfile()
	bad.Age = 10
	res, err := c.SubmitProfile(context.Background(), m, d.Token, bad)
	require.NoError(t, err)
	assert.False(t, res.IsValid())

	got, err := drafts.Get(context.Background(), d.Token)
	require.NoError(t, err)
	assert.Nil(t, got.Profile)
	assert.Equal(t, model.StepProfile, got.Step)
	assert.False(t, m.Get(mirror.KeyProfile, &model.ProfileDraft{}))
}

func TestSubmitEntryRequiresProfile(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	m, _ := newTestMirror()
	d, err := c.StartSession(context.Background(), m)
	require.NoError(t, err)

	_, err = c.SubmitEntry(context.Background(), m, d.Token, testEntry())
	assert.ErrorIs(t, err, ErrRestart)
	// The dead-draft contract clears the mirror.
	assert.False(t, m.HasAny())
}

func TestSubmitEntryKeepsMirrorOnTransportFailure(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	m, _ := newTestMirror()
	d, err := c.StartSession(context.Background(), m)
	require.NoError(t, err)
	_, err = c.SubmitProfile(context.Background(), m, d.Token, testProfile())
	require.NoError(t, err)

	drafts.failAll = errBoom
	_, err = c.SubmitEntry(context.Background(), m, d.Token, testEntry())
	assert.ErrorIs(t, err, errBoom)
	assert.NotErrorIs(t, err, ErrRestart)

	// A retryable failure must not wipe the visitor's input.
	var mirrored model.EntryDraft
	assert.True(t, m.Get(mirror.KeyEntry, &mirrored))
}

func TestSubmitAgainstExpiredDraftRestarts(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	m, _ := newTestMirror()
	d, err := c.StartSession(context.Background(), m)
	require.NoError(t, err)

	drafts.drafts[d.Token].ExpiresAt = time.Now().UTC().Add(-time.Minute)

	_, err = c.SubmitProfile(context.Background(), m, d.Token, testProfile())
	assert.ErrorIs(t, err, ErrRestart)
	assert.False(t, m.HasAny())
}

func TestSyncFromServerOverwritesMirror(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	m, _ := newTestMirror()
	d, err := c.StartSession(context.Background(), m)
	require.NoError(t, err)
	_, err = c.SubmitProfile(context.Background(), m, d.Token, testProfile())
	require.NoError(t, err)

	// Simulate stale local state diverging from the server draft.
	stale := testProfile()
	stale.Name = "Stale"
	m.Set(mirror.KeyProfile, stale)
	m.Set(mirror.KeyStep, 99)

	got, err := c.SyncFromServer(context.Background(), m, d.Token)
	require.NoError(t, err)
	assert.Equal(t, model.StepEntry, got.Step)

	var mirrored model.ProfileDraft
	var step int
	require.True(t, m.Get(mirror.KeyProfile, &mirrored))
	require.True(t, m.Get(mirror.KeyStep, &step))
	assert.Equal(t, "Alex", mirrored.Name)
	assert.Equal(t, model.StepEntry, step)
}

func TestSyncFromServerGoneClearsMirror(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	m, _ := newTestMirror()
	m.Set(mirror.KeyToken, "tok-dead")
	m.Set(mirror.KeyStep, 2)

	_, err := c.SyncFromServer(context.Background(), m, "tok-dead")
	assert.Error(t, err)
	assert.False(t, m.HasAny())
}

func TestRouteAuthenticatedSkipsEverything(t *testing.T) {
	c := NewController(newFakeDrafts())
	m, store := newTestMirror()
	store.Unavailable = true // even a broken mirror must not matter
	assert.Equal(t, RouteApp, c.Route(context.Background(), m, true))
}

func TestRouteFailsOpenWithEmptyMirror(t *testing.T) {
	c := NewController(newFakeDrafts())
	m, _ := newTestMirror()
	assert.Equal(t, RouteProfile, c.Route(context.Background(), m, false))
}

func TestRouteFallsBackToServerSync(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	m, _ := newTestMirror()
	d, err := c.StartSession(context.Background(), m)
	require.NoError(t, err)
	_, err = c.SubmitProfile(context.Background(), m, d.Token, testProfile())
	require.NoError(t, err)

	// A reload that lost the draft shapes but kept the token slot.
	fresh := mirror.New(mirror.NewMemoryStore(), "fresh")
	fresh.Set(mirror.KeyToken, d.Token)

	assert.Equal(t, RouteEntry, c.Route(context.Background(), fresh, false))
}

func TestRouteUnavailableStoreRoutesToProfile(t *testing.T) {
	c := NewController(newFakeDrafts())
	store := mirror.NewMemoryStore()
	store.Unavailable = true
	m := mirror.New(store, "test")
	assert.Equal(t, RouteProfile, c.Route(context.Background(), m, false))
}

func TestAdvanceStepIsMonotonic(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	m, _ := newTestMirror()
	d, err := c.StartSession(context.Background(), m)
	require.NoError(t, err)

	require.NoError(t, c.AdvanceStep(context.Background(), m, d.Token, model.StepAccount))
	// Moving backwards is a silent no-op at the store.
	require.NoError(t, c.AdvanceStep(context.Background(), m, d.Token, model.StepProfile))

	got, err := drafts.Get(context.Background(), d.Token)
	require.NoError(t, err)
	assert.Equal(t, model.StepAccount, got.Step)
}

func TestAdvanceStepRejectsOutOfRange(t *testing.T) {
	c := NewController(newFakeDrafts())
	m, _ := newTestMirror()
	assert.Error(t, c.AdvanceStep(context.Background(), m, "tok", 0))
	assert.Error(t, c.AdvanceStep(context.Background(), m, "tok", 5))
}
