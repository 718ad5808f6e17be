package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-411/tracker-onboarding/internal/mirror"
)

// completedDraft walks a fake store through the full flow and returns
// the token of a draft ready for migration.
func completedDraft(t *testing.T, c *Controller, m *mirror.Mirror) string {
	t.Helper()
	d, err := c.StartSession(context.Background(), m)
	require.NoError(t, err)
	_, err = c.SubmitProfile(context.Background(), m, d.Token, testProfile())
	require.NoError(t, err)
	_, err = c.SubmitEntry(context.Background(), m, d.Token, testEntry())
	require.NoError(t, err)
	return d.Token
}

func TestMigrateSuccessClearsMirror(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	co := NewCoordinator(drafts)
	m, _ := newTestMirror()
	token := completedDraft(t, c, m)
	require.True(t, m.HasAny())

	out, err := co.Migrate(context.Background(), m, token, 42)
	require.NoError(t, err)
	assert.Equal(t, MigrateSuccess, out.Status)
	assert.NotZero(t, out.ProfileID)
	assert.NotZero(t, out.EntryID)
	assert.Equal(t, uint64(42), drafts.adopted[token])
	assert.False(t, m.HasAny())
}

func TestMigrateIsExactlyOnce(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	co := NewCoordinator(drafts)
	m, _ := newTestMirror()
	token := completedDraft(t, c, m)

	first, err := co.Migrate(context.Background(), m, token, 42)
	require.NoError(t, err)
	require.Equal(t, MigrateSuccess, first.Status)

	// A retry after a success must report the consumed draft, never a
	// second adoption.
	second, err := co.Migrate(context.Background(), m, token, 42)
	assert.Error(t, err)
	assert.Equal(t, MigrateAlreadyCompleted, second.Status)
	assert.Zero(t, second.ProfileID)
	assert.Len(t, drafts.adopted, 1)
}

func TestMigrateUnknownToken(t *testing.T) {
	drafts := newFakeDrafts()
	co := NewCoordinator(drafts)
	m, _ := newTestMirror()

	out, err := co.Migrate(context.Background(), m, "tok-missing", 42)
	assert.Error(t, err)
	assert.Equal(t, MigrateNotFound, out.Status)
}

func TestMigrateExpiredDraft(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	co := NewCoordinator(drafts)
	m, _ := newTestMirror()
	token := completedDraft(t, c, m)

	drafts.drafts[token].ExpiresAt = time.Now().UTC().Add(-time.Minute)

	out, err := co.Migrate(context.Background(), m, token, 42)
	assert.Error(t, err)
	assert.Equal(t, MigrateExpired, out.Status)
	assert.Empty(t, drafts.adopted)
}

func TestMigrateIncompleteDraft(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	co := NewCoordinator(drafts)
	m, _ := newTestMirror()
	d, err := c.StartSession(context.Background(), m)
	require.NoError(t, err)
	_, err = c.SubmitProfile(context.Background(), m, d.Token, testProfile())
	require.NoError(t, err)
	// No entry submitted.

	out, err := co.Migrate(context.Background(), m, d.Token, 42)
	assert.Error(t, err)
	assert.Equal(t, MigrateInternal, out.Status)
	assert.Empty(t, drafts.adopted)
}

func TestMigrateTransportFailureIsRetryable(t *testing.T) {
	drafts := newFakeDrafts()
	c := NewController(drafts)
	co := NewCoordinator(drafts)
	m, _ := newTestMirror()
	token := completedDraft(t, c, m)

	drafts.failAll = errBoom
	out, err := co.Migrate(context.Background(), m, token, 42)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, MigrateInternal, out.Status)
	// The mirror survives so a retry keeps the local state.
	assert.True(t, m.HasAny())

	drafts.failAll = nil
	out, err = co.Migrate(context.Background(), m, token, 42)
	require.NoError(t, err)
	assert.Equal(t, MigrateSuccess, out.Status)
}

func TestMigrateStatusString(t *testing.T) {
	assert.Equal(t, "success", MigrateSuccess.String())
	assert.Equal(t, "already_completed", MigrateAlreadyCompleted.String())
	assert.Equal(t, "not_found", MigrateNotFound.String())
	assert.Equal(t, "expired", MigrateExpired.String())
	assert.Equal(t, "internal", MigrateInternal.String())
}
