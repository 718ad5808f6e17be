// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers and the flow controller to distinguish between different
// failure scenarios. The three draft sentinels are deliberately
// separate even though callers often collapse Expired and NotFound
// into the same restart path: the migration endpoint reports them
// differently.
package repository

import "errors"

// ErrDraftNotFound is returned when no draft session exists for the
// presented token. A completed session also reads as not found on
// ordinary fetch paths; it is logically deleted even though the row
// is retained for audit.
var ErrDraftNotFound = errors.New("draft not found")

// ErrDraftExpired is returned when the session exists but its
// expires_at horizon has passed. Callers restart the visitor at the
// first step.
var ErrDraftExpired = errors.New("draft expired")

// ErrDraftCompleted is returned by the adoption path when the session
// was already migrated. A second migration attempt must see this
// rather than a fresh success, so duplicates are impossible.
var ErrDraftCompleted = errors.New("draft already completed")

// ErrProfileMissing is returned when an entry draft is submitted for a
// session that has no profile draft yet. Step ordering is enforced
// server-side, not just by the client's routing.
var ErrProfileMissing = errors.New("profile draft missing")
