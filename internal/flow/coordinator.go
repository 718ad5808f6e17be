package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/s-411/tracker-onboarding/internal/mirror"
	"github.com/s-411/tracker-onboarding/internal/repository"
	"github.com/s-411/tracker-onboarding/internal/validation"
)

// MigrateStatus tags the outcome of a migration attempt so callers can
// never mistake a repeat call for a fresh success.
type MigrateStatus int

const (
	MigrateSuccess          MigrateStatus = iota // records created, draft consumed
	MigrateAlreadyCompleted                      // draft was consumed by an earlier call
	MigrateNotFound                              // no draft for this token
	MigrateExpired                               // draft TTL passed before migration
	MigrateInternal                              // storage failure, draft untouched, retryable
)

// String returns the wire name of the status.
func (s MigrateStatus) String() string {
	switch s {
	case MigrateSuccess:
		return "success"
	case MigrateAlreadyCompleted:
		return "already_completed"
	case MigrateNotFound:
		return "not_found"
	case MigrateExpired:
		return "expired"
	}
	return "internal"
}

// MigrateOutcome reports one migration attempt.  ProfileID and EntryID
// are set only on success; identifiers are assigned by the database.
type MigrateOutcome struct {
	Status    MigrateStatus
	ProfileID uint64
	EntryID   uint64
}

// Coordinator performs the atomic hand-off from ephemeral draft to
// permanent records.  Atomicity lives in the store's Adopt operation
// (one database transaction); the coordinator's job is the precondition
// check, the outcome taxonomy and the teardown of local state.
type Coordinator struct {
	drafts DraftStore
}

// NewCoordinator returns a Coordinator over the given draft store.
func NewCoordinator(drafts DraftStore) *Coordinator {
	return &Coordinator{drafts: drafts}
}

// Migrate converts the draft behind token into permanent records owned
// by accountID, exactly once per token.  Both drafts are re-validated
// here even though the flow should only reach this point with valid
// data; the adoption writes permanent rows, so the check is repeated at
// the last gate.  On success the mirror is cleared and the token is
// gone from local state, so the draft is unreachable through this
// subsystem forever after.
//
// On any non-success outcome the draft is untouched and a retry with
// the same token is safe: a retry after a hidden success is reported as
// MigrateAlreadyCompleted, never as a duplicate migration.
func (co *Coordinator) Migrate(ctx context.Context, m *mirror.Mirror, token string, accountID uint64) (MigrateOutcome, error) {
	d, err := co.drafts.Get(ctx, token)
	if err != nil {
		return MigrateOutcome{Status: statusFor(err)}, err
	}
	if d.Profile == nil || d.Entry == nil {
		return MigrateOutcome{Status: MigrateInternal},
			fmt.Errorf("draft incomplete: profile present=%t entry present=%t", d.Profile != nil, d.Entry != nil)
	}
	if res := validation.ValidateProfile(*d.Profile); !res.IsValid() {
		return MigrateOutcome{Status: MigrateInternal},
			fmt.Errorf("profile draft failed revalidation: %s", res.Errors[0].Message)
	}
	if res := validation.ValidateEntry(*d.Entry); !res.IsValid() {
		return MigrateOutcome{Status: MigrateInternal},
			fmt.Errorf("entry draft failed revalidation: %s", res.Errors[0].Message)
	}

	profileID, entryID, err := co.drafts.Adopt(ctx, token, accountID)
	if err != nil {
		return MigrateOutcome{Status: statusFor(err)}, err
	}

	m.Clear()
	return MigrateOutcome{Status: MigrateSuccess, ProfileID: profileID, EntryID: entryID}, nil
}

func statusFor(err error) MigrateStatus {
	switch {
	case errors.Is(err, repository.ErrDraftCompleted):
		return MigrateAlreadyCompleted
	case errors.Is(err, repository.ErrDraftNotFound):
		return MigrateNotFound
	case errors.Is(err, repository.ErrDraftExpired):
		return MigrateExpired
	}
	return MigrateInternal
}
