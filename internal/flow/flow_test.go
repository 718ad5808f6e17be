package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/s-411/tracker-onboarding/internal/model"
	"github.com/s-411/tracker-onboarding/internal/repository"
)

// fakeDrafts is an in-memory DraftStore with the same contract as the
// MySQL repository: bearer-token addressing, expiry and completion read
// as gone, a monotonic step counter, entry writes gated on a profile,
// and exactly-once adoption.
type fakeDrafts struct {
	seq     uint64
	drafts  map[string]*model.DraftSession
	adopted map[string]uint64 // token -> owning user
	failAll error             // when set, every call returns this
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{
		drafts:  make(map[string]*model.DraftSession),
		adopted: make(map[string]uint64),
	}
}

func (f *fakeDrafts) live(token string) (*model.DraftSession, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	d, ok := f.drafts[token]
	if !ok {
		return nil, repository.ErrDraftNotFound
	}
	if d.CompletedAt != nil {
		return nil, repository.ErrDraftCompleted
	}
	if !d.ExpiresAt.After(time.Now().UTC()) {
		return nil, repository.ErrDraftExpired
	}
	return d, nil
}

func (f *fakeDrafts) Create(ctx context.Context) (*model.DraftSession, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	f.seq++
	d := &model.DraftSession{
		ID:        f.seq,
		Token:     fmt.Sprintf("tok-%04d", f.seq),
		Step:      model.StepProfile,
		ExpiresAt: time.Now().UTC().Add(2 * time.Hour),
	}
	f.drafts[d.Token] = d
	copied := *d
	return &copied, nil
}

func (f *fakeDrafts) Get(ctx context.Context, token string) (*model.DraftSession, error) {
	d, err := f.live(token)
	if err != nil {
		return nil, err
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDrafts) SaveProfile(ctx context.Context, token string, p model.ProfileDraft) error {
	d, err := f.live(token)
	if err != nil {
		return err
	}
	d.Profile = &p
	if d.Step < model.StepEntry {
		d.Step = model.StepEntry
	}
	return nil
}

func (f *fakeDrafts) SaveEntry(ctx context.Context, token string, e model.EntryDraft) error {
	d, err := f.live(token)
	if err != nil {
		return err
	}
	if d.Profile == nil {
		return repository.ErrProfileMissing
	}
	d.Entry = &e
	if d.Step < model.StepAccount {
		d.Step = model.StepAccount
	}
	return nil
}

func (f *fakeDrafts) SetContactEmail(ctx context.Context, token, email string) error {
	d, err := f.live(token)
	if err != nil {
		return err
	}
	d.ContactEmail = &email
	return nil
}

func (f *fakeDrafts) UpdateStep(ctx context.Context, token string, step int) error {
	d, err := f.live(token)
	if err != nil {
		return err
	}
	if step > d.Step {
		d.Step = step
	}
	return nil
}

func (f *fakeDrafts) Adopt(ctx context.Context, token string, userID uint64) (uint64, uint64, error) {
	d, err := f.live(token)
	if err != nil {
		return 0, 0, err
	}
	if d.Profile == nil || d.Entry == nil {
		return 0, 0, repository.ErrProfileMissing
	}
	now := time.Now().UTC()
	d.CompletedAt = &now
	f.adopted[token] = userID
	return d.ID*10 + 1, d.ID*10 + 2, nil
}

// errBoom stands in for a transport failure that is not a gone draft.
var errBoom = errors.New("connection reset")
