package flow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/s-411/tracker-onboarding/internal/mirror"
	"github.com/s-411/tracker-onboarding/internal/model"
	"github.com/s-411/tracker-onboarding/internal/repository"
	"github.com/s-411/tracker-onboarding/internal/validation"
)

// DraftStore is the draft persistence boundary the flow drives: a keyed
// record store addressed by bearer token with a server-enforced TTL and
// a monotonic step counter.  repository.DraftRepo is the production
// implementation; tests substitute an in-memory fake.
type DraftStore interface {
	Create(ctx context.Context) (*model.DraftSession, error)
	Get(ctx context.Context, token string) (*model.DraftSession, error)
	SaveProfile(ctx context.Context, token string, p model.ProfileDraft) error
	SaveEntry(ctx context.Context, token string, e model.EntryDraft) error
	SetContactEmail(ctx context.Context, token, email string) error
	UpdateStep(ctx context.Context, token string, step int) error
	Adopt(ctx context.Context, token string, userID uint64) (uint64, uint64, error)
}

// ErrRestart signals that the draft behind the presented token is gone
// (expired, consumed or never existed) and the visitor must be taken
// back to the first step with a fresh session.  The controller has
// already cleared the mirror when this is returned.
var ErrRestart = errors.New("onboarding must restart")

// Controller orchestrates step submissions: validate, write the mirror
// optimistically, then persist to the draft store.  The server draft is
// authoritative; the mirror only exists for instant reads and reload
// survival.
type Controller struct {
	drafts DraftStore
}

// NewController returns a Controller over the given draft store.
func NewController(drafts DraftStore) *Controller {
	return &Controller{drafts: drafts}
}

// StartSession allocates a fresh draft session and seeds the mirror
// with its token and step.
func (c *Controller) StartSession(ctx context.Context, m *mirror.Mirror) (*model.DraftSession, error) {
	d, err := c.drafts.Create(ctx)
	if err != nil {
		return nil, err
	}
	m.Set(mirror.KeyToken, d.Token)
	m.Set(mirror.KeyStep, d.Step)
	return d, nil
}

// SyncFromServer fetches the server draft and resolves the two-tier
// precedence in one place: every mirrored field is overwritten with the
// server copy, so any divergence from a reload that raced a pending
// write disappears here.  When the draft is gone the mirror is cleared
// and the store's sentinel is passed through.
func (c *Controller) SyncFromServer(ctx context.Context, m *mirror.Mirror, token string) (*model.DraftSession, error) {
	d, err := c.drafts.Get(ctx, token)
	if err != nil {
		if isDraftGone(err) {
			m.Clear()
		}
		return nil, err
	}
	m.Set(mirror.KeyToken, token)
	m.Set(mirror.KeyStep, d.Step)
	if d.Profile != nil {
		m.Set(mirror.KeyProfile, d.Profile)
	}
	if d.Entry != nil {
		m.Set(mirror.KeyEntry, d.Entry)
	}
	return d, nil
}

// Route decides which step the visitor lands on.  Inputs are read from
// the mirror first; when the mirror has a token but no draft shapes the
// server is consulted once via SyncFromServer.  Any failure to gather
// inputs degrades to the zero RouteInputs, which fails open to the
// profile step — a visitor is never blocked by a broken routing read.
func (c *Controller) Route(ctx context.Context, m *mirror.Mirror, authenticated bool) Route {
	in := RouteInputs{Authenticated: authenticated}
	if authenticated {
		return DecideRoute(in)
	}

	var profile model.ProfileDraft
	var entry model.EntryDraft
	in.HasProfile = m.Get(mirror.KeyProfile, &profile)
	in.HasEntry = m.Get(mirror.KeyEntry, &entry)
	m.Get(mirror.KeyStep, &in.Step)

	// Mirror empty but a token slot survives: the mirror may lag a
	// write that was in flight during reload, so defer to the server.
	var token string
	if !in.HasProfile && m.Get(mirror.KeyToken, &token) && token != "" {
		if d, err := c.SyncFromServer(ctx, m, token); err == nil {
			in.HasProfile = d.Profile != nil
			in.HasEntry = d.Entry != nil
			in.Step = d.Step
		}
	}

	r := DecideRoute(in)
	if !in.Authenticated && in.HasProfile && in.HasEntry && in.Step >= model.StepPlan {
		// Inconsistent leftover state; the reset discards a seemingly
		// valid draft, so make it observable.
		log.Printf("flow: step counter %d with no completed migration, resetting to profile step", in.Step)
	}
	return r
}

// SubmitProfile validates the profile draft, mirrors it, then persists
// it.  An invalid draft is returned without touching storage.  A
// transport failure leaves the mirror populated so a retry does not
// lose the visitor's input; a dead draft clears the mirror and returns
// ErrRestart.
func (c *Controller) SubmitProfile(ctx context.Context, m *mirror.Mirror, token string, p model.ProfileDraft) (validation.Result, error) {
	res := validation.ValidateProfile(p)
	if !res.IsValid() {
		return res, nil
	}
	m.Set(mirror.KeyProfile, p)
	if err := c.drafts.SaveProfile(ctx, token, p); err != nil {
		return res, c.classify(m, err)
	}
	m.Set(mirror.KeyStep, model.StepEntry)
	return res, nil
}

// SubmitEntry is the step 2 counterpart of SubmitProfile.
func (c *Controller) SubmitEntry(ctx context.Context, m *mirror.Mirror, token string, e model.EntryDraft) (validation.Result, error) {
	res := validation.ValidateEntry(e)
	if !res.IsValid() {
		return res, nil
	}
	m.Set(mirror.KeyEntry, e)
	if err := c.drafts.SaveEntry(ctx, token, e); err != nil {
		return res, c.classify(m, err)
	}
	m.Set(mirror.KeyStep, model.StepAccount)
	return res, nil
}

// RecordContactEmail stores the account email on the draft before the
// account is created, so the support path can reach the visitor when a
// migration fails after account creation.
func (c *Controller) RecordContactEmail(ctx context.Context, m *mirror.Mirror, token, email string) error {
	if err := c.drafts.SetContactEmail(ctx, token, email); err != nil {
		return c.classify(m, err)
	}
	return nil
}

// AdvanceStep explicitly moves the step counter forward, mirroring the
// new value.  Used after account creation to reach the plan step; the
// store keeps the counter monotonic regardless of what is passed.
func (c *Controller) AdvanceStep(ctx context.Context, m *mirror.Mirror, token string, step int) error {
	if step < model.StepProfile || step > model.StepPlan {
		return fmt.Errorf("step %d out of range", step)
	}
	if err := c.drafts.UpdateStep(ctx, token, step); err != nil {
		return c.classify(m, err)
	}
	m.Set(mirror.KeyStep, step)
	return nil
}

// classify converts store errors into the controller's contract: dead
// drafts clear the mirror and become ErrRestart, everything else is a
// retryable transport failure passed through untouched.
func (c *Controller) classify(m *mirror.Mirror, err error) error {
	if isDraftGone(err) || errors.Is(err, repository.ErrProfileMissing) {
		m.Clear()
		return ErrRestart
	}
	return err
}

func isDraftGone(err error) bool {
	return errors.Is(err, repository.ErrDraftNotFound) ||
		errors.Is(err, repository.ErrDraftExpired) ||
		errors.Is(err, repository.ErrDraftCompleted)
}
