package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Onboarding step numbers as stored in draft_sessions.step.  The step
// counter only moves forward under normal operation; see the flow
// package for the routing rules built on top of it.
const (
	StepProfile = 1 // collecting profile fields
	StepEntry   = 2 // collecting the first activity entry
	StepAccount = 3 // email/password account creation
	StepPlan    = 4 // plan selection for the new account
)

// ProfileDraft holds the profile fields a visitor fills in before an
// account exists.  Optional fields are pointers so that "not provided"
// survives the JSON round trip through the draft store and the mirror.
//
// Fields:
//  Name      – display name, required.
//  Age       – must be within [18,120].
//  Rating    – self rating within [5.0,10.0] in 0.5 increments.
//  Ethnicity – optional.
//  HairColor – optional.
//  Location  – optional free-form city/region.
type ProfileDraft struct {
	Name      string  `json:"name"`
	Age       int     `json:"age"`
	Rating    float64 `json:"rating"`
	Ethnicity *string `json:"ethnicity,omitempty"`
	HairColor *string `json:"hair_color,omitempty"`
	Location  *string `json:"location,omitempty"`
}

// EntryDraft holds the first activity entry collected during onboarding.
// Amount is a decimal so the API accepts values like "150.00" without
// floating point surprises; it is converted to cents at adoption time.
//
// Fields:
//  Date            – calendar date in YYYY-MM-DD form, not in the future.
//  Amount          – spend amount, >= 0 and <= 999999.99.
//  DurationMinutes – within (0,1440].
//  Nuts            – non-negative count, <= 99.
type EntryDraft struct {
	Date            string          `json:"date"`
	Amount          decimal.Decimal `json:"amount"`
	DurationMinutes int             `json:"duration_minutes"`
	Nuts            int             `json:"nuts"`
}

// DraftSession represents a row in the `draft_sessions` table: the
// ephemeral server-side record backing one pre-authentication onboarding
// flow.  The Token column is the sole credential for the draft and is
// never written to logs.  A session with CompletedAt set has been
// adopted into permanent records and must be treated as not found by
// every read path even though the row is retained for audit.
//
// Fields:
//  ID           – primary key identifier.
//  Token        – opaque bearer token (64 hex chars).
//  Step         – current step, 1..4, monotonically advanced.
//  Profile      – profile draft, nil until step 1 is submitted.
//  Entry        – entry draft, nil until step 2 is submitted.
//  ContactEmail – set once the account step is reached.
//  ExpiresAt    – TTL horizon; expired sessions read as expired.
//  CompletedAt  – set exactly once by the migration, never cleared.
//  CreatedAt    – when the session was created.
//  UpdatedAt    – when the session was last written.
type DraftSession struct {
	ID           uint64        `json:"-"`
	Token        string        `json:"-"`
	Step         int           `json:"step"`
	Profile      *ProfileDraft `json:"profile,omitempty"`
	Entry        *EntryDraft   `json:"entry,omitempty"`
	ContactEmail *string       `json:"contact_email,omitempty"`
	ExpiresAt    time.Time     `json:"expires_at"`
	CompletedAt  *time.Time    `json:"-"`
	CreatedAt    time.Time     `json:"-"`
	UpdatedAt    time.Time     `json:"-"`
}
