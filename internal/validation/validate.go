// Package validation contains the pure rule checks applied to onboarding
// drafts before they touch storage.  Everything here is advisory fast
// feedback for the rendering layer; the database applies its own
// constraints independently during adoption.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/s-411/tracker-onboarding/internal/model"
)

// FieldError pairs a field name with a human-readable message.  The
// field names match the JSON names used by the draft shapes so the
// client can attach messages inline.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects the field errors produced by one validation pass.
type Result struct {
	Errors []FieldError `json:"errors"`
}

// IsValid reports whether the pass produced no errors.
func (r Result) IsValid() bool { return len(r.Errors) == 0 }

func (r *Result) add(field, message string) {
	r.Errors = append(r.Errors, FieldError{Field: field, Message: message})
}

// Bounds applied by the validators.  These mirror the column constraints
// of the permanent tables.
const (
	MinAge         = 18
	MaxAge         = 120
	MinRating      = 5.0
	MaxRating      = 10.0
	MaxDuration    = 1440 // minutes in a day
	MaxNuts        = 99
	MaxEmailLen    = 255
	MinPasswordLen = 8
	MaxPasswordLen = 72 // bcrypt input limit
)

// maxAmount is the largest accepted entry amount, inclusive.
var maxAmount = decimal.RequireFromString("999999.99")

// emailShape matches the minimal local@domain.tld form.  Deliberately
// loose; deliverability is the mail system's problem.
var emailShape = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateProfile checks every profile rule and returns all violations.
// Optional fields (ethnicity, hair color, location) are never rejected.
func ValidateProfile(p model.ProfileDraft) Result {
	var res Result
	if strings.TrimSpace(p.Name) == "" {
		res.add("name", "name is required")
	}
	if p.Age < MinAge || p.Age > MaxAge {
		res.add("age", fmt.Sprintf("age must be between %d and %d", MinAge, MaxAge))
	}
	if p.Rating < MinRating || p.Rating > MaxRating {
		res.add("rating", fmt.Sprintf("rating must be between %.1f and %.1f", MinRating, MaxRating))
	} else if halfSteps := p.Rating * 2; halfSteps != math.Trunc(halfSteps) {
		res.add("rating", "rating must be in 0.5 increments")
	}
	return res
}

// ValidateEntry checks every entry rule and returns all violations.
// The date must parse as YYYY-MM-DD and must not be after today in UTC.
func ValidateEntry(e model.EntryDraft) Result {
	var res Result
	if e.Date == "" {
		res.add("date", "date is required")
	} else if d, err := time.Parse("2006-01-02", e.Date); err != nil {
		res.add("date", "date must be in YYYY-MM-DD format")
	} else {
		today := time.Now().UTC().Truncate(24 * time.Hour)
		if d.After(today) {
			res.add("date", "date cannot be in the future")
		}
	}
	if e.Amount.IsNegative() {
		res.add("amount", "amount cannot be negative")
	} else if e.Amount.GreaterThan(maxAmount) {
		res.add("amount", "amount cannot exceed 999999.99")
	}
	if e.DurationMinutes <= 0 || e.DurationMinutes > MaxDuration {
		res.add("duration_minutes", fmt.Sprintf("duration must be between 1 and %d minutes", MaxDuration))
	}
	if e.Nuts < 0 || e.Nuts > MaxNuts {
		res.add("nuts", fmt.Sprintf("count must be between 0 and %d", MaxNuts))
	}
	return res
}

// ValidateEmail checks the account email against the minimal shape.
func ValidateEmail(email string) Result {
	var res Result
	email = strings.TrimSpace(email)
	if email == "" {
		res.add("email", "email is required")
		return res
	}
	if len(email) > MaxEmailLen {
		res.add("email", fmt.Sprintf("email cannot exceed %d characters", MaxEmailLen))
		return res
	}
	if !emailShape.MatchString(email) {
		res.add("email", "email is not valid")
	}
	return res
}

// ValidatePassword enforces the length window only.  Composition rules
// are intentionally absent.
func ValidatePassword(password string) Result {
	var res Result
	if len(password) < MinPasswordLen {
		res.add("password", fmt.Sprintf("password must be at least %d characters", MinPasswordLen))
	} else if len(password) > MaxPasswordLen {
		res.add("password", fmt.Sprintf("password cannot exceed %d characters", MaxPasswordLen))
	}
	return res
}
