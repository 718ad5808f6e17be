package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-411/tracker-onboarding/internal/model"
)

func validProfile() model.ProfileDraft {
	return model.ProfileDraft{Name: "Alex", Age: 30, Rating: 7.5}
}

func validEntry() model.EntryDraft {
	return model.EntryDraft{
		Date:            time.Now().UTC().Format("2006-01-02"),
		Amount:          decimal.RequireFromString("150.00"),
		DurationMinutes: 60,
		Nuts:            1,
	}
}

// fields collects the field names of all errors in a result.
func fields(r Result) []string {
	var out []string
	for _, e := range r.Errors {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateProfile(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.True(t, ValidateProfile(validProfile()).IsValid())
	})

	t.Run("optional fields never rejected", func(t *testing.T) {
		p := validProfile()
		empty := ""
		p.Ethnicity = &empty
		p.HairColor = nil
		p.Location = &empty
		assert.True(t, ValidateProfile(p).IsValid())
	})

	t.Run("blank name", func(t *testing.T) {
		p := validProfile()
		p.Name = "   "
		res := ValidateProfile(p)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "name", res.Errors[0].Field)
	})

	t.Run("age bounds inclusive", func(t *testing.T) {
		for _, age := range []int{18, 120} {
			p := validProfile()
			p.Age = age
			assert.True(t, ValidateProfile(p).IsValid(), "age %d", age)
		}
		for _, age := range []int{17, 121, 0, -1} {
			p := validProfile()
			p.Age = age
			assert.Contains(t, fields(ValidateProfile(p)), "age", "age %d", age)
		}
	})

	t.Run("rating bounds and half steps", func(t *testing.T) {
		for _, rating := range []float64{5.0, 5.5, 10.0} {
			p := validProfile()
			p.Rating = rating
			assert.True(t, ValidateProfile(p).IsValid(), "rating %v", rating)
		}
		for _, rating := range []float64{4.5, 10.5, 0} {
			p := validProfile()
			p.Rating = rating
			assert.Contains(t, fields(ValidateProfile(p)), "rating", "rating %v", rating)
		}
		p := validProfile()
		p.Rating = 7.3
		res := ValidateProfile(p)
		require.Len(t, res.Errors, 1)
		assert.Contains(t, res.Errors[0].Message, "0.5")
	})

	t.Run("all violations reported together", func(t *testing.T) {
		res := ValidateProfile(model.ProfileDraft{Name: "", Age: 10, Rating: 1})
		assert.ElementsMatch(t, []string{"name", "age", "rating"}, fields(res))
	})
}

func TestValidateEntry(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.True(t, ValidateEntry(validEntry()).IsValid())
	})

	t.Run("zero amount and zero count are valid", func(t *testing.T) {
		e := validEntry()
		e.Amount = decimal.Zero
		e.Nuts = 0
		e.DurationMinutes = 1
		assert.True(t, ValidateEntry(e).IsValid())
	})

	t.Run("negative amount is a single error", func(t *testing.T) {
		e := validEntry()
		e.Amount = decimal.RequireFromString("-1")
		res := ValidateEntry(e)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, "amount", res.Errors[0].Field)
	})

	t.Run("amount cap inclusive", func(t *testing.T) {
		e := validEntry()
		e.Amount = decimal.RequireFromString("999999.99")
		assert.True(t, ValidateEntry(e).IsValid())
		e.Amount = decimal.RequireFromString("1000000.00")
		assert.Contains(t, fields(ValidateEntry(e)), "amount")
	})

	t.Run("date shape and future date", func(t *testing.T) {
		e := validEntry()
		e.Date = "09/01/2026"
		assert.Contains(t, fields(ValidateEntry(e)), "date")

		e.Date = ""
		assert.Contains(t, fields(ValidateEntry(e)), "date")

		e.Date = time.Now().UTC().AddDate(0, 0, 1).Format("2006-01-02")
		assert.Contains(t, fields(ValidateEntry(e)), "date")

		// Today is the last acceptable date.
		e.Date = time.Now().UTC().Format("2006-01-02")
		assert.True(t, ValidateEntry(e).IsValid())
	})

	t.Run("duration window", func(t *testing.T) {
		for _, d := range []int{1, 1440} {
			e := validEntry()
			e.DurationMinutes = d
			assert.True(t, ValidateEntry(e).IsValid(), "duration %d", d)
		}
		for _, d := range []int{0, -5, 1441} {
			e := validEntry()
			e.DurationMinutes = d
			assert.Contains(t, fields(ValidateEntry(e)), "duration_minutes", "duration %d", d)
		}
	})

	t.Run("count window", func(t *testing.T) {
		e := validEntry()
		e.Nuts = 99
		assert.True(t, ValidateEntry(e).IsValid())
		e.Nuts = 100
		assert.Contains(t, fields(ValidateEntry(e)), "nuts")
		e.Nuts = -1
		assert.Contains(t, fields(ValidateEntry(e)), "nuts")
	})
}

func TestValidateEmail(t *testing.T) {
	assert.True(t, ValidateEmail("user@example.com").IsValid())
	assert.False(t, ValidateEmail("").IsValid())
	assert.False(t, ValidateEmail("no-at-sign").IsValid())
	assert.False(t, ValidateEmail("user@nodot").IsValid())
	assert.False(t, ValidateEmail("two@@example.com").IsValid())

	long := strings.Repeat("a", MaxEmailLen) + "@example.com"
	assert.False(t, ValidateEmail(long).IsValid())
}

func TestValidatePassword(t *testing.T) {
	assert.True(t, ValidatePassword("12345678").IsValid())
	assert.True(t, ValidatePassword(strings.Repeat("x", MaxPasswordLen)).IsValid())
	assert.False(t, ValidatePassword("short").IsValid())
	assert.False(t, ValidatePassword(strings.Repeat("x", MaxPasswordLen+1)).IsValid())
}
