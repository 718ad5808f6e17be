package model

import "time"

// Profile represents a permanent profile record in the `profiles`
// table.  Profiles are created exclusively by the draft adoption
// transaction; identifiers are assigned by the database.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owning account.
//  Name      – display name.
//  Age       – age at onboarding time.
//  Rating    – self rating, 5.0..10.0.
//  Ethnicity – optional.
//  HairColor – optional.
//  Location  – optional.
//  CreatedAt – timestamp of creation.
type Profile struct {
	ID        uint64    // profiles.id
	UserID    uint64    // profiles.user_id
	Name      string    // profiles.name
	Age       int       // profiles.age
	Rating    float64   // profiles.rating
	Ethnicity *string   // profiles.ethnicity (nullable)
	HairColor *string   // profiles.hair_color (nullable)
	Location  *string   // profiles.location (nullable)
	CreatedAt time.Time // profiles.created_at
}

// Entry represents a permanent activity entry in the `entries` table.
// The first entry of every account comes from draft adoption; later
// entries are written by the authenticated application, which is out
// of this service's scope.  Amounts are stored as integer cents.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – owning account.
//  Date            – calendar date of the activity (YYYY-MM-DD).
//  AmountCents     – spend amount in cents.
//  DurationMinutes – 1..1440.
//  Nuts            – 0..99.
//  CreatedAt       – timestamp of creation.
type Entry struct {
	ID              uint64    // entries.id
	UserID          uint64    // entries.user_id
	Date            string    // entries.entry_date
	AmountCents     uint32    // entries.amount_cents
	DurationMinutes int       // entries.duration_minutes
	Nuts            int       // entries.nuts
	CreatedAt       time.Time // entries.created_at
}
