// Package queue defines message payloads exchanged over the message broker.
package queue

// OnboardingCompletedEvent is published when a draft migration succeeds.
// It contains enough information for downstream consumers to log, notify,
// or trigger analytics without querying the primary database.  The draft
// token is deliberately absent: it is a credential and never leaves the
// draft subsystem, and the draft is consumed by the time this event
// exists anyway.
type OnboardingCompletedEvent struct {
    EventID     string `json:"event_id"` // uuid, deduplication key for consumers
    UserID      uint64 `json:"user_id"`
    ProfileID   uint64 `json:"profile_id"`
    EntryID     uint64 `json:"entry_id"`
    Email       string `json:"email"`
    CompletedAt string `json:"completed_at"` // RFC3339 UTC
}
