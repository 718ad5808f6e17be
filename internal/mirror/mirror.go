// Package mirror implements the device-side copy of the onboarding
// draft: a namespaced key/value cache that gives the rendering layer
// instant reads and survives page reloads.  The mirror is never
// authoritative; on any divergence the server draft wins and the mirror
// is overwritten to match.
//
// Every operation is best effort.  When the backing store is absent or
// failing, writes report false and reads report misses; callers must
// tolerate a mirror that caches nothing at all.
package mirror

import "encoding/json"

// Store is the raw string key/value port the mirror writes through.
// Implementations must tolerate unavailability without panicking:
// Set returns false on failure, Get returns ("", false) on miss or
// failure, and Keys lists the stored keys beginning with the given
// prefix.
type Store interface {
	Set(key, value string) bool
	Get(key string) (string, bool)
	Delete(key string) bool
	Keys(prefix string) []string
}

// Well-known mirror slots.  The token slot holds the draft bearer
// token; the others hold JSON-encoded draft shapes and the step number.
const (
	KeyToken   = "token"
	KeyStep    = "step"
	KeyProfile = "profile"
	KeyEntry   = "entry"
)

// Mirror is a namespaced JSON cache over a Store.  The prefix is a
// constructor parameter so several flows (or tests) can share one
// store without colliding.
type Mirror struct {
	store  Store
	prefix string
}

// New returns a Mirror writing under the given prefix.  A nil store is
// allowed and turns every operation into a no-op.
func New(store Store, prefix string) *Mirror {
	return &Mirror{store: store, prefix: prefix}
}

func (m *Mirror) namespaced(key string) string { return m.prefix + ":" + key }

// Set serializes v as JSON and writes it under the namespaced key.
// Returns false when serialization or the underlying store fails.
func (m *Mirror) Set(key string, v any) bool {
	if m.store == nil {
		return false
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return m.store.Set(m.namespaced(key), string(raw))
}

// Get reads the namespaced key and unmarshals it into out.  A missing
// key, an unavailable store and a corrupt payload all report false;
// corruption is a cache miss, never an error.
func (m *Mirror) Get(key string, out any) bool {
	if m.store == nil {
		return false
	}
	raw, ok := m.store.Get(m.namespaced(key))
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false
	}
	return true
}

// Clear removes every key under this mirror's prefix.  Returns false
// when the store is unavailable or any delete fails.
func (m *Mirror) Clear() bool {
	if m.store == nil {
		return false
	}
	ok := true
	for _, k := range m.store.Keys(m.prefix + ":") {
		if !m.store.Delete(k) {
			ok = false
		}
	}
	return ok
}

// HasAny reports whether any key exists under this mirror's prefix.
func (m *Mirror) HasAny() bool {
	if m.store == nil {
		return false
	}
	return len(m.store.Keys(m.prefix+":")) > 0
}
