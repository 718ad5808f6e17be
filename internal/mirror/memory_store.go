package mirror

import (
	"strings"
	"sync"
)

// MemoryStore is an in-process Store used in tests and in single-node
// deployments where no Redis is configured.  It is safe for concurrent
// use.  Setting Unavailable simulates quota-exceeded or disabled
// device storage: every operation fails without touching state.
type MemoryStore struct {
	mu          sync.RWMutex
	data        map[string]string
	Unavailable bool
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Set(key, value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return false
	}
	s.data[key] = value
	return true
}

func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Unavailable {
		return "", false
	}
	v, ok := s.data[key]
	return v, ok
}

func (s *MemoryStore) Delete(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return false
	}
	delete(s.data, key)
	return true
}

func (s *MemoryStore) Keys(prefix string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Unavailable {
		return nil
	}
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}
