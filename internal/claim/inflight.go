package claim

import (
	"fmt"
	"sync"
)

// inflightSet guards one in-flight claim per (owner, chain).
type inflightSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func inflightKey(owner string, chainID uint64) string {
	return fmt.Sprintf("%s:%d", owner, chainID)
}

// acquire reserves the key, returning false if a claim is already in
// flight for it.
func (s *inflightSet) acquire(owner string, chainID uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys == nil {
		s.keys = make(map[string]struct{})
	}

	key := inflightKey(owner, chainID)
	if _, exists := s.keys[key]; exists {
		return false
	}
	s.keys[key] = struct{}{}
	return true
}

func (s *inflightSet) release(owner string, chainID uint64) {
	s.mu.Lock()
	delete(s.keys, inflightKey(owner, chainID))
	s.mu.Unlock()
}
