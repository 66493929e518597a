package supply

import "sync"

// UsedSet tracks question identifiers handed out during the current run so
// the next generation request can avoid repeats. It grows monotonically
// until Reset (the "fresh assessment" action) or EvictOldestHalf (recycling
// when the fallback pool runs short).
type UsedSet struct {
	mu     sync.Mutex
	order  []string
	member map[string]bool
}

// NewUsedSet creates an empty set.
func NewUsedSet() *UsedSet {
	return &UsedSet{member: make(map[string]bool)}
}

// Add records identifiers, preserving first-seen order.
func (s *UsedSet) Add(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if id == "" || s.member[id] {
			continue
		}
		s.member[id] = true
		s.order = append(s.order, id)
	}
}

// Contains reports whether an identifier has been handed out.
func (s *UsedSet) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.member[id]
}

// IDs returns a snapshot of the identifiers in first-seen order.
func (s *UsedSet) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of tracked identifiers.
func (s *UsedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Reset clears the set.
func (s *UsedSet) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = nil
	s.member = make(map[string]bool)
}

// EvictOldestHalf drops the oldest half of the set (rounding up), freeing
// identifiers for reuse when the fallback pool cannot otherwise satisfy a
// request.
func (s *UsedSet) EvictOldestHalf() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return
	}
	cut := (len(s.order) + 1) / 2
	for _, id := range s.order[:cut] {
		delete(s.member, id)
	}
	s.order = append([]string(nil), s.order[cut:]...)
}
