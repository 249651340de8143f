package bradley

import "github.com/rustmods/custombradley/pkg/host"

// ManagedSet is the insertion-ordered set of vehicles the controller owns.
// It holds handles only; liveness is the engine's business.
type ManagedSet struct {
	order []host.Handle
	index map[host.Handle]struct{}
}

// NewManagedSet creates an empty set.
func NewManagedSet() *ManagedSet {
	return &ManagedSet{index: make(map[host.Handle]struct{})}
}

// Add inserts h. It reports false if h is null or already present.
func (s *ManagedSet) Add(h host.Handle) bool {
	if h == (host.Handle{}) {
		return false
	}
	if _, ok := s.index[h]; ok {
		return false
	}
	s.index[h] = struct{}{}
	s.order = append(s.order, h)
	return true
}

// Remove deletes h. It reports false if h was not present.
func (s *ManagedSet) Remove(h host.Handle) bool {
	if _, ok := s.index[h]; !ok {
		return false
	}
	delete(s.index, h)
	for i, m := range s.order {
		if m == h {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *ManagedSet) Contains(h host.Handle) bool {
	_, ok := s.index[h]
	return ok
}

func (s *ManagedSet) Len() int {
	return len(s.order)
}

// Handles returns a copy of the members in insertion order.
func (s *ManagedSet) Handles() []host.Handle {
	out := make([]host.Handle, len(s.order))
	copy(out, s.order)
	return out
}

// Clear empties the set and returns what it held.
func (s *ManagedSet) Clear() []host.Handle {
	out := s.order
	s.order = nil
	s.index = make(map[host.Handle]struct{})
	return out
}
