// Package dedupe provides applicant-level deduplication for aggregation passes.
package dedupe

// Set records applicant IDs. The zero value is not usable; call NewSet.
// A Set belongs to a single aggregation pass and is not safe for concurrent
// writes.
type Set struct {
	seen map[string]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// SeenAndRecord reports whether id was already present and records it if not.
func (s *Set) SeenAndRecord(id string) bool {
	if _, ok := s.seen[id]; ok {
		return true
	}
	s.seen[id] = struct{}{}
	return false
}

// Add records id.
func (s *Set) Add(id string) {
	s.seen[id] = struct{}{}
}

// Contains reports whether id was recorded.
func (s *Set) Contains(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Size returns the number of distinct IDs.
func (s *Set) Size() int {
	return len(s.seen)
}

// UnionSize returns |s ∪ o| without materializing the union.
func (s *Set) UnionSize(o *Set) int {
	small, big := s, o
	if small.Size() > big.Size() {
		small, big = big, small
	}
	n := big.Size()
	for id := range small.seen {
		if !big.Contains(id) {
			n++
		}
	}
	return n
}

// Keyed holds one Set per key, created on first use.
type Keyed[K comparable] struct {
	sets map[K]*Set
}

// NewKeyed returns an empty keyed collection.
func NewKeyed[K comparable]() *Keyed[K] {
	return &Keyed[K]{sets: make(map[K]*Set)}
}

// SeenAndRecord records id under key, reporting whether it was already there.
func (k *Keyed[K]) SeenAndRecord(key K, id string) bool {
	s, ok := k.sets[key]
	if !ok {
		s = NewSet()
		k.sets[key] = s
	}
	return s.SeenAndRecord(id)
}

// Sizes returns the number of distinct IDs per key.
func (k *Keyed[K]) Sizes() map[K]int {
	out := make(map[K]int, len(k.sets))
	for key, s := range k.sets {
		out[key] = s.Size()
	}
	return out
}
