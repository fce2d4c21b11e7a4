package crdt

import "github.com/google/uuid"

// OrSet is an observed-remove set: every add is tagged with a fresh
// UUID; a remove deletes only the tags it has observed, so a
// concurrent add racing a remove is never lost.
type OrSet[T comparable] struct {
	tags map[T]map[uuid.UUID]struct{}
}

// NewOrSet returns an empty OR-set.
func NewOrSet[T comparable]() *OrSet[T] {
	return &OrSet[T]{tags: make(map[T]map[uuid.UUID]struct{})}
}

// Add inserts elem under a fresh tag and returns that tag, so the
// caller can propagate the exact (elem, tag) pair to replicas for a
// Merge, or hand it to RemoveObserved later.
func (s *OrSet[T]) Add(elem T) uuid.UUID {
	tag := uuid.New()
	set, ok := s.tags[elem]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		s.tags[elem] = set
	}
	set[tag] = struct{}{}
	return tag
}

// RemoveObserved deletes every tag currently associated with elem
// that this replica has observed (i.e. everything in its own map).
// Tags added concurrently on another replica and merged in later are
// unaffected, which is what makes this "observed remove" rather than
// a tombstone-based set.
func (s *OrSet[T]) RemoveObserved(elem T) {
	delete(s.tags, elem)
}

// Contains reports whether elem has at least one surviving tag.
func (s *OrSet[T]) Contains(elem T) bool {
	return len(s.tags[elem]) > 0
}

// Elements returns every element with at least one surviving tag.
func (s *OrSet[T]) Elements() []T {
	out := make([]T, 0, len(s.tags))
	for k, tags := range s.tags {
		if len(tags) > 0 {
			out = append(out, k)
		}
	}
	return out
}

// Merge returns the union of every (element, tag) pair known to s or
// other - a plain set union over tags, which is trivially
// commutative, associative, and idempotent.
func (s *OrSet[T]) Merge(other *OrSet[T]) *OrSet[T] {
	out := NewOrSet[T]()
	for _, src := range []*OrSet[T]{s, other} {
		for elem, tags := range src.tags {
			dst, ok := out.tags[elem]
			if !ok {
				dst = make(map[uuid.UUID]struct{}, len(tags))
				out.tags[elem] = dst
			}
			for tag := range tags {
				dst[tag] = struct{}{}
			}
		}
	}
	return out
}
