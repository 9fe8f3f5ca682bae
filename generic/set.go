package generic

// Set is an unordered set of comparable items.
type Set[T comparable] map[T]struct{}

func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Contains returns true if every one of items is in the set.
func (s Set[T]) Contains(items ...T) bool {
	for _, item := range items {
		if _, found := s[item]; !found {
			return false
		}
	}
	return true
}

// OrderedSet remembers insertion order; re-adding an item does not move it.
type OrderedSet[T comparable] struct {
	seen  Set[T]
	items []T
}

func NewOrderedSet[T comparable](items ...T) *OrderedSet[T] {
	res := &OrderedSet[T]{}
	for _, item := range items {
		res.Add(item)
	}
	return res
}

// Add returns false if item was already present.
func (s *OrderedSet[T]) Add(item T) bool {
	if s.seen == nil {
		s.seen = make(Set[T])
	}
	if s.seen.Contains(item) {
		return false
	}
	s.seen[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

func (s *OrderedSet[T]) ToSlice() []T {
	slice := make([]T, len(s.items))
	copy(slice, s.items)
	return slice
}
