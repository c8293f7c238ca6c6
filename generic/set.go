package generic

// Set is an unordered collection of distinct values. Like a map, the zero value is nil and must be made with NewSet.
type Set[T comparable] map[T]struct{}

func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, item := range items {
		s[item] = struct{}{}
	}
	return s
}

// Add inserts item, reporting whether it was not already present.
func (s Set[T]) Add(item T) bool {
	if s.Contains(item) {
		return false
	}
	s[item] = struct{}{}
	return true
}

// Remove deletes item, reporting whether it was present.
func (s Set[T]) Remove(item T) bool {
	if !s.Contains(item) {
		return false
	}
	delete(s, item)
	return true
}

func (s Set[T]) Contains(item T) bool {
	_, found := s[item]
	return found
}

func (s Set[T]) Len() int {
	return len(s)
}

func (s Set[T]) Clear() {
	clear(s)
}

// Items returns the members in no particular order.
func (s Set[T]) Items() []T {
	items := make([]T, 0, len(s))
	for item := range s {
		items = append(items, item)
	}
	return items
}
