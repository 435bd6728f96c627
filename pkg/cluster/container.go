package cluster

import "sort"

// Map is an immutable, persistent-style container keyed by integer index.
// Every mutating operation returns a new Map; the receiver is left
// untouched. This is the opaque container described for node/instance
// snapshots: callers never observe aliasing between a snapshot and the
// result of a "modification".
type Map[T any] struct {
	items map[int]T
}

// NewMap builds an empty container.
func NewMap[T any]() Map[T] {
	return Map[T]{items: map[int]T{}}
}

// MapOf builds a container from a set of (idx, value) pairs.
func MapOf[T any](pairs map[int]T) Map[T] {
	items := make(map[int]T, len(pairs))
	for k, v := range pairs {
		items[k] = v
	}
	return Map[T]{items: items}
}

// Find looks up idx.
func (c Map[T]) Find(idx int) (T, bool) {
	v, ok := c.items[idx]
	return v, ok
}

// MustFind looks up idx, panicking if absent. Used where invariant 6 of the
// data model (all container lookups for primary/secondary indices succeed)
// guarantees presence; a miss here is a programmer error, not user input.
func (c Map[T]) MustFind(idx int) T {
	v, ok := c.items[idx]
	if !ok {
		panic("cluster: index not present in container")
	}
	return v
}

// Add returns a new container with idx set to v.
func (c Map[T]) Add(idx int, v T) Map[T] {
	out := c.copy()
	out.items[idx] = v
	return out
}

// AddTwo atomically replaces two entries at once, used by moves that touch
// both the origin and destination node in a single logical step.
func (c Map[T]) AddTwo(idx1 int, v1 T, idx2 int, v2 T) Map[T] {
	out := c.copy()
	out.items[idx1] = v1
	out.items[idx2] = v2
	return out
}

// Remove returns a new container without idx.
func (c Map[T]) Remove(idx int) Map[T] {
	out := c.copy()
	delete(out.items, idx)
	return out
}

// Elems returns all values, ordered by ascending key for determinism.
func (c Map[T]) Elems() []T {
	keys := c.Keys()
	out := make([]T, len(keys))
	for i, k := range keys {
		out[i] = c.items[k]
	}
	return out
}

// Keys returns all keys in ascending order.
func (c Map[T]) Keys() []int {
	keys := make([]int, 0, len(c.items))
	for k := range c.items {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Filter returns a new container holding only entries for which pred holds.
func (c Map[T]) Filter(pred func(T) bool) Map[T] {
	out := NewMap[T]()
	for k, v := range c.items {
		if pred(v) {
			out.items[k] = v
		}
	}
	return out
}

// Size returns the number of entries.
func (c Map[T]) Size() int {
	return len(c.items)
}

func (c Map[T]) copy() Map[T] {
	out := make(map[int]T, len(c.items)+1)
	for k, v := range c.items {
		out[k] = v
	}
	return Map[T]{items: out}
}

// Named is implemented by container element types that carry a display name,
// letting NameOf stay generic over both Node and Instance containers.
type Named interface {
	GetName() string
}

// NameOf returns the display name for idx, or "" if absent — callers at the
// opcode-emission boundary treat an empty name as a fatal invariant
// violation per spec.
func NameOf[T Named](c Map[T], idx int) string {
	v, ok := c.Find(idx)
	if !ok {
		var zero T
		_ = zero
		return ""
	}
	return v.GetName()
}
