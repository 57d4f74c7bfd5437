package pixelbot

import "sync"

// OrderedMap is a map that remembers the order keys were first set.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
	mu     sync.RWMutex
}

// NewOrderedMap creates a new OrderedMap
func NewOrderedMap[K comparable, V any]() *OrderedMap[K, V] {
	return &OrderedMap[K, V]{
		keys:   make([]K, 0),
		values: make(map[K]V),
	}
}

// Update replaces the value for key with fn(old), inserting the key at
// the end if it is new.
func (om *OrderedMap[K, V]) Update(key K, fn func(V) V) {
	om.mu.Lock()
	defer om.mu.Unlock()

	old, exists := om.values[key]
	if !exists {
		om.keys = append(om.keys, key)
	}
	om.values[key] = fn(old)
}

// Iterate calls the provided function for each key-value pair in order
func (om *OrderedMap[K, V]) Iterate(f func(key K, value V)) {
	om.mu.RLock()
	defer om.mu.RUnlock()

	for _, k := range om.keys {
		f(k, om.values[k])
	}
}

// Len returns the number of elements in the map
func (om *OrderedMap[K, V]) Len() int {
	om.mu.RLock()
	defer om.mu.RUnlock()

	return len(om.keys)
}

// ColorCount is one histogram bucket.
type ColorCount struct {
	Color   RGB
	Count   int
	Percent float64
}

// Histogram counts colors in first-seen order.
func Histogram(colors []RGB) []ColorCount {
	counts := NewOrderedMap[RGB, int]()
	for _, c := range colors {
		counts.Update(c, func(n int) int { return n + 1 })
	}

	out := make([]ColorCount, 0, counts.Len())
	counts.Iterate(func(c RGB, n int) {
		out = append(out, ColorCount{
			Color:   c,
			Count:   n,
			Percent: 100 * float64(n) / float64(len(colors)),
		})
	})
	return out
}
