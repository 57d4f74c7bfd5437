package pixelbot

import (
	"math"
	"sync"
)

// Nearest returns the palette entry with the smallest Manhattan distance
// to c. Ties go to the entry that appears first in the palette. It
// returns c unchanged when the palette is empty.
func Nearest(c RGB, p Palette) RGB {
	if len(p) == 0 {
		return c
	}
	best := p[0]
	bestDist := ManhattanDistance(c, best)
	for _, candidate := range p[1:] {
		if d := ManhattanDistance(c, candidate); d < bestDist {
			best, bestDist = candidate, d
		}
	}
	return best
}

// Quantizer maps arbitrary colors onto a palette and memoizes the
// answers. Templates are small and repeat colors heavily, so the cache
// stays tiny. A Quantizer is safe for concurrent use.
type Quantizer struct {
	palette Palette
	method  ColorDistanceMethod

	mu     sync.RWMutex
	cache  map[RGB]RGB
	hits   int
	misses int
}

// NewQuantizer creates a quantizer for the palette. A nil method selects
// ManhattanMethod.
func NewQuantizer(p Palette, method ColorDistanceMethod) *Quantizer {
	if method == nil {
		method = ManhattanMethod{}
	}
	return &Quantizer{
		palette: p,
		method:  method,
		cache:   make(map[RGB]RGB),
	}
}

// Nearest returns the closest palette color, first occurrence on ties.
func (q *Quantizer) Nearest(c RGB) RGB {
	q.mu.RLock()
	if match, found := q.cache[c]; found {
		q.mu.RUnlock()
		q.mu.Lock()
		q.hits++
		q.mu.Unlock()
		return match
	}
	q.mu.RUnlock()

	var match RGB
	if _, ok := q.method.(ManhattanMethod); ok {
		// integer path; no float ties to worry about
		match = Nearest(c, q.palette)
	} else {
		match = q.nearestByMethod(c)
	}

	q.mu.Lock()
	q.misses++
	q.cache[c] = match
	q.mu.Unlock()
	return match
}

func (q *Quantizer) nearestByMethod(c RGB) RGB {
	if len(q.palette) == 0 {
		return c
	}
	best := q.palette[0]
	minDist := math.MaxFloat64
	for _, candidate := range q.palette {
		if d := q.method.Distance(c, candidate); d < minDist {
			best, minDist = candidate, d
		}
	}
	return best
}

// CacheStats returns cache hit/miss statistics.
func (q *Quantizer) CacheStats() (hits, misses int, hitRate float64) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	total := q.hits + q.misses
	if total == 0 {
		return 0, 0, 0
	}
	return q.hits, q.misses, float64(q.hits) / float64(total)
}
