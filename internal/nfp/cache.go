// Package nfp computes and caches no-fit polygons: the forbidden (or,
// for containers, permitted) reference-point regions of a moving
// polygon relative to a stationary one, derived from Minkowski sums.
package nfp

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/geometry"
)

// Mode selects which fit relation a cache entry describes.
type Mode uint8

const (
	// ModeOuter: forbidden positions of the moving polygon's reference
	// point relative to a stationary polygon.
	ModeOuter Mode = iota
	// ModeInner: permitted positions of the reference point such that
	// the moving polygon stays inside a container boundary.
	ModeInner
)

// Key identifies one NFP result. Geometrically identical polygons share
// a signature, so their NFPs are reused across part instances.
type Key struct {
	SigA, SigB uint64
	RotA, RotB float64
	Mode       Mode
}

func (k Key) String() string {
	return fmt.Sprintf("%x:%x:%g:%g:%d", k.SigA, k.SigB, k.RotA, k.RotB, k.Mode)
}

// Result is one cached NFP value.
type Result struct {
	// Pieces are convex contours whose union is the forbidden region
	// for the moving polygon's reference point (ModeOuter). A point is
	// forbidden iff it lies strictly inside any piece.
	Pieces []geometry.Contour
	// HoleFits are the stationary polygon's holes (at the stationary
	// rotation) large enough to admit the moving polygon entirely.
	HoleFits []geometry.Contour
	// Blocked marks a conservative full-plane block after a degenerate
	// Minkowski computation: no position near this polygon is allowed.
	Blocked bool

	// Fit is the permitted reference-point rectangle for ModeInner
	// entries; FitOK is false when the moving polygon cannot fit the
	// container at all.
	Fit   geometry.Rect
	FitOK bool
}

// Cache maps NFP keys to results. It is append-only during a run except
// for Clear, and safe for concurrent use: concurrent misses for the
// same key are collapsed so only one computation proceeds and all
// callers observe the same value.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]*Result
	group   singleflight.Group
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Key]*Result)}
}

// Get returns the cached result for key, if present.
func (c *Cache) Get(key Key) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[key]
	return r, ok
}

// GetOrCompute returns the cached result for key, computing and storing
// it on a miss. The compute function runs at most once per key at a
// time across goroutines.
func (c *Cache) GetOrCompute(key Key, compute func() *Result) *Result {
	if r, ok := c.Get(key); ok {
		return r
	}
	v, _, _ := c.group.Do(key.String(), func() (any, error) {
		if r, ok := c.Get(key); ok {
			return r, nil
		}
		r := compute()
		c.mu.Lock()
		c.entries[key] = r
		c.mu.Unlock()
		return r, nil
	})
	return v.(*Result)
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear empties the cache. Subsequent lookups recompute from scratch.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[Key]*Result)
}
