package nfp

import (
	"encoding/binary"
	"hash/fnv"
	"log/slog"
	"math"
	"sync"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/geometry"
)

// Signature derives a cache signature from a polygon's vertex sequence.
// Coordinates are quantized to 1e-6 so geometrically identical parts
// produced independently hash the same.
func Signature(p *geometry.Polygon) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	write := func(v float64) {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(math.Round(v*1e6))))
		h.Write(buf[:])
	}
	for _, pt := range p.Outer {
		write(pt.X)
		write(pt.Y)
	}
	for _, hole := range p.Holes {
		write(math.NaN()) // contour separator
		for _, pt := range hole {
			write(pt.X)
			write(pt.Y)
		}
	}
	return h.Sum64()
}

type rotKey struct {
	sig   uint64
	angle float64
}

// Calculator computes NFPs on demand, serving from the shared cache
// when possible. It also maintains the pre-rotated polygon cache so a
// rotation is applied once per (polygon, angle), not per NFP call.
type Calculator struct {
	cache  *Cache
	logger *slog.Logger

	mu      sync.RWMutex
	rotated map[rotKey]*geometry.Polygon
}

// NewCalculator wires a calculator to a cache. A nil logger falls back
// to slog.Default.
func NewCalculator(cache *Cache, logger *slog.Logger) *Calculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		cache:   cache,
		logger:  logger,
		rotated: make(map[rotKey]*geometry.Polygon),
	}
}

// Rotated returns the polygon rotated by angle degrees, cached per
// (signature, angle).
func (c *Calculator) Rotated(p *geometry.Polygon, sig uint64, angle float64) *geometry.Polygon {
	key := rotKey{sig, angle}
	c.mu.RLock()
	r, ok := c.rotated[key]
	c.mu.RUnlock()
	if ok {
		return r
	}
	r = p.Rotated(angle)
	c.mu.Lock()
	c.rotated[key] = r
	c.mu.Unlock()
	return r
}

// Clear empties both the NFP cache and the pre-rotated polygon cache.
// Clearing is never required for correctness, only for forcing
// recomputation.
func (c *Calculator) Clear() {
	c.cache.Clear()
	c.mu.Lock()
	c.rotated = make(map[rotKey]*geometry.Polygon)
	c.mu.Unlock()
}

// CacheSize returns the number of cached NFP entries.
func (c *Calculator) CacheSize() int { return c.cache.Len() }

// Outer returns the outer NFP of moving polygon b (at rotB) against
// stationary polygon a (at rotA), both in their local frames with
// reference points at the origin. The result must be translated by a's
// placed position before use.
func (c *Calculator) Outer(a *geometry.Polygon, sigA uint64, rotA float64, b *geometry.Polygon, sigB uint64, rotB float64) *Result {
	key := Key{SigA: sigA, SigB: sigB, RotA: rotA, RotB: rotB, Mode: ModeOuter}
	return c.cache.GetOrCompute(key, func() *Result {
		return c.computeOuter(c.Rotated(a, sigA, rotA), c.Rotated(b, sigB, rotB))
	})
}

// InnerFit returns the permitted reference-point rectangle for polygon
// b (at rot) inside a width x height container, eroded by margin on all
// sides. FitOK is false when b does not fit the container at all.
func (c *Calculator) InnerFit(width, height, margin float64, b *geometry.Polygon, sigB uint64, rot float64) *Result {
	key := Key{SigA: containerSig(width, height, margin), SigB: sigB, RotB: rot, Mode: ModeInner}
	return c.cache.GetOrCompute(key, func() *Result {
		bounds := c.Rotated(b, sigB, rot).BoundingBox()
		fit := geometry.Rect{
			Min: geometry.Point{X: margin - bounds.Min.X, Y: margin - bounds.Min.Y},
			Max: geometry.Point{X: width - margin - bounds.Max.X, Y: height - margin - bounds.Max.Y},
		}
		return &Result{Fit: fit, FitOK: !fit.Empty()}
	})
}

func containerSig(width, height, margin float64) uint64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range []float64{width, height, margin} {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// computeOuter builds the forbidden-region pieces as the Minkowski sum
// of a's exterior and the point reflection of b's exterior, via convex
// decomposition and pairwise convex sums. Holes of a that can admit b
// entirely are recorded as hole-fit regions.
func (c *Calculator) computeOuter(a, b *geometry.Polygon) *Result {
	reflected := make(geometry.Contour, len(b.Outer))
	for i, p := range b.Outer {
		reflected[i] = p.Neg()
	}

	pieces := minkowskiPieces(a.Outer, reflected)
	if pieces == nil {
		// Degenerate result for polygons that should have a valid fit:
		// retry once with a relaxed tolerance, then block the pairing
		// conservatively so no overlapping placement can be produced.
		pieces = minkowskiPieces(quantize(a.Outer, 1e-4), quantize(reflected, 1e-4))
		if pieces == nil {
			c.logger.Warn("degenerate NFP computation, blocking pairing",
				"stationaryVerts", len(a.Outer), "movingVerts", len(b.Outer))
			return &Result{Blocked: true}
		}
		c.logger.Warn("NFP computed with relaxed tolerance")
	}

	res := &Result{Pieces: pieces}
	bBounds := b.BoundingBox()
	for _, hole := range a.Holes {
		hb := hole.BoundingBox()
		if bBounds.Width() < hb.Width() && bBounds.Height() < hb.Height() &&
			b.Outer.Area() < hole.Area() {
			res.HoleFits = append(res.HoleFits, hole.Clone())
		}
	}
	return res
}

func minkowskiPieces(a, b geometry.Contour) []geometry.Contour {
	partsA := geometry.ConvexDecompose(a)
	partsB := geometry.ConvexDecompose(b)
	if len(partsA) == 0 || len(partsB) == 0 {
		return nil
	}
	var pieces []geometry.Contour
	for _, pa := range partsA {
		for _, pb := range partsB {
			sum := geometry.MinkowskiSumConvex(pa, pb)
			if len(sum) >= 3 && sum.Area() > geometry.Epsilon {
				pieces = append(pieces, sum)
			}
		}
	}
	return pieces
}

func quantize(c geometry.Contour, grid float64) geometry.Contour {
	out := make(geometry.Contour, 0, len(c))
	for _, p := range c {
		q := geometry.Point{
			X: math.Round(p.X/grid) * grid,
			Y: math.Round(p.Y/grid) * grid,
		}
		if len(out) > 0 && q == out[len(out)-1] {
			continue
		}
		out = append(out, q)
	}
	return out
}
