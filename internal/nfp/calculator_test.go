package nfp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/geometry"
)

// centeredRect builds a w x h rectangle with its centroid at the origin.
func centeredRect(w, h float64) *geometry.Polygon {
	return &geometry.Polygon{Outer: geometry.Contour{
		{X: -w / 2, Y: -h / 2},
		{X: w / 2, Y: -h / 2},
		{X: w / 2, Y: h / 2},
		{X: -w / 2, Y: h / 2},
	}}
}

func insidePieces(res *Result, p geometry.Point) bool {
	for _, piece := range res.Pieces {
		if piece.ContainsPoint(p) {
			return true
		}
	}
	return false
}

func TestSignature_EqualForIdenticalGeometry(t *testing.T) {
	a := centeredRect(100, 50)
	b := centeredRect(100, 50)
	assert.Equal(t, Signature(a), Signature(b))

	c := centeredRect(100, 60)
	assert.NotEqual(t, Signature(a), Signature(c))
}

func TestSignature_HolesChangeSignature(t *testing.T) {
	plain := centeredRect(100, 50)
	holed := centeredRect(100, 50)
	hole := geometry.Contour{{X: -5, Y: -5}, {X: -5, Y: 5}, {X: 5, Y: 5}, {X: 5, Y: -5}}
	holed.Holes = append(holed.Holes, hole)
	assert.NotEqual(t, Signature(plain), Signature(holed))
}

func TestCalculator_Rotated_Cached(t *testing.T) {
	calc := NewCalculator(NewCache(), nil)
	p := centeredRect(100, 50)
	sig := Signature(p)

	r1 := calc.Rotated(p, sig, 90)
	r2 := calc.Rotated(p, sig, 90)
	assert.Same(t, r1, r2, "same rotation served from cache")

	bb := r1.BoundingBox()
	assert.InDelta(t, 50.0, bb.Width(), 1e-9, "90 degree rotation swaps the extents")
	assert.InDelta(t, 100.0, bb.Height(), 1e-9)
}

func TestOuter_RectanglePair(t *testing.T) {
	calc := NewCalculator(NewCache(), nil)
	a := centeredRect(100, 50)
	b := centeredRect(100, 50)
	sigA, sigB := Signature(a), Signature(b)

	res := calc.Outer(a, sigA, 0, b, sigB, 0)
	require.False(t, res.Blocked)
	require.NotEmpty(t, res.Pieces)

	// The forbidden region of two w x h rectangles is a 2w x 2h
	// rectangle centered at the stationary part's reference point.
	assert.True(t, insidePieces(res, geometry.Point{X: 0, Y: 0}))
	assert.True(t, insidePieces(res, geometry.Point{X: 90, Y: 0}))
	assert.True(t, insidePieces(res, geometry.Point{X: 0, Y: 45}))
	assert.False(t, insidePieces(res, geometry.Point{X: 110, Y: 0}))
	assert.False(t, insidePieces(res, geometry.Point{X: 0, Y: 60}))
	assert.False(t, insidePieces(res, geometry.Point{X: 105, Y: 55}))
}

func TestOuter_MatchesOverlapPredicate(t *testing.T) {
	calc := NewCalculator(NewCache(), nil)
	a := centeredRect(80, 40)
	b := centeredRect(30, 20)
	sigA, sigB := Signature(a), Signature(b)

	res := calc.Outer(a, sigA, 0, b, sigB, 0)
	require.False(t, res.Blocked)

	// Sample positions: inside any NFP piece iff the moved polygon
	// overlaps the stationary one. Skip near-boundary samples where
	// both answers are legitimately tolerance-dependent.
	for _, pos := range []geometry.Point{
		{X: 0, Y: 0}, {X: 40, Y: 0}, {X: 70, Y: 0}, {X: 0, Y: 40},
		{X: 50, Y: 25}, {X: 60, Y: 40}, {X: -70, Y: -10}, {X: 20, Y: 10},
	} {
		moved := b.Translated(pos.X, pos.Y)
		overlaps := geometry.Overlaps(a, moved)
		assert.Equal(t, overlaps, insidePieces(res, pos),
			"NFP and exact overlap disagree at %+v", pos)
	}
}

func TestOuter_HoleFitRecorded(t *testing.T) {
	calc := NewCalculator(NewCache(), nil)
	host := centeredRect(100, 100)
	hole := geometry.Contour{{X: -30, Y: -30}, {X: -30, Y: 30}, {X: 30, Y: 30}, {X: 30, Y: -30}}
	host.Holes = append(host.Holes, hole)

	small := centeredRect(20, 20)
	res := calc.Outer(host, Signature(host), 0, small, Signature(small), 0)
	require.Len(t, res.HoleFits, 1, "hole large enough for the small part")

	big := centeredRect(70, 70)
	res = calc.Outer(host, Signature(host), 0, big, Signature(big), 0)
	assert.Empty(t, res.HoleFits, "part larger than the hole")
}

func TestInnerFit_Rectangle(t *testing.T) {
	calc := NewCalculator(NewCache(), nil)
	b := centeredRect(100, 50)
	sig := Signature(b)

	res := calc.InnerFit(200, 200, 5, b, sig, 0)
	require.True(t, res.FitOK)
	assert.InDelta(t, 55.0, res.Fit.Min.X, 1e-9)
	assert.InDelta(t, 145.0, res.Fit.Max.X, 1e-9)
	assert.InDelta(t, 30.0, res.Fit.Min.Y, 1e-9)
	assert.InDelta(t, 170.0, res.Fit.Max.Y, 1e-9)
}

func TestInnerFit_TooLarge(t *testing.T) {
	calc := NewCalculator(NewCache(), nil)
	b := centeredRect(300, 300)
	res := calc.InnerFit(200, 200, 5, b, Signature(b), 0)
	assert.False(t, res.FitOK)
}

func TestInnerFit_ExactFitWithoutMargin(t *testing.T) {
	calc := NewCalculator(NewCache(), nil)
	b := centeredRect(200, 100)
	res := calc.InnerFit(200, 100, 0, b, Signature(b), 0)
	require.True(t, res.FitOK, "an exact fit leaves a single admissible position")
	assert.InDelta(t, res.Fit.Min.X, res.Fit.Max.X, 1e-9)
}

func TestCalculator_CacheTransparency(t *testing.T) {
	cache := NewCache()
	calc := NewCalculator(cache, nil)
	a := centeredRect(100, 50)
	b := centeredRect(60, 30)
	sigA, sigB := Signature(a), Signature(b)

	cold := calc.Outer(a, sigA, 0, b, sigB, 0)
	require.Equal(t, 1, cache.Len())

	warm := calc.Outer(a, sigA, 0, b, sigB, 0)
	assert.Same(t, cold, warm, "warm lookup serves the cached value")

	calc.Clear()
	assert.Equal(t, 0, cache.Len())

	recomputed := calc.Outer(a, sigA, 0, b, sigB, 0)
	require.Equal(t, len(cold.Pieces), len(recomputed.Pieces))
	for _, pos := range []geometry.Point{{X: 0, Y: 0}, {X: 75, Y: 0}, {X: 85, Y: 0}, {X: 0, Y: 45}} {
		assert.Equal(t, insidePieces(cold, pos), insidePieces(recomputed, pos),
			"cold and recomputed NFPs agree at %+v", pos)
	}
}

func TestCalculator_DistinctRotationsDistinctEntries(t *testing.T) {
	cache := NewCache()
	calc := NewCalculator(cache, nil)
	a := centeredRect(100, 50)
	b := centeredRect(60, 30)
	sigA, sigB := Signature(a), Signature(b)

	calc.Outer(a, sigA, 0, b, sigB, 0)
	calc.Outer(a, sigA, 0, b, sigB, 90)
	assert.Equal(t, 2, cache.Len())
}
