package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatten_StraightSegmentsPassThrough(t *testing.T) {
	raw := LinearContour([]Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}})
	flat := raw.Flatten(5)
	assert.Equal(t, square(0, 0, 4), flat)
}

func TestFlatten_BulgeCircle(t *testing.T) {
	// Two vertices with bulge 1 each describe a full unit circle.
	raw := RawContour{
		{X: -1, Y: 0, Bulge: 1},
		{X: 1, Y: 0, Bulge: 1},
	}
	flat := raw.Flatten(5)

	require.Greater(t, len(flat), 30, "5 degree tolerance subdivides finely")
	for _, p := range flat {
		assert.InDelta(t, 1.0, math.Hypot(p.X, p.Y), 1e-9, "all points on the unit circle")
	}
	assert.InDelta(t, math.Pi, flat.Area(), 0.02, "flattened area approaches the circle area")
}

func TestSimplify_RemovesCollinearVertices(t *testing.T) {
	// Square with redundant midpoints on every edge.
	c := Contour{
		{X: 0, Y: 0}, {X: 2, Y: 0}, {X: 4, Y: 0},
		{X: 4, Y: 2}, {X: 4, Y: 4},
		{X: 2, Y: 4}, {X: 0, Y: 4},
		{X: 0, Y: 2},
	}
	s := Simplify(c, 0.01)
	assert.Len(t, s, 4)
	assert.InDelta(t, 16.0, s.Area(), 1e-9)
}

func TestSimplify_KeepsSignificantVertices(t *testing.T) {
	lShape := Contour{
		{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 2},
		{X: 2, Y: 2}, {X: 2, Y: 4}, {X: 0, Y: 4},
	}
	s := Simplify(lShape, 0.01)
	assert.InDelta(t, 12.0, s.Area(), 1e-6, "shape survives simplification")
}

func TestPrepare_NormalizesWindingAndOrigin(t *testing.T) {
	outline := LinearContour([]Point{
		{X: 10, Y: 10}, {X: 10, Y: 20}, {X: 30, Y: 20}, {X: 30, Y: 10}, // clockwise
	})
	hole := LinearContour([]Point{
		{X: 14, Y: 12}, {X: 18, Y: 12}, {X: 18, Y: 16}, {X: 14, Y: 16}, // counter-clockwise
	})

	poly, err := Prepare(outline, []RawContour{hole}, 5, 0.05)
	require.NoError(t, err)

	assert.Positive(t, poly.Outer.SignedArea(), "outer is normalized counter-clockwise")
	require.Len(t, poly.Holes, 1)
	assert.Negative(t, poly.Holes[0].SignedArea(), "holes are normalized clockwise")

	c := poly.Outer.Centroid()
	assert.InDelta(t, 0.0, c.X, 1e-9, "reference point at the outer centroid")
	assert.InDelta(t, 0.0, c.Y, 1e-9)
}

func TestPrepare_DegenerateOutline(t *testing.T) {
	_, err := Prepare(LinearContour([]Point{{X: 0, Y: 0}, {X: 1, Y: 1}}), nil, 5, 0.05)
	assert.ErrorIs(t, err, ErrDegenerate)

	// Zero-area outline.
	_, err = Prepare(LinearContour([]Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}}), nil, 5, 0.05)
	assert.ErrorIs(t, err, ErrDegenerate)
}

func TestPrepare_DropsDegenerateHolesSilently(t *testing.T) {
	outline := LinearContour([]Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}})
	badHole := LinearContour([]Point{{X: 1, Y: 1}, {X: 2, Y: 2}})

	poly, err := Prepare(outline, []RawContour{badHole}, 5, 0.05)
	require.NoError(t, err)
	assert.Empty(t, poly.Holes)
}
