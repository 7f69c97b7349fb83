package importer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/geometry"
)

func TestChainSegments_ClosesSquare(t *testing.T) {
	segs := []segment{
		{start: geometry.Point{X: 0, Y: 0}, end: geometry.Point{X: 10, Y: 0}},
		{start: geometry.Point{X: 10, Y: 10}, end: geometry.Point{X: 0, Y: 10}},
		// Reversed orientation must still chain.
		{start: geometry.Point{X: 10, Y: 10}, end: geometry.Point{X: 10, Y: 0}},
		{start: geometry.Point{X: 0, Y: 10}, end: geometry.Point{X: 0, Y: 0}},
	}

	outlines := chainSegments(segs, 0.01)
	require.Len(t, outlines, 1)
	assert.Len(t, outlines[0], 4, "closing point is dropped")

	area := geometry.Contour(outlines[0]).Area()
	assert.InDelta(t, 100.0, area, 1e-9)
}

func TestChainSegments_DropsOpenChains(t *testing.T) {
	segs := []segment{
		{start: geometry.Point{X: 0, Y: 0}, end: geometry.Point{X: 10, Y: 0}},
		{start: geometry.Point{X: 10, Y: 0}, end: geometry.Point{X: 10, Y: 10}},
	}

	outlines := chainSegments(segs, 0.01)
	assert.Empty(t, outlines, "an unclosed polyline is not an outline")
}

func TestChainSegments_MultipleLoops(t *testing.T) {
	sq := func(x, y, s float64) []segment {
		return []segment{
			{start: geometry.Point{X: x, Y: y}, end: geometry.Point{X: x + s, Y: y}},
			{start: geometry.Point{X: x + s, Y: y}, end: geometry.Point{X: x + s, Y: y + s}},
			{start: geometry.Point{X: x + s, Y: y + s}, end: geometry.Point{X: x, Y: y + s}},
			{start: geometry.Point{X: x, Y: y + s}, end: geometry.Point{X: x, Y: y}},
		}
	}
	segs := append(sq(0, 0, 10), sq(100, 100, 5)...)

	outlines := chainSegments(segs, 0.01)
	require.Len(t, outlines, 2)
}

func TestGroupOutlines_InnerShapeBecomesHole(t *testing.T) {
	outer := geometry.LinearContour([]geometry.Point{
		{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100},
	})
	hole := geometry.LinearContour([]geometry.Point{
		{X: 40, Y: 40}, {X: 60, Y: 40}, {X: 60, Y: 60}, {X: 40, Y: 60},
	})
	separate := geometry.LinearContour([]geometry.Point{
		{X: 200, Y: 0}, {X: 250, Y: 0}, {X: 250, Y: 50}, {X: 200, Y: 50},
	})

	var result ImportResult
	parts := groupOutlines([]geometry.RawContour{hole, separate, outer}, &result)

	require.Len(t, parts, 2)
	// Largest outline first.
	require.Len(t, parts[0].Holes, 1)
	assert.Equal(t, outer, parts[0].Outline)
	assert.Equal(t, hole, parts[0].Holes[0])
	assert.Empty(t, parts[1].Holes)
	assert.Equal(t, 1, parts[0].Quantity)
	assert.NotEmpty(t, parts[0].ID)
}

func TestGroupOutlines_SkipsDegenerate(t *testing.T) {
	line := geometry.LinearContour([]geometry.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 20, Y: 0},
	})
	square := geometry.LinearContour([]geometry.Point{
		{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
	})

	var result ImportResult
	parts := groupOutlines([]geometry.RawContour{line, square}, &result)

	require.Len(t, parts, 1)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "degenerate")
}

func TestCircleContourFlattensToCircle(t *testing.T) {
	contour := geometry.RawContour{
		{X: 40, Y: 50, Bulge: 1},
		{X: 60, Y: 50, Bulge: 1},
	}

	flat := contour.Flatten(5)
	require.Greater(t, len(flat), 16)
	for _, p := range flat {
		r := math.Hypot(p.X-50, p.Y-50)
		assert.InDelta(t, 10.0, r, 0.01, "vertex (%g, %g) not on the circle", p.X, p.Y)
	}
	assert.InDelta(t, math.Pi*100, flat.Area(), math.Pi*100*0.01)
}

func TestPointsToSegments(t *testing.T) {
	pts := []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}}
	segs := pointsToSegments(pts)
	require.Len(t, segs, 2)
	assert.Equal(t, segment{start: pts[0], end: pts[1]}, segs[0])
	assert.Equal(t, segment{start: pts[1], end: pts[2]}, segs[1])
}
