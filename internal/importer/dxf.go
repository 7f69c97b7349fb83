package importer

import (
	"fmt"
	"math"
	"sort"

	"github.com/yofu/dxf"
	"github.com/yofu/dxf/entity"

	"github.com/tarman3/Freecad-Nesting-Workbench/internal/geometry"
	"github.com/tarman3/Freecad-Nesting-Workbench/internal/model"
)

// segment represents a line segment between two 2D points, used for
// chaining disconnected LINE and ARC entities into closed outlines.
type segment struct {
	start geometry.Point
	end   geometry.Point
}

// ImportDXF imports parts from a DXF file. Each closed shape
// (LWPOLYLINE, CIRCLE, or chain of connected LINEs and ARCs) becomes an
// outline; outlines fully contained in a larger one become holes of
// that part. Arc segments are kept as bulge vertices rather than being
// flattened, so downstream preprocessing controls the approximation.
func ImportDXF(path string) ImportResult {
	result := ImportResult{}

	drawing, err := dxf.Open(path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Cannot open DXF file: %v", err))
		return result
	}

	entities := drawing.Entities()
	if len(entities) == 0 {
		result.Errors = append(result.Errors, "DXF file contains no entities")
		return result
	}

	var outlines []geometry.RawContour
	var segments []segment

	for _, ent := range entities {
		switch e := ent.(type) {
		case *entity.LwPolyline:
			outline := lwPolylineToContour(e)
			if len(outline) >= 3 {
				outlines = append(outlines, outline)
			} else {
				result.Warnings = append(result.Warnings,
					"Skipped LWPOLYLINE with fewer than 3 vertices")
			}

		case *entity.Circle:
			outlines = append(outlines, circleToContour(e))

		case *entity.Arc:
			pts := arcToPoints(e, 32)
			if len(pts) >= 2 {
				segments = append(segments, pointsToSegments(pts)...)
			}

		case *entity.Line:
			segments = append(segments, segment{
				start: geometry.Point{X: e.Start[0], Y: e.Start[1]},
				end:   geometry.Point{X: e.End[0], Y: e.End[1]},
			})

		default:
			// Unsupported entity types are silently skipped
		}
	}

	// Chain loose segments (LINEs and ARCs) into closed outlines.
	for _, chain := range chainSegments(segments, 0.01) {
		outlines = append(outlines, geometry.LinearContour(chain))
	}

	if len(outlines) == 0 {
		result.Errors = append(result.Errors, "No closed shapes found in DXF file")
		return result
	}

	result.Parts = groupOutlines(outlines, &result)
	return result
}

// groupOutlines turns raw outlines into parts, assigning each outline
// contained in a larger one as a hole of its smallest enclosing part.
func groupOutlines(outlines []geometry.RawContour, result *ImportResult) []*model.Part {
	type shape struct {
		raw  geometry.RawContour
		flat geometry.Contour
		area float64
	}
	shapes := make([]shape, 0, len(outlines))
	for _, o := range outlines {
		flat := o.Flatten(5)
		area := flat.Area()
		bb := flat.BoundingBox()
		if bb.Width() < 0.01 || bb.Height() < 0.01 || area < 0.01 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("Skipped degenerate shape (%.2f x %.2f mm)", bb.Width(), bb.Height()))
			continue
		}
		shapes = append(shapes, shape{raw: o, flat: flat, area: area})
	}

	// Largest first, so each shape's enclosing candidates precede it.
	sort.SliceStable(shapes, func(i, j int) bool {
		return shapes[i].area > shapes[j].area
	})

	parentOf := make([]int, len(shapes))
	for i := range shapes {
		parentOf[i] = -1
		probe := shapes[i].flat[0]
		// The smallest enclosing shape wins, nesting deeper than one
		// level alternates back to being a part.
		for j := i - 1; j >= 0; j-- {
			if shapes[j].flat.ContainsPoint(probe) {
				parentOf[i] = j
				break
			}
		}
	}

	partIdx := make(map[int]int)
	var parts []*model.Part
	for i, s := range shapes {
		parent := parentOf[i]
		if parent >= 0 {
			if pi, ok := partIdx[parent]; ok {
				parts[pi].Holes = append(parts[pi].Holes, s.raw)
				continue
			}
		}
		p := model.Part{
			ID:       model.NewPartID(),
			Label:    fmt.Sprintf("DXF Part %d", len(parts)+1),
			Outline:  s.raw,
			Quantity: 1,
		}
		parts = append(parts, &p)
		partIdx[i] = len(parts) - 1
	}
	return parts
}

// lwPolylineToContour converts a DXF LWPOLYLINE entity to a raw
// contour, carrying vertex bulges through unchanged.
func lwPolylineToContour(lw *entity.LwPolyline) geometry.RawContour {
	out := make(geometry.RawContour, 0, len(lw.Vertices))
	for i := 0; i < len(lw.Vertices); i++ {
		v := geometry.RawVertex{X: lw.Vertices[i][0], Y: lw.Vertices[i][1]}
		if i < len(lw.Bulges) && math.Abs(lw.Bulges[i]) > 1e-9 {
			v.Bulge = lw.Bulges[i]
		}
		out = append(out, v)
	}
	return out
}

// circleToContour represents a full circle as two semicircular bulge
// arcs (bulge 1 = 180 degrees).
func circleToContour(c *entity.Circle) geometry.RawContour {
	cx, cy, r := c.Center[0], c.Center[1], c.Radius
	return geometry.RawContour{
		{X: cx - r, Y: cy, Bulge: 1},
		{X: cx + r, Y: cy, Bulge: 1},
	}
}

// arcToPoints converts a DXF ARC entity to a series of line points.
func arcToPoints(a *entity.Arc, numSegments int) []geometry.Point {
	cx, cy := a.Circle.Center[0], a.Circle.Center[1]
	r := a.Circle.Radius
	startRad := a.Angle[0] * math.Pi / 180
	endRad := a.Angle[1] * math.Pi / 180
	if endRad <= startRad {
		endRad += 2 * math.Pi
	}

	pts := make([]geometry.Point, numSegments+1)
	for i := 0; i <= numSegments; i++ {
		t := float64(i) / float64(numSegments)
		angle := startRad + t*(endRad-startRad)
		pts[i] = geometry.Point{
			X: cx + r*math.Cos(angle),
			Y: cy + r*math.Sin(angle),
		}
	}
	return pts
}

// pointsToSegments converts a point sequence to connected segments.
func pointsToSegments(pts []geometry.Point) []segment {
	segs := make([]segment, 0, len(pts)-1)
	for i := 0; i < len(pts)-1; i++ {
		segs = append(segs, segment{start: pts[i], end: pts[i+1]})
	}
	return segs
}

// chainSegments connects individual segments into closed outlines.
// tolerance is the maximum distance between endpoints to consider them
// connected.
func chainSegments(segs []segment, tolerance float64) [][]geometry.Point {
	if len(segs) == 0 {
		return nil
	}

	used := make([]bool, len(segs))
	var outlines [][]geometry.Point

	for {
		startIdx := -1
		for i, u := range used {
			if !u {
				startIdx = i
				break
			}
		}
		if startIdx == -1 {
			break
		}

		chain := []geometry.Point{segs[startIdx].start, segs[startIdx].end}
		used[startIdx] = true

		changed := true
		for changed {
			changed = false
			tail := chain[len(chain)-1]

			for i, seg := range segs {
				if used[i] {
					continue
				}
				if tail.Dist(seg.start) <= tolerance {
					chain = append(chain, seg.end)
					used[i] = true
					changed = true
					break
				}
				if tail.Dist(seg.end) <= tolerance {
					chain = append(chain, seg.start)
					used[i] = true
					changed = true
					break
				}
			}
		}

		// Only a chain whose tail returned to its start is an outline;
		// an open run of segments is dropped. The duplicate closing
		// point is trimmed before emission.
		if len(chain) >= 4 && chain[0].Dist(chain[len(chain)-1]) <= tolerance {
			outlines = append(outlines, chain[:len(chain)-1])
		}
	}

	return outlines
}
