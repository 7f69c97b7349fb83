package geometry

import (
	"errors"
	"math"
)

// ErrDegenerate is returned by Prepare when an outline collapses to
// fewer than 3 distinct vertices or zero area after preprocessing.
var ErrDegenerate = errors.New("degenerate outline")

// RawVertex is one vertex of a raw outline. A nonzero Bulge marks a
// circular arc from this vertex to the next one, using the LWPOLYLINE
// convention: bulge = tan(theta/4) where theta is the included arc
// angle (positive = counter-clockwise).
type RawVertex struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Bulge float64 `json:"bulge,omitempty"`
}

// RawContour is a closed raw outline; the last vertex connects back to
// the first.
type RawContour []RawVertex

// LinearContour wraps plain points as a bulge-free raw contour.
func LinearContour(pts []Point) RawContour {
	out := make(RawContour, len(pts))
	for i, p := range pts {
		out[i] = RawVertex{X: p.X, Y: p.Y}
	}
	return out
}

// Flatten converts the raw contour to straight segments. Each bulge arc
// is subdivided so the angular deviation between consecutive chord
// segments does not exceed angleTol degrees.
func (rc RawContour) Flatten(angleTol float64) Contour {
	if angleTol <= 0 {
		angleTol = 5
	}
	var out Contour
	n := len(rc)
	for i, v := range rc {
		start := Point{v.X, v.Y}
		out = append(out, start)
		if math.Abs(v.Bulge) < 1e-9 {
			continue
		}
		next := rc[(i+1)%n]
		end := Point{next.X, next.Y}
		out = append(out, bulgeArc(start, end, v.Bulge, angleTol)...)
	}
	return out
}

// bulgeArc returns the intermediate points of the arc from a to b
// (exclusive of both endpoints).
func bulgeArc(a, b Point, bulge, angleTol float64) []Point {
	theta := 4 * math.Atan(bulge)
	chord := a.Dist(b)
	if chord < Epsilon {
		return nil
	}
	steps := int(math.Ceil(math.Abs(theta) / (angleTol * math.Pi / 180)))
	if steps < 2 {
		return nil
	}
	// Arc center: offset from the chord midpoint along its perpendicular.
	radius := chord / (2 * math.Sin(theta/2))
	mid := Point{(a.X + b.X) / 2, (a.Y + b.Y) / 2}
	perp := Point{-(b.Y - a.Y) / chord, (b.X - a.X) / chord}
	apothem := radius * math.Cos(theta/2)
	center := Point{mid.X - perp.X*apothem, mid.Y - perp.Y*apothem}

	startAngle := math.Atan2(a.Y-center.Y, a.X-center.X)
	pts := make([]Point, 0, steps-1)
	for i := 1; i < steps; i++ {
		ang := startAngle + theta*float64(i)/float64(steps)
		r := math.Abs(radius)
		pts = append(pts, Point{center.X + r*math.Cos(ang), center.Y + r*math.Sin(ang)})
	}
	return pts
}

// Simplify reduces the contour with a Douglas-Peucker pass: vertices
// whose perpendicular deviation from the collapsed segment is below tol
// are removed. The contour is treated as closed by anchoring the two
// bounding-box extreme vertices.
func Simplify(c Contour, tol float64) Contour {
	if tol <= 0 || len(c) < 5 {
		return c.Clone()
	}
	// Anchor at the two vertices furthest apart to split the ring into
	// two open polylines.
	lo, hi := 0, 0
	best := -1.0
	for i, p := range c {
		for j := i + 1; j < len(c); j++ {
			if d := p.Dist(c[j]); d > best {
				best = d
				lo, hi = i, j
			}
		}
	}
	first := append(Contour{}, c[lo:hi+1]...)
	second := append(append(Contour{}, c[hi:]...), c[:lo+1]...)

	out := douglasPeucker(first, tol)
	tail := douglasPeucker(second, tol)
	out = append(out, tail[1:len(tail)-1]...)
	return dedupe(out)
}

func douglasPeucker(pts Contour, tol float64) Contour {
	if len(pts) < 3 {
		return pts.Clone()
	}
	maxDist := 0.0
	maxIdx := 0
	a, b := pts[0], pts[len(pts)-1]
	for i := 1; i < len(pts)-1; i++ {
		if d := pointSegmentDistance(pts[i], a, b); d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}
	if maxDist <= tol {
		return Contour{a, b}
	}
	left := douglasPeucker(pts[:maxIdx+1], tol)
	right := douglasPeucker(pts[maxIdx:], tol)
	return append(left[:len(left)-1], right...)
}

// dedupe removes consecutive duplicate vertices, including a duplicated
// closing vertex.
func dedupe(c Contour) Contour {
	out := c[:0:0]
	for _, p := range c {
		if len(out) > 0 && p.Dist(out[len(out)-1]) < Epsilon {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 1 && out[0].Dist(out[len(out)-1]) < Epsilon {
		out = out[:len(out)-1]
	}
	return out
}

// Prepare flattens, simplifies and normalizes a raw outline with holes
// into a Polygon ready for nesting: outer contour counter-clockwise,
// holes clockwise, reference point (outer centroid) at the origin.
// Degenerate input returns ErrDegenerate. Degenerate holes are dropped
// silently; only the outer boundary can fail the whole part.
func Prepare(outline RawContour, holes []RawContour, angleTol, simplifyTol float64) (*Polygon, error) {
	outer := dedupe(Simplify(outline.Flatten(angleTol), simplifyTol))
	if len(outer) < 3 || outer.Area() < Epsilon {
		return nil, ErrDegenerate
	}
	if outer.SignedArea() < 0 {
		outer.Reverse()
	}

	poly := &Polygon{Outer: outer}
	for _, h := range holes {
		hc := dedupe(Simplify(h.Flatten(angleTol), simplifyTol))
		if len(hc) < 3 || hc.Area() < Epsilon {
			continue
		}
		if hc.SignedArea() > 0 {
			hc.Reverse()
		}
		poly.Holes = append(poly.Holes, hc)
	}

	ref := poly.Outer.Centroid()
	return poly.Translated(-ref.X, -ref.Y), nil
}
