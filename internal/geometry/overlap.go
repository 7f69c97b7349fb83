package geometry

import "math"

// segmentsProperCross reports whether segments a-b and c-d cross with
// interior intersection, excluding mere touching at endpoints or along
// collinear runs.
func segmentsProperCross(a, b, c, d Point) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	return ((d1 > Epsilon && d2 < -Epsilon) || (d1 < -Epsilon && d2 > Epsilon)) &&
		((d3 > Epsilon && d4 < -Epsilon) || (d3 < -Epsilon && d4 > Epsilon))
}

func contoursProperCross(c, o Contour) bool {
	for i := range c {
		a, b := c[i], c[(i+1)%len(c)]
		for j := range o {
			p, q := o[j], o[(j+1)%len(o)]
			if segmentsProperCross(a, b, p, q) {
				return true
			}
		}
	}
	return false
}

// InteriorPoint returns a point strictly inside the polygon's material
// and whether one was found. The outer centroid is tried first, then
// the ear-triangle centroids. A thin frame can push every centroid into
// a hole, so each triangle is additionally probed from its corners
// toward the centroid; corner-adjacent points approach the outer
// boundary, where a hole strictly inside the outer contour leaves a
// material band.
func (p *Polygon) InteriorPoint() (Point, bool) {
	if c := p.Outer.Centroid(); p.ContainsPoint(c) {
		return c, true
	}
	for _, tri := range Triangulate(p.Outer) {
		tc := tri.Centroid()
		if p.ContainsPoint(tc) {
			return tc, true
		}
		for _, v := range tri {
			for _, t := range []float64{0.5, 0.1, 0.01, 0.001} {
				pt := Point{X: v.X + (tc.X-v.X)*t, Y: v.Y + (tc.Y-v.Y)*t}
				if p.ContainsPoint(pt) {
					return pt, true
				}
			}
		}
	}
	return Point{}, false
}

// Overlaps reports whether the material interiors of a and b intersect.
// Touching boundaries do not count as overlap; b sitting entirely
// inside a hole of a (or vice versa) does not count as overlap.
func Overlaps(a, b *Polygon) bool {
	boundsA, boundsB := a.BoundingBox(), b.BoundingBox()
	if boundsA.Min.X > boundsB.Max.X+Epsilon || boundsB.Min.X > boundsA.Max.X+Epsilon ||
		boundsA.Min.Y > boundsB.Max.Y+Epsilon || boundsB.Min.Y > boundsA.Max.Y+Epsilon {
		return false
	}
	contoursA := append([]Contour{a.Outer}, a.Holes...)
	contoursB := append([]Contour{b.Outer}, b.Holes...)
	for _, ca := range contoursA {
		for _, cb := range contoursB {
			if contoursProperCross(ca, cb) {
				return true
			}
		}
	}
	// No boundary crossings: only full containment of one material
	// region in the other remains. An interior point is only evidence
	// when one was actually found.
	if pt, ok := b.InteriorPoint(); ok && a.ContainsPoint(pt) {
		return true
	}
	if pt, ok := a.InteriorPoint(); ok && b.ContainsPoint(pt) {
		return true
	}
	return false
}

// OffsetConvex grows a counter-clockwise convex contour outward by d,
// shifting each edge along its outward normal and re-intersecting
// adjacent edges (miter joins).
func OffsetConvex(c Contour, d float64) Contour {
	if d <= 0 || len(c) < 3 {
		return c.Clone()
	}
	n := len(c)
	type line struct{ p, dir Point }
	lines := make([]line, n)
	for i := 0; i < n; i++ {
		a, b := c[i], c[(i+1)%n]
		dir := b.Sub(a)
		l := math.Hypot(dir.X, dir.Y)
		if l < Epsilon {
			dir = Point{1, 0}
			l = 1
		}
		dir = Point{dir.X / l, dir.Y / l}
		// Outward normal of a CCW edge points right of the direction.
		normal := Point{dir.Y, -dir.X}
		lines[i] = line{p: Point{a.X + normal.X*d, a.Y + normal.Y*d}, dir: dir}
	}
	out := make(Contour, 0, n)
	for i := 0; i < n; i++ {
		prev := lines[(i+n-1)%n]
		cur := lines[i]
		denom := prev.dir.X*cur.dir.Y - prev.dir.Y*cur.dir.X
		if math.Abs(denom) < Epsilon {
			out = append(out, cur.p)
			continue
		}
		t := ((cur.p.X-prev.p.X)*cur.dir.Y - (cur.p.Y-prev.p.Y)*cur.dir.X) / denom
		out = append(out, Point{prev.p.X + prev.dir.X*t, prev.p.Y + prev.dir.Y*t})
	}
	return out
}
