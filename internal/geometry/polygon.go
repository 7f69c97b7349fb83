// Package geometry provides the 2D polygon primitives used by the
// nesting engine: contours with holes, transforms, containment and
// clearance tests, convex decomposition and Minkowski sums.
package geometry

import "math"

// Epsilon is the tolerance used for coordinate comparisons throughout
// the package. Coordinates are in mm, so 1e-7 is far below machining
// precision.
const Epsilon = 1e-7

// Point represents a 2D coordinate in mm.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p + q.
func (p Point) Add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }

// Sub returns p - q.
func (p Point) Sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }

// Neg returns the point reflected through the origin.
func (p Point) Neg() Point { return Point{-p.X, -p.Y} }

// Dot returns the dot product p·q.
func (p Point) Dot(q Point) float64 { return p.X*q.X + p.Y*q.Y }

// Dist returns the euclidean distance to q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// rotated returns the point rotated around the origin by the given
// precomputed sine/cosine.
func (p Point) rotated(sin, cos float64) Point {
	return Point{X: p.X*cos - p.Y*sin, Y: p.X*sin + p.Y*cos}
}

// cross returns the z component of (b-a) x (c-a).
func cross(a, b, c Point) float64 {
	return (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
}

// Rect is an axis-aligned rectangle given by its min and max corners.
type Rect struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// Width returns the horizontal extent.
func (r Rect) Width() float64 { return r.Max.X - r.Min.X }

// Height returns the vertical extent.
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Empty reports whether the rectangle has no interior.
func (r Rect) Empty() bool {
	return r.Max.X-r.Min.X < -Epsilon || r.Max.Y-r.Min.Y < -Epsilon
}

// Contains reports whether p lies inside the rectangle (inclusive,
// within Epsilon).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X-Epsilon && p.X <= r.Max.X+Epsilon &&
		p.Y >= r.Min.Y-Epsilon && p.Y <= r.Max.Y+Epsilon
}

// Contour is a closed boundary as an ordered point sequence. The last
// point implicitly connects back to the first.
type Contour []Point

// Clone returns a deep copy.
func (c Contour) Clone() Contour {
	out := make(Contour, len(c))
	copy(out, c)
	return out
}

// SignedArea returns the area with sign: positive for counter-clockwise
// winding, negative for clockwise.
func (c Contour) SignedArea() float64 {
	if len(c) < 3 {
		return 0
	}
	var sum float64
	for i, p := range c {
		q := c[(i+1)%len(c)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return sum / 2
}

// Area returns the absolute enclosed area.
func (c Contour) Area() float64 { return math.Abs(c.SignedArea()) }

// Centroid returns the area centroid of the contour.
func (c Contour) Centroid() Point {
	a := c.SignedArea()
	if math.Abs(a) < Epsilon {
		// Degenerate: fall back to the vertex average.
		var s Point
		for _, p := range c {
			s.X += p.X
			s.Y += p.Y
		}
		n := float64(len(c))
		if n == 0 {
			return Point{}
		}
		return Point{s.X / n, s.Y / n}
	}
	var cx, cy float64
	for i, p := range c {
		q := c[(i+1)%len(c)]
		f := p.X*q.Y - q.X*p.Y
		cx += (p.X + q.X) * f
		cy += (p.Y + q.Y) * f
	}
	return Point{cx / (6 * a), cy / (6 * a)}
}

// BoundingBox returns the axis-aligned bounds of the contour.
func (c Contour) BoundingBox() Rect {
	if len(c) == 0 {
		return Rect{}
	}
	r := Rect{Min: c[0], Max: c[0]}
	for _, p := range c[1:] {
		if p.X < r.Min.X {
			r.Min.X = p.X
		}
		if p.Y < r.Min.Y {
			r.Min.Y = p.Y
		}
		if p.X > r.Max.X {
			r.Max.X = p.X
		}
		if p.Y > r.Max.Y {
			r.Max.Y = p.Y
		}
	}
	return r
}

// Reverse flips the winding in place.
func (c Contour) Reverse() {
	for i, j := 0, len(c)-1; i < j; i, j = i+1, j-1 {
		c[i], c[j] = c[j], c[i]
	}
}

// Translated returns a copy shifted by dx, dy.
func (c Contour) Translated(dx, dy float64) Contour {
	out := make(Contour, len(c))
	for i, p := range c {
		out[i] = Point{p.X + dx, p.Y + dy}
	}
	return out
}

// Rotated returns a copy rotated around the origin by angle degrees
// counter-clockwise.
func (c Contour) Rotated(angle float64) Contour {
	if angle == 0 {
		return c.Clone()
	}
	rad := angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	out := make(Contour, len(c))
	for i, p := range c {
		out[i] = p.rotated(sin, cos)
	}
	return out
}

// ContainsPoint reports whether p lies strictly inside the contour,
// using the even-odd ray casting rule. Points on the boundary are not
// considered inside.
func (c Contour) ContainsPoint(p Point) bool {
	if len(c) < 3 {
		return false
	}
	inside := false
	j := len(c) - 1
	for i := 0; i < len(c); i++ {
		a, b := c[i], c[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			x := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < x {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// pointSegmentDistance returns the distance from p to segment a-b.
func pointSegmentDistance(p, a, b Point) float64 {
	ab := b.Sub(a)
	l2 := ab.Dot(ab)
	if l2 < Epsilon*Epsilon {
		return p.Dist(a)
	}
	t := p.Sub(a).Dot(ab) / l2
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return p.Dist(Point{a.X + t*ab.X, a.Y + t*ab.Y})
}

// segmentsIntersect reports whether segments a-b and c-d properly
// intersect or touch.
func segmentsIntersect(a, b, c, d Point) bool {
	d1 := cross(c, d, a)
	d2 := cross(c, d, b)
	d3 := cross(a, b, c)
	d4 := cross(a, b, d)
	if ((d1 > Epsilon && d2 < -Epsilon) || (d1 < -Epsilon && d2 > Epsilon)) &&
		((d3 > Epsilon && d4 < -Epsilon) || (d3 < -Epsilon && d4 > Epsilon)) {
		return true
	}
	on := func(p, q, r Point) bool {
		return math.Abs(cross(p, q, r)) <= Epsilon &&
			r.X >= math.Min(p.X, q.X)-Epsilon && r.X <= math.Max(p.X, q.X)+Epsilon &&
			r.Y >= math.Min(p.Y, q.Y)-Epsilon && r.Y <= math.Max(p.Y, q.Y)+Epsilon
	}
	return on(c, d, a) || on(c, d, b) || on(a, b, c) || on(a, b, d)
}

// segmentDistance returns the minimum distance between segments a-b and
// c-d (zero if they intersect).
func segmentDistance(a, b, c, d Point) float64 {
	if segmentsIntersect(a, b, c, d) {
		return 0
	}
	m := pointSegmentDistance(a, c, d)
	if v := pointSegmentDistance(b, c, d); v < m {
		m = v
	}
	if v := pointSegmentDistance(c, a, b); v < m {
		m = v
	}
	if v := pointSegmentDistance(d, a, b); v < m {
		m = v
	}
	return m
}

// intersectsContour reports whether any edge of c crosses any edge of o.
func (c Contour) intersectsContour(o Contour) bool {
	for i := range c {
		a, b := c[i], c[(i+1)%len(c)]
		for j := range o {
			p, q := o[j], o[(j+1)%len(o)]
			if segmentsIntersect(a, b, p, q) {
				return true
			}
		}
	}
	return false
}

// minDistance returns the minimum boundary distance between c and o.
func (c Contour) minDistance(o Contour) float64 {
	best := math.Inf(1)
	for i := range c {
		a, b := c[i], c[(i+1)%len(c)]
		for j := range o {
			p, q := o[j], o[(j+1)%len(o)]
			if d := segmentDistance(a, b, p, q); d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}

// Polygon is a closed outer boundary plus zero or more hole boundaries.
// After Prepare, the outer contour winds counter-clockwise and holes
// wind clockwise, and the reference point (outer centroid) is at the
// origin.
type Polygon struct {
	Outer Contour   `json:"outer"`
	Holes []Contour `json:"holes,omitempty"`
}

// Clone returns a deep copy.
func (p *Polygon) Clone() *Polygon {
	out := &Polygon{Outer: p.Outer.Clone()}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, h.Clone())
	}
	return out
}

// Area returns the outer area minus the hole areas.
func (p *Polygon) Area() float64 {
	a := p.Outer.Area()
	for _, h := range p.Holes {
		a -= h.Area()
	}
	return a
}

// BoundingBox returns the bounds of the outer contour.
func (p *Polygon) BoundingBox() Rect { return p.Outer.BoundingBox() }

// Translated returns a copy shifted by dx, dy.
func (p *Polygon) Translated(dx, dy float64) *Polygon {
	out := &Polygon{Outer: p.Outer.Translated(dx, dy)}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, h.Translated(dx, dy))
	}
	return out
}

// Rotated returns a copy rotated around the origin by angle degrees.
func (p *Polygon) Rotated(angle float64) *Polygon {
	out := &Polygon{Outer: p.Outer.Rotated(angle)}
	for _, h := range p.Holes {
		out.Holes = append(out.Holes, h.Rotated(angle))
	}
	return out
}

// ContainsPoint reports whether the point lies in the material of the
// polygon: inside the outer contour and outside every hole.
func (p *Polygon) ContainsPoint(pt Point) bool {
	if !p.Outer.ContainsPoint(pt) {
		return false
	}
	for _, h := range p.Holes {
		if h.ContainsPoint(pt) {
			return false
		}
	}
	return true
}

// ContainsContour reports whether contour c lies entirely inside
// contour outer, with at least clearance between the boundaries.
func ContainsContour(outer, c Contour, clearance float64) bool {
	if len(c) == 0 {
		return false
	}
	if !outer.ContainsPoint(c[0]) {
		return false
	}
	if outer.intersectsContour(c) {
		return false
	}
	if clearance > 0 && outer.minDistance(c) < clearance-Epsilon {
		return false
	}
	return true
}

// Clearance returns the minimum boundary distance between a and b, or 0
// if their material regions overlap. Placement of b entirely inside a
// hole of a (or vice versa) counts as clear as long as the boundary
// distance is respected.
func Clearance(a, b *Polygon) float64 {
	d := boundaryDistance(a, b)
	if d == 0 {
		return 0
	}
	// No boundary crossings. Overlap can still exist through full
	// containment of one polygon in the other's material.
	if a.ContainsPoint(b.Outer[0]) || b.ContainsPoint(a.Outer[0]) {
		return 0
	}
	return d
}

func boundaryDistance(a, b *Polygon) float64 {
	contoursA := append([]Contour{a.Outer}, a.Holes...)
	contoursB := append([]Contour{b.Outer}, b.Holes...)
	best := math.Inf(1)
	for _, ca := range contoursA {
		for _, cb := range contoursB {
			if d := ca.minDistance(cb); d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}
