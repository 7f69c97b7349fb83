package geometry

import (
	"math"
	"sort"
)

// ConvexHull returns the convex hull of the given points in
// counter-clockwise order (Andrew's monotone chain). Collinear points
// on the hull are dropped.
func ConvexHull(pts []Point) Contour {
	if len(pts) < 3 {
		return Contour(pts).Clone()
	}
	sorted := make([]Point, len(pts))
	copy(sorted, pts)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].X != sorted[j].X {
			return sorted[i].X < sorted[j].X
		}
		return sorted[i].Y < sorted[j].Y
	})

	var lower, upper []Point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= Epsilon {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= Epsilon {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	return Contour(hull)
}

// IsConvex reports whether the contour is convex. Winding may be either
// direction.
func (c Contour) IsConvex() bool {
	if len(c) < 4 {
		return len(c) == 3
	}
	sign := 0
	for i := range c {
		cr := cross(c[i], c[(i+1)%len(c)], c[(i+2)%len(c)])
		if math.Abs(cr) <= Epsilon {
			continue
		}
		s := 1
		if cr < 0 {
			s = -1
		}
		if sign == 0 {
			sign = s
		} else if s != sign {
			return false
		}
	}
	return true
}

// Triangulate splits a simple contour into triangles by ear clipping.
// The input winding may be either direction; the returned triangles
// wind counter-clockwise. Returns nil if the contour is degenerate.
func Triangulate(c Contour) []Contour {
	if len(c) < 3 {
		return nil
	}
	poly := c.Clone()
	if poly.SignedArea() < 0 {
		poly.Reverse()
	}

	onEdge := func(tri Contour, p Point) bool {
		for i := range tri {
			if pointSegmentDistance(p, tri[i], tri[(i+1)%len(tri)]) <= Epsilon {
				return true
			}
		}
		return false
	}

	isEar := func(idx []int, i int) bool {
		n := len(idx)
		a := poly[idx[(i+n-1)%n]]
		b := poly[idx[i]]
		d := poly[idx[(i+1)%n]]
		if cross(a, b, d) <= Epsilon {
			return false // reflex or collinear corner
		}
		tri := Contour{a, b, d}
		for _, j := range idx {
			p := poly[j]
			if p == a || p == b || p == d {
				continue
			}
			// A vertex exactly on the ear boundary (a reflex corner on
			// the clipping diagonal) would leave a degenerate remainder.
			if tri.ContainsPoint(p) || onEdge(tri, p) {
				return false
			}
		}
		return true
	}

	idx := make([]int, len(poly))
	for i := range idx {
		idx[i] = i
	}

	var tris []Contour
	guard := 0
	for len(idx) > 3 {
		clipped := false
		for i := 0; i < len(idx); i++ {
			if isEar(idx, i) {
				n := len(idx)
				tris = append(tris, Contour{
					poly[idx[(i+n-1)%n]], poly[idx[i]], poly[idx[(i+1)%n]],
				})
				idx = append(idx[:i], idx[i+1:]...)
				clipped = true
				break
			}
		}
		if !clipped {
			guard++
			if guard > 2 {
				// Numerically stuck (near-degenerate geometry). Bail out;
				// the caller falls back to the convex hull.
				return nil
			}
			// Drop the sharpest near-collinear corner and retry.
			worst, worstCr := -1, math.Inf(1)
			for i := 0; i < len(idx); i++ {
				n := len(idx)
				cr := math.Abs(cross(poly[idx[(i+n-1)%n]], poly[idx[i]], poly[idx[(i+1)%n]]))
				if cr < worstCr {
					worstCr = cr
					worst = i
				}
			}
			idx = append(idx[:worst], idx[worst+1:]...)
		}
	}
	if len(idx) == 3 {
		tri := Contour{poly[idx[0]], poly[idx[1]], poly[idx[2]]}
		if tri.Area() > Epsilon {
			tris = append(tris, tri)
		}
	}
	return tris
}

// ConvexDecompose splits a simple contour into convex pieces. A convex
// input is returned as-is (normalized counter-clockwise); non-convex
// contours are triangulated. When triangulation fails on degenerate
// input, the convex hull is returned as a conservative cover.
func ConvexDecompose(c Contour) []Contour {
	if len(c) < 3 {
		return nil
	}
	if c.IsConvex() {
		cc := c.Clone()
		if cc.SignedArea() < 0 {
			cc.Reverse()
		}
		return []Contour{cc}
	}
	if tris := Triangulate(c); tris != nil {
		return tris
	}
	hull := ConvexHull(c)
	if len(hull) < 3 {
		return nil
	}
	return []Contour{hull}
}

// MinkowskiSumConvex returns the Minkowski sum of two convex contours
// as the convex hull of the pairwise vertex sums.
func MinkowskiSumConvex(a, b Contour) Contour {
	sums := make([]Point, 0, len(a)*len(b))
	for _, p := range a {
		for _, q := range b {
			sums = append(sums, p.Add(q))
		}
	}
	return ConvexHull(sums)
}
