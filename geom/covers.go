package geom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Covers reports whether p lies inside the polygon or on its boundary. Unlike
// planar.PolygonContains a point on a hole's boundary is covered.
func Covers(poly orb.Polygon, p orb.Point) bool {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return false
	}
	if !planar.RingContains(poly[0], p) && !OnRing(poly[0], p, Epsilon) {
		return false
	}
	for _, hole := range poly[1:] {
		if planar.RingContains(hole, p) && !OnRing(hole, p, Epsilon) {
			return false
		}
	}
	return true
}

// OnRing reports whether p lies on the boundary of the ring within tol
func OnRing(r orb.Ring, p orb.Point, tol float64) bool {
	for i := 0; i+1 < len(r); i++ {
		if OnSegment(p, r[i], r[i+1], tol) {
			return true
		}
	}
	return false
}

// OnBoundary reports whether p lies on any ring of the polygon within tol
func OnBoundary(poly orb.Polygon, p orb.Point, tol float64) bool {
	for _, r := range poly {
		if OnRing(r, p, tol) {
			return true
		}
	}
	return false
}

func isClosed(r orb.Ring) bool {
	return len(r) > 1 && r[0] == r[len(r)-1]
}

// CloseRing returns r with its first point repeated at the end if needed
func CloseRing(r orb.Ring) orb.Ring {
	if len(r) == 0 || isClosed(r) {
		return r
	}
	closed := make(orb.Ring, len(r), len(r)+1)
	copy(closed, r)
	return append(closed, r[0])
}

// ClosePolygon closes every ring of the polygon
func ClosePolygon(poly orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, r := range poly {
		out[i] = CloseRing(r)
	}
	return out
}

// Vertices returns the distinct vertices of all rings (closing points dropped)
func Vertices(poly orb.Polygon) []orb.Point {
	var out []orb.Point
	for _, r := range poly {
		n := len(r)
		if isClosed(r) {
			n--
		}
		out = append(out, r[:n]...)
	}
	return out
}

// PolygonArea returns the area of the polygon with holes subtracted
func PolygonArea(poly orb.Polygon) float64 {
	return planar.Area(poly)
}
