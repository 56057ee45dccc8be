package geom

import (
	"math"

	"github.com/paulmach/orb"
)

// CircleSegments is the number of sides used to approximate a circular buffer
const CircleSegments = 16

// Circle returns a closed counter-clockwise ring approximating the circle of
// radius r around c
func Circle(c orb.Point, r float64) orb.Ring {
	ring := make(orb.Ring, 0, CircleSegments+1)
	for i := 0; i < CircleSegments; i++ {
		a := 2 * math.Pi * float64(i) / CircleSegments
		ring = append(ring, orb.Point{c[0] + r*math.Cos(a), c[1] + r*math.Sin(a)})
	}
	return append(ring, ring[0])
}

// SegmentRect returns the closed rectangle of half-width r around segment ab,
// or nil for a degenerate segment
func SegmentRect(a, b orb.Point, r float64) orb.Ring {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l := math.Hypot(dx, dy)
	if l == 0 {
		return nil
	}
	nx, ny := -dy/l*r, dx/l*r
	return orb.Ring{
		{a[0] - nx, a[1] - ny},
		{b[0] - nx, b[1] - ny},
		{b[0] + nx, b[1] + ny},
		{a[0] + nx, a[1] + ny},
		{a[0] - nx, a[1] - ny},
	}
}

// PolygonBuffer returns the band of width r around every ring of the polygon
// as a union of convex pieces. The polygon interior itself is not part of the
// region; for a cell this is exactly the part of its r-buffer that lies in
// neighbouring, non-overlapping cells.
func PolygonBuffer(poly orb.Polygon, r float64) Region {
	var rg Region
	for _, ring := range poly {
		rg = append(rg, LineBuffer(orb.LineString(CloseRing(ring)), r)...)
	}
	return rg
}

// LineBuffer returns the r-buffer of a polyline as a union of convex pieces
func LineBuffer(ls orb.LineString, r float64) Region {
	var rg Region
	closed := len(ls) > 2 && ls[0] == ls[len(ls)-1]
	for i, p := range ls {
		if closed && i == len(ls)-1 {
			break
		}
		if i == 0 || p != ls[i-1] {
			rg = append(rg, Circle(p, r))
		}
		if i+1 < len(ls) {
			if rect := SegmentRect(p, ls[i+1], r); rect != nil {
				rg = append(rg, rect)
			}
		}
	}
	return rg
}
