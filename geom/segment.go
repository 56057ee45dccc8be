package geom

import (
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

func interpolate(a, b orb.Point, t float64) orb.Point {
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}

// OnSegment reports whether p lies on segment ab within tol
func OnSegment(p, a, b orb.Point, tol float64) bool {
	return planar.DistanceFromSegment(a, b, p) <= tol
}

// segmentParams returns the parameters t in [0, 1] along ab where ab meets cd.
// Collinear overlaps contribute the projections of c and d.
func segmentParams(a, b, c, d orb.Point) []float64 {
	r := orb.Point{b[0] - a[0], b[1] - a[1]}
	s := orb.Point{d[0] - c[0], d[1] - c[1]}
	denom := r[0]*s[1] - r[1]*s[0]
	qp := orb.Point{c[0] - a[0], c[1] - a[1]}
	rr := r[0]*r[0] + r[1]*r[1]
	if rr == 0 {
		return nil
	}

	scale := math.Sqrt(rr) * math.Hypot(s[0], s[1])
	if math.Abs(denom) <= Epsilon*scale {
		// parallel: only collinear overlaps matter
		if math.Abs(qp[0]*r[1]-qp[1]*r[0]) > Epsilon*math.Sqrt(rr) {
			return nil
		}
		var out []float64
		for _, p := range []orb.Point{c, d} {
			t := ((p[0]-a[0])*r[0] + (p[1]-a[1])*r[1]) / rr
			if t >= -Epsilon && t <= 1+Epsilon {
				out = append(out, clamp01(t))
			}
		}
		return out
	}

	t := (qp[0]*s[1] - qp[1]*s[0]) / denom
	u := (qp[0]*r[1] - qp[1]*r[0]) / denom
	if t < -Epsilon || t > 1+Epsilon || u < -Epsilon || u > 1+Epsilon {
		return nil
	}
	return []float64{clamp01(t)}
}

func clamp01(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}

// SegmentCovered reports whether the whole segment ab lies inside the polygon,
// boundary included. Concave corners and holes are handled by testing every
// piece of ab between consecutive boundary contacts. Points within Epsilon of
// a wall count as on it.
func SegmentCovered(poly orb.Polygon, a, b orb.Point) bool {
	if !Covers(poly, a) || !Covers(poly, b) {
		return false
	}
	if SamePoint(a, b) {
		return true
	}

	params := []float64{0, 1}
	for _, ring := range poly {
		for i := 0; i+1 < len(ring); i++ {
			params = append(params, segmentParams(a, b, ring[i], ring[i+1])...)
		}
	}
	sort.Float64s(params)

	for i := 0; i+1 < len(params); i++ {
		if params[i+1]-params[i] <= Epsilon {
			continue
		}
		mid := interpolate(a, b, (params[i]+params[i+1])/2)
		if !Covers(poly, mid) {
			return false
		}
	}
	return true
}

// LineCovered reports whether every segment of ls lies inside the polygon
func LineCovered(poly orb.Polygon, ls orb.LineString) bool {
	if len(ls) == 1 {
		return Covers(poly, ls[0])
	}
	for i := 0; i+1 < len(ls); i++ {
		if !SegmentCovered(poly, ls[i], ls[i+1]) {
			return false
		}
	}
	return len(ls) > 0
}

// Cut walks along ls and returns the point reached after traveling exactly
// dist. ok is false when ls is shorter than dist.
func Cut(ls orb.LineString, dist float64) (p orb.Point, ok bool) {
	if len(ls) == 0 || dist < 0 {
		return orb.Point{}, false
	}
	remaining := dist
	for i := 0; i+1 < len(ls); i++ {
		seg := planar.Distance(ls[i], ls[i+1])
		if seg > 0 && remaining <= seg {
			return interpolate(ls[i], ls[i+1], remaining/seg), true
		}
		remaining -= seg
	}
	if remaining <= Epsilon {
		return ls[len(ls)-1], true
	}
	return orb.Point{}, false
}
