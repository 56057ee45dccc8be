package geom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	sf "github.com/peterstace/simplefeatures/geom"
)

// Region is a union of closed convex rings, the form every buffer in this
// package takes. Overlay and areas go through simplefeatures.
type Region []orb.Ring

// Bound returns the bounding box of all pieces
func (rg Region) Bound() orb.Bound {
	if len(rg) == 0 {
		return orb.Bound{}
	}
	b := rg[0].Bound()
	for _, r := range rg[1:] {
		b = b.Union(r.Bound())
	}
	return b
}

// Covers reports whether p lies in any piece, boundary included
func (rg Region) Covers(p orb.Point) bool {
	for _, r := range rg {
		if planar.RingContains(r, p) {
			return true
		}
	}
	return false
}

// Area returns the area of the union of all pieces
func (rg Region) Area() float64 {
	if len(rg) == 0 {
		return 0
	}
	u, err := rg.union(rg.Bound())
	if err != nil {
		logOverlay("region area", err)
		return 0
	}
	return u.Area()
}

// Intersects reports whether the region and the polygon share at least one point
func (rg Region) Intersects(poly orb.Polygon) bool {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return false
	}
	pb := poly.Bound()
	var target sf.Geometry
	converted := false
	for _, piece := range rg {
		if !piece.Bound().Intersects(pb) {
			continue
		}
		if !converted {
			var err error
			if target, err = toGeometry(ClosePolygon(poly)); err != nil {
				logOverlay("intersects", err)
				return false
			}
			converted = true
		}
		g, err := toGeometry(orb.Polygon{CloseRing(piece)})
		if err != nil {
			logOverlay("intersects", err)
			continue
		}
		if sf.Intersects(g, target) {
			return true
		}
	}
	return false
}

// IntersectionArea returns the area of the part of poly covered by the
// region. Only pieces whose bounds meet the polygon take part in the overlay.
func (rg Region) IntersectionArea(poly orb.Polygon) float64 {
	if len(poly) == 0 || len(rg) == 0 {
		return 0
	}
	a, err := rg.overlayArea(poly)
	if err != nil {
		logOverlay("intersection area", err)
		return 0
	}
	return a
}
