package geom

import (
	"fmt"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/planar"
	sf "github.com/peterstace/simplefeatures/geom"
)

// toGeometry converts an orb geometry to a simplefeatures geometry through WKB
func toGeometry(g orb.Geometry) (sf.Geometry, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return sf.Geometry{}, fmt.Errorf("encode wkb: %w", err)
	}
	out, err := sf.UnmarshalWKB(data)
	if err != nil {
		return sf.Geometry{}, fmt.Errorf("decode wkb: %w", err)
	}
	return out, nil
}

// lineGeometry converts a polyline, collapsing repeated points. A polyline
// with a single distinct point becomes a point.
func lineGeometry(ls orb.LineString) (sf.Geometry, error) {
	pts := make(orb.LineString, 0, len(ls))
	for i, p := range ls {
		if i == 0 || p != ls[i-1] {
			pts = append(pts, p)
		}
	}
	switch len(pts) {
	case 0:
		return sf.Geometry{}, nil
	case 1:
		return toGeometry(pts[0])
	}
	return toGeometry(pts)
}

// union returns the union of the pieces whose bounds meet within. Pieces
// without area are skipped.
func (rg Region) union(within orb.Bound) (sf.Geometry, error) {
	var out sf.Geometry
	for _, piece := range rg {
		if !piece.Bound().Intersects(within) || planar.Area(piece) == 0 {
			continue
		}
		g, err := toGeometry(orb.Polygon{CloseRing(piece)})
		if err != nil {
			return sf.Geometry{}, err
		}
		if out.IsEmpty() {
			out = g
			continue
		}
		if out, err = sf.Union(out, g); err != nil {
			return sf.Geometry{}, fmt.Errorf("union: %w", err)
		}
	}
	return out, nil
}

// overlayArea returns the area shared by the region and the polygon
func (rg Region) overlayArea(poly orb.Polygon) (float64, error) {
	pb := poly.Bound()
	cover, err := rg.union(pb)
	if err != nil || cover.IsEmpty() {
		return 0, err
	}
	target, err := toGeometry(ClosePolygon(poly))
	if err != nil {
		return 0, err
	}
	shared, err := sf.Intersection(cover, target)
	if err != nil {
		return 0, fmt.Errorf("intersection: %w", err)
	}
	return shared.Area(), nil
}

func logOverlay(op string, err error) {
	log.Printf("[geom] %s: %v", op, err)
}
