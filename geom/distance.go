package geom

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	sf "github.com/peterstace/simplefeatures/geom"
)

const EarthRadiusMeters = 6371000.0

// Epsilon is the tolerance used for coincidence tests on planar coordinates (meters).
const Epsilon = 1e-9

// Projection maps lon/lat degrees onto a local plane in meters using an
// equirectangular projection centered on an origin (accurate for building-sized extents)
type Projection struct {
	lon0   float64
	lat0   float64
	cosLat float64
}

// NewProjection creates a projection centered on the given origin
func NewProjection(lon0, lat0 float64) Projection {
	return Projection{
		lon0:   lon0,
		lat0:   lat0,
		cosLat: math.Cos(toRad(lat0)),
	}
}

// Forward returns the planar position of lon/lat in meters east and north of the origin
func (p Projection) Forward(lon, lat float64) orb.Point {
	x := toRad(lon-p.lon0) * p.cosLat * EarthRadiusMeters
	y := toRad(lat-p.lat0) * EarthRadiusMeters
	return orb.Point{x, y}
}

// Inverse converts a planar position back to lon/lat degrees
func (p Projection) Inverse(pt orb.Point) (lon, lat float64) {
	lon = p.lon0 + toDeg(pt[0]/(p.cosLat*EarthRadiusMeters))
	lat = p.lat0 + toDeg(pt[1]/EarthRadiusMeters)
	return lon, lat
}

func toRad(deg float64) float64 { return deg * math.Pi / 180.0 }

func toDeg(rad float64) float64 { return rad * 180.0 / math.Pi }

// SamePoint reports whether two points coincide within Epsilon
func SamePoint(a, b orb.Point) bool {
	return math.Abs(a[0]-b[0]) <= Epsilon && math.Abs(a[1]-b[1]) <= Epsilon
}

// LineDistance returns the shortest distance between two polylines, +Inf
// when either is empty or cannot be converted
func LineDistance(l1, l2 orb.LineString) float64 {
	g1, err := lineGeometry(l1)
	if err != nil {
		logOverlay("line distance", err)
		return math.Inf(1)
	}
	g2, err := lineGeometry(l2)
	if err != nil {
		logOverlay("line distance", err)
		return math.Inf(1)
	}
	d, ok := sf.Distance(g1, g2)
	if !ok {
		return math.Inf(1)
	}
	return d
}

// LineCovers reports whether every point of inner lies within tol of outer,
// i.e. whether outer buffered by tol covers inner
func LineCovers(outer, inner orb.LineString, tol float64) bool {
	if len(outer) == 0 || len(inner) == 0 {
		return false
	}
	within := func(p orb.Point) bool {
		return planar.DistanceFrom(outer, p) <= tol
	}
	for i, p := range inner {
		if !within(p) {
			return false
		}
		// a straight inner segment bends away from a polyline only between vertices
		if i+1 < len(inner) && !within(interpolate(p, inner[i+1], 0.5)) {
			return false
		}
	}
	return true
}
