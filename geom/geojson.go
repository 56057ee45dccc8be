package geom

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrEmptyTrajectory is returned when a collection carries no coordinates
var ErrEmptyTrajectory = errors.New("no coordinates found in GeoJSON")

// Trajectory extracts the ordered positions of a GeoJSON FeatureCollection.
// Points, MultiPoints and LineStrings contribute their coordinates in feature order.
func Trajectory(fc *geojson.FeatureCollection) ([]orb.Point, error) {
	var coords []orb.Point
	for _, feature := range fc.Features {
		switch g := feature.Geometry.(type) {
		case orb.Point:
			coords = append(coords, g)
		case orb.MultiPoint:
			coords = append(coords, g...)
		case orb.LineString:
			coords = append(coords, g...)
		case orb.MultiLineString:
			for _, ls := range g {
				coords = append(coords, ls...)
			}
		}
	}
	if len(coords) == 0 {
		return nil, ErrEmptyTrajectory
	}
	return coords, nil
}

// DecodeTrajectory parses GeoJSON bytes into a trajectory
func DecodeTrajectory(data []byte) ([]orb.Point, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	return Trajectory(fc)
}

// RouteFeature wraps a route as a GeoJSON LineString feature
func RouteFeature(route orb.LineString, props map[string]interface{}) *geojson.Feature {
	f := geojson.NewFeature(route)
	for k, v := range props {
		f.Properties[k] = v
	}
	return f
}
