package indoor

import (
	"fmt"
	"log"
	"os"

	"kuanb/indoor-router/geom"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// LoadGeoJSON reads a building from a GeoJSON file
func LoadGeoJSON(filePath string) (*Building, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	b, err := DecodeGeoJSON(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	return b, nil
}

// DecodeGeoJSON builds a Building from a FeatureCollection.
//
// Polygon features become cells in file order, labeled by their "label"
// property. LineString features with "door": true are attached to every cell
// covering them, or only to the cells named in a "cells" property.
func DecodeGeoJSON(data []byte) (*Building, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("invalid GeoJSON: %w", err)
	}

	b := NewBuilding()
	var doors []*geojson.Feature
	for k, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			c, err := NewCell(g)
			if err != nil {
				return nil, fmt.Errorf("feature %d: %w", k, err)
			}
			if label, _ := f.Properties["label"].(string); label != "" {
				if err := c.SetLabel(label); err != nil {
					return nil, err
				}
			}
			if _, err := b.AddCell(c); err != nil {
				return nil, err
			}
		case orb.LineString:
			if door, _ := f.Properties["door"].(bool); door {
				doors = append(doors, f)
			}
		default:
			log.Printf("[indoor] skipping feature %d with geometry %T", k, f.Geometry)
		}
	}
	if tol, _ := fc.ExtraMembers["door_tolerance"].(float64); tol > 0 {
		b.SetDoorTolerance(tol)
	}

	for _, f := range doors {
		door := f.Geometry.(orb.LineString)
		targets := doorTargets(b, f)
		attached := 0
		for _, i := range targets {
			c := b.Cell(i)
			if !geom.LineCovered(c.Polygon(), door) {
				continue
			}
			if err := c.AddDoor(door); err != nil {
				return nil, err
			}
			attached++
		}
		if attached == 0 {
			log.Printf("[indoor] door %v is not covered by any cell", door)
		}
	}
	return b, nil
}

func doorTargets(b *Building, f *geojson.Feature) []CellIndex {
	raw, ok := f.Properties["cells"].([]interface{})
	if !ok {
		out := make([]CellIndex, b.Len())
		for i := range out {
			out[i] = CellIndex(i)
		}
		return out
	}
	var out []CellIndex
	for _, v := range raw {
		label, _ := v.(string)
		if i, ok := b.Lookup(label); ok {
			out = append(out, i)
		} else {
			log.Printf("[indoor] door references unknown cell %q", label)
		}
	}
	return out
}

// FeatureCollection renders the building as GeoJSON: one Polygon feature per
// cell followed by one LineString feature per door.
func (b *Building) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i, c := range b.cells {
		f := geojson.NewFeature(c.Polygon())
		f.Properties["index"] = i
		if c.HasLabel() {
			f.Properties["label"] = c.Label()
		}
		f.Properties["doors"] = c.DoorCount()
		fc.Append(f)
	}
	for i, c := range b.cells {
		for _, d := range c.Doors() {
			f := geojson.NewFeature(d)
			f.Properties["door"] = true
			f.Properties["cells"] = []string{b.Label(CellIndex(i))}
			fc.Append(f)
		}
	}
	return fc
}
