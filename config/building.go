package config

import (
	"log"

	"kuanb/indoor-router/indoor"
	"kuanb/indoor-router/osm"
)

// Load reads the configured building and applies the door tolerance
func (c BuildingConfig) Load() (*indoor.Building, error) {
	var (
		b   *indoor.Building
		err error
	)
	switch c.Format {
	case "osm":
		b, err = osm.LoadBuilding(c.Path)
	default:
		b, err = indoor.LoadGeoJSON(c.Path)
	}
	if err != nil {
		return nil, err
	}
	if c.DoorTolerance > 0 {
		b.SetDoorTolerance(c.DoorTolerance)
	}
	log.Printf("[config] loaded %d cells from %s (%s)", b.Len(), c.Path, c.Format)
	return b, nil
}
