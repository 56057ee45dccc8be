package osm

import (
	"fmt"
	"strconv"

	"kuanb/indoor-router/geom"
	"kuanb/indoor-router/indoor"

	"github.com/paulmach/orb"
)

type OsmWayId int64

type OsmNodeId int64

type OsmNode struct {
	ID   OsmNodeId
	Lat  float64
	Lon  float64
	Tags map[string]string
}

// IsDoor reports whether the node is tagged as a door or entrance
func (n *OsmNode) IsDoor() bool {
	if n.Tags == nil {
		return false
	}
	_, door := n.Tags["door"]
	_, entrance := n.Tags["entrance"]
	return door || entrance
}

// DoorWidth returns the width tag in meters or DefaultDoorWidth
func (n *OsmNode) DoorWidth() float64 {
	if w, err := strconv.ParseFloat(n.Tags["width"], 64); err == nil && w > 0 {
		return w
	}
	return DefaultDoorWidth
}

type OsmWay struct {
	ID    OsmWayId
	Nodes []OsmNodeId
	Tags  map[string]string
}

// Closed reports whether the way forms a ring
func (w *OsmWay) Closed() bool {
	return len(w.Nodes) >= 4 && w.Nodes[0] == w.Nodes[len(w.Nodes)-1]
}

// Label returns ref, then name, then the way id
func (w *OsmWay) Label() string {
	if ref := w.Tags["ref"]; ref != "" {
		return ref
	}
	if name := w.Tags["name"]; name != "" {
		return name
	}
	return fmt.Sprintf("way/%d", w.ID)
}

// OsmIndoor is a building decoded from OSM indoor tagging. Cell i of
// Building was built from way CellWays[i].
type OsmIndoor struct {
	Nodes      map[int64]*OsmNode
	Ways       map[int64]*OsmWay
	CellWays   []OsmWayId
	Building   *indoor.Building
	Projection geom.Projection
}

// Project converts a lon/lat position to building coordinates
func (g *OsmIndoor) Project(lon, lat float64) orb.Point {
	return g.Projection.Forward(lon, lat)
}

// ProjectAll converts lon/lat positions to building coordinates
func (g *OsmIndoor) ProjectAll(pts []orb.Point) []orb.Point {
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		out[i] = g.Projection.Forward(p[0], p[1])
	}
	return out
}
