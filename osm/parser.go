package osm

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"runtime"
	"sort"

	"kuanb/indoor-router/geom"
	"kuanb/indoor-router/indoor"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/qedus/osmpbf"
)

// DefaultDoorWidth is used for door nodes without a width tag (meters)
const DefaultDoorWidth = 0.9

// indoorTypes lists the indoor=* values that become cells
var indoorTypes = map[string]struct{}{
	"room":     {},
	"corridor": {},
	"area":     {},
}

// LoadOsmFile reads indoor rooms, corridors and areas from a PBF file
func LoadOsmFile(filePath string) (*OsmIndoor, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// LoadBuilding reads a PBF file and returns only its building
func LoadBuilding(filePath string) (*indoor.Building, error) {
	g, err := LoadOsmFile(filePath)
	if err != nil {
		return nil, err
	}
	return g.Building, nil
}

// Decode reads an OSM PBF stream and builds the indoor model
func Decode(r io.Reader) (*OsmIndoor, error) {
	d := osmpbf.NewDecoder(r)

	// use more memory from the start, it is faster
	d.SetBufferSize(osmpbf.MaxBlobSize)

	// start decoding with several goroutines, it is faster
	if err := d.Start(runtime.GOMAXPROCS(-1)); err != nil {
		return nil, err
	}

	var nc, wc, rc uint64
	nodes := make(map[int64]*OsmNode)
	ways := make(map[int64]*OsmWay)

	for {
		if v, err := d.Decode(); err == io.EOF {
			break
		} else if err != nil {
			return nil, err
		} else {
			switch v := v.(type) {
			case *osmpbf.Node:
				nodes[v.ID] = &OsmNode{
					ID:   OsmNodeId(v.ID),
					Lat:  v.Lat,
					Lon:  v.Lon,
					Tags: v.Tags,
				}
				nc++
			case *osmpbf.Way:
				nodeIDs := make([]OsmNodeId, len(v.NodeIDs))
				for i, id := range v.NodeIDs {
					nodeIDs[i] = OsmNodeId(id)
				}
				ways[v.ID] = &OsmWay{
					ID:    OsmWayId(v.ID),
					Nodes: nodeIDs,
					Tags:  v.Tags,
				}
				wc++
			case *osmpbf.Relation:
				// multipolygon rooms are not supported
				rc++
			default:
				return nil, fmt.Errorf("unknown type %T", v)
			}
		}
	}
	log.Printf("Decoded %d nodes, %d ways, %d relations", nc, wc, rc)

	return Build(nodes, ways)
}

// Build turns decoded nodes and ways into a Building. Closed ways tagged
// indoor=room|corridor|area become cells in way id order; door or entrance
// nodes on their rings become doors along the wall.
func Build(nodes map[int64]*OsmNode, ways map[int64]*OsmWay) (*OsmIndoor, error) {
	// Remove ways that are not indoor cells
	filteredWays := make(map[int64]*OsmWay)
	usedNodeIDs := make(map[OsmNodeId]struct{})
	for id, way := range ways {
		if _, ok := indoorTypes[way.Tags["indoor"]]; !ok || !way.Closed() {
			continue
		}
		filteredWays[id] = way
		for _, nid := range way.Nodes {
			usedNodeIDs[nid] = struct{}{}
		}
	}
	log.Printf("Dropped %d ways (kept %d)", len(ways)-len(filteredWays), len(filteredWays))

	// Remove any nodes not used in the remaining ways
	filteredNodes := make(map[int64]*OsmNode)
	for nid := range usedNodeIDs {
		n, ok := nodes[int64(nid)]
		if !ok {
			return nil, fmt.Errorf("node %d referenced but not present", nid)
		}
		filteredNodes[int64(nid)] = n
	}
	log.Printf("Dropped %d nodes (kept %d)", len(nodes)-len(filteredNodes), len(filteredNodes))

	proj := projectionFor(filteredNodes)
	ids := make([]int64, 0, len(filteredWays))
	for id := range filteredWays {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	g := &OsmIndoor{
		Nodes:      filteredNodes,
		Ways:       filteredWays,
		Building:   indoor.NewBuilding(),
		Projection: proj,
	}
	var doors int
	for _, id := range ids {
		way := filteredWays[id]
		ring := buildRing(way.Nodes, filteredNodes, proj)
		c, err := indoor.NewCell(orb.Polygon{ring})
		if err != nil {
			log.Printf("Skipping way %d: %v", id, err)
			continue
		}
		if err := c.SetLabel(way.Label()); err != nil {
			return nil, err
		}
		for k, nid := range way.Nodes[:len(way.Nodes)-1] {
			n := filteredNodes[int64(nid)]
			if !n.IsDoor() {
				continue
			}
			door := doorAt(ring, k, n.DoorWidth())
			if err := c.AddDoor(door); err != nil {
				log.Printf("Skipping door node %d on way %d: %v", nid, id, err)
				continue
			}
			doors++
		}
		if _, err := g.Building.AddCell(c); err != nil {
			return nil, err
		}
		g.CellWays = append(g.CellWays, way.ID)
	}
	log.Printf("Built %d cells with %d doors", g.Building.Len(), doors)
	return g, nil
}

// projectionFor centers a local projection on the bounding box of the nodes
func projectionFor(nodes map[int64]*OsmNode) geom.Projection {
	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	for _, n := range nodes {
		minLon = math.Min(minLon, n.Lon)
		maxLon = math.Max(maxLon, n.Lon)
		minLat = math.Min(minLat, n.Lat)
		maxLat = math.Max(maxLat, n.Lat)
	}
	if len(nodes) == 0 {
		return geom.NewProjection(0, 0)
	}
	return geom.NewProjection((minLon+maxLon)/2, (minLat+maxLat)/2)
}

// buildRing creates the projected ring of a closed way
func buildRing(nodeIDs []OsmNodeId, nodes map[int64]*OsmNode, proj geom.Projection) orb.Ring {
	ring := make(orb.Ring, 0, len(nodeIDs))
	for _, nid := range nodeIDs {
		if node, ok := nodes[int64(nid)]; ok {
			ring = append(ring, proj.Forward(node.Lon, node.Lat))
		}
	}
	return ring
}

// doorAt returns a door of the given width centered on vertex k of the
// closed ring, running along the two walls that meet there. Each half is
// clamped to half of its wall.
func doorAt(ring orb.Ring, k int, width float64) orb.LineString {
	n := len(ring) - 1
	v := ring[k]
	prev := ring[(k-1+n)%n]
	next := ring[(k+1)%n]
	return orb.LineString{
		along(v, prev, width/2),
		v,
		along(v, next, width/2),
	}
}

// along moves from a towards b by d, at most half way
func along(a, b orb.Point, d float64) orb.Point {
	l := planar.Distance(a, b)
	if l == 0 {
		return a
	}
	t := math.Min(d, l/2) / l
	return orb.Point{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
}
