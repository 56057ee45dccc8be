package routing

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"kuanb/indoor-router/geom"
	"kuanb/indoor-router/indoor"
	"kuanb/indoor-router/visgraph"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrNoRoute is returned when an endpoint lies outside every cell or the
// endpoints are not connected through doors
var ErrNoRoute = errors.New("no indoor route")

// Router answers point to point queries inside one building. It caches the
// building-wide door graph and a visibility graph per cell, and rebuilds them
// when the building changes.
type Router struct {
	building *indoor.Building

	mu      sync.Mutex
	version uint64
	doors   *visgraph.Graph
	cells   map[indoor.CellIndex]*visgraph.Graph
}

// NewRouter creates the routing context for a building
func NewRouter(b *indoor.Building) *Router {
	return &Router{
		building: b,
		version:  b.Version(),
		cells:    make(map[indoor.CellIndex]*visgraph.Graph),
	}
}

// Building returns the routed building
func (r *Router) Building() *indoor.Building {
	return r.building
}

// Invalidate drops the cached graphs
func (r *Router) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doors = nil
	r.cells = make(map[indoor.CellIndex]*visgraph.Graph)
}

// refresh must be called with mu held
func (r *Router) refresh() {
	if v := r.building.Version(); v != r.version {
		r.version = v
		r.doors = nil
		r.cells = make(map[indoor.CellIndex]*visgraph.Graph)
	}
}

// Route returns the shortest indoor route from p0 to p1. The route starts at
// p0, ends at p1 and only passes through cells and their doors. The one
// exception is a thick wall: two door copies within the door tolerance are
// joined by a link between their nearest endpoints, and that link crosses
// the wall outside every cell.
func (r *Router) Route(p0, p1 orb.Point) (orb.LineString, error) {
	c0 := r.building.CellsContaining(p0)
	c1 := r.building.CellsContaining(p1)
	if c0[0] == indoor.Outside {
		return nil, fmt.Errorf("%w: %v is outside all cells", ErrNoRoute, p0)
	}
	if c1[0] == indoor.Outside {
		return nil, fmt.Errorf("%w: %v is outside all cells", ErrNoRoute, p1)
	}

	if c, ok := commonCell(c0, c1); ok {
		if route, err := r.cellRoute(c, p0, p1); err == nil {
			return route, nil
		}
	}

	g := r.doorGraph().Clone()
	r.connect(g, p0, c0)
	r.connect(g, p1, c1)
	route, _, err := g.ShortestRoute(p0, p1)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoRoute, err)
	}
	return route, nil
}

// Distance returns the length of the indoor route from p0 to p1
func (r *Router) Distance(p0, p1 orb.Point) (float64, error) {
	route, err := r.Route(p0, p1)
	if err != nil {
		return math.Inf(1), err
	}
	return planar.Length(route), nil
}

// Locate resolves the cell p belongs to for a route. Among several covering
// cells the first one shared with other wins, then the first one whose door
// passes through p, then the lowest index.
func (r *Router) Locate(p, other orb.Point) indoor.CellIndex {
	cands := r.building.CellsContaining(p)
	if len(cands) == 1 {
		return cands[0]
	}
	if c, ok := commonCell(cands, r.building.CellsContaining(other)); ok {
		return c
	}
	for _, c := range cands {
		if r.building.Cell(c).OnDoor(p, geom.Epsilon) {
			return c
		}
	}
	return cands[0]
}

func commonCell(a, b []indoor.CellIndex) (indoor.CellIndex, bool) {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return x, true
			}
		}
	}
	return indoor.Outside, false
}

// connect adds the routes from p to every door of the given cells
func (r *Router) connect(g *visgraph.Graph, p orb.Point, cells []indoor.CellIndex) {
	g.AddNode(p)
	for _, c := range cells {
		for _, e := range r.building.Cell(c).DoorEndpoints() {
			if route, err := r.cellRoute(c, p, e); err == nil {
				g.AddEdges(route)
			}
		}
	}
}

// cellRoute routes between two points covered by the same cell: the straight
// segment when the cell covers it, else through the cell's visibility graph
func (r *Router) cellRoute(c indoor.CellIndex, p0, p1 orb.Point) (orb.LineString, error) {
	poly := r.building.Cell(c).Polygon()
	if geom.SegmentCovered(poly, p0, p1) {
		return orb.LineString{p0, p1}, nil
	}

	g := r.cellGraph(c).Clone()
	for _, p := range []orb.Point{p0, p1} {
		if g.Has(p) {
			continue
		}
		g.AddNode(p)
		for _, v := range geom.Vertices(poly) {
			if geom.SegmentCovered(poly, p, v) {
				g.AddEdge(p, v)
			}
		}
	}
	route, _, err := g.ShortestRoute(p0, p1)
	return route, err
}

func (r *Router) cellGraph(c indoor.CellIndex) *visgraph.Graph {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refresh()
	if g, ok := r.cells[c]; ok {
		return g
	}
	g := VisibilityGraph(r.building.Cell(c).Polygon())
	r.cells[c] = g
	return g
}

// VisibilityGraph connects every pair of polygon vertices whose segment the
// polygon covers
func VisibilityGraph(poly orb.Polygon) *visgraph.Graph {
	g := visgraph.New()
	verts := geom.Vertices(poly)
	for i, a := range verts {
		g.AddNode(a)
		for _, b := range verts[i+1:] {
			if geom.SegmentCovered(poly, a, b) {
				g.AddEdge(a, b)
			}
		}
	}
	return g
}

func (r *Router) doorGraph() *visgraph.Graph {
	r.mu.Lock()
	r.refresh()
	g := r.doors
	r.mu.Unlock()
	if g != nil {
		return g
	}

	g = r.buildDoorGraph()

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.doors == nil {
		r.doors = g
	}
	return r.doors
}

// buildDoorGraph links the doors of the building: every door polyline, the
// routes between the doors of one cell, and the gaps between door copies of
// neighbouring cells that lie within the door tolerance.
func (r *Router) buildDoorGraph() *visgraph.Graph {
	b := r.building
	g := visgraph.New()
	for i, cell := range b.Cells() {
		g.AddEdges(cell.Doors()...)
		ends := cell.DoorEndpoints()
		for k, a := range ends {
			for _, e := range ends[k+1:] {
				if route, err := r.cellRoute(indoor.CellIndex(i), a, e); err == nil {
					g.AddEdges(route)
				}
			}
		}
	}

	tol := b.DoorTolerance()
	cells := b.Cells()
	for i := range cells {
		for j := i + 1; j < len(cells); j++ {
			for _, di := range cells[i].Doors() {
				for _, dj := range cells[j].Doors() {
					if geom.LineDistance(di, dj) > tol {
						continue
					}
					linkNearest(g, di, dj)
					linkNearest(g, dj, di)
				}
			}
		}
	}
	return g
}

// linkNearest connects each endpoint of a to the closest endpoint of b
func linkNearest(g *visgraph.Graph, a, b orb.LineString) {
	ends := []orb.Point{b[0], b[len(b)-1]}
	for _, p := range []orb.Point{a[0], a[len(a)-1]} {
		best := ends[0]
		if planar.Distance(p, ends[1]) < planar.Distance(p, best) {
			best = ends[1]
		}
		g.AddEdge(p, best)
	}
}
