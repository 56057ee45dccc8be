// Package visgraph is an undirected Euclidean-weighted graph over segment
// endpoints. Nodes are identified by their exact coordinate.
package visgraph

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

var (
	// ErrUnknownNode is returned when a query endpoint was never added to the graph
	ErrUnknownNode = errors.New("point is not a graph node")
	// ErrNoRoute is returned when the endpoints are not connected
	ErrNoRoute = errors.New("no route between points")
)

// Graph maps coordinates onto a gonum weighted undirected graph
type Graph struct {
	g   *simple.WeightedUndirectedGraph
	ids map[orb.Point]int64
	pts []orb.Point
}

// New creates an empty graph
func New() *Graph {
	return &Graph{
		g:   simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		ids: make(map[orb.Point]int64),
	}
}

func (vg *Graph) node(p orb.Point) graph.Node {
	if id, ok := vg.ids[p]; ok {
		return vg.g.Node(id)
	}
	id := int64(len(vg.pts))
	n := simple.Node(id)
	vg.g.AddNode(n)
	vg.ids[p] = id
	vg.pts = append(vg.pts, p)
	return n
}

// AddNode registers p without edges
func (vg *Graph) AddNode(p orb.Point) {
	vg.node(p)
}

// AddEdge connects a and b with their Euclidean distance. A shorter existing
// edge is kept; a zero length edge only registers the node.
func (vg *Graph) AddEdge(a, b orb.Point) {
	na, nb := vg.node(a), vg.node(b)
	if na.ID() == nb.ID() {
		return
	}
	w := planar.Distance(a, b)
	if old, ok := vg.g.Weight(na.ID(), nb.ID()); ok && old <= w {
		return
	}
	vg.g.SetWeightedEdge(vg.g.NewWeightedEdge(na, nb, w))
}

// AddEdges splits every polyline into its segments and adds them as edges
func (vg *Graph) AddEdges(lines ...orb.LineString) {
	for _, ls := range lines {
		if len(ls) == 1 {
			vg.node(ls[0])
		}
		for i := 0; i+1 < len(ls); i++ {
			vg.AddEdge(ls[i], ls[i+1])
		}
	}
}

// Has reports whether p is a node
func (vg *Graph) Has(p orb.Point) bool {
	_, ok := vg.ids[p]
	return ok
}

// Len returns the number of nodes
func (vg *Graph) Len() int {
	return len(vg.pts)
}

// Clone returns an independent copy that can be extended per query
func (vg *Graph) Clone() *Graph {
	c := &Graph{
		g:   simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		ids: make(map[orb.Point]int64, len(vg.ids)),
		pts: make([]orb.Point, len(vg.pts)),
	}
	graph.CopyWeighted(c.g, vg.g)
	copy(c.pts, vg.pts)
	for p, id := range vg.ids {
		c.ids[p] = id
	}
	return c
}

// ShortestRoute runs Dijkstra from p0 to p1 and returns the route start to
// end with its length. Both points must be nodes.
func (vg *Graph) ShortestRoute(p0, p1 orb.Point) (orb.LineString, float64, error) {
	id0, ok0 := vg.ids[p0]
	id1, ok1 := vg.ids[p1]
	if !ok0 || !ok1 {
		return nil, 0, ErrUnknownNode
	}
	nodes, w := path.DijkstraFrom(vg.g.Node(id0), vg.g).To(vg.g.Node(id1).ID())
	if len(nodes) == 0 || math.IsInf(w, 1) {
		return nil, 0, ErrNoRoute
	}
	route := make(orb.LineString, 0, len(nodes)+1)
	for _, n := range nodes {
		route = append(route, vg.pts[n.ID()])
	}
	if len(route) == 1 {
		route = append(route, route[0])
	}
	return route, w, nil
}
