package matching

import (
	"log"
	"math"

	"kuanb/indoor-router/indoor"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/mat"
)

// TransitionStrategy fills the N×N transition matrix from the building
type TransitionStrategy interface {
	Fill(b *indoor.Building, a *mat.Dense)
}

// TopologyTransition spreads each row uniformly over the cell and its neighbours
type TopologyTransition struct{}

// Fill implements TransitionStrategy
func (TopologyTransition) Fill(b *indoor.Building, a *mat.Dense) {
	a.Zero()
	for i, row := range b.Topology() {
		for j, adjacent := range row {
			if adjacent {
				a.Set(i, j, 1)
			}
		}
	}
	normalizeRows(a)
}

// StaticTransition stays in a cell with SelfProbability. The rest is split
// over the neighbours by the cell's door count, so a row only sums to 1 when
// every door leads to a distinct neighbour.
type StaticTransition struct {
	SelfProbability float64
}

// Fill implements TransitionStrategy. A probability outside [0, 1] leaves a untouched.
func (s StaticTransition) Fill(b *indoor.Building, a *mat.Dense) {
	sigma := s.SelfProbability
	if sigma < 0 || sigma > 1 {
		log.Printf("[matching] ignoring static self probability %g", sigma)
		return
	}
	a.Zero()
	top := b.Topology()
	for i, row := range top {
		a.Set(i, i, sigma)
		doors := b.DoorCount(indoor.CellIndex(i))
		if doors == 0 {
			continue
		}
		for j, adjacent := range row {
			if adjacent && j != i {
				a.Set(i, j, (1-sigma)/float64(doors))
			}
		}
	}
}

// GraphDistanceTransition weights every reachable cell by the inverse of its
// hop count in the topology graph. A cell reaches itself with weight 1.
// Rows are only normalized when Normalize is set.
type GraphDistanceTransition struct {
	Normalize bool
}

// Fill implements TransitionStrategy
func (s GraphDistanceTransition) Fill(b *indoor.Building, a *mat.Dense) {
	a.Zero()
	hops := HopCounts(b)
	for i, row := range hops {
		for j, h := range row {
			switch {
			case i == j:
				a.Set(i, j, 1)
			case !math.IsInf(h, 1):
				a.Set(i, j, 1/h)
			}
		}
	}
	if s.Normalize {
		normalizeRows(a)
	}
}

// HopCounts returns the all pairs shortest hop counts of the topology graph
// (Floyd–Warshall). Unreachable pairs are +Inf.
func HopCounts(b *indoor.Building) [][]float64 {
	top := b.Topology()
	g := simple.NewUndirectedGraph()
	for i := range top {
		g.AddNode(simple.Node(i))
	}
	for i, row := range top {
		for j := i + 1; j < len(row); j++ {
			if row[j] {
				g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
			}
		}
	}
	paths, _ := path.FloydWarshall(g)

	out := make([][]float64, len(top))
	for i := range out {
		out[i] = make([]float64, len(top))
		for j := range out[i] {
			out[i][j] = paths.Weight(int64(i), int64(j))
		}
	}
	return out
}

// normalizeRows scales every non-zero row to sum 1; all-zero rows stay zero
func normalizeRows(m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		normalizeRow(m, i)
	}
}

func normalizeRow(m *mat.Dense, i int) {
	row := m.RawRowView(i)
	if sum := floats.Sum(row); sum > 0 {
		floats.Scale(1/sum, row)
	}
}

// RowSums returns the sum of every row
func RowSums(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = floats.Sum(mat.Row(nil, i, m))
	}
	return out
}
