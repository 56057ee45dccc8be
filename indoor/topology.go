package indoor

import (
	"kuanb/indoor-router/geom"

	"github.com/paulmach/orb"
)

// Topology returns the cell adjacency matrix. The diagonal is true and
// (i, j) is true when a door of i and a door of j describe the same opening:
// one covers the other within the door tolerance. The matrix is cached
// until the next mutation and must not be modified by callers.
func (b *Building) Topology() [][]bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.topology != nil {
		return b.topology
	}

	n := len(b.cells)
	t := make([][]bool, n)
	for i := range t {
		t[i] = make([]bool, n)
		t[i][i] = true
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if SharesDoor(b.cells[i], b.cells[j], b.doorTolerance) {
				t[i][j] = true
				t[j][i] = true
			}
		}
	}
	b.topology = t
	return t
}

// Neighbors returns, ascending, the cells adjacent to i excluding i itself
func (b *Building) Neighbors(i CellIndex) []CellIndex {
	if b.Cell(i) == nil {
		return nil
	}
	var out []CellIndex
	for j, adjacent := range b.Topology()[i] {
		if adjacent && CellIndex(j) != i {
			out = append(out, CellIndex(j))
		}
	}
	return out
}

// SharesDoor reports whether any door of a and any door of b match within tol
func SharesDoor(a, b *Cell, tol float64) bool {
	for _, da := range a.doors {
		for _, db := range b.doors {
			if DoorsMatch(da, db, tol) {
				return true
			}
		}
	}
	return false
}

// DoorsMatch reports whether one door covers the other within tol
func DoorsMatch(a, b orb.LineString, tol float64) bool {
	if !a.Bound().Pad(tol).Intersects(b.Bound()) {
		return false
	}
	return geom.LineCovers(a, b, tol) || geom.LineCovers(b, a, tol)
}
