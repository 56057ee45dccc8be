package indoor

import (
	"errors"
	"log"
	"math"
	"strconv"
	"sync"

	"kuanb/indoor-router/geom"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// CellIndex identifies a cell by its insertion position in a Building. The
// same enumeration is used for HMM states and observation symbols.
type CellIndex int

const (
	// Outside is the result for points not covered by any cell
	Outside CellIndex = -1
	// Impossible is the result of a matching step without a positive score
	Impossible CellIndex = -2
)

// Valid reports whether i refers to a cell rather than a sentinel
func (i CellIndex) Valid() bool {
	return i >= 0
}

func (i CellIndex) String() string {
	switch i {
	case Outside:
		return "Outside"
	case Impossible:
		return "Impossible"
	}
	return strconv.Itoa(int(i))
}

const (
	// DefaultDoorTolerance is the distance within which two door geometries
	// are considered the same opening (thick walls)
	DefaultDoorTolerance = 0.25
	// ContainmentTolerance is the buffer applied to a point that no cell covers
	ContainmentTolerance = 1e-6
)

// ErrCellOwned is returned when a cell is added to a second building
var ErrCellOwned = errors.New("cell already belongs to a building")

// Building is the ordered collection of cells of one floor. Insertion order
// is the permanent cell index.
//
// Derived data (label map, spatial index, topology) is built lazily and
// dropped whenever a member cell changes. Mutations are single writer;
// concurrent readers are safe once the building is no longer modified.
type Building struct {
	cells         []*Cell
	doorTolerance float64

	mu       sync.Mutex
	version  uint64
	labels   map[string]CellIndex
	index    *geom.RTree
	topology [][]bool
}

// NewBuilding creates an empty building with the default door tolerance
func NewBuilding() *Building {
	return &Building{doorTolerance: DefaultDoorTolerance}
}

// SetDoorTolerance changes the door matching tolerance
func (b *Building) SetDoorTolerance(tol float64) {
	b.doorTolerance = tol
	b.InvalidateTopology()
}

// DoorTolerance returns the door matching tolerance
func (b *Building) DoorTolerance() float64 {
	return b.doorTolerance
}

// AddCell appends a cell and returns its index
func (b *Building) AddCell(c *Cell) (CellIndex, error) {
	if c.owner != nil {
		return Outside, ErrCellOwned
	}
	c.owner = b
	b.cells = append(b.cells, c)
	b.InvalidateTopology()
	return CellIndex(len(b.cells) - 1), nil
}

// Len returns the number of cells
func (b *Building) Len() int {
	return len(b.cells)
}

// Cell returns the cell at index i, nil for sentinels or out of range indices
func (b *Building) Cell(i CellIndex) *Cell {
	if i < 0 || int(i) >= len(b.cells) {
		return nil
	}
	return b.cells[i]
}

// Cells returns all cells in index order
func (b *Building) Cells() []*Cell {
	return b.cells
}

// Version changes every time derived data is invalidated
func (b *Building) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// InvalidateTopology drops the topology, label map and spatial index. It is
// called by every cell mutation.
func (b *Building) InvalidateTopology() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.version++
	b.labels = nil
	b.index = nil
	b.topology = nil
}

// Label returns the label of cell i or the sentinel name
func (b *Building) Label(i CellIndex) string {
	if c := b.Cell(i); c != nil {
		return c.Label()
	}
	return i.String()
}

// Lookup returns the index of the cell with the given label.
// Duplicate labels resolve to the first cell.
func (b *Building) Lookup(label string) (CellIndex, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.labels == nil {
		b.labels = make(map[string]CellIndex, len(b.cells))
		for i, c := range b.cells {
			if !c.HasLabel() {
				log.Printf("[indoor] cell %d has no label", i)
				continue
			}
			if prev, ok := b.labels[c.Label()]; ok {
				log.Printf("[indoor] duplicate label %q on cells %d and %d, keeping %d", c.Label(), prev, i, prev)
				continue
			}
			b.labels[c.Label()] = CellIndex(i)
		}
	}
	i, ok := b.labels[label]
	return i, ok
}

func (b *Building) spatialIndex() *geom.RTree {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.index == nil {
		b.index = geom.NewRTree()
		for i, c := range b.cells {
			b.index.Insert(i, c.Bound())
		}
	}
	return b.index
}

// CellsContaining returns, ascending, the cells whose polygon covers p.
// A point missed only by rounding is assigned to the nearest cell within
// ContainmentTolerance. Otherwise the result is [Outside].
func (b *Building) CellsContaining(p orb.Point) []CellIndex {
	idx := b.spatialIndex()
	var out []CellIndex
	for _, id := range idx.SearchNearPoint(p, 0) {
		if b.cells[id].Covers(p) {
			out = append(out, CellIndex(id))
		}
	}
	if len(out) > 0 {
		return out
	}

	best, bestDist := Outside, math.Inf(1)
	for _, id := range idx.SearchNearPoint(p, ContainmentTolerance) {
		d := planar.DistanceFrom(b.cells[id].Polygon(), p)
		if d <= ContainmentTolerance && d < bestDist {
			best, bestDist = CellIndex(id), d
		}
	}
	return []CellIndex{best}
}

// CellsIntersecting returns, ascending, the cells sharing at least one point with the region
func (b *Building) CellsIntersecting(rg geom.Region) []CellIndex {
	var out []CellIndex
	for _, id := range b.spatialIndex().Search(rg.Bound()) {
		if rg.Intersects(b.cells[id].Polygon()) {
			out = append(out, CellIndex(id))
		}
	}
	return out
}

// DoorCount returns the number of doors of cell i
func (b *Building) DoorCount(i CellIndex) int {
	if c := b.Cell(i); c != nil {
		return c.DoorCount()
	}
	return 0
}
