package matching

import (
	"kuanb/indoor-router/geom"
	"kuanb/indoor-router/indoor"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

// EmissionStrategy fills the N×N emission matrix. Row i says how likely a
// position resolved to cell i is observed as each cell.
type EmissionStrategy interface {
	Init(b *indoor.Building, e *mat.Dense) EmissionUpdater
}

// EmissionUpdater is told about every resolved position of the online loop
type EmissionUpdater interface {
	Observe(p orb.Point, s indoor.CellIndex)
}

type staticEmission struct{}

func (staticEmission) Observe(orb.Point, indoor.CellIndex) {}

// CellBufferEmission sets B[i][i] to the area of cell i and B[i][j] to the
// area of cell j within Radius of cell i, then normalizes every row. The
// matrix does not change while matching.
type CellBufferEmission struct {
	Radius float64
}

// Init implements EmissionStrategy
func (s CellBufferEmission) Init(b *indoor.Building, e *mat.Dense) EmissionUpdater {
	e.Zero()
	for i, c := range b.Cells() {
		e.Set(i, i, c.Area())
		rg := geom.PolygonBuffer(c.Polygon(), s.Radius)
		for _, j := range b.CellsIntersecting(rg) {
			if int(j) == i {
				continue
			}
			e.Set(i, int(j), rg.IntersectionArea(b.Cell(j).Polygon()))
		}
	}
	normalizeRows(e)
	return staticEmission{}
}

// CircleBufferEmission builds each state's row from the circles of Radius
// around the last Window positions resolved to that state. Row s holds the
// area of every cell covered by the union of those circles. A state with no
// position left in the window has an all-zero row. Window <= 0 keeps every
// position.
type CircleBufferEmission struct {
	Radius float64
	Window int
}

// Init implements EmissionStrategy
func (s CircleBufferEmission) Init(b *indoor.Building, e *mat.Dense) EmissionUpdater {
	e.Zero()
	return &CircleWindow{
		building: b,
		e:        e,
		radius:   s.Radius,
		window:   s.Window,
		active:   make(map[indoor.CellIndex][]orb.Ring),
	}
}

type contribution struct {
	state indoor.CellIndex
	ring  orb.Ring
}

// CircleWindow is the updater of CircleBufferEmission. It keeps the window
// as a queue and, per state, the circles it still contributes in arrival
// order, so an eviction only recomputes the evicted state's row.
type CircleWindow struct {
	building *indoor.Building
	e        *mat.Dense
	radius   float64
	window   int

	queue  []contribution
	active map[indoor.CellIndex][]orb.Ring
}

// Observe adds the circle around p to state s, evicting the oldest position
// first when the window is full
func (w *CircleWindow) Observe(p orb.Point, s indoor.CellIndex) {
	if !s.Valid() {
		return
	}
	if w.window > 0 && len(w.queue) == w.window {
		old := w.queue[0]
		w.queue = w.queue[1:]
		rings := w.active[old.state][1:]
		if len(rings) == 0 {
			delete(w.active, old.state)
		} else {
			w.active[old.state] = rings
		}
		w.recompute(old.state)
	}

	ring := geom.Circle(p, w.radius)
	w.queue = append(w.queue, contribution{state: s, ring: ring})
	w.active[s] = append(w.active[s], ring)
	w.recompute(s)
}

// Contributions returns the number of circles state s currently holds
func (w *CircleWindow) Contributions(s indoor.CellIndex) int {
	return len(w.active[s])
}

// Len returns the number of positions in the window
func (w *CircleWindow) Len() int {
	return len(w.queue)
}

func (w *CircleWindow) recompute(s indoor.CellIndex) {
	row := w.e.RawRowView(int(s))
	for j := range row {
		row[j] = 0
	}
	rings, ok := w.active[s]
	if !ok {
		return
	}
	rg := geom.Region(rings)
	for _, j := range w.building.CellsIntersecting(rg) {
		row[j] = rg.IntersectionArea(w.building.Cell(j).Polygon())
	}
	normalizeRow(w.e, int(s))
}
