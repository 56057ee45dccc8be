package indoor

import (
	"errors"
	"fmt"

	"kuanb/indoor-router/geom"

	"github.com/paulmach/orb"
)

var (
	// ErrLabelAssigned is returned when a cell is labeled twice
	ErrLabelAssigned = errors.New("cell label already assigned")
	// ErrDoorNotCovered is returned when a door does not lie within the cell polygon
	ErrDoorNotCovered = errors.New("door not covered by cell polygon")
	// ErrInvalidDoor is returned for doors with fewer than two points
	ErrInvalidDoor = errors.New("door needs at least two points")
	// ErrInvalidPolygon is returned for polygons without an exterior ring
	ErrInvalidPolygon = errors.New("polygon needs an exterior ring of at least three points")
)

// Cell is a polygonal indoor space (room, corridor) with its doors.
// A cell belongs to at most one Building; mutating it invalidates the
// building's derived caches.
type Cell struct {
	label   string
	labeled bool
	polygon orb.Polygon
	doors   []orb.LineString
	owner   *Building
}

// NewCell creates an unlabeled cell without doors. Rings are closed if needed.
func NewCell(poly orb.Polygon) (*Cell, error) {
	if err := checkPolygon(poly); err != nil {
		return nil, err
	}
	return &Cell{polygon: geom.ClosePolygon(poly)}, nil
}

// MustCell is like NewCell but panics on an invalid polygon
func MustCell(poly orb.Polygon) *Cell {
	c, err := NewCell(poly)
	if err != nil {
		panic(err)
	}
	return c
}

func checkPolygon(poly orb.Polygon) error {
	if len(poly) == 0 || len(geom.Vertices(orb.Polygon{poly[0]})) < 3 {
		return ErrInvalidPolygon
	}
	return nil
}

// Label returns the cell's label, empty when unlabeled
func (c *Cell) Label() string {
	return c.label
}

// HasLabel reports whether a label was assigned
func (c *Cell) HasLabel() bool {
	return c.labeled
}

// SetLabel assigns the label. A label can only be assigned once.
func (c *Cell) SetLabel(label string) error {
	if c.labeled {
		return fmt.Errorf("%w: %q", ErrLabelAssigned, c.label)
	}
	c.label = label
	c.labeled = true
	c.changed()
	return nil
}

// Polygon returns the cell geometry
func (c *Cell) Polygon() orb.Polygon {
	return c.polygon
}

// Bound returns the bounding box of the exterior ring
func (c *Cell) Bound() orb.Bound {
	return c.polygon.Bound()
}

// Area returns the polygon area with holes removed
func (c *Cell) Area() float64 {
	return geom.PolygonArea(c.polygon)
}

// Covers reports whether p lies in the cell, boundary included
func (c *Cell) Covers(p orb.Point) bool {
	return geom.Covers(c.polygon, p)
}

// AddDoor appends a door. The door must lie within the polygon.
func (c *Cell) AddDoor(door orb.LineString) error {
	if len(door) < 2 {
		return ErrInvalidDoor
	}
	if !geom.LineCovered(c.polygon, door) {
		return fmt.Errorf("%w: %v", ErrDoorNotCovered, door)
	}
	c.doors = append(c.doors, door.Clone())
	c.changed()
	return nil
}

// Doors returns the cell's doors in insertion order
func (c *Cell) Doors() []orb.LineString {
	return c.doors
}

// DoorCount returns the number of doors of the cell
func (c *Cell) DoorCount() int {
	return len(c.doors)
}

// SetPolygon replaces the geometry. Existing doors must stay covered.
func (c *Cell) SetPolygon(poly orb.Polygon) error {
	if err := checkPolygon(poly); err != nil {
		return err
	}
	poly = geom.ClosePolygon(poly)
	for _, d := range c.doors {
		if !geom.LineCovered(poly, d) {
			return fmt.Errorf("%w: %v", ErrDoorNotCovered, d)
		}
	}
	c.polygon = poly
	c.changed()
	return nil
}

// AddHole cuts a hole into the cell
func (c *Cell) AddHole(hole orb.Ring) error {
	poly := make(orb.Polygon, len(c.polygon), len(c.polygon)+1)
	copy(poly, c.polygon)
	return c.SetPolygon(append(poly, geom.CloseRing(hole)))
}

// DoorEndpoints returns the first and last point of every door
func (c *Cell) DoorEndpoints() []orb.Point {
	pts := make([]orb.Point, 0, 2*len(c.doors))
	for _, d := range c.doors {
		pts = append(pts, d[0], d[len(d)-1])
	}
	return pts
}

// OnDoor reports whether p lies on one of the cell's doors within tol
func (c *Cell) OnDoor(p orb.Point, tol float64) bool {
	for _, d := range c.doors {
		for i := 0; i+1 < len(d); i++ {
			if geom.OnSegment(p, d[i], d[i+1], tol) {
				return true
			}
		}
	}
	return false
}

func (c *Cell) changed() {
	if c.owner != nil {
		c.owner.InvalidateTopology()
	}
}
