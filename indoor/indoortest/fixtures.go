// Package indoortest provides small buildings for tests.
package indoortest

import (
	"kuanb/indoor-router/indoor"

	"github.com/paulmach/orb"
)

// Rect returns the axis aligned rectangle polygon [x0,x1]×[y0,y1]
func Rect(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

// Door returns a two point door
func Door(x0, y0, x1, y1 float64) orb.LineString {
	return orb.LineString{{x0, y0}, {x1, y1}}
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func add(b *indoor.Building, label string, poly orb.Polygon, doors ...orb.LineString) *indoor.Cell {
	c := indoor.MustCell(poly)
	must(c.SetLabel(label))
	for _, d := range doors {
		must(c.AddDoor(d))
	}
	_, err := b.AddCell(c)
	must(err)
	return c
}

// Corridor returns three 10×10 rooms A, B and C in a row. A and B share a
// door on x=10 between y=4 and y=6, B and C share one on x=20.
func Corridor() *indoor.Building {
	b := indoor.NewBuilding()
	add(b, "A", Rect(0, 0, 10, 10), Door(10, 4, 10, 6))
	add(b, "B", Rect(10, 0, 20, 10), Door(10, 4, 10, 6), Door(20, 4, 20, 6))
	add(b, "C", Rect(20, 0, 30, 10), Door(20, 4, 20, 6))
	return b
}

// TwoRooms returns rooms A and B sharing the door on x=10
func TwoRooms() *indoor.Building {
	b := indoor.NewBuilding()
	add(b, "A", Rect(0, 0, 10, 10), Door(10, 4, 10, 6))
	add(b, "B", Rect(10, 0, 20, 10), Door(10, 4, 10, 6))
	return b
}

// ThickWall returns rooms A and B separated by a 0.2 wide wall. Each room
// carries its own copy of the door on its side of the wall.
func ThickWall() *indoor.Building {
	b := indoor.NewBuilding()
	add(b, "A", Rect(0, 0, 10, 10), Door(10, 4, 10, 6))
	add(b, "B", Rect(10.2, 0, 20, 10), Door(10.2, 4, 10.2, 6))
	return b
}

// LShape returns a single concave L-shaped room "L" covering
// [0,10]×[0,4] and [0,4]×[0,10]
func LShape() *indoor.Building {
	b := indoor.NewBuilding()
	add(b, "L", orb.Polygon{{{0, 0}, {10, 0}, {10, 4}, {4, 4}, {4, 10}, {0, 10}, {0, 0}}})
	return b
}

// LWithHall returns the L-shaped room with a hall "H" attached on the top of
// the vertical arm through a door on y=10 between x=1 and x=3.
func LWithHall() *indoor.Building {
	b := indoor.NewBuilding()
	add(b, "L", orb.Polygon{{{0, 0}, {10, 0}, {10, 4}, {4, 4}, {4, 10}, {0, 10}, {0, 0}}}, Door(1, 10, 3, 10))
	add(b, "H", Rect(0, 10, 10, 14), Door(1, 10, 3, 10))
	return b
}

// Isolated returns room A and a detached room Z without doors
func Isolated() *indoor.Building {
	b := indoor.NewBuilding()
	add(b, "A", Rect(0, 0, 10, 10))
	add(b, "Z", Rect(50, 0, 60, 10))
	return b
}
