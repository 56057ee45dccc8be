package osm

import (
	"testing"

	"kuanb/indoor-router/indoor"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deg = 0.0001

// twoRoomsOsm has rooms A and B sharing the wall through node 5, which is a door.
func twoRoomsOsm() (map[int64]*OsmNode, map[int64]*OsmWay) {
	node := func(id int64, lon, lat float64, tags map[string]string) *OsmNode {
		return &OsmNode{ID: OsmNodeId(id), Lon: lon, Lat: lat, Tags: tags}
	}
	nodes := map[int64]*OsmNode{
		1: node(1, 0, 0, nil),
		2: node(2, deg, 0, nil),
		3: node(3, deg, deg, nil),
		4: node(4, 0, deg, nil),
		5: node(5, deg, deg/2, map[string]string{"door": "hinged"}),
		6: node(6, 2*deg, 0, nil),
		7: node(7, 2*deg, deg, nil),
		8: node(8, 5*deg, 5*deg, nil),
		9: node(9, 6*deg, 5*deg, nil),
	}
	ways := map[int64]*OsmWay{
		20: {ID: 20, Nodes: []OsmNodeId{2, 6, 7, 3, 5, 2}, Tags: map[string]string{"indoor": "corridor", "name": "B"}},
		10: {ID: 10, Nodes: []OsmNodeId{1, 2, 5, 3, 4, 1}, Tags: map[string]string{"indoor": "room", "ref": "A", "name": "ignored"}},
		30: {ID: 30, Nodes: []OsmNodeId{8, 9}, Tags: map[string]string{"highway": "footway"}},
		40: {ID: 40, Nodes: []OsmNodeId{1, 2, 3}, Tags: map[string]string{"indoor": "room"}},
	}
	return nodes, ways
}

func TestBuild(t *testing.T) {
	g, err := Build(twoRoomsOsm())
	require.NoError(t, err)

	b := g.Building
	require.Equal(t, 2, b.Len())
	assert.Equal(t, []OsmWayId{10, 20}, g.CellWays)
	assert.Equal(t, "A", b.Label(0))
	assert.Equal(t, "B", b.Label(1))
	assert.Len(t, g.Nodes, 7)
	assert.Len(t, g.Ways, 2)

	assert.Equal(t, 1, b.DoorCount(0))
	assert.Equal(t, 1, b.DoorCount(1))
	assert.Equal(t, []indoor.CellIndex{1}, b.Neighbors(0))

	// about 11 m x 11 m each
	assert.InDelta(t, 11.1, b.Cell(0).Bound().Max[0]-b.Cell(0).Bound().Min[0], 0.1)

	mid := g.Project(deg/2, deg/2)
	assert.Equal(t, []indoor.CellIndex{0}, b.CellsContaining(mid))
}

func TestBuildMissingNode(t *testing.T) {
	nodes, ways := twoRoomsOsm()
	delete(nodes, 7)
	_, err := Build(nodes, ways)
	assert.Error(t, err)
}

func TestBuildEmpty(t *testing.T) {
	g, err := Build(map[int64]*OsmNode{}, map[int64]*OsmWay{})
	require.NoError(t, err)
	assert.Zero(t, g.Building.Len())
}

func TestWayLabel(t *testing.T) {
	assert.Equal(t, "101", (&OsmWay{ID: 1, Tags: map[string]string{"ref": "101", "name": "Lab"}}).Label())
	assert.Equal(t, "Lab", (&OsmWay{ID: 1, Tags: map[string]string{"name": "Lab"}}).Label())
	assert.Equal(t, "way/7", (&OsmWay{ID: 7}).Label())
}

func TestDoorWidth(t *testing.T) {
	assert.Equal(t, 1.2, (&OsmNode{Tags: map[string]string{"door": "yes", "width": "1.2"}}).DoorWidth())
	assert.Equal(t, DefaultDoorWidth, (&OsmNode{Tags: map[string]string{"door": "yes", "width": "wide"}}).DoorWidth())
	assert.True(t, (&OsmNode{Tags: map[string]string{"entrance": "main"}}).IsDoor())
	assert.False(t, (&OsmNode{}).IsDoor())
}

func TestDoorAt(t *testing.T) {
	ring := orb.Ring{{0, 0}, {4, 0}, {4, 1}, {0, 1}, {0, 0}}

	door := doorAt(ring, 1, 2)
	assert.Equal(t, orb.LineString{{3, 0}, {4, 0}, {4, 0.5}}, door)

	// the first vertex wraps around to the closing edge
	door = doorAt(ring, 0, 0.5)
	assert.Equal(t, orb.LineString{{0, 0.25}, {0, 0}, {0.25, 0}}, door)
	assert.InDelta(t, 0.5, planar.Length(door), 1e-12)
}
