package geom

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/tidwall/rtree"
)

// RTreeItem represents an item stored in the RTree
type RTreeItem struct {
	ID int
}

// RTree wraps tidwall/rtree for spatial indexing of cell bounds
type RTree struct {
	tree *rtree.RTreeG[RTreeItem]
}

// NewRTree creates a new RTree
func NewRTree() *RTree {
	return &RTree{
		tree: &rtree.RTreeG[RTreeItem]{},
	}
}

// Insert adds an item to the RTree with the given bounding box
func (r *RTree) Insert(id int, b orb.Bound) {
	r.tree.Insert(
		[2]float64{b.Min[0], b.Min[1]},
		[2]float64{b.Max[0], b.Max[1]},
		RTreeItem{ID: id},
	)
}

// Search returns the ids, ascending, of all items whose bounding boxes intersect the query bbox
func (r *RTree) Search(b orb.Bound) []int {
	result := make([]int, 0)
	r.tree.Search(
		[2]float64{b.Min[0], b.Min[1]},
		[2]float64{b.Max[0], b.Max[1]},
		func(min, max [2]float64, item RTreeItem) bool {
			result = append(result, item.ID)
			return true // continue searching
		},
	)
	sort.Ints(result)
	return result
}

// SearchNearPoint returns all item ids within a planar distance of a point's bbox
func (r *RTree) SearchNearPoint(p orb.Point, distance float64) []int {
	return r.Search(orb.Bound{Min: p, Max: p}.Pad(distance))
}

// Size returns the number of items in the RTree
func (r *RTree) Size() int {
	return r.tree.Len()
}
