package matching

import (
	"kuanb/indoor-router/indoor"

	"github.com/paulmach/orb"
)

// Direct resolves p by point in polygon. A point on a shared boundary keeps
// prev when prev is among the covering cells, otherwise the lowest index
// wins. Points outside every cell give indoor.Outside.
func Direct(b *indoor.Building, p orb.Point, prev indoor.CellIndex) indoor.CellIndex {
	cands := b.CellsContaining(p)
	if len(cands) == 1 {
		return cands[0]
	}
	for _, c := range cands {
		if c == prev {
			return c
		}
	}
	return cands[0]
}

// DirectMatcher is the geometric matcher. Its only state is the previous result.
type DirectMatcher struct {
	building *indoor.Building
	prev     indoor.CellIndex
}

// NewDirectMatcher creates a direct matcher
func NewDirectMatcher(b *indoor.Building) *DirectMatcher {
	return &DirectMatcher{building: b, prev: indoor.Outside}
}

// Next matches one point
func (m *DirectMatcher) Next(p orb.Point) indoor.CellIndex {
	m.prev = Direct(m.building, p, m.prev)
	return m.prev
}

// Match matches a trajectory point by point
func (m *DirectMatcher) Match(traj []orb.Point) []indoor.CellIndex {
	out := make([]indoor.CellIndex, len(traj))
	for i, p := range traj {
		out[i] = m.Next(p)
	}
	return out
}

// Reset forgets the previous result
func (m *DirectMatcher) Reset() {
	m.prev = indoor.Outside
}

// Labels converts match results to labels, sentinels included
func Labels(b *indoor.Building, cells []indoor.CellIndex) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = b.Label(c)
	}
	return out
}
