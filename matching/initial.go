package matching

import (
	"errors"
	"fmt"

	"kuanb/indoor-router/geom"
	"kuanb/indoor-router/indoor"

	"github.com/paulmach/orb"
)

// ErrNoCandidate is returned when no cell is found around a position after
// the maximum number of radius doublings
var ErrNoCandidate = errors.New("no candidate cell")

// InitialDistribution shares the probability mass among the cells by the
// area they cover of the circle of the given radius around p. The radius is
// doubled up to maxDoublings times until some cell is hit.
func InitialDistribution(b *indoor.Building, p orb.Point, radius float64, maxDoublings int) ([]float64, error) {
	pi := make([]float64, b.Len())
	r := radius
	for attempt := 0; attempt <= maxDoublings; attempt++ {
		rg := geom.Region{geom.Circle(p, r)}
		total := 0.0
		for _, c := range b.CellsIntersecting(rg) {
			a := rg.IntersectionArea(b.Cell(c).Polygon())
			pi[c] = a
			total += a
		}
		if total > 0 {
			for i := range pi {
				pi[i] /= total
			}
			return pi, nil
		}
		r *= 2
	}
	return nil, fmt.Errorf("%w: within %g of %v", ErrNoCandidate, r/2, p)
}

// Candidates returns the cells intersecting the circle of the given radius
// around p, doubling the radius up to maxDoublings times while none is found
func Candidates(b *indoor.Building, p orb.Point, radius float64, maxDoublings int) ([]indoor.CellIndex, error) {
	r := radius
	for attempt := 0; attempt <= maxDoublings; attempt++ {
		if cands := b.CellsIntersecting(geom.Region{geom.Circle(p, r)}); len(cands) > 0 {
			return cands, nil
		}
		r *= 2
	}
	return nil, fmt.Errorf("%w: within %g of %v", ErrNoCandidate, r/2, p)
}
