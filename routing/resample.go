package routing

import (
	"errors"
	"fmt"

	"kuanb/indoor-router/geom"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrInvalidDistanceBudget is returned when a route cannot be cut at the requested distance
var ErrInvalidDistanceBudget = errors.New("invalid distance budget")

// lengthTolerance absorbs rounding when comparing route lengths with a budget
const lengthTolerance = 1e-9

// Cut returns the point reached after traveling exactly budget along route.
// The route must be at least budget long.
func Cut(route orb.LineString, budget float64) (orb.Point, error) {
	if budget <= 0 {
		return orb.Point{}, fmt.Errorf("%w: %g", ErrInvalidDistanceBudget, budget)
	}
	length := planar.Length(route)
	if length < budget {
		return orb.Point{}, fmt.Errorf("%w: route of %g is shorter than %g", ErrInvalidDistanceBudget, length, budget)
	}
	p, ok := geom.Cut(route, budget)
	if !ok {
		return orb.Point{}, fmt.Errorf("%w: %g", ErrInvalidDistanceBudget, budget)
	}
	return p, nil
}

// Resample bounds the indoor travel between consecutive trajectory points by
// maxStep. A pair whose route is longer is cut after maxStep along the route
// and the rest of the pair is routed again from the cut point.
//
// With keepPointCount the cut point replaces the next point, so the output
// has the input's length and the remaining travel carries into the next
// pair. Otherwise cut points are inserted until the next point is within
// reach, then the next point itself is appended. Pairs without a route are
// kept unchanged.
func (r *Router) Resample(traj []orb.Point, maxStep float64, keepPointCount bool) ([]orb.Point, error) {
	if maxStep <= 0 {
		return nil, fmt.Errorf("%w: max step %g", ErrInvalidDistanceBudget, maxStep)
	}
	if len(traj) == 0 {
		return nil, nil
	}

	out := make([]orb.Point, 1, len(traj))
	out[0] = traj[0]
	cur := traj[0]
	for _, next := range traj[1:] {
		route, err := r.Route(cur, next)
		if err != nil {
			out = append(out, next)
			cur = next
			continue
		}

		if keepPointCount {
			if planar.Length(route) > maxStep+lengthTolerance {
				cut, err := Cut(route, maxStep)
				if err != nil {
					return nil, err
				}
				next = cut
			}
			out = append(out, next)
			cur = next
			continue
		}

		for planar.Length(route) > maxStep+lengthTolerance {
			cut, err := Cut(route, maxStep)
			if err != nil {
				return nil, err
			}
			out = append(out, cut)
			cur = cut
			if route, err = r.Route(cur, next); err != nil {
				break
			}
		}
		out = append(out, next)
		cur = next
	}
	return out, nil
}
