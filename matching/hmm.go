package matching

import (
	"errors"
	"math"

	"kuanb/indoor-router/hmm"
	"kuanb/indoor-router/indoor"

	"github.com/paulmach/orb"
	"gonum.org/v1/gonum/mat"
)

// DefaultMaxHistory bounds the prior observations re-evaluated on every step
const DefaultMaxHistory = 256

// ErrEmptyBuilding is returned when a matcher is built for a building without cells
var ErrEmptyBuilding = errors.New("building has no cells")

// Options configures the HMM matcher
type Options struct {
	// CandidateRadius is the first search radius around a position
	CandidateRadius float64
	// InitialRadius is the first radius of the initial distribution circle
	InitialRadius float64
	// MaxRadiusDoublings bounds every radius search
	MaxRadiusDoublings int
	// MaxHistory limits the resolved states used as prior observations, 0 keeps all
	MaxHistory int
	// FallbackToDirect resolves Impossible steps with the direct matcher
	FallbackToDirect bool

	Transition TransitionStrategy
	Emission   EmissionStrategy
}

// DefaultOptions returns the options used by NewHMMMatcher for unset fields
func DefaultOptions() Options {
	return Options{
		CandidateRadius:    1.0,
		InitialRadius:      1.0,
		MaxRadiusDoublings: 8,
		MaxHistory:         DefaultMaxHistory,
		FallbackToDirect:   true,
		Transition:         TopologyTransition{},
		Emission:           CellBufferEmission{Radius: 1.0},
	}
}

// Precomputed holds the matrices of a building that do not change while
// matching: the transition matrix and, for static emission strategies, the
// emission matrix. It is read-only once built and can back any number of
// matchers, including matchers used from different goroutines. The building
// must not be mutated afterwards.
type Precomputed struct {
	building *indoor.Building
	opts     Options
	a        *mat.Dense
	// e is nil when the emission strategy updates its matrix while matching
	e *mat.Dense
}

// NewPrecomputed fills in unset options and builds the shared matrices
func NewPrecomputed(b *indoor.Building, opts Options) (*Precomputed, error) {
	n := b.Len()
	if n == 0 {
		return nil, ErrEmptyBuilding
	}
	def := DefaultOptions()
	if opts.CandidateRadius <= 0 {
		opts.CandidateRadius = def.CandidateRadius
	}
	if opts.InitialRadius <= 0 {
		opts.InitialRadius = def.InitialRadius
	}
	if opts.MaxRadiusDoublings < 0 {
		opts.MaxRadiusDoublings = 0
	}
	if opts.Transition == nil {
		opts.Transition = def.Transition
	}
	if opts.Emission == nil {
		opts.Emission = def.Emission
	}

	p := &Precomputed{
		building: b,
		opts:     opts,
		a:        mat.NewDense(n, n, nil),
	}
	opts.Transition.Fill(b, p.a)

	e := mat.NewDense(n, n, nil)
	if _, static := opts.Emission.Init(b, e).(staticEmission); static {
		p.e = e
	}
	return p, nil
}

// Options returns the completed options
func (p *Precomputed) Options() Options {
	return p.opts
}

// NewMatcher returns a fresh matcher over the shared matrices
func (p *Precomputed) NewMatcher() *HMMMatcher {
	n := p.building.Len()
	m := &HMMMatcher{
		building: p.building,
		opts:     p.opts,
		a:        p.a,
		e:        p.e,
		shared:   p.e != nil,
	}
	if !m.shared {
		m.e = mat.NewDense(n, n, nil)
	}
	// dimensions match by construction
	m.model, _ = hmm.New(make([]float64, n), m.a, m.e)
	m.Reset()
	return m
}

// HMMMatcher is the online HMM matcher. Transition and emission matrices are
// derived from the building when the matcher is created; the emission
// updater then follows every resolved position.
//
// A matcher is not safe for concurrent use.
type HMMMatcher struct {
	building *indoor.Building
	opts     Options

	a        *mat.Dense
	e        *mat.Dense
	shared   bool
	model    *hmm.Model
	emission EmissionUpdater

	initialized bool
	prev        indoor.CellIndex
	history     []indoor.CellIndex
	results     []indoor.CellIndex
}

// NewHMMMatcher builds the matrices for the building
func NewHMMMatcher(b *indoor.Building, opts Options) (*HMMMatcher, error) {
	p, err := NewPrecomputed(b, opts)
	if err != nil {
		return nil, err
	}
	return p.NewMatcher(), nil
}

// Reset forgets the matched history and restarts the emission updater
func (m *HMMMatcher) Reset() {
	if m.shared {
		m.emission = staticEmission{}
	} else {
		m.emission = m.opts.Emission.Init(m.building, m.e)
	}
	m.initialized = false
	m.prev = indoor.Outside
	m.history = nil
	m.results = nil
}

// Transition returns the transition matrix
func (m *HMMMatcher) Transition() mat.Matrix {
	return m.a
}

// Emission returns the live emission matrix
func (m *HMMMatcher) Emission() mat.Matrix {
	return m.e
}

// Model returns the underlying HMM
func (m *HMMMatcher) Model() *hmm.Model {
	return m.model
}

// History returns the resolved states observed so far
func (m *HMMMatcher) History() []indoor.CellIndex {
	return m.history
}

// Results returns the result of every Next call, sentinels included
func (m *HMMMatcher) Results() []indoor.CellIndex {
	return m.results
}

// Next matches one position. The first position also sets the initial
// distribution. An Impossible step falls back to the direct matcher when
// enabled. Resolved cells extend the history and feed the emission updater.
func (m *HMMMatcher) Next(p orb.Point) indoor.CellIndex {
	if !m.initialized {
		pi, err := InitialDistribution(m.building, p, m.opts.InitialRadius, m.opts.MaxRadiusDoublings)
		if err == nil {
			// dimensions are fixed at construction
			_ = m.model.SetInitial(pi)
			m.initialized = true
		}
	}

	c := indoor.Impossible
	if m.initialized {
		c, _ = m.MatchNext(p, m.prior())
	}
	if c == indoor.Impossible && m.opts.FallbackToDirect {
		c = Direct(m.building, p, m.prev)
	}

	m.prev = c
	m.results = append(m.results, c)
	if c.Valid() {
		m.history = append(m.history, c)
		m.emission.Observe(p, c)
	}
	return c
}

// Match runs Next over a trajectory
func (m *HMMMatcher) Match(traj []orb.Point) []indoor.CellIndex {
	out := make([]indoor.CellIndex, len(traj))
	for i, p := range traj {
		out[i] = m.Next(p)
	}
	return out
}

func (m *HMMMatcher) prior() []indoor.CellIndex {
	h := m.history
	if m.opts.MaxHistory > 0 && len(h) > m.opts.MaxHistory {
		h = h[len(h)-m.opts.MaxHistory:]
	}
	return h
}

// MatchNext scores every candidate cell around p as the next observation
// after prior and returns the best one. Ties keep the lowest index. When no
// candidate has a positive probability the result is indoor.Impossible.
func (m *HMMMatcher) MatchNext(p orb.Point, prior []indoor.CellIndex) (indoor.CellIndex, error) {
	cands, err := Candidates(m.building, p, m.opts.CandidateRadius, m.opts.MaxRadiusDoublings)
	if err != nil {
		return indoor.Impossible, err
	}

	obs := make([]indoor.CellIndex, len(prior)+1)
	copy(obs, prior)
	best, bestScore := indoor.Impossible, math.Inf(-1)
	for _, c := range cands {
		obs[len(prior)] = c
		score, err := m.model.LogEvaluate(obs)
		if err != nil {
			return indoor.Impossible, err
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	return best, nil
}

// Decode returns the Viterbi path over the resolved history
func (m *HMMMatcher) Decode() ([]indoor.CellIndex, error) {
	if !m.initialized {
		return []indoor.CellIndex{}, nil
	}
	return m.model.Decode(m.history)
}
