// Package hmm evaluates and decodes observation sequences under a discrete
// hidden Markov model. States and observation symbols share the
// indoor.CellIndex enumeration.
package hmm

import (
	"errors"
	"fmt"
	"math"

	"kuanb/indoor-router/indoor"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrInvalidInput is returned for a nil observation sequence
	ErrInvalidInput = errors.New("observation sequence is nil")
	// ErrInvalidObservation is returned for a symbol outside the emission alphabet
	ErrInvalidObservation = errors.New("observation outside the emission alphabet")
	// ErrDimension is returned when pi, A and B disagree on the number of states
	ErrDimension = errors.New("model dimensions do not match")
)

// Model holds the initial distribution pi, the N×N transition matrix A and
// the N×M emission matrix B. The matrices are read on every call, so callers
// may update them in place between evaluations.
type Model struct {
	n  int
	m  int
	pi []float64
	a  mat.Matrix
	b  mat.Matrix
}

// New creates a model. pi is copied; A and B are kept by reference.
func New(pi []float64, a, b mat.Matrix) (*Model, error) {
	n := len(pi)
	if ar, ac := a.Dims(); ar != n || ac != n {
		return nil, fmt.Errorf("%w: pi has %d states, A is %dx%d", ErrDimension, n, ar, ac)
	}
	br, bc := b.Dims()
	if br != n {
		return nil, fmt.Errorf("%w: pi has %d states, B has %d rows", ErrDimension, n, br)
	}
	return &Model{
		n:  n,
		m:  bc,
		pi: append([]float64(nil), pi...),
		a:  a,
		b:  b,
	}, nil
}

// States returns N
func (m *Model) States() int {
	return m.n
}

// SetInitial replaces the initial distribution
func (m *Model) SetInitial(pi []float64) error {
	if len(pi) != m.n {
		return fmt.Errorf("%w: %d initial probabilities for %d states", ErrDimension, len(pi), m.n)
	}
	copy(m.pi, pi)
	return nil
}

// Initial returns the initial distribution
func (m *Model) Initial() []float64 {
	return m.pi
}

func (m *Model) check(obs []indoor.CellIndex) error {
	if obs == nil {
		return ErrInvalidInput
	}
	for t, o := range obs {
		if o < 0 || int(o) >= m.m {
			return fmt.Errorf("%w: %v at %d", ErrInvalidObservation, o, t)
		}
	}
	return nil
}

// Evaluate returns the probability of the observation sequence with the
// forward algorithm. Long sequences underflow towards 0; LogEvaluate keeps
// the same ordering without underflow.
func (m *Model) Evaluate(obs []indoor.CellIndex) (float64, error) {
	if err := m.check(obs); err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return 0, nil
	}

	alpha := make([]float64, m.n)
	next := make([]float64, m.n)
	for i := range alpha {
		alpha[i] = m.pi[i] * m.b.At(i, int(obs[0]))
	}
	for _, o := range obs[1:] {
		for i := range next {
			e := m.b.At(i, int(o))
			if e == 0 {
				next[i] = 0
				continue
			}
			sum := 0.0
			for j, aj := range alpha {
				sum += aj * m.a.At(j, i)
			}
			next[i] = sum * e
		}
		alpha, next = next, alpha
	}

	p := 0.0
	for _, v := range alpha {
		p += v
	}
	return p, nil
}

// LogEvaluate returns the log probability of the observation sequence using
// a forward pass rescaled at every step. Impossible sequences give -Inf.
func (m *Model) LogEvaluate(obs []indoor.CellIndex) (float64, error) {
	if err := m.check(obs); err != nil {
		return 0, err
	}
	if len(obs) == 0 {
		return math.Inf(-1), nil
	}

	alpha := make([]float64, m.n)
	next := make([]float64, m.n)
	for i := range alpha {
		alpha[i] = m.pi[i] * m.b.At(i, int(obs[0]))
	}
	logp, ok := rescale(alpha)
	if !ok {
		return math.Inf(-1), nil
	}
	for _, o := range obs[1:] {
		for i := range next {
			e := m.b.At(i, int(o))
			if e == 0 {
				next[i] = 0
				continue
			}
			sum := 0.0
			for j, aj := range alpha {
				sum += aj * m.a.At(j, i)
			}
			next[i] = sum * e
		}
		alpha, next = next, alpha
		c, ok := rescale(alpha)
		if !ok {
			return math.Inf(-1), nil
		}
		logp += c
	}
	return logp, nil
}

// rescale normalizes v to sum 1 and returns the log of the old sum
func rescale(v []float64) (float64, bool) {
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	if sum <= 0 {
		return 0, false
	}
	for i := range v {
		v[i] /= sum
	}
	return math.Log(sum), true
}

// Decode returns the most likely state sequence (Viterbi, log space). Ties
// go to the lowest state. When every terminal state is impossible the last
// observation is taken as the terminal state, and a state without a possible
// predecessor points back to the previous observation.
func (m *Model) Decode(obs []indoor.CellIndex) ([]indoor.CellIndex, error) {
	if err := m.check(obs); err != nil {
		return nil, err
	}
	T := len(obs)
	if T == 0 {
		return []indoor.CellIndex{}, nil
	}

	delta := make([]float64, m.n)
	next := make([]float64, m.n)
	back := make([][]int, T)
	for i := range delta {
		delta[i] = math.Log(m.pi[i]) + math.Log(m.b.At(i, int(obs[0])))
	}

	for t := 1; t < T; t++ {
		back[t] = make([]int, m.n)
		for j := range next {
			best := math.Inf(-1)
			arg := m.fallback(obs[t-1])
			for i, d := range delta {
				if v := d + math.Log(m.a.At(i, j)); v > best {
					best = v
					arg = i
				}
			}
			next[j] = best + math.Log(m.b.At(j, int(obs[t])))
			back[t][j] = arg
		}
		delta, next = next, delta
	}

	last := m.fallback(obs[T-1])
	best := math.Inf(-1)
	for i, d := range delta {
		if d > best {
			best = d
			last = i
		}
	}

	path := make([]indoor.CellIndex, T)
	path[T-1] = indoor.CellIndex(last)
	for t := T - 1; t > 0; t-- {
		path[t-1] = indoor.CellIndex(back[t][path[t]])
	}
	return path, nil
}

// fallback maps an observation symbol onto a state; symbols beyond the
// state range map to state 0
func (m *Model) fallback(o indoor.CellIndex) int {
	if int(o) < m.n {
		return int(o)
	}
	return 0
}
