package hmm

import (
	"math"
	"testing"

	"kuanb/indoor-router/indoor"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func textbook(t *testing.T) *Model {
	t.Helper()
	m, err := New(
		[]float64{0.6, 0.4},
		mat.NewDense(2, 2, []float64{0.7, 0.3, 0.4, 0.6}),
		mat.NewDense(2, 2, []float64{0.9, 0.1, 0.2, 0.8}),
	)
	require.NoError(t, err)
	return m
}

func TestEvaluateTextbook(t *testing.T) {
	m := textbook(t)

	p, err := m.Evaluate([]indoor.CellIndex{0, 0, 1})
	require.NoError(t, err)
	// alpha_0 = [.54 .08], alpha_1 = [.369 .042], alpha_2 = [.02751 .10872]
	assert.InDelta(t, 0.13623, p, 1e-12)

	lp, err := m.LogEvaluate([]indoor.CellIndex{0, 0, 1})
	require.NoError(t, err)
	assert.InDelta(t, math.Log(0.13623), lp, 1e-12)
}

func TestDecodeTextbook(t *testing.T) {
	m := textbook(t)

	path, err := m.Decode([]indoor.CellIndex{0, 0, 1})
	require.NoError(t, err)
	if diff := cmp.Diff([]indoor.CellIndex{0, 0, 1}, path); diff != "" {
		t.Errorf("viterbi path mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluateInputs(t *testing.T) {
	m := textbook(t)

	_, err := m.Evaluate(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	p, err := m.Evaluate([]indoor.CellIndex{})
	require.NoError(t, err)
	assert.Zero(t, p)

	_, err = m.Evaluate([]indoor.CellIndex{0, 2})
	assert.ErrorIs(t, err, ErrInvalidObservation)
	_, err = m.LogEvaluate([]indoor.CellIndex{indoor.Outside})
	assert.ErrorIs(t, err, ErrInvalidObservation)
	_, err = m.Decode(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestLogEvaluatePreservesOrdering(t *testing.T) {
	m := textbook(t)
	seqs := [][]indoor.CellIndex{
		{0, 0, 0}, {0, 0, 1}, {0, 1, 0}, {0, 1, 1},
		{1, 0, 0}, {1, 0, 1}, {1, 1, 0}, {1, 1, 1},
	}
	for i, a := range seqs {
		pa, err := m.Evaluate(a)
		require.NoError(t, err)
		la, err := m.LogEvaluate(a)
		require.NoError(t, err)
		assert.InDelta(t, math.Log(pa), la, 1e-9)
		for _, b := range seqs[i+1:] {
			pb, _ := m.Evaluate(b)
			lb, _ := m.LogEvaluate(b)
			assert.Equal(t, pa > pb, la > lb, "%v vs %v", a, b)
		}
	}
}

func TestLogEvaluateLongSequence(t *testing.T) {
	m := textbook(t)
	obs := make([]indoor.CellIndex, 2000)

	// the raw forward pass ends at or near the smallest subnormal
	p, err := m.Evaluate(obs)
	require.NoError(t, err)
	assert.Less(t, p, 1e-300)

	lp, err := m.LogEvaluate(obs)
	require.NoError(t, err)
	assert.False(t, math.IsInf(lp, 0))
	assert.Less(t, lp, 0.0)
}

func TestZeroProbability(t *testing.T) {
	m, err := New(
		[]float64{1, 0},
		mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
		mat.NewDense(2, 2, []float64{1, 0, 0, 1}),
	)
	require.NoError(t, err)

	p, err := m.Evaluate([]indoor.CellIndex{0, 1})
	require.NoError(t, err)
	assert.Zero(t, p)

	lp, err := m.LogEvaluate([]indoor.CellIndex{0, 1})
	require.NoError(t, err)
	assert.True(t, math.IsInf(lp, -1))

	// nothing beats -Inf at the end: the last observation is the terminal state
	path, err := m.Decode([]indoor.CellIndex{0, 1})
	require.NoError(t, err)
	assert.Equal(t, []indoor.CellIndex{0, 1}, path)
}

func TestEmissionUpdatedInPlace(t *testing.T) {
	b := mat.NewDense(2, 2, []float64{0.9, 0.1, 0.2, 0.8})
	m, err := New([]float64{0.6, 0.4}, mat.NewDense(2, 2, []float64{0.7, 0.3, 0.4, 0.6}), b)
	require.NoError(t, err)

	before, _ := m.Evaluate([]indoor.CellIndex{1})
	b.Set(0, 1, 0.5)
	b.Set(0, 0, 0.5)
	after, _ := m.Evaluate([]indoor.CellIndex{1})
	assert.InDelta(t, 0.06+0.32, before, 1e-12)
	assert.InDelta(t, 0.3+0.32, after, 1e-12)
}

func TestNewRejectsDimensions(t *testing.T) {
	_, err := New([]float64{1}, mat.NewDense(2, 2, nil), mat.NewDense(2, 2, nil))
	assert.ErrorIs(t, err, ErrDimension)

	_, err = New([]float64{0.5, 0.5}, mat.NewDense(2, 2, nil), mat.NewDense(3, 2, nil))
	assert.ErrorIs(t, err, ErrDimension)
}
