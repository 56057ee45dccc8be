package routing

import (
	"testing"

	"kuanb/indoor-router/indoor/indoortest"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCut(t *testing.T) {
	route := orb.LineString{{0, 0}, {4, 0}, {4, 4}}

	p, err := Cut(route, 6)
	require.NoError(t, err)
	assert.InDelta(t, 4, p[0], 1e-12)
	assert.InDelta(t, 2, p[1], 1e-12)

	p, err = Cut(route, 8)
	require.NoError(t, err)
	assert.Equal(t, orb.Point{4, 4}, p)

	_, err = Cut(route, 9)
	assert.ErrorIs(t, err, ErrInvalidDistanceBudget)
	_, err = Cut(route, 0)
	assert.ErrorIs(t, err, ErrInvalidDistanceBudget)
}

func TestResampleBoundsSteps(t *testing.T) {
	r := NewRouter(indoortest.TwoRooms())
	traj := []orb.Point{{5, 3}, {15, 3}, {16, 3}}
	const maxStep = 3.0

	out, err := r.Resample(traj, maxStep, false)
	require.NoError(t, err)
	require.Len(t, out, 6)
	assert.Equal(t, traj[0], out[0])
	assert.Equal(t, traj[1], out[4])
	assert.Equal(t, traj[2], out[5])

	for i := 0; i+1 < len(out); i++ {
		d, err := r.Distance(out[i], out[i+1])
		require.NoError(t, err)
		assert.LessOrEqual(t, d, maxStep+1e-9, "step %d", i)
	}

	again, err := r.Resample(out, maxStep, false)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestResampleKeepPointCount(t *testing.T) {
	r := NewRouter(indoortest.TwoRooms())
	traj := []orb.Point{{5, 3}, {15, 3}, {16, 3}, {17, 3}}
	const maxStep = 3.0

	out, err := r.Resample(traj, maxStep, true)
	require.NoError(t, err)
	require.Len(t, out, len(traj))
	assert.Equal(t, traj[0], out[0])

	for i := 0; i+1 < len(out); i++ {
		d, err := r.Distance(out[i], out[i+1])
		require.NoError(t, err)
		assert.LessOrEqual(t, d, maxStep+1e-9, "step %d", i)
	}

	again, err := r.Resample(out, maxStep, true)
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestResampleKeepsUnroutablePairs(t *testing.T) {
	r := NewRouter(indoortest.TwoRooms())
	traj := []orb.Point{{5, 5}, {-5, 5}, {5, 6}}

	out, err := r.Resample(traj, 1, false)
	require.NoError(t, err)
	assert.Equal(t, traj, out)
}

func TestResampleRejectsBudget(t *testing.T) {
	r := NewRouter(indoortest.TwoRooms())
	_, err := r.Resample([]orb.Point{{1, 1}}, 0, false)
	assert.ErrorIs(t, err, ErrInvalidDistanceBudget)

	out, err := r.Resample(nil, 1, false)
	require.NoError(t, err)
	assert.Empty(t, out)
}
