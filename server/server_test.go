package server

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kuanb/indoor-router/indoor/indoortest"
	"kuanb/indoor-router/matching"

	"github.com/google/go-cmp/cmp"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	opts := matching.DefaultOptions()
	opts.Transition = matching.StaticTransition{SelfProbability: 0.9}
	return New(indoortest.TwoRooms(), Options{Matcher: opts, MaxStep: 4}).Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func row(y float64, xs ...float64) []Coord {
	out := make([]Coord, len(xs))
	for i, x := range xs {
		out[i] = Coord{X: x, Y: y}
	}
	return out
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestMatchHMM(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/match", MatchRequest{
		Points: row(5, 2, 4, 6, 8, 9.5, 12, 14, 16, 18),
		Decode: true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MatchResponse
	decode(t, rec, &resp)
	want := []string{"A", "A", "A", "A", "A", "B", "B", "B", "B"}
	if diff := cmp.Diff(want, resp.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "hmm", resp.Matcher)
	assert.Equal(t, []int{0, 0, 0, 0, 0, 1, 1, 1, 1}, resp.Cells)
	assert.Equal(t, want, resp.Decoded)
}

func TestMatchDirect(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/api/match", MatchRequest{
		Points:  []Coord{{5, 5}, {15, 5}, {50, 50}},
		Matcher: "direct",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MatchResponse
	decode(t, rec, &resp)
	assert.Equal(t, []string{"A", "B", "Outside"}, resp.Labels)
	assert.Equal(t, []int{0, 1, -1}, resp.Cells)
	assert.Empty(t, resp.Decoded)
}

func TestMatchInvalid(t *testing.T) {
	h := newTestServer(t)
	tests := map[string]interface{}{
		"no points":       MatchRequest{},
		"unknown matcher": MatchRequest{Points: row(5, 1), Matcher: "nearest"},
		"not json":        "{",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/api/match", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp ErrResponse
			decode(t, rec, &resp)
			assert.Equal(t, "Invalid request.", resp.StatusText)
		})
	}

	rec := do(t, h, http.MethodPost, "/api/match", MatchRequest{Matcher: "direct"})
	var resp ErrResponse
	decode(t, rec, &resp)
	require.Len(t, resp.ErrValidation, 1)
	assert.Contains(t, resp.ErrValidation[0], "Points is a required field")
}

func TestRoute(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/route", RouteRequest{From: &Coord{5, 3}, To: &Coord{15, 3}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		From     string  `json:"from"`
		To       string  `json:"to"`
		Distance float64 `json:"distance"`
		Route    struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string       `json:"type"`
				Coordinates [][2]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"route"`
	}
	decode(t, rec, &resp)
	assert.Equal(t, "A", resp.From)
	assert.Equal(t, "B", resp.To)
	assert.InDelta(t, 2*math.Sqrt(26), resp.Distance, 1e-9)
	assert.Equal(t, "Feature", resp.Route.Type)
	assert.Equal(t, "LineString", resp.Route.Geometry.Type)
	coords := resp.Route.Geometry.Coordinates
	require.NotEmpty(t, coords)
	assert.Equal(t, [2]float64{5, 3}, coords[0])
	assert.Equal(t, [2]float64{15, 3}, coords[len(coords)-1])
}

func TestRouteErrors(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/route", RouteRequest{From: &Coord{5, 3}, To: &Coord{50, 50}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/route", RouteRequest{From: &Coord{5, 3}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResample(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodPost, "/api/resample", ResampleRequest{Points: []Coord{{5, 3}, {15, 3}}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp ResampleResponse
	decode(t, rec, &resp)
	// a route of about 10.2 m at the default 4 m step
	require.Len(t, resp.Points, 4)
	assert.Equal(t, Coord{5, 3}, resp.Points[0])
	assert.Equal(t, Coord{15, 3}, resp.Points[3])

	rec = do(t, h, http.MethodPost, "/api/resample", ResampleRequest{
		Points:         []Coord{{5, 3}, {15, 3}},
		MaxStep:        4,
		KeepPointCount: true,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decode(t, rec, &resp)
	assert.Len(t, resp.Points, 2)

	rec = do(t, h, http.MethodPost, "/api/resample", ResampleRequest{Points: row(5, 1), MaxStep: -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTopologyAndBuilding(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodGet, "/api/topology", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var topo TopologyResponse
	decode(t, rec, &topo)
	require.Len(t, topo.Cells, 2)
	assert.Equal(t, CellResponse{Index: 0, Label: "A", Area: 100, Doors: 1, Neighbors: []string{"B"}}, topo.Cells[0])
	assert.Equal(t, [][]bool{{true, true}, {true, true}}, topo.Adjacency)

	rec = do(t, h, http.MethodGet, "/api/building", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FeatureCollection"`)
}

func TestSessionLifecycle(t *testing.T) {
	h := newTestServer(t)

	rec := do(t, h, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created SessionResponse
	decode(t, rec, &created)
	require.NotEmpty(t, created.ID)
	base := "/api/sessions/" + created.ID

	rec = do(t, h, http.MethodPost, base+"/points", PointsRequest{Points: row(5, 2, 4)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var pushed PointsResponse
	decode(t, rec, &pushed)
	assert.Equal(t, []string{"A", "A"}, pushed.Labels)

	rec = do(t, h, http.MethodPost, base+"/points", PointsRequest{Points: row(5, 6, 14)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, h, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var state SessionResponse
	decode(t, rec, &state)
	assert.Equal(t, []string{"A", "A", "A", "B"}, state.Results)
	assert.Equal(t, state.Results, state.History)
	assert.Equal(t, state.History, state.Decoded)

	rec = do(t, h, http.MethodGet, "/debug/runtime", nil)
	var rt RuntimeMetrics
	decode(t, rec, &rt)
	assert.Equal(t, 1, rt.Sessions)

	rec = do(t, h, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionBadID(t *testing.T) {
	h := newTestServer(t)
	rec := do(t, h, http.MethodGet, "/api/sessions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/sessions/6f1c1a52-3a4e-4d8a-9a3b-2d0c1f0e9b77/points", PointsRequest{Points: row(5, 1)})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t)
	do(t, h, http.MethodPost, "/api/match", MatchRequest{Points: row(5, 2), Matcher: "direct"})

	rec := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `indoor_http_requests_total{code="200",method="POST",route="/api/match"} 1`), body)
	assert.Contains(t, body, `indoor_matched_points_total{matcher="direct"} 1`)
}

func TestSessionStoreExpire(t *testing.T) {
	st := NewSessionStore(indoortest.TwoRooms(), matching.DefaultOptions())
	s, err := st.Create()
	require.NoError(t, err)
	s.Push([]orb.Point{{5, 5}})
	assert.Equal(t, 1, st.Len())

	assert.Zero(t, st.Expire(s.Created))
	assert.Equal(t, 1, st.Expire(s.Created.Add(time.Hour)))
	assert.Zero(t, st.Len())
	assert.ErrorIs(t, st.Delete(s.ID), ErrSessionNotFound)
}

func TestMatchersShareMatrices(t *testing.T) {
	opts := matching.DefaultOptions()
	opts.Transition = matching.StaticTransition{SelfProbability: 0.9}
	s := New(indoortest.TwoRooms(), Options{Matcher: opts})

	m1, err := s.matchers.NewMatcher()
	require.NoError(t, err)
	sess, err := s.Sessions().Create()
	require.NoError(t, err)

	assert.Same(t, m1.Transition(), sess.matcher.Transition())
	assert.Same(t, m1.Emission(), sess.matcher.Emission())

	// a matcher's history does not leak into the next one
	m1.Match([]orb.Point{{5, 5}, {15, 5}})
	m2, err := s.matchers.NewMatcher()
	require.NoError(t, err)
	assert.Empty(t, m2.History())
	assert.Equal(t, []string{"A"}, matching.Labels(s.building, m2.Match([]orb.Point{{5, 5}})))
}

func TestMatchPointCap(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/api/match", MatchRequest{
		Points:  make([]Coord, 10001),
		Matcher: "direct",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
