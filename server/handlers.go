package server

import (
	"errors"
	"log"
	"net/http"
	"time"

	"kuanb/indoor-router/geom"
	"kuanb/indoor-router/indoor"
	"kuanb/indoor-router/matching"
	"kuanb/indoor-router/routing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Coord is a planar position in building coordinates (meters)
type Coord struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (c Coord) Point() orb.Point {
	return orb.Point{c.X, c.Y}
}

func points(cs []Coord) []orb.Point {
	out := make([]orb.Point, len(cs))
	for i, c := range cs {
		out[i] = c.Point()
	}
	return out
}

func coords(pts []orb.Point) []Coord {
	out := make([]Coord, len(pts))
	for i, p := range pts {
		out[i] = Coord{X: p[0], Y: p[1]}
	}
	return out
}

func cellIDs(cells []indoor.CellIndex) []int {
	out := make([]int, len(cells))
	for i, c := range cells {
		out[i] = int(c)
	}
	return out
}

// MatchRequest is the body of a batch matching request
type MatchRequest struct {
	Points []Coord `json:"points" validate:"required,min=1,max=10000"`
	// Matcher is "direct" or "hmm" (default)
	Matcher string `json:"matcher" validate:"oneof=direct hmm"`
	// Decode adds the Viterbi path over the resolved cells
	Decode bool `json:"decode"`
}

func (m *MatchRequest) Bind(r *http.Request) error {
	if m.Matcher == "" {
		m.Matcher = "hmm"
	}
	return nil
}

type MatchResponse struct {
	Matcher string   `json:"matcher"`
	Cells   []int    `json:"cells"`
	Labels  []string `json:"labels"`
	Decoded []string `json:"decoded,omitempty"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	data := &MatchRequest{}
	if !s.bind(w, r, data) {
		return
	}
	traj := points(data.Points)

	resp := &MatchResponse{Matcher: data.Matcher}
	var cells []indoor.CellIndex
	switch data.Matcher {
	case "direct":
		cells = matching.NewDirectMatcher(s.building).Match(traj)
	default:
		m, err := s.matchers.NewMatcher()
		if err != nil {
			render.Render(w, r, ErrUnprocessable(err))
			return
		}
		cells = m.Match(traj)
		if data.Decode {
			decoded, err := m.Decode()
			if err != nil {
				log.Printf("[server] decode: %v", err)
				render.Render(w, r, ErrInternalServerError(errors.New("internal server error")))
				return
			}
			resp.Decoded = matching.Labels(s.building, decoded)
		}
	}
	s.countMatched(data.Matcher, cells)

	resp.Cells = cellIDs(cells)
	resp.Labels = matching.Labels(s.building, cells)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

func (s *Server) countMatched(matcher string, cells []indoor.CellIndex) {
	for _, c := range cells {
		switch {
		case c.Valid():
			s.metrics.matchedPoints.WithLabelValues(matcher).Inc()
		case c == indoor.Impossible:
			s.metrics.impossible.Inc()
		}
	}
}

// RouteRequest is the body of a routing request
type RouteRequest struct {
	From *Coord `json:"from" validate:"required"`
	To   *Coord `json:"to" validate:"required"`
}

func (rr *RouteRequest) Bind(r *http.Request) error {
	return nil
}

type RouteResponse struct {
	From     string           `json:"from"`
	To       string           `json:"to"`
	Distance float64          `json:"distance"`
	Route    *geojson.Feature `json:"route"`
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	data := &RouteRequest{}
	if !s.bind(w, r, data) {
		return
	}
	p0, p1 := data.From.Point(), data.To.Point()

	route, err := s.router.Route(p0, p1)
	if errors.Is(err, routing.ErrNoRoute) {
		render.Render(w, r, ErrNotFound(err))
		return
	} else if err != nil {
		log.Printf("[server] route: %v", err)
		render.Render(w, r, ErrInternalServerError(errors.New("internal server error")))
		return
	}

	from := s.building.Label(s.router.Locate(p0, p1))
	to := s.building.Label(s.router.Locate(p1, p0))
	dist := planar.Length(route)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, &RouteResponse{
		From:     from,
		To:       to,
		Distance: dist,
		Route: geom.RouteFeature(route, map[string]interface{}{
			"from":     from,
			"to":       to,
			"distance": dist,
		}),
	})
}

// ResampleRequest is the body of a resampling request
type ResampleRequest struct {
	Points []Coord `json:"points" validate:"required,min=1,max=100000"`
	// MaxStep is the largest route distance between consecutive points, 0 uses the server default
	MaxStep        float64 `json:"maxStep" validate:"gte=0"`
	KeepPointCount bool    `json:"keepPointCount"`
}

func (rr *ResampleRequest) Bind(r *http.Request) error {
	return nil
}

type ResampleResponse struct {
	Points []Coord `json:"points"`
}

func (s *Server) handleResample(w http.ResponseWriter, r *http.Request) {
	data := &ResampleRequest{}
	if !s.bind(w, r, data) {
		return
	}
	step := data.MaxStep
	if step == 0 {
		step = s.opts.MaxStep
	}

	out, err := s.router.Resample(points(data.Points), step, data.KeepPointCount)
	if err != nil {
		render.Render(w, r, ErrUnprocessable(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, &ResampleResponse{Points: coords(out)})
}

func (s *Server) handleBuilding(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, s.building.FeatureCollection())
}

type CellResponse struct {
	Index     int      `json:"index"`
	Label     string   `json:"label"`
	Area      float64  `json:"area"`
	Doors     int      `json:"doors"`
	Neighbors []string `json:"neighbors"`
}

type TopologyResponse struct {
	Cells     []CellResponse `json:"cells"`
	Adjacency [][]bool       `json:"adjacency"`
}

func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	resp := &TopologyResponse{
		Cells:     make([]CellResponse, 0, s.building.Len()),
		Adjacency: s.building.Topology(),
	}
	for i, c := range s.building.Cells() {
		idx := indoor.CellIndex(i)
		resp.Cells = append(resp.Cells, CellResponse{
			Index:     i,
			Label:     c.Label(),
			Area:      c.Area(),
			Doors:     c.DoorCount(),
			Neighbors: matching.Labels(s.building, s.building.Neighbors(idx)),
		})
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, resp)
}

func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	m := getRuntimeMetrics()
	m.Sessions = s.sessions.Len()
	render.JSON(w, r, m)
}

type SessionResponse struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
	Results []string  `json:"results,omitempty"`
	History []string  `json:"history,omitempty"`
	Decoded []string  `json:"decoded,omitempty"`
}

// PointsRequest is the body of a session update
type PointsRequest struct {
	Points []Coord `json:"points" validate:"required,min=1,max=10000"`
}

func (p *PointsRequest) Bind(r *http.Request) error {
	return nil
}

type PointsResponse struct {
	Cells  []int    `json:"cells"`
	Labels []string `json:"labels"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Create()
	if err != nil {
		render.Render(w, r, ErrUnprocessable(err))
		return
	}
	s.metrics.activeSessions.Set(float64(s.sessions.Len()))
	log.Printf("[server] session %s opened", sess.ID)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, &SessionResponse{ID: sess.ID.String(), Created: sess.Created})
}

// session resolves the session of the URL, rendering the error reply on failure
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return nil, false
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		render.Render(w, r, ErrNotFound(err))
		return nil, false
	}
	return sess, true
}

func (s *Server) handlePushPoints(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	data := &PointsRequest{}
	if !s.bind(w, r, data) {
		return
	}

	cells := sess.Push(points(data.Points))
	s.countMatched("session", cells)
	render.Status(r, http.StatusOK)
	render.JSON(w, r, &PointsResponse{
		Cells:  cellIDs(cells),
		Labels: matching.Labels(s.building, cells),
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	st, err := sess.State()
	if err != nil {
		log.Printf("[server] session %s: %v", sess.ID, err)
		render.Render(w, r, ErrInternalServerError(errors.New("internal server error")))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, &SessionResponse{
		ID:      sess.ID.String(),
		Created: sess.Created,
		Updated: st.Updated,
		Results: matching.Labels(s.building, st.Results),
		History: matching.Labels(s.building, st.History),
		Decoded: matching.Labels(s.building, st.Decoded),
	})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := s.sessions.Delete(sess.ID); err != nil {
		render.Render(w, r, ErrNotFound(err))
		return
	}
	s.metrics.activeSessions.Set(float64(s.sessions.Len()))
	log.Printf("[server] session %s closed", sess.ID)
	render.NoContent(w, r)
}
