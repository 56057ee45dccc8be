package server

import (
	"context"
	"log"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the prometheus collectors of the server
type Metrics struct {
	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	matchedPoints  *prometheus.CounterVec
	impossible     prometheus.Counter
	activeSessions prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indoor_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "indoor_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		matchedPoints: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "indoor_matched_points_total",
			Help: "Trajectory points resolved to a cell, by matcher.",
		}, []string{"matcher"}),
		impossible: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "indoor_impossible_points_total",
			Help: "Trajectory points the HMM matcher could not explain.",
		}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "indoor_active_sessions",
			Help: "Open online matching sessions.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.matchedPoints, m.impossible, m.activeSessions)
	return m
}

// Middleware records request counts and latencies per route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// RuntimeMetrics holds memory and goroutine statistics
type RuntimeMetrics struct {
	Goroutines   int     `json:"goroutines"`
	AllocMB      float64 `json:"alloc_mb"`       // currently allocated heap
	TotalAllocMB float64 `json:"total_alloc_mb"` // cumulative allocated (includes freed)
	SysMB        float64 `json:"sys_mb"`         // total memory from OS
	HeapObjects  uint64  `json:"heap_objects"`
	NumGC        uint32  `json:"num_gc"`
	Sessions     int     `json:"sessions"`
}

// getRuntimeMetrics collects current runtime statistics
func getRuntimeMetrics() RuntimeMetrics {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return RuntimeMetrics{
		Goroutines:   runtime.NumGoroutine(),
		AllocMB:      float64(m.Alloc) / 1024 / 1024,
		TotalAllocMB: float64(m.TotalAlloc) / 1024 / 1024,
		SysMB:        float64(m.Sys) / 1024 / 1024,
		HeapObjects:  m.HeapObjects,
		NumGC:        m.NumGC,
	}
}

// StartMetricsLogger logs runtime metrics every interval until ctx is done
func (s *Server) StartMetricsLogger(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m := getRuntimeMetrics()
				log.Printf("[metrics] goroutines=%d alloc=%.2fMB sys=%.2fMB heap_objects=%d gc_cycles=%d sessions=%d",
					m.Goroutines, m.AllocMB, m.SysMB, m.HeapObjects, m.NumGC, s.sessions.Len())
			}
		}
	}()
}
