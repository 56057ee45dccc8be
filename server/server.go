// Package server exposes the indoor router and matchers over HTTP.
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"kuanb/indoor-router/indoor"
	"kuanb/indoor-router/matching"
	"kuanb/indoor-router/routing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options configures a Server
type Options struct {
	Matcher matching.Options
	// MaxStep is the resampling step used when a request sets none (meters)
	MaxStep        float64
	AllowedOrigins []string
	// RequestLog enables the chi request logger
	RequestLog bool
}

// Server holds the building, router and sessions for handling requests
type Server struct {
	building *indoor.Building
	router   *routing.Router
	opts     Options
	matchers *matcherFactory
	sessions *SessionStore

	registry *prometheus.Registry
	metrics  *Metrics

	validate *validator.Validate
	trans    ut.Translator
}

// New creates a server for the building with its own metrics registry
func New(b *indoor.Building, opts Options) *Server {
	if opts.MaxStep <= 0 {
		opts.MaxStep = 1
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"https://*", "http://*"}
	}

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	validate := validator.New()
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		log.Printf("[server] validator translations: %v", err)
	}

	reg := prometheus.NewRegistry()
	matchers := &matcherFactory{building: b, opts: opts.Matcher}
	return &Server{
		building: b,
		router:   routing.NewRouter(b),
		opts:     opts,
		matchers: matchers,
		sessions: newSessionStore(matchers),
		registry: reg,
		metrics:  NewMetrics(reg),
		validate: validate,
		trans:    trans,
	}
}

// Sessions returns the online session store
func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if s.opts.RequestLog {
		r.Use(middleware.Logger)
	}
	r.Use(s.metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/debug/runtime", s.handleRuntime)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))

		r.Get("/building", s.handleBuilding)
		r.Get("/topology", s.handleTopology)
		r.Post("/match", s.handleMatch)
		r.Post("/route", s.handleRoute)
		r.Post("/resample", s.handleResample)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/points", s.handlePushPoints)
			})
		})
	})
	return r
}

// bind decodes and validates a request body, rendering the error reply on failure
func (s *Server) bind(w http.ResponseWriter, r *http.Request, data render.Binder) bool {
	if err := render.Bind(r, data); err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return false
	}
	if err := s.validate.Struct(data); err != nil {
		render.Render(w, r, ErrValidation(err, translateError(err, s.trans)))
		return false
	}
	return true
}

// StartSessionReaper closes sessions idle for longer than ttl until ctx is done
func (s *Server) StartSessionReaper(ctx context.Context, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(ttl / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n := s.sessions.Expire(now.Add(-ttl)); n > 0 {
					log.Printf("[server] expired %d idle sessions", n)
					s.metrics.activeSessions.Set(float64(s.sessions.Len()))
				}
			}
		}
	}()
}
