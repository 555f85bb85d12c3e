// Package server exposes the current atlas snapshot as a read-only JSON API.
package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/sells-group/petatlas/internal/atlas"
)

// Loader runs one load cycle.
type Loader interface {
	Run(ctx context.Context, src atlas.Sources) (*atlas.Snapshot, error)
}

// Options configures a Server.
type Options struct {
	Sources         atlas.Sources
	ReloadPerMinute int
	CORSOrigins     []string
}

// Server serves one snapshot at a time. Reloads build a new snapshot and
// swap it in whole; readers never see a partially built one.
type Server struct {
	loader  Loader
	sources atlas.Sources

	current atomic.Pointer[atlas.Snapshot]
	flight  singleflight.Group
	limiter *rate.Limiter
	metrics *collector
	router  chi.Router
	log     *zap.Logger
}

// New creates a Server. It holds no snapshot until Reload succeeds.
func New(loader Loader, opts Options) *Server {
	perMinute := opts.ReloadPerMinute
	if perMinute <= 0 {
		perMinute = 6
	}
	s := &Server{
		loader:  loader,
		sources: opts.Sources,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		metrics: newCollector(),
		log:     zap.L().With(zap.String("component", "server")),
	}
	s.router = s.routes(opts.CORSOrigins)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Snapshot returns the current snapshot, or nil before the first load.
func (s *Server) Snapshot() *atlas.Snapshot {
	return s.current.Load()
}

// Reload runs a cycle and makes its snapshot current. Concurrent calls share
// one cycle. On failure the previous snapshot stays current.
func (s *Server) Reload(ctx context.Context) (*atlas.Snapshot, error) {
	v, err, shared := s.flight.Do("reload", func() (interface{}, error) {
		snap, err := s.loader.Run(context.WithoutCancel(ctx), s.sources)
		if err != nil {
			s.metrics.reloads.WithLabelValues("failed").Inc()
			s.log.Error("server: reload failed", zap.Error(err))
			return nil, err
		}
		s.current.Store(snap)
		s.metrics.reloads.WithLabelValues("ok").Inc()
		s.metrics.observe(snap)
		s.log.Info("server: snapshot replaced",
			zap.String("cycle_id", snap.CycleID),
			zap.Int("districts", len(snap.Districts)),
		)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.log.Debug("server: reload coalesced")
	}
	return v.(*atlas.Snapshot), nil
}

func (s *Server) routes(origins []string) chi.Router {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.metrics.instrument)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.handler())

	r.Route("/api", func(api chi.Router) {
		api.Post("/reload", s.handleReload)

		api.Group(func(loaded chi.Router) {
			loaded.Use(s.requireSnapshot)
			loaded.Get("/districts", s.handleDistricts)
			loaded.Get("/districts.geojson", s.handleDistrictsGeoJSON)
			loaded.Get("/metrics", s.handleMetrics)
			loaded.Get("/metrics/{district}", s.handleDistrictMetrics)
			loaded.Get("/rank", s.handleRank)
			loaded.Get("/categories", s.handleCategories)
			loaded.Get("/facilities", s.handleFacilities)
			loaded.Get("/diagnostics", s.handleDiagnostics)
		})
	})
	return r
}

// requireSnapshot answers 503 until the first cycle has succeeded.
func (s *Server) requireSnapshot(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.current.Load() == nil {
			writeError(w, http.StatusServiceUnavailable, "no snapshot loaded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
