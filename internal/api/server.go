package api

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/stellarworks/universe-simulator/astro"
	"github.com/stellarworks/universe-simulator/catalog"
	"github.com/stellarworks/universe-simulator/ingest"
	"github.com/stellarworks/universe-simulator/internal/logging"
	"github.com/stellarworks/universe-simulator/internal/observability"
	"github.com/stellarworks/universe-simulator/internal/sim"
	"github.com/stellarworks/universe-simulator/internal/store"
	"github.com/stellarworks/universe-simulator/timectrl"
)

// ServerConfig tunes the HTTP layer.
type ServerConfig struct {
	// RateLimit is the per-host request budget in requests per second.
	// Zero disables rate limiting.
	RateLimit float64
	RateBurst int

	// LOD configures tier classification for object detail responses.
	// The zero value selects the stock tiering.
	LOD astro.LODConfig
}

// RefreshFunc reloads the catalog contents on POST /ingest/refresh. The
// composition root decides what a reload means: re-seeding, scenario
// replay, and registry resync.
type RefreshFunc func(ctx context.Context) (ingest.SeedSummary, error)

// Server holds the handler dependencies. st, eng, refresh, and metrics
// may be nil, which disables the endpoints or instrumentation relying
// on them.
type Server struct {
	catalog *catalog.Catalog
	clock   *timectrl.Clock
	engine  *sim.Engine
	store   *store.Manager
	refresh RefreshFunc
	lod     *astro.LODClassifier
	metrics *observability.APICollector
	log     logging.Logger
	limiter *hostLimiter
}

// NewServer validates dependencies and builds the HTTP server wiring.
func NewServer(cat *catalog.Catalog, clock *timectrl.Clock, eng *sim.Engine, st *store.Manager, refresh RefreshFunc, cfg ServerConfig, metrics *observability.APICollector, log logging.Logger) (*Server, error) {
	if cat == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is nil")
	}
	if log == nil {
		log = logging.Noop()
	}

	lodCfg := cfg.LOD
	if lodCfg == (astro.LODConfig{}) {
		lodCfg = astro.DefaultLODConfig()
	}
	classifier, err := astro.NewLODClassifier(lodCfg)
	if err != nil {
		return nil, fmt.Errorf("lod config: %w", err)
	}

	s := &Server{
		catalog: cat,
		clock:   clock,
		engine:  eng,
		store:   st,
		refresh: refresh,
		lod:     classifier,
		metrics: metrics,
		log:     log,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = newHostLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return s, nil
}

// Routes builds the full handler chain: method-routed mux per endpoint,
// per-route metrics and tracing, then request context and rate limiting
// around everything.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	s.handle(mux, "GET", "/api/v1/objects", s.handleListObjects)
	s.handle(mux, "GET", "/api/v1/objects/types", s.handleObjectTypes)
	s.handle(mux, "GET", "/api/v1/objects/{id}", s.handleGetObject)
	s.handle(mux, "GET", "/api/v1/objects/{id}/path", s.handleObjectPath)
	s.handle(mux, "GET", "/api/v1/objects/{id}/ephemeris", s.handleObjectEphemeris)
	s.handle(mux, "GET", "/api/v1/search", s.handleSearch)
	s.handle(mux, "GET", "/api/v1/positions", s.handlePositions)
	s.handle(mux, "GET", "/api/v1/distance", s.handleDistance)
	s.handle(mux, "GET", "/api/v1/stats", s.handleStats)
	s.handle(mux, "POST", "/api/v1/ingest/refresh", s.handleRefresh)
	s.handle(mux, "GET", "/api/v1/clock", s.handleClockGet)
	s.handle(mux, "POST", "/api/v1/clock", s.handleClockCommand)
	s.handle(mux, "GET", "/healthz", s.handleHealthz)

	// The stream endpoint skips per-route instrumentation; a long-lived
	// upgrade is not a request-scoped unit of work.
	mux.HandleFunc("GET /api/v1/clock/stream", s.handleClockStream)

	return s.withRequestContext(s.withRateLimit(mux))
}

func (s *Server) handle(mux *http.ServeMux, method, route string, h http.HandlerFunc) {
	var handler http.Handler = h
	handler = withTracing(route, handler)
	if s.metrics != nil {
		handler = s.metrics.Middleware(route, handler)
	}
	mux.Handle(method+" "+route, handler)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
