// Command universe-server runs the astronomical positioning engine
// behind an HTTP JSON API: it seeds or restores the object catalog,
// drives the simulation clock and propagation engine, and serves
// positions, distances, and clock control to scene clients.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/stellarworks/universe-simulator/astro"
	"github.com/stellarworks/universe-simulator/catalog"
	"github.com/stellarworks/universe-simulator/ingest"
	"github.com/stellarworks/universe-simulator/internal/api"
	"github.com/stellarworks/universe-simulator/internal/config"
	"github.com/stellarworks/universe-simulator/internal/logging"
	"github.com/stellarworks/universe-simulator/internal/observability"
	"github.com/stellarworks/universe-simulator/internal/sim"
	"github.com/stellarworks/universe-simulator/internal/store"
	"github.com/stellarworks/universe-simulator/timectrl"
)

// Config collects everything run needs, resolved from the config file
// and flag overrides.
type Config struct {
	ListenAddress  string
	MetricsAddress string
	LogLevel       string
	LogFormat      string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RateLimit      float64
	RateBurst      int

	Database config.DatabaseConfig
	LOD      astro.LODConfig

	Seed         bool
	ScenarioPath string

	TickInterval  time.Duration
	TimeScale     float64
	Granularity   string
	Workers       int
	EphemerisStep float64
	SyncInterval  time.Duration

	Tracing observability.TracingConfig
}

func main() {
	configDir := flag.String("config-dir", ".", "Directory searched for "+config.ConfigFileName)
	listenAddr := flag.String("listen-addr", "", "TCP address the HTTP API listens on (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "HTTP address for Prometheus /metrics (overrides config)")
	scenarioPath := flag.String("scenario", "", "Path to a JSON scenario loaded after seeding (overrides config)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	cfg := configFromViper()
	if *listenAddr != "" {
		cfg.ListenAddress = *listenAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddress = *metricsAddr
	}
	if *scenarioPath != "" {
		cfg.ScenarioPath = *scenarioPath
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(context.Background(), "failed to listen",
			logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(context.Background(), "server exited", logging.Err(err))
		os.Exit(1)
	}
}

// configFromViper assembles a Config from the loaded configuration
// tree.
func configFromViper() Config {
	srv := config.GetServerConfig()
	simCfg := config.GetSimConfig()
	catCfg := config.GetCatalogConfig()
	otel := config.GetOTelConfig()

	exporter := "stdout"
	if otel.Endpoint != "" {
		exporter = "otlp"
	}

	return Config{
		ListenAddress:  srv.Address,
		MetricsAddress: srv.MetricsAddress,
		LogLevel:       config.GetString("logLevel"),
		LogFormat:      config.GetString("logFormat"),
		ReadTimeout:    srv.ReadTimeout,
		WriteTimeout:   srv.WriteTimeout,
		RateLimit:      srv.RateLimit,
		RateBurst:      srv.RateBurst,

		Database: config.GetDatabaseConfig(),
		LOD:      config.GetLODConfig(),

		Seed:         catCfg.Seed,
		ScenarioPath: catCfg.ScenarioPath,

		TickInterval:  simCfg.TickInterval,
		TimeScale:     simCfg.TimeScale,
		Granularity:   simCfg.Granularity,
		Workers:       simCfg.Workers,
		EphemerisStep: simCfg.EphemerisStep,
		SyncInterval:  simCfg.SyncInterval,

		Tracing: observability.TracingConfig{
			Enabled:      otel.Enabled,
			ServiceName:  otel.ServiceName,
			Exporter:     exporter,
			Endpoint:     otel.Endpoint,
			Insecure:     otel.Insecure,
			SampleRatio:  1.0,
			BatchTimeout: otel.BatchTimeout,
		},
	}
}

// run assembles the catalog, clock, engine, and API server, serves on
// lis until ctx is done, and shuts everything down in order. The
// listener is owned by the HTTP server once run starts.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	apiMetrics, err := observability.NewAPICollector(nil)
	if err != nil {
		return fmt.Errorf("init api metrics: %w", err)
	}
	engineMetrics, err := observability.NewEngineCollector(nil)
	if err != nil {
		return fmt.Errorf("init engine metrics: %w", err)
	}

	st, err := store.Open(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	cat := catalog.New()

	unsubscribeGauges := cat.Subscribe(func(catalog.Event) {
		counts := make(map[string]int)
		for typ, n := range cat.TypeCounts() {
			counts[string(typ)] = n
		}
		apiMetrics.SetCatalogCounts(counts)
	})
	defer unsubscribeGauges()

	unsubscribeStore := cat.Subscribe(func(ev catalog.Event) {
		if ev.Type != catalog.EventObjectRemoved {
			return
		}
		if err := st.DeleteObject(ev.Object.ID); err != nil {
			log.Warn(ctx, "failed to delete persisted object",
				logging.String("object_id", ev.Object.ID), logging.Err(err))
		}
	})
	defer unsubscribeStore()

	if err := populateCatalog(ctx, cfg, cat, st, log); err != nil {
		return err
	}

	clockCfg := timectrl.DefaultConfig()
	if cfg.Granularity == "days" {
		clockCfg = timectrl.DayWrapConfig()
	}
	clock, err := timectrl.New(clockCfg)
	if err != nil {
		return fmt.Errorf("create clock: %w", err)
	}
	if cfg.TimeScale > 0 && cfg.TimeScale != 1 {
		clock.SetScale(cfg.TimeScale)
	}

	unsubscribeClock := clock.Subscribe(func(t timectrl.SimulationTime) {
		years := t.Offset
		if clockCfg.Granularity == timectrl.GranularityDays {
			years = t.Offset / 365.25
		}
		apiMetrics.SetClock(years, t.Scale)
	})
	defer unsubscribeClock()

	engine, err := sim.NewEngine(clock, cat, st, engineMetrics, sim.EngineConfig{
		Workers:       cfg.Workers,
		EphemerisStep: cfg.EphemerisStep,
		SyncInterval:  cfg.SyncInterval,
	}, log)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	refresh := func(ctx context.Context) (ingest.SeedSummary, error) {
		cat.Clear()
		sum, err := ingest.SeedAll(cat)
		if err != nil {
			return ingest.SeedSummary{}, err
		}
		if cfg.ScenarioPath != "" {
			if err := loadScenarioFile(ctx, cat, cfg.ScenarioPath, log); err != nil {
				return ingest.SeedSummary{}, err
			}
		}
		if err := engine.Resync(); err != nil {
			return ingest.SeedSummary{}, err
		}
		return sum, nil
	}

	server, err := api.NewServer(cat, clock, engine, st, refresh, api.ServerConfig{
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		LOD:       cfg.LOD,
	}, apiMetrics, log)
	if err != nil {
		return fmt.Errorf("create api server: %w", err)
	}

	metricsSrv := serveMetrics(cfg.MetricsAddress, apiMetrics, log)

	var wg sync.WaitGroup
	engineErr := make(chan error, 1)
	wg.Add(1)
	go func() {
		defer wg.Done()
		engineErr <- engine.Run(ctx)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		clock.Run(ctx, cfg.TickInterval)
	}()

	httpSrv := &http.Server{
		Handler:      server.Routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting api server", logging.String("addr", lis.Addr().String()))
		err := httpSrv.Serve(lis)
		if err == http.ErrServerClosed {
			err = nil
		}
		serveErr <- err
	}()

	var runErr error
	select {
	case runErr = <-serveErr:
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "http shutdown", logging.Err(err))
		}
		if metricsSrv != nil {
			_ = metricsSrv.Shutdown(shutdownCtx)
		}
		cancelShutdown()
		runErr = <-serveErr
	}

	cancel()
	wg.Wait()
	if err := <-engineErr; err != nil && runErr == nil {
		runErr = fmt.Errorf("engine: %w", err)
	}
	return runErr
}

// populateCatalog restores persisted objects, or seeds the built-in
// catalog plus the optional scenario file on first start.
func populateCatalog(ctx context.Context, cfg Config, cat *catalog.Catalog, st *store.Manager, log logging.Logger) error {
	persisted, err := st.LoadObjects()
	if err != nil {
		return fmt.Errorf("load persisted catalog: %w", err)
	}
	if len(persisted) > 0 {
		for i := range persisted {
			obj := persisted[i]
			if err := cat.Add(&obj); err != nil {
				log.Warn(ctx, "skipping persisted object",
					logging.String("object_id", obj.ID), logging.Err(err))
			}
		}
		log.Info(ctx, "catalog restored from store", logging.Int("objects", cat.Len()))
		return nil
	}

	if cfg.Seed {
		sum, err := ingest.SeedAll(cat)
		if err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
		log.Info(ctx, "seeded catalog",
			logging.Int("solar_system", sum.SolarSystem),
			logging.Int("stars", sum.Stars),
			logging.Int("satellites", sum.Satellites),
		)
	}
	if cfg.ScenarioPath != "" {
		if err := loadScenarioFile(ctx, cat, cfg.ScenarioPath, log); err != nil {
			return err
		}
	}
	return nil
}

func loadScenarioFile(ctx context.Context, cat *catalog.Catalog, path string, log logging.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open scenario %s: %w", path, err)
	}
	defer f.Close()

	scn, err := ingest.LoadScenario(cat, f)
	if err != nil {
		return fmt.Errorf("load scenario %s: %w", path, err)
	}
	log.Info(ctx, "loaded scenario",
		logging.String("path", path),
		logging.Int("objects", len(scn.ObjectIDs)),
		logging.Int("orbiting", len(scn.OrbitingIDs)),
	)
	return nil
}

func serveMetrics(addr string, collector *observability.APICollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
