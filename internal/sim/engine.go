package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/stellarworks/universe-simulator/astro"
	"github.com/stellarworks/universe-simulator/catalog"
	"github.com/stellarworks/universe-simulator/internal/logging"
	"github.com/stellarworks/universe-simulator/internal/observability"
	"github.com/stellarworks/universe-simulator/internal/store"
	"github.com/stellarworks/universe-simulator/model"
	"github.com/stellarworks/universe-simulator/timectrl"
)

// EngineConfig tunes the simulation engine.
type EngineConfig struct {
	// Workers bounds concurrent propagation per tick. Values below 2
	// run sequentially.
	Workers int

	// EphemerisStep spaces persisted ephemeris samples in simulation
	// offset units (the attached clock's granularity). Zero disables
	// recording.
	EphemerisStep float64

	// SyncInterval spaces catalog snapshots written to the store in
	// wall time. Zero disables syncing.
	SyncInterval time.Duration

	// EarthObjectID names the catalog entry whose heliocentric orbit
	// rebases satellite positions. Empty selects "earth".
	EarthObjectID string
}

// Engine connects the simulation clock to the catalog: every clock
// mutation repositions all orbiting objects, runs due simulation-time
// events, and periodically persists catalog snapshots.
type Engine struct {
	clock    *timectrl.Clock
	catalog  *catalog.Catalog
	store    *store.Manager
	metrics  *observability.EngineCollector
	log      logging.Logger
	cfg      EngineConfig
	registry *Registry
	sched    timectrl.EventScheduler

	// kick coalesces clock notifications so a burst of mutations
	// costs one repositioning pass.
	kick chan struct{}

	lastSync time.Time
}

// NewEngine wires an engine to a clock and catalog. st and metrics may
// be nil, which disables persistence and instrumentation; log may be
// nil.
func NewEngine(clock *timectrl.Clock, cat *catalog.Catalog, st *store.Manager, metrics *observability.EngineCollector, cfg EngineConfig, log logging.Logger) (*Engine, error) {
	if clock == nil {
		return nil, fmt.Errorf("clock is nil")
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog is nil")
	}
	if log == nil {
		log = logging.Noop()
	}
	if cfg.EarthObjectID == "" {
		cfg.EarthObjectID = "earth"
	}

	e := &Engine{
		clock:   clock,
		catalog: cat,
		store:   st,
		metrics: metrics,
		log:     log,
		cfg:     cfg,
		sched:   timectrl.NewEventScheduler(clock),
		kick:    make(chan struct{}, 1),
	}
	e.registry = NewRegistry(
		WithPositionUpdater(cat),
		WithWorkers(cfg.Workers),
		WithGeocentricOrigin(e.earthPosition),
		WithFailureHandler(e.onPropagationFailure),
	)
	return e, nil
}

// Registry exposes the motion registry, mainly for tests and status
// endpoints.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Resync rebuilds the motion registry from the catalog and schedules a
// repositioning pass. Catalog reloads that bypass per-object events
// (Clear followed by re-seeding) must call this.
func (e *Engine) Resync() error {
	e.registry.Reset()
	for _, obj := range e.catalog.List() {
		if !obj.Orbits() {
			continue
		}
		if err := e.registry.AddObject(&obj); err != nil {
			return fmt.Errorf("resync registry: %w", err)
		}
	}
	select {
	case e.kick <- struct{}{}:
	default:
	}
	return nil
}

// Run seeds the registry from the catalog and then repositions orbiting
// objects on every clock mutation until ctx is done. Catalog additions
// and removals are tracked while running. A final catalog snapshot is
// written on shutdown when a store is attached.
func (e *Engine) Run(ctx context.Context) error {
	for _, obj := range e.catalog.List() {
		if !obj.Orbits() {
			continue
		}
		if err := e.registry.AddObject(&obj); err != nil {
			return fmt.Errorf("seed registry: %w", err)
		}
	}

	unsubscribeCatalog := e.catalog.Subscribe(e.onCatalogEvent)
	defer unsubscribeCatalog()

	unsubscribeClock := e.clock.Subscribe(func(timectrl.SimulationTime) {
		select {
		case e.kick <- struct{}{}:
		default:
		}
	})
	defer unsubscribeClock()

	if e.store != nil && e.cfg.EphemerisStep > 0 {
		// First sample is due immediately; each run reschedules the
		// next one a step past the offset it observed.
		e.scheduleEphemeris(e.sched.Offset())
	}

	// Position everything once so consumers never observe an
	// unpropagated orbiter.
	e.step(ctx)

	for {
		select {
		case <-ctx.Done():
			e.finalSync()
			return nil
		case <-e.kick:
			e.step(ctx)
		}
	}
}

// step runs one repositioning pass at the current simulation time.
func (e *Engine) step(ctx context.Context) {
	start := time.Now()
	simTime := e.clock.Now()

	if err := e.registry.UpdatePositions(simTime); err != nil {
		e.log.Warn(ctx, "position update failed", logging.Err(err))
	}

	if e.metrics != nil {
		e.metrics.ObserveTick(time.Since(start))
		e.metrics.SetObjectsPropagated(e.registry.Len())
	}

	// Positions are current, so due events observe a consistent catalog.
	e.sched.RunDue()
	e.maybeSync(ctx)
}

func (e *Engine) onCatalogEvent(ev catalog.Event) {
	switch ev.Type {
	case catalog.EventObjectAdded:
		if !ev.Object.Orbits() {
			return
		}
		obj := ev.Object
		if err := e.registry.AddObject(&obj); err != nil {
			e.log.Warn(context.Background(), "registry add failed",
				logging.String("object_id", obj.ID), logging.Err(err))
			return
		}
		select {
		case e.kick <- struct{}{}:
		default:
		}
	case catalog.EventObjectRemoved:
		if !ev.Object.Orbits() {
			return
		}
		if err := e.registry.RemoveObject(ev.Object.ID); err != nil {
			e.log.Warn(context.Background(), "registry remove failed",
				logging.String("object_id", ev.Object.ID), logging.Err(err))
		}
	}
}

func (e *Engine) onPropagationFailure(objectID string, err error) {
	if e.metrics != nil {
		e.metrics.IncKeplerFailures()
	}
	e.log.Warn(context.Background(), "propagation failed",
		logging.String("object_id", objectID), logging.Err(err))
}

// earthPosition computes Earth's heliocentric position from its catalog
// elements, used to rebase geocentric satellite output. Falls back to
// the origin when Earth is absent.
func (e *Engine) earthPosition(simTime time.Time) model.Position {
	obj, err := e.catalog.Get(e.cfg.EarthObjectID)
	if err != nil || obj.Elements == nil {
		return model.Position{}
	}
	days := simTime.Sub(timectrl.J2000).Hours() / 24
	pos, err := astro.Propagate(*obj.Elements, days)
	if err != nil {
		return model.Position{}
	}
	return model.Position{X: pos.X, Y: pos.Y, Z: pos.Z}
}

// scheduleEphemeris arms the sampling chain: record at the given offset,
// then rearm one step past whatever offset the sample ran at. Large clock
// jumps therefore cost a single sample, not one per skipped step.
func (e *Engine) scheduleEphemeris(at float64) {
	e.sched.Schedule(at, func() {
		e.recordEphemeris()
		e.scheduleEphemeris(e.sched.Offset() + e.cfg.EphemerisStep)
	})
}

func (e *Engine) recordEphemeris() {
	jd := e.clock.JulianDate()
	offsetDays := e.clock.OffsetDays()

	var recs []model.EphemerisRecord
	for _, obj := range e.catalog.List() {
		if !obj.Orbits() {
			continue
		}
		rec := model.EphemerisRecord{
			ObjectID:   obj.ID,
			JulianDate: jd,
			X:          obj.Position.X,
			Y:          obj.Position.Y,
			Z:          obj.Position.Z,
		}
		switch obj.MotionSource {
		case model.MotionKeplerian:
			rec.Source = "keplerian"
			if obj.Elements != nil {
				if vel, err := astro.PropagateVelocity(*obj.Elements, offsetDays, 0); err == nil {
					rec.VX, rec.VY, rec.VZ = vel.X, vel.Y, vel.Z
				}
			}
		case model.MotionTLE:
			rec.Source = "sgp4"
		}
		recs = append(recs, rec)
	}
	if len(recs) == 0 {
		return
	}

	if err := e.store.AppendEphemeris(recs); err != nil {
		e.log.Warn(context.Background(), "ephemeris append failed", logging.Err(err))
		return
	}
	if e.metrics != nil {
		e.metrics.AddEphemerisSamples(len(recs))
	}
}

func (e *Engine) maybeSync(ctx context.Context) {
	if e.store == nil || e.cfg.SyncInterval <= 0 {
		return
	}
	now := time.Now()
	if !e.lastSync.IsZero() && now.Sub(e.lastSync) < e.cfg.SyncInterval {
		return
	}
	e.lastSync = now

	if err := e.store.SaveObjects(e.catalog.List()); err != nil {
		e.log.Warn(ctx, "catalog sync failed", logging.Err(err))
	}
}

// finalSync writes the closing catalog snapshot during shutdown.
func (e *Engine) finalSync() {
	if e.store == nil {
		return
	}
	if err := e.store.SaveObjects(e.catalog.List()); err != nil {
		e.log.Warn(context.Background(), "final catalog sync failed", logging.Err(err))
	}
}
