package sim

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stellarworks/universe-simulator/catalog"
	"github.com/stellarworks/universe-simulator/internal/config"
	"github.com/stellarworks/universe-simulator/internal/store"
	"github.com/stellarworks/universe-simulator/model"
	"github.com/stellarworks/universe-simulator/timectrl"
)

func newTestClock(t *testing.T) *timectrl.Clock {
	t.Helper()
	clock, err := timectrl.New(timectrl.DefaultConfig())
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	return clock
}

func marsObject() *model.CelestialObject {
	return &model.CelestialObject{
		ID:           "mars",
		Name:         "Mars",
		Type:         model.TypePlanet,
		MotionSource: model.MotionKeplerian,
		Elements: &model.OrbitalElements{
			SemiMajorAxisAU:       1.52371243,
			Eccentricity:          0.09336511,
			InclinationRad:        1.84969142 * math.Pi / 180,
			MeanAnomalyAtEpochRad: 0.33881,
			PeriodDays:            686.98,
		},
	}
}

func earthObject() *model.CelestialObject {
	return &model.CelestialObject{
		ID:           "earth",
		Name:         "Earth",
		Type:         model.TypePlanet,
		MotionSource: model.MotionKeplerian,
		Elements: &model.OrbitalElements{
			SemiMajorAxisAU:       1.00000261,
			Eccentricity:          0.01671123,
			MeanAnomalyAtEpochRad: 1.75343,
			PeriodDays:            365.256,
		},
	}
}

// startEngine runs the engine in the background and blocks until the
// initial repositioning pass has reached the catalog.
func startEngine(t *testing.T, eng *Engine, cat *catalog.Catalog, waitID string) (context.CancelFunc, <-chan error) {
	t.Helper()

	seen := make(chan struct{}, 1)
	unsubscribe := cat.Subscribe(func(ev catalog.Event) {
		if ev.Type == catalog.EventObjectUpdated && ev.Object.ID == waitID {
			select {
			case seen <- struct{}{}:
			default:
			}
		}
	})
	t.Cleanup(unsubscribe)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	select {
	case <-seen:
	case <-time.After(2 * time.Second):
		cancel()
		t.Fatalf("timed out waiting for initial propagation of %q", waitID)
	}
	return cancel, done
}

func waitForUpdate(t *testing.T, updates <-chan model.Position) model.Position {
	t.Helper()
	select {
	case pos := <-updates:
		return pos
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a position update")
	}
	return model.Position{}
}

func TestEngine_RepositionsOnClockChange(t *testing.T) {
	cat := catalog.New()
	if err := cat.Add(marsObject()); err != nil {
		t.Fatalf("add mars: %v", err)
	}

	clock := newTestClock(t)
	eng, err := NewEngine(clock, cat, nil, nil, EngineConfig{}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	updates := make(chan model.Position, 8)
	unsubscribe := cat.Subscribe(func(ev catalog.Event) {
		if ev.Type == catalog.EventObjectUpdated && ev.Object.ID == "mars" {
			updates <- ev.Object.Position
		}
	})
	defer unsubscribe()

	cancel, done := startEngine(t, eng, cat, "mars")
	defer cancel()

	// Drain the initial placement that startEngine already saw.
	first := waitForUpdate(t, updates)

	clock.SetOffset(0.5)
	second := waitForUpdate(t, updates)
	if first == second {
		t.Fatalf("expected mars to move after a clock change, got %+v at both offsets", first)
	}

	r := math.Sqrt(second.X*second.X + second.Y*second.Y + second.Z*second.Z)
	el := marsObject().Elements
	if r < el.Perihelion() || r > el.Aphelion() {
		t.Fatalf("mars radius %v outside [%v, %v]", r, el.Perihelion(), el.Aphelion())
	}

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("engine run: %v", err)
	}
}

func TestEngine_SeedsOnlyOrbitingObjects(t *testing.T) {
	cat := catalog.New()
	if err := cat.Add(marsObject()); err != nil {
		t.Fatalf("add mars: %v", err)
	}
	star := &model.CelestialObject{
		ID:           "vega",
		Type:         model.TypeStar,
		MotionSource: model.MotionStatic,
		Position:     model.Position{X: 1, Y: 2, Z: 3},
	}
	if err := cat.Add(star); err != nil {
		t.Fatalf("add vega: %v", err)
	}

	clock := newTestClock(t)
	eng, err := NewEngine(clock, cat, nil, nil, EngineConfig{}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	cancel, _ := startEngine(t, eng, cat, "mars")
	defer cancel()

	if got := eng.Registry().Len(); got != 1 {
		t.Fatalf("registry tracks %d objects, want 1", got)
	}
	got, err := cat.Get("vega")
	if err != nil {
		t.Fatalf("get vega: %v", err)
	}
	if got.Position != star.Position {
		t.Fatalf("static star moved to %+v", got.Position)
	}
}

func TestEngine_TracksCatalogChanges(t *testing.T) {
	cat := catalog.New()
	if err := cat.Add(marsObject()); err != nil {
		t.Fatalf("add mars: %v", err)
	}

	clock := newTestClock(t)
	eng, err := NewEngine(clock, cat, nil, nil, EngineConfig{}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	cancel, _ := startEngine(t, eng, cat, "mars")
	defer cancel()

	updates := make(chan model.Position, 8)
	unsubscribe := cat.Subscribe(func(ev catalog.Event) {
		if ev.Type == catalog.EventObjectUpdated && ev.Object.ID == "ceres" {
			updates <- ev.Object.Position
		}
	})
	defer unsubscribe()

	ceres := &model.CelestialObject{
		ID:           "ceres",
		Type:         model.TypeOther,
		MotionSource: model.MotionKeplerian,
		Elements: &model.OrbitalElements{
			SemiMajorAxisAU: 2.77,
			Eccentricity:    0.0758,
			PeriodDays:      model.PeriodFromSemiMajorAxis(2.77),
		},
	}
	if err := cat.Add(ceres); err != nil {
		t.Fatalf("add ceres: %v", err)
	}

	pos := waitForUpdate(t, updates)
	if pos == (model.Position{}) {
		t.Fatalf("added object never propagated, position still zero")
	}
	if got := eng.Registry().Len(); got != 2 {
		t.Fatalf("registry tracks %d objects, want 2", got)
	}

	if err := cat.Remove("ceres"); err != nil {
		t.Fatalf("remove ceres: %v", err)
	}
	if got := eng.Registry().Len(); got != 1 {
		t.Fatalf("registry tracks %d objects after removal, want 1", got)
	}
}

func TestEngine_ResyncAfterBulkReload(t *testing.T) {
	cat := catalog.New()
	if err := cat.Add(marsObject()); err != nil {
		t.Fatalf("add mars: %v", err)
	}

	clock := newTestClock(t)
	eng, err := NewEngine(clock, cat, nil, nil, EngineConfig{}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	cancel, _ := startEngine(t, eng, cat, "mars")
	defer cancel()

	// Clear emits no events, so the registry holds a stale entry
	// until Resync rebuilds it.
	cat.Clear()
	if err := cat.Add(earthObject()); err != nil {
		t.Fatalf("re-seed earth: %v", err)
	}
	if err := eng.Resync(); err != nil {
		t.Fatalf("resync: %v", err)
	}

	if got := eng.Registry().Len(); got != 1 {
		t.Fatalf("registry tracks %d objects after resync, want 1", got)
	}
	if err := eng.Registry().RemoveObject("mars"); err == nil {
		t.Fatalf("stale object survived resync")
	}
}

func TestEngine_SatelliteRidesEarth(t *testing.T) {
	cat := catalog.New()
	if err := cat.Add(earthObject()); err != nil {
		t.Fatalf("add earth: %v", err)
	}
	iss := &model.CelestialObject{
		ID:           "iss",
		Type:         model.TypeSatellite,
		MotionSource: model.MotionTLE,
		TLELine1:     issTLE1,
		TLELine2:     issTLE2,
	}
	if err := cat.Add(iss); err != nil {
		t.Fatalf("add iss: %v", err)
	}

	clock := newTestClock(t)
	eng, err := NewEngine(clock, cat, nil, nil, EngineConfig{}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	cancel, _ := startEngine(t, eng, cat, "iss")
	defer cancel()

	earth, err := cat.Get("earth")
	if err != nil {
		t.Fatalf("get earth: %v", err)
	}
	sat, err := cat.Get("iss")
	if err != nil {
		t.Fatalf("get iss: %v", err)
	}

	dx := sat.Position.X - earth.Position.X
	dy := sat.Position.Y - earth.Position.Y
	dz := sat.Position.Z - earth.Position.Z
	sep := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if sep == 0 {
		t.Fatalf("satellite sits exactly on Earth centre")
	}
	if sep > 0.001 {
		t.Fatalf("satellite separation from Earth %v AU, want a low orbit", sep)
	}
}

func TestEngine_RecordsEphemerisAndSyncs(t *testing.T) {
	cat := catalog.New()
	if err := cat.Add(marsObject()); err != nil {
		t.Fatalf("add mars: %v", err)
	}

	st, err := store.Open(context.Background(), config.DatabaseConfig{
		Driver:      "sqlite",
		Path:        filepath.Join(t.TempDir(), "engine.db"),
		AutoMigrate: true,
	}, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	clock := newTestClock(t)
	// Step 0.5 offset units: the initial pass samples at offset 0 and
	// the jump to offset 1 crosses the rearmed 0.5 boundary.
	eng, err := NewEngine(clock, cat, st, nil, EngineConfig{
		EphemerisStep: 0.5,
		SyncInterval:  time.Nanosecond,
	}, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	updates := make(chan model.Position, 8)
	unsubscribe := cat.Subscribe(func(ev catalog.Event) {
		if ev.Type == catalog.EventObjectUpdated && ev.Object.ID == "mars" {
			updates <- ev.Object.Position
		}
	})
	defer unsubscribe()

	cancel, done := startEngine(t, eng, cat, "mars")
	waitForUpdate(t, updates)

	clock.SetOffset(1)
	waitForUpdate(t, updates)

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("engine run: %v", err)
	}

	recs, err := st.EphemerisRange("mars", 0, 1e8, 0)
	if err != nil {
		t.Fatalf("ephemeris range: %v", err)
	}
	if len(recs) < 2 {
		t.Fatalf("recorded %d ephemeris rows, want at least 2", len(recs))
	}
	for _, rec := range recs {
		if rec.Source != "keplerian" {
			t.Fatalf("ephemeris source = %q, want %q", rec.Source, "keplerian")
		}
		if rec.JulianDate < 2451545-1 {
			t.Fatalf("julian date %v below the epoch", rec.JulianDate)
		}
	}

	objs, err := st.LoadObjects()
	if err != nil {
		t.Fatalf("load objects: %v", err)
	}
	if len(objs) != 1 || objs[0].ID != "mars" {
		t.Fatalf("store snapshot = %+v, want mars only", objs)
	}
	if objs[0].Position == (model.Position{}) {
		t.Fatalf("persisted mars still at origin")
	}
}
