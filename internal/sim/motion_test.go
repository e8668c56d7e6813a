package sim

import (
	"math"
	"testing"
	"time"

	"github.com/stellarworks/universe-simulator/model"
	"github.com/stellarworks/universe-simulator/timectrl"
)

type capturingUpdater struct {
	positions map[string]model.Position
	distances map[string]float64
	calls     map[string]int
}

func (c *capturingUpdater) UpdatePosition(id string, pos model.Position, distancePc float64) error {
	if c.positions == nil {
		c.positions = make(map[string]model.Position)
	}
	if c.distances == nil {
		c.distances = make(map[string]float64)
	}
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.positions[id] = pos
	c.distances[id] = distancePc
	c.calls[id]++
	return nil
}

func (c *capturingUpdater) snapshot(id string) (model.Position, int) {
	return c.positions[id], c.calls[id]
}

const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestStaticModel_NoChange(t *testing.T) {
	m := NewStaticModel(model.Position{X: 1, Y: 2, Z: 3})

	t1 := time.Now().UTC()
	got, err := m.Position(t1)
	if err != nil {
		t.Fatalf("Position: %v", err)
	}
	if got != (model.Position{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("static motion should not change position, got %#v", got)
	}

	got, err = m.Position(t1.Add(time.Hour))
	if err != nil {
		t.Fatalf("Position after an hour: %v", err)
	}
	if got != (model.Position{X: 1, Y: 2, Z: 3}) {
		t.Fatalf("static motion should not change position after second update, got %#v", got)
	}
}

func TestKeplerianModel_EarthLikeOrbit(t *testing.T) {
	el := model.OrbitalElements{
		SemiMajorAxisAU:       1.00000261,
		Eccentricity:          0.01671123,
		MeanAnomalyAtEpochRad: 1.75343,
		PeriodDays:            365.256,
	}
	m := NewKeplerianModel(el)

	p1, err := m.Position(timectrl.J2000)
	if err != nil {
		t.Fatalf("Position at epoch: %v", err)
	}
	r := math.Sqrt(p1.X*p1.X + p1.Y*p1.Y + p1.Z*p1.Z)
	if r < el.Perihelion() || r > el.Aphelion() {
		t.Fatalf("epoch radius %v outside [%v, %v]", r, el.Perihelion(), el.Aphelion())
	}

	p2, err := m.Position(timectrl.J2000.AddDate(0, 3, 0))
	if err != nil {
		t.Fatalf("Position a quarter orbit later: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("expected orbital position to change over time, got %+v at both times", p1)
	}
}

// We don't assert exact orbital values (those belong to go-satellite);
// we just ensure that positions differ at distinct times.
func TestSGP4Model_ChangesOverTime(t *testing.T) {
	m := NewSGP4FromTLE(issTLE1, issTLE2, nil)

	t1 := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(5 * time.Minute)

	first, err := m.Position(t1)
	if err != nil {
		t.Fatalf("Position at t1: %v", err)
	}
	second, err := m.Position(t2)
	if err != nil {
		t.Fatalf("Position at t2: %v", err)
	}
	if first == second {
		t.Fatalf("expected orbital position to change over time, got %+v at both times", first)
	}
}

func TestSGP4Model_GeocentricOriginOffset(t *testing.T) {
	earth := model.Position{X: 1, Y: 0, Z: 0}
	m := NewSGP4FromTLE(issTLE1, issTLE2, func(time.Time) model.Position {
		return earth
	})

	pos, err := m.Position(time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Position: %v", err)
	}

	// A low orbit sits within ~7000 km of the geocentre, well under
	// 0.001 AU, so the satellite must land next to Earth, not at it.
	dx := pos.X - earth.X
	dy := pos.Y - earth.Y
	dz := pos.Z - earth.Z
	sep := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if sep == 0 {
		t.Fatalf("satellite should be offset from the origin body, got %+v", pos)
	}
	if sep > 0.001 {
		t.Fatalf("satellite separation %v AU too large for a low Earth orbit", sep)
	}
}

func TestRegistry_AddUpdateAndRemove(t *testing.T) {
	sat := &model.CelestialObject{
		ID:           "sat1",
		Type:         model.TypeSatellite,
		MotionSource: model.MotionTLE,
	}
	star := &model.CelestialObject{
		ID:           "star1",
		Type:         model.TypeStar,
		MotionSource: model.MotionStatic,
		Position:     model.Position{X: 1, Y: 2, Z: 3},
	}

	updater := &capturingUpdater{}
	reg := NewRegistry(WithTLEFetcher(func(obj *model.CelestialObject) (string, string) {
		if obj.ID == sat.ID {
			return issTLE1, issTLE2
		}
		return "", ""
	}), WithPositionUpdater(updater))

	if err := reg.AddObject(sat); err != nil {
		t.Fatalf("AddObject sat: %v", err)
	}
	if err := reg.AddObject(star); err != nil {
		t.Fatalf("AddObject star: %v", err)
	}
	if err := reg.AddObject(sat); err == nil {
		t.Fatalf("expected duplicate AddObject error")
	}
	if got := reg.Len(); got != 2 {
		t.Fatalf("Len() = %d, want 2", got)
	}

	t1 := time.Date(2021, 10, 2, 0, 0, 0, 0, time.UTC)
	if err := reg.UpdatePositions(t1); err != nil {
		t.Fatalf("UpdatePositions first tick: %v", err)
	}
	firstSat, satCalls := updater.snapshot(sat.ID)
	firstStar, starCalls := updater.snapshot(star.ID)

	t2 := t1.Add(5 * time.Minute)
	if err := reg.UpdatePositions(t2); err != nil {
		t.Fatalf("UpdatePositions second tick: %v", err)
	}
	secondSat, satCalls2 := updater.snapshot(sat.ID)
	secondStar, starCalls2 := updater.snapshot(star.ID)
	if satCalls2 <= satCalls {
		t.Fatalf("expected satellite position to be updated at least once, got calls %d -> %d", satCalls, satCalls2)
	}
	if firstSat == secondSat {
		t.Fatalf("expected satellite position to change after UpdatePositions, got %+v", secondSat)
	}
	if firstStar != secondStar {
		t.Fatalf("static object position should stay constant, got %+v", secondStar)
	}
	if starCalls2 <= starCalls {
		t.Fatalf("expected static object to be announced again, got calls %d -> %d", starCalls, starCalls2)
	}

	if err := reg.RemoveObject(star.ID); err != nil {
		t.Fatalf("RemoveObject: %v", err)
	}
	if err := reg.RemoveObject(star.ID); err == nil {
		t.Fatalf("expected error removing an unregistered object")
	}

	if err := reg.UpdatePositions(t2.Add(time.Minute)); err != nil {
		t.Fatalf("UpdatePositions after removal: %v", err)
	}
	_, starCalls3 := updater.snapshot(star.ID)
	if starCalls3 != starCalls2 {
		t.Fatalf("removed object should not be updated, got calls %d -> %d", starCalls2, starCalls3)
	}
}

func TestRegistry_DistanceInParsecs(t *testing.T) {
	star := &model.CelestialObject{
		ID:           "star1",
		MotionSource: model.MotionStatic,
		Position:     model.Position{X: 3, Y: 4, Z: 0},
	}

	updater := &capturingUpdater{}
	reg := NewRegistry(WithPositionUpdater(updater))
	if err := reg.AddObject(star); err != nil {
		t.Fatalf("AddObject: %v", err)
	}
	if err := reg.UpdatePositions(timectrl.J2000); err != nil {
		t.Fatalf("UpdatePositions: %v", err)
	}

	// |(3,4,0)| = 5 scene units, reported as parsec distance.
	want := 5.0 / 206264.806
	got := updater.distances[star.ID]
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("distance = %v pc, want %v pc", got, want)
	}
}

func TestRegistry_RejectsUnpropagatableObjects(t *testing.T) {
	tests := []struct {
		name string
		obj  *model.CelestialObject
	}{
		{
			name: "keplerian without elements",
			obj: &model.CelestialObject{
				ID:           "k1",
				MotionSource: model.MotionKeplerian,
			},
		},
		{
			name: "tle without lines",
			obj: &model.CelestialObject{
				ID:           "t1",
				MotionSource: model.MotionTLE,
			},
		},
		{
			name: "missing id",
			obj:  &model.CelestialObject{MotionSource: model.MotionStatic},
		},
	}

	reg := NewRegistry()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := reg.AddObject(tc.obj); err == nil {
				t.Fatalf("expected AddObject to fail for %s", tc.name)
			}
		})
	}
}

func TestRegistry_FailureHandlerKeepsTickAlive(t *testing.T) {
	// Hyperbolic eccentricity passes registration but fails every
	// propagation attempt.
	broken := &model.CelestialObject{
		ID:           "broken",
		MotionSource: model.MotionKeplerian,
		Elements: &model.OrbitalElements{
			SemiMajorAxisAU: 1,
			Eccentricity:    1.5,
			PeriodDays:      365.25,
		},
	}
	healthy := &model.CelestialObject{
		ID:           "healthy",
		MotionSource: model.MotionStatic,
		Position:     model.Position{X: 1},
	}

	updater := &capturingUpdater{}
	var failedID string
	reg := NewRegistry(
		WithPositionUpdater(updater),
		WithFailureHandler(func(objectID string, err error) {
			failedID = objectID
			if err == nil {
				t.Errorf("failure handler called with nil error")
			}
		}),
	)
	if err := reg.AddObject(broken); err != nil {
		t.Fatalf("AddObject broken: %v", err)
	}
	if err := reg.AddObject(healthy); err != nil {
		t.Fatalf("AddObject healthy: %v", err)
	}

	if err := reg.UpdatePositions(timectrl.J2000); err != nil {
		t.Fatalf("UpdatePositions: %v", err)
	}
	if failedID != "broken" {
		t.Fatalf("failure handler saw %q, want %q", failedID, "broken")
	}
	if updater.calls["broken"] != 0 {
		t.Fatalf("broken object should not reach the updater, got %d calls", updater.calls["broken"])
	}
	if updater.calls["healthy"] != 1 {
		t.Fatalf("healthy object should still be updated, got %d calls", updater.calls["healthy"])
	}
}

func TestRegistry_ParallelWorkers(t *testing.T) {
	updater := &capturingUpdater{}
	reg := NewRegistry(WithPositionUpdater(updater), WithWorkers(4))

	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		obj := &model.CelestialObject{
			ID:           id,
			MotionSource: model.MotionStatic,
			Position:     model.Position{X: 1},
		}
		if err := reg.AddObject(obj); err != nil {
			t.Fatalf("AddObject %q: %v", id, err)
		}
	}

	if err := reg.UpdatePositions(timectrl.J2000); err != nil {
		t.Fatalf("UpdatePositions: %v", err)
	}
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		if updater.calls[id] != 1 {
			t.Fatalf("object %q updated %d times, want 1", id, updater.calls[id])
		}
	}
}
