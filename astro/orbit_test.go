package astro

import (
	"errors"
	"math"
	"testing"

	"github.com/stellarworks/universe-simulator/model"
)

func circularEarthOrbit() model.OrbitalElements {
	return model.OrbitalElements{
		SemiMajorAxisAU: 1,
		Eccentricity:    0,
		PeriodDays:      365.25,
	}
}

func TestPropagate_CircularOrbitTracesCircle(t *testing.T) {
	el := circularEarthOrbit()

	// Quarter period steps: the body should visit the four cardinal
	// points of a unit circle in the orbital plane.
	quarter := el.PeriodDays / 4
	cases := []struct {
		days float64
		want Vec3
	}{
		{0, Vec3{X: 1}},
		{quarter, Vec3{Y: 1}},
		{2 * quarter, Vec3{X: -1}},
		{3 * quarter, Vec3{Y: -1}},
	}
	for _, tc := range cases {
		pos, err := Propagate(el, tc.days)
		if err != nil {
			t.Fatalf("Propagate(%v days): %v", tc.days, err)
		}
		if math.Abs(pos.X-tc.want.X) > 1e-9 ||
			math.Abs(pos.Y-tc.want.Y) > 1e-9 ||
			math.Abs(pos.Z) > 1e-12 {
			t.Errorf("t=%v days: got (%v, %v, %v), want (%v, %v, 0)",
				tc.days, pos.X, pos.Y, pos.Z, tc.want.X, tc.want.Y)
		}
		if math.Abs(pos.Distance-1) > 1e-9 {
			t.Errorf("t=%v days: radius = %v, want 1", tc.days, pos.Distance)
		}
	}
}

func TestPropagate_RadiusAtApsides(t *testing.T) {
	el := model.OrbitalElements{
		SemiMajorAxisAU: 2.5,
		Eccentricity:    0.4,
		PeriodDays:      1000,
	}

	// M = 0 is periapsis, M = pi apoapsis.
	peri, err := Propagate(el, 0)
	if err != nil {
		t.Fatalf("Propagate periapsis: %v", err)
	}
	if want := el.Perihelion(); math.Abs(peri.Distance-want) > 1e-9 {
		t.Errorf("periapsis radius = %v, want %v", peri.Distance, want)
	}

	apo, err := Propagate(el, el.PeriodDays/2)
	if err != nil {
		t.Fatalf("Propagate apoapsis: %v", err)
	}
	if want := el.Aphelion(); math.Abs(apo.Distance-want) > 1e-6 {
		t.Errorf("apoapsis radius = %v, want %v", apo.Distance, want)
	}
}

func TestPropagate_Periodicity(t *testing.T) {
	el := model.OrbitalElements{
		SemiMajorAxisAU:       1.5,
		Eccentricity:          0.2,
		InclinationRad:        0.3,
		LongAscendingNodeRad:  1.1,
		ArgPeriapsisRad:       0.7,
		MeanAnomalyAtEpochRad: 0.4,
		PeriodDays:            687,
	}

	// The mean anomaly is left unwrapped; positions one full period
	// apart must still coincide.
	a, err := Propagate(el, 123.5)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	b, err := Propagate(el, 123.5+el.PeriodDays)
	if err != nil {
		t.Fatalf("Propagate one period later: %v", err)
	}
	if d := a.Vec3.DistanceTo(b.Vec3); d > 1e-6 {
		t.Errorf("positions one period apart differ by %v AU", d)
	}
}

func TestPropagate_NodeRotationAboutZ(t *testing.T) {
	// With zero inclination and periapsis argument, the ascending node
	// angle is a plain rotation about z: at node pi/2 the periapsis
	// direction moves from +x to +y.
	el := model.OrbitalElements{
		SemiMajorAxisAU:      1,
		Eccentricity:         0,
		LongAscendingNodeRad: math.Pi / 2,
		PeriodDays:           365.25,
	}
	pos, err := Propagate(el, 0)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if math.Abs(pos.X) > 1e-9 || math.Abs(pos.Y-1) > 1e-9 || math.Abs(pos.Z) > 1e-12 {
		t.Errorf("got (%v, %v, %v), want (0, 1, 0)", pos.X, pos.Y, pos.Z)
	}
}

func TestPropagate_PolarOrbitLiftsOutOfPlane(t *testing.T) {
	// A 90 degree inclination maps the in-plane y axis onto z.
	el := model.OrbitalElements{
		SemiMajorAxisAU: 1,
		Eccentricity:    0,
		InclinationRad:  math.Pi / 2,
		PeriodDays:      365.25,
	}
	pos, err := Propagate(el, el.PeriodDays/4)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	if math.Abs(pos.X) > 1e-9 || math.Abs(pos.Y) > 1e-9 || math.Abs(pos.Z-1) > 1e-9 {
		t.Errorf("got (%v, %v, %v), want (0, 0, 1)", pos.X, pos.Y, pos.Z)
	}
}

func TestPropagate_InvalidElements(t *testing.T) {
	el := circularEarthOrbit()
	el.PeriodDays = 0
	if _, err := Propagate(el, 10); err == nil {
		t.Errorf("zero period should fail")
	}

	el = circularEarthOrbit()
	el.Eccentricity = 1.0
	_, err := Propagate(el, 10)
	if !errors.Is(err, ErrNoConvergence) {
		t.Errorf("parabolic eccentricity error = %v, want ErrNoConvergence", err)
	}
}

func TestOrbitPath_SamplesFullEllipse(t *testing.T) {
	el := model.OrbitalElements{
		SemiMajorAxisAU: 3,
		Eccentricity:    0.3,
		PeriodDays:      2000,
	}

	path, err := OrbitPath(el, 0)
	if err != nil {
		t.Fatalf("OrbitPath: %v", err)
	}
	if len(path) != DefaultOrbitPathSamples {
		t.Fatalf("len(path) = %d, want %d", len(path), DefaultOrbitPathSamples)
	}

	// First sample is periapsis (mean anomaly 0) on the +x axis.
	if math.Abs(path[0].X-el.Perihelion()) > 1e-9 || math.Abs(path[0].Y) > 1e-9 {
		t.Errorf("first sample = (%v, %v), want periapsis on +x", path[0].X, path[0].Y)
	}

	// Every radius stays within the apsides.
	for i, p := range path {
		if p.Distance < el.Perihelion()-1e-9 || p.Distance > el.Aphelion()+1e-9 {
			t.Errorf("sample %d radius %v outside [%v, %v]", i, p.Distance, el.Perihelion(), el.Aphelion())
		}
	}

	// The trace should cross into all four quadrants of the plane.
	var quadrants [4]bool
	for _, p := range path {
		switch {
		case p.X >= 0 && p.Y >= 0:
			quadrants[0] = true
		case p.X < 0 && p.Y >= 0:
			quadrants[1] = true
		case p.X < 0 && p.Y < 0:
			quadrants[2] = true
		default:
			quadrants[3] = true
		}
	}
	for q, seen := range quadrants {
		if !seen {
			t.Errorf("orbit path never visited quadrant %d", q+1)
		}
	}
}

func TestOrbitPath_CustomSampleCount(t *testing.T) {
	path, err := OrbitPath(circularEarthOrbit(), 16)
	if err != nil {
		t.Fatalf("OrbitPath: %v", err)
	}
	if len(path) != 16 {
		t.Errorf("len(path) = %d, want 16", len(path))
	}
}

func TestPropagateVelocity_CircularSpeed(t *testing.T) {
	el := circularEarthOrbit()

	v, err := PropagateVelocity(el, 42, 0)
	if err != nil {
		t.Fatalf("PropagateVelocity: %v", err)
	}

	// Circular orbit speed is 2*pi*a/period, direction normal to the
	// radius vector.
	wantSpeed := 2 * math.Pi * el.SemiMajorAxisAU / el.PeriodDays
	if got := v.Norm(); math.Abs(got-wantSpeed) > wantSpeed*1e-3 {
		t.Errorf("speed = %v AU/day, want about %v", got, wantSpeed)
	}

	pos, err := Propagate(el, 42)
	if err != nil {
		t.Fatalf("Propagate: %v", err)
	}
	radial := math.Abs(pos.Vec3.Dot(v)) / (pos.Vec3.Norm() * v.Norm())
	if radial > 1e-3 {
		t.Errorf("velocity not tangential: normalized radial component %v", radial)
	}
}
