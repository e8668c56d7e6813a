package astro

import (
	"fmt"
	"math"

	"github.com/stellarworks/universe-simulator/model"
)

// DefaultOrbitPathSamples is the sample count for static orbit traces.
const DefaultOrbitPathSamples = 100

// Propagate computes the heliocentric Cartesian position (AU) of a body
// on the given orbit at timeOffsetDays from the element epoch:
//
//  1. mean anomaly M = M0 + (2π/period)·t, left unwrapped
//  2. eccentric anomaly E from SolveKepler
//  3. true anomaly ν = 2·atan2(√(1+e)·sin(E/2), √(1-e)·cos(E/2))
//  4. radius r = a·(1 - e·cos E)
//  5. in-plane position (r·cos ν, r·sin ν, 0)
//  6. rotation by argument of periapsis, inclination, and longitude of
//     ascending node (3-1-3 sequence, combined matrix below)
//
// A solver failure propagates as ErrNoConvergence; no other inputs fail
// for well-formed elements.
func Propagate(el model.OrbitalElements, timeOffsetDays float64) (CartesianPosition, error) {
	if el.PeriodDays <= 0 {
		return CartesianPosition{}, fmt.Errorf("orbit propagation: non-positive period %g days", el.PeriodDays)
	}

	meanAnomaly := el.MeanAnomalyAtEpochRad + (2*math.Pi/el.PeriodDays)*timeOffsetDays
	E, err := SolveKepler(meanAnomaly, el.Eccentricity)
	if err != nil {
		return CartesianPosition{}, err
	}
	return positionFromEccentricAnomaly(el, E), nil
}

// OrbitPath samples a full static orbit trace: mean anomaly swept
// uniformly over [0, 2π) with the time term held at zero, in increasing
// order. samples <= 0 selects DefaultOrbitPathSamples.
func OrbitPath(el model.OrbitalElements, samples int) ([]CartesianPosition, error) {
	if samples <= 0 {
		samples = DefaultOrbitPathSamples
	}

	path := make([]CartesianPosition, 0, samples)
	for k := 0; k < samples; k++ {
		meanAnomaly := 2 * math.Pi * float64(k) / float64(samples)
		E, err := SolveKepler(meanAnomaly, el.Eccentricity)
		if err != nil {
			return nil, fmt.Errorf("orbit path sample %d: %w", k, err)
		}
		path = append(path, positionFromEccentricAnomaly(el, E))
	}
	return path, nil
}

// PropagateVelocity estimates the orbital velocity in AU/day at
// timeOffsetDays via a central difference over stepDays (default 0.5).
func PropagateVelocity(el model.OrbitalElements, timeOffsetDays, stepDays float64) (Vec3, error) {
	if stepDays <= 0 {
		stepDays = 0.5
	}
	ahead, err := Propagate(el, timeOffsetDays+stepDays)
	if err != nil {
		return Vec3{}, err
	}
	behind, err := Propagate(el, timeOffsetDays-stepDays)
	if err != nil {
		return Vec3{}, err
	}
	return ahead.Vec3.Sub(behind.Vec3).Scale(1 / (2 * stepDays)), nil
}

// positionFromEccentricAnomaly applies steps 3-6: anomaly conversion,
// radius, in-plane position, and the combined 3-1-3 rotation into the
// reference frame. The matrix entries and their signs follow the
// standard composition
//
//	x' = (cosΩ·cosω − sinΩ·sinω·cosi)·x + (−cosΩ·sinω − sinΩ·cosω·cosi)·y
//	y' = (sinΩ·cosω + cosΩ·sinω·cosi)·x + (−sinΩ·sinω + cosΩ·cosω·cosi)·y
//	z' = (sinω·sini)·x + (cosω·sini)·y
func positionFromEccentricAnomaly(el model.OrbitalElements, E float64) CartesianPosition {
	e := el.Eccentricity

	trueAnomaly := 2 * math.Atan2(
		math.Sqrt(1+e)*math.Sin(E/2),
		math.Sqrt(1-e)*math.Cos(E/2),
	)
	radius := el.SemiMajorAxisAU * (1 - e*math.Cos(E))

	xp := radius * math.Cos(trueAnomaly)
	yp := radius * math.Sin(trueAnomaly)

	cosNode := math.Cos(el.LongAscendingNodeRad)
	sinNode := math.Sin(el.LongAscendingNodeRad)
	cosPeri := math.Cos(el.ArgPeriapsisRad)
	sinPeri := math.Sin(el.ArgPeriapsisRad)
	cosInc := math.Cos(el.InclinationRad)
	sinInc := math.Sin(el.InclinationRad)

	r11 := cosNode*cosPeri - sinNode*sinPeri*cosInc
	r12 := -cosNode*sinPeri - sinNode*cosPeri*cosInc
	r21 := sinNode*cosPeri + cosNode*sinPeri*cosInc
	r22 := -sinNode*sinPeri + cosNode*cosPeri*cosInc
	r31 := sinPeri * sinInc
	r32 := cosPeri * sinInc

	return CartesianPosition{
		Vec3: Vec3{
			X: r11*xp + r12*yp,
			Y: r21*xp + r22*yp,
			Z: r31*xp + r32*yp,
		},
		Distance: radius,
	}
}
