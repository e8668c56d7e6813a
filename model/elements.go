package model

import "math"

// OrbitalElements describes a two-body Keplerian orbit. Angles are in
// radians, the semi-major axis in astronomical units, the period in
// days. Elements are set once at construction and never mutated; bodies
// do not change orbits in this engine.
type OrbitalElements struct {
	SemiMajorAxisAU       float64
	Eccentricity          float64 // [0, 1)
	InclinationRad        float64
	LongAscendingNodeRad  float64
	ArgPeriapsisRad       float64
	MeanAnomalyAtEpochRad float64
	PeriodDays            float64
}

// PeriodFromSemiMajorAxis returns the orbital period in days for a
// heliocentric orbit with the given semi-major axis in AU, by Kepler's
// third law with the Sun as the central body.
func PeriodFromSemiMajorAxis(semiMajorAxisAU float64) float64 {
	return 365.25 * math.Pow(semiMajorAxisAU, 1.5)
}

// Perihelion returns the closest approach to the focus in AU.
func (el OrbitalElements) Perihelion() float64 {
	return el.SemiMajorAxisAU * (1 - el.Eccentricity)
}

// Aphelion returns the farthest distance from the focus in AU.
func (el OrbitalElements) Aphelion() float64 {
	return el.SemiMajorAxisAU * (1 + el.Eccentricity)
}
