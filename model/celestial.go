package model

import "time"

// ObjectType classifies a catalog entry.
type ObjectType string

const (
	TypeStar      ObjectType = "star"
	TypePlanet    ObjectType = "planet"
	TypeMoon      ObjectType = "moon"
	TypeGalaxy    ObjectType = "galaxy"
	TypeNebula    ObjectType = "nebula"
	TypeSatellite ObjectType = "satellite"
	TypeOther     ObjectType = "other"
)

// MotionSource indicates how an object's position evolves over simulation time.
type MotionSource int

const (
	MotionStatic    MotionSource = iota // fixed position derived from the measurement
	MotionKeplerian                     // two-body propagation from orbital elements
	MotionTLE                           // SGP4 propagation from a two-line element set
)

// Position is a Cartesian position as stored on a catalog object.
// Orbiting bodies carry AU, fixed objects carry parsecs.
type Position struct {
	X float64
	Y float64
	Z float64
}

// CelestialObject represents one catalog entry: a star, planet, moon,
// galaxy, or Earth satellite. Identity and source measurements are set at
// ingestion; Position and DistancePc are derived and maintained by the
// simulation engine and catalog.
type CelestialObject struct {
	ID   string
	Name string
	Type ObjectType

	// Measurement holds the raw equatorial astrometry for fixed objects.
	// Orbiting bodies leave it zero and carry Elements or a TLE instead.
	Measurement EquatorialMeasurement

	Magnitude    float64
	SpectralType string
	Source       string
	ExternalID   string

	MotionSource MotionSource
	Elements     *OrbitalElements // nil unless MotionKeplerian
	TLELine1     string           // set for MotionTLE
	TLELine2     string

	// Derived state, recomputed whenever the measurement or the
	// simulation time changes. Never authoritative.
	Position   Position
	DistancePc float64

	// Optional per-object LOD visibility range in AU. Zero means
	// unbounded on that side.
	LODNearAU float64
	LODFarAU  float64

	Properties map[string]any
	UpdatedAt  time.Time
}

// Orbits reports whether the object's position is a function of
// simulation time.
func (o *CelestialObject) Orbits() bool {
	return o.MotionSource != MotionStatic
}
