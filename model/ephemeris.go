package model

// EphemerisRecord is one sampled position/velocity row for an orbiting
// body, keyed by Julian date. Positions are AU, velocities AU/day.
type EphemerisRecord struct {
	ObjectID   string
	JulianDate float64
	X          float64
	Y          float64
	Z          float64
	VX         float64
	VY         float64
	VZ         float64
	Source     string
}
