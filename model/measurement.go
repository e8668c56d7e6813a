package model

import "math"

// EquatorialMeasurement is a raw catalog astrometry record: ICRS right
// ascension and declination in degrees plus a parallax and its standard
// error in milliarcseconds. Values are immutable once constructed.
type EquatorialMeasurement struct {
	RADeg          float64
	DecDeg         float64
	ParallaxMas    float64
	ParallaxErrMas float64
}

// NewEquatorialMeasurement normalizes raw catalog fields on ingestion:
// RA is wrapped into [0, 360) and Dec clamped to [-90, 90]. The
// downstream conversion functions assume already-normalized input and do
// not re-normalize.
func NewEquatorialMeasurement(raDeg, decDeg, parallaxMas, parallaxErrMas float64) EquatorialMeasurement {
	ra := math.Mod(raDeg, 360)
	if ra < 0 {
		ra += 360
	}
	dec := decDeg
	if dec > 90 {
		dec = 90
	} else if dec < -90 {
		dec = -90
	}
	return EquatorialMeasurement{
		RADeg:          ra,
		DecDeg:         dec,
		ParallaxMas:    parallaxMas,
		ParallaxErrMas: parallaxErrMas,
	}
}
