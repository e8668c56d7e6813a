package astro

import "math"

// Parallax handling constants. The prior scale length and SNR cutoff
// follow the catalog-ingestion conventions of Gaia-style astrometry:
// below the cutoff a trigonometric inversion is numerically meaningless
// and a photogeometric prior takes over.
const (
	// DefaultPriorLengthPc is the exponential prior scale length used
	// by the Bailer-Jones style fallback estimator.
	DefaultPriorLengthPc = 1350.0

	// parallaxSNRCutoff separates trustworthy trigonometric parallaxes
	// from prior-dominated ones.
	parallaxSNRCutoff = 5.0

	// Plausibility clamp for prior-based distances, parsecs.
	minPriorDistancePc = 10.0
	maxPriorDistancePc = 10000.0

	// Relative uncertainty attached to prior-based estimates.
	priorUncertaintyFraction = 0.30
)

// CartesianPosition is a derived 3D position plus the radial distance it
// was computed from. The unit (parsecs or AU) is tracked by the caller.
// Value type; never mutated after computation.
type CartesianPosition struct {
	Vec3
	Distance float64
}

// Method identifies how a DistanceEstimate was derived.
type Method int

const (
	// MethodTrigonometric is a direct parallax inversion.
	MethodTrigonometric Method = iota
	// MethodPhotogeometric is the prior-based fallback estimate.
	MethodPhotogeometric
)

// String returns the wire spelling used in API payloads.
func (m Method) String() string {
	switch m {
	case MethodTrigonometric:
		return "trigonometric"
	case MethodPhotogeometric:
		return "photogeometric"
	default:
		return "unknown"
	}
}

// DistanceEstimate is the outcome of parallax validation: a distance
// that is always usable, tagged with how it was obtained and how much
// to trust it.
type DistanceEstimate struct {
	DistancePc    float64
	UncertaintyPc float64
	SNR           float64
	Method        Method
	// Valid is true only on the trigonometric branch, i.e. when the
	// parallax itself was good enough to invert.
	Valid bool
}

// ParallaxToDistance inverts a parallax in milliarcseconds into a
// distance in parsecs. Returns ok=false for non-positive or NaN
// parallax; negative or zero parallax has no trigonometric distance.
func ParallaxToDistance(parallaxMas float64) (float64, bool) {
	if parallaxMas <= 0 || math.IsNaN(parallaxMas) {
		return 0, false
	}
	return 1000.0 / parallaxMas, true
}

// DirectionFromEquatorial returns the unit vector pointing at the given
// RA/Dec in the ICRS frame.
func DirectionFromEquatorial(raDeg, decDeg float64) Vec3 {
	ra := degToRad(raDeg)
	dec := degToRad(decDeg)
	cosDec := math.Cos(dec)
	return Vec3{
		X: cosDec * math.Cos(ra),
		Y: cosDec * math.Sin(ra),
		Z: math.Sin(dec),
	}
}

// EquatorialToCartesian converts an ICRS equatorial measurement into a
// Cartesian position in parsecs:
//
//	x = d·cos(dec)·cos(ra)
//	y = d·cos(dec)·sin(ra)
//	z = d·sin(dec)
//
// Returns ok=false when the parallax has no trigonometric distance.
// RA/Dec are used as given; normalization happens at ingestion.
func EquatorialToCartesian(raDeg, decDeg, parallaxMas float64) (CartesianPosition, bool) {
	d, ok := ParallaxToDistance(parallaxMas)
	if !ok {
		return CartesianPosition{}, false
	}
	return CartesianPosition{
		Vec3:     DirectionFromEquatorial(raDeg, decDeg).Scale(d),
		Distance: d,
	}, true
}

// CartesianToEquatorial inverts EquatorialToCartesian: RA in [0, 360)
// degrees, Dec in degrees, distance in the input unit. The origin maps
// to (0, 0, 0).
func CartesianToEquatorial(p Vec3) (raDeg, decDeg, distance float64) {
	r := p.Norm()
	if r == 0 {
		return 0, 0, 0
	}
	ra := radToDeg(math.Atan2(p.Y, p.X))
	if ra < 0 {
		ra += 360
	}
	dec := radToDeg(math.Asin(p.Z / r))
	return ra, dec, r
}

// ValidateParallax turns a parallax measurement into a distance
// estimate that never fails. High-SNR positive parallaxes are inverted
// directly with first-order error propagation; everything else falls
// back to the photogeometric prior with a flat 30% uncertainty. Low-SNR
// and negative parallaxes are common in real catalogs, so the fallback
// is the normal path for faint objects, not an error.
func ValidateParallax(parallaxMas, errorMas float64) DistanceEstimate {
	snr := 0.0
	if errorMas > 0 {
		snr = math.Abs(parallaxMas) / errorMas
	}

	if parallaxMas > 0 && snr > parallaxSNRCutoff {
		d := 1000.0 / parallaxMas
		return DistanceEstimate{
			DistancePc:    d,
			UncertaintyPc: (errorMas / (parallaxMas * parallaxMas)) * 1000.0,
			SNR:           snr,
			Method:        MethodTrigonometric,
			Valid:         true,
		}
	}

	d := BailerJonesDistance(parallaxMas, errorMas, DefaultPriorLengthPc)
	return DistanceEstimate{
		DistancePc:    d,
		UncertaintyPc: d * priorUncertaintyFraction,
		SNR:           snr,
		Method:        MethodPhotogeometric,
		Valid:         false,
	}
}

// BailerJonesDistance is a single-mode stand-in for a Bayesian
// photogeometric distance prior. Non-positive parallaxes get the mode
// of an exponentially decreasing density prior (half the scale length);
// positive ones get a plain inversion clamped to a plausible stellar
// range. It is deliberately coarse: an availability fallback, not a
// rigorous posterior.
func BailerJonesDistance(parallaxMas, errorMas, priorLengthPc float64) float64 {
	if parallaxMas <= 0 || math.IsNaN(parallaxMas) {
		return priorLengthPc / 2
	}
	d := 1.0 / (parallaxMas / 1000.0)
	if d < minPriorDistancePc {
		return minPriorDistancePc
	}
	if d > maxPriorDistancePc {
		return maxPriorDistancePc
	}
	return d
}

func degToRad(deg float64) float64 { return deg * math.Pi / 180.0 }

func radToDeg(rad float64) float64 { return rad * 180.0 / math.Pi }
