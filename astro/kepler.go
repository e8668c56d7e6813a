package astro

import (
	"errors"
	"fmt"
	"math"
)

// Defaults for the Kepler equation solver.
const (
	DefaultKeplerTolerance     = 1e-6
	DefaultKeplerMaxIterations = 50
)

// ErrNoConvergence is returned when the Kepler solver fails to reach the
// requested tolerance within its iteration cap. It indicates degenerate
// input (such as eccentricity at or beyond 1) and is recoverable: the
// failure is confined to the single query.
var ErrNoConvergence = errors.New("kepler solver did not converge")

type keplerOptions struct {
	tolerance     float64
	maxIterations int
}

// KeplerOption adjusts solver parameters for a single call.
type KeplerOption func(*keplerOptions)

// WithTolerance overrides the convergence tolerance on the eccentric
// anomaly update step.
func WithTolerance(tol float64) KeplerOption {
	return func(o *keplerOptions) { o.tolerance = tol }
}

// WithMaxIterations overrides the iteration cap.
func WithMaxIterations(n int) KeplerOption {
	return func(o *keplerOptions) { o.maxIterations = n }
}

// SolveKepler finds the eccentric anomaly E satisfying Kepler's equation
// M = E - e·sin(E) by Newton-Raphson iteration starting from E = M:
//
//	E -= (E - e·sin(E) - M) / (1 - e·cos(E))
//
// until the update magnitude is within tolerance. The iteration cap
// turns non-convergence into ErrNoConvergence instead of a spin; the
// mean anomaly may be any real angle, unwrapped.
func SolveKepler(meanAnomalyRad, eccentricity float64, opts ...KeplerOption) (float64, error) {
	o := keplerOptions{
		tolerance:     DefaultKeplerTolerance,
		maxIterations: DefaultKeplerMaxIterations,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if eccentricity < 0 || eccentricity >= 1 {
		return 0, fmt.Errorf("%w: eccentricity %g outside [0, 1)", ErrNoConvergence, eccentricity)
	}

	E := meanAnomalyRad
	for i := 0; i < o.maxIterations; i++ {
		delta := (E - eccentricity*math.Sin(E) - meanAnomalyRad) / (1 - eccentricity*math.Cos(E))
		E -= delta
		if math.Abs(delta) <= o.tolerance {
			return E, nil
		}
	}
	return 0, fmt.Errorf("%w after %d iterations (M=%g, e=%g)",
		ErrNoConvergence, o.maxIterations, meanAnomalyRad, eccentricity)
}
