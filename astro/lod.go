package astro

import (
	"fmt"
	"math"
)

// Tier is a discrete level-of-detail bucket, ordered by increasing
// observer distance.
type Tier int

const (
	TierNear Tier = iota
	TierMid
	TierFar
	TierGalaxy
)

// String returns the wire spelling used in API payloads.
func (t Tier) String() string {
	switch t {
	case TierNear:
		return "near"
	case TierMid:
		return "mid"
	case TierFar:
		return "far"
	case TierGalaxy:
		return "galaxy"
	default:
		return "unknown"
	}
}

// LODConfig holds the distance thresholds (AU) separating tiers and the
// magnitude cutoffs interpolated between NearAU and FarAU. All values
// are explicit construction inputs; there is no ambient default state.
type LODConfig struct {
	NearAU float64
	MidAU  float64
	FarAU  float64

	// NearLimitMag is the faintest magnitude shown to a close observer,
	// FarLimitMag the cutoff once the observer is at FarAU or beyond.
	NearLimitMag float64
	FarLimitMag  float64
}

// DefaultLODConfig returns the stock tiering: planetary neighbourhood,
// nearby stars, galactic disk, beyond.
func DefaultLODConfig() LODConfig {
	return LODConfig{
		NearAU:       1e3,
		MidAU:        1e6,
		FarAU:        1e9,
		NearLimitMag: 15.0,
		FarLimitMag:  6.5,
	}
}

// LODClassifier maps observer distance to a tier and a continuous
// visible-magnitude cutoff. Pure mapping; frustum and visibility
// culling belong to the camera layer.
type LODClassifier struct {
	cfg LODConfig
}

// NewLODClassifier validates the threshold ordering and returns a
// classifier. Thresholds must be positive and strictly increasing.
func NewLODClassifier(cfg LODConfig) (*LODClassifier, error) {
	if cfg.NearAU <= 0 || cfg.MidAU <= cfg.NearAU || cfg.FarAU <= cfg.MidAU {
		return nil, fmt.Errorf("lod thresholds must satisfy 0 < near < mid < far, got %g/%g/%g",
			cfg.NearAU, cfg.MidAU, cfg.FarAU)
	}
	return &LODClassifier{cfg: cfg}, nil
}

// Config returns the classifier's construction parameters.
func (c *LODClassifier) Config() LODConfig {
	return c.cfg
}

// ClassifyTier buckets an observer distance in AU. Strict less-than
// comparisons at each threshold; total over all finite inputs.
func (c *LODClassifier) ClassifyTier(observerDistanceAU float64) Tier {
	switch {
	case observerDistanceAU < c.cfg.NearAU:
		return TierNear
	case observerDistanceAU < c.cfg.MidAU:
		return TierMid
	case observerDistanceAU < c.cfg.FarAU:
		return TierFar
	default:
		return TierGalaxy
	}
}

// MagnitudeLimit interpolates the visible-magnitude cutoff for an
// observer distance: logarithmic in distance across [NearAU, FarAU],
// linear in magnitude between the two limits. Closer observers reveal
// fainter objects.
func (c *LODClassifier) MagnitudeLimit(observerDistanceAU float64) float64 {
	if observerDistanceAU <= 0 {
		return c.cfg.NearLimitMag
	}

	logNear := math.Log10(c.cfg.NearAU)
	logFar := math.Log10(c.cfg.FarAU)
	t := (logFar - math.Log10(observerDistanceAU)) / (logFar - logNear)
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}

	return c.cfg.FarLimitMag + (c.cfg.NearLimitMag-c.cfg.FarLimitMag)*t
}

// InLODRange reports whether an observer distance falls inside an
// object's configured visibility range, bounds inclusive. Non-positive
// bounds are unset and permissive, so objects with no range configured
// are always in range.
func (c *LODClassifier) InLODRange(objectNearAU, objectFarAU, observerDistanceAU float64) bool {
	if objectNearAU > 0 && observerDistanceAU < objectNearAU {
		return false
	}
	if objectFarAU > 0 && observerDistanceAU > objectFarAU {
		return false
	}
	return true
}
