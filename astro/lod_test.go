package astro

import (
	"math"
	"testing"
)

func testClassifier(t *testing.T) *LODClassifier {
	t.Helper()
	c, err := NewLODClassifier(DefaultLODConfig())
	if err != nil {
		t.Fatalf("NewLODClassifier: %v", err)
	}
	return c
}

func TestNewLODClassifier_RejectsBadThresholds(t *testing.T) {
	bad := []LODConfig{
		{NearAU: 0, MidAU: 10, FarAU: 100},
		{NearAU: 10, MidAU: 10, FarAU: 100},
		{NearAU: 10, MidAU: 5, FarAU: 100},
		{NearAU: 10, MidAU: 20, FarAU: 20},
	}
	for i, cfg := range bad {
		if _, err := NewLODClassifier(cfg); err == nil {
			t.Errorf("config %d accepted, want threshold ordering error", i)
		}
	}
}

func TestClassifyTier_Boundaries(t *testing.T) {
	c := testClassifier(t)
	cfg := c.Config()

	cases := []struct {
		distanceAU float64
		want       Tier
	}{
		{0, TierNear},
		{cfg.NearAU - 1, TierNear},
		{cfg.NearAU, TierMid}, // strict less-than at each threshold
		{cfg.MidAU - 1, TierMid},
		{cfg.MidAU, TierFar},
		{cfg.FarAU - 1, TierFar},
		{cfg.FarAU, TierGalaxy},
		{cfg.FarAU * 1000, TierGalaxy},
	}
	for _, tc := range cases {
		if got := c.ClassifyTier(tc.distanceAU); got != tc.want {
			t.Errorf("ClassifyTier(%v) = %v, want %v", tc.distanceAU, got, tc.want)
		}
	}
}

func TestClassifyTier_MonotonicAndTotal(t *testing.T) {
	c := testClassifier(t)

	prev := TierNear
	seen := map[Tier]bool{}
	for d := 1.0; d < 1e12; d *= 1.5 {
		tier := c.ClassifyTier(d)
		if tier < prev {
			t.Fatalf("tier decreased from %v to %v at distance %v", prev, tier, d)
		}
		seen[tier] = true
		prev = tier
	}
	for _, tier := range []Tier{TierNear, TierMid, TierFar, TierGalaxy} {
		if !seen[tier] {
			t.Errorf("sweep never produced tier %v", tier)
		}
	}
}

func TestMagnitudeLimit_Endpoints(t *testing.T) {
	c := testClassifier(t)
	cfg := c.Config()

	if got := c.MagnitudeLimit(cfg.NearAU); math.Abs(got-cfg.NearLimitMag) > 1e-9 {
		t.Errorf("MagnitudeLimit(near) = %v, want %v", got, cfg.NearLimitMag)
	}
	if got := c.MagnitudeLimit(cfg.FarAU); math.Abs(got-cfg.FarLimitMag) > 1e-9 {
		t.Errorf("MagnitudeLimit(far) = %v, want %v", got, cfg.FarLimitMag)
	}

	// Clamped outside the window.
	if got := c.MagnitudeLimit(cfg.NearAU / 100); got != cfg.NearLimitMag {
		t.Errorf("MagnitudeLimit below near = %v, want %v", got, cfg.NearLimitMag)
	}
	if got := c.MagnitudeLimit(cfg.FarAU * 100); got != cfg.FarLimitMag {
		t.Errorf("MagnitudeLimit beyond far = %v, want %v", got, cfg.FarLimitMag)
	}
}

func TestMagnitudeLimit_MonotonicInterpolation(t *testing.T) {
	c := testClassifier(t)
	cfg := c.Config()

	prev := c.MagnitudeLimit(cfg.NearAU)
	for d := cfg.NearAU * 1.1; d < cfg.FarAU; d *= 1.1 {
		got := c.MagnitudeLimit(d)
		if got > prev+1e-12 {
			t.Fatalf("magnitude limit increased from %v to %v at distance %v", prev, got, d)
		}
		if got < cfg.FarLimitMag-1e-9 || got > cfg.NearLimitMag+1e-9 {
			t.Fatalf("limit %v at distance %v escapes [%v, %v]", got, d, cfg.FarLimitMag, cfg.NearLimitMag)
		}
		prev = got
	}
}

func TestMagnitudeLimit_HalfwayInLogSpace(t *testing.T) {
	c := testClassifier(t)
	cfg := c.Config()

	// The geometric mean of the thresholds sits at t = 0.5, so the
	// limit is the arithmetic mean of the two magnitude cutoffs.
	mid := math.Sqrt(cfg.NearAU * cfg.FarAU)
	want := (cfg.NearLimitMag + cfg.FarLimitMag) / 2
	if got := c.MagnitudeLimit(mid); math.Abs(got-want) > 1e-9 {
		t.Errorf("MagnitudeLimit(geometric mean) = %v, want %v", got, want)
	}
}

func TestInLODRange(t *testing.T) {
	c := testClassifier(t)

	cases := []struct {
		name             string
		objNear, objFar  float64
		observerDistance float64
		want             bool
	}{
		{"no range configured", 0, 0, 5e9, true},
		{"inside", 10, 100, 50, true},
		{"at near bound", 10, 100, 10, true},
		{"at far bound", 10, 100, 100, true},
		{"below", 10, 100, 9.99, false},
		{"beyond", 10, 100, 100.01, false},
		{"only near bound", 10, 0, 1e12, true},
		{"only near bound, too close", 10, 0, 5, false},
		{"only far bound", 0, 100, 5, true},
		{"only far bound, too far", 0, 100, 101, false},
	}
	for _, tc := range cases {
		if got := c.InLODRange(tc.objNear, tc.objFar, tc.observerDistance); got != tc.want {
			t.Errorf("%s: InLODRange(%v, %v, %v) = %v, want %v",
				tc.name, tc.objNear, tc.objFar, tc.observerDistance, got, tc.want)
		}
	}
}
