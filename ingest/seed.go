// Package ingest loads celestial objects into the catalog: a built-in
// dataset for first boot plus a JSON scenario loader for custom skies.
package ingest

import (
	"fmt"
	"math"

	"github.com/stellarworks/universe-simulator/astro"
	"github.com/stellarworks/universe-simulator/catalog"
	"github.com/stellarworks/universe-simulator/model"
)

// SeedSummary reports what the built-in dataset loaded.
type SeedSummary struct {
	SolarSystem int // Sun plus the eight planets
	Stars       int
	Satellites  int
}

// Total returns the number of objects added across all groups.
func (s SeedSummary) Total() int {
	return s.SolarSystem + s.Stars + s.Satellites
}

// planetRow holds JPL approximate Keplerian elements at epoch J2000.
// Angles are degrees; the table spells longitudes the way JPL publishes
// them (mean longitude L, longitude of perihelion, longitude of the
// ascending node), so the conversion to argument-of-periapsis form
// happens in elementsFromJPL.
type planetRow struct {
	name       string
	a          float64 // semi-major axis, AU
	e          float64
	inclDeg    float64
	meanLong   float64
	longPeri   float64
	longNode   float64
	periodDays float64
	magnitude  float64
	radiusKm   float64
	massKg     float64
}

var planetTable = []planetRow{
	{"Mercury", 0.38709843, 0.20563661, 7.00559432, 252.25166724, 77.45771895, 48.33961819, 87.969, -0.42, 2439.7, 3.301e23},
	{"Venus", 0.72333566, 0.00677672, 3.39467605, 181.97970850, 131.76755713, 76.67984255, 224.701, -4.40, 6051.8, 4.867e24},
	{"Earth", 1.00000261, 0.01671123, -0.00001531, 100.46457166, 102.93768193, 0.0, 365.256, -3.99, 6378.137, 5.972e24},
	{"Mars", 1.52371034, 0.09339410, 1.84969142, -4.55343205, -23.94362959, 49.55953891, 686.98, -2.94, 3396.2, 6.417e23},
	{"Jupiter", 5.20288700, 0.04838624, 1.30439695, 34.39644051, 14.72847983, 100.47390909, 4332.59, -2.70, 71492.0, 1.898e27},
	{"Saturn", 9.53667594, 0.05386179, 2.48599187, 49.95424423, 92.59887831, 113.66242448, 10759.22, 0.67, 60268.0, 5.683e26},
	{"Uranus", 19.18916464, 0.04725744, 0.77263783, 313.23810451, 170.95427630, 74.01692503, 30685.4, 5.68, 25559.0, 8.681e25},
	{"Neptune", 30.06992276, 0.00859048, 1.77004347, -55.12002969, 44.96476227, 131.78422574, 60189.0, 7.84, 24764.0, 1.024e26},
}

// starRow is a Hipparcos-style astrometric record for one bright star.
type starRow struct {
	name           string
	raDeg          float64
	decDeg         float64
	parallaxMas    float64
	parallaxErrMas float64
	magnitude      float64
	spectralType   string
}

var starTable = []starRow{
	{"Sirius", 101.287, -16.716, 379.21, 1.58, -1.46, "A1V"},
	{"Canopus", 95.988, -52.696, 10.43, 0.53, -0.74, "A9II"},
	{"Arcturus", 213.915, 19.182, 88.83, 0.54, -0.05, "K1.5III"},
	{"Vega", 279.234, 38.784, 130.23, 0.36, 0.03, "A0V"},
	{"Capella", 79.172, 45.998, 76.20, 0.46, 0.08, "G5III"},
	{"Rigel", 78.634, -8.202, 3.78, 0.34, 0.13, "B8Ia"},
	{"Procyon", 114.825, 5.225, 284.56, 1.26, 0.34, "F5IV"},
	{"Betelgeuse", 88.793, 7.407, 5.95, 0.85, 0.50, "M1-2Ia"},
}

// The reference TLE used for the ISS when no live fetch is configured.
const (
	issTLELine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLELine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

// SeedAll loads the complete built-in dataset into cat. Intended for
// first boot against an empty catalog; duplicate IDs from a previous
// load surface as errors.
func SeedAll(cat *catalog.Catalog) (SeedSummary, error) {
	var sum SeedSummary
	var err error

	if sum.SolarSystem, err = SeedSolarSystem(cat); err != nil {
		return sum, err
	}
	if sum.Stars, err = SeedBrightStars(cat); err != nil {
		return sum, err
	}
	if sum.Satellites, err = SeedSatellites(cat); err != nil {
		return sum, err
	}
	return sum, nil
}

// SeedSolarSystem adds the Sun at the origin and the eight planets with
// their J2000 Keplerian elements. Planet positions are propagated to
// epoch so the catalog is renderable before the simulation engine takes
// over.
func SeedSolarSystem(cat *catalog.Catalog) (int, error) {
	sun := &model.CelestialObject{
		ID:           "sun",
		Name:         "Sun",
		Type:         model.TypeStar,
		Magnitude:    -26.74,
		SpectralType: "G2V",
		Source:       "JPL",
		ExternalID:   "sun",
		MotionSource: model.MotionStatic,
	}
	if err := cat.Add(sun); err != nil {
		return 0, fmt.Errorf("seed solar system: %w", err)
	}
	added := 1

	for _, row := range planetTable {
		elements := elementsFromJPL(row)

		pos, err := astro.Propagate(*elements, 0)
		if err != nil {
			return added, fmt.Errorf("seed solar system: propagate %s: %w", row.name, err)
		}

		obj := &model.CelestialObject{
			ID:           slug(row.name),
			Name:         row.name,
			Type:         model.TypePlanet,
			Magnitude:    row.magnitude,
			Source:       "JPL",
			ExternalID:   slug(row.name),
			MotionSource: model.MotionKeplerian,
			Elements:     elements,
			Position:     model.Position{X: pos.X, Y: pos.Y, Z: pos.Z},
			DistancePc:   pos.Norm() / astro.AUPerParsec,
			Properties: map[string]any{
				"radius_km": row.radiusKm,
				"mass_kg":   row.massKg,
			},
		}
		if err := cat.Add(obj); err != nil {
			return added, fmt.Errorf("seed solar system: %w", err)
		}
		added++
	}
	return added, nil
}

// SeedBrightStars adds a small Hipparcos-derived sample of the brightest
// stars. Each parallax runs through validation so low-quality
// measurements would still land at their prior distance.
func SeedBrightStars(cat *catalog.Catalog) (int, error) {
	added := 0
	for _, row := range starTable {
		m := model.NewEquatorialMeasurement(row.raDeg, row.decDeg, row.parallaxMas, row.parallaxErrMas)
		pos, dist := staticPosition(m)

		obj := &model.CelestialObject{
			ID:           slug(row.name),
			Name:         row.name,
			Type:         model.TypeStar,
			Measurement:  m,
			Magnitude:    row.magnitude,
			SpectralType: row.spectralType,
			Source:       "Gaia_DR3_sample",
			ExternalID:   slug(row.name),
			MotionSource: model.MotionStatic,
			Position:     pos,
			DistancePc:   dist,
		}
		if err := cat.Add(obj); err != nil {
			return added, fmt.Errorf("seed stars: %w", err)
		}
		added++
	}
	return added, nil
}

// SeedSatellites adds the Earth satellites tracked by TLE. Positions are
// left zero; the SGP4 motion model owns them from the first tick.
func SeedSatellites(cat *catalog.Catalog) (int, error) {
	iss := &model.CelestialObject{
		ID:           "iss",
		Name:         "ISS (ZARYA)",
		Type:         model.TypeSatellite,
		Source:       "Celestrak",
		ExternalID:   "25544",
		MotionSource: model.MotionTLE,
		TLELine1:     issTLELine1,
		TLELine2:     issTLELine2,
		// Low orbit: only render when the camera is nearby.
		LODFarAU: 0.05,
	}
	if err := cat.Add(iss); err != nil {
		return 0, fmt.Errorf("seed satellites: %w", err)
	}
	return 1, nil
}

// elementsFromJPL converts a JPL table row into argument-of-periapsis
// form: ω = ϖ − Ω and M₀ = L − ϖ, wrapped to [0, 360) before the
// radian conversion. Inclination is kept as published, including
// Earth's slightly negative value.
func elementsFromJPL(row planetRow) *model.OrbitalElements {
	argPeri := wrapDeg(row.longPeri - row.longNode)
	meanAnom := wrapDeg(row.meanLong - row.longPeri)

	return &model.OrbitalElements{
		SemiMajorAxisAU:       row.a,
		Eccentricity:          row.e,
		InclinationRad:        degToRad(row.inclDeg),
		LongAscendingNodeRad:  degToRad(wrapDeg(row.longNode)),
		ArgPeriapsisRad:       degToRad(argPeri),
		MeanAnomalyAtEpochRad: degToRad(meanAnom),
		PeriodDays:            row.periodDays,
	}
}

// staticPosition derives a Cartesian position in parsecs from an
// equatorial measurement. The estimate never fails: bad parallaxes fall
// back to the photogeometric prior, so every object lands somewhere.
func staticPosition(m model.EquatorialMeasurement) (model.Position, float64) {
	est := astro.ValidateParallax(m.ParallaxMas, m.ParallaxErrMas)
	dir := astro.DirectionFromEquatorial(m.RADeg, m.DecDeg).Scale(est.DistancePc)
	return model.Position{X: dir.X, Y: dir.Y, Z: dir.Z}, est.DistancePc
}

func slug(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		case r == ' ':
			out = append(out, '_')
		}
	}
	return string(out)
}

func wrapDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func degToRad(d float64) float64 { return d * math.Pi / 180.0 }
