package astro

// Scene-facing conversion constants. The rendering layer historically
// consumed these rounded values; the precise factors in units.go are
// for unit conversion proper. Both are kept so existing consumers see
// unchanged numbers.
const (
	auPerParsecScene = 206265.0
	lyPerParsecScene = 3.26
)

// DistanceBreakdown is a single separation expressed in the three units
// the UI labels with.
type DistanceBreakdown struct {
	AU         float64
	Parsecs    float64
	LightYears float64
}

// DistanceBetween converts the raw Cartesian separation of two
// positions in AU into the labeled breakdown. Pure and total for finite
// inputs.
func DistanceBetween(a, b Vec3) DistanceBreakdown {
	au := EuclideanDistance(a, b)
	pc := au / auPerParsecScene
	return DistanceBreakdown{
		AU:         au,
		Parsecs:    pc,
		LightYears: pc * lyPerParsecScene,
	}
}

// DistanceBetweenParsecs is the catalog-side variant for positions held
// in parsecs, using the precise conversion factors.
func DistanceBetweenParsecs(a, b Vec3) DistanceBreakdown {
	pc := EuclideanDistance(a, b)
	return DistanceBreakdown{
		AU:         pc * AUPerParsec,
		Parsecs:    pc,
		LightYears: pc * LightYearsPerParsec,
	}
}
