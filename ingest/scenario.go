package ingest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/stellarworks/universe-simulator/astro"
	"github.com/stellarworks/universe-simulator/catalog"
	"github.com/stellarworks/universe-simulator/model"
)

// Scenario is a small summary of what was loaded from JSON. It's mainly
// useful for logging from main().
type Scenario struct {
	ObjectIDs   []string
	OrbitingIDs []string
}

// internal JSON shapes, kept unexported so the wire format can evolve.
type scenarioJSON struct {
	Objects []objectJSON `json:"objects"`
}

type objectJSON struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Type         string  `json:"type"` // star | planet | moon | galaxy | nebula | satellite
	RA           float64 `json:"ra"`
	Dec          float64 `json:"dec"`
	ParallaxMas  float64 `json:"parallax_mas"`
	ParallaxErr  float64 `json:"parallax_error_mas"`
	Magnitude    float64 `json:"magnitude"`
	SpectralType string  `json:"spectral_type"`
	Source       string  `json:"source"`
	ExternalID   string  `json:"external_id"`

	// Exactly one motion description: elements, a TLE pair, or neither
	// (static, placed from the measurement or the explicit position).
	Elements *elementsJSON `json:"elements"`
	TLE      []string      `json:"tle"`

	// Optional explicit position in parsecs; overrides the measurement
	// for static objects.
	Position *positionJSON `json:"position"`

	LODNearAU  float64        `json:"lod_near_au"`
	LODFarAU   float64        `json:"lod_far_au"`
	Properties map[string]any `json:"properties"`
}

type elementsJSON struct {
	SemiMajorAxisAU float64 `json:"semi_major_axis_au"`
	Eccentricity    float64 `json:"eccentricity"`
	InclinationDeg  float64 `json:"inclination_deg"`
	AscendingNode   float64 `json:"ascending_node_deg"`
	ArgPeriapsisDeg float64 `json:"arg_periapsis_deg"`
	MeanAnomalyDeg  float64 `json:"mean_anomaly_deg"`
	PeriodDays      float64 `json:"period_days"` // 0 means derive from Kepler's third law
}

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// LoadScenario reads a JSON scenario from r, adds its objects to the
// catalog, and returns a summary of what was loaded.
//
// It fails on JSON and structural errors (empty IDs, malformed TLEs);
// data-quality issues like weak parallaxes are handled the same way the
// built-in seed handles them, via the prior fallback.
func LoadScenario(cat *catalog.Catalog, r io.Reader) (*Scenario, error) {
	if cat == nil {
		return nil, fmt.Errorf("LoadScenario: catalog is nil")
	}

	var payload scenarioJSON
	dec := json.NewDecoder(r)
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}

	result := &Scenario{
		ObjectIDs: make([]string, 0, len(payload.Objects)),
	}

	for _, js := range payload.Objects {
		if js.ID == "" {
			return nil, fmt.Errorf("LoadScenario: object with empty id")
		}

		obj := &model.CelestialObject{
			ID:           js.ID,
			Name:         js.Name,
			Type:         typeFromString(js.Type),
			Measurement:  model.NewEquatorialMeasurement(js.RA, js.Dec, js.ParallaxMas, js.ParallaxErr),
			Magnitude:    js.Magnitude,
			SpectralType: js.SpectralType,
			Source:       js.Source,
			ExternalID:   js.ExternalID,
			LODNearAU:    js.LODNearAU,
			LODFarAU:     js.LODFarAU,
			Properties:   js.Properties,
		}

		switch {
		case js.Elements != nil:
			el, err := elementsFromJSON(js.Elements)
			if err != nil {
				return nil, fmt.Errorf("LoadScenario: object %q: %w", js.ID, err)
			}
			obj.MotionSource = model.MotionKeplerian
			obj.Elements = el

			pos, err := astro.Propagate(*el, 0)
			if err != nil {
				return nil, fmt.Errorf("LoadScenario: object %q: %w", js.ID, err)
			}
			obj.Position = model.Position{X: pos.X, Y: pos.Y, Z: pos.Z}
			obj.DistancePc = pos.Norm() / astro.AUPerParsec
			result.OrbitingIDs = append(result.OrbitingIDs, js.ID)

		case len(js.TLE) > 0:
			if len(js.TLE) != 2 {
				return nil, fmt.Errorf("LoadScenario: object %q: tle needs exactly 2 lines, got %d", js.ID, len(js.TLE))
			}
			obj.MotionSource = model.MotionTLE
			obj.TLELine1 = js.TLE[0]
			obj.TLELine2 = js.TLE[1]
			result.OrbitingIDs = append(result.OrbitingIDs, js.ID)

		case js.Position != nil:
			obj.MotionSource = model.MotionStatic
			obj.Position = model.Position{X: js.Position.X, Y: js.Position.Y, Z: js.Position.Z}
			obj.DistancePc = astro.Vec3{X: js.Position.X, Y: js.Position.Y, Z: js.Position.Z}.Norm()

		default:
			obj.MotionSource = model.MotionStatic
			obj.Position, obj.DistancePc = staticPosition(obj.Measurement)
		}

		if err := cat.Add(obj); err != nil {
			return nil, fmt.Errorf("LoadScenario: %w", err)
		}
		result.ObjectIDs = append(result.ObjectIDs, js.ID)
	}

	return result, nil
}

func elementsFromJSON(js *elementsJSON) (*model.OrbitalElements, error) {
	if js.SemiMajorAxisAU <= 0 {
		return nil, fmt.Errorf("semi_major_axis_au must be positive, got %g", js.SemiMajorAxisAU)
	}
	if js.Eccentricity < 0 || js.Eccentricity >= 1 {
		return nil, fmt.Errorf("eccentricity %g outside [0, 1)", js.Eccentricity)
	}

	period := js.PeriodDays
	if period == 0 {
		period = model.PeriodFromSemiMajorAxis(js.SemiMajorAxisAU)
	}
	if period <= 0 {
		return nil, fmt.Errorf("period_days must be positive, got %g", period)
	}

	return &model.OrbitalElements{
		SemiMajorAxisAU:       js.SemiMajorAxisAU,
		Eccentricity:          js.Eccentricity,
		InclinationRad:        degToRad(js.InclinationDeg),
		LongAscendingNodeRad:  degToRad(wrapDeg(js.AscendingNode)),
		ArgPeriapsisRad:       degToRad(wrapDeg(js.ArgPeriapsisDeg)),
		MeanAnomalyAtEpochRad: degToRad(wrapDeg(js.MeanAnomalyDeg)),
		PeriodDays:            period,
	}, nil
}

// typeFromString maps the JSON "type" string to an ObjectType. Kept
// tolerant: unknown or empty values become TypeOther rather than
// failing the load.
func typeFromString(s string) model.ObjectType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "star":
		return model.TypeStar
	case "planet":
		return model.TypePlanet
	case "moon":
		return model.TypeMoon
	case "galaxy":
		return model.TypeGalaxy
	case "nebula":
		return model.TypeNebula
	case "satellite":
		return model.TypeSatellite
	default:
		return model.TypeOther
	}
}
