package api

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/stellarworks/universe-simulator/astro"
	"github.com/stellarworks/universe-simulator/catalog"
	"github.com/stellarworks/universe-simulator/internal/sim"
	"github.com/stellarworks/universe-simulator/model"
	"github.com/stellarworks/universe-simulator/timectrl"
)

// j2000JD anchors Julian date conversions for on-demand ephemeris.
const j2000JD = 2451545.0

// maxRangeSamples bounds on-demand ephemeris and orbit path sizes.
const maxRangeSamples = 1000

type positionJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type objectJSON struct {
	ID             string       `json:"id"`
	Name           string       `json:"name"`
	Type           string       `json:"type"`
	RADeg          float64      `json:"ra_deg"`
	DecDeg         float64      `json:"dec_deg"`
	ParallaxMas    float64      `json:"parallax_mas"`
	ParallaxErrMas float64      `json:"parallax_error_mas"`
	Magnitude      float64      `json:"magnitude"`
	SpectralType   string       `json:"spectral_type,omitempty"`
	Source         string       `json:"source,omitempty"`
	ExternalID     string       `json:"external_id,omitempty"`
	Orbits         bool         `json:"orbits"`
	Position       positionJSON `json:"position"`
	DistancePc     float64      `json:"distance_pc"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

type elementsJSON struct {
	SemiMajorAxisAU float64 `json:"semi_major_axis_au"`
	Eccentricity    float64 `json:"eccentricity"`
	InclinationDeg  float64 `json:"inclination_deg"`
	AscendingDeg    float64 `json:"ascending_node_deg"`
	ArgPeriapsisDeg float64 `json:"arg_periapsis_deg"`
	MeanAnomalyDeg  float64 `json:"mean_anomaly_deg"`
	PeriodDays      float64 `json:"period_days"`
}

type estimateJSON struct {
	DistancePc    float64 `json:"distance_pc"`
	UncertaintyPc float64 `json:"uncertainty_pc"`
	SNR           float64 `json:"snr"`
	Method        string  `json:"method"`
	Valid         bool    `json:"valid"`
}

type lodJSON struct {
	Tier           int     `json:"tier"`
	TierName       string  `json:"tier_name"`
	MagnitudeLimit float64 `json:"magnitude_limit"`
}

type objectDetailJSON struct {
	objectJSON
	RAHMS    string        `json:"ra_hms,omitempty"`
	DecDMS   string        `json:"dec_dms,omitempty"`
	Estimate *estimateJSON `json:"estimate,omitempty"`
	Elements *elementsJSON `json:"elements,omitempty"`
	LOD      lodJSON       `json:"lod"`
}

type ephemerisRecordJSON struct {
	JulianDate float64 `json:"julian_date"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	VX         float64 `json:"vx"`
	VY         float64 `json:"vy"`
	VZ         float64 `json:"vz"`
	Source     string  `json:"source"`
}

func objectFromModel(obj model.CelestialObject) objectJSON {
	return objectJSON{
		ID:             obj.ID,
		Name:           obj.Name,
		Type:           string(obj.Type),
		RADeg:          obj.Measurement.RADeg,
		DecDeg:         obj.Measurement.DecDeg,
		ParallaxMas:    obj.Measurement.ParallaxMas,
		ParallaxErrMas: obj.Measurement.ParallaxErrMas,
		Magnitude:      obj.Magnitude,
		SpectralType:   obj.SpectralType,
		Source:         obj.Source,
		ExternalID:     obj.ExternalID,
		Orbits:         obj.Orbits(),
		Position:       positionJSON{X: obj.Position.X, Y: obj.Position.Y, Z: obj.Position.Z},
		DistancePc:     obj.DistancePc,
		UpdatedAt:      obj.UpdatedAt,
	}
}

func objectsFromModels(objs []model.CelestialObject) []objectJSON {
	out := make([]objectJSON, 0, len(objs))
	for _, obj := range objs {
		out = append(out, objectFromModel(obj))
	}
	return out
}

func radToDeg(rad float64) float64 { return rad * 180 / math.Pi }

func elementsToJSON(el *model.OrbitalElements) *elementsJSON {
	if el == nil {
		return nil
	}
	return &elementsJSON{
		SemiMajorAxisAU: el.SemiMajorAxisAU,
		Eccentricity:    el.Eccentricity,
		InclinationDeg:  radToDeg(el.InclinationRad),
		AscendingDeg:    radToDeg(el.LongAscendingNodeRad),
		ArgPeriapsisDeg: radToDeg(el.ArgPeriapsisRad),
		MeanAnomalyDeg:  radToDeg(el.MeanAnomalyAtEpochRad),
		PeriodDays:      el.PeriodDays,
	}
}

// observerDistanceAU expresses an object's distance from the origin in
// AU regardless of which unit its position is held in.
func observerDistanceAU(obj model.CelestialObject) float64 {
	if obj.Orbits() {
		return astro.Vec3{X: obj.Position.X, Y: obj.Position.Y, Z: obj.Position.Z}.Norm()
	}
	return obj.DistancePc * astro.AUPerParsec
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest(fmt.Sprintf("parameter %q must be an integer", name))
	}
	return v, nil
}

func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, badRequest(fmt.Sprintf("parameter %q must be a number", name))
	}
	return v, nil
}

func parseObjectType(raw string) (model.ObjectType, error) {
	switch model.ObjectType(raw) {
	case "", model.TypeStar, model.TypePlanet, model.TypeMoon,
		model.TypeGalaxy, model.TypeNebula, model.TypeSatellite, model.TypeOther:
		return model.ObjectType(raw), nil
	default:
		return "", badRequest(fmt.Sprintf("unknown object type %q", raw))
	}
}

func (s *Server) handleListObjects(w http.ResponseWriter, r *http.Request) {
	typ, err := parseObjectType(r.URL.Query().Get("type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if offset < 0 {
		s.writeError(w, r, badRequest("parameter \"offset\" must not be negative"))
		return
	}

	objs := s.catalog.Search("", typ, 0)
	total := len(objs)
	if offset >= len(objs) {
		objs = nil
	} else {
		objs = objs[offset:]
	}
	if limit > 0 && limit < len(objs) {
		objs = objs[:limit]
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"objects": objectsFromModels(objs),
		"count":   len(objs),
		"total":   total,
	})
}

func (s *Server) handleObjectTypes(w http.ResponseWriter, r *http.Request) {
	counts := s.catalog.TypeCounts()
	out := make(map[string]int, len(counts))
	for typ, n := range counts {
		out[string(typ)] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"counts": out})
}

func (s *Server) handleGetObject(w http.ResponseWriter, r *http.Request) {
	obj, err := s.catalog.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	distAU := observerDistanceAU(obj)
	detail := objectDetailJSON{
		objectJSON: objectFromModel(obj),
		Elements:   elementsToJSON(obj.Elements),
		LOD: lodJSON{
			Tier:           int(s.lod.ClassifyTier(distAU)),
			TierName:       s.lod.ClassifyTier(distAU).String(),
			MagnitudeLimit: s.lod.MagnitudeLimit(distAU),
		},
	}
	if !obj.Orbits() {
		est := astro.ValidateParallax(obj.Measurement.ParallaxMas, obj.Measurement.ParallaxErrMas)
		detail.Estimate = &estimateJSON{
			DistancePc:    est.DistancePc,
			UncertaintyPc: est.UncertaintyPc,
			SNR:           est.SNR,
			Method:        est.Method.String(),
			Valid:         est.Valid,
		}
		detail.RAHMS = astro.DegreesToHMS(obj.Measurement.RADeg)
		detail.DecDMS = astro.DegreesToDMS(obj.Measurement.DecDeg)
	}

	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleObjectPath(w http.ResponseWriter, r *http.Request) {
	obj, err := s.catalog.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if obj.Elements == nil {
		s.writeError(w, r, badRequest(fmt.Sprintf("object %q has no orbital elements", obj.ID)))
		return
	}
	samples, err := queryInt(r, "samples", astro.DefaultOrbitPathSamples)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if samples < 2 || samples > maxRangeSamples {
		s.writeError(w, r, badRequest(fmt.Sprintf("parameter \"samples\" must be between 2 and %d", maxRangeSamples)))
		return
	}

	path, err := astro.OrbitPath(*obj.Elements, samples)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	points := make([]positionJSON, 0, len(path))
	for _, p := range path {
		points = append(points, positionJSON{X: p.X, Y: p.Y, Z: p.Z})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"object_id": obj.ID,
		"samples":   len(points),
		"points":    points,
	})
}

func (s *Server) handleObjectEphemeris(w http.ResponseWriter, r *http.Request) {
	obj, err := s.catalog.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	q := r.URL.Query()
	if q.Get("start_jd") == "" && q.Get("end_jd") == "" {
		s.servePersistedEphemeris(w, r, obj.ID)
		return
	}

	startJD, err := queryFloat(r, "start_jd", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	endJD, err := queryFloat(r, "end_jd", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	stepDays, err := queryFloat(r, "step_days", 1)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if endJD < startJD {
		s.writeError(w, r, badRequest("end_jd must not precede start_jd"))
		return
	}
	if stepDays <= 0 {
		s.writeError(w, r, badRequest("step_days must be positive"))
		return
	}
	count := int((endJD-startJD)/stepDays) + 1
	if count > maxRangeSamples {
		s.writeError(w, r, badRequest(fmt.Sprintf("range yields %d samples, limit is %d", count, maxRangeSamples)))
		return
	}

	recs, err := computeEphemeris(obj, startJD, stepDays, count)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"object_id": obj.ID,
		"records":   recs,
	})
}

// computeEphemeris samples positions over a Julian date range on
// demand: Keplerian bodies through the orbit propagator with central
// difference velocities, satellites through SGP4 without velocities.
func computeEphemeris(obj model.CelestialObject, startJD, stepDays float64, count int) ([]ephemerisRecordJSON, error) {
	recs := make([]ephemerisRecordJSON, 0, count)

	switch obj.MotionSource {
	case model.MotionKeplerian:
		if obj.Elements == nil {
			return nil, badRequest(fmt.Sprintf("object %q has no orbital elements", obj.ID))
		}
		for i := 0; i < count; i++ {
			jd := startJD + float64(i)*stepDays
			days := jd - j2000JD
			pos, err := astro.Propagate(*obj.Elements, days)
			if err != nil {
				return nil, fmt.Errorf("ephemeris at jd %g: %w", jd, err)
			}
			rec := ephemerisRecordJSON{
				JulianDate: jd,
				X:          pos.X, Y: pos.Y, Z: pos.Z,
				Source: "keplerian",
			}
			if vel, err := astro.PropagateVelocity(*obj.Elements, days, 0); err == nil {
				rec.VX, rec.VY, rec.VZ = vel.X, vel.Y, vel.Z
			}
			recs = append(recs, rec)
		}
	case model.MotionTLE:
		if obj.TLELine1 == "" || obj.TLELine2 == "" {
			return nil, badRequest(fmt.Sprintf("object %q has no TLE", obj.ID))
		}
		sat := sim.NewSGP4FromTLE(obj.TLELine1, obj.TLELine2, nil)
		for i := 0; i < count; i++ {
			jd := startJD + float64(i)*stepDays
			at := timectrl.J2000.Add(time.Duration((jd - j2000JD) * 24 * float64(time.Hour)))
			pos, err := sat.Position(at)
			if err != nil {
				return nil, fmt.Errorf("ephemeris at jd %g: %w", jd, err)
			}
			recs = append(recs, ephemerisRecordJSON{
				JulianDate: jd,
				X:          pos.X, Y: pos.Y, Z: pos.Z,
				Source: "sgp4",
			})
		}
	default:
		return nil, badRequest(fmt.Sprintf("object %q does not orbit", obj.ID))
	}
	return recs, nil
}

func (s *Server) servePersistedEphemeris(w http.ResponseWriter, r *http.Request, objectID string) {
	limit, err := queryInt(r, "limit", 100)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	recs := []ephemerisRecordJSON{}
	if s.store != nil {
		rows, err := s.store.EphemerisRange(objectID, 0, math.MaxFloat64, limit)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("ephemeris history: %w", err))
			return
		}
		for _, row := range rows {
			recs = append(recs, ephemerisRecordJSON{
				JulianDate: row.JulianDate,
				X:          row.X, Y: row.Y, Z: row.Z,
				VX: row.VX, VY: row.VY, VZ: row.VZ,
				Source: row.Source,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"object_id": objectID,
		"records":   recs,
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	typ, err := parseObjectType(r.URL.Query().Get("type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	results := s.catalog.Search(r.URL.Query().Get("q"), typ, limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"results": objectsFromModels(results),
		"count":   len(results),
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	box := catalog.Box{}
	var err error
	if box.MinX, err = queryFloat(r, "min_x", math.Inf(-1)); err != nil {
		s.writeError(w, r, err)
		return
	}
	if box.MinY, err = queryFloat(r, "min_y", math.Inf(-1)); err != nil {
		s.writeError(w, r, err)
		return
	}
	if box.MinZ, err = queryFloat(r, "min_z", math.Inf(-1)); err != nil {
		s.writeError(w, r, err)
		return
	}
	if box.MaxX, err = queryFloat(r, "max_x", math.Inf(1)); err != nil {
		s.writeError(w, r, err)
		return
	}
	if box.MaxY, err = queryFloat(r, "max_y", math.Inf(1)); err != nil {
		s.writeError(w, r, err)
		return
	}
	if box.MaxZ, err = queryFloat(r, "max_z", math.Inf(1)); err != nil {
		s.writeError(w, r, err)
		return
	}
	maxMag, err := queryFloat(r, "max_magnitude", math.Inf(1))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	objs := s.catalog.QueryPositions(box, maxMag, limit, offset)
	writeJSON(w, http.StatusOK, map[string]any{
		"objects": objectsFromModels(objs),
		"count":   len(objs),
	})
}

type distanceResponse struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	AU         float64 `json:"au"`
	Parsecs    float64 `json:"parsecs"`
	LightYears float64 `json:"light_years"`
}

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	fromID := r.URL.Query().Get("from")
	toID := r.URL.Query().Get("to")
	if fromID == "" || toID == "" {
		s.writeError(w, r, badRequest("parameters \"from\" and \"to\" are required"))
		return
	}

	from, err := s.catalog.Get(fromID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := s.catalog.Get(toID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	breakdown := distanceBetweenObjects(from, to)
	writeJSON(w, http.StatusOK, distanceResponse{
		From:       from.ID,
		To:         to.ID,
		AU:         breakdown.AU,
		Parsecs:    breakdown.Parsecs,
		LightYears: breakdown.LightYears,
	})
}

// distanceBetweenObjects picks the frame both positions can share:
// pairs of orbiting bodies compare in AU, anything involving a fixed
// object compares in parsecs with orbiter positions scaled down.
func distanceBetweenObjects(a, b model.CelestialObject) astro.DistanceBreakdown {
	av := astro.Vec3{X: a.Position.X, Y: a.Position.Y, Z: a.Position.Z}
	bv := astro.Vec3{X: b.Position.X, Y: b.Position.Y, Z: b.Position.Z}

	if a.Orbits() && b.Orbits() {
		return astro.DistanceBetween(av, bv)
	}
	if a.Orbits() {
		av = av.Scale(1 / astro.AUPerParsec)
	}
	if b.Orbits() {
		bv = bv.Scale(1 / astro.AUPerParsec)
	}
	return astro.DistanceBetweenParsecs(av, bv)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.catalog.Summarize()

	byType := make(map[string]int, len(stats.ByType))
	for typ, n := range stats.ByType {
		byType[string(typ)] = n
	}

	snap := s.clock.Snapshot()
	resp := map[string]any{
		"catalog": map[string]any{
			"total":         stats.Total,
			"by_type":       byType,
			"by_source":     stats.BySource,
			"orbiting":      stats.Orbiting,
			"brightest_mag": stats.BrightestMag,
			"faintest_mag":  stats.FaintestMag,
		},
		"clock": map[string]any{
			"offset":      snap.Offset,
			"scale":       snap.Scale,
			"playing":     snap.Playing,
			"granularity": s.clock.Config().Granularity.String(),
			"julian_date": s.clock.JulianDate(),
		},
	}

	engineStats := map[string]any{"objects_tracked": 0}
	if s.engine != nil {
		engineStats["objects_tracked"] = s.engine.Registry().Len()
	}
	resp["engine"] = engineStats

	if s.store != nil {
		if count, err := s.store.CountObjects(); err == nil {
			resp["store"] = map[string]any{"objects": count}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "catalog reload is not configured"})
		return
	}
	summary, err := s.refresh(r.Context())
	if err != nil {
		s.writeError(w, r, fmt.Errorf("catalog reload: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "reloaded",
		"seeded": map[string]int{
			"solar_system": summary.SolarSystem,
			"stars":        summary.Stars,
			"satellites":   summary.Satellites,
			"total":        summary.Total(),
		},
	})
}
