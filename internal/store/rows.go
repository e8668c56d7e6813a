package store

import (
	"encoding/json"
	"time"

	"github.com/stellarworks/universe-simulator/model"
)

// ObjectRow is the persisted shape of a catalog object. Orbital elements
// are flattened into columns guarded by HasElements so the table stays
// flat and queryable.
type ObjectRow struct {
	ID   string `gorm:"primaryKey"`
	Name string `gorm:"index"`
	Type string `gorm:"index"`

	RA             float64
	Dec            float64
	ParallaxMas    float64
	ParallaxErrMas float64

	X float64 `gorm:"index"`
	Y float64 `gorm:"index"`
	Z float64 `gorm:"index"`

	Magnitude    float64 `gorm:"index"`
	DistancePc   float64
	SpectralType string
	Source       string
	ExternalID   string

	MotionSource int
	HasElements  bool

	SemiMajorAxisAU       float64
	Eccentricity          float64
	InclinationRad        float64
	LongAscendingNodeRad  float64
	ArgPeriapsisRad       float64
	MeanAnomalyAtEpochRad float64
	PeriodDays            float64

	TLELine1 string
	TLELine2 string

	LODNearAU float64
	LODFarAU  float64

	// Properties serialized as a JSON string, like the source catalogs
	// deliver them.
	Properties string

	UpdatedAt time.Time
}

// TableName keeps the table naming stable regardless of struct renames.
func (ObjectRow) TableName() string { return "celestial_objects" }

// EphemerisRow is one sampled position of an orbiting object.
type EphemerisRow struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	ObjectID string `gorm:"index"`

	JulianDate float64 `gorm:"index"`

	X float64
	Y float64
	Z float64

	VX float64
	VY float64
	VZ float64

	Source    string
	CreatedAt time.Time
}

func (EphemerisRow) TableName() string { return "ephemeris_data" }

func rowFromObject(obj model.CelestialObject) ObjectRow {
	row := ObjectRow{
		ID:             obj.ID,
		Name:           obj.Name,
		Type:           string(obj.Type),
		RA:             obj.Measurement.RADeg,
		Dec:            obj.Measurement.DecDeg,
		ParallaxMas:    obj.Measurement.ParallaxMas,
		ParallaxErrMas: obj.Measurement.ParallaxErrMas,
		X:              obj.Position.X,
		Y:              obj.Position.Y,
		Z:              obj.Position.Z,
		Magnitude:      obj.Magnitude,
		DistancePc:     obj.DistancePc,
		SpectralType:   obj.SpectralType,
		Source:         obj.Source,
		ExternalID:     obj.ExternalID,
		MotionSource:   int(obj.MotionSource),
		TLELine1:       obj.TLELine1,
		TLELine2:       obj.TLELine2,
		LODNearAU:      obj.LODNearAU,
		LODFarAU:       obj.LODFarAU,
		UpdatedAt:      obj.UpdatedAt,
	}

	if el := obj.Elements; el != nil {
		row.HasElements = true
		row.SemiMajorAxisAU = el.SemiMajorAxisAU
		row.Eccentricity = el.Eccentricity
		row.InclinationRad = el.InclinationRad
		row.LongAscendingNodeRad = el.LongAscendingNodeRad
		row.ArgPeriapsisRad = el.ArgPeriapsisRad
		row.MeanAnomalyAtEpochRad = el.MeanAnomalyAtEpochRad
		row.PeriodDays = el.PeriodDays
	}

	if len(obj.Properties) > 0 {
		if raw, err := json.Marshal(obj.Properties); err == nil {
			row.Properties = string(raw)
		}
	}
	return row
}

func (r ObjectRow) toObject() model.CelestialObject {
	obj := model.CelestialObject{
		ID:   r.ID,
		Name: r.Name,
		Type: model.ObjectType(r.Type),
		Measurement: model.EquatorialMeasurement{
			RADeg:          r.RA,
			DecDeg:         r.Dec,
			ParallaxMas:    r.ParallaxMas,
			ParallaxErrMas: r.ParallaxErrMas,
		},
		Magnitude:    r.Magnitude,
		SpectralType: r.SpectralType,
		Source:       r.Source,
		ExternalID:   r.ExternalID,
		MotionSource: model.MotionSource(r.MotionSource),
		TLELine1:     r.TLELine1,
		TLELine2:     r.TLELine2,
		Position:     model.Position{X: r.X, Y: r.Y, Z: r.Z},
		DistancePc:   r.DistancePc,
		LODNearAU:    r.LODNearAU,
		LODFarAU:     r.LODFarAU,
		UpdatedAt:    r.UpdatedAt,
	}

	if r.HasElements {
		obj.Elements = &model.OrbitalElements{
			SemiMajorAxisAU:       r.SemiMajorAxisAU,
			Eccentricity:          r.Eccentricity,
			InclinationRad:        r.InclinationRad,
			LongAscendingNodeRad:  r.LongAscendingNodeRad,
			ArgPeriapsisRad:       r.ArgPeriapsisRad,
			MeanAnomalyAtEpochRad: r.MeanAnomalyAtEpochRad,
			PeriodDays:            r.PeriodDays,
		}
	}

	if r.Properties != "" {
		var props map[string]any
		if err := json.Unmarshal([]byte(r.Properties), &props); err == nil {
			obj.Properties = props
		}
	}
	return obj
}

func rowFromEphemeris(rec model.EphemerisRecord) EphemerisRow {
	return EphemerisRow{
		ObjectID:   rec.ObjectID,
		JulianDate: rec.JulianDate,
		X:          rec.X,
		Y:          rec.Y,
		Z:          rec.Z,
		VX:         rec.VX,
		VY:         rec.VY,
		VZ:         rec.VZ,
		Source:     rec.Source,
	}
}

func (r EphemerisRow) toEphemeris() model.EphemerisRecord {
	return model.EphemerisRecord{
		ObjectID:   r.ObjectID,
		JulianDate: r.JulianDate,
		X:          r.X,
		Y:          r.Y,
		Z:          r.Z,
		VX:         r.VX,
		VY:         r.VY,
		VZ:         r.VZ,
		Source:     r.Source,
	}
}
