package astro

import (
	"errors"
	"fmt"
)

// Unit is a supported distance unit label.
type Unit string

const (
	UnitParsec    Unit = "pc"
	UnitAU        Unit = "au"
	UnitLightYear Unit = "ly"
	UnitKilometer Unit = "km"
)

// ErrUnknownUnit is returned for a distance unit outside pc/au/ly/km.
var ErrUnknownUnit = errors.New("unknown distance unit")

// Conversion factors relative to one parsec.
const (
	// AUPerParsec is the number of astronomical units per parsec.
	AUPerParsec = 206264.806
	// LightYearsPerParsec is the number of light-years per parsec.
	LightYearsPerParsec = 3.26156
	// KmPerParsec is the number of kilometres per parsec.
	KmPerParsec = 3.0857e13
)

// toParsec maps each supported unit to its size in parsecs.
var toParsec = map[Unit]float64{
	UnitParsec:    1,
	UnitAU:        1.0 / AUPerParsec,
	UnitLightYear: 1.0 / LightYearsPerParsec,
	UnitKilometer: 1.0 / KmPerParsec,
}

// ParseUnit validates a unit string from an API query or config value.
func ParseUnit(s string) (Unit, error) {
	u := Unit(s)
	if _, ok := toParsec[u]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownUnit, s)
	}
	return u, nil
}

// ConvertDistance converts value between two distance units, routing
// through parsecs. Identity conversions return the value untouched.
// Unrecognized units yield ErrUnknownUnit.
func ConvertDistance(value float64, from, to Unit) (float64, error) {
	if from == to {
		if _, ok := toParsec[from]; !ok {
			return 0, fmt.Errorf("%w %q", ErrUnknownUnit, from)
		}
		return value, nil
	}

	fromFactor, ok := toParsec[from]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownUnit, from)
	}
	toFactor, ok := toParsec[to]
	if !ok {
		return 0, fmt.Errorf("%w %q", ErrUnknownUnit, to)
	}

	parsecs := value * fromFactor
	return parsecs / toFactor, nil
}
