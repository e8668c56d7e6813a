package astro

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DegreesToHMS renders a right ascension in degrees as "HH:MM:SS.ss".
// The angle is wrapped into [0, 360) before formatting, so 360 and -90
// render as 00:00:00.00 and 18:00:00.00. Fixed-width and zero-padded;
// round-trip exact with ParseHMS at centisecond resolution.
func DegreesToHMS(deg float64) string {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}

	// Split in integer centiseconds of time to keep carries exact.
	const centisPerHour = 360000
	centis := int64(math.Round(deg / 15.0 * centisPerHour))
	centis %= 24 * centisPerHour

	h := centis / centisPerHour
	rem := centis % centisPerHour
	m := rem / 6000
	s := float64(rem%6000) / 100.0

	return fmt.Sprintf("%02d:%02d:%05.2f", h, m, s)
}

// DegreesToDMS renders a declination in degrees as "+DD:MM:SS.s" with an
// explicit sign. Fixed-width and zero-padded; round-trip exact with
// ParseDMS at the tenth of an arcsecond.
func DegreesToDMS(deg float64) string {
	sign := "+"
	if deg < 0 {
		sign = "-"
	}
	abs := math.Abs(deg)

	// Tenths of arcseconds, so 47.04' carries cleanly into 47' 02.4".
	const tenthsPerDeg = 36000
	tenths := int64(math.Round(abs * tenthsPerDeg))

	d := tenths / tenthsPerDeg
	rem := tenths % tenthsPerDeg
	m := rem / 600
	s := float64(rem%600) / 10.0

	return fmt.Sprintf("%s%02d:%02d:%04.1f", sign, d, m, s)
}

// ParseHMS parses "HH:MM:SS.ss" back into degrees.
func ParseHMS(s string) (float64, error) {
	h, m, sec, err := splitSexagesimal(s)
	if err != nil {
		return 0, fmt.Errorf("invalid HMS %q: %w", s, err)
	}
	if h < 0 || h >= 24 || m < 0 || m >= 60 || sec < 0 || sec >= 60 {
		return 0, fmt.Errorf("invalid HMS %q: component out of range", s)
	}
	return (float64(h) + float64(m)/60.0 + sec/3600.0) * 15.0, nil
}

// ParseDMS parses "+DD:MM:SS.s" (sign optional) back into degrees.
func ParseDMS(s string) (float64, error) {
	sign := 1.0
	body := s
	switch {
	case strings.HasPrefix(s, "+"):
		body = s[1:]
	case strings.HasPrefix(s, "-"):
		sign = -1.0
		body = s[1:]
	}

	d, m, sec, err := splitSexagesimal(body)
	if err != nil {
		return 0, fmt.Errorf("invalid DMS %q: %w", s, err)
	}
	if d < 0 || d > 90 || m < 0 || m >= 60 || sec < 0 || sec >= 60 {
		return 0, fmt.Errorf("invalid DMS %q: component out of range", s)
	}
	return sign * (float64(d) + float64(m)/60.0 + sec/3600.0), nil
}

func splitSexagesimal(s string) (int, int, float64, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, fmt.Errorf("want 3 colon-separated fields, got %d", len(parts))
	}
	first, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, 0, err
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, 0, err
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, 0, 0, err
	}
	return first, minutes, seconds, nil
}
