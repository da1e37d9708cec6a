package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Grade is the three-tier classification of a pollutant concentration.
type Grade string

const (
	GradeGood     Grade = "good"
	GradeModerate Grade = "moderate"
	GradePoor     Grade = "poor"

	// GradeUnparseable marks a concentration that is not a number,
	// typically a station under maintenance.
	GradeUnparseable Grade = "unparseable"
)

// Pollutant identifies a tracked pollutant.
type Pollutant string

const (
	PollutantCO   Pollutant = "CO"
	PollutantPM10 Pollutant = "PM10"
)

// ErrUnsupportedPollutant is returned when no thresholds exist for a pollutant.
var ErrUnsupportedPollutant = errors.New("unsupported pollutant")

// thresholds holds the exclusive upper bounds of the good and moderate tiers.
type thresholds struct {
	good     float64
	moderate float64
}

var pollutantThresholds = map[Pollutant]thresholds{
	PollutantCO:   {good: 4.5, moderate: 9.5},
	PollutantPM10: {good: 15.1, moderate: 35.1},
}

// Classify grades a raw concentration string for the given pollutant.
// A value that does not parse as a number yields GradeUnparseable and no error;
// an error is returned only for a pollutant without thresholds.
func Classify(concentration string, p Pollutant) (Grade, error) {
	if _, ok := pollutantThresholds[p]; !ok {
		return GradeUnparseable, fmt.Errorf("classify %q: %w", p, ErrUnsupportedPollutant)
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(concentration), 64)
	if err != nil || math.IsNaN(v) {
		return GradeUnparseable, nil
	}
	return ClassifyValue(v, p)
}

// ClassifyValue grades a numeric concentration. Bounds are exclusive:
// a value equal to a tier's bound falls into the next tier.
func ClassifyValue(v float64, p Pollutant) (Grade, error) {
	t, ok := pollutantThresholds[p]
	if !ok {
		return GradeUnparseable, fmt.Errorf("classify %q: %w", p, ErrUnsupportedPollutant)
	}

	switch {
	case v < t.good:
		return GradeGood, nil
	case v < t.moderate:
		return GradeModerate, nil
	default:
		return GradePoor, nil
	}
}
