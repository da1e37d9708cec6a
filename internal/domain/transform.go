package domain

import (
	"errors"
	"fmt"
)

// ErrMissingStation is returned for a reading without a station name,
// which cannot be keyed in the store.
var ErrMissingStation = errors.New("reading has no station name")

// ToDocument classifies a reading's CO and PM10 concentrations and copies
// every raw field verbatim into a Document keyed by station name.
func ToDocument(raw RawReading) (Document, error) {
	if raw.Station == "" {
		return Document{}, fmt.Errorf("to document (district %s): %w", raw.DistrictCode, ErrMissingStation)
	}

	coGrade, err := Classify(raw.Carbon, PollutantCO)
	if err != nil {
		return Document{}, err
	}
	pm10Grade, err := Classify(raw.PM10, PollutantPM10)
	if err != nil {
		return Document{}, err
	}

	return Document{
		Key:               raw.Station,
		MeasuredAt:        raw.MeasuredAt,
		DistrictCode:      raw.DistrictCode,
		Station:           raw.Station,
		AirQualityGrade:   raw.Grade,
		COConcentration:   raw.Carbon,
		COGrade:           coGrade,
		PM10Concentration: raw.PM10,
		PM10Grade:         pm10Grade,
		MaxIndex:          raw.MaxIndex,
		Pollutant:         raw.Pollutant,
		Nitrogen:          raw.Nitrogen,
		Ozone:             raw.Ozone,
		Sulfurous:         raw.Sulfurous,
		PM25:              raw.PM25,
	}, nil
}
