package domain

import "fmt"

// DistrictID identifies one administrative district endpoint of the source.
type DistrictID string

// DefaultDistricts lists the 25 Seoul district codes in fetch order.
var DefaultDistricts = []DistrictID{
	"111123", "111121", "111131", "111142", "111141",
	"111152", "111151", "111161", "111291", "111171",
	"111311", "111181", "111191", "111201", "111301",
	"111212", "111221", "111281", "111231", "111241",
	"111251", "111262", "111261", "111273", "111274",
}

// RawReading is one station row as published by the source. JSON tags keep
// the source column names so a snapshot matches the upstream payload.
type RawReading struct {
	MeasuredAt   string `json:"MSRDATE"`
	DistrictCode string `json:"MSRADMCODE"`
	Station      string `json:"MSRSTENAME"`
	Grade        string `json:"GRADE"`
	Carbon       string `json:"CARBON"` // CO, ppm
	PM10         string `json:"PM10"`   // µg/m³

	// Columns not used for classification, carried through when present.
	MaxIndex  string `json:"MAXINDEX,omitempty"`
	Pollutant string `json:"POLLUTANT,omitempty"`
	Nitrogen  string `json:"NITROGEN,omitempty"`
	Ozone     string `json:"OZONE,omitempty"`
	Sulfurous string `json:"SULFUROUS,omitempty"`
	PM25      string `json:"PM25,omitempty"`
}

// Document is the stored form of a reading, one per station.
type Document struct {
	Key string `json:"-"`

	MeasuredAt        string `json:"measured_at"`
	DistrictCode      string `json:"district_code"`
	Station           string `json:"station"`
	AirQualityGrade   string `json:"air_quality_grade"`
	COConcentration   string `json:"co_concentration"`
	COGrade           Grade  `json:"co_grade"`
	PM10Concentration string `json:"pm10_concentration"`
	PM10Grade         Grade  `json:"pm10_grade"`

	MaxIndex  string `json:"max_index,omitempty"`
	Pollutant string `json:"main_pollutant,omitempty"`
	Nitrogen  string `json:"no2_concentration,omitempty"`
	Ozone     string `json:"o3_concentration,omitempty"`
	Sulfurous string `json:"so2_concentration,omitempty"`
	PM25      string `json:"pm25_concentration,omitempty"`
}

// DocumentError describes one document the store refused.
type DocumentError struct {
	Key    string `json:"key"`
	Status int    `json:"status"`
	Type   string `json:"type,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Err returns the rejection as a StoreError.
func (d DocumentError) Err() error {
	return &StoreError{
		Kind: StoreDocumentRejected,
		Key:  d.Key,
		Err:  fmt.Errorf("status %d: %s: %s", d.Status, d.Type, d.Reason),
	}
}

// BatchResult summarizes a bulk write.
type BatchResult struct {
	Succeeded int             `json:"succeeded"`
	Errors    []DocumentError `json:"errors,omitempty"`
}

// FetchFailure records a district that contributed no readings to a run.
type FetchFailure struct {
	District DistrictID
	Err      *FetchError
}
