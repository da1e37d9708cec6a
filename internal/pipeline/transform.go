package pipeline

import (
	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// AirQualityTransformer implements Transformer using the domain classifier.
type AirQualityTransformer struct{}

// NewTransformer creates an AirQualityTransformer.
func NewTransformer() *AirQualityTransformer {
	return &AirQualityTransformer{}
}

func (t *AirQualityTransformer) Transform(raw domain.RawReading) (domain.Document, error) {
	return domain.ToDocument(raw)
}
