package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

// Fetcher retrieves the current readings of one district.
type Fetcher interface {
	Fetch(ctx context.Context, district domain.DistrictID) ([]domain.RawReading, error)
}

// Collector fetches every district once and concatenates the results.
type Collector struct {
	fetcher     Fetcher
	logger      *slog.Logger
	metrics     *observability.Metrics
	concurrency int
}

// NewCollector creates a Collector. A concurrency below 2 fetches districts
// one at a time in list order.
func NewCollector(f Fetcher, logger *slog.Logger, metrics *observability.Metrics, concurrency int) *Collector {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Collector{fetcher: f, logger: logger, metrics: metrics, concurrency: concurrency}
}

// districtResult is one district's slot in the collection.
type districtResult struct {
	readings []domain.RawReading
	err      *domain.FetchError
}

// Collect attempts every district exactly once. A failed district contributes
// no readings and is reported in the returned failures; it never stops the
// others. Readings keep district order, then source order within a district,
// regardless of concurrency.
func (c *Collector) Collect(ctx context.Context, districts []domain.DistrictID) ([]domain.RawReading, []domain.FetchFailure) {
	results := make([]districtResult, len(districts))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, district := range districts {
		g.Go(func() error {
			results[i] = c.fetchOne(ctx, district)
			return nil
		})
	}
	_ = g.Wait()

	var (
		readings []domain.RawReading
		failures []domain.FetchFailure
	)
	for i, r := range results {
		if r.err != nil {
			failures = append(failures, domain.FetchFailure{District: districts[i], Err: r.err})
			continue
		}
		readings = append(readings, r.readings...)
	}
	c.metrics.ReadingsCollected.Add(float64(len(readings)))
	return readings, failures
}

func (c *Collector) fetchOne(ctx context.Context, district domain.DistrictID) districtResult {
	start := clock.Now()
	readings, err := c.safeFetch(ctx, district)
	c.metrics.FetchDuration.Observe(clock.Since(start).Seconds())

	if err != nil {
		fe := asFetchError(district, err)
		c.metrics.FetchOutcomes.WithLabelValues(string(fe.Kind)).Inc()
		c.logger.Warn("district fetch failed, skipping district",
			"district", district,
			"kind", fe.Kind,
			"error", fe,
		)
		return districtResult{err: fe}
	}

	c.metrics.FetchOutcomes.WithLabelValues("success").Inc()
	return districtResult{readings: readings}
}

// safeFetch skips the request once ctx is done and converts a fetcher panic
// into a transport error.
func (c *Collector) safeFetch(ctx context.Context, district domain.DistrictID) (readings []domain.RawReading, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	defer func() {
		if r := recover(); r != nil {
			readings = nil
			err = &domain.FetchError{District: district, Kind: domain.FetchTransport, Message: "fetcher panicked"}
			c.logger.Error("district fetcher panicked", "district", district, "panic", r)
		}
	}()
	return c.fetcher.Fetch(ctx, district)
}

// asFetchError normalizes any fetcher error into a *domain.FetchError;
// unclassified errors are treated as transport failures.
func asFetchError(district domain.DistrictID, err error) *domain.FetchError {
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &domain.FetchError{District: district, Kind: domain.FetchTransport, Err: err}
}
