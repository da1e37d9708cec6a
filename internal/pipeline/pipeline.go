package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
)

// Transformer converts a raw reading into a store document.
type Transformer interface {
	Transform(raw domain.RawReading) (domain.Document, error)
}

// Upserter writes documents to the store in one bulk operation.
type Upserter interface {
	BulkUpsert(ctx context.Context, docs []domain.Document) (domain.BatchResult, error)
}

// Publisher forwards stored documents to a secondary sink.
type Publisher interface {
	Publish(ctx context.Context, docs []domain.Document) error
}

// TransformFailure records a reading that produced no document.
type TransformFailure struct {
	Station  string
	District string
	Err      error
}

// RunReport describes the outcome of one run.
type RunReport struct {
	StartedAt  time.Time
	FinishedAt time.Time

	// Readings is every collected reading, before classification.
	Readings          []domain.RawReading
	FetchFailures     []domain.FetchFailure
	TransformFailures []TransformFailure
	Documents         int

	Stored     domain.BatchResult
	StoreErr   error // batch-level failure; nil when the write completed
	PublishErr error
}

// Healthy reports whether every district, reading, and document made it to
// the store. It does not affect the invocation status.
func (r RunReport) Healthy() bool {
	return len(r.FetchFailures) == 0 &&
		len(r.TransformFailures) == 0 &&
		r.StoreErr == nil &&
		len(r.Stored.Errors) == 0 &&
		r.PublishErr == nil
}

// Pipeline orchestrates one collect-transform-upsert run.
type Pipeline struct {
	districts   []domain.DistrictID
	collector   *Collector
	transformer Transformer
	upserter    Upserter
	publisher   Publisher
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	mu          sync.Mutex
}

// New creates a Pipeline over a fixed district list. Pass a nil publisher to
// disable the secondary sink.
func New(districts []domain.DistrictID, c *Collector, t Transformer, u Upserter, p Publisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		districts:   districts,
		collector:   c,
		transformer: t,
		upserter:    u,
		publisher:   p,
		logger:      logger,
		metrics:     metrics,
	}
}

// CheckReadiness returns nil once a run has reached the store without a
// batch-level failure.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Run executes one full refresh. It never fails: fetch, transform, and store
// problems are recorded in the report. Concurrent calls are serialized.
func (p *Pipeline) Run(ctx context.Context) RunReport {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.metrics.RunsTotal.Inc()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	report := RunReport{StartedAt: clock.Now()}
	p.logger.Info("run started", "districts", len(p.districts))

	report.Readings, report.FetchFailures = p.collector.Collect(ctx, p.districts)

	docs := p.transformAll(report.Readings, &report)
	report.Documents = len(docs)

	if len(docs) == 0 {
		p.logger.Warn("no documents to store")
	} else {
		p.load(ctx, docs, &report)
	}

	report.FinishedAt = clock.Now()
	p.metrics.RunDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	p.logger.Info("run finished",
		"readings", len(report.Readings),
		"failed_districts", len(report.FetchFailures),
		"documents", report.Documents,
		"stored", report.Stored.Succeeded,
		"rejected", len(report.Stored.Errors),
		"healthy", report.Healthy(),
	)
	return report
}

func (p *Pipeline) transformAll(readings []domain.RawReading, report *RunReport) []domain.Document {
	docs := make([]domain.Document, 0, len(readings))
	for _, raw := range readings {
		doc, err := p.transformer.Transform(raw)
		if err != nil {
			p.logger.Warn("transform failed, skipping reading",
				"error", err,
				"station", raw.Station,
				"district_code", raw.DistrictCode,
			)
			p.metrics.TransformErrors.Inc()
			report.TransformFailures = append(report.TransformFailures, TransformFailure{
				Station:  raw.Station,
				District: raw.DistrictCode,
				Err:      err,
			})
			continue
		}
		docs = append(docs, doc)
	}
	return docs
}

// load bulk-upserts the documents and, when the write completed, publishes
// the accepted ones.
func (p *Pipeline) load(ctx context.Context, docs []domain.Document, report *RunReport) {
	result, err := p.upserter.BulkUpsert(ctx, docs)
	if err != nil {
		p.logger.Error("bulk upsert failed", "error", err, "documents", len(docs))
		p.metrics.StoreFailures.Inc()
		report.StoreErr = err
		return
	}

	report.Stored = result
	p.metrics.DocumentsStored.Add(float64(result.Succeeded))
	p.metrics.DocumentErrors.Add(float64(len(result.Errors)))
	for _, de := range result.Errors {
		p.logger.Warn("document rejected by store", "key", de.Key, "error", de.Err())
	}

	p.ready.Store(true)
	p.metrics.LastSuccess.Set(float64(clock.Now().Unix()))

	if p.publisher == nil {
		return
	}
	accepted := acceptedDocuments(docs, result.Errors)
	if err := p.publisher.Publish(ctx, accepted); err != nil {
		p.logger.Error("publish documents failed", "error", err, "documents", len(accepted))
		p.metrics.PublishFailures.Inc()
		report.PublishErr = err
		return
	}
	p.metrics.DocumentsPublished.Add(float64(len(accepted)))
}

// acceptedDocuments drops every document whose key the store rejected.
func acceptedDocuments(docs []domain.Document, rejected []domain.DocumentError) []domain.Document {
	if len(rejected) == 0 {
		return docs
	}
	skip := make(map[string]bool, len(rejected))
	for _, de := range rejected {
		skip[de.Key] = true
	}
	out := make([]domain.Document, 0, len(docs))
	for _, d := range docs {
		if !skip[d.Key] {
			out = append(out, d)
		}
	}
	return out
}
