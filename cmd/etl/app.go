package main

import (
	"fmt"
	"log/slog"

	"github.com/couchcryptid/air-quality-etl/internal/adapter/elastic"
	kafkaadapter "github.com/couchcryptid/air-quality-etl/internal/adapter/kafka"
	"github.com/couchcryptid/air-quality-etl/internal/adapter/seoul"
	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
)

// app holds the wired pipeline and the resources that need closing.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *pipeline.Pipeline
	writer   *kafkaadapter.Writer
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, err := elastic.NewStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	// Kafka publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.Publisher
	if cfg.KafkaEnabled {
		a.writer = kafkaadapter.NewWriter(cfg, logger)
		publisher = a.writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("kafka publishing disabled")
	}

	fetcher := seoul.NewClient(cfg.SourceBaseURL, cfg.SourceAPIKey, cfg.SourcePageSize, cfg.SourceTimeout, logger)
	collector := pipeline.NewCollector(fetcher, logger, metrics, cfg.FetchConcurrency)
	a.pipeline = pipeline.New(cfg.Districts, collector, pipeline.NewTransformer(), store, publisher, logger, metrics)

	logger.Info("pipeline configured",
		"districts", len(cfg.Districts),
		"fetch_concurrency", cfg.FetchConcurrency,
		"index", cfg.StoreIndex,
	)
	return a, nil
}

func (a *app) close() {
	if a.writer == nil {
		return
	}
	if err := a.writer.Close(); err != nil {
		a.logger.Error("kafka writer close error", "error", err)
	}
}
