package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// Store writes documents to an Elasticsearch index.
// It implements pipeline.Upserter.
type Store struct {
	es     *elasticsearch.Client
	index  string
	logger *slog.Logger
}

// NewStore creates an Elasticsearch client for the configured endpoint.
// Credentials and the CA certificate fingerprint come from configuration.
// Retries are disabled: a failed bulk write is reported, not repeated.
func NewStore(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:              []string{cfg.StoreEndpoint},
		Username:               cfg.StoreUsername,
		Password:               cfg.StorePassword,
		CertificateFingerprint: cfg.StoreCertFingerprint,
		DisableRetry:           true,
	})
	if err != nil {
		return nil, fmt.Errorf("create elasticsearch client: %w", err)
	}
	return &Store{es: es, index: cfg.StoreIndex, logger: logger}, nil
}

// BulkUpsert indexes all documents in one _bulk request using each document's
// key as its _id, so a later document replaces an earlier one with the same key.
// Per-document rejections are returned in the BatchResult. A request that does
// not complete returns a *domain.StoreError of kind StoreBatchFailure and an
// empty result.
func (s *Store) BulkUpsert(ctx context.Context, docs []domain.Document) (domain.BatchResult, error) {
	if len(docs) == 0 {
		return domain.BatchResult{}, nil
	}

	body, err := s.encodeBulk(docs)
	if err != nil {
		return domain.BatchResult{}, batchFailure(err)
	}

	res, err := s.es.Bulk(bytes.NewReader(body), s.es.Bulk.WithContext(ctx))
	if err != nil {
		return domain.BatchResult{}, batchFailure(fmt.Errorf("bulk request: %w", err))
	}
	defer res.Body.Close()

	if res.IsError() {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return domain.BatchResult{}, batchFailure(fmt.Errorf("bulk request: status %d: %s", res.StatusCode, snippet))
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return domain.BatchResult{}, batchFailure(fmt.Errorf("decode bulk response: %w", err))
	}
	if len(br.Items) != len(docs) {
		return domain.BatchResult{}, batchFailure(fmt.Errorf("bulk response has %d items for %d documents", len(br.Items), len(docs)))
	}

	return s.summarize(docs, br), nil
}

// encodeBulk renders the NDJSON body: one action line and one source line per document.
func (s *Store) encodeBulk(docs []domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i := range docs {
		if docs[i].Key == "" {
			return nil, fmt.Errorf("document %d: %w", i, domain.ErrMissingStation)
		}
		action := bulkAction{Index: bulkMeta{Index: s.index, ID: docs[i].Key}}
		if err := enc.Encode(action); err != nil {
			return nil, fmt.Errorf("encode action for %q: %w", docs[i].Key, err)
		}
		if err := enc.Encode(docs[i]); err != nil {
			return nil, fmt.Errorf("encode document %q: %w", docs[i].Key, err)
		}
	}
	return buf.Bytes(), nil
}

// summarize matches bulk items to documents by position; Elasticsearch
// returns items in request order.
func (s *Store) summarize(docs []domain.Document, br bulkResponse) domain.BatchResult {
	var result domain.BatchResult
	for i, item := range br.Items {
		op := item.result()
		if op.Status >= 200 && op.Status < 300 {
			result.Succeeded++
			continue
		}
		de := domain.DocumentError{Key: docs[i].Key, Status: op.Status}
		if op.Error != nil {
			de.Type = op.Error.Type
			de.Reason = op.Error.Reason
		}
		result.Errors = append(result.Errors, de)
	}
	if len(result.Errors) > 0 {
		s.logger.Warn("bulk upsert completed with rejections",
			"index", s.index,
			"succeeded", result.Succeeded,
			"rejected", len(result.Errors),
		)
	}
	return result
}

func batchFailure(err error) error {
	return &domain.StoreError{Kind: domain.StoreBatchFailure, Err: err}
}

// Elasticsearch bulk API types.

type bulkAction struct {
	Index bulkMeta `json:"index"`
}

type bulkMeta struct {
	Index string `json:"_index"`
	ID    string `json:"_id"`
}

type bulkResponse struct {
	Errors bool       `json:"errors"`
	Items  []bulkItem `json:"items"`
}

// bulkItem is keyed by operation type.
type bulkItem map[string]bulkOpResult

// result returns the "index" outcome; a missing entry has status 0 and counts as rejected.
func (b bulkItem) result() bulkOpResult {
	return b["index"]
}

type bulkOpResult struct {
	ID     string     `json:"_id"`
	Status int        `json:"status"`
	Result string     `json:"result"`
	Error  *bulkError `json:"error,omitempty"`
}

type bulkError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}
