//go:build integration

package integration_test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/couchcryptid/air-quality-etl/internal/adapter/elastic"
	"github.com/couchcryptid/air-quality-etl/internal/adapter/kafka"
	"github.com/couchcryptid/air-quality-etl/internal/adapter/seoul"
	"github.com/couchcryptid/air-quality-etl/internal/config"
	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/couchcryptid/air-quality-etl/internal/observability"
	"github.com/couchcryptid/air-quality-etl/internal/pipeline"
)

const testTopic = "test-air-quality-documents"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0", tckafka.WithClusterID("air-quality-test"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	cc, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer cc.Close()

	require.NoError(t, cc.CreateTopics(kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1}))
}

// seoulServer answers district 111123 with two stations and rejects every
// other district.
func seoulServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml;charset=UTF-8")
		if !strings.Contains(r.URL.Path, "/111123/") {
			_, _ = w.Write([]byte(`<RESULT><CODE>INFO-200</CODE><MESSAGE>해당하는 데이터가 없습니다.</MESSAGE></RESULT>`))
			return
		}
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<ListAirQualityByDistrictService>
<list_total_count>2</list_total_count>
<RESULT><CODE>INFO-000</CODE><MESSAGE>정상 처리되었습니다</MESSAGE></RESULT>
<row><MSRDATE>202405141300</MSRDATE><MSRADMCODE>111123</MSRADMCODE><MSRSTENAME>종로구</MSRSTENAME><GRADE>보통</GRADE><CARBON>3.0</CARBON><PM10>40.0</PM10></row>
<row><MSRDATE>202405141300</MSRDATE><MSRADMCODE>111123</MSRADMCODE><MSRSTENAME>종로구청</MSRSTENAME><GRADE>좋음</GRADE><CARBON>0.4</CARBON><PM10>12</PM10></row>
</ListAirQualityByDistrictService>`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// bulkServer accepts every index operation and records the document ids.
func bulkServer(t *testing.T) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu  sync.Mutex
		ids []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		var items []map[string]any
		sc := bufio.NewScanner(r.Body)
		for line := 0; sc.Scan(); line++ {
			if line%2 == 1 {
				continue
			}
			var action struct {
				Index struct {
					ID string `json:"_id"`
				} `json:"index"`
			}
			if err := json.Unmarshal(sc.Bytes(), &action); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			mu.Lock()
			ids = append(ids, action.Index.ID)
			mu.Unlock()
			items = append(items, map[string]any{"index": map[string]any{"_id": action.Index.ID, "status": 201}})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"took": 1, "errors": false, "items": items})
	}))
	t.Cleanup(srv.Close)
	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), ids...)
	}
}

// TestKafkaWriter verifies that published documents arrive keyed by station
// with their grade headers.
func TestKafkaWriter(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	writer := kafka.NewWriter(&config.Config{KafkaBrokers: []string{broker}, KafkaTopic: testTopic}, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	doc, err := domain.ToDocument(domain.RawReading{
		MeasuredAt: "202405141300", DistrictCode: "111123", Station: "종로구", Carbon: "3.0", PM10: "40.0",
	})
	require.NoError(t, err)
	require.NoError(t, writer.Publish(ctx, []domain.Document{doc}))

	msgs := readMessages(ctx, t, broker, 1)
	assert.Equal(t, "종로구", string(msgs[0].Key))
	headers := headerMap(msgs[0])
	assert.Equal(t, "111123", headers["district_code"])
	assert.Equal(t, "good", headers["co_grade"])
	assert.Equal(t, "poor", headers["pm10_grade"])

	var got domain.Document
	require.NoError(t, json.Unmarshal(msgs[0].Value, &got))
	assert.Equal(t, "40.0", got.PM10Concentration)
}

// TestPipelineEndToEnd runs the full pipeline against a fake source, a fake
// bulk endpoint, and a real broker.
func TestPipelineEndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testTopic)

	source := seoulServer(t)
	store, storedIDs := bulkServer(t)

	cfg := &config.Config{
		SourceAPIKey:     "integration-key",
		SourceBaseURL:    source.URL,
		SourcePageSize:   5,
		SourceTimeout:    5 * time.Second,
		Districts:        []domain.DistrictID{"111123", "111121"},
		FetchConcurrency: 2,
		StoreEndpoint:    store.URL,
		StoreIndex:       "air-quality-test",
		KafkaBrokers:     []string{broker},
		KafkaTopic:       testTopic,
	}

	logger := discardLogger()
	metrics := observability.NewMetricsForTesting()

	es, err := elastic.NewStore(cfg, logger)
	require.NoError(t, err)
	writer := kafka.NewWriter(cfg, logger)
	t.Cleanup(func() { _ = writer.Close() })

	fetcher := seoul.NewClient(cfg.SourceBaseURL, cfg.SourceAPIKey, cfg.SourcePageSize, cfg.SourceTimeout, logger)
	collector := pipeline.NewCollector(fetcher, logger, metrics, cfg.FetchConcurrency)
	p := pipeline.New(cfg.Districts, collector, pipeline.NewTransformer(), es, writer, logger, metrics)

	report := p.Run(ctx)

	require.Len(t, report.Readings, 2)
	require.Len(t, report.FetchFailures, 1)
	assert.Equal(t, domain.DistrictID("111121"), report.FetchFailures[0].District)
	assert.Equal(t, "INFO-200", report.FetchFailures[0].Err.Code)
	require.NoError(t, report.StoreErr)
	require.NoError(t, report.PublishErr)
	assert.Equal(t, 2, report.Stored.Succeeded)
	assert.Equal(t, []string{"종로구", "종로구청"}, storedIDs())

	msgs := readMessages(ctx, t, broker, 2)
	keys := []string{string(msgs[0].Key), string(msgs[1].Key)}
	assert.ElementsMatch(t, []string{"종로구", "종로구청"}, keys)
	require.NoError(t, p.CheckReadiness(ctx))
}

func readMessages(ctx context.Context, t *testing.T, broker string, n int) []kafkago.Message {
	t.Helper()
	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testTopic,
		GroupID:     fmt.Sprintf("test-consumer-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msgs := make([]kafkago.Message, 0, n)
	for len(msgs) < n {
		msg, err := consumer.ReadMessage(readCtx)
		require.NoError(t, err, "read from topic")
		msgs = append(msgs, msg)
	}
	return msgs
}

func headerMap(msg kafkago.Message) map[string]string {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return headers
}
