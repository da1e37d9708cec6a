package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Air-quality source.
	SourceAPIKey     string
	SourceBaseURL    string
	SourcePageSize   int
	SourceTimeout    time.Duration
	Districts        []domain.DistrictID
	FetchConcurrency int

	// Elasticsearch store.
	StoreEndpoint        string
	StoreUsername        string
	StorePassword        string
	StoreCertFingerprint string
	StoreIndex           string

	// Optional Kafka snapshot sink.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is loaded first if present; variables
// already set in the environment take precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	sourceTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("SOURCE_TIMEOUT", "10s"))
	if err != nil || sourceTimeout <= 0 {
		return nil, errors.New("invalid SOURCE_TIMEOUT")
	}

	pageSize, err := parseIntInRange("SOURCE_PAGE_SIZE", 5, 1, 1000)
	if err != nil {
		return nil, err
	}

	concurrency, err := parseIntInRange("FETCH_CONCURRENCY", 1, 1, 25)
	if err != nil {
		return nil, err
	}

	kafkaEnabled := false
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, errors.New("invalid KAFKA_ENABLED")
		}
	}

	cfg := &Config{
		SourceAPIKey:     os.Getenv("SOURCE_API_KEY"),
		SourceBaseURL:    strings.TrimSuffix(sharedcfg.EnvOrDefault("SOURCE_BASE_URL", "http://openapi.seoul.go.kr:8088"), "/"),
		SourcePageSize:   pageSize,
		SourceTimeout:    sourceTimeout,
		Districts:        parseDistricts(os.Getenv("DISTRICTS")),
		FetchConcurrency: concurrency,

		StoreEndpoint:        sharedcfg.EnvOrDefault("STORE_ENDPOINT", "https://localhost:9200"),
		StoreUsername:        sharedcfg.EnvOrDefault("STORE_USERNAME", "elastic"),
		StorePassword:        os.Getenv("STORE_PASSWORD"),
		StoreCertFingerprint: os.Getenv("STORE_CERT_FINGERPRINT"),
		StoreIndex:           sharedcfg.EnvOrDefault("STORE_INDEX", "air-quality-realtime"),

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "air-quality-documents"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.SourceAPIKey == "" {
		return nil, errors.New("SOURCE_API_KEY is required")
	}
	if len(cfg.Districts) == 0 {
		return nil, errors.New("DISTRICTS must list at least one district")
	}
	if cfg.StoreIndex == "" {
		return nil, errors.New("STORE_INDEX is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
	}

	return cfg, nil
}

// parseDistricts splits a comma-separated list, falling back to the 25 Seoul
// districts when the value is empty.
func parseDistricts(s string) []domain.DistrictID {
	if strings.TrimSpace(s) == "" {
		return append([]domain.DistrictID(nil), domain.DefaultDistricts...)
	}
	var out []domain.DistrictID
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, domain.DistrictID(part))
		}
	}
	return out
}

func parseIntInRange(key string, def, minVal, maxVal int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < minVal || n > maxVal {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", key, minVal, maxVal)
	}
	return n, nil
}
