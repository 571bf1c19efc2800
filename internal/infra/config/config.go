package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                string
	HTTPAddr           string
	DataBackend        string
	MongoURI           string
	MongoDB            string
	KafkaBrokers       []string
	KafkaTopicPrefix   string
	KafkaGroupID       string
	IdempotencyTTL     time.Duration
	OutboxPollInterval time.Duration
	RetryBackoff       []time.Duration
	RemoteTimeout      time.Duration
	BreakerMaxFailures uint32
	BreakerOpenFor     time.Duration
	S3Endpoint         string
	S3PublicEndpoint   string
	S3AccessKey        string
	S3SecretKey        string
	S3PropertyBucket   string
	S3AvatarBucket     string
	S3UseSSL           bool
	SessionTTL         time.Duration
	RevenueWindow      int
	RevenueKeyMode     string
	BlockOverlapPolicy string
	Currency           string
	AdminEmail         string
	AdminPassword      string
	FixturesPath       string
}

// KafkaEnabled reports whether events leave the process through Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads an optional .env file and parses configuration from the environment.
// Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses configuration from the current environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:                getEnv("APP_ENV", "dev"),
		HTTPAddr:           getEnv("HTTP_ADDR", ":8080"),
		DataBackend:        strings.ToLower(getEnv("DATA_BACKEND", BackendMemory)),
		MongoURI:           os.Getenv("MONGO_URI"),
		MongoDB:            getEnv("MONGO_DB", "chakastays"),
		KafkaTopicPrefix:   getEnv("KAFKA_TOPIC_PREFIX", ""),
		KafkaGroupID:       getEnv("KAFKA_GROUP_ID", "chakastays-notifications"),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3PublicEndpoint:   getEnv("S3_PUBLIC_ENDPOINT", ""),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:        getEnv("S3_SECRET_KEY", "minioadmin"),
		S3PropertyBucket:   getEnv("S3_BUCKET_PROPERTIES", "chakastays-properties"),
		S3AvatarBucket:     getEnv("S3_BUCKET_AVATARS", "chakastays-avatars"),
		RevenueKeyMode:     strings.ToLower(getEnv("REVENUE_KEY_MODE", "year_month")),
		BlockOverlapPolicy: strings.ToLower(getEnv("BLOCK_OVERLAP_POLICY", "reject")),
		Currency:           strings.ToUpper(getEnv("CURRENCY", "USD")),
		AdminEmail:         os.Getenv("ADMIN_EMAIL"),
		AdminPassword:      os.Getenv("ADMIN_PASSWORD"),
		FixturesPath:       os.Getenv("FIXTURES_PATH"),
	}
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, raw := range strings.Split(brokers, ",") {
			if b := strings.TrimSpace(raw); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	var err error
	if cfg.IdempotencyTTL, err = parseDurationEnv("IDEMP_TTL", 168*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.OutboxPollInterval, err = parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond); err != nil {
		return Config{}, err
	}
	if cfg.RemoteTimeout, err = parseDurationEnv("REMOTE_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.BreakerOpenFor, err = parseDurationEnv("BREAKER_OPEN_FOR", 30*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = parseDurationEnv("SESSION_TTL", 72*time.Hour); err != nil {
		return Config{}, err
	}
	maxFailures, err := parseIntEnv("BREAKER_MAX_FAILURES", 5)
	if err != nil {
		return Config{}, err
	}
	if maxFailures < 1 {
		return Config{}, fmt.Errorf("BREAKER_MAX_FAILURES must be positive, got %d", maxFailures)
	}
	cfg.BreakerMaxFailures = uint32(maxFailures)
	if cfg.RevenueWindow, err = parseIntEnv("REVENUE_WINDOW", 6); err != nil {
		return Config{}, err
	}
	if cfg.RevenueWindow < 1 {
		return Config{}, fmt.Errorf("REVENUE_WINDOW must be positive, got %d", cfg.RevenueWindow)
	}

	retryStr := getEnv("RETRY_BACKOFF", "1s,5s,30s")
	for _, raw := range strings.Split(retryStr, ",") {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		d, err := time.ParseDuration(val)
		if err != nil {
			return Config{}, fmt.Errorf("invalid RETRY_BACKOFF component %q: %w", raw, err)
		}
		cfg.RetryBackoff = append(cfg.RetryBackoff, d)
	}
	if cfg.S3UseSSL, err = parseBoolEnv("S3_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.S3PublicEndpoint == "" {
		cfg.S3PublicEndpoint = cfg.S3Endpoint
	}

	switch cfg.DataBackend {
	case BackendMemory:
	case BackendMongo:
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required for DATA_BACKEND=mongo")
		}
	default:
		return Config{}, fmt.Errorf("unknown DATA_BACKEND %q", cfg.DataBackend)
	}
	switch cfg.RevenueKeyMode {
	case "year_month", "label":
	default:
		return Config{}, fmt.Errorf("unknown REVENUE_KEY_MODE %q", cfg.RevenueKeyMode)
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return Config{}, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseIntEnv(key string, def int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s integer: %w", key, err)
	}
	return n, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
