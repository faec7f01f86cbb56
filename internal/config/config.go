package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/blast-vibration-service/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	DatabasePath       string
	CORSAllowedOrigins []string

	// Site constants, either built in or loaded from SiteConstantsFile.
	SiteConstantsFile string
	Sites             domain.SiteTable

	// Remote prediction model.
	PredictorURL       string
	PredictorEnabled   bool
	PredictorTimeout   time.Duration
	PredictorCacheSize int
	PredictorRateLimit float64
	PredictorFallback  bool

	// Prediction event publishing.
	KafkaEnabled         bool
	KafkaBrokers         []string
	KafkaPredictionTopic string
	BatchSize            int
	BatchFlushInterval   time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	predictorTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("PREDICTOR_TIMEOUT", "5s"))
	if err != nil || predictorTimeout <= 0 {
		return nil, errors.New("invalid PREDICTOR_TIMEOUT")
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("PREDICTOR_RATE_LIMIT", "10"), 64)
	if err != nil || rateLimit <= 0 {
		return nil, errors.New("invalid PREDICTOR_RATE_LIMIT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	predictorURL := strings.TrimRight(os.Getenv("PREDICTOR_URL"), "/")
	predictorEnabled := predictorURL != ""
	if v := os.Getenv("PREDICTOR_ENABLED"); v != "" {
		predictorEnabled = v == "true"
	}

	sitesFile := os.Getenv("SITE_CONSTANTS_FILE")
	sites := domain.DefaultSiteTable()
	if sitesFile != "" {
		sites, err = LoadSiteTable(sitesFile)
		if err != nil {
			return nil, err
		}
	}

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		DatabasePath:       sharedcfg.EnvOrDefault("DATABASE_PATH", "blast.db"),
		CORSAllowedOrigins: splitList(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		SiteConstantsFile: sitesFile,
		Sites:             sites,

		PredictorURL:       predictorURL,
		PredictorEnabled:   predictorEnabled,
		PredictorTimeout:   predictorTimeout,
		PredictorCacheSize: parsePredictorCacheSize(),
		PredictorRateLimit: rateLimit,
		PredictorFallback:  sharedcfg.EnvOrDefault("PREDICTOR_FALLBACK", "true") == "true",

		KafkaEnabled:         os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:         sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaPredictionTopic: sharedcfg.EnvOrDefault("KAFKA_PREDICTION_TOPIC", "blast-predictions"),
		BatchSize:            batchSize,
		BatchFlushInterval:   flushInterval,
	}

	if cfg.DatabasePath == "" {
		return nil, errors.New("DATABASE_PATH is required")
	}
	if cfg.PredictorEnabled && cfg.PredictorURL == "" {
		return nil, errors.New("PREDICTOR_ENABLED is true but PREDICTOR_URL is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaPredictionTopic == "" {
		return nil, errors.New("KAFKA_PREDICTION_TOPIC is required when KAFKA_ENABLED is true")
	}

	return cfg, nil
}

func parsePredictorCacheSize() int {
	if s := os.Getenv("PREDICTOR_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
