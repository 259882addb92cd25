package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	PostgresURL    string
	PostgresSchema string

	KafkaBrokers []string

	WebhookSecret    string
	WebhookSecretID  string
	WebhookTolerance time.Duration
	WebhookTimeout   time.Duration
	AmountUnit       string

	SessionSecret string

	DownloadBucket string
	DownloadExpiry time.Duration
	// AWSEndpoint overrides the AWS service endpoint, e.g. a LocalStack URL.
	AWSEndpoint string

	EmailServiceURL string
	OTLPEndpoint    string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8081"),
		PostgresURL:     os.Getenv("POSTGRES_URL"),
		PostgresSchema:  getEnvOrDefault("POSTGRES_SCHEMA", "commerce"),
		WebhookSecret:   strings.TrimSpace(os.Getenv("PAYMENT_WEBHOOK_SECRET")),
		WebhookSecretID: strings.TrimSpace(os.Getenv("PAYMENT_WEBHOOK_SECRET_ID")),
		AmountUnit:      getEnvOrDefault("PROCESSOR_AMOUNT_UNIT", "minor"),
		SessionSecret:   os.Getenv("SESSION_JWT_SECRET"),
		DownloadBucket:  os.Getenv("DOWNLOADS_BUCKET"),
		AWSEndpoint:     os.Getenv("AWS_ENDPOINT"),
		EmailServiceURL: os.Getenv("EMAIL_SERVICE_URL"),
		OTLPEndpoint:    os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	var err error
	if cfg.WebhookTolerance, err = getDurationOrDefault("WEBHOOK_TOLERANCE", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.WebhookTimeout, err = getDurationOrDefault("WEBHOOK_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.DownloadExpiry, err = getDurationOrDefault("DOWNLOAD_URL_EXPIRY", time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateCommerce checks the settings the HTTP service cannot start without.
// The webhook secret may still be empty here when it is fetched from Secrets
// Manager at startup.
func (c *Config) ValidateCommerce() error {
	var errs []error
	if c.PostgresURL == "" {
		errs = append(errs, errors.New("POSTGRES_URL environment variable is required"))
	}
	if c.WebhookSecret == "" && c.WebhookSecretID == "" {
		errs = append(errs, errors.New("PAYMENT_WEBHOOK_SECRET or PAYMENT_WEBHOOK_SECRET_ID is required"))
	}
	if c.SessionSecret == "" {
		errs = append(errs, errors.New("SESSION_JWT_SECRET environment variable is required"))
	}
	if c.DownloadBucket == "" {
		errs = append(errs, errors.New("DOWNLOADS_BUCKET environment variable is required"))
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationOrDefault accepts Go duration strings ("90s") or a bare number of
// seconds.
func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return d, nil
}
