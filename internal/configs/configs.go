/*
Package configs loads and validates the application's configuration settings.

Values are resolved with the priority command-line flag > environment variable > default,
covering the running environment, listen port, CORS origins, WebSocket limits and the
optional S3-compatible storage used for room cover images.
*/
package configs

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvironment    = "development"
	defaultPort           = 8080
	defaultMaxMessageSize = 64 * 1024
	defaultMessageRate    = 20.0
	defaultMessageBurst   = 40
	defaultUpgradeRate    = 1.0
	defaultUpgradeBurst   = 10
	defaultCoverURLTTL    = 24 * time.Hour
)

// AppConfig contains all configuration parameters required for the application to run.
type AppConfig struct {
	// General Server Settings
	Environment string
	Port        int

	// Security Settings
	AllowedOrigins []string

	// WebSocket Settings
	MaxMessageSize int64
	MessageRate    float64
	MessageBurst   int
	UpgradeRate    float64
	UpgradeBurst   int

	// S3 Storage Settings (optional; all four connection values or none)
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3PublicBaseURL   string
	CoverURLTTL       time.Duration
}

// Options carries command-line overrides. Zero values mean "not set".
type Options struct {
	Environment string
	Port        int
}

// IsDevelopment reports whether the server runs in the development environment.
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// StorageEnabled reports whether S3 cover storage is configured.
func (c *AppConfig) StorageEnabled() bool {
	return c.S3BucketName != ""
}

// LoadConfig resolves the configuration from opts, the environment and defaults,
// and validates it.
func LoadConfig(opts Options) (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	// --- General Server Settings ---
	cfg.Environment = opts.Environment
	if cfg.Environment == "" {
		cfg.Environment = envOr("ENVIRONMENT", defaultEnvironment)
	}

	cfg.Port = opts.Port
	if cfg.Port == 0 {
		if cfg.Port, err = envInt("PORT", defaultPort); err != nil {
			return nil, err
		}
	}
	if cfg.Port < 1024 || cfg.Port > 65535 {
		return nil, fmt.Errorf("port number %d is outside the recommended range (%d-%d) to avoid privileged ports", cfg.Port, 1024, 65535)
	}

	// --- Security Settings ---
	cfg.AllowedOrigins = envCSV("ALLOWED_ORIGINS")

	// --- WebSocket Settings ---
	maxMessageSize, err := envInt("MAX_MESSAGE_SIZE", defaultMaxMessageSize)
	if err != nil {
		return nil, err
	}
	if maxMessageSize <= 0 {
		return nil, fmt.Errorf("MAX_MESSAGE_SIZE must be positive, got %d", maxMessageSize)
	}
	cfg.MaxMessageSize = int64(maxMessageSize)

	if cfg.MessageRate, err = envFloat("MESSAGE_RATE", defaultMessageRate); err != nil {
		return nil, err
	}
	if cfg.MessageBurst, err = envInt("MESSAGE_BURST", defaultMessageBurst); err != nil {
		return nil, err
	}
	if cfg.UpgradeRate, err = envFloat("UPGRADE_RATE", defaultUpgradeRate); err != nil {
		return nil, err
	}
	if cfg.UpgradeBurst, err = envInt("UPGRADE_BURST", defaultUpgradeBurst); err != nil {
		return nil, err
	}
	if cfg.MessageRate <= 0 || cfg.MessageBurst <= 0 || cfg.UpgradeRate <= 0 || cfg.UpgradeBurst <= 0 {
		return nil, fmt.Errorf("rate limits must be positive (message %v/%d, upgrade %v/%d)",
			cfg.MessageRate, cfg.MessageBurst, cfg.UpgradeRate, cfg.UpgradeBurst)
	}

	// --- S3 Storage Settings ---
	cfg.S3BucketName = os.Getenv("S3_BUCKET_NAME")
	cfg.S3Endpoint = os.Getenv("S3_ENDPOINT")
	cfg.S3AccessKeyID = os.Getenv("S3_ACCESS_KEY_ID")
	cfg.S3SecretAccessKey = os.Getenv("S3_SECRET_ACCESS_KEY")
	cfg.S3PublicBaseURL = strings.TrimSuffix(os.Getenv("S3_PUBLIC_BASE_URL"), "/")

	s3Values := []string{cfg.S3BucketName, cfg.S3Endpoint, cfg.S3AccessKeyID, cfg.S3SecretAccessKey}
	set := 0
	for _, v := range s3Values {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != len(s3Values) {
		return nil, fmt.Errorf("S3_BUCKET_NAME, S3_ENDPOINT, S3_ACCESS_KEY_ID and S3_SECRET_ACCESS_KEY must be set together")
	}

	cfg.CoverURLTTL = defaultCoverURLTTL
	if ttlStr := os.Getenv("COVER_URL_TTL"); ttlStr != "" {
		ttl, err := time.ParseDuration(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid COVER_URL_TTL environment variable: %w", err)
		}
		// SigV4 presigned URLs are valid for at most 7 days.
		if ttl <= 0 || ttl > 7*24*time.Hour {
			return nil, fmt.Errorf("COVER_URL_TTL must be between 0 and 168h, got %s", ttl)
		}
		cfg.CoverURLTTL = ttl
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return i, nil
}

func envFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return f, nil
}

func envCSV(key string) []string {
	out := []string{}
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
