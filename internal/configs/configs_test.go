package configs

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

// clearEnv blanks every variable LoadConfig reads so the host environment cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()

	for _, key := range []string{
		"ENVIRONMENT", "PORT", "ALLOWED_ORIGINS", "MAX_MESSAGE_SIZE",
		"MESSAGE_RATE", "MESSAGE_BURST", "UPGRADE_RATE", "UPGRADE_BURST",
		"S3_BUCKET_NAME", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY",
		"S3_PUBLIC_BASE_URL", "COVER_URL_TTL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig(Options{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if !cfg.IsDevelopment() || cfg.Port != 8080 {
		t.Fatalf("unexpected defaults: env=%q port=%d", cfg.Environment, cfg.Port)
	}
	if cfg.MaxMessageSize != 64*1024 || cfg.MessageRate != 20 || cfg.MessageBurst != 40 {
		t.Fatalf("unexpected websocket defaults: %+v", cfg)
	}
	if cfg.StorageEnabled() {
		t.Fatal("storage should be disabled by default")
	}
	if cfg.CoverURLTTL != 24*time.Hour {
		t.Fatalf("CoverURLTTL = %s", cfg.CoverURLTTL)
	}
	if len(cfg.AllowedOrigins) != 0 {
		t.Fatalf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}

func TestLoadConfigFlagsOverrideEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ENVIRONMENT", "staging")

	cfg, err := LoadConfig(Options{Port: 9100, Environment: "production"})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Port != 9100 || cfg.Environment != "production" {
		t.Fatalf("flags not applied: port=%d env=%q", cfg.Port, cfg.Environment)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("S3_BUCKET_NAME", "covers")
	t.Setenv("S3_ENDPOINT", "https://s3.example")
	t.Setenv("S3_ACCESS_KEY_ID", "id")
	t.Setenv("S3_SECRET_ACCESS_KEY", "secret")
	t.Setenv("S3_PUBLIC_BASE_URL", "https://cdn.example/")
	t.Setenv("COVER_URL_TTL", "2h")

	cfg, err := LoadConfig(Options{})
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Port != 9000 {
		t.Fatalf("Port = %d", cfg.Port)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Fatalf("AllowedOrigins = %v, want %v", cfg.AllowedOrigins, want)
	}
	if !cfg.StorageEnabled() || cfg.S3PublicBaseURL != "https://cdn.example" {
		t.Fatalf("unexpected storage settings: %+v", cfg)
	}
	if cfg.CoverURLTTL != 2*time.Hour {
		t.Fatalf("CoverURLTTL = %s", cfg.CoverURLTTL)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"bad port", map[string]string{"PORT": "http"}, "invalid PORT"},
		{"privileged port", map[string]string{"PORT": "80"}, "outside the recommended range"},
		{"bad rate", map[string]string{"MESSAGE_RATE": "fast"}, "invalid MESSAGE_RATE"},
		{"zero burst", map[string]string{"UPGRADE_BURST": "0"}, "rate limits must be positive"},
		{"bad message size", map[string]string{"MAX_MESSAGE_SIZE": "-1"}, "MAX_MESSAGE_SIZE must be positive"},
		{"partial s3", map[string]string{"S3_BUCKET_NAME": "covers"}, "must be set together"},
		{"ttl too long", map[string]string{"COVER_URL_TTL": "200h"}, "COVER_URL_TTL must be"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig(Options{})
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("err = %v, want substring %q", err, tc.want)
			}
		})
	}
}
