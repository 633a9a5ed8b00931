// Package config builds server configuration from the environment so main
// stays lean. Every knob has a development default; production deployments
// override via env.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures top-level configuration for the scan API server.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string

	DatabaseURL string // empty: in-memory stores
	RedisURL    string // empty: in-memory rate-limit buckets

	Classifier Classifier
	Ledger     Ledger
	Audit      Audit

	ScanRateLimit  int           // submissions per window per tenant
	ScanRateWindow time.Duration // wall-clock window for the scan ceiling
}

// Classifier configures the external classification authority.
type Classifier struct {
	BaseURL string
	Timeout time.Duration
}

// Ledger configures the append-only audit ledger gateway. An empty URL
// disables anchoring entirely.
type Ledger struct {
	URL      string
	APIToken string
	Chain    string
	QueueCap int
}

// Audit configures the audit trail sink.
type Audit struct {
	KafkaBrokers []string // empty: log sink only
	KafkaTopic   string
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:          envOr("PAGEGUARD_ADDR", ":8080"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-change-me"),
		JWTIssuer:     envOr("JWT_ISSUER", "pageguard"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		Classifier: Classifier{
			BaseURL: envOr("CLASSIFIER_URL", "http://localhost:5000"),
			Timeout: envDurationOr("CLASSIFIER_TIMEOUT", 30*time.Second),
		},
		Ledger: Ledger{
			URL:      os.Getenv("LEDGER_URL"),
			APIToken: os.Getenv("LEDGER_API_TOKEN"),
			Chain:    envOr("LEDGER_CHAIN", "polygon-mumbai"),
			QueueCap: envIntOr("LEDGER_QUEUE_CAP", 64),
		},
		Audit: Audit{
			KafkaBrokers: splitNonEmpty(os.Getenv("AUDIT_KAFKA_BROKERS")),
			KafkaTopic:   envOr("AUDIT_KAFKA_TOPIC", "pageguard.audit"),
		},
		ScanRateLimit:  envIntOr("SCAN_RATE_LIMIT", 20),
		ScanRateWindow: envDurationOr("SCAN_RATE_WINDOW", time.Minute),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
