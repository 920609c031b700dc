package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv           string
	Port             string
	DatabaseURL      string
	PublicBaseURL    string
	PublicWSBaseURL  string
	StoragePath      string
	GeoIPDBPath      string
	DefaultLocale    string
	CORSOrigins      []string
	OTelEnabled      bool
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Worker settings.
	ClaimInterval     time.Duration
	HeartbeatInterval time.Duration

	// Client/tracker defaults, overridable per Tracker.
	PollInterval    time.Duration
	MaxPollAttempts int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		PublicBaseURL:     getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		PublicWSBaseURL:   getEnv("PUBLIC_WS_BASE_URL", "ws://localhost:8080"),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		GeoIPDBPath:       os.Getenv("GEOIP_DB_PATH"),
		DefaultLocale:     getEnv("DEFAULT_LOCALE", "en"),
		CORSOrigins:       splitCSV(getEnv("CORS_ORIGINS", "")),
		OTelEnabled:       getEnvBool("OTEL_ENABLED", false),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		ClaimInterval:     time.Millisecond * time.Duration(getEnvInt("WORKER_CLAIM_INTERVAL_MS", 2000)),
		HeartbeatInterval: time.Second * time.Duration(getEnvInt("WS_HEARTBEAT_SECONDS", 15)),
		PollInterval:      time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)),
		MaxPollAttempts:   getEnvInt("MAX_POLL_ATTEMPTS", 150),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.MaxPollAttempts <= 0 {
		return nil, fmt.Errorf("MAX_POLL_ATTEMPTS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
