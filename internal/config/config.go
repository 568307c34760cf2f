package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	ListenAddr  string
	DatabaseURL string
	RedisURL    string

	ScanWorkers     int
	MaxAttempts     int
	LeaseDuration   time.Duration
	PollInterval    time.Duration
	DiscoverTimeout time.Duration
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	MonitorInterval time.Duration

	// Sources registered with the stub discoverer at startup; real
	// deployments register concrete clients instead.
	Sources []string

	ClassifyQueueKey string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var out int
		if _, err := fmt.Sscanf(v, "%d", &out); err == nil {
			return out
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func Load() (Config, error) {
	// A .env file is a local convenience only; absence is fine.
	_ = godotenv.Load()

	cfg := Config{
		Env:              getenv("APP_ENV", "development"),
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ScanWorkers:      getenvInt("SCAN_WORKERS", 2),
		MaxAttempts:      getenvInt("SCAN_MAX_ATTEMPTS", 3),
		LeaseDuration:    getenvDuration("SCAN_LEASE_DURATION", 2*time.Minute),
		PollInterval:     getenvDuration("SCAN_POLL_INTERVAL", 500*time.Millisecond),
		DiscoverTimeout:  getenvDuration("SCAN_DISCOVER_TIMEOUT", time.Minute),
		RetryBaseDelay:   getenvDuration("SCAN_RETRY_BASE_DELAY", 5*time.Second),
		RetryMaxDelay:    getenvDuration("SCAN_RETRY_MAX_DELAY", 5*time.Minute),
		MonitorInterval:  getenvDuration("MONITOR_INTERVAL", 30*time.Second),
		ClassifyQueueKey: getenv("CLASSIFY_QUEUE_KEY", "classify:pending"),
	}
	for _, s := range strings.Split(getenv("SCAN_SOURCES", "reddit,twitter,github"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			cfg.Sources = append(cfg.Sources, s)
		}
	}
	if cfg.DatabaseURL == "" {
		// Not fatal; the caller may fall back to the in-memory store.
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}
