package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port        string
	HTTPTimeout time.Duration

	// DBPath is the SQLite file. Empty keeps everything in memory.
	DBPath string

	GeocoderAPIKey string
	NWSUserAgent   string

	// LocationPermission is the initial state of the location permission.
	LocationPermission bool
	IPGeoURL           string

	LocationAttempts       int
	LocationRetryDelay     time.Duration
	LocationAttemptTimeout time.Duration

	// RefreshInterval controls how often the active session is refreshed
	// and saved locations are warmed.
	RefreshInterval time.Duration
	// CacheMaxAge is how long cache rows survive pruning. Zero disables pruning.
	CacheMaxAge     time.Duration
	WarmConcurrency int
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.DBPath = os.Getenv("DB_PATH")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.NWSUserAgent = os.Getenv("NWS_USER_AGENT")
	cfg.IPGeoURL = os.Getenv("IPGEO_URL")
	cfg.LocationPermission = getenvBool("LOCATION_PERMISSION", true)
	cfg.LocationAttempts = getenvInt("LOCATION_ATTEMPTS", 3)
	cfg.WarmConcurrency = getenvInt("WARM_CONCURRENCY", 4)

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "20s"); err != nil {
		return nil, err
	}
	if cfg.LocationRetryDelay, err = getenvDuration("LOCATION_RETRY_DELAY", "1.5s"); err != nil {
		return nil, err
	}
	if cfg.LocationAttemptTimeout, err = getenvDuration("LOCATION_ATTEMPT_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "15m"); err != nil {
		return nil, err
	}
	if cfg.CacheMaxAge, err = getenvDuration("CACHE_MAX_AGE", "24h"); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
