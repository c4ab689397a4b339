package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	MetricsAddr string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	NATSSubject string
	SeedPath    string

	NominatimURL   string
	OSRMURL        string
	UserAgent      string
	Town           string
	CountryCodes   string
	SearchViewbox  string
	GeocodeTimeout time.Duration
	RouteTimeout   time.Duration
	RouteCacheTTL  time.Duration

	DefaultRatePerKm         float64
	MinSeparationMeters      float64
	DuplicateToleranceMeters float64
	HistoryCheckInterval     time.Duration
	SessionIdleTimeout       time.Duration
	Location                 *time.Location
	RecordNaming             string
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{
		Port:          getEnv("PORT", "8080"),
		MetricsAddr:   strings.TrimSpace(os.Getenv("METRICS_ADDR")),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisURL:      strings.TrimSpace(os.Getenv("REDIS_URL")),
		NATSURL:       strings.TrimSpace(os.Getenv("NATS_URL")),
		NATSSubject:   getEnv("NATS_SUBJECT_PREFIX", "trips"),
		SeedPath:      getEnv("SEED_PATH", "data/seeds/trips.json"),
		NominatimURL:  getEnv("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		OSRMURL:       getEnv("OSRM_URL", "https://router.project-osrm.org"),
		UserAgent:     getEnv("USER_AGENT", "cadete-dispatch/1.0"),
		Town:          getEnv("TOWN_NAME", "Gualeguaychú"),
		CountryCodes:  getEnv("COUNTRY_CODES", "ar"),
		SearchViewbox: getEnv("SEARCH_VIEWBOX", "-58.6471,-32.8741,-58.3471,-33.1741"),
	}

	var err error
	if cfg.GeocodeTimeout, err = millis("GEOCODE_TIMEOUT_MS", 5000); err != nil {
		return nil, err
	}
	if cfg.RouteTimeout, err = millis("ROUTE_TIMEOUT_MS", 8000); err != nil {
		return nil, err
	}
	if cfg.RouteCacheTTL, err = duration("ROUTE_CACHE_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.HistoryCheckInterval, err = duration("HISTORY_CHECK_INTERVAL", time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionIdleTimeout, err = duration("SESSION_IDLE_TIMEOUT", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.DefaultRatePerKm, err = positiveFloat("DEFAULT_PRICE_PER_KM", 500); err != nil {
		return nil, err
	}
	if cfg.MinSeparationMeters, err = positiveFloat("MIN_SEPARATION_METERS", 50); err != nil {
		return nil, err
	}
	if cfg.DuplicateToleranceMeters, err = positiveFloat("DUPLICATE_TOLERANCE_METERS", 10); err != nil {
		return nil, err
	}

	tz := getEnv("TZ", "America/Argentina/Buenos_Aires")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TZ: %q", tz)
	}
	cfg.Location = loc

	naming := strings.ToLower(getEnv("TRIP_RECORD_NAMING", "snake"))
	switch naming {
	case "snake", "camel":
		cfg.RecordNaming = naming
	default:
		return nil, fmt.Errorf("invalid TRIP_RECORD_NAMING: %q", naming)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func millis(key string, def int) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return time.Duration(def) * time.Millisecond, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func duration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return d, nil
}

func positiveFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return f, nil
}
