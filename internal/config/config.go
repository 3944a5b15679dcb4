// Package config provides application configuration loaded from environment
// variables (optionally seeded from a .env file) with defaults and validation.
// It centralizes server timeouts, logging, storage, catalog access, quota and
// throttling policy, and observability settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the profile store backend.
type DBConfig struct {
	Driver string // sqlite|postgres
	Path   string // SQLite file path
	DSN    string // Postgres DSN
}

// TMDBConfig holds catalog API access settings.
type TMDBConfig struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Language     string
	Timeout      time.Duration
	Breaker      bool // wrap the client in a circuit breaker
}

// SamplerConfig tunes random page sampling.
type SamplerConfig struct {
	MaxPageDepth int // clamp for upstream total_pages
	PagesPerPick int // distinct pages fetched per pick
	Concurrency  int // parallel page fetches
}

// QuotaConfig is the per-user recommendation window.
type QuotaConfig struct {
	RequestLimit  int
	ResetInterval time.Duration
}

// ThrottleConfig is the per-user flood control applied to inbound events.
type ThrottleConfig struct {
	RecommendInterval time.Duration
	GeneralInterval   time.Duration
	IdleTTL           time.Duration
}

// FilterDefaults are applied to every newly created profile.
type FilterDefaults struct {
	GenreID                int
	MinRating              float64
	ExcludedLanguages      []string
	CertificationCountries []string
}

// RedisConfig configures the optional page-count cache.
type RedisConfig struct {
	Addr         string // empty disables the cache
	Password     string
	DB           int
	PageCountTTL time.Duration
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DB    DBConfig
	Redis RedisConfig

	// Bot
	AdminID  string
	TMDB     TMDBConfig
	Sampler  SamplerConfig
	Quota    QuotaConfig
	Throttle ThrottleConfig
	Defaults FilterDefaults

	// Cartoonize stub
	CartoonizeMaxBytes int64

	// Rate limiting (HTTP surface)
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Duplicate delivery window for processed events
	IdempotencyTTL time.Duration

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
// A .env file in the working directory is loaded first when present;
// variables already set in the process environment win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			Path:   getenv("DB_PATH", "bot.db"),
			DSN:    getenv("DB_DSN", ""),
		},
		Redis: RedisConfig{
			Addr:         getenv("REDIS_ADDR", ""),
			Password:     getenv("REDIS_PASSWORD", ""),
			DB:           getint("REDIS_DB", 0),
			PageCountTTL: getdur("PAGE_COUNT_TTL", time.Hour),
		},

		AdminID: strings.TrimSpace(getenv("ADMIN_ID", "")),
		TMDB: TMDBConfig{
			APIKey:       getenv("TMDB_API_KEY", ""),
			BaseURL:      strings.TrimRight(getenv("TMDB_BASE_URL", "https://api.themoviedb.org/3"), "/"),
			ImageBaseURL: strings.TrimRight(getenv("TMDB_IMAGE_BASE_URL", "https://image.tmdb.org/t/p/w500"), "/"),
			Language:     getenv("TMDB_LANGUAGE", "ru"),
			Timeout:      getdur("TMDB_TIMEOUT", 10*time.Second),
			Breaker:      getbool("CATALOG_BREAKER_ENABLED", true),
		},
		Sampler: SamplerConfig{
			MaxPageDepth: getint("SAMPLER_MAX_PAGE_DEPTH", 100),
			PagesPerPick: getint("SAMPLER_PAGES_PER_PICK", 5),
			Concurrency:  getint("SAMPLER_CONCURRENCY", 5),
		},
		Quota: QuotaConfig{
			RequestLimit:  getint("REQUEST_LIMIT", 10),
			ResetInterval: getdur("RESET_INTERVAL", 12*time.Hour),
		},
		Throttle: ThrottleConfig{
			RecommendInterval: getdur("THROTTLE_RECOMMEND_INTERVAL", 3*time.Second),
			GeneralInterval:   getdur("THROTTLE_GENERAL_INTERVAL", time.Second),
			IdleTTL:           getdur("THROTTLE_IDLE_TTL", 10*time.Minute),
		},
		Defaults: FilterDefaults{
			GenreID:                getint("DEFAULT_GENRE_ID", 16),
			MinRating:              getfloat("DEFAULT_MIN_RATING", 5),
			ExcludedLanguages:      splitCSV(getenv("DEFAULT_EXCLUDED_LANGUAGES", "ja")),
			CertificationCountries: splitCSV(getenv("DEFAULT_CERTIFICATION_COUNTRIES", "UA,RU")),
		},

		CartoonizeMaxBytes: int64(getint("CARTOONIZE_MAX_BYTES", 5<<20)),

		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-cartoon-bot"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	if cfg.DB.Driver == "postgresql" {
		cfg.DB.Driver = "postgres"
	}
	if cfg.Sampler.Concurrency < 1 {
		cfg.Sampler.Concurrency = cfg.Sampler.PagesPerPick
	}

	return cfg, cfg.validate()
}

func (cfg Config) validate() error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return errors.New("MAX_HEADER_BYTES must be > 0")
	}

	switch cfg.DB.Driver {
	case "sqlite":
		if strings.TrimSpace(cfg.DB.Path) == "" {
			return errors.New("DB_PATH must not be empty")
		}
	case "postgres":
		if strings.TrimSpace(cfg.DB.DSN) == "" {
			return errors.New("DB_DSN is required when DB_DRIVER=postgres")
		}
	default:
		return errors.New("DB_DRIVER must be one of: sqlite, postgres")
	}
	if cfg.Redis.Addr != "" && cfg.Redis.PageCountTTL <= 0 {
		return errors.New("PAGE_COUNT_TTL must be > 0")
	}

	if cfg.TMDB.Timeout <= 0 {
		return errors.New("TMDB_TIMEOUT must be > 0")
	}
	if cfg.Sampler.MaxPageDepth < 1 {
		return errors.New("SAMPLER_MAX_PAGE_DEPTH must be >= 1")
	}
	if cfg.Sampler.PagesPerPick < 1 {
		return errors.New("SAMPLER_PAGES_PER_PICK must be >= 1")
	}
	if cfg.Quota.RequestLimit < 1 {
		return errors.New("REQUEST_LIMIT must be >= 1")
	}
	if cfg.Quota.ResetInterval <= 0 {
		return errors.New("RESET_INTERVAL must be > 0")
	}
	if cfg.Throttle.RecommendInterval < 0 || cfg.Throttle.GeneralInterval < 0 {
		return errors.New("throttle intervals must be >= 0")
	}
	if cfg.Defaults.MinRating < 0 || cfg.Defaults.MinRating > 10 {
		return errors.New("DEFAULT_MIN_RATING must be between 0 and 10")
	}
	if cfg.CartoonizeMaxBytes <= 0 {
		return errors.New("CARTOONIZE_MAX_BYTES must be > 0")
	}

	if cfg.RateRPS < 0 {
		return errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}
	return nil
}

// ---- helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
