package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Rate limit strategies.
const (
	RateLimitSliding = "sliding"
	RateLimitFixed   = "fixed"
)

// Shop is printed on receipts.
type Shop struct {
	Name     string
	Address  string
	Phone    string
	Currency string
	// Location is the zone report buckets follow.
	Location *time.Location
}

// Obs groups the observability toggles of the api and worker processes.
type Obs struct {
	MetricsNamespace string
	// HTTPBucketsMS is a comma separated list of latency buckets.
	HTTPBucketsMS   string
	TracingExporter string
	EnablePprof     bool
	PprofUser       string
	PprofPass       string
}

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	WorkerPort         string
	StoreDriver        string
	DatabaseURL        string
	RedisURL           string
	MigrateOnStart     bool
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	AccessTokenTTL     time.Duration
	StaffUsername      string
	StaffPasswordHash  string
	CORSAllowedOrigins []string
	IdempotencyTTL     time.Duration
	CatalogCacheTTL    time.Duration
	ReportCacheTTL     time.Duration
	LockTTL            time.Duration
	LockRetryBackoff   time.Duration
	RateLimitStrategy  string
	RateLimitWindow    time.Duration
	RateLimitMax       int
	BodyLimitBytes     int64
	LowStockThreshold  int
	QueueConcurrency   int
	LogFormat          string
	LogLevel           string
	OTELEndpoint       string
	OTELSampling       float64
	Shop               Shop
	Obs                Obs
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		WorkerPort:         valueOrDefault(k.String("WORKER_PORT"), "9091"),
		StoreDriver:        strings.ToLower(valueOrDefault(k.String("STORE_DRIVER"), DriverPostgres)),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		MigrateOnStart:     parseBool(k.String("MIGRATE_ON_START")),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          valueOrDefault(k.String("JWT_ISSUER"), "toko-billing"),
		JWTAudience:        valueOrDefault(k.String("JWT_AUDIENCE"), "toko-billing-staff"),
		AccessTokenTTL:     parseDuration(k.String("ACCESS_TOKEN_TTL"), "12h"),
		StaffUsername:      valueOrDefault(k.String("STAFF_USERNAME"), "admin"),
		StaffPasswordHash:  strings.TrimSpace(k.String("STAFF_PASSWORD_HASH")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		ReportCacheTTL:     parseDuration(k.String("REPORT_CACHE_TTL"), "10m"),
		LockTTL:            parseDuration(k.String("LOCK_TTL"), "5s"),
		LockRetryBackoff:   parseDuration(k.String("LOCK_RETRY_BACKOFF"), "25ms"),
		RateLimitStrategy:  strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_STRATEGY"), RateLimitSliding)),
		RateLimitWindow:    parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:       parseInt(k.String("RATE_LIMIT_MAX"), 300),
		BodyLimitBytes:     int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		LowStockThreshold:  parseInt(k.String("LOW_STOCK_THRESHOLD"), 5),
		QueueConcurrency:   parseInt(k.String("QUEUE_CONCURRENCY"), 5),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		OTELEndpoint:       strings.TrimSpace(k.String("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTELSampling:       parseFloat(k.String("OTEL_TRACES_SAMPLER_RATIO"), 0.1),
		Shop: Shop{
			Name:     valueOrDefault(k.String("SHOP_NAME"), "Hardware Shop"),
			Address:  k.String("SHOP_ADDRESS"),
			Phone:    k.String("SHOP_PHONE"),
			Currency: valueOrDefault(k.String("CURRENCY_LABEL"), "Rs."),
		},
		Obs: Obs{
			MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "toko_billing"),
			HTTPBucketsMS:    k.String("OBS_HTTP_BUCKETS_MS"),
			TracingExporter:  strings.ToLower(valueOrDefault(k.String("OBS_TRACING_EXPORTER"), "otlp")),
			EnablePprof:      parseBool(k.String("OBS_ENABLE_PPROF")),
			PprofUser:        strings.TrimSpace(k.String("SECURE_PPROF_BASIC_AUTH_USER")),
			PprofPass:        k.String("SECURE_PPROF_BASIC_AUTH_PASS"),
		},
	}

	loc, err := time.LoadLocation(valueOrDefault(k.String("SHOP_TIMEZONE"), "UTC"))
	if err != nil {
		return nil, fmt.Errorf("invalid SHOP_TIMEZONE: %w", err)
	}
	cfg.Shop.Location = loc

	switch cfg.StoreDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unsupported STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.Obs.EnablePprof && (cfg.Obs.PprofUser == "" || cfg.Obs.PprofPass == "") {
		return nil, errors.New("OBS_ENABLE_PPROF requires SECURE_PPROF_BASIC_AUTH_USER and _PASS")
	}
	if cfg.RateLimitStrategy != RateLimitSliding && cfg.RateLimitStrategy != RateLimitFixed {
		return nil, fmt.Errorf("unsupported RATE_LIMIT_STRATEGY %q", cfg.RateLimitStrategy)
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	return addr(c.Port, "8080")
}

// WorkerAddr returns the address the worker serves health and metrics on.
func (c *Config) WorkerAddr() string {
	return addr(c.WorkerPort, "9091")
}

func addr(port, fallback string) string {
	port = strings.TrimSpace(port)
	if port == "" {
		port = fallback
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether APP_ENV names a production deployment.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Client is the configuration of the command line client.
type Client struct {
	APIURL  string
	Token   string
	Timeout time.Duration
}

// LoadClient reads POS_* variables for the command line client.
func LoadClient() (*Client, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("POS_", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return &Client{
		APIURL:  strings.TrimRight(valueOrDefault(k.String("POS_API_URL"), "http://localhost:8080"), "/"),
		Token:   strings.TrimSpace(k.String("POS_TOKEN")),
		Timeout: parseDuration(k.String("POS_TIMEOUT"), "10s"),
	}, nil
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || f < 0 || f > 1 {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
