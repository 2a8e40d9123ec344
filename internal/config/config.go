package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config carries everything the service reads from the environment.
// Token lifetime defaults to 45 days, fixed from issuance.
type Config struct {
	Env      string
	HTTPAddr string

	DBDriver string
	DBDSN    string

	RedisEnabled bool
	RedisAddr    string
	RedisPrefix  string

	JWTIssuer   string
	JWTAudience string
	JWTSecret   string
	TokenPepper string
	TokenTTL    time.Duration

	CouncilSessionLimit int
	BcryptCost          int

	StudentBootstrapPassword string
	CouncilBootstrapPassword string

	CORSOrigins      []string
	APIRateLimitRPM  int
	AuthRateLimitRPM int

	MembershipCacheTTL time.Duration

	OTELMetricsEnabled        bool
	OTELTracesEnabled         bool
	OTELExporterOTLPEndpoint  string
	OTELExporterOTLPInsecure  bool
	OTELServiceName           string
	OTELMetricsExportInterval time.Duration
	EnableOTelHTTP            bool

	ShutdownTimeout       time.Duration
	HTTPReadHeaderTimeout time.Duration
}

func Load(ctx context.Context) (*Config, error) {
	cfg, err := load()
	recordConfigValidationEvent(ctx, profileOf(cfg), outcomeOf(err), classifyConfigLoadError(err))
	return cfg, err
}

func load() (*Config, error) {
	cfg := &Config{
		Env:                       getEnv("APP_ENV", "dev"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DBDriver:                  getEnv("DB_DRIVER", "sqlite"),
		DBDSN:                     getEnv("DB_DSN", "file:campus.db?cache=shared"),
		RedisAddr:                 getEnv("REDIS_ADDR", ""),
		RedisPrefix:               getEnv("REDIS_PREFIX", "campus"),
		JWTIssuer:                 getEnv("JWT_ISSUER", "campus-events-backend"),
		JWTAudience:               getEnv("JWT_AUDIENCE", "campus-app"),
		JWTSecret:                 getEnv("JWT_SECRET", ""),
		TokenPepper:               getEnv("TOKEN_PEPPER", ""),
		StudentBootstrapPassword:  getEnv("BOOTSTRAP_STUDENT_PASSWORD", "Kmit123$"),
		CouncilBootstrapPassword:  getEnv("BOOTSTRAP_COUNCIL_PASSWORD", "Council123$"),
		OTELExporterOTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELServiceName:           getEnv("OTEL_SERVICE_NAME", "campus-events-backend"),
		OTELExporterOTLPInsecure:  getBool("OTEL_EXPORTER_OTLP_INSECURE", true),
		OTELMetricsEnabled:        getBool("OTEL_METRICS_ENABLED", false),
		OTELTracesEnabled:         getBool("OTEL_TRACES_ENABLED", false),
		EnableOTelHTTP:            getBool("OTEL_HTTP_ENABLED", false),
		CouncilSessionLimit:       getInt("COUNCIL_SESSION_LIMIT", 2),
		BcryptCost:                getInt("BCRYPT_COST", 12),
		APIRateLimitRPM:           getInt("API_RATE_LIMIT_RPM", 300),
		AuthRateLimitRPM:          getInt("AUTH_RATE_LIMIT_RPM", 30),
		CORSOrigins:               getList("CORS_ORIGINS", []string{"http://localhost:3000"}),
	}

	var err error
	if cfg.TokenTTL, err = getDuration("TOKEN_TTL", 45*24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.MembershipCacheTTL, err = getDuration("MEMBERSHIP_CACHE_TTL", 5*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.OTELMetricsExportInterval, err = getDuration("OTEL_METRICS_EXPORT_INTERVAL", 15*time.Second); err != nil {
		return cfg, err
	}
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return cfg, err
	}
	if cfg.HTTPReadHeaderTimeout, err = getDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second); err != nil {
		return cfg, err
	}
	cfg.RedisEnabled = cfg.RedisAddr != ""

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Env == "prod" {
		if c.JWTSecret == "" {
			return fmt.Errorf("validate config: JWT_SECRET is required in prod")
		}
		if c.TokenPepper == "" {
			return fmt.Errorf("validate config: TOKEN_PEPPER is required in prod")
		}
	}
	if c.JWTSecret == "" {
		c.JWTSecret = "dev-insecure-secret-change-me-0123456789"
	}
	if c.TokenPepper == "" {
		c.TokenPepper = "dev-insecure-pepper"
	}
	if c.DBDriver != "sqlite" && c.DBDriver != "postgres" {
		return fmt.Errorf("validate config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.CouncilSessionLimit < 1 {
		return fmt.Errorf("validate config: COUNCIL_SESSION_LIMIT must be >= 1")
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("validate config: TOKEN_TTL must be positive")
	}
	return nil
}

func profileOf(cfg *Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.Env
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func getList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
