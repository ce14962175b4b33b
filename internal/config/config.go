package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	MongoURI           string
	MongoDatabase      string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	CORSAllowedOrigins []string

	Currency              string
	TaxBps                int
	StandardShippingRate  int64
	ExpressShippingRate   int64
	FreeShippingThreshold int64

	CartTTL        time.Duration
	CatalogTTL     time.Duration
	IdempotencyTTL time.Duration
	ValidateLimit  string

	PayPalBaseURL  string
	PayPalClientID string
	PayPalSecret   string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	LogFormat string
	LogLevel  string

	TracingEnabled  bool
	TracingEndpoint string
	TracingRatio    float64
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
		MongoURI:           k.String("MONGO_URI"),
		MongoDatabase:      valueOrDefault(k.String("MONGO_DATABASE"), "comicink"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          valueOrDefault(k.String("JWT_ISSUER"), "comicink"),
		JWTAudience:        k.String("JWT_AUDIENCE"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		Currency:              valueOrDefault(k.String("CURRENCY"), "USD"),
		TaxBps:                parseInt(k.String("TAX_BPS"), 1800),
		StandardShippingRate:  parseInt64(k.String("SHIPPING_STANDARD_RATE"), 499),
		ExpressShippingRate:   parseInt64(k.String("SHIPPING_EXPRESS_RATE"), 1499),
		FreeShippingThreshold: parseInt64(k.String("FREE_SHIPPING_THRESHOLD"), 5000),

		CartTTL:        parseDuration(k.String("CART_TTL"), "168h"),
		CatalogTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		IdempotencyTTL: parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		ValidateLimit:  valueOrDefault(k.String("COUPON_VALIDATE_RATE"), "20-M"),

		PayPalBaseURL:  valueOrDefault(k.String("PAYPAL_BASE_URL"), "https://api-m.sandbox.paypal.com"),
		PayPalClientID: k.String("PAYPAL_CLIENT_ID"),
		PayPalSecret:   k.String("PAYPAL_SECRET"),

		SMTPHost: k.String("SMTP_HOST"),
		SMTPPort: parseInt(k.String("SMTP_PORT"), 587),
		SMTPUser: k.String("SMTP_USER"),
		SMTPPass: k.String("SMTP_PASS"),
		SMTPFrom: valueOrDefault(k.String("SMTP_FROM"), "orders@comicink.example"),

		LogFormat: valueOrDefault(k.String("LOG_FORMAT"), "json"),
		LogLevel:  valueOrDefault(k.String("LOG_LEVEL"), "info"),

		TracingEnabled:  parseBool(k.String("TRACING_ENABLED")),
		TracingEndpoint: k.String("TRACING_ENDPOINT"),
		TracingRatio:    parseFloat(k.String("TRACING_SAMPLING_RATIO"), 1),
	}

	if cfg.MongoURI == "" {
		return nil, errors.New("MONGO_URI is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
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

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseInt64(value string, fallback int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
