// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "console-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "console-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "2h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// AdminRoleIDs is a comma-separated list of role ids that bypass the
	// authorization gate (e.g. "1,2").
	AdminRoleIDs string `mapstructure:"ADMIN_ROLE_IDS"`
	// SlidingExtendWindow is the remaining-lifetime window in which an access
	// token is re-minted in place (e.g. "30m").
	SlidingExtendWindow string `mapstructure:"SLIDING_EXTEND_WINDOW"`
	// SlidingRefreshWindow is the remaining-lifetime window in which the full
	// token pair is rotated (e.g. "5m").
	SlidingRefreshWindow string `mapstructure:"SLIDING_REFRESH_WINDOW"`
	// CleanupInterval is how often the cleanup job removes dead sessions.
	CleanupInterval string `mapstructure:"CLEANUP_INTERVAL"`
	// BcryptCost is the bcrypt cost factor (4-31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// SecureCookies sets the Secure flag on auth cookies. Disable only for
	// local development over plain HTTP.
	SecureCookies bool `mapstructure:"SECURE_COOKIES"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. localhost:4317).
	// Empty disables traces, metrics and OTel logs.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_ISSUER", "console-auth")
	v.SetDefault("JWT_AUDIENCE", "console-api")
	v.SetDefault("JWT_ACCESS_TTL", "2h")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("ADMIN_ROLE_IDS", "1,2")
	v.SetDefault("SLIDING_EXTEND_WINDOW", "30m")
	v.SetDefault("SLIDING_REFRESH_WINDOW", "5m")
	v.SetDefault("CLEANUP_INTERVAL", "1h")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SECURE_COOKIES", true)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "console-telemetry")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "console-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	if !cfg.SecureCookies && cfg.Env == "production" {
		return nil, errors.New("config: SECURE_COOKIES must not be false when APP_ENV=production")
	}

	if len(cfg.AdminRoleIDList()) == 0 {
		return nil, errors.New("config: ADMIN_ROLE_IDS must name at least one role")
	}

	if d, err := time.ParseDuration(cfg.SlidingRefreshWindow); err == nil {
		if e, err := time.ParseDuration(cfg.SlidingExtendWindow); err == nil && d >= e {
			return nil, errors.New("config: SLIDING_REFRESH_WINDOW must be shorter than SLIDING_EXTEND_WINDOW")
		}
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 2h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return durationOr(c.JWTAccessTTL, 2*time.Hour)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return durationOr(c.JWTRefreshTTL, 168*time.Hour)
}

// ExtendWindow parses SlidingExtendWindow. Returns 30m if unset or invalid.
func (c *Config) ExtendWindow() time.Duration {
	return durationOr(c.SlidingExtendWindow, 30*time.Minute)
}

// RefreshWindow parses SlidingRefreshWindow. Returns 5m if unset or invalid.
func (c *Config) RefreshWindow() time.Duration {
	return durationOr(c.SlidingRefreshWindow, 5*time.Minute)
}

// CleanupEvery parses CleanupInterval. Returns 1h if unset or invalid.
func (c *Config) CleanupEvery() time.Duration {
	return durationOr(c.CleanupInterval, time.Hour)
}

// AdminRoleIDList returns the admin role ids from the comma-separated config.
func (c *Config) AdminRoleIDList() []string {
	return splitList(c.AdminRoleIDs)
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TelemetryKafkaBrokers)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
