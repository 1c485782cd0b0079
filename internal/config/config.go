package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	Telemetry TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBSQLitePath      string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Lock      LockConfig
	RateLimit RateLimitConfig

	SeedLicenseCatalog bool
}

// LockConfig points the per-owner switch lease at redis. An empty Addr keeps
// the lease in process.
type LockConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func (c LockConfig) Distributed() bool {
	return c.RedisAddr != ""
}

// TelemetryConfig feeds logging, tracing and metrics. Tracing and OTLP
// metrics stay off unless Enabled.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	Enabled       bool
	OTLPEndpoint  string
	OTLPProtocol  string
	SamplingRatio float64
}

// RateLimitConfig bounds how often one owner may request a switch. It uses
// the lease redis.
type RateLimitConfig struct {
	Enabled     bool
	SwitchRate  float64
	SwitchBurst int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "shopdesk"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		NodeID:            int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		DBType:            strings.ToLower(getenv("DATABASE_TYPE", "postgres")),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "shopdesk"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBSQLitePath:      getenv("DATABASE_SQLITE_PATH", "shopdesk.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		Lock: LockConfig{
			RedisAddr:     strings.TrimSpace(getenv("SUBSCRIPTION_LOCK_REDIS_ADDR", "")),
			RedisPassword: getenv("SUBSCRIPTION_LOCK_REDIS_PASSWORD", ""),
			RedisDB:       getenvInt("SUBSCRIPTION_LOCK_REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("SUBSCRIPTION_SWITCH_RATE_LIMIT_ENABLED", false),
			SwitchRate:  getenvFloat("SUBSCRIPTION_SWITCH_RATE_PER_SECOND", 0.2),
			SwitchBurst: getenvInt("SUBSCRIPTION_SWITCH_RATE_BURST", 3),
		},
		Telemetry: TelemetryConfig{
			LogLevel:      getenv("LOG_LEVEL", "info"),
			LogFormat:     getenv("LOG_FORMAT", "json"),
			Enabled:       getenvBool("OTEL_ENABLED", false),
			OTLPEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			OTLPProtocol:  getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		SeedLicenseCatalog: getenvBool("SEED_LICENSE_CATALOG", true),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
