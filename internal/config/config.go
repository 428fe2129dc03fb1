package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	HTTPAddr string

	AuthJWTSecret  string
	AccessTokenTTL time.Duration
	GuestTokenTTL  time.Duration

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	Detect    DetectConfig
	Quota     QuotaConfig
	Bootstrap BootstrapConfig
}

// BootstrapConfig seeds an initial administrator account on startup when
// the user table is empty. Left blank, no account is created.
type BootstrapConfig struct {
	AdminEmail    string
	AdminName     string
	AdminPassword string
}

// DetectConfig configures the upstream detection microservice client.
type DetectConfig struct {
	BaseURL string
	Timeout time.Duration
}

// QuotaConfig carries the daily character budgets and the optional
// admission lock backend.
type QuotaConfig struct {
	GuestDailyLimit int64
	UserDailyLimit  int64

	LockRedisAddr     string
	LockRedisPassword string
	LockRedisDB       int
	LockTTL           time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "veritext"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),

		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		AuthJWTSecret:  strings.TrimSpace(getenv("AUTH_JWT_SECRET", "change-me")),
		AccessTokenTTL: getenvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		GuestTokenTTL:  getenvDuration("GUEST_TOKEN_TTL", 24*time.Hour),

		OTLPEndpoint: getenv("OTLP_ENDPOINT", "localhost:4317"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "veritext"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", "postgres"),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		Detect: DetectConfig{
			BaseURL: getenv("DETECT_SERVICE_URL", "http://localhost:9000"),
			Timeout: getenvDuration("DETECT_SERVICE_TIMEOUT", 30*time.Second),
		},
		Quota: QuotaConfig{
			GuestDailyLimit:   getenvInt64("QUOTA_GUEST_DAILY_LIMIT", 5000),
			UserDailyLimit:    getenvInt64("QUOTA_USER_DAILY_LIMIT", 30000),
			LockRedisAddr:     strings.TrimSpace(getenv("QUOTA_LOCK_REDIS_ADDR", "")),
			LockRedisPassword: strings.TrimSpace(getenv("QUOTA_LOCK_REDIS_PASSWORD", "")),
			LockRedisDB:       getenvInt("QUOTA_LOCK_REDIS_DB", 0),
			LockTTL:           getenvDuration("QUOTA_LOCK_TTL", 10*time.Second),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),
			AdminName:     strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_NAME", "admin")),
			AdminPassword: strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_PASSWORD", "")),
		},
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
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

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
