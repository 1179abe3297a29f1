package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env     string
	AppPort string

	DBDriver       string
	DSN            string
	DBWaitAttempts int
	DBWaitInterval time.Duration

	JWTSecret string
	JWTTTL    time.Duration

	RedisAddr     string
	RedisPassword string

	StripeSecretKey string
	StripeReturnURL string
	Currency        string

	SubscriptionPeriod time.Duration
	DefaultPackage     string

	AdminEmail    string
	AdminPassword string

	LogLevel string

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool
}

const devSecret = "dev-secret-only"

func (c Config) IsProduction() bool { return c.Env == "production" }

func (c Config) IsDevelopment() bool { return c.Env == "development" }

// Load reads configuration from the environment, after merging a .env file
// when one is present. Variables already set in the process win.
func Load() (Config, error) {
	loaded := godotenv.Load() == nil

	cfg := Config{
		Env:     getEnv("APP_ENV", "development"),
		AppPort: getEnv("APP_PORT", "8080"),

		DBDriver:       getEnv("DB_DRIVER", "mysql"),
		DSN:            getEnv("DB_DSN", os.Getenv("MYSQL_DSN")),
		DBWaitAttempts: getEnvInt("DB_WAIT_ATTEMPTS", 10),
		DBWaitInterval: getEnvDuration("DB_WAIT_INTERVAL", 3*time.Second),

		JWTSecret: os.Getenv("JWT_SECRET"),
		JWTTTL:    getEnvDuration("JWT_TTL", 24*time.Hour),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		StripeReturnURL: getEnv("STRIPE_RETURN_URL", "http://localhost:9001/"),
		Currency:        getEnv("PAYMENT_CURRENCY", "usd"),

		SubscriptionPeriod: getEnvDuration("SUBSCRIPTION_PERIOD", 30*24*time.Hour),
		DefaultPackage:     getEnv("DEFAULT_PACKAGE", "basic"),

		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		EnvFileLoaded: loaded,
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	if cfg.IsDevelopment() && os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = "debug"
	}

	if cfg.DSN == "" {
		if cfg.DBDriver != "sqlite" {
			return Config{}, errors.New("DB_DSN not set in environment")
		}
		cfg.DSN = "file:smmart.db"
	}
	if cfg.JWTSecret == "" {
		if cfg.IsProduction() {
			return Config{}, errors.New("JWT_SECRET must be set in production")
		}
		cfg.JWTSecret = devSecret
	}
	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		return Config{}, errors.New("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
