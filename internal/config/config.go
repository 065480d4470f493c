package config

import (
	"crypto/rand"
	"encoding/hex"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds the application configuration
type Config struct {
	Environment   string
	LogLevel      string
	Port          string
	DBConfig      string
	SessionSecret string
	SessionIdle   time.Duration
	SecureCookies bool
	RPSLimit      float64
	RPSBurst      int
	BcryptCost    int

	// Seeded admin account; skipped when email or password is empty
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

const (
	defaultPort        = "3000"
	defaultSessionIdle = 30 * time.Minute
	defaultRPSLimit    = 50
	defaultRPSBurst    = 100
	defaultBcryptCost  = 10
)

// Load reads configuration from a .env file (if present) and the
// environment, falling back to defaults
func Load(logger *zap.Logger) *Config {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file loaded", zap.Error(err))
	}
	return FromEnv(logger, os.Getenv)
}

// FromEnv builds a Config from the given lookup function
func FromEnv(logger *zap.Logger, getenv func(string) string) *Config {
	cfg := &Config{
		Environment:   orDefault(getenv("ENVIRONMENT"), "production"),
		LogLevel:      orDefault(getenv("LOG_LEVEL"), "info"),
		Port:          orDefault(getenv("PORT"), defaultPort),
		DBConfig:      getenv("DB_CONFIG"),
		SessionSecret: getenv("SESSION_SECRET"),
		SessionIdle:   time.Duration(intOr(logger, getenv, "SESSION_IDLE_MINUTES", int(defaultSessionIdle/time.Minute))) * time.Minute,
		RPSLimit:      floatOr(logger, getenv, "RPS_LIMIT", defaultRPSLimit),
		RPSBurst:      intOr(logger, getenv, "RPS_BURST", defaultRPSBurst),
		BcryptCost:    intOr(logger, getenv, "BCRYPT_COST", defaultBcryptCost),
		AdminName:     getenv("ADMIN_NAME"),
		AdminEmail:    getenv("ADMIN_EMAIL"),
		AdminPassword: getenv("ADMIN_PASSWORD"),
	}
	cfg.SecureCookies = cfg.Environment == "production"
	if v := getenv("SECURE_COOKIES"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.SecureCookies = b
		} else {
			logger.Warn("invalid SECURE_COOKIES, using default", zap.String("value", v))
		}
	}

	if cfg.SessionSecret == "" {
		logger.Warn("SESSION_SECRET not set, generating an ephemeral secret; sessions will not survive a restart")
		cfg.SessionSecret = randomSecret()
	}

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.String("port", cfg.Port),
		zap.Duration("session_idle", cfg.SessionIdle),
		zap.Float64("rps_limit", cfg.RPSLimit),
		zap.Int("rps_burst", cfg.RPSBurst),
	)
	return cfg
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func intOr(logger *zap.Logger, getenv func(string) string, key string, def int) int {
	v := getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.Warn("invalid integer setting, using default", zap.String("key", key), zap.String("value", v), zap.Int("default", def))
		return def
	}
	return n
}

func floatOr(logger *zap.Logger, getenv func(string) string, key string, def float64) float64 {
	v := getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		logger.Warn("invalid number setting, using default", zap.String("key", key), zap.String("value", v), zap.Float64("default", def))
		return def
	}
	return f
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("config: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}
