package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv(zap.NewNop(), envMap(nil))
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "3000", cfg.Port)
	assert.Empty(t, cfg.DBConfig)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdle)
	assert.Equal(t, 100, cfg.RPSBurst)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.True(t, cfg.SecureCookies)
	assert.Len(t, cfg.SessionSecret, 64)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg := FromEnv(zap.NewNop(), envMap(map[string]string{
		"ENVIRONMENT":          "development",
		"PORT":                 "8080",
		"DB_CONFIG":            `{"db_type":"memory"}`,
		"SESSION_SECRET":       "s3cret",
		"SESSION_IDLE_MINUTES": "5",
		"RPS_LIMIT":            "2.5",
		"RPS_BURST":            "7",
		"ADMIN_EMAIL":          "admin@example.com",
		"ADMIN_PASSWORD":       "titok",
	}))
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, `{"db_type":"memory"}`, cfg.DBConfig)
	assert.Equal(t, "s3cret", cfg.SessionSecret)
	assert.Equal(t, 5*time.Minute, cfg.SessionIdle)
	assert.Equal(t, 2.5, cfg.RPSLimit)
	assert.Equal(t, 7, cfg.RPSBurst)
	assert.False(t, cfg.SecureCookies)
	assert.Equal(t, "admin@example.com", cfg.AdminEmail)
	assert.Equal(t, "titok", cfg.AdminPassword)
}

func TestFromEnv_InvalidNumbersFallBack(t *testing.T) {
	cfg := FromEnv(zap.NewNop(), envMap(map[string]string{
		"RPS_BURST":   "many",
		"RPS_LIMIT":   "-1",
		"BCRYPT_COST": "0",
	}))
	assert.Equal(t, 100, cfg.RPSBurst)
	assert.Equal(t, float64(50), cfg.RPSLimit)
	assert.Equal(t, 10, cfg.BcryptCost)
}
