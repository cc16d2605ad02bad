package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Port:                 8080,
		DatabaseURL:          "postgres://localhost/match",
		RedisURL:             "redis://localhost:6379",
		AuthJWTSecret:        strings.Repeat("s", 32),
		VideoDurationSeconds: 900,
		ChatDurationSeconds:  300,
		CooldownSeconds:      300,
		QueueTTLSeconds:      900,
		PairLockTTLSeconds:   10,
		LogLevel:             "info",
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/match")
	t.Setenv("REDIS_URL", "redis://localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, 15*time.Minute, cfg.VideoDuration())
	assert.Equal(t, 5*time.Minute, cfg.ChatDuration())
	assert.Equal(t, 5*time.Minute, cfg.Cooldown())
	assert.Equal(t, 10*time.Second, cfg.PairLockTTL())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/match")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("PORT", "9000")
	t.Setenv("VIDEO_DURATION_SECONDS", "60")
	t.Setenv("COOLDOWN_SECONDS", "0")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, time.Minute, cfg.VideoDuration())
	assert.Zero(t, cfg.Cooldown())
}

func TestValidate(t *testing.T) {
	t.Run("valid development config", func(t *testing.T) {
		cfg := validConfig()
		cfg.AuthJWTSecret = "short"
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("valid production config", func(t *testing.T) {
		assert.NoError(t, validConfig().Validate(true))
	})

	t.Run("rejects non-positive durations", func(t *testing.T) {
		cfg := validConfig()
		cfg.VideoDurationSeconds = 0
		assert.Error(t, cfg.Validate(false))

		cfg = validConfig()
		cfg.ChatDurationSeconds = -1
		assert.Error(t, cfg.Validate(false))

		cfg = validConfig()
		cfg.PairLockTTLSeconds = 0
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("zero cooldown is allowed", func(t *testing.T) {
		cfg := validConfig()
		cfg.CooldownSeconds = 0
		assert.NoError(t, cfg.Validate(false))
	})

	t.Run("production rejects a short secret", func(t *testing.T) {
		cfg := validConfig()
		cfg.AuthJWTSecret = "short"
		err := cfg.Validate(true)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
	})

	t.Run("production rejects known weak secrets", func(t *testing.T) {
		cfg := validConfig()
		cfg.AuthJWTSecret = "dev-secret-change-me"
		assert.Error(t, cfg.Validate(true))
	})
}
