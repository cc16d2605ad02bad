package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakSecrets = []string{
	"change-me", "dev-secret-change-me", "secret", "admin", "password",
}

type Config struct {
	Port                 int    `env:"PORT" envDefault:"8080"`
	DatabaseURL          string `env:"DATABASE_URL,required"`
	RedisURL             string `env:"REDIS_URL,required"`
	AuthJWTSecret        string `env:"AUTH_JWT_SECRET"`
	VideoDurationSeconds int    `env:"VIDEO_DURATION_SECONDS" envDefault:"900"`
	ChatDurationSeconds  int    `env:"CHAT_DURATION_SECONDS" envDefault:"300"`
	CooldownSeconds      int    `env:"COOLDOWN_SECONDS" envDefault:"300"`
	QueueTTLSeconds      int    `env:"QUEUE_TTL_SECONDS" envDefault:"900"`
	PairLockTTLSeconds   int    `env:"PAIR_LOCK_TTL_SECONDS" envDefault:"10"`
	LogLevel             string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) VideoDuration() time.Duration {
	return time.Duration(c.VideoDurationSeconds) * time.Second
}

func (c *Config) ChatDuration() time.Duration {
	return time.Duration(c.ChatDurationSeconds) * time.Second
}

func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.CooldownSeconds) * time.Second
}

func (c *Config) QueueTTL() time.Duration {
	return time.Duration(c.QueueTTLSeconds) * time.Second
}

func (c *Config) PairLockTTL() time.Duration {
	return time.Duration(c.PairLockTTLSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.VideoDurationSeconds <= 0 {
		return fmt.Errorf("VIDEO_DURATION_SECONDS must be positive")
	}
	if c.ChatDurationSeconds <= 0 {
		return fmt.Errorf("CHAT_DURATION_SECONDS must be positive")
	}
	if c.CooldownSeconds < 0 {
		return fmt.Errorf("COOLDOWN_SECONDS must not be negative")
	}
	if c.PairLockTTLSeconds <= 0 {
		return fmt.Errorf("PAIR_LOCK_TTL_SECONDS must be positive")
	}

	if isProduction {
		if err := validateSecret("AUTH_JWT_SECRET", c.AuthJWTSecret); err != nil {
			return err
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateSecret(name, value string) error {
	if len(value) < 32 {
		return fmt.Errorf("%s must be at least 32 characters in production (generate with: openssl rand -base64 32)", name)
	}
	for _, weak := range knownWeakSecrets {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong secret in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
