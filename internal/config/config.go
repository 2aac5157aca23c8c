// Package config handles connector configuration
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	apperr "github.com/konnectors/cozy-konnector-free-mobile/internal/errors"
)

const envPrefix = "FREEMOBILE_"

type Config struct {
	BaseURL          string
	Login            string
	Password         string
	UserAgent        string
	HTTPTimeout      time.Duration
	PrimingBudget    time.Duration
	SequentialDecode bool
	MaxAttempts      int
	LogLevel         string
}

func Load() *Config {
	return &Config{
		BaseURL:          getEnv("BASE_URL", "https://mobile.free.fr/moncompte/"),
		Login:            strings.TrimSpace(getEnv("LOGIN", "")),
		Password:         getEnv("PASSWORD", ""),
		UserAgent:        getEnv("USER_AGENT", "Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:53.0) Gecko/20100101 Firefox/53.0"),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		PrimingBudget:    getEnvDuration("PRIMING_BUDGET", 4*time.Second),
		SequentialDecode: getEnvBool("SEQUENTIAL_DECODE", false),
		MaxAttempts:      getEnvInt("MAX_ATTEMPTS", 3),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Validate checks that the settings needed to log in are present.
func (c *Config) Validate() error {
	var missing []string
	if c.Login == "" {
		missing = append(missing, envPrefix+"LOGIN")
	}
	if c.Password == "" {
		missing = append(missing, envPrefix+"PASSWORD")
	}
	if len(missing) > 0 {
		return apperr.Newf(apperr.ConfigMissing, "missing required environment variables: %s",
			strings.Join(missing, ", "))
	}
	if c.MaxAttempts < 1 {
		return apperr.Newf(apperr.ConfigMissing, "%sMAX_ATTEMPTS must be at least 1, got %d", envPrefix, c.MaxAttempts)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(envPrefix + key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(envPrefix + key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
