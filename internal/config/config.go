// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	minSecretLength = 16

	day = 24 * time.Hour
	// maxExpiryDays is the largest day count a time.Duration can hold.
	maxExpiryDays = math.MaxInt64 / int64(day)
)

// Config holds application level configuration loaded from environment
// variables.
type Config struct {
	Port        int
	DBPath      string
	JWTSecret   string
	JWTExpire   time.Duration
	CORSOrigins []string
	LogLevel    slog.Level
}

// Load builds Config from the environment with sensible defaults. Values
// that are set but unusable are errors, not silently replaced by defaults.
// A .env file, if wanted, must be loaded by the caller first.
func Load() (*Config, error) {
	var errs []error

	port, err := getEnvInt("PORT", 8080)
	if err == nil && (port < 1 || port > 65535) {
		err = fmt.Errorf("PORT: %d is out of range", port)
	}
	errs = append(errs, err)

	secret := os.Getenv("JWT_SECRET")
	switch {
	case secret == "":
		errs = append(errs, errors.New("JWT_SECRET is required"))
	case len(secret) < minSecretLength:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength))
	}

	expire, err := ParseExpiry(getEnv("JWT_EXPIRE", "30d"))
	if err != nil {
		err = fmt.Errorf("JWT_EXPIRE: %w", err)
	}
	errs = append(errs, err)

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return &Config{
		Port:        port,
		DBPath:      getEnv("DB_PATH", "data/jobtrack.db"),
		JWTSecret:   secret,
		JWTExpire:   expire,
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:    level,
	}, nil
}

// ParseExpiry accepts a Go duration ("720h", "90m") or a whole number of
// days with a "d" suffix ("30d").
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil || n <= 0 {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		if int64(n) > maxExpiryDays {
			return 0, fmt.Errorf("day count %q is too large", s)
		}
		return time.Duration(n) * day, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("expiry must be positive, got %s", s)
	}
	return d, nil
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return parsed, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
