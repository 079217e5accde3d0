package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef-secret"

// clearEnv blanks every variable Load reads so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"PORT", "DB_PATH", "JWT_SECRET", "JWT_EXPIRE", "CORS_ORIGINS", "LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "data/jobtrack.db", cfg.DBPath)
	assert.Equal(t, testSecret, cfg.JWTSecret)
	assert.Equal(t, 30*24*time.Hour, cfg.JWTExpire)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("PORT", "5000")
	t.Setenv("DB_PATH", "/tmp/jobs.db")
	t.Setenv("JWT_EXPIRE", "12h")
	t.Setenv("CORS_ORIGINS", "http://localhost:3000, https://jobs.example.com ,")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Port)
	assert.Equal(t, "/tmp/jobs.db", cfg.DBPath)
	assert.Equal(t, 12*time.Hour, cfg.JWTExpire)
	assert.Equal(t, []string{"http://localhost:3000", "https://jobs.example.com"}, cfg.CORSOrigins)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{name: "missing secret", env: map[string]string{}, wantErr: "JWT_SECRET is required"},
		{name: "short secret", env: map[string]string{"JWT_SECRET": "short"}, wantErr: "at least 16"},
		{name: "bad port", env: map[string]string{"JWT_SECRET": testSecret, "PORT": "http"}, wantErr: "PORT"},
		{name: "port out of range", env: map[string]string{"JWT_SECRET": testSecret, "PORT": "70000"}, wantErr: "out of range"},
		{name: "bad expiry", env: map[string]string{"JWT_SECRET": testSecret, "JWT_EXPIRE": "soon"}, wantErr: "JWT_EXPIRE"},
		{name: "bad log level", env: map[string]string{"JWT_SECRET": testSecret, "LOG_LEVEL": "loud"}, wantErr: "LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_ReportsEveryProblem(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "nope")
	t.Setenv("LOG_LEVEL", "loud")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestParseExpiry(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{in: "30d", want: 30 * 24 * time.Hour},
		{in: "1d", want: 24 * time.Hour},
		{in: "720h", want: 720 * time.Hour},
		{in: "90m", want: 90 * time.Minute},
		{in: " 7d ", want: 7 * 24 * time.Hour},
		{in: "106751d", want: 106751 * 24 * time.Hour},
		{in: "106752d", wantErr: true},
		{in: "300000d", wantErr: true},
		{in: "0d", wantErr: true},
		{in: "-1h", wantErr: true},
		{in: "xd", wantErr: true},
		{in: "", wantErr: true},
		{in: "forever", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseExpiry(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
