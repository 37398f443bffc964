package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	for _, k := range []string{"APP_ADDR", "DB_TIMEOUT", "WEATHER_API_KEY", "WEATHER_LOCATION", "SESSION_TTL", "MAX_BODY_BYTES", "CORS_ALLOWED_ORIGINS", "WRITE_RPS", "WRITE_BURST"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.DBTimeout)
	assert.Equal(t, 3*time.Second, cfg.WeatherTimeout)
	assert.Equal(t, 14*24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, int64(1<<20), cfg.MaxBodyBytes)
	assert.Equal(t, "Laval, Fr", cfg.WeatherLocation)
	assert.Equal(t, 5.0, cfg.WriteRPS)
	assert.Equal(t, 10, cfg.WriteBurst)
	assert.False(t, cfg.WeatherEnabled())
	assert.Empty(t, cfg.CORSAllowedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("DB_TIMEOUT", "2s")
	t.Setenv("WEATHER_API_KEY", "key")
	t.Setenv("SESSION_TTL", "1h")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, http://localhost:5173,")
	t.Setenv("COOKIE_SECURE", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 2*time.Second, cfg.DBTimeout)
	assert.Equal(t, time.Hour, cfg.SessionTTL)
	assert.True(t, cfg.WeatherEnabled())
	assert.True(t, cfg.CookieSecure)
	assert.Equal(t, []string{"http://localhost:3000", "http://localhost:5173"}, cfg.CORSAllowedOrigins)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()

	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct{ key, value string }{
		{"DB_TIMEOUT", "soon"},
		{"WEATHER_TIMEOUT", "-1s"},
		{"MAX_BODY_BYTES", "lots"},
		{"WRITE_RPS", "0"},
		{"WRITE_BURST", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "s3cret")
			t.Setenv(tt.key, tt.value)

			_, err := Load()

			assert.Error(t, err)
		})
	}
}

func TestLoadEnvFiles_DoesNotOverrideExistingEnv(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env"), []byte("DB_DSN=from_file\n"), 0o644))

	t.Setenv("DB_DSN", "from_env")

	cwd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	LoadEnvFiles()

	assert.Equal(t, "from_env", os.Getenv("DB_DSN"))
}
