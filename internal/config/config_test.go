package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 30, cfg.API.TimeoutSecs)
	assert.Equal(t, 1, cfg.API.MaxRetries)
	assert.InDelta(t, 20, cfg.API.RateLimit, 0.001)
	assert.Equal(t, 5, cfg.API.BreakerThreshold)
	assert.Equal(t, 30, cfg.API.BreakerCooldownSec)
	assert.Equal(t, "mapbox://styles/mapbox/light-v11", cfg.Map.StyleURL)
	assert.Empty(t, cfg.Cache.Path)
	assert.Equal(t, 168, cfg.Cache.GeometryTTLHours)
	assert.Equal(t, 16, cfg.Cache.MemoryEntries)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "fr", cfg.Chat.Language)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
api:
  base_url: https://prix.example.fr
log:
  level: debug
  format: console
server:
  port: 9090
cache:
  path: /var/cache/smartmap.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://prix.example.fr", cfg.API.BaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "/var/cache/smartmap.db", cfg.Cache.Path)
	// Defaults still apply for unset values
	assert.Equal(t, 30, cfg.API.TimeoutSecs)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
chat:
  language: fr
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("SMARTMAP_CHAT_LANGUAGE", "en")
	t.Setenv("SMARTMAP_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "en", cfg.Chat.Language)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadMapboxToken(t *testing.T) {
	chdirTemp(t)
	t.Setenv("MAPBOX_TOKEN", "pk.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "pk.test", cfg.Map.AccessToken)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("SMARTMAP_SERVER_PORT=3000\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("SMARTMAP_SERVER_PORT") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with all defaults populated for validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "http://localhost:8000"
	cfg.API.TimeoutSecs = 30
	cfg.API.MaxRetries = 1
	cfg.API.RateLimit = 20
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "render defaults", mode: "render"},
		{name: "serve defaults", mode: "serve"},
		{name: "serve bad port", mode: "serve", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "server.port"},
		{name: "relative base url", mode: "render", mutate: func(c *Config) { c.API.BaseURL = "/api" }, wantErr: "api.base_url"},
		{name: "zero retries", mode: "ask", mutate: func(c *Config) { c.API.MaxRetries = 0 }, wantErr: "api.max_retries"},
		{name: "zero rate", mode: "years", mutate: func(c *Config) { c.API.RateLimit = 0 }, wantErr: "api.rate_limit"},
		{name: "unknown mode", mode: "deploy", wantErr: "unknown mode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validDefaults()
			if tt.mutate != nil {
				tt.mutate(cfg)
			}
			err := cfg.Validate(tt.mode)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validDefaults()
	cfg.API.TimeoutSecs = 0
	cfg.Cache.MemoryEntries = -1

	err := cfg.Validate("export")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api.timeout_secs")
	assert.Contains(t, err.Error(), "cache.memory_entries")
}
