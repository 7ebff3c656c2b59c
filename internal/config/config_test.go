package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "qwen3-vl:2b", cfg.Inference.Model)
	assert.Equal(t, 45*time.Second, cfg.Inference.Timeout)
	assert.Equal(t, 320, cfg.Image.MaxSize)
	assert.Equal(t, 80, cfg.Image.Quality)
	assert.Equal(t, 3*time.Second, cfg.CacheTTL())
	assert.Len(t, cfg.Activities.Categories, 7)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.Inference.Model = "llava:7b"
	cfg.Inference.Timeout = 20 * time.Second
	cfg.Cache.Duration = 5 * time.Second
	cfg.Database.Driver = "mysql"
	cfg.Database.DSN = "user:pass@tcp(localhost:3306)/trackmate?parseTime=true"
	require.NoError(t, cfg.SaveToFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "timeout: 20s")
	assert.Contains(t, string(data), `- "\n\n"`)

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "llava:7b", loaded.Inference.Model)
	assert.Equal(t, 20*time.Second, loaded.Inference.Timeout)
	assert.Equal(t, 10*time.Second, loaded.Inference.ConnectTimeout)
	assert.Equal(t, 5*time.Second, loaded.Cache.Duration)
	assert.Equal(t, "mysql", loaded.Database.Driver)
	assert.Equal(t, cfg.Database.DSN, loaded.Database.DSN)
	assert.Equal(t, []string{"\n\n", "---"}, loaded.Inference.Stop)
	assert.Equal(t, cfg.Activities.Categories, loaded.Activities.Categories)
	assert.Equal(t, 30*24*time.Hour, loaded.Auth.TokenTTL)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("inference:\n  backend: llamacpp\n  url: http://gpu:8080\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "llamacpp", cfg.Inference.Backend)
	assert.Equal(t, "http://gpu:8080", cfg.Inference.URL)
	assert.Equal(t, 0.3, cfg.Inference.Temperature)
	assert.Equal(t, 3, cfg.Stats.SecondsPerDetection)
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("image:\n  quality: 70\n"), 0600))

	t.Setenv("TRACKMATE_INFERENCE_MODEL", "minicpm-v")
	t.Setenv("TRACKMATE_CACHE_DURATION", "10s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "minicpm-v", cfg.Inference.Model)
	assert.Equal(t, 10*time.Second, cfg.Cache.Duration)
	assert.Equal(t, 70, cfg.Image.Quality)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"quality too low", func(c *Config) { c.Image.Quality = 0 }},
		{"quality too high", func(c *Config) { c.Image.Quality = 101 }},
		{"unknown backend", func(c *Config) { c.Inference.Backend = "openai" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "postgres" }},
		{"relative url", func(c *Config) { c.Inference.URL = "/api/generate" }},
		{"zero timeout", func(c *Config) { c.Inference.Timeout = 0 }},
		{"six categories", func(c *Config) { c.Activities.Categories = c.Activities.Categories[:6] }},
		{"zero seconds per detection", func(c *Config) { c.Stats.SecondsPerDetection = 0 }},
		{"empty secret", func(c *Config) { c.Auth.JWTSecret = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestCacheTTLDisabled(t *testing.T) {
	cfg := Default()
	cfg.Cache.Enabled = false
	assert.Zero(t, cfg.CacheTTL())
}

func TestGetConfigPath(t *testing.T) {
	assert.Equal(t, "config.yaml", filepath.Base(GetConfigPath()))
}
