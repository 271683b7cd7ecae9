package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, FetcherBrowser, cfg.Fetcher)
	assert.True(t, cfg.Headless)
	assert.Equal(t, 15*time.Minute, cfg.Interval)
	assert.Equal(t, 60*time.Second, cfg.Heartbeat)
	assert.Equal(t, 25, cfg.BatchSize)
	assert.Equal(t, 72*time.Hour, cfg.RecheckEnded)
	assert.Equal(t, 0, cfg.MaxPerRun)
	assert.Equal(t, "*.txt", cfg.Include)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offerwatch.yaml")
	content := `
watch_dir: /data/lists
interval: 3h
batch_size: 5
fetcher: http
smtp:
  host: mail.example.com
  port: 465
  to:
    - alerts@example.com
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "/data/lists", cfg.WatchDir)
	assert.Equal(t, 3*time.Hour, cfg.Interval)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, FetcherHTTP, cfg.Fetcher)
	assert.Equal(t, "mail.example.com", cfg.SMTP.Host)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, []string{"alerts@example.com"}, cfg.SMTP.To)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offerwatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch_size: 5\n"), 0o644))

	t.Setenv("OFFERWATCH_BATCH_SIZE", "7")
	t.Setenv("OFFERWATCH_SMTP__HOST", "env.example.com")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.BatchSize)
	assert.Equal(t, "env.example.com", cfg.SMTP.Host)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("OFFERWATCH_BATCH_SIZE", "7")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("batch-size", 25, "")
	flags.String("watch-dir", ".", "")
	require.NoError(t, flags.Parse([]string{"--batch-size=3"}))

	cfg, err := Load("", flags)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.BatchSize)
	assert.Equal(t, ".", cfg.WatchDir, "unchanged flags do not override")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Load("", nil)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown fetcher", func(c *Config) { c.Fetcher = "carrier-pigeon" }},
		{"bad url template", func(c *Config) { c.OfferURL = "https://example.test/" }},
		{"zero interval", func(c *Config) { c.Interval = 0 }},
		{"zero heartbeat", func(c *Config) { c.Heartbeat = 0 }},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"negative quota", func(c *Config) { c.MaxPerRun = -1 }},
		{"negative delay", func(c *Config) { c.BaseDelay = -time.Second }},
		{"negative ended ttl", func(c *Config) { c.RecheckEnded = -time.Hour }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
