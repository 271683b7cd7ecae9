// Package config loads watcher configuration with layered precedence:
// command-line flags over OFFERWATCH_* environment variables over a YAML
// config file over built-in defaults.
//
// Environment variables map to config keys by lowercasing and turning
// double underscores into dots: OFFERWATCH_BATCH_SIZE sets batch_size,
// OFFERWATCH_SMTP__HOST sets smtp.host.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/offerwatch/offerwatch/pkg/scrape"
)

// Fetcher kinds.
const (
	FetcherBrowser = "browser"
	FetcherHTTP    = "http"
)

// Default config file names, searched in the working directory.
var defaultConfigFiles = []string{"offerwatch.yaml", "offerwatch.yml"}

// SMTP holds mail delivery settings.
type SMTP struct {
	Host     string   `koanf:"host"`
	Port     int      `koanf:"port"`
	Username string   `koanf:"username"`
	Password string   `koanf:"password"`
	From     string   `koanf:"from"`
	FromName string   `koanf:"from_name"`
	To       []string `koanf:"to"`
	Subject  string   `koanf:"subject"`
}

// Config holds all watcher settings.
type Config struct {
	// Watchlist input.
	WatchDir   string `koanf:"watch_dir"`
	TargetFile string `koanf:"target_file"`
	Include    string `koanf:"include"`

	// State database.
	StatePath string `koanf:"state_path"`

	// Fetching.
	Fetcher       string        `koanf:"fetcher"`
	Headless      bool          `koanf:"headless"`
	InstallDriver bool          `koanf:"install_driver"`
	OfferURL      string        `koanf:"offer_url"`
	BaseDelay     time.Duration `koanf:"base_delay"`
	Jitter        time.Duration `koanf:"jitter"`
	BackoffStart  time.Duration `koanf:"backoff_start"`
	BackoffMax    time.Duration `koanf:"backoff_max"`

	// Run shaping.
	BatchSize    int           `koanf:"batch_size"`
	Concurrency  int           `koanf:"concurrency"`
	MaxPerRun    int           `koanf:"max_per_run"`
	RecheckEnded time.Duration `koanf:"recheck_ended"`

	// Worker loop.
	Interval  time.Duration `koanf:"interval"`
	Heartbeat time.Duration `koanf:"heartbeat"`

	// Alerting.
	AlertsEnabled bool `koanf:"alerts_enabled"`
	SMTP          SMTP `koanf:"smtp"`

	Verbose bool `koanf:"verbose"`
}

// Defaults returns the built-in defaults as a flat confmap.
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"watch_dir":      ".",
		"target_file":    "",
		"include":        "*.txt",
		"state_path":     "offerwatch.db",
		"fetcher":        FetcherBrowser,
		"headless":       true,
		"install_driver": false,
		"offer_url":      scrape.DefaultOfferURLTemplate,
		"base_delay":     "800ms",
		"jitter":         "800ms",
		"backoff_start":  "5s",
		"backoff_max":    "15m",
		"batch_size":     25,
		"concurrency":    1,
		"max_per_run":    0,
		"recheck_ended":  "72h",
		"interval":       "15m",
		"heartbeat":      "60s",
		"alerts_enabled": true,
		"smtp.host":      "smtp.gmail.com",
		"smtp.port":      587,
		"verbose":        false,
	}
}

// findConfigFile resolves the config file to load. An explicit path wins;
// otherwise the default names are probed in the working directory.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range defaultConfigFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration from defaults, the config file, the
// environment, and flags, then validates it.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file, if present.
	if path := findConfigFile(cfgFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else if cfgFile != "" {
		return nil, fmt.Errorf("config file %s not found", cfgFile)
	}

	// 3. Environment (OFFERWATCH_ prefix).
	if err := k.Load(env.Provider("OFFERWATCH_", ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, "OFFERWATCH_"))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, highest priority. Only explicitly set flags apply.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the worker cannot run with.
func (c *Config) Validate() error {
	if c.Fetcher != FetcherBrowser && c.Fetcher != FetcherHTTP {
		return fmt.Errorf("unknown fetcher %q (want %q or %q)", c.Fetcher, FetcherBrowser, FetcherHTTP)
	}
	if err := scrape.ValidateURLTemplate(c.OfferURL); err != nil {
		return err
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if c.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be positive, got %s", c.Heartbeat)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be at least 1, got %d", c.BatchSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxPerRun < 0 {
		return fmt.Errorf("max_per_run must not be negative, got %d", c.MaxPerRun)
	}
	if c.BaseDelay < 0 || c.Jitter < 0 {
		return fmt.Errorf("base_delay and jitter must not be negative")
	}
	if c.RecheckEnded < 0 {
		return fmt.Errorf("recheck_ended must not be negative, got %s", c.RecheckEnded)
	}
	return nil
}
