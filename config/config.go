package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TargetConfig is one catalog group to verify
type TargetConfig struct {
	Tag string `yaml:"tag"`
	// Sources are files or HTTP(S) URLs listing extra candidates
	Sources []string `yaml:"sources"`
	// IncludeExisting resubmits the group's persisted entries (default true)
	IncludeExisting *bool `yaml:"include_existing"`
}

// ResubmitsExisting reports whether persisted entries are re-verified.
func (t TargetConfig) ResubmitsExisting() bool {
	return t.IncludeExisting == nil || *t.IncludeExisting
}

// Config holds the complete application configuration
type Config struct {
	// Catalog document
	Catalog struct {
		Path            string `yaml:"path"`
		CreateIfMissing bool   `yaml:"create_if_missing"`
	} `yaml:"catalog"`

	// Groups to verify
	Targets []TargetConfig `yaml:"targets"`

	// Liveness cascade settings
	Probe ProbeConfig `yaml:"probe"`

	// Worker pool settings
	Pool struct {
		Width        int           `yaml:"width"`
		BatchTimeout time.Duration `yaml:"batch_timeout"` // 0 = none
	} `yaml:"pool"`

	// Merge settings
	Merge struct {
		Order                  string `yaml:"order"` // completion or appearance
		MaxPerName             int    `yaml:"max_per_name"`
		PreserveOnTotalFailure bool   `yaml:"preserve_on_total_failure"`
	} `yaml:"merge"`

	// Diagnostics outputs; empty paths disable an output
	Ledger struct {
		Path         string `yaml:"path"`
		WhitelistDir string `yaml:"whitelist_dir"`
		SQLitePath   string `yaml:"sqlite_path"`
	} `yaml:"ledger"`

	// Probe history store; an empty path disables it
	History struct {
		Path       string        `yaml:"path"`
		Window     time.Duration `yaml:"window"`
		MaxLatency time.Duration `yaml:"max_latency"`
	} `yaml:"history"`

	// Remote candidate list fetching
	Fetch struct {
		Timeout  time.Duration `yaml:"timeout"`
		CacheDir string        `yaml:"cache_dir"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"fetch"`

	// HTTP server and scheduler settings used by serve
	Server struct {
		Address    string        `yaml:"address"`
		Port       string        `yaml:"port"`
		Schedule   string        `yaml:"schedule"`
		RunOnStart bool          `yaml:"run_on_start"`
		StaleAfter time.Duration `yaml:"stale_after"`
	} `yaml:"server"`

	Log struct {
		Level  string `yaml:"level"`  // debug, info, warn, error
		Format string `yaml:"format"` // json or text
	} `yaml:"log"`
}

// Validate performs validation on the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.Catalog.Path == "" {
		errors = append(errors, "catalog path is required")
	}

	seen := make(map[string]bool)
	for i, t := range c.Targets {
		tag := strings.TrimSpace(t.Tag)
		if tag == "" {
			errors = append(errors, fmt.Sprintf("target %d: tag is required", i))
			continue
		}
		if seen[tag] {
			errors = append(errors, fmt.Sprintf("target %d (%s): duplicate tag", i, tag))
		}
		seen[tag] = true
		for j, src := range t.Sources {
			if strings.TrimSpace(src) == "" {
				errors = append(errors, fmt.Sprintf("target %d (%s): source %d is empty", i, tag, j))
			}
		}
	}

	if err := c.Probe.Validate(); err != nil {
		errors = append(errors, err.Error())
	}

	if c.Pool.Width <= 0 {
		errors = append(errors, "pool width must be positive")
	}
	if c.Pool.BatchTimeout < 0 {
		errors = append(errors, "pool batch timeout must not be negative")
	}

	if c.Merge.Order != "completion" && c.Merge.Order != "appearance" {
		errors = append(errors, "merge order must be one of: completion, appearance")
	}
	if c.Merge.MaxPerName < 0 {
		errors = append(errors, "merge max_per_name must not be negative")
	}

	if c.History.Path != "" && c.History.Window <= 0 {
		errors = append(errors, "history window must be positive")
	}

	if c.Fetch.Timeout <= 0 {
		errors = append(errors, "fetch timeout must be positive")
	}
	if c.Fetch.CacheDir == "" {
		errors = append(errors, "fetch cache directory is required")
	}

	if c.Server.Address == "" {
		errors = append(errors, "server address is required")
	}
	if c.Server.Port == "" {
		errors = append(errors, "server port is required")
	}
	if c.Server.Schedule == "" {
		errors = append(errors, "server schedule is required")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, "log level must be one of: debug, info, warn, error")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		errors = append(errors, "log format must be one of: json, text")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// Default returns a Config with sensible default values
func Default() *Config {
	cfg := &Config{}

	cfg.Catalog.Path = "catalog.txt"

	cfg.Probe = DefaultProbeConfig()

	cfg.Pool.Width = 8

	cfg.Merge.Order = "completion"

	cfg.Ledger.Path = filepath.Join("results", "ledger.csv")

	cfg.History.Window = 24 * time.Hour
	cfg.History.MaxLatency = 5 * time.Second

	cfg.Fetch.Timeout = 30 * time.Second
	cfg.Fetch.CacheDir = filepath.Join(".cache", "candidates")
	cfg.Fetch.CacheTTL = time.Hour

	cfg.Server.Address = "127.0.0.1"
	cfg.Server.Port = "8080"
	cfg.Server.Schedule = "0 */6 * * *"

	cfg.Log.Level = "info"
	cfg.Log.Format = "json"

	return cfg
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.normalize()

	return cfg, nil
}

// normalize trims target tags and sources so they compare equal to the
// tags parsed from the catalog.
func (c *Config) normalize() {
	for i := range c.Targets {
		c.Targets[i].Tag = strings.TrimSpace(c.Targets[i].Tag)
		for j := range c.Targets[i].Sources {
			c.Targets[i].Sources[j] = strings.TrimSpace(c.Targets[i].Sources[j])
		}
	}
}

// Load loads configuration from path, or from CONFIG_FILE / config.yaml
// when path is empty, and applies environment variable overrides. A missing
// default file is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_FILE")
		explicit = path != ""
	}
	if path == "" {
		path = "config.yaml"
	}

	var cfg *Config
	if _, err := os.Stat(path); err == nil || explicit {
		cfg, err = LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	} else {
		cfg = Default()
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) error {
	p := &envParser{}

	p.parseString("CATALOG_PATH", &cfg.Catalog.Path)

	var tags []string
	p.parseList("TARGET_GROUPS", &tags)
	if len(tags) > 0 {
		cfg.Targets = SelectTargets(cfg.Targets, tags)
	}

	p.parseInt("POOL_WIDTH", &cfg.Pool.Width, 1)
	p.parseInt("PROBE_RETRIES", &cfg.Probe.Retries, 0)
	p.parseDuration("PROBE_CONNECT_TIMEOUT", &cfg.Probe.ConnectTimeout)
	p.parseDuration("PROBE_READ_TIMEOUT", &cfg.Probe.ReadTimeout)
	p.parseList("IMMUNE_HOSTS", &cfg.Probe.ImmuneHosts)
	p.parseString("FFPROBE_PATH", &cfg.Probe.DeepDecode.Command)

	p.parseString("LEDGER_PATH", &cfg.Ledger.Path)
	p.parseString("HISTORY_PATH", &cfg.History.Path)
	p.parseString("CACHE_DIR", &cfg.Fetch.CacheDir)

	p.parseString("HTTP_ADDRESS", &cfg.Server.Address)
	p.parseString("HTTP_PORT", &cfg.Server.Port)
	p.parseString("SYNC_CRON", &cfg.Server.Schedule)
	p.parseBool("SYNC_ON_BOOT", &cfg.Server.RunOnStart)

	p.parseEnum("LOG_LEVEL", &cfg.Log.Level, "debug", "info", "warn", "error")
	p.parseEnum("LOG_FORMAT", &cfg.Log.Format, "json", "text")

	return p.err()
}

// SelectTargets narrows targets to tags, in the order given. Tags that are
// not configured become targets that only re-verify their own entries.
func SelectTargets(targets []TargetConfig, tags []string) []TargetConfig {
	out := make([]TargetConfig, 0, len(tags))
	for _, tag := range tags {
		found := false
		for _, t := range targets {
			if t.Tag == tag {
				out = append(out, t)
				found = true
				break
			}
		}
		if !found {
			out = append(out, TargetConfig{Tag: tag})
		}
	}
	return out
}

// Print outputs the effective configuration to stdout
func (c *Config) Print() {
	fmt.Printf("catalogPath: %v\n", c.Catalog.Path)
	fmt.Printf("targets: %d\n", len(c.Targets))
	for _, t := range c.Targets {
		fmt.Printf("  - %s (sources: %d, includeExisting: %v)\n", t.Tag, len(t.Sources), t.ResubmitsExisting())
	}
	fmt.Printf("poolWidth: %v\n", c.Pool.Width)
	fmt.Printf("probeConnectTimeout: %v\n", c.Probe.ConnectTimeout)
	fmt.Printf("probeReadTimeout: %v\n", c.Probe.ReadTimeout)
	fmt.Printf("probeRetries: %v\n", c.Probe.Retries)
	fmt.Printf("immuneHosts: %v\n", strings.Join(c.Probe.ImmuneHosts, ","))
	fmt.Printf("deepDecode: %v (%s, mode %s)\n", c.Probe.Stages.DeepDecode, c.Probe.DeepDecode.Command, c.Probe.DeepDecode.Mode)
	fmt.Printf("mergeOrder: %v\n", c.Merge.Order)
	fmt.Printf("ledgerPath: %v\n", c.Ledger.Path)
	fmt.Printf("historyPath: %v\n", c.History.Path)
	fmt.Printf("schedule: %v\n", c.Server.Schedule)
	fmt.Printf("logLevel: %v\n", c.Log.Level)
}
