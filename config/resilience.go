package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ByteSize is a byte count that also accepts "8KB", "2MB" or "1.5GB" in
// YAML and environment values.
type ByteSize int

// UnmarshalYAML implements yaml.Unmarshaler.
func (b *ByteSize) UnmarshalYAML(node *yaml.Node) error {
	size, err := parseByteSize(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*b = ByteSize(size)
	return nil
}

// StagesConfig switches individual cascade stages on or off.
type StagesConfig struct {
	Head       bool `yaml:"head"`
	Playlist   bool `yaml:"playlist"`
	Segment    bool `yaml:"segment"`
	DeepDecode bool `yaml:"deep_decode"`
}

// DeepDecodeConfig configures the external decoder stage.
type DeepDecodeConfig struct {
	Command string          `yaml:"command"`
	Budgets []time.Duration `yaml:"budgets"`
	Mode    string          `yaml:"mode"` // fallback or always
}

// ProbeConfig centralizes the timeouts, retries and limits of the liveness cascade.
type ProbeConfig struct {
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`

	// Retry settings, applied to transport errors, timeouts, 429 and 5xx only
	Retries        int           `yaml:"retries"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`

	SegmentWindow    ByteSize `yaml:"segment_window"`
	PlaylistMaxBytes ByteSize `yaml:"playlist_max_bytes"`
	MaxPlaylistDepth int      `yaml:"max_playlist_depth"`

	UserAgents  []string `yaml:"user_agents"`
	ImmuneHosts []string `yaml:"immune_hosts"`
	PerHostRPS  float64  `yaml:"per_host_rps"` // 0 disables rate limiting

	Stages     StagesConfig     `yaml:"stages"`
	DeepDecode DeepDecodeConfig `yaml:"deep_decode"`
}

// DefaultProbeConfig returns a ProbeConfig with sensible defaults
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		ConnectTimeout: 6 * time.Second,
		ReadTimeout:    12 * time.Second,

		Retries:        2,
		BackoffInitial: 500 * time.Millisecond,
		BackoffMax:     5 * time.Second,

		SegmentWindow:    8 * 1024,
		PlaylistMaxBytes: 1024 * 1024,
		MaxPlaylistDepth: 3,

		UserAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			"VLC/3.0.20 LibVLC/3.0.20",
		},

		Stages: StagesConfig{Head: true, Playlist: true, Segment: true, DeepDecode: true},
		DeepDecode: DeepDecodeConfig{
			Command: "ffprobe",
			Budgets: []time.Duration{3 * time.Second, 10 * time.Second, 15 * time.Second},
			Mode:    "fallback",
		},
	}
}

// Validate performs validation on the probe configuration
func (c *ProbeConfig) Validate() error {
	var errors []string

	if c.ConnectTimeout <= 0 {
		errors = append(errors, "connect_timeout must be positive")
	}
	if c.ReadTimeout <= 0 {
		errors = append(errors, "read_timeout must be positive")
	}
	if c.Retries < 0 {
		errors = append(errors, "retries must not be negative")
	}
	if c.BackoffInitial <= 0 {
		errors = append(errors, "backoff_initial must be positive")
	}
	if c.BackoffInitial > c.BackoffMax {
		errors = append(errors, "backoff_initial must be <= backoff_max")
	}
	if c.SegmentWindow <= 0 {
		errors = append(errors, "segment_window must be positive")
	}
	if c.PlaylistMaxBytes <= 0 {
		errors = append(errors, "playlist_max_bytes must be positive")
	}
	if c.MaxPlaylistDepth <= 0 {
		errors = append(errors, "max_playlist_depth must be positive")
	}
	if c.PerHostRPS < 0 {
		errors = append(errors, "per_host_rps must not be negative")
	}
	if c.Stages.DeepDecode {
		if c.DeepDecode.Command == "" {
			errors = append(errors, "deep_decode.command is required when the deep_decode stage is enabled")
		}
		if len(c.DeepDecode.Budgets) == 0 {
			errors = append(errors, "deep_decode.budgets must list at least one budget")
		}
		for i, b := range c.DeepDecode.Budgets {
			if b <= 0 {
				errors = append(errors, fmt.Sprintf("deep_decode.budgets[%d] must be positive", i))
			}
		}
	}
	if c.DeepDecode.Mode != "fallback" && c.DeepDecode.Mode != "always" {
		errors = append(errors, "deep_decode.mode must be one of: fallback, always")
	}

	if len(errors) > 0 {
		return fmt.Errorf("invalid probe configuration:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// envParser is a helper for parsing environment variables with validation
type envParser struct {
	errors []string
}

func (p *envParser) parseString(envName string, target *string) {
	if val := os.Getenv(envName); val != "" {
		*target = val
	}
}

// parseDuration parses a duration environment variable, ensuring it's positive
func (p *envParser) parseDuration(envName string, target *time.Duration) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	duration, err := time.ParseDuration(val)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("%s: invalid duration format (use '30s', '1m', etc.)", envName))
		return
	}

	if duration <= 0 {
		p.errors = append(p.errors, fmt.Sprintf("%s must be positive", envName))
		return
	}

	*target = duration
}

// parseInt parses an integer environment variable, ensuring it is at least min
func (p *envParser) parseInt(envName string, target *int, min int) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	intVal, err := strconv.Atoi(val)
	if err != nil {
		p.errors = append(p.errors, fmt.Sprintf("%s: must be a valid integer", envName))
		return
	}

	if intVal < min {
		p.errors = append(p.errors, fmt.Sprintf("%s must be at least %d", envName, min))
		return
	}

	*target = intVal
}

// parseBool accepts true/false/1/0/yes/no
func (p *envParser) parseBool(envName string, target *bool) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	switch strings.ToLower(strings.TrimSpace(val)) {
	case "1", "true", "yes", "on":
		*target = true
	case "0", "false", "no", "off":
		*target = false
	default:
		p.errors = append(p.errors, fmt.Sprintf("%s: must be a boolean", envName))
	}
}

// parseList splits a comma separated environment variable, dropping blanks
func (p *envParser) parseList(envName string, target *[]string) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	var items []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*target = items
}

// parseEnum parses an enum environment variable from a set of valid values
func (p *envParser) parseEnum(envName string, target *string, validValues ...string) {
	val := os.Getenv(envName)
	if val == "" {
		return
	}

	normalized := strings.ToLower(strings.TrimSpace(val))
	for _, v := range validValues {
		if v == normalized {
			*target = normalized
			return
		}
	}
	p.errors = append(p.errors, fmt.Sprintf("%s must be one of: %s", envName, strings.Join(validValues, ", ")))
}

func (p *envParser) err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return fmt.Errorf("invalid environment:\n  - %s", strings.Join(p.errors, "\n  - "))
}

// parseByteSize parses a byte size string (e.g., "2MB", "1024", "1.5GB")
// Supports: bytes (no suffix), KB, MB, GB
func parseByteSize(s string) (int, error) {
	s = strings.TrimSpace(strings.ToUpper(s))

	// Try to parse as plain integer first
	if val, err := strconv.Atoi(s); err == nil {
		return val, nil
	}

	// Parse with suffix - check longer suffixes first to avoid "B" matching "MB"
	suffixes := []struct {
		suffix     string
		multiplier int
	}{
		{"GB", 1024 * 1024 * 1024},
		{"MB", 1024 * 1024},
		{"KB", 1024},
		{"B", 1},
	}

	for _, item := range suffixes {
		if strings.HasSuffix(s, item.suffix) {
			numStr := strings.TrimSpace(strings.TrimSuffix(s, item.suffix))

			if val, err := strconv.Atoi(numStr); err == nil {
				if val < 0 {
					return 0, fmt.Errorf("negative values are not allowed")
				}
				return val * item.multiplier, nil
			}

			if val, err := strconv.ParseFloat(numStr, 64); err == nil {
				if val < 0 {
					return 0, fmt.Errorf("negative values are not allowed")
				}
				return int(val * float64(item.multiplier)), nil
			}

			return 0, fmt.Errorf("invalid numeric value: %s", numStr)
		}
	}

	return 0, fmt.Errorf("invalid byte size format (use '2MB', '1024', '1.5GB', etc.)")
}
