package config

import (
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefaultProbeConfig(t *testing.T) {
	cfg := DefaultProbeConfig()

	if cfg.Retries != 2 {
		t.Errorf("Expected Retries=2, got %d", cfg.Retries)
	}
	if cfg.BackoffInitial != 500*time.Millisecond {
		t.Errorf("Expected BackoffInitial=500ms, got %v", cfg.BackoffInitial)
	}
	if cfg.MaxPlaylistDepth != 3 {
		t.Errorf("Expected MaxPlaylistDepth=3, got %d", cfg.MaxPlaylistDepth)
	}
	if !cfg.Stages.Head || !cfg.Stages.Playlist || !cfg.Stages.Segment || !cfg.Stages.DeepDecode {
		t.Errorf("Expected all stages enabled, got %+v", cfg.Stages)
	}
	want := []time.Duration{3 * time.Second, 10 * time.Second, 15 * time.Second}
	if len(cfg.DeepDecode.Budgets) != len(want) {
		t.Fatalf("Expected budgets %v, got %v", want, cfg.DeepDecode.Budgets)
	}
	for i := range want {
		if cfg.DeepDecode.Budgets[i] != want[i] {
			t.Errorf("Budget %d = %v, want %v", i, cfg.DeepDecode.Budgets[i], want[i])
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default probe config should be valid: %v", err)
	}
}

func TestProbeConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ProbeConfig)
		wantErr string
	}{
		{"negative retries", func(c *ProbeConfig) { c.Retries = -1 }, "retries"},
		{"zero connect timeout", func(c *ProbeConfig) { c.ConnectTimeout = 0 }, "connect_timeout"},
		{"zero segment window", func(c *ProbeConfig) { c.SegmentWindow = 0 }, "segment_window"},
		{"no budgets", func(c *ProbeConfig) { c.DeepDecode.Budgets = nil }, "budgets"},
		{"negative budget", func(c *ProbeConfig) { c.DeepDecode.Budgets = []time.Duration{-time.Second} }, "budgets[0]"},
		{"missing command", func(c *ProbeConfig) { c.DeepDecode.Command = "" }, "command"},
		{"negative rps", func(c *ProbeConfig) { c.PerHostRPS = -1 }, "per_host_rps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultProbeConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}

	t.Run("deep decode disabled skips decoder checks", func(t *testing.T) {
		cfg := DefaultProbeConfig()
		cfg.Stages.DeepDecode = false
		cfg.DeepDecode.Command = ""
		cfg.DeepDecode.Budgets = nil
		if err := cfg.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestParseByteSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"1024", 1024, false},
		{"8KB", 8 * 1024, false},
		{"2MB", 2 * 1024 * 1024, false},
		{"1.5GB", int(1.5 * 1024 * 1024 * 1024), false},
		{"100B", 100, false},
		{" 4 kb ", 4 * 1024, false},
		{"-1MB", 0, true},
		{"lots", 0, true},
		{"xMB", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseByteSize(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseByteSize(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseByteSize(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestByteSize_UnmarshalYAML(t *testing.T) {
	var v struct {
		Size ByteSize `yaml:"size"`
	}
	if err := yaml.Unmarshal([]byte("size: 2MB\n"), &v); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if v.Size != 2*1024*1024 {
		t.Errorf("Size = %d, want 2MB", v.Size)
	}

	if err := yaml.Unmarshal([]byte("size: huge\n"), &v); err == nil {
		t.Error("expected error for invalid size")
	}
}

func TestEnvParser(t *testing.T) {
	t.Setenv("T_DURATION", "90s")
	t.Setenv("T_INT", "7")
	t.Setenv("T_LIST", " a, ,b ")
	t.Setenv("T_BOOL", "off")
	t.Setenv("T_ENUM", "Text")

	p := &envParser{}
	var (
		d    time.Duration
		n    int
		list []string
		b    = true
		e    string
	)
	p.parseDuration("T_DURATION", &d)
	p.parseInt("T_INT", &n, 1)
	p.parseList("T_LIST", &list)
	p.parseBool("T_BOOL", &b)
	p.parseEnum("T_ENUM", &e, "json", "text")

	if err := p.err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 90*time.Second || n != 7 || b || e != "text" {
		t.Errorf("got d=%v n=%d b=%v e=%q", d, n, b, e)
	}
	if len(list) != 2 || list[0] != "a" || list[1] != "b" {
		t.Errorf("list = %v", list)
	}

	t.Setenv("T_INT", "0")
	t.Setenv("T_ENUM", "xml")
	p = &envParser{}
	p.parseInt("T_INT", &n, 1)
	p.parseEnum("T_ENUM", &e, "json", "text")
	if err := p.err(); err == nil || !strings.Contains(err.Error(), "T_INT") || !strings.Contains(err.Error(), "T_ENUM") {
		t.Errorf("expected both errors, got %v", err)
	}
}
