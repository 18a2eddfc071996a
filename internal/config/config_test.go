package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vango-dev/livehooks/internal/errors"
)

func TestNew(t *testing.T) {
	cfg := New()

	if cfg.Server.Port != DefaultPort {
		t.Errorf("Server.Port = %d, want %d", cfg.Server.Port, DefaultPort)
	}
	if cfg.Client.Path != DefaultLivePath {
		t.Errorf("Client.Path = %q, want %q", cfg.Client.Path, DefaultLivePath)
	}
	if cfg.LongPollFallback() != 2500*time.Millisecond {
		t.Errorf("LongPollFallback = %v, want 2.5s", cfg.LongPollFallback())
	}
	if cfg.FlashDelay() != 5*time.Second || cfg.FlashResumeDelay() != 3*time.Second {
		t.Errorf("flash delays = %v/%v, want 5s/3s", cfg.FlashDelay(), cfg.FlashResumeDelay())
	}
	if cfg.SortableAnimation() != 150*time.Millisecond {
		t.Errorf("SortableAnimation = %v, want 150ms", cfg.SortableAnimation())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadMissingUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Address() != "localhost:4000" {
		t.Errorf("Address = %q, want localhost:4000", cfg.Address())
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), ConfigFileName))
	if !errors.HasCode(err, "E120") {
		t.Errorf("error = %v, want E120", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	yml := `server:
  port: 8080
  items:
    - {id: x, label: X}
client:
  execPolicy: abort
flash:
  delay: 2s
log:
  level: debug
  format: json
`
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte(yml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Server.Host != DefaultHost {
		t.Errorf("Server.Host = %q, want default", cfg.Server.Host)
	}
	if len(cfg.Server.Items) != 1 || cfg.Server.Items[0].ID != "x" {
		t.Errorf("Server.Items = %v", cfg.Server.Items)
	}
	if cfg.Client.ExecPolicy != "abort" {
		t.Errorf("ExecPolicy = %q, want abort", cfg.Client.ExecPolicy)
	}
	if cfg.FlashDelay() != 2*time.Second {
		t.Errorf("FlashDelay = %v, want 2s", cfg.FlashDelay())
	}
	if cfg.FlashResumeDelay() != 3*time.Second {
		t.Errorf("FlashResumeDelay = %v, want default 3s", cfg.FlashResumeDelay())
	}
	if cfg.Path() != filepath.Join(dir, ConfigFileName) {
		t.Errorf("Path = %q", cfg.Path())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		code   string
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }, "E120"},
		{"path", func(c *Config) { c.Client.Path = "live" }, "E121"},
		{"policy", func(c *Config) { c.Client.ExecPolicy = "retry" }, "E120"},
		{"bad duration", func(c *Config) { c.Flash.Delay = "soon" }, "E122"},
		{"negative duration", func(c *Config) { c.Client.LongPollFallback = "-1s" }, "E122"},
		{"zero duration", func(c *Config) { c.Sortable.Animation = "0s" }, "E122"},
		{"repeated item", func(c *Config) { c.Server.Items = append(c.Server.Items, c.Server.Items[0]) }, "E120"},
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "E120"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := New()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.HasCode(err, tt.code) {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("server: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); !errors.HasCode(err, "E120") {
		t.Errorf("Load error = %v, want E120", err)
	}
}
