package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/livehooks/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "livehooks.yaml"

	// DefaultPort is the default server port.
	DefaultPort = 4000

	// DefaultHost is the default server host.
	DefaultHost = "localhost"

	// DefaultDatabase is the default SQLite file.
	DefaultDatabase = "livehooks.db"

	// DefaultLivePath is where the live socket is mounted.
	DefaultLivePath = "/live"
)

// Config is the complete livehooks.yaml configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Client   ClientConfig   `yaml:"client"`
	Flash    FlashConfig    `yaml:"flash"`
	Sortable SortableConfig `yaml:"sortable"`
	Log      LogConfig      `yaml:"log"`

	configPath string
}

// ServerConfig configures the companion server.
type ServerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`

	// CSRFSecret signs CSRF tokens. A random secret is generated at
	// startup when empty.
	CSRFSecret string `yaml:"csrfSecret"`

	// ExecToken authorizes POST /api/exec. A random token is generated
	// and printed at startup when empty.
	ExecToken string `yaml:"execToken"`

	// Flash is the notice shown on the demo page.
	Flash string `yaml:"flash"`

	// Items seed the reorderable list.
	Items []ItemConfig `yaml:"items"`
}

// ItemConfig is one seeded list item.
type ItemConfig struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// ClientConfig configures the live connection.
type ClientConfig struct {
	Path             string `yaml:"path"`
	LongPollFallback string `yaml:"longPollFallback"`
	ExecPolicy       string `yaml:"execPolicy"`
}

// FlashConfig configures the dismissible notice hook.
type FlashConfig struct {
	Delay       string `yaml:"delay"`
	ResumeDelay string `yaml:"resumeDelay"`
}

// SortableConfig configures the drag-reorder hook.
type SortableConfig struct {
	Animation string `yaml:"animation"`
	DragClass string `yaml:"dragClass"`
	Handle    string `yaml:"handle"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// New returns a configuration with all defaults applied.
func New() *Config {
	return &Config{
		Server: ServerConfig{
			Host:     DefaultHost,
			Port:     DefaultPort,
			Database: DefaultDatabase,
			Flash:    "Welcome back! This notice dismisses itself.",
			Items: []ItemConfig{
				{ID: "a", Label: "Write the proposal"},
				{ID: "b", Label: "Build the thing"},
				{ID: "c", Label: "Ship it"},
			},
		},
		Client: ClientConfig{
			Path:             DefaultLivePath,
			LongPollFallback: "2500ms",
			ExecPolicy:       "isolate",
		},
		Flash: FlashConfig{
			Delay:       "5s",
			ResumeDelay: "3s",
		},
		Sortable: SortableConfig{
			Animation: "150ms",
			DragClass: "drag-item",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads livehooks.yaml from dir. A missing file yields the defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := New()
		cfg.configPath = path
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads and validates the configuration at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E120").
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path)).
				WithSuggestion("Create the file or drop the --config flag to use defaults")
		}
		return nil, errors.New("E120").Wrap(err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E120").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that the file is valid YAML")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills fields the file left empty.
func (c *Config) applyDefaults() {
	d := New()
	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.Database == "" {
		c.Server.Database = d.Server.Database
	}
	if c.Client.Path == "" {
		c.Client.Path = d.Client.Path
	}
	if c.Client.LongPollFallback == "" {
		c.Client.LongPollFallback = d.Client.LongPollFallback
	}
	if c.Client.ExecPolicy == "" {
		c.Client.ExecPolicy = d.Client.ExecPolicy
	}
	if c.Flash.Delay == "" {
		c.Flash.Delay = d.Flash.Delay
	}
	if c.Flash.ResumeDelay == "" {
		c.Flash.ResumeDelay = d.Flash.ResumeDelay
	}
	if c.Sortable.Animation == "" {
		c.Sortable.Animation = d.Sortable.Animation
	}
	if c.Sortable.DragClass == "" {
		c.Sortable.DragClass = d.Sortable.DragClass
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = d.Log.Format
	}
}

// Validate checks ports, paths and durations.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.New("E120").
			WithDetail("Port must be between 0 and 65535")
	}
	if !strings.HasPrefix(c.Client.Path, "/") {
		return errors.New("E121").
			WithDetail(fmt.Sprintf("client.path %q must start with '/'", c.Client.Path))
	}
	switch c.Client.ExecPolicy {
	case "isolate", "abort":
	default:
		return errors.New("E120").
			WithDetail(fmt.Sprintf("client.execPolicy %q must be isolate or abort", c.Client.ExecPolicy))
	}
	for name, v := range map[string]string{
		"client.longPollFallback": c.Client.LongPollFallback,
		"flash.delay":             c.Flash.Delay,
		"flash.resumeDelay":       c.Flash.ResumeDelay,
		"sortable.animation":      c.Sortable.Animation,
	} {
		if _, err := parseDuration(name, v); err != nil {
			return err
		}
	}
	seen := map[string]bool{}
	for _, it := range c.Server.Items {
		if it.ID == "" || seen[it.ID] {
			return errors.New("E120").
				WithDetail(fmt.Sprintf("server.items: id %q is empty or repeated", it.ID))
		}
		seen[it.ID] = true
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

func parseDuration(name, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, errors.New("E122").WithDetail(fmt.Sprintf("%s: %v", name, err))
	}
	if d <= 0 {
		return 0, errors.New("E122").WithDetail(fmt.Sprintf("%s must be positive, got %s", name, v))
	}
	return d, nil
}

// Address returns host:port.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// LongPollFallback returns client.longPollFallback.
func (c *Config) LongPollFallback() time.Duration {
	d, _ := parseDuration("", c.Client.LongPollFallback)
	return d
}

// FlashDelay returns flash.delay.
func (c *Config) FlashDelay() time.Duration {
	d, _ := parseDuration("", c.Flash.Delay)
	return d
}

// FlashResumeDelay returns flash.resumeDelay.
func (c *Config) FlashResumeDelay() time.Duration {
	d, _ := parseDuration("", c.Flash.ResumeDelay)
	return d
}

// SortableAnimation returns sortable.animation.
func (c *Config) SortableAnimation() time.Duration {
	d, _ := parseDuration("", c.Sortable.Animation)
	return d
}

// LogLevel returns the slog level named by log.level.
func (c *Config) LogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, errors.New("E120").WithDetail(fmt.Sprintf("log.level %q: %v", c.Log.Level, err))
	}
	return l, nil
}

// Logger builds the process logger from the log section.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
