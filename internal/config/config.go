// Package config handles layered YAML configuration with environment overrides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smileynet/remoteimage/internal/logging"
)

// Config holds all remoteimage configuration.
type Config struct {
	Network  Network  `yaml:"network"`
	View     View     `yaml:"view"`
	Prefetch Prefetch `yaml:"prefetch"`
	Log      Log      `yaml:"log"`
	Metrics  Metrics  `yaml:"metrics"`
}

// Network holds settings handed to the HTTP collaborator.
type Network struct {
	Timeout   time.Duration `yaml:"timeout"`
	MaxBytes  int64         `yaml:"max_bytes"`  // Largest response body accepted
	MaxPixels int64         `yaml:"max_pixels"` // Largest decoded width × height accepted
}

// View holds terminal rendering settings.
type View struct {
	Width   int    `yaml:"width"`   // Image width in terminal cells
	Spinner string `yaml:"spinner"` // Placeholder spinner name
}

// Prefetch holds bulk loading settings.
type Prefetch struct {
	Workers int `yaml:"workers"`
}

// Log holds logger settings.
type Log struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // Empty discards logs while the TUI owns the terminal
}

// Metrics holds the optional Prometheus endpoint.
type Metrics struct {
	Addr string `yaml:"addr"` // e.g. ":9090"; empty disables
}

// Spinners lists the accepted view.spinner names.
var Spinners = []string{"dot", "line", "minidot", "jump", "pulse", "points", "globe", "moon", "meter", "ellipsis"}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Network: Network{
			Timeout:   30 * time.Second,
			MaxBytes:  32 << 20,
			MaxPixels: 64 << 20,
		},
		View: View{
			Width:   60,
			Spinner: "dot",
		},
		Prefetch: Prefetch{
			Workers: 4,
		},
		Log: Log{
			Level: "info",
		},
	}
}

// Load reads a single YAML config file at path and returns a Config.
// For merging multiple config sources, use LoadLayered instead.
// If the file does not exist, defaults are returned without error.
// If the file contains invalid YAML or unknown fields, an error is returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return &cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// Comment-only YAML files produce EOF with no decoded content.
		if errors.Is(err, io.EOF) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadLayered loads config from multiple paths with increasing priority.
// Later paths override earlier ones. Missing files are skipped.
func LoadLayered(paths ...string) (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range paths {
		layer, err := loadLayer(path)
		if err != nil {
			return nil, err
		}
		if layer == nil {
			continue
		}
		cfg.merge(layer)
	}

	return &cfg, nil
}

// Validate checks that config values are usable.
func (c *Config) Validate() error {
	if c.Network.Timeout <= 0 {
		return fmt.Errorf("config: network.timeout must be positive, got %v", c.Network.Timeout)
	}
	if c.Network.MaxBytes <= 0 {
		return fmt.Errorf("config: network.max_bytes must be positive, got %d", c.Network.MaxBytes)
	}
	if c.Network.MaxPixels <= 0 {
		return fmt.Errorf("config: network.max_pixels must be positive, got %d", c.Network.MaxPixels)
	}
	if c.View.Width < 2 {
		return fmt.Errorf("config: view.width must be at least 2, got %d", c.View.Width)
	}
	if !validSpinner(c.View.Spinner) {
		return fmt.Errorf("config: view.spinner %q is not one of %v", c.View.Spinner, Spinners)
	}
	if c.Prefetch.Workers < 1 {
		return fmt.Errorf("config: prefetch.workers must be at least 1, got %d", c.Prefetch.Workers)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("config: log.level: %w", err)
	}
	return nil
}

func validSpinner(name string) bool {
	for _, s := range Spinners {
		if s == name {
			return true
		}
	}
	return false
}

// ApplyEnv applies environment variable overrides to the config.
// Supported variables: REMOTEIMAGE_TIMEOUT, REMOTEIMAGE_MAX_BYTES, REMOTEIMAGE_MAX_PIXELS, REMOTEIMAGE_WORKERS,
// REMOTEIMAGE_LOG_LEVEL, REMOTEIMAGE_LOG_FILE, REMOTEIMAGE_METRICS_ADDR.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("REMOTEIMAGE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: invalid REMOTEIMAGE_TIMEOUT %q: %w", v, err)
		}
		c.Network.Timeout = d
	}
	if v := os.Getenv("REMOTEIMAGE_MAX_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid REMOTEIMAGE_MAX_BYTES %q: %w", v, err)
		}
		c.Network.MaxBytes = n
	}
	if v := os.Getenv("REMOTEIMAGE_MAX_PIXELS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("config: invalid REMOTEIMAGE_MAX_PIXELS %q: %w", v, err)
		}
		c.Network.MaxPixels = n
	}
	if v := os.Getenv("REMOTEIMAGE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: invalid REMOTEIMAGE_WORKERS %q: %w", v, err)
		}
		c.Prefetch.Workers = n
	}
	if v := os.Getenv("REMOTEIMAGE_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("REMOTEIMAGE_LOG_FILE"); v != "" {
		c.Log.File = v
	}
	if v := os.Getenv("REMOTEIMAGE_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	return nil
}

// rawConfig mirrors Config but uses pointers to distinguish set vs unset fields.
type rawConfig struct {
	Network  *rawNetwork  `yaml:"network"`
	View     *rawView     `yaml:"view"`
	Prefetch *rawPrefetch `yaml:"prefetch"`
	Log      *rawLog      `yaml:"log"`
	Metrics  *rawMetrics  `yaml:"metrics"`
}

type rawNetwork struct {
	Timeout   *time.Duration `yaml:"timeout"`
	MaxBytes  *int64         `yaml:"max_bytes"`
	MaxPixels *int64         `yaml:"max_pixels"`
}

type rawView struct {
	Width   *int    `yaml:"width"`
	Spinner *string `yaml:"spinner"`
}

type rawPrefetch struct {
	Workers *int `yaml:"workers"`
}

type rawLog struct {
	Level *string `yaml:"level"`
	File  *string `yaml:"file"`
}

type rawMetrics struct {
	Addr *string `yaml:"addr"`
}

// loadLayer reads a single config file into a rawConfig for selective merging.
// Returns nil if the file does not exist. Rejects unknown fields.
func loadLayer(path string) (*rawConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if len(data) == 0 {
		return nil, nil
	}

	var raw rawConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return &raw, nil
}

// merge applies non-nil fields from a rawConfig layer onto this Config.
func (c *Config) merge(layer *rawConfig) {
	if layer.Network != nil {
		if layer.Network.Timeout != nil {
			c.Network.Timeout = *layer.Network.Timeout
		}
		if layer.Network.MaxBytes != nil {
			c.Network.MaxBytes = *layer.Network.MaxBytes
		}
		if layer.Network.MaxPixels != nil {
			c.Network.MaxPixels = *layer.Network.MaxPixels
		}
	}
	if layer.View != nil {
		if layer.View.Width != nil {
			c.View.Width = *layer.View.Width
		}
		if layer.View.Spinner != nil {
			c.View.Spinner = *layer.View.Spinner
		}
	}
	if layer.Prefetch != nil && layer.Prefetch.Workers != nil {
		c.Prefetch.Workers = *layer.Prefetch.Workers
	}
	if layer.Log != nil {
		if layer.Log.Level != nil {
			c.Log.Level = *layer.Log.Level
		}
		if layer.Log.File != nil {
			c.Log.File = *layer.Log.File
		}
	}
	if layer.Metrics != nil && layer.Metrics.Addr != nil {
		c.Metrics.Addr = *layer.Metrics.Addr
	}
}
