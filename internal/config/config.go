package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/OpenTraceLab/OpenTraceLogic/internal/observability"
	"gopkg.in/yaml.v3"
)

// ErrInvalid reports a configuration that fails validation.
var ErrInvalid = errors.New("config: invalid")

// Config is one analysis session: where the capture comes from, which
// decoders run over it, and how the process logs and serves.
type Config struct {
	Capture  CaptureConfig   `yaml:"capture" toml:"capture"`
	Decoders []DecoderConfig `yaml:"decoders" toml:"decoders"`
	Log      LogConfig       `yaml:"log" toml:"log"`
	Server   ServerConfig    `yaml:"server" toml:"server"`
}

// CaptureConfig describes a raw sample dump: unit_size bytes per sample,
// channel n at bit n of the unit.
type CaptureConfig struct {
	File       string `yaml:"file" toml:"file"`
	UnitSize   int    `yaml:"unit_size" toml:"unit_size"`
	SampleRate uint64 `yaml:"sample_rate" toml:"sample_rate"`
	// Probes lists the enabled channels; empty enables every bit of the unit.
	Probes []int `yaml:"probes" toml:"probes"`
}

// DecoderConfig is either a DSL spec string or the structured form.
type DecoderConfig struct {
	Spec     string         `yaml:"spec,omitempty" toml:"spec,omitempty"`
	Protocol string         `yaml:"protocol,omitempty" toml:"protocol,omitempty"`
	Channels map[string]int `yaml:"channels,omitempty" toml:"channels,omitempty"`
	Options  map[string]any `yaml:"options,omitempty" toml:"options,omitempty"`
}

type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file, applies defaults and
// validates. A relative capture file is resolved against the file's
// directory.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return Config{}, fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	if cfg.Capture.File != "" && !filepath.IsAbs(cfg.Capture.File) {
		cfg.Capture.File = filepath.Join(filepath.Dir(path), cfg.Capture.File)
	}
	return cfg, nil
}

// Parse decodes data in the given format ("yaml" or "toml"), applies
// defaults and validates.
func Parse(data []byte, format string) (Config, error) {
	var cfg Config
	switch format {
	case "yaml", "":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	case "toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("%w: unknown format %q", ErrInvalid, format)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func formatOf(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	default:
		return "yaml"
	}
}

func (c *Config) applyDefaults() {
	if c.Capture.UnitSize == 0 {
		c.Capture.UnitSize = 1
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = observability.FormatConsole
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate checks field ranges and that every decoder entry is well formed.
// Decoder entries are fully resolved.
func (c Config) Validate() error {
	if c.Capture.UnitSize < 1 {
		return fmt.Errorf("%w: capture unit_size %d", ErrInvalid, c.Capture.UnitSize)
	}
	width := c.Capture.UnitSize * 8
	seen := make(map[int]bool, len(c.Capture.Probes))
	for _, ch := range c.Capture.Probes {
		if ch < 0 || ch >= width {
			return fmt.Errorf("%w: probe %d outside %d-bit unit", ErrInvalid, ch, width)
		}
		if seen[ch] {
			return fmt.Errorf("%w: probe %d listed twice", ErrInvalid, ch)
		}
		seen[ch] = true
	}
	switch strings.ToLower(c.Log.Format) {
	case observability.FormatConsole, observability.FormatJSON:
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalid, c.Log.Format)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("%w: server addr is required", ErrInvalid)
	}
	for i, d := range c.Decoders {
		r, err := d.Resolve()
		if err == nil {
			_, err = r.Protocol.ValidateChannels(r.Channels)
		}
		if err != nil {
			return fmt.Errorf("%w: decoder[%d]: %w", ErrInvalid, i, err)
		}
	}
	return nil
}
