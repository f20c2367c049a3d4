// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package config loads the camfx command configuration from YAML or TOML
// and turns it into a filter chain.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gogpu/camfx/gpu"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Source kinds.
const (
	SourcePattern = "pattern"
	SourceStill   = "still"
	SourceDir     = "dir"
)

// Filter types.
const (
	FilterPassthrough = "passthrough"
	FilterColorMatrix = "colormatrix"
	FilterNoise       = "noise"
	FilterVolume      = "volume"
	FilterFace        = "face"
	FilterDistortion  = "distortion"
)

// ErrUnsupportedFormat is returned by Load for files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Config is the complete command configuration.
type Config struct {
	Canvas  CanvasConfig   `yaml:"canvas" toml:"canvas"`
	Source  SourceConfig   `yaml:"source" toml:"source"`
	Audio   AudioConfig    `yaml:"audio" toml:"audio"`
	Output  OutputConfig   `yaml:"output" toml:"output"`
	GPU     GPUConfig      `yaml:"gpu" toml:"gpu"`
	Filters []FilterConfig `yaml:"filters" toml:"filters"`
}

// CanvasConfig sizes the compositor buffers and paces the loop.
type CanvasConfig struct {
	Width       int     `yaml:"width" toml:"width"` // fallback when the source reports no size
	Height      int     `yaml:"height" toml:"height"`
	RefreshRate float64 `yaml:"refresh_rate" toml:"refresh_rate"` // Hz
	TickTimeout string  `yaml:"tick_timeout" toml:"tick_timeout"` // e.g. "500ms"; empty means unbounded
}

// SourceConfig selects where frames come from.
type SourceConfig struct {
	Kind string `yaml:"kind" toml:"kind"` // pattern, still, dir
	Path string `yaml:"path" toml:"path"`
}

// AudioConfig names the WAV file feeding the volume meter.
type AudioConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// OutputConfig controls committed-frame export.
type OutputConfig struct {
	Dir     string `yaml:"dir" toml:"dir"`
	Format  string `yaml:"format" toml:"format"`   // png or jpeg
	Quality int    `yaml:"quality" toml:"quality"` // jpeg only
	Every   int    `yaml:"every" toml:"every"`     // write every Nth commit
}

// GPUConfig selects the rendering backend of GPU filters by registered name.
type GPUConfig struct {
	Backend string `yaml:"backend" toml:"backend"`
}

// FilterConfig is one chain entry. Which fields apply depends on Type.
type FilterConfig struct {
	Type string `yaml:"type" toml:"type"`

	// colormatrix
	Preset string     `yaml:"preset,omitempty" toml:"preset,omitempty"`
	Amount float64    `yaml:"amount,omitempty" toml:"amount,omitempty"`
	Offset []float64 `yaml:"offset,omitempty" toml:"offset,omitempty"` // r, g, b in 0..255
	Color  string     `yaml:"color,omitempty" toml:"color,omitempty"`

	// noise
	Frequency float64 `yaml:"frequency,omitempty" toml:"frequency,omitempty"`
	Alpha     float64 `yaml:"alpha,omitempty" toml:"alpha,omitempty"`
	Seed      uint64  `yaml:"seed,omitempty" toml:"seed,omitempty"`

	// volume
	X      float64 `yaml:"x,omitempty" toml:"x,omitempty"`
	Y      float64 `yaml:"y,omitempty" toml:"y,omitempty"`
	Width  int     `yaml:"width,omitempty" toml:"width,omitempty"`
	Height int     `yaml:"height,omitempty" toml:"height,omitempty"`

	// face
	Delay       string  `yaml:"delay,omitempty" toml:"delay,omitempty"`
	ClearTarget bool    `yaml:"clear_target,omitempty" toml:"clear_target,omitempty"`
	Label       string  `yaml:"label,omitempty" toml:"label,omitempty"`
	FontSize    float64 `yaml:"font_size,omitempty" toml:"font_size,omitempty"`

	// distortion
	Filtering string `yaml:"filtering,omitempty" toml:"filtering,omitempty"` // linear or nearest
}

// Default returns the configuration used when no file is given: the test
// pattern through the terminator-red tint, written as PNG.
func Default() *Config {
	cfg := &Config{
		Source:  SourceConfig{Kind: SourcePattern},
		Filters: []FilterConfig{{Type: FilterPassthrough}, {Type: FilterColorMatrix, Preset: "terminator-red"}},
	}
	cfg.applyDefaults()
	return cfg
}

// Load reads a configuration file. The format follows the extension:
// .yaml and .yml for YAML, .toml for TOML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, filepath.Ext(path))
}

// Parse decodes data in the format named by ext, applies defaults and validates.
func Parse(data []byte, ext string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse yaml: %w", err)
		}
	case "toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse toml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		c.Canvas.Width, c.Canvas.Height = 640, 480
	}
	if c.Canvas.RefreshRate <= 0 {
		c.Canvas.RefreshRate = 60
	}
	if c.Source.Kind == "" {
		c.Source.Kind = SourcePattern
	}
	if c.GPU.Backend == "" {
		c.GPU.Backend = gpu.BackendSoftware
	}
	if c.Output.Format == "" {
		c.Output.Format = "png"
	}
	if c.Output.Quality <= 0 {
		c.Output.Quality = 90
	}
	if c.Output.Every <= 0 {
		c.Output.Every = 1
	}
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Canvas.TickTimeout != "" {
		if _, err := time.ParseDuration(c.Canvas.TickTimeout); err != nil {
			errs = append(errs, fmt.Errorf("canvas.tick_timeout: %w", err))
		}
	}

	switch c.Source.Kind {
	case SourcePattern:
	case SourceStill, SourceDir:
		if c.Source.Path == "" {
			errs = append(errs, fmt.Errorf("source.path is required for kind %q", c.Source.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("source.kind: unknown kind %q", c.Source.Kind))
	}

	if !gpu.IsRegistered(c.GPU.Backend) {
		errs = append(errs, fmt.Errorf("gpu.backend: %q is not registered (available: %v)", c.GPU.Backend, gpu.Available()))
	}

	switch c.Output.Format {
	case "png", "jpeg", "jpg":
	default:
		errs = append(errs, fmt.Errorf("output.format: unknown format %q", c.Output.Format))
	}

	for i, f := range c.Filters {
		if err := f.validate(); err != nil {
			errs = append(errs, fmt.Errorf("filters[%d]: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

func (f FilterConfig) validate() error {
	switch f.Type {
	case FilterPassthrough, FilterNoise, FilterVolume:
		return nil
	case FilterColorMatrix:
		if _, ok := presets[f.Preset]; !ok {
			return fmt.Errorf("colormatrix: unknown preset %q", f.Preset)
		}
		switch f.Preset {
		case "tint":
			if _, err := parseHex(f.Color); err != nil {
				return fmt.Errorf("colormatrix: %w", err)
			}
		case "offset":
			if len(f.Offset) != 3 {
				return fmt.Errorf("colormatrix: offset needs 3 values, got %d", len(f.Offset))
			}
		}
		return nil
	case FilterFace:
		if f.Delay != "" {
			if _, err := time.ParseDuration(f.Delay); err != nil {
				return fmt.Errorf("face.delay: %w", err)
			}
		}
		return nil
	case FilterDistortion:
		switch f.Filtering {
		case "", "linear", "nearest":
			return nil
		}
		return fmt.Errorf("distortion: unknown filtering %q", f.Filtering)
	case "":
		return errors.New("type is required")
	default:
		return fmt.Errorf("unknown filter type %q", f.Type)
	}
}

// TickTimeout returns the parsed canvas tick timeout, zero when unset.
func (c *Config) TickTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Canvas.TickTimeout)
	return d
}

// NeedsAudio reports whether any filter consumes the audio session.
func (c *Config) NeedsAudio() bool {
	for _, f := range c.Filters {
		if f.Type == FilterVolume {
			return true
		}
	}
	return false
}
