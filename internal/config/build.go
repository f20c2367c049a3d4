// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/faiface/beep"
	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/filter"
	"github.com/gogpu/camfx/gpu"
	"github.com/gogpu/gg"
)

// ErrNoAudio is returned by Build when a volume filter is configured
// without an audio session.
var ErrNoAudio = errors.New("config: volume filter requires an audio session")

// Deps are the collaborators the chain is built against.
type Deps struct {
	// Audio feeds volume meters. Required when a volume filter is configured.
	Audio beep.Streamer
	Rate  beep.SampleRate

	// Detector serves face filters. A nil detector makes them fail every tick.
	Detector filter.Detector

	// Backend renders GPU filters.
	Backend gpu.Backend
}

// Chain is the result of Build. Close releases the filters the compositor
// does not own; GPU filters are released by the compositor itself.
type Chain struct {
	Names   []string
	closers []io.Closer
}

// Close closes every non-GPU filter holding resources.
func (ch *Chain) Close() error {
	var errs []error
	for _, c := range ch.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	ch.closers = nil
	return errors.Join(errs...)
}

// presets maps colormatrix preset names to constructors.
var presets = map[string]func(FilterConfig) (*filter.ColorMatrix, error){
	"identity":       func(FilterConfig) (*filter.ColorMatrix, error) { return filter.Identity(), nil },
	"terminator-red": func(FilterConfig) (*filter.ColorMatrix, error) { return filter.TerminatorRed(), nil },
	"grayscale":      func(FilterConfig) (*filter.ColorMatrix, error) { return filter.Grayscale(), nil },
	"sepia":          func(FilterConfig) (*filter.ColorMatrix, error) { return filter.Sepia(), nil },
	"invert":         func(FilterConfig) (*filter.ColorMatrix, error) { return filter.Invert(), nil },
	"brightness": func(f FilterConfig) (*filter.ColorMatrix, error) {
		return filter.Brightness(float32(amount(f, 1))), nil
	},
	"contrast": func(f FilterConfig) (*filter.ColorMatrix, error) {
		return filter.Contrast(float32(amount(f, 1))), nil
	},
	"saturation": func(f FilterConfig) (*filter.ColorMatrix, error) {
		return filter.Saturation(float32(amount(f, 1))), nil
	},
	"hue-rotate": func(f FilterConfig) (*filter.ColorMatrix, error) {
		return filter.HueRotate(f.Amount), nil
	},
	"offset": func(f FilterConfig) (*filter.ColorMatrix, error) {
		if len(f.Offset) != 3 {
			return nil, fmt.Errorf("offset needs 3 values, got %d", len(f.Offset))
		}
		return filter.Offset(float32(f.Offset[0]), float32(f.Offset[1]), float32(f.Offset[2])), nil
	},
	"tint": func(f FilterConfig) (*filter.ColorMatrix, error) {
		c, err := parseHex(f.Color)
		if err != nil {
			return nil, err
		}
		return filter.Tint(c), nil
	},
}

func amount(f FilterConfig, def float64) float64 {
	if f.Amount == 0 {
		return def
	}
	return f.Amount
}

// parseHex parses "#rrggbb" or "#rrggbbaa".
func parseHex(s string) (gg.RGBA, error) {
	h := strings.TrimPrefix(s, "#")
	if len(h) != 6 && len(h) != 8 {
		return gg.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if len(h) == 6 {
		h += "ff"
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return gg.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return gg.RGBA{
		R: float64(v>>24&0xff) / 255,
		G: float64(v>>16&0xff) / 255,
		B: float64(v>>8&0xff) / 255,
		A: float64(v&0xff) / 255,
	}, nil
}

// Build registers the configured filters on c in order. Volume meters are
// started on ctx. On error the filters already registered stay in the chain
// and the returned Chain still releases them.
func (cfg *Config) Build(ctx context.Context, c *camfx.Compositor, deps Deps) (*Chain, error) {
	ch := &Chain{}
	for i, fc := range cfg.Filters {
		name, err := ch.add(ctx, c, fc, deps)
		if err != nil {
			return ch, fmt.Errorf("config: filters[%d] (%s): %w", i, fc.Type, err)
		}
		ch.Names = append(ch.Names, name)
		camfx.Logger().Debug("config: filter built", "index", i, "filter", name)
	}
	return ch, nil
}

func (ch *Chain) add(ctx context.Context, c *camfx.Compositor, fc FilterConfig, deps Deps) (string, error) {
	switch fc.Type {
	case FilterPassthrough:
		f := filter.NewPassthrough()
		c.AddFilter(f)
		return f.Name(), nil

	case FilterColorMatrix:
		mk, ok := presets[fc.Preset]
		if !ok {
			return "", fmt.Errorf("unknown preset %q", fc.Preset)
		}
		f, err := mk(fc)
		if err != nil {
			return "", err
		}
		c.AddFilter(f)
		return f.Name(), nil

	case FilterNoise:
		var opts []filter.NoiseOption
		if fc.Frequency != 0 {
			opts = append(opts, filter.WithFrequency(fc.Frequency))
		}
		if fc.Alpha != 0 {
			opts = append(opts, filter.WithAlpha(fc.Alpha))
		}
		if fc.Seed != 0 {
			opts = append(opts, filter.WithSeed(fc.Seed))
		}
		f := filter.NewNoise(opts...)
		c.AddFilter(f)
		return f.Name(), nil

	case FilterVolume:
		if deps.Audio == nil {
			return "", ErrNoAudio
		}
		opts := []filter.MeterOption{filter.WithPacing(true), filter.WithBar(fc.Width, fc.Height)}
		if fc.X != 0 || fc.Y != 0 {
			opts = append(opts, filter.WithPosition(fc.X, fc.Y))
		}
		f := filter.NewVolumeMeter(deps.Audio, deps.Rate, opts...)
		f.Start(ctx)
		ch.closers = append(ch.closers, f)
		c.AddFilter(f)
		return f.Name(), nil

	case FilterFace:
		var opts []filter.FaceOption
		if fc.Delay != "" {
			d, err := time.ParseDuration(fc.Delay)
			if err != nil {
				return "", err
			}
			opts = append(opts, filter.WithDelay(d))
		}
		if fc.ClearTarget {
			opts = append(opts, filter.WithClearTarget(true))
		}
		if fc.Label != "" || fc.FontSize != 0 {
			label := fc.Label
			if label == "" {
				label = filter.DefaultFaceLabel
			}
			opts = append(opts, filter.WithLabel(label, fc.FontSize))
		}
		if fc.Color != "" {
			stroke, err := parseHex(fc.Color)
			if err != nil {
				return "", err
			}
			opts = append(opts, filter.WithStroke(stroke))
		}
		f := filter.NewFace(deps.Detector, opts...)
		ch.closers = append(ch.closers, f)
		c.AddFilter(f)
		return f.Name(), nil

	case FilterDistortion:
		var opts []gpu.BridgeOption
		if fc.Filtering == "nearest" {
			opts = append(opts, gpu.WithFiltering(gpu.FilterNearest))
		}
		f := gpu.NewDistortion(deps.Backend, opts...)
		if err := c.AddFilter3D(f); err != nil {
			return "", err
		}
		return f.Name(), nil
	}
	return "", fmt.Errorf("unknown filter type %q", fc.Type)
}
