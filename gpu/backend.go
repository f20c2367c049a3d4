// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"context"
	"image"

	"github.com/gogpu/gputypes"
)

// Backend renders a scene into a target. Implementations need not be safe
// for concurrent use; the Bridge serializes every call.
type Backend interface {
	// Name identifies the backend in logs.
	Name() string

	// Init prepares the backend for rendering into target.
	Init(target *Target) error

	// Resize is called after the target dimensions change.
	Resize(target *Target) error

	// Render draws scene as seen by camera into target.
	Render(ctx context.Context, scene *Scene, camera *Camera, target *Target) error

	// Close releases backend resources.
	Close() error
}

// Target is a render target with CPU-visible pixels, 4 bytes per pixel.
type Target struct {
	Width  int
	Height int
	Format gputypes.TextureFormat
	Pix    []uint8
}

// NewTarget allocates a target. An undefined format defaults to RGBA8.
func NewTarget(width, height int, format gputypes.TextureFormat) *Target {
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	return &Target{
		Width:  width,
		Height: height,
		Format: format,
		Pix:    make([]uint8, width*height*4),
	}
}

// Resize reallocates the pixels. Contents are discarded.
func (t *Target) Resize(width, height int) {
	t.Width, t.Height = width, height
	t.Pix = make([]uint8, width*height*4)
}

func (t *Target) bgra() bool {
	return t.Format == gputypes.TextureFormatBGRA8Unorm
}

// Set writes an RGBA color with components in [0, 1] at pixel (x, y),
// honoring the target's channel order.
func (t *Target) Set(x, y int, c [4]float64) {
	i := (y*t.Width + x) * 4
	r, b := to8(c[0]), to8(c[2])
	if t.bgra() {
		r, b = b, r
	}
	t.Pix[i] = r
	t.Pix[i+1] = to8(c[1])
	t.Pix[i+2] = b
	t.Pix[i+3] = to8(c[3])
}

// RGBA reads the target back into a new image.
func (t *Target) RGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, t.Width, t.Height))
	copy(img.Pix, t.Pix)
	if t.bgra() {
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return img
}

func to8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	default:
		return uint8(v*255 + 0.5)
	}
}
