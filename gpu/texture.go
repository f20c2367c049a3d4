// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"
)

// Filtering selects how a texture is sampled between texel centers.
type Filtering uint8

const (
	// FilterLinear blends the four nearest texels (bilinear).
	FilterLinear Filtering = iota

	// FilterNearest picks the texel containing the sample point.
	FilterNearest
)

// String returns the filtering mode name.
func (f Filtering) String() string {
	switch f {
	case FilterLinear:
		return "linear"
	case FilterNearest:
		return "nearest"
	default:
		return "unknown"
	}
}

// Texture is an 8-bit RGBA image prepared for sampling.
// Coordinates outside [0, 1] clamp to the edge texels.
type Texture struct {
	Width  int
	Height int
	Pix    []uint8
	Filter Filtering
}

// NewTexture creates a transparent texture.
func NewTexture(width, height int) *Texture {
	return &Texture{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// Format reports the texel format of the texture.
func (t *Texture) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Upload copies the pixmap into the texture, reallocating on size change.
func (t *Texture) Upload(p *gg.Pixmap) {
	w, h := p.Width(), p.Height()
	if w != t.Width || h != t.Height {
		t.Width, t.Height = w, h
		t.Pix = make([]uint8, w*h*4)
	}
	copy(t.Pix, p.Data())
}

// Sample returns the color at normalized coordinates (u, v) as RGBA
// components in [0, 1]. v grows downwards.
func (t *Texture) Sample(u, v float64) [4]float64 {
	if t.Width == 0 || t.Height == 0 {
		return [4]float64{}
	}
	if t.Filter == FilterNearest {
		x := clampInt(int(math.Floor(u*float64(t.Width))), t.Width)
		y := clampInt(int(math.Floor(v*float64(t.Height))), t.Height)
		return t.texel(x, y)
	}

	x := u*float64(t.Width) - 0.5
	y := v*float64(t.Height) - 0.5
	x0f, y0f := math.Floor(x), math.Floor(y)
	fx, fy := x-x0f, y-y0f
	x0, y0 := int(x0f), int(y0f)

	c00 := t.texel(clampInt(x0, t.Width), clampInt(y0, t.Height))
	c10 := t.texel(clampInt(x0+1, t.Width), clampInt(y0, t.Height))
	c01 := t.texel(clampInt(x0, t.Width), clampInt(y0+1, t.Height))
	c11 := t.texel(clampInt(x0+1, t.Width), clampInt(y0+1, t.Height))

	var out [4]float64
	for i := range out {
		top := c00[i] + (c10[i]-c00[i])*fx
		bottom := c01[i] + (c11[i]-c01[i])*fx
		out[i] = top + (bottom-top)*fy
	}
	return out
}

func (t *Texture) texel(x, y int) [4]float64 {
	i := (y*t.Width + x) * 4
	return [4]float64{
		float64(t.Pix[i]) / 255,
		float64(t.Pix[i+1]) / 255,
		float64(t.Pix[i+2]) / 255,
		float64(t.Pix[i+3]) / 255,
	}
}

func clampInt(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
