// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package filter

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/gogpu/camfx"
	"github.com/gogpu/gg"
)

// Noise defaults.
const (
	DefaultNoiseFrequency = 0.9
	DefaultNoiseAlpha     = 0.57
)

// Noise strokes random dashed white horizontal lines over the frame.
//
// Rows are visited top to bottom; after each line the next row is
// floor(|1-Frequency| * height) plus a random 0..99 further down. Each line
// starts at a random column, has a random length and a random three-segment
// dash pattern with segments shorter than 20 pixels.
type Noise struct {
	camfx.NoOverlay

	frequency float64
	alpha     float64

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// NoiseOption configures a Noise filter.
type NoiseOption func(*Noise)

// WithFrequency sets line density. Values close to 1 give dense lines.
func WithFrequency(f float64) NoiseOption {
	return func(n *Noise) {
		n.frequency = f
	}
}

// WithAlpha sets the line opacity in [0, 1].
func WithAlpha(a float64) NoiseOption {
	return func(n *Noise) {
		n.alpha = math.Max(0, math.Min(1, a))
	}
}

// WithSeed makes the line pattern deterministic.
func WithSeed(seed uint64) NoiseOption {
	return func(n *Noise) {
		n.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// NewNoise creates a noise filter.
func NewNoise(opts ...NoiseOption) *Noise {
	n := &Noise{
		frequency: DefaultNoiseFrequency,
		alpha:     DefaultNoiseAlpha,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.rng == nil {
		n.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return n
}

// Name returns "noise".
func (*Noise) Name() string {
	return "noise"
}

// line is one noise stroke.
type line struct {
	y, from, width float64
	dash           [3]float64
}

// lines generates the strokes for a frame of the given size.
func (n *Noise) lines(width, height int) []line {
	n.mu.Lock()
	defer n.mu.Unlock()

	step := int(math.Floor(math.Abs(1-n.frequency) * float64(height)))
	var out []line
	for y := 0; y < height; {
		from := n.rng.IntN(width)
		length := 0
		if rest := width - from; rest > 0 {
			length = n.rng.IntN(rest)
		}
		l := line{y: float64(y), from: float64(from), width: float64(length)}
		for i := range l.dash {
			l.dash[i] = float64(n.rng.IntN(20))
		}
		out = append(out, l)

		y += max(1, n.rng.IntN(100)+step)
	}
	return out
}

// Apply copies src into dst and strokes the noise lines on dst.
func (n *Noise) Apply(ctx context.Context, dst, src *camfx.Surface) error {
	base(dst, src)
	lines := n.lines(dst.Width(), dst.Height())

	var err error
	dst.Draw(func(dc *gg.Context) {
		dc.SetRGBA(1, 1, 1, n.alpha)
		dc.SetLineWidth(1)
		for _, l := range lines {
			if l.width == 0 {
				continue
			}
			dc.SetDash(l.dash[:]...)
			dc.MoveTo(l.from, l.y)
			dc.LineTo(l.from+l.width, l.y)
			if err = dc.Stroke(); err != nil {
				break
			}
		}
		dc.ClearDash()
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}
