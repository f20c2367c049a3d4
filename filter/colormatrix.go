// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package filter

import (
	"context"
	"math"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/internal/parallel"
	"github.com/gogpu/gg"
)

// ColorMatrix applies a 4x5 color transformation matrix to every pixel.
// The transformation is:
//
//	[R']   [a00 a01 a02 a03 a04]   [R]
//	[G'] = [a10 a11 a12 a13 a14] * [G]
//	[B']   [a20 a21 a22 a23 a24]   [B]
//	[A']   [a30 a31 a32 a33 a34]   [A]
//	                               [1]
//
// The fifth column is a bias in [0, 255] units. Results are clamped.
type ColorMatrix struct {
	camfx.NoOverlay

	// Matrix is the 4x5 transformation matrix in row-major order.
	// [0-4] = row 0 (R), [5-9] = row 1 (G), [10-14] = row 2 (B), [15-19] = row 3 (A)
	Matrix [20]float32

	name string
	pool *parallel.Pool
}

// NewColorMatrix creates a color matrix filter.
func NewColorMatrix(name string, matrix [20]float32) *ColorMatrix {
	return &ColorMatrix{Matrix: matrix, name: name, pool: parallel.Default()}
}

// Name returns the filter name.
func (f *ColorMatrix) Name() string {
	return f.name
}

// Identity passes pixels through unchanged.
func Identity() *ColorMatrix {
	return NewColorMatrix("identity", [20]float32{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	})
}

// Offset adds constant amounts to the color channels.
func Offset(r, g, b float32) *ColorMatrix {
	return NewColorMatrix("offset", [20]float32{
		1, 0, 0, 0, r,
		0, 1, 0, 0, g,
		0, 0, 1, 0, b,
		0, 0, 0, 1, 0,
	})
}

// TerminatorRed pushes the frame towards red: +100 red, -75 green and blue.
func TerminatorRed() *ColorMatrix {
	f := Offset(100, -75, -75)
	f.name = "terminator-red"
	return f
}

// Brightness scales the color channels.
// factor: 0.0 = black, 1.0 = unchanged, 2.0 = twice as bright
func Brightness(factor float32) *ColorMatrix {
	return NewColorMatrix("brightness", [20]float32{
		factor, 0, 0, 0, 0,
		0, factor, 0, 0, 0,
		0, 0, factor, 0, 0,
		0, 0, 0, 1, 0,
	})
}

// Contrast scales the color channels around mid gray.
// factor: 0.0 = gray, 1.0 = unchanged, 2.0 = high contrast
func Contrast(factor float32) *ColorMatrix {
	offset := 128 * (1 - factor)
	return NewColorMatrix("contrast", [20]float32{
		factor, 0, 0, 0, offset,
		0, factor, 0, 0, offset,
		0, 0, factor, 0, offset,
		0, 0, 0, 1, 0,
	})
}

// Saturation blends between luminance and the original color.
// factor: 0.0 = grayscale, 1.0 = unchanged, 2.0 = oversaturated
func Saturation(factor float32) *ColorMatrix {
	// Rec. 709
	const (
		lumR = 0.2126
		lumG = 0.7152
		lumB = 0.0722
	)
	inv := 1 - factor
	return NewColorMatrix("saturation", [20]float32{
		lumR*inv + factor, lumG * inv, lumB * inv, 0, 0,
		lumR * inv, lumG*inv + factor, lumB * inv, 0, 0,
		lumR * inv, lumG * inv, lumB*inv + factor, 0, 0,
		0, 0, 0, 1, 0,
	})
}

// Grayscale removes all color.
func Grayscale() *ColorMatrix {
	f := Saturation(0)
	f.name = "grayscale"
	return f
}

// Sepia applies a sepia tone.
func Sepia() *ColorMatrix {
	return NewColorMatrix("sepia", [20]float32{
		0.393, 0.769, 0.189, 0, 0,
		0.349, 0.686, 0.168, 0, 0,
		0.272, 0.534, 0.131, 0, 0,
		0, 0, 0, 1, 0,
	})
}

// Invert inverts the color channels.
func Invert() *ColorMatrix {
	return NewColorMatrix("invert", [20]float32{
		-1, 0, 0, 0, 255,
		0, -1, 0, 0, 255,
		0, 0, -1, 0, 255,
		0, 0, 0, 1, 0,
	})
}

// HueRotate rotates hue by the given angle in degrees.
func HueRotate(degrees float64) *ColorMatrix {
	rad := degrees * math.Pi / 180
	cos := float32(math.Cos(rad))
	sin := float32(math.Sin(rad))

	const (
		lumR = 0.213
		lumG = 0.715
		lumB = 0.072
	)
	return NewColorMatrix("hue-rotate", [20]float32{
		lumR + cos*(1-lumR) + sin*(-lumR), lumG + cos*(-lumG) + sin*(-lumG), lumB + cos*(-lumB) + sin*(1-lumB), 0, 0,
		lumR + cos*(-lumR) + sin*(0.143), lumG + cos*(1-lumG) + sin*(0.140), lumB + cos*(-lumB) + sin*(-0.283), 0, 0,
		lumR + cos*(-lumR) + sin*(-(1 - lumR)), lumG + cos*(-lumG) + sin*(lumG), lumB + cos*(1-lumB) + sin*(lumB), 0, 0,
		0, 0, 0, 1, 0,
	})
}

// Tint blends the frame towards a color by the color's alpha.
func Tint(c gg.RGBA) *ColorMatrix {
	f := float32(c.A)
	inv := 1 - f
	return NewColorMatrix("tint", [20]float32{
		inv, 0, 0, 0, float32(c.R*255) * f,
		0, inv, 0, 0, float32(c.G*255) * f,
		0, 0, inv, 0, float32(c.B*255) * f,
		0, 0, 0, 1, 0,
	})
}

// Apply transforms src into dst, or dst in place when they are the same.
func (f *ColorMatrix) Apply(ctx context.Context, dst, src *camfx.Surface) error {
	if dst != src && (dst.Width() != src.Width() || dst.Height() != src.Height()) {
		dst.CopyFrom(src)
		src = dst
	}
	in := src.Pix()
	pool := f.pool
	if pool == nil {
		pool = parallel.Default()
	}
	dst.Update(func(out []uint8, width, height int) {
		pool.Rows(height, func(y0, y1 int) {
			lo, hi := y0*width*4, y1*width*4
			f.transform(out[lo:hi], in[lo:hi])
		})
	})
	return ctx.Err()
}

// transform applies the matrix to premultiplied RGBA bytes.
func (f *ColorMatrix) transform(dst, src []uint8) {
	m := &f.Matrix
	for i := 0; i+3 < len(src); i += 4 {
		pr := float32(src[i+0])
		pg := float32(src[i+1])
		pb := float32(src[i+2])
		a := float32(src[i+3])

		// The matrix works on straight alpha.
		var r, g, b float32
		if a > 0 {
			r = pr * 255 / a
			g = pg * 255 / a
			b = pb * 255 / a
		}

		newR := m[0]*r + m[1]*g + m[2]*b + m[3]*a + m[4]
		newG := m[5]*r + m[6]*g + m[7]*b + m[8]*a + m[9]
		newB := m[10]*r + m[11]*g + m[12]*b + m[13]*a + m[14]
		newA := clamp255(m[15]*r + m[16]*g + m[17]*b + m[18]*a + m[19])

		if newA > 0 {
			factor := newA / 255
			newR = clamp255(newR) * factor
			newG = clamp255(newG) * factor
			newB = clamp255(newB) * factor
		} else {
			newR, newG, newB = 0, 0, 0
		}

		dst[i+0] = uint8(newR + 0.5)
		dst[i+1] = uint8(newG + 0.5)
		dst[i+2] = uint8(newB + 0.5)
		dst[i+3] = uint8(newA + 0.5)
	}
}

func clamp255(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}
