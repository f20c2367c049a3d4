// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

// DefaultDistortionOffset is the horizontal channel shift in texture
// coordinates used by NewDistortion.
const DefaultDistortionOffset = 0.01

// DistortionProgram returns the chromatic split program: red is sampled at
// uv, green at uv + (offset, 0) and blue at uv - (offset, 0). Alpha follows red.
func DistortionProgram(offset float64) *Program {
	p := NewProgram("distortion", distortionShaderSource, func(s Sampler, u, v float64) [4]float64 {
		base := s.Sample(u, v)
		g := s.Sample(u+offset, v)
		b := s.Sample(u-offset, v)
		return [4]float64{base[0], g[1], b[2], base[3]}
	})
	p.Params = [4]float32{float32(offset), 0, 0, 0}
	return p
}

// NewDistortion creates the 3D distortion filter with the default offset.
func NewDistortion(backend Backend, opts ...BridgeOption) *Filter3D {
	return NewFilter3D("distortion", backend, DistortionProgram(DefaultDistortionOffset), opts...)
}
