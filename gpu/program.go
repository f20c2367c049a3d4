// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	_ "embed"
	"fmt"
	"sync"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/sprite.wgsl
var spriteShaderSource string

//go:embed shaders/distortion.wgsl
var distortionShaderSource string

// Sampler is the texture view a fragment function reads from.
type Sampler interface {
	Sample(u, v float64) [4]float64
}

// FragmentFunc shades one fragment at texture coordinates (u, v).
// It is the CPU counterpart of the program's WGSL fs_main.
type FragmentFunc func(s Sampler, u, v float64) [4]float64

// Program pairs a WGSL shader module with its CPU fragment function.
//
// Backends that execute on a HAL device use the compiled module; the
// software backend calls Fragment directly. Both must produce the same image.
type Program struct {
	Label    string
	Source   string
	Fragment FragmentFunc

	// Params is the uniform block bound at group 0, binding 2.
	Params [4]float32

	once  sync.Once
	words []uint32
	err   error
}

// NewProgram creates a program from WGSL source and a fragment function.
func NewProgram(label, source string, fragment FragmentFunc) *Program {
	return &Program{Label: label, Source: source, Fragment: fragment}
}

// SpriteProgram returns the plain textured-sprite program.
func SpriteProgram() *Program {
	p := NewProgram("sprite", spriteShaderSource, func(s Sampler, u, v float64) [4]float64 {
		return s.Sample(u, v)
	})
	p.Params = [4]float32{1, 1, 1, 1}
	return p
}

// shade runs the fragment function, sampling s directly when there is none.
func (p *Program) shade(s Sampler, u, v float64) [4]float64 {
	if p == nil || p.Fragment == nil {
		return s.Sample(u, v)
	}
	return p.Fragment(s, u, v)
}

// Compile compiles Source to SPIR-V. The result is cached.
func (p *Program) Compile() ([]uint32, error) {
	p.once.Do(func() {
		p.words, p.err = compileSPIRV(p.Source)
	})
	return p.words, p.err
}

// CreateModule compiles the program and creates a shader module on device.
func (p *Program) CreateModule(device hal.Device) (hal.ShaderModule, error) {
	words, err := p.Compile()
	if err != nil {
		return nil, fmt.Errorf("gpu: program %q: %w", p.Label, err)
	}
	return device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: p.Label,
		Source: hal.ShaderSource{
			SPIRV: words,
		},
	})
}

// compileSPIRV compiles WGSL source to SPIR-V words.
func compileSPIRV(source string) ([]uint32, error) {
	spirv, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) |
			uint32(spirv[i*4+1])<<8 |
			uint32(spirv[i*4+2])<<16 |
			uint32(spirv[i*4+3])<<24
	}
	return words, nil
}
