// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"context"
	"fmt"
	"sync"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/internal/parallel"
	"github.com/gogpu/gg"
	"github.com/gogpu/wgpu/hal"
)

// SoftwareBackend rasterizes sprites on the CPU, one row band per worker.
//
// When created with a HAL device, every program drawn is also compiled and
// loaded as a shader module on that device, so shader errors surface on the
// first render even though shading itself runs on the CPU.
type SoftwareBackend struct {
	pool   *parallel.Pool
	device hal.Device

	mu      sync.Mutex // guards modules
	modules map[*Program]hal.ShaderModule
}

// SoftwareOption configures a SoftwareBackend.
type SoftwareOption func(*SoftwareBackend)

// WithDevice validates programs against device.
func WithDevice(device hal.Device) SoftwareOption {
	return func(b *SoftwareBackend) {
		b.device = device
	}
}

// WithPool runs row bands on pool instead of the shared default pool.
func WithPool(pool *parallel.Pool) SoftwareOption {
	return func(b *SoftwareBackend) {
		b.pool = pool
	}
}

// NewSoftwareBackend creates a CPU backend.
func NewSoftwareBackend(opts ...SoftwareOption) *SoftwareBackend {
	b := &SoftwareBackend{modules: make(map[*Program]hal.ShaderModule)}
	for _, opt := range opts {
		opt(b)
	}
	if b.pool == nil {
		b.pool = parallel.Default()
	}
	return b
}

// Name implements Backend.
func (b *SoftwareBackend) Name() string {
	return "software"
}

// Init implements Backend.
func (b *SoftwareBackend) Init(target *Target) error {
	if target.Width <= 0 || target.Height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", camfx.ErrInvalidDimensions, target.Width, target.Height)
	}
	return nil
}

// Resize implements Backend. The software backend keeps no per-size state.
func (b *SoftwareBackend) Resize(target *Target) error {
	return b.Init(target)
}

// Render implements Backend.
func (b *SoftwareBackend) Render(ctx context.Context, scene *Scene, camera *Camera, target *Target) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if camera == nil {
		camera = NewCamera()
	}
	sprites := scene.Sprites()
	for _, s := range sprites {
		if err := b.load(s.Material.Program); err != nil {
			return err
		}
	}

	bg := [4]float64{scene.Background.R, scene.Background.G, scene.Background.B, scene.Background.A}
	b.pool.Rows(target.Height, func(y0, y1 int) {
		for py := y0; py < y1; py++ {
			for px := 0; px < target.Width; px++ {
				c := bg
				x, y := camera.unproject(px, py, target.Width, target.Height)
				for _, s := range sprites {
					u, v, ok := s.uv(x, y)
					if !ok {
						continue
					}
					c = shadeSprite(s.Material, u, v)
				}
				target.Set(px, py, c)
			}
		}
	})
	return ctx.Err()
}

func shadeSprite(m *Material, u, v float64) [4]float64 {
	if m.Map == nil {
		return tint([4]float64{1, 1, 1, 1}, m.Color)
	}
	return tint(m.Program.shade(m.Map, u, v), m.Color)
}

func tint(c [4]float64, color gg.RGBA) [4]float64 {
	if color == (gg.RGBA{}) {
		return c
	}
	return [4]float64{c[0] * color.R, c[1] * color.G, c[2] * color.B, c[3] * color.A}
}

// load creates the shader module for p once per device.
func (b *SoftwareBackend) load(p *Program) error {
	if b.device == nil || p == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.modules[p]; ok {
		return nil
	}
	module, err := p.CreateModule(b.device)
	if err != nil {
		return err
	}
	b.modules[p] = module
	camfx.Logger().Debug("gpu: shader module created", "backend", b.Name(), "program", p.Label)
	return nil
}

// Modules returns the number of shader modules loaded on the device.
func (b *SoftwareBackend) Modules() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.modules)
}

// Close implements Backend. It destroys the loaded shader modules.
func (b *SoftwareBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for p, m := range b.modules {
		b.device.DestroyShaderModule(m)
		delete(b.modules, p)
	}
	return nil
}
