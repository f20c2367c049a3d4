// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/camfx"
	"github.com/gogpu/gg"
	"github.com/gogpu/gputypes"
)

var (
	// ErrBusy is returned by RenderFrameFrom while a previous render is still
	// in flight.
	ErrBusy = errors.New("gpu: render in flight")

	// ErrNotInitialized is returned when rendering before Init.
	ErrNotInitialized = errors.New("gpu: bridge not initialized")

	// ErrClosed is returned when rendering after Close.
	ErrClosed = errors.New("gpu: bridge closed")
)

// Result is the outcome of one asynchronous render.
type Result struct {
	Image *image.RGBA
	Err   error
}

// BridgeOption configures a Bridge.
type BridgeOption func(*Bridge)

// WithFiltering sets how the frame texture is sampled. Default: FilterLinear.
func WithFiltering(f Filtering) BridgeOption {
	return func(b *Bridge) {
		b.filtering = f
	}
}

// WithTargetFormat sets the pixel format of the render target.
// Readback always yields RGBA. Default: RGBA8Unorm.
func WithTargetFormat(format gputypes.TextureFormat) BridgeOption {
	return func(b *Bridge) {
		b.format = format
	}
}

// Bridge carries a 2D frame through a rendering backend and back.
//
// The frame is uploaded as a texture on a full-view sprite (scale 2x2 under
// the default camera) shaded by the bridge's program, rendered into the
// target and read back as an image. At most one render is in flight.
type Bridge struct {
	backend   Backend
	program   *Program
	filtering Filtering
	format    gputypes.TextureFormat
	logger    atomic.Pointer[slog.Logger]
	busy      atomic.Bool

	mu       sync.Mutex // guards the fields below
	target   *Target
	texture  *Texture
	material *Material
	scene    *Scene
	camera   *Camera
	closed   bool
}

// NewBridge creates a bridge rendering through backend with program.
// A nil program draws the frame unchanged.
func NewBridge(backend Backend, program *Program, opts ...BridgeOption) *Bridge {
	if program == nil {
		program = SpriteProgram()
	}
	b := &Bridge{backend: backend, program: program}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetLogger sets the logger for this bridge. Nil falls back to camfx.Logger().
func (b *Bridge) SetLogger(l *slog.Logger) {
	b.logger.Store(l)
}

func (b *Bridge) log() *slog.Logger {
	if l := b.logger.Load(); l != nil {
		return l
	}
	return camfx.Logger()
}

// Init allocates the render target and builds the scene.
// It fails with camfx.ErrMissingRenderingBackend when there is no backend.
func (b *Bridge) Init(width, height int) error {
	if b.backend == nil {
		return camfx.ErrMissingRenderingBackend
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", camfx.ErrInvalidDimensions, width, height)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	target := NewTarget(width, height, b.format)
	if err := b.backend.Init(target); err != nil {
		return fmt.Errorf("gpu: %s init: %w", b.backend.Name(), err)
	}

	tex := NewTexture(width, height)
	tex.Filter = b.filtering
	material := &Material{Map: tex, Color: gg.White, Program: b.program}
	sprite := NewSprite(material)
	sprite.ScaleX, sprite.ScaleY = 2, 2

	scene := NewScene()
	scene.Add(sprite)

	b.target = target
	b.texture = tex
	b.material = material
	b.scene = scene
	b.camera = NewCamera()
	b.closed = false

	b.log().Info("gpu: bridge initialized",
		"backend", b.backend.Name(), "program", b.program.Label,
		"width", width, "height", height, "filtering", b.filtering)
	return nil
}

// RenderFrameFrom uploads src and starts rendering it. The returned channel
// receives exactly one Result. src is copied before RenderFrameFrom returns
// and may be reused by the caller.
func (b *Bridge) RenderFrameFrom(ctx context.Context, src *gg.Pixmap) <-chan Result {
	out := make(chan Result, 1)

	if !b.busy.CompareAndSwap(false, true) {
		out <- Result{Err: ErrBusy}
		return out
	}

	b.mu.Lock()
	switch {
	case b.closed:
		b.mu.Unlock()
		b.busy.Store(false)
		out <- Result{Err: ErrClosed}
		return out
	case b.target == nil:
		b.mu.Unlock()
		b.busy.Store(false)
		out <- Result{Err: ErrNotInitialized}
		return out
	}
	b.texture.Upload(src)
	b.mu.Unlock()

	go func() {
		b.mu.Lock()
		err := b.backend.Render(ctx, b.scene, b.camera, b.target)
		var img *image.RGBA
		if err == nil {
			img = b.target.RGBA()
		}
		b.mu.Unlock()
		b.busy.Store(false)

		if err != nil {
			b.log().Warn("gpu: render failed", "backend", b.backend.Name(), "err", err)
		}
		out <- Result{Image: img, Err: err}
	}()
	return out
}

// Render renders src and waits for the result.
func (b *Bridge) Render(ctx context.Context, src *gg.Pixmap) (*image.RGBA, error) {
	select {
	case res := <-b.RenderFrameFrom(ctx, src):
		return res.Image, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Resize changes the render target dimensions.
func (b *Bridge) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", camfx.ErrInvalidDimensions, width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.target == nil {
		return ErrNotInitialized
	}
	b.target.Resize(width, height)
	if err := b.backend.Resize(b.target); err != nil {
		return fmt.Errorf("gpu: %s resize: %w", b.backend.Name(), err)
	}
	b.log().Debug("gpu: render target resized", "width", width, "height", height)
	return nil
}

// Size returns the render target dimensions, or 0, 0 before Init.
func (b *Bridge) Size() (width, height int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.target == nil {
		return 0, 0
	}
	return b.target.Width, b.target.Height
}

// Close releases the backend. Close is idempotent.
func (b *Bridge) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.backend == nil {
		return nil
	}
	b.closed = true
	return b.backend.Close()
}
