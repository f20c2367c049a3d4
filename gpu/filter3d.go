// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"context"
	"log/slog"

	"github.com/gogpu/camfx"
)

// Filter3D is a chain filter that renders the working frame through a
// Bridge. Register it with Compositor.AddFilter3D, which calls Init.
type Filter3D struct {
	camfx.NoOverlay

	name   string
	bridge *Bridge
}

var _ camfx.GPUFilter = (*Filter3D)(nil)

// NewFilter3D creates a GPU-backed filter shading frames with program.
func NewFilter3D(name string, backend Backend, program *Program, opts ...BridgeOption) *Filter3D {
	return &Filter3D{
		name:   name,
		bridge: NewBridge(backend, program, opts...),
	}
}

// Name returns the filter name used in logs.
func (f *Filter3D) Name() string {
	return f.name
}

// Bridge returns the underlying bridge.
func (f *Filter3D) Bridge() *Bridge {
	return f.bridge
}

// SetLogger sets the logger for the filter's bridge.
func (f *Filter3D) SetLogger(l *slog.Logger) {
	f.bridge.SetLogger(l)
}

// Init allocates the render target at the canvas size.
func (f *Filter3D) Init(width, height int) error {
	return f.bridge.Init(width, height)
}

// Resize resizes the render target.
func (f *Filter3D) Resize(width, height int) error {
	return f.bridge.Resize(width, height)
}

// TargetSize returns the render target dimensions.
func (f *Filter3D) TargetSize() (width, height int) {
	return f.bridge.Size()
}

// Apply renders src through the bridge and writes the read-back image to
// dst, scaled to dst's size if the target size differs.
func (f *Filter3D) Apply(ctx context.Context, dst, src *camfx.Surface) error {
	img, err := f.bridge.Render(ctx, src.Pixmap())
	if err != nil {
		return err
	}
	dst.DrawImage(img)
	return nil
}

// Close releases the bridge's backend.
func (f *Filter3D) Close() error {
	return f.bridge.Close()
}
