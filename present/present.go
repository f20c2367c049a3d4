// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package present shows committed frames in a gogpu window.
//
// A Presenter is a camfx.Sink: register it with camfx.WithSink and call
// RenderTo from the window's draw callback.
//
//	p := present.New()
//	c := camfx.New(camfx.WithSink(p))
//
//	app.OnDraw(func(dc *gogpu.Context) {
//	    _ = p.RenderTo(dc.AsTextureDrawer())
//	})
package present

import (
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"

	"github.com/gogpu/camfx"
	"github.com/gogpu/gpucontext"
)

var (
	// ErrClosed is returned when operations are attempted on a closed presenter.
	ErrClosed = errors.New("present: presenter is closed")

	// ErrInvalidDrawContext is returned when RenderTo gets no draw context.
	ErrInvalidDrawContext = errors.New("present: dc must implement gpucontext.TextureDrawer")

	// ErrInvalidRenderer is returned when the draw context cannot create textures.
	ErrInvalidRenderer = errors.New("present: renderer must implement gpucontext.TextureCreator")
)

// textureDestroyer matches the gogpu texture Destroy signature.
type textureDestroyer interface {
	Destroy()
}

// Presenter uploads the latest committed frame to a GPU texture and draws it.
//
// Commit runs on the compositor's goroutine and RenderTo on the window's
// draw goroutine; Presenter is safe for this concurrent use.
type Presenter struct {
	mu          sync.Mutex // guards the fields below
	pix         []byte
	width       int
	height      int
	texture     any // gpucontext.Texture once created
	oldTexture  any // replaced texture awaiting destruction after the next upload
	dirty       bool
	sizeChanged bool
	closed      bool

	frames atomic.Uint64
}

var _ camfx.Sink = (*Presenter)(nil)

// New creates a presenter with no frame.
func New() *Presenter {
	return &Presenter{}
}

// Commit implements camfx.Sink. It copies the frame's pixels.
func (p *Presenter) Commit(frame *camfx.Surface) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}

	w, h := frame.Size()
	if w != p.width || h != p.height {
		p.width, p.height = w, h
		p.pix = make([]byte, w*h*4)
		p.sizeChanged = p.texture != nil
	}
	copy(p.pix, frame.Pix())
	p.dirty = true
	p.frames.Add(1)
	return nil
}

// Frames returns the number of committed frames.
func (p *Presenter) Frames() uint64 {
	return p.frames.Load()
}

// Size returns the dimensions of the latest frame.
func (p *Presenter) Size() (width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.width, p.height
}

// IsDirty reports whether a frame is waiting for upload.
func (p *Presenter) IsDirty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dirty
}

// Snapshot returns a copy of the latest frame, or nil before the first commit.
func (p *Presenter) Snapshot() *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pix == nil {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	copy(img.Pix, p.pix)
	return img
}

// RenderTo draws the latest frame at (0, 0).
func (p *Presenter) RenderTo(dc gpucontext.TextureDrawer) error {
	return p.RenderToPosition(dc, 0, 0)
}

// RenderToPosition uploads the latest frame if it changed and draws it at
// (x, y). Nothing is drawn before the first commit.
func (p *Presenter) RenderToPosition(dc gpucontext.TextureDrawer, x, y float32) error {
	if dc == nil {
		return ErrInvalidDrawContext
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if p.pix == nil {
		return nil
	}

	if err := p.upload(dc); err != nil {
		return err
	}
	tex, ok := p.texture.(gpucontext.Texture)
	if !ok {
		return ErrInvalidDrawContext
	}
	return dc.DrawTexture(tex, x, y)
}

// upload creates or updates the texture. The caller holds p.mu.
func (p *Presenter) upload(dc gpucontext.TextureDrawer) error {
	if p.sizeChanged {
		destroy(p.oldTexture)
		p.oldTexture = p.texture
		p.texture = nil
		p.sizeChanged = false
	}
	if !p.dirty && p.texture != nil {
		return nil
	}

	if p.texture == nil {
		creator := dc.TextureCreator()
		if creator == nil {
			return ErrInvalidRenderer
		}
		tex, err := creator.NewTextureFromRGBA(p.width, p.height, p.pix)
		if err != nil {
			return fmt.Errorf("present: NewTextureFromRGBA failed: %w", err)
		}
		// Frames are premultiplied.
		if pt, ok := tex.(interface{ SetPremultiplied(bool) }); ok {
			pt.SetPremultiplied(true)
		}
		p.texture = tex

		// The upload waited for the GPU, so the replaced texture is idle.
		destroy(p.oldTexture)
		p.oldTexture = nil
		p.dirty = false
		return nil
	}

	if updater, ok := p.texture.(gpucontext.TextureUpdater); ok {
		if err := updater.UpdateData(p.pix); err != nil {
			return fmt.Errorf("present: texture update failed: %w", err)
		}
	}
	p.dirty = false
	return nil
}

func destroy(tex any) {
	if d, ok := tex.(textureDestroyer); ok {
		d.Destroy()
	}
}

// Close releases the textures. Close is idempotent.
func (p *Presenter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	destroy(p.oldTexture)
	destroy(p.texture)
	p.oldTexture, p.texture = nil, nil
	p.pix = nil
	return nil
}
