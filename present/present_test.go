// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package present

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/gogpu/camfx"
	"github.com/gogpu/camfx/source"
)

func surface(t *testing.T, width, height int, c color.RGBA) *camfx.Surface {
	t.Helper()
	s := camfx.NewSurface(width, height)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	s.DrawImage(img)
	return s
}

func TestPresenterCommit(t *testing.T) {
	p := New()
	if p.Snapshot() != nil {
		t.Error("Snapshot() before commit should be nil")
	}

	if err := p.Commit(surface(t, 4, 3, color.RGBA{9, 8, 7, 255})); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if !p.IsDirty() {
		t.Error("presenter should be dirty after commit")
	}
	if w, h := p.Size(); w != 4 || h != 3 {
		t.Errorf("Size() = %dx%d, want 4x3", w, h)
	}
	if got := p.Snapshot().RGBAAt(3, 2); got != (color.RGBA{9, 8, 7, 255}) {
		t.Errorf("pixel = %v, want {9 8 7 255}", got)
	}

	if err := p.Commit(surface(t, 8, 6, color.RGBA{1, 1, 1, 255})); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	if w, h := p.Size(); w != 8 || h != 6 {
		t.Errorf("Size() after resize = %dx%d, want 8x6", w, h)
	}
	if p.Frames() != 2 {
		t.Errorf("Frames() = %d, want 2", p.Frames())
	}
}

func TestPresenterClosed(t *testing.T) {
	p := New()
	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if err := p.Commit(camfx.NewSurface(1, 1)); !errors.Is(err, ErrClosed) {
		t.Errorf("Commit after Close = %v, want ErrClosed", err)
	}
}

func TestPresenterNilDrawContext(t *testing.T) {
	if err := New().RenderTo(nil); !errors.Is(err, ErrInvalidDrawContext) {
		t.Errorf("RenderTo(nil) = %v, want ErrInvalidDrawContext", err)
	}
}

func TestPresenterAsSink(t *testing.T) {
	p := New()
	c := camfx.New(camfx.WithSink(p))
	defer c.Close()

	if err := c.AttachSource(source.NewStill(source.TestPattern(32, 16))); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	ctx := context.Background()
	if err := c.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if err := c.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	if p.Frames() != 1 {
		t.Fatalf("Frames() = %d, want 1", p.Frames())
	}
	if w, h := p.Size(); w != 32 || h != 16 {
		t.Errorf("Size() = %dx%d, want 32x16", w, h)
	}
	if got := p.Snapshot().RGBAAt(0, 0); got != (color.RGBA{255, 255, 255, 255}) {
		t.Errorf("first pixel = %v, want white bar", got)
	}
}
