package camfx

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/anthonynsimon/bild/clone"
	"github.com/anthonynsimon/bild/transform"
	"github.com/gogpu/gg"
)

// Surface is a pixel buffer with a gg drawing context on top of it.
//
// The compositor owns its surfaces (source buffer, working buffer and
// visible surface among them) and lends them to filters for the duration of a single
// call. Filters must not retain a Surface beyond the call that provided it.
//
// Pixel data is 8-bit RGBA, 4 bytes per pixel, rows packed without padding.
//
// Surface is NOT safe for concurrent use; the compositor serializes access.
type Surface struct {
	dc     *gg.Context
	writes atomic.Uint64
}

// NewSurface creates a transparent surface with the given dimensions.
// Non-positive dimensions are clamped to 1.
func NewSurface(width, height int) *Surface {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	return &Surface{dc: gg.NewContext(width, height)}
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int {
	return s.dc.Width()
}

// Height returns the surface height in pixels.
func (s *Surface) Height() int {
	return s.dc.Height()
}

// Size returns width and height as a convenience.
func (s *Surface) Size() (width, height int) {
	return s.dc.Width(), s.dc.Height()
}

// Pixmap returns the backing pixmap. Use it for reading; mutate through
// Draw or Update so the write is accounted for.
func (s *Surface) Pixmap() *gg.Pixmap {
	return s.dc.ResizeTarget()
}

// Pix returns the raw RGBA bytes for reading.
func (s *Surface) Pix() []uint8 {
	return s.dc.ResizeTarget().Data()
}

// Writes returns how many times the surface has been mutated.
func (s *Surface) Writes() uint64 {
	return s.writes.Load()
}

// Draw calls fn with the gg drawing context and records a write.
// This is the way overlays (rectangles, dashes, text) reach the surface.
func (s *Surface) Draw(fn func(dc *gg.Context)) {
	fn(s.dc)
	s.writes.Add(1)
}

// Update calls fn with the raw pixel bytes and records a write.
// Use it for per-pixel transforms.
func (s *Surface) Update(fn func(pix []uint8, width, height int)) {
	fn(s.Pix(), s.Width(), s.Height())
	s.writes.Add(1)
}

// Clear makes every pixel transparent black.
func (s *Surface) Clear() {
	s.dc.Clear()
	s.writes.Add(1)
}

// CopyFrom replaces the contents of s with src. If the sizes differ the
// source is scaled with bilinear filtering.
func (s *Surface) CopyFrom(src *Surface) {
	if src == s {
		return
	}
	if src.Width() == s.Width() && src.Height() == s.Height() {
		copy(s.Pix(), src.Pix())
		s.writes.Add(1)
		return
	}
	s.DrawImage(src.Pixmap().ToImage())
}

// DrawImage draws img over the full surface, replacing its contents.
// Frames whose size differs from the surface are scaled to fit.
func (s *Surface) DrawImage(img image.Image) {
	w, h := s.Size()
	b := img.Bounds()

	var rgba *image.RGBA
	if b.Dx() != w || b.Dy() != h {
		rgba = transform.Resize(img, w, h, transform.Linear)
	} else if r, ok := img.(*image.RGBA); ok {
		rgba = r
	} else {
		rgba = clone.AsRGBA(img)
	}

	dst := s.Pix()
	rb := rgba.Bounds()
	rowBytes := w * 4
	for y := 0; y < h; y++ {
		off := rgba.PixOffset(rb.Min.X, rb.Min.Y+y)
		copy(dst[y*rowBytes:(y+1)*rowBytes], rgba.Pix[off:off+rowBytes])
	}
	s.writes.Add(1)
}

// Snapshot returns a copy of the surface as an image.RGBA.
func (s *Surface) Snapshot() *image.RGBA {
	return s.Pixmap().ToImage()
}

// Resize changes the surface dimensions. Contents are discarded.
func (s *Surface) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	if err := s.dc.Resize(width, height); err != nil {
		return fmt.Errorf("camfx: surface resize failed: %w", err)
	}
	s.writes.Add(1)
	return nil
}
