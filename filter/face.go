// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package filter

import (
	"context"
	"image"
	"math"
	"sync"
	"time"

	"github.com/gogpu/camfx"
	"github.com/gogpu/gg"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/goregular"
)

// Face defaults.
const (
	DefaultFaceDelay    = time.Second
	DefaultFaceFontSize = 38.4
	DefaultFaceLabel    = "Unknown target"
)

// Detector finds objects in an RGBA frame. Implementations may block;
// they must return once ctx is done.
type Detector interface {
	Detect(ctx context.Context, pix []uint8, width, height int) ([]image.Rectangle, error)
}

// DetectorFunc adapts an ordinary function into a Detector.
type DetectorFunc func(ctx context.Context, pix []uint8, width, height int) ([]image.Rectangle, error)

// Detect calls f(ctx, pix, width, height).
func (f DetectorFunc) Detect(ctx context.Context, pix []uint8, width, height int) ([]image.Rectangle, error) {
	return f(ctx, pix, width, height)
}

// FaceOption configures a Face filter.
type FaceOption func(*Face)

// WithDelay sets the interval between detections.
func WithDelay(d time.Duration) FaceOption {
	return func(f *Face) {
		if d > 0 {
			f.delay = d
		}
	}
}

// WithClearTarget makes the box disappear once no detection has reported
// it for three delays.
func WithClearTarget(enabled bool) FaceOption {
	return func(f *Face) {
		f.clearTarget = enabled
	}
}

// WithStroke sets the box and label color.
func WithStroke(c gg.RGBA) FaceOption {
	return func(f *Face) {
		f.stroke = c
	}
}

// WithLabel sets the label text and font size in pixels.
func WithLabel(label string, size float64) FaceOption {
	return func(f *Face) {
		f.label = label
		if size > 0 {
			f.fontSize = size
		}
	}
}

// WithLineDash sets the box dash pattern. No lengths draws solid lines.
func WithLineDash(lengths ...float64) FaceOption {
	return func(f *Face) {
		f.dash = lengths
	}
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) FaceOption {
	return func(f *Face) {
		f.now = now
	}
}

// Face annotates the frame with the latest bounding box found by a Detector.
//
// Apply hands a copy of the frame to the detector at most once per delay,
// on a separate goroutine. Results arrive through Observe, which keeps only
// the first box of the newest non-empty detection. AfterRedraw strokes the
// box with a dashed line and writes the label above it.
type Face struct {
	detector    Detector
	delay       time.Duration
	clearTarget bool
	stroke      gg.RGBA
	dash        []float64
	label       string
	fontSize    float64
	now         func() time.Time

	mu      sync.Mutex // guards the fields below
	box     image.Rectangle
	hasBox  bool
	seen    time.Time // when box was last reported
	lastRun time.Time
	running bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewFace creates a face filter. A nil detector makes Apply fail with
// camfx.ErrMissingDetectionBackend.
func NewFace(detector Detector, opts ...FaceOption) *Face {
	ctx, cancel := context.WithCancel(context.Background())
	f := &Face{
		detector: detector,
		delay:    DefaultFaceDelay,
		stroke:   gg.White,
		dash:     []float64{15},
		label:    DefaultFaceLabel,
		fontSize: DefaultFaceFontSize,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Name returns "face".
func (*Face) Name() string {
	return "face"
}

// Apply copies src into dst and, when the delay has elapsed since the last
// detection started, starts detecting on a copy of the frame.
func (f *Face) Apply(ctx context.Context, dst, src *camfx.Surface) error {
	if f.detector == nil {
		return camfx.ErrMissingDetectionBackend
	}
	base(dst, src)

	now := f.now()
	f.mu.Lock()
	if f.closed || f.running || (!f.lastRun.IsZero() && now.Sub(f.lastRun) < f.delay) {
		f.mu.Unlock()
		return ctx.Err()
	}
	f.running = true
	f.lastRun = now
	f.wg.Add(1)
	f.mu.Unlock()

	pix := append([]uint8(nil), dst.Pix()...)
	go f.detect(pix, dst.Width(), dst.Height())
	return ctx.Err()
}

func (f *Face) detect(pix []uint8, width, height int) {
	defer f.wg.Done()
	boxes, err := f.detector.Detect(f.ctx, pix, width, height)

	f.mu.Lock()
	f.running = false
	f.mu.Unlock()

	if err != nil {
		camfx.Logger().Warn("filter: detection failed", "filter", "face", "err", err)
		return
	}
	f.Observe(boxes)
}

// Observe records a detection result. Empty results keep the current box.
func (f *Face) Observe(boxes []image.Rectangle) {
	if len(boxes) == 0 {
		return
	}
	f.mu.Lock()
	f.box = boxes[0]
	f.hasBox = true
	f.seen = f.now()
	f.mu.Unlock()
	camfx.Logger().Debug("filter: target observed", "filter", "face", "box", boxes[0])
}

// Box returns the box being drawn, if any.
func (f *Face) Box() (image.Rectangle, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.hasBox && f.clearTarget && f.now().Sub(f.seen) >= 3*f.delay {
		f.hasBox = false
		f.box = image.Rectangle{}
	}
	return f.box, f.hasBox
}

// AfterRedraw strokes the latest box and its label.
func (f *Face) AfterRedraw(dc *camfx.Surface) {
	box, ok := f.Box()
	if !ok {
		return
	}
	dc.Draw(func(c *gg.Context) {
		c.SetRGBA(f.stroke.R, f.stroke.G, f.stroke.B, f.stroke.A)
		c.SetLineWidth(1)
		c.SetDash(f.dash...)
		c.DrawRectangle(float64(box.Min.X), float64(box.Min.Y), float64(box.Dx()), float64(box.Dy()))
		if err := c.Stroke(); err != nil {
			camfx.Logger().Debug("filter: face box stroke failed", "err", err)
		}
		c.ClearDash()
		f.drawLabel(c, box)
	})
}

// drawLabel writes the label with its baseline 5 pixels above the box,
// shrinking the font so the label is no wider than the box.
func (f *Face) drawLabel(c *gg.Context, box image.Rectangle) {
	if f.label == "" {
		return
	}
	src, err := labelFont()
	if err != nil {
		camfx.Logger().Warn("filter: label font unavailable", "err", err)
		return
	}
	size := f.fontSize
	c.SetFont(src.Face(size))
	if w, _ := c.MeasureString(f.label); w > float64(box.Dx()) && box.Dx() > 0 {
		size = math.Max(1, size*float64(box.Dx())/w)
		c.SetFont(src.Face(size))
	}
	c.DrawString(f.label, float64(box.Min.X), float64(box.Min.Y)-5)
}

var labelFont = sync.OnceValues(func() (*text.FontSource, error) {
	return text.NewFontSource(goregular.TTF)
})

// Close stops a running detection and waits for it.
func (f *Face) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.cancel()
	f.wg.Wait()
	return nil
}
