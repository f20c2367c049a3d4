package camfx

import "time"

// Default canvas dimensions used when a source reports no size.
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// Option configures a Compositor during creation.
//
// Example:
//
//	// 60 Hz loop, 640x480 fallback
//	c := camfx.New()
//
//	// Host-driven refresh, frames exported to disk
//	c := camfx.New(camfx.WithClock(vsync), camfx.WithSink(writer))
type Option func(*options)

type options struct {
	width, height int
	refreshRate   float64
	clock         Clock
	sinks         []Sink
	tickTimeout   time.Duration
}

func defaultOptions() options {
	return options{
		width:       DefaultWidth,
		height:      DefaultHeight,
		refreshRate: DefaultRefreshRate,
	}
}

// WithDefaultSize sets the canvas size used when the source reports
// zero dimensions. Non-positive values are ignored.
func WithDefaultSize(width, height int) Option {
	return func(o *options) {
		if width > 0 && height > 0 {
			o.width, o.height = width, height
		}
	}
}

// WithRefreshRate sets the rate of the refresh clock created by Run.
func WithRefreshRate(hz float64) Option {
	return func(o *options) {
		if hz > 0 {
			o.refreshRate = hz
		}
	}
}

// WithClock makes Run use c instead of a ticker at the refresh rate.
// Run stops the clock when it returns.
func WithClock(c Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithSink registers a sink that receives every committed frame and every
// dropped-tick overlay redraw.
func WithSink(s Sink) Option {
	return func(o *options) {
		if s != nil {
			o.sinks = append(o.sinks, s)
		}
	}
}

// WithTickTimeout bounds the duration of a single composite. A composite
// running longer is cancelled and counted as a failed tick. Zero (the
// default) means no bound: a stalled filter starves later ticks.
func WithTickTimeout(d time.Duration) Option {
	return func(o *options) {
		o.tickTimeout = d
	}
}
