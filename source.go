package camfx

import "image"

// Source is an adapter over a live media stream.
//
// Size reports the native frame dimensions, or 0, 0 while they are unknown.
// Ready is closed once metadata is available and frames can be pulled.
// Frame returns the newest frame; the compositor calls it at most once per
// admitted tick and never retains the result. Frame may return nil when no
// frame has arrived yet.
//
// Concrete adapters live in the source package.
type Source interface {
	Size() (width, height int)
	Ready() <-chan struct{}
	Frame() image.Image
}

// Sink receives every frame committed to the visible surface, and the
// visible surface redrawn with fresh overlays on each dropped tick.
//
// Commit is called with the visible surface locked; the pixmap is only
// valid for the duration of the call.
type Sink interface {
	Commit(frame *Surface) error
}

// SinkFunc adapts an ordinary function into a Sink.
type SinkFunc func(frame *Surface) error

// Commit calls f(frame).
func (f SinkFunc) Commit(frame *Surface) error {
	return f(frame)
}
