package camfx

import (
	"context"
	"fmt"
)

// Filter is one visual or audio transformation in the chain.
//
// Apply transforms src into dst. The first filter in the chain receives the
// raw source frame as src and the working buffer as dst; every later filter
// receives the working buffer as both. Apply may block (for example while a
// GPU round trip completes) and must return promptly once ctx is done.
//
// AfterRedraw draws overlay-only effects. It is called against the working
// buffer just before the filter's own Apply, and against the visible surface
// on ticks where a composite is already in flight. It may run concurrently
// with Apply of the same filter; filters with mutable state guard it.
type Filter interface {
	Apply(ctx context.Context, dst, src *Surface) error
	AfterRedraw(dc *Surface)
}

// GPUFilter is a filter backed by a GPU render target.
//
// Init allocates the render target sized to the canvas and is called by
// AddFilter3D before registration. Resize is called on every compositor
// resize. Close releases GPU resources and is called when the compositor closes.
type GPUFilter interface {
	Filter
	Init(width, height int) error
	Resize(width, height int) error
	Close() error
}

// NoOverlay provides a no-op AfterRedraw for filters without overlays.
// Embed it in a filter struct.
type NoOverlay struct{}

// AfterRedraw does nothing.
func (NoOverlay) AfterRedraw(*Surface) {}

// FilterFunc adapts an ordinary function into a Filter without overlay.
type FilterFunc func(ctx context.Context, dst, src *Surface) error

// Apply calls f(ctx, dst, src).
func (f FilterFunc) Apply(ctx context.Context, dst, src *Surface) error {
	return f(ctx, dst, src)
}

// AfterRedraw does nothing.
func (FilterFunc) AfterRedraw(*Surface) {}

// Capability describes what a registered filter takes part in besides
// Apply and AfterRedraw.
type Capability uint32

const (
	// CapResize marks filters that receive every compositor resize.
	CapResize Capability = 1 << iota

	// CapGPU marks filters backed by a GPU render target.
	CapGPU
)

// Has reports whether c includes all bits of other.
func (c Capability) Has(other Capability) bool {
	return c&other == other
}

func (c Capability) String() string {
	switch c {
	case 0:
		return "none"
	case CapResize:
		return "resize"
	case CapGPU:
		return "gpu"
	case CapResize | CapGPU:
		return "resize|gpu"
	default:
		return fmt.Sprintf("Capability(%d)", uint32(c))
	}
}

// namer is implemented by filters that report a name for logs and errors.
type namer interface {
	Name() string
}

func filterName(f Filter) string {
	if n, ok := f.(namer); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", f)
}
