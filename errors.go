package camfx

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceNotBound is returned by Tick when no source has been attached.
	// The render loop logs it and keeps waiting for a source.
	ErrSourceNotBound = errors.New("camfx: source not bound")

	// ErrMissingRenderingBackend is returned when a GPU-backed filter is
	// initialized without a rendering backend. Such filters are never registered.
	ErrMissingRenderingBackend = errors.New("camfx: missing rendering backend")

	// ErrMissingDetectionBackend is returned by the face filter when it has no
	// detection collaborator.
	ErrMissingDetectionBackend = errors.New("camfx: missing detection backend")

	// ErrClosed is returned when operations are attempted on a closed compositor.
	ErrClosed = errors.New("camfx: compositor is closed")

	// ErrInvalidDimensions is returned when width or height is not positive.
	ErrInvalidDimensions = errors.New("camfx: invalid dimensions")
)

// FilterError reports a filter whose Apply failed or panicked.
// The tick that ran it is abandoned; the render loop continues.
type FilterError struct {
	// Index is the position of the filter in the chain.
	Index int

	// Name identifies the filter in logs.
	Name string

	// Err is the underlying failure.
	Err error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("camfx: filter %d (%s) failed: %v", e.Index, e.Name, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}
