// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package source

import (
	"image"
	"sync"
	"sync/atomic"

	"github.com/anthonynsimon/bild/clone"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
)

// Stream is a live source fed by Push.
//
// It keeps only the newest frame. A frame overwritten before the compositor
// pulled it is counted as dropped. The stream becomes ready on SetMetadata
// or on the first pushed frame, whichever comes first.
type Stream struct {
	mu     sync.Mutex // guards the fields below
	buf    *video.FrameBuffer
	has    bool
	pulled bool
	meta   prop.Video
	closed bool

	ready     chan struct{}
	readyOnce sync.Once

	frames  atomic.Uint64
	dropped atomic.Uint64
}

// NewStream creates an empty stream.
func NewStream() *Stream {
	return &Stream{
		buf:   video.NewFrameBuffer(0),
		ready: make(chan struct{}),
	}
}

// SetMetadata records the stream properties and marks the stream ready.
func (s *Stream) SetMetadata(p prop.Video) {
	s.mu.Lock()
	s.meta = p
	s.mu.Unlock()
	s.markReady()
}

// Metadata returns the stream properties.
func (s *Stream) Metadata() prop.Video {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

func (s *Stream) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Push stores a copy of img as the newest frame. Pushes after Close are
// ignored.
func (s *Stream) Push(img image.Image) {
	if img == nil {
		return
	}
	switch img.(type) {
	case *image.RGBA, *image.YCbCr:
	default:
		img = clone.AsRGBA(img)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.has && !s.pulled {
		s.dropped.Add(1)
	}
	s.buf.StoreCopy(img)
	s.has = true
	s.pulled = false
	if s.meta.Width == 0 || s.meta.Height == 0 {
		b := img.Bounds()
		s.meta.Width, s.meta.Height = b.Dx(), b.Dy()
	}
	s.mu.Unlock()

	s.frames.Add(1)
	s.markReady()
}

// Size returns the metadata dimensions, or 0, 0 while unknown.
func (s *Stream) Size() (width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta.Width, s.meta.Height
}

// Ready is closed once metadata or a frame has arrived.
func (s *Stream) Ready() <-chan struct{} {
	return s.ready
}

// Frame returns a copy of the newest frame, or nil before the first push.
func (s *Stream) Frame() image.Image {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.has {
		return nil
	}
	s.pulled = true
	out := video.NewFrameBuffer(0)
	out.StoreCopy(s.buf.Load())
	return out.Load()
}

// Stats returns the number of pushed frames and of frames overwritten
// before being pulled.
func (s *Stream) Stats() (frames, dropped uint64) {
	return s.frames.Load(), s.dropped.Load()
}

// Close stops accepting frames. The last frame stays available.
func (s *Stream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
