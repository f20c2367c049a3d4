// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package source

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gogpu/camfx"
	"github.com/pion/mediadevices/pkg/io/video"
	"github.com/pion/mediadevices/pkg/prop"
)

// ReaderSource pulls frames from a mediadevices video reader into a Stream.
type ReaderSource struct {
	*Stream
	reader video.Reader
}

// FromReader wraps r. The stream is ready immediately when p carries a
// size, otherwise on the first frame. Call Run to start pulling.
func FromReader(r video.Reader, p prop.Video) *ReaderSource {
	s := &ReaderSource{Stream: NewStream(), reader: r}
	if p.Width > 0 && p.Height > 0 {
		s.SetMetadata(p)
	}
	return s
}

// Run reads frames until ctx is done or the reader is exhausted. It returns
// nil on io.EOF and on cancellation.
func (s *ReaderSource) Run(ctx context.Context) error {
	defer s.Close()
	for {
		if ctx.Err() != nil {
			return nil
		}
		img, release, err := s.reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				camfx.Logger().Info("source: reader exhausted")
				return nil
			}
			return fmt.Errorf("source: read frame: %w", err)
		}
		s.Push(img)
		if release != nil {
			release()
		}
	}
}
