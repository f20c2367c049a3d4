package main

import (
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/gogpu/camfx"
)

// frameWriter is a sink exporting every nth committed frame.
type frameWriter struct {
	dir     string
	format  string
	quality int
	every   uint64

	commits atomic.Uint64
	written atomic.Uint64
}

func newFrameWriter(dir, format string, quality, every int) (*frameWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	if every < 1 {
		every = 1
	}
	return &frameWriter{dir: dir, format: format, quality: quality, every: uint64(every)}, nil
}

func (w *frameWriter) Commit(frame *camfx.Surface) error {
	n := w.commits.Add(1)
	if (n-1)%w.every != 0 {
		return nil
	}

	var err error
	switch w.format {
	case "jpeg", "jpg":
		err = w.writeJPEG(filepath.Join(w.dir, fmt.Sprintf("frame-%05d.jpg", n)), frame)
	default:
		err = frame.Pixmap().SavePNG(filepath.Join(w.dir, fmt.Sprintf("frame-%05d.png", n)))
	}
	if err != nil {
		return err
	}
	w.written.Add(1)
	return nil
}

func (w *frameWriter) writeJPEG(path string, frame *camfx.Surface) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, frame.Snapshot(), &jpeg.Options{Quality: w.quality}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
