// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/gogpu/camfx"
)

// imageExts lists the file extensions Dir decodes.
var imageExts = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// IsImage reports whether path has an extension Dir decodes.
func IsImage(path string) bool {
	return slices.Contains(imageExts, strings.ToLower(filepath.Ext(path)))
}

// Dir is a source fed by image files written into a directory.
//
// On Run the newest existing image (by name) is pushed first; afterwards
// every image created, written or renamed into the directory is decoded
// and pushed. Files that fail to decode, typically half-written ones, are
// skipped until their next write event.
type Dir struct {
	*Stream
	path string
}

// NewDir creates a directory source. Call Run to start watching.
func NewDir(path string) *Dir {
	return &Dir{Stream: NewStream(), path: path}
}

// Path returns the watched directory.
func (d *Dir) Path() string {
	return d.path
}

// Run watches the directory until ctx is done.
func (d *Dir) Run(ctx context.Context) error {
	defer d.Close()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("source: watch %s: %w", d.path, err)
	}
	defer watcher.Close()

	if err := watcher.Add(d.path); err != nil {
		return fmt.Errorf("source: watch %s: %w", d.path, err)
	}
	d.pushNewest()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if IsImage(ev.Name) {
				d.load(ev.Name)
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			camfx.Logger().Warn("source: watcher error", "dir", d.path, "err", werr)
		}
	}
}

func (d *Dir) pushNewest() {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		camfx.Logger().Warn("source: read dir", "dir", d.path, "err", err)
		return
	}
	var newest string
	for _, e := range entries {
		if !e.IsDir() && IsImage(e.Name()) && e.Name() > newest {
			newest = e.Name()
		}
	}
	if newest != "" {
		d.load(filepath.Join(d.path, newest))
	}
}

func (d *Dir) load(path string) {
	img, err := decodeFile(path)
	if err != nil {
		camfx.Logger().Debug("source: skipping file", "path", path, "err", err)
		return
	}
	d.Push(img)
	camfx.Logger().Debug("source: frame loaded", "path", path)
}
