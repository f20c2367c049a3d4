// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package filter

import (
	"sync"
	"testing"
	"time"

	"github.com/gogpu/camfx"
)

// solidSurface returns an opaque surface filled with one color.
func solidSurface(t *testing.T, width, height int, r, g, b uint8) *camfx.Surface {
	t.Helper()
	s := camfx.NewSurface(width, height)
	s.Update(func(pix []uint8, _, _ int) {
		for i := 0; i < len(pix); i += 4 {
			pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, 255
		}
	})
	return s
}

func pixelAt(s *camfx.Surface, x, y int) [4]uint8 {
	pix := s.Pix()
	i := (y*s.Width() + x) * 4
	return [4]uint8{pix[i], pix[i+1], pix[i+2], pix[i+3]}
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
