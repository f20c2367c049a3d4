// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package filter

import (
	"context"

	"github.com/gogpu/camfx"
)

// Passthrough copies src into dst unchanged.
type Passthrough struct {
	camfx.NoOverlay
}

// NewPassthrough creates a passthrough filter.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// Name returns "passthrough".
func (*Passthrough) Name() string {
	return "passthrough"
}

// Apply copies src into dst.
func (*Passthrough) Apply(_ context.Context, dst, src *camfx.Surface) error {
	base(dst, src)
	return nil
}

// base makes dst hold the frame in src. Filters that transform in place or
// only draw on top call it first so they also work as the first filter.
func base(dst, src *camfx.Surface) {
	if dst != src {
		dst.CopyFrom(src)
	}
}
