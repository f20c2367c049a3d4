// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package filter provides the 2D filters for a camfx chain.
//
// Transform filters rewrite the frame in Apply:
//   - [Passthrough] copies the raw frame (the usual first filter)
//   - [ColorMatrix] applies a 4x5 color matrix ([TerminatorRed], [Sepia], ...)
//   - [Noise] strokes random dashed white lines
//
// Overlay filters draw in AfterRedraw so they stay live on dropped ticks:
//   - [VolumeMeter] draws the audio level bar from an injected audio stream
//   - [Face] draws the latest bounding box reported by a [Detector]
//
// Filters that own goroutines ([VolumeMeter], [Face]) must be closed by
// their owner; the compositor does not close them.
package filter
