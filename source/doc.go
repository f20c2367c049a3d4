// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package source provides camfx.Source adapters.
//
//   - [Still] serves one fixed image.
//   - [Stream] is fed frames by a producer goroutine; the newest frame wins.
//   - [ReaderSource] pumps a pion mediadevices video.Reader into a Stream.
//   - [Dir] watches a directory and streams each image written into it.
package source
