// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package gpu provides the GPU bridge used by 3D filters.
//
// A Bridge uploads the working frame as a texture, draws it on a sprite
// covering the camera view with a shader Program, and reads the rendered
// target back. Rendering goes through a Backend; SoftwareBackend shades on
// the CPU and can validate programs against a wgpu HAL device. Backends
// are registered by name; [Open] returns a fresh instance.
//
//	f := gpu.NewDistortion(gpu.NewSoftwareBackend())
//	if err := compositor.AddFilter3D(f); err != nil {
//	    log.Fatal(err)
//	}
package gpu
