// Package camfx composites live video frames through a chain of effects.
//
// # Overview
//
// A [Compositor] pulls the newest frame from a [Source] once per display
// refresh, runs it through the registered filters and shows the result on
// a visible [Surface]. At most one frame is being composited at any time:
// refreshes that arrive while a composite is in flight are dropped, not
// queued, so a slow filter lowers the frame rate instead of growing latency.
//
// # Quick Start
//
//	c := camfx.New()
//	defer c.Close()
//
//	c.AttachSource(source.NewStill(source.TestPattern(640, 480)))
//	c.AddFilter(filter.NewPassthrough())
//	c.AddFilter(filter.TerminatorRed())
//	if err := c.AddFilter3D(gpu.NewDistortion(gpu.NewSoftwareBackend())); err != nil {
//	    log.Fatal(err)
//	}
//
//	c.Run(ctx)
//
// # Buffers
//
// The compositor owns four surfaces:
//   - the source buffer holds the raw frame of the current tick
//   - the working buffer is where the chain assembles the frame
//   - the committed copy keeps the last finished working buffer
//   - the visible surface is the committed copy, plus overlays on dropped
//     ticks
//
// # Filters
//
// The first filter reads the source buffer and writes the working buffer;
// every later filter transforms the working buffer in place. Before its
// Apply, each later filter's AfterRedraw draws its overlay on the working
// buffer. On dropped ticks the visible surface is reset to the committed copy
// and every AfterRedraw draws on it instead, so overlays keep moving while a
// slow filter runs.
//
// Filters backed by a GPU render target implement [GPUFilter] and are
// registered with [Compositor.AddFilter3D], which sizes the target and keeps
// it in step with every resize.
//
// An error or panic in Apply abandons the tick; it is logged, counted in
// [Stats] and the loop continues.
//
// # Sub-packages
//
//   - filter: color matrix, noise, volume meter and face box filters
//   - gpu: the GPU bridge, scene, shader programs and the distortion filter
//   - source: still image, push stream, pion reader and directory sources
//   - present: a sink showing committed frames in a gogpu window
//
// # Logging
//
// camfx is silent by default. Use [SetLogger] to enable structured logging.
package camfx
