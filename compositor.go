package camfx

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Compositor owns the render loop and the frame buffers.
//
// Every tick it pulls the newest frame from the attached Source, runs the
// filter chain over it and, on the following tick, blits the result onto the
// visible surface. At most one composite is in flight: the admission gate is a
// semaphore of size 1 acquired when a tick starts compositing and released
// after the blit. Ticks that find the gate taken are dropped, not queued, but
// still drive every filter's overlay hook: the visible surface is restored
// from the last committed frame, redrawn and handed to the sinks.
//
// Tick, Resize, AddFilter and the accessors are safe for concurrent use.
type Compositor struct {
	id   string
	opts options

	mu       sync.Mutex // guards the fields below
	source   Source
	adopted  bool // native source size adopted after Ready
	chain    chain
	pending  bool // a finished composite awaits its blit
	closed   bool
	stopLoop context.CancelFunc

	gate     *semaphore.Weighted
	finished chan struct{} // signalled when a composite goroutine ends
	wg       sync.WaitGroup

	// srcBuf and working are touched only by the holder of gate.
	srcBuf  *Surface
	working *Surface

	visMu     sync.Mutex // guards visible and committed
	visible   *Surface
	committed *Surface // last blitted composite, without dropped-tick overlays

	ctx    context.Context // lifetime of composite goroutines
	cancel context.CancelFunc

	stats counters
}

// New creates a compositor with no source and an empty chain.
func New(opts ...Option) *Compositor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Compositor{
		id:        uuid.NewString(),
		opts:      o,
		gate:      semaphore.NewWeighted(1),
		finished:  make(chan struct{}, 1),
		srcBuf:    NewSurface(o.width, o.height),
		working:   NewSurface(o.width, o.height),
		visible:   NewSurface(o.width, o.height),
		committed: NewSurface(o.width, o.height),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// ID returns the compositor instance id used in log records.
func (c *Compositor) ID() string {
	return c.id
}

// AttachSource binds src and sizes every buffer to its native resolution,
// or to the default size while the source reports none. Compositing starts
// on the first tick after src.Ready() is closed.
func (c *Compositor) AttachSource(src Source) error {
	if src == nil {
		return ErrSourceNotBound
	}
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.mu.Unlock()

	width, height := src.Size()
	if width <= 0 || height <= 0 {
		width, height = c.opts.width, c.opts.height
	}
	if err := c.Resize(context.Background(), width, height); err != nil {
		return err
	}

	c.mu.Lock()
	c.source = src
	c.adopted = false
	c.mu.Unlock()

	Logger().Info("camfx: source attached", "compositor", c.id, "width", width, "height", height)
	return nil
}

// AddFilter appends f to the chain. It takes effect from the next tick.
func (c *Compositor) AddFilter(f Filter) {
	c.register(entry{filter: f, name: filterName(f)})
}

// AddFilter3D initializes a GPU-backed filter at the current canvas size and
// appends it to the chain. If Init fails the filter is not registered.
//
// The admission gate is held from Init to registration so a concurrent
// Resize either precedes Init or reaches the new filter. AddFilter3D waits
// for an in-flight composite and returns ErrClosed once Close is called.
func (c *Compositor) AddFilter3D(f GPUFilter) error {
	if err := c.acquire(c.ctx); err != nil {
		return ErrClosed
	}
	defer c.gate.Release(1)
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}

	width, height := c.Size()
	name := filterName(f)
	propagateLogger(f, Logger())
	if err := f.Init(width, height); err != nil {
		return fmt.Errorf("camfx: init %s: %w", name, err)
	}
	c.register(entry{
		filter: f,
		name:   name,
		caps:   CapResize | CapGPU,
		resize: f.Resize,
		close:  f.Close,
	})
	return nil
}

func (c *Compositor) register(e entry) {
	c.mu.Lock()
	c.chain.append(e)
	n := c.chain.len()
	c.mu.Unlock()
	Logger().Info("camfx: filter registered", "compositor", c.id, "filter", e.name, "index", n-1, "caps", e.caps)
}

// Filters returns the number of registered filters.
func (c *Compositor) Filters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chain.len()
}

// Size returns the current canvas dimensions.
func (c *Compositor) Size() (width, height int) {
	c.visMu.Lock()
	defer c.visMu.Unlock()
	return c.visible.Size()
}

// Tick runs one iteration of the render loop.
//
// It returns ErrSourceNotBound when no source is attached and ErrClosed after
// Close. Filter failures never surface here: the tick is abandoned, logged
// and counted in Stats.
func (c *Compositor) Tick(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	src := c.source
	entries := c.chain.snapshot()
	c.mu.Unlock()

	if src == nil {
		return ErrSourceNotBound
	}
	c.stats.ticks.Add(1)

	select {
	case <-src.Ready():
	default:
		return nil
	}

	c.commitPending()

	if !c.gate.TryAcquire(1) {
		c.stats.dropped.Add(1)
		Logger().Debug("camfx: composite in flight, tick dropped", "compositor", c.id)
		c.redrawVisible(entries)
		return nil
	}

	if err := c.adoptSourceSize(src); err != nil {
		c.gate.Release(1)
		return err
	}

	frame := src.Frame()
	if frame == nil {
		c.gate.Release(1)
		return nil
	}
	c.srcBuf.DrawImage(frame)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.gate.Release(1)
		return ErrClosed
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go c.composite(entries)
	return nil
}

// adoptSourceSize resizes the buffers to the source's native size the first
// time it is known. The caller holds the gate.
func (c *Compositor) adoptSourceSize(src Source) error {
	c.mu.Lock()
	if c.adopted {
		c.mu.Unlock()
		return nil
	}
	c.adopted = true
	c.mu.Unlock()

	width, height := src.Size()
	if width <= 0 || height <= 0 {
		return nil
	}
	if cw, ch := c.Size(); cw == width && ch == height {
		return nil
	}
	return c.resizeLocked(width, height)
}

// composite runs the chain for one admitted tick. The gate is held on entry;
// it is released here on failure, or by the blit on the next tick.
func (c *Compositor) composite(entries []entry) {
	defer func() {
		select {
		case c.finished <- struct{}{}:
		default:
		}
		c.wg.Done()
	}()

	ctx := c.ctx
	if c.opts.tickTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.tickTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := run(ctx, entries, c.working, c.srcBuf); err != nil {
		c.stats.failed.Add(1)
		Logger().Warn("camfx: tick abandoned", "compositor", c.id, "err", err)
		c.gate.Release(1)
		return
	}
	elapsed := time.Since(start)
	c.stats.composites.Add(1)
	c.stats.lastComposite.Store(int64(elapsed))

	c.mu.Lock()
	c.pending = true
	c.mu.Unlock()
	Logger().Debug("camfx: composite done", "compositor", c.id, "filters", len(entries), "elapsed", elapsed)
}

// commitPending blits a finished composite onto the visible surface and
// releases the gate. It is a no-op when nothing is pending.
func (c *Compositor) commitPending() {
	c.mu.Lock()
	if !c.pending {
		c.mu.Unlock()
		return
	}
	c.pending = false
	c.mu.Unlock()

	c.visMu.Lock()
	c.committed.CopyFrom(c.working)
	c.visible.CopyFrom(c.committed)
	c.commitSinks()
	c.visMu.Unlock()

	c.stats.commits.Add(1)
	c.gate.Release(1)
}

// redrawVisible restores the visible surface to the last committed frame,
// runs every overlay hook on it and hands the result to the sinks.
func (c *Compositor) redrawVisible(entries []entry) {
	c.visMu.Lock()
	defer c.visMu.Unlock()
	c.visible.CopyFrom(c.committed)
	redraw(entries, c.visible)
	c.commitSinks()
}

// commitSinks hands the visible surface to every sink. The caller holds visMu.
func (c *Compositor) commitSinks() {
	for _, s := range c.opts.sinks {
		if err := s.Commit(c.visible); err != nil {
			Logger().Warn("camfx: sink commit failed", "compositor", c.id, "err", err)
		}
	}
}

// Resize resizes the source buffer, the working buffer and the visible
// surface, then propagates the new size to every resize-aware filter.
// It waits for an in-flight composite to finish and commits its result first.
func (c *Compositor) Resize(ctx context.Context, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, width, height)
	}
	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.gate.Release(1)
	return c.resizeLocked(width, height)
}

// acquire takes the gate, committing a finished composite if one blocks it.
func (c *Compositor) acquire(ctx context.Context) error {
	for {
		if c.gate.TryAcquire(1) {
			return nil
		}
		c.commitPending()
		if c.gate.TryAcquire(1) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.finished:
		case <-time.After(time.Millisecond):
		}
	}
}

// resizeLocked resizes every buffer. The caller holds the gate.
func (c *Compositor) resizeLocked(width, height int) error {
	if err := c.srcBuf.Resize(width, height); err != nil {
		return err
	}
	if err := c.working.Resize(width, height); err != nil {
		return err
	}
	c.visMu.Lock()
	err := c.visible.Resize(width, height)
	if err == nil {
		err = c.committed.Resize(width, height)
	}
	c.visMu.Unlock()
	if err != nil {
		return err
	}

	c.mu.Lock()
	resizers := c.chain.with(CapResize)
	c.mu.Unlock()

	var errs []error
	for _, e := range resizers {
		if rerr := e.resize(width, height); rerr != nil {
			errs = append(errs, fmt.Errorf("camfx: resize %s: %w", e.name, rerr))
		}
	}
	Logger().Info("camfx: resized", "compositor", c.id, "width", width, "height", height, "filters", len(resizers))
	return errors.Join(errs...)
}

// Run drives Tick from the refresh clock until ctx is done or the compositor
// is closed. Per-tick errors are logged and the loop continues.
func (c *Compositor) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.stopLoop = cancel
	c.mu.Unlock()

	clock := c.opts.clock
	if clock == nil {
		clock = NewRefreshClock(c.opts.refreshRate)
	}
	defer clock.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.C():
			err := c.Tick(ctx)
			switch {
			case err == nil:
			case errors.Is(err, ErrClosed):
				return nil
			case errors.Is(err, ErrSourceNotBound):
				Logger().Debug("camfx: waiting for source", "compositor", c.id)
			default:
				Logger().Warn("camfx: tick failed", "compositor", c.id, "err", err)
			}
		}
	}
}

// Wait blocks until no composite is running. A finished composite may still
// be waiting for its blit on the next tick.
func (c *Compositor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Visible returns a copy of the visible surface.
func (c *Compositor) Visible() *image.RGBA {
	c.visMu.Lock()
	defer c.visMu.Unlock()
	return c.visible.Snapshot()
}

// Working returns a copy of the working buffer. While a composite is in
// flight the copy may show a partially composited frame.
func (c *Compositor) Working() *image.RGBA {
	return c.working.Snapshot()
}

// WorkingWrites returns the number of writes made to the working buffer.
func (c *Compositor) WorkingWrites() uint64 {
	return c.working.Writes()
}

// Stats returns a snapshot of the render loop counters.
func (c *Compositor) Stats() Stats {
	return c.stats.snapshot()
}

// Close stops the render loop, cancels any in-flight composite, waits for it
// and releases GPU filters. Close is idempotent.
func (c *Compositor) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	stop := c.stopLoop
	c.mu.Unlock()

	if stop != nil {
		stop()
	}
	c.cancel()
	c.wg.Wait()

	c.mu.Lock()
	closers := c.chain.with(CapGPU)
	c.mu.Unlock()

	var errs []error
	for _, e := range closers {
		if e.close == nil {
			continue
		}
		if err := e.close(); err != nil {
			Logger().Warn("camfx: filter close failed", "filter", e.name, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
