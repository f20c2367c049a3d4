package camfx

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gg"
)

// =============================================================================
// Test collaborators
// =============================================================================

// patternImage returns an opaque image whose pixels encode their position.
func patternImage(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(x), uint8(y), uint8(x + y), 255})
		}
	}
	return img
}

type testSource struct {
	img   image.Image
	ready chan struct{}
	pulls atomic.Int32
}

func newTestSource(width, height int) *testSource {
	return newImageSource(patternImage(width, height))
}

func newImageSource(img image.Image) *testSource {
	s := newPendingSource(img)
	close(s.ready)
	return s
}

// newPendingSource returns a source whose Ready channel is still open.
func newPendingSource(img image.Image) *testSource {
	return &testSource{img: img, ready: make(chan struct{})}
}

func (s *testSource) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *testSource) Ready() <-chan struct{} { return s.ready }

func (s *testSource) Frame() image.Image {
	s.pulls.Add(1)
	return s.img
}

// sizelessSource never reports its dimensions.
type sizelessSource struct {
	*testSource
}

func (sizelessSource) Size() (int, int) { return 0, 0 }

type testGPUFilter struct {
	NoOverlay

	initErr   error
	resizeErr error
	closeErr  error

	mu            sync.Mutex
	width, height int
	resizes       int
	closed        bool
}

func (f *testGPUFilter) Init(width, height int) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.width, f.height = width, height
	return nil
}

func (f *testGPUFilter) Resize(width, height int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.width, f.height = width, height
	f.resizes++
	return f.resizeErr
}

func (f *testGPUFilter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return f.closeErr
}

func (f *testGPUFilter) Apply(_ context.Context, dst, src *Surface) error {
	dst.CopyFrom(src)
	return nil
}

func (f *testGPUFilter) size() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.width, f.height
}

// blockingFilter never finishes Apply before its context is done.
type blockingFilter struct {
	NoOverlay
	started chan struct{}
	once    sync.Once
}

func newBlockingFilter() *blockingFilter {
	return &blockingFilter{started: make(chan struct{})}
}

func (b *blockingFilter) Apply(ctx context.Context, _, _ *Surface) error {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return ctx.Err()
}

// overlayCounter copies its input and counts overlay hook calls.
type overlayCounter struct {
	calls atomic.Int32
}

func (o *overlayCounter) Apply(_ context.Context, dst, src *Surface) error {
	dst.CopyFrom(src)
	return nil
}

func (o *overlayCounter) AfterRedraw(*Surface) { o.calls.Add(1) }

var copyFilter = FilterFunc(func(_ context.Context, dst, src *Surface) error {
	dst.CopyFrom(src)
	return nil
})

// settle runs one tick and waits for the composite it started.
func settle(t *testing.T, c *Compositor) {
	t.Helper()
	ctx := context.Background()
	if err := c.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
}

func newCompositor(t *testing.T, opts ...Option) *Compositor {
	t.Helper()
	c := New(opts...)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// =============================================================================
// Chain behavior
// =============================================================================

func TestRegistrationOrder(t *testing.T) {
	c := newCompositor(t)
	if err := c.AttachSource(newTestSource(8, 8)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}

	var mu sync.Mutex
	var order []int
	const n = 6
	for i := 0; i < n; i++ {
		c.AddFilter(FilterFunc(func(_ context.Context, dst, src *Surface) error {
			dst.CopyFrom(src)
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	if c.Filters() != n {
		t.Fatalf("Filters() = %d, want %d", c.Filters(), n)
	}

	settle(t, c)

	mu.Lock()
	defer mu.Unlock()
	if len(order) != n {
		t.Fatalf("ran %d filters, want %d", len(order), n)
	}
	for i, got := range order {
		if got != i {
			t.Errorf("order[%d] = %d, want %d", i, got, i)
		}
	}
}

func TestNeverResolvingFilter(t *testing.T) {
	c := newCompositor(t)
	if err := c.AttachSource(newTestSource(8, 8)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	first, last := &overlayCounter{}, &overlayCounter{}
	blocker := newBlockingFilter()
	c.AddFilter(first)
	c.AddFilter(blocker)
	c.AddFilter(last)

	ctx := context.Background()
	if err := c.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	<-blocker.started
	writes := c.WorkingWrites()

	const skipped = 3
	for i := 0; i < skipped; i++ {
		if err := c.Tick(ctx); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
	}

	if got := c.WorkingWrites(); got != writes {
		t.Errorf("working buffer written %d times while blocked", got-writes)
	}
	if got := first.calls.Load(); got != skipped {
		t.Errorf("first filter overlay calls = %d, want %d", got, skipped)
	}
	if got := last.calls.Load(); got != skipped {
		t.Errorf("last filter overlay calls = %d, want %d", got, skipped)
	}
	stats := c.Stats()
	if stats.Dropped != skipped {
		t.Errorf("Dropped = %d, want %d", stats.Dropped, skipped)
	}
	if stats.Commits != 0 {
		t.Errorf("Commits = %d, want 0", stats.Commits)
	}
}

// tintOverlay draws a translucent yellow square in its overlay hook.
type tintOverlay struct{}

func (tintOverlay) Apply(_ context.Context, dst, src *Surface) error {
	dst.CopyFrom(src)
	return nil
}

func (tintOverlay) AfterRedraw(s *Surface) {
	s.Draw(func(dc *gg.Context) {
		dc.SetRGBA(1, 1, 0, 0.3)
		dc.DrawRectangle(0, 0, 4, 4)
		_ = dc.Fill()
	})
}

func TestDroppedTicksDoNotAccumulateOverlays(t *testing.T) {
	var mu sync.Mutex
	var seen [][4]uint8
	sink := SinkFunc(func(frame *Surface) error {
		pix := frame.Pix()
		i := (1*frame.Width() + 1) * 4
		mu.Lock()
		seen = append(seen, [4]uint8{pix[i], pix[i+1], pix[i+2], pix[i+3]})
		mu.Unlock()
		return nil
	})

	c := newCompositor(t, WithSink(sink))
	if err := c.AttachSource(newTestSource(8, 8)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	blocker := newBlockingFilter()
	c.AddFilter(copyFilter)
	c.AddFilter(tintOverlay{})
	c.AddFilter(blocker)

	ctx := context.Background()
	if err := c.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	<-blocker.started

	const drops = 8
	var first color.RGBA
	for i := 0; i < drops; i++ {
		if err := c.Tick(ctx); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		got := c.Visible().RGBAAt(1, 1)
		if i == 0 {
			first = got
			if got.A == 0 || got.A == 255 {
				t.Fatalf("overlay pixel = %v, want a translucent tint", got)
			}
			continue
		}
		if got != first {
			t.Errorf("drop %d: visible pixel = %v, want %v", i, got, first)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != drops {
		t.Fatalf("sink received %d frames, want %d", len(seen), drops)
	}
	for i, px := range seen {
		if px != [4]uint8{first.R, first.G, first.B, first.A} {
			t.Errorf("sink frame %d pixel = %v, want %v", i, px, first)
		}
	}
	if stats := c.Stats(); stats.Commits != 0 || stats.Dropped != drops {
		t.Errorf("Commits = %d, Dropped = %d, want 0 and %d", stats.Commits, stats.Dropped, drops)
	}
}

// stallAfterFirst copies its input on the first call and blocks every later
// call until the composite is cancelled.
type stallAfterFirst struct {
	NoOverlay
	calls   atomic.Int32
	stalled chan struct{}
	once    sync.Once
}

func (f *stallAfterFirst) Apply(ctx context.Context, dst, src *Surface) error {
	if f.calls.Add(1) == 1 {
		dst.CopyFrom(src)
		return nil
	}
	f.once.Do(func() { close(f.stalled) })
	<-ctx.Done()
	return ctx.Err()
}

func TestDroppedTickRestoresCommittedFrame(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	c := newCompositor(t)
	if err := c.AttachSource(newImageSource(img)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	stall := &stallAfterFirst{stalled: make(chan struct{})}
	c.AddFilter(stall)
	c.AddFilter(tintOverlay{})

	ctx := context.Background()
	settle(t, c)
	// Commits the first composite and starts a second one that stalls.
	if err := c.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	<-stall.stalled
	committed := c.Visible().RGBAAt(2, 2)

	if err := c.Tick(ctx); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	want := c.Visible().RGBAAt(2, 2)
	if want == committed {
		t.Fatal("overlay missing from visible surface after a dropped tick")
	}
	for i := 0; i < 4; i++ {
		if err := c.Tick(ctx); err != nil {
			t.Fatalf("Tick failed: %v", err)
		}
		if got := c.Visible().RGBAAt(2, 2); got != want {
			t.Errorf("drop %d: visible pixel = %v, want %v", i, got, want)
		}
	}
	if stats := c.Stats(); stats.Commits != 1 || stats.Dropped != 5 {
		t.Errorf("Commits = %d, Dropped = %d, want 1 and 5", stats.Commits, stats.Dropped)
	}
}

func TestEmptyChainIdentity(t *testing.T) {
	src := newTestSource(64, 48)
	c := newCompositor(t)
	if err := c.AttachSource(src); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	settle(t, c)
	settle(t, c)

	want := src.img.(*image.RGBA).Pix
	if !bytes.Equal(c.Working().Pix, want) {
		t.Error("working buffer differs from the source frame")
	}
	if !bytes.Equal(c.Visible().Pix, want) {
		t.Error("visible surface differs from the source frame")
	}
}

func TestSourceSizeAdopted(t *testing.T) {
	src := newTestSource(320, 240)
	c := newCompositor(t, WithDefaultSize(100, 100))
	if err := c.AttachSource(src); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	settle(t, c)
	settle(t, c)

	vis := c.Visible()
	if b := vis.Bounds(); b.Dx() != 320 || b.Dy() != 240 {
		t.Fatalf("visible size = %dx%d, want 320x240", b.Dx(), b.Dy())
	}
	if !bytes.Equal(vis.Pix, src.img.(*image.RGBA).Pix) {
		t.Error("visible surface is not a copy of the source frame")
	}
}

func TestSizelessSourceUsesDefault(t *testing.T) {
	c := newCompositor(t, WithDefaultSize(100, 50))
	if err := c.AttachSource(sizelessSource{newTestSource(320, 240)}); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	settle(t, c)
	settle(t, c)

	if b := c.Visible().Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Errorf("visible size = %dx%d, want 100x50", b.Dx(), b.Dy())
	}
}

// overlayProbe records the red channel of the first surface its hook sees.
type overlayProbe struct {
	mu  sync.Mutex
	red []uint8
}

func (p *overlayProbe) Apply(context.Context, *Surface, *Surface) error { return nil }

func (p *overlayProbe) AfterRedraw(dc *Surface) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.red != nil {
		return
	}
	pix := dc.Pix()
	for i := 0; i < len(pix); i += 4 {
		p.red = append(p.red, pix[i])
	}
}

func TestRedOffsetThenOverlay(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.SetRGBA(0, 0, color.RGBA{230, 10, 20, 255})
	img.SetRGBA(1, 0, color.RGBA{100, 10, 20, 255})

	c := newCompositor(t)
	if err := c.AttachSource(newImageSource(img)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	c.AddFilter(FilterFunc(func(_ context.Context, dst, src *Surface) error {
		dst.CopyFrom(src)
		dst.Update(func(pix []uint8, _, _ int) {
			for i := 0; i < len(pix); i += 4 {
				pix[i] = uint8(min(255, int(pix[i])+50))
			}
		})
		return nil
	}))
	probe := &overlayProbe{}
	c.AddFilter(probe)

	settle(t, c)
	settle(t, c)

	want := []uint8{255, 150}
	probe.mu.Lock()
	seen := probe.red
	probe.mu.Unlock()
	if !bytes.Equal(seen, want) {
		t.Errorf("overlay hook saw red %v, want %v", seen, want)
	}
	vis := c.Visible()
	for x, r := range want {
		if got := vis.RGBAAt(x, 0); got != (color.RGBA{r, 10, 20, 255}) {
			t.Errorf("visible(%d, 0) = %v, want {%d 10 20 255}", x, got, r)
		}
	}
}

func TestRunFilterError(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		name   string
		filter Filter
		index  int
		cause  error
	}{
		{"error", FilterFunc(func(context.Context, *Surface, *Surface) error { return boom }), 1, boom},
		{"panic", FilterFunc(func(context.Context, *Surface, *Surface) error { panic("bad pixel") }), 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries := []entry{
				{filter: copyFilter, name: "copy"},
				{filter: tt.filter, name: tt.name},
				{filter: copyFilter, name: "never"},
			}
			err := run(context.Background(), entries, NewSurface(2, 2), NewSurface(2, 2))

			var fe *FilterError
			if !errors.As(err, &fe) {
				t.Fatalf("run = %v, want *FilterError", err)
			}
			if fe.Index != tt.index || fe.Name != tt.name {
				t.Errorf("FilterError = {%d %q}, want {%d %q}", fe.Index, fe.Name, tt.index, tt.name)
			}
			if tt.cause != nil && !errors.Is(err, tt.cause) {
				t.Errorf("run = %v, want it to wrap %v", err, tt.cause)
			}
		})
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	entries := []entry{{filter: copyFilter, name: "copy"}, {filter: copyFilter, name: "second"}}

	err := run(ctx, entries, NewSurface(2, 2), NewSurface(2, 2))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("run = %v, want context.Canceled", err)
	}
}

func TestPanickingFilterAbandonsTick(t *testing.T) {
	c := newCompositor(t)
	if err := c.AttachSource(newTestSource(4, 4)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	before := c.Visible()
	c.AddFilter(copyFilter)
	c.AddFilter(FilterFunc(func(context.Context, *Surface, *Surface) error { panic("bad pixel") }))

	settle(t, c)
	settle(t, c)

	stats := c.Stats()
	if stats.Failed != 2 {
		t.Errorf("Failed = %d, want 2", stats.Failed)
	}
	if stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0: the gate should be released on failure", stats.Dropped)
	}
	if stats.Commits != 0 || stats.Composites != 0 {
		t.Errorf("Commits = %d, Composites = %d, want 0", stats.Commits, stats.Composites)
	}
	if !bytes.Equal(c.Visible().Pix, before.Pix) {
		t.Error("visible surface changed after failed ticks")
	}
}

func TestTickTimeout(t *testing.T) {
	c := newCompositor(t, WithTickTimeout(20*time.Millisecond))
	if err := c.AttachSource(newTestSource(4, 4)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	c.AddFilter(newBlockingFilter())

	settle(t, c)
	settle(t, c)

	stats := c.Stats()
	if stats.Failed != 2 {
		t.Errorf("Failed = %d, want 2", stats.Failed)
	}
	if stats.Dropped != 0 {
		t.Errorf("Dropped = %d, want 0", stats.Dropped)
	}
}

// =============================================================================
// Tick preconditions
// =============================================================================

func TestTickWithoutSource(t *testing.T) {
	c := newCompositor(t)
	if err := c.Tick(context.Background()); !errors.Is(err, ErrSourceNotBound) {
		t.Errorf("Tick = %v, want ErrSourceNotBound", err)
	}
	if err := c.AttachSource(nil); !errors.Is(err, ErrSourceNotBound) {
		t.Errorf("AttachSource(nil) = %v, want ErrSourceNotBound", err)
	}
}

func TestTickWaitsForReady(t *testing.T) {
	src := newPendingSource(patternImage(4, 4))
	c := newCompositor(t)
	if err := c.AttachSource(src); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}

	settle(t, c)
	if src.pulls.Load() != 0 {
		t.Fatal("frame pulled before the source was ready")
	}

	close(src.ready)
	settle(t, c)
	if src.pulls.Load() != 1 {
		t.Errorf("pulls = %d, want 1", src.pulls.Load())
	}
	if c.Stats().Composites != 1 {
		t.Errorf("Composites = %d, want 1", c.Stats().Composites)
	}
}

func TestNilFrameSkipsTick(t *testing.T) {
	c := newCompositor(t)
	if err := c.AttachSource(&nilFrameSource{newTestSource(4, 4)}); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	settle(t, c)
	settle(t, c)
	if c.Stats().Composites != 0 {
		t.Errorf("Composites = %d, want 0", c.Stats().Composites)
	}
}

type nilFrameSource struct {
	*testSource
}

func (*nilFrameSource) Frame() image.Image { return nil }

// =============================================================================
// Commits and sinks
// =============================================================================

func TestDeferredCommit(t *testing.T) {
	var commits atomic.Int32
	failing := SinkFunc(func(*Surface) error { return errors.New("disk full") })
	counting := SinkFunc(func(frame *Surface) error {
		if w, h := frame.Size(); w != 4 || h != 4 {
			t.Errorf("sink frame size = %dx%d, want 4x4", w, h)
		}
		commits.Add(1)
		return nil
	})

	c := newCompositor(t, WithSink(failing), WithSink(counting), WithSink(nil))
	if err := c.AttachSource(newTestSource(4, 4)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}

	settle(t, c)
	if commits.Load() != 0 {
		t.Fatal("frame committed on the tick that composited it")
	}
	settle(t, c)
	settle(t, c)

	if got := commits.Load(); got != 2 {
		t.Errorf("sink commits = %d, want 2", got)
	}
	stats := c.Stats()
	if stats.Ticks != 3 || stats.Composites != 3 || stats.Commits != 2 {
		t.Errorf("Stats = %+v, want 3 ticks, 3 composites, 2 commits", stats)
	}
	if stats.LastComposite <= 0 {
		t.Errorf("LastComposite = %v, want > 0", stats.LastComposite)
	}
}

// =============================================================================
// GPU filters and resize
// =============================================================================

func TestAddFilter3DInitFailure(t *testing.T) {
	c := newCompositor(t)
	f := &testGPUFilter{initErr: ErrMissingRenderingBackend}

	err := c.AddFilter3D(f)
	if !errors.Is(err, ErrMissingRenderingBackend) {
		t.Fatalf("AddFilter3D = %v, want ErrMissingRenderingBackend", err)
	}
	if c.Filters() != 0 {
		t.Errorf("Filters() = %d, want 0", c.Filters())
	}
}

func TestResizePropagates(t *testing.T) {
	c := newCompositor(t, WithDefaultSize(64, 48))
	g1, g2 := &testGPUFilter{}, &testGPUFilter{}
	for _, g := range []*testGPUFilter{g1, g2} {
		if err := c.AddFilter3D(g); err != nil {
			t.Fatalf("AddFilter3D failed: %v", err)
		}
		if w, h := g.size(); w != 64 || h != 48 {
			t.Errorf("init size = %dx%d, want 64x48", w, h)
		}
	}
	c.AddFilter(copyFilter)

	if err := c.Resize(context.Background(), 200, 100); err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	for i, g := range []*testGPUFilter{g1, g2} {
		if w, h := g.size(); w != 200 || h != 100 {
			t.Errorf("filter %d size = %dx%d, want 200x100", i, w, h)
		}
	}
	if w, h := c.Size(); w != 200 || h != 100 {
		t.Errorf("Size() = %dx%d, want 200x100", w, h)
	}
	if b := c.Working().Bounds(); b.Dx() != 200 || b.Dy() != 100 {
		t.Errorf("working size = %dx%d, want 200x100", b.Dx(), b.Dy())
	}
}

// slowInitFilter blocks in Init until release is closed.
type slowInitFilter struct {
	*testGPUFilter
	started chan struct{}
	release chan struct{}
}

func (f *slowInitFilter) Init(width, height int) error {
	close(f.started)
	<-f.release
	return f.testGPUFilter.Init(width, height)
}

func TestAddFilter3DConcurrentResize(t *testing.T) {
	c := newCompositor(t, WithDefaultSize(64, 48))
	f := &slowInitFilter{
		testGPUFilter: &testGPUFilter{},
		started:       make(chan struct{}),
		release:       make(chan struct{}),
	}

	added := make(chan error, 1)
	go func() { added <- c.AddFilter3D(f) }()
	<-f.started

	resized := make(chan error, 1)
	go func() { resized <- c.Resize(context.Background(), 200, 100) }()
	select {
	case err := <-resized:
		t.Fatalf("Resize returned %v while Init was running", err)
	case <-time.After(20 * time.Millisecond):
	}

	close(f.release)
	if err := <-added; err != nil {
		t.Fatalf("AddFilter3D failed: %v", err)
	}
	if err := <-resized; err != nil {
		t.Fatalf("Resize failed: %v", err)
	}
	if w, h := f.size(); w != 200 || h != 100 {
		t.Errorf("filter size = %dx%d, want 200x100", w, h)
	}
}

func TestAddFilter3DAfterClose(t *testing.T) {
	c := New()
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	g := &testGPUFilter{}
	if err := c.AddFilter3D(g); !errors.Is(err, ErrClosed) {
		t.Errorf("AddFilter3D after Close = %v, want ErrClosed", err)
	}
	if c.Filters() != 0 {
		t.Errorf("Filters() = %d, want 0", c.Filters())
	}
}

func TestResizeErrors(t *testing.T) {
	c := newCompositor(t)
	if err := c.Resize(context.Background(), 0, 10); !errors.Is(err, ErrInvalidDimensions) {
		t.Errorf("Resize(0, 10) = %v, want ErrInvalidDimensions", err)
	}

	lost := errors.New("device lost")
	if err := c.AddFilter3D(&testGPUFilter{resizeErr: lost}); err != nil {
		t.Fatalf("AddFilter3D failed: %v", err)
	}
	if err := c.Resize(context.Background(), 32, 32); !errors.Is(err, lost) {
		t.Errorf("Resize = %v, want it to wrap %v", err, lost)
	}
}

func TestResizeWaitsForComposite(t *testing.T) {
	c := newCompositor(t)
	if err := c.AttachSource(newTestSource(4, 4)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	blocker := newBlockingFilter()
	c.AddFilter(blocker)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	<-blocker.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := c.Resize(ctx, 8, 8); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Resize = %v, want context.DeadlineExceeded", err)
	}
	if w, h := c.Size(); w != 4 || h != 4 {
		t.Errorf("Size() = %dx%d, want 4x4 unchanged", w, h)
	}
}

// =============================================================================
// Lifecycle
// =============================================================================

func TestClose(t *testing.T) {
	c := New()
	g := &testGPUFilter{closeErr: errors.New("leak")}
	if err := c.AddFilter3D(g); err != nil {
		t.Fatalf("AddFilter3D failed: %v", err)
	}
	if err := c.AttachSource(newTestSource(4, 4)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}

	if err := c.Close(); err == nil {
		t.Error("Close should report the filter close error")
	}
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if !closed {
		t.Error("GPU filter not closed")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if err := c.Tick(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Tick after Close = %v, want ErrClosed", err)
	}
	if err := c.AttachSource(newTestSource(4, 4)); !errors.Is(err, ErrClosed) {
		t.Errorf("AttachSource after Close = %v, want ErrClosed", err)
	}
	if err := c.Run(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Run after Close = %v, want ErrClosed", err)
	}
}

func TestCloseCancelsComposite(t *testing.T) {
	c := New()
	if err := c.AttachSource(newTestSource(4, 4)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}
	blocker := newBlockingFilter()
	c.AddFilter(blocker)
	if err := c.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	<-blocker.started

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if c.Stats().Failed != 1 {
		t.Errorf("Failed = %d, want 1", c.Stats().Failed)
	}
}

type fakeClock struct {
	c       chan time.Time
	stopped atomic.Bool
}

func (f *fakeClock) C() <-chan time.Time { return f.c }
func (f *fakeClock) Stop()               { f.stopped.Store(true) }

func TestRunWithClock(t *testing.T) {
	clock := &fakeClock{c: make(chan time.Time)}
	c := newCompositor(t, WithClock(clock))
	if err := c.AttachSource(newTestSource(4, 4)); err != nil {
		t.Fatalf("AttachSource failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	for i := 0; i < 3; i++ {
		clock.c <- time.Now()
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if !clock.stopped.Load() {
		t.Error("Run did not stop the clock")
	}
	if got := c.Stats().Ticks; got < 2 {
		t.Errorf("Ticks = %d, want at least 2", got)
	}
}

func TestRunWithoutSource(t *testing.T) {
	clock := &fakeClock{c: make(chan time.Time)}
	c := newCompositor(t, WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	clock.c <- time.Now()
	clock.c <- time.Now()
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
	if got := c.Stats().Ticks; got != 0 {
		t.Errorf("Ticks = %d, want 0 without a source", got)
	}
}

func TestCompositorID(t *testing.T) {
	a, b := New(), New()
	defer a.Close()
	defer b.Close()
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("IDs %q and %q should be distinct and non-empty", a.ID(), b.ID())
	}
}

func TestCapabilityString(t *testing.T) {
	tests := []struct {
		caps Capability
		want string
	}{
		{0, "none"},
		{CapResize, "resize"},
		{CapGPU, "gpu"},
		{CapResize | CapGPU, "resize|gpu"},
		{8, "Capability(8)"},
	}
	for _, tt := range tests {
		if got := tt.caps.String(); got != tt.want {
			t.Errorf("Capability(%d).String() = %q, want %q", uint32(tt.caps), got, tt.want)
		}
	}
	if !(CapResize | CapGPU).Has(CapGPU) || CapResize.Has(CapGPU) {
		t.Error("Has reports wrong membership")
	}
}
