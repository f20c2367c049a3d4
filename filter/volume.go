// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package filter

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/gogpu/camfx"
	"github.com/gogpu/gg"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Volume meter defaults.
const (
	DefaultMeterWindow    = 2048
	DefaultMeterFFTSize   = 2048
	DefaultMeterSmoothing = 0.8
	DefaultMeterMaxWidth  = 200
	DefaultMeterHeight    = 20

	// initialMeterMax keeps the first frames from dividing by zero.
	initialMeterMax = 0.01

	minDecibels = -100
	maxDecibels = -30
)

// DefaultMeterFill is the bar color.
var DefaultMeterFill = gg.RGBA{R: 1, G: 252.0 / 255, B: 28.0 / 255, A: 0.7}

// MeterOption configures a VolumeMeter.
type MeterOption func(*VolumeMeter)

// WithPosition places the bar's bottom-right corner at (x, y) percent of
// the canvas. Default: 5, 100.
func WithPosition(x, y float64) MeterOption {
	return func(m *VolumeMeter) {
		m.posX, m.posY = x, y
	}
}

// WithBar sets the full-scale bar width and its height in pixels.
func WithBar(maxWidth, height int) MeterOption {
	return func(m *VolumeMeter) {
		if maxWidth > 0 {
			m.maxWidth = maxWidth
		}
		if height > 0 {
			m.height = height
		}
	}
}

// WithFill sets the bar color.
func WithFill(c gg.RGBA) MeterOption {
	return func(m *VolumeMeter) {
		m.fill = c
	}
}

// WithSmoothing sets the spectrum averaging constant in [0, 1).
func WithSmoothing(tau float64) MeterOption {
	return func(m *VolumeMeter) {
		if tau >= 0 && tau < 1 {
			m.smoothing = tau
		}
	}
}

// WithPacing makes Start read the stream at its sample rate instead of as
// fast as the stream delivers. Use it for file and generated input.
func WithPacing(paced bool) MeterOption {
	return func(m *VolumeMeter) {
		m.paced = paced
	}
}

// VolumeMeter draws a bar proportional to the current audio volume.
//
// The audio session is injected: Start reads the stream in windows of 2048
// samples on its own goroutine. Each window is mixed to mono, then
// Blackman-windowed and transformed by a 2048-point FFT. The magnitudes of
// its 1024 bins are smoothed over time, mapped from [-100, -30] dB onto
// 0..255 and averaged into the volume. The bar width is volume / max volume
// seen so far.
type VolumeMeter struct {
	stream beep.Streamer
	rate   beep.SampleRate

	posX, posY float64
	maxWidth   int
	height     int
	fill       gg.RGBA
	smoothing  float64
	paced      bool

	analysisMu sync.Mutex // guards the analysis state below
	fft        *fourier.FFT
	window     []float64
	smoothed   []float64
	seq        []float64
	coeffs     []complex128

	mu     sync.Mutex // guards level, peak and the lifecycle fields
	level  float64
	peak   float64
	cancel context.CancelFunc
	done   chan struct{}
}

// NewVolumeMeter creates a meter over an audio stream sampled at rate.
// stream may be nil when samples are fed through Process.
func NewVolumeMeter(stream beep.Streamer, rate beep.SampleRate, opts ...MeterOption) *VolumeMeter {
	m := &VolumeMeter{
		stream:    stream,
		rate:      rate,
		posX:      5,
		posY:      100,
		maxWidth:  DefaultMeterMaxWidth,
		height:    DefaultMeterHeight,
		fill:      DefaultMeterFill,
		smoothing: DefaultMeterSmoothing,
		peak:      initialMeterMax,
	}
	for _, opt := range opts {
		opt(m)
	}

	n := DefaultMeterFFTSize
	m.fft = fourier.NewFFT(n)
	m.window = blackman(n)
	m.smoothed = make([]float64, n/2)
	m.seq = make([]float64, n)
	return m
}

// Name returns "volume".
func (*VolumeMeter) Name() string {
	return "volume"
}

// blackman returns the Blackman window of length n.
func blackman(n int) []float64 {
	const (
		a0 = 0.42
		a1 = 0.5
		a2 = 0.08
	)
	w := make([]float64, n)
	for i := range w {
		x := 2 * math.Pi * float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(x) + a2*math.Cos(2*x)
	}
	return w
}

// Start begins reading the stream. It returns immediately; the reader stops
// when ctx is done, the stream is drained or Close is called.
func (m *VolumeMeter) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil || m.done != nil {
		return
	}
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})
	go m.read(ctx, m.done)
}

func (m *VolumeMeter) read(ctx context.Context, done chan struct{}) {
	defer close(done)
	buf := make([][2]float64, DefaultMeterWindow)
	for {
		if ctx.Err() != nil {
			return
		}
		n, ok := m.stream.Stream(buf)
		if n > 0 {
			m.Process(buf[:n])
		}
		if !ok {
			if err := m.stream.Err(); err != nil {
				camfx.Logger().Warn("filter: audio stream failed", "filter", "volume", "err", err)
			}
			return
		}
		if m.paced && m.rate > 0 {
			t := time.NewTimer(m.rate.D(n))
			select {
			case <-ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
		}
	}
}

// Process analyses one window of samples and updates the volume.
func (m *VolumeMeter) Process(samples [][2]float64) {
	if len(samples) == 0 {
		return
	}
	m.analysisMu.Lock()
	n := len(m.seq)
	clear(m.seq)
	if len(samples) > n {
		samples = samples[len(samples)-n:]
	}
	off := n - len(samples)
	for i, s := range samples {
		m.seq[off+i] = (s[0] + s[1]) / 2 * m.window[off+i]
	}
	m.coeffs = m.fft.Coefficients(m.coeffs, m.seq)

	var sum float64
	for k := range m.smoothed {
		mag := math.Hypot(real(m.coeffs[k]), imag(m.coeffs[k])) / float64(n)
		m.smoothed[k] = m.smoothing*m.smoothed[k] + (1-m.smoothing)*mag
		sum += decibelByte(m.smoothed[k])
	}
	volume := sum / float64(len(m.smoothed))
	m.analysisMu.Unlock()

	m.mu.Lock()
	m.level = volume
	m.peak = math.Max(m.peak, volume)
	m.mu.Unlock()
}

// decibelByte maps a magnitude onto 0..255 over [minDecibels, maxDecibels].
func decibelByte(mag float64) float64 {
	if mag <= 0 {
		return 0
	}
	db := 20 * math.Log10(mag)
	v := math.Floor(255 / (maxDecibels - minDecibels) * (db - minDecibels))
	return math.Max(0, math.Min(255, v))
}

// Level returns the current volume and the running maximum.
func (m *VolumeMeter) Level() (volume, peak float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level, m.peak
}

// Apply copies src into dst. The bar is drawn by AfterRedraw.
func (m *VolumeMeter) Apply(ctx context.Context, dst, src *camfx.Surface) error {
	base(dst, src)
	return ctx.Err()
}

// barRect returns the bar rectangle for a canvas of the given size.
func (m *VolumeMeter) barRect(width, height int) (x, y, w, h float64) {
	volume, peak := m.Level()
	bx := max(0, int(math.Floor(m.posX/100*float64(width)))-m.maxWidth)
	by := max(0, int(math.Floor(m.posY/100*float64(height)))-m.height)
	bw := math.Floor(volume / peak * float64(m.maxWidth))
	return float64(bx), float64(by), bw, float64(m.height)
}

// AfterRedraw draws the volume bar.
func (m *VolumeMeter) AfterRedraw(dc *camfx.Surface) {
	x, y, w, h := m.barRect(dc.Width(), dc.Height())
	if w <= 0 {
		return
	}
	dc.Draw(func(c *gg.Context) {
		c.SetRGBA(m.fill.R, m.fill.G, m.fill.B, m.fill.A)
		c.DrawRectangle(x, y, w, h)
		if err := c.Fill(); err != nil {
			camfx.Logger().Debug("filter: volume bar fill failed", "err", err)
		}
	})
}

// Close stops the stream reader and waits for it.
func (m *VolumeMeter) Close() error {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	return nil
}

// Done is closed when the stream reader exits. It is nil before Start.
func (m *VolumeMeter) Done() <-chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.done
}
