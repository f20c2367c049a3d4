package camfx

import "time"

// DefaultRefreshRate is the display refresh rate assumed by Run.
const DefaultRefreshRate = 60

// Clock delivers display refresh events to the render loop.
type Clock interface {
	// C returns the channel on which refresh events are delivered.
	C() <-chan time.Time

	// Stop turns off the clock. No more events are delivered after Stop.
	Stop()
}

type tickerClock struct {
	t *time.Ticker
}

// NewRefreshClock returns a Clock firing hz times per second.
// Non-positive rates fall back to DefaultRefreshRate.
func NewRefreshClock(hz float64) Clock {
	if hz <= 0 {
		hz = DefaultRefreshRate
	}
	return &tickerClock{t: time.NewTicker(time.Duration(float64(time.Second) / hz))}
}

func (c *tickerClock) C() <-chan time.Time { return c.t.C }
func (c *tickerClock) Stop()               { c.t.Stop() }
