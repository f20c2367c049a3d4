package camfx

import (
	"sync/atomic"
	"time"
)

// Stats is a snapshot of render loop counters.
type Stats struct {
	// Ticks is the number of Tick calls that reached a bound source.
	Ticks uint64

	// Composites is the number of chain runs that completed successfully.
	Composites uint64

	// Commits is the number of blits onto the visible surface.
	Commits uint64

	// Dropped is the number of ticks skipped because a composite was in flight.
	Dropped uint64

	// Failed is the number of abandoned ticks (filter error, panic or timeout).
	Failed uint64

	// LastComposite is the wall time of the most recent successful chain run.
	LastComposite time.Duration
}

type counters struct {
	ticks         atomic.Uint64
	composites    atomic.Uint64
	commits       atomic.Uint64
	dropped       atomic.Uint64
	failed        atomic.Uint64
	lastComposite atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Ticks:         c.ticks.Load(),
		Composites:    c.composites.Load(),
		Commits:       c.commits.Load(),
		Dropped:       c.dropped.Load(),
		Failed:        c.failed.Load(),
		LastComposite: time.Duration(c.lastComposite.Load()),
	}
}
