package camfx

import (
	"context"
	"fmt"
)

// entry is a registered filter. Capabilities and hooks are resolved once at
// registration so the render path never inspects concrete filter types.
type entry struct {
	filter Filter
	name   string
	caps   Capability

	resize func(width, height int) error
	close  func() error
}

// chain is the ordered, append-only list of registered filters.
type chain struct {
	entries []entry
}

func (ch *chain) append(e entry) {
	ch.entries = append(ch.entries, e)
}

func (ch *chain) len() int {
	return len(ch.entries)
}

// snapshot returns the entries registered so far. The chain only grows, so
// the returned slice stays valid while later appends reallocate.
func (ch *chain) snapshot() []entry {
	return ch.entries[:len(ch.entries):len(ch.entries)]
}

// with returns the entries that carry all bits of caps.
func (ch *chain) with(caps Capability) []entry {
	var out []entry
	for _, e := range ch.entries {
		if e.caps.Has(caps) {
			out = append(out, e)
		}
	}
	return out
}

// run composites one frame: the raw frame in src, the result in working.
//
// An empty chain copies src into working unchanged. Otherwise filter 0
// produces the frame base from src, and each later filter first draws its
// overlay hook against the partially composited working buffer and then
// applies its transform in place. The first failure aborts the chain.
func run(ctx context.Context, entries []entry, working, src *Surface) error {
	if len(entries) == 0 {
		working.CopyFrom(src)
		return nil
	}
	if err := apply(ctx, 0, entries[0], working, src); err != nil {
		return err
	}
	for i := 1; i < len(entries); i++ {
		if err := ctx.Err(); err != nil {
			return &FilterError{Index: i, Name: entries[i].name, Err: err}
		}
		entries[i].filter.AfterRedraw(working)
		if err := apply(ctx, i, entries[i], working, working); err != nil {
			return err
		}
	}
	return nil
}

// apply runs a single filter, turning errors and panics into *FilterError.
func apply(ctx context.Context, i int, e entry, dst, src *Surface) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &FilterError{Index: i, Name: e.name, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if aerr := e.filter.Apply(ctx, dst, src); aerr != nil {
		return &FilterError{Index: i, Name: e.name, Err: aerr}
	}
	return nil
}

// redraw invokes every overlay hook against dc.
func redraw(entries []entry, dc *Surface) {
	for _, e := range entries {
		func() {
			defer func() {
				if r := recover(); r != nil {
					Logger().Warn("camfx: overlay hook panicked", "filter", e.name, "panic", r)
				}
			}()
			e.filter.AfterRedraw(dc)
		}()
	}
}
