// Package view coordinates overlapping list fetches so only the most
// recently issued fetch may update visible state. A slow earlier
// response can never clobber a faster later one.
package view

import (
	"context"
	"sync"

	"tdo/internal/service"
)

// Snapshot is the visible state of the todo list.
type Snapshot struct {
	Todos      []service.Todo
	Pagination service.Pagination
}

// Fetch identifies one in-flight fetch. Its context is cancelled as
// soon as a newer fetch is issued.
type Fetch struct {
	seq int64
	ctx context.Context
}

// Context returns the fetch's cancellable context.
func (f Fetch) Context() context.Context { return f.ctx }

// View holds the visible todo slice and hands out fetch handles with
// monotonically increasing sequence numbers.
type View struct {
	mu      sync.Mutex
	seq     int64
	cancel  context.CancelFunc
	current Snapshot
	loaded  bool
}

// New creates an empty View.
func New() *View {
	return &View{}
}

// Begin issues a new fetch handle, cancelling any prior in-flight
// fetch. The caller performs the fetch with the handle's context and
// delivers the result through Deliver.
func (v *View) Begin(parent context.Context) Fetch {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
	}
	ctx, cancel := context.WithCancel(parent)
	v.cancel = cancel
	v.seq++
	return Fetch{seq: v.seq, ctx: ctx}
}

// Deliver applies snap to visible state if f is still the latest
// fetch. Returns false when the result was superseded and discarded.
func (v *View) Deliver(f Fetch, snap Snapshot) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if f.seq != v.seq {
		return false
	}
	v.current = snap
	v.loaded = true
	return true
}

// Latest returns the current visible snapshot. ok is false before the
// first delivery.
func (v *View) Latest() (Snapshot, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current, v.loaded
}

// Reset cancels any in-flight fetch and clears visible state, for use
// when leaving the todo view.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.current = Snapshot{}
	v.loaded = false
}
