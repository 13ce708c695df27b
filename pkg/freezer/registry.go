// Package freezer continuously rewrites chosen addresses with chosen values,
// counteracting the target process's own writes to those locations.
package freezer

import (
	"sync"
	"time"

	"github.com/vondutchi/vondutch-patcher/pkg/events"
	"github.com/vondutchi/vondutch-patcher/pkg/memaccess"
)

// DefaultInterval is the sweep cadence. Tens of milliseconds wins against
// typical game-loop writes without measurable target impact.
const DefaultInterval = 30 * time.Millisecond

// Entry is one frozen location. At most one entry exists per address;
// re-freezing replaces the value instead of duplicating.
type Entry struct {
	Address uintptr
	Value   []byte
	Active  bool
}

// Registry maintains the table of frozen addresses and the single
// background goroutine that sweeps it. The goroutine starts lazily on the
// first Freeze and is joined synchronously by Clear, so no write is
// observable after Clear returns.
type Registry struct {
	acc      memaccess.Accessor
	log      events.Log
	interval time.Duration

	mu      sync.Mutex
	entries []Entry

	running bool
	stop    chan struct{}
	done    sync.WaitGroup
}

// New creates a registry sweeping at DefaultInterval. The log may be nil.
func New(acc memaccess.Accessor, log events.Log) *Registry {
	return NewWithInterval(acc, log, DefaultInterval)
}

// NewWithInterval creates a registry with a custom sweep cadence.
func NewWithInterval(acc memaccess.Accessor, log events.Log, interval time.Duration) *Registry {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Registry{acc: acc, log: log, interval: interval}
}

// SetAccessor swaps the borrowed accessor, used on re-attach. Callers are
// expected to Clear first when detaching; the swap itself is still safe
// against a concurrent sweep.
func (r *Registry) SetAccessor(acc memaccess.Accessor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acc = acc
}

// Freeze upserts the entry for address with the given value and marks it
// active. On the transition from no active entries to at least one, the
// maintenance goroutine starts. Safe to call while a sweep is in progress.
// The value is copied.
func (r *Registry) Freeze(address uintptr, value []byte) {
	stored := make([]byte, len(value))
	copy(stored, value)

	r.mu.Lock()

	found := false
	for i := range r.entries {
		if r.entries[i].Address == address {
			r.entries[i].Value = stored
			r.entries[i].Active = true
			found = true
			break
		}
	}
	if !found {
		r.entries = append(r.entries, Entry{Address: address, Value: stored, Active: true})
	}

	start := !r.running
	if start {
		r.running = true
		r.stop = make(chan struct{})
		r.done.Add(1)
		go r.loop(r.stop)
	}
	r.mu.Unlock()

	events.Report(r.log, events.FreezeRegistered, events.Info, "freeze registered at %#x (%d bytes)", address, len(stored))
}

// Clear empties the table and stops the maintenance goroutine, waiting for
// its current sweep to finish. After Clear returns, the registry issues no
// further writes, which detach and re-attach sequencing depends on.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.entries = nil
	running := r.running
	stop := r.stop
	r.running = false
	r.mu.Unlock()

	if running {
		close(stop)
		r.done.Wait()
	}
}

// Entries returns a copy of the table for display purposes.
func (r *Registry) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Entry, len(r.entries))
	for i, e := range r.entries {
		value := make([]byte, len(e.Value))
		copy(value, e.Value)
		out[i] = Entry{Address: e.Address, Value: value, Active: e.Active}
	}
	return out
}

// Active reports whether the maintenance goroutine is running.
func (r *Registry) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// loop is the maintenance goroutine: one full sweep of the table under the
// lock, then sleep. The lock is never held across the sleep, so Freeze and
// Clear wait at most one sweep.
func (r *Registry) loop(stop chan struct{}) {
	defer r.done.Done()

	events.Report(r.log, events.FreezeLoopStarted, events.Info, "freeze loop started")
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		r.sweep()

		select {
		case <-stop:
			events.Report(r.log, events.FreezeLoopStopped, events.Info, "freeze loop exited")
			return
		case <-ticker.C:
		}
	}
}

// sweep rewrites every active entry once. A failed write is reported and
// skipped; the page may be unmapped right now and writable again next tick.
func (r *Registry) sweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.acc == nil {
		return
	}
	for _, entry := range r.entries {
		if !entry.Active {
			continue
		}
		if err := r.acc.Write(entry.Address, entry.Value); err != nil {
			events.Report(r.log, events.FreezeWriteFailed, events.Warning, "failed to maintain frozen value at %#x: %v", entry.Address, err)
		}
	}
}
