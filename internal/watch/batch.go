// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// batch collects mod names until no new name has arrived for the debounce
// period, then hands them to flush in sorted order. flush never runs
// concurrently with itself; a batch that becomes due while flush is busy
// is retried one period later.
type batch struct {
	debounce time.Duration
	flush    func(mods []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	stopped bool
	busy    atomic.Bool
}

func newBatch(debounce time.Duration, flush func([]string)) *batch {
	return &batch{debounce: debounce, flush: flush, pending: make(map[string]struct{})}
}

// add queues name and restarts the quiet period.
func (b *batch) add(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.pending[name] = struct{}{}
	b.rearmLocked()
}

func (b *batch) rearmLocked() {
	if b.timer == nil {
		b.timer = time.AfterFunc(b.debounce, b.fire)
		return
	}
	b.timer.Reset(b.debounce)
}

func (b *batch) fire() {
	if !b.busy.CompareAndSwap(false, true) {
		b.mu.Lock()
		if !b.stopped {
			b.rearmLocked()
		}
		b.mu.Unlock()
		return
	}
	defer b.busy.Store(false)

	b.mu.Lock()
	if b.stopped || len(b.pending) == 0 {
		b.mu.Unlock()
		return
	}
	mods := slices.Sorted(maps.Keys(b.pending))
	clear(b.pending)
	b.mu.Unlock()

	b.flush(mods)
}

// stop drops pending names and cancels the timer. A flush already running
// is not interrupted.
func (b *batch) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.timer != nil {
		b.timer.Stop()
	}
	clear(b.pending)
}
