package quote

import (
	"context"
	"sync"
	"time"
)

// Work runs once the input has settled. It returns a commit func that
// publishes its result, or nil when there is nothing to publish.
type Work func(ctx context.Context) (commit func())

type pendingTask struct {
	gen    uint64
	cancel context.CancelFunc
}

// Debouncer runs at most one Work per key after the key has been quiet for
// the configured delay. Scheduling a key cancels its pending task; a task
// that was superseded while running never commits.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	seq     uint64
	pending map[string]pendingTask
	wg      sync.WaitGroup
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay, pending: map[string]pendingTask{}}
}

func (d *Debouncer) Schedule(parent context.Context, key string, work Work) {
	ctx, cancel := context.WithCancel(parent)

	d.mu.Lock()
	if prev, ok := d.pending[key]; ok {
		prev.cancel()
	}
	d.seq++
	gen := d.seq
	d.pending[key] = pendingTask{gen: gen, cancel: cancel}
	d.mu.Unlock()

	d.wg.Add(1)
	go d.run(ctx, key, gen, work)
}

// Cancel drops the pending task for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.pending[key]; ok {
		t.cancel()
		delete(d.pending, key)
	}
}

func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Stop cancels everything and waits for running tasks to return.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	for key, t := range d.pending {
		t.cancel()
		delete(d.pending, key)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Debouncer) run(ctx context.Context, key string, gen uint64, work Work) {
	defer d.wg.Done()

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	commit := work(ctx)

	if ctx.Err() != nil || !d.finish(key, gen) {
		return
	}
	if commit != nil {
		commit()
	}
}

// finish clears the pending entry if gen is still the latest for key.
func (d *Debouncer) finish(key string, gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.pending[key]
	if !ok || t.gen != gen {
		return false
	}
	delete(d.pending, key)
	t.cancel()
	return true
}
