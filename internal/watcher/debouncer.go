package watcher

import (
	"sync"
	"time"
)

// debouncer runs the latest callback registered for a key once the key has been
// quiet for the callback's delay.
type debouncer struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

func newDebouncer() *debouncer {
	return &debouncer{timers: make(map[string]*time.Timer)}
}

// add (re)schedules fn for key. A pending callback for the same key is replaced.
func (d *debouncer) add(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if t, ok := d.timers[key]; ok && t.Stop() {
		d.wg.Done()
	}

	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		defer d.wg.Done()

		d.mu.Lock()
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		d.mu.Unlock()

		fn()
	})
	d.timers[key] = t
}

// pending returns the number of scheduled callbacks.
func (d *debouncer) pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.timers)
}

// stopAndWait drops pending callbacks and waits up to timeout for running ones.
func (d *debouncer) stopAndWait(timeout time.Duration) bool {
	d.mu.Lock()
	d.stopped = true
	for key, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, key)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
