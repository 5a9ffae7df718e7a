// Package watcher watches a drop directory and emits settled files for
// ingestion.
package watcher

import (
	"sync"
	"time"
)

// Debouncer coalesces rapid events per path: editors and download
// managers produce bursts of writes for one logical save, and a file
// should only be ingested once it has settled for a full window.
type Debouncer struct {
	window time.Duration
	output chan string

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer emitting paths that have been quiet
// for the given window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		output: make(chan string, 16),
		timers: make(map[string]*time.Timer),
	}
}

// Touch records activity on path, resetting its settle timer.
func (d *Debouncer) Touch(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	if timer, ok := d.timers[path]; ok {
		timer.Reset(d.window)
		return
	}

	d.timers[path] = time.AfterFunc(d.window, func() {
		d.fire(path)
	})
}

// Cancel drops any pending emission for path (e.g. the file was
// deleted before it settled).
func (d *Debouncer) Cancel(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[path]; ok {
		timer.Stop()
		delete(d.timers, path)
	}
}

func (d *Debouncer) fire(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	delete(d.timers, path)

	// Non-blocking: a full buffer means the consumer is far behind, and
	// dropping is better than wedging the timer goroutine.
	select {
	case d.output <- path:
	default:
	}
}

// Settled returns the channel of settled paths.
func (d *Debouncer) Settled() <-chan string {
	return d.output
}

// Stop cancels all pending timers and closes the output channel.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for path, timer := range d.timers {
		timer.Stop()
		delete(d.timers, path)
	}
	d.mu.Unlock()

	close(d.output)
}
