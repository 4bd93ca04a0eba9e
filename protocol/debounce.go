package protocol

import "sync"

// debouncer coalesces concurrent emissions of a debounced notification
// method into a single frame per scheduler tick (spec §4.D, §9: "do not
// use wall-clock timers; prefer the scheduler's next-tick primitive so
// tests are deterministic"). Go has no explicit event-loop tick, so
// "next tick" is modeled as "the next time a flush goroutine gets to
// run": the first Schedule for a method marks it scheduled and starts one
// goroutine, and further Schedule calls for that method before the
// goroutine clears the mark collapse into the one pending flush.
type debouncer struct {
	mu      sync.Mutex
	methods map[string]*pendingFlush
}

type pendingFlush struct {
	scheduled bool
}

func newDebouncer() *debouncer {
	return &debouncer{methods: make(map[string]*pendingFlush)}
}

// Schedule arranges for flush to run once, coalescing any Schedule calls
// for the same method that arrive before flush actually runs. It returns
// immediately; flush runs on its own goroutine.
func (d *debouncer) Schedule(method string, flush func()) {
	d.mu.Lock()
	pf, ok := d.methods[method]
	if !ok {
		pf = &pendingFlush{}
		d.methods[method] = pf
	}
	if pf.scheduled {
		d.mu.Unlock()
		return
	}
	pf.scheduled = true
	d.mu.Unlock()

	go func() {
		d.mu.Lock()
		pf.scheduled = false
		d.mu.Unlock()
		flush()
	}()
}
