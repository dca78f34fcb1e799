package readcache

import "sync"

// dispatcher runs best-effort background tasks (invalidation, registration)
// on a bounded worker pool. A task is never dropped: when the queue is full
// it gets its own goroutine, and after close it runs inline.
type dispatcher struct {
	mu     sync.RWMutex
	q      chan func()
	wg     sync.WaitGroup
	closed bool
	inline bool
}

func newDispatcher(workers, qlen int, inline bool) *dispatcher {
	d := &dispatcher{inline: inline}
	if inline {
		return d
	}

	d.q = make(chan func(), qlen)
	d.wg.Add(workers)
	for n := 0; n < workers; n++ {
		go func() {
			defer d.wg.Done()
			for f := range d.q {
				f()
			}
		}()
	}
	return d
}

func (d *dispatcher) submit(f func()) {
	if d.inline {
		f()
		return
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		f()
		return
	}

	select {
	case d.q <- f:
	default:
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			f()
		}()
	}
	d.mu.RUnlock()
}

// close waits for every submitted task to finish.
func (d *dispatcher) close() {
	if d.inline {
		return
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.q)
	d.mu.Unlock()

	d.wg.Wait()
}
