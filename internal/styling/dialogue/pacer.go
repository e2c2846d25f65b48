package dialogue

import (
	"sync"
	"time"
)

// Cancel stops a scheduled event. It reports whether the event was
// prevented from running.
type Cancel func() bool

// Pacer defers presentational events such as follow-up questions.
type Pacer interface {
	Schedule(fn func()) Cancel
}

// DelayPacer runs events after a fixed delay on the runtime timer.
type DelayPacer struct {
	Delay time.Duration
}

func (p DelayPacer) Schedule(fn func()) Cancel {
	t := time.AfterFunc(p.Delay, fn)
	return t.Stop
}

// ManualPacer queues events until Flush is called.
type ManualPacer struct {
	mu      sync.Mutex
	pending []*manualEvent
}

type manualEvent struct {
	fn        func()
	cancelled bool
}

func (p *ManualPacer) Schedule(fn func()) Cancel {
	p.mu.Lock()
	defer p.mu.Unlock()

	ev := &manualEvent{fn: fn}
	p.pending = append(p.pending, ev)
	return func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		if ev.cancelled || ev.fn == nil {
			return false
		}
		ev.cancelled = true
		return true
	}
}

// Flush runs every queued, uncancelled event in schedule order and returns
// how many ran. Events scheduled by a running event wait for the next Flush.
func (p *ManualPacer) Flush() int {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	var run []func()
	for _, ev := range batch {
		if !ev.cancelled && ev.fn != nil {
			run = append(run, ev.fn)
			ev.fn = nil
		}
	}
	p.mu.Unlock()

	for _, fn := range run {
		fn()
	}
	return len(run)
}

// Len reports queued events that have not been cancelled.
func (p *ManualPacer) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, ev := range p.pending {
		if !ev.cancelled {
			n++
		}
	}
	return n
}
