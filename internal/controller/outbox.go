package controller

import (
	"sync"

	"github.com/ryosukesatoh/daily-fact/internal/publisher"
)

// outbox delivers events one at a time, in the order they were pushed, on its
// own goroutine. push never blocks, so a slow publisher cannot hold up a
// transition.
type outbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []publisher.Event
	busy    bool
	closed  bool
	stopped chan struct{}
}

func newOutbox(deliver func(publisher.Event)) *outbox {
	o := &outbox{stopped: make(chan struct{})}
	o.cond = sync.NewCond(&o.mu)
	go o.run(deliver)
	return o
}

func (o *outbox) push(ev publisher.Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.queue = append(o.queue, ev)
	o.cond.Broadcast()
}

func (o *outbox) run(deliver func(publisher.Event)) {
	defer close(o.stopped)
	for {
		o.mu.Lock()
		for len(o.queue) == 0 && !o.closed {
			o.cond.Wait()
		}
		if len(o.queue) == 0 {
			o.mu.Unlock()
			return
		}
		ev := o.queue[0]
		o.queue[0] = publisher.Event{}
		o.queue = o.queue[1:]
		o.busy = true
		o.mu.Unlock()

		deliver(ev)

		o.mu.Lock()
		o.busy = false
		o.cond.Broadcast()
		o.mu.Unlock()
	}
}

// flush blocks until every pushed event has been delivered.
func (o *outbox) flush() {
	o.mu.Lock()
	defer o.mu.Unlock()
	for len(o.queue) > 0 || o.busy {
		o.cond.Wait()
	}
}

// close stops accepting events, delivers what is queued and waits for the
// delivery goroutine to exit.
func (o *outbox) close() {
	o.mu.Lock()
	o.closed = true
	o.cond.Broadcast()
	o.mu.Unlock()
	<-o.stopped
}
