package bot

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
)

// Handler processes one event to completion
type Handler interface {
	Handle(ctx context.Context, ev Event)
}

// Dispatcher never blocks the caller. Events of one requester are handled
// one at a time in arrival order; different requesters run concurrently.
type Dispatcher struct {
	handler Handler

	mu     sync.Mutex
	queues map[int64][]Event
	wg     sync.WaitGroup
}

// NewDispatcher wraps a handler
func NewDispatcher(handler Handler) *Dispatcher {
	return &Dispatcher{
		handler: handler,
		queues:  make(map[int64][]Event),
	}
}

// Dispatch queues ev behind the requester's earlier events
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue, running := d.queues[ev.RequesterID]
	d.queues[ev.RequesterID] = append(queue, ev)
	if running {
		return
	}

	d.wg.Add(1)
	go d.drain(ctx, ev.RequesterID)
}

// Wait blocks until every dispatched event has been handled
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// drain handles the requester's queue until it is empty. A requester has a
// map entry exactly while a drain goroutine runs for it.
func (d *Dispatcher) drain(ctx context.Context, requesterID int64) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		queue := d.queues[requesterID]
		if len(queue) == 0 {
			delete(d.queues, requesterID)
			d.mu.Unlock()
			return
		}
		ev := queue[0]
		d.queues[requesterID] = queue[1:]
		d.mu.Unlock()

		d.handle(ctx, ev)
	}
}

func (d *Dispatcher) handle(ctx context.Context, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("Panic handling %s event from %d: %v\n%s", ev.Kind, ev.RequesterID, p, debug.Stack())
		}
	}()

	d.handler.Handle(ctx, ev)
}
