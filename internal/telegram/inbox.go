package telegram

import (
	"context"
	"sync"

	"github.com/Kerhoff/familybudget/internal/session"
)

// inbox hands events to a Dispatcher so that events of one conversation run
// one after another in arrival order, while conversations run concurrently.
type inbox struct {
	d Dispatcher

	mu      sync.Mutex
	pending map[session.Key][]*Event
	wg      sync.WaitGroup
}

func newInbox(d Dispatcher) *inbox {
	return &inbox{d: d, pending: make(map[session.Key][]*Event)}
}

// push queues ev. A conversation's key stays in pending while its worker runs.
func (q *inbox) push(ctx context.Context, ev *Event) {
	key := session.Key{ChatID: ev.ChatID, UserID: ev.From.ID}

	q.mu.Lock()
	queued, running := q.pending[key]
	q.pending[key] = append(queued, ev)
	q.mu.Unlock()

	if running {
		return
	}
	q.wg.Add(1)
	go q.drain(ctx, key)
}

func (q *inbox) drain(ctx context.Context, key session.Key) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		queued := q.pending[key]
		if len(queued) == 0 {
			delete(q.pending, key)
			q.mu.Unlock()
			return
		}
		ev := queued[0]
		q.pending[key] = queued[1:]
		q.mu.Unlock()

		q.d.Dispatch(ctx, ev)
	}
}

// wait blocks until every queued event has been dispatched.
func (q *inbox) wait() {
	q.wg.Wait()
}
