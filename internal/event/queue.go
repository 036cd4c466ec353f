package event

import "sync"

// Queue is an unbounded FIFO safe for concurrent producers and consumers.
// It is the only structure deliberately shared between timer goroutines.
type Queue struct {
	mu    sync.Mutex
	items []*Event
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Put appends an event.
func (q *Queue) Put(e *Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, e)
}

// TryGet removes and returns the oldest event, or (nil, false) when empty.
func (q *Queue) TryGet() (*Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false
	}
	e := q.items[0]
	q.items = q.items[1:]
	return e, true
}

// Drain removes and returns all queued events in order.
func (q *Queue) Drain() []*Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
