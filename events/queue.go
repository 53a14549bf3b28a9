package events

import "sync"

// queue buffers every event received between connect and disconnect.
// Unbounded: nothing is evicted until drain. Safe under one producer (the
// listener goroutine) and one consumer (the main flow).
type queue struct {
	mu     sync.Mutex
	events []Event
}

func (q *queue) append(ev Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = append(q.events, ev)
}

// drain removes and returns all buffered events in arrival order.
func (q *queue) drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	drained := q.events
	q.events = nil
	return drained
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}
