package sim

import "sync"

// An InboundQueue is the FIFO buffer of messages delivered to a machine but
// not yet processed. Links push into it; only the owning machine's tick loop
// pops from it. It has no capacity limit: unbounded growth is a measured
// phenomenon of the simulation, not an error.
type InboundQueue struct {
	lock     sync.Mutex
	elements []ClockMsg
}

// NewInboundQueue creates an empty queue.
func NewInboundQueue() *InboundQueue {
	return &InboundQueue{}
}

// Push appends a message in arrival order.
func (q *InboundQueue) Push(msg ClockMsg) {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.elements = append(q.elements, msg)
}

// Pop removes and returns the oldest message. The second return value is
// false if the queue is empty.
func (q *InboundQueue) Pop() (ClockMsg, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if len(q.elements) == 0 {
		return ClockMsg{}, false
	}

	msg := q.elements[0]
	q.elements = q.elements[1:]

	return msg, true
}

// Peek returns the oldest message without removing it.
func (q *InboundQueue) Peek() (ClockMsg, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	if len(q.elements) == 0 {
		return ClockMsg{}, false
	}

	return q.elements[0], true
}

// Size returns the number of queued messages. It is the ground truth for the
// queue-length metric in event records.
func (q *InboundQueue) Size() int {
	q.lock.Lock()
	defer q.lock.Unlock()

	return len(q.elements)
}
