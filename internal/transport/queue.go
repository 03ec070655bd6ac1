package transport

// pendingQueue holds messages requested while the connection was not ready.
// Strict FIFO: drain returns entries in the order they were appended.
// Not safe for concurrent use; the Manager guards it with its own mutex.
type pendingQueue struct {
	items []Message
}

func (q *pendingQueue) append(msg Message) {
	q.items = append(q.items, msg)
}

func (q *pendingQueue) drain() []Message {
	out := q.items
	q.items = nil
	return out
}

func (q *pendingQueue) clear() {
	q.items = nil
}

func (q *pendingQueue) len() int {
	return len(q.items)
}
