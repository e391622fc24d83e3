package ws

import "sync"

// maxQueuedBytes bounds what a subscriber may have waiting to be written.
// A burst of log lines fits easily; a peer that stopped reading does not.
const maxQueuedBytes = 4 << 20

// sendQueue is a FIFO of payloads bounded by their total size. Producers
// never block: push reports false once the budget is spent.
type sendQueue struct {
	mu    sync.Mutex
	items [][]byte
	size  int
	limit int
	ready chan struct{}
}

func newSendQueue(limit int) *sendQueue {
	return &sendQueue{limit: limit, ready: make(chan struct{}, 1)}
}

// push appends payload. An empty queue always accepts, so a single frame
// larger than the limit is still delivered.
func (q *sendQueue) push(payload []byte) bool {
	q.mu.Lock()
	if len(q.items) > 0 && q.size+len(payload) > q.limit {
		q.mu.Unlock()
		return false
	}
	q.items = append(q.items, payload)
	q.size += len(payload)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
	return true
}

// drain takes everything queued so far, oldest first.
func (q *sendQueue) drain() [][]byte {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	q.size = 0
	return items
}

// pending returns the number of queued bytes.
func (q *sendQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
