package signaling

import (
	"sync"
	"sync/atomic"
)

type outFrame struct {
	mode FrameMode
	data []byte
}

// sendQueue is a byte-bounded FIFO of outbound frames.
//
// It sits between the Router and a connection's write loop so that relaying
// to a slow peer never blocks the sender's read loop.
type sendQueue struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	closed   bool

	maxBytes int
	curBytes int
	frames   []outFrame

	drops atomic.Uint64
}

func newSendQueue(maxBytes int) *sendQueue {
	q := &sendQueue{maxBytes: maxBytes}
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

func (q *sendQueue) DropCount() uint64 {
	return q.drops.Load()
}

// Enqueue appends a frame if it fits within the byte budget. It never blocks.
func (q *sendQueue) Enqueue(mode FrameMode, data []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		q.drops.Add(1)
		return ErrConnClosed
	}
	if q.curBytes+len(data) > q.maxBytes {
		q.drops.Add(1)
		return ErrSendQueueFull
	}

	q.frames = append(q.frames, outFrame{mode: mode, data: data})
	q.curBytes += len(data)
	q.notEmpty.Signal()
	return nil
}

// Dequeue blocks until a frame is available or the queue is closed. Frames
// still buffered at Close are discarded.
func (q *sendQueue) Dequeue() (outFrame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.frames) == 0 && !q.closed {
		q.notEmpty.Wait()
	}
	if len(q.frames) == 0 {
		return outFrame{}, false
	}
	f := q.frames[0]
	q.frames[0] = outFrame{}
	q.frames = q.frames[1:]
	q.curBytes -= len(f.data)
	return f, true
}

func (q *sendQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.frames = nil
	q.curBytes = 0
	q.mu.Unlock()
	q.notEmpty.Broadcast()
}
