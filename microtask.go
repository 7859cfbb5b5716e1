package simloop

import "sync"

// microChunkSize is the number of entries per node in the chunked microtask
// queue. 64 entries amortizes allocation while keeping chunks cache-friendly.
const microChunkSize = 64

// microtask is a queued microtask callback. Ordering is strict FIFO by
// submission; seq is carried for trace attribution only.
type microtask struct {
	fn    func()
	label string
	seq   uint64
}

// microChunk is a fixed-size node in the chunked linked-list queue. It uses
// readPos/writePos cursors for O(1) push/pop without shifting.
type microChunk struct {
	entries  [microChunkSize]microtask
	next     *microChunk
	readPos  int
	writePos int
}

// microChunkPool recycles exhausted chunks across loop instances.
var microChunkPool = sync.Pool{
	New: func() any {
		return &microChunk{}
	},
}

func newMicroChunk() *microChunk {
	c := microChunkPool.Get().(*microChunk)
	c.readPos = 0
	c.writePos = 0
	c.next = nil
	return c
}

// returnMicroChunk clears an exhausted chunk and returns it to the pool.
// Entries are zeroed to release references to captured closures.
func returnMicroChunk(c *microChunk) {
	for i := c.readPos; i < c.writePos; i++ {
		c.entries[i] = microtask{}
	}
	c.readPos = 0
	c.writePos = 0
	c.next = nil
	microChunkPool.Put(c)
}

// microtaskQueue is a strict-FIFO queue of microtasks, implemented as a
// chunked linked list. It belongs to exactly one Loop and is accessed only
// from the loop's driving goroutine; it is not safe for concurrent use.
type microtaskQueue struct {
	head   *microChunk
	tail   *microChunk
	length int
}

// enqueue appends a microtask at the tail.
func (q *microtaskQueue) enqueue(m microtask) {
	if q.tail == nil {
		q.tail = newMicroChunk()
		q.head = q.tail
	}
	if q.tail.writePos == len(q.tail.entries) {
		next := newMicroChunk()
		q.tail.next = next
		q.tail = next
	}
	q.tail.entries[q.tail.writePos] = m
	q.tail.writePos++
	q.length++
}

// dequeue removes and returns the head entry. The second return is false if
// the queue is empty.
func (q *microtaskQueue) dequeue() (microtask, bool) {
	for q.head != nil {
		if q.head.readPos < q.head.writePos {
			m := q.head.entries[q.head.readPos]
			q.head.entries[q.head.readPos] = microtask{}
			q.head.readPos++
			q.length--
			if q.head.readPos == q.head.writePos {
				if q.head == q.tail {
					// Sole chunk drained: reset cursors for reuse.
					q.head.readPos = 0
					q.head.writePos = 0
				} else {
					old := q.head
					q.head = q.head.next
					returnMicroChunk(old)
				}
			}
			return m, true
		}
		if q.head == q.tail {
			return microtask{}, false
		}
		old := q.head
		q.head = q.head.next
		returnMicroChunk(old)
	}
	return microtask{}, false
}

// len returns the number of queued entries.
func (q *microtaskQueue) len() int {
	return q.length
}

// clear discards all queued entries, returning chunks to the pool.
func (q *microtaskQueue) clear() {
	for c := q.head; c != nil; {
		next := c.next
		returnMicroChunk(c)
		c = next
	}
	q.head = nil
	q.tail = nil
	q.length = 0
}
