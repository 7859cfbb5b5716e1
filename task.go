package simloop

import "container/heap"

// taskEntry is a scheduled one-shot task. Ordering key is (delay, seq):
// smaller logical delays run first, with submission order breaking ties.
type taskEntry struct {
	fn       func()
	label    string
	delay    int64
	seq      uint64
	canceled bool
	done     bool
}

// taskHeap is a min-heap of pending tasks keyed by (delay, seq).
type taskHeap []*taskEntry

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].delay != h[j].delay {
		return h[i].delay < h[j].delay
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*taskEntry))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// push inserts a task entry.
func (h *taskHeap) push(e *taskEntry) {
	heap.Push(h, e)
}

// popNext removes and returns the minimum-key live entry, discarding entries
// cancelled while still queued. Returns nil if no live entry remains, along
// with the number of cancelled entries discarded.
func (h *taskHeap) popNext() (*taskEntry, int) {
	skipped := 0
	for h.Len() > 0 {
		e := heap.Pop(h).(*taskEntry)
		if e.canceled {
			skipped++
			continue
		}
		e.done = true
		return e, skipped
	}
	return nil, skipped
}

// pending returns the number of live (not cancelled) entries.
func (h taskHeap) pending() int {
	n := 0
	for _, e := range h {
		if !e.canceled {
			n++
		}
	}
	return n
}

// Handle identifies a scheduled task for cancellation. The zero Handle is
// valid and cancels nothing.
type Handle struct {
	entry *taskEntry
}

// Cancel removes the task from the queue if it has not yet run. It reports
// whether the task was actually cancelled; cancelling an already-executed,
// already-cancelled, or zero handle is a silent no-op, never an error.
func (h Handle) Cancel() bool {
	e := h.entry
	if e == nil || e.done || e.canceled {
		return false
	}
	e.canceled = true
	e.fn = nil
	return true
}

// Pending reports whether the task is still queued.
func (h Handle) Pending() bool {
	e := h.entry
	return e != nil && !e.done && !e.canceled
}
