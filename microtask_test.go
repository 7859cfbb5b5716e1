package simloop

import (
	"fmt"
	"testing"
)

func TestMicrotaskQueue_fifoAcrossChunks(t *testing.T) {
	var q microtaskQueue

	// More than one chunk's worth, to cover the chunk-link path.
	const n = microChunkSize*3 + 7
	for i := 0; i < n; i++ {
		q.enqueue(microtask{label: fmt.Sprintf("m%d", i), seq: uint64(i)})
	}
	if q.len() != n {
		t.Fatalf("len = %d, want %d", q.len(), n)
	}

	for i := 0; i < n; i++ {
		m, ok := q.dequeue()
		if !ok {
			t.Fatalf("dequeue %d failed", i)
		}
		if m.seq != uint64(i) {
			t.Fatalf("dequeue %d returned seq %d", i, m.seq)
		}
	}
	if _, ok := q.dequeue(); ok {
		t.Fatal("dequeue on empty queue succeeded")
	}
	if q.len() != 0 {
		t.Fatalf("len = %d after full drain", q.len())
	}
}

func TestMicrotaskQueue_interleavedEnqueueDequeue(t *testing.T) {
	var q microtaskQueue

	seq := uint64(0)
	next := func() microtask {
		seq++
		return microtask{seq: seq}
	}

	var got []uint64
	q.enqueue(next())
	q.enqueue(next())
	for q.len() > 0 {
		m, _ := q.dequeue()
		got = append(got, m.seq)
		// Simulate mid-drain enqueues for the first few entries.
		if m.seq < 4 {
			q.enqueue(next())
		}
	}

	want := []uint64{1, 2, 3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestMicrotaskQueue_clear(t *testing.T) {
	var q microtaskQueue
	for i := 0; i < microChunkSize+1; i++ {
		q.enqueue(microtask{seq: uint64(i)})
	}
	q.clear()
	if q.len() != 0 {
		t.Fatalf("len = %d after clear", q.len())
	}
	if _, ok := q.dequeue(); ok {
		t.Fatal("dequeue succeeded after clear")
	}
	// Queue remains usable.
	q.enqueue(microtask{seq: 99})
	if m, ok := q.dequeue(); !ok || m.seq != 99 {
		t.Fatalf("queue unusable after clear: %v %v", m, ok)
	}
}

func TestTaskHeap_ordering(t *testing.T) {
	var h taskHeap

	add := func(delay int64, seq uint64) {
		h.push(&taskEntry{delay: delay, seq: seq, fn: func() {}})
	}
	add(5, 1)
	add(0, 2)
	add(5, 3)
	add(1, 4)

	var got []uint64
	for {
		e, _ := h.popNext()
		if e == nil {
			break
		}
		got = append(got, e.seq)
	}

	want := []uint64{2, 4, 1, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestTaskHeap_popSkipsCancelled(t *testing.T) {
	var h taskHeap

	e1 := &taskEntry{delay: 0, seq: 1, fn: func() {}}
	e2 := &taskEntry{delay: 0, seq: 2, fn: func() {}}
	e3 := &taskEntry{delay: 0, seq: 3, fn: func() {}}
	h.push(e1)
	h.push(e2)
	h.push(e3)

	(Handle{entry: e1}).Cancel()
	(Handle{entry: e2}).Cancel()

	if got := h.pending(); got != 1 {
		t.Fatalf("pending = %d, want 1", got)
	}

	e, skipped := h.popNext()
	if e != e3 {
		t.Fatalf("popNext returned %v, want e3", e)
	}
	if skipped != 2 {
		t.Fatalf("skipped = %d, want 2", skipped)
	}

	e, skipped = h.popNext()
	if e != nil || skipped != 0 {
		t.Fatalf("empty heap popNext = (%v, %d)", e, skipped)
	}
}
