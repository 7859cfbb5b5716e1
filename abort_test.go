package simloop

import (
	"errors"
	"testing"
)

func TestAbortController_basics(t *testing.T) {
	c := NewAbortController()
	s := c.Signal()

	if s.Aborted() || s.Err() != nil {
		t.Fatal("fresh signal reports aborted")
	}

	var got any
	s.OnAbort(func(reason any) { got = reason })

	c.Abort("reason one")
	c.Abort("reason two")

	if !s.Aborted() {
		t.Fatal("signal not aborted")
	}
	if s.Reason() != "reason one" {
		t.Fatalf("Reason = %v, first abort should win", s.Reason())
	}
	if got != "reason one" {
		t.Fatalf("handler got %v", got)
	}

	var ae *AbortError
	if !errors.As(s.Err(), &ae) || ae.Reason != "reason one" {
		t.Fatalf("Err = %v, want AbortError(reason one)", s.Err())
	}

	// Handlers registered after abort run immediately.
	var late any
	s.OnAbort(func(reason any) { late = reason })
	if late != "reason one" {
		t.Fatalf("late handler got %v", late)
	}
}

func TestScheduleAbortable_cancelsQueuedTask(t *testing.T) {
	l := mustLoop(t)
	c := NewAbortController()

	ran := false
	h, err := l.ScheduleAbortable("abortable", 0, func() { ran = true }, c.Signal())
	if err != nil {
		t.Fatal(err)
	}
	if !h.Pending() {
		t.Fatal("task not queued")
	}

	c.Abort(nil)
	runToIdle(t, l)

	if ran {
		t.Fatal("aborted task executed")
	}
}

func TestScheduleAbortable_alreadyAborted(t *testing.T) {
	l := mustLoop(t)
	c := NewAbortController()
	c.Abort("done")

	h, err := l.ScheduleAbortable("stillborn", 0, func() { t.Error("executed") }, c.Signal())
	if err != nil {
		t.Fatal(err)
	}
	if h.Pending() {
		t.Fatal("task queued despite aborted signal")
	}
	runToIdle(t, l)
}

func TestScheduleAbortable_nilSignal(t *testing.T) {
	l := mustLoop(t)

	ran := false
	if _, err := l.ScheduleAbortable("plain", 0, func() { ran = true }, nil); err != nil {
		t.Fatal(err)
	}
	runToIdle(t, l)
	if !ran {
		t.Fatal("task with nil signal did not run")
	}
}

func TestAbortTimeout_abortsWhenReached(t *testing.T) {
	l := mustLoop(t)

	c, err := l.AbortTimeout(1)
	if err != nil {
		t.Fatal(err)
	}

	ran := false
	if _, err := l.ScheduleAbortable("guarded", 5, func() { ran = true }, c.Signal()); err != nil {
		t.Fatal(err)
	}

	runToIdle(t, l)

	if !c.Signal().Aborted() {
		t.Fatal("timeout controller did not abort")
	}
	if ran {
		t.Fatal("guarded task ran despite timeout")
	}
}

func TestAbortAny_adoptsFirstAbort(t *testing.T) {
	a := NewAbortController()
	b := NewAbortController()

	merged := AbortAny(a.Signal(), nil, b.Signal())
	if merged.Aborted() {
		t.Fatal("merged signal aborted prematurely")
	}

	b.Abort("b wins")
	if !merged.Aborted() || merged.Reason() != "b wins" {
		t.Fatalf("merged = %v/%v", merged.Aborted(), merged.Reason())
	}

	// Later aborts do not overwrite.
	a.Abort("a late")
	if merged.Reason() != "b wins" {
		t.Fatalf("merged reason overwritten: %v", merged.Reason())
	}

	// An already-aborted input wins immediately.
	pre := AbortAny(a.Signal())
	if !pre.Aborted() || pre.Reason() != "a late" {
		t.Fatalf("pre-aborted merge = %v/%v", pre.Aborted(), pre.Reason())
	}
}

func TestPromiseWithSignal_rejectsOnAbort(t *testing.T) {
	l := mustLoop(t)
	c := NewAbortController()

	inner, _, _ := l.NewPromise()
	var reason Result
	l.PromiseWithSignal(inner, c.Signal()).Catch(func(r Result) Result {
		reason = r
		return nil
	})

	c.Abort("gave up")
	runToIdle(t, l)

	var ae *AbortError
	if !errors.As(asError(reason), &ae) || ae.Reason != "gave up" {
		t.Fatalf("reason = %v, want AbortError(gave up)", reason)
	}
}

func TestPromiseWithSignal_settlementBeatsAbort(t *testing.T) {
	l := mustLoop(t)
	c := NewAbortController()

	inner, resolve, _ := l.NewPromise()
	var got Result
	l.PromiseWithSignal(inner, c.Signal()).Then(func(v Result) Result {
		got = v
		return nil
	}, nil)

	resolve("won")
	runToIdle(t, l)
	c.Abort("too late")
	runToIdle(t, l)

	if got != "won" {
		t.Fatalf("got %v, want won", got)
	}
}
