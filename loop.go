package simloop

import (
	"sync/atomic"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// DefaultMaxDrainDepth bounds how many microtasks a single drain may
// execute before the drain is aborted with [ErrStarvation]. Override with
// [WithMaxDrainDepth].
const DefaultMaxDrainDepth = 10_000

// report throttle categories, see WithReportLimiter
const (
	reportCategoryPanic     = `panic`
	reportCategoryRejection = `unhandled-rejection`
)

// renderCallback is a registered one-shot render hook.
type renderCallback struct {
	fn    func()
	label string
}

// Loop is a deterministic, single-threaded event loop simulator. It
// sequences macrotasks (by delay, then schedule order), drains microtasks
// to a fixpoint between tasks, and runs one-shot render callbacks at the
// end of each turn. Time is a logical counter; nothing blocks and nothing
// reads the wall clock, so a given input program always produces the same
// execution trace.
//
// A Loop is NOT safe for concurrent use. Drive it from one goroutine, and
// schedule work only from that goroutine (typically from inside loop
// callbacks, or between runs). Multiple independent loops are fine; they
// share nothing.
type Loop struct { // betteralign:ignore
	// Prevent copying
	_ [0]func()

	promises *promiseRegistry
	micro    microtaskQueue
	logger   *logiface.Logger[logiface.Event]

	// sink receives callback panics and unhandled rejections as errors.
	sink func(error)
	// onUnhandled, when set, replaces the default unhandled-rejection
	// report for the promise it is given.
	onUnhandled func(*Promise)
	limiter     *catrate.Limiter
	metrics     *metrics
	events      *EventTarget

	tasks     taskHeap
	render    []renderCallback
	trace     []TraceEvent
	unhandled []*Promise

	clock        clock
	id           uint64
	turn         int
	maxDrain     int
	state        LoopState
	traceEnabled bool
}

var loopIDCounter atomic.Uint64

// New creates a loop. Each call returns an independent instance with its
// own clock, queues, and promise registry.
func New(opts ...LoopOption) (*Loop, error) {
	l := &Loop{
		id:           loopIDCounter.Add(1),
		promises:     newPromiseRegistry(),
		tasks:        make(taskHeap, 0),
		maxDrain:     DefaultMaxDrainDepth,
		traceEnabled: true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyLoop(l); err != nil {
			return nil, err
		}
	}
	l.events = newEventTarget(l)
	return l, nil
}

// ID returns the loop's process-unique identifier.
func (l *Loop) ID() uint64 { return l.id }

// State returns the loop's current lifecycle state.
func (l *Loop) State() LoopState { return l.state }

// Turn returns the number of turns that performed work.
func (l *Loop) Turn() int { return l.turn }

// Now returns the loop's logical time: the number of scheduling and
// settlement steps taken so far. It has no relationship to wall time.
func (l *Loop) Now() uint64 { return l.clock.now() }

// Events returns the loop's lifecycle event target. See [EventTarget] for
// the event types dispatched.
func (l *Loop) Events() *EventTarget { return l.events }

// ScheduleTask enqueues a macrotask. Tasks are ordered by (delay, schedule
// order): lower delay runs first, ties run in the order scheduled. Delay is
// a logical priority in the same units as [Loop.Now], not a wall duration.
// The returned [Handle] cancels the task while it is still queued.
func (l *Loop) ScheduleTask(label string, delay int64, fn func()) (Handle, error) {
	if l.state == StateDisposed {
		return Handle{}, ErrLoopDisposed
	}
	if fn == nil {
		return Handle{}, ErrNilCallback
	}
	if delay < 0 {
		delay = 0
	}
	e := &taskEntry{
		fn:    fn,
		label: label,
		delay: delay,
		seq:   l.clock.next(),
	}
	l.tasks.push(e)
	return Handle{entry: e}, nil
}

// ScheduleMicrotask enqueues a microtask. Microtasks run strictly FIFO and
// drain to a fixpoint after each macrotask, before the next task or render
// phase. A microtask scheduled during a drain runs within that same drain.
func (l *Loop) ScheduleMicrotask(label string, fn func()) error {
	if l.state == StateDisposed {
		return ErrLoopDisposed
	}
	if fn == nil {
		return ErrNilCallback
	}
	l.enqueueMicrotask(label, fn)
	return nil
}

// enqueueMicrotask is the internal, unvalidated microtask path, shared with
// promise reaction scheduling. Promises settled on a disposed loop still
// enqueue here; the queue is simply never drained again.
func (l *Loop) enqueueMicrotask(label string, fn func()) {
	l.micro.enqueue(microtask{
		fn:    fn,
		label: label,
		seq:   l.clock.next(),
	})
}

// RegisterRenderCallback registers a one-shot callback for the render phase
// of the next turn that performs work. Callbacks run in registration order,
// after the turn's microtask drain. A callback registered during the render
// phase runs on the following turn, never the current one.
func (l *Loop) RegisterRenderCallback(label string, fn func()) error {
	if l.state == StateDisposed {
		return ErrLoopDisposed
	}
	if fn == nil {
		return ErrNilCallback
	}
	l.render = append(l.render, renderCallback{fn: fn, label: label})
	return nil
}

// RunOneTurn advances the loop by a single turn: at most one macrotask,
// then a microtask drain to fixpoint, then the render phase followed by a
// second drain for work the render callbacks produced. It reports whether
// the turn performed any work; a false return with a nil error means the
// loop is idle.
//
// RunOneTurn must not be called from inside a loop callback.
func (l *Loop) RunOneTurn() (bool, error) {
	if l.state == StateDisposed {
		return false, ErrLoopDisposed
	}
	if l.state != StateIdle {
		return false, ErrReentrantTurn
	}

	l.state = StateRunning
	defer func() {
		if l.state != StateDisposed {
			l.state = StateIdle
		}
	}()

	worked := false

	if e, skipped := l.tasks.popNext(); e != nil {
		worked = true
		l.record(KindTask, e.label, e.seq)
		l.safeExecute(KindTask.String(), e.label, e.fn)
		e.fn = nil
		if l.metrics != nil {
			l.metrics.tasksExecuted++
			l.metrics.tasksCancelled += uint64(skipped)
		}
	} else if skipped > 0 && l.metrics != nil {
		l.metrics.tasksCancelled += uint64(skipped)
	}

	if l.micro.len() > 0 {
		worked = true
	}
	if err := l.drain(); err != nil {
		l.turn++
		if l.metrics != nil {
			l.metrics.turns++
		}
		return true, err
	}

	if len(l.render) > 0 {
		worked = true
		// Snapshot so callbacks registering further render work defer it
		// to a later turn.
		batch := l.render
		l.render = nil
		for _, rc := range batch {
			l.record(KindRender, rc.label, 0)
			l.safeExecute(KindRender.String(), rc.label, rc.fn)
			if l.metrics != nil {
				l.metrics.renderExecuted++
			}
		}
		// Render callbacks may settle promises or queue microtasks; those
		// drain within this turn, not the next.
		if err := l.drain(); err != nil {
			l.turn++
			if l.metrics != nil {
				l.metrics.turns++
			}
			return true, err
		}
	}

	if worked {
		l.turn++
		if l.metrics != nil {
			l.metrics.turns++
		}
		l.logger.Debug().
			Int(`turn`, l.turn).
			Int(`tasks_pending`, l.tasks.pending()).
			Log(`turn complete`)
		l.events.dispatch(EventTurn, l)
	}

	return worked, nil
}

// RunUntilIdle runs turns until the loop has no queued work, then
// dispatches an idle event. Work scheduled by callbacks extends the run.
// It returns the first turn error, leaving remaining work queued.
func (l *Loop) RunUntilIdle() error {
	for {
		worked, err := l.RunOneTurn()
		if err != nil {
			return err
		}
		if !worked {
			l.events.dispatch(EventIdle, l)
			return nil
		}
	}
}

// drain executes queued microtasks FIFO until the queue is empty, bounded
// by maxDrain executions. Nested calls no-op; the outer drain owns the
// queue until its fixpoint. On hitting the bound the drain stops with
// [ErrStarvation] and the remaining microtasks stay queued.
func (l *Loop) drain() error {
	if l.state == StateDraining {
		return nil
	}
	prev := l.state
	l.state = StateDraining
	defer func() { l.state = prev }()

	depth := 0
	for l.micro.len() > 0 {
		if depth >= l.maxDrain {
			if l.metrics != nil {
				l.metrics.starvations++
			}
			l.logger.Warning().
				Int(`depth`, depth).
				Int(`queued`, l.micro.len()).
				Log(`microtask drain aborted`)
			l.events.dispatch(EventStarvation, l)
			return ErrStarvation
		}
		m, ok := l.micro.dequeue()
		if !ok {
			break
		}
		l.record(KindMicrotask, m.label, m.seq)
		l.safeExecute(KindMicrotask.String(), m.label, m.fn)
		depth++
		if l.metrics != nil {
			l.metrics.microtasksExecuted++
		}
	}

	if l.metrics != nil && depth > 0 {
		l.metrics.drains.observe(depth)
	}

	l.reportUnhandled()
	return nil
}

// safeExecute runs a callback, converting a panic into a [PanicError]
// delivered to the error sink. A panicking callback never unwinds the
// loop.
func (l *Loop) safeExecute(kind, label string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			if l.metrics != nil {
				l.metrics.panicsRecovered++
			}
			err := PanicError{Value: r}
			l.logger.Err().
				Str(`kind`, kind).
				Str(`label`, label).
				Err(err).
				Log(`callback panic recovered`)
			l.report(reportCategoryPanic, err)
		}
	}()
	fn()
}

// trackRejection records a rejected promise with no registered reactions
// as a candidate unhandled rejection. Candidates are inspected after each
// drain; one that gains a handler before then is skipped.
func (l *Loop) trackRejection(p *Promise) {
	l.unhandled = append(l.unhandled, p)
}

// reportUnhandled reports each still-unhandled rejection exactly once, in
// rejection order, then forgets the batch.
func (l *Loop) reportUnhandled() {
	if len(l.unhandled) == 0 {
		return
	}
	batch := l.unhandled
	l.unhandled = nil
	for _, p := range batch {
		if p.handled || p.reported {
			continue
		}
		p.reported = true
		if l.metrics != nil {
			l.metrics.unhandledRejections++
		}
		l.events.dispatch(EventUnhandledRejection, p)
		if l.onUnhandled != nil {
			l.onUnhandled(p)
			continue
		}
		err := asError(p.result)
		l.logger.Warning().
			Uint64(`promise`, p.id).
			Err(err).
			Log(`unhandled rejection`)
		l.report(reportCategoryRejection, err)
	}
}

// report delivers an error to the sink, subject to the optional per
// category throttle.
func (l *Loop) report(category string, err error) {
	if l.sink == nil {
		return
	}
	if l.limiter != nil {
		if _, ok := l.limiter.Allow(category); !ok {
			return
		}
	}
	l.sink(err)
}

// PendingTasks returns the number of queued, uncancelled macrotasks.
func (l *Loop) PendingTasks() int { return l.tasks.pending() }

// PendingMicrotasks returns the number of queued microtasks.
func (l *Loop) PendingMicrotasks() int { return l.micro.len() }

// Dispose permanently shuts the loop down: every pending promise is
// rejected with [ErrLoopDisposed], the resulting reactions are drained,
// and all queues are cleared. Dispose is idempotent; it returns
// [ErrReentrantTurn] if called from inside a loop callback.
func (l *Loop) Dispose() error {
	switch l.state {
	case StateDisposed:
		return nil
	case StateRunning, StateDraining:
		return ErrReentrantTurn
	}

	rejected := l.promises.rejectAll(ErrLoopDisposed)
	err := l.drain()

	for _, e := range l.tasks {
		e.canceled = true
		e.fn = nil
	}
	l.tasks = l.tasks[:0]
	l.micro.clear()
	l.render = nil
	l.unhandled = nil
	l.state = StateDisposed

	l.logger.Info().
		Uint64(`loop`, l.id).
		Int(`promises_rejected`, rejected).
		Log(`loop disposed`)

	return err
}
