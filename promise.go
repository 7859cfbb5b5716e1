package simloop

import "fmt"

// Result represents the value of a settled promise: the fulfillment value,
// or the rejection reason (typically an error).
type Result = any

// PromiseState represents the lifecycle state of a [Promise]. A promise
// starts Pending and transitions exactly once, to either Fulfilled or
// Rejected. There is no transition out of a settled state.
type PromiseState int

const (
	// Pending indicates the promise has not yet settled.
	Pending PromiseState = iota
	// Fulfilled indicates the promise settled with a value.
	Fulfilled
	// Rejected indicates the promise settled with a reason.
	Rejected
)

// String returns a human-readable representation of the state.
func (s PromiseState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// reaction is a handler pair registered against a promise, with the
// downstream promise it settles. A nil handler for the settled direction
// passes the outcome through to target unchanged.
type reaction struct {
	onFulfilled func(Result) Result
	onRejected  func(Result) Result
	target      *Promise
}

// Promise is a settlement-tracked value container bound to a [Loop].
//
// All handler callbacks are scheduled as microtasks on the owning loop and
// run during that loop's microtask drains; registering a reaction never
// executes it synchronously. Like the loop itself, a Promise is
// single-threaded: settle and chain only from the goroutine driving the
// loop (typically from inside loop callbacks, or between runs).
type Promise struct {
	loop   *Loop
	result Result
	// r0 is the first reaction, embedded to avoid a slice allocation for
	// the common single-handler chain.
	r0     reaction
	extra  []reaction
	id     uint64
	state  PromiseState
	r0Used bool
	// handled becomes true as soon as any reaction is registered, and never
	// reverts. Used for unhandled-rejection detection.
	handled bool
	// locked is set when the promise adopts another promise's outcome. The
	// external settlement capabilities become no-ops; only the adopted
	// promise's settlement can settle this one.
	locked bool
	// reported is set once an unhandled rejection report has been emitted
	// for this record, so it is never reported twice.
	reported bool
}

// ResolveFunc fulfills a promise with a value. Only the first settlement
// call on a promise has an effect.
type ResolveFunc func(Result)

// RejectFunc rejects a promise with a reason. Only the first settlement
// call on a promise has an effect.
type RejectFunc func(Result)

// NewPromise creates a new pending promise along with its resolve and
// reject functions.
func (l *Loop) NewPromise() (*Promise, ResolveFunc, RejectFunc) {
	p := l.newPromise()
	return p, p.resolve, p.reject
}

// CreatePromise creates a promise and invokes executor synchronously and
// immediately with the promise's settlement capabilities. If the executor
// panics before settling, the promise is rejected with the wrapped panic
// value; a panic after settlement is swallowed (first settlement wins).
func (l *Loop) CreatePromise(executor func(resolve ResolveFunc, reject RejectFunc)) *Promise {
	p := l.newPromise()
	if executor != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.reject(PanicError{Value: r})
				}
			}()
			executor(p.resolve, p.reject)
		}()
	}
	return p
}

// Resolve returns a promise resolved with the given value. If the value is
// itself a promise, the returned promise adopts its eventual outcome.
func (l *Loop) Resolve(value Result) *Promise {
	p := l.newPromise()
	p.resolve(value)
	return p
}

// Reject returns a promise rejected with the given reason.
func (l *Loop) Reject(reason Result) *Promise {
	p := l.newPromise()
	p.reject(reason)
	return p
}

// newPromise allocates and registers a pending promise.
func (l *Loop) newPromise() *Promise {
	p := &Promise{
		loop:  l,
		state: Pending,
	}
	p.id = l.promises.register(p)
	if l.state == StateDisposed {
		// Late creation on a disposed loop: settle immediately so nothing
		// dangles. Reactions added later still schedule, but the disposed
		// loop will never run them.
		p.state = Rejected
		p.result = ErrLoopDisposed
		p.handled = true
	}
	return p
}

// State returns the current state of the promise.
func (p *Promise) State() PromiseState {
	return p.state
}

// Value returns the fulfillment value, or nil unless fulfilled. Note that a
// fulfilled promise can legitimately carry a nil value.
func (p *Promise) Value() Result {
	if p.state == Fulfilled {
		return p.result
	}
	return nil
}

// Reason returns the rejection reason, or nil unless rejected.
func (p *Promise) Reason() Result {
	if p.state == Rejected {
		return p.result
	}
	return nil
}

// Handled reports whether at least one reaction has ever been registered.
func (p *Promise) Handled() bool {
	return p.handled
}

// addReaction attaches a reaction. Pending promises store it for
// settlement; settled promises schedule it immediately as a microtask.
// Registration marks the promise handled either way.
func (p *Promise) addReaction(r reaction) {
	p.handled = true
	if p.state != Pending {
		p.scheduleReaction(r, p.state, p.result)
		return
	}
	if !p.r0Used {
		p.r0 = r
		p.r0Used = true
		return
	}
	p.extra = append(p.extra, r)
}

// scheduleReaction enqueues a reaction for execution as a microtask.
func (p *Promise) scheduleReaction(r reaction, state PromiseState, result Result) {
	label := fmt.Sprintf("promise#%d", p.id)
	p.loop.enqueueMicrotask(label, func() {
		executeReaction(r, state, result)
	})
}

// executeReaction runs a single reaction against a settlement outcome.
// A nil handler passes the outcome through; a panicking handler rejects the
// downstream promise with the wrapped panic value.
func executeReaction(r reaction, state PromiseState, result Result) {
	var fn func(Result) Result
	if state == Fulfilled {
		fn = r.onFulfilled
	} else {
		fn = r.onRejected
	}

	if fn == nil {
		if r.target == nil {
			return
		}
		if state == Fulfilled {
			r.target.resolveInternal(result)
		} else {
			r.target.rejectInternal(result)
		}
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			if r.target != nil {
				r.target.rejectInternal(PanicError{Value: rec})
			}
		}
	}()

	out := fn(result)
	if r.target != nil {
		r.target.resolveInternal(out)
	}
}

// takeReactions removes and returns all registered reactions, in
// registration order.
func (p *Promise) takeReactions() []reaction {
	if !p.r0Used {
		return nil
	}
	out := make([]reaction, 0, 1+len(p.extra))
	out = append(out, p.r0)
	out = append(out, p.extra...)
	p.r0 = reaction{}
	p.r0Used = false
	p.extra = nil
	return out
}

// resolve is the external fulfillment capability. Once the promise has
// settled, or has adopted another promise, further calls are no-ops (first
// resolution wins).
func (p *Promise) resolve(value Result) {
	if p.locked {
		return
	}
	p.resolveInternal(value)
}

// reject is the external rejection capability, with the same first-call-
// wins contract as resolve.
func (p *Promise) reject(reason Result) {
	if p.locked {
		return
	}
	p.rejectInternal(reason)
}

// resolveInternal fulfills the promise with value, unless already settled.
// If value is itself a promise, the outcome is adopted: this promise locks
// and subscribes to the inner one, settling when it does, always via a
// microtask, so state never leaks synchronously. Adopting itself is a
// cycle and rejects with [CycleError].
func (p *Promise) resolveInternal(value Result) {
	if p.state != Pending {
		return
	}

	if inner, ok := value.(*Promise); ok {
		if inner == p {
			p.rejectInternal(&CycleError{PromiseID: p.id})
			return
		}
		p.locked = true
		inner.addReaction(reaction{target: p})
		return
	}

	p.state = Fulfilled
	p.result = value
	for _, r := range p.takeReactions() {
		p.scheduleReaction(r, Fulfilled, value)
	}
}

// rejectInternal rejects the promise with reason, unless already settled.
// If no reaction has ever been registered, the record is tracked as a
// candidate unhandled rejection, reported after the microtask drain in
// which the rejection becomes final.
func (p *Promise) rejectInternal(reason Result) {
	if p.state != Pending {
		return
	}

	p.state = Rejected
	p.result = reason
	for _, r := range p.takeReactions() {
		p.scheduleReaction(r, Rejected, reason)
	}

	if !p.handled {
		p.loop.trackRejection(p)
	}
}

// Then registers handlers for settlement and returns the downstream
// promise, which settles with the handler's return value (or adopts it, if
// the handler returns a promise). Either handler may be nil, in which case
// the corresponding outcome passes through unchanged.
func (p *Promise) Then(onFulfilled, onRejected func(Result) Result) *Promise {
	child := p.loop.newPromise()
	p.addReaction(reaction{
		onFulfilled: onFulfilled,
		onRejected:  onRejected,
		target:      child,
	})
	return child
}

// Catch registers a rejection handler. Equivalent to Then(nil, onRejected).
func (p *Promise) Catch(onRejected func(Result) Result) *Promise {
	return p.Then(nil, onRejected)
}

// Finally registers a callback that runs regardless of outcome. The
// returned promise preserves the original settlement; the callback receives
// no arguments and its return value is ignored. A panic inside the callback
// is discarded and the original settlement still propagates (cleanup
// failures never swallow the result).
func (p *Promise) Finally(onFinally func()) *Promise {
	child := p.loop.newPromise()

	if onFinally == nil {
		onFinally = func() {}
	}

	settle := func(res Result, rejected bool) {
		defer func() {
			if r := recover(); r != nil {
				if rejected {
					child.reject(res)
				} else {
					child.resolve(res)
				}
			}
		}()
		onFinally()
		if rejected {
			child.reject(res)
		} else {
			child.resolve(res)
		}
	}

	p.addReaction(reaction{
		onFulfilled: func(v Result) Result {
			settle(v, false)
			return nil
		},
		onRejected: func(r Result) Result {
			settle(r, true)
			return nil
		},
		target: nil, // child is settled manually by settle
	})

	return child
}
