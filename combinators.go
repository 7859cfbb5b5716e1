package simloop

// SettledResult is one element of an [Loop.AllSettled] outcome.
type SettledResult struct {
	// Value holds the fulfillment value when State is Fulfilled.
	Value Result
	// Reason holds the rejection reason when State is Rejected.
	Reason Result
	// State is either Fulfilled or Rejected, never Pending.
	State PromiseState
}

// All returns a promise that fulfills with the values of all input
// promises, in input order, once every input has fulfilled. It rejects with
// the first rejection reason as soon as any input rejects; remaining inputs
// are not awaited for the outcome (their settlements still occur, they just
// no longer affect the already-settled result).
//
// An empty input fulfills immediately with an empty slice.
func (l *Loop) All(promises ...*Promise) *Promise {
	result := l.newPromise()
	if len(promises) == 0 {
		result.resolve([]Result{})
		return result
	}

	values := make([]Result, len(promises))
	remaining := len(promises)
	for i, p := range promises {
		p.addReaction(reaction{
			onFulfilled: func(v Result) Result {
				values[i] = v
				remaining--
				if remaining == 0 {
					result.resolve(values)
				}
				return nil
			},
			onRejected: func(r Result) Result {
				result.reject(r)
				return nil
			},
		})
	}
	return result
}

// Race returns a promise that settles the same way as the first input to
// settle. With the loop's deterministic ordering "first" is well defined:
// the input whose settlement microtask runs earliest wins.
//
// An empty input never settles.
func (l *Loop) Race(promises ...*Promise) *Promise {
	result := l.newPromise()
	for _, p := range promises {
		p.addReaction(reaction{
			onFulfilled: func(v Result) Result {
				result.resolve(v)
				return nil
			},
			onRejected: func(r Result) Result {
				result.reject(r)
				return nil
			},
		})
	}
	return result
}

// Any returns a promise that fulfills with the first fulfillment value. It
// rejects only once every input has rejected, with an [AggregateError]
// holding each reason in input order.
//
// An empty input rejects immediately with an empty AggregateError.
func (l *Loop) Any(promises ...*Promise) *Promise {
	result := l.newPromise()
	if len(promises) == 0 {
		result.reject(&AggregateError{Message: "all promises were rejected"})
		return result
	}

	reasons := make([]error, len(promises))
	remaining := len(promises)
	for i, p := range promises {
		p.addReaction(reaction{
			onFulfilled: func(v Result) Result {
				result.resolve(v)
				return nil
			},
			onRejected: func(r Result) Result {
				reasons[i] = asError(r)
				remaining--
				if remaining == 0 {
					result.reject(&AggregateError{
						Message: "all promises were rejected",
						Errors:  reasons,
					})
				}
				return nil
			},
		})
	}
	return result
}

// AllSettled returns a promise that fulfills once every input has settled,
// with a slice of per-input outcomes in input order. It never rejects.
//
// An empty input fulfills immediately with an empty slice.
func (l *Loop) AllSettled(promises ...*Promise) *Promise {
	result := l.newPromise()
	if len(promises) == 0 {
		result.resolve([]SettledResult{})
		return result
	}

	outcomes := make([]SettledResult, len(promises))
	remaining := len(promises)
	settleOne := func(i int, s SettledResult) {
		outcomes[i] = s
		remaining--
		if remaining == 0 {
			result.resolve(outcomes)
		}
	}
	for i, p := range promises {
		p.addReaction(reaction{
			onFulfilled: func(v Result) Result {
				settleOne(i, SettledResult{State: Fulfilled, Value: v})
				return nil
			},
			onRejected: func(r Result) Result {
				settleOne(i, SettledResult{State: Rejected, Reason: r})
				return nil
			},
		})
	}
	return result
}
