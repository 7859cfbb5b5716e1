package simloop

// AbortSignal carries cancellation state from an [AbortController] to
// operations observing it. Handlers registered via OnAbort run
// synchronously, in registration order, when the controller aborts.
// Single-threaded, like the loop operations it composes with.
type AbortSignal struct {
	reason   any
	handlers []func(reason any)
	aborted  bool
}

// Aborted reports whether the signal's controller has aborted.
func (s *AbortSignal) Aborted() bool {
	return s.aborted
}

// Reason returns the abort reason, or nil if not aborted. A nil reason on
// an aborted signal is reported to observers as a default [AbortError].
func (s *AbortSignal) Reason() any {
	return s.reason
}

// Err returns nil while the signal is live, and an [AbortError] carrying
// the reason once aborted.
func (s *AbortSignal) Err() error {
	if !s.aborted {
		return nil
	}
	return &AbortError{Reason: s.reason}
}

// OnAbort registers a handler invoked with the abort reason. If the signal
// has already aborted the handler runs immediately.
func (s *AbortSignal) OnAbort(handler func(reason any)) {
	if handler == nil {
		return
	}
	if s.aborted {
		handler(s.reason)
		return
	}
	s.handlers = append(s.handlers, handler)
}

func (s *AbortSignal) abort(reason any) {
	if s.aborted {
		return
	}
	s.aborted = true
	s.reason = reason
	handlers := s.handlers
	s.handlers = nil
	for _, h := range handlers {
		h(reason)
	}
}

// AbortController owns an [AbortSignal] and the sole authority to abort it.
type AbortController struct {
	signal AbortSignal
}

// NewAbortController creates a controller with a fresh, un-aborted signal.
func NewAbortController() *AbortController {
	return &AbortController{}
}

// Signal returns the controller's signal for handing to abortable
// operations.
func (c *AbortController) Signal() *AbortSignal {
	return &c.signal
}

// Abort aborts the signal with the given reason. Subsequent calls are
// no-ops; the first reason wins.
func (c *AbortController) Abort(reason any) {
	c.signal.abort(reason)
}

// ScheduleAbortable schedules a task wired to an abort signal: aborting the
// signal before the task runs cancels it. A signal already aborted at call
// time schedules nothing and returns the zero [Handle]. A nil signal is
// equivalent to [Loop.ScheduleTask].
func (l *Loop) ScheduleAbortable(label string, delay int64, fn func(), signal *AbortSignal) (Handle, error) {
	if signal != nil && signal.Aborted() {
		return Handle{}, nil
	}
	h, err := l.ScheduleTask(label, delay, fn)
	if err != nil {
		return Handle{}, err
	}
	if signal != nil {
		signal.OnAbort(func(any) {
			h.Cancel()
		})
	}
	return h, nil
}

// AbortTimeout returns a controller that aborts itself, with reason
// "timeout", when the loop reaches a task scheduled at the given delay.
func (l *Loop) AbortTimeout(delay int64) (*AbortController, error) {
	c := NewAbortController()
	_, err := l.ScheduleTask(`abort-timeout`, delay, func() {
		c.Abort(`timeout`)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AbortAny returns a signal that aborts as soon as any input signal aborts,
// adopting that signal's reason. An input already aborted wins immediately.
func AbortAny(signals ...*AbortSignal) *AbortSignal {
	out := &AbortSignal{}
	for _, s := range signals {
		if s == nil {
			continue
		}
		if s.Aborted() {
			out.abort(s.Reason())
			return out
		}
	}
	for _, s := range signals {
		if s == nil {
			continue
		}
		s.OnAbort(func(reason any) {
			out.abort(reason)
		})
	}
	return out
}

// PromiseWithSignal derives a promise from p that additionally rejects with
// an [AbortError] if the signal aborts before p settles. First settlement
// wins either way.
func (l *Loop) PromiseWithSignal(p *Promise, signal *AbortSignal) *Promise {
	if signal == nil {
		return p
	}
	out, resolve, reject := l.NewPromise()
	signal.OnAbort(func(reason any) {
		reject(&AbortError{Reason: reason})
	})
	p.Then(func(v Result) Result {
		resolve(v)
		return nil
	}, func(r Result) Result {
		reject(r)
		return nil
	})
	return out
}
