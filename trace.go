package simloop

// CallbackKind classifies an executed callback in the trace log.
type CallbackKind int

const (
	// KindTask marks a coarse-grained deferred callback dispatched one at a
	// time by the loop.
	KindTask CallbackKind = iota
	// KindMicrotask marks a fine-grained callback drained to exhaustion
	// between tasks.
	KindMicrotask
	// KindRender marks a render callback executed at the end of a turn.
	KindRender
)

// String returns the trace-log representation of the kind.
func (k CallbackKind) String() string {
	switch k {
	case KindTask:
		return "task"
	case KindMicrotask:
		return "microtask"
	case KindRender:
		return "render"
	default:
		return "unknown"
	}
}

// TraceEvent records one executed callback. The ordered sequence of trace
// events is the loop's externally observable execution order, and the
// primary fixture output for deterministic tests.
type TraceEvent struct {
	// Label is the submission label, or a synthesized label for internally
	// scheduled callbacks (e.g. promise reactions).
	Label string
	// Turn is the turn index during which the callback executed.
	Turn int
	// Kind classifies the callback.
	Kind CallbackKind
	// Seq is the scheduler-clock sequence number assigned at submission.
	Seq uint64
}

// record appends a trace event for a callback about to execute.
func (l *Loop) record(kind CallbackKind, label string, seq uint64) {
	if !l.traceEnabled {
		return
	}
	l.trace = append(l.trace, TraceEvent{
		Label: label,
		Turn:  l.turn,
		Kind:  kind,
		Seq:   seq,
	})
}

// Trace returns a copy of the ordered trace log accumulated so far.
func (l *Loop) Trace() []TraceEvent {
	out := make([]TraceEvent, len(l.trace))
	copy(out, l.trace)
	return out
}

// TraceLabels returns just the labels of the trace log, in execution order.
// Convenient for asserting execution order in tests and tooling.
func (l *Loop) TraceLabels() []string {
	out := make([]string, len(l.trace))
	for i, e := range l.trace {
		out[i] = e.Label
	}
	return out
}

// ResetTrace discards the accumulated trace log.
func (l *Loop) ResetTrace() {
	l.trace = l.trace[:0]
}
