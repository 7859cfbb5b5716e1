package simloop

// metrics tracks runtime statistics for a loop. Collection is optional
// (see [WithMetrics]); the loop holds nil when disabled so the hot path
// pays a single pointer check.
type metrics struct {
	turns               uint64
	tasksExecuted       uint64
	tasksCancelled      uint64
	microtasksExecuted  uint64
	renderExecuted      uint64
	panicsRecovered     uint64
	unhandledRejections uint64
	starvations         uint64
	drains              *drainDepthDist
}

func newMetrics() *metrics {
	return &metrics{drains: newDrainDepthDist()}
}

// MetricsSnapshot is a point-in-time copy of the loop's runtime statistics.
type MetricsSnapshot struct {
	// Turns is the number of turns that performed work.
	Turns uint64
	// TasksExecuted counts task callbacks run to completion (including ones
	// that panicked).
	TasksExecuted uint64
	// TasksCancelled counts tasks cancelled before execution.
	TasksCancelled uint64
	// MicrotasksExecuted counts microtask callbacks run.
	MicrotasksExecuted uint64
	// RenderExecuted counts render callbacks run.
	RenderExecuted uint64
	// PanicsRecovered counts callbacks that panicked and were isolated.
	PanicsRecovered uint64
	// UnhandledRejections counts rejection reports emitted.
	UnhandledRejections uint64
	// Starvations counts microtask drains abandoned at the iteration bound.
	Starvations uint64

	// Drain-depth distribution: microtasks executed per drain.
	DrainCount     int
	DrainDepthMean float64
	DrainDepthP50  float64
	DrainDepthP95  float64
	DrainDepthP99  float64
	DrainDepthMax  float64
}

// Metrics returns a snapshot of the loop's runtime statistics. The second
// return is false when metrics collection is disabled.
func (l *Loop) Metrics() (MetricsSnapshot, bool) {
	m := l.metrics
	if m == nil {
		return MetricsSnapshot{}, false
	}
	return MetricsSnapshot{
		Turns:               m.turns,
		TasksExecuted:       m.tasksExecuted,
		TasksCancelled:      m.tasksCancelled,
		MicrotasksExecuted:  m.microtasksExecuted,
		RenderExecuted:      m.renderExecuted,
		PanicsRecovered:     m.panicsRecovered,
		UnhandledRejections: m.unhandledRejections,
		Starvations:         m.starvations,
		DrainCount:          m.drains.count,
		DrainDepthMean:      m.drains.mean(),
		DrainDepthP50:       m.drains.p50.quantile(),
		DrainDepthP95:       m.drains.p95.quantile(),
		DrainDepthP99:       m.drains.p99.quantile(),
		DrainDepthMax:       m.drains.max,
	}, true
}
