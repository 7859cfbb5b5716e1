package simloop

import (
	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
)

// LoopOption configures a Loop instance.
type LoopOption interface {
	applyLoop(*Loop) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*Loop) error
}

func (l *loopOptionImpl) applyLoop(loop *Loop) error {
	return l.applyLoopFunc(loop)
}

// WithLogger sets the loop's structured logger. The logger receives turn
// summaries at debug level and panic/rejection reports at error and
// warning level. A nil logger (the default) disables logging.
func WithLogger(logger *logiface.Logger[logiface.Event]) LoopOption {
	return &loopOptionImpl{func(l *Loop) error {
		l.logger = logger
		return nil
	}}
}

// WithErrorSink sets the function that receives callback panics (as
// [PanicError]) and unhandled rejection reasons (as errors). The default
// is no sink; errors are still logged when a logger is configured.
func WithErrorSink(sink func(error)) LoopOption {
	return &loopOptionImpl{func(l *Loop) error {
		l.sink = sink
		return nil
	}}
}

// WithUnhandledRejection sets a handler invoked once per unhandled
// rejection, replacing the default log-and-sink report. The handler
// receives the rejected promise after the drain in which the rejection
// became final.
func WithUnhandledRejection(fn func(*Promise)) LoopOption {
	return &loopOptionImpl{func(l *Loop) error {
		l.onUnhandled = fn
		return nil
	}}
}

// WithMaxDrainDepth overrides [DefaultMaxDrainDepth], the number of
// microtasks a single drain may execute before it is abandoned with
// [ErrStarvation]. Values below 1 are rejected.
func WithMaxDrainDepth(n int) LoopOption {
	return &loopOptionImpl{func(l *Loop) error {
		if n < 1 {
			return ErrInvalidDrainDepth
		}
		l.maxDrain = n
		return nil
	}}
}

// WithMetrics enables runtime metrics collection on the Loop.
// When enabled, metrics can be accessed via Loop.Metrics().
func WithMetrics(enabled bool) LoopOption {
	return &loopOptionImpl{func(l *Loop) error {
		if enabled {
			l.metrics = newMetrics()
		} else {
			l.metrics = nil
		}
		return nil
	}}
}

// WithTrace enables or disables trace log collection. Enabled by default;
// disable for long-running simulations where the trace would grow without
// bound.
func WithTrace(enabled bool) LoopOption {
	return &loopOptionImpl{func(l *Loop) error {
		l.traceEnabled = enabled
		return nil
	}}
}

// WithReportLimiter throttles error sink deliveries using a categorised
// rate limiter. Panics and unhandled rejections are throttled as separate
// categories; reports over the limit are dropped (the logger still sees
// them). A nil limiter (the default) delivers every report.
func WithReportLimiter(limiter *catrate.Limiter) LoopOption {
	return &loopOptionImpl{func(l *Loop) error {
		l.limiter = limiter
		return nil
	}}
}
