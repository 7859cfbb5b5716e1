package simloop

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrLoopDisposed is returned when operations are attempted on a loop
	// that has been disposed.
	ErrLoopDisposed = errors.New("simloop: loop has been disposed")

	// ErrReentrantTurn is returned when RunOneTurn or RunUntilIdle is called
	// from within a callback executing on the loop.
	ErrReentrantTurn = errors.New("simloop: cannot drive the loop from within the loop")

	// ErrNilCallback is returned when a nil function is scheduled.
	ErrNilCallback = errors.New("simloop: nil callback")

	// ErrInvalidDrainDepth is returned by New when WithMaxDrainDepth is
	// given a non-positive bound.
	ErrInvalidDrainDepth = errors.New("simloop: max drain depth must be positive")

	// ErrStarvation is returned when a microtask drain exceeds the configured
	// iteration bound, indicating a microtask that unconditionally resubmits
	// itself (or an equivalently unbounded chain).
	ErrStarvation = errors.New("simloop: microtask drain exceeded iteration bound")
)

// PanicError wraps a value recovered from a panicking callback.
//
// Callback panics are isolated to the callback that raised them: the loop
// reports the wrapped panic to its error sink and continues with the next
// queued entry.
type PanicError struct {
	// Value is the recovered panic value.
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("simloop: callback panicked: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type,
// enabling [errors.Is] and [errors.As] through the wrapper. Returns nil for
// non-error panic values.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// CycleError indicates a promise resolution cycle: a promise was asked to
// adopt a settlement that leads back to itself, which could never settle.
type CycleError struct {
	// PromiseID identifies the promise at which the cycle was detected.
	PromiseID uint64
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("simloop: chaining cycle detected for promise #%d", e.PromiseID)
}

// AggregateError is the rejection reason produced by [Loop.Any] when every
// input promise rejects. Errors preserves the order of the input promises.
type AggregateError struct {
	// Message matches the JS AggregateError message property.
	Message string
	// Errors contains all rejection reasons, in input order.
	Errors []error
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "all promises were rejected"
}

// Unwrap returns the errors slice for multi-error unwrapping, so
// [errors.Is] and [errors.As] match against every contained error.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// Is reports whether target is itself an *AggregateError, regardless of
// contents. Matching contained errors is handled via Unwrap.
func (e *AggregateError) Is(target error) bool {
	var agg *AggregateError
	return errors.As(target, &agg)
}

// ErrorWrapper wraps a non-error rejection reason as an error, for
// [AggregateError] compatibility.
type ErrorWrapper struct {
	// Value is the original non-error rejection reason.
	Value Result
}

// Error implements the error interface.
func (e *ErrorWrapper) Error() string {
	return fmt.Sprintf("%v", e.Value)
}

// AbortError is the rejection reason used when an operation is cancelled
// through an [AbortController].
type AbortError struct {
	// Reason is the value passed to Abort, or nil.
	Reason any
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	if e.Reason == nil {
		return "simloop: operation aborted"
	}
	return fmt.Sprintf("simloop: operation aborted: %v", e.Reason)
}

// Unwrap returns the underlying error if the abort reason is an error type.
func (e *AbortError) Unwrap() error {
	if err, ok := e.Reason.(error); ok {
		return err
	}
	return nil
}

// asError converts an arbitrary rejection reason to an error, wrapping
// non-error values.
func asError(reason Result) error {
	if err, ok := reason.(error); ok {
		return err
	}
	return &ErrorWrapper{Value: reason}
}
