package simloop

// LoopState represents the current state of a [Loop].
//
// State Machine:
//
//	StateIdle → StateRunning        [RunOneTurn / RunUntilIdle]
//	StateRunning → StateDraining    [microtask drain]
//	StateDraining → StateRunning    [drain complete]
//	StateRunning → StateIdle        [turn complete]
//	StateIdle → StateDisposed       [Dispose]
//	StateDisposed → (terminal)
//
// The loop is single-threaded; state is a plain field mutated only by the
// driving goroutine. StateDraining doubles as the reentrancy guard for the
// microtask drain: a drain requested while already in StateDraining is a
// no-op, and the outer drain picks up any newly queued entries.
type LoopState int

const (
	// StateIdle indicates the loop is between turns (or never started).
	StateIdle LoopState = iota
	// StateRunning indicates the loop is executing a turn.
	StateRunning
	// StateDraining indicates the loop is inside a microtask drain.
	StateDraining
	// StateDisposed indicates the loop has been disposed and accepts no
	// further work.
	StateDisposed
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateDisposed:
		return "Disposed"
	default:
		return "Unknown"
	}
}
