// Package simloop is a deterministic single-threaded event loop simulator,
// modelling the browser scheduling pipeline with a logical clock: turns
// execute at most one macrotask, drain the microtask queue to a fixpoint,
// then run one-shot render callbacks. Promises settle through the same
// microtask machinery, so chained reactions interleave with explicitly
// queued microtasks in strict FIFO order.
//
// Determinism is the point. Nothing reads the wall clock, nothing blocks,
// and no goroutines are spawned: a given program of scheduled callbacks
// produces the same execution trace on every run, which the built-in trace
// log ([Loop.Trace]) captures for assertion or replay.
//
// Loops are constructed explicitly via [New] and share no state; a process
// may drive any number of independent loops. A Loop is not safe for
// concurrent use.
package simloop
