package simloop

// clock is the scheduler clock: a monotonic sequence counter, scoped to a
// single [Loop], incremented on every task and microtask submission. It is
// used exclusively for tie-breaking and trace attribution, never as wall
// time.
type clock struct {
	seq uint64
}

// next increments the clock and returns the new sequence number.
// Sequence numbers start at 1 so 0 can serve as a null marker.
func (c *clock) next() uint64 {
	c.seq++
	return c.seq
}

// now returns the most recently issued sequence number without advancing.
func (c *clock) now() uint64 {
	return c.seq
}
