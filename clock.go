package depot

import "sync/atomic"

// Tick is the value of the change-detection clock at some instant. Every
// component slot remembers the tick of its last add and last mutation.
type Tick uint64

// Clock is the monotonic change-detection counter for one world. It is an
// explicit context object constructed once at startup and threaded into the
// storage and scheduler that share it. The scheduler advances it at the
// start of a pass and again at every wave sync, so writes made by a later
// wave carry a larger tick than reads performed by an earlier one.
type Clock struct {
	current atomic.Uint64
}

func newClock() *Clock {
	c := &Clock{}
	// Tick zero is reserved as "never"; slots stamped at tick >= 1.
	c.current.Store(1)
	return c
}

// Now returns the current tick.
func (c *Clock) Now() Tick {
	return Tick(c.current.Load())
}

// Advance increments the clock and returns the new tick.
func (c *Clock) Advance() Tick {
	return Tick(c.current.Add(1))
}
