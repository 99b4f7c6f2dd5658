package sim

// SteppedClock is a manually advanced unix-seconds clock. The engine is
// deterministic; scenarios move time forward explicitly with advance ops.
type SteppedClock struct {
	now uint64
}

func NewSteppedClock(start uint64) *SteppedClock {
	return &SteppedClock{now: start}
}

func (c *SteppedClock) Now() uint64 { return c.now }

func (c *SteppedClock) Advance(seconds uint64) { c.now += seconds }
