// Package timer implements the CHIP-8 delay and sound timers.
// Both are simple 8 bit down counters clocked at 60Hz by the
// scheduler independent of how many instructions run per frame.
package timer

// Countdown is an 8 bit counter which decrements once per Tick while non-zero.
type Countdown struct {
	val uint8
}

// Set loads a new count.
func (c *Countdown) Set(v uint8) {
	c.val = v
}

// Value returns the current count.
func (c *Countdown) Value() uint8 {
	return c.val
}

// Active is true while the count hasn't reached zero.
func (c *Countdown) Active() bool {
	return c.val > 0
}

// Tick decrements the count by one. It stops at zero and never underflows.
func (c *Countdown) Tick() {
	if c.val > 0 {
		c.val--
	}
}
