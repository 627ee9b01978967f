package bsp

// Interrupts is the raw interrupt controller behind a Critical.
type Interrupts interface {
	// Disable disables interrupts and returns the previous state
	Disable() State
	// Restore restores a state returned by Disable
	Restore(state State)
}

// Critical is a nestable critical section. The first Enter saves the
// interrupt state it found; nested pairs only move the depth counter; the
// outermost Exit restores the saved state rather than unconditionally
// enabling interrupts, so it is safe to use from inside an ISR.
type Critical struct {
	irq   Interrupts
	depth uint8
	saved State
}

// NewCritical wraps an interrupt controller.
func NewCritical(irq Interrupts) *Critical {
	return &Critical{irq: irq}
}

// EnterCritical disables interrupts (outermost call) and increments the depth.
func (c *Critical) EnterCritical() {
	// Interrupts are already off when depth > 0, so nothing can preempt
	// between the check and the increment.
	if c.depth == 0 {
		c.saved = c.irq.Disable()
	}
	c.depth++
}

// ExitCritical decrements the depth and restores the saved interrupt state
// on the outermost call. An Exit without a matching Enter is ignored.
func (c *Critical) ExitCritical() {
	if c.depth == 0 {
		return
	}
	c.depth--
	if c.depth == 0 {
		c.irq.Restore(c.saved)
	}
}

// Depth returns the current nesting depth.
func (c *Critical) Depth() int {
	return int(c.depth)
}
