package knowledge

// IncClock atomically increments the context's Lamport clock and
// returns the new value.
func (c *Context) IncClock() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock++
	return c.clock
}

// SetClock atomically sets the context's Lamport clock, returning the
// value that was set.
func (c *Context) SetClock(clock uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock = clock
	return c.clock
}

// GetClock returns the current context (global) clock.
func (c *Context) GetClock() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock
}

// GetVariableClock returns the Lamport clock stamped on a single
// variable, or 0 if it does not exist.
func (c *Context) GetVariableClock(name string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.m.lookup(name)
	if !ok {
		return 0
	}
	return c.m.resolve(ref).record.clock
}

// nextClockLocked advances the context clock per settings.ClockIncrement (0
// means advance by one) and returns the stamp a writer should use.
// Caller must already hold c.mu.
func (c *Context) nextClockLocked(settings UpdateSettings) uint64 {
	if settings.ClockIncrement == 0 {
		c.clock++
	} else {
		c.clock += settings.ClockIncrement
	}
	return c.clock
}
