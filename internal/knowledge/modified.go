package knowledge

import (
	"fmt"
	"sort"
	"strings"
)

// GetModifieds returns a read-only snapshot of the global modified-set:
// names changed since the last ResetModified, mapped to a copy of their
// current record.
func (c *Context) GetModifieds() map[string]KnowledgeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]KnowledgeRecord, len(c.globalModified))
	for name, ref := range c.globalModified {
		if e := c.m.resolve(ref); e != nil {
			out[name] = e.record.shallowCopy()
		}
	}
	return out
}

// GetLocalModified returns a read-only snapshot of the local
// modified-set (names beginning with '.'), intended for checkpointing.
func (c *Context) GetLocalModified() map[string]KnowledgeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]KnowledgeRecord, len(c.localModified))
	for name, ref := range c.localModified {
		if e := c.m.resolve(ref); e != nil {
			out[name] = e.record.shallowCopy()
		}
	}
	return out
}

// DebugModifieds stringifies the current global modified-set in a
// deterministic, name-sorted "name=value;" form, for transports and
// tests to log what a drain would send.
func (c *Context) DebugModifieds() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.globalModified))
	for name := range c.globalModified {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		e := c.m.resolve(c.globalModified[name])
		if e == nil {
			continue
		}
		fmt.Fprintf(&b, "%s=%s;", name, e.record.ToString())
	}
	return b.String()
}

// ResetModified clears the entire global modified-set. The store is
// unchanged.
func (c *Context) ResetModified() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.globalModified = make(map[string]VariableReference)
}

// ResetModifiedName clears a single entry from the global modified-set.
func (c *Context) ResetModifiedName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.globalModified, name)
}

// ApplyModified re-inserts every currently-live global record into the
// global modified-set, stamping each with the current context clock
// (spec §9 open question (c)) — used to force full-state dissemination.
func (c *Context) ApplyModified() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range c.m.names() {
		if isLocalName(name) {
			continue
		}
		ref, ok := c.m.lookup(name)
		if !ok {
			continue
		}
		e := c.m.resolve(ref)
		if e.record.status == StatusUncreated {
			continue
		}
		e.record.clock = c.clock
		c.globalModified[name] = ref
	}
	c.cond.Broadcast()
	c.metrics.signal()
}

// MarkModified explicitly inserts ref's variable into the appropriate
// modified-set without writing its payload.
func (c *Context) MarkModified(ref VariableReference) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if isLocalName(ref.name) {
		c.localModified[ref.name] = ref
	} else {
		c.globalModified[ref.name] = ref
	}
	c.cond.Broadcast()
	c.metrics.signal()
}

// MarkModifiedName is the name-based equivalent of MarkModified; the
// record must already exist in the context.
func (c *Context) MarkModifiedName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.m.lookup(name)
	if !ok {
		return
	}
	if isLocalName(name) {
		c.localModified[name] = ref
	} else {
		c.globalModified[name] = ref
	}
	c.cond.Broadcast()
	c.metrics.signal()
}

// WaitForChange blocks until any modification or an explicit SetChanged
// call occurs. Spurious wakeups are permitted by design; callers must
// re-check whatever condition they are waiting on. extraRelease has no
// effect in this implementation: the context lock is never held across
// a WaitForChange call by any code in this package (see DESIGN.md's
// internal-token pattern note), so there is no extra recursion depth to
// release.
func (c *Context) WaitForChange(extraRelease bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cond.Wait()
}

// SetChanged forces a change to be registered, waking anyone blocked in
// WaitForChange.
func (c *Context) SetChanged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cond.Broadcast()
	c.metrics.signal()
}
