// Package knowledge is the thread-safe knowledge context: a concurrent,
// in-memory map from name to dynamically-typed KnowledgeRecord, with a
// Lamport clock, quality-based external merge, modified-set tracking for
// replication, and binary checkpoint persistence.
//
// Everything in this package holds a single mutex. Where the teacher's
// store used sync.RWMutex to let readers run concurrently, this context
// cannot: reads must observe a consistent (record, clock, modified-set)
// triple, and expression evaluation re-enters the context from inside a
// held lock, so a plain writer-preferring RWMutex would deadlock on that
// reentry. Recursive acquisition on a single goroutine is achieved by
// never taking the lock twice on one call path: every exported method
// locks exactly once and calls into unexported, non-locking helpers.
package knowledge

import (
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
)

// Context is the knowledge context described above. The zero value is
// not usable; construct one with NewContext.
type Context struct {
	mu   sync.Mutex
	cond *sync.Cond

	m     *KnowledgeMap
	clock uint64

	globalModified map[string]VariableReference
	localModified  map[string]VariableReference

	metrics *metricsSet
	logger  *log.Logger
	id      string
}

// Option configures a Context at construction time.
type Option func(*Context)

// WithLogger attaches a logger sink (§6.5). If omitted, a discarding
// logger is used so log calls never panic on a nil receiver.
func WithLogger(logger *log.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

// WithMetrics registers Prometheus counters for this context under the
// given namespace. If omitted, metric calls are no-ops.
func WithMetrics(reg prometheus.Registerer, namespace string) Option {
	return func(c *Context) { c.metrics = newMetricsSet(reg, namespace) }
}

// WithID sets an identifying string persisted alongside checkpoints
// (see SaveContext). Defaults to the empty string.
func WithID(id string) Option {
	return func(c *Context) { c.id = id }
}

// NewContext builds an empty knowledge context.
func NewContext(opts ...Option) *Context {
	c := &Context{
		m:              newKnowledgeMap(),
		globalModified: make(map[string]VariableReference),
		localModified:  make(map[string]VariableReference),
		logger:         log.New(io.Discard),
	}
	c.cond = sync.NewCond(&c.mu)
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.New(io.Discard)
	}
	return c
}

// isLocalName reports whether name is local (§3.3, GLOSSARY): local
// names begin with '.' and are excluded from replication.
func isLocalName(name string) bool {
	return strings.HasPrefix(name, ".")
}

// classify resolves the effective locality of a write given the name
// and the override in settings.
func classify(name string, override LocalOverride) bool {
	switch override {
	case AlwaysLocal:
		return true
	case AlwaysGlobal:
		return false
	default:
		return isLocalName(name)
	}
}

// ---- read path (§4.3.1) ----

// Get returns a copy of the named record; payload sharing with the
// stored record is preserved per §4.3.1. A missing name yields an
// UNINITIALIZED record with status UNCREATED, never an error.
func (c *Context) Get(name string) KnowledgeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(name)
}

func (c *Context) getLocked(name string) KnowledgeRecord {
	c.metrics.read("name")
	ref, ok := c.m.lookup(name)
	if !ok {
		return NewRecord()
	}
	return c.m.resolve(ref).record.shallowCopy()
}

// GetRef resolves (or creates, per §4.2) a stable VariableReference for
// name, and returns the record's current value alongside it.
func (c *Context) GetRef(name string) (VariableReference, KnowledgeRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := c.m.getRef(name)
	c.metrics.read("ref")
	return ref, c.m.resolve(ref).record.shallowCopy()
}

// GetByRef reads through an already-resolved reference. An invalidated
// reference reads as UNCREATED.
func (c *Context) GetByRef(ref VariableReference) KnowledgeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics.read("byref")
	e := c.m.resolve(ref)
	if e == nil {
		return NewRecord()
	}
	return e.record.shallowCopy()
}

// Exists reports whether name has ever been written (status != UNCREATED).
func (c *Context) Exists(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.m.lookup(name)
	if !ok {
		return false
	}
	return c.m.resolve(ref).record.status != StatusUncreated
}

// RetrieveIndex reads a single array element by name; see
// KnowledgeRecord.RetrieveIndex for the failure-mode contract.
func (c *Context) RetrieveIndex(name string, i int) KnowledgeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.m.lookup(name)
	if !ok {
		return NewRecord()
	}
	return c.m.resolve(ref).record.RetrieveIndex(i)
}

// GetQuality returns the quality of name, or 0 if it does not exist.
func (c *Context) GetQuality(name string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.m.lookup(name)
	if !ok {
		return 0
	}
	return c.m.resolve(ref).record.quality
}

// GetWriteQuality returns the write authority of name, or 0 if it does
// not exist.
func (c *Context) GetWriteQuality(name string) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.m.lookup(name)
	if !ok {
		return 0
	}
	return c.m.resolve(ref).record.writeQuality
}

// SetQuality sets name's quality, creating it if absent. Does not touch
// the clock or modified-sets: quality is metadata, not a value change.
func (c *Context) SetQuality(name string, quality uint32) int {
	if name == "" {
		return -1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.m.resolve(c.m.getRef(name))
	e.record.quality = quality
	return 0
}

// SetWriteQuality sets name's write authority, creating it if absent.
func (c *Context) SetWriteQuality(name string, quality uint32) int {
	if name == "" {
		return -1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.m.resolve(c.m.getRef(name))
	e.record.writeQuality = quality
	return 0
}

// ---- write path (§4.3.2) ----

// writeLocked implements the five-step setter recipe common to every
// typed setter. Caller must hold c.mu. apply receives the resolved
// record and mutates its payload in place.
func (c *Context) writeLocked(name string, settings UpdateSettings, apply func(*KnowledgeRecord)) int {
	if name == "" {
		return -1
	}
	ref := c.m.getRef(name)
	e := c.m.resolve(ref)

	apply(&e.record)
	e.record.status = StatusModified

	local := classify(name, settings.TreatAsLocalOverride)

	e.record.clock = c.nextClockLocked(settings)

	if local {
		if settings.TrackLocalChanges {
			c.localModified[name] = ref
		}
	} else if settings.AlwaysDisseminate {
		c.globalModified[name] = ref
	}

	if settings.SignalChanges {
		c.cond.Broadcast()
		c.metrics.signal()
	}
	return 0
}

// SetInteger writes an INTEGER record.
func (c *Context) SetInteger(name string, v int64, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) { r.SetInteger(v) })
	c.metrics.write("integer")
	return r
}

// SetDouble writes a DOUBLE record.
func (c *Context) SetDouble(name string, v float64, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) { r.SetDouble(v) })
	c.metrics.write("double")
	return r
}

// SetIntegerArray writes an INTEGER_ARRAY record, copying v.
func (c *Context) SetIntegerArray(name string, v []int64, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) { r.SetIntegerArray(v) })
	c.metrics.write("integer_array")
	return r
}

// SetDoubleArray writes a DOUBLE_ARRAY record, copying v.
func (c *Context) SetDoubleArray(name string, v []float64, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) { r.SetDoubleArray(v) })
	c.metrics.write("double_array")
	return r
}

// SetString writes a STRING record.
func (c *Context) SetString(name string, v string, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) { r.SetString(v) })
	c.metrics.write("string")
	return r
}

// SetText writes a TEXT record.
func (c *Context) SetText(name string, v string, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) { r.SetText(v) })
	c.metrics.write("text")
	return r
}

// SetXML writes an XML record.
func (c *Context) SetXML(name string, v string, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) { r.SetXML(v) })
	c.metrics.write("xml")
	return r
}

// SetJPEG writes a JPEG record. The caller is responsible for having
// validated the buffer (see internal/api for the mimetype-sniffing
// validation at the HTTP boundary); this layer stores whatever bytes
// it is given.
func (c *Context) SetJPEG(name string, v []byte, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) { r.SetJPEG(v) })
	c.metrics.write("jpeg")
	return r
}

// SetUnknownFile writes an UNKNOWN_FILE record.
func (c *Context) SetUnknownFile(name string, v []byte, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) { r.SetUnknownFile(v) })
	c.metrics.write("unknown_file")
	return r
}

// SetRecord installs a full, already-constructed record verbatim
// (payload, type, quality) under name, following the same clock and
// modified-set policy as the typed setters.
func (c *Context) SetRecord(name string, v KnowledgeRecord, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) {
		payload := v.DeepCopy()
		*r = payload
	})
	c.metrics.write("record")
	return r
}

// SetIfUnequal writes only if v differs from the stored value, or if
// the caller's (clock, quality) would admit it under the merge rule
// (§4.5, §4.3.3). Returns 1 if applied, 0 if suppressed, -1 on empty
// name.
func (c *Context) SetIfUnequal(name string, v KnowledgeRecord, settings UpdateSettings) int {
	if name == "" {
		return -1
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ref := c.m.getRef(name)
	e := c.m.resolve(ref)

	changed := e.record.status == StatusUncreated ||
		e.record.typ != v.typ ||
		e.record.ToString() != v.ToString()

	admits := mergeAccepts(e.record.status, e.record.clock, e.record.quality, v.clock, v.quality)

	if !changed && !admits {
		return 0
	}

	payload := v.DeepCopy()
	e.record = payload
	e.record.status = StatusModified
	e.record.clock = c.nextClockLocked(settings)

	local := classify(name, settings.TreatAsLocalOverride)
	if local {
		if settings.TrackLocalChanges {
			c.localModified[name] = ref
		}
	} else if settings.AlwaysDisseminate {
		c.globalModified[name] = ref
	}
	if settings.SignalChanges {
		c.cond.Broadcast()
		c.metrics.signal()
	}
	c.metrics.write("if_unequal")
	return 1
}

// SetIndex writes a single integer array element (§4.3.4).
func (c *Context) SetIndex(name string, i int, v int64, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) { r.SetIndex(i, v) })
	c.metrics.write("index")
	return r
}

// SetIndexDouble writes a single double array element (§4.3.4).
func (c *Context) SetIndexDouble(name string, i int, v float64, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) { r.SetIndexDouble(i, v) })
	c.metrics.write("index_double")
	return r
}

// Inc atomically increments a numeric record by one; a non-numeric or
// absent record becomes INTEGER 1 (§4.3.5).
func (c *Context) Inc(name string, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) {
		switch r.typ {
		case Integer:
			r.SetInteger(r.intVal + 1)
		case Double:
			r.SetDouble(r.dblVal + 1)
		default:
			r.SetInteger(1)
		}
	})
	c.metrics.write("inc")
	return r
}

// Dec is the decrementing counterpart of Inc; a non-numeric or absent
// record becomes INTEGER -1.
func (c *Context) Dec(name string, settings UpdateSettings) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.writeLocked(name, settings, func(r *KnowledgeRecord) {
		switch r.typ {
		case Integer:
			r.SetInteger(r.intVal - 1)
		case Double:
			r.SetDouble(r.dblVal - 1)
		default:
			r.SetInteger(-1)
		}
	})
	c.metrics.write("dec")
	return r
}

// DeleteVariable removes name from the store and both modified-sets
// (§4.3.6). Any outstanding VariableReference to it is invalidated by
// KnowledgeMap.delete's generation bump.
func (c *Context) DeleteVariable(name string) int {
	if name == "" {
		return -1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m.delete(name) {
		delete(c.globalModified, name)
		delete(c.localModified, name)
		c.metrics.delete()
	}
	return 0
}

// Clear resets the context. If erase is false, every record is reset
// to UNINITIALIZED but names and references survive; if true, the
// entire map (and both modified-sets) is wiped.
func (c *Context) Clear(erase bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.clear(erase)
	if erase {
		c.globalModified = make(map[string]VariableReference)
		c.localModified = make(map[string]VariableReference)
	}
}

// Copy duplicates entries from source into c. If copySet is non-nil,
// only names present in copySet are copied; otherwise every name is.
// If cleanCopy is true, c is cleared first.
func (c *Context) Copy(source *Context, copySet map[string]bool, cleanCopy bool) {
	source.mu.Lock()
	names := source.m.names()
	values := make(map[string]KnowledgeRecord, len(names))
	for _, name := range names {
		if copySet != nil && !copySet[name] {
			continue
		}
		ref, _ := source.m.lookup(name)
		values[name] = source.m.resolve(ref).record.DeepCopy()
	}
	source.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if cleanCopy {
		c.m.clear(true)
		c.globalModified = make(map[string]VariableReference)
		c.localModified = make(map[string]VariableReference)
	}
	for name, rec := range values {
		e := c.m.resolve(c.m.getRef(name))
		e.record = rec
		e.record.status = StatusModified
	}
}

// SetLogLevel adjusts the attached logger's verbosity (§6.5; higher is
// more detail, matching the spec's convention rather than
// charmbracelet/log's own "lower is more severe" scale).
func (c *Context) SetLogLevel(level int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.SetLevel(log.Level(-level))
}

// GetLogLevel returns the current verbosity set via SetLogLevel.
func (c *Context) GetLogLevel() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int(-c.logger.GetLevel())
}

// AttachLogger swaps the logger sink used for this context's internal
// diagnostics.
func (c *Context) AttachLogger(logger *log.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}
