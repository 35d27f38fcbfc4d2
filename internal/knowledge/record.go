// Package knowledge implements the thread-safe knowledge context: a
// concurrent, in-memory key/value store whose entries are dynamically
// typed knowledge records stamped with a Lamport clock and a quality.
package knowledge

import (
	"strconv"
)

// Type is the discriminant tag of a KnowledgeRecord.
type Type int

const (
	Uninitialized Type = iota
	Integer
	IntegerArray
	Double
	DoubleArray
	String
	Text
	XML
	JPEG
	UnknownFile
)

func (t Type) String() string {
	switch t {
	case Uninitialized:
		return "UNINITIALIZED"
	case Integer:
		return "INTEGER"
	case IntegerArray:
		return "INTEGER_ARRAY"
	case Double:
		return "DOUBLE"
	case DoubleArray:
		return "DOUBLE_ARRAY"
	case String:
		return "STRING"
	case Text:
		return "TEXT"
	case XML:
		return "XML"
	case JPEG:
		return "JPEG"
	case UnknownFile:
		return "UNKNOWN_FILE"
	default:
		return "UNKNOWN"
	}
}

// Status is the lifecycle state of an entry in a KnowledgeMap.
type Status int

const (
	StatusUncreated Status = iota
	StatusModified
	StatusUnmodified
)

// shared wraps a payload that may be observed by more than one
// KnowledgeRecord at once. Any record about to mutate a shared payload
// in place must first materialize a private copy (copy-on-write); the
// flag, once set, is never cleared, since a Go value copy of a
// KnowledgeRecord cannot be intercepted the way a C++ copy constructor
// can, so the buffer is treated as potentially shared forever once it is
// handed out.
type shared[T any] struct {
	val    T
	shared bool
}

func newShared[T any](v T) *shared[T] {
	return &shared[T]{val: v}
}

func (s *shared[T]) clone(cloneVal func(T) T) *shared[T] {
	return &shared[T]{val: cloneVal(s.val)}
}

// KnowledgeRecord is a discriminated, copy-on-write value carrying any
// of the supported variant types plus replication metadata.
type KnowledgeRecord struct {
	typ Type

	intVal int64
	dblVal float64

	strBuf *shared[string]
	intArr *shared[[]int64]
	dblArr *shared[[]float64]
	binBuf *shared[[]byte]

	clock        uint64
	quality      uint32
	writeQuality uint32
	status       Status
}

// NewRecord returns an UNINITIALIZED record.
func NewRecord() KnowledgeRecord {
	return KnowledgeRecord{typ: Uninitialized, status: StatusUncreated}
}

func cloneInts(v []int64) []int64 {
	out := make([]int64, len(v))
	copy(out, v)
	return out
}

func cloneDoubles(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func cloneBytes(v []byte) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

// Type returns the record's variant tag.
func (r KnowledgeRecord) Type() Type { return r.typ }

// Status returns the record's lifecycle state.
func (r KnowledgeRecord) Status() Status { return r.status }

// Clock returns the record's Lamport stamp.
func (r KnowledgeRecord) Clock() uint64 { return r.clock }

// Quality returns the record's priority.
func (r KnowledgeRecord) Quality() uint32 { return r.quality }

// WriteQuality returns this process's write authority for the record.
func (r KnowledgeRecord) WriteQuality() uint32 { return r.writeQuality }

func (r *KnowledgeRecord) reset() {
	r.strBuf = nil
	r.intArr = nil
	r.dblArr = nil
	r.binBuf = nil
	r.intVal = 0
	r.dblVal = 0
}

// SetInteger replaces the payload with a scalar integer.
func (r *KnowledgeRecord) SetInteger(v int64) {
	r.reset()
	r.typ = Integer
	r.intVal = v
}

// SetDouble replaces the payload with a scalar double.
func (r *KnowledgeRecord) SetDouble(v float64) {
	r.reset()
	r.typ = Double
	r.dblVal = v
}

// SetIntegerArray replaces the payload with an owned copy of v.
func (r *KnowledgeRecord) SetIntegerArray(v []int64) {
	r.reset()
	r.typ = IntegerArray
	r.intArr = newShared(cloneInts(v))
}

// SetDoubleArray replaces the payload with an owned copy of v.
func (r *KnowledgeRecord) SetDoubleArray(v []float64) {
	r.reset()
	r.typ = DoubleArray
	r.dblArr = newShared(cloneDoubles(v))
}

// SetString replaces the payload with a string. The caller's string is
// never mutated by later writers (strings are immutable in Go), but the
// record still tracks whether the underlying buffer has since been
// shared out, for symmetry with the array/binary kinds.
func (r *KnowledgeRecord) SetString(v string) {
	r.reset()
	r.typ = String
	r.strBuf = newShared(v)
}

// SetText replaces the payload with a text-file body.
func (r *KnowledgeRecord) SetText(v string) {
	r.reset()
	r.typ = Text
	r.strBuf = newShared(v)
}

// SetXML replaces the payload with an XML document body.
func (r *KnowledgeRecord) SetXML(v string) {
	r.reset()
	r.typ = XML
	r.strBuf = newShared(v)
}

// SetJPEG replaces the payload with raw JPEG bytes.
func (r *KnowledgeRecord) SetJPEG(v []byte) {
	r.reset()
	r.typ = JPEG
	r.binBuf = newShared(cloneBytes(v))
}

// SetUnknownFile replaces the payload with opaque binary bytes.
func (r *KnowledgeRecord) SetUnknownFile(v []byte) {
	r.reset()
	r.typ = UnknownFile
	r.binBuf = newShared(cloneBytes(v))
}

// EmplaceSharedString installs a shared string payload without copying.
func (r *KnowledgeRecord) EmplaceSharedString(buf *shared[string]) {
	r.reset()
	r.typ = String
	buf.shared = true
	r.strBuf = buf
}

// EmplaceSharedIntegers installs a shared integer-array payload without copying.
func (r *KnowledgeRecord) EmplaceSharedIntegers(buf *shared[[]int64]) {
	r.reset()
	r.typ = IntegerArray
	buf.shared = true
	r.intArr = buf
}

// EmplaceSharedDoubles installs a shared double-array payload without copying.
func (r *KnowledgeRecord) EmplaceSharedDoubles(buf *shared[[]float64]) {
	r.reset()
	r.typ = DoubleArray
	buf.shared = true
	r.dblArr = buf
}

// NewSharedString builds a fresh shared string buffer, for use with
// EmplaceSharedString.
func NewSharedString(v string) *shared[string] { return newShared(v) }

// NewSharedIntegers builds a fresh shared integer-array buffer of n
// copies of fill, for use with EmplaceSharedIntegers.
func NewSharedIntegers(n int, fill int64) *shared[[]int64] {
	v := make([]int64, n)
	for i := range v {
		v[i] = fill
	}
	return newShared(v)
}

// ShareString returns a handle to the record's string payload if the
// record holds one, marking it shared. Returns nil, false on type
// mismatch.
func (r KnowledgeRecord) ShareString() (*shared[string], bool) {
	if r.strBuf == nil || (r.typ != String && r.typ != Text && r.typ != XML) {
		return nil, false
	}
	r.strBuf.shared = true
	return r.strBuf, true
}

// ShareIntegers returns a handle to the record's integer-array payload,
// marking it shared. Returns nil, false on type mismatch.
func (r KnowledgeRecord) ShareIntegers() (*shared[[]int64], bool) {
	if r.typ != IntegerArray || r.intArr == nil {
		return nil, false
	}
	r.intArr.shared = true
	return r.intArr, true
}

// ShareDoubles returns a handle to the record's double-array payload,
// marking it shared. Returns nil, false on type mismatch.
func (r KnowledgeRecord) ShareDoubles() (*shared[[]float64], bool) {
	if r.typ != DoubleArray || r.dblArr == nil {
		return nil, false
	}
	r.dblArr.shared = true
	return r.dblArr, true
}

// TakeString transfers the string payload out, leaving the record
// UNINITIALIZED.
func (r *KnowledgeRecord) TakeString() (*shared[string], bool) {
	if r.strBuf == nil || (r.typ != String && r.typ != Text && r.typ != XML) {
		return nil, false
	}
	buf := r.strBuf
	r.reset()
	r.typ = Uninitialized
	return buf, true
}

// TakeIntegers transfers the integer-array payload out, leaving the
// record UNINITIALIZED.
func (r *KnowledgeRecord) TakeIntegers() (*shared[[]int64], bool) {
	if r.typ != IntegerArray || r.intArr == nil {
		return nil, false
	}
	buf := r.intArr
	r.reset()
	r.typ = Uninitialized
	return buf, true
}

// Value returns the buffer's current value (for shared[string] and
// shared[[]int64] handles returned by Share*/Take*/New*).
func Value[T any](s *shared[T]) T { return s.val }

// Size returns the element count for array-typed records, the byte
// length for string and binary records, 1 for a scalar record, or 0 for
// UNINITIALIZED.
func (r KnowledgeRecord) Size() int {
	switch r.typ {
	case Uninitialized:
		return 0
	case IntegerArray:
		return len(r.intArr.val)
	case DoubleArray:
		return len(r.dblArr.val)
	case String, Text, XML:
		return len(r.strBuf.val)
	case JPEG, UnknownFile:
		return len(r.binBuf.val)
	default:
		return 1
	}
}

// ToInteger converts the record to an integer per the spec's conversion
// table: INTEGER/DOUBLE by cast, STRING/TEXT by decimal parse (failing
// to 0), any binary type (XML, JPEG, UNKNOWN_FILE) to 0, arrays via
// their first element.
func (r KnowledgeRecord) ToInteger() int64 {
	switch r.typ {
	case Integer:
		return r.intVal
	case Double:
		return int64(r.dblVal)
	case IntegerArray:
		if len(r.intArr.val) == 0 {
			return 0
		}
		return r.intArr.val[0]
	case DoubleArray:
		if len(r.dblArr.val) == 0 {
			return 0
		}
		return int64(r.dblArr.val[0])
	case String, Text:
		n, err := strconv.ParseInt(r.strBuf.val, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// ToDouble converts the record to a double using the same table as
// ToInteger, with INTEGER<->DOUBLE via cast and STRING/TEXT parsed as a
// float.
func (r KnowledgeRecord) ToDouble() float64 {
	switch r.typ {
	case Double:
		return r.dblVal
	case Integer:
		return float64(r.intVal)
	case DoubleArray:
		if len(r.dblArr.val) == 0 {
			return 0
		}
		return r.dblArr.val[0]
	case IntegerArray:
		if len(r.intArr.val) == 0 {
			return 0
		}
		return float64(r.intArr.val[0])
	case String, Text:
		f, err := strconv.ParseFloat(r.strBuf.val, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// ToString converts the record to a string representation.
func (r KnowledgeRecord) ToString() string {
	switch r.typ {
	case String, Text, XML:
		return r.strBuf.val
	case Integer:
		return strconv.FormatInt(r.intVal, 10)
	case Double:
		return strconv.FormatFloat(r.dblVal, 'g', -1, 64)
	case IntegerArray:
		return formatIntArray(r.intArr.val)
	case DoubleArray:
		return formatDoubleArray(r.dblArr.val)
	case JPEG, UnknownFile:
		return "<binary>"
	default:
		return ""
	}
}

func formatIntArray(v []int64) string {
	s := "["
	for i, n := range v {
		if i > 0 {
			s += ","
		}
		s += strconv.FormatInt(n, 10)
	}
	return s + "]"
}

func formatDoubleArray(v []float64) string {
	s := "["
	for i, n := range v {
		if i > 0 {
			s += ","
		}
		s += strconv.FormatFloat(n, 'g', -1, 64)
	}
	return s + "]"
}

// RetrieveIndex returns the element at i for an array record. Out of
// range or non-array records yield an UNINITIALIZED record rather than
// panicking.
func (r KnowledgeRecord) RetrieveIndex(i int) KnowledgeRecord {
	switch r.typ {
	case IntegerArray:
		if i < 0 || i >= len(r.intArr.val) {
			return NewRecord()
		}
		var out KnowledgeRecord
		out.SetInteger(r.intArr.val[i])
		return out
	case DoubleArray:
		if i < 0 || i >= len(r.dblArr.val) {
			return NewRecord()
		}
		var out KnowledgeRecord
		out.SetDouble(r.dblArr.val[i])
		return out
	default:
		return NewRecord()
	}
}

// SetIndex sets element i of an array record, copy-on-write if the
// backing buffer is shared, promoting a scalar record to a
// single-element array first, and zero-filling if i grows the array.
func (r *KnowledgeRecord) SetIndex(i int, v int64) {
	if i < 0 {
		return
	}
	switch r.typ {
	case IntegerArray:
		r.ensurePrivateIntArray()
	case Integer:
		cur := r.intVal
		r.reset()
		r.typ = IntegerArray
		r.intArr = newShared([]int64{cur})
	default:
		r.reset()
		r.typ = IntegerArray
		r.intArr = newShared([]int64{})
	}
	r.growInts(i + 1)
	r.intArr.val[i] = v
}

// SetIndexDouble is the double-array equivalent of SetIndex.
func (r *KnowledgeRecord) SetIndexDouble(i int, v float64) {
	if i < 0 {
		return
	}
	switch r.typ {
	case DoubleArray:
		r.ensurePrivateDblArray()
	case Double:
		cur := r.dblVal
		r.reset()
		r.typ = DoubleArray
		r.dblArr = newShared([]float64{cur})
	default:
		r.reset()
		r.typ = DoubleArray
		r.dblArr = newShared([]float64{})
	}
	r.growDoubles(i + 1)
	r.dblArr.val[i] = v
}

func (r *KnowledgeRecord) ensurePrivateIntArray() {
	if r.intArr.shared {
		r.intArr = r.intArr.clone(cloneInts)
	}
}

func (r *KnowledgeRecord) ensurePrivateDblArray() {
	if r.dblArr.shared {
		r.dblArr = r.dblArr.clone(cloneDoubles)
	}
}

func (r *KnowledgeRecord) growInts(n int) {
	if len(r.intArr.val) >= n {
		return
	}
	grown := make([]int64, n)
	copy(grown, r.intArr.val)
	r.intArr.val = grown
}

func (r *KnowledgeRecord) growDoubles(n int) {
	if len(r.dblArr.val) >= n {
		return
	}
	grown := make([]float64, n)
	copy(grown, r.dblArr.val)
	r.dblArr.val = grown
}

// DeepCopy returns an owned clone that shares no buffers with r.
func (r KnowledgeRecord) DeepCopy() KnowledgeRecord {
	out := r
	if r.strBuf != nil {
		out.strBuf = newShared(r.strBuf.val)
	}
	if r.intArr != nil {
		out.intArr = newShared(cloneInts(r.intArr.val))
	}
	if r.dblArr != nil {
		out.dblArr = newShared(cloneDoubles(r.dblArr.val))
	}
	if r.binBuf != nil {
		out.binBuf = newShared(cloneBytes(r.binBuf.val))
	}
	return out
}

// shallowCopy returns a copy of r that shares any array/string buffers
// with it (used by Context.Get, which promises "payload sharing
// preserved"). Marks the shared buffers as shared, since there are now
// two live holders.
func (r *KnowledgeRecord) shallowCopy() KnowledgeRecord {
	out := *r
	if r.strBuf != nil {
		r.strBuf.shared = true
	}
	if r.intArr != nil {
		r.intArr.shared = true
	}
	if r.dblArr != nil {
		r.dblArr.shared = true
	}
	if r.binBuf != nil {
		r.binBuf.shared = true
	}
	return out
}
