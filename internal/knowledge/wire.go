package knowledge

// WireRecord is the JSON-serialisable projection of a KnowledgeRecord,
// used by transports to move records between processes without
// exposing the internal shared-payload representation. It carries only
// the fields the wire format actually needs — copy-on-write sharing is
// a purely local optimisation and never crosses the wire.
type WireRecord struct {
	Type         Type      `json:"type"`
	Clock        uint64    `json:"clock"`
	Quality      uint32    `json:"quality"`
	WriteQuality uint32    `json:"write_quality"`
	Int          int64     `json:"int,omitempty"`
	Dbl          float64   `json:"dbl,omitempty"`
	IntArr       []int64   `json:"int_arr,omitempty"`
	DblArr       []float64 `json:"dbl_arr,omitempty"`
	Str          string    `json:"str,omitempty"`
	Bin          []byte    `json:"bin,omitempty"`
}

// ToWire projects r into its wire form.
func (r KnowledgeRecord) ToWire() WireRecord {
	w := WireRecord{Type: r.typ, Clock: r.clock, Quality: r.quality, WriteQuality: r.writeQuality}
	switch r.typ {
	case Integer:
		w.Int = r.intVal
	case Double:
		w.Dbl = r.dblVal
	case IntegerArray:
		w.IntArr = cloneInts(r.intArr.val)
	case DoubleArray:
		w.DblArr = cloneDoubles(r.dblArr.val)
	case String, Text, XML:
		w.Str = r.strBuf.val
	case JPEG, UnknownFile:
		w.Bin = cloneBytes(r.binBuf.val)
	}
	return w
}

// FromWire reconstructs a KnowledgeRecord from its wire form.
func FromWire(w WireRecord) KnowledgeRecord {
	r := NewRecord()
	switch w.Type {
	case Integer:
		r.SetInteger(w.Int)
	case Double:
		r.SetDouble(w.Dbl)
	case IntegerArray:
		r.SetIntegerArray(w.IntArr)
	case DoubleArray:
		r.SetDoubleArray(w.DblArr)
	case String:
		r.SetString(w.Str)
	case Text:
		r.SetText(w.Str)
	case XML:
		r.SetXML(w.Str)
	case JPEG:
		r.SetJPEG(w.Bin)
	case UnknownFile:
		r.SetUnknownFile(w.Bin)
	}
	r.clock = w.Clock
	r.quality = w.Quality
	r.writeQuality = w.WriteQuality
	r.status = StatusModified
	return r
}
