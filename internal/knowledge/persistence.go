package knowledge

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Checkpoint format (§4.8, open question (b)): magic bytes "KBK1",
// version 1. Neither is specified upstream, so these are the values
// this implementation commits to and documents here.
const (
	checkpointMagic   = "KBK1"
	checkpointVersion = uint32(1)
	idFieldLen        = 64
)

// Persistence return codes (§4.8, §7): byte count on success, -1 if
// open failed, -2 if read/write failed.
const (
	errOpen   = -1
	errIOFail = -2
)

// SaveContext writes a full binary checkpoint of every live entry to
// path, tagging it with id. Returns the number of bytes written, or a
// negative error code (§4.8, §7).
func (c *Context) SaveContext(path, id string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.snapshotEntriesLocked(nil)
	return c.writeCheckpointLocked(path, id, entries)
}

// SaveCheckpoint writes a binary checkpoint containing only the current
// global modified-set (§4.8, §8 scenario 6). It does not drain the
// modified-set; call ResetModified afterwards if the transport
// semantics require it.
func (c *Context) SaveCheckpoint(path, id string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.globalModified))
	for name := range c.globalModified {
		names = append(names, name)
	}
	entries := c.snapshotEntriesLocked(names)
	return c.writeCheckpointLocked(path, id, entries)
}

type checkpointEntry struct {
	name   string
	record KnowledgeRecord
}

// snapshotEntriesLocked collects entries for persistence. If only is
// nil, every live (non-UNCREATED) entry is included; otherwise just the
// named subset. Caller must hold c.mu.
func (c *Context) snapshotEntriesLocked(only []string) []checkpointEntry {
	var names []string
	if only != nil {
		names = only
	} else {
		names = c.m.names()
	}
	sort.Strings(names)

	entries := make([]checkpointEntry, 0, len(names))
	for _, name := range names {
		ref, ok := c.m.lookup(name)
		if !ok {
			continue
		}
		e := c.m.resolve(ref)
		if e.record.status == StatusUncreated {
			continue
		}
		entries = append(entries, checkpointEntry{name: name, record: e.record.DeepCopy()})
	}
	return entries
}

// writeCheckpointLocked serialises header + entries + a trailing
// blake2b-256 checksum of everything preceding it. Caller must hold
// c.mu so the snapshot in entries stays consistent with c.clock.
func (c *Context) writeCheckpointLocked(path, id string, entries []checkpointEntry) int64 {
	f, err := os.Create(path)
	if err != nil {
		c.logger.Error("save checkpoint: open failed", "path", path, "err", err)
		return errOpen
	}
	defer f.Close()

	buf := new(bufferedCounter)
	w := bufio.NewWriter(buf)

	if err := writeHeader(w, id, len(entries), c.clock); err != nil {
		return errIOFail
	}
	for _, e := range entries {
		if err := writeEntry(w, e.name, e.record); err != nil {
			c.logger.Error("save checkpoint: write entry failed", "name", e.name, "err", err)
			return errIOFail
		}
	}
	if err := w.Flush(); err != nil {
		return errIOFail
	}

	sum := blake2b.Sum256(buf.Bytes())
	if _, err := f.Write(buf.Bytes()); err != nil {
		return errIOFail
	}
	if _, err := f.Write(sum[:]); err != nil {
		return errIOFail
	}
	return int64(buf.Len() + len(sum))
}

// bufferedCounter is a minimal in-memory byte sink; the checkpoint is
// staged here so its checksum can be computed before touching disk.
type bufferedCounter struct {
	b []byte
}

func (b *bufferedCounter) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}
func (b *bufferedCounter) Bytes() []byte { return b.b }
func (b *bufferedCounter) Len() int      { return len(b.b) }

func writeHeader(w *bufio.Writer, id string, count int, clock uint64) error {
	if _, err := w.WriteString(checkpointMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, checkpointVersion); err != nil {
		return err
	}
	idBytes := make([]byte, idFieldLen)
	copy(idBytes, id)
	if _, err := w.Write(idBytes); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(count)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, clock)
}

func writeEntry(w *bufio.Writer, name string, r KnowledgeRecord) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(name))); err != nil {
		return err
	}
	if _, err := w.WriteString(name); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(r.typ)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(r.Size())); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, r.clock); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, r.quality); err != nil {
		return err
	}
	return writePayload(w, r)
}

func writePayload(w *bufio.Writer, r KnowledgeRecord) error {
	switch r.typ {
	case Integer:
		return binary.Write(w, binary.LittleEndian, r.intVal)
	case Double:
		return binary.Write(w, binary.LittleEndian, r.dblVal)
	case IntegerArray:
		arr := r.intArr.val
		if err := binary.Write(w, binary.LittleEndian, uint32(len(arr))); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, arr)
	case DoubleArray:
		arr := r.dblArr.val
		if err := binary.Write(w, binary.LittleEndian, uint32(len(arr))); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, arr)
	case String, Text, XML:
		_, err := w.WriteString(r.strBuf.val)
		return err
	case JPEG, UnknownFile:
		_, err := w.Write(r.binBuf.val)
		return err
	default:
		return nil
	}
}

// LoadContext reads a checkpoint written by SaveContext or
// SaveCheckpoint, validates the header, and applies every entry via
// UpdateRecordFromExternal so the merge rule governs conflicts with any
// pre-existing state (§4.8). Returns the id string persisted with the
// file and the byte count read, or a negative error code.
func (c *Context) LoadContext(path string, settings UpdateSettings) (id string, n int64, code int) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, errOpen
	}
	if len(data) < blake2b.Size256+len(checkpointMagic) {
		return "", 0, errIOFail
	}

	body := data[:len(data)-blake2b.Size256]
	trailer := data[len(data)-blake2b.Size256:]
	want := blake2b.Sum256(body)
	if !bytes.Equal(want[:], trailer) {
		return "", 0, errIOFail
	}

	r := bytes.NewReader(body)
	magic := make([]byte, len(checkpointMagic))
	if _, err := io.ReadFull(r, magic); err != nil || string(magic) != checkpointMagic {
		return "", 0, errIOFail
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil || version != checkpointVersion {
		return "", 0, errIOFail
	}
	idBytes := make([]byte, idFieldLen)
	if _, err := io.ReadFull(r, idBytes); err != nil {
		return "", 0, errIOFail
	}
	id = strings.TrimRight(string(idBytes), "\x00")

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return "", 0, errIOFail
	}
	var fileClock uint64
	if err := binary.Read(r, binary.LittleEndian, &fileClock); err != nil {
		return "", 0, errIOFail
	}

	for i := uint32(0); i < count; i++ {
		name, rec, err := readEntry(r)
		if err != nil {
			return "", 0, errIOFail
		}
		c.UpdateRecordFromExternal(name, rec, settings)
	}

	c.mu.Lock()
	if fileClock > c.clock {
		c.clock = fileClock
	}
	c.mu.Unlock()

	return id, int64(len(data)), 0
}

func readEntry(r *bytes.Reader) (string, KnowledgeRecord, error) {
	var nameLen uint32
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return "", KnowledgeRecord{}, err
	}
	nameBytes := make([]byte, nameLen)
	if _, err := io.ReadFull(r, nameBytes); err != nil {
		return "", KnowledgeRecord{}, err
	}

	var typ, size uint32
	var clock uint64
	var quality uint32
	if err := binary.Read(r, binary.LittleEndian, &typ); err != nil {
		return "", KnowledgeRecord{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return "", KnowledgeRecord{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &clock); err != nil {
		return "", KnowledgeRecord{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &quality); err != nil {
		return "", KnowledgeRecord{}, err
	}

	rec := NewRecord()
	rec.clock = clock
	rec.quality = quality
	rec.status = StatusModified

	switch Type(typ) {
	case Integer:
		var v int64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return "", rec, err
		}
		rec.SetInteger(v)
	case Double:
		var v float64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return "", rec, err
		}
		rec.SetDouble(v)
	case IntegerArray:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return "", rec, err
		}
		arr := make([]int64, n)
		if err := binary.Read(r, binary.LittleEndian, arr); err != nil {
			return "", rec, err
		}
		rec.SetIntegerArray(arr)
	case DoubleArray:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return "", rec, err
		}
		arr := make([]float64, n)
		if err := binary.Read(r, binary.LittleEndian, arr); err != nil {
			return "", rec, err
		}
		rec.SetDoubleArray(arr)
	case String, Text, XML:
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return "", rec, err
		}
		switch Type(typ) {
		case String:
			rec.SetString(string(payload))
		case Text:
			rec.SetText(string(payload))
		case XML:
			rec.SetXML(string(payload))
		}
	case JPEG, UnknownFile:
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return "", rec, err
		}
		if Type(typ) == JPEG {
			rec.SetJPEG(payload)
		} else {
			rec.SetUnknownFile(payload)
		}
	}

	rec.clock = clock
	rec.quality = quality
	return string(nameBytes), rec, nil
}

// SaveAsKarl writes a textual dump: one "name = literal;" assignment
// per live entry, using quoted strings, bracketed arrays, and numeric
// literals (§4.8).
func (c *Context) SaveAsKarl(path string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return errOpen
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	n := 0
	for _, name := range c.m.names() {
		ref, _ := c.m.lookup(name)
		e := c.m.resolve(ref)
		if e.record.status == StatusUncreated {
			continue
		}
		line := name + " = " + karlLiteral(e.record) + ";\n"
		written, err := w.WriteString(line)
		if err != nil {
			return errIOFail
		}
		n += written
	}
	if err := w.Flush(); err != nil {
		return errIOFail
	}
	return int64(n)
}

func karlLiteral(r KnowledgeRecord) string {
	switch r.typ {
	case Integer:
		return fmt.Sprintf("%d", r.intVal)
	case Double:
		return fmt.Sprintf("%g", r.dblVal)
	case IntegerArray:
		return formatIntArray(r.intArr.val)
	case DoubleArray:
		return formatDoubleArray(r.dblArr.val)
	case String, Text, XML:
		return fmt.Sprintf("%q", r.strBuf.val)
	case JPEG, UnknownFile:
		return fmt.Sprintf("%q", fmt.Sprintf("<%d bytes>", len(r.binBuf.val)))
	default:
		return `""`
	}
}

// ToStringDump renders every live entry as
// "name<keyValDelim>value<recordDelim>", with array elements joined by
// arrayDelim (a SUPPLEMENTED feature mirroring MADARA's to_string
// dump). Unlike SaveAsKarl this is not meant to be reloaded, only
// inspected.
func (c *Context) ToStringDump(arrayDelim, recordDelim, keyValDelim string) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	for _, name := range c.m.names() {
		ref, _ := c.m.lookup(name)
		e := c.m.resolve(ref)
		if e.record.status == StatusUncreated {
			continue
		}
		var value string
		switch e.record.typ {
		case IntegerArray:
			parts := make([]string, 0)
			for _, v := range e.record.intArr.val {
				parts = append(parts, fmt.Sprintf("%d", v))
			}
			value = strings.Join(parts, arrayDelim)
		case DoubleArray:
			parts := make([]string, 0)
			for _, v := range e.record.dblArr.val {
				parts = append(parts, fmt.Sprintf("%g", v))
			}
			value = strings.Join(parts, arrayDelim)
		default:
			value = e.record.ToString()
		}
		b.WriteString(name)
		b.WriteString(keyValDelim)
		b.WriteString(value)
		b.WriteString(recordDelim)
	}
	return b.String()
}

