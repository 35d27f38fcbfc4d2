package knowledge

import "sort"

// entry is one arena slot: a record plus a generation stamp. Deleting a
// variable bumps the generation so any outstanding VariableReference
// pointing at the slot is invalidated without needing to scan for it.
type entry struct {
	name       string
	record     KnowledgeRecord
	generation uint64
	live       bool
}

// KnowledgeMap is an ordered name -> record mapping backed by an arena
// of slots, so a VariableReference can address an entry by (index,
// generation) in O(1) instead of re-hashing the name on every access.
type KnowledgeMap struct {
	byName map[string]int
	arena  []entry
}

func newKnowledgeMap() *KnowledgeMap {
	return &KnowledgeMap{byName: make(map[string]int)}
}

// VariableReference is a stable handle to a KnowledgeMap slot, bound at
// first resolution and invalidated only by explicit deletion.
type VariableReference struct {
	name       string
	index      int
	generation uint64
	valid      bool
}

// Name returns the variable name the reference was bound to.
func (v VariableReference) Name() string { return v.name }

// IsValid reports whether the reference was ever successfully bound.
func (v VariableReference) IsValid() bool { return v.valid }

// resolve returns the live entry for ref, or nil if it has been deleted
// since binding.
func (m *KnowledgeMap) resolve(ref VariableReference) *entry {
	if !ref.valid || ref.index < 0 || ref.index >= len(m.arena) {
		return nil
	}
	e := &m.arena[ref.index]
	if !e.live || e.generation != ref.generation {
		return nil
	}
	return e
}

// getRef returns a reference to name, inserting an UNCREATED placeholder
// if the name is absent.
func (m *KnowledgeMap) getRef(name string) VariableReference {
	if idx, ok := m.byName[name]; ok {
		e := &m.arena[idx]
		if e.live {
			return VariableReference{name: name, index: idx, generation: e.generation, valid: true}
		}
	}
	idx := len(m.arena)
	m.arena = append(m.arena, entry{
		name:   name,
		record: NewRecord(),
		live:   true,
	})
	m.byName[name] = idx
	return VariableReference{name: name, index: idx, generation: m.arena[idx].generation, valid: true}
}

// lookup returns a reference to name without creating one, and whether
// it currently exists.
func (m *KnowledgeMap) lookup(name string) (VariableReference, bool) {
	idx, ok := m.byName[name]
	if !ok || !m.arena[idx].live {
		return VariableReference{}, false
	}
	e := &m.arena[idx]
	return VariableReference{name: name, index: idx, generation: e.generation, valid: true}, true
}

// delete removes name from the map, invalidating any outstanding
// reference to it.
func (m *KnowledgeMap) delete(name string) bool {
	idx, ok := m.byName[name]
	if !ok || !m.arena[idx].live {
		return false
	}
	e := &m.arena[idx]
	e.live = false
	e.generation++
	e.record = NewRecord()
	delete(m.byName, name)
	return true
}

// names returns all live variable names in lexicographic order.
func (m *KnowledgeMap) names() []string {
	out := make([]string, 0, len(m.byName))
	for name := range m.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// clear resets every live entry to UNINITIALIZED (erase=false) or drops
// every entry from the map entirely (erase=true).
func (m *KnowledgeMap) clear(erase bool) {
	if erase {
		m.byName = make(map[string]int)
		m.arena = nil
		return
	}
	for i := range m.arena {
		if m.arena[i].live {
			m.arena[i].record = NewRecord()
		}
	}
}
