package knowledge

import (
	"sort"
	"strconv"
	"strings"
)

// ToVector appends get(subject+i) for i in [start, end] to a freshly
// built slice, skipping any index that does not exist (§4.3.7).
func (c *Context) ToVector(subject string, start, end int) []KnowledgeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]KnowledgeRecord, 0, max(0, end-start+1))
	for i := start; i <= end; i++ {
		name := subject + strconv.Itoa(i)
		ref, ok := c.m.lookup(name)
		if !ok {
			continue
		}
		e := c.m.resolve(ref)
		if e.record.status == StatusUncreated {
			continue
		}
		out = append(out, e.record.shallowCopy())
	}
	return out
}

// ToMapRange performs an inclusive lexicographic range scan: every name
// n such that prefix <= n < successor(prefix) is returned, where
// successor is the lexicographic successor used to bound a "prefix*"
// wildcard scan (§4.3.7).
func (c *Context) ToMapRange(prefix string) map[string]KnowledgeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]KnowledgeRecord)
	for _, name := range c.m.names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		ref, _ := c.m.lookup(name)
		e := c.m.resolve(ref)
		if e.record.status == StatusUncreated {
			continue
		}
		out[name] = e.record.shallowCopy()
	}
	return out
}

// ToMap filters keys matching prefix and optional suffix; if delimiter
// is non-empty, nextKeys collects the distinct first segments appearing
// strictly after prefix in each matching key, up to but not including
// the next delimiter occurrence (§4.3.7's hierarchy-scan overload). When
// justKeys is true, result values are left as UNINITIALIZED records —
// callers only wanted the key set.
func (c *Context) ToMap(prefix, delimiter, suffix string, justKeys bool) (result map[string]KnowledgeRecord, nextKeys []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	result = make(map[string]KnowledgeRecord)
	seen := make(map[string]bool)

	for _, name := range c.m.names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if suffix != "" && !strings.HasSuffix(name, suffix) {
			continue
		}
		ref, _ := c.m.lookup(name)
		e := c.m.resolve(ref)
		if e.record.status == StatusUncreated {
			continue
		}
		if justKeys {
			result[name] = NewRecord()
		} else {
			result[name] = e.record.shallowCopy()
		}

		if delimiter == "" {
			continue
		}
		rest := name[len(prefix):]
		if idx := strings.Index(rest, delimiter); idx >= 0 {
			segment := rest[:idx]
			if segment != "" && !seen[segment] {
				seen[segment] = true
				nextKeys = append(nextKeys, segment)
			}
		}
	}
	sort.Strings(nextKeys)
	return result, nextKeys
}

// ExpandStatement recursively substitutes {EXPR} with the textual value
// of the variable named EXPR, innermost brace-pair first, so nested
// braces expand from the inside out. An unmatched '{' with no closing
// '}' is preserved literally (§4.3.8).
func (c *Context) ExpandStatement(s string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expandLocked(s)
}

func (c *Context) expandLocked(s string) string {
	end := len(s)
	for {
		open := strings.LastIndex(s[:end], "{")
		if open < 0 {
			return s
		}
		close := strings.Index(s[open:], "}")
		if close < 0 {
			end = open
			continue
		}
		close += open

		name := s[open+1 : close]
		value := c.getLocked(name).ToString()
		s = s[:open] + value + s[close+1:]
		end = len(s)
	}
}
