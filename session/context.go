// Package session holds the coding context shared by the block encoder and
// decoder: the delta chains for the TIME and VALUE streams and a bounded FIFO
// value dictionary.
//
// A Context is session-scoped and caller-owned. A dictionary-enabled context
// may be shared across encoder and decoder instances within one logical
// session to allow cross-call dictionary reuse; callers must Reset it before
// starting an unrelated session. There is no process-global context.
//
// Contexts are not safe for concurrent use. Concurrent sessions must either
// serialize externally or use a private dictionary-disabled context each.
package session

// DictionaryCapacity is the fixed size of the FIFO value dictionary.
const DictionaryCapacity = 256

// Context is the mutable per-session coding state.
//
// The delta chains (last timestamp/value and their last deltas) are always
// live; the dictionary participates only when the context was created
// enabled. Snapshot/Restore bracket any speculative transform so a
// quarantined block leaves the context bit-identical to its pre-block state.
type Context struct {
	id string

	lastTimestamp      int64
	lastTimestampDelta int64
	lastValue          int64
	lastValueDelta     int64

	dict *dictionary
}

// Snapshot is a deep copy of a Context used only for rollback.
type Snapshot struct {
	lastTimestamp      int64
	lastTimestampDelta int64
	lastValue          int64
	lastValueDelta     int64

	dict *dictionary
}

type dictionary struct {
	values [DictionaryCapacity]int64
	codes  map[int64]int
	cursor int
	size   int
}

func newDictionary() *dictionary {
	return &dictionary{codes: make(map[int64]int, DictionaryCapacity)}
}

func (d *dictionary) clone() *dictionary {
	c := &dictionary{
		values: d.values,
		codes:  make(map[int64]int, len(d.codes)),
		cursor: d.cursor,
		size:   d.size,
	}
	for k, v := range d.codes {
		c.codes[k] = v
	}

	return c
}

// NewContext creates a dictionary-enabled context identified by id.
func NewContext(id string) *Context {
	return &Context{id: id, dict: newDictionary()}
}

// NewDisabledContext creates a throwaway context whose dictionary operations
// are no-ops. Delta chains remain live; only cross-call dictionary reuse is
// disabled.
func NewDisabledContext() *Context {
	return &Context{}
}

// ID returns the session identifier, empty for disabled contexts.
func (c *Context) ID() string {
	return c.id
}

// DictionaryEnabled reports whether dictionary coding participates in this
// session.
func (c *Context) DictionaryEnabled() bool {
	return c.dict != nil
}

// Reset clears all mutable state, preparing the context for an unrelated
// session. Callers sharing a context across sessions must call this between
// them.
func (c *Context) Reset() {
	c.lastTimestamp = 0
	c.lastTimestampDelta = 0
	c.lastValue = 0
	c.lastValueDelta = 0
	if c.dict != nil {
		c.dict = newDictionary()
	}
}

// SnapshotState returns a deep copy of all mutable fields for rollback.
func (c *Context) SnapshotState() Snapshot {
	s := Snapshot{
		lastTimestamp:      c.lastTimestamp,
		lastTimestampDelta: c.lastTimestampDelta,
		lastValue:          c.lastValue,
		lastValueDelta:     c.lastValueDelta,
	}
	if c.dict != nil {
		s.dict = c.dict.clone()
	}

	return s
}

// Restore overwrites all mutable fields from s.
func (c *Context) Restore(s Snapshot) {
	c.lastTimestamp = s.lastTimestamp
	c.lastTimestampDelta = s.lastTimestampDelta
	c.lastValue = s.lastValue
	c.lastValueDelta = s.lastValueDelta
	if s.dict != nil {
		c.dict = s.dict.clone()
	}
}

// ObserveTimestamp advances the TIME delta chain with ts and returns the
// first-order delta and delta-of-delta relative to the previous state.
func (c *Context) ObserveTimestamp(ts int64) (delta, dod int64) {
	delta = ts - c.lastTimestamp
	dod = delta - c.lastTimestampDelta
	c.lastTimestamp = ts
	c.lastTimestampDelta = delta

	return delta, dod
}

// ObserveValue advances the VALUE delta chain with v and returns the
// first-order delta and delta-of-delta relative to the previous state.
func (c *Context) ObserveValue(v int64) (delta, dod int64) {
	delta = v - c.lastValue
	dod = delta - c.lastValueDelta
	c.lastValue = v
	c.lastValueDelta = delta

	return delta, dod
}

// LastTimestamp returns the TIME chain reference point.
func (c *Context) LastTimestamp() int64 { return c.lastTimestamp }

// LastTimestampDelta returns the last TIME first-order delta.
func (c *Context) LastTimestampDelta() int64 { return c.lastTimestampDelta }

// LastValue returns the VALUE chain reference point.
func (c *Context) LastValue() int64 { return c.lastValue }

// LastValueDelta returns the last VALUE first-order delta.
func (c *Context) LastValueDelta() int64 { return c.lastValueDelta }

// Lookup returns the dictionary code for v. The second result is false on a
// miss or when the dictionary is disabled.
func (c *Context) Lookup(v int64) (int, bool) {
	if c.dict == nil {
		return 0, false
	}

	code, ok := c.dict.codes[v]

	return code, ok
}

// DictValue returns the value stored at code. The second result is false for
// codes outside the populated range or when the dictionary is disabled.
func (c *Context) DictValue(code int) (int64, bool) {
	if c.dict == nil || code < 0 || code >= c.dict.size {
		return 0, false
	}

	return c.dict.values[code], true
}

// UpdateDictionary inserts v at the FIFO write cursor, evicting whatever
// occupied the slot. No-op when the dictionary is disabled or v is already
// present.
func (c *Context) UpdateDictionary(v int64) {
	if c.dict == nil {
		return
	}
	if _, ok := c.dict.codes[v]; ok {
		return
	}

	d := c.dict
	if d.size == DictionaryCapacity {
		// Evict the value currently occupying the cursor slot.
		delete(d.codes, d.values[d.cursor])
	}

	d.values[d.cursor] = v
	d.codes[v] = d.cursor
	d.cursor = (d.cursor + 1) % DictionaryCapacity
	if d.size < DictionaryCapacity {
		d.size++
	}
}

// DictionarySize returns the number of populated dictionary slots.
func (c *Context) DictionarySize() int {
	if c.dict == nil {
		return 0
	}

	return c.dict.size
}

// Equal reports whether two contexts hold bit-identical mutable state.
// Used by tests asserting quarantine non-pollution.
func (c *Context) Equal(other *Context) bool {
	if c.lastTimestamp != other.lastTimestamp ||
		c.lastTimestampDelta != other.lastTimestampDelta ||
		c.lastValue != other.lastValue ||
		c.lastValueDelta != other.lastValueDelta {
		return false
	}

	if (c.dict == nil) != (other.dict == nil) {
		return false
	}
	if c.dict == nil {
		return true
	}
	if c.dict.cursor != other.dict.cursor || c.dict.size != other.dict.size {
		return false
	}
	if c.dict.values != other.dict.values {
		return false
	}
	if len(c.dict.codes) != len(other.dict.codes) {
		return false
	}
	for k, v := range c.dict.codes {
		if ov, ok := other.dict.codes[k]; !ok || ov != v {
			return false
		}
	}

	return true
}
