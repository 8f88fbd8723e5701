// Package tuple provides interned, fixed-content object tuples.
//
// Every ground atom argument list and every action instantiation in the
// planner is a SmallTuple. Tuples are drawn from an Interner arena so that
// content-identical tuples share one allocation and compare by identity.
package tuple

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
)

type entry struct {
	id     uint32
	values []int
}

// SmallTuple is a handle to an interned tuple. The zero value is the
// empty tuple and is valid without an Interner.
type SmallTuple struct {
	e *entry
}

// Len returns the arity of the tuple.
func (t SmallTuple) Len() int {
	if t.e == nil {
		return 0
	}
	return len(t.e.values)
}

// At returns the object index at position i.
func (t SmallTuple) At(i int) int {
	return t.e.values[i]
}

// Values returns a copy of the tuple contents.
func (t SmallTuple) Values() []int {
	if t.e == nil {
		return nil
	}
	out := make([]int, len(t.e.values))
	copy(out, t.e.values)
	return out
}

// ID returns the dense arena identifier of the tuple. The empty tuple
// interned through an arena and the zero SmallTuple both report 0.
func (t SmallTuple) ID() uint32 {
	if t.e == nil {
		return 0
	}
	return t.e.id
}

// IsZero reports whether t is the zero handle.
func (t SmallTuple) IsZero() bool { return t.e == nil }

// HasPrefix reports whether the first len(prefix) values of t equal prefix.
func (t SmallTuple) HasPrefix(prefix []int) bool {
	if len(prefix) > t.Len() {
		return false
	}
	for i, v := range prefix {
		if t.e.values[i] != v {
			return false
		}
	}
	return true
}

func (t SmallTuple) String() string {
	if t.e == nil {
		return "()"
	}
	parts := make([]string, len(t.e.values))
	for i, v := range t.e.values {
		parts[i] = fmt.Sprint(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Interner is an append-only arena of tuples. It is safe for concurrent
// use; all lookups go through a single mutex.
type Interner struct {
	mu      sync.Mutex
	pool    map[string]*entry
	entries []*entry
	buf     []byte
}

// NewInterner returns an empty arena. The empty tuple is pre-interned with
// ID 0 and is the same handle as the zero SmallTuple.
func NewInterner() *Interner {
	in := &Interner{pool: make(map[string]*entry)}
	in.entries = append(in.entries, nil)
	return in
}

// Intern returns the canonical tuple for values. The input slice is copied
// and may be reused by the caller.
func (in *Interner) Intern(values []int) SmallTuple {
	if len(values) == 0 {
		return SmallTuple{}
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	in.buf = in.buf[:0]
	for _, v := range values {
		in.buf = binary.AppendVarint(in.buf, int64(v))
	}
	if e, ok := in.pool[string(in.buf)]; ok {
		return SmallTuple{e: e}
	}

	vals := make([]int, len(values))
	copy(vals, values)
	e := &entry{id: uint32(len(in.entries)), values: vals}
	in.entries = append(in.entries, e)
	in.pool[string(in.buf)] = e
	return SmallTuple{e: e}
}

// Lookup returns the canonical tuple for values without interning it. A
// tuple that was never interned cannot be a member of any relation.
func (in *Interner) Lookup(values []int) (SmallTuple, bool) {
	if len(values) == 0 {
		return SmallTuple{}, true
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	in.buf = in.buf[:0]
	for _, v := range values {
		in.buf = binary.AppendVarint(in.buf, int64(v))
	}
	e, ok := in.pool[string(in.buf)]
	if !ok {
		return SmallTuple{}, false
	}
	return SmallTuple{e: e}, true
}

// Of is a convenience wrapper around Intern.
func (in *Interner) Of(values ...int) SmallTuple {
	return in.Intern(values)
}

// ByID returns the tuple previously assigned id.
func (in *Interner) ByID(id uint32) (SmallTuple, bool) {
	in.mu.Lock()
	defer in.mu.Unlock()
	if int(id) >= len(in.entries) {
		return SmallTuple{}, false
	}
	return SmallTuple{e: in.entries[id]}, true
}

// Len returns the number of distinct non-empty tuples in the arena.
func (in *Interner) Len() int {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.entries) - 1
}
