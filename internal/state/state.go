// Package state implements immutable database states: one relation of
// interned tuples per predicate plus truth flags for nullary predicates.
package state

import (
	"sort"
	"strings"

	"liftplan/internal/tuple"
)

// Atom is a ground atom. Nullary atoms carry the zero tuple.
type Atom struct {
	Predicate int
	Args      tuple.SmallTuple
}

type relation map[tuple.SmallTuple]struct{}

// DBState is a set of true ground atoms. A DBState is never modified after
// construction; Apply returns a new value that shares untouched relations
// with its parent.
type DBState struct {
	relations []relation
	nullary   []bool
	key       uint64
	size      int
}

// New builds a state over numPredicates predicates holding atoms.
func New(numPredicates int, atoms ...Atom) *DBState {
	s := &DBState{
		relations: make([]relation, numPredicates),
		nullary:   make([]bool, numPredicates),
	}
	for _, a := range atoms {
		s.insert(a)
	}
	return s
}

func (s *DBState) insert(a Atom) bool {
	if a.Args.Len() == 0 {
		if s.nullary[a.Predicate] {
			return false
		}
		s.nullary[a.Predicate] = true
	} else {
		rel := s.relations[a.Predicate]
		if rel == nil {
			rel = make(relation)
			s.relations[a.Predicate] = rel
		}
		if _, ok := rel[a.Args]; ok {
			return false
		}
		rel[a.Args] = struct{}{}
	}
	s.key += atomHash(a)
	s.size++
	return true
}

func (s *DBState) remove(a Atom) bool {
	if a.Args.Len() == 0 {
		if !s.nullary[a.Predicate] {
			return false
		}
		s.nullary[a.Predicate] = false
	} else {
		rel := s.relations[a.Predicate]
		if _, ok := rel[a.Args]; !ok {
			return false
		}
		delete(rel, a.Args)
	}
	s.key -= atomHash(a)
	s.size--
	return true
}

// atomHash mixes predicate and tuple identity with splitmix64. State keys
// are the wrapping sum of atom hashes, so they are order independent and
// can be updated incrementally.
func atomHash(a Atom) uint64 {
	x := uint64(a.Predicate+1)<<32 | uint64(a.Args.ID())
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// NumPredicates returns the width of the state.
func (s *DBState) NumPredicates() int { return len(s.relations) }

// Len returns the number of true atoms, nullary ones included.
func (s *DBState) Len() int { return s.size }

// Key returns the content hash of the state. Equal states have equal
// keys; the converse must be confirmed with Equal.
func (s *DBState) Key() uint64 { return s.key }

// Satisfied reports whether pred(args) holds.
func (s *DBState) Satisfied(pred int, args tuple.SmallTuple) bool {
	if pred < 0 || pred >= len(s.relations) {
		return false
	}
	if args.Len() == 0 {
		return s.nullary[pred]
	}
	_, ok := s.relations[pred][args]
	return ok
}

// Holds reports whether a is true in s.
func (s *DBState) Holds(a Atom) bool { return s.Satisfied(a.Predicate, a.Args) }

// Nullary reports the truth value of a nullary predicate.
func (s *DBState) Nullary(pred int) bool { return s.nullary[pred] }

// Size returns the number of true atoms of pred: the relation size for a
// predicate with arguments, and 0 or 1 for a nullary one.
func (s *DBState) Size(pred int) int {
	n := len(s.relations[pred])
	if s.nullary[pred] {
		n++
	}
	return n
}

// Each calls fn for each tuple of pred until fn returns false. Iteration
// order is unspecified.
func (s *DBState) Each(pred int, fn func(tuple.SmallTuple) bool) {
	for t := range s.relations[pred] {
		if !fn(t) {
			return
		}
	}
}

// Relation returns the tuples of pred ordered by arena ID.
func (s *DBState) Relation(pred int) []tuple.SmallTuple {
	rel := s.relations[pred]
	out := make([]tuple.SmallTuple, 0, len(rel))
	for t := range rel {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Atoms returns every true atom, ordered by predicate then tuple ID.
func (s *DBState) Atoms() []Atom {
	out := make([]Atom, 0, s.size)
	for pred := range s.relations {
		if s.nullary[pred] {
			out = append(out, Atom{Predicate: pred})
		}
		for _, t := range s.Relation(pred) {
			out = append(out, Atom{Predicate: pred, Args: t})
		}
	}
	return out
}

// Apply returns the successor state obtained by removing del and then
// adding add. An atom present in both lists is true afterwards.
func (s *DBState) Apply(del, add []Atom) *DBState {
	next := &DBState{
		relations: make([]relation, len(s.relations)),
		nullary:   make([]bool, len(s.nullary)),
		key:       s.key,
		size:      s.size,
	}
	copy(next.relations, s.relations)
	copy(next.nullary, s.nullary)

	cloned := make(map[int]bool)
	own := func(pred int) {
		if cloned[pred] {
			return
		}
		cloned[pred] = true
		src := next.relations[pred]
		dst := make(relation, len(src)+1)
		for t := range src {
			dst[t] = struct{}{}
		}
		next.relations[pred] = dst
	}

	for _, a := range del {
		if a.Args.Len() > 0 {
			if _, ok := next.relations[a.Predicate][a.Args]; !ok {
				continue
			}
			own(a.Predicate)
		}
		next.remove(a)
	}
	for _, a := range add {
		if a.Args.Len() > 0 {
			if _, ok := next.relations[a.Predicate][a.Args]; ok {
				continue
			}
			own(a.Predicate)
		}
		next.insert(a)
	}
	return next
}

// Extend returns a copy of s widened to numPredicates predicates with
// atoms added. It is used when a task grows auxiliary predicates.
func (s *DBState) Extend(numPredicates int, atoms ...Atom) *DBState {
	if numPredicates < len(s.relations) {
		numPredicates = len(s.relations)
	}
	next := New(numPredicates)
	for _, a := range s.Atoms() {
		next.insert(a)
	}
	for _, a := range atoms {
		next.insert(a)
	}
	return next
}

// Equal reports whether s and o hold exactly the same atoms.
func (s *DBState) Equal(o *DBState) bool {
	if s == o {
		return true
	}
	if o == nil || s.key != o.key || s.size != o.size || len(s.relations) != len(o.relations) {
		return false
	}
	for pred := range s.relations {
		if s.nullary[pred] != o.nullary[pred] {
			return false
		}
		if len(s.relations[pred]) != len(o.relations[pred]) {
			return false
		}
		for t := range s.relations[pred] {
			if _, ok := o.relations[pred][t]; !ok {
				return false
			}
		}
	}
	return true
}

// Format renders the state with predicate and object names resolved by the
// supplied callbacks.
func (s *DBState) Format(predName func(int) string, objName func(int) string) string {
	var b strings.Builder
	for i, a := range s.Atoms() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteByte('(')
		b.WriteString(predName(a.Predicate))
		for j := 0; j < a.Args.Len(); j++ {
			b.WriteByte(' ')
			b.WriteString(objName(a.Args.At(j)))
		}
		b.WriteByte(')')
	}
	return b.String()
}
