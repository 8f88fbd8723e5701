package task

import (
	"sort"

	"liftplan/internal/state"
)

// RemoveNegativePreconditions compiles negated preconditions away. For
// every predicate p occurring negatively it adds an auxiliary predicate
// not-p holding exactly the type-consistent tuples for which p is false,
// rewrites each negated precondition (not (p ...)) into (not-p ...), keeps
// not-p in sync in every effect that touches p, and extends the initial
// state. Negated goal atoms are rewritten the same way. It returns the
// number of auxiliary predicates added.
func (t *Task) RemoveNegativePreconditions() int {
	negative := make(map[int]bool)
	for _, s := range t.Schemas {
		for _, p := range s.Preconditions {
			if p.Negated && !p.IsEquality() {
				negative[p.Predicate] = true
			}
		}
	}
	for _, g := range t.Goal.Atoms {
		if g.Negated {
			negative[g.Atom.Predicate] = true
		}
	}
	if len(negative) == 0 {
		return 0
	}

	preds := make([]int, 0, len(negative))
	for p := range negative {
		preds = append(preds, p)
	}
	sort.Ints(preds)

	aux := make(map[int]int, len(preds))
	for _, p := range preds {
		orig := t.Predicates[p]
		idx := len(t.Predicates)
		t.Predicates = append(t.Predicates, Predicate{
			Index:      idx,
			Name:       "not-" + orig.Name,
			Types:      append([]int(nil), orig.Types...),
			NegationOf: p,
		})
		aux[p] = idx
	}

	for si := range t.Schemas {
		s := &t.Schemas[si]
		for i, p := range s.Preconditions {
			if n, ok := aux[p.Predicate]; ok && p.Negated {
				s.Preconditions[i] = Atom{Predicate: n, Args: p.Args}
			}
		}
		var extra []Atom
		for _, e := range s.Effects {
			if n, ok := aux[e.Predicate]; ok {
				extra = append(extra, Atom{Predicate: n, Negated: !e.Negated, Args: e.Args})
				if s.Complements == nil {
					s.Complements = make(map[int]int)
				}
				s.Complements[n] = e.Predicate
			}
		}
		s.Effects = append(s.Effects, extra...)
	}

	t.finalize()

	var added []state.Atom
	for _, p := range preds {
		n := aux[p]
		t.forEachTypedTuple(t.Predicates[p].Types, func(vals []int) {
			a := state.Atom{Predicate: p, Args: t.Interner.Intern(vals)}
			if !t.InitialState.Holds(a) {
				added = append(added, state.Atom{Predicate: n, Args: a.Args})
			}
		})
	}
	t.InitialState = t.InitialState.Extend(len(t.Predicates), added...)

	for i, g := range t.Goal.Atoms {
		if n, ok := aux[g.Atom.Predicate]; ok && g.Negated {
			t.Goal.Atoms[i] = GoalAtom{Atom: state.Atom{Predicate: n, Args: g.Atom.Args}}
		}
	}
	return len(preds)
}

// forEachTypedTuple enumerates the cartesian product of the objects of
// each type in types. A nullary signature yields one empty tuple.
func (t *Task) forEachTypedTuple(types []int, fn func([]int)) {
	vals := make([]int, len(types))
	var rec func(int)
	rec = func(i int) {
		if i == len(types) {
			fn(vals)
			return
		}
		for _, o := range t.ObjectsOfType(types[i]) {
			vals[i] = o
			rec(i + 1)
		}
	}
	rec(0)
}
