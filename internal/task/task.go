// Package task defines the planning task consumed by the grounder and the
// search engines: typed objects, predicates, lifted action schemas, the
// initial state, and the goal.
package task

import (
	"fmt"
	"sort"

	"liftplan/internal/state"
	"liftplan/internal/tuple"
)

// Equality is the pseudo predicate index used by (= ?x ?y) preconditions.
const Equality = -1

// NoParent marks a root type.
const NoParent = -1

// Type is a node of the type hierarchy.
type Type struct {
	Index  int
	Name   string
	Parent int
}

// Object is a domain object or constant. Types lists the declared types.
type Object struct {
	Index int
	Name  string
	Types []int
}

// Predicate describes a relation symbol and its argument types.
type Predicate struct {
	Index int
	Name  string
	Types []int
	// Static predicates never occur in an effect.
	Static bool
	// NegationOf is the predicate this auxiliary predicate complements,
	// or -1.
	NegationOf int
}

// Arity is the number of arguments.
func (p Predicate) Arity() int { return len(p.Types) }

// Argument is a schema atom argument: either a constant object index or a
// schema parameter index.
type Argument struct {
	Constant bool
	Index    int
}

// Param returns a free argument bound to schema parameter i.
func Param(i int) Argument { return Argument{Index: i} }

// Const returns a constant argument naming object i.
func Const(i int) Argument { return Argument{Constant: true, Index: i} }

// Atom is a lifted atom inside an action schema. Negated preconditions
// must be false; negated effects are deletes.
type Atom struct {
	Predicate int
	Negated   bool
	Args      []Argument
}

// IsNullary reports whether the atom has no arguments.
func (a Atom) IsNullary() bool { return len(a.Args) == 0 }

// IsEquality reports whether the atom is an (= a b) test.
func (a Atom) IsEquality() bool { return a.Predicate == Equality }

// Ground instantiates the atom with binding. It panics if a free argument
// is outside the binding.
func (a Atom) Ground(in *tuple.Interner, binding []int) state.Atom {
	if len(a.Args) == 0 {
		return state.Atom{Predicate: a.Predicate}
	}
	vals := make([]int, len(a.Args))
	for i, arg := range a.Args {
		if arg.Constant {
			vals[i] = arg.Index
		} else {
			vals[i] = binding[arg.Index]
		}
	}
	return state.Atom{Predicate: a.Predicate, Args: in.Intern(vals)}
}

// Parameter is a typed schema parameter.
type Parameter struct {
	Index int
	Name  string
	Type  int
}

// ActionSchema is a lifted action.
type ActionSchema struct {
	Index         int
	Name          string
	Parameters    []Parameter
	Preconditions []Atom
	Effects       []Atom
	// Complements maps an auxiliary not-p predicate written by Effects to
	// p. It is set by RemoveNegativePreconditions.
	Complements map[int]int
}

// Arity is the number of parameters.
func (s *ActionSchema) Arity() int { return len(s.Parameters) }

// HasNegativePreconditions reports whether any precondition other than an
// inequality is negated.
func (s *ActionSchema) HasNegativePreconditions() bool {
	for _, p := range s.Preconditions {
		if p.Negated && !p.IsEquality() {
			return true
		}
	}
	return false
}

// GroundEffects instantiates the add and delete lists for binding.
func (s *ActionSchema) GroundEffects(in *tuple.Interner, binding []int) (del, add []state.Atom) {
	for _, eff := range s.Effects {
		g := eff.Ground(in, binding)
		if eff.Negated {
			del = append(del, g)
		} else {
			add = append(add, g)
		}
	}
	return del, s.dropContradicted(add)
}

// dropContradicted removes not-p(t) from add when p(t) is added as well.
// Adds win over deletes, so an action that deletes and re-adds p(t) leaves
// p(t) true and must not make not-p(t) true.
func (s *ActionSchema) dropContradicted(add []state.Atom) []state.Atom {
	if len(s.Complements) == 0 {
		return add
	}
	kept := make([]state.Atom, 0, len(add))
	for _, a := range add {
		orig, ok := s.Complements[a.Predicate]
		if ok && containsAtom(add, state.Atom{Predicate: orig, Args: a.Args}) {
			continue
		}
		kept = append(kept, a)
	}
	return kept
}

func containsAtom(atoms []state.Atom, a state.Atom) bool {
	for _, b := range atoms {
		if b == a {
			return true
		}
	}
	return false
}

// Task is a fully indexed planning task. It owns the tuple arena shared by
// every component that works on it.
type Task struct {
	DomainName  string
	ProblemName string

	Types      []Type
	Objects    []Object
	Predicates []Predicate
	Schemas    []ActionSchema

	InitialState *state.DBState
	Goal         Goal

	Interner *tuple.Interner

	objectsPerType [][]int
	predicateIndex map[string]int
	objectIndex    map[string]int
	schemaIndex    map[string]int
}

// ActionSchemas returns the lifted actions in declaration order.
func (t *Task) ActionSchemas() []ActionSchema { return t.Schemas }

// ObjectsOfType returns the sorted indices of objects of type typ or one
// of its subtypes.
func (t *Task) ObjectsOfType(typ int) []int {
	if typ < 0 || typ >= len(t.objectsPerType) {
		return nil
	}
	return t.objectsPerType[typ]
}

// IsSubtype reports whether sub equals sup or descends from it.
func (t *Task) IsSubtype(sub, sup int) bool {
	for cur := sub; cur != NoParent; cur = t.Types[cur].Parent {
		if cur == sup {
			return true
		}
	}
	return false
}

// StaticPredicates returns the indices of predicates not touched by any
// effect.
func (t *Task) StaticPredicates() []int {
	var out []int
	for _, p := range t.Predicates {
		if p.Static {
			out = append(out, p.Index)
		}
	}
	return out
}

// PredicateByName looks up a predicate index.
func (t *Task) PredicateByName(name string) (int, bool) {
	i, ok := t.predicateIndex[name]
	return i, ok
}

// ObjectByName looks up an object index.
func (t *Task) ObjectByName(name string) (int, bool) {
	i, ok := t.objectIndex[name]
	return i, ok
}

// SchemaByName looks up an action schema index.
func (t *Task) SchemaByName(name string) (int, bool) {
	i, ok := t.schemaIndex[name]
	return i, ok
}

// FormatAtom renders a ground atom with names.
func (t *Task) FormatAtom(a state.Atom) string {
	s := "(" + t.Predicates[a.Predicate].Name
	for i := 0; i < a.Args.Len(); i++ {
		s += " " + t.Objects[a.Args.At(i)].Name
	}
	return s + ")"
}

// FormatState renders every atom of s.
func (t *Task) FormatState(s *state.DBState) string {
	return s.Format(
		func(p int) string { return t.Predicates[p].Name },
		func(o int) string { return t.Objects[o].Name },
	)
}

// FormatAction renders a ground action as (name obj...).
func (t *Task) FormatAction(a Action) string {
	schema := &t.Schemas[a.Schema]
	s := "(" + schema.Name
	for i := 0; i < a.Instantiation.Len(); i++ {
		s += " " + t.Objects[a.Instantiation.At(i)].Name
	}
	return s + ")"
}

// finalize computes derived tables. It is called once after the task
// structure is complete, and again when the structure changes.
func (t *Task) finalize() {
	t.objectsPerType = make([][]int, len(t.Types))
	for _, obj := range t.Objects {
		seen := make(map[int]bool)
		for _, typ := range obj.Types {
			for cur := typ; cur != NoParent && !seen[cur]; cur = t.Types[cur].Parent {
				seen[cur] = true
				t.objectsPerType[cur] = append(t.objectsPerType[cur], obj.Index)
			}
		}
	}
	for i := range t.objectsPerType {
		sort.Ints(t.objectsPerType[i])
	}

	written := make(map[int]bool)
	for _, s := range t.Schemas {
		for _, e := range s.Effects {
			written[e.Predicate] = true
		}
	}
	t.predicateIndex = make(map[string]int, len(t.Predicates))
	for i := range t.Predicates {
		t.Predicates[i].Static = !written[i]
		t.predicateIndex[t.Predicates[i].Name] = i
	}
	t.objectIndex = make(map[string]int, len(t.Objects))
	for _, o := range t.Objects {
		t.objectIndex[o.Name] = o.Index
	}
	t.schemaIndex = make(map[string]int, len(t.Schemas))
	for _, s := range t.Schemas {
		t.schemaIndex[s.Name] = s.Index
	}
}

// ActionFromNames resolves a named ground action, as found in a plan file.
func (t *Task) ActionFromNames(name string, params []string) (Action, error) {
	si, ok := t.schemaIndex[name]
	if !ok {
		return Action{}, fmt.Errorf("unknown action %q", name)
	}
	schema := &t.Schemas[si]
	if len(params) != schema.Arity() {
		return Action{}, fmt.Errorf("action %s expects %d parameters, got %d", name, schema.Arity(), len(params))
	}
	vals := make([]int, len(params))
	for i, p := range params {
		oi, ok := t.objectIndex[p]
		if !ok {
			return Action{}, fmt.Errorf("unknown object %q in action %s", p, name)
		}
		vals[i] = oi
	}
	return Action{Schema: si, Instantiation: t.Interner.Intern(vals)}, nil
}
