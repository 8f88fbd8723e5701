package task

import (
	"liftplan/internal/state"
	"liftplan/internal/tuple"
)

// Action is a ground action: a schema index and a full instantiation.
// Two actions are equal iff both fields are equal, and since tuples are
// interned the struct is directly comparable.
type Action struct {
	Schema        int
	Instantiation tuple.SmallTuple
}

// Binding returns the instantiation as a parameter binding.
func (a Action) Binding() []int { return a.Instantiation.Values() }

// Effects grounds the schema effects of a.
func (t *Task) Effects(a Action) (del, add []state.Atom) {
	return t.Schemas[a.Schema].GroundEffects(t.Interner, a.Binding())
}

// NoGroup is the group id of partial actions not assigned to a batch.
const NoGroup = -1

// PartialAction is an action schema with a prefix of its parameters bound.
// A partial action stands for the set of actions completing it, so a
// partial action with fewer bindings is a superset of one with more.
type PartialAction struct {
	Schema        int
	Instantiation []int
	GroupID       int
}

// NewPartial returns the unbound partial action of schema.
func NewPartial(schema int) PartialAction {
	return PartialAction{Schema: schema, GroupID: NoGroup}
}

// FromAction truncates a to its first depth parameters.
func FromAction(a Action, depth int) PartialAction {
	if depth > a.Instantiation.Len() {
		panic("task: partial depth exceeds action arity")
	}
	vals := a.Instantiation.Values()
	return PartialAction{Schema: a.Schema, Instantiation: vals[:depth], GroupID: NoGroup}
}

// Depth is the number of bound parameters.
func (p PartialAction) Depth() int { return len(p.Instantiation) }

// IsComplete reports whether every parameter of the schema is bound.
func (p PartialAction) IsComplete(t *Task) bool {
	return p.Depth() == t.Schemas[p.Schema].Arity()
}

// IsSupersetOf reports whether every action represented by other is also
// represented by p.
func (p PartialAction) IsSupersetOf(other PartialAction) bool {
	if p.Schema != other.Schema || len(p.Instantiation) > len(other.Instantiation) {
		return false
	}
	for i, v := range p.Instantiation {
		if other.Instantiation[i] != v {
			return false
		}
	}
	return true
}

// IsSubsetOf is the converse of IsSupersetOf.
func (p PartialAction) IsSubsetOf(other PartialAction) bool { return other.IsSupersetOf(p) }

// Covers reports whether a completes p.
func (p PartialAction) Covers(a Action) bool {
	return p.Schema == a.Schema && a.Instantiation.HasPrefix(p.Instantiation)
}

// AddInstantiation binds the next parameter to object.
func (p PartialAction) AddInstantiation(object int) PartialAction {
	inst := make([]int, len(p.Instantiation)+1)
	copy(inst, p.Instantiation)
	inst[len(p.Instantiation)] = object
	return PartialAction{Schema: p.Schema, Instantiation: inst, GroupID: p.GroupID}
}

// ToAction converts a complete partial action.
func (p PartialAction) ToAction(in *tuple.Interner) Action {
	return Action{Schema: p.Schema, Instantiation: in.Intern(p.Instantiation)}
}

// GuaranteedEffects returns the effects fully determined by the bound
// prefix, that is, effects whose free arguments are all bound.
func (p PartialAction) GuaranteedEffects(t *Task) (del, add []state.Atom) {
	schema := &t.Schemas[p.Schema]
	for _, eff := range schema.Effects {
		bound := true
		for _, arg := range eff.Args {
			if !arg.Constant && arg.Index >= p.Depth() {
				bound = false
				break
			}
		}
		if !bound {
			continue
		}
		g := eff.Ground(t.Interner, p.Instantiation)
		if eff.Negated {
			del = append(del, g)
		} else {
			add = append(add, g)
		}
	}
	return del, schema.dropContradicted(add)
}
