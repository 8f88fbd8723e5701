package successor

import (
	"liftplan/internal/state"
	"liftplan/internal/task"
)

// NaiveGenerator enumerates the full cross product of parameter domains.
// It is exponential in the schema arity.
type NaiveGenerator struct {
	base
}

// NewNaive returns the brute-force generator for tk.
func NewNaive(tk *task.Task) *NaiveGenerator {
	return &NaiveGenerator{base: base{tk: tk}}
}

func (g *NaiveGenerator) ApplicableActions(s *state.DBState, schema *task.ActionSchema) []task.Action {
	return g.complete(s, schema, nil)
}

func (g *NaiveGenerator) ApplicableActionsFromPartial(partial task.PartialAction, s *state.DBState) []task.Action {
	schema := &g.tk.Schemas[partial.Schema]
	for i, o := range partial.Instantiation {
		if !g.hasType(o, schema.Parameters[i].Type) {
			return nil
		}
	}
	return g.complete(s, schema, partial.Instantiation)
}

// ExtendPartial projects the applicable completions of partial onto one
// more parameter.
func (g *NaiveGenerator) ExtendPartial(partial task.PartialAction, s *state.DBState) []task.PartialAction {
	if partial.Depth() >= g.tk.Schemas[partial.Schema].Arity() {
		return nil
	}
	return project(partial, g.ApplicableActionsFromPartial(partial, s))
}

func (g *NaiveGenerator) complete(s *state.DBState, schema *task.ActionSchema, prefix []int) []task.Action {
	k := schema.Arity()
	binding := make([]int, k)
	copy(binding, prefix)

	var out []task.Action
	var enumerate func(i int)
	enumerate = func(i int) {
		if i == k {
			if g.holds(s, schema, binding) {
				out = append(out, task.Action{Schema: schema.Index, Instantiation: g.tk.Interner.Intern(binding)})
			}
			return
		}
		for _, o := range g.tk.ObjectsOfType(schema.Parameters[i].Type) {
			binding[i] = o
			enumerate(i + 1)
		}
	}
	enumerate(len(prefix))
	return out
}

func (g *NaiveGenerator) holds(s *state.DBState, schema *task.ActionSchema, binding []int) bool {
	vals := make([]int, 0, 4)
	for _, pre := range schema.Preconditions {
		vals = vals[:0]
		for _, arg := range pre.Args {
			if arg.Constant {
				vals = append(vals, arg.Index)
			} else {
				vals = append(vals, binding[arg.Index])
			}
		}
		var ok bool
		if pre.IsEquality() {
			ok = vals[0] == vals[1]
		} else if t, interned := g.tk.Interner.Lookup(vals); interned {
			ok = s.Satisfied(pre.Predicate, t)
		}
		if ok == pre.Negated {
			return false
		}
	}
	return true
}

func (g *NaiveGenerator) hasType(object, typ int) bool {
	for _, ot := range g.tk.Objects[object].Types {
		if g.tk.IsSubtype(ot, typ) {
			return true
		}
	}
	return false
}
