// Package successor computes applicable actions and successor states.
//
// Three interchangeable generators are provided:
//   - naive enumerates every type-consistent substitution and checks it
//     against the state; it is the reference used in cross-checks.
//   - full-reducer grounds the compiled Datalog program of a schema
//     against the state with the weighted grounder.
//   - mangle evaluates the same compiled program with google/mangle.
package successor

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"liftplan/internal/datalog"
	"liftplan/internal/state"
	"liftplan/internal/task"
)

// Generator computes applicable actions and their successors. All
// implementations return the same set of actions for every state and
// schema; the order is lexicographic by instantiation.
type Generator interface {
	ApplicableActions(s *state.DBState, schema *task.ActionSchema) []task.Action
	// ApplicableActionsFromPartial returns the applicable actions that
	// complete partial.
	ApplicableActionsFromPartial(partial task.PartialAction, s *state.DBState) []task.Action
	GenerateSuccessor(s *state.DBState, schema *task.ActionSchema, a task.Action) *state.DBState
}

// PartialExpander is implemented by generators that can extend a partial
// action by one parameter.
type PartialExpander interface {
	// ExtendPartial returns the partial actions binding one more parameter
	// than partial that still have an applicable completion.
	ExtendPartial(partial task.PartialAction, s *state.DBState) []task.PartialAction
}

// Kind selects a generator implementation.
type Kind int

const (
	Naive Kind = iota
	FullReducer
	Mangle
)

var kindNames = map[Kind]string{
	Naive:       "naive",
	FullReducer: "full-reducer",
	Mangle:      "mangle",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a configuration name.
func ParseKind(name string) (Kind, error) {
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown successor generator %q", name)
}

// Options configures the Datalog-backed generators. The naive generator
// ignores them.
type Options struct {
	Orderer  datalog.JoinOrderer
	Negation datalog.NegationMode
	// Partial compiles the partial-action rules read by ExtendPartial.
	// Without them the full reducer extends partial actions from the
	// applicable actions of the schema.
	Partial bool
	Logger  *zap.Logger
}

// New builds the generator of the given kind for tk.
func New(kind Kind, tk *task.Task, opts Options) (Generator, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	switch kind {
	case Naive:
		return NewNaive(tk), nil
	case FullReducer:
		return NewFullReducer(tk, opts)
	case Mangle:
		return NewMangle(tk, opts)
	}
	return nil, fmt.Errorf("unknown successor generator %v", kind)
}

// base carries what every generator shares.
type base struct {
	tk *task.Task
}

// GenerateSuccessor applies the effects of a to s. Deletes happen before
// adds, and s is left untouched.
func (b base) GenerateSuccessor(s *state.DBState, schema *task.ActionSchema, a task.Action) *state.DBState {
	del, add := schema.GroundEffects(b.tk.Interner, a.Binding())
	return s.Apply(del, add)
}

// Extend returns the partial actions binding one more parameter than
// partial that still have an applicable completion in s.
func Extend(gen Generator, partial task.PartialAction, s *state.DBState) []task.PartialAction {
	if ext, ok := gen.(PartialExpander); ok {
		return ext.ExtendPartial(partial, s)
	}
	return project(partial, gen.ApplicableActionsFromPartial(partial, s))
}

// project maps the completions of partial onto their next parameter.
// actions must be sorted by instantiation.
func project(partial task.PartialAction, actions []task.Action) []task.PartialAction {
	depth := partial.Depth()
	var out []task.PartialAction
	last := -1
	for _, a := range actions {
		if a.Instantiation.Len() <= depth {
			continue
		}
		next := a.Instantiation.At(depth)
		if next == last {
			continue
		}
		last = next
		out = append(out, partial.AddInstantiation(next))
	}
	return out
}

func covered(partial task.PartialAction, actions []task.Action) []task.Action {
	out := actions[:0:0]
	for _, a := range actions {
		if partial.Covers(a) {
			out = append(out, a)
		}
	}
	return out
}
