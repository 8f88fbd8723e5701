package successor

import (
	"fmt"

	"go.uber.org/zap"

	"liftplan/internal/datalog"
	"liftplan/internal/state"
	"liftplan/internal/task"
)

// FullReducerGenerator grounds the precondition program of one schema at
// a time. Candidate relations of acyclic joins are pruned with a
// semi-join full reducer before the join runs.
type FullReducerGenerator struct {
	base
	prog     *datalog.Program
	grounder *datalog.Grounder
}

// NewFullReducer compiles tk, with the partial-action rules when
// opts.Partial is set.
func NewFullReducer(tk *task.Task, opts Options) (*FullReducerGenerator, error) {
	prog, err := datalog.Compile(tk, datalog.Options{Negation: opts.Negation, Partial: opts.Partial})
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", tk.DomainName, err)
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("program compiled",
		zap.String("domain", tk.DomainName),
		zap.Int("predicates", len(prog.Predicates)),
		zap.Int("rules", len(prog.Rules)),
		zap.Int("strata", len(prog.Strata)),
	)
	g := datalog.NewGrounder(prog, datalog.GrounderOptions{
		Orderer:        opts.Orderer,
		SemiJoinReduce: true,
		Logger:         log,
	})
	return &FullReducerGenerator{base: base{tk: tk}, prog: prog, grounder: g}, nil
}

// Program returns the compiled program.
func (g *FullReducerGenerator) Program() *datalog.Program { return g.prog }

// GrounderStats returns the counters of the underlying grounder.
func (g *FullReducerGenerator) GrounderStats() datalog.GrounderStats { return g.grounder.Stats() }

func (g *FullReducerGenerator) ApplicableActions(s *state.DBState, schema *task.ActionSchema) []task.Action {
	return g.grounder.GroundSchema(s, schema.Index).Actions(schema.Index)
}

func (g *FullReducerGenerator) ApplicableActionsFromPartial(partial task.PartialAction, s *state.DBState) []task.Action {
	return covered(partial, g.grounder.GroundSchema(s, partial.Schema).Actions(partial.Schema))
}

// ExtendPartial reads the partial predicate one level below partial.
func (g *FullReducerGenerator) ExtendPartial(partial task.PartialAction, s *state.DBState) []task.PartialAction {
	depth := partial.Depth()
	if depth >= g.tk.Schemas[partial.Schema].Arity() {
		return nil
	}
	if g.prog.PartialPredicate == nil {
		return project(partial, g.ApplicableActionsFromPartial(partial, s))
	}
	fb := g.grounder.GroundSchema(s, partial.Schema)
	var out []task.PartialAction
	for _, child := range fb.Partials(partial.Schema, depth+1) {
		if partial.IsSupersetOf(child) {
			child.GroupID = partial.GroupID
			out = append(out, child)
		}
	}
	return out
}
