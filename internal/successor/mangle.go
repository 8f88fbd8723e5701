package successor

import (
	"fmt"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"

	"liftplan/internal/datalog"
	"liftplan/internal/state"
	"liftplan/internal/task"
	"liftplan/internal/tuple"
)

// MangleGenerator evaluates the compiled program with the Mangle engine.
// It is slower than the full reducer and exists as an independent
// cross-check of the grounder.
type MangleGenerator struct {
	base
	prog *datalog.Program
	info *analysis.ProgramInfo
	syms []ast.PredicateSym
	log  *zap.Logger
}

// NewMangle compiles tk and analyzes the resulting Mangle source once.
func NewMangle(tk *task.Task, opts Options) (*MangleGenerator, error) {
	prog, err := datalog.Compile(tk, datalog.Options{Negation: opts.Negation})
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", tk.DomainName, err)
	}
	src := prog.MangleSource()
	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("failed to parse generated program: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze generated program: %w", err)
	}

	syms := make([]ast.PredicateSym, len(prog.Predicates))
	for pred := range prog.Predicates {
		syms[pred] = ast.PredicateSym{Symbol: prog.MangleName(pred), Arity: prog.MangleArity(pred)}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log.Debug("mangle program analyzed", zap.Int("clauses", len(unit.Clauses)), zap.Int("decls", len(unit.Decls)))
	return &MangleGenerator{base: base{tk: tk}, prog: prog, info: info, syms: syms, log: log}, nil
}

// Source returns the Mangle text of the compiled program.
func (g *MangleGenerator) Source() string { return g.prog.MangleSource() }

func (g *MangleGenerator) ApplicableActions(s *state.DBState, schema *task.ActionSchema) []task.Action {
	return g.actions(g.evaluate(s), schema.Index)
}

func (g *MangleGenerator) ApplicableActionsFromPartial(partial task.PartialAction, s *state.DBState) []task.Action {
	return covered(partial, g.actions(g.evaluate(s), partial.Schema))
}

func (g *MangleGenerator) atom(pred int, t tuple.SmallTuple) ast.Atom {
	args := make([]ast.BaseTerm, 0, g.syms[pred].Arity)
	for i := 0; i < t.Len(); i++ {
		args = append(args, ast.Number(int64(t.At(i))))
	}
	if len(args) == 0 {
		args = append(args, ast.Number(0))
	}
	return ast.Atom{Predicate: g.syms[pred], Args: args}
}

// evaluate runs the program to fixpoint over a fresh store holding s. A
// failing evaluation means the generated program is broken and panics.
func (g *MangleGenerator) evaluate(s *state.DBState) factstore.FactStore {
	store := factstore.NewSimpleInMemoryStore()
	for pred := range g.tk.Predicates {
		if s.Nullary(pred) {
			store.Add(g.atom(pred, tuple.SmallTuple{}))
			continue
		}
		s.Each(pred, func(t tuple.SmallTuple) bool {
			store.Add(g.atom(pred, t))
			return true
		})
	}
	for pred, facts := range g.prog.StaticFacts {
		for _, t := range facts {
			store.Add(g.atom(pred, t))
		}
	}

	stats, err := mengine.EvalProgramWithStats(g.info, store)
	if err != nil {
		panic(&datalog.GroundingError{Rule: "mangle evaluation", Err: err})
	}
	g.log.Debug("mangle fixpoint", zap.Any("stats", stats))
	return store
}

func (g *MangleGenerator) actions(store factstore.FactStore, schema int) []task.Action {
	pred := g.prog.ActionPredicate[schema]
	r, ok := g.prog.RuleForHead(pred)
	if !ok {
		return nil
	}
	arity := g.prog.Predicates[pred].Arity

	fb := datalog.NewGrounder(g.prog, datalog.GrounderOptions{}).NewFactBase()
	err := store.GetFacts(ast.NewQuery(g.syms[pred]), func(a ast.Atom) error {
		vals := make([]int, arity)
		for i := range vals {
			c, ok := a.Args[i].(ast.Constant)
			if !ok || c.Type != ast.NumberType {
				return fmt.Errorf("unexpected argument %v in %v", a.Args[i], a)
			}
			vals[i] = int(c.NumValue)
		}
		fb.Insert(pred, g.tk.Interner.Intern(vals))
		return nil
	})
	if err != nil {
		panic(&datalog.GroundingError{Rule: r.String(), Err: err})
	}
	return fb.Actions(schema)
}
