package datalog

import (
	"fmt"
	"strings"

	"liftplan/internal/task"
	"liftplan/internal/tuple"
)

// PredicateKind classifies program predicates.
type PredicateKind int

const (
	PredicateTask PredicateKind = iota
	PredicateType
	PredicateAction
	PredicatePartial
	PredicateAuxiliary
	PredicateEpsilon
	PredicateGoal
)

// PredicateInfo describes a program predicate. The first predicates of
// every program are the task predicates with unchanged indices.
type PredicateInfo struct {
	Name   string
	Arity  int
	Kind   PredicateKind
	Schema int
	Depth  int
}

// Artificial reports whether the predicate was introduced by
// compilation.
func (p PredicateInfo) Artificial() bool { return p.Kind != PredicateTask }

// NegationMode selects how negated preconditions are compiled.
type NegationMode int

const (
	// NegationComplement evaluates negated atoms as anti-joins once all of
	// their variables are bound. Unbound parameters are typed by
	// auxiliary type predicates.
	NegationComplement NegationMode = iota
	// NegationReject refuses negated preconditions.
	NegationReject
)

func (m NegationMode) String() string {
	switch m {
	case NegationComplement:
		return "complement"
	case NegationReject:
		return "reject"
	}
	return fmt.Sprintf("NegationMode(%d)", int(m))
}

// ParseNegationMode resolves a config name; the empty name is
// NegationComplement.
func ParseNegationMode(name string) (NegationMode, error) {
	switch strings.ToLower(name) {
	case "", "complement":
		return NegationComplement, nil
	case "reject":
		return NegationReject, nil
	}
	return 0, fmt.Errorf("unknown negation mode %q", name)
}

// Options controls compilation.
type Options struct {
	Negation NegationMode
	// Partial enables the partial-action rules of
	// RestrictImmediateApplicability.
	Partial bool
}

// Program is a compiled Datalog program for one task.
type Program struct {
	Predicates []PredicateInfo
	Rules      []Rule
	// Strata lists rule indices per stratum in evaluation order.
	Strata [][]int
	// StaticFacts are loaded into every fact base before evaluation.
	StaticFacts map[int][]tuple.SmallTuple
	// ActionPredicate maps schema index to its applicability predicate.
	ActionPredicate []int
	// PartialPredicate maps schema and depth to the partial predicate;
	// nil unless compiled with Options.Partial.
	PartialPredicate [][]int
	// Epsilon is the epsilon predicate, or -1.
	Epsilon int
	// Goal is the nullary predicate added by AddGoalRule, or -1.
	Goal int

	task        *task.Task
	harvest     map[int]bool
	typePred    map[int]int
	auxByAtom   map[string]Atom
	schemaRules [][]bool
	schemaPreds [][]int
}

// Task returns the task the program was compiled from.
func (p *Program) Task() *task.Task { return p.task }

// Harvested reports whether facts of pred are collected as output only
// and never joined.
func (p *Program) Harvested(pred int) bool { return p.harvest[pred] }

// RuleForHead returns the annotated rule deriving pred, if any.
func (p *Program) RuleForHead(pred int) (Rule, bool) {
	for _, r := range p.Rules {
		if r.Head().Predicate == pred && r.Annotation().Kind != AnnotationNone {
			return r, true
		}
	}
	return nil, false
}

func (p *Program) newPredicate(info PredicateInfo) int {
	p.Predicates = append(p.Predicates, info)
	return len(p.Predicates) - 1
}

func (p *Program) newAuxiliary(arity int, schema int) int {
	return p.newPredicate(PredicateInfo{
		Name:   fmt.Sprintf("@aux%d", len(p.Predicates)),
		Arity:  arity,
		Kind:   PredicateAuxiliary,
		Schema: schema,
	})
}

func (p *Program) typePredicate(typ int) int {
	if pred, ok := p.typePred[typ]; ok {
		return pred
	}
	pred := p.newPredicate(PredicateInfo{
		Name:   "@type-" + p.task.Types[typ].Name,
		Arity:  1,
		Kind:   PredicateType,
		Schema: -1,
	})
	p.typePred[typ] = pred
	facts := make([]tuple.SmallTuple, 0, len(p.task.ObjectsOfType(typ)))
	for _, o := range p.task.ObjectsOfType(typ) {
		facts = append(facts, p.task.Interner.Of(o))
	}
	p.StaticFacts[pred] = facts
	return pred
}

// Compile translates the action schemas of tk into a program and runs the
// transformation passes in order: NormalForm, ConnectedComponents,
// RemoveActionPredicates, and RestrictImmediateApplicability when
// opts.Partial is set.
func Compile(tk *task.Task, opts Options) (*Program, error) {
	p, err := compileRaw(tk, opts)
	if err != nil {
		return nil, err
	}
	passes := []func(*Program) error{NormalForm, ConnectedComponents, RemoveActionPredicates}
	if opts.Partial {
		passes = append(passes, RestrictImmediateApplicability)
	}
	for _, pass := range passes {
		if err := pass(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// compileRaw emits one applicability rule per schema.
func compileRaw(tk *task.Task, opts Options) (*Program, error) {
	p := &Program{
		StaticFacts: map[int][]tuple.SmallTuple{},
		Epsilon:     -1,
		Goal:        -1,
		task:        tk,
		harvest:     map[int]bool{},
		typePred:    map[int]int{},
		auxByAtom:   map[string]Atom{},
	}
	for _, pred := range tk.Predicates {
		p.newPredicate(PredicateInfo{Name: pred.Name, Arity: pred.Arity(), Kind: PredicateTask, Schema: -1})
	}

	for si := range tk.Schemas {
		schema := &tk.Schemas[si]
		head := Atom{
			Predicate:  p.newPredicate(PredicateInfo{Name: "applicable-" + schema.Name, Arity: schema.Arity(), Kind: PredicateAction, Schema: si}),
			Artificial: true,
		}
		p.ActionPredicate = append(p.ActionPredicate, head.Predicate)
		params := make([]int, schema.Arity())
		for i, par := range schema.Parameters {
			head.Terms = append(head.Terms, Variable(i, par.Type))
			params[i] = i
		}

		term := func(arg task.Argument) Term {
			if arg.Constant {
				return Object(arg.Index)
			}
			return Variable(arg.Index, schema.Parameters[arg.Index].Type)
		}

		var body, negated []Atom
		var conds []Condition
		implied := make([]bool, schema.Arity())
		for _, pre := range schema.Preconditions {
			if pre.IsEquality() {
				conds = append(conds, Condition{Left: term(pre.Args[0]), Right: term(pre.Args[1]), Equal: !pre.Negated})
				continue
			}
			if pre.Predicate < 0 || pre.Predicate >= len(tk.Predicates) {
				return nil, &ConfigError{Schema: schema.Name, Reason: fmt.Sprintf("unknown predicate %d", pre.Predicate)}
			}
			atom := Atom{Predicate: pre.Predicate}
			for _, arg := range pre.Args {
				atom.Terms = append(atom.Terms, term(arg))
			}
			if pre.Negated {
				if opts.Negation == NegationReject {
					return nil, &ConfigError{Schema: schema.Name, Reason: "negative precondition on " + tk.Predicates[pre.Predicate].Name + " is not supported"}
				}
				negated = append(negated, atom)
				continue
			}
			body = append(body, atom)
			for pos, arg := range pre.Args {
				if !arg.Constant && tk.IsSubtype(tk.Predicates[pre.Predicate].Types[pos], schema.Parameters[arg.Index].Type) {
					implied[arg.Index] = true
				}
			}
		}

		// parameters not typed by a positive precondition range over
		// their declared type
		for i, par := range schema.Parameters {
			if implied[i] {
				continue
			}
			tp := p.typePredicate(par.Type)
			body = append(body, Atom{Predicate: tp, Terms: []Term{Variable(i, par.Type)}, Artificial: true})
		}

		ann := Annotation{Kind: AnnotationAction, Schema: si, Params: params}
		// a parameterless schema without positive preconditions gets an
		// empty body that fires exactly once
		var r Rule = NewJoinRule(head, body, negated, conds, ann, si)
		if err := checkSafety(r); err != nil {
			return nil, &ConfigError{Schema: schema.Name, Rule: r.String(), Reason: err.Error()}
		}
		p.Rules = append(p.Rules, r)
	}
	return p, nil
}

// check verifies rule safety after a pass.
func (p *Program) check() error {
	for _, r := range p.Rules {
		if err := checkSafety(r); err != nil {
			name := ""
			if s := r.Schema(); s >= 0 {
				name = p.task.Schemas[s].Name
			}
			return &ConfigError{Schema: name, Rule: r.String(), Reason: err.Error()}
		}
	}
	return nil
}

// readers returns the predicates read by some rule body.
func (p *Program) readers() map[int]bool {
	out := map[int]bool{}
	for _, r := range p.Rules {
		for _, a := range r.Body() {
			out[a.Predicate] = true
		}
		for _, a := range r.Negated() {
			out[a.Predicate] = true
		}
	}
	return out
}

// computeRelevance records, per schema, the rules and task predicates
// needed to derive its action and partial predicates.
func (p *Program) computeRelevance() {
	byHead := map[int][]int{}
	for i, r := range p.Rules {
		byHead[r.Head().Predicate] = append(byHead[r.Head().Predicate], i)
	}

	p.schemaRules = make([][]bool, len(p.ActionPredicate))
	p.schemaPreds = make([][]int, len(p.ActionPredicate))
	for s, target := range p.ActionPredicate {
		need := []int{target}
		if p.PartialPredicate != nil {
			need = append(need, p.PartialPredicate[s]...)
		}
		seen := map[int]bool{}
		rules := make([]bool, len(p.Rules))
		for len(need) > 0 {
			pred := need[len(need)-1]
			need = need[:len(need)-1]
			if seen[pred] {
				continue
			}
			seen[pred] = true
			if p.Predicates[pred].Kind == PredicateTask {
				p.schemaPreds[s] = append(p.schemaPreds[s], pred)
			}
			for _, ri := range byHead[pred] {
				rules[ri] = true
				for _, a := range p.Rules[ri].Body() {
					need = append(need, a.Predicate)
				}
				for _, a := range p.Rules[ri].Negated() {
					need = append(need, a.Predicate)
				}
			}
		}
		p.schemaRules[s] = rules
	}
}

// String renders the program one rule per line, grouped by stratum.
func (p *Program) String() string {
	var b strings.Builder
	for si, stratum := range p.Strata {
		fmt.Fprintf(&b, "stratum %d:\n", si)
		for _, ri := range stratum {
			fmt.Fprintf(&b, "  %s\n", p.Rules[ri])
		}
	}
	return b.String()
}
