package datalog

import (
	"sort"

	"go.uber.org/zap"

	"liftplan/internal/state"
	"liftplan/internal/task"
	"liftplan/internal/tuple"
)

// GrounderOptions configures a Grounder.
type GrounderOptions struct {
	// Orderer picks the join order of every join rule evaluation. Nil
	// means CardinalityOrderer.
	Orderer JoinOrderer
	// SemiJoinReduce prunes candidate tuples of acyclic join rules with
	// a full-reducer semi-join pass before joining.
	SemiJoinReduce bool
	Logger         *zap.Logger
}

// GrounderStats accumulates over the lifetime of a Grounder.
type GrounderStats struct {
	Fixpoints   int
	Iterations  int
	Evaluations int
	Derived     int
	Pruned      int
}

// Grounder evaluates a compiled program against database states.
// A Grounder is not safe for concurrent use.
type Grounder struct {
	prog  *Program
	opts  GrounderOptions
	log   *zap.Logger
	stats GrounderStats
}

// NewGrounder returns a grounder for p.
func NewGrounder(p *Program, opts GrounderOptions) *Grounder {
	if opts.Orderer == nil {
		opts.Orderer = CardinalityOrderer{}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Grounder{prog: p, opts: opts, log: log}
}

// Program returns the program being evaluated.
func (g *Grounder) Program() *Program { return g.prog }

// Stats returns a snapshot of the counters.
func (g *Grounder) Stats() GrounderStats { return g.stats }

// Ground loads every task relation of s and runs the whole program to its
// fixpoint.
func (g *Grounder) Ground(s *state.DBState) *FactBase {
	fb := g.NewFactBase()
	for pred := range g.prog.task.Predicates {
		fb.loadState(s, pred)
	}
	g.evaluate(fb, nil)
	return fb
}

// GroundSchema loads only the relations schema depends on and runs the
// rules deriving its action and partial predicates.
func (g *Grounder) GroundSchema(s *state.DBState, schema int) *FactBase {
	fb := g.NewFactBase()
	for _, pred := range g.prog.schemaPreds[schema] {
		fb.loadState(s, pred)
	}
	g.evaluate(fb, g.prog.schemaRules[schema])
	return fb
}

// Evaluate runs every stratum of the program over fb until fixpoint and
// returns the number of new facts. Evaluating a fact base that is already
// at its fixpoint returns 0.
func (g *Grounder) Evaluate(fb *FactBase) int {
	return g.evaluate(fb, nil)
}

func (g *Grounder) evaluate(fb *FactBase, filter []bool) int {
	g.stats.Fixpoints++
	derived := 0
	for _, stratum := range g.prog.Strata {
		rules := stratum
		if filter != nil {
			rules = nil
			for _, ri := range stratum {
				if filter[ri] {
					rules = append(rules, ri)
				}
			}
		}
		if len(rules) > 0 {
			derived += g.evalStratum(fb, rules)
		}
	}
	g.stats.Derived += derived
	g.log.Debug("fixpoint reached", zap.Int("derived", derived), zap.Int("facts", fb.Len()))
	return derived
}

// evalStratum evaluates rules semi-naively. The first round is a full
// evaluation; later rounds join at least one body atom against the facts
// derived in the previous round.
func (g *Grounder) evalStratum(fb *FactBase, rules []int) int {
	heads := map[int]bool{}
	for _, ri := range rules {
		heads[g.prog.Rules[ri].Head().Predicate] = true
	}

	n := 0
	for _, ri := range rules {
		n += g.evalRule(fb, g.prog.Rules[ri], heads, -1)
	}
	for fb.commit(heads) {
		g.stats.Iterations++
		for _, ri := range rules {
			r := g.prog.Rules[ri]
			for pos, a := range r.Body() {
				if heads[a.Predicate] && len(fb.rel(a.Predicate).delta()) > 0 {
					n += g.evalRule(fb, r, heads, pos)
				}
			}
		}
	}
	return n
}

// joinStep matches one body atom against the partial binding.
type joinStep struct {
	tuples    []tuple.SmallTuple
	boundPos  []int
	boundVars []int
	freePos   []int
	freeVars  []int
	index     map[string][]tuple.SmallTuple
	key       []byte
}

// evalRule derives the head facts of r. When deltaPos is not negative
// the atom at deltaPos only sees the previous round's delta, atoms of the
// stratum before it only see older facts, and atoms after it see
// everything.
func (g *Grounder) evalRule(fb *FactBase, r Rule, heads map[int]bool, deltaPos int) int {
	g.stats.Evaluations++
	body := r.Body()

	cands := make([][]tuple.SmallTuple, len(body))
	for pos, a := range body {
		rel := fb.rel(a.Predicate)
		var view []tuple.SmallTuple
		switch {
		case pos == deltaPos:
			view = rel.delta()
		case deltaPos >= 0 && pos < deltaPos && heads[a.Predicate]:
			view = rel.old()
		default:
			view = rel.full()
		}
		cands[pos] = selectMatching(a, view)
		if len(cands[pos]) == 0 {
			return 0
		}
	}

	order := make([]int, len(body))
	for i := range order {
		order[i] = i
	}
	if jr, ok := r.(*JoinRule); ok && len(body) > 1 {
		if g.opts.SemiJoinReduce && jr.acyclic {
			before := countAll(cands)
			cands = fullReduce(jr, cands)
			g.stats.Pruned += before - countAll(cands)
			for _, c := range cands {
				if len(c) == 0 {
					return 0
				}
			}
		}
		order = g.opts.Orderer.Order(jr, deltaPos, func(pos int) int { return len(cands[pos]) })
	}

	vals := make([]int, numVariables(r))
	bound := make([]bool, len(vals))
	steps := make([]joinStep, len(order))
	for k, pos := range order {
		a := body[pos]
		st := joinStep{tuples: cands[pos]}
		for _, v := range a.Variables() {
			p := position(a, v)
			if bound[v] {
				st.boundPos = append(st.boundPos, p)
				st.boundVars = append(st.boundVars, v)
			} else {
				st.freePos = append(st.freePos, p)
				st.freeVars = append(st.freeVars, v)
				bound[v] = true
			}
		}
		if len(st.boundPos) > 0 {
			st.index = make(map[string][]tuple.SmallTuple)
			var buf []byte
			for _, t := range st.tuples {
				buf = buf[:0]
				for _, p := range st.boundPos {
					buf = appendKey(buf, t.At(p))
				}
				st.index[string(buf)] = append(st.index[string(buf)], t)
			}
		}
		steps[k] = st
	}

	head := r.Head()
	headVals := make([]int, len(head.Terms))
	var negVals []int
	derived := 0

	emit := func() {
		for _, c := range r.Conditions() {
			if (termValue(c.Left, vals) == termValue(c.Right, vals)) != c.Equal {
				return
			}
		}
		for _, a := range r.Negated() {
			negVals = negVals[:0]
			for _, t := range a.Terms {
				negVals = append(negVals, termValue(t, vals))
			}
			if fb.containsValues(a.Predicate, negVals) {
				return
			}
		}
		for i, t := range head.Terms {
			headVals[i] = termValue(t, vals)
		}
		if fb.add(head.Predicate, fb.in.Intern(headVals)) {
			derived++
		}
	}

	var join func(k int)
	join = func(k int) {
		if k == len(steps) {
			emit()
			return
		}
		st := &steps[k]
		list := st.tuples
		if st.index != nil {
			st.key = st.key[:0]
			for _, v := range st.boundVars {
				st.key = appendKey(st.key, vals[v])
			}
			list = st.index[string(st.key)]
		}
		for _, t := range list {
			for i, p := range st.freePos {
				vals[st.freeVars[i]] = t.At(p)
			}
			join(k + 1)
		}
	}
	join(0)
	return derived
}

func termValue(t Term, vals []int) int {
	if t.variable {
		return vals[t.index]
	}
	return t.index
}

// selectMatching keeps the tuples agreeing with the constants and
// repeated variables of a.
func selectMatching(a Atom, tuples []tuple.SmallTuple) []tuple.SmallTuple {
	type check struct{ pos, value, same int }
	var checks []check
	for i, t := range a.Terms {
		switch {
		case !t.variable:
			checks = append(checks, check{pos: i, value: t.index, same: -1})
		case position(a, t.index) != i:
			checks = append(checks, check{pos: i, same: position(a, t.index)})
		}
	}
	if len(checks) == 0 {
		return tuples
	}
	out := make([]tuple.SmallTuple, 0, len(tuples))
next:
	for _, t := range tuples {
		for _, c := range checks {
			if c.same < 0 && t.At(c.pos) != c.value {
				continue next
			}
			if c.same >= 0 && t.At(c.pos) != t.At(c.same) {
				continue next
			}
		}
		out = append(out, t)
	}
	return out
}

func countAll(cands [][]tuple.SmallTuple) int {
	n := 0
	for _, c := range cands {
		n += len(c)
	}
	return n
}

// relation stores the facts of one predicate in derivation order.
// facts[:deltaStart] are old, facts[deltaStart:deltaEnd] are the delta of
// the last round, and anything after deltaEnd is pending.
type relation struct {
	facts      []tuple.SmallTuple
	set        map[tuple.SmallTuple]struct{}
	deltaStart int
	deltaEnd   int
}

func (r *relation) add(t tuple.SmallTuple) bool {
	if _, ok := r.set[t]; ok {
		return false
	}
	r.set[t] = struct{}{}
	r.facts = append(r.facts, t)
	return true
}

func (r *relation) old() []tuple.SmallTuple   { return r.facts[:r.deltaStart] }
func (r *relation) delta() []tuple.SmallTuple { return r.facts[r.deltaStart:r.deltaEnd] }
func (r *relation) full() []tuple.SmallTuple  { return r.facts[:r.deltaEnd] }

// FactBase holds the facts derived for one state.
type FactBase struct {
	prog *Program
	in   *tuple.Interner
	rels []*relation
}

// NewFactBase returns a fact base holding the static facts of the program.
func (g *Grounder) NewFactBase() *FactBase {
	fb := &FactBase{
		prog: g.prog,
		in:   g.prog.task.Interner,
		rels: make([]*relation, len(g.prog.Predicates)),
	}
	for pred, facts := range g.prog.StaticFacts {
		for _, t := range facts {
			fb.Insert(pred, t)
		}
	}
	return fb
}

func (fb *FactBase) rel(pred int) *relation {
	r := fb.rels[pred]
	if r == nil {
		r = &relation{set: make(map[tuple.SmallTuple]struct{})}
		fb.rels[pred] = r
	}
	return r
}

// add records a derived fact. It becomes visible with the next commit.
func (fb *FactBase) add(pred int, t tuple.SmallTuple) bool {
	return fb.rel(pred).add(t)
}

// Insert adds an input fact that is visible immediately.
func (fb *FactBase) Insert(pred int, t tuple.SmallTuple) bool {
	r := fb.rel(pred)
	if !r.add(t) {
		return false
	}
	r.deltaEnd = len(r.facts)
	return true
}

func (fb *FactBase) loadState(s *state.DBState, pred int) {
	if s.Nullary(pred) {
		fb.Insert(pred, tuple.SmallTuple{})
		return
	}
	s.Each(pred, func(t tuple.SmallTuple) bool {
		fb.Insert(pred, t)
		return true
	})
}

// commit closes a round for preds and reports whether any of them
// received new facts.
func (fb *FactBase) commit(preds map[int]bool) bool {
	changed := false
	for pred := range preds {
		r := fb.rel(pred)
		r.deltaStart, r.deltaEnd = r.deltaEnd, len(r.facts)
		if r.deltaStart < r.deltaEnd {
			changed = true
		}
	}
	return changed
}

func (fb *FactBase) containsValues(pred int, vals []int) bool {
	t, ok := fb.in.Lookup(vals)
	if !ok {
		return false
	}
	return fb.Contains(pred, t)
}

// Contains reports whether pred(t) was loaded or derived.
func (fb *FactBase) Contains(pred int, t tuple.SmallTuple) bool {
	r := fb.rels[pred]
	if r == nil {
		return false
	}
	_, ok := r.set[t]
	return ok
}

// Facts returns the facts of pred in derivation order.
func (fb *FactBase) Facts(pred int) []tuple.SmallTuple {
	r := fb.rels[pred]
	if r == nil {
		return nil
	}
	return append([]tuple.SmallTuple(nil), r.facts...)
}

// Len returns the number of facts over all predicates.
func (fb *FactBase) Len() int {
	n := 0
	for _, r := range fb.rels {
		if r != nil {
			n += len(r.facts)
		}
	}
	return n
}

// Bindings decodes every fact of the annotated predicate pred. The result
// is sorted lexicographically by values.
func (fb *FactBase) Bindings(pred int) []Binding {
	facts := fb.Facts(pred)
	if len(facts) == 0 {
		return nil
	}
	r, ok := fb.prog.RuleForHead(pred)
	if !ok {
		panic(&GroundingError{Rule: fb.prog.Predicates[pred].Name, Tuple: facts[0], Err: errNoAnnotation})
	}
	out := make([]Binding, 0, len(facts))
	for _, t := range facts {
		b, err := Decode(r, t)
		if err != nil {
			panic(&GroundingError{Rule: r.String(), Tuple: t, Err: err})
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return lexLess(out[i].Values, out[j].Values) })
	return out
}

// Actions returns the applicable actions of schema found in fb.
func (fb *FactBase) Actions(schema int) []task.Action {
	bs := fb.Bindings(fb.prog.ActionPredicate[schema])
	out := make([]task.Action, len(bs))
	for i, b := range bs {
		out[i] = task.Action{Schema: b.Schema, Instantiation: fb.in.Intern(b.Values)}
	}
	return out
}

// Partials returns the partial instantiations of schema with depth bound
// parameters. The program must have been compiled with Options.Partial.
func (fb *FactBase) Partials(schema, depth int) []task.PartialAction {
	bs := fb.Bindings(fb.prog.PartialPredicate[schema][depth])
	out := make([]task.PartialAction, len(bs))
	for i, b := range bs {
		out[i] = task.PartialAction{Schema: b.Schema, Instantiation: b.Values, GroupID: task.NoGroup}
	}
	return out
}

func lexLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
