package datalog

import (
	"container/heap"
	"sort"

	"liftplan/internal/state"
	"liftplan/internal/task"
	"liftplan/internal/tuple"
)

// CompileRelaxed translates tk into its delete relaxation. Every schema
// keeps its applicability rule without negated atoms, weighted 1, and
// every add effect becomes a rule of weight 0 deriving the effect from
// the applicability predicate. All rules share one stratum.
func CompileRelaxed(tk *task.Task) (*Program, error) {
	p, err := compileRaw(tk, Options{})
	if err != nil {
		return nil, err
	}
	for i, r := range p.Rules {
		relaxed := NewJoinRule(r.Head(), r.Body(), nil, r.Conditions(), r.Annotation(), r.Schema())
		relaxed.setWeight(1)
		p.Rules[i] = relaxed
	}

	for si := range tk.Schemas {
		schema := &tk.Schemas[si]
		action := Atom{Predicate: p.ActionPredicate[si], Artificial: true}
		for i, par := range schema.Parameters {
			action.Terms = append(action.Terms, Variable(i, par.Type))
		}
		for _, eff := range schema.Effects {
			if eff.Negated {
				continue
			}
			head := Atom{Predicate: eff.Predicate}
			for _, arg := range eff.Args {
				if arg.Constant {
					head.Terms = append(head.Terms, Object(arg.Index))
				} else {
					head.Terms = append(head.Terms, Variable(arg.Index, schema.Parameters[arg.Index].Type))
				}
			}
			p.Rules = append(p.Rules, NewJoinRule(head, []Atom{action}, nil, nil, Annotation{}, si))
		}
	}

	all := make([]int, len(p.Rules))
	for i := range all {
		all[i] = i
	}
	p.Strata = [][]int{all}
	if err := p.check(); err != nil {
		return nil, err
	}
	return p, nil
}

// AddGoalRule adds the nullary goal predicate of p, derived once every
// positive goal atom holds. Negated goal atoms are relaxed away.
func AddGoalRule(p *Program) {
	p.Goal = p.newPredicate(PredicateInfo{Name: "@goal", Kind: PredicateGoal, Schema: -1})
	var body []Atom
	for _, ga := range p.task.Goal.Atoms {
		if ga.Negated {
			continue
		}
		atom := Atom{Predicate: ga.Atom.Predicate}
		for _, v := range ga.Atom.Args.Values() {
			atom.Terms = append(atom.Terms, Object(v))
		}
		body = append(body, atom)
	}
	p.Rules = append(p.Rules, NewJoinRule(Atom{Predicate: p.Goal, Artificial: true}, body, nil, nil, Annotation{}, -1))
	if len(p.Strata) == 0 {
		p.Strata = [][]int{nil}
	}
	last := len(p.Strata) - 1
	p.Strata[last] = append(p.Strata[last], len(p.Rules)-1)
}

// Aggregate combines the costs of the body facts of a rule application.
type Aggregate int

const (
	// AggregateSum adds body costs, as the additive heuristic does.
	AggregateSum Aggregate = iota
	// AggregateMax takes the most expensive body fact.
	AggregateMax
)

// bodyRef is an occurrence of a predicate in a rule body.
type bodyRef struct {
	rule, pos int
}

type factKey struct {
	pred int
	args uint32
}

type relaxedFact struct {
	pred int
	args tuple.SmallTuple
	cost int
	done bool
	// rule is the achieving rule, or -1 for facts of the state.
	rule int
	body []int
}

// RelaxedExplorer computes the cheapest derivation of every fact of a
// relaxed program with the generalized Dijkstra algorithm: facts are
// finalized in cost order and a rule fires once its body is finalized.
// The cost of an application is the rule weight plus the aggregated body
// costs. A RelaxedExplorer is not safe for concurrent use.
type RelaxedExplorer struct {
	prog   *Program
	agg    Aggregate
	byBody map[int][]bodyRef
	nvars  []int

	facts  []relaxedFact
	ids    map[factKey]int
	final  map[int][]int
	queue  costQueue
	goalID int
}

// NewRelaxedExplorer returns an explorer for p. p must carry a goal rule.
func NewRelaxedExplorer(p *Program, agg Aggregate) (*RelaxedExplorer, error) {
	if p.Goal < 0 {
		return nil, &ConfigError{Reason: "relaxed program has no goal rule"}
	}
	x := &RelaxedExplorer{prog: p, agg: agg, byBody: map[int][]bodyRef{}}
	for ri, r := range p.Rules {
		x.nvars = append(x.nvars, numVariables(r))
		for pos, a := range r.Body() {
			x.byBody[a.Predicate] = append(x.byBody[a.Predicate], bodyRef{rule: ri, pos: pos})
		}
	}
	return x, nil
}

// Program returns the program being explored.
func (x *RelaxedExplorer) Program() *Program { return x.prog }

// Explore runs the exploration from s until the goal fact is finalized.
// It returns the goal cost, or false when the goal is unreachable even
// without deletes.
func (x *RelaxedExplorer) Explore(s *state.DBState) (int, bool) {
	x.facts = x.facts[:0]
	x.ids = map[factKey]int{}
	x.final = map[int][]int{}
	x.queue = x.queue[:0]
	x.goalID = -1

	tk := x.prog.task
	for pred := range tk.Predicates {
		if s.Nullary(pred) {
			x.offer(pred, tuple.SmallTuple{}, 0, -1, nil)
			continue
		}
		s.Each(pred, func(t tuple.SmallTuple) bool {
			x.offer(pred, t, 0, -1, nil)
			return true
		})
	}
	for pred, facts := range x.prog.StaticFacts {
		for _, t := range facts {
			x.offer(pred, t, 0, -1, nil)
		}
	}
	for ri, r := range x.prog.Rules {
		if len(r.Body()) == 0 {
			x.fire(ri, make([]int, x.nvars[ri]), nil)
		}
	}

	for x.queue.Len() > 0 {
		item := heap.Pop(&x.queue).(costItem)
		f := &x.facts[item.id]
		if f.done || item.cost > f.cost {
			continue
		}
		f.done = true
		x.final[f.pred] = append(x.final[f.pred], item.id)
		if f.pred == x.prog.Goal {
			x.goalID = item.id
			return f.cost, true
		}
		for _, ref := range x.byBody[f.pred] {
			x.trigger(ref, item.id)
		}
	}
	return 0, false
}

// RelaxedPlan returns the actions on the achiever chains of the goal
// found by the last successful Explore call, sorted by schema and
// instantiation.
func (x *RelaxedExplorer) RelaxedPlan() []task.Action {
	if x.goalID < 0 {
		return nil
	}
	in := x.prog.task.Interner
	seen := map[int]bool{}
	var out []task.Action
	stack := []int{x.goalID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true
		f := &x.facts[id]
		if f.rule < 0 {
			continue
		}
		r := x.prog.Rules[f.rule]
		if r.Annotation().Kind == AnnotationAction {
			b, err := Decode(r, f.args)
			if err != nil {
				panic(&GroundingError{Rule: r.String(), Tuple: f.args, Err: err})
			}
			out = append(out, task.Action{Schema: b.Schema, Instantiation: in.Intern(b.Values)})
		}
		stack = append(stack, f.body...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Schema != out[j].Schema {
			return out[i].Schema < out[j].Schema
		}
		return lexLess(out[i].Instantiation.Values(), out[j].Instantiation.Values())
	})
	return out
}

// trigger fires the applications of ref.rule whose body atom at ref.pos
// is the newly finalized fact id.
func (x *RelaxedExplorer) trigger(ref bodyRef, id int) {
	r := x.prog.Rules[ref.rule]
	vals := make([]int, x.nvars[ref.rule])
	bound := make([]bool, len(vals))
	if !unify(r.Body()[ref.pos], x.facts[id].args, vals, bound) {
		return
	}
	chosen := make([]int, len(r.Body()))
	chosen[ref.pos] = id
	x.join(ref, 0, vals, bound, chosen)
}

func (x *RelaxedExplorer) join(ref bodyRef, pos int, vals []int, bound []bool, chosen []int) {
	r := x.prog.Rules[ref.rule]
	body := r.Body()
	if pos == ref.pos {
		pos++
	}
	if pos >= len(body) {
		x.fire(ref.rule, vals, chosen)
		return
	}
	for _, cand := range x.final[body[pos].Predicate] {
		v := append([]int(nil), vals...)
		b := append([]bool(nil), bound...)
		if !unify(body[pos], x.facts[cand].args, v, b) {
			continue
		}
		chosen[pos] = cand
		x.join(ref, pos+1, v, b, chosen)
	}
}

// fire checks the conditions of one rule application and offers its
// head fact.
func (x *RelaxedExplorer) fire(ri int, vals []int, chosen []int) {
	r := x.prog.Rules[ri]
	for _, c := range r.Conditions() {
		if (termValue(c.Left, vals) == termValue(c.Right, vals)) != c.Equal {
			return
		}
	}
	cost := 0
	for _, id := range chosen {
		bc := x.facts[id].cost
		if x.agg == AggregateMax {
			cost = max(cost, bc)
		} else {
			cost += bc
		}
	}
	cost += r.Weight()

	head := r.Head()
	args := make([]int, len(head.Terms))
	for i, t := range head.Terms {
		args[i] = termValue(t, vals)
	}
	x.offer(head.Predicate, x.prog.task.Interner.Intern(args), cost, ri, append([]int(nil), chosen...))
}

// offer records a derivation of pred(args) if it is cheaper than the
// best one known and the fact is not final yet.
func (x *RelaxedExplorer) offer(pred int, args tuple.SmallTuple, cost, rule int, body []int) {
	key := factKey{pred: pred, args: args.ID()}
	id, ok := x.ids[key]
	if !ok {
		id = len(x.facts)
		x.facts = append(x.facts, relaxedFact{pred: pred, args: args, cost: cost, rule: rule, body: body})
		x.ids[key] = id
		heap.Push(&x.queue, costItem{id: id, cost: cost})
		return
	}
	f := &x.facts[id]
	if f.done || cost >= f.cost {
		return
	}
	f.cost, f.rule, f.body = cost, rule, body
	heap.Push(&x.queue, costItem{id: id, cost: cost})
}

// unify binds the variables of a to t, failing on a constant mismatch or
// a variable already bound to another object.
func unify(a Atom, t tuple.SmallTuple, vals []int, bound []bool) bool {
	for i, term := range a.Terms {
		v := t.At(i)
		if !term.variable {
			if term.index != v {
				return false
			}
			continue
		}
		if bound[term.index] {
			if vals[term.index] != v {
				return false
			}
			continue
		}
		vals[term.index], bound[term.index] = v, true
	}
	return true
}

type costItem struct {
	id, cost int
}

// costQueue pops the cheapest fact, lowest id first among equals.
type costQueue []costItem

func (q costQueue) Len() int { return len(q) }
func (q costQueue) Less(i, j int) bool {
	if q[i].cost != q[j].cost {
		return q[i].cost < q[j].cost
	}
	return q[i].id < q[j].id
}
func (q costQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *costQueue) Push(v any) { *q = append(*q, v.(costItem)) }

func (q *costQueue) Pop() any {
	old := *q
	n := len(old)
	v := old[n-1]
	*q = old[:n-1]
	return v
}
