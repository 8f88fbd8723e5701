package datalog

import (
	"container/heap"
	"fmt"
	"sort"

	"liftplan/internal/tuple"
)

// NormalForm rewrites every rule into the join-then-project shape:
//
//   - body atoms that share no variables are split into connected
//     components, and each multi-atom component becomes an auxiliary join
//     rule whose head keeps only the variables still needed;
//   - in multi-atom bodies, atoms with constants are replaced by an
//     auxiliary projection so joins only compare variables;
//   - single-atom rules without filters become ProjectRules;
//   - duplicate rules are dropped.
func NormalForm(p *Program) error {
	work := append([]Rule(nil), p.Rules...)
	var out []Rule
	for len(work) > 0 {
		r := work[0]
		work = work[1:]

		jr, ok := r.(*JoinRule)
		if !ok {
			out = append(out, r)
			continue
		}

		jr, aux := p.splitComponents(jr)
		work = append(work, aux...)

		jr, proj := p.projectConstants(jr)
		out = append(out, proj...)

		if len(jr.body) == 1 && len(jr.negated) == 0 && len(jr.conditions) == 0 {
			out = append(out, NewProjectRule(jr.head, jr.body[0], jr.annotation, jr.schema))
			continue
		}
		out = append(out, jr)
	}

	// shared projections are emitted once per user
	p.Rules = p.Rules[:0]
	seen := map[string]bool{}
	for _, r := range out {
		key := r.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		p.Rules = append(p.Rules, r)
	}
	p.Strata = nil
	return p.check()
}

// splitComponents moves each multi-atom connected component of the body
// into its own auxiliary rule.
func (p *Program) splitComponents(r *JoinRule) (*JoinRule, []Rule) {
	n := len(r.body)
	if n < 2 {
		return r, nil
	}
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}
	var components [][]int
	for i := 0; i < n; i++ {
		if comp[i] >= 0 {
			continue
		}
		id := len(components)
		stack := []int{i}
		comp[i] = id
		var members []int
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			members = append(members, cur)
			for j := 0; j < n; j++ {
				if comp[j] < 0 && r.body[cur].SharesVariable(r.body[j]) {
					comp[j] = id
					stack = append(stack, j)
				}
			}
		}
		sort.Ints(members)
		components = append(components, members)
	}
	if len(components) == 1 {
		return r, nil
	}

	relevant := varSet{}
	relevant.add(r.head.Variables()...)
	for _, a := range r.negated {
		relevant.add(a.Variables()...)
	}
	for _, c := range r.conditions {
		for _, t := range []Term{c.Left, c.Right} {
			if t.variable {
				relevant.add(t.index)
			}
		}
	}

	var body []Atom
	var aux []Rule
	for _, members := range components {
		if len(members) == 1 {
			body = append(body, r.body[members[0]])
			continue
		}
		atoms := make([]Atom, len(members))
		for i, m := range members {
			atoms[i] = r.body[m]
		}
		head := Atom{Artificial: true}
		for _, a := range atoms {
			for _, t := range a.Terms {
				if !t.variable || !relevant.has(t.index) || containsVar(head.Terms, t.index) {
					continue
				}
				head.Terms = append(head.Terms, t)
			}
		}
		head.Predicate = p.newAuxiliary(len(head.Terms), r.schema)
		aux = append(aux, NewJoinRule(head, atoms, nil, nil, Annotation{}, r.schema))
		body = append(body, head)
	}
	return NewJoinRule(r.head, body, r.negated, r.conditions, r.annotation, r.schema), aux
}

// projectConstants replaces body atoms mentioning objects by projections
// onto their variables.
func (p *Program) projectConstants(r *JoinRule) (*JoinRule, []Rule) {
	if len(r.body) < 2 {
		return r, nil
	}
	var proj []Rule
	body := make([]Atom, len(r.body))
	changed := false
	for i, a := range r.body {
		if !a.HasObject() {
			body[i] = a
			continue
		}
		key := a.String()
		aux, ok := p.auxByAtom[key]
		if !ok {
			aux = Atom{Artificial: true}
			for _, t := range a.Terms {
				if t.variable && !containsVar(aux.Terms, t.index) {
					aux.Terms = append(aux.Terms, t)
				}
			}
			aux.Predicate = p.newAuxiliary(len(aux.Terms), r.schema)
			p.auxByAtom[key] = aux
		}
		proj = append(proj, NewProjectRule(aux, a, Annotation{}, r.schema))
		body[i] = aux
		changed = true
	}
	if !changed {
		return r, nil
	}
	return NewJoinRule(r.head, body, r.negated, r.conditions, r.annotation, r.schema), proj
}

func containsVar(ts []Term, v int) bool {
	for _, t := range ts {
		if t.variable && t.index == v {
			return true
		}
	}
	return false
}

// ConnectedComponents stratifies the program: predicates are grouped into
// strongly connected components of the dependency graph, and components
// are ordered topologically with ties broken by the first declaring
// rule. Negation inside a component is rejected.
func ConnectedComponents(p *Program) error {
	n := len(p.Predicates)
	succ := make([][]int, n)
	for _, r := range p.Rules {
		h := r.Head().Predicate
		for _, a := range r.Body() {
			succ[a.Predicate] = append(succ[a.Predicate], h)
		}
		for _, a := range r.Negated() {
			succ[a.Predicate] = append(succ[a.Predicate], h)
		}
	}

	comp, ncomp := tarjan(succ)

	for _, r := range p.Rules {
		for _, a := range r.Negated() {
			if comp[a.Predicate] == comp[r.Head().Predicate] {
				return &ConfigError{Rule: r.String(), Reason: "negation through recursion"}
			}
		}
	}

	first := make([]int, ncomp)
	for i := range first {
		first[i] = len(p.Rules)
	}
	rulesOf := make([][]int, ncomp)
	for ri, r := range p.Rules {
		c := comp[r.Head().Predicate]
		rulesOf[c] = append(rulesOf[c], ri)
		if ri < first[c] {
			first[c] = ri
		}
	}

	indeg := make([]int, ncomp)
	cedges := make([]map[int]bool, ncomp)
	for u := range succ {
		for _, v := range succ[u] {
			cu, cv := comp[u], comp[v]
			if cu == cv {
				continue
			}
			if cedges[cu] == nil {
				cedges[cu] = map[int]bool{}
			}
			if !cedges[cu][cv] {
				cedges[cu][cv] = true
				indeg[cv]++
			}
		}
	}

	ready := &compQueue{first: first}
	for c := 0; c < ncomp; c++ {
		if indeg[c] == 0 {
			heap.Push(ready, c)
		}
	}
	p.Strata = nil
	for ready.Len() > 0 {
		c := heap.Pop(ready).(int)
		if len(rulesOf[c]) > 0 {
			p.Strata = append(p.Strata, rulesOf[c])
		}
		for v := range cedges[c] {
			if indeg[v]--; indeg[v] == 0 {
				heap.Push(ready, v)
			}
		}
	}
	p.computeRelevance()
	return nil
}

type compQueue struct {
	items []int
	first []int
}

func (q *compQueue) Len() int { return len(q.items) }
func (q *compQueue) Less(i, j int) bool {
	a, b := q.items[i], q.items[j]
	if q.first[a] != q.first[b] {
		return q.first[a] < q.first[b]
	}
	return a < b
}
func (q *compQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }
func (q *compQueue) Push(x any)   { q.items = append(q.items, x.(int)) }
func (q *compQueue) Pop() any {
	x := q.items[len(q.items)-1]
	q.items = q.items[:len(q.items)-1]
	return x
}

// tarjan labels the strongly connected components of the graph.
func tarjan(succ [][]int) ([]int, int) {
	n := len(succ)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	comp := make([]int, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	next, ncomp := 0, 0

	var visit func(v int)
	visit = func(v int) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range succ[v] {
			if index[w] < 0 {
				visit(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && index[w] < low[v] {
				low[v] = index[w]
			}
		}
		if low[v] == index[v] {
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				comp[w] = ncomp
				if w == v {
					break
				}
			}
			ncomp++
		}
	}
	for v := 0; v < n; v++ {
		if index[v] < 0 {
			visit(v)
		}
	}
	return comp, ncomp
}

// RemoveActionPredicates drops auxiliary rules whose heads nobody reads
// and marks action and partial predicates that no rule reads as
// harvested: their facts are decoded into bindings and never stored in
// the joinable fact set.
func RemoveActionPredicates(p *Program) error {
	for {
		read := p.readers()
		kept := p.Rules[:0]
		dropped := 0
		for _, r := range p.Rules {
			h := r.Head().Predicate
			if p.Predicates[h].Kind == PredicateAuxiliary && !read[h] {
				dropped++
				continue
			}
			kept = append(kept, r)
		}
		p.Rules = kept
		if dropped == 0 {
			break
		}
	}
	p.markHarvest()
	return ConnectedComponents(p)
}

func (p *Program) markHarvest() {
	read := p.readers()
	p.harvest = map[int]bool{}
	for pred, info := range p.Predicates {
		if (info.Kind == PredicateAction || info.Kind == PredicatePartial) && !read[pred] {
			p.harvest[pred] = true
		}
	}
}

// RestrictImmediateApplicability adds a nullary epsilon predicate to the
// body of every applicability rule and derives partial instantiations
// one parameter at a time: partial_d(?0..?d-1) <- partial_d+1(?0..?d),
// with the applicability predicate as the deepest level.
func RestrictImmediateApplicability(p *Program) error {
	p.Epsilon = p.newPredicate(PredicateInfo{Name: "@epsilon", Kind: PredicateEpsilon, Schema: -1})
	eps := Atom{Predicate: p.Epsilon, Artificial: true}

	for i, r := range p.Rules {
		if r.Annotation().Kind != AnnotationAction {
			continue
		}
		body := append(append([]Atom(nil), r.Body()...), eps)
		p.Rules[i] = NewJoinRule(r.Head(), body, r.Negated(), r.Conditions(), r.Annotation(), r.Schema())
	}

	p.PartialPredicate = make([][]int, len(p.ActionPredicate))
	for s, action := range p.ActionPredicate {
		schema := &p.task.Schemas[s]
		k := schema.Arity()
		levels := make([]int, k+1)
		levels[k] = action
		for d := k - 1; d >= 0; d-- {
			levels[d] = p.newPredicate(PredicateInfo{
				Name:   fmt.Sprintf("partial-%s-%d", schema.Name, d),
				Arity:  d,
				Kind:   PredicatePartial,
				Schema: s,
				Depth:  d,
			})
		}
		for d := k - 1; d >= 0; d-- {
			head := Atom{Predicate: levels[d], Artificial: true}
			body := Atom{Predicate: levels[d+1], Artificial: true}
			params := make([]int, d)
			for i := 0; i <= d; i++ {
				v := Variable(i, schema.Parameters[i].Type)
				body.Terms = append(body.Terms, v)
				if i < d {
					head.Terms = append(head.Terms, v)
					params[i] = i
				}
			}
			ann := Annotation{Kind: AnnotationPartial, Schema: s, Params: params}
			p.Rules = append(p.Rules, NewProjectRule(head, body, ann, s))
		}
		p.PartialPredicate[s] = levels
	}

	p.StaticFacts[p.Epsilon] = []tuple.SmallTuple{{}}
	p.markHarvest()
	if err := p.check(); err != nil {
		return err
	}
	return ConnectedComponents(p)
}
