package datalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liftplan/internal/task"
	"liftplan/internal/task/tasktest"
	"liftplan/internal/tuple"
)

// =============================================================================
// DECODE TESTS
// =============================================================================

func TestDecode_ReordersParameters(t *testing.T) {
	in := tuple.NewInterner()
	head := Atom{Predicate: 3, Terms: []Term{Variable(1, 0), Variable(0, 0)}}
	body := Atom{Predicate: 0, Terms: []Term{Variable(0, 0), Variable(1, 0)}}
	r := NewProjectRule(head, body, Annotation{Kind: AnnotationAction, Schema: 2, Params: []int{1, 0}}, 2)

	tup := in.Of(7, 9)
	first, err := Decode(r, tup)
	require.NoError(t, err)
	second, err := Decode(r, tup)
	require.NoError(t, err)

	assert.Equal(t, Binding{Schema: 2, Values: []int{9, 7}}, first)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Decode is not repeatable (-first +second):\n%s", diff)
	}
	assert.Equal(t, []int{7, 9}, tup.Values(), "Decode must not touch the tuple")
}

func TestDecode_Errors(t *testing.T) {
	in := tuple.NewInterner()
	head := Atom{Predicate: 1, Terms: []Term{Variable(0, 0)}}
	body := Atom{Predicate: 0, Terms: []Term{Variable(0, 0)}}

	plain := NewProjectRule(head, body, Annotation{}, -1)
	_, err := Decode(plain, in.Of(1))
	assert.Error(t, err)

	annotated := NewProjectRule(head, body, Annotation{Kind: AnnotationAction, Params: []int{0}}, 0)
	_, err = Decode(annotated, in.Of(1, 2))
	assert.Error(t, err, "arity mismatch")

	broken := NewProjectRule(head, body, Annotation{Kind: AnnotationAction, Params: []int{4}}, 0)
	_, err = Decode(broken, in.Of(1))
	assert.Error(t, err, "parameter outside the head")
}

// =============================================================================
// COMPILE TESTS
// =============================================================================

func TestCompile_Move(t *testing.T) {
	tk := tasktest.Build(t, tasktest.MoveDefinition("loc-b"))
	p, err := Compile(tk, Options{})
	require.NoError(t, err)

	require.Len(t, p.ActionPredicate, 1)
	action := p.ActionPredicate[0]
	assert.Equal(t, "applicable-move", p.Predicates[action].Name)
	assert.Equal(t, PredicateAction, p.Predicates[action].Kind)
	assert.True(t, p.Predicates[action].Artificial())
	assert.False(t, p.Predicates[0].Artificial())
	assert.True(t, p.Harvested(action))

	r, ok := p.RuleForHead(action)
	require.True(t, ok)
	jr, ok := r.(*JoinRule)
	require.True(t, ok, "two connected preconditions stay a join rule")
	assert.Len(t, jr.Body(), 2)
	assert.True(t, jr.Acyclic())
	assert.Equal(t, []int{0, 1}, r.Annotation().Params)
	assert.Equal(t, -1, p.Epsilon)
	assert.Nil(t, p.PartialPredicate)
}

func TestCompile_UnknownPredicate(t *testing.T) {
	tk := tasktest.Build(t, tasktest.MoveDefinition("loc-b"))
	tk.Schemas[0].Preconditions[0].Predicate = 99

	_, err := Compile(tk, Options{})
	var cfg *ConfigError
	require.True(t, errors.As(err, &cfg), "got %v", err)
	assert.Equal(t, "move", cfg.Schema)
}

func TestCompile_RejectNegation(t *testing.T) {
	tk := tasktest.Build(t, tasktest.GripperDefinition(1))

	_, err := Compile(tk, Options{Negation: NegationReject})
	var cfg *ConfigError
	require.True(t, errors.As(err, &cfg), "got %v", err)
	assert.Equal(t, "pick", cfg.Schema)
	assert.Contains(t, cfg.Error(), "busy")

	_, err = Compile(tk, Options{Negation: NegationComplement})
	assert.NoError(t, err)
}

func TestParseNegationMode(t *testing.T) {
	for _, name := range []string{"", "complement", "Complement"} {
		m, err := ParseNegationMode(name)
		require.NoError(t, err)
		assert.Equal(t, NegationComplement, m)
	}
	m, err := ParseNegationMode("reject")
	require.NoError(t, err)
	assert.Equal(t, NegationReject, m)
	assert.Equal(t, "reject", m.String())

	_, err = ParseNegationMode("ignore")
	assert.Error(t, err)
}

func TestCheckSafety(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
		ok   bool
	}{
		{
			name: "safe",
			rule: NewJoinRule(
				Atom{Predicate: 2, Terms: []Term{Variable(0, 0)}},
				[]Atom{{Predicate: 0, Terms: []Term{Variable(0, 0)}}},
				nil, nil, Annotation{}, -1),
			ok: true,
		},
		{
			name: "dangling head variable",
			rule: NewJoinRule(
				Atom{Predicate: 2, Terms: []Term{Variable(1, 0)}},
				[]Atom{{Predicate: 0, Terms: []Term{Variable(0, 0)}}},
				nil, nil, Annotation{}, -1),
		},
		{
			name: "unbound negated variable",
			rule: NewJoinRule(
				Atom{Predicate: 2},
				[]Atom{{Predicate: 0, Terms: []Term{Variable(0, 0)}}},
				[]Atom{{Predicate: 1, Terms: []Term{Variable(1, 0)}}},
				nil, Annotation{}, -1),
		},
		{
			name: "unbound condition variable",
			rule: NewJoinRule(
				Atom{Predicate: 2},
				[]Atom{{Predicate: 0, Terms: []Term{Variable(0, 0)}}},
				nil, []Condition{{Left: Variable(0, 0), Right: Variable(3, 0)}}, Annotation{}, -1),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkSafety(tt.rule)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

// =============================================================================
// TRANSFORMATION TESTS
// =============================================================================

func componentsDefinition() *task.Definition {
	return &task.Definition{
		Domain:  "components",
		Problem: "one",
		Types:   []task.TypeDef{{Name: "obj"}},
		Predicates: []task.PredicateDef{
			{Name: "p", Params: []string{"obj"}},
			{Name: "q", Params: []string{"obj"}},
			{Name: "r", Params: []string{"obj", "obj"}},
			{Name: "done"},
		},
		Objects: []task.ObjectDef{{Name: "o1", Type: "obj"}, {Name: "o2", Type: "obj"}},
		Actions: []task.ActionDef{{
			Name:         "act",
			Parameters:   []task.ParamDef{{Name: "?x", Type: "obj"}, {Name: "?y", Type: "obj"}, {Name: "?z", Type: "obj"}},
			Precondition: []string{"(p ?x)", "(q ?y)", "(r ?y ?z)", "(r ?z o1)"},
			Effect:       []string{"(done)"},
		}},
		Init: []string{"(p o1)", "(q o2)", "(r o2 o1)", "(r o1 o1)"},
		Goal: []string{"(done)"},
	}
}

func TestNormalForm_SplitsComponentsAndProjectsConstants(t *testing.T) {
	tk := tasktest.Build(t, componentsDefinition())
	p, err := Compile(tk, Options{})
	require.NoError(t, err)

	r, ok := p.RuleForHead(p.ActionPredicate[0])
	require.True(t, ok)
	require.Len(t, r.Body(), 2, "p(?x) and one auxiliary atom for the y/z component: %s", r)
	assert.Equal(t, 0, r.Body()[0].Predicate)
	assert.Equal(t, PredicateAuxiliary, p.Predicates[r.Body()[1].Predicate].Kind)

	for _, rule := range p.Rules {
		if len(rule.Body()) < 2 {
			continue
		}
		for _, a := range rule.Body() {
			assert.False(t, a.HasObject(), "multi-atom rule %s joins on a constant", rule)
		}
	}
}

func TestNormalForm_DeduplicatesProjections(t *testing.T) {
	def := componentsDefinition()
	second := def.Actions[0]
	second.Name = "act-again"
	def.Actions = append(def.Actions, second)
	tk := tasktest.Build(t, def)

	p, err := Compile(tk, Options{})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, r := range p.Rules {
		assert.False(t, seen[r.String()], "duplicate rule %s", r)
		seen[r.String()] = true
	}
	projections := 0
	for _, r := range p.Rules {
		if _, ok := r.(*ProjectRule); ok && len(r.Body()) == 1 && r.Body()[0].HasObject() {
			projections++
		}
	}
	assert.Equal(t, 1, projections, "r(?z, o1) is shared by both schemas:\n%s", p)
}

func TestConnectedComponents_StratumOrder(t *testing.T) {
	for _, def := range []*task.Definition{
		componentsDefinition(),
		tasktest.BlocksworldDefinition(3),
		tasktest.GripperDefinition(2),
	} {
		t.Run(def.Domain, func(t *testing.T) {
			tk := tasktest.Build(t, def)
			p, err := Compile(tk, Options{Partial: true})
			require.NoError(t, err)

			stratumOf := map[int]int{}
			covered := 0
			for si, stratum := range p.Strata {
				for _, ri := range stratum {
					stratumOf[p.Rules[ri].Head().Predicate] = si
					covered++
				}
			}
			assert.Equal(t, len(p.Rules), covered)

			for si, stratum := range p.Strata {
				for _, ri := range stratum {
					r := p.Rules[ri]
					for _, a := range append(r.Body(), r.Negated()...) {
						if s, ok := stratumOf[a.Predicate]; ok {
							assert.LessOrEqual(t, s, si, "rule %s reads a later stratum", r)
						}
					}
				}
			}
		})
	}
}

func TestTarjan(t *testing.T) {
	// 0 -> 1 -> 2 -> 1, 3 isolated
	comp, n := tarjan([][]int{{1}, {2}, {1}, {}})
	assert.Equal(t, 3, n)
	assert.Equal(t, comp[1], comp[2])
	assert.NotEqual(t, comp[0], comp[1])
	assert.NotEqual(t, comp[3], comp[0])
}

func TestRestrictImmediateApplicability(t *testing.T) {
	tk := tasktest.Build(t, tasktest.MoveDefinition("loc-b"))
	p, err := Compile(tk, Options{Partial: true})
	require.NoError(t, err)

	require.GreaterOrEqual(t, p.Epsilon, 0)
	assert.Equal(t, PredicateEpsilon, p.Predicates[p.Epsilon].Kind)
	assert.Equal(t, 0, p.Predicates[p.Epsilon].Arity)

	levels := p.PartialPredicate[0]
	require.Len(t, levels, 3)
	assert.Equal(t, p.ActionPredicate[0], levels[2])
	for d := 0; d < 2; d++ {
		info := p.Predicates[levels[d]]
		assert.Equal(t, PredicatePartial, info.Kind)
		assert.Equal(t, d, info.Arity)
		assert.Equal(t, d, info.Depth)

		r, ok := p.RuleForHead(levels[d])
		require.True(t, ok)
		require.Len(t, r.Body(), 1)
		assert.Equal(t, levels[d+1], r.Body()[0].Predicate, "depth %d extends depth %d by one parameter", d, d+1)
	}

	action, _ := p.RuleForHead(p.ActionPredicate[0])
	found := false
	for _, a := range action.Body() {
		found = found || a.Predicate == p.Epsilon
	}
	assert.True(t, found, "action rule must read epsilon: %s", action)
	assert.False(t, p.Harvested(p.ActionPredicate[0]), "read by the deepest partial rule")
	assert.True(t, p.Harvested(levels[0]))
}

// =============================================================================
// JOIN ORDER TESTS
// =============================================================================

func chainRule() *JoinRule {
	return NewJoinRule(
		Atom{Predicate: 9, Terms: []Term{Variable(0, 0), Variable(2, 0), Variable(3, 0)}},
		[]Atom{
			{Predicate: 0, Terms: []Term{Variable(0, 0), Variable(1, 0)}},
			{Predicate: 1, Terms: []Term{Variable(1, 0), Variable(2, 0)}},
			{Predicate: 2, Terms: []Term{Variable(3, 0)}},
		},
		nil, nil, Annotation{}, -1)
}

func TestOrderers(t *testing.T) {
	r := chainRule()
	sizes := []int{10, 1, 5}
	size := func(pos int) int { return sizes[pos] }

	assert.Equal(t, []int{1, 0, 2}, CardinalityOrderer{}.Order(r, -1, size))
	assert.Equal(t, []int{2, 0, 1}, FastDownwardOrderer{}.Order(r, -1, size))

	for _, o := range []JoinOrderer{CardinalityOrderer{}, FastDownwardOrderer{}, Helmert09Orderer{}} {
		t.Run(o.Name(), func(t *testing.T) {
			order := o.Order(r, 2, size)
			require.Len(t, order, 3)
			assert.Equal(t, 2, order[0], "delta atom leads")
			assert.ElementsMatch(t, []int{0, 1, 2}, order)

			byName, err := OrdererByName(o.Name())
			require.NoError(t, err)
			assert.Equal(t, o.Name(), byName.Name())
		})
	}

	_, err := OrdererByName("random")
	assert.Error(t, err)
}

// =============================================================================
// FULL REDUCER TESTS
// =============================================================================

func TestGYO(t *testing.T) {
	v := func(i int) Term { return Variable(i, 0) }
	chain := []Atom{
		{Predicate: 0, Terms: []Term{v(0), v(1)}},
		{Predicate: 1, Terms: []Term{v(1), v(2)}},
		{Predicate: 2, Terms: []Term{v(2), v(3)}},
	}
	triangle := []Atom{
		{Predicate: 0, Terms: []Term{v(0), v(1)}},
		{Predicate: 1, Terms: []Term{v(1), v(2)}},
		{Predicate: 2, Terms: []Term{v(2), v(0)}},
	}

	tree, ok := gyo(chain)
	assert.True(t, ok)
	assert.Len(t, tree, 2)

	_, ok = gyo(triangle)
	assert.False(t, ok)
}

func TestFullReduce_DropsDanglingTuples(t *testing.T) {
	in := tuple.NewInterner()
	r := NewJoinRule(
		Atom{Predicate: 9, Terms: []Term{Variable(0, 0), Variable(2, 0)}},
		[]Atom{
			{Predicate: 0, Terms: []Term{Variable(0, 0), Variable(1, 0)}},
			{Predicate: 1, Terms: []Term{Variable(1, 0), Variable(2, 0)}},
		},
		nil, nil, Annotation{}, -1)
	require.True(t, r.Acyclic())

	cands := [][]tuple.SmallTuple{
		{in.Of(1, 2), in.Of(3, 4)},
		{in.Of(2, 5), in.Of(9, 9)},
	}
	got := fullReduce(r, cands)
	assert.Equal(t, []tuple.SmallTuple{in.Of(1, 2)}, got[0])
	assert.Equal(t, []tuple.SmallTuple{in.Of(2, 5)}, got[1])
}

// =============================================================================
// MANGLE RENDERING TESTS
// =============================================================================

func TestMangleSource(t *testing.T) {
	tk := tasktest.Build(t, tasktest.BlocksworldDefinition(2))
	p, err := Compile(tk, Options{})
	require.NoError(t, err)

	src := p.MangleSource()
	assert.Contains(t, src, "Decl p0_clear(X0).")
	assert.Contains(t, src, "Decl p2_arm_empty(X0).")
	assert.Contains(t, src, "p2_arm_empty(0)")
	assert.Equal(t, len(p.Rules), strings.Count(src, ":-"))
	assert.Equal(t, "p5_applicable_pickup", p.MangleName(p.ActionPredicate[0]))
}
