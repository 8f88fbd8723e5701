package task_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liftplan/internal/state"
	"liftplan/internal/task"
	"liftplan/internal/task/tasktest"
)

// =============================================================================
// LOADER TESTS
// =============================================================================

func TestFromDefinition_Move(t *testing.T) {
	tk := tasktest.Build(t, tasktest.MoveDefinition("loc-b"))

	assert.Equal(t, "move", tk.DomainName)
	assert.Equal(t, "two-locations", tk.ProblemName)
	require.Len(t, tk.Schemas, 1)

	move := tk.Schemas[0]
	assert.Equal(t, 2, move.Arity())
	require.Len(t, move.Preconditions, 2)
	require.Len(t, move.Effects, 2)
	assert.True(t, move.Effects[1].Negated)

	at, ok := tk.PredicateByName("at")
	require.True(t, ok)
	road, _ := tk.PredicateByName("road")
	assert.False(t, tk.Predicates[at].Static)
	assert.True(t, tk.Predicates[road].Static)
	assert.Equal(t, []int{road}, tk.StaticPredicates())

	a, _ := tk.ObjectByName("loc-a")
	b, _ := tk.ObjectByName("loc-b")
	assert.True(t, tk.InitialState.Satisfied(at, tk.Interner.Of(a)))
	assert.True(t, tk.InitialState.Satisfied(road, tk.Interner.Of(b, a)))
	assert.False(t, tk.Goal.Satisfied(tk.InitialState))
	assert.Equal(t, 1, tk.Goal.Unsatisfied(tk.InitialState))
}

func TestObjectsOfType_IncludesSubtypes(t *testing.T) {
	tk := tasktest.Build(t, tasktest.GripperDefinition(2))

	names := func(idx []int) []string {
		var out []string
		for _, i := range idx {
			out = append(out, tk.Objects[i].Name)
		}
		return out
	}

	thing := -1
	for _, typ := range tk.Types {
		if typ.Name == "thing" {
			thing = typ.Index
		}
	}
	require.NotEqual(t, -1, thing)

	want := []string{"left", "right", "ball1", "ball2"}
	if diff := cmp.Diff(want, names(tk.ObjectsOfType(thing))); diff != "" {
		t.Errorf("ObjectsOfType(thing) mismatch (-want +got):\n%s", diff)
	}
	assert.Len(t, tk.ObjectsOfType(0), len(tk.Objects), "root type holds every object")
	assert.True(t, tk.IsSubtype(tk.Objects[4].Types[0], thing))
}

func TestFromDefinition_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*task.Definition)
	}{
		{"missing goal", func(d *task.Definition) { d.Goal = nil }},
		{"unknown predicate", func(d *task.Definition) { d.Actions[0].Precondition = []string{"(nowhere ?from)"} }},
		{"undeclared parameter", func(d *task.Definition) { d.Actions[0].Effect = []string{"(at ?elsewhere)"} }},
		{"arity mismatch", func(d *task.Definition) { d.Init = append(d.Init, "(at loc-a loc-b)") }},
		{"unknown object", func(d *task.Definition) { d.Goal = []string{"(at loc-z)"} }},
		{"negated init", func(d *task.Definition) { d.Init = []string{"(not (at loc-a))"} }},
		{"bad parameter name", func(d *task.Definition) { d.Actions[0].Parameters[0].Name = "from" }},
		{"unknown type", func(d *task.Definition) { d.Objects[0].Type = "planet" }},
		{"equality effect", func(d *task.Definition) { d.Actions[0].Effect = []string{"(= ?from ?to)"} }},
		{"unbalanced", func(d *task.Definition) { d.Init = []string{"(at loc-a"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := tasktest.MoveDefinition("loc-b")
			tt.mutate(def)
			_, err := task.FromDefinition(def)
			require.Error(t, err)
			var le *task.LoadError
			assert.True(t, errors.As(err, &le), "want *task.LoadError, got %T", err)
		})
	}
}

func TestFromDefinition_EffectTypeMismatch(t *testing.T) {
	def := tasktest.GripperDefinition(1)
	// ?r is a room, carry wants a gripper
	def.Actions[2].Effect = []string{"(carry ?b ?r)"}
	_, err := task.FromDefinition(def)
	require.Error(t, err)
}

func TestParse_YAML(t *testing.T) {
	src := `
domain: move
problem: yaml
types:
  - name: location
predicates:
  - name: at
    params: [location]
objects:
  - {name: loc-a, type: location}
  - {name: loc-b, type: location}
actions:
  - name: move
    parameters:
      - {name: "?from", type: location}
      - {name: "?to", type: location}
    precondition: ["at ?from"]
    effect: ["at ?to", "not (at ?from)"]
init: ["(at loc-a)"]
goal: ["(at loc-b)"]
`
	path := filepath.Join(t.TempDir(), "move.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0644))

	tk, err := task.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "yaml", tk.ProblemName)
	assert.True(t, tk.Schemas[0].Effects[1].Negated)

	_, err = task.LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = task.Parse([]byte("domain: [unclosed"))
	var le *task.LoadError
	assert.True(t, errors.As(err, &le))
}

func TestActionFromNames(t *testing.T) {
	tk := tasktest.Build(t, tasktest.MoveDefinition("loc-b"))

	a, err := tk.ActionFromNames("move", []string{"loc-a", "loc-b"})
	require.NoError(t, err)
	assert.Equal(t, "(move loc-a loc-b)", tk.FormatAction(a))

	_, err = tk.ActionFromNames("fly", []string{"loc-a"})
	assert.Error(t, err)
	_, err = tk.ActionFromNames("move", []string{"loc-a"})
	assert.Error(t, err)
	_, err = tk.ActionFromNames("move", []string{"loc-a", "mars"})
	assert.Error(t, err)
}

// =============================================================================
// PARTIAL ACTION TESTS
// =============================================================================

func TestPartialAction(t *testing.T) {
	tk := tasktest.Build(t, tasktest.GripperDefinition(1))
	pick, _ := tk.SchemaByName("pick")
	ball, _ := tk.ObjectByName("ball1")
	room, _ := tk.ObjectByName("room-a")
	left, _ := tk.ObjectByName("left")

	full := task.Action{Schema: pick, Instantiation: tk.Interner.Of(ball, room, left)}

	root := task.NewPartial(pick)
	p1 := root.AddInstantiation(ball)
	p2 := p1.AddInstantiation(room)

	assert.Equal(t, 0, root.Depth())
	assert.Equal(t, 2, p2.Depth())
	assert.False(t, p2.IsComplete(tk))
	assert.True(t, root.IsSupersetOf(p2))
	assert.True(t, p2.IsSubsetOf(p1))
	assert.False(t, p2.IsSupersetOf(p1))
	assert.True(t, p2.Covers(full))

	from := task.FromAction(full, 2)
	assert.Equal(t, p2.Instantiation, from.Instantiation)
	assert.True(t, p2.AddInstantiation(left).IsComplete(tk))
	assert.Equal(t, full, p2.AddInstantiation(left).ToAction(tk.Interner))

	// AddInstantiation must not alias the parent slice
	other := p1.AddInstantiation(room + 1)
	assert.Equal(t, room, p2.Instantiation[1])
	assert.NotEqual(t, other.Instantiation[1], p2.Instantiation[1])

	del, add := p1.GuaranteedEffects(tk)
	assert.Empty(t, del, "no delete effect depends on ?b alone")
	assert.Empty(t, add)

	del, add = p2.AddInstantiation(left).GuaranteedEffects(tk)
	assert.Len(t, del, 1)
	assert.Len(t, add, 2)

	assert.Panics(t, func() { task.FromAction(full, 4) })
}

// =============================================================================
// NEGATIVE PRECONDITION COMPILATION
// =============================================================================

func TestRemoveNegativePreconditions(t *testing.T) {
	tk := tasktest.Build(t, tasktest.GripperDefinition(1))
	busy, _ := tk.PredicateByName("busy")
	left, _ := tk.ObjectByName("left")
	right, _ := tk.ObjectByName("right")
	pick, _ := tk.SchemaByName("pick")

	require.True(t, tk.Schemas[pick].HasNegativePreconditions())
	require.Equal(t, 1, tk.RemoveNegativePreconditions())

	notBusy, ok := tk.PredicateByName("not-busy")
	require.True(t, ok)
	assert.Equal(t, busy, tk.Predicates[notBusy].NegationOf)
	assert.False(t, tk.Schemas[pick].HasNegativePreconditions())
	assert.False(t, tk.Predicates[notBusy].Static)

	assert.Equal(t, len(tk.Predicates), tk.InitialState.NumPredicates())
	assert.True(t, tk.InitialState.Satisfied(notBusy, tk.Interner.Of(left)))
	assert.True(t, tk.InitialState.Satisfied(notBusy, tk.Interner.Of(right)))

	// pick adds busy, so it must delete not-busy
	var deletesNotBusy bool
	for _, e := range tk.Schemas[pick].Effects {
		if e.Predicate == notBusy && e.Negated {
			deletesNotBusy = true
		}
	}
	assert.True(t, deletesNotBusy)

	// a second call finds nothing left to do
	assert.Equal(t, 0, tk.RemoveNegativePreconditions())
}

func TestRemoveNegativePreconditions_SelfLoopKeepsComplementConsistent(t *testing.T) {
	def := tasktest.BareMoveDefinition("loc-b")
	def.Actions = append(def.Actions, task.ActionDef{
		Name:         "enter",
		Parameters:   []task.ParamDef{{Name: "?x", Type: "location"}},
		Precondition: []string{"(not (at ?x))"},
		Effect:       []string{"(at ?x)"},
	})
	tk := tasktest.Build(t, def)
	require.Equal(t, 1, tk.RemoveNegativePreconditions())

	at, _ := tk.PredicateByName("at")
	notAt, _ := tk.PredicateByName("not-at")
	move, _ := tk.SchemaByName("move")
	a, _ := tk.ObjectByName("loc-a")
	b, _ := tk.ObjectByName("loc-b")

	// move(loc-a, loc-a) deletes and re-adds at(loc-a)
	stay := task.Action{Schema: move, Instantiation: tk.Interner.Of(a, a)}
	del, add := tk.Effects(stay)
	next := tk.InitialState.Apply(del, add)

	assert.True(t, next.Satisfied(at, tk.Interner.Of(a)))
	assert.False(t, next.Satisfied(notAt, tk.Interner.Of(a)), "not-at must stay false while at holds")
	assert.True(t, next.Satisfied(notAt, tk.Interner.Of(b)))

	// a real move still flips both predicates
	go1 := task.Action{Schema: move, Instantiation: tk.Interner.Of(a, b)}
	del, add = tk.Effects(go1)
	moved := tk.InitialState.Apply(del, add)
	assert.True(t, moved.Satisfied(notAt, tk.Interner.Of(a)))
	assert.False(t, moved.Satisfied(notAt, tk.Interner.Of(b)))
}

func TestGoal_Negated(t *testing.T) {
	def := tasktest.MoveDefinition("loc-b")
	def.Goal = []string{"(not (at loc-a))"}
	tk := tasktest.Build(t, def)
	assert.False(t, tk.Goal.Satisfied(tk.InitialState))

	at, _ := tk.PredicateByName("at")
	a, _ := tk.ObjectByName("loc-a")
	b, _ := tk.ObjectByName("loc-b")
	moved := tk.InitialState.Apply(
		[]state.Atom{{Predicate: at, Args: tk.Interner.Of(a)}},
		[]state.Atom{{Predicate: at, Args: tk.Interner.Of(b)}},
	)
	assert.True(t, tk.Goal.Satisfied(moved))
}
