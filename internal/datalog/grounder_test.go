package datalog

import (
	"errors"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liftplan/internal/state"
	"liftplan/internal/task"
	"liftplan/internal/task/tasktest"
)

func compileAndGround(t *testing.T, def *task.Definition, opts Options, gopts GrounderOptions) (*task.Task, *Grounder) {
	t.Helper()
	tk := tasktest.Build(t, def)
	p, err := Compile(tk, opts)
	require.NoError(t, err)
	return tk, NewGrounder(p, gopts)
}

func actionNames(tk *task.Task, actions []task.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = tk.FormatAction(a)
	}
	sort.Strings(out)
	return out
}

// =============================================================================
// FIXPOINT TESTS
// =============================================================================

func TestGround_BareMove(t *testing.T) {
	tk, g := compileAndGround(t, tasktest.BareMoveDefinition("loc-b"), Options{}, GrounderOptions{})

	fb := g.Ground(tk.InitialState)
	got := actionNames(tk, fb.Actions(0))
	want := []string{"(move loc-a loc-a)", "(move loc-a loc-b)"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Actions() mismatch (-want +got):\n%s", diff)
	}
}

func TestGround_FixpointIdempotence(t *testing.T) {
	defs := []*task.Definition{
		tasktest.MoveDefinition("loc-b"),
		tasktest.BlocksworldDefinition(3),
		tasktest.GripperDefinition(2),
	}
	for _, def := range defs {
		for _, partial := range []bool{false, true} {
			t.Run(def.Domain, func(t *testing.T) {
				tk, g := compileAndGround(t, def, Options{Partial: partial}, GrounderOptions{SemiJoinReduce: true})
				fb := g.Ground(tk.InitialState)
				before := fb.Len()

				assert.Equal(t, 0, g.Evaluate(fb), "second evaluation derived new facts")
				assert.Equal(t, before, fb.Len())
			})
		}
	}
}

func TestGroundSchema_MatchesFullGrounding(t *testing.T) {
	tk, g := compileAndGround(t, tasktest.GripperDefinition(2), Options{}, GrounderOptions{})
	full := g.Ground(tk.InitialState)

	for s := range tk.Schemas {
		restricted := g.GroundSchema(tk.InitialState, s)
		assert.Equal(t, actionNames(tk, full.Actions(s)), actionNames(tk, restricted.Actions(s)), tk.Schemas[s].Name)
		assert.LessOrEqual(t, restricted.Len(), full.Len())
	}
}

func TestGround_OrderersAgree(t *testing.T) {
	def := tasktest.BlocksworldDefinition(3)
	tk := tasktest.Build(t, def)
	p, err := Compile(tk, Options{})
	require.NoError(t, err)

	// reach a state with a block in hand and one stacked
	b1, _ := tk.ObjectByName("b1")
	b2, _ := tk.ObjectByName("b2")
	b3, _ := tk.ObjectByName("b3")
	pickup, _ := tk.SchemaByName("pickup")
	stack, _ := tk.SchemaByName("stack")
	s := tk.InitialState
	for _, a := range []task.Action{
		{Schema: pickup, Instantiation: tk.Interner.Of(b1)},
		{Schema: stack, Instantiation: tk.Interner.Of(b1, b2)},
		{Schema: pickup, Instantiation: tk.Interner.Of(b3)},
	} {
		del, add := tk.Effects(a)
		s = s.Apply(del, add)
	}

	var reference [][]string
	for _, o := range []JoinOrderer{CardinalityOrderer{}, FastDownwardOrderer{}, Helmert09Orderer{}} {
		for _, reduce := range []bool{false, true} {
			g := NewGrounder(p, GrounderOptions{Orderer: o, SemiJoinReduce: reduce})
			fb := g.Ground(s)
			var got [][]string
			for si := range tk.Schemas {
				got = append(got, actionNames(tk, fb.Actions(si)))
			}
			if reference == nil {
				reference = got
				continue
			}
			if diff := cmp.Diff(reference, got); diff != "" {
				t.Errorf("%s (reduce=%v) disagrees (-want +got):\n%s", o.Name(), reduce, diff)
			}
		}
	}
	// b3 is in hand and b1 is the only clear block
	assert.Equal(t, []string{"(putdown b3)"}, reference[1])
	assert.Equal(t, []string{"(stack b3 b1)"}, reference[2])
}

func TestGround_NegationAndInequality(t *testing.T) {
	tk, g := compileAndGround(t, tasktest.GripperDefinition(1), Options{}, GrounderOptions{})
	fb := g.Ground(tk.InitialState)

	move, _ := tk.SchemaByName("move")
	pick, _ := tk.SchemaByName("pick")
	assert.Equal(t, []string{"(move room-a room-b)"}, actionNames(tk, fb.Actions(move)))
	assert.Equal(t, []string{"(pick ball1 room-a left)", "(pick ball1 room-a right)"}, actionNames(tk, fb.Actions(pick)))

	left, _ := tk.ObjectByName("left")
	busy, _ := tk.PredicateByName("busy")
	s := tk.InitialState.Apply(nil, []state.Atom{{Predicate: busy, Args: tk.Interner.Of(left)}})
	fb = g.Ground(s)
	assert.Equal(t, []string{"(pick ball1 room-a right)"}, actionNames(tk, fb.Actions(pick)))
}

func TestGround_Partials(t *testing.T) {
	tk, g := compileAndGround(t, tasktest.MoveDefinition("loc-b"), Options{Partial: true}, GrounderOptions{})
	fb := g.Ground(tk.InitialState)
	a, _ := tk.ObjectByName("loc-a")
	b, _ := tk.ObjectByName("loc-b")

	depth0 := fb.Partials(0, 0)
	require.Len(t, depth0, 1)
	assert.Empty(t, depth0[0].Instantiation)

	depth1 := fb.Partials(0, 1)
	require.Len(t, depth1, 1)
	assert.Equal(t, []int{a}, depth1[0].Instantiation)
	assert.Equal(t, task.NoGroup, depth1[0].GroupID)

	depth2 := fb.Partials(0, 2)
	require.Len(t, depth2, 1)
	assert.Equal(t, []int{a, b}, depth2[0].Instantiation)
	assert.Equal(t, actionNames(tk, fb.Actions(0)), []string{"(move loc-a loc-b)"})
}

func TestBindings_PanicsWithoutAnnotation(t *testing.T) {
	tk, g := compileAndGround(t, tasktest.MoveDefinition("loc-b"), Options{}, GrounderOptions{})
	fb := g.Ground(tk.InitialState)
	at, _ := tk.PredicateByName("at")

	defer func() {
		rec := recover()
		err, ok := rec.(error)
		require.True(t, ok, "panic value %v is not an error", rec)
		var ge *GroundingError
		require.True(t, errors.As(err, &ge))
		assert.Equal(t, "at", ge.Rule)
	}()
	fb.Bindings(at)
	t.Fatal("Bindings on a task predicate did not panic")
}

func TestGrounder_Stats(t *testing.T) {
	tk, g := compileAndGround(t, tasktest.BlocksworldDefinition(2), Options{}, GrounderOptions{SemiJoinReduce: true})
	g.Ground(tk.InitialState)
	g.Ground(tk.InitialState)

	st := g.Stats()
	assert.Equal(t, 2, st.Fixpoints)
	assert.Greater(t, st.Evaluations, 0)
	assert.Greater(t, st.Derived, 0)
}
