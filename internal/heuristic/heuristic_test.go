package heuristic

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liftplan/internal/state"
	"liftplan/internal/task"
	"liftplan/internal/task/tasktest"
)

func TestGoalCount(t *testing.T) {
	tk := tasktest.Build(t, tasktest.BlocksworldDefinition(3))
	h, err := New(GoalCount, tk)
	require.NoError(t, err)

	v, err := h.Evaluate(tk.InitialState)
	require.NoError(t, err)
	assert.Equal(t, Value(2), v, "neither on-atom of the tower holds")
	assert.False(t, v.IsInfinite())
}

func TestBlind(t *testing.T) {
	tk := tasktest.Build(t, tasktest.MoveDefinition("loc-b"))
	h, err := New(Blind, tk)
	require.NoError(t, err)

	v, err := h.Evaluate(tk.InitialState)
	require.NoError(t, err)
	assert.Equal(t, Value(0), v)
}

func TestFunc(t *testing.T) {
	boom := errors.New("model unavailable")
	h := Func(func(*state.DBState) (Value, error) { return 0, boom })
	_, err := h.Evaluate(nil)
	assert.ErrorIs(t, err, boom)

	assert.True(t, Infinity.IsInfinite())
	assert.Equal(t, "inf", Infinity.String())
	assert.Equal(t, "3", Value(3).String())
}

func TestParseKind(t *testing.T) {
	for _, k := range []Kind{Blind, GoalCount, Additive, Max, FF} {
		got, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}
	_, err := ParseKind("ff")
	assert.Error(t, err)
	_, err = New(Kind(9), nil)
	assert.Error(t, err)
}

func TestRelaxed_InitialStateValues(t *testing.T) {
	cases := []struct {
		name string
		def  *task.Definition
		want map[Kind]Value
	}{
		{"move", tasktest.MoveDefinition("loc-b"), map[Kind]Value{Additive: 1, Max: 1, FF: 1}},
		{"blocksworld", tasktest.BlocksworldDefinition(3), map[Kind]Value{Additive: 4, Max: 2, FF: 4}},
		{"gripper", tasktest.GripperDefinition(1), map[Kind]Value{Additive: 3, Max: 2, FF: 3}},
		// two balls share the move and need their own pick and drop
		{"gripper-2", tasktest.GripperDefinition(2), map[Kind]Value{Additive: 6, Max: 2, FF: 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tk := tasktest.Build(t, tc.def)
			for kind, want := range tc.want {
				h, err := New(kind, tk)
				require.NoError(t, err)
				v, err := h.Evaluate(tk.InitialState)
				require.NoError(t, err)
				assert.Equal(t, want, v, kind.String())
			}
		})
	}
}

func TestRelaxed_GoalAndDeadEnd(t *testing.T) {
	for _, kind := range []Kind{Additive, Max, FF} {
		t.Run(kind.String(), func(t *testing.T) {
			reached := tasktest.Build(t, tasktest.MoveDefinition("loc-a"))
			h, err := New(kind, reached)
			require.NoError(t, err)
			v, err := h.Evaluate(reached.InitialState)
			require.NoError(t, err)
			assert.Equal(t, Value(0), v)

			unreachable := tasktest.Build(t, tasktest.MoveDefinition("loc-c"))
			h, err = New(kind, unreachable)
			require.NoError(t, err)
			v, err = h.Evaluate(unreachable.InitialState)
			require.NoError(t, err)
			assert.True(t, v.IsInfinite())
		})
	}
}

func TestRelaxed_AfterCompilingNegativePreconditions(t *testing.T) {
	tk := tasktest.Build(t, tasktest.GripperDefinition(1))
	require.Positive(t, tk.RemoveNegativePreconditions())

	h, err := New(Additive, tk)
	require.NoError(t, err)
	v, err := h.Evaluate(tk.InitialState)
	require.NoError(t, err)
	assert.Equal(t, Value(3), v, "the complement of busy holds initially")
}
