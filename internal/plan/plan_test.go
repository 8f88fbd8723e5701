package plan

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liftplan/internal/task"
	"liftplan/internal/task/tasktest"
)

func TestString(t *testing.T) {
	p := Plan{Steps: []Step{
		{Action: "move", Params: []string{"loc-a", "loc-b"}},
		{Action: "noop"},
	}}
	assert.Equal(t, "(move loc-a loc-b)\n(noop)\n", p.String())
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, "", Plan{}.String())
}

func TestParse(t *testing.T) {
	text := `; found by greedy-best-first
(move loc-a loc-b)

(pick ball1 room-a left)
; cost = 2 (unit cost)
`
	p, err := Parse(text)
	require.NoError(t, err)
	want := Plan{Steps: []Step{
		{Action: "move", Params: []string{"loc-a", "loc-b"}},
		{Action: "pick", Params: []string{"ball1", "room-a", "left"}},
	}}
	if diff := cmp.Diff(want, p); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}

	again, err := Parse(p.String())
	require.NoError(t, err)
	assert.Equal(t, p, again)
}

func TestParse_Errors(t *testing.T) {
	for _, text := range []string{"move a b", "()", "(move a b"} {
		_, err := Parse(text)
		assert.Error(t, err, text)
	}
}

func TestFromActions(t *testing.T) {
	tk := tasktest.Build(t, tasktest.MoveDefinition("loc-b"))
	there, err := tk.ActionFromNames("move", []string{"loc-a", "loc-b"})
	require.NoError(t, err)
	back, err := tk.ActionFromNames("move", []string{"loc-b", "loc-a"})
	require.NoError(t, err)

	p := FromActions(tk, []task.Action{there, back})
	assert.Equal(t, "(move loc-a loc-b)\n(move loc-b loc-a)\n", p.String())
	assert.Equal(t, 0, FromActions(tk, nil).Len())
}
