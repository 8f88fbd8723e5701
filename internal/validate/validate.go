// Package validate replays plans against a task.
package validate

import (
	"fmt"

	"liftplan/internal/plan"
	"liftplan/internal/successor"
	"liftplan/internal/task"
)

// Reason explains why a plan is invalid.
type Reason int

const (
	ReasonUnknownAction Reason = iota + 1
	ReasonNotApplicable
	ReasonGoalNotReached
)

func (r Reason) String() string {
	switch r {
	case ReasonUnknownAction:
		return "unknown action"
	case ReasonNotApplicable:
		return "not applicable"
	case ReasonGoalNotReached:
		return "goal not reached"
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Result is either Valid or Invalid.
type Result interface {
	OK() bool
	String() string
}

// Valid is the result of a plan that reaches the goal.
type Valid struct {
	Steps int
}

func (Valid) OK() bool { return true }

func (v Valid) String() string { return fmt.Sprintf("valid plan with %d steps", v.Steps) }

// Invalid identifies the first failing step. Step is zero-based; a plan
// that ends before the goal holds fails at Step == len(plan).
type Invalid struct {
	Step   int
	Reason Reason
	Detail string
}

func (Invalid) OK() bool { return false }

func (i Invalid) String() string {
	if i.Detail == "" {
		return fmt.Sprintf("invalid at step %d: %s", i.Step, i.Reason)
	}
	return fmt.Sprintf("invalid at step %d: %s: %s", i.Step, i.Reason, i.Detail)
}

// Validate replays p from the initial state of tk. Each step must be
// among the actions gen reports as applicable before it is applied, and
// the goal must hold after the last step.
func Validate(p plan.Plan, gen successor.Generator, tk *task.Task) Result {
	s := tk.InitialState
	for i, step := range p.Steps {
		a, err := tk.ActionFromNames(step.Action, step.Params)
		if err != nil {
			return Invalid{Step: i, Reason: ReasonUnknownAction, Detail: err.Error()}
		}
		schema := &tk.Schemas[a.Schema]
		applicable := false
		for _, cand := range gen.ApplicableActions(s, schema) {
			if cand == a {
				applicable = true
				break
			}
		}
		if !applicable {
			return Invalid{Step: i, Reason: ReasonNotApplicable, Detail: step.String()}
		}
		s = gen.GenerateSuccessor(s, schema, a)
	}
	if n := tk.Goal.Unsatisfied(s); n > 0 {
		return Invalid{Step: len(p.Steps), Reason: ReasonGoalNotReached, Detail: fmt.Sprintf("%d goal literals unsatisfied", n)}
	}
	return Valid{Steps: len(p.Steps)}
}
