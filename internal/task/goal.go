package task

import "liftplan/internal/state"

// GoalAtom is a ground goal condition. Negated atoms must be false.
type GoalAtom struct {
	Atom    state.Atom
	Negated bool
}

// Goal is a conjunction of ground literals.
type Goal struct {
	Atoms []GoalAtom
}

// Satisfied reports whether every goal literal holds in s.
func (g Goal) Satisfied(s *state.DBState) bool {
	return g.Unsatisfied(s) == 0
}

// Unsatisfied counts the goal literals violated in s.
func (g Goal) Unsatisfied(s *state.DBState) int {
	n := 0
	for _, ga := range g.Atoms {
		if s.Holds(ga.Atom) == ga.Negated {
			n++
		}
	}
	return n
}
