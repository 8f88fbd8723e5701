// Package tasktest provides small planning tasks shared by package tests.
package tasktest

import (
	"fmt"
	"testing"

	"liftplan/internal/task"
)

// MoveDefinition is the two-location move domain. goal names the target
// location; "loc-c" exists but is never reachable.
func MoveDefinition(goal string) *task.Definition {
	return &task.Definition{
		Domain:  "move",
		Problem: "two-locations",
		Types:   []task.TypeDef{{Name: "location"}},
		Predicates: []task.PredicateDef{
			{Name: "at", Params: []string{"location"}},
			{Name: "road", Params: []string{"location", "location"}},
		},
		Objects: []task.ObjectDef{
			{Name: "loc-a", Type: "location"},
			{Name: "loc-b", Type: "location"},
			{Name: "loc-c", Type: "location"},
		},
		Actions: []task.ActionDef{{
			Name:         "move",
			Parameters:   []task.ParamDef{{Name: "?from", Type: "location"}, {Name: "?to", Type: "location"}},
			Precondition: []string{"(at ?from)", "(road ?from ?to)"},
			Effect:       []string{"(at ?to)", "(not (at ?from))"},
		}},
		Init: []string{"(at loc-a)", "(road loc-a loc-b)", "(road loc-b loc-a)"},
		Goal: []string{"(at " + goal + ")"},
	}
}

// BareMoveDefinition is the move domain with a single untyped-road
// precondition, exactly move(from, to) with pre at(from).
func BareMoveDefinition(goal string) *task.Definition {
	return &task.Definition{
		Domain:     "move",
		Problem:    "bare",
		Types:      []task.TypeDef{{Name: "location"}},
		Predicates: []task.PredicateDef{{Name: "at", Params: []string{"location"}}},
		Objects:    []task.ObjectDef{{Name: "loc-a", Type: "location"}, {Name: "loc-b", Type: "location"}},
		Actions: []task.ActionDef{{
			Name:         "move",
			Parameters:   []task.ParamDef{{Name: "?from", Type: "location"}, {Name: "?to", Type: "location"}},
			Precondition: []string{"(at ?from)"},
			Effect:       []string{"(at ?to)", "(not (at ?from))"},
		}},
		Init: []string{"(at loc-a)"},
		Goal: []string{"(at " + goal + ")"},
	}
}

// BlocksworldDefinition is the four-operator blocksworld with n blocks
// initially on the table, goal a tower b1 on b2 on ... on bn.
func BlocksworldDefinition(n int) *task.Definition {
	def := &task.Definition{
		Domain:  "blocksworld",
		Problem: fmt.Sprintf("tower-%d", n),
		Types:   []task.TypeDef{{Name: "block"}},
		Predicates: []task.PredicateDef{
			{Name: "clear", Params: []string{"block"}},
			{Name: "on-table", Params: []string{"block"}},
			{Name: "arm-empty"},
			{Name: "holding", Params: []string{"block"}},
			{Name: "on", Params: []string{"block", "block"}},
		},
		Actions: []task.ActionDef{
			{
				Name:         "pickup",
				Parameters:   []task.ParamDef{{Name: "?ob", Type: "block"}},
				Precondition: []string{"(clear ?ob)", "(on-table ?ob)", "(arm-empty)"},
				Effect:       []string{"(holding ?ob)", "(not (clear ?ob))", "(not (on-table ?ob))", "(not (arm-empty))"},
			},
			{
				Name:         "putdown",
				Parameters:   []task.ParamDef{{Name: "?ob", Type: "block"}},
				Precondition: []string{"(holding ?ob)"},
				Effect:       []string{"(clear ?ob)", "(arm-empty)", "(on-table ?ob)", "(not (holding ?ob))"},
			},
			{
				Name:         "stack",
				Parameters:   []task.ParamDef{{Name: "?ob", Type: "block"}, {Name: "?underob", Type: "block"}},
				Precondition: []string{"(clear ?underob)", "(holding ?ob)"},
				Effect:       []string{"(arm-empty)", "(clear ?ob)", "(on ?ob ?underob)", "(not (clear ?underob))", "(not (holding ?ob))"},
			},
			{
				Name:         "unstack",
				Parameters:   []task.ParamDef{{Name: "?ob", Type: "block"}, {Name: "?underob", Type: "block"}},
				Precondition: []string{"(on ?ob ?underob)", "(clear ?ob)", "(arm-empty)"},
				Effect:       []string{"(holding ?ob)", "(clear ?underob)", "(not (on ?ob ?underob))", "(not (clear ?ob))", "(not (arm-empty))"},
			},
		},
		Init: []string{"(arm-empty)"},
	}
	for i := 1; i <= n; i++ {
		b := fmt.Sprintf("b%d", i)
		def.Objects = append(def.Objects, task.ObjectDef{Name: b, Type: "block"})
		def.Init = append(def.Init, "(clear "+b+")", "(on-table "+b+")")
	}
	for i := 1; i < n; i++ {
		def.Goal = append(def.Goal, fmt.Sprintf("(on b%d b%d)", i, i+1))
	}
	if n == 1 {
		def.Goal = []string{"(holding b1)"}
	}
	return def
}

// GripperDefinition uses a type hierarchy, a constant, negative
// preconditions and an inequality. Balls start in room-a and must reach
// room-b.
func GripperDefinition(balls int) *task.Definition {
	def := &task.Definition{
		Domain:  "gripper-neg",
		Problem: fmt.Sprintf("balls-%d", balls),
		Types: []task.TypeDef{
			{Name: "thing"},
			{Name: "ball", Parent: "thing"},
			{Name: "gripper", Parent: "thing"},
			{Name: "room"},
		},
		Predicates: []task.PredicateDef{
			{Name: "at-robby", Params: []string{"room"}},
			{Name: "at", Params: []string{"ball", "room"}},
			{Name: "carry", Params: []string{"ball", "gripper"}},
			{Name: "busy", Params: []string{"gripper"}},
		},
		Objects: []task.ObjectDef{
			{Name: "room-a", Type: "room"},
			{Name: "room-b", Type: "room"},
			{Name: "left", Type: "gripper"},
			{Name: "right", Type: "gripper"},
		},
		Actions: []task.ActionDef{
			{
				Name:         "move",
				Parameters:   []task.ParamDef{{Name: "?from", Type: "room"}, {Name: "?to", Type: "room"}},
				Precondition: []string{"(at-robby ?from)", "(not (= ?from ?to))"},
				Effect:       []string{"(at-robby ?to)", "(not (at-robby ?from))"},
			},
			{
				Name:         "pick",
				Parameters:   []task.ParamDef{{Name: "?b", Type: "ball"}, {Name: "?r", Type: "room"}, {Name: "?g", Type: "gripper"}},
				Precondition: []string{"(at ?b ?r)", "(at-robby ?r)", "(not (busy ?g))"},
				Effect:       []string{"(carry ?b ?g)", "(busy ?g)", "(not (at ?b ?r))"},
			},
			{
				Name:         "drop",
				Parameters:   []task.ParamDef{{Name: "?b", Type: "ball"}, {Name: "?r", Type: "room"}, {Name: "?g", Type: "gripper"}},
				Precondition: []string{"(carry ?b ?g)", "(at-robby ?r)"},
				Effect:       []string{"(at ?b ?r)", "(not (busy ?g))", "(not (carry ?b ?g))"},
			},
			{
				Name:         "drop-left-in-b",
				Parameters:   []task.ParamDef{{Name: "?b", Type: "ball"}},
				Precondition: []string{"(carry ?b left)", "(at-robby room-b)"},
				Effect:       []string{"(at ?b room-b)", "(not (busy left))", "(not (carry ?b left))"},
			},
		},
		Init: []string{"(at-robby room-a)"},
	}
	for i := 1; i <= balls; i++ {
		b := fmt.Sprintf("ball%d", i)
		def.Objects = append(def.Objects, task.ObjectDef{Name: b, Type: "ball"})
		def.Init = append(def.Init, "(at "+b+" room-a)")
		def.Goal = append(def.Goal, "(at "+b+" room-b)")
	}
	return def
}

// Build constructs a task from def or fails the test.
func Build(tb testing.TB, def *task.Definition) *task.Task {
	tb.Helper()
	tk, err := task.FromDefinition(def)
	if err != nil {
		tb.Fatalf("FromDefinition(%s) error = %v", def.Domain, err)
	}
	return tk
}
