// Package datalog compiles action schemas into Datalog programs and
// evaluates them against database states with a weighted semi-naive
// grounder.
package datalog

import (
	"fmt"
	"strings"
)

// Term is either a concrete object or a typed variable.
type Term struct {
	variable bool
	index    int
	typ      int
}

// Object returns the term for object i.
func Object(i int) Term { return Term{index: i} }

// Variable returns variable i ranging over objects of type typ.
func Variable(i, typ int) Term { return Term{variable: true, index: i, typ: typ} }

// IsVariable reports whether t is a variable.
func (t Term) IsVariable() bool { return t.variable }

// IsObject reports whether t is an object constant.
func (t Term) IsObject() bool { return !t.variable }

// Index is the object index or the variable index.
func (t Term) Index() int { return t.index }

// Type is the variable type, meaningless for objects.
func (t Term) Type() int { return t.typ }

func (t Term) String() string {
	if t.variable {
		return fmt.Sprintf("?%d", t.index)
	}
	return fmt.Sprint(t.index)
}

// Atom is a predicate applied to terms.
type Atom struct {
	Predicate  int
	Terms      []Term
	Artificial bool
}

// Variables returns the distinct variable indices of a in order of first
// occurrence.
func (a Atom) Variables() []int {
	var out []int
	for _, t := range a.Terms {
		if !t.variable {
			continue
		}
		dup := false
		for _, v := range out {
			if v == t.index {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, t.index)
		}
	}
	return out
}

// HasObject reports whether a mentions a constant.
func (a Atom) HasObject() bool {
	for _, t := range a.Terms {
		if !t.variable {
			return true
		}
	}
	return false
}

// SharesVariable reports whether a and b have a variable in common.
func (a Atom) SharesVariable(b Atom) bool {
	for _, x := range a.Terms {
		if !x.variable {
			continue
		}
		for _, y := range b.Terms {
			if y.variable && y.index == x.index {
				return true
			}
		}
	}
	return false
}

func (a Atom) equal(b Atom) bool {
	if a.Predicate != b.Predicate || len(a.Terms) != len(b.Terms) {
		return false
	}
	for i := range a.Terms {
		if a.Terms[i].variable != b.Terms[i].variable || a.Terms[i].index != b.Terms[i].index {
			return false
		}
	}
	return true
}

func (a Atom) String() string {
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%d(%s)", a.Predicate, strings.Join(parts, ", "))
}

// Condition compares two terms. Equal conditions require identical
// objects, the others require distinct ones.
type Condition struct {
	Left, Right Term
	Equal       bool
}

func (c Condition) String() string {
	op := "!="
	if c.Equal {
		op = "="
	}
	return c.Left.String() + " " + op + " " + c.Right.String()
}

// varSet is a small set of variable indices.
type varSet map[int]struct{}

func (s varSet) add(vs ...int) {
	for _, v := range vs {
		s[v] = struct{}{}
	}
}

func (s varSet) has(v int) bool {
	_, ok := s[v]
	return ok
}
