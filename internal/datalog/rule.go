package datalog

import (
	"fmt"
	"strings"

	"liftplan/internal/tuple"
)

// AnnotationKind says what a derived fact of a rule head means.
type AnnotationKind int

const (
	// AnnotationNone marks intermediate rules.
	AnnotationNone AnnotationKind = iota
	// AnnotationAction marks rules whose head is an applicable action.
	AnnotationAction
	// AnnotationPartial marks rules whose head is a partial instantiation
	// of a given depth.
	AnnotationPartial
)

// Annotation recovers schema parameter bindings from head tuples.
// Params[i] is the head position holding parameter i.
type Annotation struct {
	Kind   AnnotationKind
	Schema int
	Params []int
}

func (a Annotation) String() string {
	switch a.Kind {
	case AnnotationAction:
		return fmt.Sprintf("action(%d)%v", a.Schema, a.Params)
	case AnnotationPartial:
		return fmt.Sprintf("partial(%d)%v", a.Schema, a.Params)
	}
	return "none"
}

// Binding is a decoded action or partial action binding. Values[i] is the
// object bound to parameter i.
type Binding struct {
	Schema int
	Values []int
}

// Decode maps a head tuple of r back to the schema binding it encodes.
// It has no side effects.
func Decode(r Rule, t tuple.SmallTuple) (Binding, error) {
	ann := r.Annotation()
	if ann.Kind == AnnotationNone {
		return Binding{}, errNoAnnotation
	}
	if t.Len() != len(r.Head().Terms) {
		return Binding{}, fmt.Errorf("tuple arity %d does not match head arity %d", t.Len(), len(r.Head().Terms))
	}
	vals := make([]int, len(ann.Params))
	for i, pos := range ann.Params {
		if pos < 0 || pos >= t.Len() {
			return Binding{}, fmt.Errorf("parameter %d maps to head position %d outside the tuple", i, pos)
		}
		vals[i] = t.At(pos)
	}
	return Binding{Schema: ann.Schema, Values: vals}, nil
}

// Rule is either a *JoinRule or a *ProjectRule.
type Rule interface {
	Head() Atom
	// Body returns the positive body atoms.
	Body() []Atom
	Negated() []Atom
	Conditions() []Condition
	Annotation() Annotation
	// Schema is the action schema the rule was compiled from, or -1.
	Schema() int
	// Weight is the cost added by one application of the rule in a
	// relaxed exploration. The grounder ignores it.
	Weight() int
	String() string

	setHead(Atom)
	setAnnotation(Annotation)
	setWeight(int)
}

type ruleCore struct {
	head       Atom
	annotation Annotation
	schema     int
	weight     int
}

func (c *ruleCore) Head() Atom                 { return c.head }
func (c *ruleCore) Annotation() Annotation     { return c.annotation }
func (c *ruleCore) Schema() int                { return c.schema }
func (c *ruleCore) Weight() int                { return c.weight }
func (c *ruleCore) setWeight(w int)            { c.weight = w }
func (c *ruleCore) setHead(h Atom)             { c.head = h }
func (c *ruleCore) setAnnotation(a Annotation) { c.annotation = a }

// JoinRule derives its head by joining one or more positive atoms on
// shared variables, then filtering by conditions and absent negated atoms.
type JoinRule struct {
	ruleCore
	body       []Atom
	negated    []Atom
	conditions []Condition

	// acyclic is set when the body hypergraph admits a join tree; tree
	// holds its GYO ear-removal order.
	acyclic bool
	tree    []joinEdge
}

// NewJoinRule builds a join rule.
func NewJoinRule(head Atom, body, negated []Atom, conds []Condition, ann Annotation, schema int) *JoinRule {
	r := &JoinRule{
		ruleCore:   ruleCore{head: head, annotation: ann, schema: schema},
		body:       body,
		negated:    negated,
		conditions: conds,
	}
	r.tree, r.acyclic = gyo(body)
	return r
}

func (r *JoinRule) Body() []Atom            { return r.body }
func (r *JoinRule) Negated() []Atom         { return r.negated }
func (r *JoinRule) Conditions() []Condition { return r.conditions }

// Acyclic reports whether the body hypergraph is alpha-acyclic.
func (r *JoinRule) Acyclic() bool { return r.acyclic }

func (r *JoinRule) String() string {
	parts := make([]string, 0, len(r.body)+len(r.negated)+len(r.conditions))
	for _, a := range r.body {
		parts = append(parts, a.String())
	}
	for _, a := range r.negated {
		parts = append(parts, "!"+a.String())
	}
	for _, c := range r.conditions {
		parts = append(parts, c.String())
	}
	return fmt.Sprintf("%s <- %s [%s]", r.head, strings.Join(parts, ", "), r.annotation)
}

// ProjectRule derives its head from a single body atom by projection.
type ProjectRule struct {
	ruleCore
	body Atom
}

// NewProjectRule builds a projection rule.
func NewProjectRule(head, body Atom, ann Annotation, schema int) *ProjectRule {
	return &ProjectRule{ruleCore: ruleCore{head: head, annotation: ann, schema: schema}, body: body}
}

func (r *ProjectRule) Body() []Atom            { return []Atom{r.body} }
func (r *ProjectRule) Negated() []Atom         { return nil }
func (r *ProjectRule) Conditions() []Condition { return nil }

func (r *ProjectRule) String() string {
	return fmt.Sprintf("%s <- %s [%s]", r.head, r.body, r.annotation)
}

// numVariables returns one more than the largest variable index in r.
func numVariables(r Rule) int {
	n := 0
	visit := func(a Atom) {
		for _, t := range a.Terms {
			if t.variable && t.index+1 > n {
				n = t.index + 1
			}
		}
	}
	visit(r.Head())
	for _, a := range r.Body() {
		visit(a)
	}
	for _, a := range r.Negated() {
		visit(a)
	}
	for _, c := range r.Conditions() {
		for _, t := range []Term{c.Left, c.Right} {
			if t.variable && t.index+1 > n {
				n = t.index + 1
			}
		}
	}
	return n
}

// checkSafety reports the first variable of the head, a negated atom or
// a condition that no positive body atom binds.
func checkSafety(r Rule) error {
	bound := varSet{}
	for _, a := range r.Body() {
		bound.add(a.Variables()...)
	}
	for _, v := range r.Head().Variables() {
		if !bound.has(v) {
			return fmt.Errorf("dangling head variable ?%d", v)
		}
	}
	for _, a := range r.Negated() {
		for _, v := range a.Variables() {
			if !bound.has(v) {
				return fmt.Errorf("negated atom %s uses unbound variable ?%d", a, v)
			}
		}
	}
	for _, c := range r.Conditions() {
		for _, t := range []Term{c.Left, c.Right} {
			if t.variable && !bound.has(t.index) {
				return fmt.Errorf("condition %s uses unbound variable ?%d", c, t.index)
			}
		}
	}
	return nil
}
