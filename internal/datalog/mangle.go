package datalog

import (
	"fmt"
	"strings"
)

// MangleName returns the Mangle predicate symbol used for pred.
func (p *Program) MangleName(pred int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "p%d_", pred)
	for _, r := range strings.ToLower(p.Predicates[pred].Name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// MangleArity is the arity of pred in Mangle source. Nullary predicates
// carry a single dummy argument 0.
func (p *Program) MangleArity(pred int) int {
	if p.Predicates[pred].Arity == 0 {
		return 1
	}
	return p.Predicates[pred].Arity
}

// MangleSource renders the program as Mangle source: a declaration per
// predicate, the static facts, and one clause per rule. State facts are
// added to the store by the caller.
func (p *Program) MangleSource() string {
	var b strings.Builder
	for pred := range p.Predicates {
		vars := make([]string, p.MangleArity(pred))
		for i := range vars {
			vars[i] = fmt.Sprintf("X%d", i)
		}
		fmt.Fprintf(&b, "Decl %s(%s).\n", p.MangleName(pred), strings.Join(vars, ", "))
	}
	b.WriteByte('\n')

	for pred := range p.Predicates {
		for _, t := range p.StaticFacts[pred] {
			args := make([]string, t.Len())
			for i := range args {
				args[i] = fmt.Sprint(t.At(i))
			}
			if len(args) == 0 {
				args = []string{"0"}
			}
			fmt.Fprintf(&b, "%s(%s).\n", p.MangleName(pred), strings.Join(args, ", "))
		}
	}
	b.WriteByte('\n')

	for _, stratum := range p.Strata {
		for _, ri := range stratum {
			b.WriteString(p.mangleClause(p.Rules[ri]))
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (p *Program) mangleAtom(a Atom) string {
	if len(a.Terms) == 0 {
		return p.MangleName(a.Predicate) + "(0)"
	}
	args := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		args[i] = mangleTerm(t)
	}
	return fmt.Sprintf("%s(%s)", p.MangleName(a.Predicate), strings.Join(args, ", "))
}

func mangleTerm(t Term) string {
	if t.variable {
		return fmt.Sprintf("X%d", t.index)
	}
	return fmt.Sprint(t.index)
}

func (p *Program) mangleClause(r Rule) string {
	var parts []string
	for _, a := range r.Body() {
		parts = append(parts, p.mangleAtom(a))
	}
	for _, a := range r.Negated() {
		parts = append(parts, "!"+p.mangleAtom(a))
	}
	for _, c := range r.Conditions() {
		op := "!="
		if c.Equal {
			op = "="
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", mangleTerm(c.Left), op, mangleTerm(c.Right)))
	}
	if len(parts) == 0 {
		return p.mangleAtom(r.Head()) + "."
	}
	return fmt.Sprintf("%s :- %s.", p.mangleAtom(r.Head()), strings.Join(parts, ", "))
}
