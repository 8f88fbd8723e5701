package task

import (
	"fmt"
	"strings"
)

type literal struct {
	negated   bool
	predicate string
	args      []string
}

// parseLiteral reads "(p a b)", "p a b", "(not (p a))" or "not (p a)".
func parseLiteral(src string) (literal, error) {
	toks := tokenize(src)
	if len(toks) == 0 {
		return literal{}, fmt.Errorf("empty atom")
	}
	if toks[0] != "(" {
		toks = append(append([]string{"("}, toks...), ")")
	}

	pos := 0
	lit, err := parseSexpr(toks, &pos)
	if err != nil {
		return literal{}, fmt.Errorf("%q: %w", src, err)
	}
	if pos != len(toks) {
		return literal{}, fmt.Errorf("%q: trailing tokens", src)
	}
	return lit, nil
}

func parseSexpr(toks []string, pos *int) (literal, error) {
	if *pos >= len(toks) || toks[*pos] != "(" {
		return literal{}, fmt.Errorf("expected '('")
	}
	*pos++
	if *pos >= len(toks) || toks[*pos] == "(" || toks[*pos] == ")" {
		return literal{}, fmt.Errorf("expected predicate name")
	}
	head := toks[*pos]
	*pos++

	if strings.EqualFold(head, "not") {
		if *pos < len(toks) && toks[*pos] != "(" {
			// "(not p a)" shorthand
			inner := literal{predicate: toks[*pos]}
			*pos++
			for *pos < len(toks) && toks[*pos] != ")" {
				inner.args = append(inner.args, toks[*pos])
				*pos++
			}
			if *pos >= len(toks) {
				return literal{}, fmt.Errorf("unbalanced parentheses")
			}
			*pos++
			inner.negated = true
			return inner, nil
		}
		inner, err := parseSexpr(toks, pos)
		if err != nil {
			return literal{}, err
		}
		if inner.negated {
			return literal{}, fmt.Errorf("double negation")
		}
		if *pos >= len(toks) || toks[*pos] != ")" {
			return literal{}, fmt.Errorf("unbalanced parentheses")
		}
		*pos++
		inner.negated = true
		return inner, nil
	}

	lit := literal{predicate: head}
	for *pos < len(toks) && toks[*pos] != ")" {
		if toks[*pos] == "(" {
			return literal{}, fmt.Errorf("nested term in %s", head)
		}
		lit.args = append(lit.args, toks[*pos])
		*pos++
	}
	if *pos >= len(toks) {
		return literal{}, fmt.Errorf("unbalanced parentheses")
	}
	*pos++
	return lit, nil
}

func tokenize(src string) []string {
	src = strings.ReplaceAll(src, "(", " ( ")
	src = strings.ReplaceAll(src, ")", " ) ")
	return strings.Fields(src)
}
