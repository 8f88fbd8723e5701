package datalog

import (
	"fmt"
	"strings"
)

// JoinOrderer decides the order in which the positive body atoms of a
// join rule are matched. Orderers are heuristics; any permutation yields
// the same facts.
type JoinOrderer interface {
	Name() string
	// Order returns a permutation of the body positions of r. If first is
	// not negative it must lead the permutation. size reports the number
	// of candidate tuples for a body position.
	Order(r *JoinRule, first int, size func(pos int) int) []int
}

// OrdererByName resolves a config name to an orderer.
func OrdererByName(name string) (JoinOrderer, error) {
	switch strings.ToLower(name) {
	case "", "cardinality":
		return CardinalityOrderer{}, nil
	case "fast-downward", "fastdownward":
		return FastDownwardOrderer{}, nil
	case "helmert09":
		return Helmert09Orderer{}, nil
	}
	return nil, fmt.Errorf("unknown join order %q", name)
}

// CardinalityOrderer starts from the smallest relation and keeps
// extending with the smallest atom connected to the bound variables,
// falling back to the smallest unconnected atom.
type CardinalityOrderer struct{}

func (CardinalityOrderer) Name() string { return "cardinality" }

func (CardinalityOrderer) Order(r *JoinRule, first int, size func(int) int) []int {
	return greedyOrder(r, first, func(bound varSet, _ []int, cand int) [3]int {
		connected := 1
		for _, v := range r.body[cand].Variables() {
			if bound.has(v) {
				connected = 0
				break
			}
		}
		if len(bound) == 0 {
			connected = 0
		}
		return [3]int{connected, size(cand), 0}
	})
}

// FastDownwardOrderer scores the next atom by (min-n, max-n, -n) where n
// is the number of variables it shares with the atoms joined so far.
type FastDownwardOrderer struct{}

func (FastDownwardOrderer) Name() string { return "fast-downward" }

func (FastDownwardOrderer) Order(r *JoinRule, first int, _ func(int) int) []int {
	return greedyOrder(r, first, func(bound varSet, _ []int, cand int) [3]int {
		vars := r.body[cand].Variables()
		n := 0
		for _, v := range vars {
			if bound.has(v) {
				n++
			}
		}
		lo, hi := minMax(len(bound), len(vars))
		return [3]int{lo - n, hi - n, -n}
	})
}

// Helmert09Orderer scores the next atom by (n-max, n-min, n) where n
// counts the joined variables still needed elsewhere in the rule.
type Helmert09Orderer struct{}

func (Helmert09Orderer) Name() string { return "helmert09" }

func (Helmert09Orderer) Order(r *JoinRule, first int, _ func(int) int) []int {
	return greedyOrder(r, first, func(bound varSet, joined []int, cand int) [3]int {
		elsewhere := varSet{}
		elsewhere.add(r.head.Variables()...)
		for _, a := range r.negated {
			elsewhere.add(a.Variables()...)
		}
		for _, c := range r.conditions {
			for _, t := range []Term{c.Left, c.Right} {
				if t.variable {
					elsewhere.add(t.index)
				}
			}
		}
		for i, a := range r.body {
			if i == cand || contains(joined, i) {
				continue
			}
			elsewhere.add(a.Variables()...)
		}
		union := varSet{}
		for v := range bound {
			union.add(v)
		}
		vars := r.body[cand].Variables()
		union.add(vars...)
		n := 0
		for v := range union {
			if elsewhere.has(v) {
				n++
			}
		}
		lo, hi := minMax(len(bound), len(vars))
		return [3]int{n - hi, n - lo, n}
	})
}

type costFunc func(bound varSet, joined []int, cand int) [3]int

// greedyOrder repeatedly appends the cheapest remaining atom. Ties go to
// the lower body position.
func greedyOrder(r *JoinRule, first int, cost costFunc) []int {
	n := len(r.body)
	order := make([]int, 0, n)
	used := make([]bool, n)
	bound := varSet{}

	take := func(i int) {
		order = append(order, i)
		used[i] = true
		bound.add(r.body[i].Variables()...)
	}
	if first >= 0 {
		take(first)
	}
	for len(order) < n {
		best := -1
		var bestCost [3]int
		for i := 0; i < n; i++ {
			if used[i] {
				continue
			}
			c := cost(bound, order, i)
			if best < 0 || less(c, bestCost) {
				best, bestCost = i, c
			}
		}
		take(best)
	}
	return order
}

func less(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func minMax(a, b int) (int, int) {
	if a < b {
		return a, b
	}
	return b, a
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}
