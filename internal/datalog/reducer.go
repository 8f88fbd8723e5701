package datalog

import (
	"encoding/binary"

	"liftplan/internal/tuple"
)

// joinEdge connects a body atom to the atom that absorbed it during GYO
// reduction.
type joinEdge struct {
	child, parent int
	shared        []int
}

// gyo runs the Graham/Yu-Ozsoyoglu reduction over the variable
// hypergraph of body. It returns the ear-removal order and whether the
// hypergraph is alpha-acyclic.
func gyo(body []Atom) ([]joinEdge, bool) {
	if len(body) < 2 {
		return nil, true
	}

	orig := make([]varSet, len(body))
	edges := make([]varSet, len(body))
	for i, a := range body {
		orig[i] = varSet{}
		orig[i].add(a.Variables()...)
		edges[i] = varSet{}
		edges[i].add(a.Variables()...)
	}
	alive := make([]bool, len(body))
	for i := range alive {
		alive[i] = true
	}

	var tree []joinEdge
	for changed := true; changed; {
		changed = false

		// isolated variables
		count := map[int]int{}
		for i, e := range edges {
			if !alive[i] {
				continue
			}
			for v := range e {
				count[v]++
			}
		}
		for i, e := range edges {
			if !alive[i] {
				continue
			}
			for v := range e {
				if count[v] == 1 {
					delete(e, v)
					changed = true
				}
			}
		}

		// ears contained in another edge
		for i := range edges {
			if !alive[i] {
				continue
			}
			for j := range edges {
				if i == j || !alive[j] || !subset(edges[i], edges[j]) {
					continue
				}
				alive[i] = false
				tree = append(tree, joinEdge{child: i, parent: j, shared: intersect(orig[i], orig[j], body[i])})
				changed = true
				break
			}
		}
	}

	remaining := 0
	for _, ok := range alive {
		if ok {
			remaining++
		}
	}
	return tree, remaining <= 1
}

func subset(a, b varSet) bool {
	for v := range a {
		if !b.has(v) {
			return false
		}
	}
	return true
}

// intersect returns the variables of a also in b, ordered as in atom.
func intersect(a, b varSet, atom Atom) []int {
	var out []int
	for _, v := range atom.Variables() {
		if a.has(v) && b.has(v) {
			out = append(out, v)
		}
	}
	return out
}

func position(a Atom, v int) int {
	for i, t := range a.Terms {
		if t.variable && t.index == v {
			return i
		}
	}
	return -1
}

func appendKey(buf []byte, v int) []byte {
	return binary.AppendVarint(buf, int64(v))
}

// semiJoin keeps the tuples of left that agree with at least one tuple
// of right on the shared variables.
func semiJoin(left []tuple.SmallTuple, la Atom, right []tuple.SmallTuple, ra Atom, shared []int) []tuple.SmallTuple {
	if len(shared) == 0 {
		if len(right) == 0 {
			return nil
		}
		return left
	}
	lpos := make([]int, len(shared))
	rpos := make([]int, len(shared))
	for i, v := range shared {
		lpos[i] = position(la, v)
		rpos[i] = position(ra, v)
	}

	keys := make(map[string]struct{}, len(right))
	var buf []byte
	for _, t := range right {
		buf = buf[:0]
		for _, p := range rpos {
			buf = appendKey(buf, t.At(p))
		}
		keys[string(buf)] = struct{}{}
	}

	out := left[:0:0]
	for _, t := range left {
		buf = buf[:0]
		for _, p := range lpos {
			buf = appendKey(buf, t.At(p))
		}
		if _, ok := keys[string(buf)]; ok {
			out = append(out, t)
		}
	}
	return out
}

// fullReduce applies the upward and downward semi-join passes of the
// join tree to the candidate tuples of each body atom. After it, every
// remaining tuple takes part in at least one full join result.
func fullReduce(r *JoinRule, cands [][]tuple.SmallTuple) [][]tuple.SmallTuple {
	if !r.acyclic {
		return cands
	}
	for _, e := range r.tree {
		cands[e.parent] = semiJoin(cands[e.parent], r.body[e.parent], cands[e.child], r.body[e.child], e.shared)
	}
	for i := len(r.tree) - 1; i >= 0; i-- {
		e := r.tree[i]
		cands[e.child] = semiJoin(cands[e.child], r.body[e.child], cands[e.parent], r.body[e.parent], e.shared)
	}
	return cands
}
