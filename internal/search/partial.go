package search

import (
	"context"
	"encoding/binary"

	"liftplan/internal/heuristic"
	"liftplan/internal/state"
	"liftplan/internal/successor"
	"liftplan/internal/task"
)

// partialGreedyBestFirst is greedy best-first search over pairs of a state
// and a pending partial action. Choosing a schema and binding each of its
// parameters are transitions of their own; binding the last parameter
// applies the action. A pair is scored on its state after the effects
// its bound prefix already guarantees. The goal is tested when a state
// without a pending action is popped. Nodes are never reopened.
type partialGreedyBestFirst struct {
	core
	h     heuristic.Heuristic
	nodes []partialNode
	seen  map[string]struct{}
}

// partialNode is a registered state with the partial action chosen in it.
// A negative schema means no action is pending.
type partialNode struct {
	origin  StateID
	partial task.PartialAction
}

func (n partialNode) pending() bool { return n.partial.Schema >= 0 }

var noPartial = task.PartialAction{Schema: -1, GroupID: task.NoGroup}

func (e *partialGreedyBestFirst) Search(ctx context.Context, tk *task.Task) (Result, error) {
	e.reset()
	e.nodes = e.nodes[:0]
	e.seen = map[string]struct{}{}

	root, node, _ := e.space.InsertOrGet(tk.InitialState)
	hv, err := e.evaluate(e.h, tk.InitialState)
	if err != nil {
		return nil, err
	}
	node.Open(0, NoState, task.Action{})
	if hv.IsInfinite() {
		e.stats.DeadEnds++
		node.Close()
		return e.fail(FailureExhausted, 0), nil
	}

	open := &bestFirst[int]{}
	open.push(e.add(root, noPartial), hv)
	for {
		if err := e.cancelled(ctx); err != nil {
			return nil, err
		}
		idx, ok := open.pop()
		if !ok {
			return e.fail(FailureExhausted, 0), nil
		}
		n := e.nodes[idx]
		s := e.space.State(n.origin)
		if !n.pending() && tk.Goal.Satisfied(s) {
			return e.succeed(tk, n.origin), nil
		}
		if e.limitReached() {
			return e.fail(FailureExpansionLimit, open.len()+1), nil
		}

		e.stats.Expanded++
		if n.pending() {
			err = e.expandPartial(tk, n, s, open)
		} else {
			e.space.Node(n.origin).Close()
			err = e.expandState(tk, n.origin, s, open)
		}
		if err != nil {
			return nil, err
		}
		e.progress()
	}
}

// expandState starts one partial action per schema. Nullary schemas
// have nothing to bind and are applied directly.
func (e *partialGreedyBestFirst) expandState(tk *task.Task, id StateID, s *state.DBState, open *bestFirst[int]) error {
	for i := range tk.Schemas {
		p := task.NewPartial(i)
		if !p.IsComplete(tk) {
			if err := e.openPartial(tk, id, s, p, open); err != nil {
				return err
			}
			continue
		}
		for _, a := range e.gen.ApplicableActions(s, &tk.Schemas[i]) {
			if err := e.apply(tk, id, s, a, open); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *partialGreedyBestFirst) expandPartial(tk *task.Task, n partialNode, s *state.DBState, open *bestFirst[int]) error {
	for _, next := range successor.Extend(e.gen, n.partial, s) {
		var err error
		if next.IsComplete(tk) {
			err = e.apply(tk, n.origin, s, next.ToAction(tk.Interner), open)
		} else {
			err = e.openPartial(tk, n.origin, s, next, open)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *partialGreedyBestFirst) openPartial(tk *task.Task, id StateID, s *state.DBState, p task.PartialAction, open *bestFirst[int]) error {
	key := partialKey(id, p)
	if _, ok := e.seen[key]; ok {
		return nil
	}
	e.seen[key] = struct{}{}
	e.stats.Generated++

	est := s
	if del, add := p.GuaranteedEffects(tk); len(del)+len(add) > 0 {
		est = s.Apply(del, add)
	}
	hv, err := e.evaluate(e.h, est)
	if err != nil {
		return err
	}
	if hv.IsInfinite() {
		e.stats.DeadEnds++
		return nil
	}
	open.push(e.add(id, p), hv)
	return nil
}

func (e *partialGreedyBestFirst) apply(tk *task.Task, id StateID, s *state.DBState, a task.Action, open *bestFirst[int]) error {
	next := e.gen.GenerateSuccessor(s, &tk.Schemas[a.Schema], a)
	e.stats.GeneratedActions++
	e.stats.Generated++
	cid, child, inserted := e.space.InsertOrGet(next)
	if !inserted {
		return nil
	}
	hv, err := e.evaluate(e.h, next)
	if err != nil {
		return err
	}
	child.Open(e.space.Node(id).G+1, id, a)
	if hv.IsInfinite() {
		e.stats.DeadEnds++
		child.Close()
		return nil
	}
	open.push(e.add(cid, noPartial), hv)
	return nil
}

func (e *partialGreedyBestFirst) add(id StateID, p task.PartialAction) int {
	e.nodes = append(e.nodes, partialNode{origin: id, partial: p})
	return len(e.nodes) - 1
}

// partialKey identifies a (state, partial action) pair. Varints are
// self-delimiting, so the prefix length needs no separate field.
func partialKey(id StateID, p task.PartialAction) string {
	buf := binary.AppendVarint(nil, int64(id))
	buf = binary.AppendVarint(buf, int64(p.Schema))
	for _, v := range p.Instantiation {
		buf = binary.AppendVarint(buf, int64(v))
	}
	return string(buf)
}
