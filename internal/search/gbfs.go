package search

import (
	"context"

	"liftplan/internal/heuristic"
	"liftplan/internal/task"
)

// greedyBestFirst expands the open node with the lowest heuristic value
// and tests the goal on expansion. States with an infinite estimate are
// pruned.
type greedyBestFirst struct {
	core
	h heuristic.Heuristic
}

func (e *greedyBestFirst) Search(ctx context.Context, tk *task.Task) (Result, error) {
	e.reset()
	hs := map[StateID]heuristic.Value{}

	root, node, _ := e.space.InsertOrGet(tk.InitialState)
	hv, err := e.evaluate(e.h, tk.InitialState)
	if err != nil {
		return nil, err
	}
	hs[root] = hv
	node.Open(0, NoState, task.Action{})
	if hv.IsInfinite() {
		e.stats.DeadEnds++
		node.Close()
		return e.fail(FailureExhausted, 0), nil
	}

	open := &bestFirst[StateID]{}
	open.push(root, hv)
	for {
		if err := e.cancelled(ctx); err != nil {
			return nil, err
		}
		id, ok := open.pop()
		if !ok {
			return e.fail(FailureExhausted, 0), nil
		}
		// A node is pushed when it is first opened and again only after it
		// is reopened from closed, so popped nodes are never closed.
		parent := e.space.Node(id)
		s := e.space.State(id)
		if tk.Goal.Satisfied(s) {
			return e.succeed(tk, id), nil
		}
		if e.limitReached() {
			return e.fail(FailureExpansionLimit, open.len()+1), nil
		}

		parent.Close()
		e.stats.Expanded++
		for i := range tk.Schemas {
			schema := &tk.Schemas[i]
			actions := e.gen.ApplicableActions(s, schema)
			e.stats.GeneratedActions += len(actions)
			for _, a := range actions {
				next := e.gen.GenerateSuccessor(s, schema, a)
				e.stats.Generated++
				g := parent.G + 1

				cid, child, inserted := e.space.InsertOrGet(next)
				if inserted {
					hv, err := e.evaluate(e.h, next)
					if err != nil {
						return nil, err
					}
					hs[cid] = hv
					child.Open(g, id, a)
					if hv.IsInfinite() {
						e.stats.DeadEnds++
						child.Close()
						continue
					}
					open.push(cid, hv)
					continue
				}

				if !e.opts.Reopen || g >= child.G || hs[cid].IsInfinite() {
					continue
				}
				wasClosed := child.Status == StatusClosed
				child.Open(g, id, a)
				if wasClosed {
					e.stats.Reopened++
					open.push(cid, hs[cid])
				}
			}
		}
		e.progress()
	}
}
