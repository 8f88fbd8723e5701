package search

import (
	"context"

	"liftplan/internal/heuristic"
	"liftplan/internal/task"
)

// breadthFirst tests the goal when a state is generated and never
// reopens: the first path found to a state is a shortest one.
type breadthFirst struct {
	core
}

func (e *breadthFirst) Search(ctx context.Context, tk *task.Task) (Result, error) {
	e.reset()
	root, node, _ := e.space.InsertOrGet(tk.InitialState)
	node.Open(0, NoState, task.Action{})
	if tk.Goal.Satisfied(tk.InitialState) {
		return e.succeed(tk, root), nil
	}

	open := &fifo{}
	open.push(root, 0)
	for {
		if err := e.cancelled(ctx); err != nil {
			return nil, err
		}
		id, ok := open.pop()
		if !ok {
			return e.fail(FailureExhausted, 0), nil
		}
		if e.limitReached() {
			return e.fail(FailureExpansionLimit, open.len()+1), nil
		}

		parent := e.space.Node(id)
		parent.Close()
		e.stats.Expanded++
		s := e.space.State(id)

		for i := range tk.Schemas {
			schema := &tk.Schemas[i]
			actions := e.gen.ApplicableActions(s, schema)
			e.stats.GeneratedActions += len(actions)
			for _, a := range actions {
				next := e.gen.GenerateSuccessor(s, schema, a)
				e.stats.Generated++
				cid, child, inserted := e.space.InsertOrGet(next)
				if !inserted {
					continue
				}
				child.Open(parent.G+1, id, a)
				if tk.Goal.Satisfied(next) {
					return e.succeed(tk, cid), nil
				}
				open.push(cid, heuristic.Value(0))
			}
		}
		e.progress()
	}
}
