package search

import (
	"fmt"

	"liftplan/internal/state"
	"liftplan/internal/task"
)

// StateID identifies a state registered in a Space.
type StateID int

// NoState is the parent of the initial node.
const NoState StateID = -1

// Status is the lifecycle stage of a search node.
type Status int

const (
	StatusNew Status = iota
	StatusOpen
	StatusClosed
	StatusReopened
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusOpen:
		return "open"
	case StatusClosed:
		return "closed"
	case StatusReopened:
		return "reopened"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Node is the search bookkeeping of one state.
type Node struct {
	StateID StateID
	G       int
	Parent  StateID
	// Action leads from the parent to this node; zero for the root.
	Action task.Action
	Status Status
}

// Open moves the node into the open list with the given path.
func (n *Node) Open(g int, parent StateID, a task.Action) {
	n.G, n.Parent, n.Action = g, parent, a
	if n.Status == StatusClosed {
		n.Status = StatusReopened
		return
	}
	n.Status = StatusOpen
}

// Close marks the node expanded.
func (n *Node) Close() { n.Status = StatusClosed }

// Space assigns one StateID per distinct state and keeps a node for it.
type Space struct {
	states []*state.DBState
	nodes  []*Node
	byKey  map[uint64][]StateID
}

// NewSpace returns an empty search space.
func NewSpace() *Space {
	return &Space{byKey: make(map[uint64][]StateID)}
}

// InsertOrGet returns the id and node of s, registering it with a fresh
// StatusNew node if its content was not seen before. The boolean reports
// whether s was inserted.
func (sp *Space) InsertOrGet(s *state.DBState) (StateID, *Node, bool) {
	key := s.Key()
	for _, id := range sp.byKey[key] {
		if sp.states[id].Equal(s) {
			return id, sp.nodes[id], false
		}
	}
	id := StateID(len(sp.states))
	node := &Node{StateID: id, Parent: NoState, Status: StatusNew}
	sp.states = append(sp.states, s)
	sp.nodes = append(sp.nodes, node)
	sp.byKey[key] = append(sp.byKey[key], id)
	return id, node, true
}

// State returns the state registered as id.
func (sp *Space) State(id StateID) *state.DBState { return sp.states[id] }

// Node returns the node of id.
func (sp *Space) Node(id StateID) *Node { return sp.nodes[id] }

// Len is the number of registered states.
func (sp *Space) Len() int { return len(sp.states) }

// Plan returns the actions on the parent path from the root to id.
func (sp *Space) Plan(id StateID) []task.Action {
	var out []task.Action
	for cur := id; sp.nodes[cur].Parent != NoState; cur = sp.nodes[cur].Parent {
		out = append(out, sp.nodes[cur].Action)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
