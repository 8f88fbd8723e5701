// Package search implements breadth-first and greedy best-first search
// over database states, and a greedy best-first variant that grounds one
// action parameter per transition.
package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"liftplan/internal/heuristic"
	"liftplan/internal/plan"
	"liftplan/internal/state"
	"liftplan/internal/successor"
	"liftplan/internal/task"
)

// Kind selects a search engine.
type Kind int

const (
	BreadthFirst Kind = iota
	GreedyBestFirst
	// PartialGreedyBestFirst needs a generator compiled with partial-action
	// rules to avoid grounding whole schemas; any generator is correct.
	PartialGreedyBestFirst
)

var kindNames = map[Kind]string{
	BreadthFirst:           "breadth-first",
	GreedyBestFirst:        "greedy-best-first",
	PartialGreedyBestFirst: "partial-greedy-best-first",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves a configuration name. "bfs", "gbfs" and "pgbfs" are
// accepted as short forms.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "bfs":
		return BreadthFirst, nil
	case "gbfs":
		return GreedyBestFirst, nil
	case "pgbfs":
		return PartialGreedyBestFirst, nil
	}
	for k, n := range kindNames {
		if strings.EqualFold(n, name) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown search engine %q", name)
}

// Options configures an engine.
type Options struct {
	// Reopen lets greedy best-first search re-expand closed nodes reached
	// by a cheaper path. Breadth-first and partial-action search never reopen.
	Reopen bool
	// MaxExpansions stops the search with FailureExpansionLimit; zero
	// means no limit.
	MaxExpansions int
	// LogInterval is the number of expansions between progress logs.
	LogInterval int
	Logger      *zap.Logger
}

const defaultLogInterval = 10000

// FailureReason explains an unsuccessful search.
type FailureReason int

const (
	// FailureExhausted means the open list ran empty.
	FailureExhausted FailureReason = iota
	// FailureExpansionLimit means Options.MaxExpansions was reached.
	FailureExpansionLimit
)

func (r FailureReason) String() string {
	switch r {
	case FailureExhausted:
		return "search space exhausted"
	case FailureExpansionLimit:
		return "expansion limit reached"
	}
	return fmt.Sprintf("FailureReason(%d)", int(r))
}

// Result is either Success or Failure.
type Result interface {
	Solved() bool
}

// Success carries the plan found.
type Success struct {
	Plan    plan.Plan
	Actions []task.Action
}

func (Success) Solved() bool { return true }

// Failure is a normal outcome, not an error.
type Failure struct {
	Reason FailureReason
}

func (Failure) Solved() bool { return false }

// Engine runs one search at a time.
type Engine interface {
	// Search returns an error only on faults: a cancelled context or a
	// failing heuristic.
	Search(ctx context.Context, tk *task.Task) (Result, error)
	Statistics() Statistics
	// Space is the search space of the last call to Search.
	Space() *Space
	Kind() Kind
}

// New builds the engine of the given kind. Breadth-first search ignores h.
func New(kind Kind, gen successor.Generator, h heuristic.Heuristic, opts Options) (Engine, error) {
	if gen == nil {
		return nil, fmt.Errorf("search: nil successor generator")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.LogInterval <= 0 {
		opts.LogInterval = defaultLogInterval
	}
	c := core{kind: kind, gen: gen, opts: opts, log: opts.Logger}
	switch kind {
	case BreadthFirst:
		return &breadthFirst{core: c}, nil
	case GreedyBestFirst:
		if h == nil {
			return nil, fmt.Errorf("search: %v needs a heuristic", kind)
		}
		return &greedyBestFirst{core: c, h: h}, nil
	case PartialGreedyBestFirst:
		if h == nil {
			return nil, fmt.Errorf("search: %v needs a heuristic", kind)
		}
		return &partialGreedyBestFirst{core: c, h: h}, nil
	}
	return nil, fmt.Errorf("search: unknown engine %v", kind)
}

// core is shared by all engines.
type core struct {
	kind  Kind
	gen   successor.Generator
	opts  Options
	log   *zap.Logger
	stats Statistics
	space *Space
	start time.Time
}

func (c *core) Statistics() Statistics { return c.stats }
func (c *core) Space() *Space          { return c.space }
func (c *core) Kind() Kind             { return c.kind }

func (c *core) reset() {
	c.stats = Statistics{}
	c.space = NewSpace()
	c.start = time.Now()
}

func (c *core) limitReached() bool {
	return c.opts.MaxExpansions > 0 && c.stats.Expanded >= c.opts.MaxExpansions
}

func (c *core) progress() {
	if c.stats.Expanded%c.opts.LogInterval == 0 {
		c.log.Info("search progress", c.stats.fields()...)
	}
}

func (c *core) succeed(tk *task.Task, id StateID) Result {
	actions := c.space.Plan(id)
	c.finish("solved", zap.Int("plan_length", len(actions)))
	return Success{Plan: plan.FromActions(tk, actions), Actions: actions}
}

func (c *core) fail(reason FailureReason, open int) Result {
	c.stats.Open = open
	c.finish("failed", zap.Stringer("reason", reason))
	return Failure{Reason: reason}
}

func (c *core) finish(outcome string, extra ...zap.Field) {
	elapsed := time.Since(c.start)
	fields := append(c.stats.fields(), zap.String("engine", c.kind.String()), zap.Duration("elapsed", elapsed))
	c.log.Info("search "+outcome, append(fields, extra...)...)
	recordSearch(c.kind.String(), outcome, c.stats, elapsed)
}

func (c *core) cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		c.finish("cancelled")
		return fmt.Errorf("search cancelled after %d expansions: %w", c.stats.Expanded, err)
	}
	return nil
}

func (c *core) evaluate(h heuristic.Heuristic, s *state.DBState) (heuristic.Value, error) {
	c.stats.Evaluated++
	hv, err := h.Evaluate(s)
	if err != nil {
		c.finish("errored")
		return 0, fmt.Errorf("heuristic evaluation failed after %d expansions: %w", c.stats.Expanded, err)
	}
	return hv, nil
}
