package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"liftplan/internal/config"
	"liftplan/internal/datalog"
	"liftplan/internal/heuristic"
	"liftplan/internal/logging"
	"liftplan/internal/search"
	"liftplan/internal/store"
	"liftplan/internal/successor"
	"liftplan/internal/task"
)

// runResult is the outcome of solving one task.
type runResult struct {
	Task      *task.Task
	Result    search.Result
	Stats     search.Statistics
	Elapsed   time.Duration
	Engine    search.Kind
	Generator successor.Kind
	Heuristic heuristic.Kind
}

// buildGenerator constructs the configured successor generator for tk.
// partial compiles the rules read by the partial-action engine.
func buildGenerator(tk *task.Task, c *config.Config, partial bool) (successor.Generator, successor.Kind, error) {
	kind, err := successor.ParseKind(c.Grounder.Generator)
	if err != nil {
		return nil, 0, err
	}
	orderer, err := datalog.OrdererByName(c.Grounder.JoinOrder)
	if err != nil {
		return nil, 0, err
	}
	neg, err := datalog.ParseNegationMode(c.Grounder.Negation)
	if err != nil {
		return nil, 0, err
	}
	if c.Grounder.RemoveNegativePreconditions {
		n := tk.RemoveNegativePreconditions()
		logging.TaskDebug("compiled away %d negative preconditions", n)
	}
	gen, err := successor.New(kind, tk, successor.Options{
		Orderer:  orderer,
		Negation: neg,
		Partial:  partial,
		Logger:   logging.L(logging.CategorySuccessor),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build %s generator: %w", kind, err)
	}
	return gen, kind, nil
}

// solve searches tk with the configured engine. A generator fault
// surfaces as an error rather than a crash.
func solve(ctx context.Context, tk *task.Task, c *config.Config) (res *runResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			ge, ok := r.(*datalog.GroundingError)
			if !ok {
				panic(r)
			}
			res, err = nil, fmt.Errorf("successor generation failed: %w", ge)
		}
	}()

	engineKind, err := search.ParseKind(c.Search.Engine)
	if err != nil {
		return nil, err
	}
	gen, genKind, err := buildGenerator(tk, c, engineKind == search.PartialGreedyBestFirst)
	if err != nil {
		return nil, err
	}
	hKind, err := heuristic.ParseKind(c.Search.Heuristic)
	if err != nil {
		return nil, err
	}
	h, err := heuristic.New(hKind, tk)
	if err != nil {
		return nil, err
	}
	engine, err := search.New(engineKind, gen, h, search.Options{
		Reopen:        c.Search.Reopen,
		MaxExpansions: c.Limits.MaxExpansions,
		LogInterval:   c.Search.LogInterval,
		Logger:        logging.L(logging.CategorySearch).With(zap.String("task", tk.DomainName+"/"+tk.ProblemName)),
	})
	if err != nil {
		return nil, err
	}

	if d := c.GetSearchTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	start := time.Now()
	result, err := engine.Search(ctx, tk)
	if err != nil {
		return nil, err
	}
	return &runResult{
		Task:      tk,
		Result:    result,
		Stats:     engine.Statistics(),
		Elapsed:   time.Since(start),
		Engine:    engineKind,
		Generator: genKind,
		Heuristic: hKind,
	}, nil
}

// record converts the run into a store record.
func (r *runResult) record() *store.RunRecord {
	rec := &store.RunRecord{
		Domain:     r.Task.DomainName,
		Problem:    r.Task.ProblemName,
		Engine:     r.Engine.String(),
		Generator:  r.Generator.String(),
		Expanded:   r.Stats.Expanded,
		Evaluated:  r.Stats.Evaluated,
		Generated:  r.Stats.Generated,
		DurationMs: r.Elapsed.Milliseconds(),
	}
	if r.Engine == search.GreedyBestFirst {
		rec.Heuristic = r.Heuristic.String()
	}
	switch res := r.Result.(type) {
	case search.Success:
		rec.Outcome = "solved"
		rec.PlanLength = res.Plan.Len()
		rec.Plan = res.Plan.String()
	case search.Failure:
		rec.Outcome = "failed"
		rec.Reason = res.Reason.String()
	}
	return rec
}

// errorRecord describes a run that could not complete.
func errorRecord(path string, tk *task.Task, c *config.Config, err error) *store.RunRecord {
	rec := &store.RunRecord{
		Domain:    path,
		Problem:   "-",
		Engine:    c.Search.Engine,
		Generator: c.Grounder.Generator,
		Outcome:   "error",
		Reason:    strings.ReplaceAll(err.Error(), "\n", "; "),
	}
	if tk != nil {
		rec.Domain, rec.Problem = tk.DomainName, tk.ProblemName
	}
	return rec
}

func openStore(c *config.Config) (*store.RunStore, error) {
	s, err := store.Open(c.Store.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}
	return s, nil
}
