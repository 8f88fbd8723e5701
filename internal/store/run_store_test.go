package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *RunStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "runs.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRunStore_RecordAndGet(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	run := &RunRecord{
		Domain:     "blocksworld",
		Problem:    "tower-3",
		Engine:     "greedy-best-first",
		Heuristic:  "goal-count",
		Generator:  "full-reducer",
		Outcome:    "solved",
		PlanLength: 4,
		Plan:       "(pickup b2)\n(stack b2 b3)\n(pickup b1)\n(stack b1 b2)\n",
		Expanded:   12,
		Evaluated:  30,
		Generated:  31,
		DurationMs: 3,
	}
	if err := s.Record(ctx, run); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	_, err := uuid.Parse(run.ID)
	require.NoError(t, err, "record id is a uuid")
	require.False(t, run.CreatedAt.IsZero())

	got, err := s.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.True(t, got.Solved())
	assert.True(t, run.CreatedAt.Equal(got.CreatedAt))
	got.CreatedAt = run.CreatedAt
	assert.Equal(t, run, got)
}

func TestRunStore_GetUnknown(t *testing.T) {
	s := openTemp(t)
	_, err := s.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound), "got %v", err)
}

func TestRunStore_DuplicateID(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	r := &RunRecord{ID: "fixed", Domain: "d", Problem: "p", Engine: "bfs", Generator: "naive", Outcome: "failed"}
	require.NoError(t, s.Record(ctx, r))
	dup := *r
	assert.Error(t, s.Record(ctx, &dup))
}

func TestRunStore_List(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		domain := "move"
		outcome := "solved"
		if i%2 == 1 {
			domain = "gripper"
			outcome = "failed"
		}
		require.NoError(t, s.Record(ctx, &RunRecord{
			ID:        fmt.Sprintf("run-%d", i),
			Domain:    domain,
			Problem:   "p",
			Engine:    "bfs",
			Generator: "naive",
			Outcome:   outcome,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	tests := []struct {
		name   string
		filter RunFilter
		want   []string
	}{
		{"all newest first", RunFilter{}, []string{"run-4", "run-3", "run-2", "run-1", "run-0"}},
		{"by domain", RunFilter{Domain: "gripper"}, []string{"run-3", "run-1"}},
		{"by outcome", RunFilter{Outcome: "solved"}, []string{"run-4", "run-2", "run-0"}},
		{"both", RunFilter{Domain: "move", Outcome: "failed"}, nil},
		{"limit", RunFilter{Limit: 2}, []string{"run-4", "run-3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := s.List(ctx, tt.filter)
			require.NoError(t, err)
			var ids []string
			for _, r := range runs {
				ids = append(ids, r.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRunStore_ConcurrentRecord(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Record(ctx, &RunRecord{Domain: "move", Problem: "p", Engine: "bfs", Generator: "naive", Outcome: "solved"})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	runs, err := s.List(ctx, RunFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, runs, 16)
}

func TestRunStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(context.Background(), &RunRecord{ID: "keep", Domain: "d", Problem: "p", Engine: "bfs", Generator: "naive", Outcome: "solved"}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.Equal(t, path, s.Path())
	_, err = s.Get(context.Background(), "keep")
	assert.NoError(t, err)
}
