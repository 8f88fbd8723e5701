package search

import "go.uber.org/zap"

// Statistics counts search events.
type Statistics struct {
	Expanded         int
	Evaluated        int
	Generated        int
	Reopened         int
	GeneratedActions int
	DeadEnds         int
	// Open is the size of the open list when the search failed.
	Open int
}

func (s Statistics) fields() []zap.Field {
	return []zap.Field{
		zap.Int("expanded", s.Expanded),
		zap.Int("evaluated", s.Evaluated),
		zap.Int("generated", s.Generated),
		zap.Int("reopened", s.Reopened),
		zap.Int("generated_actions", s.GeneratedActions),
		zap.Int("dead_ends", s.DeadEnds),
	}
}
