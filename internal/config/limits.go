package config

import "runtime"

// Limits bounds the resources of one CLI invocation.
type Limits struct {
	MaxExpansions int `yaml:"max_expansions" validate:"gte=0"` // 0 = unbounded
	BatchWorkers  int `yaml:"batch_workers" validate:"gte=1"`  // parallel tasks in `batch`
}

// DefaultLimits returns unbounded search with one batch worker per CPU.
func DefaultLimits() Limits {
	return Limits{
		MaxExpansions: 0,
		BatchWorkers:  runtime.NumCPU(),
	}
}
