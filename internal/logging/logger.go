// Package logging provides config-driven categorized logging for liftplan.
// Each category is a named child of one zap logger. Until Configure is
// called every category logs to a no-op logger.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"liftplan/internal/config"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // CLI startup, config resolution
	CategoryTask      Category = "task"      // Task loading and normalization
	CategoryGrounder  Category = "grounder"  // Datalog compilation and grounding
	CategorySuccessor Category = "successor" // Successor generator construction
	CategorySearch    Category = "search"    // Search progress and results
	CategoryValidate  Category = "validate"  // Plan validation
	CategoryStore     Category = "store"     // Run history persistence
)

// AllCategories lists every category in display order.
var AllCategories = []Category{
	CategoryBoot, CategoryTask, CategoryGrounder, CategorySuccessor,
	CategorySearch, CategoryValidate, CategoryStore,
}

var (
	mu      sync.RWMutex
	root    = zap.NewNop()
	cfg     config.LoggingConfig
	loggers = make(map[Category]*zap.Logger)
)

// New builds the base logger for cfg. verbose forces debug level.
func New(c config.LoggingConfig, verbose bool) (*zap.Logger, error) {
	var zc zap.Config
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if verbose || c.DebugMode {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}

	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

// Configure installs base as the parent of every category. Disabled
// categories get a no-op logger.
func Configure(base *zap.Logger, c config.LoggingConfig) {
	mu.Lock()
	defer mu.Unlock()
	if base == nil {
		base = zap.NewNop()
	}
	root = base
	cfg = c
	loggers = make(map[Category]*zap.Logger)
}

// Reset restores the no-op default.
func Reset() {
	Configure(nil, config.LoggingConfig{})
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return cfg.IsCategoryEnabled(string(category))
}

// L returns the structured logger of a category, for components that
// take a *zap.Logger.
func L(category Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := zap.NewNop()
	if cfg.IsCategoryEnabled(string(category)) {
		l = root.Named(string(category))
	}
	loggers[category] = l
	return l
}

// Get returns the printf-style logger of a category.
func Get(category Category) *zap.SugaredLogger {
	return L(category).Sugar()
}

// Sync flushes the base logger.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return root.Sync()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Infof(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debugf(format, args...)
}

// Task logs to the task category
func Task(format string, args ...interface{}) {
	Get(CategoryTask).Infof(format, args...)
}

// TaskDebug logs debug to the task category
func TaskDebug(format string, args ...interface{}) {
	Get(CategoryTask).Debugf(format, args...)
}

// Grounder logs to the grounder category
func Grounder(format string, args ...interface{}) {
	Get(CategoryGrounder).Infof(format, args...)
}

// GrounderDebug logs debug to the grounder category
func GrounderDebug(format string, args ...interface{}) {
	Get(CategoryGrounder).Debugf(format, args...)
}

// Search logs to the search category
func Search(format string, args ...interface{}) {
	Get(CategorySearch).Infof(format, args...)
}

// SearchDebug logs debug to the search category
func SearchDebug(format string, args ...interface{}) {
	Get(CategorySearch).Debugf(format, args...)
}

// Validate logs to the validate category
func Validate(format string, args ...interface{}) {
	Get(CategoryValidate).Infof(format, args...)
}

// Store logs to the store category
func Store(format string, args ...interface{}) {
	Get(CategoryStore).Infof(format, args...)
}

// StoreDebug logs debug to the store category
func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).Debugf(format, args...)
}
