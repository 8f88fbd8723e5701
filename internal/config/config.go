package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all liftplan configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Search engine and heuristic
	Search SearchConfig `yaml:"search"`

	// Successor generation
	Grounder GrounderConfig `yaml:"grounder"`

	Limits Limits `yaml:"limits"`

	// Run history
	Store StoreConfig `yaml:"store"`

	Metrics MetricsConfig `yaml:"metrics"`

	Logging LoggingConfig `yaml:"logging"`
}

// SearchConfig selects the search engine.
type SearchConfig struct {
	Engine    string `yaml:"engine" validate:"oneof=bfs gbfs pgbfs breadth-first greedy-best-first partial-greedy-best-first"`
	Heuristic string `yaml:"heuristic" validate:"oneof=blind goal-count hadd hmax hff"`
	// Reopen closed nodes reached by a cheaper path (gbfs only)
	Reopen bool `yaml:"reopen"`
	// Timeout bounds one search; empty means none
	Timeout     string `yaml:"timeout"`
	LogInterval int    `yaml:"log_interval" validate:"gte=0"`
}

// GrounderConfig selects the successor generator and its join strategy.
type GrounderConfig struct {
	Generator string `yaml:"generator" validate:"oneof=naive full-reducer mangle"`
	JoinOrder string `yaml:"join_order" validate:"oneof=cardinality fast-downward helmert09"`
	Negation  string `yaml:"negation" validate:"oneof=complement reject"`
	// RemoveNegativePreconditions compiles negated preconditions into
	// complement predicates before the program is built.
	RemoveNegativePreconditions bool `yaml:"remove_negative_preconditions"`
}

// StoreConfig configures the SQLite run history.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path" validate:"required"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// TextfilePath receives the registry after each command
	TextfilePath string `yaml:"textfile_path" validate:"required_if=Enabled true"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "liftplan",
		Version: "0.3.0",

		Search: SearchConfig{
			Engine:      "gbfs",
			Heuristic:   "goal-count",
			Reopen:      false,
			LogInterval: 10000,
		},

		Grounder: GrounderConfig{
			Generator: "full-reducer",
			JoinOrder: "cardinality",
			Negation:  "complement",
		},

		Limits: DefaultLimits(),

		Store: StoreConfig{
			DatabasePath: ".liftplan/runs.db",
		},

		Metrics: MetricsConfig{
			Enabled:      false,
			TextfilePath: ".liftplan/metrics.prom",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Defaults, still subject to the environment
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if engine := os.Getenv("LIFTPLAN_ENGINE"); engine != "" {
		c.Search.Engine = engine
	}
	if gen := os.Getenv("LIFTPLAN_GENERATOR"); gen != "" {
		c.Grounder.Generator = gen
	}

	// Database path from environment
	if path := os.Getenv("LIFTPLAN_DB"); path != "" {
		c.Store.DatabasePath = path
	}
}

// GetSearchTimeout returns the search timeout, zero when unset or
// malformed.
func (c *Config) GetSearchTimeout() time.Duration {
	if c.Search.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Search.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "invalid config: " + strings.Join(e.Fields, "; ")
}

var configValidate = validator.New()

// Validate validates the configuration.
func (c *Config) Validate() error {
	var fields []string
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range verrs {
			fields = append(fields, fmt.Sprintf("%s failed %q (got %v)", fe.Namespace(), fe.Tag(), fe.Value()))
		}
	}
	if c.Search.Timeout != "" {
		if _, err := time.ParseDuration(c.Search.Timeout); err != nil {
			fields = append(fields, fmt.Sprintf("Config.Search.Timeout: %v", err))
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}
