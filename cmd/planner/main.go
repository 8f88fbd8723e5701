// Command planner solves lifted planning tasks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liftplan/internal/config"
	"liftplan/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration
	engineFlag string
	genFlag    string
	heurFlag   string

	// Resolved at startup
	cfg    *config.Config
	logger *zap.Logger
)

const defaultConfigPath = ".liftplan/config.yaml"

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "planner",
	Short: "liftplan - lifted classical planner",
	Long: `liftplan solves classical planning tasks without grounding them up front.

Applicable actions are computed per state by compiling each action schema
into a Datalog program and evaluating it against the state.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadSettings()
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return err
		}
		logging.Configure(logger, cfg.Logging)
		logging.BootDebug("config resolved: engine=%s generator=%s heuristic=%s", cfg.Search.Engine, cfg.Grounder.Generator, cfg.Search.Heuristic)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := writeMetrics(); err != nil {
			logging.Get(logging.CategoryBoot).Warnf("metrics export failed: %v", err)
		}
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadSettings reads the config file and applies flag overrides.
func loadSettings() (*config.Config, error) {
	c, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if engineFlag != "" {
		c.Search.Engine = engineFlag
	}
	if genFlag != "" {
		c.Grounder.Generator = genFlag
	}
	if heurFlag != "" {
		c.Search.Heuristic = heurFlag
	}
	if timeout > 0 {
		c.Search.Timeout = timeout.String()
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// writeMetrics exports the default Prometheus registry when enabled.
func writeMetrics() error {
	if cfg == nil || !cfg.Metrics.Enabled {
		return nil
	}
	path := cfg.Metrics.TextfilePath
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "Config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Search timeout per task (default: from config)")
	rootCmd.PersistentFlags().StringVar(&engineFlag, "engine", "", "Search engine: bfs, gbfs, pgbfs")
	rootCmd.PersistentFlags().StringVar(&genFlag, "generator", "", "Successor generator: naive, full-reducer, mangle")
	rootCmd.PersistentFlags().StringVar(&heurFlag, "heuristic", "", "Heuristic: blind, goal-count, hadd, hmax, hff")

	planCmd.Flags().BoolVar(&recordRun, "record", false, "Record the run in the run store")
	planCmd.Flags().StringVarP(&planOut, "out", "o", "", "Write the plan to a file")

	batchCmd.Flags().BoolVar(&recordRun, "record", false, "Record every run in the run store")

	runsCmd.Flags().StringVar(&runsDomain, "domain", "", "Only runs of this domain")
	runsCmd.Flags().StringVar(&runsOutcome, "outcome", "", "Only runs with this outcome (solved, failed, error)")
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum runs to show")

	configInitCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runsCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
