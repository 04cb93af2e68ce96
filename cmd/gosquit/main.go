package main

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/brunobiangulo/gosquit"
)

var (
	// Global flags
	configPath string
	verbose    bool
	dataDir    string
	dbPath     string
	preset     string
	seed       uint64
	workers    int
	noStore    bool
	timeout    time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "gosquit",
	Short: "gosquit - synthetic question / query corpus generator",
	Long: `gosquit builds natural-language questions paired with formal knowledge-base
queries from a bank of typed relations and entities.

Skeletons come from small grammars; each skeleton is bound to a chain of
relations through the type graph, then filled with surface forms and entity
labels drawn from the bank.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "gosquit.yaml", "Config file (YAML or JSON)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "", "Bank data directory")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "Grammar preset (default, hard)")
	rootCmd.PersistentFlags().Uint64Var(&seed, "seed", 0, "Random seed")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "Corpus workers")
	rootCmd.PersistentFlags().BoolVar(&noStore, "no-store", false, "Do not persist generated records")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Operation timeout")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (gosquit.Config, error) {
	cfg, err := gosquit.LoadConfig(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("db") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("preset") {
		cfg.Preset = preset
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("no-store") {
		cfg.SkipStore = noStore
	}
	return cfg, nil
}

// openEngine builds an engine from the config file and flags. A nil
// registerer keeps metrics private to the engine.
func openEngine(cmd *cobra.Command, reg prometheus.Registerer) (gosquit.Engine, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := []gosquit.Option{gosquit.WithLogger(logger)}
	if reg != nil {
		opts = append(opts, gosquit.WithRegisterer(reg))
	}
	return gosquit.New(cfg, opts...)
}
