package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"poolEngine/internal/config"
	"poolEngine/internal/sim"
	"poolEngine/internal/storage"
	"poolEngine/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "poolengine",
		Short:        "Constant-product swap engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a scenario file against a fresh engine",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("scenario", "", "scenario JSONL path")
	simulateCmd.Flags().String("out", "./data/notifications.jsonl", "notifications JSONL path")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN (writes notifications there instead of JSONL)")
	simulateCmd.Flags().String("checkpoint", "./data/sim_checkpoint.json", "checkpoint file path")
	simulateCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	simulateCmd.Flags().Int("batch-size", 100, "ops per notification flush")
	simulateCmd.Flags().Uint64("start-time", 1_700_000_000, "simulated clock start (unix seconds)")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	root.AddCommand(newAggregateCmd())
	root.AddCommand(newQuoteCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink storage.Storage
	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		sink = store.Sink(ctx)
	} else {
		sink = storage.NewJsonlStorage(cfg.Out)
	}

	runner := sim.NewRunner(sim.RunConfig{
		ScenarioPath:      cfg.Scenario,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		BatchSize:         cfg.BatchSize,
		StartTime:         cfg.StartTime,
	}, sink, logger)
	if store != nil {
		// Resume state lives next to the notifications, keyed by scenario.
		runner.UseStateStore(store, cfg.Scenario)
	}

	logger.Info("simulate start",
		zap.String("scenario", cfg.Scenario),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
