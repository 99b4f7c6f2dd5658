package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolEngine/internal/aggregate"
	"poolEngine/internal/config"
	"poolEngine/internal/storage"
	"poolEngine/internal/storage/postgres"
)

func newAggregateCmd() *cobra.Command {
	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate notifications into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("in", "", "input notifications JSONL")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().String("out", "./data/pool_metrics.jsonl", "output metrics JSONL path")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN (writes metrics there instead of JSONL)")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for sink writes")
	aggregateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	return aggregateCmd
}

func runAggregate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAggregate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	windowSeconds, err := cfg.WindowSeconds()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink aggregate.MetricsSink
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer store.Close()
		sink = store.MetricsSink(ctx)
	} else {
		sink = storage.NewMetricsJsonlStorage(cfg.Out)
	}

	aggregator := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     cfg.BatchSize,
	}, sink, logger)

	logger.Info("aggregate start",
		zap.String("in", cfg.Input),
		zap.Uint64("window_seconds", windowSeconds),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Int("batch_size", cfg.BatchSize),
	)

	return aggregator.Run(ctx, cfg.Input)
}
