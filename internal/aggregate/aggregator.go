package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"poolEngine/internal/model"
)

// MetricsSink receives finished window metrics.
type MetricsSink interface {
	PutMetricsBatch(metrics []model.PoolWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
}

// Aggregator folds a notifications JSONL stream into per-pool window
// metrics.
type Aggregator struct {
	cfg          Config
	sink         MetricsSink
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, sink MetricsSink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run executes aggregation over a notifications JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var total, failed int
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.NotificationRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("skip malformed notification", zap.Int("line", total), zap.Error(err))
			continue
		}
		if err := a.add(record); err != nil {
			failed++
			a.logger.Warn("skip notification", zap.Uint64("seq", record.Seq), zap.Error(err))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	if err := a.flush(); err != nil {
		return err
	}
	a.logger.Info("aggregation complete",
		zap.Int("notifications", total),
		zap.Int("failed", failed),
	)
	return nil
}

func (a *Aggregator) add(record model.NotificationRecord) error {
	windowStart := record.Timestamp - record.Timestamp%a.cfg.WindowSeconds
	key := fmt.Sprintf("%s|%d", record.Pool, windowStart)
	acc, ok := a.accumulators[key]
	if !ok {
		acc = NewAccumulator(record.Pool, windowStart, windowStart+a.cfg.WindowSeconds)
		a.accumulators[key] = acc
	}
	return acc.AddRecord(record)
}

// flush emits all windows, ordered by start time then pool, in sink batches.
func (a *Aggregator) flush() error {
	accs := make([]*Accumulator, 0, len(a.accumulators))
	for _, acc := range a.accumulators {
		accs = append(accs, acc)
	}
	sort.Slice(accs, func(i, j int) bool {
		if accs[i].WindowStart != accs[j].WindowStart {
			return accs[i].WindowStart < accs[j].WindowStart
		}
		return accs[i].Pool < accs[j].Pool
	})

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	for _, acc := range accs {
		batch = append(batch, acc.Metrics(a.cfg.WindowSeconds))
		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.PutMetricsBatch(batch); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := a.sink.PutMetricsBatch(batch); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
