package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"poolEngine/internal/model"
	"poolEngine/internal/storage"
)

// Store provides Postgres persistence for notifications.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// PutNotificationBatch upserts a batch of notifications keyed by sequence.
func (s *Store) PutNotificationBatch(ctx context.Context, notifications []model.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, n := range notifications {
		payload, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		batch.Queue(`
			INSERT INTO pool_notifications (
				seq, pool_address, kind, event_ts, payload, created_at
			) VALUES ($1, $2, $3, $4, $5, now())
			ON CONFLICT (seq)
			DO UPDATE SET
				pool_address = EXCLUDED.pool_address,
				kind = EXCLUDED.kind,
				event_ts = EXCLUDED.event_ts,
				payload = EXCLUDED.payload
		`,
			int64(n.Seq),
			n.Pool,
			n.Kind,
			int64(n.Timestamp),
			payload,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range notifications {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// UpsertPoolMetrics inserts or updates window metrics.
func (s *Store) UpsertPoolMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error {
	if len(metrics) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
			INSERT INTO pool_window_metrics (
				pool_address, window_size_seconds, window_start_ts, window_end_ts,
				trade_count, deposit_count, withdraw_count,
				volume_in_a, volume_in_b, volume_out_a, volume_out_b,
				end_reserve_a, end_reserve_b, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,now(),now())
			ON CONFLICT (pool_address, window_size_seconds, window_start_ts)
			DO UPDATE SET
				window_end_ts = EXCLUDED.window_end_ts,
				trade_count = EXCLUDED.trade_count,
				deposit_count = EXCLUDED.deposit_count,
				withdraw_count = EXCLUDED.withdraw_count,
				volume_in_a = EXCLUDED.volume_in_a,
				volume_in_b = EXCLUDED.volume_in_b,
				volume_out_a = EXCLUDED.volume_out_a,
				volume_out_b = EXCLUDED.volume_out_b,
				end_reserve_a = EXCLUDED.end_reserve_a,
				end_reserve_b = EXCLUDED.end_reserve_b,
				updated_at = now()
		`,
			m.Pool,
			int64(m.WindowSizeSecs),
			int64(m.WindowStart),
			int64(m.WindowEnd),
			int64(m.TradeCount),
			int64(m.DepositCount),
			int64(m.WithdrawCount),
			m.VolumeInA,
			m.VolumeInB,
			m.VolumeOutA,
			m.VolumeOutB,
			m.EndReserveA,
			m.EndReserveB,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range metrics {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// MetricsSink adapts the store to the aggregate.MetricsSink interface with a
// fixed context.
func (s *Store) MetricsSink(ctx context.Context) *MetricsWriter {
	return &MetricsWriter{ctx: ctx, store: s}
}

// MetricsWriter writes metrics batches through a fixed context.
type MetricsWriter struct {
	ctx   context.Context
	store *Store
}

func (w *MetricsWriter) PutMetricsBatch(metrics []model.PoolWindowMetrics) error {
	return w.store.UpsertPoolMetrics(w.ctx, metrics)
}

// Sink adapts the store to the storage.Storage interface with a fixed
// context.
func (s *Store) Sink(ctx context.Context) storage.Storage {
	return &sink{ctx: ctx, store: s}
}

type sink struct {
	ctx   context.Context
	store *Store
}

func (s *sink) PutNotificationBatch(notifications []model.Notification) error {
	return s.store.PutNotificationBatch(s.ctx, notifications)
}

// LoadState returns the last applied scenario sequence for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var seq uint64
	row := s.pool.QueryRow(ctx, `SELECT last_applied_seq FROM sim_state WHERE name=$1`, name)
	if err := row.Scan(&seq); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return seq, true, nil
}

// SaveState upserts the last applied scenario sequence for a name.
func (s *Store) SaveState(ctx context.Context, name string, seq uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sim_state (name, last_applied_seq, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_applied_seq = EXCLUDED.last_applied_seq, updated_at = now()
	`, name, seq)
	return err
}
