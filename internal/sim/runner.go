package sim

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"poolEngine/internal/asset"
	"poolEngine/internal/registry"
	"poolEngine/internal/router"
	"poolEngine/internal/storage"
)

// RunConfig holds runtime settings for a scenario replay.
type RunConfig struct {
	ScenarioPath      string
	CheckpointPath    string
	CheckpointEnabled bool
	BatchSize         int
	StartTime         uint64
}

// StateStore persists the last applied op externally, keyed by name. The
// Postgres store satisfies this; when set it replaces the checkpoint file.
type StateStore interface {
	LoadState(ctx context.Context, name string) (uint64, bool, error)
	SaveState(ctx context.Context, name string, seq uint64) error
}

// Runner replays a scenario file against a fresh in-memory engine and
// flushes the resulting notifications to storage.
type Runner struct {
	cfg        RunConfig
	logger     *zap.Logger
	storage    storage.Storage
	checkpoint *CheckpointStore
	state      StateStore
	stateName  string

	clock    *SteppedClock
	recorder *storage.Recorder
	book     *asset.Book
	registry *registry.Registry
	router   *router.Router
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	clock := NewSteppedClock(cfg.StartTime)
	recorder := storage.NewRecorder()
	book := asset.NewBook()
	reg := registry.New(book, logger, clock.Now, recorder)

	return &Runner{
		cfg:        cfg,
		logger:     logger,
		storage:    storageSink,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		clock:      clock,
		recorder:   recorder,
		book:       book,
		registry:   reg,
		router:     router.New(reg, book, logger),
	}
}

// UseStateStore routes resume state through an external store under the
// given name instead of the checkpoint file.
func (r *Runner) UseStateStore(store StateStore, name string) {
	r.state = store
	r.stateName = name
}

// Run executes the replay loop.
func (r *Runner) Run(ctx context.Context) error {
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.ScenarioPath == "" {
		return fmt.Errorf("scenario path is required")
	}

	skip, err := r.loadResumePoint(ctx)
	if err != nil {
		return err
	}
	if skip > 0 {
		r.logger.Info("resuming", zap.Uint64("last_applied_op", skip))
	}

	file, err := os.Open(r.cfg.ScenarioPath)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	var applied uint64
	var sinceFlush int
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		applied++
		if applied <= skip {
			continue
		}

		var op Op
		if err := json.Unmarshal(line, &op); err != nil {
			return fmt.Errorf("parse op %d: %w", applied, err)
		}
		if err := r.apply(op); err != nil {
			return fmt.Errorf("apply op %d (%s): %w", applied, op.Kind, err)
		}

		sinceFlush++
		if sinceFlush >= r.cfg.BatchSize {
			if err := r.flush(ctx, applied); err != nil {
				return err
			}
			sinceFlush = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read scenario: %w", err)
	}

	if err := r.flush(ctx, applied); err != nil {
		return err
	}
	r.logger.Info("scenario complete",
		zap.Uint64("ops_applied", applied),
		zap.Int("pools", r.registry.Len()),
		zap.Uint64("notifications", r.recorder.Seq()),
	)
	return nil
}

func (r *Runner) loadResumePoint(ctx context.Context) (uint64, error) {
	if r.state != nil {
		seq, found, err := r.state.LoadState(ctx, r.stateName)
		if err != nil {
			return 0, fmt.Errorf("load state: %w", err)
		}
		if !found {
			return 0, nil
		}
		return seq, nil
	}
	cp, found, err := r.checkpoint.Load()
	if err != nil {
		return 0, fmt.Errorf("load checkpoint: %w", err)
	}
	if !found {
		return 0, nil
	}
	return cp.LastAppliedOp, nil
}

func (r *Runner) flush(ctx context.Context, applied uint64) error {
	batch := r.recorder.Drain()
	if len(batch) > 0 {
		if err := r.storage.PutNotificationBatch(batch); err != nil {
			return fmt.Errorf("write notifications: %w", err)
		}
	}
	if r.state != nil {
		if err := r.state.SaveState(ctx, r.stateName, applied); err != nil {
			return fmt.Errorf("save state: %w", err)
		}
		return nil
	}
	if err := r.checkpoint.Save(applied); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	return nil
}

func (r *Runner) apply(op Op) error {
	switch op.Kind {
	case OpToken:
		addr, err := parseAddr(op.Asset)
		if err != nil {
			return err
		}
		r.book.Register(asset.NewMemoryToken(addr, op.Symbol))
		return nil

	case OpFund:
		addr, err := parseAddr(op.Asset)
		if err != nil {
			return err
		}
		holder, err := parseAddr(op.Holder)
		if err != nil {
			return err
		}
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		token, err := r.book.Get(addr)
		if err != nil {
			return err
		}
		mem, ok := token.(*asset.MemoryToken)
		if !ok {
			return fmt.Errorf("asset %s is not fundable", addr)
		}
		mem.Mint(holder, amount)
		return nil

	case OpCreate:
		assetA, assetB, err := r.pair(op)
		if err != nil {
			return err
		}
		_, err = r.registry.Create(assetA, assetB)
		return err

	case OpDeposit:
		assetA, assetB, err := r.pair(op)
		if err != nil {
			return err
		}
		actor, to, err := r.actorTo(op)
		if err != nil {
			return err
		}
		amountA, err := parseAmount(op.AmountA)
		if err != nil {
			return err
		}
		amountB, err := parseAmount(op.AmountB)
		if err != nil {
			return err
		}
		minA, err := parseAmount(op.MinA)
		if err != nil {
			return err
		}
		minB, err := parseAmount(op.MinB)
		if err != nil {
			return err
		}
		_, _, _, err = r.router.AddLiquidity(actor, assetA, assetB, amountA, amountB, minA, minB, to)
		return err

	case OpWithdraw:
		assetA, assetB, err := r.pair(op)
		if err != nil {
			return err
		}
		actor, to, err := r.actorTo(op)
		if err != nil {
			return err
		}
		claims, err := parseAmount(op.Claims)
		if err != nil {
			return err
		}
		minA, err := parseAmount(op.MinA)
		if err != nil {
			return err
		}
		minB, err := parseAmount(op.MinB)
		if err != nil {
			return err
		}
		_, _, err = r.router.RemoveLiquidity(actor, assetA, assetB, claims, minA, minB, to)
		return err

	case OpSwapIn:
		actor, to, err := r.actorTo(op)
		if err != nil {
			return err
		}
		path, err := parsePath(op.Path)
		if err != nil {
			return err
		}
		amountIn, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		minOut, err := parseAmount(op.AmountMin)
		if err != nil {
			return err
		}
		_, err = r.router.SwapExactIn(actor, amountIn, minOut, path, to)
		return err

	case OpSwapOut:
		actor, to, err := r.actorTo(op)
		if err != nil {
			return err
		}
		path, err := parsePath(op.Path)
		if err != nil {
			return err
		}
		amountOut, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		maxIn, err := parseAmount(op.AmountMax)
		if err != nil {
			return err
		}
		_, err = r.router.SwapExactOut(actor, amountOut, maxIn, path, to)
		return err

	case OpSync:
		assetA, assetB, err := r.pair(op)
		if err != nil {
			return err
		}
		pl, ok := r.registry.Lookup(assetA, assetB)
		if !ok {
			return registry.ErrPoolNotFound
		}
		return pl.Sync()

	case OpAdvance:
		r.clock.Advance(op.Seconds)
		return nil

	default:
		return fmt.Errorf("unknown op kind %q", op.Kind)
	}
}

func (r *Runner) pair(op Op) (common.Address, common.Address, error) {
	assetA, err := parseAddr(op.AssetA)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	assetB, err := parseAddr(op.AssetB)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return assetA, assetB, nil
}

func (r *Runner) actorTo(op Op) (common.Address, common.Address, error) {
	actor, err := parseAddr(op.Actor)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	to := actor
	if op.To != "" {
		if to, err = parseAddr(op.To); err != nil {
			return common.Address{}, common.Address{}, err
		}
	}
	return actor, to, nil
}
