package aggregate

import (
	"encoding/json"
	"fmt"

	"github.com/holiman/uint256"

	"poolEngine/internal/model"
)

// Accumulator holds aggregate values for one pool window.
type Accumulator struct {
	Pool        string
	WindowStart uint64
	WindowEnd   uint64

	TradeCount    uint64
	DepositCount  uint64
	WithdrawCount uint64

	VolumeInA  *uint256.Int
	VolumeInB  *uint256.Int
	VolumeOutA *uint256.Int
	VolumeOutB *uint256.Int

	EndReserveA *uint256.Int
	EndReserveB *uint256.Int
}

func NewAccumulator(pool string, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		Pool:        pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeInA:   uint256.NewInt(0),
		VolumeInB:   uint256.NewInt(0),
		VolumeOutA:  uint256.NewInt(0),
		VolumeOutB:  uint256.NewInt(0),
		EndReserveA: uint256.NewInt(0),
		EndReserveB: uint256.NewInt(0),
	}
}

// AddRecord folds one notification into the window.
func (a *Accumulator) AddRecord(record model.NotificationRecord) error {
	switch record.Kind {
	case model.KindTrade:
		var trade model.TradeEventData
		if err := json.Unmarshal(record.Payload, &trade); err != nil {
			return fmt.Errorf("decode trade: %w", err)
		}
		if err := addAmount(a.VolumeInA, trade.InA); err != nil {
			return err
		}
		if err := addAmount(a.VolumeInB, trade.InB); err != nil {
			return err
		}
		if err := addAmount(a.VolumeOutA, trade.OutA); err != nil {
			return err
		}
		if err := addAmount(a.VolumeOutB, trade.OutB); err != nil {
			return err
		}
		a.TradeCount++
	case model.KindDeposit:
		a.DepositCount++
	case model.KindWithdraw:
		a.WithdrawCount++
	case model.KindSync:
		var sync model.SyncEventData
		if err := json.Unmarshal(record.Payload, &sync); err != nil {
			return fmt.Errorf("decode sync: %w", err)
		}
		reserveA, err := parseAmount(sync.ReserveA)
		if err != nil {
			return err
		}
		reserveB, err := parseAmount(sync.ReserveB)
		if err != nil {
			return err
		}
		a.EndReserveA = reserveA
		a.EndReserveB = reserveB
	}
	return nil
}

// Metrics freezes the accumulator into its storage record.
func (a *Accumulator) Metrics(windowSize uint64) model.PoolWindowMetrics {
	return model.PoolWindowMetrics{
		Pool:           a.Pool,
		WindowSizeSecs: windowSize,
		WindowStart:    a.WindowStart,
		WindowEnd:      a.WindowEnd,
		TradeCount:     a.TradeCount,
		DepositCount:   a.DepositCount,
		WithdrawCount:  a.WithdrawCount,
		VolumeInA:      a.VolumeInA.Dec(),
		VolumeInB:      a.VolumeInB.Dec(),
		VolumeOutA:     a.VolumeOutA.Dec(),
		VolumeOutB:     a.VolumeOutB.Dec(),
		EndReserveA:    a.EndReserveA.Dec(),
		EndReserveB:    a.EndReserveB.Dec(),
	}
}

func parseAmount(value string) (*uint256.Int, error) {
	if value == "" {
		return uint256.NewInt(0), nil
	}
	parsed, err := uint256.FromDecimal(value)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	return parsed, nil
}

func addAmount(target *uint256.Int, value string) error {
	parsed, err := parseAmount(value)
	if err != nil {
		return err
	}
	target.Add(target, parsed)
	return nil
}
