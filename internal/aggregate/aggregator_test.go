package aggregate

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"poolEngine/internal/model"
)

type captureMetrics struct {
	metrics []model.PoolWindowMetrics
}

func (c *captureMetrics) PutMetricsBatch(batch []model.PoolWindowMetrics) error {
	c.metrics = append(c.metrics, batch...)
	return nil
}

const poolHex = "0x00000000000000000000000000000000000000f0"

func record(t *testing.T, seq uint64, kind string, ts uint64, payload interface{}) string {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	rec := model.NotificationRecord{
		Seq:       seq,
		Pool:      poolHex,
		Kind:      kind,
		Timestamp: ts,
		Payload:   raw,
	}
	line, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	return string(line)
}

func writeInput(t *testing.T, lines []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notifications.jsonl")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return path
}

func TestAggregatorWindows(t *testing.T) {
	base := uint64(1_700_000_000)
	// The window size is 60; the second trade lands in the next window.
	lines := []string{
		record(t, 1, model.KindDeposit, base+1, model.DepositEventData{AmountA: "1000000", AmountB: "1000000", Minted: "999000"}),
		record(t, 2, model.KindSync, base+1, model.SyncEventData{ReserveA: "1000000", ReserveB: "1000000"}),
		record(t, 3, model.KindTrade, base+10, model.TradeEventData{InA: "100000", InB: "0", OutA: "0", OutB: "90660"}),
		record(t, 4, model.KindSync, base+10, model.SyncEventData{ReserveA: "1100000", ReserveB: "909340"}),
		record(t, 5, model.KindTrade, base+70, model.TradeEventData{InA: "0", InB: "50000", OutA: "57000", OutB: "0"}),
		record(t, 6, model.KindSync, base+70, model.SyncEventData{ReserveA: "1043000", ReserveB: "959340"}),
	}

	sink := &captureMetrics{}
	agg := NewAggregator(Config{WindowSeconds: 60}, sink, nil)
	if err := agg.Run(context.Background(), writeInput(t, lines)); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.metrics) != 2 {
		t.Fatalf("window count: %d", len(sink.metrics))
	}
	first, second := sink.metrics[0], sink.metrics[1]
	if first.WindowStart >= second.WindowStart {
		t.Fatalf("windows not ordered: %d / %d", first.WindowStart, second.WindowStart)
	}

	if first.TradeCount != 1 || first.DepositCount != 1 || first.WithdrawCount != 0 {
		t.Fatalf("first window counts: %d/%d/%d", first.TradeCount, first.DepositCount, first.WithdrawCount)
	}
	if first.VolumeInA != "100000" || first.VolumeOutB != "90660" {
		t.Fatalf("first window volumes: %s / %s", first.VolumeInA, first.VolumeOutB)
	}
	if first.EndReserveA != "1100000" || first.EndReserveB != "909340" {
		t.Fatalf("first window reserves: %s / %s", first.EndReserveA, first.EndReserveB)
	}

	if second.TradeCount != 1 || second.VolumeInB != "50000" || second.VolumeOutA != "57000" {
		t.Fatalf("second window: %d trades, in_b %s, out_a %s", second.TradeCount, second.VolumeInB, second.VolumeOutA)
	}
	if second.EndReserveA != "1043000" || second.EndReserveB != "959340" {
		t.Fatalf("second window reserves: %s / %s", second.EndReserveA, second.EndReserveB)
	}
}

func TestAggregatorSkipsMalformedLines(t *testing.T) {
	base := uint64(1_700_000_000)
	lines := []string{
		"{not json}",
		record(t, 1, model.KindTrade, base, model.TradeEventData{InA: "100", OutB: "90"}),
		"",
	}

	sink := &captureMetrics{}
	agg := NewAggregator(Config{WindowSeconds: 60}, sink, nil)
	if err := agg.Run(context.Background(), writeInput(t, lines)); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.metrics) != 1 {
		t.Fatalf("window count: %d", len(sink.metrics))
	}
	if sink.metrics[0].VolumeInA != "100" {
		t.Fatalf("volume mismatch: %s", sink.metrics[0].VolumeInA)
	}
}

func TestAggregatorRejectsZeroWindow(t *testing.T) {
	agg := NewAggregator(Config{}, &captureMetrics{}, nil)
	if err := agg.Run(context.Background(), "unused"); err == nil {
		t.Fatalf("expected config error")
	}
}

func TestAccumulatorIgnoresEmptyAmounts(t *testing.T) {
	acc := NewAccumulator(poolHex, 0, 60)
	raw, _ := json.Marshal(model.TradeEventData{InA: "", InB: "5", OutA: "", OutB: "4"})
	err := acc.AddRecord(model.NotificationRecord{Kind: model.KindTrade, Payload: raw})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if acc.VolumeInA.Uint64() != 0 || acc.VolumeInB.Uint64() != 5 {
		t.Fatalf("volumes: %s / %s", acc.VolumeInA.Dec(), acc.VolumeInB.Dec())
	}
}
