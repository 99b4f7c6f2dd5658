package sim

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"poolEngine/internal/model"
)

type captureSink struct {
	notifications []model.Notification
}

func (c *captureSink) PutNotificationBatch(batch []model.Notification) error {
	c.notifications = append(c.notifications, batch...)
	return nil
}

const (
	tkA   = "0x0000000000000000000000000000000000000001"
	tkB   = "0x0000000000000000000000000000000000000002"
	actor = "0x0000000000000000000000000000000000000a11"
)

func writeScenario(t *testing.T, ops []Op) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.jsonl")
	var b strings.Builder
	for _, op := range ops {
		line, err := json.Marshal(op)
		if err != nil {
			t.Fatalf("marshal op: %v", err)
		}
		b.Write(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func baseScenario() []Op {
	return []Op{
		{Kind: OpToken, Asset: tkA, Symbol: "TKA"},
		{Kind: OpToken, Asset: tkB, Symbol: "TKB"},
		{Kind: OpFund, Asset: tkA, Holder: actor, Amount: "1100000"},
		{Kind: OpFund, Asset: tkB, Holder: actor, Amount: "1000000"},
		{Kind: OpDeposit, AssetA: tkA, AssetB: tkB, Actor: actor, AmountA: "1000000", AmountB: "1000000"},
		{Kind: OpAdvance, Seconds: 10},
		{Kind: OpSwapIn, Actor: actor, Path: []string{tkA, tkB}, Amount: "100000", AmountMin: "90000"},
		{Kind: OpSync, AssetA: tkA, AssetB: tkB},
	}
}

func TestRunnerReplaysScenario(t *testing.T) {
	sink := &captureSink{}
	runner := NewRunner(RunConfig{
		ScenarioPath: writeScenario(t, baseScenario()),
		BatchSize:    3,
		StartTime:    1_700_000_000,
	}, sink, nil)

	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	wantKinds := []string{
		model.KindPoolCreated,
		model.KindSync,
		model.KindDeposit,
		model.KindSync,
		model.KindTrade,
		model.KindSync,
	}
	if len(sink.notifications) != len(wantKinds) {
		t.Fatalf("notification count: got %d, want %d", len(sink.notifications), len(wantKinds))
	}
	for i, n := range sink.notifications {
		if n.Kind != wantKinds[i] {
			t.Fatalf("notification %d kind: got %s, want %s", i, n.Kind, wantKinds[i])
		}
		if n.Seq != uint64(i+1) {
			t.Fatalf("notification %d seq: got %d", i, n.Seq)
		}
	}

	if runner.registry.Len() != 1 {
		t.Fatalf("pool count: %d", runner.registry.Len())
	}
	pl := runner.registry.All()[0]
	reserveA, reserveB, _ := pl.GetReserves()
	if reserveA.Uint64() != 1_100_000 {
		t.Fatalf("reserveA mismatch: %s", reserveA.Dec())
	}
	if reserveB.Uint64() >= 1_000_000-90_000 {
		t.Fatalf("reserveB did not shrink: %s", reserveB.Dec())
	}
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	scenario := writeScenario(t, baseScenario())
	checkpoint := filepath.Join(t.TempDir(), "checkpoint.json")

	first := &captureSink{}
	runner := NewRunner(RunConfig{
		ScenarioPath:      scenario,
		CheckpointPath:    checkpoint,
		CheckpointEnabled: true,
		StartTime:         1_700_000_000,
	}, first, nil)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first.notifications) == 0 {
		t.Fatalf("first run produced no notifications")
	}

	cp, found, err := NewCheckpointStore(checkpoint, true).Load()
	if err != nil || !found {
		t.Fatalf("load checkpoint: found=%v err=%v", found, err)
	}
	if cp.LastAppliedOp != uint64(len(baseScenario())) {
		t.Fatalf("checkpoint op count: %d", cp.LastAppliedOp)
	}

	// A rerun over the same file skips every op already applied.
	second := &captureSink{}
	rerun := NewRunner(RunConfig{
		ScenarioPath:      scenario,
		CheckpointPath:    checkpoint,
		CheckpointEnabled: true,
		StartTime:         1_700_000_000,
	}, second, nil)
	if err := rerun.Run(context.Background()); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(second.notifications) != 0 {
		t.Fatalf("rerun replayed %d notifications", len(second.notifications))
	}
}

type fakeStateStore struct {
	seqs map[string]uint64
}

func newFakeStateStore() *fakeStateStore {
	return &fakeStateStore{seqs: make(map[string]uint64)}
}

func (f *fakeStateStore) LoadState(_ context.Context, name string) (uint64, bool, error) {
	seq, ok := f.seqs[name]
	return seq, ok, nil
}

func (f *fakeStateStore) SaveState(_ context.Context, name string, seq uint64) error {
	f.seqs[name] = seq
	return nil
}

func TestRunnerResumesFromStateStore(t *testing.T) {
	scenario := writeScenario(t, baseScenario())
	state := newFakeStateStore()

	first := &captureSink{}
	runner := NewRunner(RunConfig{
		ScenarioPath: scenario,
		StartTime:    1_700_000_000,
	}, first, nil)
	runner.UseStateStore(state, scenario)
	if err := runner.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(first.notifications) == 0 {
		t.Fatalf("first run produced no notifications")
	}
	if state.seqs[scenario] != uint64(len(baseScenario())) {
		t.Fatalf("state op count: %d", state.seqs[scenario])
	}

	second := &captureSink{}
	rerun := NewRunner(RunConfig{
		ScenarioPath: scenario,
		StartTime:    1_700_000_000,
	}, second, nil)
	rerun.UseStateStore(state, scenario)
	if err := rerun.Run(context.Background()); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(second.notifications) != 0 {
		t.Fatalf("rerun replayed %d notifications", len(second.notifications))
	}
}

func TestRunnerRejectsMalformedOp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.jsonl")
	if err := os.WriteFile(path, []byte("{not json}\n"), 0o644); err != nil {
		t.Fatalf("write scenario: %v", err)
	}

	runner := NewRunner(RunConfig{ScenarioPath: path}, &captureSink{}, nil)
	if err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRunnerFailsOpOnUnknownAsset(t *testing.T) {
	ops := []Op{
		{Kind: OpFund, Asset: tkA, Holder: actor, Amount: "100"},
	}
	runner := NewRunner(RunConfig{ScenarioPath: writeScenario(t, ops)}, &captureSink{}, nil)
	if err := runner.Run(context.Background()); err == nil {
		t.Fatalf("expected unknown asset error")
	}
}

func TestParseAmount(t *testing.T) {
	v, err := parseAmount("")
	if err != nil || !v.IsZero() {
		t.Fatalf("empty amount: %v %v", v, err)
	}
	v, err = parseAmount("123456789012345678901234567890")
	if err != nil {
		t.Fatalf("big amount: %v", err)
	}
	if v.Dec() != "123456789012345678901234567890" {
		t.Fatalf("big amount mismatch: %s", v.Dec())
	}
	if _, err := parseAmount("abc"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestParseAddr(t *testing.T) {
	if _, err := parseAddr(""); err == nil {
		t.Fatalf("expected error for empty address")
	}
	addr, err := parseAddr(tkA)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if addr.Hex() == "" {
		t.Fatalf("empty address")
	}
}
