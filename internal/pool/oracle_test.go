package pool

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"poolEngine/internal/curve"
)

func uq112(v uint64) *uint256.Int {
	return new(uint256.Int).Lsh(uint256.NewInt(v), curve.ReserveBits)
}

func TestOracleAccumulatesAtEqualReserves(t *testing.T) {
	p, tokenA, tokenB, clock := newTestPool(t)
	seedDeposit(t, p, tokenA, tokenB, unit, unit)

	clock.now += 10
	if err := p.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	cumA, cumB := p.PriceCumulatives()
	want := new(uint256.Int).Mul(uq112(1), uint256.NewInt(10))
	if !cumA.Eq(want) {
		t.Fatalf("cumA mismatch: got %s, want %s", cumA.Dec(), want.Dec())
	}
	if !cumB.Eq(want) {
		t.Fatalf("cumB mismatch: got %s, want %s", cumB.Dec(), want.Dec())
	}
}

func TestOracleAsymmetricReserves(t *testing.T) {
	p, tokenA, tokenB, clock := newTestPool(t)
	seedDeposit(t, p, tokenA, tokenB, 2*unit, unit)

	clock.now += 4
	if err := p.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}

	cumA, cumB := p.PriceCumulatives()
	// Price of A is reserveB/reserveA = 1/2; price of B is 2.
	wantA := new(uint256.Int).Mul(new(uint256.Int).Rsh(uq112(1), 1), uint256.NewInt(4))
	wantB := new(uint256.Int).Mul(uq112(2), uint256.NewInt(4))
	if !cumA.Eq(wantA) {
		t.Fatalf("cumA mismatch: got %s, want %s", cumA.Dec(), wantA.Dec())
	}
	if !cumB.Eq(wantB) {
		t.Fatalf("cumB mismatch: got %s, want %s", cumB.Dec(), wantB.Dec())
	}
}

func TestOracleSameSecondContributesNothing(t *testing.T) {
	p, tokenA, tokenB, _ := newTestPool(t)
	seedDeposit(t, p, tokenA, tokenB, unit, unit)

	// A trade settled in the same second as the last update must not move
	// the accumulator, regardless of how it shifts reserves.
	tokenA.Mint(bob, u(100_000))
	if err := tokenA.Transfer(bob, poolAddr, u(100_000)); err != nil {
		t.Fatalf("transfer in: %v", err)
	}
	if err := p.Exchange(bob, u(0), u(90_000), bob, nil, nil); err != nil {
		t.Fatalf("exchange: %v", err)
	}

	cumA, cumB := p.PriceCumulatives()
	if !cumA.IsZero() || !cumB.IsZero() {
		t.Fatalf("accumulators moved within one second: %s / %s", cumA.Dec(), cumB.Dec())
	}
}

func TestOracleUsesPriorReserves(t *testing.T) {
	p, tokenA, tokenB, clock := newTestPool(t)
	seedDeposit(t, p, tokenA, tokenB, unit, unit)

	// The reserves shift at t+5; the accumulator for that window must be
	// priced at the pre-shift reserves.
	clock.now += 5
	tokenA.Mint(bob, u(100_000))
	if err := tokenA.Transfer(bob, poolAddr, u(100_000)); err != nil {
		t.Fatalf("transfer in: %v", err)
	}
	if err := p.Exchange(bob, u(0), u(90_000), bob, nil, nil); err != nil {
		t.Fatalf("exchange: %v", err)
	}

	cumA, _ := p.PriceCumulatives()
	want := new(uint256.Int).Mul(uq112(1), uint256.NewInt(5))
	if !cumA.Eq(want) {
		t.Fatalf("cumA mismatch: got %s, want %s", cumA.Dec(), want.Dec())
	}
}

func TestSyncRealignsDonation(t *testing.T) {
	p, tokenA, tokenB, _ := newTestPool(t)
	seedDeposit(t, p, tokenA, tokenB, unit, unit)

	tokenA.Mint(poolAddr, u(5000))
	if err := p.Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
	reserveA, _, _ := p.GetReserves()
	if reserveA.Uint64() != unit+5000 {
		t.Fatalf("reserves not realigned: %s", reserveA.Dec())
	}
}

func TestSyncRejectsOverflowingBalance(t *testing.T) {
	p, tokenA, tokenB, _ := newTestPool(t)
	seedDeposit(t, p, tokenA, tokenB, unit, unit)

	over := new(uint256.Int).AddUint64(curve.MaxReserve, 1)
	tokenA.Mint(poolAddr, over)
	if err := p.Sync(); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
}
