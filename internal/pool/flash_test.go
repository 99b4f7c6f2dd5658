package pool

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolEngine/internal/asset"
)

// flashBorrower is a Callee that either repays its borrow plus fee or
// attempts to re-enter the pool mid-callback.
type flashBorrower struct {
	addr    common.Address
	token   *asset.MemoryToken
	pool    *Pool
	repay   *uint256.Int
	reenter bool
	called  bool
}

func (f *flashBorrower) TradeCall(sender common.Address, outA, outB *uint256.Int, data []byte) error {
	f.called = true
	if f.reenter {
		return f.pool.Exchange(sender, uint256.NewInt(1), uint256.NewInt(0), f.addr, nil, nil)
	}
	return f.token.Transfer(f.addr, f.pool.Address(), f.repay)
}

func TestFlashExchangeRepaysWithFee(t *testing.T) {
	p, tokenA, tokenB, _ := newTestPool(t)
	seedDeposit(t, p, tokenA, tokenB, unit, unit)

	// Borrow 100_000 of A; same-asset repayment owes ceil(100_000*1000/997).
	borrower := &flashBorrower{
		addr:  bob,
		token: tokenA,
		pool:  p,
		repay: u(100_301),
	}
	tokenA.Mint(bob, u(301))

	if err := p.Exchange(bob, u(100_000), u(0), bob, []byte{1}, borrower); err != nil {
		t.Fatalf("flash exchange: %v", err)
	}
	if !borrower.called {
		t.Fatalf("callee not invoked")
	}

	reserveA, reserveB, _ := p.GetReserves()
	if reserveA.Uint64() != unit+301 || reserveB.Uint64() != unit {
		t.Fatalf("reserves mismatch: %s / %s", reserveA.Dec(), reserveB.Dec())
	}
	balA, _ := tokenA.BalanceOf(bob)
	if !balA.IsZero() {
		t.Fatalf("borrower kept funds: %s", balA.Dec())
	}
}

func TestFlashExchangeUnderpaidFails(t *testing.T) {
	p, tokenA, tokenB, _ := newTestPool(t)
	seedDeposit(t, p, tokenA, tokenB, unit, unit)

	// One unit short of the owed fee.
	borrower := &flashBorrower{
		addr:  bob,
		token: tokenA,
		pool:  p,
		repay: u(100_300),
	}
	tokenA.Mint(bob, u(300))

	err := p.Exchange(bob, u(100_000), u(0), bob, []byte{1}, borrower)
	if !errors.Is(err, ErrInvalidK) {
		t.Fatalf("expected ErrInvalidK, got %v", err)
	}

	// Everything the callback moved must be unwound.
	balA, _ := tokenA.BalanceOf(bob)
	if balA.Uint64() != 300 {
		t.Fatalf("borrower balance not restored: %s", balA.Dec())
	}
	balPoolA, _ := tokenA.BalanceOf(poolAddr)
	if balPoolA.Uint64() != unit {
		t.Fatalf("pool custody not restored: %s", balPoolA.Dec())
	}
}

func TestFlashReentrancyRejected(t *testing.T) {
	p, tokenA, tokenB, _ := newTestPool(t)
	seedDeposit(t, p, tokenA, tokenB, unit, unit)

	borrower := &flashBorrower{
		addr:    bob,
		token:   tokenA,
		pool:    p,
		reenter: true,
	}

	err := p.Exchange(bob, u(100_000), u(0), bob, []byte{1}, borrower)
	if !errors.Is(err, ErrReentrancy) {
		t.Fatalf("expected ErrReentrancy, got %v", err)
	}

	reserveA, reserveB, _ := p.GetReserves()
	if reserveA.Uint64() != unit || reserveB.Uint64() != unit {
		t.Fatalf("reserves changed: %s / %s", reserveA.Dec(), reserveB.Dec())
	}
	balA, _ := tokenA.BalanceOf(bob)
	if !balA.IsZero() {
		t.Fatalf("optimistic output survived revert: %s", balA.Dec())
	}
}
