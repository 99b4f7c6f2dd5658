package asset

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// MemoryToken is an in-memory fungible asset used by the simulator and tests.
// It supports snapshot/revert so a failed pool operation can discard every
// balance change it caused.
type MemoryToken struct {
	addr     common.Address
	symbol   string
	balances map[common.Address]*uint256.Int
	supply   *uint256.Int
	journal  []balanceChange
	snaps    int
}

type balanceChange struct {
	holder common.Address
	prev   *uint256.Int
	supply *uint256.Int
}

func NewMemoryToken(addr common.Address, symbol string) *MemoryToken {
	return &MemoryToken{
		addr:     addr,
		symbol:   symbol,
		balances: make(map[common.Address]*uint256.Int),
		supply:   uint256.NewInt(0),
	}
}

func (t *MemoryToken) Address() common.Address { return t.addr }

func (t *MemoryToken) Symbol() string { return t.symbol }

// TotalSupply returns the total minted amount.
func (t *MemoryToken) TotalSupply() *uint256.Int { return t.supply.Clone() }

func (t *MemoryToken) BalanceOf(holder common.Address) (*uint256.Int, error) {
	if bal, ok := t.balances[holder]; ok {
		return bal.Clone(), nil
	}
	return uint256.NewInt(0), nil
}

func (t *MemoryToken) record(holder common.Address) {
	var prev *uint256.Int
	if bal, ok := t.balances[holder]; ok {
		prev = bal.Clone()
	}
	t.journal = append(t.journal, balanceChange{holder: holder, prev: prev, supply: t.supply.Clone()})
}

// Mint credits amount to holder.
func (t *MemoryToken) Mint(holder common.Address, amount *uint256.Int) {
	t.record(holder)
	bal, ok := t.balances[holder]
	if !ok {
		bal = uint256.NewInt(0)
		t.balances[holder] = bal
	}
	bal.Add(bal, amount)
	t.supply.Add(t.supply, amount)
}

func (t *MemoryToken) Transfer(from, to common.Address, amount *uint256.Int) error {
	bal, ok := t.balances[from]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("%w: %s holder %s", ErrInsufficientBalance, t.symbol, from)
	}
	t.record(from)
	t.record(to)
	bal.Sub(bal, amount)

	dst, ok := t.balances[to]
	if !ok {
		dst = uint256.NewInt(0)
		t.balances[to] = dst
	}
	dst.Add(dst, amount)
	return nil
}

// Snapshot marks the current journal position for a later revert or release.
func (t *MemoryToken) Snapshot() int {
	t.snaps++
	return len(t.journal)
}

// RevertTo undoes every change recorded after the given snapshot.
func (t *MemoryToken) RevertTo(snap int) {
	for i := len(t.journal) - 1; i >= snap; i-- {
		ch := t.journal[i]
		if ch.prev == nil {
			delete(t.balances, ch.holder)
		} else {
			t.balances[ch.holder] = ch.prev
		}
		t.supply = ch.supply
	}
	t.journal = t.journal[:snap]
	t.dropSnapshot()
}

// Release discards a snapshot after the operation that took it succeeded.
// The journal is freed once no snapshot is outstanding; entries must stay as
// long as an enclosing snapshot could still revert them.
func (t *MemoryToken) Release() {
	t.dropSnapshot()
}

func (t *MemoryToken) dropSnapshot() {
	if t.snaps > 0 {
		t.snaps--
	}
	if t.snaps == 0 {
		t.journal = t.journal[:0]
	}
}
