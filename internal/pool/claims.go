package pool

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"poolEngine/internal/asset"
)

// ClaimBook tracks the pool's claim-token supply and per-holder balances.
// It is owned by a single Pool; the sum of all balances always equals the
// supply.
type ClaimBook struct {
	supply   *uint256.Int
	balances map[common.Address]*uint256.Int
	journal  []claimChange
	snaps    int
}

type claimChange struct {
	holder common.Address
	prev   *uint256.Int
	supply *uint256.Int
}

func NewClaimBook() *ClaimBook {
	return &ClaimBook{
		supply:   uint256.NewInt(0),
		balances: make(map[common.Address]*uint256.Int),
	}
}

// Supply returns the total outstanding claim units.
func (c *ClaimBook) Supply() *uint256.Int { return c.supply.Clone() }

// BalanceOf returns holder's claim units.
func (c *ClaimBook) BalanceOf(holder common.Address) *uint256.Int {
	if bal, ok := c.balances[holder]; ok {
		return bal.Clone()
	}
	return uint256.NewInt(0)
}

func (c *ClaimBook) record(holder common.Address) {
	var prev *uint256.Int
	if bal, ok := c.balances[holder]; ok {
		prev = bal.Clone()
	}
	c.journal = append(c.journal, claimChange{holder: holder, prev: prev, supply: c.supply.Clone()})
}

func (c *ClaimBook) mint(holder common.Address, amount *uint256.Int) {
	c.record(holder)
	bal, ok := c.balances[holder]
	if !ok {
		bal = uint256.NewInt(0)
		c.balances[holder] = bal
	}
	bal.Add(bal, amount)
	c.supply.Add(c.supply, amount)
}

func (c *ClaimBook) burn(holder common.Address, amount *uint256.Int) error {
	bal, ok := c.balances[holder]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("%w: claim holder %s", asset.ErrInsufficientBalance, holder)
	}
	c.record(holder)
	bal.Sub(bal, amount)
	c.supply.Sub(c.supply, amount)
	return nil
}

func (c *ClaimBook) transfer(from, to common.Address, amount *uint256.Int) error {
	bal, ok := c.balances[from]
	if !ok || bal.Lt(amount) {
		return fmt.Errorf("%w: claim holder %s", asset.ErrInsufficientBalance, from)
	}
	c.record(from)
	c.record(to)
	bal.Sub(bal, amount)
	dst, ok := c.balances[to]
	if !ok {
		dst = uint256.NewInt(0)
		c.balances[to] = dst
	}
	dst.Add(dst, amount)
	return nil
}

// Snapshot marks the current journal position for a later revert or release.
func (c *ClaimBook) Snapshot() int {
	c.snaps++
	return len(c.journal)
}

// RevertTo undoes every change recorded after the given snapshot.
func (c *ClaimBook) RevertTo(snap int) {
	for i := len(c.journal) - 1; i >= snap; i-- {
		ch := c.journal[i]
		if ch.prev == nil {
			delete(c.balances, ch.holder)
		} else {
			c.balances[ch.holder] = ch.prev
		}
		c.supply = ch.supply
	}
	c.journal = c.journal[:snap]
	c.dropSnapshot()
}

// Release discards a snapshot once the operation that took it succeeded,
// freeing the journal when no snapshot remains outstanding.
func (c *ClaimBook) Release() {
	c.dropSnapshot()
}

func (c *ClaimBook) dropSnapshot() {
	if c.snaps > 0 {
		c.snaps--
	}
	if c.snaps == 0 {
		c.journal = c.journal[:0]
	}
}
