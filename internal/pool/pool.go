// Package pool implements the constant-product pool ledger: per-pair
// reserves, claim-token accounting, the time-weighted price oracle, and the
// deposit/withdraw/exchange state transitions.
package pool

import (
	"bytes"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolEngine/internal/asset"
	"poolEngine/internal/model"
)

// MinimumLiquidity is the claim quantity permanently locked to the zero
// address on the first deposit, so supply can never return to a manipulable
// near-zero state.
const MinimumLiquidity = 1000

var (
	ErrAlreadyInitialized          = errors.New("pool: already initialized")
	ErrNotInitialized              = errors.New("pool: not initialized")
	ErrUnsortedAssets              = errors.New("pool: assets not in canonical order")
	ErrReentrancy                  = errors.New("pool: reentrant call")
	ErrBalanceOverflow             = errors.New("pool: balance overflow")
	ErrInsufficientLiquidityMinted = errors.New("pool: insufficient liquidity minted")
	ErrInsufficientLiquidityBurned = errors.New("pool: insufficient liquidity burned")
	ErrInsufficientOutputAmount    = errors.New("pool: insufficient output amount")
	ErrInsufficientInputAmount     = errors.New("pool: insufficient input amount")
	ErrInsufficientLiquidity       = errors.New("pool: insufficient liquidity")
	ErrInvalidK                    = errors.New("pool: k invariant violated")
	ErrInvalidRecipient            = errors.New("pool: invalid recipient")
	ErrNoCallee                    = errors.New("pool: callback data without callee")
)

// Clock supplies the current unix time in seconds. The oracle accumulator
// advances on second granularity; tests and the simulator inject their own.
type Clock func() uint64

// Recorder receives the append-only notifications a pool emits. Implementations
// must not call back into the pool.
type Recorder interface {
	Record(n model.Notification)
}

// Callee is the flash-settlement counterparty interface: invoked
// synchronously mid-exchange after outputs are transferred optimistically,
// and expected to move the corresponding input into pool custody before
// returning.
type Callee interface {
	TradeCall(sender common.Address, outA, outB *uint256.Int, data []byte) error
}

// Pool is one constant-product ledger for an unordered asset pair. All
// mutating operations are latched: re-entry during a flash callback fails
// instead of corrupting state. A failed operation reverts every custody and
// claim change it made.
type Pool struct {
	addr     common.Address
	logger   *zap.Logger
	clock    Clock
	recorder Recorder

	assetA asset.Token
	assetB asset.Token

	reserveA   *uint256.Int
	reserveB   *uint256.Int
	lastUpdate uint32

	priceACumulative *uint256.Int
	priceBCumulative *uint256.Int

	claims  *ClaimBook
	entered bool
}

// New builds an uninitialized pool with its own custody address. A nil
// logger, clock, or recorder falls back to a no-op.
func New(addr common.Address, logger *zap.Logger, clock Clock, recorder Recorder) *Pool {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = func() uint64 { return uint64(time.Now().Unix()) }
	}
	return &Pool{
		addr:             addr,
		logger:           logger,
		clock:            clock,
		recorder:         recorder,
		reserveA:         uint256.NewInt(0),
		reserveB:         uint256.NewInt(0),
		priceACumulative: uint256.NewInt(0),
		priceBCumulative: uint256.NewInt(0),
		claims:           NewClaimBook(),
	}
}

// Initialize binds the pool to its asset pair. Called exactly once by the
// registry; tokenA must sort below tokenB.
func (p *Pool) Initialize(tokenA, tokenB asset.Token) error {
	if p.assetA != nil || p.assetB != nil {
		return ErrAlreadyInitialized
	}
	if bytes.Compare(tokenA.Address().Bytes(), tokenB.Address().Bytes()) >= 0 {
		return ErrUnsortedAssets
	}
	p.assetA = tokenA
	p.assetB = tokenB
	return nil
}

// Address returns the pool's custody address.
func (p *Pool) Address() common.Address { return p.addr }

// Assets returns the canonical asset pair identifiers.
func (p *Pool) Assets() (common.Address, common.Address) {
	return p.assetA.Address(), p.assetB.Address()
}

// GetReserves returns the recorded reserves and the timestamp of the last
// reserve update.
func (p *Pool) GetReserves() (*uint256.Int, *uint256.Int, uint32) {
	return p.reserveA.Clone(), p.reserveB.Clone(), p.lastUpdate
}

// PriceCumulatives returns the UQ112.112 time-weighted price accumulators.
func (p *Pool) PriceCumulatives() (*uint256.Int, *uint256.Int) {
	return p.priceACumulative.Clone(), p.priceBCumulative.Clone()
}

// ClaimSupply returns the outstanding claim-token units.
func (p *Pool) ClaimSupply() *uint256.Int { return p.claims.Supply() }

// ClaimBalanceOf returns holder's claim-token units.
func (p *Pool) ClaimBalanceOf(holder common.Address) *uint256.Int {
	return p.claims.BalanceOf(holder)
}

// TransferClaims moves claim tokens between holders. The router uses this to
// move claims into pool custody ahead of a withdrawal.
func (p *Pool) TransferClaims(from, to common.Address, amount *uint256.Int) error {
	return p.claims.transfer(from, to, amount)
}

func (p *Pool) lock() error {
	if p.entered {
		return ErrReentrancy
	}
	p.entered = true
	return nil
}

func (p *Pool) unlock() { p.entered = false }

// balances reads the pool's actual custody of both assets.
func (p *Pool) balances() (*uint256.Int, *uint256.Int, error) {
	balA, err := p.assetA.BalanceOf(p.addr)
	if err != nil {
		return nil, nil, asset.ErrTransferFailed
	}
	balB, err := p.assetB.BalanceOf(p.addr)
	if err != nil {
		return nil, nil, asset.ErrTransferFailed
	}
	return balA, balB, nil
}

// revertPoint captures the custody and claim state a failed operation must
// restore.
type revertPoint struct {
	tokens []asset.Reverter
	snaps  []int
	claims int
}

func (p *Pool) begin() revertPoint {
	rp := revertPoint{claims: p.claims.Snapshot()}
	for _, token := range []asset.Token{p.assetA, p.assetB} {
		if rev, ok := token.(asset.Reverter); ok {
			rp.tokens = append(rp.tokens, rev)
			rp.snaps = append(rp.snaps, rev.Snapshot())
		}
	}
	return rp
}

func (p *Pool) rollback(rp revertPoint) {
	for i := len(rp.tokens) - 1; i >= 0; i-- {
		rp.tokens[i].RevertTo(rp.snaps[i])
	}
	p.claims.RevertTo(rp.claims)
}

// commit releases the snapshots taken by begin so journals do not grow
// across successful operations.
func (p *Pool) commit(rp revertPoint) {
	for i := len(rp.tokens) - 1; i >= 0; i-- {
		rp.tokens[i].Release()
	}
	p.claims.Release()
}

func (p *Pool) notify(kind string, payload interface{}) {
	if p.recorder == nil {
		return
	}
	p.recorder.Record(model.Notification{
		Pool:      p.addr.Hex(),
		Kind:      kind,
		Timestamp: p.clock(),
		Payload:   payload,
	})
}
