// Package router orchestrates multi-hop trades and liquidity management
// across pools. It owns no state: it plans amounts with the pricing math,
// moves funds into pool custody, and drives the pool operations.
package router

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolEngine/internal/asset"
	"poolEngine/internal/curve"
	"poolEngine/internal/pool"
	"poolEngine/internal/registry"
)

var (
	ErrInsufficientAAmount      = errors.New("router: insufficient A amount")
	ErrInsufficientBAmount      = errors.New("router: insufficient B amount")
	ErrInsufficientOutputAmount = errors.New("router: insufficient output amount")
	ErrExcessiveInputAmount     = errors.New("router: excessive input amount")
)

// Router plans and executes operations on behalf of a sender address.
type Router struct {
	registry *registry.Registry
	book     *asset.Book
	logger   *zap.Logger
}

func New(reg *registry.Registry, book *asset.Book, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{registry: reg, book: book, logger: logger}
}

// AddLiquidity deposits into the pair's pool, creating it when absent. The
// desired amounts are trimmed to the current reserve ratio; each trimmed side
// is checked against its own minimum. Returns the amounts actually deposited
// and the claims minted.
func (r *Router) AddLiquidity(
	sender common.Address,
	assetA, assetB common.Address,
	amountADesired, amountBDesired *uint256.Int,
	amountAMin, amountBMin *uint256.Int,
	to common.Address,
) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	pl, ok := r.registry.Lookup(assetA, assetB)
	if !ok {
		created, err := r.registry.Create(assetA, assetB)
		if err != nil {
			return nil, nil, nil, err
		}
		pl = created
	}

	amountA, amountB, err := r.planLiquidity(assetA, assetB, amountADesired, amountBDesired, amountAMin, amountBMin)
	if err != nil {
		return nil, nil, nil, err
	}

	if err := r.transferIn(sender, assetA, pl.Address(), amountA); err != nil {
		return nil, nil, nil, err
	}
	if err := r.transferIn(sender, assetB, pl.Address(), amountB); err != nil {
		if backErr := r.transferOut(pl.Address(), assetA, sender, amountA); backErr != nil {
			return nil, nil, nil, fmt.Errorf("%w (returning funds: %v)", err, backErr)
		}
		return nil, nil, nil, err
	}

	minted, err := pl.Deposit(sender, to)
	if err != nil {
		// Deposit reverted its own effects; hand both legs back too.
		if backErr := r.transferOut(pl.Address(), assetA, sender, amountA); backErr != nil {
			return nil, nil, nil, fmt.Errorf("%w (returning funds: %v)", err, backErr)
		}
		if backErr := r.transferOut(pl.Address(), assetB, sender, amountB); backErr != nil {
			return nil, nil, nil, fmt.Errorf("%w (returning funds: %v)", err, backErr)
		}
		return nil, nil, nil, err
	}
	return amountA, amountB, minted, nil
}

// planLiquidity resolves desired amounts against the current reserve ratio.
func (r *Router) planLiquidity(
	assetA, assetB common.Address,
	amountADesired, amountBDesired *uint256.Int,
	amountAMin, amountBMin *uint256.Int,
) (*uint256.Int, *uint256.Int, error) {
	reserveA, reserveB, err := r.registry.PairReserves(assetA, assetB)
	if err != nil {
		return nil, nil, err
	}
	if reserveA.IsZero() && reserveB.IsZero() {
		return amountADesired.Clone(), amountBDesired.Clone(), nil
	}

	amountBOptimal, err := curve.Quote(amountADesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if !amountBOptimal.Gt(amountBDesired) {
		if amountBOptimal.Lt(amountBMin) {
			return nil, nil, ErrInsufficientBAmount
		}
		return amountADesired.Clone(), amountBOptimal, nil
	}

	amountAOptimal, err := curve.Quote(amountBDesired, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	if amountAOptimal.Gt(amountADesired) {
		return nil, nil, fmt.Errorf("router: optimal A exceeds desired A")
	}
	if amountAOptimal.Lt(amountAMin) {
		return nil, nil, ErrInsufficientAAmount
	}
	return amountAOptimal, amountBDesired.Clone(), nil
}

// RemoveLiquidity burns claims and returns the pro-rata amounts to `to`.
// Expected outputs are planned up front so slippage violations surface before
// any state is touched; each output is checked against its own minimum.
func (r *Router) RemoveLiquidity(
	sender common.Address,
	assetA, assetB common.Address,
	claims *uint256.Int,
	amountAMin, amountBMin *uint256.Int,
	to common.Address,
) (*uint256.Int, *uint256.Int, error) {
	pl, ok := r.registry.Lookup(assetA, assetB)
	if !ok {
		return nil, nil, registry.ErrPoolNotFound
	}

	expectA, expectB, err := r.quoteWithdraw(pl, assetA, claims)
	if err != nil {
		return nil, nil, err
	}
	if expectA.Lt(amountAMin) {
		return nil, nil, ErrInsufficientAAmount
	}
	if expectB.Lt(amountBMin) {
		return nil, nil, ErrInsufficientBAmount
	}

	if err := pl.TransferClaims(sender, pl.Address(), claims); err != nil {
		return nil, nil, err
	}
	outLower, outHigher, err := pl.Withdraw(sender, to)
	if err != nil {
		// Withdraw reverted its own effects; hand the claims back too.
		if backErr := pl.TransferClaims(pl.Address(), sender, claims); backErr != nil {
			return nil, nil, fmt.Errorf("%w (returning claims: %v)", err, backErr)
		}
		return nil, nil, err
	}

	lower, _ := registry.SortAssets(assetA, assetB)
	if assetA != lower {
		outLower, outHigher = outHigher, outLower
	}
	return outLower, outHigher, nil
}

// quoteWithdraw predicts the withdrawal outputs for burning claims, in the
// caller's asset order.
func (r *Router) quoteWithdraw(pl *pool.Pool, assetA common.Address, claims *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	supply := pl.ClaimSupply()
	if supply.IsZero() || claims.IsZero() {
		return nil, nil, pool.ErrInsufficientLiquidityBurned
	}

	lowerAsset, higherAsset := pl.Assets()
	balLower, err := r.custody(lowerAsset, pl.Address())
	if err != nil {
		return nil, nil, err
	}
	balHigher, err := r.custody(higherAsset, pl.Address())
	if err != nil {
		return nil, nil, err
	}

	outLower := new(uint256.Int).Mul(claims, balLower)
	outLower.Div(outLower, supply)
	outHigher := new(uint256.Int).Mul(claims, balHigher)
	outHigher.Div(outHigher, supply)

	if assetA != lowerAsset {
		outLower, outHigher = outHigher, outLower
	}
	return outLower, outHigher, nil
}

// SwapExactIn trades a fixed input along path, delivering at least
// amountOutMin of the final asset to `to`. Intermediate outputs are sent
// directly to the next hop's pool. Returns the planned amount per hop.
func (r *Router) SwapExactIn(
	sender common.Address,
	amountIn, amountOutMin *uint256.Int,
	path []common.Address,
	to common.Address,
) ([]*uint256.Int, error) {
	amounts, err := curve.AmountsOut(r.registry, path, amountIn)
	if err != nil {
		return nil, err
	}
	if amounts[len(amounts)-1].Lt(amountOutMin) {
		return nil, ErrInsufficientOutputAmount
	}
	if err := r.transferIn(sender, path[0], registry.PairAddress(path[0], path[1]), amounts[0]); err != nil {
		return nil, err
	}
	if err := r.executePath(sender, path, amounts, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapExactOut trades along path to deliver exactly amountOut, spending at
// most amountInMax of the first asset.
func (r *Router) SwapExactOut(
	sender common.Address,
	amountOut, amountInMax *uint256.Int,
	path []common.Address,
	to common.Address,
) ([]*uint256.Int, error) {
	amounts, err := curve.AmountsIn(r.registry, path, amountOut)
	if err != nil {
		return nil, err
	}
	if amounts[0].Gt(amountInMax) {
		return nil, ErrExcessiveInputAmount
	}
	if err := r.transferIn(sender, path[0], registry.PairAddress(path[0], path[1]), amounts[0]); err != nil {
		return nil, err
	}
	if err := r.executePath(sender, path, amounts, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// executePath runs the chained exchanges. The input for each hop is already
// in that hop's pool custody when its Exchange runs.
func (r *Router) executePath(sender common.Address, path []common.Address, amounts []*uint256.Int, to common.Address) error {
	for i := 0; i < len(path)-1; i++ {
		assetIn, assetOut := path[i], path[i+1]
		pl, ok := r.registry.Lookup(assetIn, assetOut)
		if !ok {
			return fmt.Errorf("%w: %s/%s", registry.ErrPoolNotFound, assetIn, assetOut)
		}

		outA := uint256.NewInt(0)
		outB := uint256.NewInt(0)
		lower, _ := registry.SortAssets(assetIn, assetOut)
		if assetOut == lower {
			outA = amounts[i+1]
		} else {
			outB = amounts[i+1]
		}

		recipient := to
		if i < len(path)-2 {
			recipient = registry.PairAddress(path[i+1], path[i+2])
		}
		if err := pl.Exchange(sender, outA, outB, recipient, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *Router) transferIn(sender, assetAddr, poolAddr common.Address, amount *uint256.Int) error {
	token, err := r.book.Get(assetAddr)
	if err != nil {
		return err
	}
	return asset.SafeTransfer(token, sender, poolAddr, amount)
}

// transferOut returns funds stranded in pool custody to their sender after a
// failed operation.
func (r *Router) transferOut(poolAddr common.Address, assetAddr, recipient common.Address, amount *uint256.Int) error {
	token, err := r.book.Get(assetAddr)
	if err != nil {
		return err
	}
	return asset.SafeTransfer(token, poolAddr, recipient, amount)
}

func (r *Router) custody(assetAddr, holder common.Address) (*uint256.Int, error) {
	token, err := r.book.Get(assetAddr)
	if err != nil {
		return nil, err
	}
	bal, err := token.BalanceOf(holder)
	if err != nil {
		return nil, asset.ErrTransferFailed
	}
	return bal, nil
}
