package pool

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"poolEngine/internal/asset"
	"poolEngine/internal/curve"
	"poolEngine/internal/model"
)

var zeroAddr = common.Address{}

// satSub returns a-b, clamped to zero when b exceeds a.
func satSub(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return uint256.NewInt(0)
	}
	return new(uint256.Int).Sub(a, b)
}

// Deposit mints claim tokens to `to` for the assets moved into pool custody
// since the last reserve update. Moving the assets in first is the caller's
// precondition; the contribution is inferred, never passed as an argument.
func (p *Pool) Deposit(sender, to common.Address) (*uint256.Int, error) {
	if err := p.lock(); err != nil {
		return nil, err
	}
	defer p.unlock()
	if p.assetA == nil {
		return nil, ErrNotInitialized
	}

	rp := p.begin()

	balA, balB, err := p.balances()
	if err != nil {
		p.rollback(rp)
		return nil, err
	}
	amountA := satSub(balA, p.reserveA)
	amountB := satSub(balB, p.reserveB)

	supply := p.claims.Supply()
	var minted *uint256.Int
	if supply.IsZero() {
		product, overflow := new(uint256.Int).MulOverflow(amountA, amountB)
		if overflow {
			p.rollback(rp)
			return nil, ErrBalanceOverflow
		}
		lock := uint256.NewInt(MinimumLiquidity)
		root := curve.Sqrt(product)
		if !root.Gt(lock) {
			p.rollback(rp)
			return nil, ErrInsufficientLiquidityMinted
		}
		minted = root.Sub(root, lock)
		p.claims.mint(zeroAddr, lock)
	} else {
		byA, overflow := new(uint256.Int).MulOverflow(amountA, supply)
		if overflow {
			p.rollback(rp)
			return nil, ErrBalanceOverflow
		}
		byA.Div(byA, p.reserveA)
		byB, overflow := new(uint256.Int).MulOverflow(amountB, supply)
		if overflow {
			p.rollback(rp)
			return nil, ErrBalanceOverflow
		}
		byB.Div(byB, p.reserveB)
		minted = curve.Min(byA, byB).Clone()
	}
	if minted.IsZero() {
		p.rollback(rp)
		return nil, ErrInsufficientLiquidityMinted
	}
	p.claims.mint(to, minted)

	if err := p.update(balA, balB); err != nil {
		p.rollback(rp)
		return nil, err
	}
	p.commit(rp)

	p.notify(model.KindDeposit, model.DepositEventData{
		Sender:  sender.Hex(),
		AmountA: amountA.Dec(),
		AmountB: amountB.Dec(),
		Minted:  minted.Dec(),
		To:      to.Hex(),
	})
	p.logger.Info("deposit",
		zap.String("pool", p.addr.Hex()),
		zap.String("amount_a", amountA.Dec()),
		zap.String("amount_b", amountB.Dec()),
		zap.String("minted", minted.Dec()),
	)
	return minted, nil
}

// Withdraw burns the claim tokens held in the pool's own custody and pays out
// the pro-rata share of actual balances to `to`. Transferring claims in first
// is the caller's precondition.
func (p *Pool) Withdraw(sender, to common.Address) (*uint256.Int, *uint256.Int, error) {
	if err := p.lock(); err != nil {
		return nil, nil, err
	}
	defer p.unlock()
	if p.assetA == nil {
		return nil, nil, ErrNotInitialized
	}

	rp := p.begin()

	claims := p.claims.BalanceOf(p.addr)
	supply := p.claims.Supply()
	if claims.IsZero() || supply.IsZero() {
		p.rollback(rp)
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	balA, balB, err := p.balances()
	if err != nil {
		p.rollback(rp)
		return nil, nil, err
	}

	// Pro-rata against actual custody, not recorded reserves, so donations
	// made outside Deposit are still distributed without a prior Sync.
	amountA, overflow := new(uint256.Int).MulOverflow(claims, balA)
	if overflow {
		p.rollback(rp)
		return nil, nil, ErrBalanceOverflow
	}
	amountA.Div(amountA, supply)
	amountB, overflow := new(uint256.Int).MulOverflow(claims, balB)
	if overflow {
		p.rollback(rp)
		return nil, nil, ErrBalanceOverflow
	}
	amountB.Div(amountB, supply)
	if amountA.IsZero() || amountB.IsZero() {
		p.rollback(rp)
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	if err := p.claims.burn(p.addr, claims); err != nil {
		p.rollback(rp)
		return nil, nil, err
	}
	if err := asset.SafeTransfer(p.assetA, p.addr, to, amountA); err != nil {
		p.rollback(rp)
		return nil, nil, err
	}
	if err := asset.SafeTransfer(p.assetB, p.addr, to, amountB); err != nil {
		p.rollback(rp)
		return nil, nil, err
	}

	balA, balB, err = p.balances()
	if err != nil {
		p.rollback(rp)
		return nil, nil, err
	}
	if err := p.update(balA, balB); err != nil {
		p.rollback(rp)
		return nil, nil, err
	}
	p.commit(rp)

	p.notify(model.KindWithdraw, model.WithdrawEventData{
		Sender:  sender.Hex(),
		AmountA: amountA.Dec(),
		AmountB: amountB.Dec(),
		Burned:  claims.Dec(),
		To:      to.Hex(),
	})
	p.logger.Info("withdraw",
		zap.String("pool", p.addr.Hex()),
		zap.String("amount_a", amountA.Dec()),
		zap.String("amount_b", amountB.Dec()),
		zap.String("burned", claims.Dec()),
	)
	return amountA, amountB, nil
}

// Exchange trades against the pool. Outputs are transferred to `to` before
// any input is received; when data is non-empty the callee is invoked
// synchronously and must move the input into custody before returning (flash
// settlement). The fee-scaled product check then enforces that k did not
// decrease.
func (p *Pool) Exchange(sender common.Address, outA, outB *uint256.Int, to common.Address, data []byte, callee Callee) error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()
	if p.assetA == nil {
		return ErrNotInitialized
	}
	if outA.IsZero() && outB.IsZero() {
		return ErrInsufficientOutputAmount
	}
	if !outA.Lt(p.reserveA) || !outB.Lt(p.reserveB) {
		return ErrInsufficientLiquidity
	}
	if to == p.assetA.Address() || to == p.assetB.Address() {
		return ErrInvalidRecipient
	}

	rp := p.begin()

	if !outA.IsZero() {
		if err := asset.SafeTransfer(p.assetA, p.addr, to, outA); err != nil {
			p.rollback(rp)
			return err
		}
	}
	if !outB.IsZero() {
		if err := asset.SafeTransfer(p.assetB, p.addr, to, outB); err != nil {
			p.rollback(rp)
			return err
		}
	}
	if len(data) > 0 {
		if callee == nil {
			p.rollback(rp)
			return ErrNoCallee
		}
		if err := callee.TradeCall(sender, outA, outB, data); err != nil {
			p.rollback(rp)
			return err
		}
	}

	balA, balB, err := p.balances()
	if err != nil {
		p.rollback(rp)
		return err
	}
	inA := satSub(balA, satSub(p.reserveA, outA))
	inB := satSub(balB, satSub(p.reserveB, outB))
	if inA.IsZero() && inB.IsZero() {
		p.rollback(rp)
		return ErrInsufficientInputAmount
	}

	// Fee-scaled invariant: (bal*1000 - in*3) per side, compared against
	// reserves scaled by 1000^2, avoiding fractional arithmetic.
	adjA, overflow := scaledBalance(balA, inA)
	if overflow {
		p.rollback(rp)
		return ErrBalanceOverflow
	}
	adjB, overflow := scaledBalance(balB, inB)
	if overflow {
		p.rollback(rp)
		return ErrBalanceOverflow
	}
	left, overflow := new(uint256.Int).MulOverflow(adjA, adjB)
	if overflow {
		p.rollback(rp)
		return ErrBalanceOverflow
	}
	right := new(uint256.Int).Mul(p.reserveA, p.reserveB)
	right.Mul(right, uint256.NewInt(1000*1000))
	if left.Lt(right) {
		p.rollback(rp)
		return ErrInvalidK
	}

	if err := p.update(balA, balB); err != nil {
		p.rollback(rp)
		return err
	}
	p.commit(rp)

	p.notify(model.KindTrade, model.TradeEventData{
		Sender:  sender.Hex(),
		InA:     inA.Dec(),
		InB:     inB.Dec(),
		OutA:    outA.Dec(),
		OutB:    outB.Dec(),
		To:      to.Hex(),
		Flashed: len(data) > 0,
	})
	p.logger.Info("trade",
		zap.String("pool", p.addr.Hex()),
		zap.String("in_a", inA.Dec()),
		zap.String("in_b", inB.Dec()),
		zap.String("out_a", outA.Dec()),
		zap.String("out_b", outB.Dec()),
	)
	return nil
}

// Sync realigns recorded reserves with actual custody, advancing the oracle.
// Recovery path for transfers made outside the deposit flow.
func (p *Pool) Sync() error {
	if err := p.lock(); err != nil {
		return err
	}
	defer p.unlock()
	if p.assetA == nil {
		return ErrNotInitialized
	}

	balA, balB, err := p.balances()
	if err != nil {
		return err
	}
	return p.update(balA, balB)
}

// scaledBalance computes balance*1000 - input*3.
func scaledBalance(balance, input *uint256.Int) (*uint256.Int, bool) {
	scaled, overflow := new(uint256.Int).MulOverflow(balance, uint256.NewInt(1000))
	if overflow {
		return nil, true
	}
	fee := new(uint256.Int).Mul(input, uint256.NewInt(3))
	return scaled.Sub(scaled, fee), false
}
