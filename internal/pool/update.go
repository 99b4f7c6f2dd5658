package pool

import (
	"github.com/holiman/uint256"

	"poolEngine/internal/curve"
	"poolEngine/internal/model"
)

// update records new reserves and advances the price accumulators. The
// accumulators advance by prior-price * elapsed seconds using the reserves
// from before this update, so a trade settled within the same second
// contributes nothing to the oracle. Timestamps and accumulators wrap.
func (p *Pool) update(balanceA, balanceB *uint256.Int) error {
	if balanceA.Gt(curve.MaxReserve) || balanceB.Gt(curve.MaxReserve) {
		return ErrBalanceOverflow
	}

	now := uint32(p.clock())
	elapsed := now - p.lastUpdate
	if elapsed > 0 && !p.reserveA.IsZero() && !p.reserveB.IsZero() {
		dt := uint256.NewInt(uint64(elapsed))

		priceA := curve.DivUQ112(curve.EncodeUQ112(p.reserveB), p.reserveA)
		p.priceACumulative.Add(p.priceACumulative, priceA.Mul(priceA, dt))

		priceB := curve.DivUQ112(curve.EncodeUQ112(p.reserveA), p.reserveB)
		p.priceBCumulative.Add(p.priceBCumulative, priceB.Mul(priceB, dt))
	}

	p.reserveA = balanceA.Clone()
	p.reserveB = balanceB.Clone()
	p.lastUpdate = now

	p.notify(model.KindSync, model.SyncEventData{
		ReserveA: p.reserveA.Dec(),
		ReserveB: p.reserveB.Dec(),
	})
	return nil
}
