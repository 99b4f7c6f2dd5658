package curve

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ReserveSource resolves the reserves backing a pair of assets. The registry
// satisfies this; path math never mutates pool state.
type ReserveSource interface {
	PairReserves(assetA, assetB common.Address) (reserveA, reserveB *uint256.Int, err error)
}

// AmountsOut applies AmountOut along path, front to back. The result holds
// one amount per path element, starting with amountIn itself.
func AmountsOut(src ReserveSource, path []common.Address, amountIn *uint256.Int) ([]*uint256.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}

	amounts := make([]*uint256.Int, len(path))
	amounts[0] = amountIn.Clone()
	for i := 0; i < len(path)-1; i++ {
		reserveIn, reserveOut, err := src.PairReserves(path[i], path[i+1])
		if err != nil {
			return nil, err
		}
		out, err := AmountOut(amounts[i], reserveIn, reserveOut)
		if err != nil {
			return nil, err
		}
		amounts[i+1] = out
	}
	return amounts, nil
}

// AmountsIn applies AmountIn along path, back to front.
func AmountsIn(src ReserveSource, path []common.Address, amountOut *uint256.Int) ([]*uint256.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}

	amounts := make([]*uint256.Int, len(path))
	amounts[len(path)-1] = amountOut.Clone()
	for i := len(path) - 1; i > 0; i-- {
		reserveIn, reserveOut, err := src.PairReserves(path[i-1], path[i])
		if err != nil {
			return nil, err
		}
		in, err := AmountIn(amounts[i], reserveIn, reserveOut)
		if err != nil {
			return nil, err
		}
		amounts[i-1] = in
	}
	return amounts, nil
}
