package curve

import (
	"errors"

	"github.com/holiman/uint256"
)

// Swap fee taken on the input side: 0.3% => multiplier 997/1000.
var (
	feeMul = uint256.NewInt(997)
	feeDen = uint256.NewInt(1000)
)

var (
	ErrZeroAmount            = errors.New("curve: zero amount")
	ErrInsufficientLiquidity = errors.New("curve: insufficient liquidity")
	ErrInvalidPath           = errors.New("curve: invalid path")
	ErrOverflow              = errors.New("curve: amount overflow")
)

// Quote returns the proportional counter-amount for amountIn at the current
// reserve ratio, without any fee. Division truncates toward zero.
func Quote(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrZeroAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}

	num, overflow := new(uint256.Int).MulOverflow(amountIn, reserveOut)
	if overflow {
		return nil, ErrOverflow
	}
	return num.Div(num, reserveIn), nil
}

// AmountOut returns the output amount for a fee-adjusted swap of amountIn
// against the given reserves.
func AmountOut(amountIn, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrZeroAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}

	inWithFee, overflow := new(uint256.Int).MulOverflow(amountIn, feeMul)
	if overflow {
		return nil, ErrOverflow
	}
	num, overflow := new(uint256.Int).MulOverflow(inWithFee, reserveOut)
	if overflow {
		return nil, ErrOverflow
	}
	den := new(uint256.Int).Mul(reserveIn, feeDen)
	den.Add(den, inWithFee)

	return num.Div(num, den), nil
}

// AmountIn returns the input amount required to receive amountOut from the
// given reserves. The result is rounded up so rounding never favors the
// trader.
func AmountIn(amountOut, reserveIn, reserveOut *uint256.Int) (*uint256.Int, error) {
	if amountOut == nil || amountOut.IsZero() {
		return nil, ErrZeroAmount
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	if !amountOut.Lt(reserveOut) {
		return nil, ErrInsufficientLiquidity
	}

	num, overflow := new(uint256.Int).MulOverflow(reserveIn, amountOut)
	if overflow {
		return nil, ErrOverflow
	}
	num, overflow = num.MulOverflow(num, feeDen)
	if overflow {
		return nil, ErrOverflow
	}
	den := new(uint256.Int).Sub(reserveOut, amountOut)
	den.Mul(den, feeMul)

	num.Div(num, den)
	return num.AddUint64(num, 1), nil
}

// Sqrt returns the integer square root of y (Babylonian method).
func Sqrt(y *uint256.Int) *uint256.Int {
	three := uint256.NewInt(3)
	if y.Gt(three) {
		z := y.Clone()
		x := new(uint256.Int).Rsh(y, 1)
		x.AddUint64(x, 1)
		for x.Lt(z) {
			z.Set(x)
			t := new(uint256.Int).Div(y, x)
			t.Add(t, x)
			x.Rsh(t, 1)
		}
		return z
	}
	if !y.IsZero() {
		return uint256.NewInt(1)
	}
	return uint256.NewInt(0)
}

// Min returns the smaller of a and b.
func Min(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return a
	}
	return b
}
