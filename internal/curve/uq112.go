package curve

import "github.com/holiman/uint256"

// Reserve amounts are bounded to 112 bits so that a price fraction of two
// reserves fits a UQ112.112 fixed-point value.
const ReserveBits = 112

// MaxReserve is 2^112 - 1, the largest representable reserve.
var MaxReserve = func() *uint256.Int {
	max := uint256.NewInt(1)
	max.Lsh(max, ReserveBits)
	return max.SubUint64(max, 1)
}()

// EncodeUQ112 lifts y into UQ112.112 fixed point (y << 112).
func EncodeUQ112(y *uint256.Int) *uint256.Int {
	return new(uint256.Int).Lsh(y, ReserveBits)
}

// DivUQ112 divides a UQ112.112 value by a plain integer, staying in
// UQ112.112.
func DivUQ112(x, y *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(x, y)
}
