package value

import (
	"math"
	"math/big"
	"math/bits"

	"github.com/holiman/uint256"
)

// Integer limit values, used below as the clamp targets for
// Saturating* operations.
const (
	MaxInt8   = 1<<7 - 1
	MinInt8   = -1 << 7
	MaxInt16  = 1<<15 - 1
	MinInt16  = -1 << 15
	MaxInt32  = 1<<31 - 1
	MinInt32  = -1 << 31
	MaxInt64  = 1<<63 - 1
	MinInt64  = -1 << 63
	MaxUint8  = 1<<8 - 1
	MaxUint16 = 1<<16 - 1
	MaxUint32 = 1<<32 - 1
	MaxUint64 = 1<<64 - 1
)

// signedWidth returns the clamp bounds for an N-byte signed integer.
func signedWidth(bytesN int) (min, max int64) {
	switch bytesN {
	case 1:
		return MinInt8, MaxInt8
	case 2:
		return MinInt16, MaxInt16
	case 4:
		return MinInt32, MaxInt32
	case 8:
		return MinInt64, MaxInt64
	default:
		panic("value: unsupported signed width")
	}
}

func unsignedWidthMax(bytesN int) uint64 {
	switch bytesN {
	case 1:
		return MaxUint8
	case 2:
		return MaxUint16
	case 4:
		return MaxUint32
	case 8:
		return MaxUint64
	default:
		panic("value: unsupported unsigned width")
	}
}

// CheckedAddInt64 returns x+y and false if the result overflows an N-byte
// signed integer (N from bytesN, one of 1/2/4/8).
func CheckedAddInt64(x, y int64, bytesN int) (int64, bool) {
	min, max := signedWidth(bytesN)
	sum := x + y
	if (y > 0 && sum < x) || (y < 0 && sum > x) || sum < min || sum > max {
		return 0, false
	}
	return sum, true
}

func SaturatingAddInt64(x, y int64, bytesN int) int64 {
	min, max := signedWidth(bytesN)
	sum, ok := CheckedAddInt64(x, y, bytesN)
	if ok {
		return sum
	}
	if y > 0 {
		return max
	}
	return min
}

func WrappingAddInt64(x, y int64, bytesN int) int64 {
	sum := x + y
	return wrapSigned(sum, bytesN)
}

func CheckedSubInt64(x, y int64, bytesN int) (int64, bool) {
	min, max := signedWidth(bytesN)
	diff := x - y
	if (y < 0 && diff < x) || (y > 0 && diff > x) || diff < min || diff > max {
		return 0, false
	}
	return diff, true
}

func SaturatingSubInt64(x, y int64, bytesN int) int64 {
	min, max := signedWidth(bytesN)
	diff, ok := CheckedSubInt64(x, y, bytesN)
	if ok {
		return diff
	}
	if y < 0 {
		return max
	}
	return min
}

func WrappingSubInt64(x, y int64, bytesN int) int64 {
	return wrapSigned(x-y, bytesN)
}

// CheckedMulInt64 detects overflow by dividing the int64 product back by
// y and checking the result against the N-byte bounds.
func CheckedMulInt64(x, y int64, bytesN int) (int64, bool) {
	min, max := signedWidth(bytesN)
	if x == 0 || y == 0 {
		return 0, true
	}
	product := x * y
	if product/y != x || product < min || product > max {
		return 0, false
	}
	return product, true
}

func SaturatingMulInt64(x, y int64, bytesN int) int64 {
	min, max := signedWidth(bytesN)
	product, ok := CheckedMulInt64(x, y, bytesN)
	if ok {
		return product
	}
	if (x > 0) == (y > 0) {
		return max
	}
	return min
}

func WrappingMulInt64(x, y int64, bytesN int) int64 {
	return wrapSigned(x*y, bytesN)
}

// CheckedDivInt64 returns (x/y, true) unless y is zero, in which case
// it reports failure rather than panicking.
func CheckedDivInt64(x, y int64) (int64, bool) {
	if y == 0 {
		return 0, false
	}
	return x / y, true
}

// SaturatingDivInt64 returns 0 on division by zero.
func SaturatingDivInt64(x, y int64) int64 {
	if y == 0 {
		return 0
	}
	return x / y
}

// WrappingDivInt64 returns 0 on division by zero.
func WrappingDivInt64(x, y int64) int64 {
	if y == 0 {
		return 0
	}
	return x / y
}

func wrapSigned(v int64, bytesN int) int64 {
	bitsN := bytesN * 8
	if bitsN >= 64 {
		return v
	}
	mask := int64(1)<<bitsN - 1
	v &= mask
	signBit := int64(1) << (bitsN - 1)
	if v&signBit != 0 {
		v -= int64(1) << bitsN
	}
	return v
}

// Unsigned variants, built on bits.Add64/bits.Mul64 and widened for
// arbitrary byte widths via a mask.

func CheckedAddUint64(x, y uint64, bytesN int) (uint64, bool) {
	max := unsignedWidthMax(bytesN)
	sum, carry := bits.Add64(x, y, 0)
	if carry != 0 || sum > max {
		return 0, false
	}
	return sum, true
}

func SaturatingAddUint64(x, y uint64, bytesN int) uint64 {
	max := unsignedWidthMax(bytesN)
	sum, ok := CheckedAddUint64(x, y, bytesN)
	if ok {
		return sum
	}
	return max
}

func WrappingAddUint64(x, y uint64, bytesN int) uint64 {
	sum, _ := bits.Add64(x, y, 0)
	return wrapUnsigned(sum, bytesN)
}

func CheckedSubUint64(x, y uint64, bytesN int) (uint64, bool) {
	if y > x {
		return 0, false
	}
	return x - y, true
}

func SaturatingSubUint64(x, y uint64, _ int) uint64 {
	if y > x {
		return 0
	}
	return x - y
}

func WrappingSubUint64(x, y uint64, bytesN int) uint64 {
	diff, borrow := bits.Sub64(x, y, 0)
	if borrow != 0 {
		max := unsignedWidthMax(bytesN)
		diff = (max + 1) + diff
	}
	return wrapUnsigned(diff, bytesN)
}

// CheckedMulUint64 detects overflow via a 256-bit widening multiply
// (the teacher's erigon-lib overflow-checked-arithmetic idiom, adapted
// from uint64 pairs to this package's N-byte unsigned integers) rather
// than the narrower bits.Mul64 hi/lo check alone.
func CheckedMulUint64(x, y uint64, bytesN int) (uint64, bool) {
	max := unsignedWidthMax(bytesN)
	var z uint256.Int
	_, overflow := z.MulOverflow(uint256.NewInt(x), uint256.NewInt(y))
	if overflow || !z.IsUint64() || z.Uint64() > max {
		return 0, false
	}
	return z.Uint64(), true
}

func SaturatingMulUint64(x, y uint64, bytesN int) uint64 {
	max := unsignedWidthMax(bytesN)
	product, ok := CheckedMulUint64(x, y, bytesN)
	if ok {
		return product
	}
	return max
}

func WrappingMulUint64(x, y uint64, bytesN int) uint64 {
	_, lo := bits.Mul64(x, y)
	return wrapUnsigned(lo, bytesN)
}

func CheckedDivUint64(x, y uint64) (uint64, bool) {
	if y == 0 {
		return 0, false
	}
	return x / y, true
}

func SaturatingDivUint64(x, y uint64) uint64 {
	if y == 0 {
		return 0
	}
	return x / y
}

func WrappingDivUint64(x, y uint64) uint64 {
	if y == 0 {
		return 0
	}
	return x / y
}

func wrapUnsigned(v uint64, bytesN int) uint64 {
	bitsN := bytesN * 8
	if bitsN >= 64 {
		return v
	}
	mask := uint64(1)<<bitsN - 1
	return v & mask
}

// Arbitrary-precision (Int/Uint big.Int backed) division: wrapping and
// saturating division by zero return the dividend unchanged.
func CheckedDivBig(x, y *big.Int) (*big.Int, bool) {
	if y.Sign() == 0 {
		return nil, false
	}
	return new(big.Int).Quo(x, y), true
}

func SaturatingDivBig(x, y *big.Int) *big.Int {
	if y.Sign() == 0 {
		return new(big.Int).Set(x)
	}
	return new(big.Int).Quo(x, y)
}

func WrappingDivBig(x, y *big.Int) *big.Int {
	if y.Sign() == 0 {
		return new(big.Int).Set(x)
	}
	return new(big.Int).Quo(x, y)
}

// Float checked/saturating arithmetic must handle NaN and +/-Inf
// explicitly (spec.md §9): a checked op reports failure on either, a
// saturating op clamps +/-Inf to +/-MaxFloat64 and NaN to 0.

// checkedFloatResult reports (0, false) for any non-finite r, (r, true)
// otherwise.
func checkedFloatResult(r float64) (float64, bool) {
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	return r, true
}

// saturatingFloatResult clamps a non-finite r to +/-MaxFloat64; NaN has
// no sign to clamp toward, so it saturates to 0.
func saturatingFloatResult(r float64) float64 {
	switch {
	case math.IsNaN(r):
		return 0
	case math.IsInf(r, 1):
		return math.MaxFloat64
	case math.IsInf(r, -1):
		return -math.MaxFloat64
	default:
		return r
	}
}

func CheckedAddFloat64(x, y float64) (float64, bool) { return checkedFloatResult(x + y) }

func SaturatingAddFloat64(x, y float64) float64 { return saturatingFloatResult(x + y) }

func CheckedSubFloat64(x, y float64) (float64, bool) { return checkedFloatResult(x - y) }

func SaturatingSubFloat64(x, y float64) float64 { return saturatingFloatResult(x - y) }

func CheckedMulFloat64(x, y float64) (float64, bool) { return checkedFloatResult(x * y) }

func SaturatingMulFloat64(x, y float64) float64 { return saturatingFloatResult(x * y) }

func CheckedDivFloat64(x, y float64) (float64, bool) {
	if y == 0 {
		return 0, false
	}
	return checkedFloatResult(x / y)
}

func SaturatingDivFloat64(x, y float64) float64 {
	if y == 0 {
		return 0
	}
	return saturatingFloatResult(x / y)
}
