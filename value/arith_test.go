package value

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckedAddInt64Overflow(t *testing.T) {
	_, ok := CheckedAddInt64(MaxInt8, 1, 1)
	require.False(t, ok)

	v, ok := CheckedAddInt64(1, 2, 1)
	require.True(t, ok)
	require.EqualValues(t, 3, v)
}

func TestSaturatingAddInt64Clamps(t *testing.T) {
	require.EqualValues(t, MaxInt8, SaturatingAddInt64(MaxInt8, 10, 1))
	require.EqualValues(t, MinInt8, SaturatingAddInt64(MinInt8, -10, 1))
}

func TestWrappingAddInt64Wraps(t *testing.T) {
	require.EqualValues(t, MinInt8, WrappingAddInt64(MaxInt8, 1, 1))
}

func TestDivisionByZero(t *testing.T) {
	_, ok := CheckedDivInt64(10, 0)
	require.False(t, ok)
	require.EqualValues(t, 0, SaturatingDivInt64(10, 0))
	require.EqualValues(t, 0, WrappingDivInt64(10, 0))

	_, ok = CheckedDivUint64(10, 0)
	require.False(t, ok)
}

func TestBigDivisionByZeroIsIdentity(t *testing.T) {
	x := big.NewInt(42)
	zero := big.NewInt(0)
	require.Equal(t, x, SaturatingDivBig(x, zero))
	require.Equal(t, x, WrappingDivBig(x, zero))
	_, ok := CheckedDivBig(x, zero)
	require.False(t, ok)
}

func TestFloatCheckedHandlesNaNAndInf(t *testing.T) {
	_, ok := CheckedDivFloat64(1, 0)
	require.False(t, ok)

	v := SaturatingAddFloat64(1.7976931348623157e+308, 1.7976931348623157e+308)
	require.Equal(t, 1.7976931348623157e+308, v)
}

func TestCheckedAddFloat64OverflowsToInf(t *testing.T) {
	_, ok := CheckedAddFloat64(math.MaxFloat64, math.MaxFloat64)
	require.False(t, ok, "two finite operands summing to +Inf must be reported as failure, not (Inf, true)")
}

func TestCheckedDivFloat64OverflowsToInf(t *testing.T) {
	_, ok := CheckedDivFloat64(math.MaxFloat64, 1e-300)
	require.False(t, ok)
}

func TestCheckedSubMulFloat64(t *testing.T) {
	v, ok := CheckedSubFloat64(5, 2)
	require.True(t, ok)
	require.Equal(t, 3.0, v)
	_, ok = CheckedSubFloat64(-math.MaxFloat64, math.MaxFloat64)
	require.False(t, ok)

	v, ok = CheckedMulFloat64(3, 4)
	require.True(t, ok)
	require.Equal(t, 12.0, v)
	_, ok = CheckedMulFloat64(math.MaxFloat64, 2)
	require.False(t, ok)
}

func TestSaturatingSubMulDivFloat64(t *testing.T) {
	require.Equal(t, -math.MaxFloat64, SaturatingSubFloat64(-math.MaxFloat64, math.MaxFloat64))
	require.Equal(t, math.MaxFloat64, SaturatingMulFloat64(math.MaxFloat64, 2))
	require.Equal(t, 0.0, SaturatingDivFloat64(10, 0))
}

func TestWrappingSubUint64Underflow(t *testing.T) {
	got := WrappingSubUint64(0, 1, 1)
	require.EqualValues(t, MaxUint8, got)
}

func TestCheckedMulUint64Overflow(t *testing.T) {
	_, ok := CheckedMulUint64(200, 200, 1)
	require.False(t, ok)
	v, ok := CheckedMulUint64(10, 10, 1)
	require.True(t, ok)
	require.EqualValues(t, 100, v)
}
