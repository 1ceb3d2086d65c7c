package value

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareOrdersWithinType(t *testing.T) {
	require.Equal(t, -1, Compare(Int4(1), Int4(2)))
	require.Equal(t, 1, Compare(Int4(5), Int4(2)))
	require.Equal(t, 0, Compare(Int4(2), Int4(2)))

	require.Equal(t, -1, Compare(Utf8("a"), Utf8("b")))
	require.Equal(t, 1, Compare(Utf8("zz"), Utf8("a")))
}

func TestCompareUndefinedSortsFirst(t *testing.T) {
	u := Undefined(TypeInt4)
	d := Int4(0)
	require.Equal(t, -1, Compare(u, d))
	require.Equal(t, 1, Compare(d, u))
	require.Equal(t, 0, Compare(u, Undefined(TypeInt4)))
}

func TestCompareMismatchedTypesPanics(t *testing.T) {
	require.Panics(t, func() {
		Compare(Int4(1), Uint4(1))
	})
}

func TestCompareBigInts(t *testing.T) {
	a := IntBig(big.NewInt(-1000000000000))
	b := IntBig(big.NewInt(1000000000000))
	require.Equal(t, -1, Compare(a, b))
}

func TestUuid7Monotone(t *testing.T) {
	a, err := NewUuid7()
	require.NoError(t, err)
	b, err := NewUuid7()
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Less(t, a.String(), b.String())
}
