package operator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reifydb.io/core/value"
)

func TestHashRowDeterministicAndColumnSensitive(t *testing.T) {
	a := []value.Value{value.Int8(1), value.Utf8("x")}
	b := []value.Value{value.Int8(1), value.Utf8("y")}

	require.Equal(t, hashRow(a, []int{0}), hashRow(b, []int{0}))
	require.NotEqual(t, hashRow(a, []int{0, 1}), hashRow(b, []int{0, 1}))
}
