package operator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reifydb.io/core/flow"
	"reifydb.io/core/value"
)

func TestTakeBoundsBufferToN(t *testing.T) {
	tk := NewTake(1, 2, []ColumnSpec{{Name: "n", Type: value.TypeInt8}})
	tx := newTx()

	out, err := tk.Apply(tx, []flow.FlowDiff{flow.Insert{RowIds: []uint64{1, 2, 3}, Post: intFrame(1, 2, 3)}})
	require.NoError(t, err)
	require.Len(t, out, 2) // the third row overflows the buffer and is dropped
}

func TestTakeRemoveFromBufferEmitsRemove(t *testing.T) {
	tk := NewTake(1, 2, []ColumnSpec{{Name: "n", Type: value.TypeInt8}})
	tx := newTx()

	_, err := tk.Apply(tx, []flow.FlowDiff{flow.Insert{RowIds: []uint64{1, 2}, Post: intFrame(1, 2)}})
	require.NoError(t, err)

	out, err := tk.Apply(tx, []flow.FlowDiff{flow.Remove{RowIds: []uint64{1}, Before: intFrame(1)}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, isRemove := out[0].(flow.Remove)
	require.True(t, isRemove)
}
