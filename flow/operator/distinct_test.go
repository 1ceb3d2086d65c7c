package operator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reifydb.io/core/flow"
)

func TestDistinctEmitsOnlyOnFirstOccurrence(t *testing.T) {
	d := NewDistinct(1, []int{0})
	tx := newTx()

	out, err := d.Apply(tx, []flow.FlowDiff{flow.Insert{RowIds: []uint64{1, 2}, Post: intFrame(7, 7)}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	ins := out[0].(flow.Insert)
	require.Equal(t, []uint64{1}, ins.RowIds)
}

func TestDistinctEmitsRemoveOnLastOccurrenceGone(t *testing.T) {
	d := NewDistinct(1, []int{0})
	tx := newTx()

	_, err := d.Apply(tx, []flow.FlowDiff{flow.Insert{RowIds: []uint64{1, 2}, Post: intFrame(7, 7)}})
	require.NoError(t, err)

	out, err := d.Apply(tx, []flow.FlowDiff{flow.Remove{RowIds: []uint64{1}, Before: intFrame(7)}})
	require.NoError(t, err)
	require.Empty(t, out) // still one live occurrence left

	out, err = d.Apply(tx, []flow.FlowDiff{flow.Remove{RowIds: []uint64{2}, Before: intFrame(7)}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, isRemove := out[0].(flow.Remove)
	require.True(t, isRemove)
}
