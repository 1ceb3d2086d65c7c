package operator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reifydb.io/core/flow"
	"reifydb.io/core/frame"
	"reifydb.io/core/value"
)

func intFrame(vals ...int64) *frame.Frame {
	vs := make([]value.Value, len(vals))
	for i, v := range vals {
		vs[i] = value.Int8(v)
	}
	return frame.New([]frame.Column{col("n", value.TypeInt8, vs...)})
}

func ids(n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = uint64(i + 1)
	}
	return out
}

func TestFilterInsertKeepsOnlyMatching(t *testing.T) {
	f := NewFilter(func(row []value.Value) bool {
		n, _ := row[0].Data.(int64)
		return n > 10
	})
	fr := intFrame(5, 15, 25, 3)
	out, err := f.Apply(newTx(), []flow.FlowDiff{flow.Insert{RowIds: ids(4), Post: fr}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	ins := out[0].(flow.Insert)
	require.Equal(t, []uint64{2, 3}, ins.RowIds)
	require.Equal(t, 2, ins.Post.RowCount())
}

func TestFilterUpdateFlipToTrueEmitsInsert(t *testing.T) {
	f := NewFilter(func(row []value.Value) bool {
		n, _ := row[0].Data.(int64)
		return n > 10
	})
	before := intFrame(5)
	after := intFrame(15)
	out, err := f.Apply(newTx(), []flow.FlowDiff{flow.Update{RowIds: []uint64{1}, Before: before, After: after}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, isInsert := out[0].(flow.Insert)
	require.True(t, isInsert)
}

func TestFilterUpdateFlipToFalseEmitsRemove(t *testing.T) {
	f := NewFilter(func(row []value.Value) bool {
		n, _ := row[0].Data.(int64)
		return n > 10
	})
	before := intFrame(15)
	after := intFrame(5)
	out, err := f.Apply(newTx(), []flow.FlowDiff{flow.Update{RowIds: []uint64{1}, Before: before, After: after}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, isRemove := out[0].(flow.Remove)
	require.True(t, isRemove)
}

func TestFilterUpdateBothMatchEmitsUpdate(t *testing.T) {
	f := NewFilter(func(row []value.Value) bool {
		n, _ := row[0].Data.(int64)
		return n > 10
	})
	before := intFrame(15)
	after := intFrame(20)
	out, err := f.Apply(newTx(), []flow.FlowDiff{flow.Update{RowIds: []uint64{1}, Before: before, After: after}})
	require.NoError(t, err)
	require.Len(t, out, 1)
	_, isUpdate := out[0].(flow.Update)
	require.True(t, isUpdate)
}
