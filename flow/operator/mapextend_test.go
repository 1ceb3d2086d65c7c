package operator

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reifydb.io/core/flow"
	"reifydb.io/core/value"
)

func TestMapReplacesRow(t *testing.T) {
	m := NewMap([]ProjExpr{{Name: "doubled", Type: value.TypeInt8, Eval: func(row []value.Value) value.Value {
		n, _ := row[0].Data.(int64)
		return value.Int8(n * 2)
	}}})
	out, err := m.Apply(newTx(), []flow.FlowDiff{flow.Insert{RowIds: []uint64{1}, Post: intFrame(21)}})
	require.NoError(t, err)
	ins := out[0].(flow.Insert)
	require.Len(t, ins.Post.Columns, 1)
	require.Equal(t, int64(42), ins.Post.Row(0)[0].Data)
}

func TestExtendAugmentsRow(t *testing.T) {
	e := NewExtend([]ProjExpr{{Name: "doubled", Type: value.TypeInt8, Eval: func(row []value.Value) value.Value {
		n, _ := row[0].Data.(int64)
		return value.Int8(n * 2)
	}}})
	out, err := e.Apply(newTx(), []flow.FlowDiff{flow.Insert{RowIds: []uint64{1}, Post: intFrame(21)}})
	require.NoError(t, err)
	ins := out[0].(flow.Insert)
	require.Len(t, ins.Post.Columns, 2)
	require.Equal(t, int64(21), ins.Post.Row(0)[0].Data)
	require.Equal(t, int64(42), ins.Post.Row(0)[1].Data)
}
