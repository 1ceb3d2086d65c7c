package frame

import (
	"testing"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/stretchr/testify/require"

	"reifydb.io/core/row"
	"reifydb.io/core/value"
)

func intColumn(name string, vals ...int32) Column {
	c := NewInt4Container()
	for _, v := range vals {
		c.Push(v)
	}
	return Column{Name: name, Type: value.TypeInt4, Data: c}
}

func TestNewRequiresEqualRowCounts(t *testing.T) {
	a := intColumn("a", 1, 2)
	b := intColumn("b", 1, 2, 3)
	require.Panics(t, func() { New([]Column{a, b}) })
}

func TestFilterPreservesOrderAndCardinality(t *testing.T) {
	f := New([]Column{intColumn("a", 10, 20, 30, 40)})
	mask := roaring.New()
	mask.AddMany([]uint32{0, 2, 3})

	out := f.Filter(mask)
	require.Equal(t, 3, out.RowCount())
	v0, _ := out.Columns[0].Data.(*Container[int32]).Get(0)
	v1, _ := out.Columns[0].Data.(*Container[int32]).Get(1)
	v2, _ := out.Columns[0].Data.(*Container[int32]).Get(2)
	require.EqualValues(t, 10, v0)
	require.EqualValues(t, 30, v1)
	require.EqualValues(t, 40, v2)
}

func TestTakeClampsToRowCount(t *testing.T) {
	f := New([]Column{intColumn("a", 1, 2)})
	out := f.Take(10)
	require.Equal(t, 2, out.RowCount())
}

func TestExtendConcatenatesInOrder(t *testing.T) {
	a := New([]Column{intColumn("x", 1, 2)})
	b := New([]Column{intColumn("x", 3, 4)})
	out := a.Extend(b)
	require.Equal(t, 4, out.RowCount())
	vals := []int32{1, 2, 3, 4}
	for i, want := range vals {
		v, ok := out.Columns[0].Data.(*Container[int32]).Get(i)
		require.True(t, ok)
		require.Equal(t, want, v)
	}
}

func TestExtendUndefinedPromotesToZeroFilledContainer(t *testing.T) {
	undef := Column{Name: "x", Type: value.TypeInt4, Data: Undefined(value.TypeInt4, 2)}
	typed := intColumn("x", 5, 6)

	out := undef.Extend(typed)
	container := out.Data.(*Container[int32])
	require.Equal(t, 4, container.Len())
	require.False(t, container.IsDefined(0))
	require.False(t, container.IsDefined(1))
	v, ok := container.Get(2)
	require.True(t, ok)
	require.EqualValues(t, 5, v)
}

func TestExtendMismatchedColumnsPanics(t *testing.T) {
	a := intColumn("x", 1)
	boolCol := Column{Name: "x", Type: value.TypeBool, Data: NewBoolContainer()}
	require.Panics(t, func() { a.Extend(boolCol) })
}

func TestReorderOutOfRangeBecomesUndefined(t *testing.T) {
	f := New([]Column{intColumn("a", 100, 200)})
	out := f.Reorder([]int{1, 0, 99})
	container := out.Columns[0].Data.(*Container[int32])
	v0, ok0 := container.Get(0)
	require.True(t, ok0)
	require.EqualValues(t, 200, v0)
	_, ok2 := container.Get(2)
	require.False(t, ok2)
}

func TestAppendRowsFromEncodedRows(t *testing.T) {
	layout := row.New(1, []value.Type{value.TypeInt4, value.TypeUtf8})
	r1 := layout.Allocate()
	r1.SetInt4(0, 1)
	r1.SetUtf8(1, "alice")
	r2 := layout.Allocate()
	r2.SetInt4(0, 2)
	// leave field 1 undefined on r2

	f := New([]Column{
		{Name: "id", Type: value.TypeInt4, Data: NewInt4Container()},
		{Name: "name", Type: value.TypeUtf8, Data: NewUtf8Container()},
	})
	f.AppendRows(layout, []*row.Row{r1, r2})

	require.Equal(t, 2, f.RowCount())
	require.Equal(t, value.Int4(1), f.Row(0)[0])
	require.Equal(t, value.Utf8("alice"), f.Row(0)[1])
	require.Equal(t, value.Int4(2), f.Row(1)[0])
	require.False(t, f.Columns[1].IsDefined(1))
}

func TestCloneIsCopyOnWrite(t *testing.T) {
	c := NewInt4Container()
	c.Push(1)
	c.Push(2)

	cloned := c.Clone().(*Container[int32])
	cloned.Push(3)

	require.Equal(t, 2, c.Len(), "original must be unaffected by a push on the clone")
	require.Equal(t, 3, cloned.Len())
}
