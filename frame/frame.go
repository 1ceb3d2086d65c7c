package frame

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"reifydb.io/core/row"
	"reifydb.io/core/value"
)

// Frame is an ordered sequence of named Columns plus a parallel
// RowNumber vector (spec.md §3.4). All columns share one row count.
type Frame struct {
	Columns   []Column
	RowNumber *Container[uint64]
}

// New constructs a Frame from columns that must all share the same row
// count; the caller is responsible for that invariant (spec.md §4.3:
// "caller asserts").
func New(columns []Column) *Frame {
	if len(columns) > 0 {
		n := columns[0].Len()
		for _, c := range columns[1:] {
			if c.Len() != n {
				panic(fmt.Sprintf("frame: column %q has %d rows, expected %d", c.Name, c.Len(), n))
			}
		}
	}
	return &Frame{Columns: columns, RowNumber: NewRowNumberContainer()}
}

func (f *Frame) RowCount() int {
	if len(f.Columns) == 0 {
		return 0
	}
	return f.Columns[0].Len()
}

func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// AppendRows decodes each row field-by-field through l and pushes each
// field into the matching column's container, per spec.md §4.3. Rows
// must have the same field count and types as the frame's columns, in
// matching order.
func (f *Frame) AppendRows(l *row.Layout, rows []*row.Row) {
	if l.FieldCount() != len(f.Columns) {
		panic("frame: AppendRows layout field count does not match frame column count")
	}
	startRow := uint64(f.RowCount())
	for _, r := range rows {
		for i := range f.Columns {
			f.Columns[i].AsContainer().PushValue(r.Get(i))
		}
	}
	for i := uint64(0); i < uint64(len(rows)); i++ {
		f.RowNumber.Push(startRow + i)
	}
}

// Filter retains rows where mask's bit is set, preserving order.
// len(result) == mask.GetCardinality() (spec.md §8 frame algebra).
func (f *Frame) Filter(mask *roaring.Bitmap) *Frame {
	out := &Frame{Columns: make([]Column, len(f.Columns))}
	for i, c := range f.Columns {
		out.Columns[i] = c.Filter(mask)
	}
	out.RowNumber = f.RowNumber.Filter(mask).(*Container[uint64])
	return out
}

// Take truncates the frame to its first n rows (clamped).
func (f *Frame) Take(n int) *Frame {
	out := &Frame{Columns: make([]Column, len(f.Columns))}
	for i, c := range f.Columns {
		out.Columns[i] = c.Take(n)
	}
	out.RowNumber = f.RowNumber.Take(n).(*Container[uint64])
	return out
}

// Extend concatenates other onto f: rows of f first, then rows of
// other, preserving per-column order (spec.md §4.3/§8). Column schemas
// (name + type, in order) must match exactly; a type mismatch across
// columns at the same position is a fatal ENCODING_TYPE_MISMATCH error.
func (f *Frame) Extend(other *Frame) *Frame {
	if len(f.Columns) != len(other.Columns) {
		panic("frame: ENCODING_TYPE_MISMATCH: extend across frames with different column counts")
	}
	out := &Frame{Columns: make([]Column, len(f.Columns))}
	for i := range f.Columns {
		out.Columns[i] = f.Columns[i].Extend(other.Columns[i])
	}
	out.RowNumber = f.RowNumber.Extend(other.RowNumber).(*Container[uint64])
	return out
}

// Reorder materializes rows in the given order; an out-of-range index
// produces an undefined row in every column (spec.md §4.3).
func (f *Frame) Reorder(indices []int) *Frame {
	out := &Frame{Columns: make([]Column, len(f.Columns))}
	for i, c := range f.Columns {
		out.Columns[i] = c.Reorder(indices)
	}
	out.RowNumber = f.RowNumber.Reorder(indices).(*Container[uint64])
	return out
}

// Row materializes one logical row as a slice of values, in column order.
func (f *Frame) Row(i int) []value.Value {
	out := make([]value.Value, len(f.Columns))
	for j, c := range f.Columns {
		out[j] = c.Value(i)
	}
	return out
}
