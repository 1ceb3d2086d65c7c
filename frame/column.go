package frame

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"reifydb.io/core/value"
)

// ColumnData is either a ColumnContainer (a concretely typed payload)
// or an undefinedColumn sentinel (spec.md §3.4: "the sentinel Undefined(n)
// for all-undefined columns").
type ColumnData interface {
	Len() int
}

// undefinedColumn represents a column whose type is not yet resolved:
// n rows, all undefined, no payload allocated.
type undefinedColumn struct {
	n int
	t value.Type
}

func (u undefinedColumn) Len() int { return u.n }

// Undefined constructs the Undefined(n) sentinel column data for type t.
func Undefined(t value.Type, n int) ColumnData {
	return undefinedColumn{n: n, t: t}
}

// promote materializes an undefinedColumn into a zero-filled typed
// container with an all-unset bitvec, per this core's resolution of the
// spec.md §9 Open Question on Frame.extend (documented in DESIGN.md):
// `Option{inner: typed zero-filled container of length l, bitvec: l zeros}`.
func (u undefinedColumn) promote() ColumnContainer {
	c := newContainerForType(u.t)
	for i := 0; i < u.n; i++ {
		c.PushUndefined()
	}
	return c
}

// newContainerForType returns a freshly constructed, empty container of
// the concrete kind matching t. Used both for promotion and for
// append_rows (spec.md §4.3) when a Frame's columns are first built
// from a Layout.
func newContainerForType(t value.Type) ColumnContainer {
	switch t {
	case value.TypeBool:
		return NewBoolContainer()
	case value.TypeInt1:
		return NewInt1Container()
	case value.TypeInt2:
		return NewInt2Container()
	case value.TypeInt4:
		return NewInt4Container()
	case value.TypeInt8:
		return NewInt8Container()
	case value.TypeUint1:
		return NewUint1Container()
	case value.TypeUint2:
		return NewUint2Container()
	case value.TypeUint4:
		return NewUint4Container()
	case value.TypeUint8:
		return NewUint8Container()
	case value.TypeFloat4:
		return NewFloat4Container()
	case value.TypeFloat8:
		return NewFloat8Container()
	case value.TypeInt16:
		return NewInt16Container()
	case value.TypeUint16:
		return NewUint16Container()
	case value.TypeInt:
		return NewIntBigContainer()
	case value.TypeUint:
		return NewUintBigContainer()
	case value.TypeDecimal:
		return NewDecimalContainer()
	case value.TypeUtf8:
		return NewUtf8Container()
	case value.TypeBlob:
		return NewBlobContainer()
	case value.TypeDate:
		return NewDateContainer()
	case value.TypeDateTime:
		return NewDateTimeContainer()
	case value.TypeTime:
		return NewTimeContainer()
	case value.TypeDuration:
		return NewDurationContainer()
	case value.TypeUuid4:
		return NewUuid4Container()
	case value.TypeUuid7:
		return NewUuid7Container()
	case value.TypeIdentityId:
		return NewIdentityIDContainer()
	default:
		panic(fmt.Sprintf("frame: no container kind for type %s", t))
	}
}

// Column is one named, typed slot of a Frame: either a concrete
// ColumnContainer or the Undefined(n) sentinel.
type Column struct {
	Name string
	Type value.Type
	Data ColumnData
}

func (c Column) Len() int { return c.Data.Len() }

// AsContainer returns the column's ColumnContainer, promoting an
// undefinedColumn in place first if needed. This is the one place an
// Undefined(n) column becomes materialized storage.
func (c *Column) AsContainer() ColumnContainer {
	if u, ok := c.Data.(undefinedColumn); ok {
		container := u.promote()
		c.Data = container
		return container
	}
	return c.Data.(ColumnContainer)
}

// Value returns the value at row i, dispatching through AsContainer
// only when the column already holds a container (avoids promoting a
// still-Undefined column just to read Undefined back out of it).
func (c Column) Value(i int) value.Value {
	if _, ok := c.Data.(undefinedColumn); ok {
		return value.Undefined(c.Type)
	}
	return c.Data.(ColumnContainer).Value(i)
}

func (c Column) IsDefined(i int) bool {
	if _, ok := c.Data.(undefinedColumn); ok {
		return false
	}
	return c.Data.(ColumnContainer).IsDefined(i)
}

// Filter returns a new Column retaining rows selected by mask.
func (c Column) Filter(mask *roaring.Bitmap) Column {
	if u, ok := c.Data.(undefinedColumn); ok {
		return Column{Name: c.Name, Type: c.Type, Data: undefinedColumn{n: int(mask.GetCardinality()), t: u.t}}
	}
	return Column{Name: c.Name, Type: c.Type, Data: c.Data.(ColumnContainer).Filter(mask)}
}

func (c Column) Take(n int) Column {
	if u, ok := c.Data.(undefinedColumn); ok {
		if n > u.n {
			n = u.n
		}
		return Column{Name: c.Name, Type: c.Type, Data: undefinedColumn{n: n, t: u.t}}
	}
	return Column{Name: c.Name, Type: c.Type, Data: c.Data.(ColumnContainer).Take(n)}
}

func (c Column) Reorder(indices []int) Column {
	if u, ok := c.Data.(undefinedColumn); ok {
		return Column{Name: c.Name, Type: c.Type, Data: undefinedColumn{n: len(indices), t: u.t}}
	}
	return Column{Name: c.Name, Type: c.Type, Data: c.Data.(ColumnContainer).Reorder(indices)}
}

// Extend concatenates other onto c, promoting either side's
// undefinedColumn sentinel to a zero-filled container first (spec.md
// §4.3/§9).
func (c Column) Extend(other Column) Column {
	if c.Name != other.Name || c.Type != other.Type {
		panic(fmt.Sprintf("frame: ENCODING_TYPE_MISMATCH: cannot extend column %q (%s) with %q (%s)",
			c.Name, c.Type, other.Name, other.Type))
	}

	_, selfUndef := c.Data.(undefinedColumn)
	_, otherUndef := other.Data.(undefinedColumn)

	switch {
	case selfUndef && otherUndef:
		a := c.Data.(undefinedColumn)
		b := other.Data.(undefinedColumn)
		return Column{Name: c.Name, Type: c.Type, Data: undefinedColumn{n: a.n + b.n, t: a.t}}
	case selfUndef && !otherUndef:
		promoted := c.AsContainer()
		return Column{Name: c.Name, Type: c.Type, Data: promoted.Extend(other.Data.(ColumnContainer))}
	case !selfUndef && otherUndef:
		otherPromoted := other.AsContainer()
		return Column{Name: c.Name, Type: c.Type, Data: c.Data.(ColumnContainer).Extend(otherPromoted)}
	default:
		return Column{Name: c.Name, Type: c.Type, Data: c.Data.(ColumnContainer).Extend(other.Data.(ColumnContainer))}
	}
}
