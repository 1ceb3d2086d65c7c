// Package frame implements the columnar Frame: an ordered sequence of
// named, typed Columns sharing a row count, plus a parallel RowNumber
// vector (spec.md §3.4/§4.3).
package frame

import (
	"math/big"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"reifydb.io/core/value"
)

// ColumnContainer is the tagged-union contract every concrete typed
// container (NumberContainer[T], BoolContainer, Utf8Container, …)
// implements. Dispatch happens on the Column's value.Type tag, not
// through this interface's dynamic type switch, per spec.md §9's note
// that per-type arithmetic kernels should stay monomorphized — this
// interface exists only for the handful of shape-only operations
// (filter/take/reorder/extend/clone) that every container needs.
type ColumnContainer interface {
	Len() int
	IsDefined(i int) bool
	Value(i int) value.Value
	PushValue(v value.Value)
	PushUndefined()
	Filter(mask *roaring.Bitmap) ColumnContainer
	Take(n int) ColumnContainer
	Reorder(indices []int) ColumnContainer
	Clone() ColumnContainer
	Extend(other ColumnContainer) ColumnContainer
}

// Container is the generic typed payload array + null-bitvec pair
// underlying every concrete container kind in spec.md §3.4
// (NumberContainer<T>, TemporalContainer<T>, UuidContainer<T>, …). A
// set bit in defined means the row at that index holds a value; an
// unset bit means it was pushed via PushUndefined.
//
// Containers are copy-on-write: Clone() shares the backing slice and
// bitmap and marks both copies shared; any subsequent mutator calls
// ensureOwned first, cloning the backing storage exactly once.
type Container[T any] struct {
	data    []T
	defined *roaring.Bitmap
	shared  bool

	zero      T
	toValue   func(T) value.Value
	fromValue func(value.Value) T
}

func newContainer[T any](toValue func(T) value.Value, fromValue func(value.Value) T) *Container[T] {
	return &Container[T]{defined: roaring.New(), toValue: toValue, fromValue: fromValue}
}

func (c *Container[T]) Len() int { return len(c.data) }

func (c *Container[T]) IsDefined(i int) bool {
	return c.defined.Contains(uint32(i))
}

// Get returns the stored value and whether it is defined; the zero
// value of T is returned when undefined, matching the spec's
// `Option<&T>` iteration contract without allocating an Option box.
func (c *Container[T]) Get(i int) (T, bool) {
	if !c.IsDefined(i) {
		return c.zero, false
	}
	return c.data[i], true
}

func (c *Container[T]) Value(i int) value.Value {
	if v, ok := c.Get(i); ok {
		return c.toValue(v)
	}
	return value.Undefined(c.typeOf())
}

// typeOf recovers the value.Type by round-tripping a zero value through
// toValue; used only for constructing Undefined(Type) results.
func (c *Container[T]) typeOf() value.Type {
	return c.toValue(c.zero).Type
}

func (c *Container[T]) ensureOwned() {
	if !c.shared {
		return
	}
	c.data = append([]T(nil), c.data...)
	c.defined = c.defined.Clone()
	c.shared = false
}

func (c *Container[T]) Push(v T) {
	c.ensureOwned()
	c.defined.Add(uint32(len(c.data)))
	c.data = append(c.data, v)
}

func (c *Container[T]) PushUndefined() {
	c.ensureOwned()
	c.data = append(c.data, c.zero)
}

func (c *Container[T]) PushValue(v value.Value) {
	if !v.Defined {
		c.PushUndefined()
		return
	}
	c.Push(c.fromValue(v))
}

func (c *Container[T]) Clone() ColumnContainer {
	c.shared = true
	clone := &Container[T]{
		data:      c.data,
		defined:   c.defined,
		shared:    true,
		toValue:   c.toValue,
		fromValue: c.fromValue,
	}
	return clone
}

// Filter retains rows where mask contains the row index, preserving
// order (spec.md §4.3/§8 frame algebra: len(result) == mask.Cardinality()).
func (c *Container[T]) Filter(mask *roaring.Bitmap) ColumnContainer {
	out := newContainer(c.toValue, c.fromValue)
	it := mask.Iterator()
	for it.HasNext() {
		i := it.Next()
		if int(i) >= len(c.data) {
			break
		}
		if c.IsDefined(int(i)) {
			out.Push(c.data[i])
		} else {
			out.PushUndefined()
		}
	}
	return out
}

func (c *Container[T]) Take(n int) ColumnContainer {
	if n > len(c.data) {
		n = len(c.data)
	}
	out := newContainer(c.toValue, c.fromValue)
	for i := 0; i < n; i++ {
		if c.IsDefined(i) {
			out.Push(c.data[i])
		} else {
			out.PushUndefined()
		}
	}
	return out
}

// Reorder materializes rows in the given index order; an out-of-range
// index produces an undefined row (spec.md §4.3).
func (c *Container[T]) Reorder(indices []int) ColumnContainer {
	out := newContainer(c.toValue, c.fromValue)
	for _, idx := range indices {
		if idx < 0 || idx >= len(c.data) || !c.IsDefined(idx) {
			out.PushUndefined()
			continue
		}
		out.Push(c.data[idx])
	}
	return out
}

func (c *Container[T]) Extend(other ColumnContainer) ColumnContainer {
	o, ok := other.(*Container[T])
	if !ok {
		panic("frame: ENCODING_TYPE_MISMATCH: extend across incompatible container types")
	}
	out := newContainer(c.toValue, c.fromValue)
	base := len(c.data)
	out.data = append(out.data, c.data...)
	out.defined = c.defined.Clone()
	for i := 0; i < o.Len(); i++ {
		if o.IsDefined(i) {
			out.defined.Add(uint32(base + i))
		}
	}
	out.data = append(out.data, o.data...)
	return out
}

// ---- concrete constructors for every container kind in spec.md §3.4 ----

func NewBoolContainer() *Container[bool] {
	return newContainer(value.Bool, func(v value.Value) bool { return v.Data.(bool) })
}

func NewNumberContainer[T any](toValue func(T) value.Value, fromValue func(value.Value) T) *Container[T] {
	return newContainer(toValue, fromValue)
}

func NewInt1Container() *Container[int8] {
	return newContainer(value.Int1, func(v value.Value) int8 { return v.Data.(int8) })
}
func NewInt2Container() *Container[int16] {
	return newContainer(value.Int2, func(v value.Value) int16 { return v.Data.(int16) })
}
func NewInt4Container() *Container[int32] {
	return newContainer(value.Int4, func(v value.Value) int32 { return v.Data.(int32) })
}
func NewInt8Container() *Container[int64] {
	return newContainer(value.Int8, func(v value.Value) int64 { return v.Data.(int64) })
}
func NewUint1Container() *Container[uint8] {
	return newContainer(value.Uint1, func(v value.Value) uint8 { return v.Data.(uint8) })
}
func NewUint2Container() *Container[uint16] {
	return newContainer(value.Uint2, func(v value.Value) uint16 { return v.Data.(uint16) })
}
func NewUint4Container() *Container[uint32] {
	return newContainer(value.Uint4, func(v value.Value) uint32 { return v.Data.(uint32) })
}
func NewUint8Container() *Container[uint64] {
	return newContainer(value.Uint8, func(v value.Value) uint64 { return v.Data.(uint64) })
}
func NewFloat4Container() *Container[float32] {
	return newContainer(value.Float4, func(v value.Value) float32 { return v.Data.(float32) })
}
func NewFloat8Container() *Container[float64] {
	return newContainer(value.Float8, func(v value.Value) float64 { return v.Data.(float64) })
}

func NewInt16Container() *Container[*big.Int] {
	return newContainer(value.Int16, func(v value.Value) *big.Int { return v.Data.(*big.Int) })
}
func NewUint16Container() *Container[*big.Int] {
	return newContainer(value.Uint16, func(v value.Value) *big.Int { return v.Data.(*big.Int) })
}
func NewIntBigContainer() *Container[*big.Int] {
	return newContainer(value.IntBig, func(v value.Value) *big.Int { return v.Data.(*big.Int) })
}
func NewUintBigContainer() *Container[*big.Int] {
	return newContainer(value.UintBig, func(v value.Value) *big.Int { return v.Data.(*big.Int) })
}

func NewDecimalContainer() *Container[decimal.Decimal] {
	return newContainer(value.Decimal, func(v value.Value) decimal.Decimal { return v.Data.(decimal.Decimal) })
}

func NewUtf8Container() *Container[string] {
	return newContainer(value.Utf8, func(v value.Value) string { return v.Data.(string) })
}

func NewBlobContainer() *Container[[]byte] {
	return newContainer(value.Blob, func(v value.Value) []byte { return v.Data.([]byte) })
}

// TemporalContainer[T] covers Date/DateTime (time.Time) and
// Time/Duration (time.Duration); the variant distinguishes the
// value.Type tag since both share the Go representation per field kind.
func NewDateContainer() *Container[time.Time] {
	return newContainer(value.Date, func(v value.Value) time.Time { return v.Data.(time.Time) })
}
func NewDateTimeContainer() *Container[time.Time] {
	return newContainer(value.DateTime, func(v value.Value) time.Time { return v.Data.(time.Time) })
}
func NewTimeContainer() *Container[time.Duration] {
	return newContainer(value.Time, func(v value.Value) time.Duration { return v.Data.(time.Duration) })
}
func NewDurationContainer() *Container[time.Duration] {
	return newContainer(value.Duration, func(v value.Value) time.Duration { return v.Data.(time.Duration) })
}

// UuidContainer[T] is reused for Uuid4/Uuid7/IdentityId, distinguished
// by which constructor (and therefore toValue) is used.
func NewUuid4Container() *Container[uuid.UUID] {
	return newContainer(value.Uuid4, func(v value.Value) uuid.UUID { return v.Data.(uuid.UUID) })
}
func NewUuid7Container() *Container[uuid.UUID] {
	return newContainer(value.Uuid7, func(v value.Value) uuid.UUID { return v.Data.(uuid.UUID) })
}
func NewIdentityIDContainer() *Container[uuid.UUID] {
	return newContainer(value.IdentityID, func(v value.Value) uuid.UUID { return v.Data.(uuid.UUID) })
}

// RowNumberContainer carries the frame's parallel row-identity vector;
// it is not nullable in practice but shares the Container[T] shape for
// uniformity with every other column kind.
func NewRowNumberContainer() *Container[uint64] {
	return newContainer(
		func(v uint64) value.Value { return value.Uint8(v) },
		func(v value.Value) uint64 { return v.Data.(uint64) },
	)
}
