package value

import (
	"bytes"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Value is a tagged union over the concrete types in Type. Undefined is a
// distinct, first-class state (not a sentinel payload) — callers must
// check Defined before reading Data.
type Value struct {
	Type    Type
	Defined bool
	Data    any
}

// Undefined constructs the Undefined value for a given type, carried
// through frame/row code paths where a typed-but-absent slot is needed.
func Undefined(t Type) Value { return Value{Type: t, Defined: false} }

func Bool(v bool) Value       { return Value{Type: TypeBool, Defined: true, Data: v} }
func Float4(v float32) Value  { return Value{Type: TypeFloat4, Defined: true, Data: v} }
func Float8(v float64) Value  { return Value{Type: TypeFloat8, Defined: true, Data: v} }
func Int1(v int8) Value       { return Value{Type: TypeInt1, Defined: true, Data: v} }
func Int2(v int16) Value      { return Value{Type: TypeInt2, Defined: true, Data: v} }
func Int4(v int32) Value      { return Value{Type: TypeInt4, Defined: true, Data: v} }
func Int8(v int64) Value      { return Value{Type: TypeInt8, Defined: true, Data: v} }
func Uint1(v uint8) Value     { return Value{Type: TypeUint1, Defined: true, Data: v} }
func Uint2(v uint16) Value    { return Value{Type: TypeUint2, Defined: true, Data: v} }
func Uint4(v uint32) Value    { return Value{Type: TypeUint4, Defined: true, Data: v} }
func Uint8(v uint64) Value    { return Value{Type: TypeUint8, Defined: true, Data: v} }
func Utf8(v string) Value     { return Value{Type: TypeUtf8, Defined: true, Data: v} }
func Blob(v []byte) Value     { return Value{Type: TypeBlob, Defined: true, Data: append([]byte(nil), v...)} }
func Date(v time.Time) Value  { return Value{Type: TypeDate, Defined: true, Data: v.UTC().Truncate(24 * time.Hour)} }
func DateTime(v time.Time) Value { return Value{Type: TypeDateTime, Defined: true, Data: v.UTC()} }
func Time(v time.Duration) Value { return Value{Type: TypeTime, Defined: true, Data: v} }
func Duration(v time.Duration) Value { return Value{Type: TypeDuration, Defined: true, Data: v} }

// Int16/Uint16 hold 128-bit signed/unsigned integers, represented with
// math/big but validated to fit in 16 bytes by callers (row package
// enforces this at encode time).
func Int16(v *big.Int) Value  { return Value{Type: TypeInt16, Defined: true, Data: new(big.Int).Set(v)} }
func Uint16(v *big.Int) Value { return Value{Type: TypeUint16, Defined: true, Data: new(big.Int).Set(v)} }

// IntBig/UintBig hold arbitrary precision integers (unbounded width; row
// encoding keeps them inline in the packed word when the sign byte plus
// magnitude fit in 15 bytes, else in the dynamic section).
func IntBig(v *big.Int) Value  { return Value{Type: TypeInt, Defined: true, Data: new(big.Int).Set(v)} }
func UintBig(v *big.Int) Value { return Value{Type: TypeUint, Defined: true, Data: new(big.Int).Set(v)} }

func Decimal(v decimal.Decimal) Value { return Value{Type: TypeDecimal, Defined: true, Data: v} }

func Uuid4(v uuid.UUID) Value      { return Value{Type: TypeUuid4, Defined: true, Data: v} }
func Uuid7(v uuid.UUID) Value      { return Value{Type: TypeUuid7, Defined: true, Data: v} }
func IdentityID(v uuid.UUID) Value { return Value{Type: TypeIdentityId, Defined: true, Data: v} }

// NewUuid7 mints a fresh time-ordered UUIDv7, the form IdentityId wraps.
func NewUuid7() (uuid.UUID, error) { return uuid.NewV7() }

// Compare implements the total order required by spec for every
// concrete Type. Undefined sorts before any defined value of the same
// type; comparing values of different types is a caller error (it
// panics, mirroring the fatal-invariant tier for layout mismatches).
func Compare(a, b Value) int {
	if a.Type != b.Type {
		panic(fmt.Sprintf("value: Compare called on mismatched types %s vs %s", a.Type, b.Type))
	}
	if !a.Defined || !b.Defined {
		switch {
		case !a.Defined && !b.Defined:
			return 0
		case !a.Defined:
			return -1
		default:
			return 1
		}
	}
	switch a.Type {
	case TypeBool:
		return cmpBool(a.Data.(bool), b.Data.(bool))
	case TypeFloat4:
		return cmpOrdered(a.Data.(float32), b.Data.(float32))
	case TypeFloat8:
		return cmpOrdered(a.Data.(float64), b.Data.(float64))
	case TypeInt1:
		return cmpOrdered(a.Data.(int8), b.Data.(int8))
	case TypeInt2:
		return cmpOrdered(a.Data.(int16), b.Data.(int16))
	case TypeInt4:
		return cmpOrdered(a.Data.(int32), b.Data.(int32))
	case TypeInt8:
		return cmpOrdered(a.Data.(int64), b.Data.(int64))
	case TypeUint1:
		return cmpOrdered(a.Data.(uint8), b.Data.(uint8))
	case TypeUint2:
		return cmpOrdered(a.Data.(uint16), b.Data.(uint16))
	case TypeUint4:
		return cmpOrdered(a.Data.(uint32), b.Data.(uint32))
	case TypeUint8:
		return cmpOrdered(a.Data.(uint64), b.Data.(uint64))
	case TypeInt16, TypeUint16, TypeInt, TypeUint:
		return a.Data.(*big.Int).Cmp(b.Data.(*big.Int))
	case TypeUtf8:
		return bytes.Compare([]byte(a.Data.(string)), []byte(b.Data.(string)))
	case TypeBlob:
		return bytes.Compare(a.Data.([]byte), b.Data.([]byte))
	case TypeDate, TypeDateTime:
		ta, tb := a.Data.(time.Time), b.Data.(time.Time)
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		default:
			return 0
		}
	case TypeTime, TypeDuration:
		return cmpOrdered(a.Data.(time.Duration), b.Data.(time.Duration))
	case TypeUuid4, TypeUuid7, TypeIdentityId:
		return bytes.Compare(a.Data.(uuid.UUID).Bytes(), b.Data.(uuid.UUID).Bytes())
	case TypeDecimal:
		return a.Data.(decimal.Decimal).Cmp(b.Data.(decimal.Decimal))
	default:
		panic(fmt.Sprintf("value: Compare unsupported type %s", a.Type))
	}
}

func cmpBool(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1
	}
	return 1
}

type ordered interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func cmpOrdered[T ordered](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
