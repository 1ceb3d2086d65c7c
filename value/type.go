// Package value implements the tagged value domain that underlies every
// other component: encoded rows (package row), columnar frames (package
// frame), and key encoding (package keycodec) all dispatch on the Type
// tags defined here.
package value

// Type tags every concrete value kind in the domain. Each has a total
// order and a fixed or variable wire width (see IsFixedWidth/FixedWidth).
type Type uint8

const (
	TypeUndefined Type = iota
	TypeBool
	TypeFloat4
	TypeFloat8
	TypeInt1
	TypeInt2
	TypeInt4
	TypeInt8
	TypeInt16
	TypeUint1
	TypeUint2
	TypeUint4
	TypeUint8
	TypeUint16
	TypeUtf8
	TypeDate
	TypeDateTime
	TypeTime
	TypeDuration
	TypeUuid4
	TypeUuid7
	TypeIdentityId
	TypeBlob
	TypeInt    // arbitrary precision signed
	TypeUint   // arbitrary precision unsigned
	TypeDecimal
)

func (t Type) String() string {
	switch t {
	case TypeUndefined:
		return "undefined"
	case TypeBool:
		return "bool"
	case TypeFloat4:
		return "float4"
	case TypeFloat8:
		return "float8"
	case TypeInt1:
		return "int1"
	case TypeInt2:
		return "int2"
	case TypeInt4:
		return "int4"
	case TypeInt8:
		return "int8"
	case TypeInt16:
		return "int16"
	case TypeUint1:
		return "uint1"
	case TypeUint2:
		return "uint2"
	case TypeUint4:
		return "uint4"
	case TypeUint8:
		return "uint8"
	case TypeUint16:
		return "uint16"
	case TypeUtf8:
		return "utf8"
	case TypeDate:
		return "date"
	case TypeDateTime:
		return "datetime"
	case TypeTime:
		return "time"
	case TypeDuration:
		return "duration"
	case TypeUuid4:
		return "uuid4"
	case TypeUuid7:
		return "uuid7"
	case TypeIdentityId:
		return "identity_id"
	case TypeBlob:
		return "blob"
	case TypeInt:
		return "int"
	case TypeUint:
		return "uint"
	case TypeDecimal:
		return "decimal"
	default:
		return "unknown"
	}
}

// IsFixedWidth reports whether values of this type occupy a fixed number
// of bytes in a row's static section (as opposed to spilling into the
// dynamic section when large).
func (t Type) IsFixedWidth() bool {
	switch t {
	case TypeUtf8, TypeBlob, TypeInt, TypeUint, TypeDecimal:
		return false
	default:
		return true
	}
}

// FixedWidth returns the byte width of a fixed-width type's static slot.
// Variable-length types always occupy a 16-byte (128-bit) packed word in
// the static section regardless of payload size; callers must check
// IsFixedWidth first.
func (t Type) FixedWidth() int {
	switch t {
	case TypeBool, TypeInt1, TypeUint1:
		return 1
	case TypeInt2, TypeUint2:
		return 2
	case TypeFloat4, TypeInt4, TypeUint4, TypeDate:
		return 4
	case TypeFloat8, TypeInt8, TypeUint8, TypeDateTime, TypeTime, TypeDuration:
		return 8
	case TypeInt16, TypeUint16, TypeUuid4, TypeUuid7, TypeIdentityId:
		return 16
	default:
		return 16 // packed word for variable-length fields
	}
}

// Alignment returns the byte alignment required for this type's static
// slot. Variable-length fields align like a 16-byte word (8-byte offset
// field dominates).
func (t Type) Alignment() int {
	switch t {
	case TypeBool, TypeInt1, TypeUint1:
		return 1
	case TypeInt2, TypeUint2:
		return 2
	case TypeFloat4, TypeInt4, TypeUint4, TypeDate:
		return 4
	default:
		return 8
	}
}
