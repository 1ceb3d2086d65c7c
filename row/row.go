package row

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"reifydb.io/core/value"
)

// Row is an EncodedValues instance: a byte buffer belonging to exactly
// one Layout. The first layout.staticSize bytes are the static section
// (fingerprint + bitvec + fixed/packed fields); any bytes beyond that
// are the dynamic section holding variable-length payloads.
type Row struct {
	layout *Layout
	buf    []byte
}

// Bytes returns the row's full backing buffer (static + dynamic).
func (r *Row) Bytes() []byte { return r.buf }

// DataSlice returns the bytes after the header+bitvec, for debugging or
// serialization (spec.md §4.1).
func (r *Row) DataSlice() []byte {
	return r.buf[r.layout.bitvecOffset+r.layout.bitvecSize:]
}

func (r *Row) bitvec() []byte {
	return r.buf[r.layout.bitvecOffset : r.layout.bitvecOffset+r.layout.bitvecSize]
}

// IsDefined reports whether field i currently holds a defined value.
func (r *Row) IsDefined(i int) bool {
	r.layout.checkIndex(i)
	bv := r.bitvec()
	return bv[i/8]&(1<<uint(i%8)) != 0
}

func (r *Row) setDefinedBit(i int) {
	bv := r.bitvec()
	bv[i/8] |= 1 << uint(i%8)
}

// SetUndefined clears field i's bit. Fixed-width slots are not required
// to be zeroed: readers must consult the bitvec, never the raw payload.
func (r *Row) SetUndefined(i int) {
	r.layout.checkIndex(i)
	bv := r.bitvec()
	bv[i/8] &^= 1 << uint(i%8)
}

// AllDefined reports whether every field's bit is set.
func (r *Row) AllDefined() bool {
	for i := 0; i < r.layout.FieldCount(); i++ {
		if !r.IsDefined(i) {
			return false
		}
	}
	return true
}

func (r *Row) staticField(i int) []byte {
	f := r.layout.Fields[i]
	return r.buf[f.offset : f.offset+f.size]
}

// appendDynamic grows the row's tail and returns the offset it wrote at.
func (r *Row) appendDynamic(payload []byte) (offset uint64) {
	offset = uint64(len(r.buf))
	r.buf = append(r.buf, payload...)
	return offset
}

func (r *Row) dynamicSlice(offset, length uint64) []byte {
	return r.buf[offset : offset+length]
}

// ---- Bool ----

func (r *Row) SetBool(i int, v bool) {
	r.layout.checkIndex(i)
	r.layout.checkType(i, value.TypeBool)
	b := byte(0)
	if v {
		b = 1
	}
	r.staticField(i)[0] = b
	r.setDefinedBit(i)
}

func (r *Row) GetBool(i int) (bool, bool) {
	r.layout.checkIndex(i)
	if !r.IsDefined(i) {
		return false, false
	}
	return r.staticField(i)[0] != 0, true
}

// ---- fixed-width numeric helpers ----

func (r *Row) setFixed(i int, t value.Type, write func([]byte)) {
	r.layout.checkIndex(i)
	r.layout.checkType(i, t)
	write(r.staticField(i))
	r.setDefinedBit(i)
}

func (r *Row) SetInt1(i int, v int8) { r.setFixed(i, value.TypeInt1, func(b []byte) { b[0] = byte(v) }) }
func (r *Row) GetInt1(i int) (int8, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeInt1)
	return int8(r.staticField(i)[0]), true
}

func (r *Row) SetUint1(i int, v uint8) {
	r.setFixed(i, value.TypeUint1, func(b []byte) { b[0] = v })
}
func (r *Row) GetUint1(i int) (uint8, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeUint1)
	return r.staticField(i)[0], true
}

func (r *Row) SetInt2(i int, v int16) {
	r.setFixed(i, value.TypeInt2, func(b []byte) { binary.BigEndian.PutUint16(b, uint16(v)) })
}
func (r *Row) GetInt2(i int) (int16, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeInt2)
	return int16(binary.BigEndian.Uint16(r.staticField(i))), true
}

func (r *Row) SetUint2(i int, v uint16) {
	r.setFixed(i, value.TypeUint2, func(b []byte) { binary.BigEndian.PutUint16(b, v) })
}
func (r *Row) GetUint2(i int) (uint16, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeUint2)
	return binary.BigEndian.Uint16(r.staticField(i)), true
}

func (r *Row) SetInt4(i int, v int32) {
	r.setFixed(i, value.TypeInt4, func(b []byte) { binary.BigEndian.PutUint32(b, uint32(v)) })
}
func (r *Row) GetInt4(i int) (int32, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeInt4)
	return int32(binary.BigEndian.Uint32(r.staticField(i))), true
}

func (r *Row) SetUint4(i int, v uint32) {
	r.setFixed(i, value.TypeUint4, func(b []byte) { binary.BigEndian.PutUint32(b, v) })
}
func (r *Row) GetUint4(i int) (uint32, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeUint4)
	return binary.BigEndian.Uint32(r.staticField(i)), true
}

func (r *Row) SetInt8(i int, v int64) {
	r.setFixed(i, value.TypeInt8, func(b []byte) { binary.BigEndian.PutUint64(b, uint64(v)) })
}
func (r *Row) GetInt8(i int) (int64, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeInt8)
	return int64(binary.BigEndian.Uint64(r.staticField(i))), true
}

func (r *Row) SetUint8(i int, v uint64) {
	r.setFixed(i, value.TypeUint8, func(b []byte) { binary.BigEndian.PutUint64(b, v) })
}
func (r *Row) GetUint8(i int) (uint64, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeUint8)
	return binary.BigEndian.Uint64(r.staticField(i)), true
}

func (r *Row) SetFloat4(i int, v float32) {
	r.setFixed(i, value.TypeFloat4, func(b []byte) { binary.BigEndian.PutUint32(b, math.Float32bits(v)) })
}
func (r *Row) GetFloat4(i int) (float32, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeFloat4)
	return math.Float32frombits(binary.BigEndian.Uint32(r.staticField(i))), true
}

func (r *Row) SetFloat8(i int, v float64) {
	r.setFixed(i, value.TypeFloat8, func(b []byte) { binary.BigEndian.PutUint64(b, math.Float64bits(v)) })
}
func (r *Row) GetFloat8(i int) (float64, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeFloat8)
	return math.Float64frombits(binary.BigEndian.Uint64(r.staticField(i))), true
}

// SetDate stores a date as the number of whole days since the Unix
// epoch (fits comfortably in int32; matches TypeDate's 4-byte width).
func (r *Row) SetDate(i int, v time.Time) {
	days := int32(v.UTC().Truncate(24*time.Hour).Unix() / 86400)
	r.setFixed(i, value.TypeDate, func(b []byte) { binary.BigEndian.PutUint32(b, uint32(days)) })
}
func (r *Row) GetDate(i int) (time.Time, bool) {
	if !r.IsDefined(i) {
		return time.Time{}, false
	}
	r.layout.checkType(i, value.TypeDate)
	days := int32(binary.BigEndian.Uint32(r.staticField(i)))
	return time.Unix(int64(days)*86400, 0).UTC(), true
}

func (r *Row) SetDateTime(i int, v time.Time) {
	r.setFixed(i, value.TypeDateTime, func(b []byte) { binary.BigEndian.PutUint64(b, uint64(v.UTC().UnixNano())) })
}
func (r *Row) GetDateTime(i int) (time.Time, bool) {
	if !r.IsDefined(i) {
		return time.Time{}, false
	}
	r.layout.checkType(i, value.TypeDateTime)
	ns := int64(binary.BigEndian.Uint64(r.staticField(i)))
	return time.Unix(0, ns).UTC(), true
}

func (r *Row) SetDuration(i int, v time.Duration) {
	r.setFixed(i, value.TypeDuration, func(b []byte) { binary.BigEndian.PutUint64(b, uint64(v)) })
}
func (r *Row) GetDuration(i int) (time.Duration, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeDuration)
	return time.Duration(binary.BigEndian.Uint64(r.staticField(i))), true
}

// SetTime stores a wall-clock time-of-day as a duration since midnight
// (TypeTime shares Duration's 8-byte fixed width but is a distinct tag).
func (r *Row) SetTime(i int, v time.Duration) {
	r.setFixed(i, value.TypeTime, func(b []byte) { binary.BigEndian.PutUint64(b, uint64(v)) })
}
func (r *Row) GetTime(i int) (time.Duration, bool) {
	if !r.IsDefined(i) {
		return 0, false
	}
	r.layout.checkType(i, value.TypeTime)
	return time.Duration(binary.BigEndian.Uint64(r.staticField(i))), true
}

func (r *Row) setUUID(i int, t value.Type, v uuid.UUID) {
	r.layout.checkIndex(i)
	r.layout.checkType(i, t)
	copy(r.staticField(i), v[:])
	r.setDefinedBit(i)
}

func (r *Row) getUUID(i int, t value.Type) (uuid.UUID, bool) {
	if !r.IsDefined(i) {
		return uuid.UUID{}, false
	}
	r.layout.checkType(i, t)
	var u uuid.UUID
	copy(u[:], r.staticField(i))
	return u, true
}

func (r *Row) SetUuid4(i int, v uuid.UUID)      { r.setUUID(i, value.TypeUuid4, v) }
func (r *Row) GetUuid4(i int) (uuid.UUID, bool) { return r.getUUID(i, value.TypeUuid4) }
func (r *Row) SetUuid7(i int, v uuid.UUID)      { r.setUUID(i, value.TypeUuid7, v) }
func (r *Row) GetUuid7(i int) (uuid.UUID, bool) { return r.getUUID(i, value.TypeUuid7) }
func (r *Row) SetIdentityID(i int, v uuid.UUID) { r.setUUID(i, value.TypeIdentityId, v) }
func (r *Row) GetIdentityID(i int) (uuid.UUID, bool) {
	return r.getUUID(i, value.TypeIdentityId)
}

// ---- dynamic: Utf8 / Blob ----

// SetUtf8 appends-once semantics: calling set again on an already-set
// dynamic field leaks the previously written bytes in the dynamic
// section, per spec.md §3.2's documented lifecycle trade-off.
func (r *Row) SetUtf8(i int, v string) {
	r.layout.checkIndex(i)
	r.layout.checkType(i, value.TypeUtf8)
	r.setDynamicBytes(i, []byte(v))
	r.setDefinedBit(i)
}

func (r *Row) GetUtf8(i int) (string, bool) {
	if !r.IsDefined(i) {
		return "", false
	}
	r.layout.checkType(i, value.TypeUtf8)
	return string(r.getDynamicBytes(i)), true
}

func (r *Row) SetBlob(i int, v []byte) {
	r.layout.checkIndex(i)
	r.layout.checkType(i, value.TypeBlob)
	r.setDynamicBytes(i, v)
	r.setDefinedBit(i)
}

func (r *Row) GetBlob(i int) ([]byte, bool) {
	if !r.IsDefined(i) {
		return nil, false
	}
	r.layout.checkType(i, value.TypeBlob)
	return r.getDynamicBytes(i), true
}

func (r *Row) setDynamicBytes(i int, payload []byte) {
	word := r.staticField(i)
	if writeInlineBytes(word, payload) {
		return
	}
	offset := r.appendDynamic(payload)
	writeDynamicWord(r.staticField(i), offset, uint64(len(payload)))
}

func (r *Row) getDynamicBytes(i int) []byte {
	word := r.staticField(i)
	if isDynamicWord(word) {
		offset, length := readDynamicWord(word)
		return r.dynamicSlice(offset, length)
	}
	return readInlineBytes(word)
}

// ---- dynamic: arbitrary precision Int / Uint ----

func (r *Row) SetIntBig(i int, v *big.Int) {
	r.layout.checkIndex(i)
	r.layout.checkType(i, value.TypeInt)
	r.setBigInt(i, v, true)
}

func (r *Row) GetIntBig(i int) (*big.Int, bool) {
	if !r.IsDefined(i) {
		return nil, false
	}
	r.layout.checkType(i, value.TypeInt)
	return r.getBigInt(i), true
}

func (r *Row) SetUintBig(i int, v *big.Int) {
	r.layout.checkIndex(i)
	r.layout.checkType(i, value.TypeUint)
	if v.Sign() < 0 {
		panic("row: SetUintBig given a negative value")
	}
	r.setBigInt(i, v, false)
}

func (r *Row) GetUintBig(i int) (*big.Int, bool) {
	if !r.IsDefined(i) {
		return nil, false
	}
	r.layout.checkType(i, value.TypeUint)
	return r.getBigInt(i), true
}

// setBigInt packs [sign byte][magnitude bytes] for both the inline and
// dynamic forms, reusing the byte-string small-form from SetUtf8/SetBlob.
func (r *Row) setBigInt(i int, v *big.Int, signed bool) {
	mag := v.Bytes()
	payload := make([]byte, 1+len(mag))
	if signed && v.Sign() < 0 {
		payload[0] = 1
	}
	copy(payload[1:], mag)
	r.setDynamicBytes(i, payload)
	r.setDefinedBit(i)
}

func (r *Row) getBigInt(i int) *big.Int {
	payload := r.getDynamicBytes(i)
	out := new(big.Int).SetBytes(payload[1:])
	if payload[0] != 0 {
		out.Neg(out)
	}
	return out
}

// ---- dynamic: Decimal ----

// SetDecimal implements the 2-tier packing from spec.md §4.1: inline
// small-form (MSB=0, biased scale byte + signed mantissa) when the
// mantissa fits, else dynamic fallback with an explicit
// [scale int64 LE][sign byte][magnitude bytes] encoding in the dynamic
// section.
func (r *Row) SetDecimal(i int, v decimal.Decimal) {
	r.layout.checkIndex(i)
	r.layout.checkType(i, value.TypeDecimal)
	coeff := v.Coefficient()
	scale := -v.Exponent()
	mag := new(big.Int).Abs(coeff).Bytes()
	negative := coeff.Sign() < 0

	word := r.staticField(i)
	if writeInlineDecimal(word, scale, mag, negative) {
		r.setDefinedBit(i)
		return
	}

	tail := make([]byte, 8+1+len(mag))
	binary.LittleEndian.PutUint64(tail[0:8], uint64(scale))
	if negative {
		tail[8] = 1
	}
	copy(tail[9:], mag)
	offset := r.appendDynamic(tail)
	writeDynamicWord(r.staticField(i), offset, uint64(len(tail)))
	r.setDefinedBit(i)
}

func (r *Row) GetDecimal(i int) (decimal.Decimal, bool) {
	if !r.IsDefined(i) {
		return decimal.Decimal{}, false
	}
	r.layout.checkType(i, value.TypeDecimal)
	word := r.staticField(i)
	if isDynamicWord(word) {
		offset, length := readDynamicWord(word)
		tail := r.dynamicSlice(offset, length)
		scale := int64(binary.LittleEndian.Uint64(tail[0:8]))
		negative := tail[8] != 0
		mag := new(big.Int).SetBytes(tail[9:])
		if negative {
			mag.Neg(mag)
		}
		return decimal.NewFromBigInt(mag, int32(-scale)), true
	}
	scale, mantissaBytes, negative := readInlineDecimal(word)
	mag := new(big.Int).SetBytes(mantissaBytes)
	if negative {
		mag.Neg(mag)
	}
	return decimal.NewFromBigInt(mag, -scale), true
}

// ---- 128-bit fixed Int16 / Uint16 ----

func (r *Row) SetInt16(i int, v *big.Int) {
	r.layout.checkIndex(i)
	r.layout.checkType(i, value.TypeInt16)
	r.setFixed128(i, v, true)
}

func (r *Row) GetInt16(i int) (*big.Int, bool) {
	if !r.IsDefined(i) {
		return nil, false
	}
	r.layout.checkType(i, value.TypeInt16)
	return r.getFixed128(i, true), true
}

func (r *Row) SetUint16(i int, v *big.Int) {
	r.layout.checkIndex(i)
	r.layout.checkType(i, value.TypeUint16)
	r.setFixed128(i, v, false)
}

func (r *Row) GetUint16(i int) (*big.Int, bool) {
	if !r.IsDefined(i) {
		return nil, false
	}
	r.layout.checkType(i, value.TypeUint16)
	return r.getFixed128(i, false), true
}

func (r *Row) setFixed128(i int, v *big.Int, signed bool) {
	slot := r.staticField(i)
	for j := range slot {
		slot[j] = 0
	}
	repr := v
	if signed && v.Sign() < 0 {
		whole := new(big.Int).Lsh(big.NewInt(1), 128)
		repr = new(big.Int).Add(whole, v)
	}
	b := repr.Bytes()
	if len(b) > 16 {
		panic("row: Int16/Uint16 value exceeds 128 bits")
	}
	copy(slot[16-len(b):], b)
	r.setDefinedBit(i)
}

func (r *Row) getFixed128(i int, signed bool) *big.Int {
	slot := r.staticField(i)
	out := new(big.Int).SetBytes(slot)
	if signed && slot[0]&0x80 != 0 {
		whole := new(big.Int).Lsh(big.NewInt(1), 128)
		out.Sub(out, whole)
	}
	return out
}

// Set/Get by generic value.Value, dispatching on value.Type. Used by
// frame.AppendRows and flow operator state (de)serialization, where the
// caller holds an untyped value.Value rather than a concretely typed Go
// value.
func (r *Row) Set(i int, v value.Value) {
	if !v.Defined {
		r.SetUndefined(i)
		return
	}
	switch v.Type {
	case value.TypeBool:
		r.SetBool(i, v.Data.(bool))
	case value.TypeFloat4:
		r.SetFloat4(i, v.Data.(float32))
	case value.TypeFloat8:
		r.SetFloat8(i, v.Data.(float64))
	case value.TypeInt1:
		r.SetInt1(i, v.Data.(int8))
	case value.TypeInt2:
		r.SetInt2(i, v.Data.(int16))
	case value.TypeInt4:
		r.SetInt4(i, v.Data.(int32))
	case value.TypeInt8:
		r.SetInt8(i, v.Data.(int64))
	case value.TypeUint1:
		r.SetUint1(i, v.Data.(uint8))
	case value.TypeUint2:
		r.SetUint2(i, v.Data.(uint16))
	case value.TypeUint4:
		r.SetUint4(i, v.Data.(uint32))
	case value.TypeUint8:
		r.SetUint8(i, v.Data.(uint64))
	case value.TypeUtf8:
		r.SetUtf8(i, v.Data.(string))
	case value.TypeBlob:
		r.SetBlob(i, v.Data.([]byte))
	case value.TypeDate:
		r.SetDate(i, v.Data.(time.Time))
	case value.TypeDateTime:
		r.SetDateTime(i, v.Data.(time.Time))
	case value.TypeDuration:
		r.SetDuration(i, v.Data.(time.Duration))
	case value.TypeTime:
		r.SetTime(i, v.Data.(time.Duration))
	case value.TypeUuid4:
		r.SetUuid4(i, v.Data.(uuid.UUID))
	case value.TypeUuid7:
		r.SetUuid7(i, v.Data.(uuid.UUID))
	case value.TypeIdentityId:
		r.SetIdentityID(i, v.Data.(uuid.UUID))
	case value.TypeInt16:
		r.SetInt16(i, v.Data.(*big.Int))
	case value.TypeUint16:
		r.SetUint16(i, v.Data.(*big.Int))
	case value.TypeInt:
		r.SetIntBig(i, v.Data.(*big.Int))
	case value.TypeUint:
		r.SetUintBig(i, v.Data.(*big.Int))
	case value.TypeDecimal:
		r.SetDecimal(i, v.Data.(decimal.Decimal))
	default:
		panic(fmt.Sprintf("row: Set unsupported type %s", v.Type))
	}
}

func (r *Row) Get(i int) value.Value {
	t := r.layout.Fields[i].typ
	if !r.IsDefined(i) {
		return value.Undefined(t)
	}
	switch t {
	case value.TypeBool:
		v, _ := r.GetBool(i)
		return value.Bool(v)
	case value.TypeFloat4:
		v, _ := r.GetFloat4(i)
		return value.Float4(v)
	case value.TypeFloat8:
		v, _ := r.GetFloat8(i)
		return value.Float8(v)
	case value.TypeInt1:
		v, _ := r.GetInt1(i)
		return value.Int1(v)
	case value.TypeInt2:
		v, _ := r.GetInt2(i)
		return value.Int2(v)
	case value.TypeInt4:
		v, _ := r.GetInt4(i)
		return value.Int4(v)
	case value.TypeInt8:
		v, _ := r.GetInt8(i)
		return value.Int8(v)
	case value.TypeUint1:
		v, _ := r.GetUint1(i)
		return value.Uint1(v)
	case value.TypeUint2:
		v, _ := r.GetUint2(i)
		return value.Uint2(v)
	case value.TypeUint4:
		v, _ := r.GetUint4(i)
		return value.Uint4(v)
	case value.TypeUint8:
		v, _ := r.GetUint8(i)
		return value.Uint8(v)
	case value.TypeUtf8:
		v, _ := r.GetUtf8(i)
		return value.Utf8(v)
	case value.TypeBlob:
		v, _ := r.GetBlob(i)
		return value.Blob(v)
	case value.TypeDate:
		v, _ := r.GetDate(i)
		return value.Date(v)
	case value.TypeDateTime:
		v, _ := r.GetDateTime(i)
		return value.DateTime(v)
	case value.TypeDuration:
		v, _ := r.GetDuration(i)
		return value.Duration(v)
	case value.TypeTime:
		v, _ := r.GetTime(i)
		return value.Time(v)
	case value.TypeUuid4:
		v, _ := r.GetUuid4(i)
		return value.Uuid4(v)
	case value.TypeUuid7:
		v, _ := r.GetUuid7(i)
		return value.Uuid7(v)
	case value.TypeIdentityId:
		v, _ := r.GetIdentityID(i)
		return value.IdentityID(v)
	case value.TypeInt16:
		v, _ := r.GetInt16(i)
		return value.Int16(v)
	case value.TypeUint16:
		v, _ := r.GetUint16(i)
		return value.Uint16(v)
	case value.TypeInt:
		v, _ := r.GetIntBig(i)
		return value.IntBig(v)
	case value.TypeUint:
		v, _ := r.GetUintBig(i)
		return value.UintBig(v)
	case value.TypeDecimal:
		v, _ := r.GetDecimal(i)
		return value.Decimal(v)
	default:
		panic(fmt.Sprintf("row: Get unsupported type %s", t))
	}
}
