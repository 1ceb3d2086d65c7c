// Package keycodec implements the order-preserving key encoding used for
// every persistent key in the store (spec.md §6.1).
//
// Contract: for any serializable value with total order ≤, encode(a) ≤
// encode(b) (byte-lexicographic) iff a ≤ b. This is achieved with
// big-endian encoding plus an optional bitwise-NOT inversion, applied
// per key kind rather than per call, so a given Kind's ordering policy
// is fixed and never accidentally toggled by a caller.
package keycodec

import (
	"encoding/binary"
	"fmt"
)

// KeyVersion is the single on-wire format version this codec emits.
const KeyVersion byte = 1

// Kind tags the body format following <version><kind> in every key.
type Kind byte

const (
	KindNextVersion Kind = iota + 1
	KindTxActive
	KindTxActiveSnapshot
	KindTxWrite
	KindVersion
	KindIndexEntry
	KindRow
	KindPrimaryKey
	KindCdc
	KindOperatorState
	KindViewRowSeq
)

func (k Kind) String() string {
	switch k {
	case KindNextVersion:
		return "NextVersion"
	case KindTxActive:
		return "TxActive"
	case KindTxActiveSnapshot:
		return "TxActiveSnapshot"
	case KindTxWrite:
		return "TxWrite"
	case KindVersion:
		return "Version"
	case KindIndexEntry:
		return "IndexEntry"
	case KindRow:
		return "Row"
	case KindPrimaryKey:
		return "PrimaryKey"
	case KindCdc:
		return "Cdc"
	case KindOperatorState:
		return "OperatorState"
	case KindViewRowSeq:
		return "ViewRowSeq"
	default:
		return "Unknown"
	}
}

// header writes <version><kind> into a fresh buffer of the given extra
// capacity, returning the buffer ready for the caller to append to.
func header(kind Kind, extra int) []byte {
	buf := make([]byte, 2, 2+extra)
	buf[0] = KeyVersion
	buf[1] = byte(kind)
	return buf
}

// SplitHeader validates and strips the <version><kind> prefix, returning
// the kind and the remaining body bytes.
func SplitHeader(key []byte) (Kind, []byte, error) {
	if len(key) < 2 {
		return 0, nil, fmt.Errorf("keycodec: key too short: %d bytes", len(key))
	}
	if key[0] != KeyVersion {
		return 0, nil, fmt.Errorf("keycodec: unsupported key version %d", key[0])
	}
	return Kind(key[1]), key[2:], nil
}

// EncodeU64 appends the big-endian (order-preserving ascending) encoding
// of v. This is the "serialize<T>" half of the codec's generic contract
// for unsigned integers, which are already order-preserving under plain
// big-endian.
func EncodeU64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, v)
	return buf
}

// DecodeU64 reverses EncodeU64.
func DecodeU64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

// EncodeU64Descending appends the big-endian encoding of v with every
// bit inverted, so that byte-lexicographic order over the result is the
// *descending* numeric order of v. Used where a key kind's policy calls
// for "latest version first" scans expressed as plain forward range
// scans (spec.md §9 Open Question, resolved in DESIGN.md).
func EncodeU64Descending(v uint64) []byte {
	buf := EncodeU64(v)
	for i := range buf {
		buf[i] = ^buf[i]
	}
	return buf
}

// DecodeU64Descending reverses EncodeU64Descending.
func DecodeU64Descending(b []byte) uint64 {
	inv := make([]byte, len(b))
	for i, c := range b {
		inv[i] = ^c
	}
	return binary.BigEndian.Uint64(inv)
}

// sourceIDTag / indexIDTag distinguish the two 9-byte id families so
// that a source id and an index id of the same numeric value never
// collide as byte strings.
const (
	sourceIDTag   byte = 0x01
	indexIDTag    byte = 0x02
	operatorIDTag byte = 0x03
)

// SerializeSourceID produces the fixed-width 9-byte encoding (1-byte
// tag + 8-byte big-endian id) spec.md §6.1 requires for the `source`
// component of IndexEntry and Row keys.
func SerializeSourceID(id uint64) [9]byte {
	var out [9]byte
	out[0] = sourceIDTag
	binary.BigEndian.PutUint64(out[1:], id)
	return out
}

// SerializeIndexID produces the 9-byte encoding for the `index`
// component of IndexEntry keys.
func SerializeIndexID(id uint64) [9]byte {
	var out [9]byte
	out[0] = indexIDTag
	binary.BigEndian.PutUint64(out[1:], id)
	return out
}

func DeserializeSourceID(b [9]byte) (uint64, error) {
	if b[0] != sourceIDTag {
		return 0, fmt.Errorf("keycodec: expected source id tag, got %#x", b[0])
	}
	return binary.BigEndian.Uint64(b[1:]), nil
}

func DeserializeIndexID(b [9]byte) (uint64, error) {
	if b[0] != indexIDTag {
		return 0, fmt.Errorf("keycodec: expected index id tag, got %#x", b[0])
	}
	return binary.BigEndian.Uint64(b[1:]), nil
}

// SerializeOperatorID produces the 9-byte encoding for the `operator`
// component of OperatorState keys.
func SerializeOperatorID(id uint64) [9]byte {
	var out [9]byte
	out[0] = operatorIDTag
	binary.BigEndian.PutUint64(out[1:], id)
	return out
}

func DeserializeOperatorID(b [9]byte) (uint64, error) {
	if b[0] != operatorIDTag {
		return 0, fmt.Errorf("keycodec: expected operator id tag, got %#x", b[0])
	}
	return binary.BigEndian.Uint64(b[1:]), nil
}
