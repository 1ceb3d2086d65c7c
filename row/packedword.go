package row

import "encoding/binary"

// A packed word is the 128-bit static slot used for every variable-length
// field (spec.md §3.2/§4.1). Its top bit is a storage-mode flag:
//
//	MSB=0 ("inline"):  the remaining 127 bits hold a type-specific
//	                   small-form encoding (bit-packed, no dynamic-section
//	                   bytes consumed).
//	MSB=1 ("dynamic"): the remaining bits encode a 64-bit offset and a
//	                   63-bit length into the row's dynamic section.
//
// This implementation spends the flag bit plus 7 padding bits in the
// first byte for the inline small-form (byte-aligned payload is simpler
// to reason about than bit-packing across the byte boundary) and uses
// the full remaining 15 bytes for inline payload; readers must not
// special-case this choice, since it is encapsulated entirely here.
const packedWordSize = 16

func isDynamicWord(word []byte) bool {
	return word[0]&0x80 != 0
}

func writeDynamicWord(word []byte, offset, length uint64) {
	if length > 1<<63-1 {
		panic("row: dynamic length exceeds 63 bits")
	}
	var hi, lo uint64
	hi = 1<<63 | (offset >> 1)
	lo = (offset&1)<<63 | length
	binary.BigEndian.PutUint64(word[0:8], hi)
	binary.BigEndian.PutUint64(word[8:16], lo)
}

func readDynamicWord(word []byte) (offset, length uint64) {
	hi := binary.BigEndian.Uint64(word[0:8])
	lo := binary.BigEndian.Uint64(word[8:16])
	offset = ((hi &^ (1 << 63)) << 1) | (lo >> 63)
	length = lo &^ (1 << 63)
	return offset, length
}

// writeInlineBytes packs payload (<=15 bytes) into the word's inline
// small-form. Returns false if payload does not fit, signalling the
// caller to fall back to the dynamic-section path.
func writeInlineBytes(word []byte, payload []byte) bool {
	if len(payload) > packedWordSize-1 {
		return false
	}
	for i := range word {
		word[i] = 0
	}
	word[0] = byte(len(payload)) // bit7 stays 0: inline mode
	copy(word[1:], payload)
	return true
}

func readInlineBytes(word []byte) []byte {
	n := int(word[0] &^ 0x80)
	out := make([]byte, n)
	copy(out, word[1:1+n])
	return out
}

// writeInlineDecimal packs a biased scale byte, a sign byte and an
// unsigned mantissa magnitude (<=13 bytes, right-aligned) into the inline
// small-form, per spec.md §4.1's 2-tier decimal design. Returns false if
// the mantissa does not fit, signalling a dynamic-section fallback.
func writeInlineDecimal(word []byte, scale int32, mantissaBytesBE []byte, negative bool) bool {
	if scale < -128 || scale > 127 {
		return false
	}
	if len(mantissaBytesBE) > packedWordSize-3 {
		return false
	}
	for i := range word {
		word[i] = 0
	}
	word[0] = 0 // inline mode, padding
	word[1] = byte(int32(scale) + 128)
	word[2] = 0
	if negative {
		word[2] = 1
	}
	off := packedWordSize - len(mantissaBytesBE)
	copy(word[off:], mantissaBytesBE)
	return true
}

func readInlineDecimal(word []byte) (scale int32, mantissaBytesBE []byte, negative bool) {
	scale = int32(word[1]) - 128
	negative = word[2] != 0
	// the magnitude is right-aligned and zero-padded on the left, so the
	// whole tail word[3:] is returned; leading zero bytes do not change
	// the big-endian value row.go decodes from it.
	mantissaBytesBE = word[3:]
	return scale, mantissaBytesBE, negative
}
