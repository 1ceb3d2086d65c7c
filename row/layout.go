// Package row implements EncodedValues: the compact, self-describing
// byte format used uniformly for persistence, transaction buffers, and
// dataflow messages (spec.md §3.2/§4.1).
package row

import (
	"encoding/binary"
	"fmt"

	"reifydb.io/core/value"
)

// field describes one declared column of a Layout: its type, its static
// offset, and (for fixed-width types) its size.
type field struct {
	typ    value.Type
	offset int
	size   int // static slot size; 16 for variable-length packed words
}

// Layout computes the static-section byte offsets for a fixed sequence
// of typed fields, per the algorithm in spec.md §3.2: fields are laid
// out in declaration order, each aligned up to its own alignment
// requirement, with a trailing align-up to the layout's max alignment
// marking the end of the static section (dynamic section follows).
type Layout struct {
	Fingerprint uint64
	Fields      []field
	Types       []value.Type

	bitvecOffset int
	bitvecSize   int
	staticSize   int
	maxAlign     int
}

// New computes a Layout for fingerprint over the given ordered field
// types. It panics (fatal invariant, spec.md §7 tier 1) on an empty
// field list — a Layout describing zero fields cannot back any row.
func New(fingerprint uint64, types []value.Type) *Layout {
	if len(types) == 0 {
		panic("row: layout requires a non-empty field list")
	}
	l := &Layout{Fingerprint: fingerprint, Types: append([]value.Type(nil), types...)}

	l.bitvecOffset = 8
	l.bitvecSize = (len(types) + 7) / 8

	pos := l.bitvecOffset + l.bitvecSize
	maxAlign := 1
	fields := make([]field, len(types))
	for i, t := range types {
		align := t.Alignment()
		if align > maxAlign {
			maxAlign = align
		}
		size := t.FixedWidth()
		pos = alignUp(pos, align)
		fields[i] = field{typ: t, offset: pos, size: size}
		pos += size
	}
	l.maxAlign = maxAlign
	l.staticSize = alignUp(pos, maxAlign)
	l.Fields = fields
	return l
}

func alignUp(pos, align int) int {
	if align <= 1 {
		return pos
	}
	rem := pos % align
	if rem == 0 {
		return pos
	}
	return pos + (align - rem)
}

// StaticSize is the total byte size of a row's fixed header + bitvec +
// static field section, before any dynamic-section bytes.
func (l *Layout) StaticSize() int { return l.staticSize }

// FieldCount is the number of declared fields (bits in the null-bitvec).
func (l *Layout) FieldCount() int { return len(l.Fields) }

func (l *Layout) checkIndex(i int) {
	if i < 0 || i >= len(l.Fields) {
		panic(fmt.Sprintf("row: field index %d out of range [0,%d)", i, len(l.Fields)))
	}
}

func (l *Layout) checkType(i int, want value.Type) {
	if l.Fields[i].typ != want {
		panic(fmt.Sprintf("row: field %d has type %s, not %s", i, l.Fields[i].typ, want))
	}
}

// Allocate returns a zeroed buffer of StaticSize() bytes with the
// fingerprint written at offset 0 and every field undefined.
func (l *Layout) Allocate() *Row {
	buf := make([]byte, l.staticSize)
	binary.BigEndian.PutUint64(buf[0:8], l.Fingerprint)
	return &Row{layout: l, buf: buf}
}

// Wrap adapts an existing byte slice (e.g. read back from storage) into
// a Row bound to this layout. The fingerprint is validated: a mismatch
// is a fatal invariant (spec.md §7 tier 1), since it means the caller
// handed a row encoded under a different schema to this layout.
func (l *Layout) Wrap(buf []byte) *Row {
	if len(buf) < l.staticSize {
		panic("row: buffer shorter than layout's static size")
	}
	got := binary.BigEndian.Uint64(buf[0:8])
	if got != l.Fingerprint {
		panic(fmt.Sprintf("row: fingerprint mismatch: buffer has %x, layout expects %x", got, l.Fingerprint))
	}
	return &Row{layout: l, buf: buf}
}
