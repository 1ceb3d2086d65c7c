package operator

import (
	"encoding/binary"

	"reifydb.io/core/row"
	"reifydb.io/core/value"
)

// encodeRowValues/decodeRowValues round-trip a []value.Value through
// layout — the shared helper every stateful operator that persists
// whole rows (Sort, Join) uses to turn its buffered tuples into the
// single Blob payload loadState/saveState wrap.
func encodeRowValues(layout *row.Layout, vals []value.Value) []byte {
	r := layout.Allocate()
	for i, v := range vals {
		r.Set(i, v)
	}
	return r.Bytes()
}

func decodeRowValues(layout *row.Layout, payload []byte) []value.Value {
	r := layout.Wrap(payload)
	out := make([]value.Value, layout.FieldCount())
	for i := range out {
		out[i] = r.Get(i)
	}
	return out
}

func columnTypes(cols []ColumnSpec) []value.Type {
	types := make([]value.Type, len(cols))
	for i, c := range cols {
		types[i] = c.Type
	}
	return types
}

// idValueEntry pairs a source row_id with its tuple, the shape every
// operator that keeps a list of matching rows per hashed key (Join's
// leftState/rightState) persists.
type idValueEntry struct {
	RowID uint64
	Vals  []value.Value
}

// encodeIDValueList/decodeIDValueList round-trip a []idValueEntry the
// same way encodeRowValues does a single row, prefixed with a count and
// each entry's RowID and byte length so entries can vary in encoded size
// (a layout with variable-length fields produces a longer Bytes() once a
// payload spills into the dynamic section; this also keeps the wire
// shape uniform with bufferEntry's).
func encodeIDValueList(layout *row.Layout, entries []idValueEntry) []byte {
	var buf []byte
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		buf = binary.BigEndian.AppendUint64(buf, e.RowID)
		rb := encodeRowValues(layout, e.Vals)
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(rb)))
		buf = append(buf, rb...)
	}
	return buf
}

func decodeIDValueList(layout *row.Layout, payload []byte) []idValueEntry {
	if len(payload) < 4 {
		return nil
	}
	n := binary.BigEndian.Uint32(payload[0:4])
	off := 4
	out := make([]idValueEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		id := binary.BigEndian.Uint64(payload[off : off+8])
		off += 8
		l := binary.BigEndian.Uint32(payload[off : off+4])
		off += 4
		rb := payload[off : off+int(l)]
		off += int(l)
		out = append(out, idValueEntry{RowID: id, Vals: decodeRowValues(layout, rb)})
	}
	return out
}
