package operator

import (
	"encoding/binary"

	"reifydb.io/core/flow"
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/row"
	"reifydb.io/core/value"
)

// Take keeps the first N rows by arrival order (spec.md §4.8): stateful,
// bounded buffer. Rows beyond the first N to arrive are not retained —
// a later Remove from within the buffer does not promote an overflow
// row to take its place, since this core does not keep overflow rows
// around at all (exactness is traded for a bounded buffer).
type Take struct {
	N       int
	Columns []ColumnSpec
	layout  *row.Layout
	state   SingleStateful
}

func NewTake(operatorID uint64, n int, columns []ColumnSpec) *Take {
	types := make([]value.Type, len(columns))
	for i, c := range columns {
		types[i] = c.Type
	}
	return &Take{N: n, Columns: columns, layout: row.New(operatorID, types), state: SingleStateful{OperatorID: operatorID}}
}

type bufferEntry struct {
	RowID uint64
	Vals  []value.Value
}

func (t *Take) encode(entries []bufferEntry) []byte {
	var buf []byte
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(entries)))
	for _, e := range entries {
		buf = binary.BigEndian.AppendUint64(buf, e.RowID)
		r := t.layout.Allocate()
		for i, v := range e.Vals {
			r.Set(i, v)
		}
		rb := r.Bytes()
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(rb)))
		buf = append(buf, rb...)
	}
	return buf
}

func (t *Take) decode(payload []byte) []bufferEntry {
	if len(payload) < 4 {
		return nil
	}
	n := binary.BigEndian.Uint32(payload[0:4])
	off := 4
	out := make([]bufferEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		id := binary.BigEndian.Uint64(payload[off : off+8])
		off += 8
		l := binary.BigEndian.Uint32(payload[off : off+4])
		off += 4
		rb := payload[off : off+int(l)]
		off += int(l)
		r := t.layout.Wrap(rb)
		vals := make([]value.Value, t.layout.FieldCount())
		for j := range vals {
			vals[j] = r.Get(j)
		}
		out = append(out, bufferEntry{RowID: id, Vals: vals})
	}
	return out
}

func (t *Take) Apply(tx *ftxn.FlowTransaction, changes []flow.FlowDiff) ([]flow.FlowDiff, error) {
	payload, found, err := t.state.Get(tx)
	if err != nil {
		return nil, err
	}
	var buf []bufferEntry
	if found {
		buf = t.decode(payload)
	}

	var out []flow.FlowDiff
	for _, c := range changes {
		switch d := c.(type) {
		case flow.Insert:
			for i, id := range d.RowIds {
				if len(buf) >= t.N {
					continue
				}
				vals := d.Post.Row(i)
				buf = append(buf, bufferEntry{RowID: id, Vals: vals})
				out = append(out, flow.Insert{RowIds: []uint64{id}, Post: rowFrame(t.Columns, vals)})
			}
		case flow.Remove:
			for _, id := range d.RowIds {
				for i, e := range buf {
					if e.RowID == id {
						buf = append(buf[:i], buf[i+1:]...)
						out = append(out, flow.Remove{RowIds: []uint64{id}, Before: rowFrame(t.Columns, e.Vals)})
						break
					}
				}
			}
		case flow.Update:
			for i, id := range d.RowIds {
				for j, e := range buf {
					if e.RowID == id {
						newVals := d.After.Row(i)
						out = append(out, flow.Update{
							RowIds: []uint64{id},
							Before: rowFrame(t.Columns, e.Vals),
							After:  rowFrame(t.Columns, newVals),
						})
						buf[j].Vals = newVals
						break
					}
				}
			}
		default:
			out = append(out, c)
		}
	}
	t.state.Set(tx, t.encode(buf))
	return out, nil
}
