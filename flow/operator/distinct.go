package operator

import (
	"reifydb.io/core/flow"
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/frame"
	"reifydb.io/core/keycodec"
	"reifydb.io/core/value"
)

// Distinct maintains {hash(key) → count} keyed state: Insert
// increments and emits downstream only on the 0→1 transition;
// Remove decrements and emits downstream only on the 1→0 transition;
// Update is handled as Remove of its before rows then Insert of its
// after rows, emitted as separate Remove and Insert diffs; they are not
// merged back into a single Update diff.
type Distinct struct {
	Columns []int // indices into the input row naming the distinct key
	state   KeyedStateful
}

func NewDistinct(operatorID uint64, columns []int) *Distinct {
	return &Distinct{Columns: columns, state: KeyedStateful{OperatorID: operatorID}}
}

func (d *Distinct) Apply(tx *ftxn.FlowTransaction, changes []flow.FlowDiff) ([]flow.FlowDiff, error) {
	var out []flow.FlowDiff
	for _, c := range changes {
		switch diff := c.(type) {
		case flow.Insert:
			ids, fr, err := d.bumpFrame(tx, diff.RowIds, diff.Post, +1)
			if err != nil {
				return nil, err
			}
			if fr.RowCount() > 0 {
				out = append(out, flow.Insert{RowIds: ids, Post: fr})
			}
		case flow.Remove:
			ids, fr, err := d.bumpFrame(tx, diff.RowIds, diff.Before, -1)
			if err != nil {
				return nil, err
			}
			if fr.RowCount() > 0 {
				out = append(out, flow.Remove{RowIds: ids, Before: fr})
			}
		case flow.Update:
			remIDs, remFr, err := d.bumpFrame(tx, diff.RowIds, diff.Before, -1)
			if err != nil {
				return nil, err
			}
			if remFr.RowCount() > 0 {
				out = append(out, flow.Remove{RowIds: remIDs, Before: remFr})
			}
			insIDs, insFr, err := d.bumpFrame(tx, diff.RowIds, diff.After, +1)
			if err != nil {
				return nil, err
			}
			if insFr.RowCount() > 0 {
				out = append(out, flow.Insert{RowIds: insIDs, Post: insFr})
			}
		default:
			out = append(out, c)
		}
	}
	return out, nil
}

// bumpFrame applies delta to every row's count in fr, returning the
// subset of rows whose count crossed the 0↔1 boundary.
func (d *Distinct) bumpFrame(tx *ftxn.FlowTransaction, rowIDs []uint64, fr *frame.Frame, delta int64) ([]uint64, *frame.Frame, error) {
	var idx []int
	for i := 0; i < fr.RowCount(); i++ {
		crossed, err := d.bump(tx, fr.Row(i), delta)
		if err != nil {
			return nil, nil, err
		}
		if crossed {
			idx = append(idx, i)
		}
	}
	ids, out := selectRows(rowIDs, fr, idx)
	return ids, out, nil
}

// bump adjusts one row's count by delta, returning true iff the count
// crossed the 0↔1 boundary (the downstream-emission condition).
func (d *Distinct) bump(tx *ftxn.FlowTransaction, row []value.Value, delta int64) (bool, error) {
	key := hashRow(row, d.Columns)
	payload, found, err := d.state.Get(tx, key)
	if err != nil {
		return false, err
	}
	var count int64
	if found {
		count = int64(keycodec.DecodeU64(payload))
	}
	next := count + delta
	if next <= 0 {
		d.state.Remove(tx, key)
	} else {
		d.state.Set(tx, key, keycodec.EncodeU64(uint64(next)))
	}
	return (count == 0 && next > 0) || (count > 0 && next <= 0), nil
}
