package operator

import (
	"sort"

	"reifydb.io/core/flow"
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/frame"
	"reifydb.io/core/keycodec"
	"reifydb.io/core/row"
	"reifydb.io/core/value"
)

// SortKey is one ORDER BY term: a column index plus direction.
type SortKey struct {
	Column int
	Desc   bool
}

// Sort maintains every live row keyed by its row_id, persisted so the
// operator's ordering survives a restart; each batch it processes is
// reordered by Keys before propagating, stable across ties and broken
// secondarily by row_number (spec.md §4.8).
type Sort struct {
	Keys    []SortKey
	Columns []ColumnSpec
	layout  *row.Layout
	state   KeyedStateful
}

func NewSort(operatorID uint64, keys []SortKey, columns []ColumnSpec) *Sort {
	return &Sort{
		Keys:    keys,
		Columns: columns,
		layout:  row.New(operatorID, columnTypes(columns)),
		state:   KeyedStateful{OperatorID: operatorID},
	}
}

func (s *Sort) Apply(tx *ftxn.FlowTransaction, changes []flow.FlowDiff) ([]flow.FlowDiff, error) {
	var out []flow.FlowDiff
	for _, c := range changes {
		switch d := c.(type) {
		case flow.Insert:
			for i, id := range d.RowIds {
				s.state.Set(tx, keycodec.EncodeU64(id), encodeRowValues(s.layout, d.Post.Row(i)))
			}
			idx := s.sortedIndices(d.RowIds, d.Post)
			ids, fr := selectRows(d.RowIds, d.Post, idx)
			out = append(out, flow.Insert{RowIds: ids, Post: fr})

		case flow.Remove:
			for _, id := range d.RowIds {
				s.state.Remove(tx, keycodec.EncodeU64(id))
			}
			idx := s.sortedIndices(d.RowIds, d.Before)
			ids, fr := selectRows(d.RowIds, d.Before, idx)
			out = append(out, flow.Remove{RowIds: ids, Before: fr})

		case flow.Update:
			for i, id := range d.RowIds {
				s.state.Set(tx, keycodec.EncodeU64(id), encodeRowValues(s.layout, d.After.Row(i)))
			}
			idx := s.sortedIndices(d.RowIds, d.After)
			ids, afterFr := selectRows(d.RowIds, d.After, idx)
			_, beforeFr := selectRows(d.RowIds, d.Before, idx)
			out = append(out, flow.Update{RowIds: ids, Before: beforeFr, After: afterFr})

		default:
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Sort) sortedIndices(rowIDs []uint64, fr *frame.Frame) []int {
	n := fr.RowCount()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	sort.SliceStable(indices, func(a, b int) bool {
		ra, rb := fr.Row(indices[a]), fr.Row(indices[b])
		for _, k := range s.Keys {
			cmp := value.Compare(ra[k.Column], rb[k.Column])
			if cmp == 0 {
				continue
			}
			if k.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return rowIDs[indices[a]] < rowIDs[indices[b]]
	})
	return indices
}

// Snapshot returns every currently live row in sorted order, for
// callers (tests, a downstream full-materialization read) that need
// the operator's complete maintained order rather than just the most
// recent batch's relative order.
func (s *Sort) Snapshot(tx *ftxn.FlowTransaction) ([]value.Value, error) {
	entries, err := s.state.Scan(tx)
	if err != nil {
		return nil, err
	}
	rows := make([][]value.Value, len(entries))
	ids := make([]uint64, len(entries))
	for i, e := range entries {
		ids[i] = keycodec.DecodeU64(e.Key)
		rows[i] = decodeRowValues(s.layout, e.Payload)
	}
	idx := make([]int, len(rows))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ra, rb := rows[idx[a]], rows[idx[b]]
		for _, k := range s.Keys {
			cmp := value.Compare(ra[k.Column], rb[k.Column])
			if cmp == 0 {
				continue
			}
			if k.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return ids[idx[a]] < ids[idx[b]]
	})
	out := make([]value.Value, 0, len(idx)*len(s.Columns))
	for _, i := range idx {
		out = append(out, rows[i]...)
	}
	return out, nil
}
