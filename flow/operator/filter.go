package operator

import (
	"reifydb.io/core/flow"
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/frame"
	"reifydb.io/core/value"
)

// Predicate is a pre-planned boolean row expression. By the time a
// flow.Operator sees one, the out-of-scope planner has already compiled
// whatever expression syntax the caller used down to this closure — the
// core itself "only observes typed trees; it does not parse text"
// (spec.md §4.11).
type Predicate func(row []value.Value) bool

// Filter propagates only rows for which Pred is true (spec.md §4.8).
// Stateless.
type Filter struct {
	Pred Predicate
}

func NewFilter(pred Predicate) *Filter { return &Filter{Pred: pred} }

func (f *Filter) Apply(_ *ftxn.FlowTransaction, changes []flow.FlowDiff) ([]flow.FlowDiff, error) {
	var out []flow.FlowDiff
	for _, c := range changes {
		switch d := c.(type) {
		case flow.Insert:
			idx := matchIndices(f.Pred, d.Post)
			if len(idx) == 0 {
				continue
			}
			ids, fr := selectRows(d.RowIds, d.Post, idx)
			out = append(out, flow.Insert{RowIds: ids, Post: fr})

		case flow.Remove:
			idx := matchIndices(f.Pred, d.Before)
			if len(idx) == 0 {
				continue
			}
			ids, fr := selectRows(d.RowIds, d.Before, idx)
			out = append(out, flow.Remove{RowIds: ids, Before: fr})

		case flow.Update:
			// A row whose predicate result flips crosses the filtered
			// set's boundary and must surface as an Insert or Remove,
			// not an Update (spec.md §4.8).
			var updIdx, insIdx, remIdx []int
			for i := range d.RowIds {
				beforeOK := f.Pred(d.Before.Row(i))
				afterOK := f.Pred(d.After.Row(i))
				switch {
				case beforeOK && afterOK:
					updIdx = append(updIdx, i)
				case !beforeOK && afterOK:
					insIdx = append(insIdx, i)
				case beforeOK && !afterOK:
					remIdx = append(remIdx, i)
				}
			}
			if len(updIdx) > 0 {
				ids, beforeFr := selectRows(d.RowIds, d.Before, updIdx)
				_, afterFr := selectRows(d.RowIds, d.After, updIdx)
				out = append(out, flow.Update{RowIds: ids, Before: beforeFr, After: afterFr})
			}
			if len(insIdx) > 0 {
				ids, fr := selectRows(d.RowIds, d.After, insIdx)
				out = append(out, flow.Insert{RowIds: ids, Post: fr})
			}
			if len(remIdx) > 0 {
				ids, fr := selectRows(d.RowIds, d.Before, remIdx)
				out = append(out, flow.Remove{RowIds: ids, Before: fr})
			}

		default:
			out = append(out, d)
		}
	}
	return out, nil
}

func matchIndices(pred Predicate, fr *frame.Frame) []int {
	var idx []int
	for i := 0; i < fr.RowCount(); i++ {
		if pred(fr.Row(i)) {
			idx = append(idx, i)
		}
	}
	return idx
}

// selectRows extracts the subset of rowIDs/fr named by idx, in order.
func selectRows(rowIDs []uint64, fr *frame.Frame, idx []int) ([]uint64, *frame.Frame) {
	outIDs := make([]uint64, len(idx))
	for i, ix := range idx {
		outIDs[i] = rowIDs[ix]
	}
	return outIDs, fr.Reorder(idx)
}
