package operator

import (
	"reifydb.io/core/flow"
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/frame"
	"reifydb.io/core/value"
)

// ProjExpr computes one named, typed output column from an input row —
// again, a planner-compiled closure rather than an expression tree the
// operator itself interprets.
type ProjExpr struct {
	Name string
	Type value.Type
	Eval func(row []value.Value) value.Value
}

// MapExtend implements both Map and Extend (spec.md §4.8): Map replaces
// the row with Exprs' output, Extend augments it. Stateless beyond
// expression evaluation.
type MapExtend struct {
	Exprs   []ProjExpr
	Replace bool // true: Map: Exprs fully replace the row. false: Extend: Exprs append.
}

func NewMap(exprs []ProjExpr) *MapExtend    { return &MapExtend{Exprs: exprs, Replace: true} }
func NewExtend(exprs []ProjExpr) *MapExtend { return &MapExtend{Exprs: exprs, Replace: false} }

func (m *MapExtend) Apply(_ *ftxn.FlowTransaction, changes []flow.FlowDiff) ([]flow.FlowDiff, error) {
	out := make([]flow.FlowDiff, 0, len(changes))
	for _, c := range changes {
		switch d := c.(type) {
		case flow.Insert:
			out = append(out, flow.Insert{RowIds: d.RowIds, Post: m.project(d.Post)})
		case flow.Remove:
			out = append(out, flow.Remove{RowIds: d.RowIds, Before: m.project(d.Before)})
		case flow.Update:
			out = append(out, flow.Update{
				RowIds: d.RowIds,
				Before: m.project(d.Before),
				After:  m.project(d.After),
			})
		default:
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *MapExtend) project(fr *frame.Frame) *frame.Frame {
	n := fr.RowCount()
	var outCols []frame.Column
	if !m.Replace {
		outCols = append(outCols, fr.Columns...)
	}
	for _, e := range m.Exprs {
		col := frame.Column{Name: e.Name, Type: e.Type, Data: frame.Undefined(e.Type, 0)}
		container := col.AsContainer()
		for i := 0; i < n; i++ {
			container.PushValue(e.Eval(fr.Row(i)))
		}
		outCols = append(outCols, col)
	}
	return frame.New(outCols)
}
