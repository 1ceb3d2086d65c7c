// Package flow implements the incremental dataflow engine: a DAG of
// FlowNodes connected by Operators, a scheduler that walks committed
// CDC changes through matching flows, and the FlowTransaction layer
// operators use to read/write state and output rows.
package flow

import "reifydb.io/core/frame"

// FlowDiff is one of Insert, Update, or Remove — the unit every
// operator's Apply consumes and produces.
type FlowDiff interface {
	RowIDs() []uint64
	isFlowDiff()
}

// Insert carries newly-produced rows.
type Insert struct {
	RowIds []uint64
	Post   *frame.Frame
}

func (d Insert) RowIDs() []uint64 { return d.RowIds }
func (d Insert) isFlowDiff()      {}

// Update carries rows whose values changed in place.
type Update struct {
	RowIds []uint64
	Before *frame.Frame
	After  *frame.Frame
}

func (d Update) RowIDs() []uint64 { return d.RowIds }
func (d Update) isFlowDiff()      {}

// Remove carries rows no longer present.
type Remove struct {
	RowIds []uint64
	Before *frame.Frame
}

func (d Remove) RowIDs() []uint64 { return d.RowIds }
func (d Remove) isFlowDiff()      {}
