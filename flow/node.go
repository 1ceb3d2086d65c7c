package flow

import "reifydb.io/core/catalog"

// FlowNodeID is an arena handle into a Flow's Nodes map — nodes are
// addressed by id, never by pointer, so a Flow can be freely copied or
// serialized without fixing up internal references.
type FlowNodeID uint64

// SourceID identifies the external source (a table, currently; views
// are never themselves flow sources) a SourceTable node roots on.
type SourceID = catalog.TableID

// NodeType tags what a FlowNode does.
type NodeType interface {
	isNodeType()
}

// SourceTable is a root node receiving external CDC changes for a table.
type SourceTable struct {
	TableID catalog.TableID
}

func (SourceTable) isNodeType() {}

// SourceInlineData is a root node for data supplied directly by the
// caller rather than sourced from table CDC (e.g. a literal/test seed).
type SourceInlineData struct{}

func (SourceInlineData) isNodeType() {}

// OperatorNode wraps a concrete Operator transformation. A stateful
// operator's persisted state is addressed by its owning FlowNode's id
// (keycodec.OperatorStateKey(uint64(node.ID), ...)): Flow.AddOperator
// constructs the Operator from the node's own id, so every operator
// instance in a Flow gets a disjoint state partition structurally,
// not merely by caller convention.
type OperatorNode struct {
	Op Operator
}

func (OperatorNode) isNodeType() {}

// SinkView is a terminal node; its output rows are written into the
// view's row-key space.
type SinkView struct {
	ViewID catalog.ViewID
}

func (SinkView) isNodeType() {}

// FlowNode is one node in a Flow's DAG.
type FlowNode struct {
	ID      FlowNodeID
	Type    NodeType
	Outputs []FlowNodeID
}
