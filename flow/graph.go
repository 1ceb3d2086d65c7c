package flow

import "reifydb.io/core/catalog"

// FlowID identifies one registered Flow within a Scheduler.
type FlowID uint64

// Flow is a DAG of FlowNodes.
type Flow struct {
	ID     FlowID
	Nodes  map[FlowNodeID]*FlowNode
	nextID FlowNodeID
}

// NewFlow constructs an empty Flow.
func NewFlow(id FlowID) *Flow {
	return &Flow{ID: id, Nodes: make(map[FlowNodeID]*FlowNode)}
}

func (f *Flow) addNode(t NodeType) FlowNodeID {
	id := f.nextID
	f.nextID++
	f.Nodes[id] = &FlowNode{ID: id, Type: t}
	return id
}

// AddSourceTable adds a root node receiving CDC changes for tableID.
func (f *Flow) AddSourceTable(tableID catalog.TableID) FlowNodeID {
	return f.addNode(SourceTable{TableID: tableID})
}

// AddSourceInlineData adds a root node for caller-supplied data.
func (f *Flow) AddSourceInlineData() FlowNodeID {
	return f.addNode(SourceInlineData{})
}

// AddOperator adds a transformation node. newOp is invoked with the
// node's own id (as the operator's operatorID), so a stateful
// operator's persisted-state partition is always keyed by the node
// that owns it — disjointness across operators in a Flow is structural
// rather than depending on the caller picking non-colliding ids by
// convention. Stateless operators (Filter, Map/Extend) simply ignore
// the id their constructor is handed.
func (f *Flow) AddOperator(newOp func(operatorID uint64) Operator) FlowNodeID {
	id := f.nextID
	f.nextID++
	f.Nodes[id] = &FlowNode{ID: id, Type: OperatorNode{Op: newOp(uint64(id))}}
	return id
}

// AddSinkView adds a terminal node writing into viewID's row-key space.
func (f *Flow) AddSinkView(viewID catalog.ViewID) FlowNodeID {
	return f.addNode(SinkView{ViewID: viewID})
}

// Connect wires from's output to to, so process_node recurses from
// from into to after applying from's operator (if any).
func (f *Flow) Connect(from, to FlowNodeID) {
	f.Nodes[from].Outputs = append(f.Nodes[from].Outputs, to)
}

// SourceNodes returns every node in f whose Type is SourceTable,
// keyed by the table id it roots on. Used by the Scheduler to locate
// where an incoming CDC change for a source enters this flow.
func (f *Flow) SourceNodes() map[catalog.TableID]FlowNodeID {
	out := make(map[catalog.TableID]FlowNodeID)
	for id, n := range f.Nodes {
		if st, ok := n.Type.(SourceTable); ok {
			out[st.TableID] = id
		}
	}
	return out
}
