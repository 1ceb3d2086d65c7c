package flow

import (
	"fmt"
	"sync"

	cdcpkg "reifydb.io/core/cdc"
	"reifydb.io/core/catalog"
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/frame"
	"reifydb.io/core/keycodec"
	"reifydb.io/core/mvcc"
	"reifydb.io/core/row"
	"reifydb.io/core/value"
)

// Scheduler is the flow graph scheduler of spec.md §4.7: it tracks
// which Flows are rooted on which source tables, and, for each
// committed CDC change, walks matching flows depth-first from their
// source node, applying every Operator node's Apply and finally writing
// SinkView output rows back into storage through the same MVCC engine.
type Scheduler struct {
	engine *mvcc.Engine

	mu           sync.Mutex
	sources      map[catalog.TableID][]FlowID
	flows        map[FlowID]*Flow
	tableLayout  map[catalog.TableID]*row.Layout
	tableColumns map[catalog.TableID][]catalog.ColumnDef
	viewLayout   map[catalog.ViewID]*row.Layout
	viewColumns  map[catalog.ViewID][]catalog.ColumnDef
	viewSeq      map[catalog.ViewID]uint64
}

// NewScheduler constructs a Scheduler driving flows through engine.
func NewScheduler(engine *mvcc.Engine) *Scheduler {
	return &Scheduler{
		engine:       engine,
		sources:      make(map[catalog.TableID][]FlowID),
		flows:        make(map[FlowID]*Flow),
		tableLayout:  make(map[catalog.TableID]*row.Layout),
		tableColumns: make(map[catalog.TableID][]catalog.ColumnDef),
		viewLayout:   make(map[catalog.ViewID]*row.Layout),
		viewColumns:  make(map[catalog.ViewID][]catalog.ColumnDef),
		viewSeq:      make(map[catalog.ViewID]uint64),
	}
}

// RegisterTable tells the scheduler how to decode a table's Row bytes
// into a Frame: one column per ColumnDef, in order. The table id itself
// doubles as the row.Layout's schema fingerprint, since this core has
// exactly one layout per source table and no DDL evolution in scope.
func (s *Scheduler) RegisterTable(t catalog.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]value.Type, len(t.Columns))
	for i, c := range t.Columns {
		types[i] = c.Type
	}
	s.tableLayout[t.ID] = row.New(uint64(t.ID), types)
	s.tableColumns[t.ID] = t.Columns
}

// RegisterView tells the scheduler how to encode a view's output rows;
// every SinkView node targeting this view's id uses this layout.
func (s *Scheduler) RegisterView(v catalog.View) {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]value.Type, len(v.Columns))
	for i, c := range v.Columns {
		types[i] = c.Type
	}
	s.viewLayout[v.ID] = row.New(uint64(v.ID), types)
	s.viewColumns[v.ID] = v.Columns
}

// RegisterFlow adds fl to the scheduler and indexes its source nodes so
// future CDC changes on those tables are routed to it.
func (s *Scheduler) RegisterFlow(fl *Flow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[fl.ID] = fl
	for tableID := range fl.SourceNodes() {
		s.sources[tableID] = append(s.sources[tableID], fl.ID)
	}
}

// ConsumeCdc replays one shard's InternalCdc record for a single commit
// version through every registered flow, in one new MVCC transaction
// that becomes the parent of every FlowTransaction used along the way
// (spec.md §4.7/§4.10). Changes are applied in the record's sequence
// order, matching the CDC ordering guarantee of spec.md §4.6.
func (s *Scheduler) ConsumeCdc(rec cdcpkg.InternalCdc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.engine.Begin()
	parent := ftxn.NewParentTxn(tx)
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	for _, sc := range rec.Changes {
		diff, sourceID, ok, err := s.diffForChange(sc.Change)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		flowIDs := s.sources[sourceID]
		for _, fid := range flowIDs {
			fl, ok := s.flows[fid]
			if !ok {
				continue
			}
			nodeID, ok := fl.SourceNodes()[sourceID]
			if !ok {
				continue
			}
			if err := s.processNode(parent, fl, nodeID, []FlowDiff{diff}); err != nil {
				return err
			}
		}
	}

	committed = true
	return tx.Commit()
}

// diffForChange turns one InternalCdcChange into the FlowDiff its
// source table's registered flows should see. A change whose key isn't
// a registered table's Row key (e.g. an index entry, or a table with no
// registered layout) is skipped: ok is false.
func (s *Scheduler) diffForChange(change cdcpkg.InternalCdcChange) (FlowDiff, catalog.TableID, bool, error) {
	kind, body, err := keycodec.SplitHeader(change.ChangeKey())
	if err != nil {
		return nil, 0, false, err
	}
	if kind != keycodec.KindRow {
		return nil, 0, false, nil
	}
	sourceID, rowNumber, err := keycodec.DecodeRowKey(body)
	if err != nil {
		return nil, 0, false, err
	}
	tableID := catalog.TableID(sourceID)
	layout, ok := s.tableLayout[tableID]
	if !ok {
		return nil, 0, false, nil
	}
	columns := s.tableColumns[tableID]

	switch c := change.(type) {
	case cdcpkg.Insert:
		fr, found, err := s.readAsOf(c.PostVersion, change.ChangeKey(), layout, columns)
		if err != nil || !found {
			return nil, 0, false, err
		}
		return Insert{RowIds: []uint64{rowNumber}, Post: fr}, tableID, true, nil
	case cdcpkg.Update:
		before, _, err := s.readAsOf(c.PreVersion, change.ChangeKey(), layout, columns)
		if err != nil {
			return nil, 0, false, err
		}
		after, found, err := s.readAsOf(c.PostVersion, change.ChangeKey(), layout, columns)
		if err != nil || !found {
			return nil, 0, false, err
		}
		return Update{RowIds: []uint64{rowNumber}, Before: before, After: after}, tableID, true, nil
	case cdcpkg.Delete:
		before, found, err := s.readAsOf(c.PreVersion, change.ChangeKey(), layout, columns)
		if err != nil || !found {
			return nil, 0, false, err
		}
		return Remove{RowIds: []uint64{rowNumber}, Before: before}, tableID, true, nil
	default:
		return nil, 0, false, fmt.Errorf("flow: unknown CDC change type %T", change)
	}
}

// readAsOf reads key's value as of version asOf (a committed version the
// change already names) and decodes it into a one-row Frame shaped by
// layout/columns.
func (s *Scheduler) readAsOf(asOf uint64, key []byte, layout *row.Layout, columns []catalog.ColumnDef) (*frame.Frame, bool, error) {
	roTx, err := s.engine.BeginReadOnly(&asOf)
	if err != nil {
		return nil, false, err
	}
	raw, found, err := roTx.Get(key)
	if err != nil || !found {
		return nil, false, err
	}
	return frameFromRow(layout, columns, raw), true, nil
}

// processNode walks the DAG depth-first from nodeID, recursing into each
// output in turn, so one output's whole subgraph finishes before the next
// sibling output is visited; nodes are not processed level by level.
// Source nodes pass diffs straight to their outputs, Operator nodes run
// their own FlowTransaction (committed immediately, per operator, since
// each operator's state partition is disjoint from every other node's),
// and SinkView nodes terminate the walk by writing rows.
func (s *Scheduler) processNode(parent *ftxn.ParentTxn, fl *Flow, nodeID FlowNodeID, diffs []FlowDiff) error {
	node, ok := fl.Nodes[nodeID]
	if !ok {
		return fmt.Errorf("flow: node %d not found in flow %d", nodeID, fl.ID)
	}

	switch t := node.Type.(type) {
	case SourceTable, SourceInlineData:
		for _, out := range node.Outputs {
			if err := s.processNode(parent, fl, out, diffs); err != nil {
				return err
			}
		}
		return nil

	case OperatorNode:
		ftx := ftxn.New(parent)
		outDiffs, err := t.Op.Apply(ftx, diffs)
		if err != nil {
			return err
		}
		if _, err := ftx.Commit(); err != nil {
			return err
		}
		if len(outDiffs) == 0 {
			return nil
		}
		for _, out := range node.Outputs {
			if err := s.processNode(parent, fl, out, outDiffs); err != nil {
				return err
			}
		}
		return nil

	case SinkView:
		return s.applySink(parent, t.ViewID, diffs)

	default:
		return fmt.Errorf("flow: unknown node type %T", t)
	}
}

// applySink writes diffs into viewID's row-key space. Insert allocates
// fresh row numbers from the view's own sequence; Update/Remove reuse
// the row_ids already carried on the diff (the same numbers a prior
// Insert assigned for those logical rows as they flowed downstream). A
// row_ids/frame row_count mismatch is the fatal invariant spec.md §4.7
// names explicitly.
func (s *Scheduler) applySink(parent *ftxn.ParentTxn, viewID catalog.ViewID, diffs []FlowDiff) error {
	layout := s.viewLayout[viewID]
	columns := s.viewColumns[viewID]
	if layout == nil {
		return fmt.Errorf("flow: view %d has no registered layout", viewID)
	}

	ftx := ftxn.New(parent)
	for _, d := range diffs {
		switch diff := d.(type) {
		case Insert:
			n := diff.Post.RowCount()
			ids, err := s.allocateViewRowNumbers(parent, viewID, n)
			if err != nil {
				return err
			}
			if len(ids) != n {
				panic("flow: sink row_ids length mismatch with frame row_count")
			}
			for i := 0; i < n; i++ {
				raw := encodeViewRow(layout, columns, diff.Post, i)
				ftx.Set(keycodec.RowKey(uint64(viewID), ids[i]), raw)
			}
		case Update:
			if len(diff.RowIds) != diff.After.RowCount() {
				panic("flow: sink row_ids length mismatch with frame row_count")
			}
			for i, rn := range diff.RowIds {
				raw := encodeViewRow(layout, columns, diff.After, i)
				ftx.Set(keycodec.RowKey(uint64(viewID), rn), raw)
			}
		case Remove:
			if len(diff.RowIds) != diff.Before.RowCount() {
				panic("flow: sink row_ids length mismatch with frame row_count")
			}
			for _, rn := range diff.RowIds {
				ftx.Remove(keycodec.RowKey(uint64(viewID), rn))
			}
		default:
			return fmt.Errorf("flow: unknown diff type %T at sink", d)
		}
	}
	_, err := ftx.Commit()
	return err
}

// allocateViewRowNumbers hands out n consecutive row numbers from
// viewID's persistent sequence, lazily loading its current value from
// the parent transaction on first use. The sequence counter is written
// directly against the parent (not through a FlowTransaction's pending
// overlay) because it is shared bookkeeping every sink write for this
// view touches, not a row any concurrent flow could meaningfully race
// over in the keyspace-overlap sense.
func (s *Scheduler) allocateViewRowNumbers(parent *ftxn.ParentTxn, viewID catalog.ViewID, n int) ([]uint64, error) {
	cur, ok := s.viewSeq[viewID]
	if !ok {
		raw, found, err := parent.Tx().Get(keycodec.ViewRowSeqKey(uint64(viewID)))
		if err != nil {
			return nil, err
		}
		if found {
			cur = keycodec.DecodeU64(raw)
		}
	}
	ids := make([]uint64, n)
	for i := 0; i < n; i++ {
		ids[i] = cur
		cur++
	}
	s.viewSeq[viewID] = cur
	if err := parent.Tx().Set(keycodec.ViewRowSeqKey(uint64(viewID)), keycodec.EncodeU64(cur)); err != nil {
		return nil, err
	}
	return ids, nil
}

// buildEmptyFrame constructs a zero-row Frame shaped by columns, each
// column starting as the Undefined(0) sentinel so AppendRows promotes
// it to a concrete container on first push.
func buildEmptyFrame(columns []catalog.ColumnDef) *frame.Frame {
	cols := make([]frame.Column, len(columns))
	for i, cd := range columns {
		cols[i] = frame.Column{Name: cd.Name, Type: cd.Type, Data: frame.Undefined(cd.Type, 0)}
	}
	return frame.New(cols)
}

// frameFromRow decodes raw (an encoded row.Row under layout) into a
// one-row Frame shaped by columns.
func frameFromRow(layout *row.Layout, columns []catalog.ColumnDef, raw []byte) *frame.Frame {
	fr := buildEmptyFrame(columns)
	fr.AppendRows(layout, []*row.Row{layout.Wrap(raw)})
	return fr
}

// encodeViewRow encodes logical row rowIdx of fr into a fresh row.Row
// under layout, one field per column in order.
func encodeViewRow(layout *row.Layout, columns []catalog.ColumnDef, fr *frame.Frame, rowIdx int) []byte {
	r := layout.Allocate()
	for i := range columns {
		r.Set(i, fr.Columns[i].Value(rowIdx))
	}
	return r.Bytes()
}
