package operator

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"reifydb.io/core/flow"
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/keycodec"
	"reifydb.io/core/row"
	"reifydb.io/core/value"
)

// JoinType names the supported join semantics (spec.md §4.8: inner and
// left; full/right are Non-goals for this core).
type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
)

// joinCore is a symmetric-hash-join: both sides are kept fully
// materialized, keyed by their join columns, so a row arriving on
// either side can probe the other's complete matching set. leftState
// and rightState store every live (row_id, tuple) pair per hashed join
// key; matchState tracks, per left row_id, how many right-side matches
// it currently has — used only for JoinLeft's null-padding, applying
// the same 0↔1-transition pattern Distinct and Aggregate use.
//
// Output row ids are derived, not stored: combineIDs hashes the pair of
// input row ids (plus a tag distinguishing a real match from a
// null-padded placeholder) into a single deterministic id, so a later
// Remove can reconstruct the exact same id a prior Insert used without
// needing a persisted partner mapping.
type joinCore struct {
	Type         JoinType
	LeftOn       []int
	RightOn      []int
	LeftColumns  []ColumnSpec
	RightColumns []ColumnSpec

	leftLayout  *row.Layout
	rightLayout *row.Layout
	state       KeyedStateful
	match       KeyedStateful
}

func NewJoin(operatorID uint64, joinType JoinType, leftOn, rightOn []int, leftColumns, rightColumns []ColumnSpec) *joinCore {
	return &joinCore{
		Type:         joinType,
		LeftOn:       leftOn,
		RightOn:      rightOn,
		LeftColumns:  leftColumns,
		RightColumns: rightColumns,
		leftLayout:   row.New(operatorID, columnTypes(leftColumns)),
		rightLayout:  row.New(operatorID, columnTypes(rightColumns)),
		state:        KeyedStateful{OperatorID: operatorID},
		match:        KeyedStateful{OperatorID: operatorID},
	}
}

// NewJoinNatural infers LeftOn/RightOn by matching column names between
// leftColumns and rightColumns, the convenience form of a natural join.
func NewJoinNatural(operatorID uint64, joinType JoinType, leftColumns, rightColumns []ColumnSpec) *joinCore {
	var leftOn, rightOn []int
	for li, lc := range leftColumns {
		for ri, rc := range rightColumns {
			if lc.Name == rc.Name {
				leftOn = append(leftOn, li)
				rightOn = append(rightOn, ri)
				break
			}
		}
	}
	return NewJoin(operatorID, joinType, leftOn, rightOn, leftColumns, rightColumns)
}

// Left and Right return the flow.Operator each side of the join should
// be wired to; both share this joinCore's state.
func (j *joinCore) Left() flow.Operator  { return &joinSide{core: j, side: 0} }
func (j *joinCore) Right() flow.Operator { return &joinSide{core: j, side: 1} }

func (j *joinCore) outputColumns() []ColumnSpec {
	cols := append([]ColumnSpec(nil), j.LeftColumns...)
	cols = append(cols, j.RightColumns...)
	return cols
}

func combineIDs(leftID, rightID uint64, tag byte) uint64 {
	var buf [17]byte
	binary.BigEndian.PutUint64(buf[0:8], leftID)
	binary.BigEndian.PutUint64(buf[8:16], rightID)
	buf[16] = tag
	return xxhash.Sum64(buf[:])
}

// tagged prepends a one-byte namespace tag to key, letting leftState,
// rightState and match share one KeyedStateful without key collisions.
func tagged(tag byte, key []byte) []byte {
	return append([]byte{tag}, key...)
}

const (
	tagLeft  byte = 0
	tagRight byte = 1
	tagMatch byte = 2
)

func (j *joinCore) loadSide(tx *ftxn.FlowTransaction, tag byte, key []byte, layout *row.Layout) ([]idValueEntry, error) {
	payload, found, err := j.state.Get(tx, tagged(tag, key))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return decodeIDValueList(layout, payload), nil
}

func (j *joinCore) saveSide(tx *ftxn.FlowTransaction, tag byte, key []byte, layout *row.Layout, entries []idValueEntry) {
	if len(entries) == 0 {
		j.state.Remove(tx, tagged(tag, key))
		return
	}
	j.state.Set(tx, tagged(tag, key), encodeIDValueList(layout, entries))
}

func (j *joinCore) matchCount(tx *ftxn.FlowTransaction, leftID uint64) (uint64, error) {
	payload, found, err := j.match.Get(tx, tagged(tagMatch, keycodec.EncodeU64(leftID)))
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return keycodec.DecodeU64(payload), nil
}

func (j *joinCore) setMatchCount(tx *ftxn.FlowTransaction, leftID uint64, count uint64) {
	key := tagged(tagMatch, keycodec.EncodeU64(leftID))
	if count == 0 {
		j.match.Remove(tx, key)
		return
	}
	j.match.Set(tx, key, keycodec.EncodeU64(count))
}

// joinSide adapts one half of a joinCore into a standalone
// flow.Operator, so the scheduler can wire two independent upstream
// paths (the left source, the right source) into the same join state.
type joinSide struct {
	core *joinCore
	side int // 0 = left, 1 = right
}

func (s *joinSide) Apply(tx *ftxn.FlowTransaction, changes []flow.FlowDiff) ([]flow.FlowDiff, error) {
	var out []flow.FlowDiff
	for _, c := range changes {
		var err error
		var d []flow.FlowDiff
		switch diff := c.(type) {
		case flow.Insert:
			d, err = s.apply(tx, diff.RowIds, diff.Post, +1)
		case flow.Remove:
			d, err = s.apply(tx, diff.RowIds, diff.Before, -1)
		case flow.Update:
			var d1, d2 []flow.FlowDiff
			d1, err = s.apply(tx, diff.RowIds, diff.Before, -1)
			if err == nil {
				d2, err = s.apply(tx, diff.RowIds, diff.After, +1)
			}
			d = append(d1, d2...)
		default:
			d = []flow.FlowDiff{c}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, d...)
	}
	return out, nil
}

func (s *joinSide) apply(tx *ftxn.FlowTransaction, rowIDs []uint64, fr interface {
	RowCount() int
	Row(int) []value.Value
}, delta int) ([]flow.FlowDiff, error) {
	var out []flow.FlowDiff
	for i := 0; i < fr.RowCount(); i++ {
		id := rowIDs[i]
		vals := fr.Row(i)
		var diffs []flow.FlowDiff
		var err error
		if s.side == 0 {
			diffs, err = s.core.applyLeft(tx, id, vals, delta)
		} else {
			diffs, err = s.core.applyRight(tx, id, vals, delta)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, diffs...)
	}
	return out, nil
}

func joinKey(on []int, vals []value.Value) []byte {
	return hashRow(vals, on)
}

// applyLeft folds one left-side row (delta +1 to insert it, -1 to
// retract it) into the join, emitting one Insert/Remove per matching
// right row, plus (for JoinLeft) the null-padded placeholder row when
// this left row currently has zero matches.
func (j *joinCore) applyLeft(tx *ftxn.FlowTransaction, leftID uint64, leftVals []value.Value, delta int) ([]flow.FlowDiff, error) {
	key := joinKey(j.LeftOn, leftVals)
	entries, err := j.loadSide(tx, tagLeft, key, j.leftLayout)
	if err != nil {
		return nil, err
	}

	if delta > 0 {
		entries = append(entries, idValueEntry{RowID: leftID, Vals: leftVals})
	} else {
		entries = removeIDEntry(entries, leftID)
	}
	j.saveSide(tx, tagLeft, key, j.leftLayout, entries)

	rightEntries, err := j.loadSide(tx, tagRight, key, j.rightLayout)
	if err != nil {
		return nil, err
	}

	var out []flow.FlowDiff
	for _, re := range rightEntries {
		out = append(out, j.matchedDiff(leftID, leftVals, re.RowID, re.Vals, delta))
	}

	if j.Type == JoinLeft {
		if delta > 0 {
			after := uint64(len(rightEntries))
			if after == 0 {
				out = append(out, j.nullPadDiff(leftID, leftVals, true))
			}
			j.setMatchCount(tx, leftID, after)
		} else {
			before, err := j.matchCount(tx, leftID)
			if err != nil {
				return nil, err
			}
			if before == 0 {
				out = append(out, j.nullPadDiff(leftID, leftVals, false))
			}
			j.setMatchCount(tx, leftID, 0)
		}
	}
	return out, nil
}

// applyRight mirrors applyLeft. A right row's arrival/departure can
// additionally cross a left row's 0↔1 match-count boundary, which must
// retract or (re)introduce that left row's null-pad placeholder.
func (j *joinCore) applyRight(tx *ftxn.FlowTransaction, rightID uint64, rightVals []value.Value, delta int) ([]flow.FlowDiff, error) {
	key := joinKey(j.RightOn, rightVals)
	entries, err := j.loadSide(tx, tagRight, key, j.rightLayout)
	if err != nil {
		return nil, err
	}
	if delta > 0 {
		entries = append(entries, idValueEntry{RowID: rightID, Vals: rightVals})
	} else {
		entries = removeIDEntry(entries, rightID)
	}
	j.saveSide(tx, tagRight, key, j.rightLayout, entries)

	leftEntries, err := j.loadSide(tx, tagLeft, key, j.leftLayout)
	if err != nil {
		return nil, err
	}

	var out []flow.FlowDiff
	for _, le := range leftEntries {
		out = append(out, j.matchedDiff(le.RowID, le.Vals, rightID, rightVals, delta))

		if j.Type == JoinLeft {
			before, err := j.matchCount(tx, le.RowID)
			if err != nil {
				return nil, err
			}
			var after uint64
			if delta > 0 {
				after = before + 1
			} else {
				after = before - 1
			}
			if before == 0 && after > 0 {
				out = append(out, j.nullPadDiff(le.RowID, le.Vals, false))
			}
			if before > 0 && after == 0 {
				out = append(out, j.nullPadDiff(le.RowID, le.Vals, true))
			}
			j.setMatchCount(tx, le.RowID, after)
		}
	}
	return out, nil
}

func removeIDEntry(entries []idValueEntry, id uint64) []idValueEntry {
	for i, e := range entries {
		if e.RowID == id {
			return append(entries[:i], entries[i+1:]...)
		}
	}
	return entries
}

func (j *joinCore) matchedDiff(leftID uint64, leftVals []value.Value, rightID uint64, rightVals []value.Value, delta int) flow.FlowDiff {
	out := append(append([]value.Value(nil), leftVals...), rightVals...)
	id := combineIDs(leftID, rightID, 1)
	fr := rowFrame(j.outputColumns(), out)
	if delta > 0 {
		return flow.Insert{RowIds: []uint64{id}, Post: fr}
	}
	return flow.Remove{RowIds: []uint64{id}, Before: fr}
}

// nullPadDiff emits (insert=true) or retracts (insert=false) the
// JoinLeft placeholder row for a left row with zero current matches.
func (j *joinCore) nullPadDiff(leftID uint64, leftVals []value.Value, insert bool) flow.FlowDiff {
	rightVals := make([]value.Value, len(j.RightColumns))
	for i, c := range j.RightColumns {
		rightVals[i] = value.Undefined(c.Type)
	}
	out := append(append([]value.Value(nil), leftVals...), rightVals...)
	id := combineIDs(leftID, 0, 0)
	fr := rowFrame(j.outputColumns(), out)
	if insert {
		return flow.Insert{RowIds: []uint64{id}, Post: fr}
	}
	return flow.Remove{RowIds: []uint64{id}, Before: fr}
}
