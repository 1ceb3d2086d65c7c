package operator

import (
	"encoding/binary"
	"math"

	"reifydb.io/core/flow"
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/frame"
	"reifydb.io/core/keycodec"
	"reifydb.io/core/value"
)

// AggFunc names one of the algebraic aggregations this operator
// supports; holistic aggregates such as median are out of scope since
// they cannot be maintained incrementally from a fixed-size running
// state.
type AggFunc int

const (
	AggSum AggFunc = iota
	AggCount
	AggMin
	AggMax
	AggAvg
)

// ColumnSpec names one output column's (name, type), used both for the
// group-by columns Aggregate copies through and for each AggExpr's
// result column.
type ColumnSpec struct {
	Name string
	Type value.Type
}

// AggExpr computes one aggregated output column over Column's values.
type AggExpr struct {
	ColumnSpec
	Func   AggFunc
	Column int // index into the input row of the value being aggregated
}

// Aggregate maintains keyed per-group state: current aggregate value(s)
// and an input tuple count. Min/Max keep a per-value
// multiset count (not just a scalar) so a Remove can correctly shrink
// the running min/max without rescanning the group's full membership.
// Aggregate's own SinkView (if any) needs a stable row id per group
// across its whole lifetime: the same group's Insert, later Updates,
// and eventual Remove must all name the same downstream row. rowSeq
// mints that id once per group, on first Insert, and the group's state
// carries it thereafter.
type Aggregate struct {
	GroupColumns []ColumnSpec
	By           []int
	Aggs         []AggExpr
	state        KeyedStateful
	rowSeq       SingleStateful
}

func NewAggregate(operatorID uint64, groupColumns []ColumnSpec, by []int, aggs []AggExpr) *Aggregate {
	return &Aggregate{
		GroupColumns: groupColumns,
		By:           by,
		Aggs:         aggs,
		state:        KeyedStateful{OperatorID: operatorID},
		rowSeq:       SingleStateful{OperatorID: operatorID},
	}
}

func (a *Aggregate) nextRowID(tx *ftxn.FlowTransaction) (uint64, error) {
	payload, found, err := a.rowSeq.Get(tx)
	if err != nil {
		return 0, err
	}
	var cur uint64
	if found {
		cur = keycodec.DecodeU64(payload)
	}
	a.rowSeq.Set(tx, keycodec.EncodeU64(cur+1))
	return cur, nil
}

type multisetEntry struct {
	value float64
	count uint32
}

type aggAcc struct {
	rowID   uint64
	count   uint64
	sum     []float64
	entries [][]multisetEntry // only populated for Min/Max aggs
}

func (a *Aggregate) newAcc() aggAcc {
	return aggAcc{sum: make([]float64, len(a.Aggs)), entries: make([][]multisetEntry, len(a.Aggs))}
}

func (a *Aggregate) decodeAcc(payload []byte) aggAcc {
	acc := a.newAcc()
	if payload == nil {
		return acc
	}
	acc.rowID = binary.BigEndian.Uint64(payload[0:8])
	acc.count = binary.BigEndian.Uint64(payload[8:16])
	off := 16
	for i := range a.Aggs {
		acc.sum[i] = math.Float64frombits(binary.BigEndian.Uint64(payload[off : off+8]))
		off += 8
		n := binary.BigEndian.Uint32(payload[off : off+4])
		off += 4
		entries := make([]multisetEntry, n)
		for j := uint32(0); j < n; j++ {
			entries[j] = multisetEntry{
				value: math.Float64frombits(binary.BigEndian.Uint64(payload[off : off+8])),
				count: binary.BigEndian.Uint32(payload[off+8 : off+12]),
			}
			off += 12
		}
		acc.entries[i] = entries
	}
	return acc
}

func (a *Aggregate) encodeAcc(acc aggAcc) []byte {
	size := 16
	for _, es := range acc.entries {
		size += 8 + 4 + len(es)*12
	}
	buf := make([]byte, size)
	binary.BigEndian.PutUint64(buf[0:8], acc.rowID)
	binary.BigEndian.PutUint64(buf[8:16], acc.count)
	off := 16
	for i := range a.Aggs {
		binary.BigEndian.PutUint64(buf[off:off+8], math.Float64bits(acc.sum[i]))
		off += 8
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(acc.entries[i])))
		off += 4
		for _, e := range acc.entries[i] {
			binary.BigEndian.PutUint64(buf[off:off+8], math.Float64bits(e.value))
			binary.BigEndian.PutUint32(buf[off+8:off+12], e.count)
			off += 12
		}
	}
	return buf
}

func multisetAdd(entries []multisetEntry, v float64) []multisetEntry {
	for i := range entries {
		if entries[i].value == v {
			entries[i].count++
			return entries
		}
	}
	return append(entries, multisetEntry{value: v, count: 1})
}

func multisetRemove(entries []multisetEntry, v float64) []multisetEntry {
	for i := range entries {
		if entries[i].value == v {
			entries[i].count--
			if entries[i].count == 0 {
				return append(entries[:i], entries[i+1:]...)
			}
			return entries
		}
	}
	return entries
}

func multisetMin(entries []multisetEntry) float64 {
	min := math.Inf(1)
	for _, e := range entries {
		if e.value < min {
			min = e.value
		}
	}
	return min
}

func multisetMax(entries []multisetEntry) float64 {
	max := math.Inf(-1)
	for _, e := range entries {
		if e.value > max {
			max = e.value
		}
	}
	return max
}

func (a *Aggregate) Apply(tx *ftxn.FlowTransaction, changes []flow.FlowDiff) ([]flow.FlowDiff, error) {
	var out []flow.FlowDiff
	for _, c := range changes {
		switch diff := c.(type) {
		case flow.Insert:
			for i := 0; i < diff.Post.RowCount(); i++ {
				d, err := a.fold(tx, diff.Post.Row(i), +1)
				if err != nil {
					return nil, err
				}
				if d != nil {
					out = append(out, d)
				}
			}
		case flow.Remove:
			for i := 0; i < diff.Before.RowCount(); i++ {
				d, err := a.fold(tx, diff.Before.Row(i), -1)
				if err != nil {
					return nil, err
				}
				if d != nil {
					out = append(out, d)
				}
			}
		case flow.Update:
			for i := 0; i < diff.Before.RowCount(); i++ {
				d, err := a.fold(tx, diff.Before.Row(i), -1)
				if err != nil {
					return nil, err
				}
				if d != nil {
					out = append(out, d)
				}
			}
			for i := 0; i < diff.After.RowCount(); i++ {
				d, err := a.fold(tx, diff.After.Row(i), +1)
				if err != nil {
					return nil, err
				}
				if d != nil {
					out = append(out, d)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return out, nil
}

// fold applies one input row to its group's accumulator (delta +1 to
// fold it in, -1 to reverse it), returning the FlowDiff this group's
// output row transition produces, or nil if the group had no prior
// output and still has none (can't happen for delta=+1, but guards
// delta=-1 underflow from a caller bug).
func (a *Aggregate) fold(tx *ftxn.FlowTransaction, row []value.Value, delta int) (flow.FlowDiff, error) {
	groupVals := make([]value.Value, len(a.By))
	for i, ci := range a.By {
		groupVals[i] = row[ci]
	}
	key := hashRow(row, a.By)

	payload, found, err := a.state.Get(tx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		payload = nil
	}
	before := a.decodeAcc(payload)
	hadBefore := before.count > 0
	var beforeOut []value.Value
	if hadBefore {
		beforeOut = a.outputRow(groupVals, before)
	}
	if delta < 0 && !hadBefore {
		return nil, nil
	}

	after := before
	after.sum = append([]float64(nil), before.sum...)
	after.entries = make([][]multisetEntry, len(a.Aggs))
	for i := range a.Aggs {
		after.entries[i] = append([]multisetEntry(nil), before.entries[i]...)
	}
	if delta > 0 {
		after.count++
	} else {
		after.count--
	}
	for i, ae := range a.Aggs {
		if ae.Func != AggMin && ae.Func != AggMax && ae.Func != AggSum && ae.Func != AggAvg {
			continue
		}
		f, ok := toFloat64(row[ae.Column])
		if !ok {
			continue
		}
		if delta > 0 {
			after.sum[i] += f
			if ae.Func == AggMin || ae.Func == AggMax {
				after.entries[i] = multisetAdd(after.entries[i], f)
			}
		} else {
			after.sum[i] -= f
			if ae.Func == AggMin || ae.Func == AggMax {
				after.entries[i] = multisetRemove(after.entries[i], f)
			}
		}
	}

	if !hadBefore && after.count > 0 {
		rowID, err := a.nextRowID(tx)
		if err != nil {
			return nil, err
		}
		after.rowID = rowID
	}

	if after.count == 0 {
		a.state.Remove(tx, key)
	} else {
		a.state.Set(tx, key, a.encodeAcc(after))
	}

	switch {
	case !hadBefore && after.count > 0:
		return flow.Insert{RowIds: []uint64{after.rowID}, Post: rowFrame(a.outputColumns(), a.outputRow(groupVals, after))}, nil
	case hadBefore && after.count == 0:
		return flow.Remove{RowIds: []uint64{before.rowID}, Before: rowFrame(a.outputColumns(), beforeOut)}, nil
	case hadBefore && after.count > 0:
		return flow.Update{
			RowIds: []uint64{before.rowID},
			Before: rowFrame(a.outputColumns(), beforeOut),
			After:  rowFrame(a.outputColumns(), a.outputRow(groupVals, after)),
		}, nil
	default:
		return nil, nil
	}
}

func (a *Aggregate) outputColumns() []ColumnSpec {
	cols := append([]ColumnSpec(nil), a.GroupColumns...)
	for _, ae := range a.Aggs {
		cols = append(cols, ae.ColumnSpec)
	}
	return cols
}

func (a *Aggregate) outputRow(groupVals []value.Value, acc aggAcc) []value.Value {
	out := append([]value.Value(nil), groupVals...)
	for i, ae := range a.Aggs {
		switch ae.Func {
		case AggCount:
			out = append(out, value.Uint8(acc.count))
		case AggSum:
			out = append(out, floatToValue(ae.Type, acc.sum[i]))
		case AggMin:
			out = append(out, floatToValue(ae.Type, multisetMin(acc.entries[i])))
		case AggMax:
			out = append(out, floatToValue(ae.Type, multisetMax(acc.entries[i])))
		case AggAvg:
			avg := 0.0
			if acc.count > 0 {
				avg = acc.sum[i] / float64(acc.count)
			}
			out = append(out, floatToValue(ae.Type, avg))
		}
	}
	return out
}

func floatToValue(t value.Type, f float64) value.Value {
	switch t {
	case value.TypeFloat4:
		return value.Float4(float32(f))
	case value.TypeInt8:
		return value.Int8(int64(f))
	case value.TypeUint8:
		return value.Uint8(uint64(f))
	default:
		return value.Float8(f)
	}
}

func toFloat64(v value.Value) (float64, bool) {
	if !v.Defined {
		return 0, false
	}
	switch d := v.Data.(type) {
	case int8:
		return float64(d), true
	case int16:
		return float64(d), true
	case int32:
		return float64(d), true
	case int64:
		return float64(d), true
	case uint8:
		return float64(d), true
	case uint16:
		return float64(d), true
	case uint32:
		return float64(d), true
	case uint64:
		return float64(d), true
	case float32:
		return float64(d), true
	case float64:
		return d, true
	default:
		return 0, false
	}
}

// rowFrame wraps one logical row of values into a single-row Frame
// shaped by cols, for operators (Aggregate, Join) that synthesize a
// fresh output row rather than projecting an existing input Frame.
func rowFrame(cols []ColumnSpec, vals []value.Value) *frame.Frame {
	fcols := make([]frame.Column, len(cols))
	for i, cs := range cols {
		col := frame.Column{Name: cs.Name, Type: cs.Type, Data: frame.Undefined(cs.Type, 0)}
		col.AsContainer().PushValue(vals[i])
		fcols[i] = col
	}
	return frame.New(fcols)
}
