package operator

import (
	"encoding/binary"
	"math"

	"reifydb.io/core/flow"
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/keycodec"
	"reifydb.io/core/row"
	"reifydb.io/core/value"
)

// WindowType selects how Window assigns an event to one or more
// window ids (spec.md §4.8).
type WindowType int

const (
	WindowTumbling WindowType = iota
	WindowSliding
	WindowCount
)

// Window buffers events into per-(group, window_id) accumulators and
// emits one aggregated output row per window once its endpoint has
// passed (time windows, via an explicit Sweep call — this core has no
// background clock) or once it fills (count windows, triggered inline
// on the insert that completes it). Once a window has triggered,
// further inserts into it are rejected, matching spec.md §4.8; a
// sliding event that also falls in a still-open neighboring window id
// is unaffected, since each covering window id is tracked separately.
type Window struct {
	Type         WindowType
	Size         uint64 // time windows: duration; count windows: N
	Slide        uint64 // sliding time windows only; Slide < Size
	GroupBy      []int
	GroupColumns []ColumnSpec
	TimeColumn   int // index of the event-time column; ignored for WindowCount
	Aggs         []AggExpr
	groupLayout  *row.Layout
	state        WindowStateful
	rowSeq       SingleStateful
	countState   KeyedStateful // per-group running insert count, for WindowCount id assignment
}

func NewWindow(operatorID uint64, typ WindowType, size, slide uint64, groupBy []int, groupColumns []ColumnSpec, timeColumn int, aggs []AggExpr) *Window {
	var groupLayout *row.Layout
	if len(groupColumns) > 0 {
		groupLayout = row.New(operatorID, columnTypes(groupColumns))
	}
	return &Window{
		Type:         typ,
		Size:         size,
		Slide:        slide,
		GroupBy:      groupBy,
		GroupColumns: groupColumns,
		TimeColumn:   timeColumn,
		Aggs:         aggs,
		groupLayout:  groupLayout,
		state:        WindowStateful{OperatorID: operatorID},
		rowSeq:       SingleStateful{OperatorID: operatorID},
		countState:   KeyedStateful{OperatorID: operatorID},
	}
}

type windowAcc struct {
	triggered bool
	windowEnd uint64 // time windows: the event-time instant after which the window is closed; unused for count windows
	rowID     uint64
	count     uint64
	groupVals []value.Value
	sum       []float64
	entries   [][]multisetEntry
}

func (w *Window) newAcc() windowAcc {
	return windowAcc{sum: make([]float64, len(w.Aggs)), entries: make([][]multisetEntry, len(w.Aggs))}
}

func (w *Window) decodeAcc(payload []byte) windowAcc {
	acc := w.newAcc()
	if payload == nil {
		return acc
	}
	if payload[0] != 0 {
		acc.triggered = true
	}
	acc.windowEnd = binary.BigEndian.Uint64(payload[1:9])
	acc.rowID = binary.BigEndian.Uint64(payload[9:17])
	acc.count = binary.BigEndian.Uint64(payload[17:25])
	groupLen := binary.BigEndian.Uint32(payload[25:29])
	off := 29
	if groupLen > 0 {
		acc.groupVals = decodeRowValues(w.groupLayout, payload[off:off+int(groupLen)])
		off += int(groupLen)
	}
	for i := range w.Aggs {
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

func (w *Window) encodeAcc(acc windowAcc) []byte {
	var groupBytes []byte
	if len(acc.groupVals) > 0 {
		groupBytes = encodeRowValues(w.groupLayout, acc.groupVals)
	}
	size := 29 + len(groupBytes)
	for _, es := range acc.entries {
		size += 8 + 4 + len(es)*12
	}
	buf := make([]byte, size)
	if acc.triggered {
		buf[0] = 1
	}
	binary.BigEndian.PutUint64(buf[1:9], acc.windowEnd)
	binary.BigEndian.PutUint64(buf[9:17], acc.rowID)
	binary.BigEndian.PutUint64(buf[17:25], acc.count)
	binary.BigEndian.PutUint32(buf[25:29], uint32(len(groupBytes)))
	off := 29
	if len(groupBytes) > 0 {
		off += copy(buf[off:], groupBytes)
	}
	for i := range w.Aggs {
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

// windowIDs returns every window id t belongs to, and that id's
// endpoint instant (the time after which it closes).
func (w *Window) windowIDs(t uint64) (ids []uint64, ends map[uint64]uint64) {
	ends = make(map[uint64]uint64)
	switch w.Type {
	case WindowTumbling:
		id := t / w.Size
		ids = []uint64{id}
		ends[id] = (id + 1) * w.Size
	case WindowSliding:
		maxID := t / w.Slide
		var minID uint64
		if t >= w.Size {
			minID = (t-w.Size)/w.Slide + 1
		}
		for id := minID; id <= maxID; id++ {
			start := id * w.Slide
			if t >= start && t < start+w.Size {
				ids = append(ids, id)
				ends[id] = start + w.Size
			}
		}
	}
	return
}

func (w *Window) groupKey(row []value.Value) []byte {
	return hashRow(row, w.GroupBy)
}

func (w *Window) nextRowID(tx *ftxn.FlowTransaction) (uint64, error) {
	payload, found, err := w.rowSeq.Get(tx)
	if err != nil {
		return 0, err
	}
	var cur uint64
	if found {
		cur = keycodec.DecodeU64(payload)
	}
	w.rowSeq.Set(tx, keycodec.EncodeU64(cur+1))
	return cur, nil
}

func (w *Window) countWindowID(tx *ftxn.FlowTransaction, group []byte, delta int) (uint64, error) {
	payload, found, err := w.countState.Get(tx, group)
	if err != nil {
		return 0, err
	}
	var n uint64
	if found {
		n = keycodec.DecodeU64(payload)
	}
	id := n / w.Size
	if delta > 0 {
		n++
		w.countState.Set(tx, group, keycodec.EncodeU64(n))
	}
	return id, nil
}

func (w *Window) Apply(tx *ftxn.FlowTransaction, changes []flow.FlowDiff) ([]flow.FlowDiff, error) {
	var out []flow.FlowDiff
	for _, c := range changes {
		switch diff := c.(type) {
		case flow.Insert:
			for i := 0; i < diff.Post.RowCount(); i++ {
				d, err := w.fold(tx, diff.Post.Row(i), +1)
				if err != nil {
					return nil, err
				}
				out = append(out, d...)
			}
		case flow.Remove:
			for i := 0; i < diff.Before.RowCount(); i++ {
				d, err := w.fold(tx, diff.Before.Row(i), -1)
				if err != nil {
					return nil, err
				}
				out = append(out, d...)
			}
		case flow.Update:
			for i := 0; i < diff.Before.RowCount(); i++ {
				d, err := w.fold(tx, diff.Before.Row(i), -1)
				if err != nil {
					return nil, err
				}
				out = append(out, d...)
			}
			for i := 0; i < diff.After.RowCount(); i++ {
				d, err := w.fold(tx, diff.After.Row(i), +1)
				if err != nil {
					return nil, err
				}
				out = append(out, d...)
			}
		default:
			out = append(out, c)
		}
	}
	return out, nil
}

// fold buckets row into every window id it belongs to and accumulates
// it; for WindowCount it may trigger (and emit) the window it just
// filled. Time windows never emit from fold — only from Sweep.
func (w *Window) fold(tx *ftxn.FlowTransaction, row []value.Value, delta int) ([]flow.FlowDiff, error) {
	group := w.groupKey(row)

	var targets []uint64
	ends := map[uint64]uint64{}
	if w.Type == WindowCount {
		id, err := w.countWindowID(tx, group, delta)
		if err != nil {
			return nil, err
		}
		targets = []uint64{id}
	} else {
		t, ok := toFloat64(row[w.TimeColumn])
		if !ok {
			return nil, nil
		}
		targets, ends = w.windowIDs(uint64(t))
	}

	var out []flow.FlowDiff
	for _, id := range targets {
		payload, found, err := w.state.Get(tx, group, id)
		if err != nil {
			return nil, err
		}
		if !found {
			payload = nil
		}
		acc := w.decodeAcc(payload)
		if acc.triggered {
			continue // window already closed, reject further folds
		}
		if end, ok := ends[id]; ok {
			acc.windowEnd = end
		}
		w.accumulate(&acc, row, delta)

		if w.Type == WindowCount && acc.count >= w.Size {
			rowID, err := w.nextRowID(tx)
			if err != nil {
				return nil, err
			}
			acc.rowID = rowID
			acc.triggered = true
			out = append(out, flow.Insert{RowIds: []uint64{rowID}, Post: rowFrame(w.outputColumns(), w.outputRow(acc))})
		}
		w.state.Set(tx, group, id, w.encodeAcc(acc))
	}
	return out, nil
}

func (w *Window) accumulate(acc *windowAcc, row []value.Value, delta int) {
	if acc.groupVals == nil {
		groupVals := make([]value.Value, len(w.GroupBy))
		for i, ci := range w.GroupBy {
			groupVals[i] = row[ci]
		}
		acc.groupVals = groupVals
	}
	if delta > 0 {
		acc.count++
	} else if acc.count > 0 {
		acc.count--
	}
	for i, ae := range w.Aggs {
		if ae.Func != AggMin && ae.Func != AggMax && ae.Func != AggSum && ae.Func != AggAvg {
			continue
		}
		f, ok := toFloat64(row[ae.Column])
		if !ok {
			continue
		}
		if delta > 0 {
			acc.sum[i] += f
			if ae.Func == AggMin || ae.Func == AggMax {
				acc.entries[i] = multisetAdd(acc.entries[i], f)
			}
		} else {
			acc.sum[i] -= f
			if ae.Func == AggMin || ae.Func == AggMax {
				acc.entries[i] = multisetRemove(acc.entries[i], f)
			}
		}
	}
}

// Sweep triggers every still-open tumbling/sliding window whose
// endpoint has passed now, emitting its aggregated output row, and
// removes every such window's accumulator once its endpoint lies more
// than 2·size before now — spec.md §4.8's retention horizon. Count
// windows trigger inline from fold and have no endpoint, so Sweep is a
// no-op for them. Callers invoke this explicitly (there is no
// background goroutine in this core).
func (w *Window) Sweep(tx *ftxn.FlowTransaction, now uint64) ([]flow.FlowDiff, error) {
	entries, err := scanState(tx, w.state.OperatorID)
	if err != nil {
		return nil, err
	}
	var out []flow.FlowDiff
	if w.Type != WindowCount {
		for _, e := range entries {
			if len(e.Key) < 9 {
				continue // the rowSeq slot shares this partition; not a windowKey
			}
			group, id := splitGroupKey(e.Key)
			acc := w.decodeAcc(e.Payload)
			if acc.triggered || acc.windowEnd > now {
				continue
			}
			rowID, err := w.nextRowID(tx)
			if err != nil {
				return nil, err
			}
			acc.rowID = rowID
			acc.triggered = true
			out = append(out, flow.Insert{RowIds: []uint64{rowID}, Post: rowFrame(w.outputColumns(), w.outputRow(acc))})
			w.state.Set(tx, group, id, w.encodeAcc(acc))
		}

		if err := w.state.ExpireRange(tx, func(payload []byte) bool {
			if len(payload) < 29 {
				return false // the rowSeq slot's 8-byte counter, not a window accumulator
			}
			acc := w.decodeAcc(payload)
			return acc.windowEnd > 0 && now > acc.windowEnd+2*w.Size
		}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (w *Window) outputColumns() []ColumnSpec {
	cols := append([]ColumnSpec(nil), w.GroupColumns...)
	for _, ae := range w.Aggs {
		cols = append(cols, ae.ColumnSpec)
	}
	return cols
}

func (w *Window) outputRow(acc windowAcc) []value.Value {
	out := append([]value.Value(nil), acc.groupVals...)
	for i, ae := range w.Aggs {
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
