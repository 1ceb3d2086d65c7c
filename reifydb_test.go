// Package reifydb_test exercises the end-to-end scenarios of spec.md
// §8 against the real engine, cutting across mvcc/cdc/flow rather than
// any single package's unit tests.
package reifydb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"reifydb.io/core/catalog"
	"reifydb.io/core/cdc"
	"reifydb.io/core/flow"
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/flow/operator"
	"reifydb.io/core/keycodec"
	"reifydb.io/core/kv"
	"reifydb.io/core/kv/memkv"
	"reifydb.io/core/mvcc"
	"reifydb.io/core/row"
	"reifydb.io/core/value"
)

// scenario 1: MVCC basic visibility.
func TestMVCCBasicVisibility(t *testing.T) {
	engine := mvcc.NewEngine(memkv.New(), nil, nil)
	key := []byte("a")

	t1 := engine.Begin()
	require.NoError(t, t1.Set(key, []byte("1")))
	require.NoError(t, t1.Commit())

	t2 := engine.Begin()
	require.NoError(t, t2.Set(key, []byte("2")))
	require.NoError(t, t2.Commit())

	t3, err := engine.BeginReadOnly(nil)
	require.NoError(t, err)
	v, found, err := t3.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("2"), v)
}

// scenario 2: write-write conflict, first committer wins.
func TestMVCCWriteWriteConflict(t *testing.T) {
	engine := mvcc.NewEngine(memkv.New(), nil, nil)
	key := []byte("x")

	t1 := engine.Begin()
	t2 := engine.Begin()
	require.NoError(t, t1.Set(key, []byte("A")))
	require.NoError(t, t2.Set(key, []byte("B")))
	require.NoError(t, t1.Commit())

	err := t2.Commit()
	require.ErrorIs(t, err, mvcc.ErrSerialization)

	ro, err := engine.BeginReadOnly(nil)
	require.NoError(t, err)
	v, found, err := ro.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("A"), v)
}

// scenario 3: time travel via as_of.
func TestMVCCTimeTravel(t *testing.T) {
	engine := mvcc.NewEngine(memkv.New(), nil, nil)
	key := []byte("a")

	t1 := engine.Begin()
	require.NoError(t, t1.Set(key, []byte("1")))
	require.NoError(t, t1.Commit())
	v1 := t1.Version()

	t2 := engine.Begin()
	require.NoError(t, t2.Set(key, []byte("2")))
	require.NoError(t, t2.Commit())

	asOf, err := engine.BeginReadOnly(&v1)
	require.NoError(t, err)
	v, found, err := asOf.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), v)
}

// scenario 4: CDC Insert/Update/Delete ordering, driven through the
// real shard-worker pool rather than hand-built InternalCdc records.
func TestCdcInsertUpdateDeleteOrdering(t *testing.T) {
	store := memkv.New()
	cfg := cdc.Config{NumShards: 1, BatchWindow: 2 * time.Millisecond, MaxBatchSize: 256, ChannelCapacity: 16}
	dispatcher := cdc.NewDispatcher(store, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)
	defer cancel()

	engine := mvcc.NewEngine(store, dispatcher, nil)
	key := []byte("k")

	t1 := engine.Begin()
	require.NoError(t, t1.Set(key, []byte("v1")))
	require.NoError(t, t1.Commit())

	t2 := engine.Begin()
	require.NoError(t, t2.Set(key, []byte("v2")))
	require.NoError(t, t2.Commit())

	t3 := engine.Begin()
	require.NoError(t, t3.Remove(key))
	require.NoError(t, t3.Commit())

	waitForWatermark(t, dispatcher, t3.Version())

	recs := readShardCdc(t, store, 0)
	require.Len(t, recs, 3)
	require.Equal(t, cdc.Insert{Key: key, PostVersion: t1.Version()}, recs[0].Changes[0].Change)
	require.Equal(t, cdc.Update{Key: key, PreVersion: t1.Version(), PostVersion: t2.Version()}, recs[1].Changes[0].Change)
	require.Equal(t, cdc.Delete{Key: key, PreVersion: t2.Version()}, recs[2].Changes[0].Change)
}

func waitForWatermark(t *testing.T, d *cdc.Dispatcher, version uint64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		marks := d.Watermarks()
		if len(marks) > 0 && marks[0] >= version {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("cdc dispatcher did not reach watermark %d in time", version)
}

// scenario 5: flow filter end-to-end, fed by the real CDC pipeline.
func TestFlowFilterEndToEnd(t *testing.T) {
	store := memkv.New()
	cfg := cdc.Config{NumShards: 1, BatchWindow: 2 * time.Millisecond, MaxBatchSize: 256, ChannelCapacity: 16}
	dispatcher := cdc.NewDispatcher(store, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	dispatcher.Start(ctx)
	defer cancel()

	engine := mvcc.NewEngine(store, dispatcher, nil)
	sched := flow.NewScheduler(engine)

	table := catalog.Table{ID: 1, Columns: []catalog.ColumnDef{
		{Name: "id", Type: value.TypeInt8},
		{Name: "x", Type: value.TypeInt8},
	}}
	view := catalog.View{ID: 1, Columns: table.Columns}
	sched.RegisterTable(table)
	sched.RegisterView(view)

	fl := flow.NewFlow(1)
	src := fl.AddSourceTable(table.ID)
	op := fl.AddOperator(func(uint64) flow.Operator {
		return operator.NewFilter(func(r []value.Value) bool {
			n, _ := r[1].Data.(int64)
			return n > 10
		})
	})
	sink := fl.AddSinkView(view.ID)
	fl.Connect(src, op)
	fl.Connect(op, sink)
	sched.RegisterFlow(fl)

	types := []value.Type{value.TypeInt8, value.TypeInt8}
	layout := row.New(uint64(table.ID), types)

	tx := engine.Begin()
	rows := []struct {
		id, x int64
	}{{1, 5}, {2, 15}, {3, 20}}
	for i, r := range rows {
		rr := layout.Allocate()
		rr.Set(0, value.Int8(r.id))
		rr.Set(1, value.Int8(r.x))
		require.NoError(t, tx.Set(keycodec.RowKey(uint64(table.ID), uint64(i+1)), rr.Bytes()))
	}
	require.NoError(t, tx.Commit())
	commitVersion := tx.Version()

	waitForWatermark(t, dispatcher, commitVersion)

	recs := readShardCdc(t, store, 0)
	for _, rec := range recs {
		require.NoError(t, sched.ConsumeCdc(rec))
	}

	ro, err := engine.BeginReadOnly(nil)
	require.NoError(t, err)
	row0, found, err := ro.Get(keycodec.RowKey(uint64(view.ID), 0))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(15), layout.Wrap(row0).Get(1).Data)

	row1, found, err := ro.Get(keycodec.RowKey(uint64(view.ID), 1))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, int64(20), layout.Wrap(row1).Get(1).Data)

	_, found, err = ro.Get(keycodec.RowKey(uint64(view.ID), 2))
	require.NoError(t, err)
	require.False(t, found, "the row below threshold must never reach the view")
}

// readShardCdc decodes every InternalCdc record a shard has persisted,
// in ascending key (= commit-version) order, matching spec.md §4.6's
// CDC-tier read contract.
func readShardCdc(t *testing.T, store kv.Store, shard uint16) []cdc.InternalCdc {
	t.Helper()
	entries, err := store.ScanRange(kv.EntryKindCdc, keycodec.CdcShardPrefix(shard), nil)
	require.NoError(t, err)
	recs := make([]cdc.InternalCdc, 0, len(entries))
	for _, e := range entries {
		rec, err := cdc.Decode(e.Value)
		require.NoError(t, err)
		recs = append(recs, rec)
	}
	return recs
}

// scenario 6: flow keyspace overlap rejection.
func TestFlowKeyspaceOverlapRejection(t *testing.T) {
	engine := mvcc.NewEngine(memkv.New(), nil, nil)
	tx := engine.Begin()
	parent := ftxn.NewParentTxn(tx)

	key := keycodec.RowKey(42, 7)

	f1 := ftxn.New(parent)
	f1.Set(key, []byte("first"))
	_, err := f1.Commit()
	require.NoError(t, err)

	f2 := ftxn.New(parent)
	f2.Set(key, []byte("second"))
	_, err = f2.Commit()
	require.ErrorIs(t, err, ftxn.ErrKeyspaceOverlap)

	v, found, err := tx.Get(key)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("first"), v, "the rejected commit must not mutate the parent")
}
