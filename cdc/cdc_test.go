package cdc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reifydb.io/core/keycodec"
	"reifydb.io/core/kv"
	"reifydb.io/core/kv/memkv"
	"reifydb.io/core/reifylog"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cdc := InternalCdc{
		Version:     7,
		TimestampMs: 1234,
		Changes: []InternalCdcSequencedChange{
			{Sequence: 0, Change: Insert{Key: []byte("k1"), PostVersion: 7}},
			{Sequence: 1, Change: Update{Key: []byte("k2"), PreVersion: 3, PostVersion: 7}},
			{Sequence: 2, Change: Delete{Key: []byte("k3"), PreVersion: 5}},
		},
	}
	encoded := Encode(cdc)
	decoded, err := Decode(encoded)
	require.NoError(t, err)
	require.Equal(t, cdc, decoded)
	require.Equal(t, encoded, Encode(decoded), "decode(encode(cdc)) must re-encode byte-identical")
}

func TestChangeForEntryDecisionRule(t *testing.T) {
	c, ok := changeForEntry([]byte("k"), 1, false, 0, false)
	require.True(t, ok)
	require.Equal(t, Insert{Key: []byte("k"), PostVersion: 1}, c)

	c, ok = changeForEntry([]byte("k"), 2, false, 1, true)
	require.True(t, ok)
	require.Equal(t, Update{Key: []byte("k"), PreVersion: 1, PostVersion: 2}, c)

	c, ok = changeForEntry([]byte("k"), 3, true, 2, true)
	require.True(t, ok)
	require.Equal(t, Delete{Key: []byte("k"), PreVersion: 2}, c)

	_, ok = changeForEntry([]byte("k"), 1, true, 0, false)
	require.False(t, ok, "Remove with no earlier version must emit nothing")
}

func TestShardForPartitionsSourceByIdModuloNumShards(t *testing.T) {
	rowEntry := kv.CommitEntry{Kind: kv.EntryKindSource, Key: keycodec.RowKey(5, 100)}
	shard, err := shardFor(rowEntry, 4)
	require.NoError(t, err)
	require.EqualValues(t, 5%4, shard)

	globalEntry := kv.CommitEntry{Kind: kv.EntryKindMulti, Key: keycodec.VersionKey([]byte("a"), 1)}
	shard, err = shardFor(globalEntry, 4)
	require.NoError(t, err)
	require.EqualValues(t, 0, shard)
}

func TestIsCdcExcludedSkipsSingleTier(t *testing.T) {
	require.True(t, isCdcExcluded(kv.EntryKindSingle))
	require.False(t, isCdcExcluded(kv.EntryKindMulti))
}

// TestShardWorkerInsertUpdateDeleteSequence drives processBatch directly
// (bypassing the channel/goroutine loop for determinism): a Set with no
// earlier version, a Set with one, then a Remove, must produce exactly
// Insert, Update, Delete in order, readable back off the Cdc tier in
// ascending key (= commit) order.
func TestShardWorkerInsertUpdateDeleteSequence(t *testing.T) {
	store := memkv.New()
	stats := newShardStats(nil)
	w := newShardWorker(0, store, Config{NumShards: 1, MaxBatchSize: 256}, stats, reifylog.Default())

	logicalKey := []byte("k")

	mustSet := func(v uint64, value []byte) {
		require.NoError(t, store.Set(kv.Batch{
			kv.EntryKindMulti: {{Key: keycodec.VersionKey(logicalKey, v), Value: value}},
		}))
	}

	// v1: Set("k", "v1") -- no earlier version -> Insert
	mustSet(1, []byte("v1"))
	w.processBatch([]kv.CommitRecord{{
		Version:     1,
		TimestampMs: 100,
		Entries:     []kv.CommitEntry{{Kind: kv.EntryKindMulti, Key: logicalKey, Op: kv.OpSet, Value: []byte("v1")}},
	}})

	// v2: Set("k", "v2") -- earlier version exists -> Update
	mustSet(2, []byte("v2"))
	w.processBatch([]kv.CommitRecord{{
		Version:     2,
		TimestampMs: 200,
		Entries:     []kv.CommitEntry{{Kind: kv.EntryKindMulti, Key: logicalKey, Op: kv.OpSet, Value: []byte("v2")}},
	}})

	// v3: Remove("k") -- earlier version exists -> Delete
	mustSet(3, nil)
	w.processBatch([]kv.CommitRecord{{
		Version:     3,
		TimestampMs: 300,
		Entries:     []kv.CommitEntry{{Kind: kv.EntryKindMulti, Key: logicalKey, Op: kv.OpRemove, Value: nil}},
	}})

	entries, err := store.ScanRange(kv.EntryKindCdc, keycodec.CdcShardPrefix(0), nil)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var records []InternalCdc
	for _, e := range entries {
		rec, err := Decode(e.Value)
		require.NoError(t, err)
		records = append(records, rec)
	}

	require.Equal(t, uint64(1), records[0].Version)
	require.Equal(t, Insert{Key: logicalKey, PostVersion: 1}, records[0].Changes[0].Change)

	require.Equal(t, uint64(2), records[1].Version)
	require.Equal(t, Update{Key: logicalKey, PreVersion: 1, PostVersion: 2}, records[1].Changes[0].Change)

	require.Equal(t, uint64(3), records[2].Version)
	require.Equal(t, Delete{Key: logicalKey, PreVersion: 2}, records[2].Changes[0].Change)

	require.EqualValues(t, 3, w.Watermark())
}

func TestRemoveWithNoEarlierVersionEmitsNothing(t *testing.T) {
	store := memkv.New()
	stats := newShardStats(nil)
	w := newShardWorker(0, store, Config{NumShards: 1, MaxBatchSize: 256}, stats, reifylog.Default())

	logicalKey := []byte("never-set")
	require.NoError(t, store.Set(kv.Batch{
		kv.EntryKindMulti: {{Key: keycodec.VersionKey(logicalKey, 1), Value: nil}},
	}))
	w.processBatch([]kv.CommitRecord{{
		Version:     1,
		TimestampMs: 100,
		Entries:     []kv.CommitEntry{{Kind: kv.EntryKindMulti, Key: logicalKey, Op: kv.OpRemove, Value: nil}},
	}})

	entries, err := store.ScanRange(kv.EntryKindCdc, keycodec.CdcShardPrefix(0), nil)
	require.NoError(t, err)
	require.Empty(t, entries)
}
