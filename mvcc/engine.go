// Package mvcc implements the optimistic multi-version concurrency
// control transaction engine (spec.md §4.5): first-committer-wins
// write–write conflict detection, snapshot isolation for reads, and
// as_of time-travel via persisted active-set snapshots.
package mvcc

import (
	"bytes"
	"sync"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/prometheus/client_golang/prometheus"

	"reifydb.io/core/keycodec"
	"reifydb.io/core/kv"
)

// Dispatcher receives one notification per commit, carrying the full
// write-set. The CDC shard-worker pool (package cdc) implements this;
// mvcc never imports cdc, keeping dependency direction one-way.
type Dispatcher interface {
	Dispatch(rec kv.CommitRecord)
}

// Engine is the process-wide MVCC state: `{NextVersion, ActiveSnapshots,
// Active}` from spec.md §4.5, plus the backing store and an optional CDC
// dispatcher invoked on every commit.
type Engine struct {
	store      kv.Store
	dispatcher Dispatcher

	mu              sync.Mutex
	nextVersion     uint64
	active          *roaring64.Bitmap
	activeSnapshots map[uint64]*roaring64.Bitmap
	stats           *engineStats
}

// NewEngine constructs an Engine over store. dispatcher may be nil if no
// CDC fan-out is wired up (e.g. in tests exercising mvcc in isolation).
// reg may be nil to skip prometheus registration entirely (also typical
// in tests).
func NewEngine(store kv.Store, dispatcher Dispatcher, reg prometheus.Registerer) *Engine {
	nv := uint64(1)
	if v, found := store.Get(kv.EntryKindSingle, keycodec.NextVersionKey()); found && len(v) == 8 {
		nv = keycodec.DecodeU64(v)
	}
	return &Engine{
		store:           store,
		dispatcher:      dispatcher,
		nextVersion:     nv,
		active:          roaring64.New(),
		activeSnapshots: make(map[uint64]*roaring64.Bitmap),
		stats:           newEngineStats(reg),
	}
}

// Begin starts a read-write transaction per spec.md §4.5's begin(read_write):
// allocates a new version, snapshots the current active set, persists
// that snapshot if non-empty, then joins Active.
func (e *Engine) Begin() *Tx {
	e.mu.Lock()
	defer e.mu.Unlock()

	v := e.nextVersion
	e.nextVersion++

	snapshot := e.active.Clone()
	if !snapshot.IsEmpty() {
		e.activeSnapshots[v] = snapshot
		e.persistActiveSnapshot(v, snapshot)
	}
	e.active.Add(v)
	e.persistNextVersion()
	e.persistTxActive(v)

	return &Tx{engine: e, version: v, active: snapshot}
}

// BeginReadOnly starts a read-only transaction per spec.md §4.5's
// begin_read_only(as_of). asOf nil means "read as of now" using
// NextVersion and the current Active snapshot; read-only transactions
// are never inserted into Active.
func (e *Engine) BeginReadOnly(asOf *uint64) (*Tx, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if asOf == nil {
		return &Tx{engine: e, version: e.nextVersion, readOnly: true, active: e.active.Clone()}, nil
	}

	v := *asOf
	if v >= e.nextVersion {
		return nil, ErrVersionNotFound
	}
	snapshot, ok := e.activeSnapshots[v]
	if !ok {
		snapshot = e.loadPersistedActiveSnapshot(v)
	}
	if snapshot == nil {
		snapshot = roaring64.New()
	}
	return &Tx{engine: e, version: v, readOnly: true, active: snapshot.Clone()}, nil
}

// Store returns the backing kv.Store, for callers (the flow scheduler's
// view-sequence bootstrap, diagnostics) that need to address the store
// directly outside any single Tx.
func (e *Engine) Store() kv.Store { return e.store }

// Stats is a point-in-time snapshot of engine-level bookkeeping state,
// named in spec.md §10 as a supplemented introspection feature: how many
// transactions are concurrently active, and how far the version counter
// has advanced.
type Stats struct {
	NextVersion  uint64
	ActiveCount  int
	SnapshotsLen int
}

// Stats reports the engine's current bookkeeping state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		NextVersion:  e.nextVersion,
		ActiveCount:  int(e.active.GetCardinality()),
		SnapshotsLen: len(e.activeSnapshots),
	}
}

func (e *Engine) persistNextVersion() {
	e.store.Set(kv.Batch{
		kv.EntryKindSingle: {{Key: keycodec.NextVersionKey(), Value: keycodec.EncodeU64(e.nextVersion)}},
	})
}

func (e *Engine) persistTxActive(v uint64) {
	e.store.Set(kv.Batch{
		kv.EntryKindSingle: {{Key: keycodec.TxActiveKey(v), Value: []byte{1}}},
	})
}

func (e *Engine) clearTxActive(v uint64) {
	e.store.Set(kv.Batch{
		kv.EntryKindSingle: {{Key: keycodec.TxActiveKey(v), Value: nil}},
	})
}

func (e *Engine) persistActiveSnapshot(v uint64, snapshot *roaring64.Bitmap) {
	bytes, err := snapshot.ToBytes()
	if err != nil {
		return
	}
	e.store.Set(kv.Batch{
		kv.EntryKindSingle: {{Key: keycodec.TxActiveSnapshotKey(v), Value: bytes}},
	})
}

func (e *Engine) loadPersistedActiveSnapshot(v uint64) *roaring64.Bitmap {
	raw, found := e.store.Get(kv.EntryKindSingle, keycodec.TxActiveSnapshotKey(v))
	if !found || len(raw) == 0 {
		return nil
	}
	bm := roaring64.New()
	if _, err := bm.ReadFrom(bytes.NewReader(raw)); err != nil {
		return nil
	}
	return bm
}

// commit finalizes a read-write transaction: validates its write-set
// for first-committer-wins conflicts, deletes its TxWrite markers,
// removes it from Active, and notifies the CDC dispatcher with the
// commit's full write-set (spec.md §4.5/§4.6).
func (e *Engine) commit(tx *Tx) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	writes, err := e.scanTxWrites(tx.version)
	if err != nil {
		return err
	}

	if err := e.checkWriteConflicts(tx, writes); err != nil {
		e.recordConflict()
		return err
	}

	var commitEntries []kv.CommitEntry
	batch := kv.Batch{kv.EntryKindSingle: nil}
	for _, w := range writes {
		batch[kv.EntryKindSingle] = append(batch[kv.EntryKindSingle], kv.Entry{Key: w.markerKey, Value: nil})
		kind, kerr := kv.KindForKey(w.logicalKey)
		if kerr != nil {
			kind = kv.EntryKindMulti
		}
		op := kv.OpSet
		if w.value == nil {
			op = kv.OpRemove
		}
		commitEntries = append(commitEntries, kv.CommitEntry{Kind: kind, Key: w.logicalKey, Op: op, Value: w.value})
	}
	if err := e.store.Set(batch); err != nil {
		return err
	}

	e.active.Remove(tx.version)
	delete(e.activeSnapshots, tx.version)
	e.clearTxActive(tx.version)

	rec := kv.CommitRecord{Version: tx.version, TimestampMs: uint64(time.Now().UnixMilli()), Entries: commitEntries}
	e.store.AppendCommit(rec)
	if e.dispatcher != nil {
		e.dispatcher.Dispatch(rec)
	}
	e.stats.commits.Inc()
	return nil
}

// rollback deletes every TxWrite marker and its corresponding Version
// entry, then removes the transaction from Active. ActiveSnapshot(v) is
// kept: later time-travel readers at this version still need it.
func (e *Engine) rollback(tx *Tx) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	writes, err := e.scanTxWrites(tx.version)
	if err != nil {
		return err
	}

	batch := kv.Batch{}
	for _, w := range writes {
		batch[kv.EntryKindSingle] = append(batch[kv.EntryKindSingle], kv.Entry{Key: w.markerKey, Value: nil})
		batch[kv.EntryKindMulti] = append(batch[kv.EntryKindMulti], kv.Entry{
			Key:   keycodec.VersionKey(w.logicalKey, tx.version),
			Value: nil,
		})
	}
	if err := e.store.Set(batch); err != nil {
		return err
	}

	e.active.Remove(tx.version)
	e.clearTxActive(tx.version)
	e.stats.rollbacks.Inc()
	return nil
}

// recordConflict is invoked on an MVCC_SERIALIZATION write-write
// conflict detected at commit time, before the error propagates to the
// caller.
func (e *Engine) recordConflict() {
	e.stats.conflicts.Inc()
}

// checkWriteConflicts implements spec.md §4.5's commit-time
// first-committer-wins check: for every key this transaction wrote,
// the latest *other* version of that key must either (a) have been
// visible to this transaction at begin — i.e. it is simply the base
// value this write built on — or (b) still be in flight (its writer
// has neither committed nor rolled back as of now). Only a version
// that was invisible at begin AND has since actually committed (no
// longer in the live Active set) is a genuine conflict: the competing
// writer beat this transaction to the commit. e.mu is held by the
// caller (commit), so e.active here reflects the current, not
// snapshotted, active set.
func (e *Engine) checkWriteConflicts(tx *Tx, writes []txWrite) error {
	for _, w := range writes {
		versions, err := tx.descendingVersions(w.logicalKey)
		if err != nil {
			return err
		}
		for _, ve := range versions {
			if ve.version == tx.version {
				continue // this transaction's own write to the key
			}
			if tx.visible(ve.version) {
				break // the base version this write built on; not a conflict
			}
			if !e.active.Contains(ve.version) {
				return ErrSerialization // invisible at begin and since committed
			}
			break // invisible at begin but still in flight: not a conflict yet
		}
	}
	return nil
}

type txWrite struct {
	markerKey  []byte
	logicalKey []byte
	value      []byte
}

// scanTxWrites returns every TxWrite(v, key) marker for version v, along
// with the key it indexes and that key's current value at this version.
func (e *Engine) scanTxWrites(v uint64) ([]txWrite, error) {
	prefix := keycodec.TxWriteKey(v, nil)
	end := incrementPrefix(prefix)
	entries, err := e.store.ScanRange(kv.EntryKindSingle, prefix, end)
	if err != nil {
		return nil, err
	}
	out := make([]txWrite, 0, len(entries))
	for _, ent := range entries {
		_, body, err := keycodec.SplitHeader(ent.Key)
		if err != nil {
			continue
		}
		_, key := keycodec.DecodeTxWriteKey(body)
		val, _ := e.store.Get(kv.EntryKindMulti, keycodec.VersionKey(key, v))
		out = append(out, txWrite{markerKey: ent.Key, logicalKey: key, value: val})
	}
	return out, nil
}

func incrementPrefix(b []byte) []byte {
	out := append([]byte(nil), b...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}
