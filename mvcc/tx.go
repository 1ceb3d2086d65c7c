package mvcc

import (
	"bytes"
	"sort"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"reifydb.io/core/keycodec"
	"reifydb.io/core/kv"
)

// Tx is one MVCC transaction's state: `{version, read_only, active}`
// from spec.md §4.5.
type Tx struct {
	engine   *Engine
	version  uint64
	readOnly bool
	active   *roaring64.Bitmap // snapshot of Active at begin time
	done     bool
}

func (tx *Tx) Version() uint64 { return tx.version }
func (tx *Tx) ReadOnly() bool  { return tx.readOnly }

// visible implements spec.md §4.5's visibility rule: from a transaction
// with state (v, active), another version v' is visible iff v' ≤ v,
// v' ∉ active, and v' is not itself an uncommitted foreign write (the
// "≠ v_self_if_other" clause collapses to: v' == tx.version is always
// visible, since that is this transaction's own write).
func (tx *Tx) visible(vPrime uint64) bool {
	if vPrime == tx.version {
		return true
	}
	if vPrime > tx.version {
		return false
	}
	return !tx.active.Contains(vPrime)
}

// Get returns the value visible to this transaction at key, or found
// == false if no visible version exists or the visible version is a
// tombstone (spec.md §4.5: "a tombstone means deleted").
func (tx *Tx) Get(key []byte) (value []byte, found bool, err error) {
	versions, err := tx.descendingVersions(key)
	if err != nil {
		return nil, false, err
	}
	for _, ve := range versions {
		if !tx.visible(ve.version) {
			continue
		}
		if ve.value == nil {
			return nil, false, nil
		}
		return ve.value, true, nil
	}
	return nil, false, nil
}

type versionedEntry struct {
	version uint64
	value   []byte
}

func (tx *Tx) descendingVersions(key []byte) ([]versionedEntry, error) {
	prefix := keycodec.VersionKeyPrefix(key)
	end := incrementPrefix(prefix)
	entries, err := tx.engine.store.ScanRange(kv.EntryKindMulti, prefix, end)
	if err != nil {
		return nil, err
	}
	out := make([]versionedEntry, 0, len(entries))
	for _, e := range entries {
		_, body, err := keycodec.SplitHeader(e.Key)
		if err != nil {
			continue
		}
		_, v := keycodec.DecodeVersionKey(body)
		out = append(out, versionedEntry{version: v, value: e.Value})
	}
	return out, nil
}

// Set buffers value at key into the store under this transaction's own
// version; write–write conflict detection against keys this transaction
// wrote is deferred to Commit (spec.md §4.5, §8 scenario 2), since
// whether a concurrent writer's version actually conflicts can only be
// known once it is known whether that writer has committed — not at
// the moment this transaction happens to call Set.
func (tx *Tx) Set(key, value []byte) error {
	if tx.readOnly {
		return ErrReadOnly
	}

	return tx.engine.store.Set(kv.Batch{
		kv.EntryKindSingle: {{Key: keycodec.TxWriteKey(tx.version, key), Value: []byte{1}}},
		kv.EntryKindMulti:  {{Key: keycodec.VersionKey(key, tx.version), Value: value}},
	})
}

// Remove writes a tombstone at key (spec.md §4.5: "equivalent to
// set(key, None-tombstone)").
func (tx *Tx) Remove(key []byte) error {
	return tx.Set(key, nil)
}

// KeyValue is one (key, value) result of Scan/ScanPrefix.
type KeyValue struct {
	Key   []byte
	Value []byte
}

// ScanPrefix produces (key, value) pairs of the latest visible,
// non-tombstone versions under prefix, in key order (spec.md §4.5).
func (tx *Tx) ScanPrefix(prefix []byte) ([]KeyValue, error) {
	return tx.Scan(prefix, incrementPrefix(prefix))
}

// Scan produces (key, value) pairs of the latest visible, non-tombstone
// versions with logical key in [start, end), in key order.
func (tx *Tx) Scan(start, end []byte) ([]KeyValue, error) {
	startKey := keycodec.VersionKeyPrefix(start)
	var endKey []byte
	if end != nil {
		endKey = keycodec.VersionKeyPrefix(end)
	}
	entries, err := tx.engine.store.ScanRange(kv.EntryKindMulti, startKey, endKey)
	if err != nil {
		return nil, err
	}

	type decoded struct {
		key     []byte
		version uint64
		value   []byte
	}
	all := make([]decoded, 0, len(entries))
	for _, e := range entries {
		_, body, err := keycodec.SplitHeader(e.Key)
		if err != nil {
			continue
		}
		k, v := keycodec.DecodeVersionKey(body)
		all = append(all, decoded{key: k, version: v, value: e.Value})
	}
	// Stable sort by logical key, preserving the existing descending
	// per-key version order the store already returned them in.
	sort.SliceStable(all, func(i, j int) bool { return bytes.Compare(all[i].key, all[j].key) < 0 })

	var out []KeyValue
	var lastKey []byte
	haveLast := false
	for _, d := range all {
		if haveLast && bytes.Equal(d.key, lastKey) {
			continue // already resolved this logical key's latest visible version
		}
		if !tx.visible(d.version) {
			continue
		}
		lastKey, haveLast = d.key, true
		if d.value == nil {
			continue // tombstone: not present
		}
		out = append(out, KeyValue{Key: append([]byte(nil), d.key...), Value: d.value})
	}
	return out, nil
}

// Commit finalizes a read-write transaction; a no-op for read-only
// transactions (spec.md §4.5).
func (tx *Tx) Commit() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.readOnly {
		return nil
	}
	return tx.engine.commit(tx)
}

// Rollback discards this transaction's writes; always safe to call,
// including on a read-only transaction (no-op).
func (tx *Tx) Rollback() error {
	if tx.done {
		return nil
	}
	tx.done = true
	if tx.readOnly {
		return nil
	}
	return tx.engine.rollback(tx)
}
