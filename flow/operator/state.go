// Package operator implements the concrete flow.Operator catalog of
// spec.md §4.8 (Filter, Map/Extend, Distinct, Aggregate, Take, Sort,
// Join, Window) plus the three stateful-helper traits of §4.9, built on
// top of package flow/txn's FlowTransaction.
package operator

import (
	ftxn "reifydb.io/core/flow/txn"
	"reifydb.io/core/keycodec"
	"reifydb.io/core/row"
	"reifydb.io/core/value"
)

// stateFingerprint is the shared row.Layout fingerprint for every
// stateful operator's on-disk wrapper: a single Blob field, per spec.md
// §4.8 ("Encoded state is a single-blob EncodedValues"). The blob
// payload itself is operator-specific and encoded with encoding/binary
// directly, the same way package cdc encodes InternalCdc — there is no
// shared structured-serialization library wired into this tree, and
// introducing one solely for internal operator state would be a format
// with no other caller.
const stateFingerprint uint64 = 0x5354415445

var stateLayout = row.New(stateFingerprint, []value.Type{value.TypeBlob})

// loadState reads the blob payload stored under key in operatorID's
// state partition.
func loadState(tx *ftxn.FlowTransaction, operatorID uint64, key []byte) ([]byte, bool, error) {
	raw, found, err := tx.Get(keycodec.OperatorStateKey(operatorID, key))
	if err != nil || !found {
		return nil, false, err
	}
	blob, ok := stateLayout.Wrap(raw).GetBlob(0)
	if !ok {
		return nil, false, nil
	}
	return blob, true, nil
}

// saveState buffers a write of payload under key in operatorID's state
// partition.
func saveState(tx *ftxn.FlowTransaction, operatorID uint64, key []byte, payload []byte) {
	r := stateLayout.Allocate()
	r.SetBlob(0, payload)
	tx.Set(keycodec.OperatorStateKey(operatorID, key), r.Bytes())
}

func removeState(tx *ftxn.FlowTransaction, operatorID uint64, key []byte) {
	tx.Remove(keycodec.OperatorStateKey(operatorID, key))
}

// stateEntry is one decoded (key, payload) pair returned by a scan over
// an operator's state partition.
type stateEntry struct {
	Key     []byte
	Payload []byte
}

func scanState(tx *ftxn.FlowTransaction, operatorID uint64) ([]stateEntry, error) {
	kvs, err := tx.ScanPrefix(keycodec.OperatorStatePrefix(operatorID))
	if err != nil {
		return nil, err
	}
	out := make([]stateEntry, 0, len(kvs))
	for _, kv := range kvs {
		_, body, err := keycodec.SplitHeader(kv.Key)
		if err != nil {
			continue
		}
		_, stateKey, err := keycodec.DecodeOperatorStateKey(body)
		if err != nil {
			continue
		}
		blob, ok := stateLayout.Wrap(kv.Value).GetBlob(0)
		if !ok {
			continue
		}
		out = append(out, stateEntry{Key: stateKey, Payload: blob})
	}
	return out, nil
}

// SingleStateful is the one-state-slot-per-operator helper of spec.md
// §4.9 (used by Take).
type SingleStateful struct{ OperatorID uint64 }

var singleSlotKey = []byte("slot")

func (s SingleStateful) Get(tx *ftxn.FlowTransaction) ([]byte, bool, error) {
	return loadState(tx, s.OperatorID, singleSlotKey)
}

func (s SingleStateful) Set(tx *ftxn.FlowTransaction, payload []byte) {
	saveState(tx, s.OperatorID, singleSlotKey, payload)
}

func (s SingleStateful) Remove(tx *ftxn.FlowTransaction) {
	removeState(tx, s.OperatorID, singleSlotKey)
}

// KeyedStateful is `state[key]` keyed by a hashed group/join key (used
// by Distinct, Aggregate, Join).
type KeyedStateful struct{ OperatorID uint64 }

func (k KeyedStateful) Get(tx *ftxn.FlowTransaction, key []byte) ([]byte, bool, error) {
	return loadState(tx, k.OperatorID, key)
}

func (k KeyedStateful) Set(tx *ftxn.FlowTransaction, key, payload []byte) {
	saveState(tx, k.OperatorID, key, payload)
}

func (k KeyedStateful) Remove(tx *ftxn.FlowTransaction, key []byte) {
	removeState(tx, k.OperatorID, key)
}

// Scan returns every currently stored (key, payload) pair of the
// operator's partition; Sort's Snapshot rebuilds its maintained order
// from it.
func (k KeyedStateful) Scan(tx *ftxn.FlowTransaction) ([]stateEntry, error) {
	return scanState(tx, k.OperatorID)
}

// WindowStateful is `state[group × window_id]` (used by Window).
type WindowStateful struct{ OperatorID uint64 }

func windowKey(group []byte, windowID uint64) []byte {
	buf := make([]byte, 0, len(group)+1+8)
	buf = append(buf, group...)
	buf = append(buf, 0) // separator; splitGroupKey finds it by position, so group bytes may contain 0
	return append(buf, keycodec.EncodeU64(windowID)...)
}

func (w WindowStateful) Get(tx *ftxn.FlowTransaction, group []byte, windowID uint64) ([]byte, bool, error) {
	return loadState(tx, w.OperatorID, windowKey(group, windowID))
}

func (w WindowStateful) Set(tx *ftxn.FlowTransaction, group []byte, windowID uint64, payload []byte) {
	saveState(tx, w.OperatorID, windowKey(group, windowID), payload)
}

func (w WindowStateful) Remove(tx *ftxn.FlowTransaction, group []byte, windowID uint64) {
	removeState(tx, w.OperatorID, windowKey(group, windowID))
}

// ExpireRange sweeps every window state entry and removes those whose
// decoded window end has passed beyond the retention horizon (spec.md
// §4.8: "windows older than 2·size are removed"). isExpired is supplied
// by the caller (package operator's window.go) since only it knows how
// to decode its own state payload's window-end field.
func (w WindowStateful) ExpireRange(tx *ftxn.FlowTransaction, isExpired func(payload []byte) bool) error {
	entries, err := scanState(tx, w.OperatorID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if isExpired(e.Payload) {
			removeState(tx, w.OperatorID, e.Key)
		}
	}
	return nil
}

// splitGroupKey parses a windowKey back into its group prefix and
// window id, the inverse of windowKey above. The separator byte windowKey
// appends is always at index len(key)-8-1, regardless of what bytes the
// group itself contains.
func splitGroupKey(key []byte) (group []byte, windowID uint64) {
	sep := len(key) - 8 - 1
	return key[:sep], keycodec.DecodeU64(key[len(key)-8:])
}
