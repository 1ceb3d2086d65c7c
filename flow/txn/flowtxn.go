// Package txn implements the flow transaction layer (spec.md §4.10): a
// buffered pending-writes overlay over a parent MVCC transaction, with a
// commit-time non-overlapping-keyspace check shared across every
// FlowTransaction committing against the same parent.
package txn

import (
	"bytes"
	"sort"
	"strings"
	"sync"

	"reifydb.io/core/mvcc"
)

// ParentTxn wraps one parent *mvcc.Tx and tracks the union of keys
// every FlowTransaction sharing it has already replayed, so sibling
// FlowTransactions enforce spec.md §4.10 rule 1's non-overlapping-
// keyspace invariant without the parent MVCC engine needing to know
// about flow transactions at all.
type ParentTxn struct {
	tx *mvcc.Tx

	mu      sync.Mutex
	claimed map[string]struct{}
}

// NewParentTxn wraps tx. Every FlowTransaction that will commit against
// the same logical unit of work must share one ParentTxn instance.
func NewParentTxn(tx *mvcc.Tx) *ParentTxn {
	return &ParentTxn{tx: tx, claimed: make(map[string]struct{})}
}

// Tx returns the wrapped parent MVCC transaction, for callers (the flow
// scheduler's sink/sequence bookkeeping) that need to read or write
// keys directly against the parent outside any single FlowTransaction's
// keyspace-overlap accounting — e.g. a view's row-number sequence
// counter, which every sink write shares rather than claims exclusively.
func (p *ParentTxn) Tx() *mvcc.Tx { return p.tx }

// claim atomically checks that none of keys has already been claimed by
// a prior commit against this parent, then claims all of them. Checking
// and claiming happen under one lock so two concurrent commits can never
// both observe a clean check.
func (p *ParentTxn) claim(keys [][]byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, k := range keys {
		if _, exists := p.claimed[string(k)]; exists {
			return ErrKeyspaceOverlap
		}
	}
	for _, k := range keys {
		p.claimed[string(k)] = struct{}{}
	}
	return nil
}

type pendingOp int

const (
	opSet pendingOp = iota
	opRemove
)

type pendingEntry struct {
	op    pendingOp
	value []byte
}

// Metrics reports one commit's effect on the parent, per spec.md
// §4.10's `commit(&mut parent) → Metrics`.
type Metrics struct {
	Reads   int
	Writes  int
	Removes int
}

// FlowTransaction is the pending-writes overlay of spec.md §4.10.
type FlowTransaction struct {
	parent *ParentTxn

	pending map[string]pendingEntry
	order   []string // insertion order, for deterministic replay

	metrics Metrics
}

// New constructs a FlowTransaction over parent. A parent may have many
// FlowTransactions committed against it over its lifetime, one per flow
// event processed; only one may ever be open uncommitted at a time.
func New(parent *ParentTxn) *FlowTransaction {
	return &FlowTransaction{parent: parent, pending: make(map[string]pendingEntry)}
}

// Get checks the pending buffer first (read-your-own-writes: a
// tombstone returns not-found), then falls through to the parent.
func (t *FlowTransaction) Get(key []byte) ([]byte, bool, error) {
	t.metrics.Reads++
	if e, ok := t.pending[string(key)]; ok {
		if e.op == opRemove {
			return nil, false, nil
		}
		return e.value, true, nil
	}
	return t.parent.tx.Get(key)
}

func (t *FlowTransaction) markPending(key string, e pendingEntry) {
	if _, exists := t.pending[key]; !exists {
		t.order = append(t.order, key)
	}
	t.pending[key] = e
}

// Set buffers a write; a later Set/Remove on the same key coalesces to
// the last operation (spec.md §4.10).
func (t *FlowTransaction) Set(key, value []byte) {
	t.markPending(string(key), pendingEntry{op: opSet, value: append([]byte(nil), value...)})
}

// Remove buffers a tombstone.
func (t *FlowTransaction) Remove(key []byte) {
	t.markPending(string(key), pendingEntry{op: opRemove})
}

// ScanPrefix returns the parent's committed entries under prefix,
// overlaid with this transaction's still-pending writes under the same
// prefix (read-your-own-writes for range scans, used by window
// expire_range sweeps and Sort's maintained-order rebuilds).
func (t *FlowTransaction) ScanPrefix(prefix []byte) ([]mvcc.KeyValue, error) {
	base, err := t.parent.tx.ScanPrefix(prefix)
	if err != nil {
		return nil, err
	}
	merged := make(map[string][]byte, len(base))
	for _, kv := range base {
		merged[string(kv.Key)] = kv.Value
	}
	for k, e := range t.pending {
		if !strings.HasPrefix(k, string(prefix)) {
			continue
		}
		if e.op == opRemove {
			delete(merged, k)
		} else {
			merged[k] = e.value
		}
	}
	out := make([]mvcc.KeyValue, 0, len(merged))
	for k, v := range merged {
		out = append(out, mvcc.KeyValue{Key: []byte(k), Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].Key, out[j].Key) < 0 })
	return out, nil
}

// Commit implements spec.md §4.10's three commit rules: reject on
// keyspace overlap with a sibling's already-replayed writes, else
// replay every pending entry onto the parent and clear the buffer.
func (t *FlowTransaction) Commit() (Metrics, error) {
	keys := make([][]byte, len(t.order))
	for i, k := range t.order {
		keys[i] = []byte(k)
	}
	if err := t.parent.claim(keys); err != nil {
		return Metrics{}, err
	}

	for _, k := range t.order {
		e := t.pending[k]
		switch e.op {
		case opSet:
			if err := t.parent.tx.Set([]byte(k), e.value); err != nil {
				return Metrics{}, err
			}
			t.metrics.Writes++
		case opRemove:
			if err := t.parent.tx.Remove([]byte(k)); err != nil {
				return Metrics{}, err
			}
			t.metrics.Removes++
		}
	}
	metrics := t.metrics
	t.pending = make(map[string]pendingEntry)
	t.order = nil
	return metrics, nil
}
