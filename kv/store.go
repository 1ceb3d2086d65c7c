// Package kv defines the storage-tier contract (spec.md §4.4): a Hot
// in-memory tier partitioned by EntryKind, written in EntryKind-grouped
// batches, plus the commit log that gives CDC its authoritative
// ordering.
package kv

import "reifydb.io/core/keycodec"

// EntryKind partitions the keyspace into the tiers spec.md §4.4
// describes. The partitioning exists so the storage layer can fan out
// writes to tier-specific internal structures (e.g. separate trees with
// separate locks) rather than contending on one global structure.
type EntryKind uint8

const (
	// EntryKindSingle holds keyed global state: catalog metadata,
	// sequences, NextVersion, TxActive/TxActiveSnapshot/TxWrite markers.
	EntryKindSingle EntryKind = iota
	// EntryKindMulti holds per-row multi-version entries: the payload
	// of user tables/views, addressed by Version(key, v) keys.
	EntryKindMulti
	// EntryKindSource holds per-source partitions: Row and IndexEntry
	// tiers, both already carry the source id in their key bytes.
	EntryKindSource
	// EntryKindOperator holds per-operator flow state partitions.
	EntryKindOperator
	// EntryKindCdc is the append-only CDC log, keyed by big-endian version.
	EntryKindCdc
)

func (k EntryKind) String() string {
	switch k {
	case EntryKindSingle:
		return "Single"
	case EntryKindMulti:
		return "Multi"
	case EntryKindSource:
		return "Source"
	case EntryKindOperator:
		return "Operator"
	case EntryKindCdc:
		return "Cdc"
	default:
		return "Unknown"
	}
}

// KindForKey classifies a fully-encoded key (as produced by package
// keycodec) into the EntryKind tier responsible for storing it.
func KindForKey(key []byte) (EntryKind, error) {
	kind, _, err := keycodec.SplitHeader(key)
	if err != nil {
		return 0, err
	}
	switch kind {
	case keycodec.KindNextVersion, keycodec.KindTxActive, keycodec.KindTxActiveSnapshot,
		keycodec.KindTxWrite, keycodec.KindPrimaryKey:
		return EntryKindSingle, nil
	case keycodec.KindVersion:
		return EntryKindMulti, nil
	case keycodec.KindIndexEntry, keycodec.KindRow:
		return EntryKindSource, nil
	case keycodec.KindOperatorState:
		return EntryKindOperator, nil
	case keycodec.KindCdc:
		return EntryKindCdc, nil
	default:
		return EntryKindSingle, nil
	}
}

// Entry is one (key, value) write in a commit batch. A nil Value is a
// tombstone (spec.md's "Option<Value>" None case), meaning "deleted".
type Entry struct {
	Key   []byte
	Value []byte
}

// Batch groups writes by EntryKind, matching spec.md §4.4's
// `set(batches: {EntryKind → [(key, Option<Value>)]})` contract.
type Batch map[EntryKind][]Entry

// VersionInfo is one multi-version entry's metadata as returned by
// GetVersionInfoBefore: the version it was written at and its value (nil
// for a tombstone).
type VersionInfo struct {
	Version uint64
	Value   []byte
}

// Op tags whether a CommitEntry was a Set or a Remove (spec.md §3.6).
type Op uint8

const (
	OpSet Op = iota
	OpRemove
)

// CommitEntry is one write recorded in a CommitRecord, carrying enough
// information for CDC shard workers to reconstruct an InternalCdcChange
// without re-reading the hot tier for anything but pre-images.
type CommitEntry struct {
	Kind  EntryKind
	Key   []byte
	Op    Op
	Value []byte // nil for Remove
}

// CommitRecord is one MVCC commit's full write-set, appended to the
// single in-memory commit log at commit time (spec.md §4.4/§3.6). It is
// the authoritative ordering for CDC.
type CommitRecord struct {
	Version     uint64
	TimestampMs uint64
	Entries     []CommitEntry
}

// Store is the Hot in-memory tier contract.
type Store interface {
	// Get returns the raw value stored at key in the given tier, and
	// whether it exists at all (a tombstone is a present entry with a
	// nil Value, distinct from "not found").
	Get(kind EntryKind, key []byte) (value []byte, found bool)

	// Set applies a batch of writes, grouped by EntryKind.
	Set(batch Batch) error

	// ScanRange yields (key, value) pairs in key order over [start, end)
	// within one EntryKind tier. A nil end means unbounded.
	ScanRange(kind EntryKind, start, end []byte) ([]Entry, error)

	// GetVersionInfoBefore returns the latest version of key (within
	// EntryKindMulti) strictly before beforeVersion, or false if none
	// exists. key here is the *logical* key (unversioned); the tier
	// internally consults its Version(key, v) entries.
	GetVersionInfoBefore(kind EntryKind, key []byte, beforeVersion uint64) (VersionInfo, bool)

	// AppendCommit appends rec to the authoritative commit log.
	AppendCommit(rec CommitRecord)

	// CommitLog returns the full commit log in commit order. Used by
	// CDC dispatch and by tests; callers must not mutate the slice.
	CommitLog() []CommitRecord
}
