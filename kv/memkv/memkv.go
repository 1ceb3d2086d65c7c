// Package memkv implements kv.Store as an in-memory hot tier: one
// ordered B-tree per kv.EntryKind partition, each guarded by its own
// mutex, so writes to independent tiers (e.g. Source rows vs. Cdc log)
// never contend (spec.md §4.4/§5 shared-resource policy).
package memkv

import (
	"bytes"
	"sync"

	"github.com/google/btree"

	"reifydb.io/core/keycodec"
	"reifydb.io/core/kv"
)

// item is the btree element: ordered by Key, carrying the raw value
// (nil means tombstone).
type item struct {
	key   []byte
	value []byte
}

func (a item) Less(b btree.Item) bool {
	return bytes.Compare(a.key, b.(item).key) < 0
}

// partition is one EntryKind's ordered keyspace plus its own mutex.
type partition struct {
	mu   sync.RWMutex
	tree *btree.BTree
}

func newPartition() *partition {
	return &partition{tree: btree.New(32)}
}

// Store is the in-memory hot tier. Safe for concurrent use.
type Store struct {
	partitions map[kv.EntryKind]*partition

	logMu sync.Mutex
	log   []kv.CommitRecord
}

// New constructs an empty Store with one partition per EntryKind.
func New() *Store {
	s := &Store{partitions: make(map[kv.EntryKind]*partition)}
	for _, k := range []kv.EntryKind{
		kv.EntryKindSingle, kv.EntryKindMulti, kv.EntryKindSource,
		kv.EntryKindOperator, kv.EntryKindCdc,
	} {
		s.partitions[k] = newPartition()
	}
	return s
}

func (s *Store) partition(kind kv.EntryKind) *partition {
	p, ok := s.partitions[kind]
	if !ok {
		panic("memkv: unknown EntryKind")
	}
	return p
}

func (s *Store) Get(kind kv.EntryKind, key []byte) ([]byte, bool) {
	p := s.partition(kind)
	p.mu.RLock()
	defer p.mu.RUnlock()
	found := p.tree.Get(item{key: key})
	if found == nil {
		return nil, false
	}
	it := found.(item)
	return it.value, true
}

func (s *Store) Set(batch kv.Batch) error {
	for kind, entries := range batch {
		p := s.partition(kind)
		p.mu.Lock()
		for _, e := range entries {
			p.tree.ReplaceOrInsert(item{key: e.Key, value: e.Value})
		}
		p.mu.Unlock()
	}
	return nil
}

func (s *Store) ScanRange(kind kv.EntryKind, start, end []byte) ([]kv.Entry, error) {
	p := s.partition(kind)
	p.mu.RLock()
	defer p.mu.RUnlock()

	var out []kv.Entry
	visit := func(i btree.Item) bool {
		it := i.(item)
		if end != nil && bytes.Compare(it.key, end) >= 0 {
			return false
		}
		out = append(out, kv.Entry{Key: it.key, Value: it.value})
		return true
	}
	if start == nil {
		p.tree.Ascend(visit)
	} else {
		p.tree.AscendGreaterOrEqual(item{key: start}, visit)
	}
	return out, nil
}

func (s *Store) GetVersionInfoBefore(kind kv.EntryKind, key []byte, beforeVersion uint64) (kv.VersionInfo, bool) {
	// Every Version(key, v) entry physically lives in EntryKindMulti
	// regardless of the logical key's own kind (mvcc.Tx.Set always
	// writes there; see kv.Store's GetVersionInfoBefore doc). kind is
	// accepted for interface symmetry with Get/ScanRange but is not a
	// second partition to search.
	_ = kind
	prefix := keycodec.VersionKeyPrefix(key)
	entries, err := s.ScanRange(kv.EntryKindMulti, prefix, incrementForScan(prefix))
	if err != nil {
		return kv.VersionInfo{}, false
	}
	// VersionKey suffixes are bit-inverted (descending), so entries come
	// back newest-first already; the first one strictly older than
	// beforeVersion is the answer.
	for _, e := range entries {
		_, v := keycodec.DecodeVersionKey(e.Key[2:])
		if v < beforeVersion {
			return kv.VersionInfo{Version: v, Value: e.Value}, true
		}
	}
	return kv.VersionInfo{}, false
}

func incrementForScan(prefix []byte) []byte {
	out := append([]byte(nil), prefix...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}

func (s *Store) AppendCommit(rec kv.CommitRecord) {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	s.log = append(s.log, rec)
}

func (s *Store) CommitLog() []kv.CommitRecord {
	s.logMu.Lock()
	defer s.logMu.Unlock()
	return s.log
}

var _ kv.Store = (*Store)(nil)
