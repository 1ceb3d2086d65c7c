package cdc

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"reifydb.io/core/keycodec"
	"reifydb.io/core/kv"
	"reifydb.io/core/reifylog"
)

// Config controls the shard pool: number of shards, how long a worker
// waits to accumulate further commits before flushing, the hard cap on
// batch size, and the bound on each shard's inbound channel.
type Config struct {
	NumShards       uint16
	BatchWindow     time.Duration
	MaxBatchSize    int
	ChannelCapacity int
}

// DefaultConfig is a modest fixed worker count with a short coalescing
// window, tuned for the single-process embedded deployment this core
// targets.
func DefaultConfig() Config {
	return Config{
		NumShards:       4,
		BatchWindow:     10 * time.Millisecond,
		MaxBatchSize:    256,
		ChannelCapacity: 1024,
	}
}

// isCdcExcluded reports the CDC tier that never carries a partitionable id:
// EntryKindSingle holds internal bookkeeping (TxActive/TxWrite/
// NextVersion markers), never user-visible row data, so it is excluded
// from CDC entirely.
func isCdcExcluded(kind kv.EntryKind) bool {
	return kind == kv.EntryKindSingle
}

// shardFor buckets a commit entry into a shard: Source/Operator
// entries shard by the id embedded in their key bytes; every other kind
// is a global partition that always belongs to shard 0.
func shardFor(entry kv.CommitEntry, numShards uint16) (uint16, error) {
	switch entry.Kind {
	case kv.EntryKindSource:
		k, body, err := keycodec.SplitHeader(entry.Key)
		if err != nil {
			return 0, err
		}
		var id uint64
		switch k {
		case keycodec.KindRow:
			id, _, err = keycodec.DecodeRowKey(body)
		case keycodec.KindIndexEntry:
			id, _, _, err = keycodec.DecodeIndexEntryKey(body)
		default:
			return 0, fmt.Errorf("cdc: unexpected key kind %v for EntryKindSource", k)
		}
		if err != nil {
			return 0, err
		}
		return uint16(id % uint64(numShards)), nil
	case kv.EntryKindOperator:
		_, body, err := keycodec.SplitHeader(entry.Key)
		if err != nil {
			return 0, err
		}
		id, _, err := keycodec.DecodeOperatorStateKey(body)
		if err != nil {
			return 0, err
		}
		return uint16(id % uint64(numShards)), nil
	default:
		return 0, nil
	}
}

// ShardWorker owns one bounded inbound channel and is the only
// goroutine allowed to mutate its watermark and batch buffers.
type ShardWorker struct {
	id    uint16
	store kv.Store
	cfg   Config
	ch    chan kv.CommitRecord
	log   *reifylog.Logger
	stats *shardStats

	watermark atomic.Uint64
}

func newShardWorker(id uint16, store kv.Store, cfg Config, stats *shardStats, log *reifylog.Logger) *ShardWorker {
	return &ShardWorker{
		id:    id,
		store: store,
		cfg:   cfg,
		ch:    make(chan kv.CommitRecord, cfg.ChannelCapacity),
		log:   log.Named(fmt.Sprintf("shard-%d", id)),
		stats: stats,
	}
}

// Watermark returns the highest version this shard has fully processed.
func (w *ShardWorker) Watermark() uint64 { return w.watermark.Load() }

// trySend is a non-blocking send: a full channel is a fatal
// configuration error, not silent back-pressure.
func (w *ShardWorker) trySend(rec kv.CommitRecord) error {
	select {
	case w.ch <- rec:
		return nil
	default:
		return fmt.Errorf("cdc: shard %d channel full at capacity %d; increase ChannelCapacity", w.id, w.cfg.ChannelCapacity)
	}
}

// Run executes the worker loop until ctx is cancelled, flushing any
// batch already collected before returning.
func (w *ShardWorker) Run(ctx context.Context) error {
	for {
		var batch []kv.CommitRecord
		select {
		case <-ctx.Done():
			return nil
		case rec, ok := <-w.ch:
			if !ok {
				return nil
			}
			batch = append(batch, rec)
		}

		timer := time.NewTimer(w.cfg.BatchWindow)
	collect:
		for len(batch) < w.cfg.MaxBatchSize {
			select {
			case rec, ok := <-w.ch:
				if !ok {
					break collect
				}
				batch = append(batch, rec)
			case <-timer.C:
				break collect
			case <-ctx.Done():
				timer.Stop()
				w.processBatch(batch)
				return nil
			}
		}
		timer.Stop()
		w.processBatch(batch)
	}
}

type preImageKey struct {
	kind kv.EntryKind
	key  string
	vers uint64
}

// processBatch filters to this shard's entries, resolves each into an
// InternalCdcChange, groups by version, assigns monotone sequences,
// encodes, writes, and advances the watermark.
func (w *ShardWorker) processBatch(batch []kv.CommitRecord) {
	preCache := make(map[preImageKey]kv.VersionInfo)
	preCacheOK := make(map[preImageKey]bool)

	var maxVersion uint64
	for _, rec := range batch {
		var sequenced []InternalCdcSequencedChange
		var seq uint16

		entries := append([]kv.CommitEntry(nil), rec.Entries...)
		sort.SliceStable(entries, func(i, j int) bool {
			return string(entries[i].Key) < string(entries[j].Key)
		})

		for _, entry := range entries {
			if isCdcExcluded(entry.Kind) {
				continue
			}
			shard, err := shardFor(entry, w.cfg.NumShards)
			if err != nil {
				w.log.Error("cdc: failed to compute shard for entry", zap.Error(err))
				continue
			}
			if shard != w.id {
				continue
			}

			ck := preImageKey{kind: entry.Kind, key: string(entry.Key), vers: rec.Version}
			pre, ok := preCache[ck]
			if _, seen := preCacheOK[ck]; !seen {
				pre, ok = w.store.GetVersionInfoBefore(entry.Kind, entry.Key, rec.Version)
				preCache[ck] = pre
				preCacheOK[ck] = ok
			} else {
				ok = preCacheOK[ck]
			}

			change, emit := changeForEntry(entry.Key, rec.Version, entry.Op == kv.OpRemove, pre.Version, ok)
			if !emit {
				continue
			}
			sequenced = append(sequenced, InternalCdcSequencedChange{Sequence: seq, Change: change})
			seq++
		}

		if len(sequenced) == 0 {
			if rec.Version > maxVersion {
				maxVersion = rec.Version
			}
			continue
		}

		record := InternalCdc{Version: rec.Version, TimestampMs: rec.TimestampMs, Changes: sequenced}
		encoded := Encode(record)
		if err := w.store.Set(kv.Batch{
			kv.EntryKindCdc: {{Key: keycodec.CdcKey(w.id, rec.Version), Value: encoded}},
		}); err != nil {
			w.log.Error("cdc: failed to persist InternalCdc", zap.Error(err))
			continue
		}
		w.stats.observe(w.id, len(encoded), len(sequenced))
		if rec.Version > maxVersion {
			maxVersion = rec.Version
		}
	}
	if maxVersion > 0 {
		w.watermark.Store(maxVersion)
		w.stats.setWatermark(w.id, maxVersion)
	}
}
