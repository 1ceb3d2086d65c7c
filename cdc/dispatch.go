package cdc

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"reifydb.io/core/kv"
	"reifydb.io/core/reifylog"
)

// Dispatcher owns the fixed pool of ShardWorkers and fans out one
// CommitRecord to every shard's channel via try_send. It implements
// mvcc.Dispatcher without importing package mvcc, keeping the
// dependency one-way.
type Dispatcher struct {
	workers []*ShardWorker
	group   *errgroup.Group
	cancel  context.CancelFunc
}

// NewDispatcher builds a Dispatcher with cfg.NumShards workers over
// store, registering prometheus metrics against reg. A nil reg skips
// registration, which is what tests that construct multiple Dispatchers
// in one process should pass.
func NewDispatcher(store kv.Store, cfg Config, reg prometheus.Registerer) *Dispatcher {
	stats := newShardStats(reg)
	log := reifylog.Default().Named("cdc")
	workers := make([]*ShardWorker, cfg.NumShards)
	for i := range workers {
		workers[i] = newShardWorker(uint16(i), store, cfg, stats, log)
	}
	return &Dispatcher{workers: workers}
}

// Start launches one goroutine per shard worker under an errgroup,
// bound to ctx's lifetime.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range d.workers {
		w := w
		g.Go(func() error { return w.Run(gctx) })
	}
	d.group = g
}

// Stop cancels every worker's context and waits for its current batch
// to flush before terminating.
func (d *Dispatcher) Stop() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.group != nil {
		return d.group.Wait()
	}
	return nil
}

// Dispatch implements mvcc.Dispatcher: send rec to every shard's
// channel. A full channel is a fatal configuration error, surfaced
// here by panicking rather than silently dropping — this core never
// ships with a bound so low a correctly-provisioned deployment hits it
// in practice.
func (d *Dispatcher) Dispatch(rec kv.CommitRecord) {
	for _, w := range d.workers {
		if err := w.trySend(rec); err != nil {
			panic(err)
		}
	}
}

// Watermarks returns the current per-shard watermark, indexed by shard
// id, for observability.
func (d *Dispatcher) Watermarks() []uint64 {
	out := make([]uint64, len(d.workers))
	for i, w := range d.workers {
		out[i] = w.Watermark()
	}
	return out
}
