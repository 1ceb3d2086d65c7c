package cdc

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// shardStats is the prometheus surface for CDC observability: batch
// byte/record counters and a watermark gauge per shard, one counter
// per subsystem.
type shardStats struct {
	batchBytes   *prometheus.CounterVec
	batchRecords *prometheus.CounterVec
	watermark    *prometheus.GaugeVec
}

func newShardStats(reg prometheus.Registerer) *shardStats {
	s := &shardStats{
		batchBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reifydb",
			Subsystem: "cdc",
			Name:      "batch_bytes_total",
			Help:      "Total bytes of encoded InternalCdc records written per shard.",
		}, []string{"shard"}),
		batchRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "reifydb",
			Subsystem: "cdc",
			Name:      "batch_changes_total",
			Help:      "Total InternalCdcChange entries emitted per shard.",
		}, []string{"shard"}),
		watermark: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "reifydb",
			Subsystem: "cdc",
			Name:      "watermark_version",
			Help:      "Highest commit version fully processed per shard.",
		}, []string{"shard"}),
	}
	if reg != nil {
		reg.MustRegister(s.batchBytes, s.batchRecords, s.watermark)
	}
	return s
}

func (s *shardStats) observe(shard uint16, bytes, changes int) {
	label := shardLabel(shard)
	s.batchBytes.WithLabelValues(label).Add(float64(bytes))
	s.batchRecords.WithLabelValues(label).Add(float64(changes))
}

func (s *shardStats) setWatermark(shard uint16, version uint64) {
	s.watermark.WithLabelValues(shardLabel(shard)).Set(float64(version))
}

func shardLabel(shard uint16) string {
	return strconv.Itoa(int(shard))
}
