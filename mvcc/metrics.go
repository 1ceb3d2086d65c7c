package mvcc

import "github.com/prometheus/client_golang/prometheus"

// engineStats is the prometheus surface for MVCC observability: commit
// and write-write-conflict counters, mirroring cdc's per-shard
// shardStats (cdc/metrics.go) at engine scope.
type engineStats struct {
	commits   prometheus.Counter
	rollbacks prometheus.Counter
	conflicts prometheus.Counter
}

func newEngineStats(reg prometheus.Registerer) *engineStats {
	s := &engineStats{
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reifydb",
			Subsystem: "mvcc",
			Name:      "commits_total",
			Help:      "Total read-write transactions committed.",
		}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reifydb",
			Subsystem: "mvcc",
			Name:      "rollbacks_total",
			Help:      "Total read-write transactions rolled back.",
		}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "reifydb",
			Subsystem: "mvcc",
			Name:      "write_conflicts_total",
			Help:      "Total MVCC_SERIALIZATION write-write conflicts detected at commit.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.commits, s.rollbacks, s.conflicts)
	}
	return s
}
