package txn

import "errors"

// ErrKeyspaceOverlap is returned by Commit when this FlowTransaction's
// pending keyspace intersects another FlowTransaction's already-replayed
// writes against the same parent (spec.md §4.10 rule 1, external code
// FLOW_002).
var ErrKeyspaceOverlap = errors.New("flow: keyspace overlap with parent's pending writes")
