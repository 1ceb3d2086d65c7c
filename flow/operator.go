package flow

import ftxn "reifydb.io/core/flow/txn"

// Operator is implemented by every concrete operator in package
// flow/operator: each operator applies a transaction and a batch of
// changes and produces the resulting changes. Changes are sequences of
// FlowDiff, not a single diff — an Update that flips a Filter's
// predicate, for instance, must be able to turn into one Insert plus
// one Remove in the same Apply call, and a join's probe can emit zero,
// one, or many matches per input diff.
type Operator interface {
	Apply(tx *ftxn.FlowTransaction, changes []FlowDiff) ([]FlowDiff, error)
}
