// Package catalog holds the passive schema-metadata shapes referenced
// by row/frame/flow components: Namespace, Table, View, RingBuffer,
// Index, Dictionary (spec.md §3.5). DDL execution is out of scope; these
// are value types other packages key their behavior off of.
package catalog

import "reifydb.io/core/value"

type NamespaceID uint64
type TableID uint64
type ViewID uint64
type IndexID uint64
type DictionaryID uint64

type Namespace struct {
	ID   NamespaceID
	Name string
}

// ColumnDef describes one declared column of a Table or View.
type ColumnDef struct {
	Name string
	Type value.Type
}

type Table struct {
	ID            TableID
	NamespaceID   NamespaceID
	Name          string
	Columns       []ColumnDef
	PrimaryKeyID  *IndexID
}

// MaterializationMode controls whether a View's results are recomputed
// eagerly on each write (transactional) or lazily on read (deferred).
type MaterializationMode uint8

const (
	MaterializationDeferred MaterializationMode = iota
	MaterializationTransactional
)

// View has the same shape as Table plus the query plan it materializes
// and how it is kept up to date.
type View struct {
	ID              ViewID
	NamespaceID     NamespaceID
	Name            string
	Columns         []ColumnDef
	PrimaryKeyID    *IndexID
	Plan            FlowPlanRef
	Materialization MaterializationMode
}

// FlowPlanRef identifies the flow graph (package flow) that materializes
// a View; the plan body itself lives in package flow to avoid a
// catalog<->flow import cycle.
type FlowPlanRef struct {
	FlowNodeID uint64
}

// RingBuffer is a fixed-capacity cyclic table: writes past Capacity
// overwrite the oldest retained row.
type RingBuffer struct {
	ID       TableID
	Capacity uint64
	Head     uint64
	Tail     uint64
	Count    uint64
}

// SortDirection is one Index column's ordering.
type SortDirection uint8

const (
	SortAscending SortDirection = iota
	SortDescending
)

type IndexColumn struct {
	Column    string
	Direction SortDirection
}

// Index is a primary or secondary index over an ordered column list.
type Index struct {
	ID        IndexID
	TableID   TableID
	Primary   bool
	Columns   []IndexColumn
}

// Dictionary backs a dictionary-encoded column: IDType is the integer
// type used for encoded ids, Entries maps id -> decoded value bytes.
type Dictionary struct {
	ID      DictionaryID
	IDType  value.Type
	Entries map[uint64][]byte
}
