package mvcc

import "errors"

// Sentinel errors for the recoverable per-transaction error tier
// (spec.md §6.3/§7): callers type-switch or errors.Is against these.
var (
	// ErrSerialization is returned on a write–write conflict: another
	// transaction committed a version of the same key that is not
	// visible to this one (spec.md §4.5 commit step, MVCC_SERIALIZATION).
	ErrSerialization = errors.New("mvcc: serialization conflict")

	// ErrReadOnly is returned by set/remove on a read-only transaction
	// (MVCC_READONLY_WRITE).
	ErrReadOnly = errors.New("mvcc: write attempted on read-only transaction")

	// ErrVersionNotFound is returned when begin_read_only(as_of) names a
	// version that was never allocated (MVCC_VERSION_NOT_FOUND).
	ErrVersionNotFound = errors.New("mvcc: as_of version not found")
)
