// Package errors is the thin error-code translation layer for the
// network/protocol boundary: it does not replace the sentinel errors
// each package already owns (mvcc.ErrSerialization,
// flow/txn.ErrKeyspaceOverlap, ...) — it classifies them into a
// stable, serializable Code a caller outside this module (an RPC
// handler, a CLI) can switch on without importing every internal
// package's sentinels directly.
package errors

import (
	"errors"
	"fmt"

	"reifydb.io/core/flow/txn"
	"reifydb.io/core/mvcc"
)

// Code is one of this module's taxonomy of external, stable error codes.
type Code string

const (
	MVCCSerialization    Code = "MVCC_SERIALIZATION"
	MVCCReadonlyWrite    Code = "MVCC_READONLY_WRITE"
	MVCCVersionNotFound  Code = "MVCC_VERSION_NOT_FOUND"
	FlowKeyspaceOverlap  Code = "FLOW_002"
	EncodingTypeMismatch Code = "ENCODING_TYPE_MISMATCH"
	CDCEncodeFailure     Code = "CDC_ENCODE_FAILURE"
	StoreNotFound        Code = "NOT_FOUND"
	Unknown              Code = "UNKNOWN"
)

// Error pairs a Code with the underlying error it was classified from
// (or directly constructed with, for codes no leaf package has a
// sentinel for, e.g. CDC_ENCODE_FAILURE's fmt.Errorf call sites).
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Code, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// New wraps err under an explicit code, for call sites that already
// know which code applies (e.g. a keycodec decode failure reported as
// ENCODING_TYPE_MISMATCH, a cdc.Encode/Decode failure reported as
// CDC_ENCODE_FAILURE).
func New(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// Classify maps err to its external Code by matching it (via errors.Is)
// against the sentinel errors mvcc and flow/txn already define. An err
// that matches none of them classifies as Unknown, still wrapped so
// callers can uniformly type-assert *Error.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return existing
	}
	switch {
	case errors.Is(err, mvcc.ErrSerialization):
		return New(MVCCSerialization, err)
	case errors.Is(err, mvcc.ErrReadOnly):
		return New(MVCCReadonlyWrite, err)
	case errors.Is(err, mvcc.ErrVersionNotFound):
		return New(MVCCVersionNotFound, err)
	case errors.Is(err, txn.ErrKeyspaceOverlap):
		return New(FlowKeyspaceOverlap, err)
	default:
		return New(Unknown, err)
	}
}
