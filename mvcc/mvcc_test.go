package mvcc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reifydb.io/core/kv/memkv"
)

func newEngine() *Engine {
	return NewEngine(memkv.New(), nil, nil)
}

func TestSetThenGetWithinSameTx(t *testing.T) {
	e := newEngine()
	tx := e.Begin()
	require.NoError(t, tx.Set([]byte("a"), []byte("1")))
	v, found, err := tx.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), v)
	require.NoError(t, tx.Commit())
}

func TestCommittedWriteVisibleToLaterTx(t *testing.T) {
	e := newEngine()
	tx1 := e.Begin()
	require.NoError(t, tx1.Set([]byte("a"), []byte("1")))
	require.NoError(t, tx1.Commit())

	tx2 := e.Begin()
	v, found, err := tx2.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), v)
}

func TestUncommittedWriteNotVisibleToConcurrentTx(t *testing.T) {
	e := newEngine()
	tx1 := e.Begin()
	require.NoError(t, tx1.Set([]byte("a"), []byte("1")))

	tx2 := e.Begin()
	_, found, err := tx2.Get([]byte("a"))
	require.NoError(t, err)
	require.False(t, found, "tx2 began while tx1 was still active; tx1's write must not be visible yet")

	require.NoError(t, tx1.Commit())
}

func TestReadOnlyTransactionCannotWrite(t *testing.T) {
	e := newEngine()
	tx, err := e.BeginReadOnly(nil)
	require.NoError(t, err)
	err = tx.Set([]byte("a"), []byte("1"))
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestWriteWriteConflictIsFirstCommitterWins(t *testing.T) {
	e := newEngine()
	base := e.Begin()
	require.NoError(t, base.Set([]byte("a"), []byte("0")))
	require.NoError(t, base.Commit())

	tx1 := e.Begin()
	tx2 := e.Begin()

	require.NoError(t, tx1.Set([]byte("a"), []byte("from-tx1")))
	require.NoError(t, tx2.Set([]byte("a"), []byte("from-tx2")))
	require.NoError(t, tx1.Commit())

	err := tx2.Commit()
	require.ErrorIs(t, err, ErrSerialization)
}

func TestRemoveIsTombstone(t *testing.T) {
	e := newEngine()
	tx1 := e.Begin()
	require.NoError(t, tx1.Set([]byte("a"), []byte("1")))
	require.NoError(t, tx1.Commit())

	tx2 := e.Begin()
	require.NoError(t, tx2.Remove([]byte("a")))
	require.NoError(t, tx2.Commit())

	tx3 := e.Begin()
	_, found, err := tx3.Get([]byte("a"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestRollbackDiscardsWrites(t *testing.T) {
	e := newEngine()
	tx1 := e.Begin()
	require.NoError(t, tx1.Set([]byte("a"), []byte("1")))
	require.NoError(t, tx1.Rollback())

	tx2 := e.Begin()
	_, found, err := tx2.Get([]byte("a"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestScanPrefixReturnsLatestVisibleNonTombstoneInKeyOrder(t *testing.T) {
	e := newEngine()
	tx1 := e.Begin()
	require.NoError(t, tx1.Set([]byte("users/1"), []byte("alice")))
	require.NoError(t, tx1.Set([]byte("users/2"), []byte("bob")))
	require.NoError(t, tx1.Set([]byte("users/3"), []byte("carol")))
	require.NoError(t, tx1.Commit())

	tx2 := e.Begin()
	require.NoError(t, tx2.Remove([]byte("users/2")))
	require.NoError(t, tx2.Commit())

	tx3 := e.Begin()
	results, err := tx3.ScanPrefix([]byte("users/"))
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, []byte("users/1"), results[0].Key)
	require.Equal(t, []byte("users/3"), results[1].Key)
}

func TestBeginReadOnlyAsOfRejectsFutureVersion(t *testing.T) {
	e := newEngine()
	future := uint64(9999)
	_, err := e.BeginReadOnly(&future)
	require.ErrorIs(t, err, ErrVersionNotFound)
}

func TestBeginReadOnlyAsOfSeesOnlyThatVersionsState(t *testing.T) {
	e := newEngine()
	tx1 := e.Begin()
	require.NoError(t, tx1.Set([]byte("a"), []byte("1")))
	require.NoError(t, tx1.Commit())
	v1 := tx1.Version()

	tx2 := e.Begin()
	require.NoError(t, tx2.Set([]byte("a"), []byte("2")))
	require.NoError(t, tx2.Commit())

	asOf, err := e.BeginReadOnly(&v1)
	require.NoError(t, err)
	v, found, err := asOf.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("1"), v)
}
