package txn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"reifydb.io/core/kv/memkv"
	"reifydb.io/core/mvcc"
)

func newParent() (*mvcc.Engine, *mvcc.Tx) {
	e := mvcc.NewEngine(memkv.New(), nil, nil)
	return e, e.Begin()
}

func TestGetChecksPendingBeforeParent(t *testing.T) {
	_, mvccTx := newParent()
	require.NoError(t, mvccTx.Set([]byte("a"), []byte("parent-value")))
	ft := New(NewParentTxn(mvccTx))

	ft.Set([]byte("a"), []byte("pending-value"))
	v, found, err := ft.Get([]byte("a"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("pending-value"), v)
}

func TestRemoveThenGetReturnsNotFound(t *testing.T) {
	_, mvccTx := newParent()
	require.NoError(t, mvccTx.Set([]byte("a"), []byte("1")))
	ft := New(NewParentTxn(mvccTx))

	ft.Remove([]byte("a"))
	_, found, err := ft.Get([]byte("a"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestSetRemoveSetCoalescesToLastOperation(t *testing.T) {
	_, mvccTx := newParent()
	ft := New(NewParentTxn(mvccTx))

	ft.Set([]byte("k"), []byte("first"))
	ft.Remove([]byte("k"))
	ft.Set([]byte("k"), []byte("last"))

	_, err := ft.Commit()
	require.NoError(t, err)

	v, found, err := mvccTx.Get([]byte("k"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("last"), v)
}

func TestSetRemoveSequenceCommitsRemove(t *testing.T) {
	_, mvccTx := newParent()
	require.NoError(t, mvccTx.Set([]byte("k"), []byte("0")))
	ft := New(NewParentTxn(mvccTx))

	ft.Set([]byte("k"), []byte("1"))
	ft.Remove([]byte("k"))

	_, err := ft.Commit()
	require.NoError(t, err)

	_, found, err := mvccTx.Get([]byte("k"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestCommitReportsMetrics(t *testing.T) {
	_, mvccTx := newParent()
	ft := New(NewParentTxn(mvccTx))
	ft.Set([]byte("a"), []byte("1"))
	ft.Set([]byte("b"), []byte("2"))
	ft.Remove([]byte("c"))
	_, _, _ = ft.Get([]byte("a"))

	m, err := ft.Commit()
	require.NoError(t, err)
	require.Equal(t, 1, m.Reads)
	require.Equal(t, 2, m.Writes)
	require.Equal(t, 1, m.Removes)
}

func TestSecondCommitOverlappingFirstFailsWithoutMutatingParent(t *testing.T) {
	_, mvccTx := newParent()
	parent := NewParentTxn(mvccTx)

	ft1 := New(parent)
	ft1.Set([]byte("view/42/row/7"), []byte("first"))
	_, err := ft1.Commit()
	require.NoError(t, err)

	ft2 := New(parent)
	ft2.Set([]byte("view/42/row/7"), []byte("second"))
	_, err = ft2.Commit()
	require.ErrorIs(t, err, ErrKeyspaceOverlap)

	v, found, err := mvccTx.Get([]byte("view/42/row/7"))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, []byte("first"), v, "overlap rejection must not mutate the parent")
}

func TestNonOverlappingSiblingsBothCommit(t *testing.T) {
	_, mvccTx := newParent()
	parent := NewParentTxn(mvccTx)

	ft1 := New(parent)
	ft1.Set([]byte("a"), []byte("1"))
	_, err := ft1.Commit()
	require.NoError(t, err)

	ft2 := New(parent)
	ft2.Set([]byte("b"), []byte("2"))
	_, err = ft2.Commit()
	require.NoError(t, err)
}

func TestScanPrefixOverlaysPendingOverParent(t *testing.T) {
	_, mvccTx := newParent()
	require.NoError(t, mvccTx.Set([]byte("group/1"), []byte("committed")))
	require.NoError(t, mvccTx.Set([]byte("group/2"), []byte("committed-2")))
	ft := New(NewParentTxn(mvccTx))
	ft.Set([]byte("group/1"), []byte("pending-overlay"))
	ft.Remove([]byte("group/2"))
	ft.Set([]byte("group/3"), []byte("new"))

	results, err := ft.ScanPrefix([]byte("group/"))
	require.NoError(t, err)

	byKey := map[string]string{}
	for _, r := range results {
		byKey[string(r.Key)] = string(r.Value)
	}
	require.Equal(t, "pending-overlay", byKey["group/1"])
	_, stillPresent := byKey["group/2"]
	require.False(t, stillPresent)
	require.Equal(t, "new", byKey["group/3"])
}
