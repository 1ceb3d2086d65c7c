package keycodec

import (
	"bytes"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeU64PreservesAscendingOrder(t *testing.T) {
	inputs := []uint64{0, 1, 2, 255, 256, 1 << 40, ^uint64(0)}
	encoded := make([][]byte, len(inputs))
	for i, v := range inputs {
		encoded[i] = EncodeU64(v)
	}
	sorted := append([][]byte(nil), encoded...)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i], sorted[j]) < 0 })
	require.Equal(t, encoded, sorted)

	for i, v := range inputs {
		require.Equal(t, v, DecodeU64(encoded[i]))
	}
}

func TestEncodeU64DescendingInvertsOrder(t *testing.T) {
	a := EncodeU64Descending(1)
	b := EncodeU64Descending(2)
	require.True(t, bytes.Compare(a, b) > 0, "encode(1) must sort after encode(2) under descending policy")
	require.Equal(t, uint64(1), DecodeU64Descending(a))
	require.Equal(t, uint64(2), DecodeU64Descending(b))
}

func TestSourceIndexIDRoundTrip(t *testing.T) {
	src := SerializeSourceID(42)
	got, err := DeserializeSourceID(src)
	require.NoError(t, err)
	require.EqualValues(t, 42, got)

	idx := SerializeIndexID(42)
	require.NotEqual(t, src, idx, "source and index ids with the same numeric value must not collide")

	_, err = DeserializeSourceID(idx)
	require.Error(t, err)
}

func TestVersionKeyNewestFirstOrdering(t *testing.T) {
	key := []byte("users/1")
	k10 := VersionKey(key, 10)
	k20 := VersionKey(key, 20)
	// descending suffix: newer version (20) sorts before older (10)
	require.True(t, bytes.Compare(k20, k10) < 0)

	prefix := VersionKeyPrefix(key)
	require.True(t, bytes.HasPrefix(k10, prefix))
	require.True(t, bytes.HasPrefix(k20, prefix))

	gotKey, gotV := DecodeVersionKey(k20[2:])
	require.Equal(t, key, gotKey)
	require.EqualValues(t, 20, gotV)
}

func TestIndexEntryKeyRoundTrip(t *testing.T) {
	ik := IndexEntryKey(7, 3, []byte("alice"))
	kind, body, err := SplitHeader(ik)
	require.NoError(t, err)
	require.Equal(t, KindIndexEntry, kind)

	src, idx, indexKey, err := DecodeIndexEntryKey(body)
	require.NoError(t, err)
	require.EqualValues(t, 7, src)
	require.EqualValues(t, 3, idx)
	require.Equal(t, []byte("alice"), indexKey)
}

func TestIndexRangeCoversExactPrefix(t *testing.T) {
	r := NewIndexRange(1, 2, []byte("a"))
	within := IndexEntryKey(1, 2, []byte("aardvark"))
	outside := IndexEntryKey(1, 2, []byte("b-something"))

	require.True(t, bytes.Compare(r.Start, within) <= 0)
	require.True(t, bytes.Compare(within, r.End) < 0)
	require.True(t, bytes.Compare(outside, r.End) >= 0)
}

func TestIndexRangeEmptyPrefixCoversAllIndexKinds(t *testing.T) {
	r := NewIndexRange(1, 2, nil)
	k1 := IndexEntryKey(1, 2, []byte{0x00})
	k2 := IndexEntryKey(1, 2, []byte{0xFF, 0xFF})
	require.True(t, bytes.Compare(r.Start, k1) <= 0)
	require.True(t, bytes.Compare(k1, r.End) < 0)
	require.True(t, bytes.Compare(k2, r.End) < 0)
}

func TestRowKeyRoundTrip(t *testing.T) {
	rk := RowKey(5, 1000)
	_, body, err := SplitHeader(rk)
	require.NoError(t, err)
	src, row, err := DecodeRowKey(body)
	require.NoError(t, err)
	require.EqualValues(t, 5, src)
	require.EqualValues(t, 1000, row)

	require.True(t, bytes.HasPrefix(rk, RowKeyPrefix(5)))
}

func TestOperatorStateKeyRoundTrip(t *testing.T) {
	sk := OperatorStateKey(9, []byte("group/alice"))
	_, body, err := SplitHeader(sk)
	require.NoError(t, err)
	op, stateKey, err := DecodeOperatorStateKey(body)
	require.NoError(t, err)
	require.EqualValues(t, 9, op)
	require.Equal(t, []byte("group/alice"), stateKey)

	require.True(t, bytes.HasPrefix(sk, OperatorStatePrefix(9)))
}

func TestCdcKeyRoundTripAndShardOrdering(t *testing.T) {
	k1 := CdcKey(2, 10)
	k2 := CdcKey(2, 20)
	require.True(t, bytes.Compare(k1, k2) < 0, "ascending version within a shard must sort in commit order")
	require.True(t, bytes.HasPrefix(k1, CdcShardPrefix(2)))

	_, body, err := SplitHeader(k2)
	require.NoError(t, err)
	shard, v := DecodeCdcKey(body)
	require.EqualValues(t, 2, shard)
	require.EqualValues(t, 20, v)
}

func TestSplitHeaderRejectsShortOrWrongVersion(t *testing.T) {
	_, _, err := SplitHeader([]byte{1})
	require.Error(t, err)
	_, _, err = SplitHeader([]byte{99, byte(KindRow)})
	require.Error(t, err)
}
