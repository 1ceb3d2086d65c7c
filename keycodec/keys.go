package keycodec

import "encoding/binary"

// This file implements the typed key constructors/parsers for every Kind
// in spec.md §6.1's table. Each Encode* returns the full
// <version><kind><body> key ready for the storage layer; each Decode*
// is its exact inverse.

// NextVersionKey is the singleton key storing the next MVCC version.
func NextVersionKey() []byte {
	return header(KindNextVersion, 0)
}

// TxActiveKey marks membership of version v in the active-transaction set.
func TxActiveKey(v uint64) []byte {
	buf := header(KindTxActive, 8)
	return append(buf, EncodeU64(v)...)
}

func DecodeTxActiveKey(body []byte) uint64 {
	return DecodeU64(body)
}

// TxActiveSnapshotKey stores the active-set snapshot captured at begin(v).
func TxActiveSnapshotKey(v uint64) []byte {
	buf := header(KindTxActiveSnapshot, 8)
	return append(buf, EncodeU64(v)...)
}

func DecodeTxActiveSnapshotKey(body []byte) uint64 {
	return DecodeU64(body)
}

// TxWriteKey indexes a (version, key) pair written by transaction v, used
// to replay the write-set on rollback.
func TxWriteKey(v uint64, key []byte) []byte {
	buf := header(KindTxWrite, 8+len(key))
	buf = append(buf, EncodeU64(v)...)
	return append(buf, key...)
}

func DecodeTxWriteKey(body []byte) (v uint64, key []byte) {
	v = DecodeU64(body[:8])
	key = body[8:]
	return v, key
}

// VersionKey addresses one MVCC version entry for a logical key: the
// value stored there is the bincode-equivalent encoded Option<bytes>
// (nil slice for a tombstone, per spec.md §4.5).
//
// Versions within the same logical key must sort so the *newest*
// version is found first on a forward scan — hence the bit-inverted
// suffix (see DESIGN.md's resolution of the descending-range Open
// Question, applied uniformly to every version-ordered key kind).
//
// The body is `key + descending_version(8 bytes)` with no length
// prefix: a length prefix would order keys primarily by byte-length
// rather than lexicographically, breaking range scans over a prefix of
// logical keys. The trade is that one logical key must never be a
// strict byte-string prefix of another — true for this core's logical
// keys, which are themselves fixed-shape keycodec encodings (RowKey,
// IndexEntryKey bodies, …), never arbitrary free-form strings.
func VersionKey(key []byte, v uint64) []byte {
	buf := header(KindVersion, len(key)+8)
	buf = append(buf, key...)
	return append(buf, EncodeU64Descending(v)...)
}

func DecodeVersionKey(body []byte) (key []byte, v uint64) {
	split := len(body) - 8
	key = body[:split]
	v = DecodeU64Descending(body[split:])
	return key, v
}

// VersionKeyPrefix returns the prefix shared by every VersionKey for the
// given logical key, for use as the start of a forward range scan that
// yields versions newest-first.
func VersionKeyPrefix(key []byte) []byte {
	buf := header(KindVersion, len(key))
	return append(buf, key...)
}

// IndexEntryKey addresses one secondary-index entry:
// <version><kind=IndexEntry><source_id:9><index_id:9><index_key…>.
func IndexEntryKey(sourceID, indexID uint64, indexKey []byte) []byte {
	src := SerializeSourceID(sourceID)
	idx := SerializeIndexID(indexID)
	buf := header(KindIndexEntry, 9+9+len(indexKey))
	buf = append(buf, src[:]...)
	buf = append(buf, idx[:]...)
	return append(buf, indexKey...)
}

func DecodeIndexEntryKey(body []byte) (sourceID, indexID uint64, indexKey []byte, err error) {
	var src, idx [9]byte
	copy(src[:], body[0:9])
	copy(idx[:], body[9:18])
	sourceID, err = DeserializeSourceID(src)
	if err != nil {
		return 0, 0, nil, err
	}
	indexID, err = DeserializeIndexID(idx)
	if err != nil {
		return 0, 0, nil, err
	}
	return sourceID, indexID, body[18:], nil
}

// IndexRange is a half-open byte range [Start, End) over IndexEntry keys
// sharing a source/index, optionally narrowed by a user prefix on the
// index key itself. It is always a forward scan: per DESIGN.md's
// resolution of the spec's Open Question, this core does not expose a
// separate descending/".prev()" helper — callers wanting "most recent
// index entries first" arrange for that ordering in the index key
// bytes themselves (e.g. a bit-inverted version suffix), not via range
// direction.
type IndexRange struct {
	Start []byte
	End   []byte
}

// NewIndexRange builds the range covering every IndexEntry key for
// (sourceID, indexID) whose index-key bytes begin with prefix (prefix
// may be empty to select the whole index).
func NewIndexRange(sourceID, indexID uint64, prefix []byte) IndexRange {
	start := IndexEntryKey(sourceID, indexID, prefix)
	end := append([]byte(nil), start...)
	end = incrementPrefix(end)
	return IndexRange{Start: start, End: end}
}

// incrementPrefix returns the lexicographically smallest byte string
// greater than every string having b as a prefix, i.e. the exclusive
// end key for a prefix scan. A prefix of all 0xFF bytes has no such
// successor within the same length; that case returns nil, meaning
// "scan to the end of the keyspace" (the storage layer treats a nil End
// as unbounded).
func incrementPrefix(b []byte) []byte {
	out := append([]byte(nil), b...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] != 0xFF {
			out[i]++
			return out[:i+1]
		}
	}
	return nil
}

// RowKey addresses a row's payload: <source:9><row:8>.
func RowKey(sourceID uint64, rowNumber uint64) []byte {
	src := SerializeSourceID(sourceID)
	buf := header(KindRow, 9+8)
	buf = append(buf, src[:]...)
	return append(buf, EncodeU64(rowNumber)...)
}

func DecodeRowKey(body []byte) (sourceID uint64, rowNumber uint64, err error) {
	var src [9]byte
	copy(src[:], body[0:9])
	sourceID, err = DeserializeSourceID(src)
	if err != nil {
		return 0, 0, err
	}
	return sourceID, DecodeU64(body[9:17]), nil
}

// RowKeyPrefix returns the prefix shared by every row belonging to
// sourceID, for use as a table/view-wide scan.
func RowKeyPrefix(sourceID uint64) []byte {
	src := SerializeSourceID(sourceID)
	buf := header(KindRow, 9)
	return append(buf, src[:]...)
}

// PrimaryKeyKey addresses a primary-key catalog record.
func PrimaryKeyKey(pkID uint64) []byte {
	buf := header(KindPrimaryKey, 8)
	return append(buf, EncodeU64(pkID)...)
}

func DecodePrimaryKeyKey(body []byte) uint64 {
	return DecodeU64(body)
}

// OperatorStateKey addresses one stateful flow operator's keyed state
// entry: <version><kind=OperatorState><operator:9><stateKey…>.
func OperatorStateKey(operatorID uint64, stateKey []byte) []byte {
	op := SerializeOperatorID(operatorID)
	buf := header(KindOperatorState, 9+len(stateKey))
	buf = append(buf, op[:]...)
	return append(buf, stateKey...)
}

func DecodeOperatorStateKey(body []byte) (operatorID uint64, stateKey []byte, err error) {
	var op [9]byte
	copy(op[:], body[0:9])
	operatorID, err = DeserializeOperatorID(op)
	if err != nil {
		return 0, nil, err
	}
	return operatorID, body[9:], nil
}

// OperatorStatePrefix returns the prefix shared by every state entry
// belonging to operatorID, for use as an operator-wide scan (e.g. the
// Sort/Window operators' maintained-order sweep).
func OperatorStatePrefix(operatorID uint64) []byte {
	op := SerializeOperatorID(operatorID)
	buf := header(KindOperatorState, 9)
	return append(buf, op[:]...)
}

// ViewRowSeqKey is a view's row-number allocation counter, persisted so
// a SinkView node's row numbers survive a restart (spec.md §4.7: "row
// numbers are allocated from a view-local sequence").
func ViewRowSeqKey(viewID uint64) []byte {
	buf := header(KindViewRowSeq, 8)
	return append(buf, EncodeU64(viewID)...)
}

func DecodeViewRowSeqKey(body []byte) uint64 {
	return DecodeU64(body)
}

// CdcKey addresses one shard's CDC log entry for a version:
// <version><kind=Cdc><shard:2><version:8>. The shard id is the leading
// component of the body so a scan restricted to CdcShardPrefix(shard)
// yields that shard's InternalCdc records in commit order (spec.md
// §4.6's "one record per (shard, version)" / ascending-key-order
// guarantee).
func CdcKey(shard uint16, v uint64) []byte {
	buf := header(KindCdc, 2+8)
	buf = binary.BigEndian.AppendUint16(buf, shard)
	return append(buf, EncodeU64(v)...)
}

func DecodeCdcKey(body []byte) (shard uint16, v uint64) {
	shard = binary.BigEndian.Uint16(body[:2])
	v = DecodeU64(body[2:10])
	return shard, v
}

// CdcShardPrefix returns the prefix shared by every CDC entry belonging
// to shard, for a per-shard ascending scan.
func CdcShardPrefix(shard uint16) []byte {
	buf := header(KindCdc, 2)
	return binary.BigEndian.AppendUint16(buf, shard)
}
