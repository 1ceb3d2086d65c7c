package operator

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/cespare/xxhash/v2"

	"reifydb.io/core/value"
)

// hashRow computes the grouping/join key digest for the named columns
// of row (spec.md §4.8: "maintains {hash(key) → count}" for Distinct,
// keyed state for Aggregate/Join). The digest is the 8-byte big-endian
// xxhash of the named columns' encodings.
func hashRow(row []value.Value, columns []int) []byte {
	var buf bytes.Buffer
	for _, ci := range columns {
		encodeValueForHash(&buf, row[ci])
	}
	sum := xxhash.Sum64(buf.Bytes())
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, sum)
	return out
}

func encodeValueForHash(buf *bytes.Buffer, v value.Value) {
	buf.WriteByte(byte(v.Type))
	if !v.Defined {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	switch d := v.Data.(type) {
	case bool:
		if d {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case int8:
		buf.WriteByte(byte(d))
	case int16:
		binary.Write(buf, binary.BigEndian, d)
	case int32:
		binary.Write(buf, binary.BigEndian, d)
	case int64:
		binary.Write(buf, binary.BigEndian, d)
	case uint8:
		buf.WriteByte(d)
	case uint16:
		binary.Write(buf, binary.BigEndian, d)
	case uint32:
		binary.Write(buf, binary.BigEndian, d)
	case uint64:
		binary.Write(buf, binary.BigEndian, d)
	case float32:
		binary.Write(buf, binary.BigEndian, d)
	case float64:
		binary.Write(buf, binary.BigEndian, d)
	case string:
		buf.WriteString(d)
	case []byte:
		buf.Write(d)
	case *big.Int:
		buf.Write(d.Bytes())
	default:
		// time.Time, time.Duration, decimal.Decimal, uuid.UUID: %v is
		// stable and sufficient for an internal, non-persisted digest.
		fmt.Fprintf(buf, "%v", d)
	}
}
