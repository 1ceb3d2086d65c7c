// Package cdc implements the sharded change-data-capture pipeline: one
// worker per shard, each owning a bounded channel, batching commits
// within a window, and encoding InternalCdc records into the Cdc
// storage tier.
package cdc

import (
	"encoding/binary"
	"fmt"
)

// InternalCdcChange is one of Insert, Update, or Delete. The interface
// is sealed to this package's three concrete types.
type InternalCdcChange interface {
	ChangeKey() []byte
	changeTag() byte
}

// Insert records a Set on a key with no earlier version.
type Insert struct {
	Key         []byte
	PostVersion uint64
}

func (c Insert) ChangeKey() []byte { return c.Key }
func (c Insert) changeTag() byte   { return tagInsert }

// Update records a Set on a key that already had an earlier version.
type Update struct {
	Key         []byte
	PreVersion  uint64
	PostVersion uint64
}

func (c Update) ChangeKey() []byte { return c.Key }
func (c Update) changeTag() byte   { return tagUpdate }

// Delete records a Remove on a key that had an earlier version.
type Delete struct {
	Key        []byte
	PreVersion uint64
}

func (c Delete) ChangeKey() []byte { return c.Key }
func (c Delete) changeTag() byte   { return tagDelete }

const (
	tagInsert byte = 1
	tagUpdate byte = 2
	tagDelete byte = 3
)

// InternalCdcSequencedChange pairs a change with its monotone
// per-version sequence number.
type InternalCdcSequencedChange struct {
	Sequence uint16
	Change   InternalCdcChange
}

// InternalCdc is one shard's CDC record for one commit version: one
// record per (shard, version).
type InternalCdc struct {
	Version     uint64
	TimestampMs uint64
	Changes     []InternalCdcSequencedChange
}

// Encode produces the on-wire bytes for cdc, a fixed binary layout
// chosen so that Decode(Encode(cdc)) reproduces cdc exactly:
//
//	version(8) timestamp_ms(8) num_changes(2)
//	  { sequence(2) tag(1) key_len(4) key(...) fields... }*
func Encode(cdc InternalCdc) []byte {
	buf := make([]byte, 0, 18+len(cdc.Changes)*32)
	buf = binary.BigEndian.AppendUint64(buf, cdc.Version)
	buf = binary.BigEndian.AppendUint64(buf, cdc.TimestampMs)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(cdc.Changes)))
	for _, sc := range cdc.Changes {
		buf = binary.BigEndian.AppendUint16(buf, sc.Sequence)
		buf = append(buf, sc.Change.changeTag())
		key := sc.Change.ChangeKey()
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(key)))
		buf = append(buf, key...)
		switch c := sc.Change.(type) {
		case Insert:
			buf = binary.BigEndian.AppendUint64(buf, c.PostVersion)
		case Update:
			buf = binary.BigEndian.AppendUint64(buf, c.PreVersion)
			buf = binary.BigEndian.AppendUint64(buf, c.PostVersion)
		case Delete:
			buf = binary.BigEndian.AppendUint64(buf, c.PreVersion)
		}
	}
	return buf
}

// Decode reverses Encode.
func Decode(b []byte) (InternalCdc, error) {
	if len(b) < 18 {
		return InternalCdc{}, fmt.Errorf("cdc: record too short: %d bytes", len(b))
	}
	cdc := InternalCdc{
		Version:     binary.BigEndian.Uint64(b[0:8]),
		TimestampMs: binary.BigEndian.Uint64(b[8:16]),
	}
	numChanges := binary.BigEndian.Uint16(b[16:18])
	off := 18
	for i := 0; i < int(numChanges); i++ {
		if off+3 > len(b) {
			return InternalCdc{}, fmt.Errorf("cdc: truncated sequence/tag at change %d", i)
		}
		seq := binary.BigEndian.Uint16(b[off : off+2])
		tag := b[off+2]
		off += 3
		if off+4 > len(b) {
			return InternalCdc{}, fmt.Errorf("cdc: truncated key length at change %d", i)
		}
		keyLen := int(binary.BigEndian.Uint32(b[off : off+4]))
		off += 4
		if off+keyLen > len(b) {
			return InternalCdc{}, fmt.Errorf("cdc: truncated key at change %d", i)
		}
		key := append([]byte(nil), b[off:off+keyLen]...)
		off += keyLen

		var change InternalCdcChange
		switch tag {
		case tagInsert:
			if off+8 > len(b) {
				return InternalCdc{}, fmt.Errorf("cdc: truncated Insert at change %d", i)
			}
			change = Insert{Key: key, PostVersion: binary.BigEndian.Uint64(b[off : off+8])}
			off += 8
		case tagUpdate:
			if off+16 > len(b) {
				return InternalCdc{}, fmt.Errorf("cdc: truncated Update at change %d", i)
			}
			change = Update{
				Key:         key,
				PreVersion:  binary.BigEndian.Uint64(b[off : off+8]),
				PostVersion: binary.BigEndian.Uint64(b[off+8 : off+16]),
			}
			off += 16
		case tagDelete:
			if off+8 > len(b) {
				return InternalCdc{}, fmt.Errorf("cdc: truncated Delete at change %d", i)
			}
			change = Delete{Key: key, PreVersion: binary.BigEndian.Uint64(b[off : off+8])}
			off += 8
		default:
			return InternalCdc{}, fmt.Errorf("cdc: unknown change tag %d at change %d", tag, i)
		}
		cdc.Changes = append(cdc.Changes, InternalCdcSequencedChange{Sequence: seq, Change: change})
	}
	return cdc, nil
}

// changeForEntry classifies one commit entry: a Set with no earlier
// version is an Insert, a Set with one is an Update, a Remove with no
// earlier version is a no-op (ok=false), a Remove with one is a
// Delete.
func changeForEntry(key []byte, version uint64, isRemove bool, preVersion uint64, hasPre bool) (InternalCdcChange, bool) {
	if !hasPre {
		if isRemove {
			return nil, false
		}
		return Insert{Key: key, PostVersion: version}, true
	}
	if isRemove {
		return Delete{Key: key, PreVersion: preVersion}, true
	}
	return Update{Key: key, PreVersion: preVersion, PostVersion: version}, true
}
