package feed

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Stream layout
//
// Each persisted stream opens with a fixed 32 byte header:
//
//	.     | magic | version | reserved | record bytes | zero pad |
//	bytes | 0 - 3 |    4    |     5    |    6 - 7     |  8 - 31  |
//
// The tree stream follows its header with fixed width node records
// addressed by flat index:
//
//	.     | flat index | subtree length |  hash   |
//	bytes |   0 - 7    |     8 - 15     | 16 - 47 |
//
// Storing the flat index inside the record is what lets reconstruction
// detect a record that has been moved or overwritten at the wrong
// offset. All integers are big endian.
const (
	HeaderBytes = 32

	TreeMagic     = "HTRE"
	BitfieldMagic = "HBTF"
	FormatVersion = uint8(1)

	NodeRecordBytes = 48
	HashBytes       = 32
)

func readU16BE(b []byte) uint16     { return binary.BigEndian.Uint16(b) }
func readU64BE(b []byte) uint64     { return binary.BigEndian.Uint64(b) }
func writeU16BE(b []byte, v uint16) { binary.BigEndian.PutUint16(b, v) }
func writeU64BE(b []byte, v uint64) { binary.BigEndian.PutUint64(b, v) }

// encodeHeader writes a stream header into region.
func encodeHeader(region []byte, magic string, recordBytes uint16) error {
	if len(region) < HeaderBytes {
		return ErrBadRegionSize
	}
	copy(region[0:4], magic)
	region[4] = FormatVersion
	region[5] = 0
	writeU16BE(region[6:8], recordBytes)
	clear(region[8:HeaderBytes])
	return nil
}

// decodeHeader checks a stream header. ok=false indicates the region
// is zero filled, ie the stream was created but never initialised.
func decodeHeader(region []byte, magic string, recordBytes uint16) (ok bool, err error) {
	if len(region) < HeaderBytes {
		return false, ErrBadRegionSize
	}
	if bytes.Equal(region[0:4], []byte{0, 0, 0, 0}) {
		return false, nil
	}
	if string(region[0:4]) != magic {
		return false, fmt.Errorf("%w: %q", ErrBadMagic, region[0:4])
	}
	if region[4] != FormatVersion {
		return false, fmt.Errorf("%w: %d", ErrBadVersion, region[4])
	}
	if got := readU16BE(region[6:8]); got != recordBytes {
		return false, fmt.Errorf("%w: %d != %d", ErrBadRecordSize, got, recordBytes)
	}
	return true, nil
}

// nodeRecordOffset returns the byte offset of the record for the flat
// tree node at index.
func nodeRecordOffset(index uint64) uint64 {
	return HeaderBytes + index*NodeRecordBytes
}

func encodeNodeRecord(rec []byte, n Node) {
	writeU64BE(rec[0:8], n.Index)
	writeU64BE(rec[8:16], n.Length)
	copy(rec[16:16+HashBytes], n.Hash)
}

func decodeNodeRecord(rec []byte) Node {
	hash := make([]byte, HashBytes)
	copy(hash, rec[16:16+HashBytes])
	return Node{
		Index:  readU64BE(rec[0:8]),
		Length: readU64BE(rec[8:16]),
		Hash:   hash,
	}
}
