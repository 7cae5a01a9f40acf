package journal

import (
	"encoding/binary"
	"hash/crc32"
	"time"

	"github.com/CBNU-BigDataLab/Current/errors"
)

// Entry is one journaled delivery: the payload bytes of a message together
// with the sequence it was stamped with, the attempt counter observed at
// delivery time, and the delivery timestamp.
type Entry struct {
	Sequence  uint64
	Total     uint64
	Timestamp time.Time
	Payload   []byte
}

// Record encoding: varint headerLen | header | payload | crc32c(header|payload).
// The header is currently 16 bytes: total (8B BE) and timestamp unix nanos
// (8B BE). Decoders accept longer headers so the format can grow.

const recordHeaderLen = 16

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

func encodeRecord(e Entry) []byte {
	var header [recordHeaderLen]byte
	binary.BigEndian.PutUint64(header[0:8], e.Total)
	binary.BigEndian.PutUint64(header[8:16], uint64(e.Timestamp.UnixNano()))

	out := make([]byte, 0, 10+recordHeaderLen+len(e.Payload)+4)
	var tmp [10]byte
	n := binary.PutUvarint(tmp[:], recordHeaderLen)
	out = append(out, tmp[:n]...)
	out = append(out, header[:]...)
	out = append(out, e.Payload...)

	crc := crc32.Update(0, castagnoli, header[:])
	crc = crc32.Update(crc, castagnoli, e.Payload)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	out = append(out, crcb[:]...)
	return out
}

// decodeRecord parses a stored record. The returned payload is a copy, safe
// to retain after the backing iterator advances.
func decodeRecord(b []byte) (total uint64, ts time.Time, payload []byte, err error) {
	if len(b) < 1+4 {
		return 0, time.Time{}, nil, errors.ErrRecordTooShort
	}
	hlen, n := binary.Uvarint(b)
	if n <= 0 || hlen < recordHeaderLen {
		return 0, time.Time{}, nil, errors.ErrRecordTooShort
	}
	if n+int(hlen)+4 > len(b) {
		return 0, time.Time{}, nil, errors.ErrRecordTooShort
	}

	header := b[n : n+int(hlen)]
	body := b[n+int(hlen) : len(b)-4]
	expect := binary.BigEndian.Uint32(b[len(b)-4:])

	crc := crc32.Update(0, castagnoli, header)
	crc = crc32.Update(crc, castagnoli, body)
	if crc != expect {
		return 0, time.Time{}, nil, errors.ErrChecksumMismatch
	}

	total = binary.BigEndian.Uint64(header[0:8])
	ts = time.Unix(0, int64(binary.BigEndian.Uint64(header[8:16])))
	payload = append([]byte(nil), body...)
	return total, ts, payload, nil
}
