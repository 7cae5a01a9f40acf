package journal

import "encoding/binary"

// Keyspace helpers for Pebble keys.
//
// Layout (byte-wise, lexicographically sortable):
//   - e/{seq_be8}   one record per delivered message
//   - m/last        8-byte big-endian last appended sequence
const (
	entryPrefix = byte('e')
)

var metaLastKey = []byte("m/last")

// entryKey builds the record key with a big-endian sequence so records sort
// in delivery order.
func entryKey(seq uint64) []byte {
	k := make([]byte, 10)
	k[0] = entryPrefix
	k[1] = '/'
	binary.BigEndian.PutUint64(k[2:], seq)
	return k
}

// entrySeq extracts the sequence from a record key.
func entrySeq(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// entryUpperBound is the exclusive upper bound covering every record key.
func entryUpperBound() []byte {
	return []byte{entryPrefix, '/' + 1}
}
