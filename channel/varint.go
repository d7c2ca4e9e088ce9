package channel

import (
	"encoding/binary"
	"io"
)

// Message framing on disk is a LEB128-style unsigned varint length prefix
// followed by the raw payload bytes.

// uvarintLen returns the encoded size of v in bytes.
func uvarintLen(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// FrameLen returns the on-disk size of a message of payloadLen bytes,
// including the length prefix.
func FrameLen(payloadLen int) int {
	return uvarintLen(uint64(payloadLen)) + payloadLen
}

// appendFrame appends the framed representation of msg to dst.
func appendFrame(dst, msg []byte) []byte {
	var prefix [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(prefix[:], uint64(len(msg)))
	dst = append(dst, prefix[:n]...)
	return append(dst, msg...)
}

// readUvarint decodes a length prefix from r. It fails when the input ends
// mid-value or the value overflows 64 bits.
func readUvarint(r io.ByteReader) (uint64, error) {
	v, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, err
	}
	return v, nil
}
