package channel

import (
	"encoding/binary"
)

// segmentTransaction is the durable watermark record embedded in each
// segment header. The on-disk encoding is fixed little-endian, regardless of
// the host byte order, so segment files are portable across architectures.
type segmentTransaction struct {
	offsetHead uint64
}

const transactionSize = 8

func transactionEncode(tx segmentTransaction) []byte {
	var buf [transactionSize]byte
	binary.LittleEndian.PutUint64(buf[:], tx.offsetHead)
	return buf[:]
}

func transactionDecode(buf []byte) (segmentTransaction, error) {
	if len(buf) < transactionSize {
		return segmentTransaction{}, Errorf(ECORRUPT, "invalid transaction record: %d bytes", len(buf))
	}

	return segmentTransaction{
		offsetHead: binary.LittleEndian.Uint64(buf),
	}, nil
}
