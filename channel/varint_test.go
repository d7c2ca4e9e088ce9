package channel

import (
	"bufio"
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUvarintLen(t *testing.T) {
	assert.Equal(t, 1, uvarintLen(0))
	assert.Equal(t, 1, uvarintLen(127))
	assert.Equal(t, 2, uvarintLen(128))
	assert.Equal(t, 2, uvarintLen(16383))
	assert.Equal(t, 3, uvarintLen(16384))
	assert.Equal(t, 10, uvarintLen(1<<63))
}

func TestFrameRoundTrip(t *testing.T) {
	for _, msg := range [][]byte{
		[]byte(""),
		[]byte("hello"),
		bytes.Repeat([]byte("x"), 200),
		bytes.Repeat([]byte("y"), 100000),
	} {
		frame := appendFrame(nil, msg)
		assert.Equal(t, FrameLen(len(msg)), len(frame))

		r := bufio.NewReader(bytes.NewReader(frame))
		n, err := readUvarint(r)
		require.Nil(t, err)
		assert.Equal(t, uint64(len(msg)), n)

		rest := make([]byte, n)
		_, err = io.ReadFull(r, rest)
		require.Nil(t, err)
		assert.Equal(t, msg, rest)
	}
}

func TestReadUvarintTruncated(t *testing.T) {
	// high bit set on the last byte, value continues past end of input
	r := bufio.NewReader(bytes.NewReader([]byte{0x80, 0x80}))
	_, err := readUvarint(r)
	assert.NotNil(t, err)
}

func TestReadUvarintOverflow(t *testing.T) {
	// 11 continuation bytes overflow a 64 bit value
	buf := bytes.Repeat([]byte{0x80}, 11)
	r := bufio.NewReader(bytes.NewReader(buf))
	_, err := readUvarint(r)
	assert.NotNil(t, err)
}
