package channel_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulasmuth/brokerd/channel"
)

func TestSegmentReadHeader(t *testing.T) {
	channelPath := setup(t)
	ch, err := channel.Create(channelPath)
	require.Nil(t, err)

	_, err = ch.Append([]byte("hello"))
	require.Nil(t, err)
	require.Nil(t, ch.Close())

	segment, err := channel.SegmentReadHeader(channelPath, 0)
	require.Nil(t, err)
	assert.Equal(t, uint64(0), segment.OffsetBegin)
	assert.Equal(t, uint64(6), segment.OffsetHead)
}

func TestSegmentReadHeaderMissingFile(t *testing.T) {
	_, err := channel.SegmentReadHeader(setup(t), 0)
	require.NotNil(t, err)
	assert.Equal(t, channel.EIO, channel.CodeOf(err))
}

func TestSegmentReadHeaderBadMagic(t *testing.T) {
	channelPath := setup(t)
	ch, err := channel.Create(channelPath)
	require.Nil(t, err)
	require.Nil(t, ch.Close())

	segmentPath := channel.SegmentPath(channelPath, 0)
	file, err := os.OpenFile(segmentPath, os.O_WRONLY, 0o644)
	require.Nil(t, err)
	_, err = file.WriteAt([]byte{0xde, 0xad, 0xbe, 0xef}, 0)
	require.Nil(t, err)
	require.Nil(t, file.Close())

	_, err = channel.SegmentReadHeader(channelPath, 0)
	require.NotNil(t, err)
	assert.Equal(t, channel.ECORRUPT, channel.CodeOf(err))
}

func TestSegmentOpenBadMagic(t *testing.T) {
	channelPath := setup(t)
	ch, err := channel.Create(channelPath)
	require.Nil(t, err)
	require.Nil(t, ch.Close())

	segmentPath := channel.SegmentPath(channelPath, 0)
	file, err := os.OpenFile(segmentPath, os.O_WRONLY, 0o644)
	require.Nil(t, err)
	_, err = file.WriteAt([]byte{0xde, 0xad, 0xbe, 0xef}, 0)
	require.Nil(t, err)
	require.Nil(t, file.Close())

	_, err = channel.Open(channelPath, []channel.ChannelSegment{{OffsetBegin: 0, OffsetHead: 0}})
	require.NotNil(t, err)
	assert.Equal(t, channel.ECORRUPT, channel.CodeOf(err))
}

func TestSegmentCreateLeavesNoTempFile(t *testing.T) {
	channelPath := setup(t)
	ch, err := channel.Create(channelPath)
	require.Nil(t, err)
	defer ch.Close()

	entries, err := os.ReadDir(filepath.Dir(channelPath))
	require.Nil(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ch~0", entries[0].Name())
}

func TestListSegmentsEmpty(t *testing.T) {
	segments, err := channel.ListSegments(setup(t))
	require.Nil(t, err)
	assert.Empty(t, segments)
}

func TestListSegmentsOrdered(t *testing.T) {
	channelPath := setup(t)
	ch, err := channel.Create(channelPath, channel.WithMaxSegmentSize(16))
	require.Nil(t, err)

	for i := 0; i < 8; i++ {
		_, err := ch.Append([]byte("0123456789"))
		require.Nil(t, err)
	}
	require.Nil(t, ch.Close())

	segments, err := channel.ListSegments(channelPath)
	require.Nil(t, err)
	require.Greater(t, len(segments), 1)

	assert.Equal(t, uint64(0), segments[0].OffsetBegin)
	for i := 1; i < len(segments); i++ {
		assert.Equal(t, segments[i-1].OffsetHead, segments[i].OffsetBegin)
	}
}

func TestListSegmentsIgnoresForeignFiles(t *testing.T) {
	channelPath := setup(t)
	ch, err := channel.Create(channelPath)
	require.Nil(t, err)
	require.Nil(t, ch.Close())

	dir := filepath.Dir(channelPath)
	require.Nil(t, os.WriteFile(filepath.Join(dir, "other~0"), []byte("x"), 0o644))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "ch~notanumber"), []byte("x"), 0o644))
	require.Nil(t, os.WriteFile(filepath.Join(dir, "ch~5~"), []byte("x"), 0o644))

	segments, err := channel.ListSegments(channelPath)
	require.Nil(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, uint64(0), segments[0].OffsetBegin)
}

func TestListSegmentsNonContiguous(t *testing.T) {
	channelPath := setup(t)
	ch, err := channel.Create(channelPath, channel.WithMaxSegmentSize(16))
	require.Nil(t, err)

	for i := 0; i < 8; i++ {
		_, err := ch.Append([]byte("0123456789"))
		require.Nil(t, err)
	}
	require.Nil(t, ch.Close())

	segments, err := channel.ListSegments(channelPath)
	require.Nil(t, err)
	require.Greater(t, len(segments), 2)

	// removing a middle segment leaves a gap in the offset sequence
	require.Nil(t, os.Remove(channel.SegmentPath(channelPath, segments[1].OffsetBegin)))

	_, err = channel.ListSegments(channelPath)
	require.NotNil(t, err)
	assert.Equal(t, channel.ECORRUPT, channel.CodeOf(err))
}
