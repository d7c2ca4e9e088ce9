package channel

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// Segment file layout:
//
//	+0                        magic bytes
//	+len(magic)               version bytes
//	+segmentHeaderTxOffset    transaction record (offset_head, uint64 LE)
//	+segmentHeaderSize        body: [uvarint length][payload] frames
//
// The header is zero-padded up to segmentHeaderSize.
var (
	segmentMagic   = []byte{0x17, 0x23, 0x17, 0x23}
	segmentVersion = []byte{0x00, 0x01}
)

const (
	segmentHeaderTxOffset = 6 // len(segmentMagic) + len(segmentVersion)
	segmentHeaderSize     = 32

	segmentFileMode = 0o644

	readBufferSize = 4096
)

// ChannelSegment describes the channel-offset range covered by one segment
// file. OffsetHead is one past the last durable message; for the active
// segment it may run ahead of the committed watermark on disk.
type ChannelSegment struct {
	OffsetBegin uint64
	OffsetHead  uint64
}

// segmentHandle owns the writable file descriptor of the active segment.
type segmentHandle struct {
	segment ChannelSegment
	file    *os.File
}

func (h *segmentHandle) Close() error {
	return h.file.Close()
}

// SegmentPath composes the path of the segment file starting at offsetBegin.
func SegmentPath(channelPath string, offsetBegin uint64) string {
	return fmt.Sprintf("%s~%d", channelPath, offsetBegin)
}

func segmentHeader(startOffset uint64) []byte {
	header := make([]byte, 0, segmentHeaderSize)
	header = append(header, segmentMagic...)
	header = append(header, segmentVersion...)
	header = append(header, transactionEncode(segmentTransaction{offsetHead: startOffset})...)
	header = append(header, make([]byte, segmentHeaderSize-len(header))...)
	return header
}

// segmentCreate writes a fresh segment file holding only a header. The file
// is assembled under a temporary name and renamed into place so that a crash
// mid-create never leaves a half-written segment behind.
func segmentCreate(channelPath string, startOffset uint64) (*segmentHandle, error) {
	segmentPath := SegmentPath(channelPath, startOffset)
	tmpPath := segmentPath + "~"

	file, err := os.OpenFile(tmpPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, segmentFileMode)
	if err != nil {
		return nil, Errorf(EIO, "can't create segment '%s': %v", segmentPath, err)
	}

	if _, err := file.Write(segmentHeader(startOffset)); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return nil, Errorf(EIO, "can't write segment header to '%s': %v", segmentPath, err)
	}

	if err := os.Rename(tmpPath, segmentPath); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return nil, Errorf(EIO, "can't rename segment '%s': %v", segmentPath, err)
	}

	return &segmentHandle{
		segment: ChannelSegment{OffsetBegin: startOffset, OffsetHead: startOffset},
		file:    file,
	}, nil
}

// segmentOpen reopens an existing segment for writes. The magic bytes are
// re-verified even though recovery has normally read the header already.
func segmentOpen(channelPath string, segment ChannelSegment) (*segmentHandle, error) {
	segmentPath := SegmentPath(channelPath, segment.OffsetBegin)

	file, err := os.OpenFile(segmentPath, os.O_RDWR, segmentFileMode)
	if err != nil {
		return nil, Errorf(EIO, "can't open segment '%s': %v", segmentPath, err)
	}

	magic := make([]byte, len(segmentMagic))
	if _, err := io.ReadFull(file, magic); err != nil {
		file.Close()
		return nil, Errorf(EIO, "can't read segment header from '%s': %v", segmentPath, err)
	}

	if !bytes.Equal(magic, segmentMagic) {
		file.Close()
		return nil, Errorf(ECORRUPT, "corrupt segment file: %s", segmentPath)
	}

	return &segmentHandle{segment: segment, file: file}, nil
}

// append frames msg and writes it at the current head position. The write is
// positional, derived from the in-memory descriptor, so a failed or torn
// write leaves offset_head untouched and the next append overwrites the torn
// bytes.
func (h *segmentHandle) append(msg []byte) error {
	frame := appendFrame(nil, msg)
	pos := int64(segmentHeaderSize + (h.segment.OffsetHead - h.segment.OffsetBegin))

	n, err := h.file.WriteAt(frame, pos)
	if err != nil {
		return Errorf(EIO, "write to segment '%s' failed: %v", h.file.Name(), err)
	}
	if n != len(frame) {
		return Errorf(EIO, "short write to segment '%s': %d of %d bytes", h.file.Name(), n, len(frame))
	}

	h.segment.OffsetHead += uint64(len(frame))
	return nil
}

// commit makes the body durable, then rewrites the header transaction record
// with the current offset_head. The record itself is not synced again; the
// guarantee is "body durable, watermark best-effort" and on recovery the
// watermark may lag the physical body.
func (h *segmentHandle) commit() error {
	if err := h.file.Sync(); err != nil {
		return Errorf(EIO, "fsync of segment '%s' failed: %v", h.file.Name(), err)
	}

	txBuf := transactionEncode(segmentTransaction{offsetHead: h.segment.OffsetHead})
	n, err := h.file.WriteAt(txBuf, segmentHeaderTxOffset)
	if err != nil || n != len(txBuf) {
		return Errorf(EIO, "can't update transaction record of segment '%s': %v", h.file.Name(), err)
	}

	return nil
}

// SegmentReadHeader reads and validates the header of the segment starting
// at startOffset and returns its descriptor.
func SegmentReadHeader(channelPath string, startOffset uint64) (ChannelSegment, error) {
	segmentPath := SegmentPath(channelPath, startOffset)

	file, err := os.Open(segmentPath)
	if err != nil {
		return ChannelSegment{}, Errorf(EIO, "can't open segment '%s': %v", segmentPath, err)
	}
	defer file.Close()

	header := make([]byte, segmentHeaderSize)
	if _, err := io.ReadFull(file, header); err != nil {
		return ChannelSegment{}, Errorf(EIO, "can't read segment header from '%s': %v", segmentPath, err)
	}

	if !bytes.Equal(header[:len(segmentMagic)], segmentMagic) {
		return ChannelSegment{}, Errorf(ECORRUPT, "corrupt segment file: %s", segmentPath)
	}

	tx, err := transactionDecode(header[segmentHeaderTxOffset:])
	if err != nil {
		return ChannelSegment{}, Errorf(ECORRUPT, "corrupt segment file '%s': %v", segmentPath, err)
	}

	return ChannelSegment{OffsetBegin: startOffset, OffsetHead: tx.offsetHead}, nil
}

// segmentRead decodes framed messages from the segment body, starting at the
// channel offset startOffset, and appends up to maxCount of them to out.
// Bytes past the segment's offset_head are never touched, so a torn tail
// left by a crashed writer is invisible to readers.
func segmentRead(
	segment ChannelSegment,
	channelPath string,
	startOffset uint64,
	maxCount int,
	out *[]Message,
) error {
	if startOffset < segment.OffsetBegin || startOffset >= segment.OffsetHead {
		return Errorf(EARG, "offset is out of bounds")
	}

	segmentPath := SegmentPath(channelPath, segment.OffsetBegin)

	file, err := os.Open(segmentPath)
	if err != nil {
		return Errorf(EIO, "can't open segment '%s': %v", segmentPath, err)
	}
	defer file.Close()

	bodyPos := int64(startOffset - segment.OffsetBegin)
	bodyLen := int64(segment.OffsetHead - segment.OffsetBegin)

	section := io.NewSectionReader(file, segmentHeaderSize+bodyPos, bodyLen-bodyPos)
	reader := &offsetReader{r: bufio.NewReaderSize(section, readBufferSize)}

	for maxCount > 0 && startOffset+reader.n < segment.OffsetHead {
		msgOffset := startOffset + reader.n

		msgLen, err := readUvarint(reader)
		if err != nil {
			return Errorf(ECORRUPT, "corrupt segment file: %s", segmentPath)
		}

		data := make([]byte, msgLen)
		if _, err := io.ReadFull(reader, data); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return Errorf(ECORRUPT, "corrupt segment file: %s", segmentPath)
			}
			return Errorf(EIO, "read from segment '%s' failed: %v", segmentPath, err)
		}

		*out = append(*out, Message{
			Offset:     msgOffset,
			NextOffset: startOffset + reader.n,
			Data:       data,
		})
		maxCount--
	}

	return nil
}

// offsetReader counts consumed bytes so decoded frames can be mapped back to
// channel offsets.
type offsetReader struct {
	r *bufio.Reader
	n uint64
}

func (o *offsetReader) Read(p []byte) (int, error) {
	n, err := o.r.Read(p)
	o.n += uint64(n)
	return n, err
}

func (o *offsetReader) ReadByte() (byte, error) {
	b, err := o.r.ReadByte()
	if err == nil {
		o.n++
	}
	return b, err
}
