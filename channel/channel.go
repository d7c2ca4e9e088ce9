package channel

import (
	"sync"
)

// DefaultMaxSegmentSize is the body size beyond which the active segment is
// sealed and a new one started.
const DefaultMaxSegmentSize = 64 << 20

// Message is one decoded entry of a channel. Offset is the channel offset of
// the message's length prefix; NextOffset is the offset at which the next
// message starts.
type Message struct {
	Offset     uint64
	NextOffset uint64
	Data       []byte
}

// Channel is a named, append-only, segmented log. Appends are serialized and
// committed to disk before they return; fetches run against a snapshot of the
// segment descriptors and never block appends.
type Channel struct {
	path           string
	maxSegmentSize uint64

	mu          sync.Mutex
	archive     []ChannelSegment
	active      *segmentHandle
	needsCommit bool
}

// Option adjusts channel construction.
type Option func(*Channel)

// WithMaxSegmentSize overrides the segment rollover threshold.
func WithMaxSegmentSize(size uint64) Option {
	return func(c *Channel) {
		c.maxSegmentSize = size
	}
}

// Create initializes a new channel at path by creating its first segment at
// offset zero.
func Create(path string, opts ...Option) (*Channel, error) {
	c := newChannel(path, opts)

	active, err := segmentCreate(path, 0)
	if err != nil {
		return nil, err
	}

	c.active = active
	return c, nil
}

// Open reopens a recovered channel. The ordered, non-empty segment list is
// split: the last descriptor becomes the active segment, reopened for
// writes, and the prefix becomes the archive.
func Open(path string, segments []ChannelSegment, opts ...Option) (*Channel, error) {
	if len(segments) == 0 {
		return nil, Errorf(EARG, "can't open channel '%s' without segments", path)
	}

	c := newChannel(path, opts)

	active, err := segmentOpen(path, segments[len(segments)-1])
	if err != nil {
		return nil, err
	}

	c.archive = append(c.archive, segments[:len(segments)-1]...)
	c.active = active
	return c, nil
}

func newChannel(path string, opts []Option) *Channel {
	c := &Channel{
		path:           path,
		maxSegmentSize: DefaultMaxSegmentSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Append stores msg durably and returns its assigned channel offset. The
// active segment is rotated first if its body has outgrown the rollover
// threshold, so a segment only ever exceeds the threshold by its last
// message, the one whose append pushed it over.
func (c *Channel) Append(msg []byte) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	segmentSize := c.active.segment.OffsetHead - c.active.segment.OffsetBegin
	if segmentSize > c.maxSegmentSize {
		if err := c.rotate(); err != nil {
			return 0, err
		}
	}

	offset := c.active.segment.OffsetHead

	if err := c.active.append(msg); err != nil {
		return 0, err
	}

	c.needsCommit = true
	if err := c.commit(); err != nil {
		return 0, err
	}

	return offset, nil
}

// rotate seals the active segment into the archive and installs a fresh one
// starting at the sealed segment's head. Caller must hold the mutex.
func (c *Channel) rotate() error {
	if err := c.commit(); err != nil {
		return err
	}

	sealed := c.active
	next, err := segmentCreate(c.path, sealed.segment.OffsetHead)
	if err != nil {
		return err
	}

	c.archive = append(c.archive, sealed.segment)
	c.active = next

	return sealed.Close()
}

// Fetch returns up to batchSize messages starting at startOffset. An empty
// result with no error means there is nothing more at this offset right now.
// startOffset must be an offset previously returned by Append or a message's
// NextOffset; offsets past the channel head yield EARG.
func (c *Channel) Fetch(startOffset uint64, batchSize int) ([]Message, error) {
	segments, head := c.snapshot()

	if startOffset > head {
		return nil, Errorf(EARG, "offset is out of bounds")
	}

	var entries []Message
	for _, s := range segments {
		for startOffset < s.OffsetHead {
			if err := segmentRead(s, c.path, startOffset, batchSize-len(entries), &entries); err != nil {
				return nil, err
			}

			if len(entries) == 0 || len(entries) == batchSize {
				return entries, nil
			}

			startOffset = entries[len(entries)-1].NextOffset
		}
	}

	return entries, nil
}

// snapshot copies the segment descriptors out under the lock so reads can
// run without blocking concurrent appends. Body bytes below offset_head are
// immutable, so the copied descriptors stay valid after the lock is dropped.
func (c *Channel) snapshot() (segments []ChannelSegment, head uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	segments = make([]ChannelSegment, 0, len(c.archive)+1)
	segments = append(segments, c.archive...)
	segments = append(segments, c.active.segment)

	return segments, c.active.segment.OffsetHead
}

// Commit flushes the active segment if it has uncommitted appends.
func (c *Channel) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commit()
}

func (c *Channel) commit() error {
	if !c.needsCommit {
		return nil
	}

	if err := c.active.commit(); err != nil {
		return err
	}

	c.needsCommit = false
	return nil
}

// Segments returns the current segment descriptors, archive first.
func (c *Channel) Segments() []ChannelSegment {
	segments, _ := c.snapshot()
	return segments
}

// Head returns the channel-wide offset one past the last appended message.
func (c *Channel) Head() uint64 {
	_, head := c.snapshot()
	return head
}

// Close releases the writable descriptor of the active segment. The channel
// must not be used afterwards.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.commit(); err != nil {
		return err
	}

	return c.active.Close()
}
