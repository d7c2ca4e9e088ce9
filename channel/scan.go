package channel

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/paulasmuth/brokerd/utils/log"
)

// ListSegments enumerates the segment files of the channel at channelPath,
// reads their headers and returns the ordered descriptor list. An empty
// result means no segments exist yet. Non-contiguous segments are fatal
// corruption.
func ListSegments(channelPath string) ([]ChannelSegment, error) {
	dir := filepath.Dir(channelPath)
	prefix := filepath.Base(channelPath) + "~"

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, Errorf(EIO, "can't list segments of '%s': %v", channelPath, err)
	}

	var offsets []uint64
	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), prefix) {
			continue
		}

		suffix := file.Name()[len(prefix):]
		offset, err := strconv.ParseUint(suffix, 10, 64)
		if err != nil {
			// leftover temp files from a crashed create end in '~' and
			// are skipped here; they get replaced by the next create
			log.Warn("skipping unrecognized segment file: %s", file.Name())
			continue
		}

		offsets = append(offsets, offset)
	}

	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })

	segments := make([]ChannelSegment, 0, len(offsets))
	for _, offset := range offsets {
		segment, err := SegmentReadHeader(channelPath, offset)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}

	for i := 1; i < len(segments); i++ {
		if segments[i-1].OffsetHead != segments[i].OffsetBegin {
			return nil, Errorf(
				ECORRUPT,
				"non-contiguous segments in channel '%s': %d..%d followed by %d..%d",
				channelPath,
				segments[i-1].OffsetBegin,
				segments[i-1].OffsetHead,
				segments[i].OffsetBegin,
				segments[i].OffsetHead)
		}
	}

	return segments, nil
}
