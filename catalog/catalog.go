package catalog

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/paulasmuth/brokerd/channel"
	"github.com/paulasmuth/brokerd/utils/log"
)

// Directory maps channel names to open channels. It scans the root directory
// once at startup and recovers every channel found there; further channels
// are created on demand.
type Directory struct {
	sync.RWMutex

	rootDir        string
	maxSegmentSize uint64
	channels       map[string]*channel.Channel
}

// Option adjusts directory construction.
type Option func(*Directory)

// WithMaxSegmentSize sets the rollover threshold applied to every channel
// opened or created through this directory.
func WithMaxSegmentSize(size uint64) Option {
	return func(d *Directory) {
		d.maxSegmentSize = size
	}
}

// NewDirectory scans rootDir for channel segment files and opens every
// channel it finds. Files that don't look like segments are skipped with a
// warning; corrupt channels abort the scan.
func NewDirectory(rootDir string, opts ...Option) (*Directory, error) {
	d := &Directory{
		rootDir:        rootDir,
		maxSegmentSize: channel.DefaultMaxSegmentSize,
		channels:       map[string]*channel.Channel{},
	}
	for _, opt := range opts {
		opt(d)
	}

	names, err := scanChannelNames(rootDir)
	if err != nil {
		return nil, err
	}

	for _, name := range names {
		id, err := channel.ChannelIDFromString(name)
		if err != nil {
			log.Warn("skipping directory entry with invalid channel name: %s", name)
			continue
		}

		ch, err := openChannel(d.channelPath(id), d.maxSegmentSize)
		if err != nil {
			return nil, err
		}

		d.channels[id.String()] = ch
		log.Debug("recovered channel: %s", id.String())
	}

	return d, nil
}

// scanChannelNames lists the distinct channel names that own segment files
// directly under rootDir. Segment files are named "{channel}~{offset}"; the
// offset starts after the last separator.
func scanChannelNames(rootDir string) ([]string, error) {
	files, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		name := file.Name()
		idx := strings.LastIndex(name, "~")
		if idx <= 0 || idx == len(name)-1 {
			log.Warn("skipping unrecognized file in channel root: %s", name)
			continue
		}

		seen[name[:idx]] = true
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)

	return names, nil
}

func openChannel(channelPath string, maxSegmentSize uint64) (*channel.Channel, error) {
	segments, err := channel.ListSegments(channelPath)
	if err != nil {
		return nil, err
	}

	if len(segments) == 0 {
		return channel.Create(channelPath, channel.WithMaxSegmentSize(maxSegmentSize))
	}

	return channel.Open(channelPath, segments, channel.WithMaxSegmentSize(maxSegmentSize))
}

func (d *Directory) channelPath(id channel.ChannelID) string {
	return filepath.Join(d.rootDir, id.String())
}

// Get returns the open channel named by id.
func (d *Directory) Get(id channel.ChannelID) (*channel.Channel, error) {
	d.RLock()
	defer d.RUnlock()

	ch, ok := d.channels[id.String()]
	if !ok {
		return nil, ChannelNotFound(id.String())
	}

	return ch, nil
}

// GetOrCreate returns the open channel named by id, creating it if this is
// the first time the name is seen.
func (d *Directory) GetOrCreate(id channel.ChannelID) (*channel.Channel, error) {
	d.Lock()
	defer d.Unlock()

	if ch, ok := d.channels[id.String()]; ok {
		return ch, nil
	}

	ch, err := openChannel(d.channelPath(id), d.maxSegmentSize)
	if err != nil {
		return nil, err
	}

	d.channels[id.String()] = ch
	log.Info("created channel: %s", id.String())

	return ch, nil
}

// List returns the sorted names of all open channels.
func (d *Directory) List() []string {
	d.RLock()
	defer d.RUnlock()

	names := make([]string, 0, len(d.channels))
	for name := range d.channels {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Sync commits every channel with uncommitted appends.
func (d *Directory) Sync() error {
	d.RLock()
	defer d.RUnlock()

	for name, ch := range d.channels {
		if err := ch.Commit(); err != nil {
			return UnableToCommitChannel(name)
		}
	}

	return nil
}

// Close commits and closes every channel. The directory must not be used
// afterwards.
func (d *Directory) Close() error {
	d.Lock()
	defer d.Unlock()

	var firstErr error
	for name, ch := range d.channels {
		if err := ch.Close(); err != nil {
			log.Error("failed to close channel %s: %v", name, err)
			if firstErr == nil {
				firstErr = err
			}
		}
		delete(d.channels, name)
	}

	return firstErr
}
