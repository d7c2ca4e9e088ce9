package utils_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulasmuth/brokerd/utils"
)

func TestParseConfig(t *testing.T) {
	config, err := utils.ParseConfig([]byte(`
root_directory: /var/lib/brokerd
listen_port: 8080
max_segment_size: 16M
stop_grace_period: 5
`))
	require.Nil(t, err)
	assert.Equal(t, "/var/lib/brokerd", config.RootDirectory)
	assert.Equal(t, ":8080", config.ListenURL())
	assert.Equal(t, uint64(16*1024*1024), config.MaxSegmentSize)
	assert.Equal(t, "5s", config.StopGracePeriod.String())
}

func TestParseConfigDefaults(t *testing.T) {
	config, err := utils.ParseConfig([]byte("root_directory: /tmp/brokerd\n"))
	require.Nil(t, err)
	assert.Equal(t, ":4242", config.ListenURL())
	assert.Equal(t, uint64(64*1024*1024), config.MaxSegmentSize)
}

func TestParseConfigMissingRootDirectory(t *testing.T) {
	_, err := utils.ParseConfig([]byte("listen_port: 8080\n"))
	require.NotNil(t, err)
}

func TestParseConfigBadSegmentSize(t *testing.T) {
	_, err := utils.ParseConfig([]byte("root_directory: /tmp/x\nmax_segment_size: banana\n"))
	require.NotNil(t, err)
}
