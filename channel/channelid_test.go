package channel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulasmuth/brokerd/channel"
)

func TestChannelIDValid(t *testing.T) {
	for _, s := range []string{"ch", "my-channel", "logs.2016", "a_b~c", "UPPER", "0"} {
		id, err := channel.ChannelIDFromString(s)
		require.Nil(t, err, s)
		assert.Equal(t, s, id.String())
	}
}

func TestChannelIDInvalid(t *testing.T) {
	for _, s := range []string{"", ".", "..", "a/b", "a b", "a\x00b", "sub/../up", "äöü"} {
		_, err := channel.ChannelIDFromString(s)
		require.NotNil(t, err, s)
		assert.Equal(t, channel.EINVAL, channel.CodeOf(err))
	}
}
