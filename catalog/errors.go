package catalog

import "fmt"

type ChannelNotFound string

func (msg ChannelNotFound) Error() string {
	return fmt.Sprintf("%s: channel not found", string(msg))
}

type UnableToCommitChannel string

func (msg UnableToCommitChannel) Error() string {
	return fmt.Sprintf("%s: unable to commit channel", string(msg))
}
