package discord

import "context"

type FileMessage struct {
	ChannelID string
	Content   string
	Filename  string
	FileBody  []byte
}

// Client posts messages through the Discord REST API. No gateway connection is held.
type Client interface {
	// Enabled reports whether a bot token is configured.
	Enabled() bool
	SendChannelMessageWithFile(ctx context.Context, msg FileMessage) error
}
