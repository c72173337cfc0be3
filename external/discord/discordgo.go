package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/segscribe/internal/discord"
)

const restTimeout = 30 * time.Second

type Client struct {
	session *discordgo.Session
}

// NewClient returns a REST-only client. An empty token yields a disabled client
// whose sends are no-ops.
func NewClient(token string) (*Client, error) {
	if token == "" {
		return &Client{}, nil
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Client = &http.Client{Timeout: restTimeout}
	return &Client{session: s}, nil
}

func (c *Client) Enabled() bool {
	return c.session != nil
}

func (c *Client) SendChannelMessageWithFile(ctx context.Context, msg discordpkg.FileMessage) error {
	if !c.Enabled() {
		return nil
	}
	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content: msg.Content,
		Files: []*discordgo.File{
			{Name: msg.Filename, ContentType: "text/plain", Reader: bytes.NewReader(msg.FileBody)},
		},
	}, discordgo.WithContext(ctx))
	if isRESTNotFound(err) {
		return fmt.Errorf("discord channel %s not found: %w", msg.ChannelID, err)
	}
	return err
}

func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}
