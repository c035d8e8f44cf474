package discord

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	discordpkg "github.com/foxseedlab/callscribe/internal/discord"
)

var (
	ErrEmptyToken      = errors.New("empty discord bot token")
	ErrChannelNotFound = errors.New("discord channel not found")
)

// Client posts to Discord over REST only. Mirroring never needs the gateway connection.
type Client struct {
	session *discordgo.Session
}

func NewClient(token string) (*Client, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &Client{session: s}, nil
}

func (c *Client) SendChannelMessage(channelID, content string) error {
	_, err := c.session.ChannelMessageSend(channelID, content)
	if isRESTNotFound(err) {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}
	if err != nil {
		return fmt.Errorf("send channel message: %w", err)
	}
	return nil
}

func (c *Client) SendChannelMessageWithFile(msg discordpkg.FileMessage) error {
	_, err := c.session.ChannelMessageSendComplex(msg.ChannelID, &discordgo.MessageSend{
		Content: msg.Content,
		Files: []*discordgo.File{
			{
				Name:        msg.Filename,
				ContentType: "text/plain",
				Reader:      bytes.NewReader(msg.FileBody),
			},
		},
	})
	if isRESTNotFound(err) {
		return fmt.Errorf("%w: %s", ErrChannelNotFound, msg.ChannelID)
	}
	if err != nil {
		return fmt.Errorf("send channel file: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// isRESTNotFound reports whether err is a Discord REST 404, e.g. a deleted mirror channel.
func isRESTNotFound(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return false
	}
	return restErr.Response.StatusCode == http.StatusNotFound
}

var _ discordpkg.Client = (*Client)(nil)
