// discord/client.go
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"modguard/policy"
)

// Client adapts a discordgo session to the policy.Platform primitives.
type Client struct {
	s *discordgo.Session
}

var _ policy.Platform = (*Client)(nil)

func NewClient(s *discordgo.Session) *Client {
	return &Client{s: s}
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := c.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}
	return nil
}

func (c *Client) SendMessage(ctx context.Context, channelID, text string) error {
	if _, err := c.s.ChannelMessageSend(channelID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to send message to channel %s: %w", channelID, err)
	}
	return nil
}

// DirectMessage opens (or reuses) the DM channel with the user and sends text.
func (c *Client) DirectMessage(ctx context.Context, userID, text string) error {
	channel, err := c.s.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel with %s: %w", userID, err)
	}
	if _, err := c.s.ChannelMessageSend(channel.ID, text, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to DM %s: %w", userID, err)
	}
	return nil
}

func (c *Client) ResolveMember(ctx context.Context, guildID, userID string) (*policy.Member, error) {
	member, err := c.s.State.Member(guildID, userID)
	if err != nil {
		member, err = c.s.GuildMember(guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			if isUnknownMember(err) {
				return nil, policy.ErrMemberNotFound
			}
			return nil, fmt.Errorf("failed to fetch member %s: %w", userID, err)
		}
	}

	display := member.Nick
	if display == "" && member.User != nil {
		display = member.User.Username
	}
	return &policy.Member{ID: userID, DisplayName: display}, nil
}

func (c *Client) KickMember(ctx context.Context, guildID, userID, reason string) error {
	if err := c.s.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("failed to kick member %s: %w", userID, err)
	}
	return nil
}

// FindChannelByName scans the guild's text channels, preferring session state
// over a REST round-trip.
func (c *Client) FindChannelByName(ctx context.Context, guildID, name string) (string, bool) {
	var channels []*discordgo.Channel
	if guild, err := c.s.State.Guild(guildID); err == nil {
		channels = guild.Channels
	} else {
		channels, err = c.s.GuildChannels(guildID, discordgo.WithContext(ctx))
		if err != nil {
			return "", false
		}
	}

	for _, channel := range channels {
		if channel.Type == discordgo.ChannelTypeGuildText && channel.Name == name {
			return channel.ID, true
		}
	}
	return "", false
}

func isUnknownMember(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		code := restErr.Message.Code
		return code == discordgo.ErrCodeUnknownMember || code == discordgo.ErrCodeUnknownUser
	}
	return false
}
