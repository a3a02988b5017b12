package policy

import (
	"context"
	"errors"
)

// Message is one inbound chat message as delivered by the platform session.
type Message struct {
	ID          string
	ChannelID   string
	GuildID     string
	AuthorID    string
	AuthorName  string
	AuthorIsBot bool
	Content     string
}

// Member is a resolved guild member.
type Member struct {
	ID          string
	DisplayName string
}

// ErrMemberNotFound is returned by Platform.ResolveMember when the author is
// no longer (or never was) a member of the guild.
var ErrMemberNotFound = errors.New("member not found")

// Platform is the set of chat-platform primitives the engine consumes.
// The production implementation wraps a Discord session; tests use a mock.
type Platform interface {
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	SendMessage(ctx context.Context, channelID, text string) error
	DirectMessage(ctx context.Context, userID, text string) error
	ResolveMember(ctx context.Context, guildID, userID string) (*Member, error)
	KickMember(ctx context.Context, guildID, userID, reason string) error
	// FindChannelByName returns the ID of the named channel in the guild,
	// or ok=false when the guild has no such channel.
	FindChannelByName(ctx context.Context, guildID, name string) (channelID string, ok bool)
}
