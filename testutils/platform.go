// testutils/platform.go
package testutils

import (
	"context"
	"sync"

	"modguard/policy"
)

type DeletedMessage struct {
	ChannelID string
	MessageID string
}

type SentMessage struct {
	ChannelID string
	Text      string
}

type SentDM struct {
	UserID string
	Text   string
}

type Kick struct {
	GuildID string
	UserID  string
	Reason  string
}

// MockPlatform records every platform call so tests can assert exact action
// sequences. Per-call error injection exercises the partial-failure paths.
type MockPlatform struct {
	mu sync.Mutex

	Deleted []DeletedMessage
	Sent    []SentMessage
	DMs     []SentDM
	Kicks   []Kick

	ResolveCalls int

	// Members maps userID to the member ResolveMember returns. A missing
	// entry yields policy.ErrMemberNotFound.
	Members map[string]*policy.Member
	// Channels maps "guildID/name" to a channel ID for FindChannelByName.
	Channels map[string]string

	DeleteErr  error
	SendErr    error
	DMErr      error
	KickErr    error
	ResolveErr error
}

var _ policy.Platform = (*MockPlatform)(nil)

func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		Members:  make(map[string]*policy.Member),
		Channels: make(map[string]string),
	}
}

// AddMember registers a resolvable guild member.
func (p *MockPlatform) AddMember(userID, displayName string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Members[userID] = &policy.Member{ID: userID, DisplayName: displayName}
}

// AddChannel registers a named channel in a guild.
func (p *MockPlatform) AddChannel(guildID, name, channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Channels[guildID+"/"+name] = channelID
}

func (p *MockPlatform) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.DeleteErr != nil {
		return p.DeleteErr
	}
	p.Deleted = append(p.Deleted, DeletedMessage{ChannelID: channelID, MessageID: messageID})
	return nil
}

func (p *MockPlatform) SendMessage(ctx context.Context, channelID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SendErr != nil {
		return p.SendErr
	}
	p.Sent = append(p.Sent, SentMessage{ChannelID: channelID, Text: text})
	return nil
}

func (p *MockPlatform) DirectMessage(ctx context.Context, userID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.DMErr != nil {
		return p.DMErr
	}
	p.DMs = append(p.DMs, SentDM{UserID: userID, Text: text})
	return nil
}

func (p *MockPlatform) ResolveMember(ctx context.Context, guildID, userID string) (*policy.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ResolveCalls++
	if p.ResolveErr != nil {
		return nil, p.ResolveErr
	}
	member, ok := p.Members[userID]
	if !ok {
		return nil, policy.ErrMemberNotFound
	}
	return member, nil
}

func (p *MockPlatform) KickMember(ctx context.Context, guildID, userID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.KickErr != nil {
		return p.KickErr
	}
	p.Kicks = append(p.Kicks, Kick{GuildID: guildID, UserID: userID, Reason: reason})
	return nil
}

func (p *MockPlatform) FindChannelByName(ctx context.Context, guildID, name string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id, ok := p.Channels[guildID+"/"+name]
	return id, ok
}

// SentTo returns the messages sent to one channel.
func (p *MockPlatform) SentTo(channelID string) []SentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []SentMessage
	for _, m := range p.Sent {
		if m.ChannelID == channelID {
			out = append(out, m)
		}
	}
	return out
}
