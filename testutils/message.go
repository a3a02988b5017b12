// testutils/message.go
package testutils

import (
	"fmt"
	"sync/atomic"

	"modguard/policy"
)

// Fixed IDs shared by tests that don't need specific ones.
const (
	TestGuildID   = "guild-1"
	TestChannelID = "chan-1"
)

var messageSeq atomic.Int64

// MakeMessage builds a non-bot message in the shared test guild/channel with
// a unique ID.
func MakeMessage(authorID, content string) *policy.Message {
	return &policy.Message{
		ID:         fmt.Sprintf("msg-%d", messageSeq.Add(1)),
		ChannelID:  TestChannelID,
		GuildID:    TestGuildID,
		AuthorID:   authorID,
		AuthorName: "user-" + authorID,
		Content:    content,
	}
}

// MakeBotMessage builds a bot-authored message, which the evaluator must skip.
func MakeBotMessage(authorID, content string) *policy.Message {
	msg := MakeMessage(authorID, content)
	msg.AuthorIsBot = true
	return msg
}
