// Package store keeps the conversation history of chats, in memory or in Redis.
// The chat is taken from the context, see chatmodel.
package store

import (
	"context"

	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpbench", "store")

// MaxMessages is the number of most recent messages kept per chat.
const MaxMessages = 50

type MessageStore interface {
	// Messages returns the history of the chat from the context.
	Messages(ctx context.Context) []llms.Message
	// Add appends messages to the history of the chat from the context.
	Add(ctx context.Context, msgs ...llms.Message) error
	// Reset removes the history of the chat from the context.
	Reset(ctx context.Context) error
	// ListChats returns IDs of the chats with history.
	ListChats(ctx context.Context) ([]string, error)
}

func keepLast(msgs []llms.Message) []llms.Message {
	if len(msgs) > MaxMessages {
		return msgs[len(msgs)-MaxMessages:]
	}
	return msgs
}
