// Package chatmodel carries the chat of a conversation in the context,
// so history stores and transcripts can key messages by chat ID.
package chatmodel

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/x/values"
	"github.com/effective-security/xdb/pkg/flake"
)

// ErrInvalidChatContext is returned when the context carries no chat.
var ErrInvalidChatContext = errors.New("invalid chat context")

// Chat identifies a conversation: a REPL session or a benchmark task run.
type Chat struct {
	ID string
	// TaskID is the benchmark task answered by the chat.
	TaskID string
}

// NewChat returns a chat, generating the ID when empty.
func NewChat(chatID string) *Chat {
	return &Chat{ID: values.StringsCoalesce(chatID, NewChatID())}
}

// NewTaskChat returns a new chat answering the benchmark task.
func NewTaskChat(taskID string) *Chat {
	return &Chat{
		ID:     "task-" + taskID + "-" + NewChatID(),
		TaskID: taskID,
	}
}

type contextKey int

const (
	keyChat contextKey = iota
)

// WithChat returns a new context carrying the chat.
func WithChat(ctx context.Context, chat *Chat) context.Context {
	return context.WithValue(ctx, keyChat, chat)
}

// WithChatID returns a new context with a chat of the given ID.
func WithChatID(ctx context.Context, chatID string) context.Context {
	return WithChat(ctx, NewChat(chatID))
}

// GetChat returns the chat of the context, or nil.
func GetChat(ctx context.Context) *Chat {
	if v, ok := ctx.Value(keyChat).(*Chat); ok {
		return v
	}
	return nil
}

// GetChatID returns the chat ID of the context, or an empty string.
func GetChatID(ctx context.Context) string {
	if c := GetChat(ctx); c != nil {
		return c.ID
	}
	return ""
}

// GetTaskID returns the benchmark task of the context, or an empty string.
func GetTaskID(ctx context.Context) string {
	if c := GetChat(ctx); c != nil {
		return c.TaskID
	}
	return ""
}

// RequireChatID returns the chat ID from the context,
// or ErrInvalidChatContext when there is none.
func RequireChatID(ctx context.Context) (string, error) {
	id := GetChatID(ctx)
	if id == "" {
		return "", errors.WithStack(ErrInvalidChatContext)
	}
	return id, nil
}

// NewChatID generates a new chat ID using the flake ID generator.
func NewChatID() string {
	return strconv.FormatUint(flake.DefaultIDGenerator.NextID(), 10)
}
