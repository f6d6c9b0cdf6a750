package store

import (
	"context"
	"encoding/json"
	"path"
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpbench/chatmodel"
	"github.com/effective-security/mcpbench/pkg/llms"
	"github.com/effective-security/xlog"
	"github.com/redis/go-redis/v9"
)

// The redis store keeps the last MaxMessages messages of each chat
// in a Redis list. The keys namespace is organized as follows:
// - `/<prefix>/chatstore/<chatID>/messages` for chat messages
// - `/<prefix>/chatstore/chats` for the set of chat IDs

type redisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore returns a store backed by the Redis client,
// with keys under /prefix.
func NewRedisStore(client redis.UniversalClient, prefix string) MessageStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) messagesKey(chatID string) string {
	return path.Join("/", m.prefix, "chatstore", chatID, "messages")
}

func (m *redisStore) chatListKey() string {
	return path.Join("/", m.prefix, "chatstore", "chats")
}

func (m *redisStore) Messages(ctx context.Context) []llms.Message {
	chatID, err := chatmodel.RequireChatID(ctx)
	if err != nil {
		return nil
	}

	data, err := m.client.LRange(ctx, m.messagesKey(chatID), 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "LRange", "chat_id", chatID, "err", err.Error())
		return nil
	}

	var messages []llms.Message
	for _, item := range data {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal message", "err", err.Error())
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

func (m *redisStore) Add(ctx context.Context, msgs ...llms.Message) error {
	chatID, err := chatmodel.RequireChatID(ctx)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal message")
		}
		values = append(values, data)
	}

	key := m.messagesKey(chatID)
	pipe := m.client.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -MaxMessages, -1)
	pipe.SAdd(ctx, m.chatListKey(), chatID)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store message in Redis")
	}
	return nil
}

func (m *redisStore) Reset(ctx context.Context) error {
	chatID, err := chatmodel.RequireChatID(ctx)
	if err != nil {
		return err
	}

	pipe := m.client.TxPipeline()
	pipe.Del(ctx, m.messagesKey(chatID))
	pipe.SRem(ctx, m.chatListKey(), chatID)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to reset chat in Redis")
	}
	return nil
}

func (m *redisStore) ListChats(ctx context.Context) ([]string, error) {
	chatIDs, err := m.client.SMembers(ctx, m.chatListKey()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to list chats from Redis")
	}
	slices.Sort(chatIDs)
	return chatIDs, nil
}
