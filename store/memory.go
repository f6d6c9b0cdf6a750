package store

import (
	"context"
	"slices"
	"sync"

	"github.com/effective-security/mcpbench/chatmodel"
	"github.com/effective-security/mcpbench/pkg/llms"
)

type inMemory struct {
	mu      sync.RWMutex
	storage map[string][]llms.Message
}

func NewMemoryStore() MessageStore {
	return &inMemory{}
}

func (m *inMemory) Messages(ctx context.Context) []llms.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.storage == nil {
		return nil
	}
	return slices.Clone(m.storage[chatmodel.GetChatID(ctx)])
}

func (m *inMemory) Add(ctx context.Context, msgs ...llms.Message) error {
	chatID, err := chatmodel.RequireChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]llms.Message)
	}
	m.storage[chatID] = keepLast(append(m.storage[chatID], msgs...))
	return nil
}

func (m *inMemory) Reset(ctx context.Context) error {
	chatID, err := chatmodel.RequireChatID(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, chatID)
	return nil
}

func (m *inMemory) ListChats(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.storage))
	for id := range m.storage {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
