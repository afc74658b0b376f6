package sys

import (
	"context"
	"sync"
)

// ChatStore tracks per-chat runtime state (active voice calls) and exposes
// persisted chat settings. Call state is volatile; it is rebuilt empty on
// restart, matching the queue's lifetime.
type ChatStore struct {
	mu    sync.Mutex
	calls map[int64]bool
}

func NewChatStore() *ChatStore {
	return &ChatStore{calls: make(map[int64]bool)}
}

func (s *ChatStore) IsCallActive(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[chatID]
}

func (s *ChatStore) SetCallActive(chatID int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active {
		s.calls[chatID] = true
	} else {
		delete(s.calls, chatID)
	}
}

// ActiveChats returns the chats that currently have a running call.
func (s *ChatStore) ActiveChats() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.calls))
	for id := range s.calls {
		ids = append(ids, id)
	}
	return ids
}

func (s *ChatStore) ChannelPlayTarget(ctx context.Context, chatID int64) (int64, bool) {
	return GetChannelTarget(ctx, chatID)
}
