// Package store keeps the canonical view of one conversation: messages
// sorted by (createdAt, id) with at most one entry per id.
package store

import (
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/s21platform/chat-sync/internal/model"
)

type MessageStore struct {
	mu       sync.RWMutex
	messages model.MessageList
	ids      map[string]struct{}
}

func New() *MessageStore {
	return &MessageStore{
		ids: make(map[string]struct{}),
	}
}

// Compare orders messages by createdAt, then by id.
func Compare(a, b model.Message) int {
	switch {
	case a.CreatedAt < b.CreatedAt:
		return -1
	case a.CreatedAt > b.CreatedAt:
		return 1
	default:
		return strings.Compare(a.ID, b.ID)
	}
}

// InsertBatch merges a historical page or a live delta. The first copy of an
// id wins: later deliveries of the same id are ignored even when other
// fields differ. Reports whether the visible sequence changed.
func (s *MessageStore) InsertBatch(batch model.MessageList) bool {
	if len(batch) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := lo.Filter(lo.UniqBy(batch, func(m model.Message) string {
		return m.ID
	}), func(m model.Message, _ int) bool {
		_, seen := s.ids[m.ID]
		return !seen
	})
	if len(fresh) == 0 {
		return false
	}

	for _, m := range fresh {
		pos, _ := slices.BinarySearchFunc(s.messages, m, Compare)
		s.messages = slices.Insert(s.messages, pos, m)
		s.ids[m.ID] = struct{}{}
	}

	return true
}

// Snapshot returns a copy of the ordered view.
func (s *MessageStore) Snapshot() model.MessageList {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.messages)
}

func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.messages)
}

func (s *MessageStore) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.ids[id]
	return ok
}
