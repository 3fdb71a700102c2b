// Package memory is an in-process chat backend. It serves the offline mode of
// the client and stands in for the real backends in tests: besides the
// transport operations it can inject live deliveries and drop live channels.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/s21platform/chat-sync/internal/model"
	"github.com/s21platform/chat-sync/internal/pkg/validator"
	"github.com/s21platform/chat-sync/internal/transport"
)

type chat struct {
	summary     model.ChatSummary
	members     map[string]struct{}
	messages    model.MessageList
	denied      bool
	subscribers map[string]*subscriber
}

type Backend struct {
	mu        sync.Mutex
	chats     map[string]*chat
	offline   bool
	now       func() int64
	validator *validator.Validator
}

func New() *Backend {
	return &Backend{
		chats:     make(map[string]*chat),
		now:       func() int64 { return time.Now().UnixMilli() },
		validator: validator.New(),
	}
}

// WithClock replaces the millisecond clock used for createdAt.
func (b *Backend) WithClock(now func() int64) *Backend {
	b.now = now
	return b
}

// AddChat registers a conversation between the given profiles.
func (b *Backend) AddChat(summary model.ChatSummary, members ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := &chat{
		summary:     summary,
		members:     make(map[string]struct{}, len(members)),
		subscribers: make(map[string]*subscriber),
	}
	for _, m := range members {
		c.members[m] = struct{}{}
	}
	b.chats[summary.ChatID] = c
}

// Seed stores messages without publishing them.
func (b *Backend) Seed(chatID string, messages ...model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.chats[chatID]; ok {
		c.messages = append(c.messages, messages...)
	}
}

// SetOffline makes reads and writes fail with NetworkUnavailable.
func (b *Backend) SetOffline(offline bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.offline = offline
}

// Deny makes every operation on the chat fail with PermissionDenied.
func (b *Backend) Deny(chatID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.chats[chatID]; ok {
		c.denied = true
	}
}

// Publish delivers messages on the live channels of a chat, as if another
// device wrote them or the backend redelivered them. Unknown ids are stored.
func (b *Backend) Publish(chatID string, messages ...model.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.chats[chatID]
	if !ok {
		return
	}
	for _, m := range messages {
		if !slices.ContainsFunc(c.messages, func(s model.Message) bool { return s.ID == m.ID }) {
			c.messages = append(c.messages, m)
		}
	}
	for _, sub := range c.subscribers {
		sub.push(messages)
	}
}

// Fail drops every live channel of a chat with err.
func (b *Backend) Fail(chatID string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.chats[chatID]; ok {
		for _, sub := range c.subscribers {
			sub.fail(err)
		}
	}
}

// Subscribers reports the number of open live channels of a chat.
func (b *Backend) Subscribers(chatID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if c, ok := b.chats[chatID]; ok {
		return len(c.subscribers)
	}
	return 0
}

func (b *Backend) lookup(op, chatID string) (*chat, error) {
	if b.offline {
		return nil, transport.NewError(transport.KindNetworkUnavailable, op, fmt.Errorf("backend is offline"))
	}
	c, ok := b.chats[chatID]
	if !ok {
		return nil, transport.NewError(transport.KindNotFound, op, fmt.Errorf("chat %s does not exist", chatID))
	}
	if c.denied {
		return nil, transport.NewError(transport.KindPermissionDenied, op, fmt.Errorf("access to chat %s denied", chatID))
	}
	return c, nil
}

func (b *Backend) FetchHistory(ctx context.Context, chatID string) (model.MessageList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.lookup("fetch history", chatID)
	if err != nil {
		return nil, err
	}

	return slices.Clone(c.messages), nil
}

func (b *Backend) Send(ctx context.Context, chatID, fromProfileID, content string) (model.Message, error) {
	if err := ctx.Err(); err != nil {
		return model.Message{}, err
	}

	if err := b.validator.ValidateSendMessage(chatID, fromProfileID, content); err != nil {
		return model.Message{}, transport.NewError(transport.KindInvalidInput, "send", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.lookup("send", chatID)
	if err != nil {
		return model.Message{}, err
	}

	message := model.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		From:      fromProfileID,
		Content:   content,
		CreatedAt: b.now(),
	}
	c.messages = append(c.messages, message)

	for _, sub := range c.subscribers {
		sub.push(model.MessageList{message})
	}

	return message, nil
}

func (b *Backend) Subscribe(chatID string, onMessages func(model.MessageList), onError func(error)) transport.Subscription {
	sub := newSubscriber()

	b.mu.Lock()
	c, err := b.lookup("subscribe", chatID)
	key := uuid.NewString()
	if err == nil {
		c.subscribers[key] = sub
	} else {
		sub.fail(err)
	}
	b.mu.Unlock()

	return transport.Start(transport.Handlers{OnMessages: onMessages, OnError: onError}, func(ctx context.Context, deliver func(model.MessageList)) error {
		defer func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c != nil {
				delete(c.subscribers, key)
			}
		}()
		return sub.run(ctx, deliver)
	})
}

// IsChatMember reports whether the profile takes part in the chat.
func (b *Backend) IsChatMember(ctx context.Context, chatID, profileID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	c, err := b.lookup("check membership", chatID)
	if err != nil {
		return false, err
	}
	_, ok := c.members[profileID]

	return ok, nil
}

// ListChats returns the conversations the profile takes part in.
func (b *Backend) ListChats(ctx context.Context, profileID string) (model.ChatSummaryList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.offline {
		return nil, transport.NewError(transport.KindNetworkUnavailable, "list chats", fmt.Errorf("backend is offline"))
	}

	var chats model.ChatSummaryList
	for _, c := range b.chats {
		if _, ok := c.members[profileID]; !ok {
			continue
		}
		summary := c.summary
		if n := len(c.messages); n > 0 {
			last := c.messages[n-1]
			summary.LastMessageContent = &last.Content
			summary.LastMessageAt = &last.CreatedAt
		}
		chats = append(chats, summary)
	}
	slices.SortFunc(chats, func(x, y model.ChatSummary) int {
		return compareLast(y, x)
	})

	return chats, nil
}

func compareLast(a, b model.ChatSummary) int {
	var at, bt int64
	if a.LastMessageAt != nil {
		at = *a.LastMessageAt
	}
	if b.LastMessageAt != nil {
		bt = *b.LastMessageAt
	}
	switch {
	case at < bt:
		return -1
	case at > bt:
		return 1
	default:
		return 0
	}
}
