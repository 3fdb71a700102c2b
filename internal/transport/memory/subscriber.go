package memory

import (
	"context"
	"sync"

	"github.com/s21platform/chat-sync/internal/model"
)

// subscriber queues deliveries for one live channel. Everything queued
// between two wake-ups reaches the subscriber as one batch.
type subscriber struct {
	mu      sync.Mutex
	pending model.MessageList
	err     error
	wake    chan struct{}
}

func newSubscriber() *subscriber {
	return &subscriber{wake: make(chan struct{}, 1)}
}

func (s *subscriber) push(messages model.MessageList) {
	s.mu.Lock()
	s.pending = append(s.pending, messages...)
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.signal()
}

func (s *subscriber) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *subscriber) run(ctx context.Context, deliver func(model.MessageList)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.wake:
		}

		s.mu.Lock()
		batch, err := s.pending, s.err
		s.pending = nil
		s.mu.Unlock()

		deliver(batch)
		if err != nil {
			return err
		}
	}
}
