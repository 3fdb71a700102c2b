package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/s21platform/chat-sync/internal/model"
)

var errClosed = errors.New("live channel closed by backend")

// Handlers are the callbacks registered by a subscriber.
type Handlers struct {
	OnMessages func(model.MessageList)
	OnError    func(error)
}

// Pump is the goroutine body of a live subscription. It returns when ctx is
// cancelled or the channel fails. Unless the subscription was cancelled the
// return is reported through OnError, a nil error included.
type Pump func(ctx context.Context, deliver func(model.MessageList)) error

// Subscription is the handle of a live channel. After Cancel returns no
// callback of that subscription runs again. Cancel is idempotent and must not
// be called from inside the subscription's own callbacks.
type Subscription interface {
	Cancel()
}

// Live runs a Pump on its own goroutine. Cancel blocks until the goroutine
// has exited.
type Live struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func Start(handlers Handlers, pump Pump) *Live {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Live{cancel: cancel, done: make(chan struct{})}

	deliver := func(batch model.MessageList) {
		if len(batch) == 0 || ctx.Err() != nil {
			return
		}
		handlers.OnMessages(batch)
	}

	go func() {
		defer close(s.done)
		err := pump(ctx, deliver)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			err = errClosed
		}
		if handlers.OnError != nil {
			handlers.OnError(Terminated("subscribe", err))
		}
	}()

	return s
}

func (s *Live) Cancel() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the pump goroutine has exited.
func (s *Live) Done() <-chan struct{} {
	return s.done
}
