package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/samber/lo"

	"github.com/s21platform/chat-sync/internal/model"
	"github.com/s21platform/chat-sync/internal/transport"
)

// NotifyChannel carries every inserted message as JSON, see the
// notify_new_message trigger in migrations.
const NotifyChannel = "chat_messages"

func decodeNotification(n *pq.Notification) (model.Message, error) {
	var message model.Message
	if err := json.Unmarshal([]byte(n.Extra), &message); err != nil {
		return model.Message{}, fmt.Errorf("failed to decode notification: %v", err)
	}
	if message.ID == "" {
		return model.Message{}, fmt.Errorf("notification without message id")
	}
	return message, nil
}

// collect decodes a burst of notifications and keeps the ones of chatID.
// Payloads that cannot be decoded are skipped.
func collect(chatID string, notifications []*pq.Notification) model.MessageList {
	return lo.FilterMap(notifications, func(n *pq.Notification, _ int) (model.Message, bool) {
		if n == nil {
			return model.Message{}, false
		}
		message, err := decodeNotification(n)
		if err != nil {
			return model.Message{}, false
		}
		return message, message.ChatID == chatID
	})
}

// drain takes first and whatever else is already queued on notify.
func drain(first *pq.Notification, notify <-chan *pq.Notification) []*pq.Notification {
	burst := []*pq.Notification{first}
	for {
		select {
		case n, ok := <-notify:
			if !ok {
				return burst
			}
			burst = append(burst, n)
		default:
			return burst
		}
	}
}

// Subscribe listens on NotifyChannel with a dedicated connection and then
// delivers the history page once, covering messages inserted before the
// listener was attached. The listener does not reconnect on behalf of the
// session: the first disconnect terminates the subscription.
func (r *Repository) Subscribe(chatID string, onMessages func(model.MessageList), onError func(error)) transport.Subscription {
	handlers := transport.Handlers{OnMessages: onMessages, OnError: onError}

	return transport.Start(handlers, func(ctx context.Context, deliver func(model.MessageList)) error {
		if err := r.ensureChat(ctx, "subscribe", chatID); err != nil {
			return err
		}

		dropped := make(chan error, 1)
		listener := pq.NewListener(r.conStr, r.minReconnect, r.maxReconnect, func(ev pq.ListenerEventType, err error) {
			if ev != pq.ListenerEventDisconnected && ev != pq.ListenerEventConnectionAttemptFailed {
				return
			}
			select {
			case dropped <- err:
			default:
			}
		})
		defer func() { _ = listener.Close() }()

		if err := listener.Listen(NotifyChannel); err != nil {
			return mapError("subscribe", err)
		}

		// inserts committed before LISTEN took effect never notify this listener
		history, err := r.FetchHistory(ctx, chatID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		deliver(history)

		for {
			select {
			case <-ctx.Done():
				return nil
			case err := <-dropped:
				return transport.NewError(transport.KindNetworkUnavailable, "subscribe", err)
			case n, ok := <-listener.Notify:
				if !ok {
					return nil
				}
				deliver(collect(chatID, drain(n, listener.Notify)))
			}
		}
	})
}
