//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package session

import (
	"context"

	"github.com/s21platform/chat-sync/internal/model"
	"github.com/s21platform/chat-sync/internal/transport"
	"github.com/s21platform/chat-sync/internal/view"
)

type Transport interface {
	FetchHistory(ctx context.Context, chatID string) (model.MessageList, error)
	Send(ctx context.Context, chatID, fromProfileID, content string) (model.Message, error)
	Subscribe(chatID string, onMessages func(model.MessageList), onError func(error)) transport.Subscription
}

type Identity interface {
	MyProfileID() (string, bool)
	OnChange(fn func()) (cancel func())
}

// Observer receives the aligned message sequence whenever it changes and
// every failure of the session. Calls are serialized; an observer must not
// call Send or Close of the same session synchronously.
type Observer interface {
	MessagesChanged(bubbles []view.Bubble)
	Failed(err error)
}
