//go:generate mockgen -destination=mock_contract_test.go -package=${GOPACKAGE} -source=contract.go
package rest

import (
	"context"

	"github.com/s21platform/chat-sync/internal/model"
	"github.com/s21platform/chat-sync/internal/transport"
)

type Backend interface {
	FetchHistory(ctx context.Context, chatID string) (model.MessageList, error)
	Send(ctx context.Context, chatID, fromProfileID, content string) (model.Message, error)
	Subscribe(chatID string, onMessages func(model.MessageList), onError func(error)) transport.Subscription
	ListChats(ctx context.Context, profileID string) (model.ChatSummaryList, error)
	IsChatMember(ctx context.Context, chatID, profileID string) (bool, error)
}

type JWTGenerator interface {
	GenerateSubscribeToken(userID, chatID string) (string, int64, error)
	ValidateAccessToken(tokenString string) (*model.AccountClaims, error)
	ValidateSubscribeToken(tokenString string) (*model.CentrifugoSubscribeClaims, error)
}

type LiveClient interface {
	Listen(ctx context.Context, accessToken, channel, subscribeToken string, attached func() error, deliver func(model.MessageList)) error
}

type Metrics interface {
	Increment(name string)
}
