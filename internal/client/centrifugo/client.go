package centrifugo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/s21platform/chat-sync/internal/config"
	"github.com/s21platform/chat-sync/internal/model"
	"github.com/s21platform/chat-sync/internal/transport"
)

const (
	connectCommandID   uint32 = 1
	subscribeCommandID uint32 = 2
)

type Client struct {
	url    string
	dialer *websocket.Dialer
}

func New(cfg *config.Config) *Client {
	return &Client{
		url: cfg.Backend.LiveURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.Backend.Timeout,
		},
	}
}

// Listen connects with the access token, subscribes to channel and passes
// every publication to deliver. attached runs once the server confirmed the
// subscription and before any publication is read; its error ends Listen.
// Listen returns nil once ctx is cancelled and an error when the server
// refuses or drops the subscription.
func (c *Client) Listen(ctx context.Context, accessToken, channel, subscribeToken string, attached func() error, deliver func(model.MessageList)) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return transport.NewError(transport.KindNetworkUnavailable, "live connect", fmt.Errorf("failed to dial: %w", err))
	}
	defer conn.Close() //nolint:errcheck // .

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	connect := model.CentrifugoCommand{
		ID:      connectCommandID,
		Connect: &model.CentrifugoConnect{Token: accessToken},
	}
	if err = c.command(conn, connect); err != nil {
		return c.failure(ctx, "live connect", err)
	}

	subscribe := model.CentrifugoCommand{
		ID:        subscribeCommandID,
		Subscribe: &model.CentrifugoSubscribe{Channel: channel, Token: subscribeToken},
	}
	if err = c.command(conn, subscribe); err != nil {
		return c.failure(ctx, "live subscribe", err)
	}

	if err = attached(); err != nil {
		return c.failure(ctx, "live attach", err)
	}

	for {
		var reply model.CentrifugoReply
		if err = conn.ReadJSON(&reply); err != nil {
			return c.failure(ctx, "live read", err)
		}

		push := reply.Push
		if push == nil || push.Channel != channel {
			continue
		}
		if push.Unsubscribe != nil {
			code := push.Unsubscribe.Code
			return transport.NewError(KindOf(code), "live", fmt.Errorf("unsubscribed by server with code %d", code))
		}
		if push.Pub == nil {
			continue
		}

		var message model.Message
		if err = json.Unmarshal(push.Pub.Data, &message); err != nil || message.ID == "" {
			continue
		}
		deliver(model.MessageList{message})
	}
}

// command writes cmd and waits for the reply with the same id. Pushes
// arriving in between are dropped.
func (c *Client) command(conn *websocket.Conn, cmd model.CentrifugoCommand) error {
	if err := conn.WriteJSON(cmd); err != nil {
		return fmt.Errorf("failed to write command: %w", err)
	}

	for {
		var reply model.CentrifugoReply
		if err := conn.ReadJSON(&reply); err != nil {
			return fmt.Errorf("failed to read reply: %w", err)
		}
		if reply.ID != cmd.ID {
			continue
		}
		if reply.Error != nil {
			return transport.NewError(KindOf(reply.Error.Code), "", fmt.Errorf("centrifugo error %d: %s", reply.Error.Code, reply.Error.Message))
		}
		return nil
	}
}

func (c *Client) failure(ctx context.Context, op string, err error) error {
	if ctx.Err() != nil {
		return nil
	}
	if transport.KindOf(err) != transport.KindUnknown {
		return err
	}
	return transport.NewError(transport.KindNetworkUnavailable, op, err)
}
