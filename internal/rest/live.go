package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/chat-sync/internal/client/centrifugo"
	"github.com/s21platform/chat-sync/internal/config"
	"github.com/s21platform/chat-sync/internal/model"
)

const defaultWriteWait = 10 * time.Second

// liveConn serializes writes of the handler goroutine and the backend pump.
// A write that misses its deadline closes the connection, which ends the
// handler's read loop.
type liveConn struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	writeWait time.Duration
}

func (c *liveConn) write(reply model.CentrifugoReply) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeLocked(reply)
}

func (c *liveConn) writeLocked(reply model.CentrifugoReply) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		_ = c.conn.Close()
		return err
	}
	if err := c.conn.WriteJSON(reply); err != nil {
		_ = c.conn.Close()
		return err
	}
	return nil
}

func (c *liveConn) reply(id uint32, code uint32, message string) error {
	reply := model.CentrifugoReply{ID: id}
	if code != 0 {
		reply.Error = &model.CentrifugoError{Code: code, Message: message}
	}
	return c.write(reply)
}

// Live serves the websocket live channel: one connect command, one subscribe
// command, then publications of the chat until either side goes away.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("Live")
	metrics := metricsFromContext(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to upgrade connection: %v", err))
		return
	}
	defer conn.Close() //nolint:errcheck // .
	lc := &liveConn{conn: conn, writeWait: h.writeWait}

	var cmd model.CentrifugoCommand
	if err = conn.ReadJSON(&cmd); err != nil || cmd.Connect == nil {
		logger.Warn("live connection closed before connect")
		return
	}

	account, err := h.jwtGenerator.ValidateAccessToken(cmd.Connect.Token)
	if err != nil {
		logger.Warn(fmt.Sprintf("failed to validate access token: %v", err))
		_ = lc.reply(cmd.ID, centrifugo.CodeUnauthorized, "unauthorized")
		return
	}
	if err = lc.reply(cmd.ID, 0, ""); err != nil {
		return
	}

	cmd = model.CentrifugoCommand{}
	if err = conn.ReadJSON(&cmd); err != nil || cmd.Subscribe == nil {
		logger.Warn("live connection closed before subscribe")
		return
	}
	channel := cmd.Subscribe.Channel

	claims, err := h.jwtGenerator.ValidateSubscribeToken(cmd.Subscribe.Token)
	if err != nil || claims.Channel != channel || claims.UserID != account.Subject {
		logger.Warn(fmt.Sprintf("subscribe token rejected for channel %s", channel))
		_ = lc.reply(cmd.ID, centrifugo.CodePermissionDenied, "permission denied")
		return
	}

	isMember, err := h.backend.IsChatMember(r.Context(), channel, profileOf(account))
	if err != nil {
		logger.Error(fmt.Sprintf("failed to check chat membership: %v", err))
		_ = lc.reply(cmd.ID, centrifugo.CodeOf(err), err.Error())
		return
	}
	if !isMember {
		_ = lc.reply(cmd.ID, centrifugo.CodePermissionDenied, "permission denied")
		return
	}

	// publications wait for the subscribe reply
	lc.mu.Lock()
	sub := h.backend.Subscribe(channel, func(batch model.MessageList) {
		for _, message := range batch {
			data, err := json.Marshal(message)
			if err != nil {
				continue
			}
			err = lc.write(model.CentrifugoReply{Push: &model.CentrifugoPush{
				Channel: channel,
				Pub:     &model.CentrifugoPublication{Data: data},
			}})
			if err != nil {
				return
			}
		}
	}, func(err error) {
		logger.Warn(fmt.Sprintf("live channel %s terminated: %v", channel, err))
		metrics.Increment("live_terminated")
		_ = lc.write(model.CentrifugoReply{Push: &model.CentrifugoPush{
			Channel:     channel,
			Unsubscribe: &model.CentrifugoUnsubscribe{Code: centrifugo.CodeOf(err)},
		}})
		_ = conn.Close()
	})
	err = lc.writeLocked(model.CentrifugoReply{ID: cmd.ID})
	lc.mu.Unlock()
	defer sub.Cancel()
	if err != nil {
		return
	}
	logger.Info(fmt.Sprintf("user %s subscribed to chat %s", account.Subject, channel))
	metrics.Increment("live_subscribe")

	for {
		if _, _, err = conn.ReadMessage(); err != nil {
			return
		}
	}
}
