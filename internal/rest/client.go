package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/s21platform/chat-sync/internal/config"
	"github.com/s21platform/chat-sync/internal/model"
	"github.com/s21platform/chat-sync/internal/pkg/validator"
	"github.com/s21platform/chat-sync/internal/transport"
)

// Client talks to the chat API over HTTP and follows chats over the live
// websocket channel.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
	live        LiveClient
	validator   *validator.Validator
}

func NewClient(cfg *config.Config, live LiveClient) *Client {
	return &Client{
		baseURL:     strings.TrimRight(cfg.Backend.BaseURL, "/"),
		accessToken: cfg.Auth.AccessToken,
		httpClient: &http.Client{
			Timeout: cfg.Backend.Timeout,
		},
		live:      live,
		validator: validator.New(),
	}
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) chatPath(chatID, suffix string) (string, error) {
	param, err := runtime.StyleParamWithLocation("simple", false, chatIDParam, runtime.ParamLocationPath, chatID)
	if err != nil {
		return "", fmt.Errorf("failed to encode chat id: %w", err)
	}
	return chatsBasePath + "/" + param + suffix, nil
}

func (c *Client) FetchHistory(ctx context.Context, chatID string) (model.MessageList, error) {
	path, err := c.chatPath(chatID, "/messages")
	if err != nil {
		return nil, transport.NewError(transport.KindNotFound, "fetch history", err)
	}

	var response model.MessagesResponse
	if err = c.do(ctx, "fetch history", http.MethodGet, path, nil, &response); err != nil {
		return nil, err
	}

	return response.Messages, nil
}

func (c *Client) Send(ctx context.Context, chatID, fromProfileID, content string) (model.Message, error) {
	if err := c.validator.ValidateSendMessage(chatID, fromProfileID, content); err != nil {
		return model.Message{}, transport.NewError(transport.KindInvalidInput, "send", err)
	}

	path, err := c.chatPath(chatID, "/messages")
	if err != nil {
		return model.Message{}, transport.NewError(transport.KindNotFound, "send", err)
	}

	var message model.Message
	request := model.SendMessageRequest{From: fromProfileID, Content: content}
	if err = c.do(ctx, "send", http.MethodPost, path, request, &message); err != nil {
		return model.Message{}, err
	}

	return message, nil
}

// ListChats returns the chats of the account behind the access token; the
// server derives the profile from the token, profileID is not sent.
func (c *Client) ListChats(ctx context.Context, _ string) (model.ChatSummaryList, error) {
	var response model.ChatsResponse
	if err := c.do(ctx, "list chats", http.MethodGet, chatsBasePath, nil, &response); err != nil {
		return nil, err
	}

	return response.Chats, nil
}

func (c *Client) SubscribeToken(ctx context.Context, chatID string) (model.SubscribeTokenResponse, error) {
	path, err := c.chatPath(chatID, "/subscribe-token")
	if err != nil {
		return model.SubscribeTokenResponse{}, transport.NewError(transport.KindNotFound, "subscribe token", err)
	}

	var response model.SubscribeTokenResponse
	if err = c.do(ctx, "subscribe token", http.MethodGet, path, nil, &response); err != nil {
		return model.SubscribeTokenResponse{}, err
	}

	return response, nil
}

// Subscribe fetches a subscribe token and attaches the live channel on the
// subscription goroutine, so it returns immediately. Once the server confirms
// the subscription the history is read again, so messages written while the
// channel was attaching are delivered too.
func (c *Client) Subscribe(chatID string, onMessages func(model.MessageList), onError func(error)) transport.Subscription {
	handlers := transport.Handlers{OnMessages: onMessages, OnError: onError}

	return transport.Start(handlers, func(ctx context.Context, deliver func(model.MessageList)) error {
		token, err := c.SubscribeToken(ctx, chatID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		attached := func() error {
			history, err := c.FetchHistory(ctx, chatID)
			if err != nil {
				return fmt.Errorf("failed to catch up history: %w", err)
			}
			deliver(history)
			return nil
		}

		return c.live.Listen(ctx, c.accessToken, token.Channel, token.Token, attached, deliver)
	})
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transport.NewError(transport.KindNetworkUnavailable, op, fmt.Errorf("failed to execute request: %w", err))
	}
	defer resp.Body.Close() //nolint:errcheck // .

	if resp.StatusCode != http.StatusOK {
		var apiErr model.ErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return transport.NewError(kindOfStatus(resp.StatusCode), op, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, apiErr.Error))
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return transport.NewError(transport.KindNetworkUnavailable, op, fmt.Errorf("failed to decode response: %w", err))
	}

	return nil
}

func kindOfStatus(status int) transport.Kind {
	switch {
	case status == http.StatusBadRequest:
		return transport.KindInvalidInput
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return transport.KindPermissionDenied
	case status == http.StatusNotFound:
		return transport.KindNotFound
	case status >= http.StatusInternalServerError:
		return transport.KindNetworkUnavailable
	default:
		return transport.KindUnknown
	}
}
