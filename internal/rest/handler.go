package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/chat-sync/internal/config"
	"github.com/s21platform/chat-sync/internal/model"
	"github.com/s21platform/chat-sync/internal/transport"
)

type Handler struct {
	backend      Backend
	jwtGenerator JWTGenerator
	upgrader     websocket.Upgrader
	writeWait    time.Duration
}

func New(backend Backend, jwtGenerator JWTGenerator) *Handler {
	return &Handler{
		backend:      backend,
		jwtGenerator: jwtGenerator,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		writeWait: defaultWriteWait,
	}
}

func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("ListChats")

	account, ok := accountFromContext(r.Context())
	if !ok {
		logger.Error("failed to get account")
		writeError(w, "failed to get account", http.StatusUnauthorized)
		return
	}

	chats, err := h.backend.ListChats(r.Context(), profileOf(account))
	if err != nil {
		logger.Error(fmt.Sprintf("failed to list chats: %v", err))
		writeError(w, fmt.Sprintf("failed to list chats: %v", err), statusOf(err))
		return
	}
	if chats == nil {
		chats = model.ChatSummaryList{}
	}

	writeJSON(w, model.ChatsResponse{Chats: chats}, http.StatusOK)
}

func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request, chatID string) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("GetMessages")

	account, ok := accountFromContext(r.Context())
	if !ok {
		logger.Error("failed to get account")
		writeError(w, "failed to get account", http.StatusUnauthorized)
		return
	}

	if !h.checkMember(w, r, logger, chatID, profileOf(account)) {
		return
	}

	messages, err := h.backend.FetchHistory(r.Context(), chatID)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to fetch messages: %v", err))
		writeError(w, fmt.Sprintf("failed to fetch messages: %v", err), statusOf(err))
		return
	}
	if messages == nil {
		messages = model.MessageList{}
	}

	writeJSON(w, model.MessagesResponse{Messages: messages}, http.StatusOK)
}

func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request, chatID string) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("SendMessage")

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error(fmt.Sprintf("failed to decode request: %v", err))
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	account, ok := accountFromContext(r.Context())
	if !ok {
		logger.Error("failed to get account")
		writeError(w, "failed to get account", http.StatusUnauthorized)
		return
	}

	if req.From != profileOf(account) {
		logger.Error(fmt.Sprintf("profile %s cannot send as %s", profileOf(account), req.From))
		writeError(w, "sender does not match the account profile", http.StatusForbidden)
		return
	}

	message, err := h.backend.Send(r.Context(), chatID, req.From, req.Content)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to send message: %v", err))
		metricsFromContext(r.Context()).Increment("send_message_error")
		writeError(w, fmt.Sprintf("failed to send message: %v", err), statusOf(err))
		return
	}
	metricsFromContext(r.Context()).Increment("send_message")

	writeJSON(w, message, http.StatusOK)
}

func (h *Handler) GetSubscribeToken(w http.ResponseWriter, r *http.Request, chatID string) {
	logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
	logger.AddFuncName("GetSubscribeToken")

	account, ok := accountFromContext(r.Context())
	if !ok {
		logger.Error("failed to get account")
		writeError(w, "failed to get account", http.StatusUnauthorized)
		return
	}

	if !h.checkMember(w, r, logger, chatID, profileOf(account)) {
		return
	}

	token, expiresAt, err := h.jwtGenerator.GenerateSubscribeToken(account.Subject, chatID)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to generate subscribe token: %v", err))
		writeError(w, fmt.Sprintf("failed to generate subscribe token: %v", err), http.StatusInternalServerError)
		return
	}

	logger.Info(fmt.Sprintf("generated subscribe token for user %s, chat %s", account.Subject, chatID))

	writeJSON(w, model.SubscribeTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Channel:   chatID,
	}, http.StatusOK)
}

func (h *Handler) checkMember(w http.ResponseWriter, r *http.Request, logger logger_lib.LoggerInterface, chatID, profileID string) bool {
	isMember, err := h.backend.IsChatMember(r.Context(), chatID, profileID)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to check chat membership: %v", err))
		writeError(w, fmt.Sprintf("failed to check chat membership: %v", err), statusOf(err))
		return false
	}

	if !isMember {
		logger.Error(fmt.Sprintf("profile %s is not a member of chat %s", profileID, chatID))
		writeError(w, "profile is not a member of the chat", http.StatusForbidden)
		return false
	}

	return true
}

// ----------------------------- helpers -----------------------------

func statusOf(err error) int {
	switch {
	case errors.Is(err, transport.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, transport.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, transport.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, transport.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: message})
}
