package rest

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	logger_lib "github.com/s21platform/logger-lib"
)

const (
	LivePath      = "/connection/websocket"
	chatIDParam   = "chatId"
	chatsBasePath = "/api/chat/streams"
)

// NewRouter mounts the chat API and the live endpoint. The live endpoint
// authenticates with its connect command instead of the bearer header.
func NewRouter(h *Handler, jwtGenerator JWTGenerator, logger logger_lib.LoggerInterface, metrics Metrics) http.Handler {
	router := chi.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return LoggerHTTP(next, logger)
	})
	router.Use(func(next http.Handler) http.Handler {
		return MetricsHTTP(next, metrics)
	})

	router.Get(LivePath, h.Live)

	router.Group(func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return AuthHTTP(next, jwtGenerator)
		})

		r.Get(chatsBasePath, h.ListChats)
		r.Get(chatsBasePath+"/{chatId}/messages", withChatID(h.GetMessages))
		r.Post(chatsBasePath+"/{chatId}/messages", withChatID(h.SendMessage))
		r.Get(chatsBasePath+"/{chatId}/subscribe-token", withChatID(h.GetSubscribeToken))
	})

	return router
}

func withChatID(fn func(w http.ResponseWriter, r *http.Request, chatID string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var chatID string

		err := runtime.BindStyledParameterWithOptions("simple", chatIDParam, chi.URLParam(r, chatIDParam), &chatID,
			runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
		if err != nil {
			writeError(w, fmt.Sprintf("Invalid format for parameter chatId: %s", err), http.StatusBadRequest)
			return
		}

		fn(w, r, chatID)
	}
}
