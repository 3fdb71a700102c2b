package model

type MessagesResponse struct {
	Messages MessageList `json:"messages"`
}

type SendMessageRequest struct {
	From    string `json:"from"`
	Content string `json:"content"`
}

type SubscribeTokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
	Channel   string `json:"channel"`
}

type ChatsResponse struct {
	Chats ChatSummaryList `json:"chats"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
