package model

const (
	EnterpriseAccount = "enterprise"
	CandidateAccount  = "candidate"
)

type ChatSummaryList []ChatSummary

// ChatSummary is a conversation list entry. Only ChatID is used to open a session.
type ChatSummary struct {
	ChatID               string  `db:"chat_id" json:"chatId"`
	CounterpartName      string  `db:"counterpart_name" json:"counterpartName"`
	CounterpartAvatarURL string  `db:"counterpart_avatar_url" json:"counterpartAvatarUrl"`
	LastMessageContent   *string `db:"last_message_content" json:"lastMessage,omitempty"`
	LastMessageAt        *int64  `db:"last_message_at" json:"lastMessageAt,omitempty"`
	Unread               int     `db:"unread" json:"unread"`
}

// Account is the identity row behind the current session.
type Account struct {
	UserID              string  `db:"user_id"`
	AccountType         string  `db:"account_type"`
	EnterpriseProfileID *string `db:"enterprise_profile_id"`
	CandidateProfileID  *string `db:"candidate_profile_id"`
}
