package model

import "time"

type MessageList []Message

// Message is one entry of a two-party conversation. ID is assigned by the
// backend and is the same for the historical read and the live delivery.
type Message struct {
	ID        string `db:"id" json:"id"`
	ChatID    string `db:"chat_id" json:"chatId"`
	From      string `db:"sender_id" json:"from"`
	Content   string `db:"content" json:"content"`
	CreatedAt int64  `db:"created_at" json:"createdAt"`
}

// SentAt converts the millisecond server timestamp.
func (m Message) SentAt() time.Time {
	return time.UnixMilli(m.CreatedAt)
}

// IDs returns message ids in list order.
func (l MessageList) IDs() []string {
	ids := make([]string, len(l))
	for i, m := range l {
		ids[i] = m.ID
	}
	return ids
}
