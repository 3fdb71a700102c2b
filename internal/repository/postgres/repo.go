package postgres

import (
	"context"
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/s21platform/chat-sync/internal/config"
	"github.com/s21platform/chat-sync/internal/model"
	"github.com/s21platform/chat-sync/internal/pkg/validator"
	"github.com/s21platform/chat-sync/internal/transport"
)

const defaultHistoryLimit = 50

type Repository struct {
	connection   *sqlx.DB
	conStr       string
	historyLimit uint64
	minReconnect time.Duration
	maxReconnect time.Duration
	validator    *validator.Validator
}

func New(cfg *config.Config) *Repository {
	conStr := fmt.Sprintf("user=%s password=%s dbname=%s host=%s port=%s sslmode=disable",
		cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.Host, cfg.Postgres.Port)

	conn, err := sqlx.Connect("postgres", conStr)
	if err != nil {
		log.Fatal("error connect: ", err)
	}

	limit := cfg.Chat.HistoryLimit
	if limit == 0 {
		limit = defaultHistoryLimit
	}

	return &Repository{
		connection:   conn,
		conStr:       conStr,
		historyLimit: limit,
		minReconnect: cfg.Postgres.ListenerMinReconnect,
		maxReconnect: cfg.Postgres.ListenerMaxReconnect,
		validator:    validator.New(),
	}
}

func (r *Repository) Close() {
	_ = r.connection.Close()
}

// parseChatID rejects ids that cannot name a chat. A malformed id can never
// match a row, so it is reported the same way as an unknown chat.
func parseChatID(op, chatID string) error {
	if _, err := uuid.Parse(chatID); err != nil {
		return transport.NewError(transport.KindNotFound, op, fmt.Errorf("invalid chat id %q", chatID))
	}
	return nil
}

func chatExistsQuery(chatID string) (string, []interface{}, error) {
	return sq.Select("COUNT(*) > 0").
		From("chats").
		Where(sq.Eq{"id": chatID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func (r *Repository) ensureChat(ctx context.Context, op, chatID string) error {
	if err := parseChatID(op, chatID); err != nil {
		return err
	}

	query, args, err := chatExistsQuery(chatID)
	if err != nil {
		return fmt.Errorf("failed to build sql query: %v", err)
	}

	var exists bool
	if err = r.connection.GetContext(ctx, &exists, query, args...); err != nil {
		return mapError(op, err)
	}
	if !exists {
		return transport.NewError(transport.KindNotFound, op, fmt.Errorf("chat %s does not exist", chatID))
	}

	return nil
}

func historyQuery(chatID string, limit uint64) (string, []interface{}, error) {
	return sq.Select(
		"id",
		"chat_id",
		"sender_id",
		"content",
		"created_at",
	).
		From("messages").
		Where(sq.Eq{"chat_id": chatID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(limit).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// FetchHistory returns the newest page of the chat in ascending order.
func (r *Repository) FetchHistory(ctx context.Context, chatID string) (model.MessageList, error) {
	if err := r.ensureChat(ctx, "fetch history", chatID); err != nil {
		return nil, err
	}

	query, args, err := historyQuery(chatID, r.historyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %v", err)
	}

	var messages model.MessageList
	if err = r.connection.SelectContext(ctx, &messages, query, args...); err != nil {
		return nil, mapError("fetch history", err)
	}
	slices.Reverse(messages)

	return messages, nil
}

func isMemberQuery(chatID, profileID string) (string, []interface{}, error) {
	return sq.Select("COUNT(*) > 0").
		From("chat_members").
		Where(sq.And{
			sq.Eq{"chat_id": chatID},
			sq.Eq{"profile_id": profileID},
			sq.Eq{"left_at": nil},
		}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func insertMessageQuery(chatID, fromProfileID, content string) (string, []interface{}, error) {
	return sq.Insert("messages").
		Columns("chat_id", "sender_id", "content").
		Values(chatID, fromProfileID, content).
		Suffix("RETURNING id, chat_id, sender_id, content, created_at").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func (r *Repository) isMember(ctx context.Context, op, chatID, profileID string) (bool, error) {
	query, args, err := isMemberQuery(chatID, profileID)
	if err != nil {
		return false, fmt.Errorf("failed to build sql query: %v", err)
	}

	var isMember bool
	if err = r.connection.GetContext(ctx, &isMember, query, args...); err != nil {
		return false, mapError(op, err)
	}

	return isMember, nil
}

// IsChatMember reports whether the profile takes part in the chat.
func (r *Repository) IsChatMember(ctx context.Context, chatID, profileID string) (bool, error) {
	if err := r.ensureChat(ctx, "check membership", chatID); err != nil {
		return false, err
	}
	return r.isMember(ctx, "check membership", chatID, profileID)
}

// Send stores the message; id and created_at come from the database.
func (r *Repository) Send(ctx context.Context, chatID, fromProfileID, content string) (model.Message, error) {
	if err := r.validator.ValidateSendMessage(chatID, fromProfileID, content); err != nil {
		return model.Message{}, transport.NewError(transport.KindInvalidInput, "send", err)
	}
	if err := r.ensureChat(ctx, "send", chatID); err != nil {
		return model.Message{}, err
	}

	isMember, err := r.isMember(ctx, "send", chatID, fromProfileID)
	if err != nil {
		return model.Message{}, err
	}
	if !isMember {
		return model.Message{}, transport.NewError(transport.KindPermissionDenied, "send",
			fmt.Errorf("profile %s is not a member of chat %s", fromProfileID, chatID))
	}

	query, args, err := insertMessageQuery(chatID, fromProfileID, content)
	if err != nil {
		return model.Message{}, fmt.Errorf("failed to build sql query: %v", err)
	}

	var message model.Message
	if err = r.connection.GetContext(ctx, &message, query, args...); err != nil {
		return model.Message{}, mapError("send", err)
	}

	return message, nil
}

func lastMessageColumn(column, alias string) string {
	sql, _, _ := sq.Select(column).
		From("messages m2").
		Where("m2.chat_id = c.id").
		OrderBy("m2.created_at DESC").
		Limit(1).ToSql()
	return "(" + sql + ") as " + alias
}

func listChatsQuery(profileID string) (string, []interface{}, error) {
	return sq.Select(
		"c.id as chat_id",
		"cm2.name as counterpart_name",
		"cm2.avatar_url as counterpart_avatar_url",
		lastMessageColumn("content", "last_message_content"),
		lastMessageColumn("created_at", "last_message_at"),
		"(SELECT COUNT(*) FROM messages m3 WHERE m3.chat_id = c.id AND m3.created_at > cm1.read_at) as unread",
	).
		From("chats c").
		Join("chat_members cm1 ON c.id = cm1.chat_id").
		Join("chat_members cm2 ON c.id = cm2.chat_id").
		Where(sq.And{
			sq.Eq{"cm1.profile_id": profileID},
			sq.NotEq{"cm2.profile_id": profileID},
			sq.Eq{"cm1.left_at": nil},
			sq.Eq{"cm2.left_at": nil},
		}).
		OrderBy("last_message_at DESC NULLS LAST", "c.created_at DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

// ListChats returns the conversations of the profile, most recent first.
func (r *Repository) ListChats(ctx context.Context, profileID string) (model.ChatSummaryList, error) {
	if strings.TrimSpace(profileID) == "" {
		return nil, transport.NewError(transport.KindInvalidInput, "list chats", fmt.Errorf("profile id is required"))
	}

	query, args, err := listChatsQuery(profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %v", err)
	}

	var chats model.ChatSummaryList
	if err = r.connection.SelectContext(ctx, &chats, query, args...); err != nil {
		return nil, mapError("list chats", err)
	}

	return chats, nil
}
