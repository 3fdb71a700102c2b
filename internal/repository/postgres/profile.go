package postgres

import (
	"context"
	"fmt"
	"sync"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/s21platform/chat-sync/internal/model"
)

// ProfileSource resolves the identity of userID from the accounts table.
// The row is read once and shared by the three lookups.
type ProfileSource struct {
	connection *sqlx.DB
	userID     string

	mu      sync.Mutex
	account *model.Account
}

func (r *Repository) ProfileSource(userID string) *ProfileSource {
	return &ProfileSource{connection: r.connection, userID: userID}
}

func accountQuery(userID string) (string, []interface{}, error) {
	return sq.Select(
		"user_id",
		"account_type",
		"enterprise_profile_id",
		"candidate_profile_id",
	).
		From("accounts").
		Where(sq.Eq{"user_id": userID}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
}

func (s *ProfileSource) load(ctx context.Context) (*model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.account != nil {
		return s.account, nil
	}

	query, args, err := accountQuery(s.userID)
	if err != nil {
		return nil, fmt.Errorf("failed to build sql query: %v", err)
	}

	var account model.Account
	if err = s.connection.GetContext(ctx, &account, query, args...); err != nil {
		return nil, mapError("load account", err)
	}
	s.account = &account

	return s.account, nil
}

func (s *ProfileSource) IsEnterpriseAccount(ctx context.Context) (bool, error) {
	account, err := s.load(ctx)
	if err != nil {
		return false, err
	}
	return account.AccountType == model.EnterpriseAccount, nil
}

func (s *ProfileSource) EnterpriseProfileID(ctx context.Context) (string, error) {
	account, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	if account.EnterpriseProfileID == nil {
		return "", nil
	}
	return *account.EnterpriseProfileID, nil
}

func (s *ProfileSource) CandidateProfileID(ctx context.Context) (string, error) {
	account, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	if account.CandidateProfileID == nil {
		return "", nil
	}
	return *account.CandidateProfileID, nil
}
