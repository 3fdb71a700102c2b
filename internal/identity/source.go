package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/s21platform/chat-sync/internal/model"
)

// Static is a Source with known values, for offline mode and tests.
type Static struct {
	Enterprise   bool
	EnterpriseID string
	CandidateID  string
}

func (s Static) IsEnterpriseAccount(context.Context) (bool, error)   { return s.Enterprise, nil }
func (s Static) EnterpriseProfileID(context.Context) (string, error) { return s.EnterpriseID, nil }
func (s Static) CandidateProfileID(context.Context) (string, error)  { return s.CandidateID, nil }

type TokenValidator interface {
	ValidateAccessToken(tokenString string) (*model.AccountClaims, error)
}

// TokenSource reads the account kind and profile ids from the access token
// claims. The token is validated on first use.
type TokenSource struct {
	mu        sync.Mutex
	token     string
	validator TokenValidator
	claims    *model.AccountClaims
}

func NewTokenSource(token string, validator TokenValidator) *TokenSource {
	return &TokenSource{token: token, validator: validator}
}

func (s *TokenSource) load() (*model.AccountClaims, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claims != nil {
		return s.claims, nil
	}
	claims, err := s.validator.ValidateAccessToken(s.token)
	if err != nil {
		return nil, err
	}
	switch claims.AccountType {
	case model.EnterpriseAccount, model.CandidateAccount:
	default:
		return nil, fmt.Errorf("unknown account type %q", claims.AccountType)
	}
	s.claims = claims
	return claims, nil
}

func (s *TokenSource) IsEnterpriseAccount(context.Context) (bool, error) {
	claims, err := s.load()
	if err != nil {
		return false, err
	}
	return claims.AccountType == model.EnterpriseAccount, nil
}

func (s *TokenSource) EnterpriseProfileID(context.Context) (string, error) {
	claims, err := s.load()
	if err != nil {
		return "", err
	}
	return claims.EnterpriseProfileID, nil
}

func (s *TokenSource) CandidateProfileID(context.Context) (string, error) {
	claims, err := s.load()
	if err != nil {
		return "", err
	}
	return claims.CandidateProfileID, nil
}
