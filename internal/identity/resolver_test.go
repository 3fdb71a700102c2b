package identity

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/chat-sync/internal/config"
	"github.com/s21platform/chat-sync/internal/model"
)

type fakeValidator struct {
	claims *model.AccountClaims
	err    error
	calls  atomic.Int32
}

func (f *fakeValidator) ValidateAccessToken(string) (*model.AccountClaims, error) {
	f.calls.Add(1)
	return f.claims, f.err
}

type failingSource struct{ Static }

func (failingSource) EnterpriseProfileID(context.Context) (string, error) {
	return "", errors.New("profile service down")
}

func TestResolver_MyProfileID(t *testing.T) {
	t.Parallel()

	t.Run("unresolved", func(t *testing.T) {
		r := NewResolver()

		_, ok := r.MyProfileID()

		assert.False(t, ok)
	})

	t.Run("candidate", func(t *testing.T) {
		r := NewResolver()
		r.IsEnterprise.Resolve(false)
		r.EnterpriseProfileID.Resolve("ent")

		_, ok := r.MyProfileID()
		assert.False(t, ok)

		r.CandidateProfileID.Resolve("cand")
		id, ok := r.MyProfileID()
		assert.True(t, ok)
		assert.Equal(t, "cand", id)
	})

	t.Run("enterprise", func(t *testing.T) {
		r := NewResolver()
		r.EnterpriseProfileID.Resolve("ent")
		r.CandidateProfileID.Resolve("cand")

		_, ok := r.MyProfileID()
		assert.False(t, ok)

		r.IsEnterprise.Resolve(true)
		id, ok := r.MyProfileID()
		assert.True(t, ok)
		assert.Equal(t, "ent", id)
	})
}

func TestResolver_OnChange(t *testing.T) {
	r := NewResolver()
	var calls atomic.Int32

	r.OnChange(func() { calls.Add(1) })
	cancel := r.OnChange(func() { t.Error("cancelled listener called") })
	cancel()

	r.IsEnterprise.Resolve(false)
	r.IsEnterprise.Resolve(true)
	r.CandidateProfileID.Resolve("cand")

	assert.Equal(t, int32(2), calls.Load())
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	t.Run("static_source", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockLogger := logger_lib.NewMockLoggerInterface(ctrl)
		ctx := context.WithValue(context.Background(), config.KeyLogger, mockLogger)

		mockLogger.EXPECT().AddFuncName("Resolve")
		mockLogger.EXPECT().Info(gomock.Any())

		r := NewResolver()
		err := r.Resolve(ctx, Static{Enterprise: false, CandidateID: "cand"})

		require.NoError(t, err)
		id, ok := r.MyProfileID()
		assert.True(t, ok)
		assert.Equal(t, "cand", id)
		_, ok = r.EnterpriseProfileID.Get()
		assert.False(t, ok)
	})

	t.Run("missing_profile_warns", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockLogger := logger_lib.NewMockLoggerInterface(ctrl)
		ctx := context.WithValue(context.Background(), config.KeyLogger, mockLogger)

		mockLogger.EXPECT().AddFuncName("Resolve")
		mockLogger.EXPECT().Warn(gomock.Any())

		r := NewResolver()
		err := r.Resolve(ctx, Static{Enterprise: true, CandidateID: "cand"})

		require.NoError(t, err)
		_, ok := r.MyProfileID()
		assert.False(t, ok)
	})

	t.Run("lookup_failure", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockLogger := logger_lib.NewMockLoggerInterface(ctrl)
		ctx := context.WithValue(context.Background(), config.KeyLogger, mockLogger)

		mockLogger.EXPECT().AddFuncName("Resolve")
		mockLogger.EXPECT().Error(gomock.Any())

		r := NewResolver()
		err := r.Resolve(ctx, failingSource{Static{Enterprise: true}})

		assert.ErrorContains(t, err, "failed to resolve enterprise profile")
		_, ok := r.MyProfileID()
		assert.False(t, ok)
	})

	t.Run("token_source", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mockLogger := logger_lib.NewMockLoggerInterface(ctrl)
		ctx := context.WithValue(context.Background(), config.KeyLogger, mockLogger)

		mockLogger.EXPECT().AddFuncName("Resolve")
		mockLogger.EXPECT().Info(gomock.Any())

		validator := &fakeValidator{claims: &model.AccountClaims{
			AccountType:         model.EnterpriseAccount,
			EnterpriseProfileID: "ent",
		}}

		r := NewResolver()
		err := r.Resolve(ctx, NewTokenSource("token", validator))

		require.NoError(t, err)
		id, ok := r.MyProfileID()
		assert.True(t, ok)
		assert.Equal(t, "ent", id)
		assert.Equal(t, int32(1), validator.calls.Load())
	})
}

func TestResolver_ResolveWithoutLogger(t *testing.T) {
	r := NewResolver()

	err := r.Resolve(context.Background(), Static{Enterprise: true, EnterpriseID: "ent"})

	require.NoError(t, err)
	id, ok := r.MyProfileID()
	assert.True(t, ok)
	assert.Equal(t, "ent", id)
}

func TestTokenSource(t *testing.T) {
	t.Parallel()

	t.Run("invalid_token", func(t *testing.T) {
		src := NewTokenSource("token", &fakeValidator{err: errors.New("token is expired")})

		_, err := src.IsEnterpriseAccount(context.Background())

		assert.ErrorContains(t, err, "expired")
	})

	t.Run("unknown_account_type", func(t *testing.T) {
		src := NewTokenSource("token", &fakeValidator{claims: &model.AccountClaims{AccountType: "admin"}})

		_, err := src.CandidateProfileID(context.Background())

		assert.ErrorContains(t, err, "unknown account type")
	})

	t.Run("candidate", func(t *testing.T) {
		src := NewTokenSource("token", &fakeValidator{claims: &model.AccountClaims{
			AccountType:        model.CandidateAccount,
			CandidateProfileID: "cand",
		}})

		isEnterprise, err := src.IsEnterpriseAccount(context.Background())
		require.NoError(t, err)
		assert.False(t, isEnterprise)

		id, err := src.CandidateProfileID(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "cand", id)
	})
}
