package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/chat-sync/internal/config"
	"github.com/s21platform/chat-sync/internal/model"
)

func LoggerHTTP(next http.Handler, logger logger_lib.LoggerInterface) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), config.KeyLogger, logger)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MetricsHTTP puts the metrics client into the request context. A nil client
// leaves the context untouched and counters are skipped.
func MetricsHTTP(next http.Handler, metrics Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if metrics != nil {
			r = r.WithContext(context.WithValue(r.Context(), config.KeyMetrics, metrics))
		}
		next.ServeHTTP(w, r)
	})
}

type nopMetrics struct{}

func (nopMetrics) Increment(string) {}

func metricsFromContext(ctx context.Context) Metrics {
	if metrics, ok := ctx.Value(config.KeyMetrics).(Metrics); ok && metrics != nil {
		return metrics
	}
	return nopMetrics{}
}

// AuthHTTP validates the bearer access token and puts the user id and the
// account claims into the request context.
func AuthHTTP(next http.Handler, jwtGenerator JWTGenerator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := logger_lib.FromContext(r.Context(), config.KeyLogger)
		logger.AddFuncName("AuthHTTP")

		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			logger.Warn("request without bearer token")
			writeError(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		claims, err := jwtGenerator.ValidateAccessToken(token)
		if err != nil {
			logger.Warn(fmt.Sprintf("failed to validate access token: %v", err))
			writeError(w, "invalid access token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), config.KeyUUID, claims.Subject)
		ctx = context.WithValue(ctx, config.KeyAccount, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// profileOf is the profile id the account acts as.
func profileOf(claims *model.AccountClaims) string {
	if claims.AccountType == model.EnterpriseAccount {
		return claims.EnterpriseProfileID
	}
	return claims.CandidateProfileID
}

func accountFromContext(ctx context.Context) (*model.AccountClaims, bool) {
	claims, ok := ctx.Value(config.KeyAccount).(*model.AccountClaims)
	return claims, ok && claims != nil
}
