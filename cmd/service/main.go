package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	logger_lib "github.com/s21platform/logger-lib"
	"github.com/s21platform/metrics-lib/pkg"

	"github.com/s21platform/chat-sync/internal/config"
	"github.com/s21platform/chat-sync/internal/model"
	"github.com/s21platform/chat-sync/internal/pkg/jwt"
	db "github.com/s21platform/chat-sync/internal/repository/postgres"
	"github.com/s21platform/chat-sync/internal/rest"
	"github.com/s21platform/chat-sync/internal/transport/memory"
)

const (
	demoChatID      = "demo"
	demoCandidateID = "candidate-demo"
	demoEmployerID  = "enterprise-demo"
)

func main() {
	cfg := config.MustLoad()
	logger := logger_lib.New(cfg.Logger.Host, cfg.Logger.Port, cfg.Service.Name, cfg.Platform.Env)

	jwtGenerator := jwt.New(cfg.Auth.JWTSecret)

	var backend rest.Backend
	switch cfg.Backend.Transport {
	case config.TransportMemory:
		backend = demoBackend(jwtGenerator, logger)
	default:
		dbRepo := db.New(cfg)
		defer dbRepo.Close()
		backend = dbRepo
	}

	var metrics rest.Metrics
	graphite, err := pkg.NewMetrics(cfg.Metrics.Host, cfg.Metrics.Port, cfg.Service.Name, cfg.Platform.Env)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to connect graphite: %v", err))
	} else {
		metrics = graphite
	}

	handler := rest.New(backend, jwtGenerator)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Service.Port),
		Handler:           rest.NewRouter(handler, jwtGenerator, logger, metrics),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %v", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	logger.Info(fmt.Sprintf("chat API listening on :%s", cfg.Service.Port))

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("server error: %v", err))
	}
}

// demoBackend serves one in-memory chat between a candidate and an
// enterprise and logs an access token for each side.
func demoBackend(jwtGenerator *jwt.Generator, logger logger_lib.LoggerInterface) *memory.Backend {
	backend := memory.New()
	backend.AddChat(model.ChatSummary{ChatID: demoChatID, CounterpartName: "Demo"}, demoCandidateID, demoEmployerID)

	accounts := map[string]model.AccountClaims{
		"candidate":  {AccountType: model.CandidateAccount, CandidateProfileID: demoCandidateID},
		"enterprise": {AccountType: model.EnterpriseAccount, EnterpriseProfileID: demoEmployerID},
	}
	for userID, claims := range accounts {
		token, _, err := jwtGenerator.GenerateAccessToken(userID, claims)
		if err != nil {
			logger.Error(fmt.Sprintf("failed to generate demo token: %v", err))
			continue
		}
		logger.Info(fmt.Sprintf("demo access token for %s: %s", userID, token))
	}

	return backend
}
