package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/chat-sync/internal/client/centrifugo"
	"github.com/s21platform/chat-sync/internal/config"
	"github.com/s21platform/chat-sync/internal/identity"
	"github.com/s21platform/chat-sync/internal/model"
	"github.com/s21platform/chat-sync/internal/pkg/jwt"
	db "github.com/s21platform/chat-sync/internal/repository/postgres"
	"github.com/s21platform/chat-sync/internal/rest"
	"github.com/s21platform/chat-sync/internal/session"
	"github.com/s21platform/chat-sync/internal/transport/memory"
	"github.com/s21platform/chat-sync/internal/view"
)

const offlineProfileID = "candidate-offline"

type backend interface {
	session.Transport
	ListChats(ctx context.Context, profileID string) (model.ChatSummaryList, error)
}

func main() {
	cfg := config.MustLoad()
	logger := logger_lib.New(cfg.Logger.Host, cfg.Logger.Port, cfg.Service.Name, cfg.Platform.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = context.WithValue(ctx, config.KeyLogger, logger)

	chats, source, closeBackend := newBackend(cfg)
	defer closeBackend()

	resolver := identity.NewResolver()
	go func() {
		if err := resolver.Resolve(ctx, source); err != nil {
			logger.Error(fmt.Sprintf("failed to resolve identity: %v", err))
		}
	}()

	if cfg.Chat.ChatID == "" {
		if err := listChats(ctx, chats, resolver); err != nil {
			logger.Error(fmt.Sprintf("failed to list chats: %v", err))
		}
		return
	}

	if err := run(ctx, cfg.Chat.ChatID, chats, resolver, os.Stdin, os.Stdout); err != nil {
		logger.Error(fmt.Sprintf("chat session failed: %v", err))
	}
}

func newBackend(cfg *config.Config) (backend, identity.Source, func()) {
	switch cfg.Backend.Transport {
	case config.TransportREST:
		client := rest.NewClient(cfg, centrifugo.New(cfg))
		return client, identity.NewTokenSource(cfg.Auth.AccessToken, jwt.New(cfg.Auth.JWTSecret)), client.Close
	case config.TransportMemory:
		chatID := cfg.Chat.ChatID
		if chatID == "" {
			chatID = "offline"
		}
		b := memory.New()
		b.AddChat(model.ChatSummary{ChatID: chatID, CounterpartName: "Offline"}, offlineProfileID)
		return b, identity.Static{CandidateID: offlineProfileID}, func() {}
	default:
		repo := db.New(cfg)
		return repo, repo.ProfileSource(cfg.Auth.UserID), repo.Close
	}
}

func listChats(ctx context.Context, chats backend, resolver *identity.Resolver) error {
	profileID, err := waitProfile(ctx, resolver)
	if err != nil {
		return err
	}

	list, err := chats.ListChats(ctx, profileID)
	if err != nil {
		return err
	}

	for _, c := range list {
		last := ""
		if c.LastMessageContent != nil {
			last = *c.LastMessageContent
		}
		fmt.Printf("%s\t%s\t%d unread\t%s\n", c.ChatID, c.CounterpartName, c.Unread, last)
	}

	return nil
}

func waitProfile(ctx context.Context, resolver *identity.Resolver) (string, error) {
	changed := make(chan struct{}, 1)
	cancel := resolver.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()

	timeout := time.After(10 * time.Second)
	for {
		if profileID, ok := resolver.MyProfileID(); ok {
			return profileID, nil
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timeout:
			return "", fmt.Errorf("identity did not resolve")
		case <-changed:
		}
	}
}

// run opens the chat, renders it on every change and sends each input line
// until the input ends or ctx is cancelled.
func run(ctx context.Context, chatID string, chats backend, resolver *identity.Resolver, in io.Reader, out io.Writer) error {
	logger := config.LoggerFromContext(ctx)
	logger.AddFuncName("run")

	s := session.New(chatID, chats, resolver)
	defer s.Close()

	s.Observe(session.ObserverFuncs{
		OnMessages: func(bubbles []view.Bubble) { render(out, bubbles) },
		OnError:    func(err error) { _, _ = fmt.Fprintf(out, "! %v\n", err) },
	})

	if err := s.Open(ctx); err != nil {
		return fmt.Errorf("failed to open chat %s: %w", chatID, err)
	}

	lines := make(chan string)
	readErr := make(chan error, 1)

	// stdin reads cannot be interrupted, so the reader is left behind on cancel
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					return err
				default:
					return nil
				}
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if _, err := s.Send(ctx, line); err != nil {
				logger.Warn(fmt.Sprintf("failed to send message: %v", err))
				_, _ = fmt.Fprintf(out, "! %v\n", err)
			}
		}
	}
}

func render(out io.Writer, bubbles []view.Bubble) {
	_, _ = fmt.Fprintln(out, "----")
	for _, b := range bubbles {
		stamp := time.UnixMilli(b.CreatedAt).Format("15:04:05")
		switch b.Side {
		case view.SideMine:
			_, _ = fmt.Fprintf(out, "%60s [%s]\n", b.Content, stamp)
		case view.SideTheirs:
			_, _ = fmt.Fprintf(out, "[%s] %s\n", stamp, b.Content)
		default:
			_, _ = fmt.Fprintf(out, "[%s] %s: %s\n", stamp, b.From, b.Content)
		}
	}
}
