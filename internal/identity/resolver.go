// Package identity tells which side of the marketplace the current account is
// on and which profile id marks its messages. Values resolve asynchronously,
// possibly after messages have started arriving.
package identity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/s21platform/chat-sync/internal/config"
)

// Source performs the asynchronous reads behind a Resolver.
type Source interface {
	IsEnterpriseAccount(ctx context.Context) (bool, error)
	EnterpriseProfileID(ctx context.Context) (string, error)
	CandidateProfileID(ctx context.Context) (string, error)
}

type Resolver struct {
	IsEnterprise        Value[bool]
	EnterpriseProfileID Value[string]
	CandidateProfileID  Value[string]

	mu        sync.Mutex
	listeners map[string]func()
}

func NewResolver() *Resolver {
	r := &Resolver{listeners: make(map[string]func())}
	r.IsEnterprise.Observe(func(bool) { r.changed() })
	r.EnterpriseProfileID.Observe(func(string) { r.changed() })
	r.CandidateProfileID.Observe(func(string) { r.changed() })
	return r
}

// MyProfileID is the enterprise profile id for enterprise accounts and the
// candidate profile id otherwise. ok is false until the needed values resolve.
func (r *Resolver) MyProfileID() (string, bool) {
	isEnterprise, ok := r.IsEnterprise.Get()
	if !ok {
		return "", false
	}
	if isEnterprise {
		return r.EnterpriseProfileID.Get()
	}
	return r.CandidateProfileID.Get()
}

// OnChange registers fn to run after any of the three values resolves.
func (r *Resolver) OnChange(fn func()) (cancel func()) {
	key := uuid.NewString()

	r.mu.Lock()
	r.listeners[key] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.listeners, key)
	}
}

func (r *Resolver) changed() {
	r.mu.Lock()
	listeners := make([]func(), 0, len(r.listeners))
	for _, fn := range r.listeners {
		listeners = append(listeners, fn)
	}
	r.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
}

// Resolve runs the three lookups of src concurrently and resolves each value
// as soon as its lookup returns. A profile id that the account does not have
// (empty string) leaves that value unresolved.
func (r *Resolver) Resolve(ctx context.Context, src Source) error {
	logger := config.LoggerFromContext(ctx)
	logger.AddFuncName("Resolve")

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		isEnterprise, err := src.IsEnterpriseAccount(gctx)
		if err != nil {
			return fmt.Errorf("failed to resolve account type: %w", err)
		}
		r.IsEnterprise.Resolve(isEnterprise)
		return nil
	})

	g.Go(func() error {
		id, err := src.EnterpriseProfileID(gctx)
		if err != nil {
			return fmt.Errorf("failed to resolve enterprise profile: %w", err)
		}
		if id != "" {
			r.EnterpriseProfileID.Resolve(id)
		}
		return nil
	})

	g.Go(func() error {
		id, err := src.CandidateProfileID(gctx)
		if err != nil {
			return fmt.Errorf("failed to resolve candidate profile: %w", err)
		}
		if id != "" {
			r.CandidateProfileID.Resolve(id)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error(fmt.Sprintf("identity resolution failed: %v", err))
		return err
	}

	if me, ok := r.MyProfileID(); ok {
		logger.Info(fmt.Sprintf("identity resolved, profile %s", me))
	} else {
		logger.Warn("identity resolved without a profile for the account type")
	}

	return nil
}
