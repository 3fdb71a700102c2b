// Package session drives one open conversation: it loads the history page,
// keeps a live subscription attached, merges both into a MessageStore and
// publishes the aligned view to observers.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/qmuntal/stateless"
	logger_lib "github.com/s21platform/logger-lib"

	"github.com/s21platform/chat-sync/internal/config"
	"github.com/s21platform/chat-sync/internal/model"
	"github.com/s21platform/chat-sync/internal/store"
	"github.com/s21platform/chat-sync/internal/transport"
	"github.com/s21platform/chat-sync/internal/view"
)

type State string

const (
	StateIdle    State = "Idle"
	StateLoading State = "Loading"
	StateLive    State = "Live"
	StateErrored State = "Errored"
	StateClosed  State = "Closed"
)

type trigger string

const (
	triggerOpen          trigger = "Open"
	triggerHistoryLoaded trigger = "HistoryLoaded"
	triggerFailed        trigger = "Failed"
	triggerClose         trigger = "Close"
)

type Session struct {
	chatID    string
	transport Transport
	identity  Identity
	store     *store.MessageStore
	fsm       *stateless.StateMachine

	// deliverMu serializes store mutation together with the observer
	// notification that follows it. Always taken before mu.
	deliverMu sync.Mutex

	mu           sync.Mutex
	generation   uint64
	sub          transport.Subscription
	lastErr      error
	observers    map[string]Observer
	logger       logger_lib.LoggerInterface
	stopIdentity func()
}

func New(chatID string, t Transport, identity Identity) *Session {
	s := &Session{
		chatID:    chatID,
		transport: t,
		identity:  identity,
		store:     store.New(),
		observers: make(map[string]Observer),
	}
	s.fsm = newStateMachine()
	s.stopIdentity = identity.OnChange(s.identityChanged)
	return s
}

func newStateMachine() *stateless.StateMachine {
	fsm := stateless.NewStateMachine(StateIdle)

	fsm.Configure(StateIdle).
		Permit(triggerOpen, StateLoading).
		Permit(triggerClose, StateClosed)

	fsm.Configure(StateLoading).
		Permit(triggerHistoryLoaded, StateLive).
		Permit(triggerFailed, StateErrored).
		Permit(triggerClose, StateClosed)

	fsm.Configure(StateLive).
		Permit(triggerFailed, StateErrored).
		Permit(triggerClose, StateClosed)

	fsm.Configure(StateErrored).
		Ignore(triggerFailed).
		Permit(triggerClose, StateClosed)

	fsm.Configure(StateClosed).
		Ignore(triggerFailed).
		Ignore(triggerClose)

	return fsm
}

func (s *Session) ChatID() string { return s.chatID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state()
}

func (s *Session) state() State {
	return s.fsm.MustState().(State)
}

func (s *Session) fire(t trigger) error {
	from := s.state()
	if err := s.fsm.Fire(t); err != nil {
		return fmt.Errorf("%w: %s from %s", ErrInvalidTransition, t, from)
	}
	if s.logger != nil && from != s.state() {
		s.logger.Info(fmt.Sprintf("chat %s: %s -> %s", s.chatID, from, s.state()))
	}
	return nil
}

// Err returns the failure that moved the session to Errored.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastErr
}

// Snapshot returns the ordered messages currently held by the session.
func (s *Session) Snapshot() model.MessageList {
	return s.store.Snapshot()
}

// View returns the messages aligned against the identity as it is right now.
func (s *Session) View() []view.Bubble {
	me, known := s.identity.MyProfileID()
	return view.Align(s.store.Snapshot(), me, known)
}

// Observe registers o until the returned func is called or the session closes.
func (s *Session) Observe(o Observer) (cancel func()) {
	key := uuid.NewString()

	s.mu.Lock()
	s.observers[key] = o
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, key)
	}
}

func (s *Session) observerList() []Observer {
	list := make([]Observer, 0, len(s.observers))
	for _, o := range s.observers {
		list = append(list, o)
	}
	return list
}

// Open loads the history page, attaches the live subscription and publishes
// the initial view. A failed history read leaves the session Errored; it is
// not retried.
func (s *Session) Open(ctx context.Context) error {
	logger := config.LoggerFromContext(ctx)
	logger.AddFuncName("Open")

	s.mu.Lock()
	if s.state() == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.logger = logger
	if err := s.fire(triggerOpen); err != nil {
		s.mu.Unlock()
		return err
	}
	generation := s.generation
	s.mu.Unlock()

	history, err := s.transport.FetchHistory(ctx, s.chatID)

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if generation != s.generation {
		s.mu.Unlock()
		logger.Warn(fmt.Sprintf("chat %s closed while loading history", s.chatID))
		return ErrClosed
	}

	if err != nil {
		s.lastErr = err
		_ = s.fire(triggerFailed)
		observers := s.observerList()
		s.mu.Unlock()

		logger.Error(fmt.Sprintf("failed to fetch history of chat %s: %v", s.chatID, err))
		for _, o := range observers {
			o.Failed(err)
		}
		return fmt.Errorf("failed to fetch history: %w", err)
	}

	s.store.InsertBatch(history)
	s.sub = s.transport.Subscribe(s.chatID, s.onMessages(generation), s.onError(generation))
	_ = s.fire(triggerHistoryLoaded)
	bubbles := s.View()
	observers := s.observerList()
	s.mu.Unlock()

	logger.Info(fmt.Sprintf("chat %s is live with %d messages", s.chatID, len(bubbles)))
	for _, o := range observers {
		o.MessagesChanged(bubbles)
	}

	return nil
}

func (s *Session) onMessages(generation uint64) func(model.MessageList) {
	return func(batch model.MessageList) {
		s.deliverMu.Lock()
		defer s.deliverMu.Unlock()

		s.mu.Lock()
		if generation != s.generation || s.state() != StateLive {
			s.mu.Unlock()
			return
		}
		if !s.store.InsertBatch(batch) {
			s.mu.Unlock()
			return
		}
		bubbles := s.View()
		observers := s.observerList()
		s.mu.Unlock()

		for _, o := range observers {
			o.MessagesChanged(bubbles)
		}
	}
}

func (s *Session) onError(generation uint64) func(error) {
	return func(err error) {
		s.deliverMu.Lock()
		defer s.deliverMu.Unlock()

		s.mu.Lock()
		if generation != s.generation || s.state() != StateLive {
			s.mu.Unlock()
			return
		}
		err = transport.Terminated("live", err)
		s.lastErr = err
		_ = s.fire(triggerFailed)
		observers := s.observerList()
		logger := s.logger
		s.mu.Unlock()

		logger.Error(fmt.Sprintf("live channel of chat %s dropped: %v", s.chatID, err))
		for _, o := range observers {
			o.Failed(err)
		}
	}
}

// Send writes content as the current profile. Sending is accepted only while
// the session is Live; in any other state the call is rejected, nothing is
// queued. The returned message is merged right away so the sender sees it
// before the live channel echoes it back.
func (s *Session) Send(ctx context.Context, content string) (model.Message, error) {
	logger := config.LoggerFromContext(ctx)
	logger.AddFuncName("Send")

	s.mu.Lock()
	state, generation := s.state(), s.generation
	s.mu.Unlock()

	switch state {
	case StateLive:
	case StateClosed:
		return model.Message{}, ErrClosed
	default:
		return model.Message{}, fmt.Errorf("%w: state %s", ErrNotLive, state)
	}

	me, ok := s.identity.MyProfileID()
	if !ok {
		return model.Message{}, ErrIdentityUnresolved
	}

	message, err := s.transport.Send(ctx, s.chatID, me, content)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to send message to chat %s: %v", s.chatID, err))
		return model.Message{}, fmt.Errorf("failed to send message: %w", err)
	}

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	if generation != s.generation || !s.store.InsertBatch(model.MessageList{message}) {
		s.mu.Unlock()
		return message, nil
	}
	bubbles := s.View()
	observers := s.observerList()
	s.mu.Unlock()

	for _, o := range observers {
		o.MessagesChanged(bubbles)
	}

	return message, nil
}

// Close cancels the live subscription and makes the session terminal. When
// Close returns no callback of the old subscription can reach the store or
// the observers. Closing twice is a no-op.
func (s *Session) Close() {
	s.deliverMu.Lock()
	s.mu.Lock()
	if s.state() == StateClosed {
		s.mu.Unlock()
		s.deliverMu.Unlock()
		return
	}
	s.generation++
	_ = s.fire(triggerClose)
	sub := s.sub
	s.sub = nil
	clear(s.observers)
	stopIdentity := s.stopIdentity
	s.stopIdentity = nil
	s.mu.Unlock()
	s.deliverMu.Unlock()

	if stopIdentity != nil {
		stopIdentity()
	}
	if sub != nil {
		sub.Cancel()
	}
}

// identityChanged re-publishes the visible messages so alignment follows a
// late identity resolution.
func (s *Session) identityChanged() {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	state := s.state()
	if state != StateLive && state != StateErrored {
		s.mu.Unlock()
		return
	}
	bubbles := s.View()
	observers := s.observerList()
	s.mu.Unlock()

	for _, o := range observers {
		o.MessagesChanged(bubbles)
	}
}
