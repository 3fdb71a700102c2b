package transport

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNetworkUnavailable
	KindPermissionDenied
	KindNotFound
	KindInvalidInput
	KindSubscriptionTerminated
)

func (k Kind) String() string {
	switch k {
	case KindNetworkUnavailable:
		return "network unavailable"
	case KindPermissionDenied:
		return "permission denied"
	case KindNotFound:
		return "not found"
	case KindInvalidInput:
		return "invalid input"
	case KindSubscriptionTerminated:
		return "subscription terminated"
	default:
		return "unknown"
	}
}

var (
	ErrNetworkUnavailable     = &Error{Kind: KindNetworkUnavailable}
	ErrPermissionDenied       = &Error{Kind: KindPermissionDenied}
	ErrNotFound               = &Error{Kind: KindNotFound}
	ErrInvalidInput           = &Error{Kind: KindInvalidInput}
	ErrSubscriptionTerminated = &Error{Kind: KindSubscriptionTerminated}
)

// Error is returned by every backend. errors.Is matches on Kind, so callers
// compare against the sentinels above.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf reports the transport error kind found in err's chain.
func KindOf(err error) Kind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindUnknown
}

// Terminated wraps a live channel failure. Errors that already carry
// SubscriptionTerminated are returned unchanged.
func Terminated(op string, err error) error {
	if errors.Is(err, ErrSubscriptionTerminated) {
		return err
	}
	return NewError(KindSubscriptionTerminated, op, err)
}
