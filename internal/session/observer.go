package session

import "github.com/s21platform/chat-sync/internal/view"

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnMessages func(bubbles []view.Bubble)
	OnError    func(err error)
}

func (o ObserverFuncs) MessagesChanged(bubbles []view.Bubble) {
	if o.OnMessages != nil {
		o.OnMessages(bubbles)
	}
}

func (o ObserverFuncs) Failed(err error) {
	if o.OnError != nil {
		o.OnError(err)
	}
}
