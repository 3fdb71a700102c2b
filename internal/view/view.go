// Package view derives message alignment from authorship at render time.
// Nothing here is stored with the message, so a late identity resolution
// only needs a fresh call to Align.
package view

import "github.com/s21platform/chat-sync/internal/model"

type Side int

const (
	SideUnknown Side = iota
	SideMine
	SideTheirs
)

func (s Side) String() string {
	switch s {
	case SideMine:
		return "mine"
	case SideTheirs:
		return "theirs"
	default:
		return "unknown"
	}
}

type Bubble struct {
	model.Message
	Side Side
}

// Align classifies messages against the current profile id. While the
// identity is unknown every bubble is SideUnknown.
func Align(messages model.MessageList, me string, known bool) []Bubble {
	bubbles := make([]Bubble, len(messages))
	for i, m := range messages {
		bubbles[i] = Bubble{Message: m, Side: sideOf(m, me, known)}
	}
	return bubbles
}

func sideOf(m model.Message, me string, known bool) Side {
	switch {
	case !known:
		return SideUnknown
	case m.From == me:
		return SideMine
	default:
		return SideTheirs
	}
}
