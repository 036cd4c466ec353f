package event

import (
	"fmt"
	"time"
)

// Kind identifies what an event carries.
type Kind int

const (
	KindInvalid Kind = iota
	KindThought
	KindReverie
	KindAction
	KindChat
	KindNarration
)

func (k Kind) String() string {
	switch k {
	case KindThought:
		return "thought"
	case KindReverie:
		return "reverie"
	case KindAction:
		return "action"
	case KindChat:
		return "chat"
	case KindNarration:
		return "narration"
	default:
		return "invalid"
	}
}

// Event is the single envelope passed between agents, the agent manager and
// the narrator. Build one through the factory functions; nothing mutates an
// event after creation except Clear.
type Event struct {
	kind      Kind
	timestamp time.Time
	sender    string
	message   string
	payload   any // behavior object for action/chat events
	receiver  string
}

// NewThought creates a thought event.
func NewThought(sender, message string, ts time.Time) *Event {
	return &Event{kind: KindThought, timestamp: ts, sender: sender, message: message}
}

// NewReverie creates a reverie event.
func NewReverie(sender, message string, ts time.Time) *Event {
	return &Event{kind: KindReverie, timestamp: ts, sender: sender, message: message}
}

// NewAction creates an action event carrying the scheduled behavior.
func NewAction(sender, message string, payload any, ts time.Time) *Event {
	return &Event{kind: KindAction, timestamp: ts, sender: sender, message: message, payload: payload}
}

// NewChat creates a chat event addressed to the receiving agent. The payload
// is the Chat behavior object the receiver should join.
func NewChat(sender, message string, payload any, receiver string, ts time.Time) *Event {
	return &Event{kind: KindChat, timestamp: ts, sender: sender, message: message, payload: payload, receiver: receiver}
}

// NewNarration creates a narration event fanned out to every agent.
func NewNarration(sender, message string, ts time.Time) *Event {
	return &Event{kind: KindNarration, timestamp: ts, sender: sender, message: message}
}

// Empty creates the invalid sentinel event.
func Empty() *Event {
	return &Event{}
}

func (e *Event) Kind() Kind           { return e.kind }
func (e *Event) Timestamp() time.Time { return e.timestamp }
func (e *Event) Sender() string       { return e.sender }
func (e *Event) Message() string      { return e.message }
func (e *Event) Payload() any         { return e.payload }
func (e *Event) Receiver() string     { return e.receiver }

// Valid reports whether the event carries anything.
func (e *Event) Valid() bool { return e.kind != KindInvalid }

// Clear resets the event to the invalid sentinel.
func (e *Event) Clear() {
	*e = Event{}
}

func (e *Event) String() string {
	return fmt.Sprintf("[%s] [%s] (%s) %s", e.timestamp.Format("2006-01-02 15:04:05"), e.kind, e.sender, e.message)
}
