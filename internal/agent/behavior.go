package agent

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Sequence hands out process-wide chat sequence numbers. One allocator is
// shared by every agent so chat identity stays totally ordered; the lower
// number wins initiation ties.
type Sequence struct {
	n atomic.Uint64
}

// NewSequence creates an allocator starting at zero.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next sequence number.
func (s *Sequence) Next() uint64 {
	return s.n.Add(1) - 1
}

// Action is one scheduled behavior. The end time snaps the start down to
// the minute boundary before adding the duration, so sub-minute starts do
// not smear schedule boundaries.
type Action struct {
	Description string
	Address     string
	Start       time.Time
	Duration    time.Duration
	End         time.Time

	CompletedAt time.Time
}

// NewAction creates an action and derives its end time.
func NewAction(description, address string, start time.Time, duration time.Duration) *Action {
	return &Action{
		Description: description,
		Address:     address,
		Start:       start,
		Duration:    duration,
		End:         start.Truncate(time.Minute).Add(duration),
	}
}

// Elapsed reports whether the action's planned window has passed.
func (a *Action) Elapsed(now time.Time) bool {
	return !now.Before(a.End)
}

// MarkCompleted records when the action actually finished.
func (a *Action) MarkCompleted(now time.Time) {
	a.CompletedAt = now
}

func (a *Action) String() string {
	return fmt.Sprintf("Action [%s] start [%s] - end [%s]", a.Description, a.Start.Format("15:04:05"), a.End.Format("15:04:05"))
}

// Chat is an action that runs as a conversation. Its sequence number is its
// conversation identity in the chat manager. Two agents may build separate
// Chat values for the same intended conversation; arbitration keeps the one
// with the lower sequence number.
type Chat struct {
	Action

	seq          uint64
	creator      string
	participants map[string]struct{}
	alive        bool
	transcript   string
}

// NewChat creates a chat behavior, drawing its identity from the allocator.
func NewChat(seq *Sequence, description, address, creator string, start time.Time, duration time.Duration) *Chat {
	return &Chat{
		Action: Action{
			Description: description,
			Address:     address,
			Start:       start,
			Duration:    duration,
			End:         start.Truncate(time.Minute).Add(duration),
		},
		seq:          seq.Next(),
		creator:      creator,
		participants: map[string]struct{}{creator: {}},
	}
}

// ID returns the chat's conversation identity.
func (c *Chat) ID() uint64 { return c.seq }

// Creator returns the name of the agent that constructed the chat.
func (c *Chat) Creator() string { return c.creator }

// RegisterParticipant adds an agent to the conversation.
func (c *Chat) RegisterParticipant(name string) {
	c.participants[name] = struct{}{}
}

// Participants returns the participant names.
func (c *Chat) Participants() []string {
	names := make([]string, 0, len(c.participants))
	for name := range c.participants {
		names = append(names, name)
	}
	return names
}

// SetAlive flips whether the conversation is in progress.
func (c *Chat) SetAlive(alive bool) { c.alive = alive }

// Alive reports whether the conversation is in progress.
func (c *Chat) Alive() bool { return c.alive }

// AttachTranscript stores the finished conversation text on the behavior
// before it is folded into long-term memory.
func (c *Chat) AttachTranscript(t string) { c.transcript = t }

// Transcript returns the attached conversation text.
func (c *Chat) Transcript() string { return c.transcript }

func (c *Chat) String() string {
	return fmt.Sprintf("Chat [%d] [%s]", c.seq, c.Description)
}

// ChatMessage is one utterance in a conversation, immutable once created.
type ChatMessage struct {
	SenderName string
	Text       string
	Created    time.Time
}

func (m ChatMessage) String() string {
	return fmt.Sprintf("[%s] [%s] %s", m.Created.Format("15:04:05"), m.SenderName, m.Text)
}
