package agent

import (
	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/event"
)

// receiveChatRequest arbitrates an inbound chat event. When both agents
// started "the same" conversation in one tick, the chat with the lower
// sequence number survives and the loser's registry entry is deleted by
// whichever agent owns it.
func (a *Agent) receiveChatRequest(ev *event.Event) {
	chat, ok := ev.Payload().(*Chat)
	if !ok {
		a.logger.Warn("chat event without chat payload",
			zap.String("agent", a.Name()), zap.String("sender", ev.Sender()))
		return
	}
	sender := ev.Sender()

	if !a.shortMem.Chatting() {
		a.initiateChat(chat, sender)
		return
	}

	own := a.shortMem.CurrentChat()
	switch {
	case a.shortMem.ChattingWith() == sender:
		if own.ID() > chat.ID() {
			// Our own chat loses the tie-break; discard it for theirs.
			a.mgr.Chats().DeleteChat(own)
			a.initiateChat(chat, sender)
		} else if own.ID() < chat.ID() {
			a.logger.Debug("discarded higher-numbered chat request, keeping own",
				zap.String("agent", a.Name()),
				zap.Uint64("own", own.ID()),
				zap.Uint64("received", chat.ID()))
		}
		// Same id: already registered, nothing to do.
	case own.ID() != chat.ID():
		a.rejectChatRequest(ev)
	}
}

// initiateChat adopts the chat as the current conversation.
func (a *Agent) initiateChat(chat *Chat, peer string) {
	a.shortMem.BeginChat(chat, peer)
	chat.RegisterParticipant(a.Name())
	chat.SetAlive(true)
	a.logger.Debug("initiated chat",
		zap.String("agent", a.Name()), zap.Uint64("chat", chat.ID()), zap.String("peer", peer))
}

// rejectChatRequest declines a request while busy with someone else. No
// protocol message goes back; the requester times out on its schedule.
func (a *Agent) rejectChatRequest(ev *event.Event) {
	a.logger.Debug("rejected chat request",
		zap.String("agent", a.Name()), zap.String("sender", ev.Sender()))
}
