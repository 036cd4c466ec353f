package agent

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ChatManager holds every conversation's ordered message history, keyed by
// chat sequence number. It is written from the sequential act phase but
// read from timer threads, so all access is locked.
type ChatManager struct {
	mu       sync.RWMutex
	registry map[uint64][]ChatMessage
	logger   *zap.Logger
}

// NewChatManager creates an empty registry.
func NewChatManager(logger *zap.Logger) *ChatManager {
	return &ChatManager{
		registry: make(map[uint64][]ChatMessage),
		logger:   logger,
	}
}

// CreateChat registers an empty history for the conversation. Double
// creation is a no-op so simultaneous initiations cannot clobber messages.
func (m *ChatManager) CreateChat(chat *Chat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.registry[chat.ID()]; ok {
		return
	}
	m.registry[chat.ID()] = nil
}

// WriteToChat appends a message to the conversation's history.
func (m *ChatManager) WriteToChat(chat *Chat, msg ChatMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.registry[chat.ID()]; !ok {
		m.logger.Warn("write to unregistered chat", zap.Uint64("chat", chat.ID()))
		return
	}
	m.registry[chat.ID()] = append(m.registry[chat.ID()], msg)
}

// History returns a copy of the conversation's messages in append order.
func (m *ChatManager) History(chat *Chat) []ChatMessage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history := m.registry[chat.ID()]
	out := make([]ChatMessage, len(history))
	copy(out, history)
	return out
}

// DeleteChat removes the registry entry, used when an agent discards the
// losing chat in an initiation tie-break.
func (m *ChatManager) DeleteChat(chat *Chat) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.registry, chat.ID())
}

// Has reports whether the conversation is registered.
func (m *ChatManager) Has(chat *Chat) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.registry[chat.ID()]
	return ok
}

// IDs returns every registered conversation id in ascending order.
func (m *ChatManager) IDs() []uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]uint64, 0, len(m.registry))
	for id := range m.registry {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HistoryByID returns a copy of a conversation's messages looked up by id,
// for observers that do not hold the Chat behavior.
func (m *ChatManager) HistoryByID(id uint64) ([]ChatMessage, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	history, ok := m.registry[id]
	if !ok {
		return nil, false
	}
	out := make([]ChatMessage, len(history))
	copy(out, history)
	return out, true
}

// Size returns the number of registered conversations.
func (m *ChatManager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.registry)
}

// Transcript renders a conversation's history as one block of text.
func (m *ChatManager) Transcript(chat *Chat) string {
	var sb strings.Builder
	for _, msg := range m.History(chat) {
		sb.WriteString(msg.SenderName)
		sb.WriteString(": ")
		sb.WriteString(msg.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}
