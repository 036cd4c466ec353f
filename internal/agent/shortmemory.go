package agent

import (
	"sync"
	"time"

	"github.com/hollowbrook/reverie/internal/llm"
)

// ShortTermMemory is the per-agent mutable cursor over the day's schedule
// and whatever behavior is currently executing. Cognition mutates it from
// the sequential act phase while the API, the narrator and the debug dump
// read it from their own goroutines, so every access goes through the lock.
type ShortTermMemory struct {
	mu sync.RWMutex

	schedule    []llm.ScheduleEntry
	scheduleIdx int

	currentAction *Action
	currentChat   *Chat
	chattingWith  string
	sleeping      bool
}

// NewShortTermMemory creates an empty cursor.
func NewShortTermMemory() *ShortTermMemory {
	return &ShortTermMemory{}
}

func (s *ShortTermMemory) chatting() bool { return s.chattingWith != "" }

// Chatting reports whether a conversation is in progress.
func (s *ShortTermMemory) Chatting() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chatting()
}

// ChattingWith returns the current conversation partner, empty when idle.
func (s *ShortTermMemory) ChattingWith() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chattingWith
}

// CurrentChat returns the conversation in progress, nil when none.
func (s *ShortTermMemory) CurrentChat() *Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentChat
}

// CurrentAction returns the executing action, nil when none.
func (s *ShortTermMemory) CurrentAction() *Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentAction
}

// Sleeping reports whether the agent is in the implicit pre-schedule sleep.
func (s *ShortTermMemory) Sleeping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sleeping
}

// Schedule returns a copy of the day's plan and the index of the next
// entry to run. The pair is read under one lock so it is always coherent.
func (s *ShortTermMemory) Schedule() ([]llm.ScheduleEntry, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]llm.ScheduleEntry, len(s.schedule))
	copy(entries, s.schedule)
	return entries, s.scheduleIdx
}

// CurrentBehaviorElapsed reports whether the executing action or chat has
// run past its planned end. No current behavior counts as elapsed so the
// first tick schedules one.
func (s *ShortTermMemory) CurrentBehaviorElapsed(now time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.chatting() && s.currentChat != nil {
		return s.currentChat.Elapsed(now)
	}
	if s.currentAction == nil {
		return true
	}
	return s.currentAction.Elapsed(now)
}

// CurrentDescription returns what the agent is presently doing.
func (s *ShortTermMemory) CurrentDescription() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.chatting() && s.currentChat != nil {
		return s.currentChat.Description
	}
	if s.currentAction != nil {
		return s.currentAction.Description
	}
	return ""
}

// ScheduleExhausted reports whether every planned entry has run.
func (s *ShortTermMemory) ScheduleExhausted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduleIdx >= len(s.schedule)
}

// AtDayStart reports whether the agent has yet to start its first entry,
// which is when the implicit sleep applies.
func (s *ShortTermMemory) AtDayStart() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scheduleIdx == 0 && !s.sleeping
}

// FirstStart returns the planned start time of the first entry.
func (s *ShortTermMemory) FirstStart() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.schedule) == 0 {
		return ""
	}
	return s.schedule[0].StartTime
}

// SetSchedule installs the day's plan.
func (s *ShortTermMemory) SetSchedule(entries []llm.ScheduleEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = entries
}

// NextEntry pulls the next schedule entry and advances the cursor past it.
// Leaving the implicit sleep happens here too.
func (s *ShortTermMemory) NextEntry() llm.ScheduleEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.schedule[s.scheduleIdx]
	s.scheduleIdx++
	s.sleeping = false
	return entry
}

// BeginSleep flags the implicit pre-schedule sleep.
func (s *ShortTermMemory) BeginSleep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeping = true
}

// BeginAction installs the executing action.
func (s *ShortTermMemory) BeginAction(act *Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentAction = act
}

// ClearAction drops the executing action.
func (s *ShortTermMemory) ClearAction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentAction = nil
}

// BeginChat adopts a conversation with the given partner.
func (s *ShortTermMemory) BeginChat(chat *Chat, peer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentChat = chat
	s.chattingWith = peer
}

// EndChat clears the chatting state.
func (s *ShortTermMemory) EndChat() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentChat = nil
	s.chattingWith = ""
}

// ResetForNewDay clears the schedule cursor for the next planning pass.
func (s *ShortTermMemory) ResetForNewDay() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedule = nil
	s.scheduleIdx = 0
	s.sleeping = false
}
