package agent

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/event"
	"github.com/hollowbrook/reverie/internal/llm"
)

const defaultAddress = "the village"

// planExpiration bounds how long a daily plan stays retrievable.
const planExpiration = 30 * 24 * time.Hour

// chatMarkers are the substrings that introduce a chat recipient in a
// schedule description, one per trigger word minus its first letter so the
// match is case-insensitive on the trigger.
var chatMarkers = []string{"hat with ", "peak with ", "alk with "}

// isChatDescription classifies a schedule description as a conversation.
// The substring heuristic is knowingly fragile; schedules that mention
// talking without naming a partner fall back to a plain action when the
// recipient parse fails.
func isChatDescription(desc string) bool {
	l := strings.ToLower(desc)
	return strings.Contains(l, "chat") || strings.Contains(l, "speak") || strings.Contains(l, "talk")
}

// chatRecipient extracts the partner's name from a chat description, taking
// the two tokens after the marker and stripping trailing punctuation.
// "Chat with Claire Reynolds about harvest" yields "Claire Reynolds".
func chatRecipient(desc string) (string, bool) {
	lower := strings.ToLower(desc)
	for _, marker := range chatMarkers {
		idx := strings.Index(lower, marker)
		if idx < 0 {
			continue
		}
		tokens := strings.Fields(desc[idx+len(marker):])
		if len(tokens) == 0 {
			continue
		}
		if len(tokens) > 2 {
			tokens = tokens[:2]
		}
		name := strings.TrimRight(strings.Join(tokens, " "), ".,!?;:")
		if name != "" {
			return name, true
		}
	}
	return "", false
}

// generateWakeUpHour draws a wake-up time centered on 8:00, clamped to the
// nearest whole hour between 5 and 11, with a coin flip for half past.
func (a *Agent) generateWakeUpHour() string {
	drawn := a.rng.NormFloat64() + 8

	hour := 5
	best := math.Abs(5 - drawn)
	for h := 6; h <= 11; h++ {
		if d := math.Abs(float64(h) - drawn); d < best {
			best = d
			hour = h
		}
	}

	minute := "00"
	if a.rng.Intn(2) == 1 {
		minute = "30"
	}
	return fmt.Sprintf("%d:%s", hour, minute)
}

// parseDurationHours converts a "2.25"-style hour count into a duration,
// truncated to whole minutes.
func parseDurationHours(s string) (time.Duration, error) {
	hours, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(int(hours*60)) * time.Minute, nil
}

// parseTimeOfDay splits "9:15" or "09:15" into hour and minute.
func parseTimeOfDay(s string) (int, int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("parse time of day %q", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("parse time of day %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("parse time of day %q", s)
	}
	return hour, minute, nil
}

// untilTimeOfDay returns how long from now until the next occurrence of the
// given clock-face time.
func untilTimeOfDay(now time.Time, s string) (time.Duration, error) {
	hour, minute, err := parseTimeOfDay(s)
	if err != nil {
		return 0, err
	}
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.Add(24 * time.Hour)
	}
	return target.Sub(now), nil
}

// plan generates the day's schedule. Generation failures fall back to a
// fixed default plan; the day still has to run.
func (a *Agent) plan(ctx context.Context, now time.Time) {
	wakeUp := a.generateWakeUpHour()
	a.shortMem.ResetForNewDay()

	summary := a.persona.Summary() + fmt.Sprintf("Wakes up around %s.\n", wakeUp)
	schedule, err := a.llm.GenerateDailySchedule(ctx, a.Name(), summary)
	if err != nil {
		a.logger.Warn("daily schedule generation failed, using fallback plan",
			zap.String("agent", a.Name()), zap.Error(err))
		schedule = llm.FallbackSchedule()
	}
	a.shortMem.SetSchedule(schedule)

	descriptions := make([]string, len(schedule))
	for i, entry := range schedule {
		descriptions[i] = entry.Description
	}
	thought := fmt.Sprintf("This is %s's plan for %s: %s.",
		a.Name(), now.Format("Monday January 2"), strings.Join(descriptions, ", "))
	a.remember(ctx, thought, event.KindThought, now, now.Add(planExpiration))

	a.logger.Info("planned day",
		zap.String("agent", a.Name()),
		zap.String("wake_up", wakeUp),
		zap.Int("entries", len(schedule)))
}

// determineAction folds the finished behavior into long-term memory and
// schedules the next one, dispatching its event onto the shared queue.
func (a *Agent) determineAction(ctx context.Context, now time.Time) {
	if chat := a.shortMem.CurrentChat(); a.shortMem.Chatting() && chat != nil {
		a.finishChat(ctx, chat, now)
	} else if act := a.shortMem.CurrentAction(); act != nil {
		act.MarkCompleted(now)
		a.remember(ctx, fmt.Sprintf("%s finished: %s", a.Name(), act.Description), event.KindAction, now, time.Time{})
	}
	a.shortMem.ClearAction()

	if a.shortMem.ScheduleExhausted() {
		return
	}

	var (
		desc     string
		duration time.Duration
	)
	if a.shortMem.AtDayStart() {
		// Before the first scheduled item the agent is implicitly asleep.
		desc = "Sleep"
		until, err := untilTimeOfDay(now, a.shortMem.FirstStart())
		if err != nil {
			a.logger.Warn("unparseable wake-up start, sleeping a default stretch",
				zap.String("agent", a.Name()), zap.Error(err))
			until = 8 * time.Hour
		}
		duration = until
		a.shortMem.BeginSleep()
	} else {
		entry := a.shortMem.NextEntry()

		desc = entry.Description
		parsed, err := parseDurationHours(entry.DurationHours)
		if err != nil {
			a.logger.Warn("unparseable schedule duration, defaulting to an hour",
				zap.String("agent", a.Name()), zap.String("duration", entry.DurationHours))
			parsed = time.Hour
		}
		duration = parsed

		if isChatDescription(desc) {
			if recipient, ok := chatRecipient(desc); ok && recipient != a.Name() {
				a.startChat(desc, recipient, now, duration)
				return
			}
			a.logger.Warn("chat-like schedule entry without a parseable partner, treating as plain action",
				zap.String("agent", a.Name()), zap.String("description", desc))
		}
	}

	action := NewAction(desc, defaultAddress, now, duration)
	a.shortMem.BeginAction(action)
	a.logTranscript(now, "Action", desc)
	a.mgr.DispatchToQueue(event.NewAction(a.Name(), desc, action, now))
}

// startChat creates the chat behavior, registers it and notifies the peer
// through the shared queue.
func (a *Agent) startChat(desc, recipient string, now time.Time, duration time.Duration) {
	chat := NewChat(a.seq, desc, defaultAddress, a.Name(), now, duration)
	a.mgr.Chats().CreateChat(chat)
	a.initiateChat(chat, recipient)
	a.logTranscript(now, "Chat", fmt.Sprintf("requests a chat with %s: %s", recipient, desc))
	a.mgr.DispatchToQueue(event.NewChat(a.Name(), desc, chat, recipient, now))
}

// converseTurn advances a conversation by at most one message. The creator
// opens an empty history; afterwards an agent only replies when the other
// participant spoke last, which keeps strict alternation without an
// arbiter.
func (a *Agent) converseTurn(ctx context.Context, now time.Time) {
	chat := a.shortMem.CurrentChat()
	if chat == nil {
		return
	}
	history := a.mgr.Chats().History(chat)
	switch {
	case len(history) == 0 && chat.Creator() == a.Name():
		a.speak(ctx, chat, now)
	case len(history) > 0 && history[len(history)-1].SenderName != a.Name():
		a.speak(ctx, chat, now)
	default:
		// Not our turn.
	}
}

func (a *Agent) speak(ctx context.Context, chat *Chat, now time.Time) {
	line, err := a.llm.GenerateDialogue(ctx, a.Name(), a.shortMem.ChattingWith(), chat.Address, chat.Description)
	if err != nil {
		a.logger.Warn("dialogue generation failed, staying silent this turn",
			zap.String("agent", a.Name()), zap.Error(err))
		return
	}
	a.mgr.Chats().WriteToChat(chat, ChatMessage{SenderName: a.Name(), Text: line, Created: now})
	a.logTranscript(now, "Dialogue", line)
}

// finishChat attaches the transcript and folds the conversation into
// long-term memory, then clears the chatting state.
func (a *Agent) finishChat(ctx context.Context, chat *Chat, now time.Time) {
	transcript := a.mgr.Chats().Transcript(chat)
	chat.AttachTranscript(transcript)
	chat.SetAlive(false)
	chat.MarkCompleted(now)

	peer := a.shortMem.ChattingWith()
	content := fmt.Sprintf("%s talked with %s. %s", a.Name(), peer, transcript)
	a.remember(ctx, content, event.KindChat, now, time.Time{})
	a.logTranscript(now, "Chat", fmt.Sprintf("ended chat with %s", peer))

	a.mgr.ChatCompleted(a.Name(), peer, transcript)
	a.shortMem.EndChat()
}

// remember estimates importance and commits a concept, degrading to the
// default rating when estimation fails.
func (a *Agent) remember(ctx context.Context, content string, kind event.Kind, now time.Time, expiration time.Time) {
	importance, err := a.llm.EstimateImportance(ctx, content)
	if err != nil {
		a.logger.Warn("importance estimation failed, using default",
			zap.String("agent", a.Name()), zap.Error(err))
		importance = llm.DefaultImportance
	}
	if _, err := a.longMem.AddConcept(ctx, content, kind, importance, now, expiration); err != nil {
		a.logger.Warn("failed to store concept", zap.String("agent", a.Name()), zap.Error(err))
	}
}
