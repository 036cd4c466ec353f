package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/agent"
	"github.com/hollowbrook/reverie/internal/archive"
	"github.com/hollowbrook/reverie/internal/config"
	"github.com/hollowbrook/reverie/internal/event"
	"github.com/hollowbrook/reverie/internal/feed"
	"github.com/hollowbrook/reverie/internal/gateway"
	"github.com/hollowbrook/reverie/internal/relation"
	"github.com/hollowbrook/reverie/internal/store"
	"github.com/hollowbrook/reverie/internal/world"
)

// conversationBoost is how much one finished chat strengthens a tie.
const conversationBoost = 0.1

// Services are the optional persistence and broadcast backends. Any of them
// may be nil; the engine works around missing ones.
type Services struct {
	Feed        *feed.Feed
	Archive     *archive.Archive
	Broadcaster *gateway.Broadcaster
	Store       *store.Store
	RunID       string
	Relations   *relation.Graph
}

// Engine drives the simulation: it owns the timers that tick the clock,
// cycle the agent manager and poll the worker queue, routes queued events,
// fans narrations out, and enforces the configured stop conditions.
type Engine struct {
	cfg      config.EngineConfig
	clockCfg config.ClockConfig
	narCfg   config.NarratorConfig
	clock    *world.Clock
	timers   *world.TimerManager
	mgr      *agent.Manager
	queue    *event.Queue
	narrator *Narrator
	svcs     Services
	logger   *zap.Logger

	// lastDay and ranOnce are touched only from the agent timer goroutine.
	lastDay  int
	ranOnce  bool
	stopOnce sync.Once
	done     chan struct{}
}

// New wires an engine over an already-built simulation. The narrator may be
// nil when disabled.
func New(cfg *config.Config, clock *world.Clock, mgr *agent.Manager, queue *event.Queue, narrator *Narrator, svcs Services, logger *zap.Logger) *Engine {
	e := &Engine{
		cfg:      cfg.Engine,
		clockCfg: cfg.Clock,
		narCfg:   cfg.Narrator,
		clock:    clock,
		timers:   world.NewTimerManager(logger),
		mgr:      mgr,
		queue:    queue,
		narrator: narrator,
		svcs:     svcs,
		logger:   logger,
		done:     make(chan struct{}),
	}

	mgr.OnChatCompleted(e.chatCompleted)
	return e
}

// Start registers and arms all timers. The simulation runs until Stop or a
// stop condition fires.
func (e *Engine) Start(ctx context.Context) {
	e.timers.AddTimer("clock", time.Duration(e.clockCfg.TimerMillis)*time.Millisecond, e.clock.Tick)
	e.timers.AddTimer("agents", time.Duration(e.cfg.AgentTimerMillis)*time.Millisecond, func() { e.cycle(ctx) })
	e.timers.AddTimer("worker", time.Duration(e.cfg.WorkerTimerMillis)*time.Millisecond, func() { e.drainQueue(ctx) })

	if e.cfg.DebugTimerSec > 0 {
		e.timers.AddTimer("debug", time.Duration(e.cfg.DebugTimerSec)*time.Second, e.debugDump)
	}
	if e.narrator != nil && e.narCfg.Enabled {
		e.timers.AddTimer("narrator", time.Duration(e.narCfg.TimerSec)*time.Second, func() { e.autoNarrate(ctx) })
	}

	e.timers.Start()
	e.logger.Info("engine started",
		zap.Int("agents", e.mgr.Size()),
		zap.Int("stop_after_cycles", e.cfg.StopAfterCycles),
		zap.Int("stop_after_days", e.cfg.StopAfterDays))
}

// Pause suspends all timers, keeping their remaining time.
func (e *Engine) Pause() { e.timers.Pause() }

// Resume restarts paused timers where they left off.
func (e *Engine) Resume() { e.timers.Resume() }

// Paused reports whether the engine is paused.
func (e *Engine) Paused() bool { return e.timers.IsPaused() }

// Stop terminates the timers and releases the done channel. Safe to call
// from any goroutine, any number of times.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		e.timers.Stop()
		close(e.done)
	})
}

// Done returns a channel closed when the engine has stopped.
func (e *Engine) Done() <-chan struct{} { return e.done }

// Manager returns the agent manager, for the console and API.
func (e *Engine) Manager() *agent.Manager { return e.mgr }

// Clock returns the simulated clock.
func (e *Engine) Clock() *world.Clock { return e.clock }

// cycle runs one agent-manager update and checks stop conditions. It is the
// only writer of lastDay/ranOnce, always from the agents timer goroutine.
func (e *Engine) cycle(ctx context.Context) {
	day := e.clock.DayCount()
	firstDay := !e.ranOnce
	newDay := e.ranOnce && day != e.lastDay
	e.ranOnce = true
	e.lastDay = day

	e.mgr.Update(ctx, firstDay, newDay)

	if newDay && e.svcs.Relations != nil {
		e.svcs.Relations.Decay(ctx)
	}

	if e.cfg.StopAfterCycles > 0 && e.mgr.CycleCount() >= uint64(e.cfg.StopAfterCycles) {
		e.logger.Info("cycle limit reached, stopping", zap.Uint64("cycles", e.mgr.CycleCount()))
		go e.Stop()
		return
	}
	if e.cfg.StopAfterDays > 0 && day >= e.cfg.StopAfterDays {
		e.logger.Info("day limit reached, stopping", zap.Int("days", day))
		go e.Stop()
	}
}

// drainQueue routes everything agents placed on the shared worker queue
// since the last poll.
func (e *Engine) drainQueue(ctx context.Context) {
	for _, ev := range e.queue.Drain() {
		switch ev.Kind() {
		case event.KindChat:
			e.mgr.DispatchToAgent(ev)
			e.publishFeed(ctx, feed.TopicChats, ev)
		case event.KindAction:
			e.publishFeed(ctx, feed.TopicActions, ev)
		case event.KindReverie:
			// Reveries carry no receiver; they flow into the transcript
			// below like everything else.
		default:
			e.logger.Debug("discarding queued event", zap.Stringer("kind", ev.Kind()))
		}
		e.appendTranscript(ctx, ev)
	}
}

// Narrate injects a narration into the simulation: every agent hears it and
// it is mirrored to the archive, feed, store and gateways.
func (e *Engine) Narrate(message string) {
	ctx := context.Background()
	now := e.clock.Now()
	ev := event.NewNarration("narrator", message, now)

	e.mgr.DispatchNarration(ctx, ev)
	e.logger.Info("narration", zap.String("message", message))

	if e.svcs.Archive != nil {
		if err := e.svcs.Archive.RecordNarration(ctx, message, now); err != nil {
			e.logger.Warn("archiving narration failed", zap.Error(err))
		}
	}
	if e.svcs.Feed != nil {
		item := feed.Item{Topic: feed.TopicNarrations, Text: message, SimTime: now}
		if err := e.svcs.Feed.Publish(ctx, item); err != nil {
			e.logger.Warn("feed publish failed", zap.Error(err))
		}
	}
	if e.svcs.Broadcaster != nil {
		e.svcs.Broadcaster.Publish(ctx, &gateway.Update{
			Kind:    gateway.UpdateNarration,
			Text:    message,
			SimTime: now,
		})
	}
	e.appendTranscript(ctx, ev)
}

// autoNarrate asks the narrator for ambient scene narration based on what
// the agents are presently doing.
func (e *Engine) autoNarrate(ctx context.Context) {
	if e.narrator == nil {
		return
	}
	message, err := e.narrator.Compose(ctx, e.mgr.Agents())
	if err != nil {
		e.logger.Warn("narration generation failed", zap.Error(err))
		return
	}
	if message == "" {
		return
	}
	e.Narrate(message)
}

// chatCompleted fires for both participants when a conversation ends; the
// lexically-smaller name processes it so side effects happen exactly once.
func (e *Engine) chatCompleted(a, b, transcript string) {
	if a > b {
		return
	}
	ctx := context.Background()
	now := e.clock.Now()

	if e.svcs.Relations != nil {
		if err := e.svcs.Relations.RecordConversation(ctx, a, b, transcript, conversationBoost); err != nil {
			e.logger.Warn("recording conversation in relation graph failed", zap.Error(err))
		} else if rel, err := e.svcs.Relations.Get(ctx, a, b); err == nil && rel != nil {
			e.logger.Info("relationship reinforced",
				zap.String("a", a), zap.String("b", b), zap.Float64("strength", rel.Strength))
		}
	}
	if e.svcs.Archive != nil {
		if err := e.svcs.Archive.RecordChat(ctx, a, b, transcript, now); err != nil {
			e.logger.Warn("archiving chat failed", zap.Error(err))
		}
	}
	if e.svcs.Broadcaster != nil {
		e.svcs.Broadcaster.Publish(ctx, &gateway.Update{
			Kind:    gateway.UpdateConversation,
			Agent:   a,
			Text:    fmt.Sprintf("%s and %s finished a conversation:\n%s", a, b, transcript),
			SimTime: now,
		})
	}
}

func (e *Engine) publishFeed(ctx context.Context, topic string, ev *event.Event) {
	if e.svcs.Feed == nil {
		return
	}
	item := feed.Item{
		Topic:   topic,
		Agent:   ev.Sender(),
		Text:    ev.Message(),
		SimTime: ev.Timestamp(),
	}
	if err := e.svcs.Feed.Publish(ctx, item); err != nil {
		e.logger.Warn("feed publish failed", zap.String("topic", topic), zap.Error(err))
	}
}

func (e *Engine) appendTranscript(ctx context.Context, ev *event.Event) {
	if e.svcs.Store == nil || e.svcs.RunID == "" {
		return
	}
	line := store.TranscriptLine{
		RunID:   e.svcs.RunID,
		SimTime: ev.Timestamp(),
		Agent:   ev.Sender(),
		Kind:    ev.Kind().String(),
		Text:    ev.Message(),
	}
	if err := e.svcs.Store.AppendTranscript(ctx, line); err != nil {
		e.logger.Warn("appending transcript failed", zap.Error(err))
	}
}

// debugDump logs a one-line status of every agent.
func (e *Engine) debugDump() {
	now := e.clock.DatetimeString()
	for _, a := range e.mgr.Agents() {
		sm := a.ShortMemory()
		e.logger.Info("status",
			zap.String("time", now),
			zap.String("agent", a.Name()),
			zap.String("doing", sm.CurrentDescription()),
			zap.Bool("sleeping", sm.Sleeping()),
			zap.String("chatting_with", sm.ChattingWith()),
			zap.Int("memories", a.MemorySize()))
	}
}
