package agent

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/event"
	"github.com/hollowbrook/reverie/internal/llm"
	"github.com/hollowbrook/reverie/internal/memory"
	"github.com/hollowbrook/reverie/internal/world"
)

// Agent is one autonomous character: a persona, a schedule cursor, an
// append-only long-term memory and an inbound event queue. The manager
// drives it through Update, Act and Reflect each cycle.
type Agent struct {
	id       int
	persona  *Persona
	shortMem *ShortTermMemory
	longMem  *memory.LongTermMemory
	memories *memory.Retriever
	inbound  *event.Queue

	mgr    *Manager
	llm    llm.Client
	clock  *world.Clock
	seq    *Sequence
	rng    *rand.Rand
	logger *zap.Logger

	lastObserved string
	reflectedAt  int
}

// reverieInterval is how many new concepts accumulate before reflection
// synthesizes a reverie.
const reverieInterval = 20

// NewAgent creates an agent. The manager back-reference is wired during
// registration.
func NewAgent(id int, persona *Persona, client llm.Client, longMem *memory.LongTermMemory, retriever *memory.Retriever, clk *world.Clock, seq *Sequence, rng *rand.Rand, logger *zap.Logger) *Agent {
	return &Agent{
		id:       id,
		persona:  persona,
		shortMem: NewShortTermMemory(),
		longMem:  longMem,
		memories: retriever,
		inbound:  event.NewQueue(),
		llm:      client,
		clock:    clk,
		seq:      seq,
		rng:      rng,
		logger:   logger,
	}
}

// Name returns the persona name, which is also the registry key.
func (a *Agent) Name() string { return a.persona.Name }

// ID returns the numeric agent id.
func (a *Agent) ID() int { return a.id }

// Persona returns the agent's identity.
func (a *Agent) Persona() *Persona { return a.persona }

// ShortMemory exposes the schedule cursor, used by the observation API.
func (a *Agent) ShortMemory() *ShortTermMemory { return a.shortMem }

// MemorySize returns the number of stored long-term concepts.
func (a *Agent) MemorySize() int { return a.longMem.Size() }

// SeedMemories loads shared world facts into long-term memory at startup.
func (a *Agent) SeedMemories(ctx context.Context, facts []string) {
	now := a.clock.Now()
	for _, fact := range facts {
		a.remember(ctx, fact, event.KindThought, now, time.Time{})
	}
}

// Enqueue places an event on the agent's private inbound queue. Called
// from the manager's routing, possibly on a timer thread.
func (a *Agent) Enqueue(ev *event.Event) {
	a.inbound.Put(ev)
}

// Update is the parallel perception phase. When the current behavior has
// changed since the last look, the agent records an observation about it.
func (a *Agent) Update(ctx context.Context) {
	desc := a.shortMem.CurrentDescription()
	if desc == "" || desc == a.lastObserved {
		return
	}
	a.lastObserved = desc

	now := a.clock.Now()
	observation, err := a.llm.GenerateObservation(ctx, a.Name(), a.persona.Summary(), desc)
	if err != nil {
		a.logger.Warn("observation generation failed",
			zap.String("agent", a.Name()), zap.Error(err))
		return
	}
	a.remember(ctx, observation, event.KindThought, now, time.Time{})
	a.logTranscript(now, "Thought", observation)
}

// Act is the sequential phase: plan on a new day, drain the inbound queue,
// advance the schedule when the current behavior has elapsed, then take a
// conversation turn if one is in progress.
func (a *Agent) Act(ctx context.Context, firstDay, newDay bool) {
	now := a.clock.Now()

	if firstDay || newDay {
		a.plan(ctx, now)
	}

	a.drainInbound()

	if a.shortMem.CurrentBehaviorElapsed(now) {
		a.determineAction(ctx, now)
	}

	if a.shortMem.Chatting() {
		a.converseTurn(ctx, now)
	}
}

// Reflect is the parallel consolidation phase. Once enough new concepts
// have accumulated since the last pass, the agent synthesizes a reverie, a
// higher-level thought grounded on what it retrieves about its own recent
// experience.
func (a *Agent) Reflect(ctx context.Context) {
	size := a.longMem.Size()
	if size-a.reflectedAt < reverieInterval {
		return
	}
	a.reflectedAt = size

	now := a.clock.Now()
	recent, err := a.memories.RetrieveContext(ctx,
		fmt.Sprintf("what has been on %s's mind lately", a.Name()), 0, now)
	if err != nil {
		a.logger.Warn("reverie retrieval failed",
			zap.String("agent", a.Name()), zap.Error(err))
		return
	}
	thought, err := a.llm.GenerateObservation(ctx, a.Name(), a.persona.Summary(),
		"reflecting on recent experiences: "+recent)
	if err != nil {
		a.logger.Warn("reverie generation failed",
			zap.String("agent", a.Name()), zap.Error(err))
		return
	}
	a.remember(ctx, thought, event.KindReverie, now, time.Time{})
	a.logTranscript(now, "Reverie", thought)
	a.mgr.DispatchToQueue(event.NewReverie(a.Name(), thought, now))
}

// drainInbound processes queued events from other agents.
func (a *Agent) drainInbound() {
	for {
		ev, ok := a.inbound.TryGet()
		if !ok {
			return
		}
		switch ev.Kind() {
		case event.KindChat:
			a.receiveChatRequest(ev)
		default:
			a.logger.Debug("ignoring inbound event",
				zap.String("agent", a.Name()), zap.Stringer("kind", ev.Kind()))
		}
	}
}

// NarrationEventTrigger receives a world narration and folds it into
// long-term memory. Called synchronously during narration fan-out.
func (a *Agent) NarrationEventTrigger(ctx context.Context, ev *event.Event) {
	now := a.clock.Now()
	content := fmt.Sprintf("%s heard: %s", a.Name(), ev.Message())
	a.remember(ctx, content, event.KindNarration, now, time.Time{})
}

// Interrogate answers an operator question in persona voice, grounded on
// retrieved memories. Used by the console while the simulation is paused.
func (a *Agent) Interrogate(ctx context.Context, question, history string) (string, error) {
	memoryContext, err := a.memories.RetrieveContext(ctx, question, 0, a.clock.Now())
	if err != nil {
		a.logger.Warn("interrogation retrieval failed, answering without context",
			zap.String("agent", a.Name()), zap.Error(err))
	}
	return a.llm.GenerateInterrogation(ctx, a.Name(), a.persona.Summary(), memoryContext, question, history)
}

func (a *Agent) logTranscript(now time.Time, kind, text string) {
	a.logger.Info("transcript",
		zap.String("time", now.Format("2006-01-02 15:04:05")),
		zap.String("agent", a.Name()),
		zap.String("kind", kind),
		zap.String("text", text))
}

func (a *Agent) String() string { return a.Name() }
