package agent

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/config"
	"github.com/hollowbrook/reverie/internal/embedding"
	"github.com/hollowbrook/reverie/internal/event"
	"github.com/hollowbrook/reverie/internal/llm"
	"github.com/hollowbrook/reverie/internal/memory"
	"github.com/hollowbrook/reverie/internal/world"
)

type testWorld struct {
	mgr   *Manager
	clock *world.Clock
	seq   *Sequence
	queue *event.Queue
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()
	clk, err := world.NewClock(config.ClockConfig{
		StartDate:    "2024-01-01",
		StartTime:    "05:00:00",
		IncrementSec: 20,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	queue := event.NewQueue()
	mgr, err := NewManager(4, queue, zap.NewNop())
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(mgr.Close)
	return &testWorld{mgr: mgr, clock: clk, seq: NewSequence(), queue: queue}
}

func (w *testWorld) addAgent(t *testing.T, id int, name string) *Agent {
	t.Helper()
	embedder := embedding.NewHashProvider(32)
	longMem := memory.NewLongTermMemory(embedder, zap.NewNop())
	retriever := memory.NewRetriever(longMem, embedder, config.RetrievalConfig{
		MaxRetrieval: 1000,
		MaxContext:   5,
		RecencyDecay: 0.995,
	}, zap.NewNop())
	a := NewAgent(id, &Persona{Name: name, Relationships: map[string]string{}},
		llm.NewStaticClient(), longMem, retriever, w.clock, w.seq,
		rand.New(rand.NewSource(int64(id))), zap.NewNop())
	if err := w.mgr.Register(a); err != nil {
		t.Fatalf("register %s: %v", name, err)
	}
	return a
}

func newTestAgent(t *testing.T, id int, name string) *Agent {
	t.Helper()
	return newTestWorld(t).addAgent(t, id, name)
}

func TestDuplicateRegistrationRejected(t *testing.T) {
	w := newTestWorld(t)
	w.addAgent(t, 1, "Hank Thompson")

	dupe := NewAgent(2, &Persona{Name: "Hank Thompson"}, llm.NewStaticClient(),
		nil, nil, w.clock, w.seq, rand.New(rand.NewSource(2)), zap.NewNop())
	if err := w.mgr.Register(dupe); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
	if w.mgr.Size() != 1 {
		t.Errorf("registry size changed to %d on failed registration", w.mgr.Size())
	}
}

func TestDispatchToUnknownAgentDrops(t *testing.T) {
	w := newTestWorld(t)
	w.addAgent(t, 1, "Hank Thompson")

	// Must not panic, event is dropped.
	w.mgr.DispatchToAgent(event.NewChat("Hank Thompson", "hello", nil, "Nobody Here", w.clock.Now()))
}

func TestPlanAndSleepThenFirstEntry(t *testing.T) {
	w := newTestWorld(t)
	hank := w.addAgent(t, 1, "Hank Thompson")
	ctx := context.Background()

	now := w.clock.Now() // 05:00
	hank.plan(ctx, now)
	if entries, _ := hank.shortMem.Schedule(); len(entries) != 6 {
		t.Fatalf("got %d schedule entries, want 6 canned ones", len(entries))
	}

	hank.determineAction(ctx, now)
	act := hank.shortMem.CurrentAction()
	if act == nil || act.Description != "Sleep" {
		t.Fatalf("first behavior should be the implicit sleep, got %+v", act)
	}
	if !hank.shortMem.Sleeping() {
		t.Error("agent should be flagged sleeping")
	}
	wake := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	if !act.End.Equal(wake) {
		t.Errorf("sleep ends at %v, want the first schedule start %v", act.End, wake)
	}

	// At 9:00 sleep has elapsed and the first real entry runs.
	hank.determineAction(ctx, wake)
	act = hank.shortMem.CurrentAction()
	if act == nil || act.Description != "Wake up and make coffee" {
		t.Fatalf("got %+v, want the first schedule entry", act)
	}
	if _, idx := hank.shortMem.Schedule(); idx != 1 {
		t.Errorf("got schedule idx %d, want 1", idx)
	}
	if w.queue.Len() == 0 {
		t.Error("determine action should dispatch events onto the shared queue")
	}
}

func TestChatInitiationReachesPeer(t *testing.T) {
	w := newTestWorld(t)
	hank := w.addAgent(t, 1, "Hank Thompson")
	claire := w.addAgent(t, 2, "Claire Reynolds")
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	hank.plan(ctx, now)
	hank.shortMem.NextEntry()      // consume "Wake up and make coffee"
	hank.determineAction(ctx, now) // pulls "Have a chat with Claire Reynolds"

	if hank.shortMem.ChattingWith() != "Claire Reynolds" {
		t.Fatalf("got chatting_with %q, want Claire Reynolds", hank.shortMem.ChattingWith())
	}

	// Route the queued chat event the way the engine poller does.
	ev, ok := w.queue.TryGet()
	if !ok || ev.Kind() != event.KindChat {
		t.Fatalf("expected a chat event on the queue, got %v", ev)
	}
	w.mgr.DispatchToAgent(ev)
	claire.drainInbound()

	if claire.shortMem.ChattingWith() != "Hank Thompson" {
		t.Fatalf("got peer chatting_with %q, want Hank Thompson", claire.shortMem.ChattingWith())
	}
	if claire.shortMem.CurrentChat().ID() != hank.shortMem.CurrentChat().ID() {
		t.Error("both agents should share one conversation id")
	}
}

func TestChatTieBreakLowerSeqWins(t *testing.T) {
	w := newTestWorld(t)
	hank := w.addAgent(t, 1, "Hank Thompson")
	claire := w.addAgent(t, 2, "Claire Reynolds")
	now := w.clock.Now()

	// Both agents decide to start the same conversation in one tick.
	hank.startChat("Have a chat with Claire Reynolds", "Claire Reynolds", now, time.Hour)
	claire.startChat("Have a chat with Hank Thompson", "Hank Thompson", now, time.Hour)

	lower := hank.shortMem.CurrentChat()
	higher := claire.shortMem.CurrentChat()
	if lower.ID() >= higher.ID() {
		t.Fatalf("expected hank's chat %d below claire's %d", lower.ID(), higher.ID())
	}
	if w.mgr.Chats().Size() != 2 {
		t.Fatalf("got %d registered chats before arbitration, want 2", w.mgr.Chats().Size())
	}

	// Deliver the crossed chat requests.
	for i := 0; i < 2; i++ {
		ev, ok := w.queue.TryGet()
		if !ok {
			t.Fatal("missing queued chat event")
		}
		w.mgr.DispatchToAgent(ev)
	}
	hank.drainInbound()
	claire.drainInbound()

	if hank.shortMem.CurrentChat().ID() != lower.ID() {
		t.Errorf("hank holds chat %d, want the lower %d", hank.shortMem.CurrentChat().ID(), lower.ID())
	}
	if claire.shortMem.CurrentChat().ID() != lower.ID() {
		t.Errorf("claire holds chat %d, want the lower %d", claire.shortMem.CurrentChat().ID(), lower.ID())
	}
	if w.mgr.Chats().Has(higher) {
		t.Error("losing chat should be deleted from the registry")
	}
	if !w.mgr.Chats().Has(lower) {
		t.Error("winning chat must stay registered")
	}
}

func TestChatTurnAlternation(t *testing.T) {
	w := newTestWorld(t)
	hank := w.addAgent(t, 1, "Hank Thompson")
	claire := w.addAgent(t, 2, "Claire Reynolds")
	ctx := context.Background()
	now := w.clock.Now()

	hank.startChat("Have a chat with Claire Reynolds", "Claire Reynolds", now, time.Hour)
	ev, _ := w.queue.TryGet()
	w.mgr.DispatchToAgent(ev)
	claire.drainInbound()

	chat := hank.shortMem.CurrentChat()
	for i := 0; i < 3; i++ {
		hank.converseTurn(ctx, now)
		claire.converseTurn(ctx, now)
	}

	history := w.mgr.Chats().History(chat)
	if len(history) < 4 {
		t.Fatalf("got %d messages, want an ongoing conversation", len(history))
	}
	if history[0].SenderName != "Hank Thompson" {
		t.Errorf("creator should open the conversation, got %q", history[0].SenderName)
	}
	for i := 1; i < len(history); i++ {
		if history[i].SenderName == history[i-1].SenderName {
			t.Fatalf("messages %d and %d share sender %q, want strict alternation", i-1, i, history[i].SenderName)
		}
	}

	// A turn when it is not our move must not add a message.
	before := len(w.mgr.Chats().History(chat))
	last := history[len(history)-1].SenderName
	if last == "Hank Thompson" {
		hank.converseTurn(ctx, now)
	} else {
		claire.converseTurn(ctx, now)
	}
	if got := len(w.mgr.Chats().History(chat)); got != before {
		t.Errorf("out-of-turn speak grew history from %d to %d", before, got)
	}
}

func TestFinishChatStoresTranscript(t *testing.T) {
	w := newTestWorld(t)
	hank := w.addAgent(t, 1, "Hank Thompson")
	claire := w.addAgent(t, 2, "Claire Reynolds")
	ctx := context.Background()
	now := w.clock.Now()

	var completions int
	w.mgr.OnChatCompleted(func(a, b, transcript string) { completions++ })

	hank.startChat("Have a chat with Claire Reynolds", "Claire Reynolds", now, time.Hour)
	ev, _ := w.queue.TryGet()
	w.mgr.DispatchToAgent(ev)
	claire.drainInbound()

	chat := hank.shortMem.CurrentChat()
	hank.converseTurn(ctx, now)
	claire.converseTurn(ctx, now)

	memBefore := hank.MemorySize()
	hank.finishChat(ctx, chat, now.Add(2*time.Hour))

	if hank.shortMem.Chatting() {
		t.Error("chatting state should clear when the chat ends")
	}
	if hank.MemorySize() != memBefore+1 {
		t.Error("finished chat should be folded into long-term memory")
	}
	if !strings.Contains(chat.Transcript(), "Hank Thompson:") {
		t.Errorf("transcript missing speaker lines: %q", chat.Transcript())
	}
	if completions != 1 {
		t.Errorf("got %d completion hook calls, want 1", completions)
	}
}

func TestChatManagerIdempotentCreate(t *testing.T) {
	cm := NewChatManager(zap.NewNop())
	seq := NewSequence()
	chat := NewChat(seq, "chat", "here", "a", time.Now(), time.Hour)

	cm.CreateChat(chat)
	cm.WriteToChat(chat, ChatMessage{SenderName: "a", Text: "hello"})
	cm.CreateChat(chat) // double creation must not clobber history

	if got := len(cm.History(chat)); got != 1 {
		t.Errorf("got %d messages after re-create, want 1", got)
	}
	cm.DeleteChat(chat)
	if cm.Has(chat) {
		t.Error("chat should be gone after delete")
	}
}

func TestLoadPersonaFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persona.txt")
	content := `First Name: Hank
Last Name: Thompson
Age: 54
Occupation: farmer
Backstory: inherited the family farm
Traits: proud, stubborn
Motivations: keep the farm running
Relationship: Claire Reynolds = admires her shared values
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write persona: %v", err)
	}

	p, err := LoadPersona(path)
	if err != nil {
		t.Fatalf("load persona: %v", err)
	}
	if p.Name != "Hank Thompson" {
		t.Errorf("got name %q, want it assembled from first and last", p.Name)
	}
	if p.Age != 54 || p.Occupation != "farmer" {
		t.Errorf("fields parsed wrong: %+v", p)
	}
	if p.Relationships["Claire Reynolds"] != "admires her shared values" {
		t.Errorf("relationship parsed wrong: %q", p.Relationships["Claire Reynolds"])
	}

	if _, err := LoadPersona(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing persona file")
	}
}

func TestManagerUpdateRunsFullCycle(t *testing.T) {
	w := newTestWorld(t)
	w.addAgent(t, 1, "Hank Thompson")
	w.addAgent(t, 2, "Claire Reynolds")

	w.mgr.Update(context.Background(), true, false)

	if w.mgr.CycleCount() != 1 {
		t.Errorf("got cycle count %d, want 1", w.mgr.CycleCount())
	}
	for _, a := range w.mgr.Agents() {
		if entries, _ := a.shortMem.Schedule(); len(entries) == 0 {
			t.Errorf("agent %s has no plan after a first-day cycle", a.Name())
		}
		if a.shortMem.CurrentAction() == nil && !a.shortMem.Chatting() {
			t.Errorf("agent %s has no behavior after a cycle", a.Name())
		}
	}
}

func TestInterrogationUsesMemory(t *testing.T) {
	w := newTestWorld(t)
	hank := w.addAgent(t, 1, "Hank Thompson")
	ctx := context.Background()

	hank.SeedMemories(ctx, []string{"The harvest festival is next week."})
	answer, err := hank.Interrogate(ctx, "What is coming up?", "")
	if err != nil {
		t.Fatalf("interrogate: %v", err)
	}
	if answer == "" {
		t.Error("expected a non-empty interrogation answer")
	}
}

func TestShortTermMemoryConcurrentObservers(t *testing.T) {
	w := newTestWorld(t)
	hank := w.addAgent(t, 1, "Hank Thompson")
	w.addAgent(t, 2, "Claire Reynolds")
	ctx := context.Background()

	// Observe the cursor the way the API and the debug dump do, from a
	// separate goroutine, while cycles replan and advance behaviors.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sm := hank.ShortMemory()
		for {
			select {
			case <-done:
				return
			default:
			}
			_ = sm.CurrentDescription()
			_ = sm.Sleeping()
			_ = sm.ChattingWith()
			entries, idx := sm.Schedule()
			if idx > len(entries) {
				t.Errorf("schedule cursor %d past %d entries", idx, len(entries))
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		w.mgr.Update(ctx, i == 0, i > 0 && i%10 == 0)
		w.clock.Tick()
	}
	close(done)
	wg.Wait()
}

func TestReflectSynthesizesReverie(t *testing.T) {
	w := newTestWorld(t)
	hank := w.addAgent(t, 1, "Hank Thompson")
	ctx := context.Background()

	hank.Reflect(ctx)
	if hank.MemorySize() != 0 {
		t.Fatal("reflection over an empty memory must store nothing")
	}

	facts := make([]string, reverieInterval)
	for i := range facts {
		facts[i] = fmt.Sprintf("Village fact number %d.", i)
	}
	hank.SeedMemories(ctx, facts)

	before := hank.MemorySize()
	hank.Reflect(ctx)
	if hank.MemorySize() != before+1 {
		t.Fatalf("got %d memories, want one reverie on top of %d", hank.MemorySize(), before)
	}

	ev, ok := w.queue.TryGet()
	if !ok || ev.Kind() != event.KindReverie {
		t.Fatalf("expected a reverie event on the shared queue, got %v", ev)
	}
	if ev.Sender() != "Hank Thompson" {
		t.Errorf("got reverie sender %q, want Hank Thompson", ev.Sender())
	}

	// One new concept is not enough to trigger the next pass.
	hank.Reflect(ctx)
	if hank.MemorySize() != before+1 {
		t.Error("reflection refired before enough new concepts accumulated")
	}
}
