package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/event"
)

// Manager owns the agent population and drives the per-tick cycle:
// parallel perception, sequential act, parallel reflection. The act phase
// is deliberately sequential so one agent's chat initiation is visible in
// the chat manager before its peer takes a turn in the same tick.
type Manager struct {
	mu            sync.RWMutex
	agents        map[string]*Agent
	order         []string
	chats         *ChatManager
	queue         *event.Queue
	pool          *ants.Pool
	cycle         atomic.Uint64
	lastNarration *event.Event
	onChatDone    []func(a, b, transcript string)
	logger        *zap.Logger
}

// NewManager creates a manager with a worker pool of the given size. The
// pool runs the perception and reflection phases; size it to the expected
// agent count.
func NewManager(poolSize int, queue *event.Queue, logger *zap.Logger) (*Manager, error) {
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	return &Manager{
		agents:        make(map[string]*Agent),
		chats:         NewChatManager(logger),
		queue:         queue,
		pool:          pool,
		lastNarration: event.Empty(),
		logger:        logger,
	}, nil
}

// Register adds an agent under its persona name. Duplicate names are
// rejected and leave the registry unchanged.
func (m *Manager) Register(a *Agent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.agents[a.Name()]; ok {
		return fmt.Errorf("agent %q already registered", a.Name())
	}
	a.mgr = m
	m.agents[a.Name()] = a
	m.order = append(m.order, a.Name())
	m.logger.Info("registered agent", zap.String("agent", a.Name()))
	return nil
}

// Chats returns the shared chat manager.
func (m *Manager) Chats() *ChatManager { return m.chats }

// Agent looks up an agent by name.
func (m *Manager) Agent(name string) (*Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.agents[name]
	return a, ok
}

// Agents returns the population in registration order.
func (m *Manager) Agents() []*Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Agent, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.agents[name])
	}
	return out
}

// Size returns the number of registered agents.
func (m *Manager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.agents)
}

// Update runs one full cycle. Perception and reflection fan out across the
// worker pool with a barrier in between; act runs sequentially in
// registration order so tie-breaks stay deterministic.
func (m *Manager) Update(ctx context.Context, firstDay, newDay bool) {
	agents := m.Agents()

	m.parallel(agents, func(a *Agent) { a.Update(ctx) })

	for _, a := range agents {
		a.Act(ctx, firstDay, newDay)
	}

	m.parallel(agents, func(a *Agent) { a.Reflect(ctx) })

	m.cycle.Add(1)
}

func (m *Manager) parallel(agents []*Agent, fn func(*Agent)) {
	var wg sync.WaitGroup
	for _, a := range agents {
		a := a
		wg.Add(1)
		if err := m.pool.Submit(func() {
			defer wg.Done()
			fn(a)
		}); err != nil {
			wg.Done()
			m.logger.Warn("worker pool rejected task, running inline",
				zap.String("agent", a.Name()), zap.Error(err))
			fn(a)
		}
	}
	wg.Wait()
}

// CycleCount returns how many update cycles have run.
func (m *Manager) CycleCount() uint64 {
	return m.cycle.Load()
}

// DispatchToQueue places an event on the shared worker queue for the
// engine's poller.
func (m *Manager) DispatchToQueue(ev *event.Event) {
	m.queue.Put(ev)
}

// DispatchToAgent routes an event to the receiver's private inbound queue.
// An unknown receiver is logged and the event dropped; the simulation
// continues.
func (m *Manager) DispatchToAgent(ev *event.Event) {
	a, ok := m.Agent(ev.Receiver())
	if !ok {
		m.logger.Warn("dropping event for unknown agent",
			zap.String("receiver", ev.Receiver()), zap.String("sender", ev.Sender()))
		return
	}
	a.Enqueue(ev)
}

// DispatchNarration fans a narration out to every agent synchronously.
func (m *Manager) DispatchNarration(ctx context.Context, ev *event.Event) {
	m.mu.Lock()
	m.lastNarration = ev
	m.mu.Unlock()
	for _, a := range m.Agents() {
		a.NarrationEventTrigger(ctx, ev)
	}
}

// LastNarration returns the most recent narration event.
func (m *Manager) LastNarration() *event.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastNarration
}

// OnChatCompleted registers a hook fired when any conversation ends, used
// to reinforce the relationship graph and archive the transcript.
func (m *Manager) OnChatCompleted(fn func(a, b, transcript string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChatDone = append(m.onChatDone, fn)
}

// ChatCompleted notifies registered hooks that two agents finished talking.
func (m *Manager) ChatCompleted(a, b, transcript string) {
	m.mu.RLock()
	hooks := m.onChatDone
	m.mu.RUnlock()
	for _, fn := range hooks {
		fn(a, b, transcript)
	}
}

// Close releases the worker pool.
func (m *Manager) Close() {
	m.pool.Release()
}
