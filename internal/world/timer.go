package world

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// TimerFunc is a periodic timer callback.
type TimerFunc func()

// timerEntry tracks one named recurring timer. remaining is only meaningful
// while the manager is paused.
type timerEntry struct {
	name      string
	period    time.Duration
	fn        TimerFunc
	timer     *time.Timer
	armedAt   time.Time
	remaining time.Duration
}

// TimerManager owns a set of named, self-rescheduling periodic callbacks.
// Each callback runs on its own timer goroutine and re-arms itself after it
// returns, so jitter from callback execution time is expected. Pause keeps
// each timer's remaining time so a resumed simulation continues where it
// stopped rather than restarting every period.
type TimerManager struct {
	mu         sync.Mutex
	timers     map[string]*timerEntry
	started    bool
	paused     bool
	terminated bool
	logger     *zap.Logger
}

// NewTimerManager creates an empty timer manager.
func NewTimerManager(logger *zap.Logger) *TimerManager {
	return &TimerManager{
		timers: make(map[string]*timerEntry),
		logger: logger,
	}
}

// AddTimer registers a named periodic callback. Registering after Start arms
// the timer immediately; re-registering an existing name replaces it.
func (m *TimerManager) AddTimer(name string, period time.Duration, fn TimerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terminated {
		m.logger.Warn("timer manager terminated, ignoring timer", zap.String("timer", name))
		return
	}

	if old, ok := m.timers[name]; ok && old.timer != nil {
		old.timer.Stop()
	}

	e := &timerEntry{name: name, period: period, fn: fn}
	m.timers[name] = e
	m.logger.Info("added timer", zap.String("timer", name), zap.Duration("period", period))

	if m.started && !m.paused {
		m.arm(e, e.period)
	}
}

// Start arms every registered timer once; each callback re-arms itself.
func (m *TimerManager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started || m.terminated {
		return
	}
	m.started = true
	for _, e := range m.timers {
		m.arm(e, e.period)
	}
	m.logger.Info("all timers started", zap.Int("count", len(m.timers)))
}

// Pause stops every timer, recording its remaining time until next fire.
// A callback already in flight is not interrupted; it simply does not re-arm.
func (m *TimerManager) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.paused || m.terminated || !m.started {
		return
	}
	m.paused = true
	now := time.Now()
	for _, e := range m.timers {
		if e.timer != nil && e.timer.Stop() {
			rem := e.period - now.Sub(e.armedAt)
			if rem < 0 {
				rem = 0
			}
			e.remaining = rem
		} else {
			// Mid-callback or never armed: next resume gets a full period.
			e.remaining = e.period
		}
		e.timer = nil
	}
	m.logger.Info("all timers paused")
}

// Resume re-arms every paused timer with the time it had left.
func (m *TimerManager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.paused || m.terminated {
		return
	}
	m.paused = false
	for _, e := range m.timers {
		d := e.remaining
		if d <= 0 {
			d = time.Millisecond
		}
		m.arm(e, d)
	}
	m.logger.Info("all timers resumed")
}

// Stop cancels every outstanding timer and refuses further re-arming.
// Callbacks already running finish; only their next re-arm is suppressed.
func (m *TimerManager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terminated {
		return
	}
	m.terminated = true
	for _, e := range m.timers {
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
	}
	m.logger.Info("all timers stopped")
}

// IsPaused reports whether the manager is currently paused.
func (m *TimerManager) IsPaused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// arm schedules the entry to fire after d. Caller must hold m.mu.
func (m *TimerManager) arm(e *timerEntry, d time.Duration) {
	e.armedAt = time.Now()
	e.timer = time.AfterFunc(d, func() { m.fire(e) })
}

func (m *TimerManager) fire(e *timerEntry) {
	e.fn()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.terminated || m.paused {
		e.remaining = e.period
		return
	}
	// Replaced by a newer registration under the same name: drop silently.
	if cur, ok := m.timers[e.name]; !ok || cur != e {
		return
	}
	m.arm(e, e.period)
}
