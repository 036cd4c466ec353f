package world

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hollowbrook/reverie/internal/config"
)

// secondsPerHalfDay is the AM/PM boundary of the seconds-into-day counter.
const secondsPerHalfDay = 43200

// Clock is the simulated world clock. It is advanced by a timer callback and
// shared read-only by everything else; construct one and inject it rather
// than reaching for a global.
type Clock struct {
	mu             sync.RWMutex
	now            time.Time
	increment      time.Duration
	secondsIntoDay int
	dayCount       int
	am             bool
	logger         *zap.Logger
}

// Snapshot is an independent copy of the clock state. Mutating the clock
// after taking a snapshot does not change it.
type Snapshot struct {
	Time     time.Time
	DayCount int
	AM       bool
}

// NewClock builds a clock from config. The start date/time use the layouts
// "2006-01-02" and "15:04:05".
func NewClock(cfg config.ClockConfig, logger *zap.Logger) (*Clock, error) {
	start, err := time.Parse("2006-01-02 15:04:05", cfg.StartDate+" "+cfg.StartTime)
	if err != nil {
		return nil, fmt.Errorf("parse clock start %q %q: %w", cfg.StartDate, cfg.StartTime, err)
	}
	inc := cfg.IncrementSec
	if inc <= 0 {
		inc = 20
	}
	return &Clock{
		now:       start,
		increment: time.Duration(inc) * time.Second,
		am:        start.Hour() < 12,
		logger:    logger,
	}, nil
}

// Tick advances the clock by one increment. Crossing the half-day boundary
// flips AM/PM; every second crossing starts a new day.
func (c *Clock) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.secondsIntoDay += int(c.increment / time.Second)
	c.now = c.now.Add(c.increment)

	if c.secondsIntoDay >= secondsPerHalfDay {
		if c.am {
			c.am = false
		} else {
			c.am = true
			c.dayCount++
			c.logger.Info("new day",
				zap.Int("day", c.dayCount),
				zap.String("time", c.now.Format("Monday January 2, 15:04")))
		}
		c.secondsIntoDay = 0
	}
}

// Snapshot returns an independent copy of the current clock state.
func (c *Clock) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{Time: c.now, DayCount: c.dayCount, AM: c.am}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// DayCount returns the number of completed simulated days.
func (c *Clock) DayCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dayCount
}

// IsAM reports whether the clock is in the first half of the day.
func (c *Clock) IsAM() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.am
}

// Increment returns the per-tick advance.
func (c *Clock) Increment() time.Duration {
	return c.increment
}

// TimeString formats the current simulated time of day.
func (c *Clock) TimeString() string {
	return c.Now().Format("15:04:05")
}

// DateString formats the current simulated date.
func (c *Clock) DateString() string {
	return c.Now().Format("Monday January 2, 2006")
}

// DatetimeString formats the full simulated timestamp.
func (c *Clock) DatetimeString() string {
	return c.Now().Format("2006-01-02 15:04")
}
