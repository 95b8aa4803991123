package clock

import (
	"sync"
	"time"

	"github.com/jinzhu/now"
)

// Clock is the time source used by the rule engines
type Clock interface {
	Now() time.Time
}

// Window is a half-open time range [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// SystemClock reads the wall clock in a fixed location
type SystemClock struct {
	loc *time.Location
}

// NewSystemClock creates a wall clock bound to loc (UTC when nil)
func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return &SystemClock{loc: loc}
}

// Now returns the current time in the clock's location
func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today returns the calendar day containing the clock's current time
func Today(c Clock) Window {
	return DayWindow(c.Now())
}

// DayWindow returns [00:00, next day 00:00) of t's calendar day in t's location
func DayWindow(t time.Time) Window {
	start := now.With(t).BeginningOfDay()
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// FixedClock is a manually driven clock for tests and tooling
type FixedClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixedClock creates a clock frozen at t
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{t: t}
}

// Now returns the frozen time
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Set moves the clock to t
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}
