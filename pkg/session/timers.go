package session

import (
	"sync"
	"time"
)

// countdown is a one-shot timer that can be stopped, paused with its
// remaining duration preserved, and resumed later. The fire callback runs
// on the timer goroutine; callers post an event tagged with the owning
// turn's generation so the event loop can drop late fires.
type countdown struct {
	mu        sync.Mutex
	timer     *time.Timer
	deadline  time.Time
	remaining time.Duration
	paused    bool
	running   bool
}

func (c *countdown) Start(d time.Duration, fire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.deadline = time.Now().Add(d)
	c.paused = false
	c.running = true
	c.timer = time.AfterFunc(d, fire)
}

func (c *countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	c.paused = false
	c.remaining = 0
}

func (c *countdown) stopLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.running = false
}

// Pause stops the timer and records the remaining duration so Resume can
// continue the same countdown, used during transport suspension.
func (c *countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running || c.paused {
		return
	}
	c.remaining = time.Until(c.deadline)
	if c.remaining < 0 {
		c.remaining = 0
	}
	c.stopLocked()
	c.paused = true
}

func (c *countdown) Resume(fire func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.paused {
		return
	}
	c.paused = false
	c.running = true
	c.deadline = time.Now().Add(c.remaining)
	c.timer = time.AfterFunc(c.remaining, fire)
}

// Remaining returns the time left on the countdown. While paused it
// returns the preserved duration.
func (c *countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.paused {
		return c.remaining
	}
	if !c.running {
		return 0
	}
	d := time.Until(c.deadline)
	if d < 0 {
		return 0
	}
	return d
}

func (c *countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
