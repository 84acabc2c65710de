package desk

import (
	"sync"
	"time"
)

// Clock tracks the server's notion of now. Server timestamps ratchet it
// forward; between updates a ticking goroutine advances it by a fixed
// increment each wall second so time-derived views keep moving during quiet
// markets.
type Clock struct {
	mu        sync.Mutex
	now       time.Time
	increment time.Duration
	ticking   bool
	stop      chan struct{}
	done      chan struct{}

	lmu  sync.RWMutex
	subs []clockSub
	next int
}

type clockSub struct {
	token int
	fn    func(time.Time)
}

// NewClock builds a stopped clock. increment is how far each local tick
// advances server time; zero disables local ticking.
func NewClock(increment time.Duration) *Clock {
	return &Clock{increment: increment}
}

// Now returns the current server time estimate.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// OnTime registers a listener for clock movement.
func (c *Clock) OnTime(fn func(time.Time)) int {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	c.next++
	c.subs = append(c.subs, clockSub{token: c.next, fn: fn})
	return c.next
}

func (c *Clock) RemoveListener(token int) {
	c.lmu.Lock()
	defer c.lmu.Unlock()
	for i, s := range c.subs {
		if s.token == token {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			return
		}
	}
}

// Sync ratchets the clock to candidate. Candidates at or behind the current
// estimate are ignored without notice. The first accepted candidate starts
// the ticking goroutine. dispatch controls whether listeners hear about the
// jump.
func (c *Clock) Sync(candidate time.Time, dispatch bool) bool {
	if candidate.IsZero() {
		return false
	}
	c.mu.Lock()
	if !candidate.After(c.now) {
		c.mu.Unlock()
		return false
	}
	c.now = candidate
	start := !c.ticking && c.increment > 0
	if start {
		c.ticking = true
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.tick(c.stop, c.done)
	}
	c.mu.Unlock()
	if dispatch {
		c.notify(candidate)
	}
	return true
}

// Stop halts the ticking goroutine and waits for it to drain.
func (c *Clock) Stop() {
	c.mu.Lock()
	if !c.ticking {
		c.mu.Unlock()
		return
	}
	c.ticking = false
	stop, done := c.stop, c.done
	c.mu.Unlock()
	close(stop)
	<-done
}

func (c *Clock) tick(stop, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(time.Second)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			c.mu.Lock()
			c.now = c.now.Add(c.increment)
			now := c.now
			c.mu.Unlock()
			c.notify(now)
		}
	}
}

func (c *Clock) notify(now time.Time) {
	c.lmu.RLock()
	subs := make([]clockSub, len(c.subs))
	copy(subs, c.subs)
	c.lmu.RUnlock()
	for _, s := range subs {
		s.fn(now)
	}
}
