// Package carousel implements an auto-rotating index over a fixed-order item
// list, with manual navigation that atomically cancels and restarts the
// rotation timer.
package carousel

import (
	"sync"
	"time"
)

// Controller rotates an index in [0, itemCount). A single owned timer handle
// is always cancelled before being rescheduled, so a manual step can never be
// immediately overridden by an auto-advance tick scheduled before it.
type Controller struct {
	mu       sync.Mutex
	period   time.Duration
	count    int
	index    int
	timer    *time.Timer
	gen      int // bumped on every cancel/reschedule; stale ticks are discarded
	stopped  bool
	onChange func(index int)
}

// New creates a stopped controller. onChange, if non-nil, runs after every
// index change (auto or manual) outside the controller lock; it may be nil.
func New(period time.Duration, onChange func(index int)) *Controller {
	return &Controller{period: period, onChange: onChange}
}

// SetItems installs a new item list length. The index resets to 0 and the
// rotation timer restarts. A zero count stops rotation entirely.
func (c *Controller) SetItems(count int) {
	c.mu.Lock()
	c.count = count
	c.index = 0
	c.cancelLocked()
	if count > 0 && !c.stopped {
		c.scheduleLocked()
	}
	c.mu.Unlock()
	c.notify()
}

// Index returns the current index and whether the list is non-empty.
func (c *Controller) Index() (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.index, c.count > 0
}

// Count returns the current item count.
func (c *Controller) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// Next steps forward manually, wrapping to 0 from the last item, and restarts
// the rotation timer from zero elapsed time. A no-op on an empty list.
func (c *Controller) Next() {
	c.step(1)
}

// Prev steps backward manually, wrapping to the last item from 0, and
// restarts the rotation timer from zero elapsed time. A no-op on an empty
// list.
func (c *Controller) Prev() {
	c.step(-1)
}

func (c *Controller) step(delta int) {
	c.mu.Lock()
	if c.count == 0 || c.stopped {
		c.mu.Unlock()
		return
	}
	c.cancelLocked()
	c.index = (c.index + delta + c.count) % c.count
	c.scheduleLocked()
	c.mu.Unlock()
	c.notify()
}

// Stop cancels the timer permanently. The controller is unusable afterwards.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.cancelLocked()
}

// cancelLocked drops the pending timer, if any, and invalidates ticks that
// already fired but have not run yet.
func (c *Controller) cancelLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// scheduleLocked arms the auto-advance timer.
func (c *Controller) scheduleLocked() {
	gen := c.gen
	c.timer = time.AfterFunc(c.period, func() { c.autoAdvance(gen) })
}

func (c *Controller) autoAdvance(gen int) {
	c.mu.Lock()
	// A manual step may have cancelled this tick between firing and locking.
	if c.stopped || c.count == 0 || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.index = (c.index + 1) % c.count
	c.cancelLocked()
	c.scheduleLocked()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	if c.onChange == nil {
		return
	}
	c.mu.Lock()
	idx := c.index
	c.mu.Unlock()
	c.onChange(idx)
}
