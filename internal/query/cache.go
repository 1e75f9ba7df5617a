// Package query implements a generic keyed cache for remote data with
// staleness windows, background revalidation, per-key single-flight fetches,
// and bounded-lifetime polling while a key is active.
//
// Each key has exactly one writer: the cache's own fetch-completion handler.
// Consumers subscribe for change notifications and read snapshots; they never
// mutate entries directly.
package query

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status is the lifecycle state of a cache entry.
type Status int

const (
	Idle Status = iota
	Loading
	Success
	Error
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Error:
		return "error"
	}
	return "unknown"
}

// Result is a read-only snapshot of a cache entry. A failed fetch keeps the
// previously successful Data (HasData stays true) so consumers can choose
// between "stale data with an error banner" and "nothing".
type Result[T any] struct {
	Status    Status
	Data      T
	HasData   bool
	Err       error
	FetchedAt time.Time
}

// FetchFunc loads the value for one key.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Options configure freshness and polling for a key.
type Options struct {
	// StaleAfter is how long a successful result stays fresh. Zero means a
	// result is stale immediately (every activation revalidates).
	StaleAfter time.Duration
	// RefetchEvery is the background polling period while the key is active.
	// Zero disables polling.
	RefetchEvery time.Duration
}

type entry[T any] struct {
	key      string
	fetch    FetchFunc[T]
	opts     Options
	active   bool
	res      Result[T]
	inFlight bool
	// invalidated while a fetch is running; the completion triggers one
	// follow-up fetch so the invalidation is not lost.
	invalidated bool
	gen         int // bumped on deactivate/remove; stale completions are discarded
	timer       *time.Timer
	cancel      context.CancelFunc
	subs        map[int]func(Result[T])
}

// Cache is a keyed cache of T values. Entries for different keys are fully
// independent.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	nextSub int
	log     *slog.Logger
	closed  bool
}

// New creates an empty cache.
func New[T any](logger *slog.Logger) *Cache[T] {
	return &Cache[T]{
		entries: make(map[string]*entry[T]),
		log:     logger,
	}
}

func (c *Cache[T]) entryLocked(key string) *entry[T] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{key: key, subs: make(map[int]func(Result[T]))}
		c.entries[key] = e
	}
	return e
}

// Activate marks a key as observed and ensures its data is fresh. If no data
// exists the entry transitions to Loading and a fetch starts; if stale data
// exists it keeps being exposed while a silent revalidation runs; if fresh
// data exists nothing is fetched. Activating a key that is already loading
// never spawns a second request. Polling starts per opts.RefetchEvery.
func (c *Cache[T]) Activate(key string, fetch FetchFunc[T], opts Options) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	e := c.entryLocked(key)
	e.fetch = fetch
	e.opts = opts
	e.active = true

	var notify func()
	switch {
	case e.inFlight:
		// Already being fetched; this activation piggybacks on it.
	case !e.res.HasData:
		notify = c.startFetchLocked(e, false)
	case c.staleLocked(e):
		notify = c.startFetchLocked(e, true)
	}
	c.scheduleNextLocked(e)
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Deactivate stops observing a key: polling stops, any in-flight fetch is
// cancelled, and its eventual completion is discarded. Cached data is kept.
func (c *Cache[T]) Deactivate(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	c.deactivateLocked(e)
	c.mu.Unlock()
}

func (c *Cache[T]) deactivateLocked(e *entry[T]) {
	e.active = false
	e.gen++
	e.inFlight = false
	e.invalidated = false
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Remove deactivates a key and drops its cached data entirely. Subscribers
// are removed with it.
func (c *Cache[T]) Remove(key string) {
	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.deactivateLocked(e)
		delete(c.entries, key)
	}
	c.mu.Unlock()
}

// Invalidate marks a key stale and, if it is currently active, refetches
// immediately. When a fetch for the key is already in flight the refetch is
// queued behind it instead.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || c.closed {
		c.mu.Unlock()
		return
	}
	e.res.FetchedAt = time.Time{}
	var notify func()
	switch {
	case e.inFlight:
		// The running fetch may predate whatever prompted the invalidation,
		// so let it land and then go again.
		e.invalidated = true
	case e.active && e.fetch != nil:
		notify = c.startFetchLocked(e, e.res.HasData)
	}
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Refetch forces a network call for an active key regardless of staleness.
// A no-op while a fetch for the key is already in flight.
func (c *Cache[T]) Refetch(key string) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || c.closed || !e.active || e.inFlight || e.fetch == nil {
		c.mu.Unlock()
		return
	}
	notify := c.startFetchLocked(e, e.res.HasData)
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Snapshot returns the current state of a key.
func (c *Cache[T]) Snapshot(key string) Result[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		return e.res
	}
	return Result[T]{Status: Idle}
}

// Subscribe registers fn to be called after every state change of key.
// Callbacks run outside the cache lock, in no guaranteed order.
func (c *Cache[T]) Subscribe(key string, fn func(Result[T])) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entryLocked(key)
	id := c.nextSub
	c.nextSub++
	e.subs[id] = fn
	return id
}

// Unsubscribe removes a subscription from a key.
func (c *Cache[T]) Unsubscribe(key string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		delete(e.subs, id)
	}
}

// Close stops all polling timers and cancels in-flight fetches. The cache is
// unusable afterwards.
func (c *Cache[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for _, e := range c.entries {
		c.deactivateLocked(e)
	}
}

func (c *Cache[T]) staleLocked(e *entry[T]) bool {
	if e.res.FetchedAt.IsZero() {
		return true
	}
	return time.Since(e.res.FetchedAt) >= e.opts.StaleAfter
}

// startFetchLocked launches the single in-flight fetch for e. When silent,
// the entry keeps exposing its current data and status while revalidating;
// otherwise it transitions to Loading. Returns a notification closure to run
// after the lock is released, or nil.
func (c *Cache[T]) startFetchLocked(e *entry[T], silent bool) func() {
	e.inFlight = true
	gen := e.gen
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel

	var notify func()
	if !silent {
		e.res.Status = Loading
		e.res.Err = nil
		notify = c.notifyLocked(e)
	}

	fetch := e.fetch
	key := e.key
	go func() {
		data, err := fetch(ctx)
		c.complete(key, gen, data, err)
	}()
	return notify
}

// complete applies a fetch outcome, unless the entry's generation moved on
// (deactivated, removed, or superseded). Stale responses are discarded, not
// applied.
func (c *Cache[T]) complete(key string, gen int, data T, err error) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || c.closed || e.gen != gen {
		c.mu.Unlock()
		if c.log != nil {
			c.log.Debug("discarding stale fetch result", "key", key)
		}
		return
	}

	e.inFlight = false
	e.cancel = nil
	if err != nil {
		e.res.Status = Error
		e.res.Err = err
		if c.log != nil {
			c.log.Warn("fetch failed", "key", key, "error", err)
		}
	} else {
		e.res = Result[T]{
			Status:    Success,
			Data:      data,
			HasData:   true,
			FetchedAt: time.Now(),
		}
	}
	var refetch func()
	if e.invalidated {
		e.invalidated = false
		if e.active && e.fetch != nil {
			refetch = c.startFetchLocked(e, e.res.HasData)
		} else {
			// Nobody is watching; leave the entry stale so the next
			// activation revalidates.
			e.res.FetchedAt = time.Time{}
		}
	}
	c.scheduleNextLocked(e)
	notify := c.notifyLocked(e)
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
	if refetch != nil {
		refetch()
	}
}

// scheduleNextLocked arms the polling timer for e, always cancelling any
// previously armed timer first.
func (c *Cache[T]) scheduleNextLocked(e *entry[T]) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if !e.active || e.opts.RefetchEvery <= 0 {
		return
	}
	key := e.key
	gen := e.gen
	e.timer = time.AfterFunc(e.opts.RefetchEvery, func() {
		c.pollFire(key, gen)
	})
}

func (c *Cache[T]) pollFire(key string, gen int) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || c.closed || e.gen != gen || !e.active {
		c.mu.Unlock()
		return
	}
	var notify func()
	if !e.inFlight && e.fetch != nil {
		notify = c.startFetchLocked(e, e.res.HasData)
	} else {
		c.scheduleNextLocked(e)
	}
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// notifyLocked snapshots e's subscribers and state, returning a closure that
// invokes them outside the lock. Returns nil when there are no subscribers.
func (c *Cache[T]) notifyLocked(e *entry[T]) func() {
	if len(e.subs) == 0 {
		return nil
	}
	res := e.res
	fns := make([]func(Result[T]), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(res)
		}
	}
}
