// Package insight wraps the on-demand AI insight call with loading, error,
// and output state. Only the most recently initiated request's outcome is
// ever observable: a later call supersedes an earlier one even when the
// earlier one resolves last.
package insight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"coindeck/internal/domain"
)

// DefaultModel is used when the configuration names none.
const DefaultModel = "openrouter/auto"

// Asker issues the AI insight request. Satisfied by *api.Client.
type Asker interface {
	PostInsight(ctx context.Context, prompt, model string) (string, error)
}

// State is a snapshot of the controller. Loading and a settled outcome are
// mutually exclusive.
type State struct {
	Loading bool
	Output  string
	Err     string
}

// Controller owns one in-flight AI request at a time, resolved
// last-writer-wins by invocation order.
type Controller struct {
	client Asker
	model  string
	log    *slog.Logger

	mu      sync.Mutex
	seq     int // monotonically increasing request token
	state   State
	subs    map[int]func(State)
	nextSub int
}

// New creates an idle controller using the given model (DefaultModel when
// empty).
func New(client Asker, model string, logger *slog.Logger) *Controller {
	if model == "" {
		model = DefaultModel
	}
	return &Controller{
		client: client,
		model:  model,
		log:    logger,
		subs:   make(map[int]func(State)),
	}
}

// Prompt derives the insight prompt from the user's preferences.
func Prompt(prefs *domain.Preferences) string {
	investor := "crypto investor"
	coins := []string{"BTC", "ETH"}
	if prefs != nil {
		if prefs.InvestorType != "" {
			investor = prefs.InvestorType
		}
		if len(prefs.Currencies) > 0 {
			coins = prefs.Currencies
		}
	}
	return fmt.Sprintf(
		"I'm a %s. Please give one upbeat crypto market insight today about one of these coins: %s. Keep it to 2-3 sentences.",
		investor, strings.Join(coins, ", "),
	)
}

// Ask starts a new request, clearing any prior output or error immediately.
// If a previous request is still in flight its eventual resolution is
// discarded, regardless of which one completes first.
func (c *Controller) Ask(ctx context.Context, prompt string) {
	c.mu.Lock()
	c.seq++
	token := c.seq
	c.state = State{Loading: true}
	notify := c.notifyLocked()
	c.mu.Unlock()
	notify()

	go func() {
		output, err := c.client.PostInsight(ctx, prompt, c.model)

		c.mu.Lock()
		if token != c.seq {
			c.mu.Unlock()
			c.log.Debug("discarding superseded insight response", "token", token)
			return
		}
		if err != nil {
			c.state = State{Err: err.Error()}
		} else {
			c.state = State{Output: output}
		}
		done := c.notifyLocked()
		c.mu.Unlock()
		done()
	}()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers fn to run after every state change, outside the lock.
func (c *Controller) Subscribe(fn func(State)) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return id
}

// Unsubscribe removes a subscription.
func (c *Controller) Unsubscribe(id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, id)
}

func (c *Controller) notifyLocked() func() {
	state := c.state
	fns := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn(state)
		}
	}
}
