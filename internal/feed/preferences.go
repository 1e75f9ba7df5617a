package feed

import (
	"context"
	"log/slog"
	"sync"

	"coindeck/internal/api"
	"coindeck/internal/domain"
	"coindeck/internal/query"
)

// Preferences resolves the user's preferences, keyed by the credential
// itself: changing credential drops the old entry rather than reusing stale
// preferences under a new identity. A nil *domain.Preferences inside a
// successful result means the user has never completed onboarding.
type Preferences struct {
	cache  *query.Cache[*domain.Preferences]
	client *api.Client
	log    *slog.Logger

	mu       sync.Mutex
	token    string // "" while anonymous; nothing is fetched then
	cacheSub int
	subs     map[int]func(query.Result[*domain.Preferences])
	nextSub  int
}

// NewPreferences creates the preferences fetcher. Results have no freshness
// window: every (re)activation revalidates.
func NewPreferences(client *api.Client, logger *slog.Logger) *Preferences {
	return &Preferences{
		cache:  query.New[*domain.Preferences](logger),
		client: client,
		log:    logger,
		subs:   make(map[int]func(query.Result[*domain.Preferences])),
	}
}

// SetCredential points the fetcher at a new credential token. An empty token
// disables fetching entirely; a changed token removes the previous entry so
// a response for the old credential can never be applied under the new one.
func (p *Preferences) SetCredential(token string) {
	p.mu.Lock()
	if token == p.token {
		p.mu.Unlock()
		return
	}
	oldToken := p.token
	oldSub := p.cacheSub
	p.token = token
	p.mu.Unlock()

	if oldToken != "" {
		p.cache.Unsubscribe(oldToken, oldSub)
		p.cache.Remove(oldToken)
	}
	if token == "" {
		return
	}

	sub := p.cache.Subscribe(token, func(res query.Result[*domain.Preferences]) {
		p.mu.Lock()
		current := p.token == token
		p.mu.Unlock()
		if current {
			p.fanOut(res)
		}
	})
	p.mu.Lock()
	p.cacheSub = sub
	p.mu.Unlock()

	fetch := func(ctx context.Context) (*domain.Preferences, error) {
		return p.client.GetPreferences(ctx, token)
	}
	p.cache.Activate(token, fetch, query.Options{})
}

// InvalidateAndRefetch forces a fresh resolution for the current credential,
// used after onboarding saves preferences so the just-saved object is picked
// up without a restart.
func (p *Preferences) InvalidateAndRefetch() {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()
	if token != "" {
		p.cache.Invalidate(token)
	}
}

// Snapshot returns the state for the current credential. While anonymous the
// result is Idle.
func (p *Preferences) Snapshot() query.Result[*domain.Preferences] {
	p.mu.Lock()
	token := p.token
	p.mu.Unlock()
	if token == "" {
		return query.Result[*domain.Preferences]{Status: query.Idle}
	}
	return p.cache.Snapshot(token)
}

// Subscribe registers fn for preference state changes across credential
// switches.
func (p *Preferences) Subscribe(fn func(query.Result[*domain.Preferences])) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return id
}

// Unsubscribe removes a subscription.
func (p *Preferences) Unsubscribe(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subs, id)
}

// Close stops all timers and in-flight work.
func (p *Preferences) Close() {
	p.cache.Close()
}

func (p *Preferences) fanOut(res query.Result[*domain.Preferences]) {
	p.mu.Lock()
	fns := make([]func(query.Result[*domain.Preferences]), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(res)
	}
}
