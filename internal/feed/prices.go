package feed

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"coindeck/internal/api"
	"coindeck/internal/domain"
	"coindeck/internal/query"
)

// Prices polls coin prices for the user's chosen symbol set. Cache entries
// are keyed by the canonicalized set, so {BTC,eth} and {eth,BTC} share one
// entry and one in-flight request. Prices move faster than news, so both the
// staleness window and the polling period are short.
type Prices struct {
	cache  *query.Cache[map[string]float64]
	client *api.Client
	opts   query.Options
	log    *slog.Logger

	mu       sync.Mutex
	key      string // "" while the symbol set is empty
	symbols  []string
	cacheSub int
	subs     map[int]func(query.Result[map[string]float64])
	nextSub  int
}

// NewPrices creates the price feed. Typical cadence: stale after 15 seconds,
// background refetch every 30 seconds.
func NewPrices(client *api.Client, logger *slog.Logger, staleAfter, refetchEvery time.Duration) *Prices {
	return &Prices{
		cache:  query.New[map[string]float64](logger),
		client: client,
		opts:   query.Options{StaleAfter: staleAfter, RefetchEvery: refetchEvery},
		log:    logger,
		subs:   make(map[int]func(query.Result[map[string]float64])),
	}
}

// emptyResult is what an empty symbol set resolves to: no network call, an
// empty price map.
func emptyResult() query.Result[map[string]float64] {
	return query.Result[map[string]float64]{
		Status:    query.Success,
		Data:      map[string]float64{},
		HasData:   true,
		FetchedAt: time.Now(),
	}
}

// SetSymbols switches the feed to a new symbol set. Equivalent sets (same
// canonical form) keep the existing entry, resuming it if it had been
// deactivated. Switching deactivates the old entry so a
// fetch still in flight for it is discarded on arrival, and an empty set
// short-circuits without any network activity.
func (p *Prices) SetSymbols(symbols []string) {
	canon := domain.CanonicalSymbols(symbols)
	newKey := domain.SymbolsKey(canon)

	p.mu.Lock()
	if newKey == p.key {
		p.mu.Unlock()
		// Same set; make sure the entry is active again after a Deactivate.
		// Activation of a fresh entry fetches nothing.
		if newKey != "" {
			p.cache.Activate(newKey, p.fetchFunc(canon), p.opts)
		}
		return
	}
	oldKey := p.key
	oldSub := p.cacheSub
	p.key = newKey
	p.symbols = canon
	p.mu.Unlock()

	if oldKey != "" {
		p.cache.Unsubscribe(oldKey, oldSub)
		p.cache.Deactivate(oldKey)
	}

	if newKey == "" {
		p.fanOut(emptyResult())
		return
	}

	sub := p.cache.Subscribe(newKey, func(res query.Result[map[string]float64]) {
		p.mu.Lock()
		current := p.key == newKey
		p.mu.Unlock()
		if current {
			p.fanOut(res)
		}
	})
	p.mu.Lock()
	p.cacheSub = sub
	p.mu.Unlock()

	p.cache.Activate(newKey, p.fetchFunc(canon), p.opts)
}

func (p *Prices) fetchFunc(symbols []string) query.FetchFunc[map[string]float64] {
	return func(ctx context.Context) (map[string]float64, error) {
		return p.client.FetchCoinPrices(ctx, symbols)
	}
}

// Deactivate stops polling for the current symbol set.
func (p *Prices) Deactivate() {
	p.mu.Lock()
	key := p.key
	p.mu.Unlock()
	if key != "" {
		p.cache.Deactivate(key)
	}
}

// Symbols returns the current canonical symbol set.
func (p *Prices) Symbols() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.symbols
}

// Snapshot returns the state for the current symbol set. An empty set always
// reads as an empty successful result.
func (p *Prices) Snapshot() query.Result[map[string]float64] {
	p.mu.Lock()
	key := p.key
	p.mu.Unlock()
	if key == "" {
		return emptyResult()
	}
	return p.cache.Snapshot(key)
}

// Subscribe registers fn for price state changes across symbol-set switches.
func (p *Prices) Subscribe(fn func(query.Result[map[string]float64])) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return id
}

// Unsubscribe removes a subscription.
func (p *Prices) Unsubscribe(id int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subs, id)
}

// Close stops all timers and in-flight work.
func (p *Prices) Close() {
	p.cache.Close()
}

func (p *Prices) fanOut(res query.Result[map[string]float64]) {
	p.mu.Lock()
	fns := make([]func(query.Result[map[string]float64]), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(res)
	}
}
