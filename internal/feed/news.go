// Package feed provides the concrete data feeds behind the dashboard: the
// news feed, the coin price feed, and the credential-keyed preferences
// fetcher. Each is an instance of the generic query cache with its own keys,
// staleness window, and polling cadence.
package feed

import (
	"context"
	"log/slog"
	"time"

	"coindeck/internal/api"
	"coindeck/internal/domain"
	"coindeck/internal/query"
	"coindeck/internal/util"
)

const newsKey = "news"

// News polls the crypto news feed under a single constant key. Cached content
// is shown immediately on revisit; refreshes happen silently in the
// background.
type News struct {
	cache  *query.Cache[[]domain.FeedItem]
	client *api.Client
	opts   query.Options
}

// NewNews creates the news feed. Typical cadence: stale after 2 minutes,
// background refetch every 5 minutes.
func NewNews(client *api.Client, logger *slog.Logger, staleAfter, refetchEvery time.Duration) *News {
	return &News{
		cache:  query.New[[]domain.FeedItem](logger),
		client: client,
		opts:   query.Options{StaleAfter: staleAfter, RefetchEvery: refetchEvery},
	}
}

func (n *News) fetch(ctx context.Context) ([]domain.FeedItem, error) {
	var items []domain.FeedItem
	err := util.Retry(ctx, 2, 500*time.Millisecond, func(ctx context.Context) error {
		var ferr error
		items, ferr = n.client.FetchNews(ctx)
		return ferr
	})
	return items, err
}

// Activate starts (or resumes) observing the feed.
func (n *News) Activate() {
	n.cache.Activate(newsKey, n.fetch, n.opts)
}

// Deactivate stops polling. Cached items are kept for the next activation.
func (n *News) Deactivate() {
	n.cache.Deactivate(newsKey)
}

// Refetch forces an immediate refresh regardless of freshness.
func (n *News) Refetch() {
	n.cache.Refetch(newsKey)
}

// Snapshot returns the current feed state.
func (n *News) Snapshot() query.Result[[]domain.FeedItem] {
	return n.cache.Snapshot(newsKey)
}

// Subscribe registers fn for feed state changes.
func (n *News) Subscribe(fn func(query.Result[[]domain.FeedItem])) int {
	return n.cache.Subscribe(newsKey, fn)
}

// Unsubscribe removes a subscription.
func (n *News) Unsubscribe(id int) {
	n.cache.Unsubscribe(newsKey, id)
}

// Close stops all timers and in-flight work.
func (n *News) Close() {
	n.cache.Close()
}
