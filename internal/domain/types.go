// Package domain defines the core data types shared across the coindeck
// client: credentials, user preferences, and news feed items.
package domain

import (
	"sort"
	"strings"
	"time"
)

// Credential is an opaque bearer token for an authenticated session, replaced
// wholesale on every login and cleared on logout.
type Credential struct {
	Token     string
	ExpiresAt time.Time // zero when the server did not supply an expiration
}

// Expired reports whether the credential carries an expiration in the past.
// A zero ExpiresAt never expires.
func (c *Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Content topics controlling which dashboard cards are visible.
const (
	TopicNews   = "news"
	TopicCharts = "charts"
	TopicSocial = "social"
	TopicFun    = "fun"
)

// InvestorTypes are the categories offered during onboarding.
var InvestorTypes = []string{"HODLer", "Day Trader", "NFT Collector", "Swing Trader", "Other"}

// DefaultSymbols is the fallback asset set used when preferences name none.
var DefaultSymbols = []string{"btc", "eth", "sol", "ada", "dot"}

// Preferences is the user's dashboard configuration as resolved from the
// server. A nil *Preferences means the user has never completed onboarding,
// which is a distinct state from an empty Preferences value.
type Preferences struct {
	ID           int      `json:"id"`
	UserID       int      `json:"userId"`
	Currencies   []string `json:"currencies"`
	InvestorType string   `json:"investor_type"`
	Content      []string `json:"content"`
}

// WantsTopic reports whether the given content topic was selected.
func (p *Preferences) WantsTopic(topic string) bool {
	if p == nil {
		return false
	}
	for _, t := range p.Content {
		if t == topic {
			return true
		}
	}
	return false
}

// Symbols returns the canonicalized asset symbols the user follows, falling
// back to DefaultSymbols when none are set.
func (p *Preferences) Symbols() []string {
	if p == nil || len(p.Currencies) == 0 {
		return CanonicalSymbols(DefaultSymbols)
	}
	return CanonicalSymbols(p.Currencies)
}

// FeedItem is a single news article. Ordering is server-provided.
type FeedItem struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"-"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
}

// CanonicalSymbols lower-cases, de-duplicates, and sorts a symbol set so that
// equivalent requests share one cache key. Blank entries are dropped.
func CanonicalSymbols(symbols []string) []string {
	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// SymbolsKey joins a canonicalized symbol set into a single cache key.
func SymbolsKey(symbols []string) string {
	return strings.Join(CanonicalSymbols(symbols), ",")
}
