// Package api provides the HTTP client for the coindeck backend: auth,
// preferences, crypto news, coin prices, and AI insight generation. All
// normalization of loosely-shaped server payloads happens here, so the rest
// of the client only ever sees well-typed domain values.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coindeck/internal/domain"
)

// Error is the single failure type surfaced by every API call. Message is
// human-readable and safe to render directly.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
	}
	return "api: " + e.Message
}

// Client talks to the coindeck backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a client for the backend at baseURL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger,
	}
}

// Account is the server's representation of a registered user.
type Account struct {
	ID       int    `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, fullName, email, password string) (*Account, error) {
	body := map[string]string{"fullName": fullName, "email": email, "password": password}
	var acct Account
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", body, &acct); err != nil {
		return nil, err
	}
	return &acct, nil
}

type loginResponse struct {
	Token           string `json:"token"`
	TokenExpiration string `json:"tokenExpiration"`
}

// Login authenticates and returns a bearer credential. The expiration is
// optional; a missing or unparsable value yields a credential that never
// expires client-side.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Credential, error) {
	body := map[string]string{"email": email, "password": password}
	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", body, &resp); err != nil {
		return nil, err
	}
	cred := &domain.Credential{Token: resp.Token}
	if resp.TokenExpiration != "" {
		if t, err := time.Parse(time.RFC3339, resp.TokenExpiration); err == nil {
			cred.ExpiresAt = t
		}
	}
	return cred, nil
}

// GetPreferences fetches the preferences for the given credential. A "not
// found" status is not an error: it resolves to (nil, nil), meaning the user
// has never completed onboarding.
func (c *Client) GetPreferences(ctx context.Context, token string) (*domain.Preferences, error) {
	var prefs domain.Preferences
	err := c.doJSON(ctx, http.MethodGet, "/preferences", token, nil, &prefs)
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &prefs, nil
}

// PreferencesUpdate is the payload for saving preferences.
type PreferencesUpdate struct {
	Currencies   []string `json:"currencies"`
	InvestorType string   `json:"investor_type"`
	Content      []string `json:"content"`
}

// PutPreferences saves preferences and returns the stored object.
func (c *Client) PutPreferences(ctx context.Context, token string, update PreferencesUpdate) (*domain.Preferences, error) {
	var prefs domain.Preferences
	if err := c.doJSON(ctx, http.MethodPut, "/preferences", token, update, &prefs); err != nil {
		return nil, err
	}
	return &prefs, nil
}

type newsItem struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	PublishedAt string `json:"published_at"`
	URL         string `json:"url"`
	Source      string `json:"source"`
}

type newsResponse struct {
	Count    int        `json:"count"`
	Next     string     `json:"next"`
	Previous string     `json:"previous"`
	Results  []newsItem `json:"results"`
}

// FetchNews fetches the crypto news feed. Server ordering is preserved.
func (c *Client) FetchNews(ctx context.Context) ([]domain.FeedItem, error) {
	var resp newsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/news/crypto", "", nil, &resp); err != nil {
		return nil, err
	}
	items := make([]domain.FeedItem, 0, len(resp.Results))
	for _, n := range resp.Results {
		items = append(items, domain.FeedItem{
			ID:          n.ID,
			Title:       n.Title,
			Description: n.Description,
			PublishedAt: parseNewsTime(n.PublishedAt),
			URL:         n.URL,
			Source:      n.Source,
		})
	}
	return items, nil
}

// parseNewsTime parses the published_at field, tolerating a few common
// formats. An unparsable value yields a zero time rather than an error.
func parseNewsTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FetchCoinPrices fetches current prices for a symbol set. Symbols are
// canonicalized before the request, keys in the result are lower-cased, and
// values are normalized to plain numbers; symbols whose raw value has no
// valid numeric form are omitted.
func (c *Client) FetchCoinPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	canon := domain.CanonicalSymbols(symbols)
	if len(canon) == 0 {
		return map[string]float64{}, nil
	}

	path := "/crypto/prices?symbols=" + url.QueryEscape(strings.Join(canon, ","))
	var raw map[string]any
	if err := c.doJSON(ctx, http.MethodGet, path, "", nil, &raw); err != nil {
		return nil, err
	}

	prices := make(map[string]float64, len(raw))
	for sym, v := range raw {
		if p, ok := NormalizePrice(v); ok {
			prices[strings.ToLower(sym)] = p
		} else {
			c.log.Warn("dropping non-numeric price", "symbol", sym)
		}
	}
	return prices, nil
}

// priceFields are the conventional field names a price object may carry,
// checked in order.
var priceFields = []string{"usd", "price", "value", "last", "current_price"}

// NormalizePrice reduces the raw per-symbol value to a plain number. The
// server may send a number, a numeric string, or an object carrying the
// number under one of several conventional field names.
func NormalizePrice(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	case map[string]any:
		for _, field := range priceFields {
			if inner, ok := val[field]; ok {
				if f, ok := NormalizePrice(inner); ok {
					return f, true
				}
			}
		}
	}
	return 0, false
}

type insightRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model"`
}

type insightResponse struct {
	Output string `json:"output"`
}

// PostInsight requests an AI-generated market insight.
func (c *Client) PostInsight(ctx context.Context, prompt, model string) (string, error) {
	var resp insightResponse
	if err := c.doJSON(ctx, http.MethodPost, "/ai/insight", "", insightRequest{Prompt: prompt, Model: model}, &resp); err != nil {
		return "", err
	}
	return resp.Output, nil
}

// --- transport ---

// doJSON performs a request with an optional JSON body and bearer token,
// decoding a 2xx JSON response into out. Non-2xx responses become *Error
// with the response body text as the message.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &Error{Message: fmt.Sprintf("encoding request: %v", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &Error{Message: err.Error()}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(readBody(resp.Body)))
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Status: resp.StatusCode, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	return nil
}

// readBody reads at most 4KB of an error response body.
func readBody(r io.Reader) []byte {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	return data
}
