package domain

import (
	"reflect"
	"testing"
	"time"
)

func TestCanonicalSymbols(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"mixed case and order", []string{"BTC", "eth"}, []string{"btc", "eth"}},
		{"reversed order", []string{"eth", "BTC"}, []string{"btc", "eth"}},
		{"duplicates", []string{"btc", "BTC", "Btc"}, []string{"btc"}},
		{"blanks dropped", []string{" ", "sol", ""}, []string{"sol"}},
		{"empty", nil, []string{}},
	}

	for _, tt := range tests {
		got := CanonicalSymbols(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: CanonicalSymbols(%v) = %v, want %v", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestSymbolsKeyEquivalence(t *testing.T) {
	a := SymbolsKey([]string{"BTC", "eth"})
	b := SymbolsKey([]string{"eth", "BTC"})
	if a != b {
		t.Errorf("equivalent sets produced different keys: %q vs %q", a, b)
	}
	if a != "btc,eth" {
		t.Errorf("SymbolsKey = %q, want %q", a, "btc,eth")
	}
}

func TestCredentialExpired(t *testing.T) {
	now := time.Now()

	c := &Credential{Token: "jwt-1"}
	if c.Expired(now) {
		t.Error("credential without expiration should never expire")
	}

	c = &Credential{Token: "jwt-1", ExpiresAt: now.Add(-time.Minute)}
	if !c.Expired(now) {
		t.Error("credential with past expiration should be expired")
	}

	c = &Credential{Token: "jwt-1", ExpiresAt: now.Add(time.Minute)}
	if c.Expired(now) {
		t.Error("credential with future expiration should not be expired")
	}
}

func TestPreferencesWantsTopic(t *testing.T) {
	var p *Preferences
	if p.WantsTopic(TopicNews) {
		t.Error("nil preferences should want no topics")
	}

	p = &Preferences{Content: []string{TopicNews, TopicFun}}
	if !p.WantsTopic(TopicNews) || !p.WantsTopic(TopicFun) {
		t.Error("selected topics should be reported as wanted")
	}
	if p.WantsTopic(TopicCharts) || p.WantsTopic(TopicSocial) {
		t.Error("unselected topics should not be reported as wanted")
	}
}

func TestPreferencesSymbolsFallback(t *testing.T) {
	var p *Preferences
	if got := p.Symbols(); !reflect.DeepEqual(got, CanonicalSymbols(DefaultSymbols)) {
		t.Errorf("nil preferences Symbols() = %v, want default set", got)
	}

	p = &Preferences{Currencies: []string{"BTC"}}
	if got := p.Symbols(); !reflect.DeepEqual(got, []string{"btc"}) {
		t.Errorf("Symbols() = %v, want [btc]", got)
	}
}
