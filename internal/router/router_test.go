package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coindeck/internal/api"
	"coindeck/internal/domain"
	"coindeck/internal/feed"
	"coindeck/internal/session"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached before deadline")
}

// prefsServer serves GET/PUT /preferences backed by an in-memory object, the
// way the real backend behaves for a single user.
type prefsServer struct {
	mu    sync.Mutex
	prefs *domain.Preferences
	gets  atomic.Int32
	hold  chan struct{} // when non-nil, GET blocks until closed
}

func (s *prefsServer) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			s.gets.Add(1)
			s.mu.Lock()
			hold := s.hold
			prefs := s.prefs
			s.mu.Unlock()
			if hold != nil {
				<-hold
				s.mu.Lock()
				prefs = s.prefs
				s.mu.Unlock()
			}
			if prefs == nil {
				http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)
				return
			}
			json.NewEncoder(w).Encode(prefs)
		case http.MethodPut:
			var update api.PreferencesUpdate
			json.NewDecoder(r.Body).Decode(&update)
			s.mu.Lock()
			s.prefs = &domain.Preferences{
				ID:           1,
				UserID:       1,
				Currencies:   update.Currencies,
				InvestorType: update.InvestorType,
				Content:      update.Content,
			}
			prefs := s.prefs
			s.mu.Unlock()
			json.NewEncoder(w).Encode(prefs)
		}
	})
}

func newHarness(t *testing.T, backend *prefsServer) (*Router, *session.Store, *api.Client, func()) {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	client := api.NewClient(srv.URL, testLogger())
	store := session.New(nil, testLogger())
	prefs := feed.NewPreferences(client, testLogger())
	r := New(store, prefs, testLogger())
	return r, store, client, func() {
		prefs.Close()
		srv.Close()
	}
}

func TestSwitchBetweenLoginAndRegister(t *testing.T) {
	r, _, _, done := newHarness(t, &prefsServer{})
	defer done()

	if r.Current() != Login {
		t.Fatalf("initial view = %v, want login", r.Current())
	}
	r.SwitchToRegister()
	if r.Current() != Register {
		t.Errorf("view = %v, want register", r.Current())
	}
	// Switching to register again from register is a no-op.
	r.SwitchToRegister()
	if r.Current() != Register {
		t.Errorf("view = %v, want register", r.Current())
	}
	r.SwitchToLogin()
	if r.Current() != Login {
		t.Errorf("view = %v, want login", r.Current())
	}
}

func TestPresentPreferencesRouteToDashboard(t *testing.T) {
	backend := &prefsServer{prefs: &domain.Preferences{
		ID: 1, UserID: 1, Currencies: []string{"BTC"}, InvestorType: "HODLer", Content: []string{"news"},
	}}
	r, store, _, done := newHarness(t, backend)
	defer done()

	r.LoginSucceeded(&domain.Credential{Token: "jwt-1"}, false)
	if r.Current() != Home {
		t.Fatalf("view after login = %v, want home", r.Current())
	}
	if r.DashboardReady() {
		t.Error("DashboardReady before preferences resolved, want placeholder")
	}

	waitFor(t, time.Second, r.DashboardReady)
	if got := store.Preferences(); got == nil || got.InvestorType != "HODLer" {
		t.Errorf("stored preferences = %v, want HODLer", got)
	}
}

func TestAbsenceRoutesToOnboardingThenHome(t *testing.T) {
	backend := &prefsServer{}
	r, store, client, done := newHarness(t, backend)
	defer done()

	r.LoginSucceeded(&domain.Credential{Token: "jwt-1"}, false)
	waitFor(t, time.Second, func() bool { return r.Current() == Onboarding })
	if r.DashboardReady() {
		t.Error("DashboardReady while onboarding, want false")
	}

	// User submits the onboarding form.
	saved, err := client.PutPreferences(context.Background(), "jwt-1", api.PreferencesUpdate{
		Currencies:   []string{"BTC"},
		InvestorType: "HODLer",
		Content:      []string{"news", "fun"},
	})
	if err != nil {
		t.Fatalf("PutPreferences: %v", err)
	}
	if saved.InvestorType != "HODLer" {
		t.Fatalf("saved.InvestorType = %q, want HODLer", saved.InvestorType)
	}

	gets := backend.gets.Load()
	r.OnboardingCompleted()
	if r.Current() != Home {
		t.Fatalf("view after onboarding = %v, want home (placeholder)", r.Current())
	}

	waitFor(t, time.Second, r.DashboardReady)
	if backend.gets.Load() != gets+1 {
		t.Errorf("refetches after onboarding = %d, want 1", backend.gets.Load()-gets)
	}
	prefs := store.Preferences()
	if prefs == nil {
		t.Fatal("stored preferences = nil after refetch")
	}
	if !prefs.WantsTopic(domain.TopicNews) || !prefs.WantsTopic(domain.TopicFun) {
		t.Errorf("topics = %v, want news and fun", prefs.Content)
	}
	if prefs.WantsTopic(domain.TopicCharts) || prefs.WantsTopic(domain.TopicSocial) {
		t.Errorf("topics = %v, want charts and social excluded", prefs.Content)
	}
}

func TestHomeBeforeRefetchResolves(t *testing.T) {
	backend := &prefsServer{hold: make(chan struct{})}
	backend.prefs = &domain.Preferences{ID: 1, UserID: 1, Content: []string{"news"}}
	r, _, _, done := newHarness(t, backend)
	defer done()

	r.LoginSucceeded(&domain.Credential{Token: "jwt-1"}, false)
	if r.Current() != Home {
		t.Fatalf("view = %v, want home", r.Current())
	}
	if r.DashboardReady() {
		t.Error("DashboardReady while fetch in flight, want placeholder")
	}

	close(backend.hold)
	waitFor(t, time.Second, r.DashboardReady)
}

func TestLogoutClearsSessionAndStopsFetching(t *testing.T) {
	backend := &prefsServer{prefs: &domain.Preferences{ID: 1, UserID: 1, Content: []string{"news"}}}
	r, store, _, done := newHarness(t, backend)
	defer done()

	r.LoginSucceeded(&domain.Credential{Token: "jwt-1"}, false)
	waitFor(t, time.Second, r.DashboardReady)

	gets := backend.gets.Load()
	r.Logout()
	if r.Current() != Login {
		t.Errorf("view after logout = %v, want login", r.Current())
	}
	if store.Credential() != nil || store.Preferences() != nil {
		t.Error("session not cleared on logout")
	}
	if r.DashboardReady() {
		t.Error("DashboardReady after logout, want false")
	}

	time.Sleep(50 * time.Millisecond)
	if backend.gets.Load() != gets {
		t.Errorf("preference fetches after logout = %d, want 0", backend.gets.Load()-gets)
	}
}

func TestPreferenceErrorKeepsPlaceholder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"detail":"boom"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := api.NewClient(srv.URL, testLogger())
	store := session.New(nil, testLogger())
	prefs := feed.NewPreferences(client, testLogger())
	defer prefs.Close()
	r := New(store, prefs, testLogger())

	r.LoginSucceeded(&domain.Credential{Token: "jwt-1"}, false)
	time.Sleep(50 * time.Millisecond)

	if r.Current() != Home {
		t.Errorf("view after preference error = %v, want home", r.Current())
	}
	if r.DashboardReady() {
		t.Error("DashboardReady after preference error, want placeholder")
	}
}

func TestStartRestoresPersistedCredential(t *testing.T) {
	backend := &prefsServer{prefs: &domain.Preferences{ID: 1, UserID: 1, Content: []string{"charts"}}}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := api.NewClient(srv.URL, testLogger())
	store := session.New(nil, testLogger())
	prefs := feed.NewPreferences(client, testLogger())
	defer prefs.Close()
	r := New(store, prefs, testLogger())

	// Nothing in the session: Start stays on login.
	r.Start()
	if r.Current() != Login {
		t.Fatalf("view = %v, want login", r.Current())
	}

	store.SetCredential(&domain.Credential{Token: "jwt-restored"}, false)
	r.Start()
	if r.Current() != Home {
		t.Fatalf("view = %v, want home", r.Current())
	}
	waitFor(t, time.Second, r.DashboardReady)
}
