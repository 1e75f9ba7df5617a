// Package router decides which screen the application shows. It composes the
// session store and the preferences fetcher into a single discrete view state
// and reacts to their changes; it never performs network I/O itself.
package router

import (
	"log/slog"
	"sync"

	"coindeck/internal/domain"
	"coindeck/internal/feed"
	"coindeck/internal/query"
	"coindeck/internal/session"
)

// View is the top-level screen the application is showing.
type View int

const (
	Login View = iota
	Register
	Onboarding
	Home
)

func (v View) String() string {
	switch v {
	case Login:
		return "login"
	case Register:
		return "register"
	case Onboarding:
		return "onboarding"
	case Home:
		return "home"
	default:
		return "unknown"
	}
}

// Router is the top-level state machine. It owns no data of its own beyond
// the current view; credential and preferences live in the session store.
type Router struct {
	session *session.Store
	prefs   *feed.Preferences
	log     *slog.Logger

	mu      sync.Mutex
	view    View
	subs    map[int]func(View)
	nextSub int
}

// New creates a router starting at the login screen and wires it to react to
// preference resolutions for the active credential.
func New(store *session.Store, prefs *feed.Preferences, logger *slog.Logger) *Router {
	r := &Router{
		session: store,
		prefs:   prefs,
		log:     logger,
		view:    Login,
		subs:    make(map[int]func(View)),
	}
	prefs.Subscribe(r.onPreferences)
	return r
}

// Current returns the active view.
func (r *Router) Current() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// DashboardReady reports whether the home screen can render the dashboard
// proper. Anything less renders the loading placeholder.
func (r *Router) DashboardReady() bool {
	return r.session.Credential() != nil && r.session.Preferences() != nil
}

// Start picks up a credential already present in the session store, such as
// one restored from durable storage, and routes past the login screen.
func (r *Router) Start() {
	cred := r.session.Credential()
	if cred == nil {
		return
	}
	r.prefs.SetCredential(cred.Token)
	r.setView(Home)
}

// SwitchToRegister navigates from login to the registration screen. It has
// no data effects.
func (r *Router) SwitchToRegister() {
	r.mu.Lock()
	ok := r.view == Login
	r.mu.Unlock()
	if ok {
		r.setView(Register)
	}
}

// SwitchToLogin navigates from registration back to the login screen.
func (r *Router) SwitchToLogin() {
	r.mu.Lock()
	ok := r.view == Register
	r.mu.Unlock()
	if ok {
		r.setView(Login)
	}
}

// LoginSucceeded stores the credential and moves to home. Preferences are not
// yet resolved at this point, so home renders its loading placeholder until
// the fetch settles.
func (r *Router) LoginSucceeded(cred *domain.Credential, persist bool) {
	r.session.SetCredential(cred, persist)
	r.prefs.SetCredential(cred.Token)
	r.setView(Home)
}

// OnboardingCompleted runs after preferences were saved: switch to home
// eagerly so the placeholder shows, then force a refetch so the saved object
// is picked up without a restart.
func (r *Router) OnboardingCompleted() {
	r.setView(Home)
	r.prefs.InvalidateAndRefetch()
}

// Logout clears the session, stops preference fetching, and returns to the
// login screen. No dashboard state survives this transition.
func (r *Router) Logout() {
	r.session.Logout()
	r.prefs.SetCredential("")
	r.setView(Login)
}

// Subscribe registers fn to run after every view change. Callbacks run
// outside the router lock.
func (r *Router) Subscribe(fn func(View)) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return id
}

// Unsubscribe removes a subscription.
func (r *Router) Unsubscribe(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
}

// onPreferences reacts to preference resolutions for the active credential.
// Presence routes to the dashboard, absence to onboarding. Errors keep the
// current view; the worst degraded state is the loading placeholder.
func (r *Router) onPreferences(res query.Result[*domain.Preferences]) {
	if r.session.Credential() == nil {
		return
	}
	switch res.Status {
	case query.Success:
		if res.Data != nil {
			r.session.SetPreferences(res.Data)
			r.setView(Home)
			return
		}
		r.session.SetPreferences(nil)
		r.setView(Onboarding)
	case query.Error:
		r.log.Warn("resolving preferences", "error", res.Err)
	}
}

func (r *Router) setView(v View) {
	r.mu.Lock()
	if r.view == v {
		r.mu.Unlock()
		return
	}
	r.view = v
	fns := make([]func(View), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.mu.Unlock()
	for _, fn := range fns {
		fn(v)
	}
}
