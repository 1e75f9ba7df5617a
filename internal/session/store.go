// Package session holds the current credential and resolved preferences: the
// single source of truth the router and fetchers read. The store itself does
// no network I/O.
package session

import (
	"log/slog"
	"sync"
	"time"

	"coindeck/internal/domain"
)

// Storage persists a bearer credential across runs ("remember me"). A nil
// credential from LoadCredential means none is persisted.
type Storage interface {
	SaveCredential(cred *domain.Credential) error
	LoadCredential() (*domain.Credential, error)
	ClearCredential() error
}

// Store owns the session state. All mutators replace values wholesale; the
// credential is never mutated in place.
type Store struct {
	mu      sync.Mutex
	cred    *domain.Credential
	prefs   *domain.Preferences
	storage Storage // optional
	log     *slog.Logger
	subs    map[int]func()
	nextSub int
}

// New creates an empty session store. storage may be nil when durable
// persistence is disabled.
func New(storage Storage, logger *slog.Logger) *Store {
	return &Store{
		storage: storage,
		log:     logger,
		subs:    make(map[int]func()),
	}
}

// Credential returns the current credential, or nil when anonymous.
func (s *Store) Credential() *domain.Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred
}

// Preferences returns the resolved preferences, or nil when unknown or
// absent.
func (s *Store) Preferences() *domain.Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs
}

// SetCredential replaces the credential. Setting a credential does not by
// itself resolve preferences. When persist is true the credential is written
// to durable storage.
func (s *Store) SetCredential(cred *domain.Credential, persist bool) {
	s.mu.Lock()
	s.cred = cred
	notify := s.notifyLocked()
	s.mu.Unlock()

	if persist && cred != nil && s.storage != nil {
		if err := s.storage.SaveCredential(cred); err != nil {
			s.log.Warn("persisting credential", "error", err)
		}
	}
	notify()
}

// SetPreferences replaces the resolved preferences.
func (s *Store) SetPreferences(prefs *domain.Preferences) {
	s.mu.Lock()
	s.prefs = prefs
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
}

// Logout clears credential and preferences atomically and drops any
// persisted credential from durable storage.
func (s *Store) Logout() {
	s.mu.Lock()
	s.cred = nil
	s.prefs = nil
	notify := s.notifyLocked()
	s.mu.Unlock()

	if s.storage != nil {
		if err := s.storage.ClearCredential(); err != nil {
			s.log.Warn("clearing persisted credential", "error", err)
		}
	}
	notify()
}

// Restore loads a persisted credential, discarding it when expired. Returns
// true when a usable credential was restored.
func (s *Store) Restore(now time.Time) bool {
	if s.storage == nil {
		return false
	}
	cred, err := s.storage.LoadCredential()
	if err != nil {
		s.log.Warn("loading persisted credential", "error", err)
		return false
	}
	if cred == nil {
		return false
	}
	if cred.Expired(now) {
		s.log.Info("discarding expired persisted credential")
		if err := s.storage.ClearCredential(); err != nil {
			s.log.Warn("clearing expired credential", "error", err)
		}
		return false
	}

	s.mu.Lock()
	s.cred = cred
	notify := s.notifyLocked()
	s.mu.Unlock()
	notify()
	return true
}

// Subscribe registers fn to run after every session change. Callbacks run
// outside the store lock.
func (s *Store) Subscribe(fn func()) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return id
}

// Unsubscribe removes a subscription.
func (s *Store) Unsubscribe(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}

func (s *Store) notifyLocked() func() {
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	return func() {
		for _, fn := range fns {
			fn()
		}
	}
}
