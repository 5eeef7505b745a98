// Package session owns the bearer credential: its persistence, the routing
// gate between the login and task screens, and the browser sign-in callback.
package session

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/oauth2"
)

// ErrNoCredential means no session is active. It is a normal state.
var ErrNoCredential = errors.New("not logged in")

// ChangeFunc is called after the credential changes. ok is false after Clear.
type ChangeFunc func(credential string, ok bool)

// Store is the single owner of the session credential. Every Set and Clear
// writes durable storage before the in-memory value changes, so callers never
// observe memory and storage disagreeing.
type Store struct {
	persister Persister

	mu         sync.RWMutex
	credential string
	listeners  []ChangeFunc
}

// NewStore creates an empty store backed by p. Call Load to restore a
// previously persisted credential.
func NewStore(p Persister) *Store {
	return &Store{persister: p}
}

// Load restores the persisted credential into memory. A missing credential
// is not an error; the store simply stays empty.
func (s *Store) Load(ctx context.Context) error {
	credential, err := s.persister.Read(ctx)
	if errors.Is(err, ErrNoCredential) {
		credential, err = "", nil
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.credential = credential
	s.mu.Unlock()
	return nil
}

// Set stores a new credential in durable storage and memory.
func (s *Store) Set(ctx context.Context, credential string) error {
	if credential == "" {
		return s.Clear(ctx)
	}

	s.mu.Lock()
	if err := s.persister.Write(ctx, credential); err != nil {
		s.mu.Unlock()
		return err
	}
	s.credential = credential
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(credential, true)
	}
	return nil
}

// Clear removes the credential from durable storage and memory.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	if err := s.persister.Delete(ctx); err != nil {
		s.mu.Unlock()
		return err
	}
	s.credential = ""
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn("", false)
	}
	return nil
}

// Current returns the credential in effect.
func (s *Store) Current() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential, s.credential != ""
}

// OnChange registers fn to run after every Set or Clear.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) snapshotListeners() []ChangeFunc {
	out := make([]ChangeFunc, len(s.listeners))
	copy(out, s.listeners)
	return out
}

// Token implements oauth2.TokenSource so an oauth2.Transport can attach the
// current credential to each request. The token carries no expiry: an expired
// credential is only discovered when the server rejects it.
func (s *Store) Token() (*oauth2.Token, error) {
	credential, ok := s.Current()
	if !ok {
		return nil, ErrNoCredential
	}
	return &oauth2.Token{AccessToken: credential, TokenType: "Bearer"}, nil
}
