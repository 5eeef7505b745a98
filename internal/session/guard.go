package session

import (
	"context"
	"net/url"
	"strings"
)

// Screen identifies a top-level presentation.
type Screen int

const (
	// ScreenLogin is the login/signup screen.
	ScreenLogin Screen = iota
	// ScreenTasks is the authenticated task screen.
	ScreenTasks
	// ScreenAuthCallback receives a credential from an external redirect.
	ScreenAuthCallback
)

func (s Screen) String() string {
	switch s {
	case ScreenLogin:
		return "login"
	case ScreenTasks:
		return "tasks"
	case ScreenAuthCallback:
		return "auth-success"
	default:
		return "unknown"
	}
}

// CallbackTokenParam is the query parameter carrying the redirected credential.
const CallbackTokenParam = "token"

// Guard decides which screen is live from the Store's credential.
type Guard struct {
	store *Store
}

// NewGuard creates a guard over store.
func NewGuard(store *Store) *Guard {
	return &Guard{store: store}
}

// Authenticated reports whether a credential is present.
func (g *Guard) Authenticated() bool {
	_, ok := g.store.Current()
	return ok
}

// Resolve returns the screen to show when requested is asked for.
// Without a credential the task screen redirects to login; with one the
// login screen redirects to tasks.
func (g *Guard) Resolve(requested Screen) Screen {
	switch requested {
	case ScreenTasks:
		if !g.Authenticated() {
			return ScreenLogin
		}
	case ScreenLogin:
		if g.Authenticated() {
			return ScreenTasks
		}
	}
	return requested
}

// HandleCallback is the transitional screen. It takes the credential from the
// navigation target, stores it, and forwards to the task screen. Without a
// credential it forwards to login. This is the only entry point for a
// credential that did not come from the login or signup endpoints.
func (g *Guard) HandleCallback(ctx context.Context, target *url.URL) (Screen, error) {
	if target == nil {
		return ScreenLogin, nil
	}
	credential := strings.TrimSpace(target.Query().Get(CallbackTokenParam))
	if credential == "" {
		return ScreenLogin, nil
	}
	if err := g.store.Set(ctx, credential); err != nil {
		return ScreenLogin, err
	}
	return ScreenTasks, nil
}
