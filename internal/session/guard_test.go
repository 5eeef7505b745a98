package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"syncdo/internal/session"
)

func newGuard(t *testing.T) (*session.Guard, *session.Store) {
	t.Helper()
	store := session.NewStore(session.NewFilePersister(filepath.Join(t.TempDir(), "token")))
	return session.NewGuard(store), store
}

func TestGuard_Resolve(t *testing.T) {
	guard, store := newGuard(t)

	if got := guard.Resolve(session.ScreenTasks); got != session.ScreenLogin {
		t.Errorf("unauthenticated tasks should redirect to login, got %s", got)
	}
	if got := guard.Resolve(session.ScreenLogin); got != session.ScreenLogin {
		t.Errorf("unauthenticated login should stay, got %s", got)
	}

	if err := store.Set(context.Background(), "tok"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got := guard.Resolve(session.ScreenLogin); got != session.ScreenTasks {
		t.Errorf("authenticated login should redirect to tasks, got %s", got)
	}
	if got := guard.Resolve(session.ScreenTasks); got != session.ScreenTasks {
		t.Errorf("authenticated tasks should stay, got %s", got)
	}

	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := guard.Resolve(session.ScreenTasks); got != session.ScreenLogin {
		t.Errorf("after logout tasks should redirect to login, got %s", got)
	}
}

func TestGuard_HandleCallback(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		wantScreen session.Screen
		wantToken  string
	}{
		{"with token", "http://localhost:8085/auth-success?token=abc", session.ScreenTasks, "abc"},
		{"without token", "http://localhost:8085/auth-success", session.ScreenLogin, ""},
		{"blank token", "http://localhost:8085/auth-success?token=%20", session.ScreenLogin, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			guard, store := newGuard(t)
			u, _ := url.Parse(tt.target)
			screen, err := guard.HandleCallback(context.Background(), u)
			if err != nil {
				t.Fatalf("callback: %v", err)
			}
			if screen != tt.wantScreen {
				t.Errorf("expected %s, got %s", tt.wantScreen, screen)
			}
			got, _ := store.Current()
			if got != tt.wantToken {
				t.Errorf("expected token %q, got %q", tt.wantToken, got)
			}
		})
	}
}

func TestCallbackServer_Handler(t *testing.T) {
	guard, store := newGuard(t)
	srv, err := session.NewCallbackServer(guard)
	if err != nil {
		t.Skipf("no free callback port: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, session.CallbackPath, nil)
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, session.CallbackPath+"?token=xyz", nil)
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if got, _ := store.Current(); got != "xyz" {
		t.Errorf("expected token stored, got %q", got)
	}
}

func TestCallbackServer_WaitForCallback(t *testing.T) {
	guard, store := newGuard(t)
	srv, err := session.NewCallbackServer(guard)
	if err != nil {
		t.Skipf("no free callback port: %v", err)
	}

	done := make(chan session.Screen, 1)
	go func() {
		screen, _ := srv.WaitForCallback(context.Background())
		done <- screen
	}()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get(srv.RedirectURL() + "?token=browser-token")
		if err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("callback request: %v", err)
	}
	resp.Body.Close()

	select {
	case screen := <-done:
		if screen != session.ScreenTasks {
			t.Errorf("expected tasks screen, got %s", screen)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("callback was not handled")
	}
	if got, _ := store.Current(); got != "browser-token" {
		t.Errorf("expected token stored, got %q", got)
	}
}

func TestCallbackServer_ContextCancelled(t *testing.T) {
	guard, _ := newGuard(t)
	srv, err := session.NewCallbackServer(guard)
	if err != nil {
		t.Skipf("no free callback port: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	screen, err := srv.WaitForCallback(ctx)
	if err == nil {
		t.Fatal("expected error")
	}
	if screen != session.ScreenLogin {
		t.Errorf("expected login screen, got %s", screen)
	}
}
