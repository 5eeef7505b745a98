package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// CallbackPath is where the browser lands after federated sign-in.
	CallbackPath = "/auth-success"

	// CallbackTimeout bounds how long WaitForCallback waits for the browser.
	CallbackTimeout = 5 * time.Minute

	callbackStartPort   = 8085
	callbackMaxAttempts = 5
)

// ErrCallbackTimeout is returned when the browser never calls back.
var ErrCallbackTimeout = errors.New("sign-in callback timed out")

// CallbackServer is a short-lived local HTTP server that receives the
// federated sign-in redirect and hands it to the Guard.
type CallbackServer struct {
	guard    *Guard
	listener net.Listener
	echo     *echo.Echo
	result   chan callbackResult
}

type callbackResult struct {
	screen Screen
	err    error
}

// NewCallbackServer binds the first free port in 8085..8089 on localhost.
func NewCallbackServer(guard *Guard) (*CallbackServer, error) {
	var listener net.Listener
	var err error
	for i := 0; i < callbackMaxAttempts; i++ {
		listener, err = net.Listen("tcp", fmt.Sprintf("localhost:%d", callbackStartPort+i))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("could not bind a local port for the sign-in callback")
	}
	return newCallbackServer(guard, listener), nil
}

func newCallbackServer(guard *Guard, listener net.Listener) *CallbackServer {
	s := &CallbackServer{
		guard:    guard,
		listener: listener,
		echo:     echo.New(),
		result:   make(chan callbackResult, 1),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Listener = listener
	s.echo.GET(CallbackPath, s.handle)
	return s
}

// Handler exposes the routes for tests.
func (s *CallbackServer) Handler() http.Handler {
	return s.echo
}

// RedirectURL is the address the identity provider must redirect to.
func (s *CallbackServer) RedirectURL() string {
	return "http://" + s.listener.Addr().String() + CallbackPath
}

func (s *CallbackServer) handle(c echo.Context) error {
	screen, err := s.guard.HandleCallback(c.Request().Context(), c.Request().URL)
	select {
	case s.result <- callbackResult{screen: screen, err: err}:
	default:
	}
	switch {
	case err != nil:
		return c.String(http.StatusInternalServerError, "Could not store the session.")
	case screen != ScreenTasks:
		return c.String(http.StatusBadRequest, "No token in callback.")
	}
	return c.HTML(http.StatusOK, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
}

// WaitForCallback serves until the first callback arrives, ctx ends, or
// CallbackTimeout passes. It returns the screen the guard forwarded to.
func (s *CallbackServer) WaitForCallback(ctx context.Context) (Screen, error) {
	serveErr := make(chan error, 1)
	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutdownCtx)
	}()

	timer := time.NewTimer(CallbackTimeout)
	defer timer.Stop()

	select {
	case r := <-s.result:
		return r.screen, r.err
	case err := <-serveErr:
		return ScreenLogin, err
	case <-timer.C:
		return ScreenLogin, ErrCallbackTimeout
	case <-ctx.Done():
		return ScreenLogin, ctx.Err()
	}
}

// Close releases the listener without serving.
func (s *CallbackServer) Close() error {
	return s.listener.Close()
}
