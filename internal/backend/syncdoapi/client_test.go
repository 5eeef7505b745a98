package syncdoapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"syncdo/internal/backend/syncdoapi"
	"syncdo/internal/config"
	"syncdo/internal/service"
	"syncdo/internal/session"
	"syncdo/internal/testutil"
)

// newClient returns a client pointed at a fresh FakeServer and the store
// feeding its bearer credential.
func newClient(t *testing.T) (*syncdoapi.Client, *testutil.FakeServer, *session.Store, *test.Hook) {
	t.Helper()
	srv := testutil.NewFakeServer(t)
	store := session.NewStore(&session.FilePersister{Path: filepath.Join(t.TempDir(), "token")})
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return syncdoapi.NewWithHTTPClient(srv.URL, srv.Client(), store, logger), srv, store, hook
}

func login(t *testing.T, c *syncdoapi.Client, store *session.Store) string {
	t.Helper()
	token, err := c.Login(context.Background(), service.Credentials{Email: "admin", Password: "admin"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := store.Set(context.Background(), token); err != nil {
		t.Fatalf("store token: %v", err)
	}
	return token
}

func TestLogin_AdminShortcut(t *testing.T) {
	c, _, store, _ := newClient(t)
	token := login(t, c, store)

	claims, err := session.ParseClaims(token)
	if err != nil {
		t.Fatalf("parse claims: %v", err)
	}
	if claims.Email != testutil.AdminEmail {
		t.Errorf("expected email %q, got %q", testutil.AdminEmail, claims.Email)
	}
}

func TestLogin_BadCredentialsSurfaceDetail(t *testing.T) {
	c, _, _, _ := newClient(t)

	_, err := c.Login(context.Background(), service.Credentials{Email: "nobody@example.com", Password: "x"})
	var apiErr *service.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", apiErr.Status)
	}
	if got := service.AuthMessage(err); got != "Invalid email or password" {
		t.Errorf("expected server detail, got %q", got)
	}
}

func TestLogin_MissingFieldsSendNothing(t *testing.T) {
	c, srv, _, _ := newClient(t)

	_, err := c.Login(context.Background(), service.Credentials{Email: "  ", Password: "pw"})
	if !errors.Is(err, service.ErrCredentialsRequired) {
		t.Fatalf("expected ErrCredentialsRequired, got %v", err)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	c, _, _, _ := newClient(t)
	ctx := context.Background()
	req := service.Signup{Email: " ada@example.com ", Password: "pw", Name: " Ada "}

	if _, err := c.Signup(ctx, req); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, err := c.Signup(ctx, req)
	if got := service.AuthMessage(err); got != "Email already registered" {
		t.Errorf("expected duplicate detail, got %q (err %v)", got, err)
	}

	// The trimmed email can log in.
	if _, err := c.Login(ctx, service.Credentials{Email: "ada@example.com", Password: "pw"}); err != nil {
		t.Errorf("login after signup: %v", err)
	}
}

func TestTaskRequestsCarryBearer(t *testing.T) {
	c, srv, store, _ := newClient(t)
	token := login(t, c, store)

	if _, err := c.ListTasks(context.Background()); err != nil {
		t.Fatalf("list: %v", err)
	}

	reqs := srv.Requests()
	last := reqs[len(reqs)-1]
	if last.Path != "/tasks/" {
		t.Fatalf("expected /tasks/, got %s", last.Path)
	}
	if last.Authorization != "Bearer "+token {
		t.Errorf("expected bearer header, got %q", last.Authorization)
	}
	if last.RequestID == "" {
		t.Error("expected a request id header")
	}
	// Auth endpoints never carry a credential.
	if reqs[0].Authorization != "" {
		t.Errorf("login carried authorization %q", reqs[0].Authorization)
	}
}

func TestTaskRequestWithoutCredential(t *testing.T) {
	c, srv, _, _ := newClient(t)

	_, err := c.ListTasks(context.Background())
	if !errors.Is(err, session.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
	if n := len(srv.Requests()); n != 0 {
		t.Errorf("expected no requests, got %d", n)
	}
}

func TestTaskLifecycle(t *testing.T) {
	c, _, store, _ := newClient(t)
	login(t, c, store)
	ctx := context.Background()

	due, err := service.ParseTimestamp("2025-03-01 09:30")
	if err != nil {
		t.Fatal(err)
	}
	created, err := c.CreateTask(ctx, service.NewTask{Title: "  Buy milk ", Priority: "high", DueDate: &due, SyncWithCalendar: true})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected server-assigned id")
	}
	if created.Title != "Buy milk" || created.Priority != service.PriorityHigh || created.IsCompleted {
		t.Errorf("unexpected created task %+v", created)
	}
	if created.DueDate == nil || !created.DueDate.Equal(due.Time) {
		t.Errorf("expected due date %v, got %v", due, created.DueDate)
	}

	updated, err := c.SetCompleted(ctx, created.ID, true)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.IsCompleted || updated.ID != created.ID {
		t.Errorf("unexpected updated task %+v", updated)
	}

	if err := c.DeleteTask(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	tasks, err := c.ListTasks(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no tasks, got %d", len(tasks))
	}
}

func TestCreateTask_DefaultsAndValidation(t *testing.T) {
	c, srv, store, _ := newClient(t)
	login(t, c, store)
	before := len(srv.Requests())

	if _, err := c.CreateTask(context.Background(), service.NewTask{Title: "   "}); !errors.Is(err, service.ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if _, err := c.CreateTask(context.Background(), service.NewTask{Title: "x", Priority: "urgent"}); !errors.Is(err, service.ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
	if after := len(srv.Requests()); after != before {
		t.Errorf("validation failures sent %d requests", after-before)
	}

	task, err := c.CreateTask(context.Background(), service.NewTask{Title: "Title only"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.Priority != service.PriorityMedium || task.IsCompleted {
		t.Errorf("expected medium/not completed, got %s/%v", task.Priority, task.IsCompleted)
	}
}

func TestServerErrorDetail(t *testing.T) {
	c, srv, store, hook := newClient(t)
	login(t, c, store)
	srv.Fail("PUT /tasks/:id", http.StatusInternalServerError, "database unavailable")

	_, err := c.SetCompleted(context.Background(), "1", true)
	var apiErr *service.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != 500 || apiErr.Detail != "database unavailable" {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if apiErr.Unauthorized() {
		t.Error("500 must not be unauthorized")
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Data["status"] != 500 {
		t.Errorf("expected a debug entry with status 500, got %+v", entry)
	}
}

func TestUnauthorized(t *testing.T) {
	c, srv, store, _ := newClient(t)
	if err := store.Set(context.Background(), "not-a-jwt"); err != nil {
		t.Fatal(err)
	}

	_, err := c.ListTasks(context.Background())
	var apiErr *service.APIError
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if apiErr.Detail != "Invalid token" {
		t.Errorf("expected detail, got %q", apiErr.Detail)
	}

	// An expired token minted by the server is rejected the same way.
	if err := store.Set(context.Background(), srv.TokenFor("old@example.com", -time.Minute)); err != nil {
		t.Fatal(err)
	}
	_, err = c.ListTasks(context.Background())
	if !errors.As(err, &apiErr) || !apiErr.Unauthorized() {
		t.Fatalf("expected 401 APIError for expired token, got %v", err)
	}
}

func TestValidationDetailList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail": [ {"loc": ["body", "title"], "msg": "field required"} ]}`))
	}))
	defer srv.Close()

	c := syncdoapi.NewWithHTTPClient(srv.URL, nil, nil, nil)
	_, err := c.Signup(context.Background(), service.Signup{Email: "a@b.c", Password: "pw", Name: "A"})
	var apiErr *service.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	want := `[{"loc":["body","title"],"msg":"field required"}]`
	if apiErr.Detail != want {
		t.Errorf("expected %s, got %s", want, apiErr.Detail)
	}
}

func TestErrorWithoutDetailFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := syncdoapi.NewWithHTTPClient(srv.URL, nil, nil, nil)
	_, err := c.Login(context.Background(), service.Credentials{Email: "a@b.c", Password: "pw"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := service.AuthMessage(err); got != service.DefaultAuthError {
		t.Errorf("expected default auth error, got %q", got)
	}
}

func TestRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	cfg, err := config.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	cfg.APIURL = srv.URL
	cfg.RequestTimeout = 50 * time.Millisecond
	c := syncdoapi.New(cfg, nil, nil)

	_, err = c.Login(context.Background(), service.Credentials{Email: "a@b.c", Password: "pw"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout message, got %q", err)
	}
}
