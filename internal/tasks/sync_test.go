package tasks_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"syncdo/internal/service"
	"syncdo/internal/session"
	"syncdo/internal/tasks"
	"syncdo/internal/testutil"
)

type fixture struct {
	svc    *testutil.FakeService
	store  *session.Store
	guard  *session.Guard
	syncer *tasks.Syncer
	hook   *test.Hook
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc := testutil.NewFakeService()
	store := session.NewStore(session.NewFilePersister(filepath.Join(t.TempDir(), "token")))
	svc.Credential = store.Current
	logger, hook := test.NewNullLogger()
	return &fixture{
		svc:    svc,
		store:  store,
		guard:  session.NewGuard(store),
		syncer: tasks.NewSyncer(svc, store, logger),
		hook:   hook,
	}
}

func (f *fixture) login(t *testing.T, email, password string) {
	t.Helper()
	ctx := context.Background()
	token, err := f.svc.Login(ctx, service.Credentials{Email: email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := f.store.Set(ctx, token); err != nil {
		t.Fatalf("set credential: %v", err)
	}
}

func checkCounts(t *testing.T, s *tasks.Syncer, todo, finished int) {
	t.Helper()
	v := s.View(tasks.TabTasks)
	if v.TodoCount != todo || v.FinishedCount != finished {
		t.Errorf("expected counts %d/%d, got %d/%d", todo, finished, v.TodoCount, v.FinishedCount)
	}
	if v.TodoCount+v.FinishedCount != len(s.Snapshot()) {
		t.Errorf("counts %d+%d do not add up to %d cached tasks", v.TodoCount, v.FinishedCount, len(s.Snapshot()))
	}
}

func contains(list []service.Task, id service.TaskID) bool {
	for _, t := range list {
		if t.ID == id {
			return true
		}
	}
	return false
}

func TestScenario_AdminBuysMilk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if got := f.guard.Resolve(session.ScreenTasks); got != session.ScreenLogin {
		t.Fatalf("expected login screen before login, got %s", got)
	}
	f.login(t, "admin", "admin")
	if got := f.guard.Resolve(session.ScreenLogin); got != session.ScreenTasks {
		t.Fatalf("expected tasks screen after login, got %s", got)
	}
	if err := f.syncer.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	checkCounts(t, f.syncer, 0, 0)

	milk, err := f.syncer.Create(ctx, service.NewTask{Title: "Buy milk", Priority: service.PriorityHigh})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !contains(f.syncer.View(tasks.TabTasks).Items, milk.ID) {
		t.Error("new task should be in the active partition")
	}
	checkCounts(t, f.syncer, 1, 0)

	if _, err := f.syncer.Toggle(ctx, milk.ID); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if contains(f.syncer.View(tasks.TabTasks).Items, milk.ID) {
		t.Error("completed task still in the active partition")
	}
	if !contains(f.syncer.View(tasks.TabHistory).Items, milk.ID) {
		t.Error("completed task missing from history")
	}
	checkCounts(t, f.syncer, 0, 1)

	var gate tasks.DeleteGate
	gate.Request(milk)
	confirmed, err := gate.Confirm()
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if err := f.syncer.Delete(ctx, confirmed); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if contains(f.syncer.View(tasks.TabHistory).Items, milk.ID) {
		t.Error("deleted task still in history")
	}
	checkCounts(t, f.syncer, 0, 0)
}

func TestCreate_TitleOnlyDefaults(t *testing.T) {
	f := newFixture(t)
	f.login(t, "admin", "admin")

	created, err := f.syncer.Create(context.Background(), service.NewTask{Title: "Walk dog"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Priority != service.PriorityMedium || created.IsCompleted {
		t.Errorf("expected medium and not completed, got %s %v", created.Priority, created.IsCompleted)
	}
}

func TestCreate_PrependsWhileLoadKeepsServerOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.AddTask("first", false)
	f.svc.AddTask("second", false)
	f.login(t, "admin", "admin")

	if err := f.syncer.Load(ctx); err != nil {
		t.Fatal(err)
	}
	third, err := f.syncer.Create(ctx, service.NewTask{Title: "third"})
	if err != nil {
		t.Fatal(err)
	}
	equalIDs(t, f.syncer.Snapshot(), third.ID, "1", "2")

	if err := f.syncer.Load(ctx); err != nil {
		t.Fatal(err)
	}
	equalIDs(t, f.syncer.Snapshot(), "1", "2", third.ID)
}

func TestCreate_ValidationSendsNothing(t *testing.T) {
	f := newFixture(t)
	f.login(t, "admin", "admin")

	if _, err := f.syncer.Create(context.Background(), service.NewTask{Title: "  "}); !errors.Is(err, service.ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	if f.svc.Calls["CreateTask"] != 0 {
		t.Error("invalid task was sent")
	}
}

func TestCountsInvariantOverSequences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "admin", "admin")

	var gate tasks.DeleteGate
	var created []service.Task
	for i := 0; i < 6; i++ {
		task, err := f.syncer.Create(ctx, service.NewTask{Title: fmt.Sprintf("task %d", i)})
		if err != nil {
			t.Fatal(err)
		}
		created = append(created, task)
		if i%2 == 0 {
			if _, err := f.syncer.Toggle(ctx, task.ID); err != nil {
				t.Fatal(err)
			}
		}
		checkCounts(t, f.syncer, (i+1)/2, i/2+1)
	}
	for i, task := range created {
		gate.Request(task)
		c, err := gate.Confirm()
		if err != nil {
			t.Fatal(err)
		}
		if err := f.syncer.Delete(ctx, c); err != nil {
			t.Fatal(err)
		}
		v := f.syncer.View(tasks.TabTasks)
		if v.TodoCount+v.FinishedCount != len(created)-i-1 {
			t.Fatalf("after %d deletes counts are %d/%d", i+1, v.TodoCount, v.FinishedCount)
		}
	}
}

func TestDelete_CancelSendsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.AddTask("keep me", false)
	f.login(t, "admin", "admin")
	if err := f.syncer.Load(ctx); err != nil {
		t.Fatal(err)
	}
	before := f.syncer.View(tasks.TabTasks)

	var gate tasks.DeleteGate
	gate.Request(before.Items[0])
	if _, ok := gate.Pending(); !ok {
		t.Fatal("expected a pending delete")
	}
	gate.Cancel()
	if _, err := gate.Confirm(); !errors.Is(err, tasks.ErrNothingPending) {
		t.Fatalf("expected ErrNothingPending after cancel, got %v", err)
	}
	if err := f.syncer.Delete(ctx, tasks.Confirmed{}); !errors.Is(err, tasks.ErrNothingPending) {
		t.Fatalf("unconfirmed delete should be refused, got %v", err)
	}

	if f.svc.Calls["DeleteTask"] != 0 {
		t.Error("delete request was sent")
	}
	after := f.syncer.View(tasks.TabTasks)
	equalIDs(t, after.Items, ids(before.Items)...)
}

func TestFailureLeavesCacheAndLogs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.AddTask("stable", false)
	f.login(t, "admin", "admin")
	if err := f.syncer.Load(ctx); err != nil {
		t.Fatal(err)
	}

	f.svc.SetCompletedErr = &service.APIError{Status: 500, Detail: "database unavailable"}
	if _, err := f.syncer.Toggle(ctx, "1"); err == nil {
		t.Fatal("expected error")
	}
	checkCounts(t, f.syncer, 1, 0)

	entry := f.hook.LastEntry()
	if entry == nil || entry.Level != logrus.ErrorLevel {
		t.Fatalf("expected an error entry, got %+v", entry)
	}
	if entry.Data["detail"] != "database unavailable" || entry.Data["op"] != "update" {
		t.Errorf("unexpected log fields %v", entry.Data)
	}
	if _, ok := f.store.Current(); !ok {
		t.Error("a server error must not end the session")
	}
}

func TestToggle_UnknownTask(t *testing.T) {
	f := newFixture(t)
	f.login(t, "admin", "admin")

	if _, err := f.syncer.Toggle(context.Background(), "404"); !errors.Is(err, tasks.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUnauthorizedEndsSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.AddTask("a", false)
	f.login(t, "admin", "admin")
	if err := f.syncer.Load(ctx); err != nil {
		t.Fatal(err)
	}

	f.svc.Revoke()
	_, err := f.syncer.Create(ctx, service.NewTask{Title: "b"})
	if !errors.Is(err, tasks.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	var apiErr *service.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 401 {
		t.Errorf("expected the 401 to stay inspectable, got %v", err)
	}
	if _, ok := f.store.Current(); ok {
		t.Error("expected the credential to be cleared")
	}
	if len(f.syncer.Snapshot()) != 0 {
		t.Error("expected the cache to be discarded")
	}
	if got := f.guard.Resolve(session.ScreenTasks); got != session.ScreenLogin {
		t.Errorf("expected redirect to login, got %s", got)
	}
}

func TestLogoutThenLoginRepopulates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.AddTask("a", false)
	f.svc.AddTask("b", true)
	f.login(t, "admin", "admin")
	if err := f.syncer.Load(ctx); err != nil {
		t.Fatal(err)
	}
	checkCounts(t, f.syncer, 1, 1)

	if err := f.store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	checkCounts(t, f.syncer, 0, 0)
	if got := f.guard.Resolve(session.ScreenTasks); got != session.ScreenLogin {
		t.Fatalf("expected login after logout, got %s", got)
	}

	f.login(t, "admin", "admin")
	listsBefore := f.svc.Calls["ListTasks"]
	if err := f.syncer.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if f.svc.Calls["ListTasks"] != listsBefore+1 {
		t.Error("expected a fresh list call")
	}
	checkCounts(t, f.syncer, 1, 1)
}

// blockingService holds CreateTask responses until released.
type blockingService struct {
	*testutil.FakeService
	started chan struct{}
	release chan struct{}
}

func (b *blockingService) CreateTask(ctx context.Context, n service.NewTask) (service.Task, error) {
	task, err := b.FakeService.CreateTask(ctx, n)
	close(b.started)
	<-b.release
	return task, err
}

func TestResponseAfterLogoutIsDiscarded(t *testing.T) {
	fake := testutil.NewFakeService()
	store := session.NewStore(session.NewFilePersister(filepath.Join(t.TempDir(), "token")))
	svc := &blockingService{FakeService: fake, started: make(chan struct{}), release: make(chan struct{})}
	logger, _ := test.NewNullLogger()
	syncer := tasks.NewSyncer(svc, store, logger)
	ctx := context.Background()
	if err := store.Set(ctx, "token"); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := syncer.Create(ctx, service.NewTask{Title: "late"})
		errCh <- err
	}()

	<-svc.started
	if err := store.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	close(svc.release)

	if err := <-errCh; !errors.Is(err, tasks.ErrStaleResponse) {
		t.Fatalf("expected ErrStaleResponse, got %v", err)
	}
	if len(syncer.Snapshot()) != 0 {
		t.Error("stale response was applied")
	}
}

func TestConcurrentCreatesAreSerialized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.login(t, "admin", "admin")

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.syncer.Create(ctx, service.NewTask{Title: fmt.Sprintf("t%d", i)}); err != nil {
				t.Errorf("create: %v", err)
			}
		}(i)
	}
	wg.Wait()

	checkCounts(t, f.syncer, n, 0)
	if got := len(f.svc.Tasks()); got != n {
		t.Errorf("expected %d server tasks, got %d", n, got)
	}
}

func TestToggle_BackToBackAlternates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.AddTask("flip", false)
	f.login(t, "admin", "admin")
	if err := f.syncer.Load(ctx); err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var sent []bool
	started := make(chan struct{})
	f.svc.BeforeSetCompleted = func(_ service.TaskID, completed bool) {
		mu.Lock()
		sent = append(sent, completed)
		first := len(sent) == 1
		mu.Unlock()
		if first {
			close(started)
			time.Sleep(50 * time.Millisecond)
		}
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := f.syncer.Toggle(ctx, "1")
		errCh <- err
	}()
	<-started
	if _, err := f.syncer.Toggle(ctx, "1"); err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("first toggle: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 2 || sent[0] != true || sent[1] != false {
		t.Fatalf("expected toggles to send true then false, got %v", sent)
	}
	if f.svc.Tasks()[0].IsCompleted {
		t.Error("expected the task to end up open on the server")
	}
	checkCounts(t, f.syncer, 1, 0)
}

func TestUnauthorizedFromPreviousSessionKeepsNewSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.svc.AddTask("a", false)
	f.login(t, "admin", "admin")
	if err := f.syncer.Load(ctx); err != nil {
		t.Fatal(err)
	}

	f.svc.SetCompletedErr = &service.APIError{Status: 401, Detail: "Invalid token"}
	f.svc.BeforeSetCompleted = func(service.TaskID, bool) {
		if err := f.store.Clear(ctx); err != nil {
			t.Errorf("clear: %v", err)
		}
		f.login(t, "admin", "admin")
	}

	_, err := f.syncer.Toggle(ctx, "1")
	if !errors.Is(err, tasks.ErrStaleResponse) {
		t.Fatalf("expected ErrStaleResponse, got %v", err)
	}
	if errors.Is(err, tasks.ErrSessionExpired) {
		t.Error("a 401 for the old token must not expire the new session")
	}
	if _, ok := f.store.Current(); !ok {
		t.Error("expected the new credential to survive")
	}
}

func TestLoad_LogsCachedCount(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddTask("a", false)
	svc.AddTask("b", true)
	store := session.NewStore(session.NewFilePersister(filepath.Join(t.TempDir(), "token")))
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	syncer := tasks.NewSyncer(svc, store, logger)

	if err := syncer.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Message != "tasks loaded" || entry.Data["count"] != 2 {
		t.Errorf("expected a 'tasks loaded' record with count 2, got %+v", entry)
	}
}
