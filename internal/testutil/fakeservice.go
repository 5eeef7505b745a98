// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"syncdo/internal/service"
)

// Admin credentials accepted by both fakes, mirroring the server's test account.
const (
	AdminLogin    = "admin"
	AdminPassword = "admin"
	AdminEmail    = "admin@syncdo.app"
)

// FakeService is an in-memory implementation of service.Service for testing.
type FakeService struct {
	mu     sync.RWMutex
	users  map[string]fakeAccount // email -> account
	tasks  []service.Task
	nextID int
	issued map[string]bool

	// Credential, when set, is consulted on every task operation. A missing
	// or unknown credential yields a 401 APIError.
	Credential func() (string, bool)

	// Error injection for testing
	LoginErr        error
	SignupErr       error
	ListTasksErr    error
	CreateTaskErr   error
	SetCompletedErr error
	DeleteTaskErr   error

	// BeforeSetCompleted, when set, runs at the start of every SetCompleted
	// call, before error injection and authorization.
	BeforeSetCompleted func(id service.TaskID, completed bool)

	// Calls counts invocations per operation name.
	Calls map[string]int
}

type fakeAccount struct {
	email    string
	password string
	name     string
}

// NewFakeService creates an empty FakeService that knows the admin account.
func NewFakeService() *FakeService {
	return &FakeService{
		users:  make(map[string]fakeAccount),
		issued: make(map[string]bool),
		Calls:  make(map[string]int),
	}
}

// AddUser registers an account.
func (f *FakeService) AddUser(email, password, name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[email] = fakeAccount{email: email, password: password, name: name}
}

// AddTask seeds a task in server order and returns it.
func (f *FakeService) AddTask(title string, completed bool) service.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	task := service.Task{
		ID:               service.TaskID(strconv.Itoa(f.nextID)),
		Title:            title,
		Priority:         service.PriorityMedium,
		IsCompleted:      completed,
		SyncWithCalendar: true,
		CreatedAt:        &service.Timestamp{Time: time.Date(2025, 1, 1, 0, 0, f.nextID, 0, time.UTC)},
	}
	f.tasks = append(f.tasks, task)
	return task
}

// Tasks returns a copy of the server-side tasks.
func (f *FakeService) Tasks() []service.Task {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]service.Task, len(f.tasks))
	copy(out, f.tasks)
	return out
}

// Revoke forgets every issued token so later task calls fail with 401.
func (f *FakeService) Revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued = make(map[string]bool)
}

func (f *FakeService) count(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls[op]++
}

func (f *FakeService) issue(email string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	token := fmt.Sprintf("fake-token-%s-%d", email, len(f.issued)+1)
	f.issued[token] = true
	return token
}

func (f *FakeService) authorize() error {
	if f.Credential == nil {
		return nil
	}
	credential, ok := f.Credential()
	if !ok {
		return &service.APIError{Status: 401, Detail: "Not authenticated"}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if !f.issued[credential] {
		return &service.APIError{Status: 401, Detail: "Invalid token"}
	}
	return nil
}

// Login implements service.Service.
func (f *FakeService) Login(ctx context.Context, creds service.Credentials) (string, error) {
	f.count("Login")
	if f.LoginErr != nil {
		return "", f.LoginErr
	}
	creds, err := creds.Normalize()
	if err != nil {
		return "", err
	}
	if creds.Email == AdminLogin && creds.Password == AdminPassword {
		return f.issue(AdminEmail), nil
	}
	f.mu.RLock()
	account, ok := f.users[creds.Email]
	f.mu.RUnlock()
	if !ok || account.password != creds.Password {
		return "", &service.APIError{Status: 401, Detail: "Invalid email or password"}
	}
	return f.issue(account.email), nil
}

// Signup implements service.Service.
func (f *FakeService) Signup(ctx context.Context, req service.Signup) (string, error) {
	f.count("Signup")
	if f.SignupErr != nil {
		return "", f.SignupErr
	}
	req, err := req.Normalize()
	if err != nil {
		return "", err
	}
	f.mu.Lock()
	if _, exists := f.users[req.Email]; exists {
		f.mu.Unlock()
		return "", &service.APIError{Status: 400, Detail: "Email already registered"}
	}
	f.users[req.Email] = fakeAccount{email: req.Email, password: req.Password, name: req.Name}
	f.mu.Unlock()
	return f.issue(req.Email), nil
}

// ListTasks implements service.Service.
func (f *FakeService) ListTasks(ctx context.Context) ([]service.Task, error) {
	f.count("ListTasks")
	if f.ListTasksErr != nil {
		return nil, f.ListTasksErr
	}
	if err := f.authorize(); err != nil {
		return nil, err
	}
	return f.Tasks(), nil
}

// CreateTask implements service.Service.
func (f *FakeService) CreateTask(ctx context.Context, task service.NewTask) (service.Task, error) {
	f.count("CreateTask")
	if f.CreateTaskErr != nil {
		return service.Task{}, f.CreateTaskErr
	}
	if err := f.authorize(); err != nil {
		return service.Task{}, err
	}
	task, err := task.Normalize()
	if err != nil {
		return service.Task{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := service.Task{
		ID:               service.TaskID(strconv.Itoa(f.nextID)),
		Title:            task.Title,
		Description:      task.Description,
		DueDate:          task.DueDate,
		Priority:         task.Priority,
		SyncWithCalendar: task.SyncWithCalendar,
		CreatedAt:        &service.Timestamp{Time: time.Date(2025, 1, 1, 0, 0, f.nextID, 0, time.UTC)},
	}
	f.tasks = append(f.tasks, created)
	return created, nil
}

// SetCompleted implements service.Service.
func (f *FakeService) SetCompleted(ctx context.Context, id service.TaskID, completed bool) (service.Task, error) {
	f.count("SetCompleted")
	if f.BeforeSetCompleted != nil {
		f.BeforeSetCompleted(id, completed)
	}
	if f.SetCompletedErr != nil {
		return service.Task{}, f.SetCompletedErr
	}
	if err := f.authorize(); err != nil {
		return service.Task{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks[i].IsCompleted = completed
			return f.tasks[i], nil
		}
	}
	return service.Task{}, &service.APIError{Status: 404, Detail: "Task not found"}
}

// DeleteTask implements service.Service.
func (f *FakeService) DeleteTask(ctx context.Context, id service.TaskID) error {
	f.count("DeleteTask")
	if f.DeleteTaskErr != nil {
		return f.DeleteTaskErr
	}
	if err := f.authorize(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.tasks {
		if t.ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return &service.APIError{Status: 404, Detail: "Task not found"}
}
