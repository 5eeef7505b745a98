package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"syncdo/internal/service"
)

// FakeServer is an HTTP fake of the SyncDo API backed by memory.
// Tokens are HS256 JWTs carrying sub, email, and exp, like the real server.
type FakeServer struct {
	URL string

	server *httptest.Server
	secret []byte

	mu       sync.Mutex
	users    map[string]*fakeUser // email -> user
	tasks    map[int][]service.Task
	nextUser int
	nextTask int
	failures map[string]injectedFailure
	requests []RecordedRequest
}

// RecordedRequest is one request seen by the FakeServer.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type fakeUser struct {
	id       int
	email    string
	name     string
	password string
}

type injectedFailure struct {
	status int
	detail string
}

// NewFakeServer starts a FakeServer that is closed when the test ends.
func NewFakeServer(t *testing.T) *FakeServer {
	t.Helper()
	s := &FakeServer{
		secret:   []byte("fake-server-secret"),
		users:    make(map[string]*fakeUser),
		tasks:    make(map[int][]service.Task),
		failures: make(map[string]injectedFailure),
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(s.record)
	e.POST("/auth/signup", s.signup)
	e.POST("/auth/login", s.login)
	tasks := e.Group("/tasks", s.authenticate)
	tasks.GET("/", s.listTasks)
	tasks.POST("/", s.createTask)
	tasks.PUT("/:id", s.updateTask)
	tasks.DELETE("/:id", s.deleteTask)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	s.server = srv
	s.URL = srv.URL
	return s
}

// Client returns an HTTP client configured for the server.
func (s *FakeServer) Client() *http.Client {
	return s.server.Client()
}

// Fail makes every later request to "METHOD /path" (route pattern, e.g.
// "PUT /tasks/:id") answer with status and detail.
func (s *FakeServer) Fail(route string, status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = injectedFailure{status: status, detail: detail}
}

// Requests returns the requests seen so far.
func (s *FakeServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RecordedRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// TokenFor mints a token for an existing or new account with the given email.
func (s *FakeServer) TokenFor(email string, ttl time.Duration) string {
	s.mu.Lock()
	u := s.userLocked(email, "", "")
	s.mu.Unlock()
	return s.mint(u, ttl)
}

func (s *FakeServer) userLocked(email, name, password string) *fakeUser {
	if u, ok := s.users[email]; ok {
		return u
	}
	s.nextUser++
	u := &fakeUser{id: s.nextUser, email: email, name: name, password: password}
	s.users[email] = u
	return u
}

func (s *FakeServer) mint(u *fakeUser, ttl time.Duration) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   strconv.Itoa(u.id),
		"email": u.email,
		"exp":   time.Now().Add(ttl).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		panic(err)
	}
	return signed
}

func detail(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]string{"detail": msg})
}

func (s *FakeServer) record(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        req.Method,
			Path:          req.URL.Path,
			Authorization: req.Header.Get(echo.HeaderAuthorization),
			RequestID:     req.Header.Get("X-Request-ID"),
		})
		failure, ok := s.failures[req.Method+" "+c.Path()]
		s.mu.Unlock()
		if ok {
			return detail(c, failure.status, failure.detail)
		}
		return next(c)
	}
}

func (s *FakeServer) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			return detail(c, http.StatusUnauthorized, "Not authenticated")
		}
		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return s.secret, nil })
		if err != nil {
			return detail(c, http.StatusUnauthorized, "Invalid token")
		}
		sub, _ := claims["sub"].(string)
		uid, err := strconv.Atoi(sub)
		if err != nil {
			return detail(c, http.StatusUnauthorized, "Invalid token")
		}
		c.Set("uid", uid)
		return next(c)
	}
}

func (s *FakeServer) signup(c echo.Context) error {
	var req service.Signup
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return detail(c, http.StatusUnprocessableEntity, "invalid body")
	}
	s.mu.Lock()
	if _, exists := s.users[req.Email]; exists {
		s.mu.Unlock()
		return detail(c, http.StatusBadRequest, "Email already registered")
	}
	u := s.userLocked(req.Email, req.Name, req.Password)
	s.mu.Unlock()
	return c.JSON(http.StatusOK, service.TokenResponse{AccessToken: s.mint(u, time.Hour), TokenType: "bearer"})
}

func (s *FakeServer) login(c echo.Context) error {
	var req service.Credentials
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return detail(c, http.StatusUnprocessableEntity, "invalid body")
	}
	s.mu.Lock()
	var u *fakeUser
	if req.Email == AdminLogin && req.Password == AdminPassword {
		u = s.userLocked(AdminEmail, "Administrator", AdminPassword)
	} else if existing, ok := s.users[req.Email]; ok && existing.password != "" && existing.password == req.Password {
		u = existing
	}
	s.mu.Unlock()
	if u == nil {
		return detail(c, http.StatusUnauthorized, "Invalid email or password")
	}
	return c.JSON(http.StatusOK, service.TokenResponse{AccessToken: s.mint(u, time.Hour), TokenType: "bearer"})
}

func (s *FakeServer) listTasks(c echo.Context) error {
	uid := c.Get("uid").(int)
	s.mu.Lock()
	out := append([]service.Task{}, s.tasks[uid]...)
	s.mu.Unlock()
	return c.JSON(http.StatusOK, out)
}

func (s *FakeServer) createTask(c echo.Context) error {
	uid := c.Get("uid").(int)
	var req struct {
		Title            string             `json:"title"`
		Description      *string            `json:"description"`
		DueDate          *service.Timestamp `json:"due_date"`
		Priority         string             `json:"priority"`
		SyncWithCalendar *bool              `json:"sync_with_calendar"`
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body"}, "msg": err.Error()}},
		})
	}
	if req.Title == "" {
		return c.JSON(http.StatusUnprocessableEntity, map[string]any{
			"detail": []map[string]any{{"loc": []string{"body", "title"}, "msg": "field required"}},
		})
	}
	priority, err := service.ParsePriority(req.Priority)
	if err != nil {
		return detail(c, http.StatusUnprocessableEntity, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTask++
	task := service.Task{
		ID:               service.TaskID(strconv.Itoa(s.nextTask)),
		Title:            req.Title,
		DueDate:          req.DueDate,
		Priority:         priority,
		SyncWithCalendar: true,
		CreatedAt:        &service.Timestamp{Time: time.Now().UTC().Truncate(time.Second)},
	}
	if req.Description != nil {
		task.Description = *req.Description
	}
	if req.SyncWithCalendar != nil {
		task.SyncWithCalendar = *req.SyncWithCalendar
	}
	s.tasks[uid] = append(s.tasks[uid], task)
	return c.JSON(http.StatusOK, task)
}

func (s *FakeServer) updateTask(c echo.Context) error {
	uid := c.Get("uid").(int)
	var req struct {
		IsCompleted *bool `json:"is_completed"`
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return detail(c, http.StatusUnprocessableEntity, "invalid body")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.findLocked(uid, c.Param("id"))
	if err != nil {
		return detail(c, http.StatusNotFound, err.Error())
	}
	if req.IsCompleted != nil {
		s.tasks[uid][i].IsCompleted = *req.IsCompleted
	}
	return c.JSON(http.StatusOK, s.tasks[uid][i])
}

func (s *FakeServer) deleteTask(c echo.Context) error {
	uid := c.Get("uid").(int)
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.findLocked(uid, c.Param("id"))
	if err != nil {
		return detail(c, http.StatusNotFound, err.Error())
	}
	s.tasks[uid] = append(s.tasks[uid][:i], s.tasks[uid][i+1:]...)
	return c.JSON(http.StatusOK, map[string]string{"status": "success"})
}

func (s *FakeServer) findLocked(uid int, id string) (int, error) {
	for i, t := range s.tasks[uid] {
		if string(t.ID) == id {
			return i, nil
		}
	}
	return -1, errors.New("Task not found")
}
