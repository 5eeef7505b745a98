// Package service defines the backend-agnostic interface for task operations.
package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Validation errors returned before any request is sent.
var (
	ErrTitleRequired       = errors.New("title required")
	ErrInvalidPriority     = errors.New("invalid priority")
	ErrCredentialsRequired = errors.New("email and password required")
	ErrNameRequired        = errors.New("name required")
	ErrInvalidDueDate      = errors.New("invalid due date")
)

// TaskID is the server-assigned task identifier.
// The server currently sends integers; the client treats the value as opaque.
type TaskID string

// UnmarshalJSON accepts both JSON numbers and strings.
func (id *TaskID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = TaskID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("task id: %w", err)
	}
	*id = TaskID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers so they round-trip unchanged.
func (id TaskID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// Priority is one of low, medium, high.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ParsePriority normalizes s. An empty string yields PriorityMedium.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PriorityMedium, nil
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrInvalidPriority, s)
	}
}

// Label returns the text shown for p in listings.
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "Urgent"
	case PriorityLow:
		return "Normal"
	default:
		return "Important"
	}
}

// dueLayouts are accepted when decoding server timestamps and user input.
// The server emits naive ISO timestamps (no zone) which are read as UTC.
var dueLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// wireLayout is the format sent to the server.
const wireLayout = "2006-01-02T15:04:05"

// Timestamp is a time that tolerates the server's zone-less ISO format.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s using the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dueLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("%w: %s", ErrInvalidDueDate, s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(wireLayout))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Task represents a single task item as returned by the server.
type Task struct {
	ID               TaskID     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	DueDate          *Timestamp `json:"due_date,omitempty"`
	Priority         Priority   `json:"priority"`
	IsCompleted      bool       `json:"is_completed"`
	CreatedAt        *Timestamp `json:"created_at,omitempty"`
	SyncWithCalendar bool       `json:"sync_with_calendar"`
	GoogleEventID    string     `json:"google_event_id,omitempty"`
}

// UnmarshalJSON fills in the default priority when the server omits it.
func (t *Task) UnmarshalJSON(data []byte) error {
	type plain Task
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Task(p)
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	return nil
}

// NewTask is the create-task request body.
type NewTask struct {
	Title            string     `json:"title"`
	Description      string     `json:"description"`
	DueDate          *Timestamp `json:"due_date"`
	Priority         Priority   `json:"priority"`
	SyncWithCalendar bool       `json:"sync_with_calendar"`
}

// Normalize trims the title, applies defaults, and validates.
func (n NewTask) Normalize() (NewTask, error) {
	n.Title = strings.TrimSpace(n.Title)
	if n.Title == "" {
		return NewTask{}, ErrTitleRequired
	}
	p, err := ParsePriority(string(n.Priority))
	if err != nil {
		return NewTask{}, err
	}
	n.Priority = p
	return n, nil
}

// CompletionUpdate is the partial-update request body.
type CompletionUpdate struct {
	IsCompleted bool `json:"is_completed"`
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims the email and checks both fields are present.
func (c Credentials) Normalize() (Credentials, error) {
	c.Email = strings.TrimSpace(c.Email)
	if c.Email == "" || c.Password == "" {
		return Credentials{}, ErrCredentialsRequired
	}
	return c, nil
}

// Signup is the signup request body.
type Signup struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Normalize trims email and name and checks required fields.
func (s Signup) Normalize() (Signup, error) {
	creds, err := Credentials{Email: s.Email, Password: s.Password}.Normalize()
	if err != nil {
		return Signup{}, err
	}
	s.Email = creds.Email
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return Signup{}, ErrNameRequired
	}
	return s, nil
}

// TokenResponse is returned by the auth endpoints.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// DefaultAuthError is shown when the server gives no detail.
const DefaultAuthError = "Oops! Something went wrong. Try again."

// APIError is a non-2xx response from the server.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Detail)
}

// Unauthorized reports whether the server rejected the credential.
func (e *APIError) Unauthorized() bool {
	return e.Status == 401
}

// AuthMessage returns the text shown to the user for a failed login or signup.
func AuthMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	switch {
	case errors.Is(err, ErrCredentialsRequired), errors.Is(err, ErrNameRequired):
		return err.Error()
	}
	return DefaultAuthError
}
