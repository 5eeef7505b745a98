// Package service defines the backend-agnostic interface for task operations.
package service

import "context"

// Service defines the operations the client needs from the SyncDo API.
// Task operations carry the current session credential; the auth operations
// do not. Commands and the TUI never talk HTTP directly.
type Service interface {
	// Login exchanges credentials for an access token.
	Login(ctx context.Context, creds Credentials) (string, error)

	// Signup creates an account and returns its access token.
	Signup(ctx context.Context, req Signup) (string, error)

	// ListTasks returns all tasks of the current session in server order.
	ListTasks(ctx context.Context) ([]Task, error)

	// CreateTask creates a task and returns it with its server-assigned id.
	CreateTask(ctx context.Context, task NewTask) (Task, error)

	// SetCompleted updates only the completion flag and returns the
	// server's copy of the task.
	SetCompleted(ctx context.Context, id TaskID, completed bool) (Task, error)

	// DeleteTask deletes a task.
	DeleteTask(ctx context.Context, id TaskID) error
}
