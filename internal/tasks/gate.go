package tasks

import (
	"errors"

	"syncdo/internal/service"
)

// ErrNothingPending is returned by Confirm when no delete was requested.
var ErrNothingPending = errors.New("no delete pending")

// Confirmed is proof that the user confirmed deleting a task. Only
// DeleteGate.Confirm produces one, and Syncer.Delete accepts nothing else.
type Confirmed struct {
	task service.Task
}

// Task returns the task the confirmation is for.
func (c Confirmed) Task() service.Task {
	return c.task
}

// DeleteGate is the two-step confirmation before a delete is sent:
// Request puts a task in confirm-pending state, then Confirm or Cancel
// resolves it. It is not safe for concurrent use.
type DeleteGate struct {
	pending *service.Task
}

// Request asks for confirmation to delete task, replacing any earlier request.
func (g *DeleteGate) Request(task service.Task) {
	g.pending = &task
}

// Pending returns the task awaiting confirmation.
func (g *DeleteGate) Pending() (service.Task, bool) {
	if g.pending == nil {
		return service.Task{}, false
	}
	return *g.pending, true
}

// Confirm resolves the pending request as confirmed.
func (g *DeleteGate) Confirm() (Confirmed, error) {
	if g.pending == nil {
		return Confirmed{}, ErrNothingPending
	}
	c := Confirmed{task: *g.pending}
	g.pending = nil
	return c, nil
}

// Cancel drops the pending request. Nothing is sent.
func (g *DeleteGate) Cancel() {
	g.pending = nil
}
