package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"syncdo/internal/service"
	"syncdo/internal/session"
)

var (
	// ErrSessionExpired means the server rejected the credential. The session
	// and cache have been cleared and the user must log in again.
	ErrSessionExpired = errors.New("session expired")

	// ErrStaleResponse means the session changed while the request was in
	// flight. The response was discarded.
	ErrStaleResponse = errors.New("session changed during request")

	// ErrNotFound means the task is not in the cache.
	ErrNotFound = errors.New("task not found")
)

// Syncer runs task operations against the service and applies confirmed
// responses to the cache. Requests are serialized: each one is issued and its
// response applied before the next starts. A response that arrives after the
// session was reset is dropped.
type Syncer struct {
	svc   service.Service
	sess  *session.Store
	cache *Cache
	log   log.FieldLogger

	reqMu sync.Mutex

	stateMu sync.Mutex
	epoch   uint64
}

// NewSyncer creates a syncer with an empty cache. Every credential change on
// sess resets the cache.
func NewSyncer(svc service.Service, sess *session.Store, logger log.FieldLogger) *Syncer {
	if logger == nil {
		logger = log.StandardLogger()
	}
	s := &Syncer{
		svc:   svc,
		sess:  sess,
		cache: NewCache(),
		log:   logger,
	}
	sess.OnChange(func(string, bool) { s.Reset() })
	return s
}

// Reset discards the cache and invalidates in-flight responses.
func (s *Syncer) Reset() {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.epoch++
	s.cache.Clear()
}

// Snapshot returns the cached tasks in cache order.
func (s *Syncer) Snapshot() []service.Task {
	return s.cache.Snapshot()
}

// View projects the cache for tab.
func (s *Syncer) View(tab Tab) View {
	return Project(s.cache.Snapshot(), tab)
}

// Load fetches every task and replaces the cache with the server's order.
func (s *Syncer) Load(ctx context.Context) error {
	var fetched []service.Task
	return s.run(ctx, "list", func(ctx context.Context) (err error) {
		fetched, err = s.svc.ListTasks(ctx)
		return err
	}, func() {
		s.cache.ReplaceAll(fetched)
		s.log.WithField("count", s.cache.Len()).Debug("tasks loaded")
	})
}

// Create validates task, creates it on the server, and puts the result at
// the front of the cache.
func (s *Syncer) Create(ctx context.Context, task service.NewTask) (service.Task, error) {
	task, err := task.Normalize()
	if err != nil {
		return service.Task{}, err
	}
	var created service.Task
	err = s.run(ctx, "create", func(ctx context.Context) (err error) {
		created, err = s.svc.CreateTask(ctx, task)
		return err
	}, func() {
		s.cache.InsertFront(created)
	})
	if err != nil {
		return service.Task{}, err
	}
	return created, nil
}

// SetCompleted updates the completion flag and replaces the cache entry with
// the server's copy.
func (s *Syncer) SetCompleted(ctx context.Context, id service.TaskID, completed bool) (service.Task, error) {
	var updated service.Task
	err := s.run(ctx, "update", func(ctx context.Context) (err error) {
		updated, err = s.svc.SetCompleted(ctx, id, completed)
		return err
	}, func() {
		s.cache.Replace(updated)
	})
	if err != nil {
		return service.Task{}, err
	}
	return updated, nil
}

// Toggle flips the completion flag of a cached task. The flag is read once
// earlier requests have been applied, so back-to-back toggles alternate.
func (s *Syncer) Toggle(ctx context.Context, id service.TaskID) (service.Task, error) {
	if _, ok := s.cache.Get(id); !ok {
		return service.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var updated service.Task
	err := s.run(ctx, "update", func(ctx context.Context) error {
		task, ok := s.cache.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		var err error
		updated, err = s.svc.SetCompleted(ctx, id, !task.IsCompleted)
		return err
	}, func() {
		s.cache.Replace(updated)
	})
	if err != nil {
		return service.Task{}, err
	}
	return updated, nil
}

// Delete removes a task the user confirmed through a DeleteGate.
func (s *Syncer) Delete(ctx context.Context, c Confirmed) error {
	id := c.task.ID
	if id == "" {
		return ErrNothingPending
	}
	return s.run(ctx, "delete", func(ctx context.Context) error {
		return s.svc.DeleteTask(ctx, id)
	}, func() {
		s.cache.Remove(id)
	})
}

func (s *Syncer) run(ctx context.Context, op string, call func(context.Context) error, apply func()) error {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	s.stateMu.Lock()
	epoch := s.epoch
	s.stateMu.Unlock()

	if err := call(ctx); err != nil {
		return s.fail(ctx, op, epoch, err)
	}

	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.epoch != epoch {
		s.log.WithField("op", op).Debug("discarding response from previous session")
		return ErrStaleResponse
	}
	apply()
	return nil
}

// fail records err for diagnostics. A 401 ends the session, but only the
// session the request was issued under.
func (s *Syncer) fail(ctx context.Context, op string, epoch uint64, err error) error {
	entry := s.log.WithField("op", op).WithError(err)
	var apiErr *service.APIError
	if errors.As(err, &apiErr) {
		entry = entry.WithFields(log.Fields{"status": apiErr.Status, "detail": apiErr.Detail})
	}
	entry.Error("task operation failed")

	if apiErr == nil || !apiErr.Unauthorized() {
		return err
	}
	s.stateMu.Lock()
	stale := s.epoch != epoch
	s.stateMu.Unlock()
	if stale {
		s.log.WithField("op", op).Debug("ignoring 401 from previous session")
		return fmt.Errorf("%w: %w", ErrStaleResponse, err)
	}
	if clearErr := s.sess.Clear(ctx); clearErr != nil {
		s.log.WithError(clearErr).Error("clear expired session")
		s.Reset()
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, err)
}
