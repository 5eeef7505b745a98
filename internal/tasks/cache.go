// Package tasks keeps the local copy of the user's tasks consistent with the
// server and derives the views shown to the user.
package tasks

import (
	"sync"

	"syncdo/internal/service"
)

// Cache is the ordered, id-keyed local copy of the task collection.
// It is only mutated with values returned by the server.
type Cache struct {
	mu    sync.RWMutex
	items []service.Task
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// ReplaceAll discards the contents and installs tasks in the given order.
func (c *Cache) ReplaceAll(tasks []service.Task) {
	items := make([]service.Task, len(tasks))
	copy(items, tasks)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
}

// InsertFront adds task before every existing entry. An entry with the same
// id is dropped so ids stay unique.
func (c *Cache) InsertFront(task service.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items := make([]service.Task, 0, len(c.items)+1)
	items = append(items, task)
	for _, t := range c.items {
		if t.ID != task.ID {
			items = append(items, t)
		}
	}
	c.items = items
}

// Replace overwrites the entry with task's id. It reports false, and changes
// nothing, when no such entry exists.
func (c *Cache) Replace(task service.Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(task.ID)
	if i < 0 {
		return false
	}
	c.items[i] = task
	return true
}

// Remove deletes the entry with id if present.
func (c *Cache) Remove(id service.TaskID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexLocked(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return true
}

// Get returns the entry with id.
func (c *Cache) Get(id service.TaskID) (service.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexLocked(id)
	if i < 0 {
		return service.Task{}, false
	}
	return c.items[i], true
}

// Snapshot returns a copy of the entries in cache order.
func (c *Cache) Snapshot() []service.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]service.Task, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

func (c *Cache) indexLocked(id service.TaskID) int {
	for i, t := range c.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}
