package tasks

import (
	"fmt"
	"strings"

	"syncdo/internal/service"
)

// Tab selects which partition of the cache is displayed.
type Tab int

const (
	// TabTasks shows tasks that are not completed.
	TabTasks Tab = iota
	// TabHistory shows completed tasks.
	TabHistory
)

func (t Tab) String() string {
	if t == TabHistory {
		return "history"
	}
	return "tasks"
}

// Other returns the opposite tab.
func (t Tab) Other() Tab {
	if t == TabHistory {
		return TabTasks
	}
	return TabHistory
}

// ParseTab parses "tasks" or "history".
func ParseTab(s string) (Tab, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "tasks":
		return TabTasks, nil
	case "history":
		return TabHistory, nil
	default:
		return TabTasks, fmt.Errorf("unknown tab: %s", s)
	}
}

// View is what a screen renders: the active partition plus counts over
// the whole cache.
type View struct {
	Tab           Tab
	Items         []service.Task
	TodoCount     int
	FinishedCount int
}

// Partition returns the tasks belonging to tab, preserving order.
func Partition(tasks []service.Task, tab Tab) []service.Task {
	wantCompleted := tab == TabHistory
	out := make([]service.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.IsCompleted == wantCompleted {
			out = append(out, t)
		}
	}
	return out
}

// Counts returns the number of open and completed tasks, regardless of tab.
func Counts(tasks []service.Task) (todo, finished int) {
	for _, t := range tasks {
		if t.IsCompleted {
			finished++
		} else {
			todo++
		}
	}
	return todo, finished
}

// Project derives the View for tab from tasks.
func Project(tasks []service.Task, tab Tab) View {
	todo, finished := Counts(tasks)
	return View{
		Tab:           tab,
		Items:         Partition(tasks, tab),
		TodoCount:     todo,
		FinishedCount: finished,
	}
}
