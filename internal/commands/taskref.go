package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"syncdo/internal/service"
	"syncdo/internal/tasks"
)

// historyPrefix marks a reference into the history partition.
const historyPrefix = 'h'

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Tab     tasks.Tab // partition the number indexes into
	TaskNum int       // 1-based position in the partition
}

func (r TaskRef) String() string {
	if r.Tab == tasks.TabHistory {
		return fmt.Sprintf("%c%d", historyPrefix, r.TaskNum)
	}
	return strconv.Itoa(r.TaskNum)
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args.
//
// Parsing rules:
//  1. All digits (3) → active task number
//  2. h<digits> (h3) → history task number
//  3. h followed by a digits arg (h 3) → history task number
//  4. h alone → error: task reference required
//  5. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}

	first := args[0]
	if isAllDigits(first) {
		return numberRef(tasks.TabTasks, first)
	}

	if len(first) > 0 && rune(first[0]) == historyPrefix {
		if len(first) > 1 {
			if isAllDigits(first[1:]) {
				return numberRef(tasks.TabHistory, first[1:])
			}
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", first)
		}
		if len(args) < 2 {
			return TaskRef{}, ErrTaskRefRequired
		}
		if isAllDigits(args[1]) {
			return numberRef(tasks.TabHistory, args[1])
		}
	}

	return TaskRef{}, fmt.Errorf("invalid task reference: %s", first)
}

func numberRef(tab tasks.Tab, digits string) (TaskRef, error) {
	num, err := strconv.Atoi(digits)
	if err != nil || num < 1 {
		return TaskRef{}, fmt.Errorf("task number out of range: %s", digits)
	}
	return TaskRef{Tab: tab, TaskNum: num}, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Resolve returns the task ref points at within view.
func (r TaskRef) Resolve(view tasks.View) (service.Task, error) {
	if r.Tab != view.Tab {
		return service.Task{}, fmt.Errorf("reference %s is not in the %s view", r, view.Tab)
	}
	if r.TaskNum < 1 || r.TaskNum > len(view.Items) {
		return service.Task{}, fmt.Errorf("task number out of range: %s", r)
	}
	return view.Items[r.TaskNum-1], nil
}

// lookupTask loads the cache from the server and resolves the reference in args.
// On failure it reports the error and returns the exit code.
func lookupTask(ctx context.Context, env *Env, args []string) (service.Task, TaskRef, int, bool) {
	ref, err := ParseTaskRef(args)
	if err != nil {
		return service.Task{}, ref, reportUsage(env, err), false
	}
	if err := env.Tasks.Load(ctx); err != nil {
		return service.Task{}, ref, report(env, err), false
	}
	task, err := ref.Resolve(env.Tasks.View(ref.Tab))
	if err != nil {
		return service.Task{}, ref, reportUsage(env, err), false
	}
	return task, ref, 0, true
}
