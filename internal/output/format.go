// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"syncdo/internal/service"
	"syncdo/internal/tasks"
)

// Empty-partition messages.
const (
	NoTasks          = "No tasks yet!"
	NoCompletedTasks = "No completed tasks yet."
)

// DueLayout is used for due dates that carry a time of day.
const DueLayout = "2006-01-02 15:04"

// FormatTask formats one task line.
// Format: "{REF:>4}  {TITLE}  [{PRIORITY}]{  due DATE}\n"
func FormatTask(w io.Writer, ref string, task service.Task) {
	fmt.Fprintf(w, "%4s  %s  [%s]", ref, normalizeTitle(task.Title), task.Priority.Label())
	if due := FormatDue(task.DueDate); due != "" {
		fmt.Fprintf(w, "  due %s", due)
	}
	fmt.Fprintln(w)
}

// FormatView writes the partition of view, numbered for use as task
// references, followed by the counts line.
func FormatView(w io.Writer, view tasks.View, quiet bool) {
	prefix := ""
	if view.Tab == tasks.TabHistory {
		prefix = "h"
	}
	for i, task := range view.Items {
		FormatTask(w, fmt.Sprintf("%s%d", prefix, i+1), task)
	}
	if quiet {
		return
	}
	if len(view.Items) == 0 {
		fmt.Fprintln(w, EmptyMessage(view.Tab))
	}
	FormatCounts(w, view.TodoCount, view.FinishedCount)
}

// FormatCounts writes the summary line.
func FormatCounts(w io.Writer, todo, finished int) {
	fmt.Fprintf(w, "to do: %d  finished: %d\n", todo, finished)
}

// EmptyMessage is shown when the partition for tab has no tasks.
func EmptyMessage(tab tasks.Tab) string {
	if tab == tasks.TabHistory {
		return NoCompletedTasks
	}
	return NoTasks
}

// FormatDue renders a due date, dropping a midnight time of day.
func FormatDue(due *service.Timestamp) string {
	if due == nil || due.IsZero() {
		return ""
	}
	t := due.UTC()
	if t.Hour() == 0 && t.Minute() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format(DueLayout)
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
