package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"syncdo/internal/output"
	"syncdo/internal/service"
	"syncdo/internal/session"
	"syncdo/internal/tasks"
)

var priorities = []service.Priority{service.PriorityLow, service.PriorityMedium, service.PriorityHigh}

// taskList is the task screen state. The tasks themselves live in the
// Syncer's cache; this only tracks what the user is pointing at.
type taskList struct {
	tab    tasks.Tab
	cursor int

	adding   bool
	input    textinput.Model
	priority int // index into priorities

	gate tasks.DeleteGate
}

func newTaskList() taskList {
	ti := textinput.New()
	ti.Placeholder = "What needs doing?"
	ti.CharLimit = 500
	ti.Width = 40
	return taskList{input: ti, priority: 1}
}

func (l *taskList) setWidth(width int) {
	w := width - 24
	if w < 20 {
		w = 20
	}
	l.input.Width = w
}

// clamp keeps the cursor inside the visible partition.
func (l *taskList) clamp(view tasks.View) {
	if l.cursor >= len(view.Items) {
		l.cursor = len(view.Items) - 1
	}
	if l.cursor < 0 {
		l.cursor = 0
	}
}

func (l taskList) selected(view tasks.View) (service.Task, bool) {
	if l.cursor < 0 || l.cursor >= len(view.Items) {
		return service.Task{}, false
	}
	return view.Items[l.cursor], true
}

func (m Model) updateTasks(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		if m.list.adding {
			var cmd tea.Cmd
			m.list.input, cmd = m.list.input.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if _, pending := m.list.gate.Pending(); pending {
		return m.handleConfirmKey(key)
	}
	if m.list.adding {
		return m.handleAddKey(key)
	}

	view := m.view()
	switch key.String() {
	case "q", "esc":
		return m, tea.Quit
	case "tab", "left", "right", "h", "l":
		m.list.tab = m.list.tab.Other()
		m.list.cursor = 0
	case "up", "k":
		if m.list.cursor > 0 {
			m.list.cursor--
		}
	case "down", "j":
		if m.list.cursor < len(view.Items)-1 {
			m.list.cursor++
		}
	case "a", "n":
		m.list.adding = true
		m.list.input.SetValue("")
		m.list.priority = 1
		return m, m.list.input.Focus()
	case " ", "space", "x", "enter":
		if m.busy {
			break
		}
		if task, ok := m.list.selected(view); ok {
			m.busy = true
			return m, tea.Batch(m.spinner.Tick, m.toggleCmd(task.ID))
		}
	case "d", "delete":
		if m.busy {
			break
		}
		if task, ok := m.list.selected(view); ok {
			m.list.gate.Request(task)
		}
	case "r":
		if m.busy {
			break
		}
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.loadCmd())
	case "L":
		return m, m.logoutCmd()
	}
	return m, nil
}

func (m Model) handleConfirmKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "y", "Y":
		confirmed, err := m.list.gate.Confirm()
		if err != nil {
			return m, nil
		}
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.deleteCmd(confirmed))
	case "n", "N", "esc":
		m.list.gate.Cancel()
	}
	return m, nil
}

func (m Model) handleAddKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "esc":
		m.list.adding = false
		m.list.input.Blur()
		return m, nil
	case "tab":
		m.list.priority = (m.list.priority + 1) % len(priorities)
		return m, nil
	case "enter":
		title := strings.TrimSpace(m.list.input.Value())
		if title == "" {
			return m, nil
		}
		m.list.adding = false
		m.list.input.Blur()
		m.list.tab = tasks.TabTasks
		m.list.cursor = 0
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.createCmd(service.NewTask{
			Title:    title,
			Priority: priorities[m.list.priority],
		}))
	}
	var cmd tea.Cmd
	m.list.input, cmd = m.list.input.Update(key)
	return m, cmd
}

func (m Model) createCmd(task service.NewTask) tea.Cmd {
	ctx, syncer := m.ctx, m.deps.Tasks
	return func() tea.Msg {
		_, err := syncer.Create(ctx, task)
		return taskDoneMsg{op: "create", err: err}
	}
}

func (m Model) toggleCmd(id service.TaskID) tea.Cmd {
	ctx, syncer := m.ctx, m.deps.Tasks
	return func() tea.Msg {
		_, err := syncer.Toggle(ctx, id)
		return taskDoneMsg{op: "toggle", err: err}
	}
}

func (m Model) deleteCmd(c tasks.Confirmed) tea.Cmd {
	ctx, syncer := m.ctx, m.deps.Tasks
	return func() tea.Msg {
		return taskDoneMsg{op: "delete", err: syncer.Delete(ctx, c)}
	}
}

// logoutCmd clears the session. The change listener routes back to login.
func (m Model) logoutCmd() tea.Cmd {
	ctx, store := m.ctx, m.deps.Session
	return func() tea.Msg {
		return taskDoneMsg{op: "logout", err: store.Clear(ctx)}
	}
}

func (m Model) viewTasks() string {
	view := m.view()
	var b strings.Builder

	header := "SyncDo"
	if credential, ok := m.deps.Session.Current(); ok {
		if claims, err := session.ParseClaims(credential); err == nil && claims.Email != "" {
			header += "  " + mutedStyle.Render(claims.Email)
		}
	}
	b.WriteString(titleStyle.Render(header) + "\n")

	tasksTab, historyTab := tabStyle, tabStyle
	if view.Tab == tasks.TabHistory {
		historyTab = activeTabStyle
	} else {
		tasksTab = activeTabStyle
	}
	b.WriteString(tasksTab.Render(fmt.Sprintf("Tasks (%d)", view.TodoCount)))
	b.WriteString(historyTab.Render(fmt.Sprintf("History (%d)", view.FinishedCount)))
	if m.busy {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n\n")

	if len(view.Items) == 0 {
		b.WriteString(mutedStyle.Render(output.EmptyMessage(view.Tab)) + "\n")
	}
	for i, task := range view.Items {
		b.WriteString(m.renderTask(i, task) + "\n")
	}

	if pending, ok := m.list.gate.Pending(); ok {
		b.WriteString("\n" + confirmStyle.Render(fmt.Sprintf("Delete %q? y/n", pending.Title)) + "\n")
	}

	if m.list.adding {
		b.WriteString("\n" + m.list.input.View() + "  ")
		p := priorities[m.list.priority]
		b.WriteString(priorityStyles[string(p)].Render("[" + p.Label() + "]"))
		b.WriteString("\n" + mutedStyle.Render("enter add • tab priority • esc cancel"))
		return b.String()
	}

	b.WriteString("\n" + mutedStyle.Render("a add • space toggle • d delete • tab switch view • r refresh • L log out • q quit"))
	return b.String()
}

func (m Model) renderTask(i int, task service.Task) string {
	cursor := "  "
	if i == m.list.cursor {
		cursor = cursorStyle.Render("> ")
	}
	check := "[ ] "
	title := task.Title
	if task.IsCompleted {
		check = "[x] "
		title = doneStyle.Render(title)
	}
	line := cursor + check + title + " " + priorityStyles[string(task.Priority)].Render(task.Priority.Label())
	if due := output.FormatDue(task.DueDate); due != "" {
		line += mutedStyle.Render("  due " + due)
	}
	return line
}
