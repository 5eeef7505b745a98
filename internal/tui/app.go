// Package tui is the interactive terminal client: a login/signup screen and
// the task screen, switched by the session guard.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"

	"syncdo/internal/service"
	"syncdo/internal/session"
	"syncdo/internal/tasks"
)

// Deps are the collaborators the screens act on.
type Deps struct {
	Session *session.Store
	Guard   *session.Guard
	Service service.Service
	Tasks   *tasks.Syncer
	Log     log.FieldLogger

	// LoginURL builds the federated sign-in URL for a callback address.
	// Browser sign-in is unavailable when nil.
	LoginURL func(redirect string) string
}

// Messages produced by commands running off the update loop.
type (
	sessionChangedMsg struct{}

	authDoneMsg struct{ err error }

	callbackReadyMsg struct {
		url    string
		server *session.CallbackServer
	}

	loadedMsg struct{ err error }

	taskDoneMsg struct {
		op  string
		err error
	}
)

// Model is the root bubbletea model.
type Model struct {
	ctx    context.Context
	deps   Deps
	screen session.Screen
	width  int

	auth    authForm
	list    taskList
	spinner spinner.Model
	busy    bool
}

// New creates the root model. The first screen comes from the guard.
func New(ctx context.Context, deps Deps) Model {
	if deps.Log == nil {
		deps.Log = log.StandardLogger()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cursorStyle

	screen := deps.Guard.Resolve(session.ScreenTasks)
	return Model{
		ctx:     ctx,
		deps:    deps,
		screen:  screen,
		auth:    newAuthForm(),
		list:    newTaskList(),
		spinner: sp,
		busy:    screen == session.ScreenTasks,
	}
}

// Run starts the program and blocks until the user quits or ctx ends.
func Run(ctx context.Context, deps Deps) error {
	p := tea.NewProgram(New(ctx, deps), tea.WithContext(ctx), tea.WithAltScreen())
	deps.Session.OnChange(func(string, bool) {
		go p.Send(sessionChangedMsg{})
	})
	_, err := p.Run()
	return err
}

// Screen returns the screen currently shown.
func (m Model) Screen() session.Screen {
	return m.screen
}

func (m Model) Init() tea.Cmd {
	if m.screen == session.ScreenTasks {
		return tea.Batch(m.spinner.Tick, m.loadCmd())
	}
	return m.auth.focusCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.auth.setWidth(msg.Width)
		m.list.setWidth(msg.Width)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionChangedMsg:
		return m.route()

	case loadedMsg:
		m.busy = false
		m.list.clamp(m.view())
		return m.afterTaskOp("list", msg.err)

	case taskDoneMsg:
		m.busy = false
		m.list.clamp(m.view())
		return m.afterTaskOp(msg.op, msg.err)
	}

	switch m.screen {
	case session.ScreenLogin, session.ScreenAuthCallback:
		return m.updateAuth(msg)
	default:
		return m.updateTasks(msg)
	}
}

// route re-evaluates the guard. Entering the task screen loads the cache.
func (m Model) route() (tea.Model, tea.Cmd) {
	prev := m.screen
	requested := m.screen
	if requested == session.ScreenAuthCallback {
		requested = session.ScreenTasks
	}
	m.screen = m.deps.Guard.Resolve(requested)

	switch {
	case prev != session.ScreenTasks && m.screen == session.ScreenTasks:
		m.auth.reset()
		m.list = newTaskList()
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.loadCmd())
	case prev == session.ScreenTasks && m.screen == session.ScreenLogin:
		m.busy = false
		m.list = newTaskList()
		return m, m.auth.focusCmd()
	}
	return m, nil
}

// afterTaskOp handles the outcome of a task operation. Failures are only
// logged (the Syncer already did); an expired session returns to login.
func (m Model) afterTaskOp(op string, err error) (tea.Model, tea.Cmd) {
	switch {
	case err == nil:
	case errors.Is(err, tasks.ErrSessionExpired):
		m.auth.notice = "Your session expired. Please log in again."
	default:
		m.deps.Log.WithField("op", op).WithError(err).Debug("task operation not applied")
	}
	return m.route()
}

func (m Model) view() tasks.View {
	return m.deps.Tasks.View(m.list.tab)
}

func (m Model) View() string {
	var body string
	switch m.screen {
	case session.ScreenLogin, session.ScreenAuthCallback:
		body = m.viewAuth()
	default:
		body = m.viewTasks()
	}
	return frameStyle.Render(body)
}

func (m Model) loadCmd() tea.Cmd {
	ctx, syncer := m.ctx, m.deps.Tasks
	return func() tea.Msg {
		return loadedMsg{err: syncer.Load(ctx)}
	}
}
