package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"syncdo/internal/service"
	"syncdo/internal/session"
)

type authMode int

const (
	modeLogin authMode = iota
	modeSignup
)

const (
	fieldName = iota
	fieldEmail
	fieldPassword
)

var errNoCallbackToken = errors.New("no token in callback")

// authForm is the login/signup screen state.
type authForm struct {
	mode   authMode
	inputs []textinput.Model
	focus  int // index into fields()

	err        string // server detail or fallback text
	notice     string
	submitting bool

	callbackURL    string
	cancelCallback context.CancelFunc
}

func newAuthForm() authForm {
	placeholders := []string{"Name", "Email", "Password"}
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		ti := textinput.New()
		ti.Placeholder = p
		ti.CharLimit = 256
		ti.Width = 40
		ti.Prompt = "  "
		inputs[i] = ti
	}
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '•'

	f := authForm{inputs: inputs}
	f.applyFocus()
	return f
}

// fields lists the visible inputs for the current mode.
func (f authForm) fields() []int {
	if f.mode == modeSignup {
		return []int{fieldName, fieldEmail, fieldPassword}
	}
	return []int{fieldEmail, fieldPassword}
}

func (f *authForm) applyFocus() {
	focused := f.fields()[f.focus]
	for i := range f.inputs {
		if i == focused {
			f.inputs[i].Focus()
			f.inputs[i].Prompt = "> "
		} else {
			f.inputs[i].Blur()
			f.inputs[i].Prompt = "  "
		}
	}
}

func (f *authForm) move(delta int) {
	n := len(f.fields())
	f.focus = (f.focus + delta + n) % n
	f.applyFocus()
}

func (f *authForm) toggleMode() {
	if f.mode == modeLogin {
		f.mode = modeSignup
	} else {
		f.mode = modeLogin
	}
	f.focus = 0
	f.err = ""
	f.applyFocus()
}

func (f *authForm) reset() {
	for i := range f.inputs {
		f.inputs[i].SetValue("")
	}
	f.mode = modeLogin
	f.focus = 0
	f.err = ""
	f.notice = ""
	f.submitting = false
	f.callbackURL = ""
	f.cancelCallback = nil
	f.applyFocus()
}

func (f *authForm) setWidth(width int) {
	w := width - 12
	if w < 20 {
		w = 20
	}
	if w > 60 {
		w = 60
	}
	for i := range f.inputs {
		f.inputs[i].Width = w
	}
}

func (f authForm) focusCmd() tea.Cmd {
	return textinput.Blink
}

func (f authForm) value(field int) string {
	return f.inputs[field].Value()
}

func (m Model) updateAuth(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case authDoneMsg:
		m.busy = false
		m.auth.submitting = false
		m.auth.callbackURL = ""
		m.auth.cancelCallback = nil
		if m.screen == session.ScreenAuthCallback {
			m.screen = session.ScreenLogin
		}
		if msg.err != nil {
			if !errors.Is(msg.err, context.Canceled) {
				m.auth.err = service.AuthMessage(msg.err)
				m.deps.Log.WithError(msg.err).Debug("authentication failed")
			}
			return m, nil
		}
		return m.route()

	case callbackReadyMsg:
		ctx, cancel := context.WithCancel(m.ctx)
		m.screen = session.ScreenAuthCallback
		m.auth.callbackURL = msg.url
		m.auth.cancelCallback = cancel
		return m, waitCallbackCmd(ctx, msg.server)

	case tea.KeyMsg:
		if m.screen == session.ScreenAuthCallback {
			if msg.String() == "esc" && m.auth.cancelCallback != nil {
				m.auth.cancelCallback()
			}
			return m, nil
		}
		if m.auth.submitting {
			return m, nil
		}
		return m.handleAuthKey(msg)
	}
	return m, nil
}

func (m Model) handleAuthKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "tab", "down":
		m.auth.move(1)
		return m, nil
	case "shift+tab", "up":
		m.auth.move(-1)
		return m, nil
	case "ctrl+t":
		m.auth.toggleMode()
		return m, nil
	case "ctrl+b":
		if m.deps.LoginURL == nil {
			return m, nil
		}
		m.auth.err = ""
		m.auth.submitting = true
		return m, startCallbackCmd(m.deps.Guard, m.deps.LoginURL)
	case "enter":
		if m.auth.focus < len(m.auth.fields())-1 {
			m.auth.move(1)
			return m, nil
		}
		m.auth.err = ""
		m.auth.notice = ""
		m.auth.submitting = true
		m.busy = true
		return m, tea.Batch(m.spinner.Tick, m.submitCmd())
	}

	field := m.auth.fields()[m.auth.focus]
	var cmd tea.Cmd
	m.auth.inputs[field], cmd = m.auth.inputs[field].Update(msg)
	return m, cmd
}

// submitCmd logs in or signs up and stores the credential on success.
func (m Model) submitCmd() tea.Cmd {
	ctx, svc, store := m.ctx, m.deps.Service, m.deps.Session
	mode := m.auth.mode
	name, email, password := m.auth.value(fieldName), m.auth.value(fieldEmail), m.auth.value(fieldPassword)

	return func() tea.Msg {
		var token string
		var err error
		if mode == modeSignup {
			token, err = svc.Signup(ctx, service.Signup{Name: name, Email: email, Password: password})
		} else {
			token, err = svc.Login(ctx, service.Credentials{Email: email, Password: password})
		}
		if err == nil {
			err = store.Set(ctx, token)
		}
		return authDoneMsg{err: err}
	}
}

func startCallbackCmd(guard *session.Guard, loginURL func(string) string) tea.Cmd {
	return func() tea.Msg {
		server, err := session.NewCallbackServer(guard)
		if err != nil {
			return authDoneMsg{err: err}
		}
		return callbackReadyMsg{url: loginURL(server.RedirectURL()), server: server}
	}
}

func waitCallbackCmd(ctx context.Context, server *session.CallbackServer) tea.Cmd {
	return func() tea.Msg {
		defer server.Close()
		screen, err := server.WaitForCallback(ctx)
		if err == nil && screen != session.ScreenTasks {
			err = errNoCallbackToken
		}
		return authDoneMsg{err: err}
	}
}

func (m Model) viewAuth() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("SyncDo"))
	b.WriteString("\n")

	if m.screen == session.ScreenAuthCallback {
		b.WriteString("Waiting for browser sign-in " + m.spinner.View() + "\n\n")
		b.WriteString("Open this URL in your browser:\n")
		b.WriteString(m.auth.callbackURL + "\n\n")
		b.WriteString(mutedStyle.Render("esc cancel"))
		return b.String()
	}

	login, signup := tabStyle, tabStyle
	if m.auth.mode == modeLogin {
		login = activeTabStyle
	} else {
		signup = activeTabStyle
	}
	b.WriteString(login.Render("Log in") + signup.Render("Sign up") + "\n\n")

	for _, field := range m.auth.fields() {
		b.WriteString(m.auth.inputs[field].View() + "\n")
	}
	b.WriteString("\n")

	if m.auth.submitting {
		b.WriteString(m.spinner.View() + " working...\n")
	}
	if m.auth.err != "" {
		b.WriteString(errorStyle.Render(m.auth.err) + "\n")
	}
	if m.auth.notice != "" {
		b.WriteString(mutedStyle.Render(m.auth.notice) + "\n")
	}

	help := "enter submit • tab next field • ctrl+t "
	if m.auth.mode == modeLogin {
		help += "sign up instead"
	} else {
		help += "log in instead"
	}
	if m.deps.LoginURL != nil {
		help += " • ctrl+b browser sign-in"
	}
	help += " • esc quit"
	b.WriteString("\n" + mutedStyle.Render(help))
	return b.String()
}
