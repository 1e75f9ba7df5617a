package ui

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	loginFieldEmail = iota
	loginFieldPassword
	loginFieldRemember
	loginFieldCount
)

type loginModel struct {
	inputs   []textinput.Model
	focus    int
	remember bool
	err      string
	busy     bool
}

func newLoginModel() loginModel {
	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128
	email.Width = 40
	email.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.Width = 40
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return loginModel{inputs: []textinput.Model{email, password}}
}

func (l loginModel) init() tea.Cmd {
	return textinput.Blink
}

func (l *loginModel) setFocus(i int) tea.Cmd {
	l.focus = i
	var cmd tea.Cmd
	for j := range l.inputs {
		if j == i {
			cmd = l.inputs[j].Focus()
		} else {
			l.inputs[j].Blur()
		}
	}
	return cmd
}

func (l *loginModel) validate() string {
	email := strings.TrimSpace(l.inputs[loginFieldEmail].Value())
	if !emailRe.MatchString(email) {
		return "enter a valid email address"
	}
	if l.inputs[loginFieldPassword].Value() == "" {
		return "enter your password"
	}
	return ""
}

func (m Model) updateLogin(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+n":
			m.deps.Router.SwitchToRegister()
			return m, nil
		case "tab", "down":
			return m, m.login.setFocus((m.login.focus + 1) % loginFieldCount)
		case "shift+tab", "up":
			return m, m.login.setFocus((m.login.focus + loginFieldCount - 1) % loginFieldCount)
		case " ":
			if m.login.focus == loginFieldRemember {
				m.login.remember = !m.login.remember
				return m, nil
			}
		case "enter":
			if m.login.busy {
				return m, nil
			}
			if verr := m.login.validate(); verr != "" {
				m.login.err = verr
				return m, nil
			}
			m.login.err = ""
			m.login.busy = true
			email := strings.TrimSpace(m.login.inputs[loginFieldEmail].Value())
			password := m.login.inputs[loginFieldPassword].Value()
			remember := m.login.remember
			client := m.deps.Client
			return m, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				cred, err := client.Login(ctx, email, password)
				return loginResultMsg{cred: cred, remember: remember, err: err}
			}
		}
	}

	var cmd tea.Cmd
	if m.login.focus < len(m.login.inputs) {
		m.login.inputs[m.login.focus], cmd = m.login.inputs[m.login.focus].Update(msg)
	}
	return m, cmd
}

func (m Model) viewLogin() string {
	l := m.login
	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render("Sign in") + "\n\n")
	if m.notice != "" {
		b.WriteString("  " + noticeStyle.Render(m.notice) + "\n\n")
	}
	b.WriteString("  " + fieldLabel("Email", l.focus == loginFieldEmail) + "\n")
	b.WriteString("  " + l.inputs[loginFieldEmail].View() + "\n\n")
	b.WriteString("  " + fieldLabel("Password", l.focus == loginFieldPassword) + "\n")
	b.WriteString("  " + l.inputs[loginFieldPassword].View() + "\n\n")
	b.WriteString("  " + checkbox("Remember me", l.remember, l.focus == loginFieldRemember) + "\n")
	if l.busy {
		b.WriteString("\n  " + dimStyle.Render("signing in...") + "\n")
	}
	if l.err != "" {
		b.WriteString("\n  " + errorStyle.Render(l.err) + "\n")
	}
	b.WriteString("\n  " + dimStyle.Render("No account yet? Press ctrl+n to create one.") + "\n")
	return b.String()
}

func fieldLabel(label string, focused bool) string {
	if focused {
		return focusedStyle.Render(label)
	}
	return blurredStyle.Render(label)
}

func checkbox(label string, checked, focused bool) string {
	mark := "[ ]"
	if checked {
		mark = checkedStyle.Render("[x]")
	}
	if focused {
		return cursorStyle.Render("> ") + mark + " " + fieldLabel(label, focused)
	}
	return "  " + mark + " " + fieldLabel(label, focused)
}
