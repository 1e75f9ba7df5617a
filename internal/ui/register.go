package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	regFieldName = iota
	regFieldEmail
	regFieldPassword
	regFieldConfirm
	regFieldCount
)

type registerModel struct {
	inputs []textinput.Model
	focus  int
	err    string
	busy   bool
}

func newRegisterModel() registerModel {
	name := textinput.New()
	name.Placeholder = "full name"
	name.CharLimit = 128
	name.Width = 40
	name.Focus()

	email := textinput.New()
	email.Placeholder = "email"
	email.CharLimit = 128
	email.Width = 40

	password := textinput.New()
	password.Placeholder = "password"
	password.CharLimit = 128
	password.Width = 40
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	confirm := textinput.New()
	confirm.Placeholder = "confirm password"
	confirm.CharLimit = 128
	confirm.Width = 40
	confirm.EchoMode = textinput.EchoPassword
	confirm.EchoCharacter = '•'

	return registerModel{inputs: []textinput.Model{name, email, password, confirm}}
}

func (r *registerModel) setFocus(i int) tea.Cmd {
	r.focus = i
	var cmd tea.Cmd
	for j := range r.inputs {
		if j == i {
			cmd = r.inputs[j].Focus()
		} else {
			r.inputs[j].Blur()
		}
	}
	return cmd
}

func (r *registerModel) validate() string {
	if strings.TrimSpace(r.inputs[regFieldName].Value()) == "" {
		return "enter your full name"
	}
	if !emailRe.MatchString(strings.TrimSpace(r.inputs[regFieldEmail].Value())) {
		return "enter a valid email address"
	}
	if len(r.inputs[regFieldPassword].Value()) < 8 {
		return "password must be at least 8 characters"
	}
	if r.inputs[regFieldConfirm].Value() != r.inputs[regFieldPassword].Value() {
		return "passwords do not match"
	}
	return ""
}

func (m Model) updateRegister(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "esc":
			m.deps.Router.SwitchToLogin()
			return m, nil
		case "tab", "down":
			return m, m.register.setFocus((m.register.focus + 1) % regFieldCount)
		case "shift+tab", "up":
			return m, m.register.setFocus((m.register.focus + regFieldCount - 1) % regFieldCount)
		case "enter":
			if m.register.busy {
				return m, nil
			}
			if verr := m.register.validate(); verr != "" {
				m.register.err = verr
				return m, nil
			}
			m.register.err = ""
			m.register.busy = true
			name := strings.TrimSpace(m.register.inputs[regFieldName].Value())
			email := strings.TrimSpace(m.register.inputs[regFieldEmail].Value())
			password := m.register.inputs[regFieldPassword].Value()
			client := m.deps.Client
			return m, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				defer cancel()
				_, err := client.Register(ctx, name, email, password)
				return registerResultMsg{err: err}
			}
		}
	}

	var cmd tea.Cmd
	m.register.inputs[m.register.focus], cmd = m.register.inputs[m.register.focus].Update(msg)
	return m, cmd
}

func (m Model) viewRegister() string {
	r := m.register
	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render("Create account") + "\n\n")
	labels := []string{"Full name", "Email", "Password", "Confirm password"}
	for i, label := range labels {
		b.WriteString("  " + fieldLabel(label, r.focus == i) + "\n")
		b.WriteString("  " + r.inputs[i].View() + "\n\n")
	}
	if r.busy {
		b.WriteString("  " + dimStyle.Render("creating account...") + "\n")
	}
	if r.err != "" {
		b.WriteString("  " + errorStyle.Render(r.err) + "\n")
	}
	b.WriteString("\n  " + dimStyle.Render("Press esc to go back to sign in.") + "\n")
	return b.String()
}
