package ui

import (
	"context"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"coindeck/internal/api"
	"coindeck/internal/domain"
)

// onboardingAssets is the pick list offered to new users.
var onboardingAssets = []string{"BTC", "ETH", "SOL", "ADA", "DOT", "XRP", "DOGE", "LINK", "AVAX", "MATIC"}

// onboardingTopics in display order.
var onboardingTopics = []string{domain.TopicNews, domain.TopicCharts, domain.TopicSocial, domain.TopicFun}

const (
	obSectionAssets = iota
	obSectionInvestor
	obSectionTopics
	obSectionCount
)

type onboardingModel struct {
	section  int
	cursor   [obSectionCount]int
	assets   map[string]bool
	investor int
	topics   map[string]bool
	err      string
	busy     bool
}

func newOnboardingModel() onboardingModel {
	// All content topics start selected; users deselect what they don't want.
	topics := make(map[string]bool, len(onboardingTopics))
	for _, t := range onboardingTopics {
		topics[t] = true
	}
	return onboardingModel{
		assets: make(map[string]bool),
		topics: topics,
	}
}

func (o *onboardingModel) sectionLen() int {
	switch o.section {
	case obSectionAssets:
		return len(onboardingAssets)
	case obSectionInvestor:
		return len(domain.InvestorTypes)
	default:
		return len(onboardingTopics)
	}
}

func (o *onboardingModel) toggle() {
	i := o.cursor[o.section]
	switch o.section {
	case obSectionAssets:
		sym := onboardingAssets[i]
		if o.assets[sym] {
			delete(o.assets, sym)
		} else {
			o.assets[sym] = true
		}
	case obSectionInvestor:
		o.investor = i
	case obSectionTopics:
		topic := onboardingTopics[i]
		if o.topics[topic] {
			delete(o.topics, topic)
		} else {
			o.topics[topic] = true
		}
	}
}

func (o *onboardingModel) validate() string {
	if len(o.assets) == 0 {
		return "pick at least one asset"
	}
	if len(o.topics) == 0 {
		return "pick at least one content topic"
	}
	return ""
}

func (o *onboardingModel) update() api.PreferencesUpdate {
	currencies := make([]string, 0, len(o.assets))
	for _, sym := range onboardingAssets {
		if o.assets[sym] {
			currencies = append(currencies, sym)
		}
	}
	content := make([]string, 0, len(o.topics))
	for _, topic := range onboardingTopics {
		if o.topics[topic] {
			content = append(content, topic)
		}
	}
	return api.PreferencesUpdate{
		Currencies:   currencies,
		InvestorType: domain.InvestorTypes[o.investor],
		Content:      content,
	}
}

func (m Model) updateOnboarding(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	o := &m.onboarding
	switch key.String() {
	case "tab":
		o.section = (o.section + 1) % obSectionCount
	case "shift+tab":
		o.section = (o.section + obSectionCount - 1) % obSectionCount
	case "up":
		if o.cursor[o.section] > 0 {
			o.cursor[o.section]--
		}
	case "down":
		if o.cursor[o.section] < o.sectionLen()-1 {
			o.cursor[o.section]++
		}
	case " ":
		o.toggle()
	case "enter":
		if o.busy {
			return m, nil
		}
		if verr := o.validate(); verr != "" {
			o.err = verr
			return m, nil
		}
		cred := m.deps.Session.Credential()
		if cred == nil {
			return m, nil
		}
		o.err = ""
		o.busy = true
		update := o.update()
		token := cred.Token
		client := m.deps.Client
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_, err := client.PutPreferences(ctx, token, update)
			return onboardingSavedMsg{err: err}
		}
	}
	return m, nil
}

func (m Model) viewOnboarding() string {
	o := m.onboarding
	var b strings.Builder
	b.WriteString("\n  " + titleStyle.Render("Set up your dashboard") + "\n\n")

	b.WriteString("  " + sectionHeader("Assets you follow", o.section == obSectionAssets) + "\n")
	for i, sym := range onboardingAssets {
		b.WriteString("  " + pickRow(sym, o.assets[sym], o.section == obSectionAssets && o.cursor[obSectionAssets] == i, false) + "\n")
	}
	b.WriteString("\n  " + sectionHeader("What kind of investor are you?", o.section == obSectionInvestor) + "\n")
	for i, kind := range domain.InvestorTypes {
		b.WriteString("  " + pickRow(kind, o.investor == i, o.section == obSectionInvestor && o.cursor[obSectionInvestor] == i, true) + "\n")
	}
	b.WriteString("\n  " + sectionHeader("Content on your dashboard", o.section == obSectionTopics) + "\n")
	for i, topic := range onboardingTopics {
		b.WriteString("  " + pickRow(topic, o.topics[topic], o.section == obSectionTopics && o.cursor[obSectionTopics] == i, false) + "\n")
	}

	if o.busy {
		b.WriteString("\n  " + dimStyle.Render("saving...") + "\n")
	}
	if o.err != "" {
		b.WriteString("\n  " + errorStyle.Render(o.err) + "\n")
	}
	return b.String()
}

func sectionHeader(label string, active bool) string {
	if active {
		return sectionStyle.Render(label)
	}
	return dimStyle.Render(label)
}

func pickRow(label string, selected, focused, radio bool) string {
	mark := "[ ]"
	if radio {
		mark = "( )"
	}
	if selected {
		if radio {
			mark = checkedStyle.Render("(*)")
		} else {
			mark = checkedStyle.Render("[x]")
		}
	}
	prefix := "  "
	if focused {
		prefix = cursorStyle.Render("> ")
	}
	return prefix + mark + " " + label
}
