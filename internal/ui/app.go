// Package ui is the bubbletea front end: one screen per router view, all
// driven by messages pushed from the core components via Bind.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"coindeck/internal/api"
	"coindeck/internal/carousel"
	"coindeck/internal/config"
	"coindeck/internal/domain"
	"coindeck/internal/feed"
	"coindeck/internal/insight"
	"coindeck/internal/query"
	"coindeck/internal/router"
	"coindeck/internal/session"
)

// Deps are the core components the UI drives and observes. The UI never
// mutates feed or session state directly; it calls their operations and
// repaints on the resulting messages.
type Deps struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Client   *api.Client
	Session  *session.Store
	Router   *router.Router
	Prefs    *feed.Preferences
	News     *feed.News
	Prices   *feed.Prices
	Carousel *carousel.Controller
	Insight  *insight.Controller
}

// Messages pushed from core subscriptions.
type ViewChangedMsg router.View
type SessionChangedMsg struct{}
type NewsMsg query.Result[[]domain.FeedItem]
type PricesMsg query.Result[map[string]float64]
type CarouselMsg int
type InsightMsg insight.State

// Command results.
type loginResultMsg struct {
	cred     *domain.Credential
	remember bool
	err      error
}

type registerResultMsg struct {
	err error
}

type onboardingSavedMsg struct {
	err error
}

// Bind subscribes the program to every core component so state changes
// arrive as bubbletea messages. The carousel is wired separately at
// construction time since its callback is part of its constructor.
func Bind(d Deps, send func(tea.Msg)) {
	d.Router.Subscribe(func(v router.View) { send(ViewChangedMsg(v)) })
	d.Session.Subscribe(func() { send(SessionChangedMsg{}) })
	d.News.Subscribe(func(res query.Result[[]domain.FeedItem]) { send(NewsMsg(res)) })
	d.Prices.Subscribe(func(res query.Result[map[string]float64]) { send(PricesMsg(res)) })
	d.Insight.Subscribe(func(st insight.State) { send(InsightMsg(st)) })
}

// Model is the root bubbletea model.
type Model struct {
	deps Deps

	view          router.View
	width, height int
	ready         bool

	login      loginModel
	register   registerModel
	onboarding onboardingModel
	home       homeModel

	insightAsked bool // the first dashboard entry asks automatically

	notice string // transient status line shown on the login screen
}

// New creates the root model starting on the router's current view.
func New(d Deps) Model {
	return Model{
		deps:       d,
		view:       d.Router.Current(),
		login:      newLoginModel(),
		register:   newRegisterModel(),
		onboarding: newOnboardingModel(),
		home:       newHomeModel(),
	}
}

// Init re-emits the starting view as a message. A restored session begins on
// home, and routing that through Update is what activates its feeds.
func (m Model) Init() tea.Cmd {
	view := m.view
	return tea.Batch(m.login.init(), func() tea.Msg { return ViewChangedMsg(view) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.home.resize(msg.Width)
		return m, nil

	case ViewChangedMsg:
		prev := m.view
		m.view = router.View(msg)
		if m.view == router.Home {
			m.syncDashboard()
		} else if prev == router.Home {
			m.teardownDashboard()
		}
		if m.view == router.Onboarding {
			m.onboarding = newOnboardingModel()
		}
		if m.view == router.Login && prev != router.Register {
			m.login = newLoginModel()
		}
		return m, nil

	case SessionChangedMsg:
		// Preferences resolving (or changing) while on home adjusts which
		// feeds run and which cards show.
		if m.view == router.Home {
			m.syncDashboard()
		}
		return m, nil

	case NewsMsg:
		m.home.news = query.Result[[]domain.FeedItem](msg)
		m.syncCarousel()
		return m, nil

	case PricesMsg:
		m.home.prices = query.Result[map[string]float64](msg)
		return m, nil

	case CarouselMsg:
		m.home.carouselIdx = int(msg)
		return m, nil

	case InsightMsg:
		m.home.insight = insight.State(msg)
		m.home.renderInsight()
		return m, nil

	case loginResultMsg:
		m.login.busy = false
		if msg.err != nil {
			m.login.err = msg.err.Error()
			return m, nil
		}
		m.login.err = ""
		m.notice = ""
		m.deps.Router.LoginSucceeded(msg.cred, msg.remember)
		return m, nil

	case registerResultMsg:
		m.register.busy = false
		if msg.err != nil {
			m.register.err = msg.err.Error()
			return m, nil
		}
		m.register = newRegisterModel()
		m.notice = "Account created. Sign in to continue."
		m.deps.Router.SwitchToLogin()
		return m, nil

	case onboardingSavedMsg:
		m.onboarding.busy = false
		if msg.err != nil {
			m.onboarding.err = msg.err.Error()
			return m, nil
		}
		m.deps.Router.OnboardingCompleted()
		return m, nil
	}

	switch m.view {
	case router.Login:
		return m.updateLogin(msg)
	case router.Register:
		return m.updateRegister(msg)
	case router.Onboarding:
		return m.updateOnboarding(msg)
	case router.Home:
		return m.updateHome(msg)
	}
	return m, nil
}

// syncDashboard activates the feeds the resolved preferences call for. Safe
// to call repeatedly; activation of a fresh entry is a no-op.
func (m *Model) syncDashboard() {
	if !m.deps.Router.DashboardReady() {
		return
	}
	prefs := m.deps.Session.Preferences()
	if prefs.WantsTopic(domain.TopicNews) {
		m.deps.News.Activate()
	} else {
		m.deps.News.Deactivate()
	}
	if prefs.WantsTopic(domain.TopicCharts) {
		m.deps.Prices.SetSymbols(prefs.Symbols())
	} else {
		m.deps.Prices.SetSymbols(nil)
	}
	m.home.news = m.deps.News.Snapshot()
	m.home.prices = m.deps.Prices.Snapshot()
	m.syncCarousel()

	if !m.insightAsked {
		m.insightAsked = true
		m.deps.Insight.Ask(context.Background(), insight.Prompt(prefs))
	}
}

// teardownDashboard stops feeds and timers when home is left.
func (m *Model) teardownDashboard() {
	m.deps.News.Deactivate()
	m.deps.Prices.Deactivate()
	m.deps.Carousel.SetItems(0)
	m.home = newHomeModel()
	m.home.resize(m.width)
	m.insightAsked = false
}

// syncCarousel resets the rotation only when the article list actually
// changed; a silent refetch that returns the same items keeps the current
// position.
func (m *Model) syncCarousel() {
	items := m.home.news.Data
	sig := newsSignature(items)
	if sig == m.home.newsSig {
		return
	}
	m.home.newsSig = sig
	m.deps.Carousel.SetItems(len(items))
	m.home.carouselIdx = 0
}

func newsSignature(items []domain.FeedItem) string {
	if len(items) == 0 {
		return ""
	}
	return fmt.Sprintf("%d:%d:%d", len(items), items[0].ID, items[len(items)-1].ID)
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var body string
	switch m.view {
	case router.Login:
		body = m.viewLogin()
	case router.Register:
		body = m.viewRegister()
	case router.Onboarding:
		body = m.viewOnboarding()
	case router.Home:
		body = m.viewHome()
	}

	header := headerStyle.Render(padOrTrunc(m.headerText(), m.width))
	footer := footerStyle.Render(padOrTrunc(m.footerText(), m.width))

	bodyH := m.height - 2
	if bodyH < 1 {
		bodyH = 1
	}
	lines := strings.Split(body, "\n")
	if len(lines) > bodyH {
		lines = lines[:bodyH]
	}
	for len(lines) < bodyH {
		lines = append(lines, "")
	}
	return header + "\n" + strings.Join(lines, "\n") + "\n" + footer
}

func (m Model) headerText() string {
	who := "not signed in"
	if cred := m.deps.Session.Credential(); cred != nil {
		who = "signed in"
		if prefs := m.deps.Session.Preferences(); prefs != nil && prefs.InvestorType != "" {
			who = prefs.InvestorType
		}
	}
	return fmt.Sprintf(" coindeck    %s    [%s] ", who, m.view)
}

func (m Model) footerText() string {
	switch m.view {
	case router.Login:
		return " enter sign in  ctrl+n create account  tab next field  ctrl+c quit"
	case router.Register:
		return " enter create account  esc back to sign in  tab next field  ctrl+c quit"
	case router.Onboarding:
		return " tab section  up/dn move  space toggle  enter save  ctrl+c quit"
	case router.Home:
		return " left/right news  a insight  r refresh  l sign out  ctrl+c quit"
	}
	return ""
}
