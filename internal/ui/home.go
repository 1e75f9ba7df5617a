package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"

	"coindeck/internal/domain"
	"coindeck/internal/insight"
	"coindeck/internal/query"
)

type homeModel struct {
	news        query.Result[[]domain.FeedItem]
	newsSig     string
	prices      query.Result[map[string]float64]
	carouselIdx int
	insight     insight.State
	insightMD   string
	width       int
}

func newHomeModel() homeModel {
	return homeModel{width: 80}
}

func (h *homeModel) resize(width int) {
	if width > 0 {
		h.width = width
	}
	h.renderInsight()
}

// renderInsight runs the insight output through the markdown renderer once
// per change rather than on every frame.
func (h *homeModel) renderInsight() {
	h.insightMD = ""
	if h.insight.Output == "" {
		return
	}
	wrap := h.cardWidth() - 4
	if wrap < 20 {
		wrap = 20
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(wrap))
	if err != nil {
		h.insightMD = h.insight.Output
		return
	}
	out, err := r.Render(h.insight.Output)
	if err != nil {
		h.insightMD = h.insight.Output
		return
	}
	h.insightMD = strings.Trim(out, "\n")
}

func (h *homeModel) cardWidth() int {
	w := h.width - 4
	if w > 76 {
		w = 76
	}
	if w < 30 {
		w = 30
	}
	return w
}

func (m Model) updateHome(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "l":
		m.deps.Router.Logout()
	case "left":
		m.deps.Carousel.Prev()
	case "right":
		m.deps.Carousel.Next()
	case "r":
		if m.deps.Session.Preferences().WantsTopic(domain.TopicNews) {
			m.deps.News.Refetch()
		}
	case "a":
		prefs := m.deps.Session.Preferences()
		if prefs == nil {
			return m, nil
		}
		m.deps.Insight.Ask(context.Background(), insight.Prompt(prefs))
	}
	return m, nil
}

func (m Model) viewHome() string {
	if !m.deps.Router.DashboardReady() {
		return "\n  " + dimStyle.Render("Loading your dashboard...") + "\n"
	}

	prefs := m.deps.Session.Preferences()
	h := m.home
	cardW := h.cardWidth()

	var cards []string
	if prefs.WantsTopic(domain.TopicNews) {
		cards = append(cards, m.newsCard(cardW))
	}
	if prefs.WantsTopic(domain.TopicCharts) {
		cards = append(cards, m.pricesCard(cardW))
	}
	if prefs.WantsTopic(domain.TopicSocial) {
		cards = append(cards, placeholderCard(cardW, "Social", "Community chatter is coming soon."))
	}
	if prefs.WantsTopic(domain.TopicFun) {
		cards = append(cards, placeholderCard(cardW, "Fun", "Memes and trivia are coming soon."))
	}
	cards = append(cards, m.insightCard(cardW))

	return "\n" + strings.Join(cards, "\n") + "\n"
}

func (m Model) newsCard(width int) string {
	h := m.home
	var b strings.Builder

	items := h.news.Data
	idx, showing := m.deps.Carousel.Index()
	position := ""
	if showing && idx < len(items) {
		position = fmt.Sprintf("%d / %d", idx+1, len(items))
	}
	b.WriteString(cardTitleStyle.Render("Latest crypto news"))
	if position != "" {
		b.WriteString(dimStyle.Render("    " + position))
	}
	b.WriteString("\n\n")

	switch {
	case h.news.Status == query.Loading && !h.news.HasData:
		b.WriteString(dimStyle.Render("loading news..."))
	case h.news.Status == query.Error && !h.news.HasData:
		b.WriteString(errorStyle.Render("could not load news"))
	case len(items) == 0 || !showing:
		b.WriteString(dimStyle.Render("no news right now"))
	default:
		item := items[idx]
		b.WriteString(symbolStyle.Render(wordwrap.String(item.Title, width-4)))
		b.WriteString("\n")
		if item.Description != "" {
			b.WriteString(wordwrap.String(item.Description, width-4))
			b.WriteString("\n")
		}
		byline := item.Source
		if age := FormatAge(item.PublishedAt, time.Now()); age != "" {
			if byline != "" {
				byline += "  ·  "
			}
			byline += age
		}
		if byline != "" {
			b.WriteString(sourceStyle.Render(byline))
		}
	}

	return cardStyle.Width(width).Render(b.String())
}

func (m Model) pricesCard(width int) string {
	h := m.home
	var b strings.Builder
	b.WriteString(cardTitleStyle.Render("Prices"))
	b.WriteString("\n\n")

	switch {
	case h.prices.Status == query.Loading && !h.prices.HasData:
		b.WriteString(dimStyle.Render("loading prices..."))
	case h.prices.Status == query.Error && !h.prices.HasData:
		b.WriteString(errorStyle.Render("could not load prices"))
	default:
		symbols := m.deps.Prices.Symbols()
		if len(symbols) == 0 {
			b.WriteString(dimStyle.Render("no assets selected"))
		}
		for i, sym := range symbols {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(symbolStyle.Render(fmt.Sprintf("%-6s", strings.ToUpper(sym))))
			b.WriteString(priceStyle.Render(fmt.Sprintf("%12s", FormatPrice(h.prices.Data[sym]))))
		}
	}

	return cardStyle.Width(width).Render(b.String())
}

func (m Model) insightCard(width int) string {
	h := m.home
	var b strings.Builder
	b.WriteString(cardTitleStyle.Render("AI insight"))
	b.WriteString("\n\n")

	switch {
	case h.insight.Loading:
		b.WriteString(dimStyle.Render("thinking..."))
	case h.insight.Err != "":
		b.WriteString(errorStyle.Render(h.insight.Err))
	case h.insightMD != "":
		b.WriteString(h.insightMD)
	default:
		b.WriteString(dimStyle.Render("Press a for today's market insight."))
	}

	return insightBorder.Width(width).Render(b.String())
}

func placeholderCard(width int, title, body string) string {
	content := cardTitleStyle.Render(title) + "\n\n" + dimStyle.Render(body)
	return cardStyle.Width(width).Render(content)
}
