package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/devmatch/internal/engine"
	"github.com/kingrea/devmatch/internal/gesture"
)

const (
	cardWidth    = 44
	logPanelRows = 6
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	nameStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF"))
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B8DEF")).
			Padding(0, 1).
			Width(cardWidth)
	likeStamp = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50")).
			Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#4CAF50"))
	nopeStamp = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).
			Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("#FF6B6B"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
)

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	header := headerStyle.Render("♥ DEVMATCH")

	var sections []string
	switch a.state {
	case stateFeed:
		sections = a.renderFeed(header, width)
	case stateRequests:
		a.card = rect{}
		sections = []string{header, a.renderRequests(width)}
	case stateConnections:
		a.card = rect{}
		sections = []string{header, a.renderConnections()}
	default:
		a.card = rect{}
		sections = []string{header, a.mainMenu.View()}
	}

	if banner := a.notices.View(); banner != "" {
		sections = append(sections, banner)
	}
	if logPanel := a.renderLogPanel(width); logPanel != "" {
		sections = append(sections, logPanel)
	}
	if a.statusMsg != "" {
		sections = append(sections, dimStyle.Render(a.statusMsg))
	}
	return strings.Join(sections, "\n")
}

// renderFeed lays the card out at a known position so mouse events can be
// hit-tested against it.
func (a *App) renderFeed(header string, width int) []string {
	pre := lipgloss.JoinVertical(lipgloss.Left, header, a.feedStatusLine(), "")
	head, ok := a.engine.Head()
	if !ok {
		a.card = rect{}
		return []string{pre, a.renderEmptyFeed()}
	}

	body := a.renderCard(head.DisplayName(), head.Badge(), head.Photo(), head.About)
	base := max(0, (width-lipgloss.Width(body))/2)
	a.card = rect{x: base, y: lipgloss.Height(pre), w: lipgloss.Width(body), h: lipgloss.Height(body)}

	margin := max(0, base+a.offsetCells())
	card := lipgloss.NewStyle().MarginLeft(margin).Render(body)

	sections := []string{pre, card}
	if next := a.engine.Upcoming(2); len(next) > 0 {
		names := make([]string, len(next))
		for i, c := range next {
			names[i] = c.DisplayName()
		}
		sections = append(sections, dimStyle.Render("Up next: "+strings.Join(names, ", ")))
	}
	return sections
}

func (a *App) feedStatusLine() string {
	n := a.engine.Len()
	plural := "s"
	if n == 1 {
		plural = ""
	}
	line := fmt.Sprintf("● %d user%s in your feed", n, plural)
	if pending := a.engine.Pending(); pending > 0 {
		line += fmt.Sprintf(" · saving %d", pending)
	}
	return dimStyle.Render(line)
}

func (a *App) renderCard(name, badge, photo, about string) string {
	var lines []string
	switch a.tracker.Signal().Direction {
	case gesture.DirectionRight:
		lines = append(lines, likeStamp.Render("LIKE"))
	case gesture.DirectionLeft:
		lines = append(lines, nopeStamp.Render("NOPE"))
	}
	lines = append(lines, nameStyle.Render(name))
	if badge != "" {
		lines = append(lines, badge)
	}
	lines = append(lines, dimStyle.Render("📷 "+photo))
	if about != "" {
		lines = append(lines, "", about)
	}
	lines = append(lines, "", dimStyle.Render("← ignore   interested →"))
	return cardStyle.Render(strings.Join(lines, "\n"))
}

func (a *App) renderEmptyFeed() string {
	switch a.engine.Phase() {
	case engine.PhaseLoading:
		return a.spinner.View() + " Finding amazing people for you..."
	case engine.PhaseRefilling:
		return a.spinner.View() + " Loading more users..."
	case engine.PhaseFailed:
		msg := a.engine.LastError()
		if msg == "" {
			msg = engine.FetchFailedText
		}
		return panelStyle.Render(strings.Join([]string{
			nameStyle.Render("⚠ Oops! Something went wrong"),
			msg,
			dimStyle.Render("press r to try again"),
		}, "\n"))
	default:
		return panelStyle.Render(strings.Join([]string{
			nameStyle.Render("🎉 No More Users!"),
			engine.ExhaustedText,
			dimStyle.Render("press r to refresh · new users join every day"),
		}, "\n"))
	}
}

func (a *App) renderRequests(width int) string {
	title := nameStyle.Render(fmt.Sprintf("Connection Requests (%d)", a.board.Len()))
	switch {
	case a.board.Loading() && a.board.Len() == 0:
		return title + "\n" + a.spinner.View() + " Loading requests..."
	case a.board.Err() != "":
		return title + "\n" + a.board.Err() + "\n" + dimStyle.Render("press r to try again")
	case a.board.Len() == 0:
		return title + "\n" + dimStyle.Render("No pending requests.")
	}
	rows := []string{title}
	for i, req := range a.board.Items() {
		sender := req.Sender()
		line := sender.DisplayName()
		if badge := sender.Badge(); badge != "" {
			line += " · " + badge
		}
		if i == a.board.Cursor() {
			rows = append(rows, selectedStyle.Render("▸ "+line))
		} else {
			rows = append(rows, "  "+line)
		}
	}
	return panelStyle.Width(max(20, width-4)).Render(strings.Join(rows, "\n"))
}

func (a *App) renderConnections() string {
	switch {
	case a.roster.Loading() && a.roster.Len() == 0:
		return a.spinner.View() + " Loading your connections..."
	case a.roster.Err() != "":
		return a.roster.Err() + "\n" + dimStyle.Render("press r to try again")
	case a.roster.Loaded() && a.roster.Len() == 0:
		return dimStyle.Render("No connections yet. Start swiping!")
	}
	return a.connList.View()
}

func (a *App) renderLogPanel(width int) string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelRows)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s · %d entries", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		MaxWidth(max(20, width-4)).
		Render(strings.Join(lines, "\n"))
	return panelStyle.Render(head + "\n" + body)
}
