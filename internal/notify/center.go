// Package notify holds the transient banner shown after decisions and
// failures.
package notify

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultTTL is how long a notice stays visible.
const DefaultTTL = 3 * time.Second

// Level classifies a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is one visible message.
type Notice struct {
	Level Level
	Text  string
	Seq   uint64
}

// DismissMsg asks the center to clear the notice with the matching sequence.
// A message carrying an older sequence is stale and ignored.
type DismissMsg struct {
	Seq uint64
}

// Sink is the subset of Center used by producers of notices.
type Sink interface {
	Notify(level Level, text string) tea.Cmd
}

// Center owns at most one notice and the timer that will dismiss it.
type Center struct {
	ttl     time.Duration
	seq     uint64
	current *Notice
	closed  bool
}

// NewCenter creates a center; a non-positive ttl uses DefaultTTL.
func NewCenter(ttl time.Duration) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Center{ttl: ttl}
}

// Notify replaces the visible notice and returns the command that will
// dismiss it. Any timer scheduled for the previous notice is invalidated.
func (c *Center) Notify(level Level, text string) tea.Cmd {
	if c == nil || c.closed {
		return nil
	}
	c.seq++
	seq := c.seq
	c.current = &Notice{Level: level, Text: text, Seq: seq}
	return tea.Tick(c.ttl, func(time.Time) tea.Msg {
		return DismissMsg{Seq: seq}
	})
}

// Infof shows an informational notice.
func (c *Center) Infof(format string, args ...any) tea.Cmd {
	return c.Notify(LevelInfo, fmt.Sprintf(format, args...))
}

// Successf shows a success notice.
func (c *Center) Successf(format string, args ...any) tea.Cmd {
	return c.Notify(LevelSuccess, fmt.Sprintf(format, args...))
}

// Errorf shows a failure notice.
func (c *Center) Errorf(format string, args ...any) tea.Cmd {
	return c.Notify(LevelError, fmt.Sprintf(format, args...))
}

// Update consumes DismissMsg values. It reports whether msg was handled.
func (c *Center) Update(msg tea.Msg) bool {
	dm, ok := msg.(DismissMsg)
	if !ok || c == nil {
		return false
	}
	if c.current != nil && c.current.Seq == dm.Seq {
		c.current = nil
	}
	return true
}

// Current returns the visible notice.
func (c *Center) Current() (Notice, bool) {
	if c == nil || c.current == nil {
		return Notice{}, false
	}
	return *c.current, true
}

// Dismiss clears the visible notice and invalidates its timer.
func (c *Center) Dismiss() {
	if c == nil {
		return
	}
	c.seq++
	c.current = nil
}

// Close tears the center down; pending timers become no-ops and further
// notices are dropped.
func (c *Center) Close() {
	if c == nil {
		return
	}
	c.Dismiss()
	c.closed = true
}

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
)

// View renders the banner, or "" when nothing is visible.
func (c *Center) View() string {
	n, ok := c.Current()
	if !ok {
		return ""
	}
	switch n.Level {
	case LevelSuccess:
		return successStyle.Render("✓ " + n.Text)
	case LevelError:
		return errorStyle.Render("⚠ " + n.Text)
	default:
		return infoStyle.Render(n.Text)
	}
}
