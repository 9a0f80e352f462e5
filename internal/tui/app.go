// internal/tui/app.go
//
// This is the main TUI (Terminal User Interface) for devmatch.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// Network results, refill timers and notice timers all come back as messages,
// so the engine, queue and gesture tracker are only touched from Update.

package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/kingrea/devmatch/internal/bridge"
	"github.com/kingrea/devmatch/internal/candidate"
	"github.com/kingrea/devmatch/internal/config"
	"github.com/kingrea/devmatch/internal/connections"
	"github.com/kingrea/devmatch/internal/engine"
	"github.com/kingrea/devmatch/internal/gateway"
	"github.com/kingrea/devmatch/internal/gesture"
	"github.com/kingrea/devmatch/internal/logbook"
	"github.com/kingrea/devmatch/internal/notify"
	"github.com/kingrea/devmatch/internal/requests"
)

// appState represents which "screen" we're on
type appState int

const (
	stateMainMenu    appState = iota // Discover / Requests / Connections / Quit
	stateFeed                        // One candidate card at a time
	stateRequests                    // Pending inbound requests
	stateConnections                 // Accepted connections
)

// mousePointer is the pointer id used for terminal mouse gestures.
const mousePointer = "mouse"

// Backend is everything the screens need from the REST API.
type Backend interface {
	engine.FeedSource
	requests.Source
	connections.Source
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithBackend replaces the gateway client built from config.
func WithBackend(b Backend) AppOption {
	return func(a *App) {
		if b != nil {
			a.backend = b
		}
	}
}

// WithContext sets the context every backend call runs under. Cancelling it
// aborts in-flight fetches and submissions.
func WithContext(ctx context.Context) AppOption {
	return func(a *App) {
		if ctx != nil {
			a.ctx = ctx
		}
	}
}

// WithLogbook attaches the activity journal shown in the log panel.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		a.logbook = lb
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log zerolog.Logger) AppOption {
	return func(a *App) {
		a.log = log
	}
}

// WithRecorder passes a metrics recorder to the decision engine.
func WithRecorder(r engine.Recorder) AppOption {
	return func(a *App) {
		a.recorder = r
	}
}

// WithStateStore publishes engine snapshots for the diagnostics bridge.
func WithStateStore(s *bridge.StateStore) AppOption {
	return func(a *App) {
		a.stateStore = s
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	state  appState
	config *config.Config
	ctx    context.Context

	backend    Backend
	engine     *engine.Engine
	board      *requests.Board
	roster     *connections.Roster
	notices    *notify.Center
	tracker    *gesture.Tracker
	logbook    *logbook.Logbook
	log        zerolog.Logger
	recorder   engine.Recorder
	stateStore *bridge.StateStore

	// gestureTarget is the head id when the current gesture began
	gestureTarget string
	cellW, cellH  float64
	card          rect

	// UI components
	mainMenu  list.Model
	connList  list.Model
	spinner   spinner.Model
	statusMsg string

	// Window size (we get this from bubbletea)
	width  int
	height int
}

// menuItem implements list.Item interface for our menu items
type menuItem struct {
	title  string
	desc   string
	target appState
	quit   bool
}

func (i menuItem) Title() string       { return i.title }
func (i menuItem) Description() string { return i.desc }
func (i menuItem) FilterValue() string { return i.title }

// connectionItem renders one accepted connection in the list.
type connectionItem struct {
	c candidate.Candidate
}

func (i connectionItem) Title() string { return i.c.DisplayName() }
func (i connectionItem) Description() string {
	if badge := i.c.Badge(); badge != "" {
		if i.c.About != "" {
			return badge + " · " + i.c.About
		}
		return badge
	}
	return i.c.About
}
func (i connectionItem) FilterValue() string { return i.c.DisplayName() }

// NewApp creates a new App instance
func NewApp(cfg *config.Config, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("tui: config is required")
	}
	app := &App{
		state:   stateMainMenu,
		config:  cfg,
		ctx:     context.Background(),
		log:     zerolog.Nop(),
		notices: notify.NewCenter(cfg.Project.Feed.NoticeTTL),
		tracker: gesture.NewTracker(cfg.Thresholds()),
	}
	app.cellW, app.cellH = cfg.CellScale()
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.backend == nil {
		client, err := gateway.New(gateway.ClientConfig{
			BaseURL:      cfg.BaseURL(),
			ReadTimeout:  cfg.Project.API.ReadTimeout,
			WriteTimeout: cfg.Project.API.WriteTimeout,
		}, gateway.WithLogger(app.log.With().Str("component", "gateway").Logger()))
		if err != nil {
			return nil, err
		}
		app.backend = client
	}

	engineOpts := []engine.Option{
		engine.WithContext(app.ctx),
		engine.WithNotifier(app.notices),
		engine.WithRefillDelay(cfg.Project.Feed.RefillDelay),
		engine.WithLogger(app.log.With().Str("component", "engine").Logger()),
	}
	if app.recorder != nil {
		engineOpts = append(engineOpts, engine.WithRecorder(app.recorder))
	}
	app.engine = engine.New(app.backend, engineOpts...)
	app.engine.Subscribe(app.journal)
	app.board = requests.NewBoard(app.ctx, app.backend, app.notices, app.log.With().Str("component", "requests").Logger())
	app.roster = connections.NewRoster(app.ctx, app.backend, app.log.With().Str("component", "connections").Logger())

	mainMenu := list.New(buildMainMenu(), list.NewDefaultDelegate(), 0, 0)
	mainMenu.Title = "♥ DEVMATCH"
	mainMenu.SetShowStatusBar(false)
	mainMenu.SetFilteringEnabled(false)
	app.mainMenu = mainMenu

	connList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	connList.Title = "Connections"
	connList.SetShowStatusBar(false)
	connList.SetFilteringEnabled(false)
	app.connList = connList

	app.spinner = spinner.New()
	app.spinner.Spinner = spinner.Dot

	if app.logbook != nil {
		app.logbook.Info("Session opened · api: %s", cfg.BaseURL())
	}
	return app, nil
}

func buildMainMenu() []list.Item {
	return []list.Item{
		menuItem{title: "Discover", desc: "Swipe through people in your feed", target: stateFeed},
		menuItem{title: "Requests", desc: "Review pending connection requests", target: stateRequests},
		menuItem{title: "Connections", desc: "People you are connected with", target: stateConnections},
		menuItem{title: "Quit", desc: "Leave devmatch", quit: true},
	}
}

// journal mirrors engine events into the activity log.
func (a *App) journal(ev engine.Event) {
	switch ev.Kind {
	case engine.EventHeadChanged:
		// a gesture that started on the previous head must not land on the new one
		if a.tracker.Active() {
			a.tracker.Cancel(a.tracker.Pointer())
			a.gestureTarget = ""
		}
	case engine.EventCommitted:
		a.logInfo("%s → %s", ev.Name, ev.Action)
	case engine.EventSubmissionFailed:
		a.logWarn("Could not save %s for %s: %v", ev.Action, ev.Name, ev.Err)
	case engine.EventRefillScheduled:
		a.logInfo("Feed empty · refilling")
	case engine.EventExhausted:
		a.logInfo("No more users in the feed")
	case engine.EventFetchFailed:
		a.logError("Feed fetch failed: %v", ev.Err)
	}
}

func (a *App) logInfo(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Warn(format, args...)
}

func (a *App) logError(format string, args ...any) {
	if a.logbook == nil {
		return
	}
	a.logbook.Error(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	a.publish()
	return tea.Batch(a.engine.Init(), a.spinner.Tick)
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := a.update(msg)
	a.publish()
	return a, cmd
}

func (a *App) update(msg tea.Msg) tea.Cmd {
	if a.notices.Update(msg) {
		return nil
	}
	if cmd, ok := a.engine.Update(msg); ok {
		return cmd
	}
	if cmd, ok := a.board.Update(msg); ok {
		return cmd
	}
	if a.roster.Update(msg) {
		a.syncConnections()
		return nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.mainMenu.SetSize(max(0, msg.Width-6), max(0, msg.Height-12))
		a.connList.SetSize(max(0, msg.Width-6), max(0, msg.Height-14))
		return nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return cmd

	case bridge.CommitRequest:
		a.logInfo("Remote decision: %s for %s", msg.Action, msg.CandidateID)
		return a.engine.Commit(msg.CandidateID, msg.Action)

	case tea.MouseMsg:
		if a.state == stateFeed {
			return a.handleMouse(msg)
		}

	case tea.KeyMsg:
		if cmd, handled := a.handleKey(msg); handled {
			return cmd
		}
	}

	switch a.state {
	case stateMainMenu:
		var cmd tea.Cmd
		a.mainMenu, cmd = a.mainMenu.Update(msg)
		return cmd
	case stateConnections:
		var cmd tea.Cmd
		a.connList, cmd = a.connList.Update(msg)
		return cmd
	}
	return nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		a.notices.Close()
		a.logInfo("Session closed")
		return tea.Quit, true
	case "esc":
		if a.state != stateMainMenu {
			a.cancelGesture()
			a.state = stateMainMenu
			a.statusMsg = ""
		}
		return nil, true
	case "tab":
		return a.switchTo(nextScreen(a.state)), true
	}

	switch a.state {
	case stateMainMenu:
		if key == "enter" {
			item, ok := a.mainMenu.SelectedItem().(menuItem)
			if !ok {
				return nil, true
			}
			if item.quit {
				a.notices.Close()
				return tea.Quit, true
			}
			return a.switchTo(item.target), true
		}
	case stateFeed:
		switch key {
		case "left", "h":
			a.cancelGesture()
			return a.engine.CommitHead(gesture.ActionIgnored), true
		case "right", "l":
			a.cancelGesture()
			return a.engine.CommitHead(gesture.ActionInterested), true
		case "r":
			return a.engine.Refresh(), true
		}
		return nil, true
	case stateRequests:
		switch key {
		case "up", "k":
			a.board.Move(-1)
		case "down", "j":
			a.board.Move(1)
		case "a", "enter":
			return a.board.ReviewSelected(candidate.ReviewAccepted), true
		case "x", "backspace":
			return a.board.ReviewSelected(candidate.ReviewRejected), true
		case "r":
			return a.board.Load(), true
		}
		return nil, true
	case stateConnections:
		if key == "r" {
			return a.roster.Load(), true
		}
	}
	return nil, false
}

// switchTo changes screens and loads whatever the new screen shows.
func (a *App) switchTo(target appState) tea.Cmd {
	a.cancelGesture()
	a.state = target
	switch target {
	case stateRequests:
		a.statusMsg = "↑/↓ select · a accept · x reject · r reload"
		return a.board.Load()
	case stateConnections:
		a.statusMsg = "r reload · esc menu"
		return a.roster.Load()
	case stateFeed:
		a.statusMsg = "←/h ignore · →/l interested · drag the card with the mouse · r refresh"
	default:
		a.statusMsg = ""
	}
	return nil
}

func nextScreen(s appState) appState {
	switch s {
	case stateFeed:
		return stateRequests
	case stateRequests:
		return stateConnections
	default:
		return stateFeed
	}
}

func (a *App) syncConnections() {
	items := make([]list.Item, 0, a.roster.Len())
	for _, c := range a.roster.Items() {
		items = append(items, connectionItem{c: c})
	}
	a.connList.SetItems(items)
}

func (a *App) publish() {
	if a.stateStore != nil {
		a.stateStore.Publish(a.engine.Snapshot())
	}
}
