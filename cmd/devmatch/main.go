// cmd/devmatch/main.go
//
// This is the entry point for the devmatch terminal client.
// When you run `devmatch` from any directory, this is what executes.
//
// Flow:
// 1. Initialize .devmatch/ in the working directory and load config
// 2. Log in when credentials are configured
// 3. Start the optional diagnostics bridge
// 4. Launch the TUI

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/devmatch/internal/bridge"
	"github.com/kingrea/devmatch/internal/config"
	"github.com/kingrea/devmatch/internal/gateway"
	"github.com/kingrea/devmatch/internal/logbook"
	"github.com/kingrea/devmatch/internal/logging"
	"github.com/kingrea/devmatch/internal/metrics"
	"github.com/kingrea/devmatch/internal/tui"
)

const loginTimeout = 10 * time.Second

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup runs before exit.
func run() int {
	projectDir := flag.String("project", "", "directory holding .devmatch/ (defaults to cwd)")
	apiURL := flag.String("api", "", "backend base URL; saved to .devmatch/config.yaml")
	flag.Parse()

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			return fail("determine working directory: %v", err)
		}
	}
	project, err := filepath.Abs(project)
	if err != nil {
		return fail("resolve project dir: %v", err)
	}
	if err := config.InitDataDir(project); err != nil {
		return fail("init .devmatch: %v", err)
	}
	cfg, err := config.NewConfig(project)
	if err != nil {
		return fail("load config: %v", err)
	}
	if *apiURL != "" {
		if err := cfg.SetBaseURL(*apiURL); err != nil {
			return fail("set api url: %v", err)
		}
	}

	logger, err := logging.New(cfg.LogPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "devmatch: open log: %v; diagnostics disabled\n", err)
		logger = logging.Nop()
	}
	defer logger.Close()
	log := logger.Component("main")

	journal, err := logbook.New(cfg.JournalPath())
	if err != nil {
		return fail("open activity journal: %v", err)
	}

	// Cancelled once the program exits so in-flight backend calls stop.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	recorder := metrics.New()
	client, err := gateway.New(gateway.ClientConfig{
		BaseURL:      cfg.BaseURL(),
		ReadTimeout:  cfg.Project.API.ReadTimeout,
		WriteTimeout: cfg.Project.API.WriteTimeout,
	}, gateway.WithLogger(logger.Component("gateway")), gateway.WithObserver(recorder))
	if err != nil {
		return fail("build api client: %v", err)
	}

	if email, password := cfg.Project.Auth.Email, cfg.Project.Auth.Password; email != "" && password != "" {
		loginCtx, loginCancel := context.WithTimeout(ctx, loginTimeout)
		err := client.Login(loginCtx, email, password)
		loginCancel()
		if err != nil {
			log.Warn().Err(err).Str("email", email).Msg("login failed; continuing with existing session")
			journal.Warn("Login failed: %s", gateway.UserMessage(err, "unknown error"))
		} else {
			journal.Info("Logged in as %s", email)
		}
	}

	store := &bridge.StateStore{}
	app, err := tui.NewApp(cfg,
		tui.WithContext(ctx),
		tui.WithBackend(client),
		tui.WithLogbook(journal),
		tui.WithLogger(logger.Component("tui")),
		tui.WithRecorder(recorder),
		tui.WithStateStore(store),
	)
	if err != nil {
		return fail("build tui: %v", err)
	}

	// Create and run the TUI. All-motion mouse reporting lets the card follow
	// the pointer while the button is held.
	p := tea.NewProgram(
		app,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)

	srv := bridge.NewServer(bridge.SettingsFromConfig(cfg), store,
		bridge.WithMetrics(recorder.Handler()),
		bridge.WithDispatcher(p),
		bridge.WithLogger(logger.Component("bridge")),
	)
	if err := srv.Start(ctx); err != nil && !errors.Is(err, bridge.ErrDisabled) {
		log.Error().Err(err).Msg("diagnostics bridge failed to start")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	// Run blocks until the user quits
	_, err = p.Run()
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return 1
	}
	return 0
}

func fail(format string, args ...any) int {
	fmt.Fprintf(os.Stderr, "devmatch: "+format+"\n", args...)
	return 1
}
