// Package connections lists the user's accepted connections.
package connections

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/kingrea/devmatch/internal/candidate"
	"github.com/kingrea/devmatch/internal/gateway"
)

const loadFailedText = "Failed to load connections. Please try again."

// Source fetches accepted connections.
type Source interface {
	FetchConnections(ctx context.Context) ([]candidate.Candidate, error)
}

// LoadedMsg carries the result of a roster fetch.
type LoadedMsg struct {
	Items []candidate.Candidate
	Err   error
}

// Roster is the connections screen model.
type Roster struct {
	ctx     context.Context
	source  Source
	log     zerolog.Logger
	items   []candidate.Candidate
	loading bool
	loaded  bool
	err     string
}

func NewRoster(ctx context.Context, source Source, log zerolog.Logger) *Roster {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Roster{ctx: ctx, source: source, log: log}
}

// Load fetches the roster. Concurrent loads collapse into one.
func (r *Roster) Load() tea.Cmd {
	if r.loading || r.source == nil {
		return nil
	}
	r.loading = true
	r.err = ""
	ctx, src := r.ctx, r.source
	return func() tea.Msg {
		items, err := src.FetchConnections(ctx)
		return LoadedMsg{Items: items, Err: err}
	}
}

// Update applies a LoadedMsg. A failed load clears the list.
func (r *Roster) Update(msg tea.Msg) bool {
	lm, ok := msg.(LoadedMsg)
	if !ok {
		return false
	}
	r.loading = false
	r.loaded = true
	if lm.Err != nil {
		r.items = nil
		r.err = gateway.UserMessage(lm.Err, loadFailedText)
		r.log.Warn().Err(lm.Err).Msg("connections_load_failed")
		return true
	}
	r.items = r.items[:0]
	for _, c := range lm.Items {
		if c.Valid() {
			r.items = append(r.items, c)
		}
	}
	r.log.Info().Int("count", len(r.items)).Msg("connections_loaded")
	return true
}

func (r *Roster) Items() []candidate.Candidate { return r.items }
func (r *Roster) Len() int                     { return len(r.items) }
func (r *Roster) Loading() bool                { return r.loading }

// Loaded reports whether at least one fetch has completed.
func (r *Roster) Loaded() bool { return r.loaded }

// Err returns the message from the last failed load, or "".
func (r *Roster) Err() string { return r.err }
