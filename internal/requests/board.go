// Package requests manages inbound connection requests awaiting review.
package requests

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/kingrea/devmatch/internal/candidate"
	"github.com/kingrea/devmatch/internal/gateway"
	"github.com/kingrea/devmatch/internal/notify"
)

const (
	loadFailedText   = "Failed to load requests. Please try again."
	reviewFailedText = "Failed to process the request. Please try again."
)

// Source is the backend surface used by the board.
type Source interface {
	FetchRequests(ctx context.Context) ([]candidate.Request, error)
	ReviewRequest(ctx context.Context, status, requestID string) error
}

type loadedMsg struct {
	items []candidate.Request
	err   error
}

type reviewedMsg struct {
	requestID string
	name      string
	status    candidate.ReviewStatus
	err       error
}

// Board holds the pending requests and the cursor used to pick one.
// Reviews remove the request locally before the backend answers; a failed
// review is reported and the request is not restored.
type Board struct {
	ctx    context.Context
	source Source
	sink   notify.Sink
	log    zerolog.Logger

	items      []candidate.Request
	processing map[string]candidate.ReviewStatus
	cursor     int
	loading    bool
	err        string
}

// NewBoard creates an empty board. Network calls run under ctx.
func NewBoard(ctx context.Context, source Source, sink notify.Sink, log zerolog.Logger) *Board {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Board{
		ctx:        ctx,
		source:     source,
		sink:       sink,
		log:        log,
		processing: map[string]candidate.ReviewStatus{},
	}
}

// Load fetches the pending requests. It is a no-op while a load is running.
func (b *Board) Load() tea.Cmd {
	if b.loading || b.source == nil {
		return nil
	}
	b.loading = true
	b.err = ""
	ctx, src := b.ctx, b.source
	return func() tea.Msg {
		items, err := src.FetchRequests(ctx)
		return loadedMsg{items: items, err: err}
	}
}

// Review accepts or rejects the request with the given id.
func (b *Board) Review(requestID string, status candidate.ReviewStatus) tea.Cmd {
	if !status.Valid() {
		return nil
	}
	if _, busy := b.processing[requestID]; busy {
		return nil
	}
	idx := b.indexOf(requestID)
	if idx < 0 {
		return nil
	}
	req := b.items[idx]
	name := req.Sender().DisplayName()

	b.items = append(b.items[:idx], b.items[idx+1:]...)
	b.clampCursor()
	b.processing[requestID] = status
	b.log.Info().Str("request_id", requestID).Str("status", string(status)).Msg("request_review_sent")

	ctx, src := b.ctx, b.source
	return func() tea.Msg {
		err := src.ReviewRequest(ctx, string(status), requestID)
		return reviewedMsg{requestID: requestID, name: name, status: status, err: err}
	}
}

// ReviewSelected reviews the request under the cursor.
func (b *Board) ReviewSelected(status candidate.ReviewStatus) tea.Cmd {
	req, ok := b.Selected()
	if !ok {
		return nil
	}
	return b.Review(req.ID, status)
}

// Update applies board messages and reports whether msg was one.
func (b *Board) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case loadedMsg:
		b.loading = false
		if msg.err != nil {
			b.err = gateway.UserMessage(msg.err, loadFailedText)
			b.log.Warn().Err(msg.err).Msg("requests_load_failed")
			return nil, true
		}
		b.items = b.items[:0]
		for _, r := range msg.items {
			if _, busy := b.processing[r.ID]; busy {
				continue
			}
			b.items = append(b.items, r)
		}
		b.clampCursor()
		b.log.Info().Int("count", len(b.items)).Msg("requests_loaded")
		return nil, true
	case reviewedMsg:
		delete(b.processing, msg.requestID)
		if msg.err != nil {
			b.log.Warn().Err(msg.err).Str("request_id", msg.requestID).Msg("request_review_failed")
			return b.notice(notify.LevelError, reviewFailedText), true
		}
		verb := "Accepted"
		if msg.status == candidate.ReviewRejected {
			verb = "Rejected"
		}
		return b.notice(notify.LevelSuccess, fmt.Sprintf("%s %s", verb, msg.name)), true
	}
	return nil, false
}

// Items returns the pending requests.
func (b *Board) Items() []candidate.Request {
	return b.items
}

func (b *Board) Len() int {
	return len(b.items)
}

func (b *Board) Loading() bool {
	return b.loading
}

// Err returns the message from the last failed load.
func (b *Board) Err() string {
	return b.err
}

// Processing reports whether a review for id is still in flight.
func (b *Board) Processing(id string) bool {
	_, ok := b.processing[id]
	return ok
}

// Cursor returns the selected index.
func (b *Board) Cursor() int {
	return b.cursor
}

// Selected returns the request under the cursor.
func (b *Board) Selected() (candidate.Request, bool) {
	if b.cursor < 0 || b.cursor >= len(b.items) {
		return candidate.Request{}, false
	}
	return b.items[b.cursor], true
}

// Move shifts the cursor by delta, clamped to the list.
func (b *Board) Move(delta int) {
	b.cursor += delta
	b.clampCursor()
}

func (b *Board) indexOf(id string) int {
	for i, r := range b.items {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func (b *Board) clampCursor() {
	if b.cursor >= len(b.items) {
		b.cursor = len(b.items) - 1
	}
	if b.cursor < 0 {
		b.cursor = 0
	}
}

func (b *Board) notice(level notify.Level, text string) tea.Cmd {
	if b.sink == nil {
		return nil
	}
	return b.sink.Notify(level, text)
}
