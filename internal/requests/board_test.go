package requests

import (
	"context"
	"errors"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/devmatch/internal/candidate"
	"github.com/kingrea/devmatch/internal/gateway"
	"github.com/kingrea/devmatch/internal/notify"
)

type fakeSource struct {
	mu       sync.Mutex
	items    []candidate.Request
	loadErr  error
	failID   string
	reviewed []string
}

func (f *fakeSource) FetchRequests(context.Context) ([]candidate.Request, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.items, nil
}

func (f *fakeSource) ReviewRequest(_ context.Context, status, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviewed = append(f.reviewed, status+":"+id)
	if id == f.failID {
		return errors.New("boom")
	}
	return nil
}

type sink struct{ notices []notify.Notice }

func (s *sink) Notify(level notify.Level, text string) tea.Cmd {
	s.notices = append(s.notices, notify.Notice{Level: level, Text: text})
	return nil
}

func req(id, first string) candidate.Request {
	return candidate.Request{ID: id, From: &candidate.Candidate{ID: "u-" + id, FirstName: first}}
}

func run(b *Board, cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	next, _ := b.Update(cmd())
	run(b, next)
}

func loaded(t *testing.T, src *fakeSource) (*Board, *sink) {
	t.Helper()
	s := &sink{}
	b := NewBoard(context.Background(), src, s, zerolog.Nop())
	run(b, b.Load())
	return b, s
}

func TestLoadPopulatesBoard(t *testing.T) {
	b, _ := loaded(t, &fakeSource{items: []candidate.Request{req("r1", "Ada"), req("r2", "Bo")}})
	assert.Equal(t, 2, b.Len())
	assert.False(t, b.Loading())
	sel, ok := b.Selected()
	require.True(t, ok)
	assert.Equal(t, "r1", sel.ID)
}

func TestLoadFailureKeepsMessage(t *testing.T) {
	src := &fakeSource{loadErr: &gateway.StatusError{StatusCode: 400, Message: "Bad request"}}
	b, _ := loaded(t, src)
	assert.Equal(t, "Bad request", b.Err())
	assert.Zero(t, b.Len())

	src.loadErr = errors.New("plain")
	run(b, b.Load())
	assert.Equal(t, loadFailedText, b.Err())
}

func TestReviewRemovesOptimistically(t *testing.T) {
	src := &fakeSource{items: []candidate.Request{req("r1", "Ada"), req("r2", "Bo")}}
	b, s := loaded(t, src)

	cmd := b.Review("r1", candidate.ReviewAccepted)
	require.NotNil(t, cmd)
	assert.Equal(t, 1, b.Len())
	assert.True(t, b.Processing("r1"))
	assert.Nil(t, b.Review("r1", candidate.ReviewAccepted))

	run(b, cmd)
	assert.False(t, b.Processing("r1"))
	assert.Equal(t, []string{"accepted:r1"}, src.reviewed)
	require.Len(t, s.notices, 1)
	assert.Equal(t, "Accepted Ada", s.notices[0].Text)
}

func TestReviewFailureIsNotRolledBack(t *testing.T) {
	src := &fakeSource{items: []candidate.Request{req("r1", "Ada"), req("r2", "Bo")}, failID: "r2"}
	b, s := loaded(t, src)

	b.Move(1)
	run(b, b.ReviewSelected(candidate.ReviewRejected))

	assert.Equal(t, 1, b.Len())
	assert.Equal(t, "r1", b.Items()[0].ID)
	assert.Equal(t, 0, b.Cursor())
	require.Len(t, s.notices, 1)
	assert.Equal(t, notify.LevelError, s.notices[0].Level)
	assert.Equal(t, reviewFailedText, s.notices[0].Text)
	assert.Len(t, src.reviewed, 1)
}

func TestReviewRejectsUnknownInput(t *testing.T) {
	b, _ := loaded(t, &fakeSource{items: []candidate.Request{req("r1", "Ada")}})
	assert.Nil(t, b.Review("r1", candidate.ReviewStatus("later")))
	assert.Nil(t, b.Review("nope", candidate.ReviewAccepted))
	assert.Equal(t, 1, b.Len())
}

func TestReloadSkipsRequestsUnderReview(t *testing.T) {
	src := &fakeSource{items: []candidate.Request{req("r1", "Ada"), req("r2", "Bo")}}
	b, _ := loaded(t, src)

	pending := b.Review("r1", candidate.ReviewAccepted)
	run(b, b.Load())
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, "r2", b.Items()[0].ID)
	run(b, pending)
}

func TestMoveClamps(t *testing.T) {
	b, _ := loaded(t, &fakeSource{items: []candidate.Request{req("r1", "Ada"), req("r2", "Bo")}})
	b.Move(5)
	assert.Equal(t, 1, b.Cursor())
	b.Move(-9)
	assert.Equal(t, 0, b.Cursor())
}
