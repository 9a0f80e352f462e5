// Package engine drives the decision flow for the candidate feed.
//
// The Engine owns the candidate queue and is mutated only from the bubbletea
// update loop. Network work runs inside tea.Cmd functions that touch no engine
// state; their results come back as messages handled by Update.
package engine

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/kingrea/devmatch/internal/candidate"
	"github.com/kingrea/devmatch/internal/gateway"
	"github.com/kingrea/devmatch/internal/gesture"
	"github.com/kingrea/devmatch/internal/notify"
	"github.com/kingrea/devmatch/internal/queue"
)

// DefaultRefillDelay is the pause between the queue emptying and the refill
// fetch.
const DefaultRefillDelay = time.Second

// Texts shown for the failed and exhausted feed states.
const (
	FetchFailedText = "Failed to load users. Please try again."
	ExhaustedText   = "You've seen all available users. Check back later for new profiles!"
)

// FeedSource is the slice of the backend the engine depends on.
type FeedSource interface {
	FetchFeed(ctx context.Context) ([]candidate.Candidate, error)
	SubmitDecision(ctx context.Context, action, candidateID string) error
}

// Recorder receives counters for decisions and fetches.
type Recorder interface {
	DecisionCommitted(action string)
	DecisionConfirmed()
	DecisionFailed()
	CommitRejected()
	RefillStarted()
	FetchFailed()
	QueueState(length, pending int)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithRefillDelay overrides DefaultRefillDelay. Non-positive values are ignored.
func WithRefillDelay(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.refillDelay = d
		}
	}
}

// WithNotifier sets where user-visible notices go.
func WithNotifier(sink notify.Sink) Option {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithRecorder installs a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		e.rec = r
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithContext sets the parent context for network calls.
func WithContext(ctx context.Context) Option {
	return func(e *Engine) {
		if ctx != nil {
			e.ctx = ctx
		}
	}
}

// WithClock replaces time.Now for decision timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

type feedLoadedMsg struct {
	candidates []candidate.Candidate
	err        error
}

type submitResultMsg struct {
	candidateID string
	err         error
}

type refillTickMsg struct {
	gen uint64
}

// Engine is the decision state machine for the presented candidate.
type Engine struct {
	ctx    context.Context
	source FeedSource
	queue  *queue.Queue
	sink   notify.Sink
	rec    Recorder
	log    zerolog.Logger
	now    func() time.Time

	refillDelay time.Duration

	phase    Phase
	state    CandidateState
	inflight map[string]*Decision
	fetching bool
	lastErr  string

	refillGen     uint64
	refillPending bool

	deferHead   bool
	deferred    []Event
	subscribers []func(Event)
}

// New creates an engine reading from source. The queue starts empty; call
// Init to load the first page.
func New(source FeedSource, opts ...Option) *Engine {
	e := &Engine{
		ctx:         context.Background(),
		source:      source,
		queue:       queue.New(),
		log:         zerolog.Nop(),
		now:         time.Now,
		refillDelay: DefaultRefillDelay,
		phase:       PhaseLoading,
		state:       StateSettled,
		inflight:    map[string]*Decision{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	e.queue.OnHeadChange(e.onHeadChange)
	return e
}

// Subscribe registers fn for engine events. Subscribers run synchronously on
// the update loop.
func (e *Engine) Subscribe(fn func(Event)) {
	if fn != nil {
		e.subscribers = append(e.subscribers, fn)
	}
}

// Init starts the first feed fetch.
func (e *Engine) Init() tea.Cmd {
	e.phase = PhaseLoading
	return e.startFetch()
}

// Phase reports the current presentation phase.
func (e *Engine) Phase() Phase {
	return e.phase
}

// State reports the state of the presented candidate.
func (e *Engine) State() CandidateState {
	return e.state
}

// Head returns the presented candidate.
func (e *Engine) Head() (candidate.Candidate, bool) {
	return e.queue.PeekHead()
}

// Len returns the number of queued candidates.
func (e *Engine) Len() int {
	return e.queue.Len()
}

// Upcoming returns up to n candidates after the head.
func (e *Engine) Upcoming(n int) []candidate.Candidate {
	out := make([]candidate.Candidate, 0, n)
	for i := 1; i <= n; i++ {
		c, ok := e.queue.At(i)
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

// Pending returns the number of submissions still in flight.
func (e *Engine) Pending() int {
	return len(e.inflight)
}

// Decision returns the in-flight record for id.
func (e *Engine) Decision(id string) (Decision, bool) {
	d, ok := e.inflight[id]
	if !ok {
		return Decision{}, false
	}
	return *d, true
}

// LastError returns the message of the most recent fetch failure.
func (e *Engine) LastError() string {
	return e.lastErr
}

// CommitHead commits action for whichever candidate is presented.
func (e *Engine) CommitHead(action gesture.Action) tea.Cmd {
	return e.Commit(e.queue.HeadID(), action)
}

// Commit records a decision for id. The candidate leaves the queue before the
// submission is sent and is never restored. A commit for an id that is not at
// the head is ignored.
func (e *Engine) Commit(id string, action gesture.Action) tea.Cmd {
	if !action.Valid() {
		e.log.Warn().Str("action", string(action)).Msg("commit_invalid_action")
		return nil
	}
	if id == "" || id != e.queue.HeadID() {
		e.log.Debug().Str("candidate_id", id).Str("head_id", e.queue.HeadID()).Msg("commit_rejected_not_head")
		if e.rec != nil {
			e.rec.CommitRejected()
		}
		return nil
	}
	head, _ := e.queue.PeekHead()

	e.state = StateCommitting
	d := &Decision{
		CandidateID: id,
		Name:        head.DisplayName(),
		Action:      action,
		State:       SubmissionPending,
		At:          e.now(),
	}
	e.inflight[id] = d

	e.deferHead = true
	e.queue.RemoveByID(id)
	e.deferHead = false

	e.state = StateSettled
	if e.rec != nil {
		e.rec.DecisionCommitted(string(action))
	}
	e.log.Info().Str("candidate_id", id).Str("action", string(action)).Int("queue_len", e.queue.Len()).Msg("decision_committed")
	e.emit(Event{Kind: EventCommitted, CandidateID: id, Name: d.Name, Action: action})
	e.flushDeferred()

	cmds := []tea.Cmd{e.submit(id, action)}
	if e.queue.IsEmpty() {
		cmds = append(cmds, e.scheduleRefill())
	} else {
		e.state = StateIdle
	}
	e.syncGauges()
	return tea.Batch(cmds...)
}

// Refresh fetches again after the feed ran dry or failed to load.
func (e *Engine) Refresh() tea.Cmd {
	if e.fetching {
		return nil
	}
	if e.phase != PhaseExhausted && e.phase != PhaseFailed {
		return nil
	}
	e.cancelRefill()
	e.phase = PhaseLoading
	e.lastErr = ""
	return e.startFetch()
}

// Update applies engine messages. It reports whether msg belonged to the
// engine.
func (e *Engine) Update(msg tea.Msg) (tea.Cmd, bool) {
	switch msg := msg.(type) {
	case feedLoadedMsg:
		return e.handleFeed(msg), true
	case submitResultMsg:
		return e.handleSubmit(msg), true
	case refillTickMsg:
		return e.handleRefillTick(msg), true
	}
	return nil, false
}

func (e *Engine) startFetch() tea.Cmd {
	if e.fetching || e.source == nil {
		return nil
	}
	e.fetching = true
	ctx := e.ctx
	src := e.source
	return func() tea.Msg {
		list, err := src.FetchFeed(ctx)
		return feedLoadedMsg{candidates: list, err: err}
	}
}

func (e *Engine) submit(id string, action gesture.Action) tea.Cmd {
	if e.source == nil {
		return nil
	}
	ctx := e.ctx
	src := e.source
	return func() tea.Msg {
		return submitResultMsg{candidateID: id, err: src.SubmitDecision(ctx, string(action), id)}
	}
}

func (e *Engine) scheduleRefill() tea.Cmd {
	if e.refillPending {
		return nil
	}
	e.refillGen++
	e.refillPending = true
	e.phase = PhaseRefilling
	gen := e.refillGen
	e.log.Debug().Uint64("gen", gen).Dur("delay", e.refillDelay).Msg("refill_scheduled")
	e.emit(Event{Kind: EventRefillScheduled})
	return tea.Tick(e.refillDelay, func(time.Time) tea.Msg {
		return refillTickMsg{gen: gen}
	})
}

func (e *Engine) cancelRefill() {
	if !e.refillPending {
		return
	}
	e.refillGen++
	e.refillPending = false
}

func (e *Engine) handleRefillTick(msg refillTickMsg) tea.Cmd {
	if msg.gen != e.refillGen || !e.refillPending {
		return nil
	}
	e.refillPending = false
	if !e.queue.IsEmpty() {
		e.phase = PhaseReady
		return nil
	}
	if e.fetching {
		// the fetch already in flight stands in for the refill
		return nil
	}
	if e.rec != nil {
		e.rec.RefillStarted()
	}
	e.log.Info().Msg("refill_started")
	return e.startFetch()
}

func (e *Engine) handleFeed(msg feedLoadedMsg) tea.Cmd {
	e.fetching = false
	if msg.err != nil {
		if e.rec != nil {
			e.rec.FetchFailed()
		}
		e.lastErr = gateway.UserMessage(msg.err, FetchFailedText)
		e.log.Warn().Err(msg.err).Int("queue_len", e.queue.Len()).Msg("feed_fetch_failed")
		e.emit(Event{Kind: EventFetchFailed, Err: msg.err})
		if e.queue.IsEmpty() {
			e.cancelRefill()
			e.phase = PhaseFailed
		}
		return e.notice(notify.LevelError, FetchFailedText)
	}

	e.lastErr = ""
	added := e.queue.AppendUnique(msg.candidates)
	e.log.Info().Int("received", len(msg.candidates)).Int("added", added).Int("queue_len", e.queue.Len()).Msg("feed_loaded")
	e.syncGauges()

	if !e.queue.IsEmpty() {
		e.cancelRefill()
		e.phase = PhaseReady
		return nil
	}
	if e.refillPending {
		return nil
	}
	e.phase = PhaseExhausted
	e.state = StateSettled
	e.emit(Event{Kind: EventExhausted})
	return nil
}

func (e *Engine) handleSubmit(msg submitResultMsg) tea.Cmd {
	d, ok := e.inflight[msg.candidateID]
	if !ok {
		return nil
	}
	delete(e.inflight, msg.candidateID)
	defer e.syncGauges()

	if msg.err != nil {
		d.State = SubmissionFailed
		if e.rec != nil {
			e.rec.DecisionFailed()
		}
		e.log.Warn().Err(msg.err).Str("candidate_id", d.CandidateID).Str("action", string(d.Action)).Msg("decision_submit_failed")
		e.emit(Event{Kind: EventSubmissionFailed, CandidateID: d.CandidateID, Name: d.Name, Action: d.Action, Err: msg.err})
		reason := gateway.UserMessage(msg.err, "please try again")
		return e.notice(notify.LevelError, fmt.Sprintf("Couldn't save your choice for %s: %s", d.Name, reason))
	}

	d.State = SubmissionConfirmed
	if e.rec != nil {
		e.rec.DecisionConfirmed()
	}
	e.log.Debug().Str("candidate_id", d.CandidateID).Dur("latency", e.now().Sub(d.At)).Msg("decision_confirmed")
	e.emit(Event{Kind: EventSubmissionConfirmed, CandidateID: d.CandidateID, Name: d.Name, Action: d.Action})
	if d.Action == gesture.ActionInterested {
		return e.notice(notify.LevelSuccess, fmt.Sprintf("Request sent to %s", d.Name))
	}
	return nil
}

func (e *Engine) onHeadChange(_, next *candidate.Candidate) {
	ev := Event{Kind: EventHeadChanged}
	if next != nil {
		ev.CandidateID = next.ID
		ev.Name = next.DisplayName()
	}
	if e.deferHead {
		e.deferred = append(e.deferred, ev)
		return
	}
	if next != nil {
		e.state = StateIdle
	}
	e.emit(ev)
}

func (e *Engine) flushDeferred() {
	pending := e.deferred
	e.deferred = nil
	for _, ev := range pending {
		e.emit(ev)
	}
}

func (e *Engine) emit(ev Event) {
	for _, fn := range e.subscribers {
		fn(ev)
	}
}

func (e *Engine) notice(level notify.Level, text string) tea.Cmd {
	if e.sink == nil {
		return nil
	}
	return e.sink.Notify(level, text)
}

func (e *Engine) syncGauges() {
	if e.rec != nil {
		e.rec.QueueState(e.queue.Len(), len(e.inflight))
	}
}
