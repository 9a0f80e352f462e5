package engine

import (
	"time"

	"github.com/kingrea/devmatch/internal/candidate"
	"github.com/kingrea/devmatch/internal/gesture"
)

// Phase is what the feed screen presents.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseReady
	PhaseRefilling
	PhaseExhausted
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseRefilling:
		return "refilling"
	case PhaseExhausted:
		return "exhausted"
	case PhaseFailed:
		return "failed"
	}
	return "unknown"
}

// CandidateState tracks the presented candidate through a decision.
type CandidateState int

const (
	StateIdle CandidateState = iota
	StateCommitting
	StateSettled
)

func (s CandidateState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCommitting:
		return "committing"
	case StateSettled:
		return "settled"
	}
	return "unknown"
}

// SubmissionState is the network side of a decision.
type SubmissionState int

const (
	SubmissionPending SubmissionState = iota
	SubmissionConfirmed
	SubmissionFailed
)

func (s SubmissionState) String() string {
	switch s {
	case SubmissionPending:
		return "pending"
	case SubmissionConfirmed:
		return "confirmed"
	case SubmissionFailed:
		return "failed"
	}
	return "unknown"
}

// Decision is held only while its submission is in flight.
type Decision struct {
	CandidateID string
	Name        string
	Action      gesture.Action
	State       SubmissionState
	At          time.Time
}

// EventKind names an engine notification.
type EventKind string

const (
	EventHeadChanged         EventKind = "head_changed"
	EventCommitted           EventKind = "committed"
	EventSubmissionConfirmed EventKind = "submission_confirmed"
	EventSubmissionFailed    EventKind = "submission_failed"
	EventRefillScheduled     EventKind = "refill_scheduled"
	EventExhausted           EventKind = "exhausted"
	EventFetchFailed         EventKind = "fetch_failed"
)

// Event is delivered to subscribers. CandidateID is empty for events that do
// not concern one candidate, and for a head change to an empty queue.
type Event struct {
	Kind        EventKind
	CandidateID string
	Name        string
	Action      gesture.Action
	Err         error
}

// Snapshot is a read-only view of the engine.
type Snapshot struct {
	Phase       string               `json:"phase"`
	State       string               `json:"state"`
	Head        *candidate.Candidate `json:"head,omitempty"`
	QueueLength int                  `json:"queue_length"`
	Pending     int                  `json:"pending_submissions"`
	LastError   string               `json:"last_error,omitempty"`
	TakenAt     time.Time            `json:"taken_at"`
}

// Snapshot captures the current state.
func (e *Engine) Snapshot() Snapshot {
	s := Snapshot{
		Phase:       e.phase.String(),
		State:       e.state.String(),
		QueueLength: e.queue.Len(),
		Pending:     len(e.inflight),
		LastError:   e.lastErr,
		TakenAt:     e.now(),
	}
	if head, ok := e.queue.PeekHead(); ok {
		s.Head = &head
	}
	return s
}
