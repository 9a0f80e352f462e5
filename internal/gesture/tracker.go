// Package gesture turns pointer samples into swipe signals.
//
// The tracker is device agnostic: touch points and mouse buttons both arrive
// as Begin/Update/End/Cancel calls keyed by an opaque pointer id. It knows
// nothing about candidates and reports only displacement, direction and a
// final commit or cancel outcome.
package gesture

import "math"

// Action is the decision a committed swipe stands for.
type Action string

const (
	ActionInterested Action = "interested"
	ActionIgnored    Action = "ignored"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	return a == ActionInterested || a == ActionIgnored
}

// Direction is the presentational hint emitted while dragging.
type Direction string

const (
	DirectionNone  Direction = "none"
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
)

// Axis is the lock classification of a session.
type Axis int

const (
	AxisUndetermined Axis = iota
	AxisHorizontal
	AxisVertical
)

func (a Axis) String() string {
	switch a {
	case AxisHorizontal:
		return "horizontal"
	case AxisVertical:
		return "vertical"
	default:
		return "undetermined"
	}
}

// Thresholds are expressed in logical pixels.
type Thresholds struct {
	// AxisLock is the horizontal travel that must be exceeded before a
	// session is classified.
	AxisLock float64
	// Direction is the travel beyond which a left/right hint is shown.
	Direction float64
	// Commit is the minimum travel, inclusive, that finalizes a decision.
	Commit float64
}

// DefaultThresholds returns the stock 10/50/100 pixel thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{AxisLock: 10, Direction: 50, Commit: 100}
}

func (t Thresholds) normalized() Thresholds {
	def := DefaultThresholds()
	if t.AxisLock <= 0 {
		t.AxisLock = def.AxisLock
	}
	if t.Direction <= 0 {
		t.Direction = def.Direction
	}
	if t.Commit <= 0 {
		t.Commit = def.Commit
	}
	return t
}

// Signal is the continuous feedback emitted on every accepted update.
type Signal struct {
	Offset    float64
	Direction Direction
}

// Outcome is the result of finishing a session.
type Outcome struct {
	Commit bool
	Action Action
}

// Tracker follows at most one pointer at a time.
type Tracker struct {
	th Thresholds

	active  bool
	pointer string
	originX float64
	originY float64
	dx      float64
	dy      float64
	axis    Axis
}

// NewTracker builds a tracker; zero thresholds fall back to the defaults.
func NewTracker(th Thresholds) *Tracker {
	return &Tracker{th: th.normalized()}
}

// Thresholds returns the active thresholds.
func (t *Tracker) Thresholds() Thresholds {
	return t.th
}

// Active reports whether a session is in progress.
func (t *Tracker) Active() bool {
	return t.active
}

// Pointer returns the id owning the active session.
func (t *Tracker) Pointer() string {
	return t.pointer
}

// Axis returns the current lock classification.
func (t *Tracker) Axis() Axis {
	return t.axis
}

// Begin starts a session for pointID. A begin from a second pointer while
// another is active is ignored and reported as false.
func (t *Tracker) Begin(pointID string, x, y float64) bool {
	if t.active && t.pointer != pointID {
		return false
	}
	t.active = true
	t.pointer = pointID
	t.originX, t.originY = x, y
	t.dx, t.dy = 0, 0
	t.axis = AxisUndetermined
	return true
}

// Update records a new sample. It returns false when the sample does not
// belong to the active session.
func (t *Tracker) Update(pointID string, x, y float64) (Signal, bool) {
	if !t.active || t.pointer != pointID {
		return Signal{}, false
	}
	t.dx = x - t.originX
	t.dy = y - t.originY
	adx, ady := math.Abs(t.dx), math.Abs(t.dy)
	if t.axis == AxisUndetermined {
		switch {
		case adx > ady && adx > t.th.AxisLock:
			t.axis = AxisHorizontal
		case ady >= adx && ady > t.th.AxisLock:
			t.axis = AxisVertical
		}
	}
	return t.Signal(), true
}

// Signal reports the current offset and direction hint without sampling.
func (t *Tracker) Signal() Signal {
	offset := t.Offset()
	return Signal{Offset: offset, Direction: t.direction(offset)}
}

// Offset is the horizontal displacement to render. It is zero unless a
// session is active and locked horizontal.
func (t *Tracker) Offset() float64 {
	if !t.active || t.axis != AxisHorizontal {
		return 0
	}
	return t.dx
}

func (t *Tracker) direction(offset float64) Direction {
	switch {
	case offset > t.th.Direction:
		return DirectionRight
	case offset < -t.th.Direction:
		return DirectionLeft
	default:
		return DirectionNone
	}
}

// End finalizes the session for pointID.
func (t *Tracker) End(pointID string) (Outcome, bool) {
	if !t.active || t.pointer != pointID {
		return Outcome{}, false
	}
	out := Outcome{}
	if t.axis == AxisHorizontal && math.Abs(t.dx) >= t.th.Commit {
		out.Commit = true
		out.Action = ActionIgnored
		if t.dx > 0 {
			out.Action = ActionInterested
		}
	}
	t.reset()
	return out, true
}

// Cancel aborts the session for pointID. It never commits.
func (t *Tracker) Cancel(pointID string) (Outcome, bool) {
	if !t.active || t.pointer != pointID {
		return Outcome{}, false
	}
	t.reset()
	return Outcome{}, true
}

// Reset drops any session regardless of pointer.
func (t *Tracker) Reset() {
	t.reset()
}

func (t *Tracker) reset() {
	t.active = false
	t.pointer = ""
	t.originX, t.originY = 0, 0
	t.dx, t.dy = 0, 0
	t.axis = AxisUndetermined
}
