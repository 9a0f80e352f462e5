// Package queue holds the ordered set of candidates awaiting a decision.
//
// A Queue has a single owner and performs no locking; the decision engine
// mutates it only from the UI update loop.
package queue

import "github.com/kingrea/devmatch/internal/candidate"

// HeadObserver is notified whenever the head of the queue changes identity.
// Either argument is nil when the queue is empty on that side of the change.
type HeadObserver func(prev, next *candidate.Candidate)

// Queue is an ordered, id-unique sequence of candidates.
type Queue struct {
	items     []candidate.Candidate
	index     map[string]struct{}
	observers []HeadObserver
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{index: map[string]struct{}{}}
}

// OnHeadChange registers an observer for head transitions.
func (q *Queue) OnHeadChange(fn HeadObserver) {
	if fn == nil {
		return
	}
	q.observers = append(q.observers, fn)
}

// PeekHead returns the candidate currently presented.
func (q *Queue) PeekHead() (candidate.Candidate, bool) {
	if len(q.items) == 0 {
		return candidate.Candidate{}, false
	}
	return q.items[0], true
}

// HeadID returns the id at the head, or "" when empty.
func (q *Queue) HeadID() string {
	if len(q.items) == 0 {
		return ""
	}
	return q.items[0].ID
}

// IsEmpty reports whether no candidates remain.
func (q *Queue) IsEmpty() bool {
	return len(q.items) == 0
}

// Len returns the number of queued candidates.
func (q *Queue) Len() int {
	return len(q.items)
}

// Contains reports whether id is queued.
func (q *Queue) Contains(id string) bool {
	_, ok := q.index[id]
	return ok
}

// At returns the candidate at position i.
func (q *Queue) At(i int) (candidate.Candidate, bool) {
	if i < 0 || i >= len(q.items) {
		return candidate.Candidate{}, false
	}
	return q.items[i], true
}

// IDs returns the queued ids in order.
func (q *Queue) IDs() []string {
	ids := make([]string, len(q.items))
	for i, item := range q.items {
		ids[i] = item.ID
	}
	return ids
}

// RemoveByID drops the candidate with the given id. It reports whether
// anything was removed.
func (q *Queue) RemoveByID(id string) bool {
	if _, ok := q.index[id]; !ok {
		return false
	}
	prev := q.head()
	for i, item := range q.items {
		if item.ID != id {
			continue
		}
		q.items = append(q.items[:i], q.items[i+1:]...)
		break
	}
	delete(q.index, id)
	q.notify(prev)
	return true
}

// AppendUnique appends candidates whose ids are not already queued, in order.
// Duplicates within the incoming slice are collapsed as well. It returns the
// number of candidates appended.
func (q *Queue) AppendUnique(candidates []candidate.Candidate) int {
	prev := q.head()
	added := 0
	for _, c := range candidates {
		if !c.Valid() {
			continue
		}
		if _, ok := q.index[c.ID]; ok {
			continue
		}
		q.index[c.ID] = struct{}{}
		q.items = append(q.items, c)
		added++
	}
	if added > 0 {
		q.notify(prev)
	}
	return added
}

func (q *Queue) head() *candidate.Candidate {
	if len(q.items) == 0 {
		return nil
	}
	c := q.items[0]
	return &c
}

func (q *Queue) notify(prev *candidate.Candidate) {
	next := q.head()
	if sameID(prev, next) {
		return
	}
	for _, fn := range q.observers {
		fn(prev, next)
	}
}

func sameID(a, b *candidate.Candidate) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.ID == b.ID
}
