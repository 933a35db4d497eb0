// Package presence derives live attendance state and change signals from full collection snapshots.
package presence

import (
	"time"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
)

// Signal types.
const (
	SignalNewRegistration = "new_registration"
	SignalOnline          = "online"
	SignalOffline         = "offline"
	SignalBreakStarted    = "break_started"
	SignalBreakEnded      = "break_ended"
	SignalLongBreak       = "long_break"
)

// Signal is a UI notification derived from the difference between two snapshots.
type Signal struct {
	Type       string    `json:"type"`
	Identifier string    `json:"studentId,omitempty"`
	Name       string    `json:"name,omitempty"`
	Count      int       `json:"count,omitempty"`
	At         time.Time `json:"at"`
}

type participantState struct {
	inSession bool
	breaks    int
}

// Reducer remembers just enough of the previous snapshot to detect transitions.
// It is not safe for concurrent use; feed it from one subscription.
type Reducer struct {
	byIdentifier bool
	primed       bool
	count        int
	state        map[string]participantState
}

// ReducerOption configures a Reducer.
type ReducerOption func(*Reducer)

// DetectByIdentifier reports new registrations by diffing identifier sets
// instead of comparing collection counts.
func DetectByIdentifier() ReducerOption {
	return func(r *Reducer) { r.byIdentifier = true }
}

// NewReducer creates an unprimed reducer.
func NewReducer(opts ...ReducerOption) *Reducer {
	r := &Reducer{state: make(map[string]participantState)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Observe compares snapshot with the previous one and returns the transitions.
// The first snapshot only primes the reducer.
func (r *Reducer) Observe(snapshot []model.Participant, now time.Time) []Signal {
	next := make(map[string]participantState, len(snapshot))
	var signals []Signal
	added := 0

	for _, p := range snapshot {
		key := keyOf(p)
		cur := participantState{inSession: p.InSession, breaks: len(p.Breaks)}
		next[key] = cur
		if !r.primed {
			continue
		}
		prev, seen := r.state[key]
		if !seen {
			added++
			if r.byIdentifier {
				signals = append(signals, Signal{Type: SignalNewRegistration, Identifier: p.Identifier, Name: p.Name, Count: 1, At: now})
			}
			continue
		}
		if !prev.inSession && cur.inSession {
			signals = append(signals, Signal{Type: SignalOnline, Identifier: p.Identifier, Name: p.Name, At: now})
		}
		if prev.inSession && !cur.inSession {
			signals = append(signals, Signal{Type: SignalOffline, Identifier: p.Identifier, Name: p.Name, At: now})
		}
		if cur.breaks > prev.breaks {
			if s, ok := breakSignal(p, now); ok {
				signals = append(signals, s)
			}
		}
	}

	if r.primed && !r.byIdentifier && len(snapshot) > r.count {
		signals = append([]Signal{{Type: SignalNewRegistration, Count: len(snapshot) - r.count, At: now}}, signals...)
	}

	r.primed = true
	r.count = len(snapshot)
	r.state = next
	return signals
}

func breakSignal(p model.Participant, now time.Time) (Signal, bool) {
	last := p.Breaks[len(p.Breaks)-1]
	s := Signal{Identifier: p.Identifier, Name: p.Name, At: now}
	if last.Time.Valid {
		s.At = last.Time.Time
	}
	switch last.Type {
	case model.EntryOut:
		s.Type = SignalBreakStarted
	case model.EntryIn:
		s.Type = SignalBreakEnded
	default:
		return Signal{}, false
	}
	return s, true
}

func keyOf(p model.Participant) string {
	if p.Identifier != "" {
		return p.Identifier
	}
	return p.ID
}
