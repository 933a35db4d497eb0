// Package timeline flattens participant activity on one day into an ordered event list.
package timeline

import (
	"sort"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
)

// Event types.
const (
	TypeRegistration = "New Registration"
	TypeCheckedIn    = "Checked In"
	TypeCheckedOut   = "Checked Out"
	TypeBreakOut     = "Break Out"
	TypeBreakIn      = "Break In"
	TypeAll          = "All"
)

// Types lists the event types in display order.
var Types = []string{TypeRegistration, TypeCheckedIn, TypeCheckedOut, TypeBreakOut, TypeBreakIn}

// Event is one entry of the day's timeline.
type Event struct {
	Identifier string    `json:"studentId"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Time       time.Time `json:"time"`
	Clock      string    `json:"clock"`
}

// Build extracts the registration, session and break events on day from every participant
// and returns them sorted by instant. Entries without a resolved time are skipped.
func Build(participants []model.Participant, day string, loc *time.Location) []Event {
	if loc == nil {
		loc = time.UTC
	}
	var events []Event
	add := func(p model.Participant, typ string, t null.Time) {
		d, ok := model.DayOf(t, loc)
		if !ok || d != day {
			return
		}
		local := t.Time.In(loc)
		events = append(events, Event{
			Identifier: p.Identifier,
			Name:       p.Name,
			Type:       typ,
			Time:       local,
			Clock:      local.Format("15:04"),
		})
	}
	for _, p := range participants {
		add(p, TypeRegistration, p.CreatedAt)
		for _, s := range p.SessionHistory {
			switch s.Type {
			case model.EntryIn:
				add(p, TypeCheckedIn, s.Time)
			case model.EntryOut:
				add(p, TypeCheckedOut, s.Time)
			}
		}
		for _, b := range p.Breaks {
			switch b.Type {
			case model.EntryOut:
				add(p, TypeBreakOut, b.Time)
			case model.EntryIn:
				add(p, TypeBreakIn, b.Time)
			}
		}
	}
	sort.SliceStable(events, func(i, j int) bool { return events[i].Time.Before(events[j].Time) })
	return events
}

// Filter keeps events whose name contains query (case-insensitive) and whose
// type matches typ. An empty typ or TypeAll keeps every type.
func Filter(events []Event, query, typ string) []Event {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if typ != "" && typ != TypeAll && e.Type != typ {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(e.Name), q) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// ValidType reports whether typ is a known event type or TypeAll.
func ValidType(typ string) bool {
	if typ == "" || typ == TypeAll {
		return true
	}
	for _, t := range Types {
		if t == typ {
			return true
		}
	}
	return false
}
