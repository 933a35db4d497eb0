package presence

import (
	"sort"
	"strings"
	"time"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
)

// DefaultBreakLimit is how long a break may run before it is flagged.
const DefaultBreakLimit = 60 * time.Minute

// BreakRow is one break of one participant on a day.
type BreakRow struct {
	Identifier string        `json:"studentId"`
	Name       string        `json:"name"`
	Started    time.Time     `json:"breakOut"`
	Ended      *time.Time    `json:"breakIn,omitempty"`
	Elapsed    time.Duration `json:"-"`
	Minutes    int           `json:"elapsedMinutes"`
	Ongoing    bool          `json:"ongoing"`
	Overdue    bool          `json:"overdue"`
	// Superseded marks a break closed by a later "out" rather than by an "in".
	Superseded bool `json:"superseded,omitempty"`
}

// BreakBoard pairs each "out" entry on day with the next "in" entry and lists ongoing
// breaks first, longest running on top. An "out" that follows another "out" ends the earlier
// break at its own time. Entries without a resolved time are skipped.
func BreakBoard(participants []model.Participant, day string, now time.Time, loc *time.Location, limit time.Duration) []BreakRow {
	if limit <= 0 {
		limit = DefaultBreakLimit
	}
	var rows []BreakRow
	for _, p := range participants {
		var open *BreakRow
		for _, b := range p.Breaks {
			d, ok := model.DayOf(b.Time, loc)
			if !ok || d != day {
				continue
			}
			switch b.Type {
			case model.EntryOut:
				if open != nil {
					ended := b.Time.Time
					open.Ended = &ended
					open.Elapsed = ended.Sub(open.Started)
					open.Superseded = true
					rows = append(rows, *open)
				}
				open = &BreakRow{Identifier: p.Identifier, Name: p.Name, Started: b.Time.Time}
			case model.EntryIn:
				if open == nil {
					continue
				}
				ended := b.Time.Time
				open.Ended = &ended
				open.Elapsed = ended.Sub(open.Started)
				rows = append(rows, *open)
				open = nil
			}
		}
		if open != nil {
			rows = append(rows, *open)
		}
	}
	for i := range rows {
		if rows[i].Ended == nil {
			rows[i].Ongoing = true
			rows[i].Elapsed = now.Sub(rows[i].Started)
			rows[i].Overdue = rows[i].Elapsed > limit
		}
		rows[i].Minutes = int(rows[i].Elapsed / time.Minute)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Ongoing != rows[j].Ongoing {
			return rows[i].Ongoing
		}
		return rows[i].Started.Before(rows[j].Started)
	})
	return rows
}

// FilterBreaks keeps rows whose name or identifier contains query, case-insensitively.
func FilterBreaks(rows []BreakRow, query string) []BreakRow {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return rows
	}
	var out []BreakRow
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Name), q) || strings.Contains(strings.ToLower(r.Identifier), q) {
			out = append(out, r)
		}
	}
	return out
}

// LongBreaks returns a long_break signal for every ongoing break past limit.
func LongBreaks(rows []BreakRow, now time.Time) []Signal {
	var out []Signal
	for _, r := range rows {
		if r.Overdue {
			out = append(out, Signal{Type: SignalLongBreak, Identifier: r.Identifier, Name: r.Name, At: now})
		}
	}
	return out
}
