package presence

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
)

// Attendance statuses for a selected day.
const (
	StatusPresent = "Present"
	StatusAbsent  = "Absent"
)

// StudentSummary is one participant's attendance across all event days.
type StudentSummary struct {
	Identifier string  `json:"studentId"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	TotalDays  int     `json:"totalDays"`
	Attended   int     `json:"attended"`
	Absent     int     `json:"absent"`
	Percentage float64 `json:"percentage"`
}

// StudentSummaries builds per-participant summaries. Event days are the distinct days
// carrying any attendance record; day selects the Present/Absent status column.
// Present participants come first, each group sorted by name.
func StudentSummaries(participants []model.Participant, records []model.AttendanceRecord, day string, loc *time.Location) []StudentSummary {
	eventDays := map[string]struct{}{}
	attended := map[string]map[string]struct{}{}
	for _, rec := range records {
		d, ok := model.DayOf(rec.Timestamp, loc)
		if !ok {
			continue
		}
		eventDays[d] = struct{}{}
		if rec.Mode != model.ModeSignIn {
			continue
		}
		if attended[rec.StudentID] == nil {
			attended[rec.StudentID] = map[string]struct{}{}
		}
		attended[rec.StudentID][d] = struct{}{}
	}

	total := len(eventDays)
	out := make([]StudentSummary, 0, len(participants))
	for _, p := range participants {
		days := attended[p.Identifier]
		s := StudentSummary{
			Identifier: p.Identifier,
			Name:       p.Name,
			Status:     StatusAbsent,
			TotalDays:  total,
			Attended:   len(days),
		}
		s.Absent = Absent(total, s.Attended)
		if total > 0 {
			s.Percentage = math.Round(float64(s.Attended)/float64(total)*1000) / 10
		}
		if _, ok := days[day]; ok {
			s.Status = StatusPresent
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Status != out[j].Status {
			return out[i].Status == StatusPresent
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}
