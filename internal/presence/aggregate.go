package presence

import (
	"sort"
	"time"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
)

// WeekDays is the length of the weekly aggregate.
const WeekDays = 7

// DayCount is the number of sign-ins on one day.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Dashboard is the derived live state shown on the admin overview.
type Dashboard struct {
	TotalRegistered int                `json:"totalRegistered"`
	SessionIn       int                `json:"sessionIn"`
	SessionOut      int                `json:"sessionOut"`
	BreaksTaken     int                `json:"breaksTaken"`
	TodayPresent    int                `json:"todayPresent"`
	TodayAbsent     int                `json:"todayAbsent"`
	PresentNames    []string           `json:"presentNames"`
	Weekly          [WeekDays]DayCount `json:"weekly"`
	Day             string             `json:"day"`
}

// Absent returns total minus present, never below zero.
func Absent(total, present int) int {
	if d := total - present; d > 0 {
		return d
	}
	return 0
}

// Aggregate recomputes the dashboard from full snapshots. Records without a
// resolved timestamp are left out of every per-day figure.
func Aggregate(participants []model.Participant, records []model.AttendanceRecord, now time.Time, loc *time.Location) Dashboard {
	today := model.Day(now, loc)
	d := Dashboard{TotalRegistered: len(participants), Day: today}

	registered := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		registered[p.Identifier] = struct{}{}
		if p.InSession {
			d.SessionIn++
		}
		d.BreaksTaken += len(p.Breaks)
	}
	d.SessionOut = Absent(d.TotalRegistered, d.SessionIn)

	names := map[string]struct{}{}
	for _, rec := range records {
		if rec.Mode != model.ModeSignIn {
			continue
		}
		day, ok := model.DayOf(rec.Timestamp, loc)
		if !ok || day != today {
			continue
		}
		if _, ok := registered[rec.StudentID]; !ok {
			continue
		}
		d.TodayPresent++
		if _, dup := names[rec.StudentName]; !dup && rec.StudentName != "" {
			names[rec.StudentName] = struct{}{}
			d.PresentNames = append(d.PresentNames, rec.StudentName)
		}
	}
	sort.Strings(d.PresentNames)
	d.TodayAbsent = Absent(d.TotalRegistered, d.TodayPresent)
	d.Weekly = Weekly(records, now, loc)
	return d
}

// Weekly counts sign-in records for the trailing seven days, oldest first.
func Weekly(records []model.AttendanceRecord, now time.Time, loc *time.Location) [WeekDays]DayCount {
	var out [WeekDays]DayCount
	index := make(map[string]int, WeekDays)
	local := now
	if loc != nil {
		local = now.In(loc)
	}
	for i := 0; i < WeekDays; i++ {
		day := local.AddDate(0, 0, i-(WeekDays-1)).Format(model.DayLayout)
		out[i].Day = day
		index[day] = i
	}
	for _, rec := range records {
		if rec.Mode != model.ModeSignIn {
			continue
		}
		day, ok := model.DayOf(rec.Timestamp, loc)
		if !ok {
			continue
		}
		if i, ok := index[day]; ok {
			out[i].Count++
		}
	}
	return out
}
