package attendance

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/feed"
	"github.com/churchevent-ux/registerform--event-final/internal/identifier"
	"github.com/churchevent-ux/registerform--event-final/internal/metrics"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/validate"
)

// Scan modes.
const (
	ModeAuto     = "auto"
	ModeSignIn   = model.ModeSignIn
	ModeSignOut  = model.ModeSignOut
	ModeBreakOut = "break_out"
	ModeBreakIn  = "break_in"
)

// NotFoundName is reported for a scan of an unregistered identifier.
const NotFoundName = "User not found"

var modeLabels = map[string]string{
	ModeSignIn:   "Sign-In",
	ModeSignOut:  "Sign-Out",
	ModeBreakOut: "Break Out",
	ModeBreakIn:  "Break In",
}

// ModeLabel returns the display label of a scan mode.
func ModeLabel(mode string) string { return modeLabels[mode] }

// ScanClock picks a mode from the time of day when the scanner runs in auto mode.
// Offsets are measured from local midnight.
type ScanClock struct {
	SignInBefore time.Duration
	SignOutFrom  time.Duration
	Location     *time.Location
}

// DefaultScanClock signs in before 09:30 and signs out from 16:00.
func DefaultScanClock() ScanClock {
	return ScanClock{
		SignInBefore: 9*time.Hour + 30*time.Minute,
		SignOutFrom:  16 * time.Hour,
		Location:     time.UTC,
	}
}

// Mode returns the scan mode for now.
func (c ScanClock) Mode(now time.Time) string {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	offset := time.Duration(local.Hour())*time.Hour + time.Duration(local.Minute())*time.Minute
	switch {
	case offset < c.SignInBefore:
		return ModeSignIn
	case offset >= c.SignOutFrom:
		return ModeSignOut
	default:
		return ModeBreakOut
	}
}

// ScanResult is one row of the scanner log.
type ScanResult struct {
	Identifier string    `json:"studentId"`
	Name       string    `json:"name"`
	Category   string    `json:"category,omitempty"`
	Mode       string    `json:"mode"`
	Status     string    `json:"status"`
	At         time.Time `json:"at"`
	Found      bool      `json:"found"`
	Duplicate  bool      `json:"duplicate"`
}

// Scan records a badge scan. An unknown identifier yields a placeholder result rather
// than an error; a repeat of the same scan inside the dedup window returns the earlier result.
func (s *Service) Scan(ctx context.Context, raw, mode string) (ScanResult, error) {
	key := identifier.Normalize(raw)
	if key == "" {
		return ScanResult{}, validate.Fields(validate.FieldError{Field: "studentId", Message: "studentId is a required field"})
	}
	now := s.now()
	if mode == "" || mode == ModeAuto {
		mode = s.clock.Mode(now)
	}
	if _, ok := modeLabels[mode]; !ok {
		return ScanResult{}, validate.Fields(validate.FieldError{Field: "mode", Message: "unknown scan mode"})
	}

	p, err := s.store.FindByIdentifier(ctx, key)
	if err != nil {
		return ScanResult{}, err
	}
	if p == nil {
		metrics.Scans.WithLabelValues(mode, "not_found").Inc()
		return ScanResult{Identifier: strings.ToUpper(key), Name: NotFoundName, Mode: mode, Status: "-", At: now}, nil
	}

	res := ScanResult{
		Identifier: p.Identifier,
		Name:       p.Name,
		Category:   p.Category,
		Mode:       mode,
		Status:     modeLabels[mode],
		At:         now,
		Found:      true,
	}

	switch mode {
	case ModeSignIn, ModeSignOut:
		err = s.scanSession(ctx, p, mode, &res)
	default:
		err = s.scanBreak(ctx, p, mode, &res)
	}
	if err != nil {
		metrics.Scans.WithLabelValues(mode, "error").Inc()
		return ScanResult{}, err
	}
	outcome := "recorded"
	if res.Duplicate {
		outcome = "duplicate"
	}
	metrics.Scans.WithLabelValues(mode, outcome).Inc()
	s.log.Info("scan", zap.String("student_id", p.Identifier), zap.String("mode", mode), zap.Bool("duplicate", res.Duplicate))
	return res, nil
}

func (s *Service) scanSession(ctx context.Context, p *model.Participant, mode string, res *ScanResult) error {
	recent, err := s.store.RecentAttendance(ctx, p.Identifier, mode, s.dedupWindow)
	if err != nil {
		return err
	}
	if recent != nil {
		res.Duplicate = true
		if recent.Timestamp.Valid {
			res.At = recent.Timestamp.Time
		}
		return nil
	}
	entry, in := model.EntryIn, true
	if mode == ModeSignOut {
		entry, in = model.EntryOut, false
	}
	rec, err := s.store.RecordScan(ctx, p.ID, model.AttendanceRecord{StudentID: p.Identifier, StudentName: p.Name, Mode: mode}, entry, in)
	if err != nil {
		return err
	}
	if rec.Timestamp.Valid {
		res.At = rec.Timestamp.Time
	}
	s.notify(ctx, feed.Attendance, feed.Participants)
	return nil
}

func (s *Service) scanBreak(ctx context.Context, p *model.Participant, mode string, res *ScanResult) error {
	entry := model.EntryOut
	if mode == ModeBreakIn {
		entry = model.EntryIn
	}
	if n := len(p.Breaks); n > 0 {
		last := p.Breaks[n-1]
		if last.Type == entry && last.Time.Valid && s.now().Sub(last.Time.Time) < s.dedupWindow {
			res.Duplicate = true
			res.At = last.Time.Time
			return nil
		}
	}
	t, err := s.store.AppendBreak(ctx, p.ID, entry)
	if err != nil {
		return err
	}
	if t.Time.Valid {
		res.At = t.Time.Time
	}
	s.notify(ctx, feed.Participants)
	return nil
}
