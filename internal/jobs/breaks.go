package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/presence"
)

// LongBreakAlert publishes a long_break signal once per overdue break.
type LongBreakAlert struct {
	Source   presence.Source
	Publish  presence.PublishFunc
	Limit    time.Duration
	Location *time.Location
	Now      func() time.Time

	mu sync.Mutex
	// sent maps identifier@start to the break start; entries from earlier days are dropped.
	sent map[string]time.Time
}

// Run is a Job.
func (a *LongBreakAlert) Run(ctx context.Context) error {
	now := time.Now()
	if a.Now != nil {
		now = a.Now()
	}
	loc := a.Location
	if loc == nil {
		loc = time.UTC
	}
	participants, err := a.Source.ListParticipants(ctx)
	if err != nil {
		return err
	}
	rows := presence.BreakBoard(participants, model.Day(now, loc), now, loc, a.Limit)

	today := model.Day(now, loc)
	a.mu.Lock()
	if a.sent == nil {
		a.sent = map[string]time.Time{}
	}
	for key, started := range a.sent {
		if model.Day(started, loc) < today {
			delete(a.sent, key)
		}
	}
	var fresh []presence.Signal
	for _, s := range presence.LongBreaks(rows, now) {
		started := startOf(rows, s.Identifier)
		key := s.Identifier + "@" + started.Format(time.RFC3339Nano)
		if _, ok := a.sent[key]; ok {
			continue
		}
		a.sent[key] = started
		fresh = append(fresh, s)
	}
	a.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}
	return a.Publish(ctx, fresh)
}

func startOf(rows []presence.BreakRow, identifier string) time.Time {
	for _, r := range rows {
		if r.Identifier == identifier && r.Ongoing {
			return r.Started
		}
	}
	return time.Time{}
}
