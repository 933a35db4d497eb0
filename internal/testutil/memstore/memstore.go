// Package memstore is an in-memory document store used by tests and the demo mode.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
)

// Store keeps every collection in maps guarded by one mutex.
type Store struct {
	mu         sync.Mutex
	now        func() time.Time
	people     map[string]model.Participant
	records    []model.AttendanceRecord
	volunteers map[string]model.Volunteer
	teams      map[string]model.Team
	users      map[string]model.DashboardUser
	counters   map[string]int
}

// New creates an empty store. now defaults to time.Now.
func New(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:        now,
		people:     map[string]model.Participant{},
		volunteers: map[string]model.Volunteer{},
		teams:      map[string]model.Team{},
		users:      map[string]model.DashboardUser{},
		counters:   map[string]int{},
	}
}

// Next implements identifier.Counter.
func (s *Store) Next(_ context.Context, key string, floor int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters[key] < floor {
		s.counters[key] = floor
	}
	s.counters[key]++
	return s.counters[key], nil
}

func (s *Store) InsertParticipants(_ context.Context, ps []model.Participant) ([]model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range ps {
		for _, existing := range s.people {
			if strings.EqualFold(existing.Identifier, p.Identifier) {
				return nil, fmt.Errorf("duplicate identifier %s", p.Identifier)
			}
		}
	}
	out := make([]model.Participant, 0, len(ps))
	for _, p := range ps {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.CreatedAt = null.TimeFrom(s.now())
		s.people[p.ID] = p
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) LatestIdentifier(_ context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *model.Participant
	for _, p := range s.people {
		if p.CategoryCode != code {
			continue
		}
		p := p
		if latest == nil || p.CreatedAt.Time.After(latest.CreatedAt.Time) ||
			(p.CreatedAt.Time.Equal(latest.CreatedAt.Time) && p.Identifier > latest.Identifier) {
			latest = &p
		}
	}
	if latest == nil {
		return "", nil
	}
	return latest.Identifier, nil
}

func (s *Store) ListParticipants(_ context.Context) ([]model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Participant, 0, len(s.people))
	for _, p := range s.people {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Identifier < out[j].Identifier })
	return out, nil
}

func (s *Store) GetParticipant(_ context.Context, id string) (*model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) FindByIdentifier(_ context.Context, normalized string) (*model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.people {
		if strings.ToLower(p.Identifier) == normalized {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Store) DeleteParticipant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.people[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.people, id)
	return nil
}

func (s *Store) SetTeam(_ context.Context, id string, teamID null.String) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[id]
	if !ok {
		return store.ErrNotFound
	}
	if teamID.Valid {
		if _, ok := s.teams[teamID.String]; !ok {
			return store.ErrNotFound
		}
	}
	p.TeamID = teamID
	s.people[id] = p
	return nil
}

func (s *Store) MarkIDGenerated(_ context.Context, id string) (*model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[id]
	if !ok {
		return nil, nil
	}
	p.IDGenerated = true
	p.IDGeneratedAt = null.TimeFrom(s.now())
	s.people[id] = p
	return &p, nil
}

func (s *Store) AppendBreak(_ context.Context, id, typ string) (model.Transition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[id]
	if !ok {
		return model.Transition{}, store.ErrNotFound
	}
	t := model.Transition{Type: typ, Time: null.TimeFrom(s.now())}
	p.Breaks = append(append([]model.Transition(nil), p.Breaks...), t)
	s.people[id] = p
	return t, nil
}

func (s *Store) RecordScan(_ context.Context, participantID string, rec model.AttendanceRecord, entry string, inSession bool) (model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.people[participantID]
	if !ok {
		return model.AttendanceRecord{}, store.ErrNotFound
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.Timestamp = null.TimeFrom(s.now())
	s.records = append(s.records, rec)
	p.SessionHistory = append(append([]model.Transition(nil), p.SessionHistory...), model.Transition{Type: entry, Time: rec.Timestamp})
	p.InSession = inSession
	s.people[participantID] = p
	return rec, nil
}

func (s *Store) RecentAttendance(_ context.Context, studentID, mode string, window time.Duration) (*model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-window)
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.StudentID == studentID && r.Mode == mode && r.Timestamp.Valid && !r.Timestamp.Time.Before(cutoff) {
			return &r, nil
		}
	}
	return nil, nil
}

func (s *Store) ListAttendance(_ context.Context) ([]model.AttendanceRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]model.AttendanceRecord(nil), s.records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Time.After(out[j].Timestamp.Time) })
	return out, nil
}

// AddAttendance seeds a record as stored, timestamp included.
func (s *Store) AddAttendance(rec model.AttendanceRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}
