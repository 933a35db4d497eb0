// Package team groups teen participants into teams.
package team

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/category"
	"github.com/churchevent-ux/registerform--event-final/internal/feed"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/presence"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
	"github.com/churchevent-ux/registerform--event-final/internal/validate"
)

// Store persists teams.
type Store interface {
	Create(ctx context.Context, t model.Team) (model.Team, error)
	List(ctx context.Context) ([]model.Team, error)
	Delete(ctx context.Context, id string) error
}

// Repository persists teams in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a team.
func (r *Repository) Create(ctx context.Context, t model.Team) (model.Team, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	err := r.db.QueryRowContext(ctx, `INSERT INTO teams (id, name) VALUES ($1, $2) RETURNING created_at`, t.ID, t.Name).Scan(&t.CreatedAt)
	if store.IsUniqueViolation(err) {
		return model.Team{}, store.ErrDuplicate
	}
	return t, err
}

// List returns teams ordered by name.
func (r *Repository) List(ctx context.Context) ([]model.Team, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_at FROM teams ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []model.Team
	for rows.Next() {
		var t model.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// Delete removes a team; members keep their record with the team cleared.
func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// View is a team with its derived members.
type View struct {
	model.Team
	Members []model.Participant `json:"members"`
	Online  int                 `json:"online"`
}

// Members returns the participants of team whose age the band accepts, youngest first.
func Members(team model.Team, participants []model.Participant, band category.Bands) []model.Participant {
	var out []model.Participant
	for _, p := range participants {
		if !p.TeamID.Valid || p.TeamID.String != team.ID || !p.Age.Valid {
			continue
		}
		if !band.Classify(p.Age.Int).Eligible {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Age.Int < out[j].Age.Int })
	return out
}

// Overview builds the team listing. Teams without members are left out. The online
// filter keeps teams with any member in session, offline keeps teams with none; query
// matches the team name or any member name.
func Overview(teams []model.Team, participants []model.Participant, band category.Bands, session, query string) []View {
	q := strings.ToLower(strings.TrimSpace(query))
	var out []View
	for _, t := range teams {
		members := Members(t, participants, band)
		if len(members) == 0 {
			continue
		}
		v := View{Team: t, Members: members}
		for _, m := range members {
			if m.InSession {
				v.Online++
			}
		}
		switch session {
		case presence.FilterOnline:
			if v.Online == 0 {
				continue
			}
		case presence.FilterOffline:
			if v.Online > 0 {
				continue
			}
		}
		if q != "" && !strings.Contains(strings.ToLower(t.Name), q) && !anyNameContains(members, q) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func anyNameContains(ps []model.Participant, q string) bool {
	for _, p := range ps {
		if strings.Contains(strings.ToLower(p.Name), q) {
			return true
		}
	}
	return false
}

// CreateInput is the new-team form.
type CreateInput struct {
	Name string `json:"name" validate:"notblank,max=80"`
}

// Service manages teams.
type Service struct {
	store  Store
	band   category.Bands
	broker feed.Broker
	log    *zap.Logger
}

// NewService creates a service.
func NewService(st Store, band category.Bands, broker feed.Broker, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, band: band, broker: broker, log: log}
}

// Create validates and stores a team.
func (s *Service) Create(ctx context.Context, in CreateInput) (model.Team, error) {
	if err := validate.Struct(in); err != nil {
		return model.Team{}, err
	}
	t, err := s.store.Create(ctx, model.Team{Name: strings.TrimSpace(in.Name)})
	if err != nil {
		return model.Team{}, err
	}
	s.notify(ctx)
	return t, nil
}

// Delete removes a team.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ctx)
	return nil
}

// List returns every team.
func (s *Service) List(ctx context.Context) ([]model.Team, error) {
	return s.store.List(ctx)
}

// Overview lists teams with members from the given participant snapshot.
func (s *Service) Overview(ctx context.Context, participants []model.Participant, session, query string) ([]View, error) {
	teams, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return Overview(teams, participants, s.band, session, query), nil
}

func (s *Service) notify(ctx context.Context) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Notify(ctx, feed.Teams); err != nil {
		s.log.Warn("change notification failed", zap.String("collection", feed.Teams), zap.Error(err))
	}
}
