package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/volatiletech/null/v8"

	"github.com/churchevent-ux/registerform--event-final/internal/identifier"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
)

// Volunteers is the volunteer collection of a Store.
type Volunteers struct{ s *Store }

// Volunteers returns the volunteer collection.
func (s *Store) Volunteers() *Volunteers { return &Volunteers{s: s} }

func (v *Volunteers) Insert(_ context.Context, vol model.Volunteer) (model.Volunteer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if vol.ID == "" {
		vol.ID = uuid.NewString()
	}
	vol.CreatedAt = null.TimeFrom(v.s.now())
	v.s.volunteers[vol.ID] = vol
	return vol, nil
}

func (v *Volunteers) LatestVolunteerID(_ context.Context) (string, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	latest, best := "", -1
	for _, vol := range v.s.volunteers {
		if n := identifier.Suffix(vol.VolunteerID); n > best {
			latest, best = vol.VolunteerID, n
		}
	}
	return latest, nil
}

func (v *Volunteers) List(_ context.Context) ([]model.Volunteer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	out := make([]model.Volunteer, 0, len(v.s.volunteers))
	for _, vol := range v.s.volunteers {
		out = append(out, vol)
	}
	sort.Slice(out, func(i, j int) bool {
		return identifier.Suffix(out[i].VolunteerID) > identifier.Suffix(out[j].VolunteerID)
	})
	return out, nil
}

func (v *Volunteers) Get(_ context.Context, id string) (model.Volunteer, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	vol, ok := v.s.volunteers[id]
	if !ok {
		return model.Volunteer{}, store.ErrNotFound
	}
	return vol, nil
}

func (v *Volunteers) Delete(_ context.Context, id string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if _, ok := v.s.volunteers[id]; !ok {
		return store.ErrNotFound
	}
	delete(v.s.volunteers, id)
	return nil
}

// Teams is the team collection of a Store.
type Teams struct{ s *Store }

// Teams returns the team collection.
func (s *Store) Teams() *Teams { return &Teams{s: s} }

func (t *Teams) Create(_ context.Context, team model.Team) (model.Team, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for _, existing := range t.s.teams {
		if existing.Name == team.Name {
			return model.Team{}, store.ErrDuplicate
		}
	}
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	team.CreatedAt = null.TimeFrom(t.s.now())
	t.s.teams[team.ID] = team
	return team, nil
}

func (t *Teams) List(_ context.Context) ([]model.Team, error) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	out := make([]model.Team, 0, len(t.s.teams))
	for _, team := range t.s.teams {
		out = append(out, team)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (t *Teams) Delete(_ context.Context, id string) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if _, ok := t.s.teams[id]; !ok {
		return store.ErrNotFound
	}
	delete(t.s.teams, id)
	for pid, p := range t.s.people {
		if p.TeamID.Valid && p.TeamID.String == id {
			p.TeamID = null.String{}
			t.s.people[pid] = p
		}
	}
	return nil
}

// Users is the dashboard user collection of a Store.
type Users struct{ s *Store }

// Users returns the dashboard user collection.
func (s *Store) Users() *Users { return &Users{s: s} }

func (u *Users) CreateUser(_ context.Context, user model.DashboardUser) (model.DashboardUser, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, existing := range u.s.users {
		if strings.EqualFold(existing.EmailOrPhone, user.EmailOrPhone) {
			return model.DashboardUser{}, store.ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = null.TimeFrom(u.s.now())
	u.s.users[user.ID] = user
	return user, nil
}

func (u *Users) FindUser(_ context.Context, emailOrPhone string) (*model.DashboardUser, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	for _, user := range u.s.users {
		if strings.EqualFold(user.EmailOrPhone, emailOrPhone) {
			return &user, nil
		}
	}
	return nil, nil
}

func (u *Users) ListUsers(_ context.Context, role string) ([]model.DashboardUser, error) {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	var out []model.DashboardUser
	for _, user := range u.s.users {
		if role == "" || user.Role == role {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmailOrPhone < out[j].EmailOrPhone })
	return out, nil
}

func (u *Users) DeleteUser(_ context.Context, id string) error {
	u.s.mu.Lock()
	defer u.s.mu.Unlock()
	if _, ok := u.s.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(u.s.users, id)
	return nil
}
