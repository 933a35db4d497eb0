package team

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/churchevent-ux/registerform--event-final/internal/category"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/presence"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
	"github.com/churchevent-ux/registerform--event-final/internal/testutil/memstore"
	"github.com/churchevent-ux/registerform--event-final/internal/validate"
)

func member(name, team string, age int, online bool) model.Participant {
	return model.Participant{Name: name, TeamID: null.StringFrom(team), Age: null.IntFrom(age), InSession: online}
}

func TestMembersFiltersByBandAndSortsByAge(t *testing.T) {
	band := category.Defaults().Get(category.ProfileTeam)
	ps := []model.Participant{
		member("Old", "t1", 19, false),
		member("Mid", "t1", 16, false),
		member("Young", "t1", 13, false),
		member("Kid", "t1", 11, false),
		member("Other", "t2", 15, false),
		{Name: "NoTeam", Age: null.IntFrom(15)},
	}
	got := Members(model.Team{ID: "t1"}, ps, band)
	require.Len(t, got, 2)
	assert.Equal(t, "Young", got[0].Name)
	assert.Equal(t, "Mid", got[1].Name)
}

func TestOverviewFilters(t *testing.T) {
	band := category.Defaults().Get(category.ProfileTeam)
	teams := []model.Team{{ID: "t1", Name: "Lions"}, {ID: "t2", Name: "Eagles"}, {ID: "t3", Name: "Empty"}}
	ps := []model.Participant{
		member("Ann", "t1", 14, true),
		member("Bob", "t1", 15, false),
		member("Cid", "t2", 16, false),
	}

	all := Overview(teams, ps, band, presence.FilterAll, "")
	require.Len(t, all, 2)
	assert.Equal(t, 1, all[0].Online)

	online := Overview(teams, ps, band, presence.FilterOnline, "")
	require.Len(t, online, 1)
	assert.Equal(t, "Lions", online[0].Name)

	offline := Overview(teams, ps, band, presence.FilterOffline, "")
	require.Len(t, offline, 1)
	assert.Equal(t, "Eagles", offline[0].Name)

	byMember := Overview(teams, ps, band, presence.FilterAll, "cid")
	require.Len(t, byMember, 1)
	assert.Equal(t, "t2", byMember[0].ID)
}

func TestServiceCreate(t *testing.T) {
	mem := memstore.New(nil)
	svc := NewService(mem.Teams(), category.Defaults().Get(category.ProfileTeam), nil, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: " "})
	assert.ErrorIs(t, err, validate.ErrValidation)

	created, err := svc.Create(ctx, CreateInput{Name: "Lions"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	_, err = svc.Create(ctx, CreateInput{Name: "Lions"})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	require.NoError(t, svc.Delete(ctx, created.ID))
}
