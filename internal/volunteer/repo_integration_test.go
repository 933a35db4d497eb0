//go:build integration

package volunteer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
	"github.com/churchevent-ux/registerform--event-final/internal/testutil/testdb"
)

func TestRepository(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()
	repo := NewRepository(h.DB)

	latest, err := repo.LatestVolunteerID(ctx)
	require.NoError(t, err)
	assert.Empty(t, latest)

	saved, err := repo.Insert(ctx, model.Volunteer{VolunteerID: "VOL001", FullName: "Sam", AvailableDates: []string{"2025-12-27"}})
	require.NoError(t, err)

	latest, err = repo.LatestVolunteerID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "VOL001", latest)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, []string{"2025-12-27"}, list[0].AvailableDates)

	got, err := repo.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sam", got.FullName)

	require.NoError(t, repo.Delete(ctx, saved.ID))
	_, err = repo.Get(ctx, saved.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, saved.ID), store.ErrNotFound)
}
