//go:build integration

package attendance

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
	"github.com/churchevent-ux/registerform--event-final/internal/testutil/testdb"
)

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	h, err := testdb.Start(ctx)
	require.NoError(t, err)
	defer h.Close()
	repo := NewRepository(h.DB)

	saved, err := repo.InsertParticipants(ctx, []model.Participant{
		{Identifier: "DGK001", FamilyID: null.StringFrom("DGK001"), Name: "Anna", Age: null.IntFrom(10),
			Category: "Kids", CategoryCode: "DGK", MedicalConditions: []string{"asthma"}},
		{Identifier: "DGT001", FamilyID: null.StringFrom("DGK001"), Name: "Ben", Age: null.IntFrom(15),
			Category: "Teen", CategoryCode: "DGT"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, []string{"asthma"}, saved[0].MedicalConditions)
	assert.Empty(t, saved[0].Breaks)

	_, err = repo.InsertParticipants(ctx, []model.Participant{{Identifier: "DGK001", Name: "Dup", CategoryCode: "DGK"}})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	latest, err := repo.LatestIdentifier(ctx, "DGK")
	require.NoError(t, err)
	assert.Equal(t, "DGK001", latest)
	latest, err = repo.LatestIdentifier(ctx, "DGX")
	require.NoError(t, err)
	assert.Empty(t, latest)

	found, err := repo.FindByIdentifier(ctx, "dgt001")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Ben", found.Name)

	_, err = repo.AppendBreak(ctx, found.ID, model.EntryOut)
	require.NoError(t, err)
	out, err := repo.RecordScan(ctx, found.ID, model.AttendanceRecord{StudentID: "DGT001", StudentName: "Ben", Mode: model.ModeSignOut}, model.EntryOut, false)
	require.NoError(t, err)
	assert.True(t, out.Timestamp.Valid)

	_, err = repo.RecordScan(ctx, "missing", model.AttendanceRecord{StudentID: "GHOST", Mode: model.ModeSignIn}, model.EntryIn, true)
	assert.ErrorIs(t, err, store.ErrNotFound)
	ghost, err := repo.RecentAttendance(ctx, "GHOST", model.ModeSignIn, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, ghost, "a failed scan leaves no attendance row")

	got, err := repo.GetParticipant(ctx, found.ID)
	require.NoError(t, err)
	require.Len(t, got.Breaks, 1)
	assert.Equal(t, model.EntryOut, got.Breaks[0].Type)
	require.Len(t, got.SessionHistory, 1)
	assert.Equal(t, out.Timestamp.Time.Unix(), got.SessionHistory[0].Time.Time.Unix())
	assert.False(t, got.InSession)

	marked, err := repo.MarkIDGenerated(ctx, found.ID)
	require.NoError(t, err)
	assert.True(t, marked.IDGenerated)
	assert.True(t, marked.IDGeneratedAt.Valid)

	rec, err := repo.RecordScan(ctx, found.ID, model.AttendanceRecord{StudentID: "DGT001", StudentName: "Ben", Mode: model.ModeSignIn}, model.EntryIn, true)
	require.NoError(t, err)
	assert.True(t, rec.Timestamp.Valid)
	recent, err := repo.RecentAttendance(ctx, "DGT001", model.ModeSignIn, time.Minute)
	require.NoError(t, err)
	require.NotNil(t, recent)
	assert.Equal(t, rec.ID, recent.ID)
	none, err := repo.RecentAttendance(ctx, "DGT001", model.ModeSignOut, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, repo.DeleteParticipant(ctx, found.ID))
	assert.ErrorIs(t, repo.DeleteParticipant(ctx, found.ID), store.ErrNotFound)
	all, err := repo.ListParticipants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
