package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/presence"
)

func open(t *testing.T, buf *bytes.Buffer, sheet string) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestAttendanceWorkbook(t *testing.T) {
	var buf bytes.Buffer
	err := AttendanceWorkbook(&buf, "2024-07-01", []presence.StudentSummary{
		{Identifier: "DGT-001", Name: "Anna", Status: presence.StatusPresent, TotalDays: 2, Attended: 2, Percentage: 100},
		{Identifier: "DGK-001", Name: "Ben", Status: presence.StatusAbsent, TotalDays: 2, Attended: 1, Absent: 1, Percentage: 50},
	})
	require.NoError(t, err)

	rows := open(t, &buf, attendanceSheet)
	require.Len(t, rows, 3)
	assert.Equal(t, "Status (2024-07-01)", rows[0][2])
	assert.Equal(t, []string{"DGT-001", "Anna", "Present", "2", "2", "0", "100"}, rows[1])
	assert.Equal(t, "50", rows[2][6])
}

func TestParticipantsWorkbook(t *testing.T) {
	created := time.Date(2024, 7, 1, 6, 30, 0, 0, time.UTC)
	var buf bytes.Buffer
	err := ParticipantsWorkbook(&buf, []model.Participant{
		{
			Identifier:        "DGT-001",
			Name:              "Anna",
			Category:          "Teen",
			Age:               null.IntFrom(14),
			MedicalConditions: []string{"Asthma", "Other"},
			FamilyID:          null.StringFrom("DGT-001"),
			IDGenerated:       true,
			CreatedAt:         null.TimeFrom(created),
		},
		{Identifier: "DGK-001", Name: "Ben"},
	}, time.UTC)
	require.NoError(t, err)

	rows := open(t, &buf, participantsSheet)
	require.Len(t, rows, 3)
	assert.Equal(t, "Student ID", rows[0][0])
	assert.Equal(t, "14", rows[1][3])
	assert.Equal(t, "Asthma, Other", rows[1][13])
	assert.Equal(t, "Yes", rows[1][16])
	assert.Equal(t, "2024-07-01 06:30", rows[1][17])
	assert.Equal(t, "", rows[2][3])
}

func TestVolunteersWorkbook(t *testing.T) {
	var buf bytes.Buffer
	err := VolunteersWorkbook(&buf, []model.Volunteer{
		{VolunteerID: "Volunteer 1", FullName: "Carl", AvailableDates: []string{"2024-07-01", "2024-07-02"}},
	}, time.UTC)
	require.NoError(t, err)

	rows := open(t, &buf, volunteersSheet)
	require.Len(t, rows, 2)
	assert.Equal(t, "Volunteer 1", rows[1][0])
	assert.Equal(t, "2024-07-01, 2024-07-02", rows[1][10])
}
