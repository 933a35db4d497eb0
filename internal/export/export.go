// Package export writes xlsx workbooks for the admin console.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"github.com/xuri/excelize/v2"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/presence"
)

// ContentType is the MIME type of every workbook produced here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	attendanceSheet   = "Attendance"
	participantsSheet = "Participants"
	volunteersSheet   = "Volunteers"
)

// AttendanceWorkbook writes one row per participant summary for the selected day.
func AttendanceWorkbook(w io.Writer, day string, rows []presence.StudentSummary) error {
	header := []any{"Student ID", "Name", "Status (" + day + ")", "Total Days", "Attended", "Absent", "Attendance %"}
	data := make([][]any, 0, len(rows))
	for _, r := range rows {
		data = append(data, []any{r.Identifier, r.Name, r.Status, r.TotalDays, r.Attended, r.Absent, r.Percentage})
	}
	return write(w, attendanceSheet, header, data)
}

// ParticipantsWorkbook writes the registration table; times are rendered in loc.
func ParticipantsWorkbook(w io.Writer, participants []model.Participant, loc *time.Location) error {
	header := []any{
		"Student ID", "Name", "Category", "Age", "Date of Birth", "Father", "Mother",
		"Primary Contact", "Relation", "Secondary Contact", "Relation", "Email", "Residence",
		"Medical Conditions", "Medical Notes", "Family ID", "ID Generated", "Registered At",
	}
	data := make([][]any, 0, len(participants))
	for _, p := range participants {
		data = append(data, []any{
			p.Identifier, p.Name, p.Category, optInt(p.Age), optDate(p.DOB, loc, model.DayLayout),
			p.FatherName, p.MotherName, p.PrimaryContactNumber, p.PrimaryContactRelation,
			p.SecondaryContactNumber, p.SecondaryContactRelation, p.Email, p.Residence,
			strings.Join(p.MedicalConditions, ", "), p.MedicalNotes, p.FamilyID.String,
			yesNo(p.IDGenerated), optDate(p.CreatedAt, loc, "2006-01-02 15:04"),
		})
	}
	return write(w, participantsSheet, header, data)
}

// VolunteersWorkbook writes the volunteer table.
func VolunteersWorkbook(w io.Writer, volunteers []model.Volunteer, loc *time.Location) error {
	header := []any{
		"Volunteer ID", "Full Name", "Age", "Email", "Phone", "Preferred Role", "Preferred Location",
		"T-Shirt", "Emergency Contact", "Emergency Phone", "Available Dates", "Registered At",
	}
	data := make([][]any, 0, len(volunteers))
	for _, v := range volunteers {
		data = append(data, []any{
			v.VolunteerID, v.FullName, optInt(v.Age), v.Email, v.Phone, v.PreferredRole,
			v.PreferredLocation, v.TShirtSize, v.EmergencyName, v.EmergencyPhone,
			strings.Join(v.AvailableDates, ", "), optDate(v.CreatedAt, loc, "2006-01-02 15:04"),
		})
	}
	return write(w, volunteersSheet, header, data)
}

func write(w io.Writer, sheet string, header []any, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if err := format(f, sheet, len(header)); err != nil {
		return err
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// format makes the header bold, enables the auto-filter and widens columns to their content.
func format(f *excelize.File, sheet string, cols int) error {
	last, err := excelize.ColumnNumberToName(cols)
	if err != nil {
		return err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(sheet, "A1", last+"1", style)
	}
	_ = f.AutoFilter(sheet, "A1:"+last+"1", nil)

	rows, err := f.GetRows(sheet)
	if err != nil {
		return err
	}
	for c := 0; c < cols; c++ {
		width := 10.0
		for _, row := range rows {
			if c >= len(row) {
				continue
			}
			if w := float64(len([]rune(row[c]))) * 1.1; w > width {
				width = min(w, 60)
			}
		}
		name, _ := excelize.ColumnNumberToName(c + 1)
		_ = f.SetColWidth(sheet, name, name, width)
	}
	return nil
}

func optInt(v null.Int) any {
	if !v.Valid {
		return ""
	}
	return v.Int
}

func optDate(v null.Time, loc *time.Location, layout string) string {
	if !v.Valid {
		return ""
	}
	return v.Time.In(loc).Format(layout)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
