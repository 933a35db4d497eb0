package model

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Transition types shared by break and session entries.
const (
	EntryIn  = "in"
	EntryOut = "out"
)

// Attendance modes.
const (
	ModeSignIn  = "signin"
	ModeSignOut = "signout"
)

// DayLayout is the day-granularity key used for every date-keyed aggregate.
const DayLayout = "2006-01-02"

// Transition is one append-only entry of a participant's break list or session history.
// Time stays invalid until the store has resolved the server timestamp.
type Transition struct {
	Type string    `json:"type"`
	Time null.Time `json:"time"`
}

// Participant is a registered retreat participant.
type Participant struct {
	ID                       string       `json:"id"`
	Identifier               string       `json:"studentId"`
	FamilyID                 null.String  `json:"familyId"`
	Name                     string       `json:"participantName"`
	DOB                      null.Time    `json:"dob"`
	Age                      null.Int     `json:"age"`
	Category                 string       `json:"category"`
	CategoryCode             string       `json:"categoryCode"`
	FatherName               string       `json:"fatherName"`
	MotherName               string       `json:"motherName"`
	PrimaryContactNumber     string       `json:"primaryContactNumber"`
	PrimaryContactRelation   string       `json:"primaryContactRelation"`
	SecondaryContactNumber   string       `json:"secondaryContactNumber"`
	SecondaryContactRelation string       `json:"secondaryContactRelationship"`
	Email                    string       `json:"email"`
	Residence                string       `json:"residence"`
	ParentAgreement          bool         `json:"parentAgreement"`
	ParentSignature          string       `json:"parentSignature"`
	MedicalConditions        []string     `json:"medicalConditions"`
	MedicalNotes             string       `json:"medicalNotes"`
	TeamID                   null.String  `json:"teamId"`
	InSession                bool         `json:"inSession"`
	Breaks                   []Transition `json:"breaks"`
	SessionHistory           []Transition `json:"sessionHistory"`
	IDGenerated              bool         `json:"idGenerated"`
	IDGeneratedAt            null.Time    `json:"idGeneratedAt"`
	CreatedAt                null.Time    `json:"createdAt"`
}

// AttendanceRecord is one sign-in or sign-out event.
type AttendanceRecord struct {
	ID          string    `json:"id"`
	StudentID   string    `json:"studentId"`
	StudentName string    `json:"studentName"`
	Mode        string    `json:"mode"`
	Timestamp   null.Time `json:"timestamp"`
}

// Volunteer is a registered event volunteer.
type Volunteer struct {
	ID                 string    `json:"id"`
	VolunteerID        string    `json:"volunteerId"`
	FullName           string    `json:"fullName"`
	DOB                null.Time `json:"dob"`
	Age                null.Int  `json:"age"`
	Email              string    `json:"email"`
	Phone              string    `json:"phone"`
	PreferredRole      string    `json:"preferredRole"`
	PreferredLocation  string    `json:"preferredLocation"`
	TShirtSize         string    `json:"tshirtSize"`
	EmergencyName      string    `json:"emergencyName"`
	EmergencyPhone     string    `json:"emergencyPhone"`
	AvailableDates     []string  `json:"availableDates"`
	VolunteerAgreement bool      `json:"volunteerAgreement"`
	Signature          string    `json:"signature"`
	CreatedAt          null.Time `json:"createdAt"`
}

// Team groups participants by their TeamID.
type Team struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt null.Time `json:"createdAt"`
}

// DashboardUser is an operator allowed into the admin area.
type DashboardUser struct {
	ID           string    `json:"id"`
	EmailOrPhone string    `json:"emailOrPhone"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Permissions  []string  `json:"permissions"`
	CreatedAt    null.Time `json:"createdAt"`
}

// DayOf returns the day key of t in loc. It reports false for an unresolved timestamp.
func DayOf(t null.Time, loc *time.Location) (string, bool) {
	if !t.Valid || t.Time.IsZero() {
		return "", false
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.Time.In(loc).Format(DayLayout), true
}

// Day formats now in loc as a day key.
func Day(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(DayLayout)
}
