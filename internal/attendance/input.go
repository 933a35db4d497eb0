package attendance

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/churchevent-ux/registerform--event-final/internal/validate"
)

// MedicalOther is the medical condition option that requires notes.
const MedicalOther = "Other"

const otherNotesTag = "other_notes"

// ParticipantInput is the main registrant of a registration form.
type ParticipantInput struct {
	Name                     string   `json:"participantName" validate:"notblank"`
	DOB                      string   `json:"dob" validate:"required,datetime=2006-01-02"`
	FatherName               string   `json:"fatherName"`
	MotherName               string   `json:"motherName"`
	PrimaryContactNumber     string   `json:"primaryContactNumber" validate:"notblank"`
	PrimaryContactRelation   string   `json:"primaryContactRelation" validate:"notblank"`
	SecondaryContactNumber   string   `json:"secondaryContactNumber" validate:"notblank"`
	SecondaryContactRelation string   `json:"secondaryContactRelationship" validate:"notblank"`
	Email                    string   `json:"email" validate:"required,email"`
	Residence                string   `json:"residence"`
	ParentAgreement          bool     `json:"parentAgreement" validate:"required"`
	ParentSignature          string   `json:"parentSignature"`
	MedicalConditions        []string `json:"medicalConditions" validate:"min=1,dive,notblank"`
	MedicalNotes             string   `json:"medicalNotes"`
}

// SiblingInput is a sibling registered on the same form. Either dob or age is required.
type SiblingInput struct {
	Name string `json:"name" validate:"notblank"`
	DOB  string `json:"dob" validate:"required_without=Age,omitempty,datetime=2006-01-02"`
	Age  *int   `json:"age" validate:"required_without=DOB,omitempty,min=0,max=120"`
}

// RegistrationRequest registers a participant together with their siblings.
type RegistrationRequest struct {
	Participant ParticipantInput `json:"participant"`
	Siblings    []SiblingInput   `json:"siblings" validate:"dive"`
}

func init() {
	validate.Validate.RegisterStructValidation(participantStructValidation, ParticipantInput{})
	validate.RegisterMessage(otherNotesTag, "describe the other medical condition")
}

func participantStructValidation(sl validator.StructLevel) {
	in, ok := sl.Current().Interface().(ParticipantInput)
	if !ok {
		return
	}
	for _, c := range in.MedicalConditions {
		if strings.EqualFold(strings.TrimSpace(c), MedicalOther) && strings.TrimSpace(in.MedicalNotes) == "" {
			sl.ReportError(in.MedicalNotes, "medicalNotes", "MedicalNotes", otherNotesTag, "")
			return
		}
	}
}
