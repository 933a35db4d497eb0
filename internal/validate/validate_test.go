package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" validate:"notblank"`
	Email string `json:"email" validate:"omitempty,email"`
	Inner struct {
		Phone string `json:"phone" validate:"required"`
	} `json:"inner"`
}

func TestStruct(t *testing.T) {
	s := sample{Name: "  ", Email: "nope"}
	err := Struct(s)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))

	var verr *Error
	require.ErrorAs(t, err, &verr)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, "this field cannot be blank", fields["name"])
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "inner.phone")

	s = sample{Name: "Ann"}
	s.Inner.Phone = "0501234567"
	assert.NoError(t, Struct(s))
}

func TestFields(t *testing.T) {
	assert.NoError(t, Fields())
	err := Fields(FieldError{Field: "medicalNotes", Message: "required"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "medicalNotes")
}
