package volunteer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchevent-ux/registerform--event-final/internal/feed"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
	"github.com/churchevent-ux/registerform--event-final/internal/testutil/memstore"
	"github.com/churchevent-ux/registerform--event-final/internal/validate"
)

func input(name string) Input {
	return Input{
		FullName:           name,
		DOB:                "1990-04-12",
		Email:              "helper@example.com",
		Phone:              "0501112222",
		PreferredRole:      "Registration desk",
		TShirtSize:         "M",
		EmergencyName:      "Sam",
		EmergencyPhone:     "0503334444",
		AvailableDates:     []string{"2025-12-29"},
		VolunteerAgreement: true,
		Signature:          "data:image/png;base64,AAAA",
	}
}

func TestRegisterNumbersVolunteers(t *testing.T) {
	mem := memstore.New(nil)
	svc := NewService(mem.Volunteers(), mem, feed.NewMemory(), nil)
	ctx := context.Background()

	v, err := svc.Register(ctx, input("Grace"))
	require.NoError(t, err)
	assert.Equal(t, "Volunteer 1", v.VolunteerID)
	assert.True(t, v.Age.Valid)

	v, err = svc.Register(ctx, input("Henry"))
	require.NoError(t, err)
	assert.Equal(t, "Volunteer 2", v.VolunteerID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, svc.Delete(ctx, v.ID))
	assert.ErrorIs(t, svc.Delete(ctx, v.ID), store.ErrNotFound)
}

func TestRegisterValidation(t *testing.T) {
	mem := memstore.New(nil)
	svc := NewService(mem.Volunteers(), mem, nil, nil)
	in := input("Grace")
	in.TShirtSize = "XXXL"
	in.AvailableDates = nil
	_, err := svc.Register(context.Background(), in)
	var verr *validate.Error
	require.ErrorAs(t, err, &verr)
	names := []string{}
	for _, f := range verr.Fields {
		names = append(names, f.Field)
	}
	assert.ElementsMatch(t, []string{"tshirtSize", "availableDates"}, names)
}
