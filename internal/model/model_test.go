package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/volatiletech/null/v8"
)

func TestDayOf(t *testing.T) {
	dubai, err := time.LoadLocation("Asia/Dubai")
	if err != nil {
		t.Skip("tzdata not available")
	}
	late := time.Date(2025, 12, 28, 22, 30, 0, 0, time.UTC)

	day, ok := DayOf(null.TimeFrom(late), time.UTC)
	assert.True(t, ok)
	assert.Equal(t, "2025-12-28", day)

	day, ok = DayOf(null.TimeFrom(late), dubai)
	assert.True(t, ok)
	assert.Equal(t, "2025-12-29", day)

	_, ok = DayOf(null.Time{}, time.UTC)
	assert.False(t, ok)
}
