package category

import (
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
)

// DOBLayout is the date-of-birth format accepted from forms.
const DOBLayout = "2006-01-02"

// ParseDOB parses a form date of birth. Blank or malformed input yields an invalid time.
func ParseDOB(s string) null.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return null.Time{}
	}
	t, err := time.Parse(DOBLayout, s)
	if err != nil {
		return null.Time{}
	}
	return null.TimeFrom(t)
}

// AgeAt returns completed years between dob and now, subtracting one when
// this year's birthday has not been reached yet.
func AgeAt(dob null.Time, now time.Time) null.Int {
	if !dob.Valid || dob.Time.IsZero() {
		return null.Int{}
	}
	b := dob.Time
	age := now.Year() - b.Year()
	if now.Month() < b.Month() || (now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	if age < 0 {
		return null.Int{}
	}
	return null.IntFrom(age)
}
