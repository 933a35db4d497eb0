// Package identifier formats and allocates human-readable participant and volunteer ids.
package identifier

import (
	"fmt"
	"strconv"
	"strings"
)

// VolunteerPrefix precedes the number of a volunteer id.
const VolunteerPrefix = "Volunteer"

// Suffix returns the trailing number of id, or 0 when there is none.
func Suffix(id string) int {
	id = strings.TrimSpace(id)
	end := len(id)
	start := end
	for start > 0 && id[start-1] >= '0' && id[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0
	}
	n, err := strconv.Atoi(id[start:end])
	if err != nil {
		return 0
	}
	return n
}

// Format renders a participant id such as DGK-008.
func Format(code string, n int) string {
	return fmt.Sprintf("%s-%03d", code, n)
}

// Next returns the id following prev within code. An empty or unparsable prev starts at 1.
func Next(prev, code string) string {
	return Format(code, Suffix(prev)+1)
}

// FormatVolunteer renders a volunteer id such as "Volunteer 4".
func FormatVolunteer(n int) string {
	return fmt.Sprintf("%s %d", VolunteerPrefix, n)
}

// NextVolunteer returns the volunteer id following prev.
func NextVolunteer(prev string) string {
	return FormatVolunteer(Suffix(prev) + 1)
}

// Normalize prepares a scanned id for lookup.
func Normalize(raw string) string {
	return strings.ToLower(strings.Join(strings.Fields(raw), ""))
}
