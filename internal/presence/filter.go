package presence

import (
	"strings"

	"github.com/churchevent-ux/registerform--event-final/internal/model"
)

// Session filters for participant listings.
const (
	FilterAll     = "all"
	FilterOnline  = "online"
	FilterOffline = "offline"
)

// FilterParticipants keeps participants matching the session filter and a
// case-insensitive query on name or identifier.
func FilterParticipants(ps []model.Participant, session, query string) []model.Participant {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.Participant, 0, len(ps))
	for _, p := range ps {
		switch session {
		case FilterOnline:
			if !p.InSession {
				continue
			}
		case FilterOffline:
			if p.InSession {
				continue
			}
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Identifier), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}
