package category

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// Form holds the derived age and category of a registration form entry.
// Every SetDOB fully replaces the previous derivation.
type Form struct {
	bands  Bands
	DOB    null.Time
	Age    null.Int
	Result Result
}

// NewForm creates a form classified with bands.
func NewForm(bands Bands) *Form {
	f := &Form{bands: bands}
	f.Result = Result{Label: Placeholder}
	return f
}

// SetDOB parses raw and recomputes age and category synchronously.
func (f *Form) SetDOB(raw string, now time.Time) Result {
	f.DOB = ParseDOB(raw)
	f.Age = AgeAt(f.DOB, now)
	if !f.Age.Valid {
		f.Result = Result{Label: Placeholder}
		return f.Result
	}
	f.Result = f.bands.Classify(f.Age.Int)
	return f.Result
}
