package category

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Category codes.
const (
	CodeKids  = "DGK"
	CodeTeen  = "DGT"
	CodeUnder = "UND"
	CodeOver  = "OVR"
	CodeNA    = "N/A"
)

// Placeholder is shown while no date of birth has been entered.
const Placeholder = "Enter date of birth"

// Profile names. The call sites disagree on the ranges, so each keeps its own.
const (
	ProfileRegister = "register"
	ProfilePreview  = "preview"
	ProfileIDCard   = "idcard"
	ProfileTeam     = "team"
)

// Band is an inclusive age range.
type Band struct {
	Label string `yaml:"label" json:"label"`
	Code  string `yaml:"code" json:"code"`
	Min   int    `yaml:"min" json:"min"`
	Max   int    `yaml:"max" json:"max"`
}

// Contains reports whether age falls inside the band.
func (b Band) Contains(age int) bool { return age >= b.Min && age <= b.Max }

// Bands is a classification profile: two named ranges plus the outcomes below and above them.
type Bands struct {
	Kids  Band `yaml:"kids" json:"kids"`
	Teen  Band `yaml:"teen" json:"teen"`
	Below Band `yaml:"below" json:"below"`
	Above Band `yaml:"above" json:"above"`
}

// Result is the outcome of classifying an age.
type Result struct {
	Label string `json:"category"`
	Code  string `json:"categoryCode"`
	// Eligible is true only inside the Kids or Teen band.
	Eligible bool `json:"eligible"`
	// Accepted is true when registration may proceed; UND and OVR are accepted but not eligible.
	Accepted bool `json:"accepted"`
}

// Classify maps an age to a category.
func (b Bands) Classify(age int) Result {
	switch {
	case b.Kids.Contains(age):
		return Result{Label: b.Kids.Label, Code: b.Kids.Code, Eligible: true, Accepted: true}
	case b.Teen.Contains(age):
		return Result{Label: b.Teen.Label, Code: b.Teen.Code, Eligible: true, Accepted: true}
	case age < b.Kids.Min:
		return outside(b.Below)
	default:
		return outside(b.Above)
	}
}

func outside(b Band) Result {
	code := b.Code
	if code == "" {
		code = CodeNA
	}
	return Result{Label: b.Label, Code: code, Accepted: code != CodeNA}
}

// Profiles holds the named band profiles.
type Profiles map[string]Bands

// Defaults returns the built-in profiles.
func Defaults() Profiles {
	notEligible := Band{Label: "Not Eligible", Code: CodeNA}
	return Profiles{
		ProfileRegister: {
			Kids:  Band{Label: "Kids", Code: CodeKids, Min: 7, Max: 12},
			Teen:  Band{Label: "Teen", Code: CodeTeen, Min: 13, Max: 25},
			Below: notEligible,
			Above: notEligible,
		},
		ProfilePreview: {
			Kids:  Band{Label: "Kids", Code: CodeKids, Min: 8, Max: 12},
			Teen:  Band{Label: "Teen", Code: CodeTeen, Min: 13, Max: 20},
			Below: Band{Label: "Under Age", Code: CodeUnder},
			Above: Band{Label: "Over Age", Code: CodeOver},
		},
		ProfileIDCard: {
			Kids:  Band{Label: "Kids", Code: CodeKids, Min: 8, Max: 12},
			Teen:  Band{Label: "Teen", Code: CodeTeen, Min: 13, Max: 18},
			Below: notEligible,
			Above: notEligible,
		},
		ProfileTeam: {
			Kids:  Band{Label: "Team", Code: CodeTeen, Min: 13, Max: 18},
			Teen:  Band{Label: "Team", Code: CodeTeen, Min: 13, Max: 18},
			Below: notEligible,
			Above: notEligible,
		},
	}
}

// Get returns a profile, falling back to the preview profile for unknown names.
func (p Profiles) Get(name string) Bands {
	if b, ok := p[name]; ok {
		return b
	}
	return p[ProfilePreview]
}

// LoadProfiles reads profile overrides from a YAML file on top of Defaults.
// An empty path returns the defaults.
func LoadProfiles(path string) (Profiles, error) {
	profiles := Defaults()
	if path == "" {
		return profiles, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bands file: %w", err)
	}
	var overrides map[string]Bands
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, fmt.Errorf("parse bands file: %w", err)
	}
	for name, b := range overrides {
		if b.Kids.Max < b.Kids.Min || b.Teen.Max < b.Teen.Min {
			return nil, fmt.Errorf("profile %q: band max below min", name)
		}
		profiles[name] = b
	}
	return profiles, nil
}
