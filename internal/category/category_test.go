package category

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"
)

func TestAgeAt(t *testing.T) {
	now := time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		dob  string
		want null.Int
	}{
		{"birthday passed", "2013-05-01", null.IntFrom(12)},
		{"birthday today", "2013-12-29", null.IntFrom(12)},
		{"birthday tomorrow", "2013-12-30", null.IntFrom(11)},
		{"blank", "", null.Int{}},
		{"malformed", "29/12/2013", null.Int{}},
		{"future", "2030-01-01", null.Int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeAt(ParseDOB(tt.dob), now))
		})
	}
}

func TestClassifyProfiles(t *testing.T) {
	p := Defaults()
	tests := []struct {
		profile  string
		age      int
		code     string
		eligible bool
		accepted bool
	}{
		{ProfileRegister, 6, CodeNA, false, false},
		{ProfileRegister, 7, CodeKids, true, true},
		{ProfileRegister, 25, CodeTeen, true, true},
		{ProfileRegister, 26, CodeNA, false, false},
		{ProfilePreview, 7, CodeUnder, false, true},
		{ProfilePreview, 12, CodeKids, true, true},
		{ProfilePreview, 13, CodeTeen, true, true},
		{ProfilePreview, 20, CodeTeen, true, true},
		{ProfilePreview, 21, CodeOver, false, true},
		{ProfilePreview, 40, CodeOver, false, true},
		{ProfileIDCard, 18, CodeTeen, true, true},
		{ProfileIDCard, 19, CodeNA, false, false},
		{ProfileTeam, 12, CodeNA, false, false},
		{ProfileTeam, 15, CodeTeen, true, true},
	}
	for _, tt := range tests {
		got := p.Get(tt.profile).Classify(tt.age)
		assert.Equal(t, tt.code, got.Code, "%s age %d", tt.profile, tt.age)
		assert.Equal(t, tt.eligible, got.Eligible, "%s age %d", tt.profile, tt.age)
		assert.Equal(t, tt.accepted, got.Accepted, "%s age %d", tt.profile, tt.age)
	}
}

func TestFormSetDOBReplacesPreviousResult(t *testing.T) {
	now := time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)
	f := NewForm(Defaults().Get(ProfilePreview))
	assert.Equal(t, Placeholder, f.Result.Label)

	res := f.SetDOB("2015-01-01", now)
	assert.Equal(t, CodeKids, res.Code)
	assert.Equal(t, null.IntFrom(10), f.Age)

	res = f.SetDOB("2008-01-01", now)
	assert.Equal(t, CodeTeen, res.Code)

	res = f.SetDOB("", now)
	assert.Equal(t, Placeholder, res.Label)
	assert.Empty(t, res.Code)
	assert.False(t, f.Age.Valid)
}

func TestLoadProfiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bands.yaml")
	body := `
preview:
  kids: {label: Kids, code: DGK, min: 6, max: 11}
  teen: {label: Teen, code: DGT, min: 12, max: 19}
  below: {label: Under Age, code: UND}
  above: {label: Over Age, code: OVR}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	p, err := LoadProfiles(path)
	require.NoError(t, err)
	assert.Equal(t, CodeKids, p.Get(ProfilePreview).Classify(6).Code)
	assert.Equal(t, CodeTeen, p.Get(ProfileRegister).Classify(25).Code)

	require.NoError(t, os.WriteFile(path, []byte("preview:\n  kids: {min: 9, max: 3}\n"), 0o600))
	_, err = LoadProfiles(path)
	assert.Error(t, err)

	p, err = LoadProfiles("")
	require.NoError(t, err)
	assert.Len(t, p, 4)
}
