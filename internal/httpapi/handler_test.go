package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/churchevent-ux/registerform--event-final/internal/attendance"
	"github.com/churchevent-ux/registerform--event-final/internal/auth"
	"github.com/churchevent-ux/registerform--event-final/internal/category"
	"github.com/churchevent-ux/registerform--event-final/internal/cloudinary"
	"github.com/churchevent-ux/registerform--event-final/internal/export"
	"github.com/churchevent-ux/registerform--event-final/internal/idcard"
	"github.com/churchevent-ux/registerform--event-final/internal/identifier"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/settings"
	"github.com/churchevent-ux/registerform--event-final/internal/team"
	"github.com/churchevent-ux/registerform--event-final/internal/testutil/memstore"
	"github.com/churchevent-ux/registerform--event-final/internal/volunteer"
)

func init() { gin.SetMode(gin.TestMode) }

const (
	adminEmail    = "admin@retreat.example"
	adminPassword = "correct-horse"
)

type fakeUploader struct {
	ids []string
	err error
}

func (f *fakeUploader) Upload(_ context.Context, _ []byte, publicID string) (*cloudinary.UploadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.ids = append(f.ids, publicID)
	return &cloudinary.UploadResult{PublicID: publicID, SecureURL: "https://cdn.example/" + publicID + ".png"}, nil
}

func teamBands() category.Bands { return category.Defaults().Get(category.ProfileTeam) }

type env struct {
	router   *gin.Engine
	handler  *Handler
	store    *memstore.Store
	codes    map[string]string
	uploader *fakeUploader
}

func newEnv(t *testing.T) *env {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 12, 29, 9, 0, 0, 0, time.UTC) }
	st := memstore.New(now)
	users := settings.NewService(st.Users(), nil)
	require.NoError(t, users.EnsureSuperAdmin(context.Background(), adminEmail, adminPassword))

	e := &env{store: st, codes: map[string]string{}, uploader: &fakeUploader{}}
	otp := auth.NewOTP(auth.NewMemoryCodeStore(now), func(_ context.Context, to, code string) error {
		e.codes[to] = code
		return nil
	}, time.Minute)

	e.handler = New(Deps{
		Attendance: attendance.NewService(st, identifier.NewSequence(st, st.LatestIdentifier), attendance.Options{Now: now}),
		Volunteers: volunteer.NewService(st.Volunteers(), st, nil, nil),
		Teams:      team.NewService(st.Teams(), teamBands(), nil, nil),
		Settings:   users,
		Signer:     auth.NewSigner("retreat-test", "test-key", time.Minute, time.Hour),
		OTP:        otp,
		Uploader:   e.uploader,
		Health:     map[string]HealthCheck{"db": func(context.Context) bool { return true }},
		Now:        now,
	})
	e.router = gin.New()
	e.handler.Routes(e.router)
	return e
}

func (e *env) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) login(t *testing.T, email, password string) string {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"emailOrPhone": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp sessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.AccessToken
}

func registration(name, dob string) gin.H {
	return gin.H{"participant": gin.H{
		"participantName":              name,
		"dob":                          dob,
		"primaryContactNumber":         "0501234567",
		"primaryContactRelation":       "Mother",
		"secondaryContactNumber":       "0507654321",
		"secondaryContactRelationship": "Father",
		"email":                        "family@example.com",
		"parentAgreement":              true,
		"medicalConditions":            []string{"None"},
	}}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *env) register(t *testing.T, name, dob string) model.Participant {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/registrations", "", registration(name, dob))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[struct {
		Participants []model.Participant `json:"participants"`
	}](t, w)
	require.Len(t, resp.Participants, 1)
	return resp.Participants[0]
}

func TestRegisterAndScan(t *testing.T) {
	e := newEnv(t)
	p := e.register(t, "Anna", "2011-06-01")
	assert.Equal(t, "DGT-001", p.Identifier)

	w := e.do(t, http.MethodPost, "/v1/scans", "", gin.H{"studentId": " dgt-001 "})
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[attendance.ScanResult](t, w)
	assert.True(t, res.Found)
	assert.Equal(t, attendance.ModeSignIn, res.Mode)
	assert.False(t, res.Duplicate)

	w = e.do(t, http.MethodPost, "/v1/scans", "", gin.H{"studentId": "DGT-001"})
	assert.True(t, decode[attendance.ScanResult](t, w).Duplicate)

	w = e.do(t, http.MethodPost, "/v1/scans", "", gin.H{"studentId": "dgk-999"})
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[attendance.ScanResult](t, w)
	assert.False(t, res.Found)
	assert.Equal(t, attendance.NotFoundName, res.Name)
	assert.Equal(t, "DGK-999", res.Identifier)
}

func TestCategoryPreview(t *testing.T) {
	e := newEnv(t)
	type preview struct {
		Age          *int   `json:"age"`
		Category     string `json:"category"`
		CategoryCode string `json:"categoryCode"`
		Eligible     bool   `json:"eligible"`
		Accepted     bool   `json:"accepted"`
	}
	tests := []struct {
		name     string
		query    string
		age      int
		category string
		code     string
		eligible bool
		accepted bool
	}{
		{"kid", "dob=2015-01-01", 10, "Kids", category.CodeKids, true, true},
		{"teen", "dob=2011-06-01", 14, "Teen", category.CodeTeen, true, true},
		{"over age is accepted but not eligible", "dob=1985-05-05", 40, "Over Age", category.CodeOver, false, true},
		{"idcard profile", "dob=1985-05-05&profile=idcard", 40, "Not Eligible", category.CodeNA, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(t, http.MethodGet, "/v1/category?"+tt.query, "", nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			got := decode[preview](t, w)
			require.NotNil(t, got.Age)
			assert.Equal(t, tt.age, *got.Age)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.code, got.CategoryCode)
			assert.Equal(t, tt.eligible, got.Eligible)
			assert.Equal(t, tt.accepted, got.Accepted)
		})
	}

	w := e.do(t, http.MethodGet, "/v1/category", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[preview](t, w)
	assert.Nil(t, got.Age)
	assert.Equal(t, category.Placeholder, got.Category)
	assert.Empty(t, got.CategoryCode)

	assert.Equal(t, http.StatusUnprocessableEntity, e.do(t, http.MethodGet, "/v1/category?dob=2015-01-01&profile=adults", "", nil).Code)
}

func TestRegisterValidationErrors(t *testing.T) {
	e := newEnv(t)
	body := registration("", "2011-06-01")
	w := e.do(t, http.MethodPost, "/v1/registrations", "", body)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decode[struct {
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}](t, w)
	require.NotEmpty(t, resp.Fields)
	assert.Equal(t, "participant.participantName", resp.Fields[0].Field)

	w = e.do(t, http.MethodPost, "/v1/registrations", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/v1/dashboard", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/v1/dashboard", "garbage", nil).Code)

	w := e.do(t, http.MethodPost, "/v1/auth/login", "", gin.H{"emailOrPhone": adminEmail, "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDashboardAndTables(t *testing.T) {
	e := newEnv(t)
	e.register(t, "Anna", "2011-06-01")
	e.register(t, "Ben", "2011-03-01")
	e.do(t, http.MethodPost, "/v1/scans", "", gin.H{"studentId": "DGT-001"})
	token := e.login(t, adminEmail, adminPassword)

	w := e.do(t, http.MethodGet, "/v1/dashboard", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	dash := decode[struct {
		TotalRegistered int      `json:"totalRegistered"`
		TodayPresent    int      `json:"todayPresent"`
		TodayAbsent     int      `json:"todayAbsent"`
		PresentNames    []string `json:"presentNames"`
	}](t, w)
	assert.Equal(t, 2, dash.TotalRegistered)
	assert.Equal(t, 1, dash.TodayPresent)
	assert.Equal(t, 1, dash.TodayAbsent)
	assert.Equal(t, []string{"Anna"}, dash.PresentNames)

	w = e.do(t, http.MethodGet, "/v1/participants?session=online", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Participants []model.Participant `json:"participants"`
	}](t, w)
	require.Len(t, list.Participants, 1)
	assert.Equal(t, "Anna", list.Participants[0].Name)

	w = e.do(t, http.MethodGet, "/v1/attendance?date=2025-12-29", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"Present"`)

	w = e.do(t, http.MethodGet, "/v1/timeline?type=Checked%20In", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tl := decode[struct {
		Events []struct {
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"events"`
	}](t, w)
	require.Len(t, tl.Events, 1)
	assert.Equal(t, "Anna", tl.Events[0].Name)

	assert.Equal(t, http.StatusUnprocessableEntity, e.do(t, http.MethodGet, "/v1/timeline?type=Lunch", token, nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, e.do(t, http.MethodGet, "/v1/breaks?date=29-12-2025", token, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/v1/breaks", token, nil).Code)

	for _, id := range []string{"DGT-001", "DGT-002"} {
		w = e.do(t, http.MethodPost, "/v1/scans", "", gin.H{"studentId": id, "mode": attendance.ModeBreakOut})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	type breakList struct {
		Breaks []struct {
			StudentID string `json:"studentId"`
			Name      string `json:"name"`
		} `json:"breaks"`
	}
	w = e.do(t, http.MethodGet, "/v1/breaks", token, nil)
	require.Len(t, decode[breakList](t, w).Breaks, 2)
	for _, q := range []string{"ben", "dgt-002"} {
		w = e.do(t, http.MethodGet, "/v1/breaks?q="+q, token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := decode[breakList](t, w).Breaks
		require.Len(t, got, 1, q)
		assert.Equal(t, "Ben", got[0].Name)
	}
	w = e.do(t, http.MethodGet, "/v1/breaks?q=nobody", token, nil)
	assert.Empty(t, decode[breakList](t, w).Breaks)

	w = e.do(t, http.MethodGet, "/v1/exports/attendance.xlsx", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attendance-2025-12-29.xlsx")
}

func TestPermissions(t *testing.T) {
	e := newEnv(t)
	admin := e.login(t, adminEmail, adminPassword)
	w := e.do(t, http.MethodPost, "/v1/settings/users", admin, gin.H{
		"emailOrPhone": "staff@retreat.example",
		"password":     "staff-password",
		"role":         settings.RoleStaff,
		"permissions":  []string{settings.PermAttendance},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "passwordHash")

	w = e.do(t, http.MethodPost, "/v1/settings/users", admin, gin.H{
		"emailOrPhone": "STAFF@retreat.example", "password": "staff-password", "role": settings.RoleStaff,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	staff := e.login(t, "staff@retreat.example", "staff-password")
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/v1/attendance", staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/v1/teams", staff, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/v1/settings/users", staff, nil).Code)

	w = e.do(t, http.MethodGet, "/v1/auth/methods?email=staff@retreat.example", "", nil)
	assert.JSONEq(t, `{"methods":["password"]}`, w.Body.String())
}

func TestTeams(t *testing.T) {
	e := newEnv(t)
	token := e.login(t, adminEmail, adminPassword)
	p := e.register(t, "Anna", "2011-06-01")

	w := e.do(t, http.MethodPost, "/v1/teams", token, gin.H{"name": "Lions"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[model.Team](t, w)
	assert.Equal(t, http.StatusConflict, e.do(t, http.MethodPost, "/v1/teams", token, gin.H{"name": "Lions"}).Code)

	w = e.do(t, http.MethodPut, "/v1/participants/"+p.ID+"/team", token, gin.H{"teamId": created.ID})
	require.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(t, http.MethodGet, "/v1/teams?q=anna", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	views := decode[struct {
		Teams []team.View `json:"teams"`
	}](t, w)
	require.Len(t, views.Teams, 1)
	assert.Equal(t, "Lions", views.Teams[0].Name)
	require.Len(t, views.Teams[0].Members, 1)

	assert.Equal(t, http.StatusNoContent, e.do(t, http.MethodDelete, "/v1/teams/"+created.ID, token, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodDelete, "/v1/teams/"+created.ID, token, nil).Code)
}

func TestCardGeneration(t *testing.T) {
	e := newEnv(t)
	token := e.login(t, adminEmail, adminPassword)
	p := e.register(t, "Anna", "2011-06-01")

	w := e.do(t, http.MethodPost, "/v1/participants/"+p.ID+"/card", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "https://cdn.example/DGT-001.png", w.Header().Get("X-Card-URL"))
	assert.Equal(t, []string{"DGT-001"}, e.uploader.ids)

	w = e.do(t, http.MethodGet, "/v1/participants/"+p.ID, token, nil)
	assert.True(t, decode[model.Participant](t, w).IDGenerated)

	w = e.do(t, http.MethodGet, "/v1/participants/"+p.ID+"/card/qr.png", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/v1/participants/missing/card/barcode.png", "", nil).Code)

	e.uploader.err = errors.New("cdn down")
	assert.Equal(t, http.StatusBadGateway, e.do(t, http.MethodPost, "/v1/participants/"+p.ID+"/card", token, nil).Code)
}

func TestOTPSignIn(t *testing.T) {
	e := newEnv(t)
	w := e.do(t, http.MethodPost, "/v1/auth/otp", "", gin.H{"emailOrPhone": adminEmail})
	require.Equal(t, http.StatusAccepted, w.Code)
	code := e.codes[adminEmail]
	require.Len(t, code, 6)

	w = e.do(t, http.MethodPost, "/v1/auth/otp", "", gin.H{"emailOrPhone": "nobody@example.com"})
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Empty(t, e.codes["nobody@example.com"])

	w = e.do(t, http.MethodPost, "/v1/auth/otp/verify", "", gin.H{"emailOrPhone": adminEmail, "code": code})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[sessionResponse](t, w)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, settings.RoleSuperAdmin, resp.User.Role)

	w = e.do(t, http.MethodPost, "/v1/auth/otp/verify", "", gin.H{"emailOrPhone": adminEmail, "code": code})
	assert.Equal(t, http.StatusUnauthorized, w.Code, "codes are single use")

	w = e.do(t, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": resp.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestVolunteers(t *testing.T) {
	e := newEnv(t)
	token := e.login(t, adminEmail, adminPassword)
	w := e.do(t, http.MethodPost, "/v1/volunteers", "", gin.H{
		"fullName":           "Carl",
		"dob":                "1990-02-02",
		"email":              "carl@example.com",
		"phone":              "0500000000",
		"preferredRole":      "Kitchen",
		"tshirtSize":         "L",
		"emergencyName":      "Dora",
		"emergencyPhone":     "0501111111",
		"availableDates":     []string{"2025-12-29"},
		"volunteerAgreement": true,
		"signature":          "Carl",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Volunteer 1", decode[model.Volunteer](t, w).VolunteerID)

	created := decode[model.Volunteer](t, w)

	w = e.do(t, http.MethodGet, "/v1/volunteers", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Volunteer 1")

	w = e.do(t, http.MethodGet, "/v1/volunteers/"+created.ID+"/card.png", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "Carl_ID.png")
	img, err := png.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, idcard.CardWidth, img.Bounds().Dx())

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/v1/volunteers/"+created.ID+"/card.png", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/v1/volunteers/missing/card.png", token, nil).Code)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/healthz", "", nil).Code)

	e.handler.Health["redis"] = func(context.Context) bool { return false }
	w := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":false`)
}
