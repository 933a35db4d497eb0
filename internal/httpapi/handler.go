// Package httpapi exposes registration, scanning and the admin console over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/attendance"
	"github.com/churchevent-ux/registerform--event-final/internal/auth"
	"github.com/churchevent-ux/registerform--event-final/internal/category"
	"github.com/churchevent-ux/registerform--event-final/internal/cloudinary"
	"github.com/churchevent-ux/registerform--event-final/internal/metrics"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/observability"
	"github.com/churchevent-ux/registerform--event-final/internal/presence"
	"github.com/churchevent-ux/registerform--event-final/internal/settings"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
	"github.com/churchevent-ux/registerform--event-final/internal/team"
	"github.com/churchevent-ux/registerform--event-final/internal/validate"
	"github.com/churchevent-ux/registerform--event-final/internal/volunteer"
)

// errUpstream marks failures of an external service such as the image host.
var errUpstream = errors.New("upstream service failed")

// Uploader stores rendered ID cards.
type Uploader interface {
	Upload(ctx context.Context, data []byte, publicID string) (*cloudinary.UploadResult, error)
}

// DashboardSource serves the live dashboard kept by a presence.Monitor.
type DashboardSource interface {
	Dashboard() presence.Dashboard
}

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps wires a Handler. Monitor, Uploader and OTP are optional.
type Deps struct {
	Attendance *attendance.Service
	Volunteers *volunteer.Service
	Teams      *team.Service
	Settings   *settings.Service
	Signer     *auth.Signer
	OTP        *auth.OTP
	Monitor    DashboardSource
	Uploader   Uploader
	CardBands  category.Bands
	// Profiles and Profile drive the registration category preview.
	Profiles   category.Profiles
	Profile    string
	Location   *time.Location
	BreakLimit time.Duration
	Health     map[string]HealthCheck
	Logger     *zap.Logger
	Now        func() time.Time
}

// Handler serves the HTTP API.
type Handler struct {
	Deps
}

// New fills defaults and returns a handler.
func New(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.BreakLimit <= 0 {
		d.BreakLimit = presence.DefaultBreakLimit
	}
	if d.Profiles == nil {
		d.Profiles = category.Defaults()
	}
	if d.Profile == "" {
		d.Profile = category.ProfilePreview
	}
	if d.CardBands == (category.Bands{}) {
		d.CardBands = d.Profiles.Get(category.ProfileIDCard)
	}
	return &Handler{Deps: d}
}

// Routes mounts every endpoint on r.
func (h *Handler) Routes(r gin.IRouter) {
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", h.healthz)

	v1 := r.Group("/v1")
	v1.POST("/registrations", h.register)
	v1.GET("/category", h.categoryPreview)
	v1.POST("/volunteers", h.registerVolunteer)
	v1.POST("/scans", h.scan)
	v1.GET("/participants/:id/card/qr.png", h.qr)
	v1.GET("/participants/:id/card/barcode.png", h.barcode)

	a := v1.Group("/auth")
	a.POST("/login", h.login)
	a.POST("/refresh", h.refresh)
	a.GET("/methods", h.methods)
	a.POST("/otp", h.sendOTP)
	a.POST("/otp/verify", h.verifyOTP)

	admin := v1.Group("", auth.AdminAuth(h.Signer))
	perm := func(module string) gin.HandlerFunc { return auth.RequirePermission(settings.Allowed, module) }

	admin.GET("/dashboard", perm(settings.PermDashboard), h.dashboard)

	users := admin.Group("", perm(settings.PermUsers))
	users.GET("/participants", h.listParticipants)
	users.GET("/participants/:id", h.getParticipant)
	users.DELETE("/participants/:id", h.deleteParticipant)
	users.POST("/participants/:id/card", h.generateCard)
	users.GET("/volunteers", h.listVolunteers)
	users.GET("/volunteers/:id/card.png", h.volunteerCard)
	users.DELETE("/volunteers/:id", h.deleteVolunteer)
	users.GET("/exports/participants.xlsx", h.exportParticipants)
	users.GET("/exports/volunteers.xlsx", h.exportVolunteers)

	att := admin.Group("", perm(settings.PermAttendance))
	att.GET("/attendance", h.attendanceTable)
	att.GET("/exports/attendance.xlsx", h.exportAttendance)

	admin.GET("/breaks", perm(settings.PermBreak), h.breaks)
	admin.GET("/timeline", perm(settings.PermHistory), h.timeline)

	teams := admin.Group("", perm(settings.PermTeams))
	teams.GET("/teams", h.listTeams)
	teams.POST("/teams", h.createTeam)
	teams.DELETE("/teams/:id", h.deleteTeam)
	teams.PUT("/participants/:id/team", h.assignTeam)

	set := admin.Group("/settings", perm(settings.PermSettings))
	set.GET("/users", h.listUsers)
	set.POST("/users", h.createUser)
	set.DELETE("/users/:id", h.deleteUser)
}

func (h *Handler) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range h.Health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// fail maps domain errors onto status codes. Anything unrecognised is a 500 and is reported.
func (h *Handler) fail(c *gin.Context, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validate.ErrValidation.Error(), "fields": verr.Fields})
	case errors.Is(err, attendance.ErrNotEligible):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, settings.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidCode):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, errUpstream):
		h.report(c, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		h.report(c, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func (h *Handler) report(c *gin.Context, err error) {
	metrics.HandlerErrors.Inc()
	observability.CaptureRequestErr(err, c.Request.Method, c.FullPath())
	h.Logger.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
	_ = c.Error(err)
}

// badRequest answers malformed bodies the binder could not decode.
func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
}

// day reads the ?date= query, defaulting to today in the event time zone.
func (h *Handler) day(c *gin.Context) (string, bool) {
	d := c.Query("date")
	if d == "" {
		return model.Day(h.Now(), h.Location), true
	}
	if _, err := time.ParseInLocation(model.DayLayout, d, h.Location); err != nil {
		h.fail(c, validate.Fields(validate.FieldError{Field: "date", Message: "date must be YYYY-MM-DD"}))
		return "", false
	}
	return d, true
}

// snapshot loads both collections for the derived admin views.
func (h *Handler) snapshot(ctx context.Context) ([]model.Participant, []model.AttendanceRecord, error) {
	ps, err := h.Attendance.ListParticipants(ctx)
	if err != nil {
		return nil, nil, err
	}
	recs, err := h.Attendance.ListAttendance(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ps, recs, nil
}
