package httpapi

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/volatiletech/null/v8"
	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/export"
	"github.com/churchevent-ux/registerform--event-final/internal/idcard"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/presence"
	"github.com/churchevent-ux/registerform--event-final/internal/settings"
	"github.com/churchevent-ux/registerform--event-final/internal/team"
	"github.com/churchevent-ux/registerform--event-final/internal/timeline"
	"github.com/churchevent-ux/registerform--event-final/internal/validate"
)

func (h *Handler) dashboard(c *gin.Context) {
	if h.Monitor != nil {
		c.JSON(http.StatusOK, h.Monitor.Dashboard())
		return
	}
	ps, recs, err := h.snapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, presence.Aggregate(ps, recs, h.Now(), h.Location))
}

func (h *Handler) listParticipants(c *gin.Context) {
	ps, err := h.Attendance.ListParticipants(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := presence.FilterParticipants(ps, c.DefaultQuery("session", presence.FilterAll), c.Query("q"))
	if out == nil {
		out = []model.Participant{}
	}
	c.JSON(http.StatusOK, gin.H{"participants": out})
}

func (h *Handler) getParticipant(c *gin.Context) {
	p, err := h.Attendance.GetParticipant(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) deleteParticipant(c *gin.Context) {
	if err := h.Attendance.DeleteParticipant(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) assignTeam(c *gin.Context) {
	var req struct {
		TeamID null.String `json:"teamId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Attendance.AssignTeam(c.Request.Context(), c.Param("id"), req.TeamID); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// generateCard renders the badge, uploads it when an uploader is configured and marks the
// participant's card as generated. The PNG is returned; the hosted URL, if any, is in X-Card-URL.
func (h *Handler) generateCard(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.Attendance.GetParticipant(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	png, err := idcard.Card(p, h.CardBands)
	if err != nil {
		h.fail(c, err)
		return
	}
	if h.Uploader != nil {
		res, err := h.Uploader.Upload(ctx, png, p.Identifier)
		if err != nil {
			h.fail(c, errors.Join(errUpstream, err))
			return
		}
		c.Header("X-Card-URL", res.SecureURL)
	}
	if _, err := h.Attendance.MarkCardGenerated(ctx, p.ID); err != nil {
		h.fail(c, err)
		return
	}
	h.Logger.Info("id card generated", zap.String("student_id", p.Identifier))
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) listVolunteers(c *gin.Context) {
	vs, err := h.Volunteers.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if vs == nil {
		vs = []model.Volunteer{}
	}
	c.JSON(http.StatusOK, gin.H{"volunteers": vs})
}

func (h *Handler) volunteerCard(c *gin.Context) {
	v, err := h.Volunteers.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	png, err := idcard.VolunteerCard(v)
	if err != nil {
		h.fail(c, err)
		return
	}
	name := strings.Join(strings.Fields(v.FullName), "_") + "_ID.png"
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) deleteVolunteer(c *gin.Context) {
	if err := h.Volunteers.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) attendanceTable(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	ps, recs, err := h.snapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"date":     day,
		"students": presence.StudentSummaries(ps, recs, day, h.Location),
	})
}

func (h *Handler) breaks(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	ps, err := h.Attendance.ListParticipants(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	rows := presence.FilterBreaks(presence.BreakBoard(ps, day, h.Now(), h.Location, h.BreakLimit), c.Query("q"))
	if rows == nil {
		rows = []presence.BreakRow{}
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "limitMinutes": int(h.BreakLimit.Minutes()), "breaks": rows})
}

func (h *Handler) timeline(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	typ := c.DefaultQuery("type", timeline.TypeAll)
	if !timeline.ValidType(typ) {
		h.fail(c, validate.Fields(validate.FieldError{Field: "type", Message: "unknown event type"}))
		return
	}
	ps, err := h.Attendance.ListParticipants(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	events := timeline.Filter(timeline.Build(ps, day, h.Location), c.Query("q"), typ)
	if events == nil {
		events = []timeline.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"date": day, "events": events})
}

func (h *Handler) listTeams(c *gin.Context) {
	ctx := c.Request.Context()
	ps, err := h.Attendance.ListParticipants(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	views, err := h.Teams.Overview(ctx, ps, c.DefaultQuery("session", presence.FilterAll), c.Query("q"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if views == nil {
		views = []team.View{}
	}
	c.JSON(http.StatusOK, gin.H{"teams": views})
}

func (h *Handler) createTeam(c *gin.Context) {
	var in team.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	t, err := h.Teams.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, t)
}

func (h *Handler) deleteTeam(c *gin.Context) {
	if err := h.Teams.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listUsers(c *gin.Context) {
	users, err := h.Settings.List(c.Request.Context(), c.Query("role"))
	if err != nil {
		h.fail(c, err)
		return
	}
	if users == nil {
		users = []model.DashboardUser{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) createUser(c *gin.Context) {
	var in settings.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.Settings.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) deleteUser(c *gin.Context) {
	if err := h.Settings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) exportAttendance(c *gin.Context) {
	day, ok := h.day(c)
	if !ok {
		return
	}
	ps, recs, err := h.snapshot(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.AttendanceWorkbook(&buf, day, presence.StudentSummaries(ps, recs, day, h.Location)); err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, "attendance-"+day+".xlsx", buf.Bytes())
}

func (h *Handler) exportParticipants(c *gin.Context) {
	ps, err := h.Attendance.ListParticipants(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.ParticipantsWorkbook(&buf, ps, h.Location); err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, "participants.xlsx", buf.Bytes())
}

func (h *Handler) exportVolunteers(c *gin.Context) {
	vs, err := h.Volunteers.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.VolunteersWorkbook(&buf, vs, h.Location); err != nil {
		h.fail(c, err)
		return
	}
	attachment(c, "volunteers.xlsx", buf.Bytes())
}

func attachment(c *gin.Context, name string, data []byte) {
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, export.ContentType, data)
}
