package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/volatiletech/null/v8"

	"github.com/churchevent-ux/registerform--event-final/internal/attendance"
	"github.com/churchevent-ux/registerform--event-final/internal/category"
	"github.com/churchevent-ux/registerform--event-final/internal/idcard"
	"github.com/churchevent-ux/registerform--event-final/internal/validate"
	"github.com/churchevent-ux/registerform--event-final/internal/volunteer"
)

const (
	qrSize        = 256
	barcodeWidth  = 360
	barcodeHeight = 96
)

func (h *Handler) register(c *gin.Context) {
	var req attendance.RegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	saved, err := h.Attendance.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"participants": saved})
}

func (h *Handler) registerVolunteer(c *gin.Context) {
	var in volunteer.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	v, err := h.Volunteers.Register(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, v)
}

type categoryResponse struct {
	DOB          null.Time `json:"dob"`
	Age          null.Int  `json:"age"`
	Category     string    `json:"category"`
	CategoryCode string    `json:"categoryCode"`
	Eligible     bool      `json:"eligible"`
	Accepted     bool      `json:"accepted"`
}

// categoryPreview classifies ?dob= the way the registration form does while it is being filled in.
func (h *Handler) categoryPreview(c *gin.Context) {
	name := c.DefaultQuery("profile", h.Profile)
	bands, ok := h.Profiles[name]
	if !ok {
		h.fail(c, validate.Fields(validate.FieldError{Field: "profile", Message: "unknown category profile"}))
		return
	}
	form := category.NewForm(bands)
	res := form.SetDOB(c.Query("dob"), h.Now())
	c.JSON(http.StatusOK, categoryResponse{
		DOB:          form.DOB,
		Age:          form.Age,
		Category:     res.Label,
		CategoryCode: res.Code,
		Eligible:     res.Eligible,
		Accepted:     res.Accepted,
	})
}

type scanRequest struct {
	StudentID string `json:"studentId"`
	Mode      string `json:"mode"`
}

func (h *Handler) scan(c *gin.Context) {
	var req scanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.Attendance.Scan(c.Request.Context(), req.StudentID, req.Mode)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) qr(c *gin.Context) {
	p, err := h.Attendance.GetParticipant(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	png, err := idcard.QR(p.Identifier, qrSize)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func (h *Handler) barcode(c *gin.Context) {
	p, err := h.Attendance.GetParticipant(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	png, err := idcard.Barcode(p.Identifier, barcodeWidth, barcodeHeight)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}
