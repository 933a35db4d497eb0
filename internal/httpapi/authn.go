package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/churchevent-ux/registerform--event-final/internal/auth"
	"github.com/churchevent-ux/registerform--event-final/internal/model"
	"github.com/churchevent-ux/registerform--event-final/internal/store"
	"github.com/churchevent-ux/registerform--event-final/internal/validate"
)

type loginRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"notblank"`
	Password     string `json:"password" validate:"required"`
}

type otpRequest struct {
	EmailOrPhone string `json:"emailOrPhone" validate:"notblank"`
	Code         string `json:"code"`
}

type sessionResponse struct {
	auth.TokenPair
	User model.DashboardUser `json:"user"`
}

func (h *Handler) issue(c *gin.Context, u model.DashboardUser) {
	pair, err := h.Signer.Issue(u.ID, u.Role, u.Permissions)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionResponse{TokenPair: pair, User: u})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.Settings.Authenticate(c.Request.Context(), req.EmailOrPhone, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.Logger.Info("operator signed in", zap.String("user_id", u.ID), zap.String("role", u.Role))
	h.issue(c, u)
}

func (h *Handler) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	pair, err := h.Signer.Refresh(req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, pair)
}

func (h *Handler) methods(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		h.fail(c, validate.Fields(validate.FieldError{Field: "email", Message: "email is a required field"}))
		return
	}
	methods, err := h.Settings.SignInMethods(c.Request.Context(), email)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"methods": methods})
}

// sendOTP answers 202 whether or not the login exists.
func (h *Handler) sendOTP(c *gin.Context) {
	if h.OTP == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "one-time codes are disabled"})
		return
	}
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := validate.Struct(req); err != nil {
		h.fail(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.Settings.Lookup(ctx, req.EmailOrPhone); err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
		return
	}
	if err := h.OTP.Send(ctx, req.EmailOrPhone); err != nil {
		h.fail(c, errors.Join(errUpstream, err))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent"})
}

func (h *Handler) verifyOTP(c *gin.Context) {
	if h.OTP == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "one-time codes are disabled"})
		return
	}
	var req otpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	ctx := c.Request.Context()
	if err := h.OTP.Verify(ctx, req.EmailOrPhone, req.Code); err != nil {
		h.fail(c, err)
		return
	}
	u, err := h.Settings.Lookup(ctx, req.EmailOrPhone)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			err = auth.ErrUnauthorized
		}
		h.fail(c, err)
		return
	}
	h.issue(c, u)
}
