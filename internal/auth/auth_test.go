package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	s := NewSigner("retreat", "test-key", time.Minute, time.Hour)
	pair, err := s.Issue("user-1", "Operator", []string{"attendance"})
	require.NoError(t, err)

	claims, err := s.Parse(pair.AccessToken, UseAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "Operator", claims.Role)
	assert.Equal(t, []string{"attendance"}, claims.Permissions)

	_, err = s.Parse(pair.RefreshToken, UseAccess)
	assert.ErrorIs(t, err, ErrUnauthorized)

	other := NewSigner("retreat", "other-key", time.Minute, time.Hour)
	_, err = other.Parse(pair.AccessToken, UseAccess)
	assert.ErrorIs(t, err, ErrUnauthorized)

	wrongIssuer := NewSigner("elsewhere", "test-key", time.Minute, time.Hour)
	_, err = wrongIssuer.Parse(pair.AccessToken, UseAccess)
	assert.ErrorIs(t, err, ErrUnauthorized)

	refreshed, err := s.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	_, err = s.Parse(refreshed.AccessToken, UseAccess)
	assert.NoError(t, err)
}

func TestExpiredToken(t *testing.T) {
	s := NewSigner("retreat", "test-key", -time.Minute, time.Hour)
	pair, err := s.Issue("user-1", "Staff", nil)
	require.NoError(t, err)
	_, err = s.Parse(pair.AccessToken, UseAccess)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := NewSigner("retreat", "test-key", time.Minute, time.Hour)
	allow := func(role string, perms []string, module string) bool {
		return role == "superadmin" || (len(perms) > 0 && perms[0] == module)
	}
	r := gin.New()
	r.GET("/breaks", AdminAuth(s), RequirePermission(allow, "break"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func(token string) int {
		req := httptest.NewRequest(http.MethodGet, "/breaks", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("garbage"))

	staff, _ := s.Issue("u1", "Staff", []string{"teams"})
	assert.Equal(t, http.StatusForbidden, do(staff.AccessToken))

	ok, _ := s.Issue("u2", "Staff", []string{"break"})
	assert.Equal(t, http.StatusOK, do(ok.AccessToken))

	admin, _ := s.Issue("u3", "superadmin", nil)
	assert.Equal(t, http.StatusOK, do(admin.AccessToken))
}

func TestOTP(t *testing.T) {
	now := time.Date(2025, 12, 29, 9, 0, 0, 0, time.UTC)
	codes := NewMemoryCodeStore(func() time.Time { return now })
	var sent string
	otp := NewOTP(codes, func(_ context.Context, to, code string) error {
		sent = code
		return nil
	}, time.Minute)
	ctx := context.Background()

	require.NoError(t, otp.Send(ctx, "+971500000000"))
	assert.Len(t, sent, 6)
	assert.ErrorIs(t, otp.Verify(ctx, "+971500000000", "not-it"), ErrInvalidCode)

	require.NoError(t, otp.Send(ctx, "+971500000000"))
	require.NoError(t, otp.Verify(ctx, "+971500000000", sent))
	assert.ErrorIs(t, otp.Verify(ctx, "+971500000000", sent), ErrInvalidCode, "codes are single use")

	require.NoError(t, otp.Send(ctx, "+971500000000"))
	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, otp.Verify(ctx, "+971500000000", sent), ErrInvalidCode)
}
