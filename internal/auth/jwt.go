package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token uses.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// ErrUnauthorized is returned for a missing, invalid or misused token.
var ErrUnauthorized = errors.New("unauthorized")

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	AccessExp    time.Time `json:"access_expires_at"`
	RefreshExp   time.Time `json:"refresh_expires_at"`
}

// Claims represents JWT payload.
type Claims struct {
	Role        string   `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	Use         string   `json:"use"`
	jwt.RegisteredClaims
}

// Signer issues and parses operator tokens.
type Signer struct {
	Issuer     string
	Key        []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// NewSigner creates a signer.
func NewSigner(issuer, key string, accessTTL, refreshTTL time.Duration) *Signer {
	return &Signer{Issuer: issuer, Key: []byte(key), AccessTTL: accessTTL, RefreshTTL: refreshTTL}
}

// Issue issues signed access and refresh tokens.
func (s *Signer) Issue(subject, role string, permissions []string) (TokenPair, error) {
	now := time.Now()
	accessExp := now.Add(s.AccessTTL)
	refreshExp := now.Add(s.RefreshTTL)

	access, err := s.sign(subject, role, permissions, UseAccess, now, accessExp)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(subject, role, permissions, UseRefresh, now, refreshExp)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (s *Signer) sign(subject, role string, permissions []string, use string, now, exp time.Time) (string, error) {
	claims := Claims{
		Role:        role,
		Permissions: permissions,
		Use:         use,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Key)
}

// Parse validates a token of the given use and returns its claims.
func (s *Signer) Parse(tokenStr, use string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return s.Key, nil
	}, jwt.WithIssuer(s.Issuer))
	if err != nil {
		return Claims{}, errors.Join(ErrUnauthorized, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, ErrUnauthorized
	}
	if claims.Use != use {
		return Claims{}, errors.Join(ErrUnauthorized, errors.New("wrong token use"))
	}
	return *claims, nil
}

// Refresh exchanges a refresh token for a new pair.
func (s *Signer) Refresh(refreshToken string) (TokenPair, error) {
	claims, err := s.Parse(refreshToken, UseRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	return s.Issue(claims.Subject, claims.Role, claims.Permissions)
}
