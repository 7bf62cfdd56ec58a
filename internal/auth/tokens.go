// tokens.go -- JWT session token pair issuing, verification, and cookies.
//
// Two HMAC-SHA256 tokens per session: a short-lived access token and a
// longer-lived refresh token, signed with distinct secrets so one can never
// be presented as the other. Both ride in HttpOnly cookies; client script
// never sees them.
package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Cookie names shared with the frontend.
const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
)

// Claims is the payload carried by both token types.
// The jti (RegisteredClaims.ID) is set on refresh tokens only; it keys the
// single-use denylist that enforces rotation.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenPair holds a freshly issued access + refresh token.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	RefreshTokenID   string // jti of the refresh token
	RefreshExpiresAt time.Time
}

// TokenService signs and verifies session token pairs and manages their
// cookies. Construct once from config and share; all methods are safe for
// concurrent use.
type TokenService struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	CookieDomain  string // empty means host-only cookies
	Secure        bool   // set Secure flag on cookies (production)
}

// IssuePair creates a signed access + refresh token pair for the identity.
func (ts *TokenService) IssuePair(userID uuid.UUID, email string) (*TokenPair, error) {
	now := time.Now()

	access := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.AccessTTL)),
		},
	})
	accessStr, err := access.SignedString(ts.AccessSecret)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	jti, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating refresh token id: %w", err)
	}
	refreshExp := now.Add(ts.RefreshTTL)
	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID.String(),
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(refreshExp),
		},
	})
	refreshStr, err := refresh.SignedString(ts.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("signing refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:      accessStr,
		RefreshToken:     refreshStr,
		RefreshTokenID:   jti.String(),
		RefreshExpiresAt: refreshExp,
	}, nil
}

// VerifyAccess validates an access token's signature and expiry.
// Any error means unauthenticated; callers don't need to distinguish causes.
func (ts *TokenService) VerifyAccess(token string) (*Claims, error) {
	return ts.verify(token, ts.AccessSecret)
}

// VerifyRefresh validates a refresh token's signature and expiry.
// A token signed with the access secret fails here, and vice versa.
func (ts *TokenService) VerifyRefresh(token string) (*Claims, error) {
	return ts.verify(token, ts.RefreshSecret)
}

func (ts *TokenService) verify(token string, secret []byte) (*Claims, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, errors.New("token missing userId claim")
	}
	return &claims, nil
}

// SetAuthCookies writes both token cookies on the response.
// HttpOnly + SameSite=Lax always; Secure in production; Max-Age matches each
// token's lifetime so the browser drops them when they'd fail verification anyway.
func (ts *TokenService) SetAuthCookies(w http.ResponseWriter, pair *TokenPair) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    pair.AccessToken,
		Path:     "/",
		Domain:   ts.CookieDomain,
		MaxAge:   int(ts.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   ts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    pair.RefreshToken,
		Path:     "/",
		Domain:   ts.CookieDomain,
		MaxAge:   int(ts.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   ts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookies expires both token cookies. Attributes must match the
// set path or browsers treat them as different cookies.
func (ts *TokenService) ClearAuthCookies(w http.ResponseWriter) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   ts.CookieDomain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   ts.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
