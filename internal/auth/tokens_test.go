package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
)

func newTestTokenService() *TokenService {
	return &TokenService{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
}

func TestTokenService(t *testing.T) {
	ts := newTestTokenService()
	userID, _ := uuid.NewV7()

	t.Run("issued access token verifies", func(t *testing.T) {
		pair, err := ts.IssuePair(userID, "a@b.com")
		if err != nil {
			t.Fatalf("IssuePair: %v", err)
		}

		claims, err := ts.VerifyAccess(pair.AccessToken)
		if err != nil {
			t.Fatalf("VerifyAccess: %v", err)
		}
		if claims.UserID != userID.String() {
			t.Errorf("expected userId %s, got %s", userID, claims.UserID)
		}
		if claims.Email != "a@b.com" {
			t.Errorf("expected email a@b.com, got %s", claims.Email)
		}
	})

	t.Run("issued refresh token verifies with jti", func(t *testing.T) {
		pair, err := ts.IssuePair(userID, "a@b.com")
		if err != nil {
			t.Fatalf("IssuePair: %v", err)
		}

		claims, err := ts.VerifyRefresh(pair.RefreshToken)
		if err != nil {
			t.Fatalf("VerifyRefresh: %v", err)
		}
		if claims.ID == "" {
			t.Error("refresh token should carry a jti")
		}
		if claims.ID != pair.RefreshTokenID {
			t.Errorf("jti mismatch: pair says %s, claims say %s", pair.RefreshTokenID, claims.ID)
		}
	})

	t.Run("access token rejected as refresh and vice versa", func(t *testing.T) {
		pair, _ := ts.IssuePair(userID, "a@b.com")

		if _, err := ts.VerifyRefresh(pair.AccessToken); err == nil {
			t.Error("access token must not verify as refresh")
		}
		if _, err := ts.VerifyAccess(pair.RefreshToken); err == nil {
			t.Error("refresh token must not verify as access")
		}
	})

	t.Run("expired access token is rejected", func(t *testing.T) {
		short := newTestTokenService()
		short.AccessTTL = -time.Minute

		pair, err := short.IssuePair(userID, "a@b.com")
		if err != nil {
			t.Fatalf("IssuePair: %v", err)
		}
		if _, err := short.VerifyAccess(pair.AccessToken); err == nil {
			t.Error("expired token should not verify")
		}
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		if _, err := ts.VerifyAccess("not.a.jwt"); err == nil {
			t.Error("garbage should not verify")
		}
	})

	t.Run("token signed with wrong secret is rejected", func(t *testing.T) {
		other := newTestTokenService()
		other.AccessSecret = []byte("different-secret")

		pair, _ := other.IssuePair(userID, "a@b.com")
		if _, err := ts.VerifyAccess(pair.AccessToken); err == nil {
			t.Error("token from a different secret should not verify")
		}
	})
}

func TestAuthCookies(t *testing.T) {
	ts := newTestTokenService()
	userID, _ := uuid.NewV7()

	t.Run("set writes both cookies with security attributes", func(t *testing.T) {
		pair, _ := ts.IssuePair(userID, "a@b.com")
		rec := httptest.NewRecorder()
		ts.SetAuthCookies(rec, pair)

		cookies := rec.Result().Cookies()
		if len(cookies) != 2 {
			t.Fatalf("expected 2 cookies, got %d", len(cookies))
		}
		byName := map[string]*http.Cookie{}
		for _, c := range cookies {
			byName[c.Name] = c
		}

		access, ok := byName[AccessCookieName]
		if !ok {
			t.Fatal("access_token cookie missing")
		}
		if !access.HttpOnly {
			t.Error("access cookie must be HttpOnly")
		}
		if access.SameSite != http.SameSiteLaxMode {
			t.Error("access cookie must be SameSite=Lax")
		}
		if access.Path != "/" {
			t.Errorf("access cookie path: expected /, got %q", access.Path)
		}
		if access.MaxAge != int((15 * time.Minute).Seconds()) {
			t.Errorf("access cookie MaxAge: got %d", access.MaxAge)
		}

		refresh, ok := byName[RefreshCookieName]
		if !ok {
			t.Fatal("refresh_token cookie missing")
		}
		if refresh.MaxAge != int((7 * 24 * time.Hour).Seconds()) {
			t.Errorf("refresh cookie MaxAge: got %d", refresh.MaxAge)
		}
	})

	t.Run("secure flag follows production setting", func(t *testing.T) {
		prod := newTestTokenService()
		prod.Secure = true
		pair, _ := prod.IssuePair(userID, "a@b.com")

		rec := httptest.NewRecorder()
		prod.SetAuthCookies(rec, pair)
		for _, c := range rec.Result().Cookies() {
			if !c.Secure {
				t.Errorf("cookie %s should be Secure in production", c.Name)
			}
		}
	})

	t.Run("clear expires both cookies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		ts.ClearAuthCookies(rec)

		cookies := rec.Result().Cookies()
		if len(cookies) != 2 {
			t.Fatalf("expected 2 cookies, got %d", len(cookies))
		}
		for _, c := range cookies {
			if c.Value != "" {
				t.Errorf("cookie %s should be emptied, got %q", c.Name, c.Value)
			}
			if c.MaxAge >= 0 {
				t.Errorf("cookie %s should have negative MaxAge, got %d", c.Name, c.MaxAge)
			}
		}
	})
}
