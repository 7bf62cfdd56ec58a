package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/contently-ai/contently/internal/idp"
	"github.com/contently-ai/contently/internal/store"
	"github.com/contently-ai/contently/internal/testutil"
)

// cookiesByName indexes Set-Cookie headers from a recorded response.
func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestRegister(t *testing.T) {
	t.Run("valid registration returns 201 and sets cookies", func(t *testing.T) {
		h, ms := newTestHandler()

		req := httptest.NewRequest("POST", "/api/auth/register",
			strings.NewReader(`{"email":"new@test.local","password":"hunter22"}`))
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		cookies := cookiesByName(rec)
		if cookies[AccessCookieName] == nil || cookies[RefreshCookieName] == nil {
			t.Error("expected both session cookies to be set")
		}
		if _, err := ms.GetUserByEmail(req.Context(), "new@test.local"); err != nil {
			t.Errorf("expected user persisted: %v", err)
		}
	})

	t.Run("duplicate email returns 409", func(t *testing.T) {
		h, ms := newTestHandler()
		ms.CreateUserErr = &pgconn.PgError{Code: "23505"}

		req := httptest.NewRequest("POST", "/api/auth/register",
			strings.NewReader(`{"email":"dup@test.local","password":"hunter22"}`))
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})

	t.Run("short password returns 400", func(t *testing.T) {
		h, _ := newTestHandler()

		req := httptest.NewRequest("POST", "/api/auth/register",
			strings.NewReader(`{"email":"a@test.local","password":"abc"}`))
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("bearer token registers provider account", func(t *testing.T) {
		h, ms := newTestHandler()
		h.IDP = &testutil.MockVerifier{Tokens: map[string]*idp.Claims{
			"provider-token": {Subject: "reg-sub", Email: "prov@test.local"},
		}}

		req := httptest.NewRequest("POST", "/api/auth/register", nil)
		req.Header.Set("Authorization", "Bearer provider-token")
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if _, err := ms.GetUserByIDPSubject(req.Context(), "reg-sub"); err != nil {
			t.Errorf("expected provider user persisted: %v", err)
		}
		cookies := cookiesByName(rec)
		if cookies[AccessCookieName] == nil {
			t.Error("expected session cookies for provider registration")
		}
	})

	t.Run("invalid bearer token returns 401", func(t *testing.T) {
		h, _ := newTestHandler()

		req := httptest.NewRequest("POST", "/api/auth/register", nil)
		req.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()
		h.Register(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestLogin(t *testing.T) {
	hash, _ := HashPassword("correct-horse")
	userID, _ := uuid.NewV7()
	user := &store.User{ID: userID, Email: "login@test.local", PasswordHash: &hash}

	t.Run("valid credentials return 200 with cookies", func(t *testing.T) {
		h, _ := newTestHandler(user)

		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"email":"login@test.local","password":"correct-horse"}`))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		cookies := cookiesByName(rec)
		if cookies[AccessCookieName] == nil || cookies[RefreshCookieName] == nil {
			t.Error("expected both session cookies")
		}

		var body struct {
			User struct {
				ID    string `json:"id"`
				Email string `json:"email"`
			} `json:"user"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if body.User.ID != userID.String() {
			t.Errorf("expected user id %s, got %s", userID, body.User.ID)
		}
	})

	t.Run("wrong password returns generic 401", func(t *testing.T) {
		h, _ := newTestHandler(user)

		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"email":"login@test.local","password":"wrong"}`))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "invalid credentials") {
			t.Errorf("expected generic message, got %s", rec.Body.String())
		}
	})

	t.Run("unknown email returns the same generic 401", func(t *testing.T) {
		h, _ := newTestHandler(user)

		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"email":"ghost@test.local","password":"whatever1"}`))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "invalid credentials") {
			t.Errorf("expected generic message, got %s", rec.Body.String())
		}
	})

	t.Run("provider-only account rejects password login", func(t *testing.T) {
		sub := "prov-only-sub"
		provID, _ := uuid.NewV7()
		prov := &store.User{ID: provID, Email: "prov-only@test.local", IDPSubject: &sub}
		h, _ := newTestHandler(prov)

		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"email":"prov-only@test.local","password":"whatever1"}`))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rate limited login returns 429 before touching the store", func(t *testing.T) {
		h, _ := newTestHandler(user)
		h.RL = &testutil.MockRateLimiter{AllowErr: store.ErrRateLimitExceeded}

		req := httptest.NewRequest("POST", "/api/auth/login",
			strings.NewReader(`{"email":"login@test.local","password":"correct-horse"}`))
		rec := httptest.NewRecorder()
		h.Login(rec, req)

		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rec.Code)
		}
	})
}

func TestRefresh(t *testing.T) {
	userID, _ := uuid.NewV7()
	hash := "x"
	user := &store.User{ID: userID, Email: "refresh@test.local", PasswordHash: &hash}

	refreshRequest := func(token string) *http.Request {
		req := httptest.NewRequest("POST", "/api/auth/refresh", nil)
		if token != "" {
			req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: token})
		}
		return req
	}

	t.Run("valid refresh rotates the pair", func(t *testing.T) {
		h, _ := newTestHandler(user)
		pair, _ := h.TS.IssuePair(userID, user.Email)

		rec := httptest.NewRecorder()
		h.Refresh(rec, refreshRequest(pair.RefreshToken))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		cookies := cookiesByName(rec)
		newRefresh := cookies[RefreshCookieName]
		if newRefresh == nil || newRefresh.Value == "" {
			t.Fatal("expected a fresh refresh cookie")
		}
		if newRefresh.Value == pair.RefreshToken {
			t.Error("refresh token should rotate, not repeat")
		}
	})

	t.Run("replayed refresh token is rejected", func(t *testing.T) {
		h, _ := newTestHandler(user)
		pair, _ := h.TS.IssuePair(userID, user.Email)

		// First redemption succeeds.
		rec := httptest.NewRecorder()
		h.Refresh(rec, refreshRequest(pair.RefreshToken))
		if rec.Code != http.StatusOK {
			t.Fatalf("first refresh: expected 200, got %d", rec.Code)
		}

		// Second redemption of the same token fails and clears cookies.
		rec = httptest.NewRecorder()
		h.Refresh(rec, refreshRequest(pair.RefreshToken))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("replay: expected 401, got %d", rec.Code)
		}
		for _, c := range rec.Result().Cookies() {
			if c.MaxAge >= 0 {
				t.Errorf("cookie %s should be cleared on replay", c.Name)
			}
		}
	})

	t.Run("missing cookie returns 401", func(t *testing.T) {
		h, _ := newTestHandler(user)

		rec := httptest.NewRecorder()
		h.Refresh(rec, refreshRequest(""))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("access token in refresh cookie is rejected", func(t *testing.T) {
		h, _ := newTestHandler(user)
		pair, _ := h.TS.IssuePair(userID, user.Email)

		rec := httptest.NewRecorder()
		h.Refresh(rec, refreshRequest(pair.AccessToken))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("refresh for deleted user returns 404 and clears cookies", func(t *testing.T) {
		h, _ := newTestHandler() // user never seeded
		pair, _ := h.TS.IssuePair(userID, user.Email)

		rec := httptest.NewRecorder()
		h.Refresh(rec, refreshRequest(pair.RefreshToken))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		for _, c := range rec.Result().Cookies() {
			if c.MaxAge >= 0 {
				t.Errorf("cookie %s should be cleared", c.Name)
			}
		}
	})
}

func TestLogout(t *testing.T) {
	userID, _ := uuid.NewV7()

	t.Run("clears cookies and retires refresh token", func(t *testing.T) {
		h, _ := newTestHandler()
		dl := testutil.NewMockDenylist()
		h.DL = dl
		pair, _ := h.TS.IssuePair(userID, "out@test.local")

		req := httptest.NewRequest("POST", "/api/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: RefreshCookieName, Value: pair.RefreshToken})
		rec := httptest.NewRecorder()
		h.Logout(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		for _, c := range rec.Result().Cookies() {
			if c.MaxAge >= 0 {
				t.Errorf("cookie %s should be cleared", c.Name)
			}
		}
		if !dl.Revoked[pair.RefreshTokenID] {
			t.Error("expected refresh jti to be denylisted on logout")
		}
	})

	t.Run("logout without cookies still succeeds", func(t *testing.T) {
		h, _ := newTestHandler()

		rec := httptest.NewRecorder()
		h.Logout(rec, httptest.NewRequest("POST", "/api/auth/logout", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestMe(t *testing.T) {
	userID, _ := uuid.NewV7()
	name := "Testy McTest"
	hash := "x"
	user := &store.User{ID: userID, Email: "me@test.local", FullName: &name, PasswordHash: &hash}

	t.Run("cookie session returns identity summary", func(t *testing.T) {
		h, _ := newTestHandler(user)
		pair, _ := h.TS.IssuePair(userID, user.Email)

		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		req.AddCookie(&http.Cookie{Name: AccessCookieName, Value: pair.AccessToken})
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		var body struct {
			User struct {
				Email    string  `json:"email"`
				FullName *string `json:"fullName"`
			} `json:"user"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decoding: %v", err)
		}
		if body.User.Email != "me@test.local" {
			t.Errorf("expected email, got %q", body.User.Email)
		}
		if body.User.FullName == nil || *body.User.FullName != name {
			t.Errorf("expected full name %q", name)
		}
	})

	t.Run("no credentials returns 401", func(t *testing.T) {
		h, _ := newTestHandler(user)

		rec := httptest.NewRecorder()
		h.Me(rec, httptest.NewRequest("GET", "/api/auth/me", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("bearer identity resolves without cookies", func(t *testing.T) {
		sub := "me-sub"
		provUser := &store.User{ID: userID, Email: "me@test.local", IDPSubject: &sub}
		h, _ := newTestHandler(provUser)
		h.IDP = &testutil.MockVerifier{Tokens: map[string]*idp.Claims{
			"me-token": {Subject: sub, Email: "me@test.local"},
		}}

		req := httptest.NewRequest("GET", "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer me-token")
		rec := httptest.NewRecorder()
		h.Me(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}
