// handler.go -- HTTP handlers for all /api/auth/* endpoints.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/contently-ai/contently/internal/idp"
	"github.com/contently-ai/contently/internal/store"
)

// Store defines database operations needed by auth handlers.
// Satisfied by *store.PostgresStore — defined here (at consumer) per Go convention.
type Store interface {
	// CreateUserWithPassword inserts new user with email and Argon2id hash.
	CreateUserWithPassword(ctx context.Context, id uuid.UUID, email, passwordHash string) error

	// CreateUserFromIDP inserts a user provisioned from verified provider claims.
	CreateUserFromIDP(ctx context.Context, id uuid.UUID, email, subject string, fullName, avatarURL *string) error

	// GetUserByEmail fetches user by email for login verification.
	// Returns pgx.ErrNoRows if not found.
	GetUserByEmail(ctx context.Context, email string) (*store.User, error)

	// GetUserByID fetches user by primary key.
	GetUserByID(ctx context.Context, id uuid.UUID) (*store.User, error)

	// GetUserByIDPSubject fetches the account linked to a provider subject.
	GetUserByIDPSubject(ctx context.Context, subject string) (*store.User, error)

	// LinkIDPSubject attaches a provider subject to an existing account.
	LinkIDPSubject(ctx context.Context, userID uuid.UUID, subject string) error

	// CheckHealth verifies the database connection is alive.
	CheckHealth(ctx context.Context) error
}

// TokenDenylist tracks redeemed refresh-token IDs so each refresh token is
// single-use. Satisfied by *store.RedisStore -- defined here per Go convention.
type TokenDenylist interface {
	// RevokeRefreshToken denylists a jti until the token would expire anyway.
	RevokeRefreshToken(ctx context.Context, jti string, ttl time.Duration) error

	// IsRefreshTokenRevoked reports whether a jti has already been redeemed.
	IsRefreshTokenRevoked(ctx context.Context, jti string) (bool, error)

	// CheckHealth verifies the Redis connection is alive.
	CheckHealth(ctx context.Context) error
}

// RateLimiter checks and records rate limit state for a given key and policy.
// Satisfied by *store.RedisRateLimiter -- defined here per Go convention.
type RateLimiter interface {
	// Allow checks whether the action is within policy, records the attempt.
	// Returns nil if allowed; non-nil error if locked out or threshold exceeded.
	Allow(ctx context.Context, key string, policy store.RateLimit) error
}

// dummyPasswordHash is a precomputed Argon2id hash for timing attack mitigation.
// When a user doesn't exist, verify against this so both paths take equal time (~100ms).
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=3,p=2$YWJjZGVmZ2hpamtsbW5vcA$kC6C6jqLzC0JLlJgXhHbKMhLLpVvLJLLQw/IqT9ZYPU"

// LoginEmailPolicy is the rate limit applied per email address on login attempts.
// Applied before any DB work -- rejected requests never reach Argon2id.
var LoginEmailPolicy = store.RateLimit{
	MaxAttempts: 10,
	Window:      10 * time.Minute,
	LockoutTTL:  15 * time.Minute,
}

// AuthHandler holds dependencies for all /api/auth/* HTTP handlers and middleware.
type AuthHandler struct {
	PS  Store
	DL  TokenDenylist
	RL  RateLimiter
	TS  *TokenService
	IDP idp.Verifier
}

// userOut is the identity summary returned by auth endpoints.
type userOut struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  *string   `json:"fullName"`
	AvatarURL *string   `json:"avatarUrl"`
	CreatedAt time.Time `json:"createdAt"`
}

func toUserOut(u *store.User) userOut {
	return userOut{
		ID:        u.ID.String(),
		Email:     u.Email,
		FullName:  u.FullName,
		AvatarURL: u.AvatarURL,
		CreatedAt: u.CreatedAt,
	}
}

// issueSession signs a token pair for the user and sets both cookies.
func (h *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, user *store.User) bool {
	pair, err := h.TS.IssuePair(user.ID, user.Email)
	if err != nil {
		InternalServerError(w, r, err)
		return false
	}
	h.TS.SetAuthCookies(w, pair)
	return true
}

// Register handles POST /api/auth/register.
//
// Two paths: a verified bearer token provisions (or signs in) a provider
// account; otherwise email + password creates a local account. Both set the
// session cookie pair on success.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	// Provider path -- token proves identity, no password involved.
	if raw := bearerToken(r); raw != "" {
		claims, err := h.IDP.Verify(r.Context(), raw)
		if err != nil {
			logInfo(r, "register with invalid bearer token", "error", err)
			Unauthorized(w, r, "invalid identity token")
			return
		}
		user, err := h.userForProviderClaims(r, claims)
		if err != nil {
			InternalServerError(w, r, err)
			return
		}
		if !h.issueSession(w, r, user) {
			return
		}
		logInfo(r, "user registered via provider", "user_id", user.ID)
		WriteJSON(w, r, http.StatusOK, map[string]any{"user": toUserOut(user)})
		return
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"fullName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		logWarn(r, "failed to decode register input", "error", err)
		BadRequest(w, r, "error decoding request body")
		return
	}

	if msg := ValidateEmail(input.Email); msg != "" {
		BadRequest(w, r, msg)
		return
	}
	if msg := ValidatePassword(input.Password); msg != "" {
		BadRequest(w, r, msg)
		return
	}

	hashed, err := HashPassword(input.Password)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}

	userID, err := uuid.NewV7()
	if err != nil {
		InternalServerError(w, r, err)
		return
	}

	if err := h.PS.CreateUserWithPassword(r.Context(), userID, input.Email, hashed); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			logInfo(r, "registration attempted with existing email")
			Conflict(w, "user with this email already exists")
			return
		}
		logError(r, "failed to create user", "error", err)
		InternalServerError(w, r, err)
		return
	}

	user, err := h.PS.GetUserByID(r.Context(), userID)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}
	if !h.issueSession(w, r, user) {
		return
	}
	logInfo(r, "user registered", "user_id", userID)
	WriteJSON(w, r, http.StatusCreated, map[string]any{"user": toUserOut(user)})
}

// Login handles POST /api/auth/login.
//
// A verified bearer token signs in (provisioning on first sight); otherwise
// email + password. Bad credentials always return the same generic 401.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if raw := bearerToken(r); raw != "" {
		claims, err := h.IDP.Verify(r.Context(), raw)
		if err != nil {
			logInfo(r, "login with invalid bearer token", "error", err)
			Unauthorized(w, r, "invalid credentials")
			return
		}
		user, err := h.userForProviderClaims(r, claims)
		if err != nil {
			InternalServerError(w, r, err)
			return
		}
		if !h.issueSession(w, r, user) {
			return
		}
		logInfo(r, "user logged in via provider", "user_id", user.ID)
		WriteJSON(w, r, http.StatusOK, map[string]any{"user": toUserOut(user)})
		return
	}

	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		logWarn(r, "failed to decode login input", "error", err)
		BadRequest(w, r, "error decoding request body")
		return
	}

	// Invalid email or missing password -- both return generic 401 (no enumeration).
	if msg := ValidateEmail(input.Email); msg != "" {
		Unauthorized(w, r, "invalid credentials")
		return
	}
	if input.Password == "" {
		Unauthorized(w, r, "invalid credentials")
		return
	}

	if err := h.RL.Allow(r.Context(), "login:email:"+input.Email, LoginEmailPolicy); err != nil {
		if errors.Is(err, store.ErrRateLimitExceeded) {
			logInfo(r, "login rate limited", "email", input.Email)
			TooManyRequests(w)
			return
		}
		InternalServerError(w, r, err)
		return
	}

	user, err := h.PS.GetUserByEmail(r.Context(), input.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Run dummy hash to equalise timing with found-user path.
			VerifyPassword(input.Password, dummyPasswordHash)
			logInfo(r, "login attempted with non-existent email")
		} else {
			logError(r, "failed to fetch user for login", "error", err)
		}
		Unauthorized(w, r, "invalid credentials")
		return
	}

	if user.PasswordHash == nil {
		// Provider-only account -- same timing and response as a wrong password.
		VerifyPassword(input.Password, dummyPasswordHash)
		logInfo(r, "password login attempted for provider-only account", "user_id", user.ID)
		Unauthorized(w, r, "invalid credentials")
		return
	}

	valid, err := VerifyPassword(input.Password, *user.PasswordHash)
	if err != nil {
		logError(r, "password verification failed", "error", err)
		InternalServerError(w, r, err)
		return
	}
	if !valid {
		logInfo(r, "login attempted with incorrect password", "user_id", user.ID)
		Unauthorized(w, r, "invalid credentials")
		return
	}

	if !h.issueSession(w, r, user) {
		return
	}
	logInfo(r, "user logged in", "user_id", user.ID)
	WriteJSON(w, r, http.StatusOK, map[string]any{"user": toUserOut(user)})
}

// Refresh handles POST /api/auth/refresh -- rotates the session token pair.
//
// The presented refresh token is single-use: its jti is denylisted the moment
// a new pair is issued, so a replayed token gets a 401. Any verification
// failure clears both cookies; the client wrapper treats that as session end.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		Unauthorized(w, r, "refresh token not found")
		return
	}

	claims, err := h.TS.VerifyRefresh(cookie.Value)
	if err != nil {
		logInfo(r, "refresh with invalid token", "error", err)
		h.TS.ClearAuthCookies(w)
		Unauthorized(w, r, "invalid or expired refresh token")
		return
	}

	revoked, err := h.DL.IsRefreshTokenRevoked(r.Context(), claims.ID)
	if err != nil {
		InternalServerError(w, r, err)
		return
	}
	if revoked {
		logWarn(r, "refresh with redeemed token", "jti", claims.ID)
		h.TS.ClearAuthCookies(w)
		Unauthorized(w, r, "invalid or expired refresh token")
		return
	}

	userID, err := uuid.FromString(claims.UserID)
	if err != nil {
		h.TS.ClearAuthCookies(w)
		Unauthorized(w, r, "invalid or expired refresh token")
		return
	}
	user, err := h.PS.GetUserByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			logWarn(r, "refresh for deleted user", "user_id", claims.UserID)
			h.TS.ClearAuthCookies(w)
			NotFound(w, "user not found")
			return
		}
		InternalServerError(w, r, err)
		return
	}

	// Retire the presented token before handing out its replacement.
	if claims.ExpiresAt != nil {
		if err := h.DL.RevokeRefreshToken(r.Context(), claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
			InternalServerError(w, r, err)
			return
		}
	}

	if !h.issueSession(w, r, user) {
		return
	}
	logInfo(r, "session refreshed", "user_id", user.ID)
	OK(w, "tokens refreshed successfully")
}

// Logout handles POST /api/auth/logout -- clears both cookies and retires the
// refresh token so it can't be replayed from a stolen cookie jar.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(RefreshCookieName); err == nil && cookie.Value != "" {
		if claims, err := h.TS.VerifyRefresh(cookie.Value); err == nil && claims.ExpiresAt != nil {
			// Best effort -- logout succeeds even if Redis is down.
			if err := h.DL.RevokeRefreshToken(r.Context(), claims.ID, time.Until(claims.ExpiresAt.Time)); err != nil {
				logWarn(r, "failed to revoke refresh token on logout", "error", err)
			}
		}
	}

	h.TS.ClearAuthCookies(w)
	logInfo(r, "user logged out")
	OK(w, "logged out")
}

// Me handles GET /api/auth/me -- resolves the session and returns the
// caller's identity summary.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ident, ok := h.resolveIdentity(r)
	if !ok {
		Unauthorized(w, r, "unauthorized")
		return
	}

	user, err := h.PS.GetUserByID(r.Context(), ident.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			Unauthorized(w, r, "unauthorized")
			return
		}
		InternalServerError(w, r, err)
		return
	}

	WriteJSON(w, r, http.StatusOK, map[string]any{"user": toUserOut(user)})
}
