// middleware.go

// Session resolution middleware: bearer provider tokens first, then the
// access-token cookie. Matches the frontend's retry contract -- a 401 here
// tells the client wrapper to attempt one silent refresh.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/contently-ai/contently/internal/idp"
	"github.com/contently-ai/contently/internal/store"
)

// AuthVia records which credential authenticated the request.
type AuthVia string

const (
	// ViaProvider -- a verified bearer ID token from the external identity provider.
	ViaProvider AuthVia = "provider"
	// ViaSession -- the HttpOnly access-token cookie issued by this service.
	ViaSession AuthVia = "session"
)

// Identity is the authenticated caller injected into request context.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Via    AuthVia
}

// contextKey is unexported to prevent collisions with other packages using the same context.
type contextKey string

const identityKey contextKey = "identity"

// IdentityFromContext retrieves the authenticated identity from context.
// Returns zero Identity and false if RequireAuth hasn't run.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	ident, ok := ctx.Value(identityKey).(Identity)
	return ident, ok
}

// RequireAuth resolves the caller's identity and injects it into context.
//
// Resolution order:
//  1. "Authorization: Bearer <token>" verified against the external identity
//     provider; the local account is looked up (or lazily created) by subject.
//  2. The access_token cookie verified as a local JWT.
//
// A failed bearer check falls through to the cookie rather than rejecting,
// so stale provider tokens don't break cookie-authenticated sessions.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ident, ok := h.resolveIdentity(r); ok {
			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}
		Unauthorized(w, r, "unauthorized")
	})
}

// resolveIdentity applies the dual-credential resolution order.
// Shared by RequireAuth and the handlers (Me, Login) that need the softer
// "resolve if possible" behaviour instead of an immediate 401.
func (h *AuthHandler) resolveIdentity(r *http.Request) (Identity, bool) {
	if raw := bearerToken(r); raw != "" {
		claims, err := h.IDP.Verify(r.Context(), raw)
		if err != nil {
			// Fall through to cookie auth.
			logDebug(r, "bearer token rejected", "error", err)
		} else {
			user, err := h.userForProviderClaims(r, claims)
			if err != nil {
				logError(r, "failed to resolve provider identity", "error", err)
			} else {
				return Identity{UserID: user.ID, Email: user.Email, Via: ViaProvider}, true
			}
		}
	}

	cookie, err := r.Cookie(AccessCookieName)
	if err != nil || cookie.Value == "" {
		return Identity{}, false
	}
	claims, err := h.TS.VerifyAccess(cookie.Value)
	if err != nil {
		logDebug(r, "access token rejected", "error", err)
		return Identity{}, false
	}
	userID, err := uuid.FromString(claims.UserID)
	if err != nil {
		logWarn(r, "access token carries malformed userId", "error", err)
		return Identity{}, false
	}
	return Identity{UserID: userID, Email: claims.Email, Via: ViaSession}, true
}

// userForProviderClaims finds the local account for verified provider claims,
// linking by email or lazily creating one on first sight.
func (h *AuthHandler) userForProviderClaims(r *http.Request, claims *idp.Claims) (*store.User, error) {
	ctx := r.Context()

	user, err := h.PS.GetUserByIDPSubject(ctx, claims.Subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	// Same email already registered with a password? Link the subject so
	// both credentials reach one account.
	if claims.Email != "" {
		existing, err := h.PS.GetUserByEmail(ctx, claims.Email)
		if err == nil {
			if err := h.PS.LinkIDPSubject(ctx, existing.ID, claims.Subject); err != nil {
				return nil, err
			}
			logInfo(r, "linked provider identity to existing account", "user_id", existing.ID)
			return existing, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	// First sight of this subject -- provision a local account.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	fullName := claims.Name
	if fullName == "" {
		fullName = strings.SplitN(claims.Email, "@", 2)[0]
	}
	var avatar *string
	if claims.Picture != "" {
		avatar = &claims.Picture
	}
	if err := h.PS.CreateUserFromIDP(ctx, id, claims.Email, claims.Subject, &fullName, avatar); err != nil {
		return nil, err
	}
	logInfo(r, "provisioned account from provider identity", "user_id", id)
	return &store.User{ID: id, Email: claims.Email, FullName: &fullName, AvatarURL: avatar, IDPSubject: &claims.Subject}, nil
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
// Returns "" when absent or malformed.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
