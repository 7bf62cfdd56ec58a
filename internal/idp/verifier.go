// Package idp verifies bearer ID tokens issued by an external identity
// provider (Firebase-style securetoken issuers, or any OIDC-discoverable one).
//
// The frontend signs users in directly against the provider and sends the
// resulting ID token as "Authorization: Bearer <token>"; this package checks
// the signature against the issuer's JWKS and returns normalized claims.
package idp

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

// Claims holds the normalized identity claims from a verified ID token.
// All fields are verified server-side; never trust client-supplied values.
// Name and Picture are optional -- empty string means not provided.
type Claims struct {
	Subject string // provider-specific stable user ID
	Email   string
	Name    string
	Picture string // avatar URL
}

// Verifier validates a raw bearer ID token and returns its claims.
// An error means the token is not acceptable; callers fall back to
// cookie-based session auth.
type Verifier interface {
	Verify(ctx context.Context, rawToken string) (*Claims, error)
}

// OIDCVerifier verifies tokens against a live OIDC issuer via discovery.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier fetches the issuer's discovery document and JWKS endpoint.
// Makes an outbound HTTP request at startup; returns an error if unreachable.
// audience is the expected aud claim (the provider project ID).
func NewOIDCVerifier(ctx context.Context, issuer, audience string) (*OIDCVerifier, error) {
	p, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuer, err)
	}
	return &OIDCVerifier{
		verifier: p.Verifier(&oidc.Config{ClientID: audience}),
	}, nil
}

// Verify checks the token's signature, issuer, audience, and expiry, then
// extracts the identity claims.
func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("verifying id token: %w", err)
	}

	var c struct {
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := idToken.Claims(&c); err != nil {
		return nil, fmt.Errorf("extracting id token claims: %w", err)
	}

	return &Claims{
		Subject: idToken.Subject,
		Email:   c.Email,
		Name:    c.Name,
		Picture: c.Picture,
	}, nil
}

// Disabled is a Verifier for deployments without an external provider
// configured; every bearer token is rejected so auth falls through to
// session cookies.
type Disabled struct{}

func (Disabled) Verify(ctx context.Context, rawToken string) (*Claims, error) {
	return nil, fmt.Errorf("external identity provider not configured")
}
