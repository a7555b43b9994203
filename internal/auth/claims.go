package auth

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tickethub/tickethub-web/internal/access"
)

// ErrMissingSubject is returned when neither the token nor the user payload
// identify the user.
var ErrMissingSubject = errors.New("auth: token has no subject")

// Claims are the access token claims issued by the API.
type Claims struct {
	jwt.RegisteredClaims
	Email       string   `json:"email,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Role        string   `json:"role,omitempty"`
	ActiveRole  string   `json:"activeRole,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// ParseClaims decodes the access token without verifying its signature. The
// API verifies signatures on every call; the frontend only reads the claims
// to route and gate views.
func ParseClaims(token string) (*Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := &Claims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token carries an expiry in the past.
func (c *Claims) Expired(now time.Time) bool {
	return c != nil && c.ExpiresAt != nil && !c.ExpiresAt.After(now)
}

// BuildIdentity merges the token claims with the user payload. The payload
// wins for profile fields; roles and permissions are the union of both.
func BuildIdentity(token string, user *UserPayload) (*access.Identity, error) {
	claims, err := ParseClaims(token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &UserPayload{}
	}
	userID := user.ID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, ErrMissingSubject
	}

	roles := slices.Concat(user.Roles, claims.Roles)
	for _, single := range []string{user.Role, claims.Role} {
		if single != "" {
			roles = append(roles, single)
		}
	}
	active := user.ActiveRole
	if active == "" {
		active = claims.ActiveRole
	}

	identity := access.NewIdentity(userID, roles, active, slices.Concat(user.Permissions, claims.Permissions))
	identity.Email = user.Email
	if identity.Email == "" {
		identity.Email = claims.Email
	}
	identity.Name = user.Name
	return identity, nil
}
