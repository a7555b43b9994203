package auth

import "github.com/tickethub/tickethub-web/internal/access"

// UserPayload is the user object embedded in auth responses.
type UserPayload struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Roles       []string `json:"roles"`
	Role        string   `json:"role,omitempty"`
	ActiveRole  string   `json:"activeRole,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// tokenResponse covers login, registration and 2FA verification replies.
type tokenResponse struct {
	AccessToken       string       `json:"accessToken"`
	User              *UserPayload `json:"user,omitempty"`
	RequiresTwoFactor bool         `json:"requiresTwoFactor,omitempty"`
	TempToken         string       `json:"tempToken,omitempty"`
}

// Outcome is the result of an authentication step. Either Challenge is set
// (a second factor is required) or AccessToken and Identity are.
type Outcome struct {
	AccessToken string
	Identity    *access.Identity
	Challenge   string
}

// NeedsSecondFactor reports whether the user must complete 2FA.
func (o *Outcome) NeedsSecondFactor() bool {
	return o != nil && o.Challenge != ""
}

// RegisterInput is the payload of a registration.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
