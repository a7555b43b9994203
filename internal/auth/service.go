package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/apiclient"
	"github.com/tickethub/tickethub-web/internal/shared"
)

// ErrEmptyToken is returned when the API answers without a token.
var ErrEmptyToken = errors.New("auth: api returned no access token")

// Service wraps the API's authentication endpoints.
type Service struct {
	api apiclient.API
}

// NewService constructs a new Service.
func NewService(api apiclient.API) *Service {
	return &Service{api: api}
}

// Authenticate validates email/password credentials. The outcome may ask for
// a second factor instead of carrying a token.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Outcome, error) {
	var resp tokenResponse
	body := map[string]string{"email": strings.TrimSpace(email), "password": password}
	if err := s.api.Post(ctx, "/auth/login", body, &resp); err != nil {
		if code := apiclient.StatusCode(err); code == http.StatusUnauthorized || code == http.StatusNotFound {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	return outcomeFrom(resp)
}

// VerifyTwoFactor completes a login challenge with a one-time code.
func (s *Service) VerifyTwoFactor(ctx context.Context, challenge, code string) (*Outcome, error) {
	var resp tokenResponse
	body := map[string]string{"tempToken": challenge, "code": strings.TrimSpace(code)}
	if err := s.api.Post(ctx, "/auth/2fa/verify", body, &resp); err != nil {
		return nil, err
	}
	if resp.RequiresTwoFactor {
		return nil, fmt.Errorf("auth: second factor requested twice")
	}
	return outcomeFrom(resp)
}

// Register creates a buyer account and signs it in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Outcome, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	var resp tokenResponse
	if err := s.api.Post(ctx, "/auth/register", in, &resp); err != nil {
		return nil, err
	}
	return outcomeFrom(resp)
}

// Profile reloads the identity for token from the API.
func (s *Service) Profile(ctx context.Context, token string) (*access.Identity, error) {
	var user UserPayload
	if err := s.api.Get(apiclient.WithToken(ctx, token), "/auth/profile", &user); err != nil {
		return nil, err
	}
	return BuildIdentity(token, &user)
}

// Logout revokes the token on the API side.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.api.Post(apiclient.WithToken(ctx, token), "/auth/logout", nil, nil)
}

func outcomeFrom(resp tokenResponse) (*Outcome, error) {
	if resp.RequiresTwoFactor {
		if resp.TempToken == "" {
			return nil, fmt.Errorf("auth: two-factor challenge without token")
		}
		return &Outcome{Challenge: resp.TempToken}, nil
	}
	if resp.AccessToken == "" {
		return nil, ErrEmptyToken
	}
	identity, err := BuildIdentity(resp.AccessToken, resp.User)
	if err != nil {
		return nil, err
	}
	return &Outcome{AccessToken: resp.AccessToken, Identity: identity}, nil
}
