package tickets

import (
	"context"
	"errors"
	"net/url"
	"strings"
)

// ErrCodeRequired is returned when validating an empty ticket code.
var ErrCodeRequired = errors.New("tickets: ticket code required")

// Poster is the slice of the API client used by this package.
type Poster interface {
	Post(ctx context.Context, path string, body, out any) error
}

// Service validates tickets at the venue entrance.
type Service struct {
	api Poster
}

// NewService builds Service instance.
func NewService(api Poster) *Service {
	return &Service{api: api}
}

// Validate redeems code and returns the ticket record unchanged. API errors
// are returned as-is.
func (s *Service) Validate(ctx context.Context, code string) (*Ticket, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrCodeRequired
	}
	var ticket Ticket
	if err := s.api.Post(ctx, "/tickets/validate/"+url.PathEscape(code), nil, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}
