package users

import (
	"context"
	"strings"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/apiclient"
	"github.com/tickethub/tickethub-web/internal/store"
)

// Service handles user administration through the API.
type Service struct {
	api apiclient.API
}

// NewService builds Service instance.
func NewService(api apiclient.API) *Service {
	return &Service{api: api}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, page, limit int) (store.Page[User], error) {
	var resp apiclient.Paginated[User]
	if err := s.api.Get(ctx, apiclient.PagePath("/users", page, limit, nil), &resp); err != nil {
		return store.Page[User]{}, err
	}
	return resp.StorePage(), nil
}

// CreateUser registers an account with the given role.
func (s *Service) CreateUser(ctx context.Context, in Input) (*User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if role, ok := access.ParseRole(in.Role); ok {
		in.Role = role.String()
	}
	var user User
	if err := s.api.Post(ctx, "/users", in, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// NewStore builds a listing store backed by s.
func NewStore(s *Service, observer store.Observer) *store.Collection[User, struct{}] {
	return store.New(store.Options[User, struct{}]{
		Name: "users",
		Fetch: func(ctx context.Context, q store.Query[struct{}]) (store.Page[User], error) {
			return s.ListUsers(ctx, q.Page, q.Limit)
		},
		Key:      func(u User) string { return u.ID },
		Observer: observer,
	})
}
