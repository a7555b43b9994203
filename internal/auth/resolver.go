package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/apiclient"
	"github.com/tickethub/tickethub-web/internal/shared"
)

// StoreIdentity binds a completed authentication to the session.
func StoreIdentity(sess *shared.Session, token string, identity *access.Identity) error {
	raw, err := json.Marshal(identity)
	if err != nil {
		return err
	}
	sess.SetAuth(shared.SessionAuth{AccessToken: token, Identity: raw})
	return nil
}

// SessionIdentity decodes the identity stored in the session.
func SessionIdentity(sess *shared.Session) (*access.Identity, error) {
	if !sess.Authenticated() || len(sess.Auth().Identity) == 0 {
		return nil, nil
	}
	var identity access.Identity
	if err := json.Unmarshal(sess.Auth().Identity, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

// MarkStale forces the identity to be reloaded on the next request. Guards
// report Loading until that succeeds.
func MarkStale(sess *shared.Session) {
	auth := sess.Auth()
	auth.Stale = true
	sess.SetAuth(auth)
}

// Resolver resolves the identity of a request from its session, refreshing
// stale identities from the API.
type Resolver struct {
	service *Service
	logger  *slog.Logger
	now     func() time.Time
}

// NewResolver constructs a Resolver.
func NewResolver(service *Service, logger *slog.Logger) *Resolver {
	return &Resolver{service: service, logger: logger, now: time.Now}
}

// ResolveIdentity implements access.Resolver. Transient failures while
// refreshing yield a pending state, never a denial.
func (r *Resolver) ResolveIdentity(req *http.Request) access.IdentityState {
	sess := shared.SessionFromContext(req.Context())
	if !sess.Authenticated() {
		return access.Resolved(nil)
	}
	token := sess.Auth().AccessToken
	if claims, err := ParseClaims(token); err != nil || claims.Expired(r.now()) {
		sess.ClearAuth()
		return access.Resolved(nil)
	}

	current, err := SessionIdentity(sess)
	if err != nil {
		r.warn("decode session identity", err)
		current = nil
	}
	if current != nil && !sess.Auth().Stale {
		return access.Resolved(current)
	}
	return r.refresh(req.Context(), sess, token, current)
}

func (r *Resolver) refresh(ctx context.Context, sess *shared.Session, token string, current *access.Identity) access.IdentityState {
	fresh, err := r.service.Profile(ctx, token)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			sess.ClearAuth()
			return access.Resolved(nil)
		}
		r.warn("refresh identity", err)
		return access.Pending()
	}
	// Keep the role the user switched to as long as they still hold it.
	if current != nil && fresh.Holds(current.ActiveRole) {
		_ = fresh.SwitchRole(current.ActiveRole)
	}
	if err := StoreIdentity(sess, token, fresh); err != nil {
		r.warn("store identity", err)
		return access.Pending()
	}
	return access.Resolved(fresh)
}

func (r *Resolver) warn(msg string, err error) {
	if r.logger != nil {
		r.logger.Warn(msg, slog.Any("error", err))
	}
}

var _ access.Resolver = (*Resolver)(nil)
