package access

import (
	"context"
	"log/slog"
	"net/http"
)

// Resolver looks up the identity bound to a request.
type Resolver interface {
	ResolveIdentity(r *http.Request) IdentityState
}

// VerdictRecorder receives every verdict computed by the middleware.
type VerdictRecorder interface {
	ObserveVerdict(guard string, status string)
}

type stateContextKey struct{}

// ContextWithState stores the identity state in ctx.
func ContextWithState(ctx context.Context, state IdentityState) context.Context {
	return context.WithValue(ctx, stateContextKey{}, state)
}

// StateFromContext returns the identity state stored by Middleware.Load.
// The second result is false when nothing was stored.
func StateFromContext(ctx context.Context) (IdentityState, bool) {
	state, ok := ctx.Value(stateContextKey{}).(IdentityState)
	return state, ok
}

// IdentityFromContext returns the resolved identity or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	state, _ := StateFromContext(ctx)
	return state.Identity()
}

// Middleware adapts the guards to chi route groups.
type Middleware struct {
	Resolver  Resolver
	Logger    *slog.Logger
	LoginPath string
	Recorder  VerdictRecorder
}

// Load resolves the identity once per request and stores it in the context
// without gating anything.
func (m Middleware) Load(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := StateFromContext(r.Context()); ok {
			next.ServeHTTP(w, r)
			return
		}
		state := m.resolve(r)
		next.ServeHTTP(w, r.WithContext(ContextWithState(r.Context(), state)))
	})
}

// RequireAuthentication gates handlers on a valid session.
func (m Middleware) RequireAuthentication() func(http.Handler) http.Handler {
	return m.gate("authenticated", RequireAuthentication)
}

// RequireRole gates handlers on any of roles.
func (m Middleware) RequireRole(roles ...Role) func(http.Handler) http.Handler {
	return m.gate("role", func(state IdentityState) Verdict {
		return RequireRole(state, roles...)
	})
}

// RequirePermission gates handlers on any of perms.
func (m Middleware) RequirePermission(perms ...string) func(http.Handler) http.Handler {
	return m.gate("permission", func(state IdentityState) Verdict {
		return RequirePermission(state, perms...)
	})
}

func (m Middleware) gate(name string, check func(IdentityState) Verdict) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			state, ok := StateFromContext(r.Context())
			if !ok {
				state = m.resolve(r)
			}
			verdict := check(state)
			if m.Recorder != nil {
				m.Recorder.ObserveVerdict(name, verdict.Status().String())
			}
			switch verdict.Status() {
			case StatusAuthorized:
				next.ServeHTTP(w, r.WithContext(ContextWithState(r.Context(), state)))
			case StatusLoading:
				writePlaceholder(w)
			case StatusDenied:
				if verdict.Reason() == ReasonUnauthenticated {
					http.Redirect(w, r, m.loginPath(), http.StatusSeeOther)
					return
				}
				if m.Logger != nil {
					m.Logger.Info("access denied",
						slog.String("guard", name),
						slog.String("path", r.URL.Path),
						slog.String("user_id", verdict.Identity().UserID),
						slog.String("active_role", verdict.Identity().ActiveRole.String()))
				}
				w.WriteHeader(http.StatusForbidden)
			}
		})
	}
}

func (m Middleware) resolve(r *http.Request) IdentityState {
	if m.Resolver == nil {
		return Resolved(nil)
	}
	return m.Resolver.ResolveIdentity(r)
}

func (m Middleware) loginPath() string {
	if m.LoginPath == "" {
		return "/auth/login"
	}
	return m.LoginPath
}

const placeholderHTML = `<!doctype html><html lang="es"><head><meta charset="utf-8"><meta http-equiv="refresh" content="1"><title>TicketHub</title></head><body><p>Cargando…</p></body></html>`

func writePlaceholder(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Retry-After", "1")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte(placeholderHTML))
}
