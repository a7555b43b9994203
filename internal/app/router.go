package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/admin"
	"github.com/tickethub/tickethub-web/internal/auth"
	"github.com/tickethub/tickethub-web/internal/cart"
	"github.com/tickethub/tickethub-web/internal/categories"
	"github.com/tickethub/tickethub-web/internal/events"
	"github.com/tickethub/tickethub-web/internal/observability"
	"github.com/tickethub/tickethub-web/internal/organizer"
	"github.com/tickethub/tickethub-web/internal/shared"
	"github.com/tickethub/tickethub-web/internal/tickets"
	"github.com/tickethub/tickethub-web/internal/users"
	"github.com/tickethub/tickethub-web/internal/venues"
	"github.com/tickethub/tickethub-web/internal/view"
	"github.com/tickethub/tickethub-web/jobs"
	"github.com/tickethub/tickethub-web/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Guard          access.Middleware
	Metrics        *observability.Metrics

	AuthHandler       *auth.Handler
	EventsHandler     *events.Handler
	CartHandler       *cart.Handler
	TicketsHandler    *tickets.Handler
	AdminHandler      *admin.Handler
	VenuesHandler     *venues.Handler
	CategoriesHandler *categories.Handler
	UsersHandler      *users.Handler
	OrganizerHandler  *organizer.Handler
	JobHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with TicketHub defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	r.Group(func(r chi.Router) {
		r.Use(params.Guard.Load)
		r.Use(APIToken)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			target := "/events"
			if identity := access.IdentityFromContext(r.Context()); identity != nil {
				target = access.ResolveDefaultRoute(identity.ActiveRole)
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
		})

		r.Route("/auth", params.AuthHandler.MountRoutes)
		if params.EventsHandler != nil {
			r.Route("/events", params.EventsHandler.MountRoutes)
		}
		if params.CartHandler != nil {
			r.Route("/cart", params.CartHandler.MountRoutes)
		}
		if params.TicketsHandler != nil {
			r.Route("/tickets", params.TicketsHandler.MountRoutes)
			r.Route("/api/tickets", params.TicketsHandler.MountAPI)
		}
		if params.OrganizerHandler != nil {
			r.Route("/organizer", params.OrganizerHandler.MountRoutes)
		}
		r.Route("/admin", func(r chi.Router) {
			if params.AdminHandler != nil {
				params.AdminHandler.MountRoutes(r)
			}
			if params.VenuesHandler != nil {
				r.Route("/venues", params.VenuesHandler.MountRoutes)
			}
			if params.CategoriesHandler != nil {
				r.Route("/categories", params.CategoriesHandler.MountRoutes)
			}
			if params.UsersHandler != nil {
				r.Route("/users", params.UsersHandler.MountRoutes)
			}
		})
		if params.JobHandler != nil {
			r.Group(func(r chi.Router) {
				r.Use(params.Guard.RequireRole(access.RoleAdministrator))
				r.Route("/jobs", params.JobHandler.MountRoutes)
			})
		}
	})

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers.
// Static assets are cached for 1 hour in browser.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
