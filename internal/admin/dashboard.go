// Package admin serves the administrator dashboard.
package admin

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tickethub/tickethub-web/internal/access"
	"github.com/tickethub/tickethub-web/internal/shared"
	"github.com/tickethub/tickethub-web/internal/view"
)

// CountFunc returns the size of one collection.
type CountFunc func(ctx context.Context) (int, error)

// Counters are the figures shown on the dashboard.
type Counters struct {
	Venues       CountFunc
	Categories   CountFunc
	ActiveEvents CountFunc
}

// WarmFunc schedules a refresh of the cached events listing.
type WarmFunc func(ctx context.Context) error

// Summary is the dashboard content.
type Summary struct {
	Venues       int
	Categories   int
	ActiveEvents int
}

// Load fetches every figure concurrently.
func (c Counters) Load(ctx context.Context) (Summary, error) {
	var s Summary
	g, ctx := errgroup.WithContext(ctx)
	count := func(fn CountFunc, dst *int) {
		if fn == nil {
			return
		}
		g.Go(func() error {
			n, err := fn(ctx)
			*dst = n
			return err
		})
	}
	count(c.Venues, &s.Venues)
	count(c.Categories, &s.Categories)
	count(c.ActiveEvents, &s.ActiveEvents)
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return s, nil
}

// Handler serves /admin.
type Handler struct {
	logger    *slog.Logger
	counters  Counters
	templates *view.Engine
	csrf      *shared.CSRFManager
	guard     access.Middleware
	warm      WarmFunc
}

// NewHandler builds Handler instance.
// A nil warm hides the cache refresh action.
func NewHandler(logger *slog.Logger, counters Counters, templates *view.Engine, csrf *shared.CSRFManager, guard access.Middleware, warm WarmFunc) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, counters: counters, templates: templates, csrf: csrf, guard: guard, warm: warm}
}

// MountRoutes registers the dashboard.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireRole(access.RoleAdministrator))
		r.Get("/", h.dashboard)
		if h.warm != nil {
			r.Post("/cache/warm", h.warmCache)
		}
	})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	data := map[string]any{"CanWarm": h.warm != nil}
	summary, err := h.counters.Load(r.Context())
	if err != nil {
		h.logger.Warn("load dashboard", slog.Any("error", err))
		data["Error"] = shared.UserSafeMessage(err)
	} else {
		data["Summary"] = summary
	}
	viewData := view.NewTemplateData(r, h.csrf, "Panel de administración", data)
	if err := h.templates.Render(w, http.StatusOK, "pages/admin/dashboard.html", viewData); err != nil {
		h.logger.Error("render dashboard", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) warmCache(w http.ResponseWriter, r *http.Request) {
	flash := shared.FlashMessage{Kind: "success", Message: "Actualización de la cartelera en cola"}
	if err := h.warm(r.Context()); err != nil {
		h.logger.Warn("enqueue events warmup", slog.Any("error", err))
		flash = shared.FlashMessage{Kind: "error", Message: "No se pudo programar la actualización"}
	}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(flash)
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}
